// Package subgraph queries trading competition subgraphs over GraphQL.
package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// PageSize is the largest page The Graph serves per query.
const PageSize = 1000

const participantsQuery = `query Participants($first: Int!, $skip: Int!) {
  users(first: $first, skip: $skip, orderBy: volumeUSD, orderDirection: desc) {
    id
    volumeUSD
    team { id }
  }
}`

// Participant is a competition user as reported by the subgraph.
type Participant struct {
	Address   string
	VolumeUSD float64
	TeamID    string
}

type rawUser struct {
	ID        string `json:"id"`
	VolumeUSD string `json:"volumeUSD"`
	Team      *struct {
		ID string `json:"id"`
	} `json:"team"`
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type participantsResponse struct {
	Data struct {
		Users []rawUser `json:"users"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// Client posts GraphQL queries to subgraph endpoints.
type Client struct {
	client *http.Client
}

// NewClient creates a new subgraph client.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{client: &http.Client{Timeout: timeout}}
}

// Participants returns one page of participants ordered by volume.
func (c *Client) Participants(ctx context.Context, url string, first, skip int) ([]Participant, error) {
	var resp participantsResponse
	err := c.post(ctx, url, graphQLRequest{
		Query:     participantsQuery,
		Variables: map[string]any{"first": first, "skip": skip},
	}, &resp)
	if err != nil {
		return nil, err
	}

	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, fmt.Errorf("subgraph errors: %s", strings.Join(msgs, "; "))
	}

	out := make([]Participant, 0, len(resp.Data.Users))
	for _, u := range resp.Data.Users {
		p := Participant{Address: strings.ToLower(u.ID)}
		if u.VolumeUSD != "" {
			f, err := strconv.ParseFloat(u.VolumeUSD, 64)
			if err != nil {
				return nil, fmt.Errorf("parse volume of %s: %w", u.ID, err)
			}
			p.VolumeUSD = f
		}
		if u.Team != nil {
			p.TeamID = u.Team.ID
		}
		out = append(out, p)
	}
	return out, nil
}

// FetchAll pages through every participant at url.
func (c *Client) FetchAll(ctx context.Context, url string) ([]Participant, error) {
	var all []Participant
	for skip := 0; ; skip += PageSize {
		page, err := c.Participants(ctx, url, PageSize, skip)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < PageSize {
			return all, nil
		}
	}
}

func (c *Client) post(ctx context.Context, url string, body, result any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
