package validation

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed denylist.json
var defaultDenylistJSON []byte

// Denylist is an immutable, ordered set of disallowed substrings.
type Denylist struct {
	entries []string
	matcher *regexp.Regexp
}

// NewDenylist builds a Denylist from raw entries. Entries are trimmed and
// lower-cased; blank entries are dropped. Each entry matches as a literal
// substring.
func NewDenylist(entries ...string) *Denylist {
	d := &Denylist{entries: make([]string, 0, len(entries))}
	quoted := make([]string, 0, len(entries))
	for _, e := range entries {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		d.entries = append(d.entries, e)
		quoted = append(quoted, regexp.QuoteMeta(e))
	}
	if len(quoted) > 0 {
		d.matcher = regexp.MustCompile("(?i)" + strings.Join(quoted, "|"))
	}
	return d
}

// Contains reports whether the lower-cased form of s contains any entry.
func (d *Denylist) Contains(s string) bool {
	if d == nil || d.matcher == nil {
		return false
	}
	return d.matcher.MatchString(strings.ToLower(s))
}

// Entries returns a copy of the normalized entries in load order.
func (d *Denylist) Entries() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.entries))
	copy(out, d.entries)
	return out
}

// Len returns the number of entries.
func (d *Denylist) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// DefaultDenylist returns the denylist compiled into the binary.
func DefaultDenylist() (*Denylist, error) {
	var entries []string
	if err := json.Unmarshal(defaultDenylistJSON, &entries); err != nil {
		return nil, fmt.Errorf("decode embedded denylist: %w", err)
	}
	return NewDenylist(entries...), nil
}

// LoadDenylist reads a JSON array or YAML sequence of strings from path.
// An empty path yields the embedded default list.
func LoadDenylist(path string) (*Denylist, error) {
	if path == "" {
		return DefaultDenylist()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read denylist %s: %w", path, err)
	}

	var entries []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("decode denylist %s: %w", path, err)
		}
	case ".json", "":
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("decode denylist %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported denylist format %q", filepath.Ext(path))
	}

	return NewDenylist(entries...), nil
}
