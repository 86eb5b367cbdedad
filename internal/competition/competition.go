// Package competition maps trading competition identifiers to subgraph
// endpoints, leaderboard keys and reward group labels.
package competition

// ID identifies a trading competition.
type ID string

// Known competitions.
const (
	ID1    ID = "1"
	ID2    ID = "2"
	ID3    ID = "3"
	IDTest ID = "test"
)

// DefaultID is used when an identifier is not recognized.
const DefaultID = ID2

// ProfileSubgraph is the profile subgraph endpoint.
const ProfileSubgraph = "https://api.thegraph.com/subgraphs/name/pancakeswap/profile"

const tradingCompURLPrefix = "https://api.thegraph.com/subgraphs/name/pancakeswap/trading-competition-"

// DefaultRewardGroup is used when a reward group is not recognized.
const DefaultRewardGroup = "4"

// SubgraphURL returns the trading competition subgraph for id. For the test
// competition testURL wins when set.
func SubgraphURL(id ID, testURL string) string {
	switch id {
	case ID1:
		return tradingCompURLPrefix + "v1"
	case ID2:
		return tradingCompURLPrefix + "v2"
	case ID3:
		return tradingCompURLPrefix + "v3"
	case IDTest:
		if testURL != "" {
			return testURL
		}
		return tradingCompURLPrefix + "v2"
	default:
		return tradingCompURLPrefix + "v2"
	}
}

// ParseID returns the known competition named by raw and DefaultID otherwise.
// The result is always one of the package constants and never aliases raw,
// which may point into a reused request buffer.
func ParseID(raw string) ID {
	switch ID(raw) {
	case ID1:
		return ID1
	case ID2:
		return ID2
	case ID3:
		return ID3
	case IDTest:
		return IDTest
	default:
		return DefaultID
	}
}

// RewardGroup returns the known reward group ("1" to "4") named by raw and
// DefaultRewardGroup otherwise. Like ParseID it never returns raw itself.
func RewardGroup(raw string) string {
	switch raw {
	case "1":
		return "1"
	case "2":
		return "2"
	case "3":
		return "3"
	case "4":
		return "4"
	default:
		return DefaultRewardGroup
	}
}

// RewardGroupTitle returns the display label of a reward group. ok is false
// for unknown groups.
func RewardGroupTitle(raw string) (title string, ok bool) {
	switch raw {
	case "1":
		return "1 - Purple", true
	case "2":
		return "2 - Bronze", true
	case "3":
		return "3 - Silver", true
	case "4":
		return "4 - Gold", true
	default:
		return "", false
	}
}

// LeaderboardKey returns the storage key of the competition leaderboard.
func LeaderboardKey(id ID) string {
	switch id {
	case ID1:
		return "leaderboard"
	case ID2:
		return "leaderboard_fantoken"
	case ID3:
		return "leaderboard_mobox"
	case IDTest:
		return "leaderboard_test"
	default:
		return "leaderboard_fantoken"
	}
}

// Info describes a resolved competition.
type Info struct {
	ID             ID     `json:"id"`
	Requested      string `json:"requested"`
	Subgraph       string `json:"subgraph"`
	LeaderboardKey string `json:"leaderboard_key"`
}

// Describe resolves raw into its subgraph endpoint and leaderboard key.
func Describe(raw, testURL string) Info {
	id := ParseID(raw)
	return Info{
		ID:             id,
		Requested:      raw,
		Subgraph:       SubgraphURL(id, testURL),
		LeaderboardKey: LeaderboardKey(id),
	}
}

// All returns the known competitions.
func All() []ID {
	return []ID{ID1, ID2, ID3, IDTest}
}
