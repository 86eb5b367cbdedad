package competition

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestSubgraphURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id      ID
		testURL string
		want    string
	}{
		{ID1, "", tradingCompURLPrefix + "v1"},
		{ID2, "", tradingCompURLPrefix + "v2"},
		{ID3, "", tradingCompURLPrefix + "v3"},
		{IDTest, "", tradingCompURLPrefix + "v2"},
		{IDTest, "http://localhost:8000/subgraphs/name/test", "http://localhost:8000/subgraphs/name/test"},
		{ID1, "http://ignored", tradingCompURLPrefix + "v1"},
		{"4", "", tradingCompURLPrefix + "v2"},
		{"", "", tradingCompURLPrefix + "v2"},
	}

	for _, tt := range tests {
		t.Run(string(tt.id)+"|"+tt.testURL, func(t *testing.T) {
			assert.Equal(t, tt.want, SubgraphURL(tt.id, tt.testURL))
		})
	}
}

func TestParseID(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"1", "2", "3", "test"} {
		assert.Equal(t, ID(raw), ParseID(raw))
	}
	for _, raw := range []string{"", "4", "TEST", "v1", " 1"} {
		assert.Equal(t, ID2, ParseID(raw), raw)
	}
}

func TestRewardGroup(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"1", "2", "3", "4"} {
		assert.Equal(t, raw, RewardGroup(raw))
	}
	for _, raw := range []string{"", "0", "5", "gold"} {
		assert.Equal(t, "4", RewardGroup(raw), raw)
	}
}

func TestRewardGroupTitle(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"1": "1 - Purple",
		"2": "2 - Bronze",
		"3": "3 - Silver",
		"4": "4 - Gold",
	}
	for raw, want := range tests {
		got, ok := RewardGroupTitle(raw)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}

	got, ok := RewardGroupTitle("5")
	assert.False(t, ok)
	assert.Empty(t, got)
}

func TestLeaderboardKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id   ID
		want string
	}{
		{ID1, "leaderboard"},
		{ID2, "leaderboard_fantoken"},
		{ID3, "leaderboard_mobox"},
		{IDTest, "leaderboard_test"},
		{"unknown", "leaderboard_fantoken"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LeaderboardKey(tt.id))
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	info := Describe("nope", "")
	assert.Equal(t, ID2, info.ID)
	assert.Equal(t, "nope", info.Requested)
	assert.Equal(t, "leaderboard_fantoken", info.LeaderboardKey)
	assert.Equal(t, tradingCompURLPrefix+"v2", info.Subgraph)

	info = Describe("test", "http://local")
	assert.Equal(t, IDTest, info.ID)
	assert.Equal(t, "http://local", info.Subgraph)
	assert.Equal(t, "leaderboard_test", info.LeaderboardKey)
}

func TestParseID_DoesNotAliasInput(t *testing.T) {
	t.Parallel()

	// raw shares memory with buf, as a fiber route parameter shares the request buffer.
	buf := []byte("test")
	raw := unsafe.String(&buf[0], len(buf))
	groupBuf := []byte("3")
	rawGroup := unsafe.String(&groupBuf[0], len(groupBuf))

	id := ParseID(raw)
	group := RewardGroup(rawGroup)
	copy(buf, "QQQQ")
	groupBuf[0] = '9'

	assert.Equal(t, IDTest, id)
	assert.Equal(t, "test", string(id))
	assert.Equal(t, "3", group)
}
