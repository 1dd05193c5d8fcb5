package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampDecodesHistoricalEncodings(t *testing.T) {
	want := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	for _, raw := range []string{
		`"2024-05-01T12:30:00Z"`,
		`"2024-05-01T15:30:00+03:00"`,
		`"2024-05-01 12:30 UTC"`,
		`1714566600`,
		`1714566600.0`,
		`"1714566600"`,
	} {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(raw), &ts), raw)
		assert.True(t, ts.Equal(want), "%s decoded to %s", raw, ts)
	}
}

func TestTimestampNull(t *testing.T) {
	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`null`), &ts))
	assert.False(t, ts.Set())

	out, err := json.Marshal(struct {
		At Timestamp `json:"at"`
	}{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"at":null}`, string(out))
}

func TestTimestampEncodesRFC3339(t *testing.T) {
	ts := At(time.Date(2024, 5, 1, 15, 30, 0, 0, time.FixedZone("MSK", 3*3600)))
	out, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2024-05-01T12:30:00Z"`, string(out))
}

func TestTimestampRejectsGarbage(t *testing.T) {
	var ts Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
}

func TestUserDisplayName(t *testing.T) {
	assert.Equal(t, "@neo", User{ID: 1, Tag: "@neo", FirstName: "Thomas"}.DisplayName())
	assert.Equal(t, "Thomas Anderson", User{ID: 1, FirstName: "Thomas", LastName: "Anderson"}.DisplayName())
	assert.Equal(t, "", User{ID: 1}.DisplayName())
}
