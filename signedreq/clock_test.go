package signedreq

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTimestamp(t *testing.T) {
	t.Run("utc", func(t *testing.T) {
		ts := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, fixtureTimestamp, FormatTimestamp(ts))
	})

	t.Run("converted to utc", func(t *testing.T) {
		ts := time.Date(2001, 1, 1, 2, 0, 0, 0, time.FixedZone("EET", 2*60*60))
		assert.Equal(t, fixtureTimestamp, FormatTimestamp(ts))
	})

	t.Run("sub-second precision dropped", func(t *testing.T) {
		ts := time.Date(2001, 1, 1, 0, 0, 0, 999_999_999, time.UTC)
		assert.Equal(t, fixtureTimestamp, FormatTimestamp(ts))
	})
}

func TestParseTimestamp(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		ts, err := ParseTimestamp(fixtureTimestamp)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC), ts)
	})

	t.Run("expired sentinel parses", func(t *testing.T) {
		ts, err := ParseTimestamp(expiredTimestamp)
		require.NoError(t, err)
		assert.Equal(t, 1901, ts.Year())
	})

	invalid := []string{
		"",
		"2001-01-01",
		"2001-01-01T00:00:00Z",
		"2001-01-01 00:00:00.5",
		"2001-13-01 00:00:00",
		" 2001-01-01 00:00:00",
		"yesterday",
	}

	for _, value := range invalid {
		t.Run("invalid "+value, func(t *testing.T) {
			_, err := ParseTimestamp(value)
			assert.Error(t, err)
		})
	}
}

func TestUUIDv4(t *testing.T) {
	a := UUIDv4.NewID()
	b := UUIDv4.NewID()

	assert.NotEqual(t, a, b)

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())
}

func TestClockFunc(t *testing.T) {
	fixed := time.Date(2020, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := ClockFunc(func() time.Time { return fixed })

	assert.Equal(t, fixed, clock.Now())
}
