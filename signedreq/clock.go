package signedreq

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is the wire format of the timestamp header
// (YYYY-MM-DD HH:MM:SS, UTC).
const TimestampLayout = time.DateTime

// expiredTimestamp stands in for a missing timestamp header and is always
// outside any tolerance window.
const expiredTimestamp = "1901-01-01 12:00:00"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// IDGenerator supplies request identifiers.
type IDGenerator interface {
	NewID() string
}

// IDGeneratorFunc adapts a function to IDGenerator.
type IDGeneratorFunc func() string

// NewID calls f.
func (f IDGeneratorFunc) NewID() string { return f() }

// SystemClock reads time.Now.
var SystemClock Clock = ClockFunc(time.Now)

// UUIDv4 generates random UUID v4 identifiers (RFC 9562 section 5.4).
var UUIDv4 IDGenerator = IDGeneratorFunc(func() string {
	return uuid.New().String()
})

// FormatTimestamp renders t in TimestampLayout after converting it to UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a timestamp header value. Anything that is not
// exactly in TimestampLayout is rejected, including fractional seconds.
func ParseTimestamp(value string) (time.Time, error) {
	t, err := time.ParseInLocation(TimestampLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, err
	}

	if t.Format(TimestampLayout) != value {
		return time.Time{}, fmt.Errorf("timestamp %q is not in %q format", value, TimestampLayout)
	}

	return t, nil
}
