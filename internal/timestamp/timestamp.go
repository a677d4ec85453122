// Package timestamp converts the three time encodings found in Amcache hives
// (Unix epoch seconds, Windows FILETIME ticks and invariant-culture date
// strings) into UTC time.Time values. Every converter reports absence with a
// false second result instead of an error.
package timestamp

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/joshuapare/amcachekit/internal/format"
)

// maxUnixSeconds is the last second representable as a .NET DateTimeOffset
// (9999-12-31T23:59:59Z). Larger epoch values are garbage.
const maxUnixSeconds = 253402300799

// FromUnixSeconds parses a decimal epoch-seconds string. Empty, non-numeric,
// zero, negative and out-of-range values are absent.
func FromUnixSeconds(s string) (time.Time, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return FromUnix(n)
}

// FromUnix converts epoch seconds; values <= 0 are absent.
func FromUnix(n int64) (time.Time, bool) {
	if n <= 0 || n > maxUnixSeconds {
		return time.Time{}, false
	}
	return time.Unix(n, 0).UTC(), true
}

// FromFiletime converts FILETIME ticks. Zero and values past the year 9999
// are absent.
func FromFiletime(ft uint64) (time.Time, bool) {
	if ft == 0 || ft > math.MaxInt64 {
		return time.Time{}, false
	}
	if ft < format.FiletimeEpochOffset {
		// Before 1970: convert without the epoch clamp.
		d := format.FiletimeEpochOffset - ft
		sec := int64(d / 1e7)
		nsec := int64(d%1e7) * 100
		return time.Unix(-sec, -nsec).UTC(), true
	}
	t := format.FiletimeToTime(ft)
	if t.Year() > 9999 {
		return time.Time{}, false
	}
	return t, true
}

// FromFiletimeString parses a decimal FILETIME string as rendered for a
// REG_QWORD value.
func FromFiletimeString(s string) (time.Time, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return FromFiletime(n)
}

// invariantLayouts are the forms the invariant culture produces and accepts
// for the dates Windows writes into Amcache. Ordered by frequency.
var invariantLayouts = []string{
	"01/02/2006 15:04:05",
	"1/2/2006 15:04:05",
	"01/02/2006 3:04:05 PM",
	"1/2/2006 3:04:05 PM",
	"01/02/2006 15:04",
	"01/02/2006",
	"1/2/2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

// FromInvariant parses a month-first date string. Strings without a zone
// are taken as UTC. Empty or unparseable input is absent.
func FromInvariant(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range invariantLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Normalize returns t in UTC with the monotonic reading stripped. It is
// idempotent.
func Normalize(t time.Time) time.Time {
	return t.Round(0).UTC()
}

// Ptr returns a pointer to t, or nil when ok is false. Decoders use it to
// fill optional fields straight from a converter result.
func Ptr(t time.Time, ok bool) *time.Time {
	if !ok {
		return nil
	}
	t = Normalize(t)
	return &t
}
