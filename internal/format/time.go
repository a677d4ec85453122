package format

import "time"

const (
	// FiletimeEpochOffset is the distance between 1601-01-01 and 1970-01-01
	// in 100ns ticks.
	FiletimeEpochOffset = 116444736000000000
	filetimeUnit        = 100
)

// FiletimeToTime converts a Windows FILETIME value to a UTC time.Time. Values
// at or before the Unix epoch collapse to the epoch.
func FiletimeToTime(v uint64) time.Time {
	if v <= FiletimeEpochOffset {
		return time.Unix(0, 0).UTC()
	}
	ticks := v - FiletimeEpochOffset
	sec := int64(ticks / 1e7)
	nsec := int64(ticks%1e7) * filetimeUnit
	return time.Unix(sec, nsec).UTC()
}

// TimeToFiletime converts a time.Time to a Windows FILETIME value.
func TimeToFiletime(t time.Time) uint64 {
	ns := t.UnixNano()
	if ns < 0 {
		ns = 0
	}
	return uint64(ns)/filetimeUnit + FiletimeEpochOffset
}
