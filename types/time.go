package types

import "time"

// Timestamp is a wire-safe representation of a point in time.
// Uses seconds since Unix epoch plus a nanosecond offset,
// ensuring deterministic serialization across languages.
type Timestamp struct {
	Seconds int64 `cramberry:"1"`
	Nanos   int32 `cramberry:"2"`
}

// TimeToTimestamp converts a time.Time to a Timestamp.
func TimeToTimestamp(t time.Time) Timestamp {
	return Timestamp{
		Seconds: t.Unix(),
		Nanos:   int32(t.Nanosecond()),
	}
}

// ToTime converts a Timestamp to a time.Time (UTC).
func (ts Timestamp) ToTime() time.Time {
	return time.Unix(ts.Seconds, int64(ts.Nanos)).UTC()
}

// IsZero reports whether ts is the zero Timestamp.
func (ts Timestamp) IsZero() bool { return ts.Seconds == 0 && ts.Nanos == 0 }

// Before reports whether ts is strictly earlier than other.
func (ts Timestamp) Before(other Timestamp) bool {
	if ts.Seconds != other.Seconds {
		return ts.Seconds < other.Seconds
	}
	return ts.Nanos < other.Nanos
}
