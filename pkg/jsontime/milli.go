// Package jsontime provides time types that marshal as unix timestamps.
package jsontime

import (
	"strconv"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Milli is a time.Time that marshals as a unix millisecond timestamp in
// both JSON and msgpack.
type Milli time.Time

// Now returns the current time as a Milli.
func Now() Milli {
	return Milli(time.Now())
}

// FromUnixMilli converts a unix millisecond timestamp to a Milli.
func FromUnixMilli(ms int64) Milli {
	return Milli(time.UnixMilli(ms))
}

// Time converts m back to a time.Time.
func (m Milli) Time() time.Time {
	return time.Time(m)
}

// UnixMilli returns m as a unix millisecond timestamp.
func (m Milli) UnixMilli() int64 {
	return time.Time(m).UnixMilli()
}

// IsZero reports whether m is the zero time.
func (m Milli) IsZero() bool {
	return time.Time(m).IsZero()
}

// Add returns m shifted by d.
func (m Milli) Add(d time.Duration) Milli {
	return Milli(time.Time(m).Add(d))
}

// Sub returns the duration m-u.
func (m Milli) Sub(u Milli) time.Duration {
	return time.Time(m).Sub(time.Time(u))
}

// After reports whether m is after u.
func (m Milli) After(u Milli) bool {
	return time.Time(m).After(time.Time(u))
}

func (m Milli) String() string {
	return time.Time(m).Format(time.RFC3339Nano)
}

// MarshalJSON implements json.Marshaler.
func (m Milli) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, m.UnixMilli(), 10), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Milli) UnmarshalJSON(data []byte) error {
	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return err
	}
	*m = FromUnixMilli(ms)
	return nil
}

// MarshalMsgpack implements msgpack.Marshaler.
func (m Milli) MarshalMsgpack() ([]byte, error) {
	return msgpack.Marshal(m.UnixMilli())
}

// UnmarshalMsgpack implements msgpack.Unmarshaler.
func (m *Milli) UnmarshalMsgpack(data []byte) error {
	var ms int64
	if err := msgpack.Unmarshal(data, &ms); err != nil {
		return err
	}
	*m = FromUnixMilli(ms)
	return nil
}
