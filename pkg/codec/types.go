package codec

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// TimeFormat is the canonical wire layout for timestamps: ISO-8601 with
// fractional seconds, always UTC.
const TimeFormat = "2006-01-02T15:04:05.000Z"

// Timestamp wraps time.Time with the canonical wire encoding. The zero value
// encodes as the epoch-independent zero time and reports IsZero.
type Timestamp struct {
	time.Time
}

// Now returns the current time as a Timestamp, truncated to the millisecond
// precision the wire format carries.
func Now() Timestamp {
	return At(time.Now())
}

// At converts a time.Time into a wire Timestamp.
func At(t time.Time) Timestamp {
	return Timestamp{t.UTC().Truncate(time.Millisecond)}
}

// MarshalJSON encodes the timestamp using TimeFormat.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.UTC().Format(TimeFormat))), nil
}

// UnmarshalJSON accepts the canonical layout plus common RFC3339 variants.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("timestamp %s: %w", data, err)
	}
	for _, layout := range []string{TimeFormat, time.RFC3339Nano, time.RFC3339} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("timestamp %q: unrecognized layout", s)
}

// Non-finite float tokens.
const (
	tokenPosInf = `"+inf"`
	tokenNegInf = `"-inf"`
	tokenNaN    = `"nan"`
)

// Float64 is a float64 that survives the wire even when non-finite:
// +Inf, -Inf and NaN encode as the string tokens "+inf", "-inf" and "nan".
type Float64 float64

// MarshalJSON encodes finite values as JSON numbers and non-finite values
// as their string tokens.
func (f Float64) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsInf(v, 1):
		return []byte(tokenPosInf), nil
	case math.IsInf(v, -1):
		return []byte(tokenNegInf), nil
	case math.IsNaN(v):
		return []byte(tokenNaN), nil
	}
	return []byte(strconv.FormatFloat(v, 'g', -1, 64)), nil
}

// UnmarshalJSON accepts JSON numbers and the non-finite string tokens.
func (f *Float64) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case tokenPosInf:
		*f = Float64(math.Inf(1))
		return nil
	case tokenNegInf:
		*f = Float64(math.Inf(-1))
		return nil
	case tokenNaN:
		*f = Float64(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("float %s: %w", data, err)
	}
	*f = Float64(v)
	return nil
}
