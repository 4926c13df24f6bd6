package temporal

import (
	"fmt"
	"math"
	"strconv"
)

// Seconds is a duration in seconds from the zero timepoint. It exists so
// that +Inf (unbounded) survives JSON: infinities are encoded as the strings
// "Infinity" and "-Infinity", which encoding/json cannot represent as
// numbers.
type Seconds float64

func (s Seconds) MarshalJSON() ([]byte, error) {
	v := float64(s)
	switch {
	case math.IsInf(v, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Infinity"`), nil
	default:
		return []byte(strconv.FormatFloat(v, 'g', -1, 64)), nil
	}
}

func (s *Seconds) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"Infinity"`:
		*s = Seconds(math.Inf(1))
		return nil
	case `"-Infinity"`:
		*s = Seconds(math.Inf(-1))
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("parse seconds %q: %w", data, err)
	}
	*s = Seconds(v)
	return nil
}
