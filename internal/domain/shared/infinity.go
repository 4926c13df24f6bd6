package shared

import (
	"math"
	"time"
)

// FarFutureWire is the wire representation of an unbounded upper time limit.
// Internally unbounded limits are math.Inf(1) seconds from the zero timepoint.
const FarFutureWire = "9999-12-31T23:59:59"

// farFutureYear marks the cutoff above which an absolute datetime is treated
// as "no upper bound".
const farFutureYear = 9999

// Inf returns the positive infinity sentinel used for unbounded STN edges.
func Inf() float64 {
	return math.Inf(1)
}

// FarFutureTime returns the absolute datetime encoding of an unbounded limit.
func FarFutureTime() time.Time {
	return time.Date(farFutureYear, 12, 31, 23, 59, 59, 0, time.UTC)
}

// IsFarFuture reports whether t encodes the "no upper bound" sentinel.
func IsFarFuture(t time.Time) bool {
	return t.Year() >= farFutureYear
}

// RelativeTo converts an absolute datetime to seconds from the zero
// timepoint. Far-future datetimes map to +Inf.
func RelativeTo(ztp, t time.Time) float64 {
	if IsFarFuture(t) {
		return math.Inf(1)
	}
	return t.Sub(ztp).Seconds()
}

// AbsoluteTime converts seconds from the zero timepoint back to an absolute
// datetime. +Inf maps to the far-future sentinel.
func AbsoluteTime(ztp time.Time, seconds float64) time.Time {
	if math.IsInf(seconds, 1) {
		return FarFutureTime()
	}
	return ztp.Add(time.Duration(seconds * float64(time.Second)))
}

// ZeroTimepoint returns the default auction session origin: today at
// midnight UTC.
func ZeroTimepoint(clock Clock) time.Time {
	now := clock.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
