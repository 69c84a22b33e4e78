package grpcwire

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// timeoutUnit is one of the single-byte suffixes the grpc-timeout header
// uses to pick a time scale (spec.md §4.4).
type timeoutUnit byte

const (
	unitHour        timeoutUnit = 'H'
	unitMinute      timeoutUnit = 'M'
	unitSecond      timeoutUnit = 'S'
	unitMillisecond timeoutUnit = 'm'
	unitMicrosecond timeoutUnit = 'u'
	unitNanosecond  timeoutUnit = 'n'
)

func (u timeoutUnit) duration() (time.Duration, bool) {
	switch u {
	case unitHour:
		return time.Hour, true
	case unitMinute:
		return time.Minute, true
	case unitSecond:
		return time.Second, true
	case unitMillisecond:
		return time.Millisecond, true
	case unitMicrosecond:
		return time.Microsecond, true
	case unitNanosecond:
		return time.Nanosecond, true
	}
	return 0, false
}

// encodeTimeout renders a time.Duration as a grpc-timeout value: up to
// eight decimal digits followed by a unit suffix (spec.md §4.4). It picks
// the coarsest unit that represents d exactly in at most 8 digits, falling
// back to hours (clamped) for anything larger.
func encodeTimeout(d time.Duration) (string, error) {
	if d <= 0 {
		return "0n", nil
	}
	units := []struct {
		suffix timeoutUnit
		scale  time.Duration
	}{
		{unitHour, time.Hour},
		{unitMinute, time.Minute},
		{unitSecond, time.Second},
		{unitMillisecond, time.Millisecond},
		{unitMicrosecond, time.Microsecond},
		{unitNanosecond, time.Nanosecond},
	}
	for _, u := range units {
		if d%u.scale != 0 {
			continue
		}
		n := d / u.scale
		if n <= 99999999 {
			return fmt.Sprintf("%d%c", n, u.suffix), nil
		}
	}
	// Nothing divided evenly within 8 digits; fall back to hours, rounded
	// up, clamped to what fits.
	hours := int64(d / time.Hour)
	if d%time.Hour != 0 {
		hours++
	}
	if hours > 99999999 {
		hours = 99999999
	}
	return fmt.Sprintf("%d%c", hours, unitHour), nil
}

// decodeTimeout parses a grpc-timeout value into a time.Duration. Grounded
// on grpc-go's internal/transport/http_util.go decodeTimeout
// (other_examples/354c48ed_..._http_util.go.go): reject strings shorter
// than 2 bytes or longer than 9 (8 digits + unit), clamp hour overflow to
// math.MaxInt64 instead of wrapping.
func decodeTimeout(s string) (time.Duration, error) {
	size := len(s)
	if size < 2 {
		return 0, fmt.Errorf("grpcwire: grpc-timeout %q is too short", s)
	}
	if size > 9 {
		return 0, fmt.Errorf("grpcwire: grpc-timeout %q is too long", s)
	}
	unit := timeoutUnit(s[size-1])
	scale, ok := unit.duration()
	if !ok {
		return 0, fmt.Errorf("grpcwire: grpc-timeout %q has an unrecognized unit", s)
	}
	n, err := strconv.ParseInt(s[:size-1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("grpcwire: grpc-timeout %q is not a valid integer: %w", s, err)
	}
	const maxHours = math.MaxInt64 / int64(time.Hour)
	if scale == time.Hour && n > maxHours {
		return time.Duration(math.MaxInt64), nil
	}
	return scale * time.Duration(n), nil
}

// timeoutToMicro converts a duration to the microsecond count spec.md
// §4.4 and §8 describe: the same unit-by-unit multiplication the wire
// format uses, with nanosecond remainders rounded up to at least 1µs for
// any non-zero input (so a 500ns timeout is never silently treated as "no
// deadline").
func timeoutToMicro(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	micros := d / time.Microsecond
	if d%time.Microsecond != 0 {
		micros++
	}
	if micros == 0 {
		micros = 1
	}
	return int64(micros)
}
