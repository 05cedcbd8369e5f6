// Package config loads and validates the structured configuration document
// (spec §6) and provides the human-readable duration/bytes scalar types it
// is expressed in.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration is a time.Duration that marshals to/from the compact
// "<integer><unit>" form (ms|s|m|h|d), round-tripping for any integer-unit
// quantity the formatter emits.
type Duration time.Duration

var durationUnits = []struct {
	suffix string
	unit   time.Duration
}{
	{"ms", time.Millisecond},
	{"s", time.Second},
	{"m", time.Minute},
	{"h", time.Hour},
	{"d", 24 * time.Hour},
}

// ParseDuration parses a string like "500ms", "30s", "5m", "2h", "1d".
func ParseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	for _, u := range durationUnits {
		if strings.HasSuffix(s, u.suffix) {
			numPart := strings.TrimSuffix(s, u.suffix)
			// "s" also suffixes "ms"; durationUnits lists "ms" before "s",
			// so a millisecond value matches the longer unit first.
			n, err := strconv.ParseFloat(numPart, 64)
			if err != nil {
				continue
			}
			return Duration(n * float64(u.unit)), nil
		}
	}
	return 0, fmt.Errorf("invalid duration %q: expected an ms|s|m|h|d suffix", s)
}

// String formats d with the largest unit that divides it exactly, so the
// result round-trips through ParseDuration. Zero formats as "0ms"; a value
// that is not a whole number of milliseconds is written as fractional
// milliseconds.
func (d Duration) String() string {
	v := time.Duration(d)
	if v == 0 {
		return "0ms"
	}
	for i := len(durationUnits) - 1; i >= 0; i-- {
		u := durationUnits[i]
		if v%u.unit == 0 {
			n := v / u.unit
			return strconv.FormatInt(int64(n), 10) + u.suffix
		}
	}
	return strconv.FormatFloat(float64(v)/float64(time.Millisecond), 'f', -1, 64) + "ms"
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Std returns the stdlib time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }
