package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Bytes is an int64 byte count that marshals to/from the compact
// "<integer><unit>" form (b|kb|mb|gb|tb, case-insensitive).
type Bytes int64

var byteUnits = []struct {
	suffix string
	factor int64
}{
	{"tb", 1 << 40},
	{"gb", 1 << 30},
	{"mb", 1 << 20},
	{"kb", 1 << 10},
	{"b", 1},
}

// ParseBytes parses a string like "512b", "10kb", "4mb", "2gb", "1tb".
func ParseBytes(s string) (Bytes, error) {
	trimmed := strings.TrimSpace(s)
	lower := strings.ToLower(trimmed)
	for _, u := range byteUnits {
		if strings.HasSuffix(lower, u.suffix) {
			numPart := strings.TrimSpace(trimmed[:len(trimmed)-len(u.suffix)])
			n, err := strconv.ParseFloat(numPart, 64)
			if err != nil {
				continue
			}
			return Bytes(int64(n * float64(u.factor))), nil
		}
	}
	return 0, fmt.Errorf("invalid byte size %q: expected a b|kb|mb|gb|tb suffix", s)
}

// String formats b as the largest whole unit that round-trips.
func (b Bytes) String() string {
	v := int64(b)
	for _, u := range byteUnits {
		if u.factor == 1 {
			continue
		}
		if v%u.factor == 0 {
			return strconv.FormatInt(v/u.factor, 10) + u.suffix
		}
	}
	return strconv.FormatInt(v, 10) + "b"
}

func (b Bytes) MarshalYAML() (interface{}, error) {
	return b.String(), nil
}

func (b *Bytes) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseBytes(s)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
