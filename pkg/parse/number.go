package parse

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrFormat is matched by every *FormatError.
var ErrFormat = errors.New("malformed number")

// FormatError is returned when a numeric field holds something that is not
// a number. Empty fields are not an error, they parse as 0.
type FormatError struct {
	Value string
	Err   error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed number %q: %v", e.Value, e.Err)
}

func (e *FormatError) Unwrap() []error {
	return []error{ErrFormat, e.Err}
}

type numberOptions struct {
	filterAbove float64
	filter      bool
	scale       float64
}

// NumberOption adjusts how Number treats a parsed value.
type NumberOption func(*numberOptions)

// FilterAbove turns values greater than max into 0. Some readings arrive
// without their decimal comma and end up orders of magnitude too large.
func FilterAbove(max float64) NumberOption {
	return func(o *numberOptions) {
		o.filterAbove = max
		o.filter = true
	}
}

// Scale multiplies the parsed value by f.
func Scale(f float64) NumberOption {
	return func(o *numberOptions) {
		o.scale = f
	}
}

// Number parses a number in the portal's Danish locale format where "." is
// the thousands separator and "," the decimal separator. The result is
// always rounded to 3 decimals after scaling.
func Number(raw string, opts ...NumberOption) (float64, error) {
	o := numberOptions{scale: 1}
	for _, opt := range opts {
		opt(&o)
	}

	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &FormatError{Value: raw, Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &FormatError{Value: raw, Err: strconv.ErrSyntax}
	}

	if o.filter && v > o.filterAbove {
		return 0, nil
	}
	return round(v*o.scale, 3), nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
