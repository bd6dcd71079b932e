// Package convert parses field bytes into Go values without allocating.
package convert

import (
	"errors"
	"math"
	"strconv"
	"unsafe"
)

var (
	ErrSyntax = errors.New("convert: invalid syntax")
	ErrRange  = errors.New("convert: value out of range")
)

// ParseInt parses a base-10 integer limited to the 32-bit range of an Int
// column.
func ParseInt(b []byte) (int, error) {
	v, err := ParseInt64(b)
	if err != nil {
		return 0, err
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, ErrRange
	}
	return int(v), nil
}

// ParseInt64 parses a base-10 integer with an optional sign.
func ParseInt64(b []byte) (int64, error) {
	if len(b) == 0 {
		return 0, ErrSyntax
	}
	neg := false
	switch b[0] {
	case '-':
		neg = true
		b = b[1:]
	case '+':
		b = b[1:]
	}
	if len(b) == 0 {
		return 0, ErrSyntax
	}

	// Accumulate as a negative number so MinInt64 fits.
	const cutoff = math.MinInt64 / 10
	var v int64
	for _, c := range b {
		d := int64(c) - '0'
		if d < 0 || d > 9 {
			return 0, ErrSyntax
		}
		if v < cutoff {
			return 0, ErrRange
		}
		v *= 10
		if v < math.MinInt64+d {
			return 0, ErrRange
		}
		v -= d
	}
	if neg {
		return v, nil
	}
	if v == math.MinInt64 {
		return 0, ErrRange
	}
	return -v, nil
}

// ParseFloat parses a 64-bit floating point number.
func ParseFloat(b []byte) (float64, error) {
	if len(b) == 0 {
		return 0, ErrSyntax
	}
	v, err := strconv.ParseFloat(unsafeString(b), 64)
	if err != nil {
		var ne *strconv.NumError
		if errors.As(err, &ne) && errors.Is(ne.Err, strconv.ErrRange) {
			return 0, ErrRange
		}
		return 0, ErrSyntax
	}
	return v, nil
}

// ParseBool accepts true/false, 1/0, yes/no, y/n and t/f in any case.
func ParseBool(b []byte) (bool, error) {
	switch len(b) {
	case 1:
		switch lower(b[0]) {
		case '1', 't', 'y':
			return true, nil
		case '0', 'f', 'n':
			return false, nil
		}
	case 2:
		if lower(b[0]) == 'n' && lower(b[1]) == 'o' {
			return false, nil
		}
	case 3:
		if lower(b[0]) == 'y' && lower(b[1]) == 'e' && lower(b[2]) == 's' {
			return true, nil
		}
	case 4:
		if equalFold(b, "true") {
			return true, nil
		}
	case 5:
		if equalFold(b, "false") {
			return false, nil
		}
	}
	return false, ErrSyntax
}

// String copies b into a new string.
func String(b []byte) string { return string(b) }

func lower(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

func equalFold(b []byte, s string) bool {
	for i := range b {
		if lower(b[i]) != s[i] {
			return false
		}
	}
	return true
}

// unsafeString views b as a string for the duration of a parse call. The
// result must not outlive b.
func unsafeString(b []byte) string {
	return unsafe.String(unsafe.SliceData(b), len(b))
}
