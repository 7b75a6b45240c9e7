package photo

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrMalformedCoordinate is returned for GPS values that cannot be converted.
var ErrMalformedCoordinate = errors.New("malformed GPS coordinate")

// Rational is an EXIF RATIONAL value.
type Rational struct {
	Num int64
	Den int64
}

// Float returns the value as a float64. It fails on a zero denominator.
func (r Rational) Float() (float64, error) {
	if r.Den == 0 {
		return 0, fmt.Errorf("%w: zero denominator in %d/%d", ErrMalformedCoordinate, r.Num, r.Den)
	}
	return float64(r.Num) / float64(r.Den), nil
}

// DMSToDecimal converts a degrees/minutes/seconds triple to signed decimal
// degrees rounded to 4 places. The result is negative for the S and W
// hemisphere references.
func DMSToDecimal(dms [3]Rational, ref string) (float64, error) {
	var parts [3]float64
	for i, r := range dms {
		v, err := r.Float()
		if err != nil {
			return 0, err
		}
		parts[i] = v
	}

	decimal := round4(parts[0] + parts[1]/60.0 + parts[2]/3600.0)
	if isNegativeRef(ref) {
		decimal = -decimal
	}
	return decimal, nil
}

func isNegativeRef(ref string) bool {
	switch strings.ToUpper(strings.TrimSpace(ref)) {
	case "S", "W":
		return true
	}
	return false
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
