package money

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidRate = errors.New("money: invalid percentage")

const basisPointsPerWhole = 10000

// Rate is a percentage stored in basis points: 10% is Rate(1000).
type Rate int64

// Percent builds a Rate from a whole percentage.
func Percent(p int64) Rate {
	return Rate(p * 100)
}

// ParseRate reads a percentage with at most two fractional digits ("10", "7.5").
func ParseRate(value string) (Rate, error) {
	value = strings.TrimSuffix(strings.TrimSpace(value), "%")
	whole, frac, _ := strings.Cut(value, ".")
	if whole == "" || len(frac) > 2 {
		return 0, ErrInvalidRate
	}
	for len(frac) < 2 {
		frac += "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, ErrInvalidRate
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, ErrInvalidRate
	}
	r := Rate(w*100 + f)
	if err := r.Validate(); err != nil {
		return 0, err
	}
	return r, nil
}

// Validate keeps rates within 0..100%.
func (r Rate) Validate() error {
	if r < 0 || r > basisPointsPerWhole {
		return ErrInvalidRate
	}
	return nil
}

func (r Rate) String() string {
	return fmt.Sprintf("%d.%02d%%", int64(r)/100, int64(r)%100)
}
