package query

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"keepa-tools/internal/model"
)

// Units tells whether a Money amount is in major or minor currency units.
type Units int

const (
	MinorUnits Units = iota
	MajorUnits
)

var hundred = decimal.NewFromInt(100)

// Money is a currency amount as supplied by a caller.
type Money struct {
	Amount decimal.Decimal
	Units  Units
}

// Cents builds a minor-unit amount.
func Cents(v int64) *Money {
	return &Money{Amount: decimal.NewFromInt(v), Units: MinorUnits}
}

// Major builds a major-unit amount.
func Major(d decimal.Decimal) *Money {
	return &Money{Amount: d, Units: MajorUnits}
}

// MinorUnits converts m to the provider's integer minor units. Minor-unit
// amounts pass through unchanged.
func (m Money) MinorUnits() (int, error) {
	if m.Amount.IsNegative() {
		return 0, &model.ValidationError{Field: "price", Reason: "must not be negative"}
	}
	amount := m.Amount
	if m.Units == MajorUnits {
		amount = amount.Mul(hundred)
	}
	if !amount.Equal(amount.Round(0)) {
		return 0, &model.ValidationError{Field: "price", Reason: fmt.Sprintf("%s is finer than one minor unit", m.Amount.String())}
	}
	if amount.GreaterThan(decimal.NewFromInt(math.MaxInt32)) {
		return 0, &model.ValidationError{Field: "price", Reason: "out of range"}
	}
	return int(amount.IntPart()), nil
}

// RatingToWire converts 1-5 stars to the provider's 0-50 integer scale.
func RatingToWire(stars float64) (int, error) {
	if math.IsNaN(stars) || stars < 1 || stars > 5 {
		return 0, &model.ValidationError{Field: "rating", Reason: fmt.Sprintf("must be within 1-5, got %v", stars)}
	}
	return int(math.Round(stars * model.RatingScale)), nil
}

// IntRange is an optional inclusive bound pair.
type IntRange struct {
	Min *int
	Max *int
}

func (r IntRange) validate(field string, lo, hi int) error {
	for _, v := range []*int{r.Min, r.Max} {
		if v != nil && (*v < lo || *v > hi) {
			return &model.ValidationError{Field: field, Reason: fmt.Sprintf("must be within %d-%d, got %d", lo, hi, *v)}
		}
	}
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		return &model.ValidationError{Field: field, Reason: "min exceeds max"}
	}
	return nil
}

// PriceRange is an optional inclusive price window.
type PriceRange struct {
	Min *Money
	Max *Money
}

func (r PriceRange) minor() (lo, hi *int, err error) {
	if r.Min != nil {
		v, err := r.Min.MinorUnits()
		if err != nil {
			return nil, nil, err
		}
		lo = &v
	}
	if r.Max != nil {
		v, err := r.Max.MinorUnits()
		if err != nil {
			return nil, nil, err
		}
		hi = &v
	}
	if lo != nil && hi != nil && *lo > *hi {
		return nil, nil, &model.ValidationError{Field: "price", Reason: "min exceeds max"}
	}
	return lo, hi, nil
}

// Int is a convenience for optional integer fields.
func Int(v int) *int { return &v }
