package domain

import "math"

// Cents is a money amount in minor units (USD cents). All internal
// arithmetic happens on Cents; conversion to major units is confined to the
// storage and display boundary.
type Cents int64

func CentsFromDollars(dollars float64) Cents {
	return Cents(math.Round(dollars * 100))
}

func (c Cents) Dollars() float64 {
	return float64(c) / 100
}

// TaxOn computes a percentage tax expressed in basis points (800 = 8%).
func (c Cents) TaxOn(rateBps int64) Cents {
	return Cents(math.Round(float64(c) * float64(rateBps) / 10000))
}
