package domain

import "github.com/shopspring/decimal"

// Tier describes a purchasable challenge size.
type Tier struct {
	Name         string
	Price        decimal.Decimal
	StartBalance decimal.Decimal
}
