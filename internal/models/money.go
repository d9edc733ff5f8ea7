package models

import "github.com/shopspring/decimal"

// Money is stored as NUMERIC(14,2)
const MoneyPlaces = 2

// Amounts must stay strictly below it
var MoneyLimit = decimal.New(1, 12)

// IsMoney reports whether amount is stored as is: whole cents within column range
func IsMoney(amount decimal.Decimal) bool {
	return amount.Equal(amount.Round(MoneyPlaces)) && amount.Abs().LessThan(MoneyLimit)
}
