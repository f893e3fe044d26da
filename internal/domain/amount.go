package domain

import (
	"fmt"

	"github.com/alvarodelaflor/loan/pkg/currencypkg"
	"github.com/shopspring/decimal"
)

// Amount is a positive monetary value with a fixed scale of 2,
// rounded half to even, plus its currency code.
type Amount struct {
	Value    decimal.Decimal `json:"value"`
	Currency string          `json:"currency"`
}

// NewAmount validates the given value and currency and returns the
// amount rounded to 2 decimal places using banker's rounding.
func NewAmount(value decimal.Decimal, currency string) (Amount, error) {
	if !value.IsPositive() {
		return Amount{}, fmt.Errorf("%w: the amount must be positive", ErrInvalidData)
	}

	if currency == "" {
		return Amount{}, fmt.Errorf("%w: currency is mandatory", ErrInvalidData)
	}

	if !currencypkg.IsSupportedCurrency(currency) {
		return Amount{}, fmt.Errorf("%w: currency %q is not supported", ErrInvalidData, currency)
	}

	return Amount{
		Value:    value.RoundBank(2),
		Currency: currency,
	}, nil
}

// NewAmountFromString parses the decimal value and delegates to NewAmount.
func NewAmountFromString(value, currency string) (Amount, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: amount %q is not a valid decimal", ErrInvalidData, value)
	}

	return NewAmount(d, currency)
}
