package loandelivery

import (
	"github.com/alvarodelaflor/loan/internal/domain"
	"github.com/alvarodelaflor/loan/pkg/currencypkg"
	"github.com/go-playground/validator/v10"
)

// ValidCurrency validates whether the currency is supported.
var ValidCurrency validator.Func = func(fl validator.FieldLevel) bool {
	if c, ok := fl.Field().Interface().(string); ok {
		return currencypkg.IsSupportedCurrency(c)
	}
	return false
}

// ValidIdentity validates whether the value is a well-formed DNI/NIE
// with a correct control letter.
var ValidIdentity validator.Func = func(fl validator.FieldLevel) bool {
	if v, ok := fl.Field().Interface().(string); ok {
		_, err := domain.NewIdentity(v)
		return err == nil
	}
	return false
}
