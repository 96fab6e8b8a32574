package api

import (
	"github.com/go-playground/validator/v10"

	"github.com/clinichq/billing-engine/billing"
	"github.com/clinichq/billing-engine/claims"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("currency", validateCurrency)
	validate.RegisterValidation("claim_type", validateClaimType)
	validate.RegisterValidation("invoice_status", validateInvoiceStatus)
}

func validateCurrency(fl validator.FieldLevel) bool {
	return billing.Currency(fl.Field().String()).Valid()
}

func validateClaimType(fl validator.FieldLevel) bool {
	return claims.Type(fl.Field().String()).Valid()
}

func validateInvoiceStatus(fl validator.FieldLevel) bool {
	return billing.InvoiceStatus(fl.Field().String()).Valid()
}
