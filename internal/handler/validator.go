package handler

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	customError "github.com/netzah/ledger-engine/pkg/errors"
	"github.com/netzah/ledger-engine/pkg/response"
)

// newValidator builds the request validator with the decimal comparison tags
// used on the DTOs (decimal_gt, decimal_gte).
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("decimal_gt", decimalGT)
	_ = v.RegisterValidation("decimal_gte", decimalGTE)
	return v
}

func decimalGT(fl validator.FieldLevel) bool {
	value, ok := fl.Field().Interface().(decimal.Decimal)
	if !ok {
		return false
	}
	baseline, err := decimal.NewFromString(fl.Param())
	if err != nil {
		return false
	}
	return value.GreaterThan(baseline)
}

func decimalGTE(fl validator.FieldLevel) bool {
	value, ok := fl.Field().Interface().(decimal.Decimal)
	if !ok {
		return false
	}
	baseline, err := decimal.NewFromString(fl.Param())
	if err != nil {
		return false
	}
	return value.GreaterThanOrEqual(baseline)
}

// respondError maps ledger errors onto HTTP statuses: not-found kinds to 404,
// rejected inputs to 400, everything else to 500.
func respondError(w http.ResponseWriter, err error) {
	if bizErr, ok := asBusinessError(err); ok {
		switch {
		case customError.IsNotFound(bizErr):
			response.ErrorWithCode(w, http.StatusNotFound, bizErr.Code, bizErr.Message, bizErr.Err)
		case customError.IsValidation(bizErr):
			response.ErrorWithCode(w, http.StatusBadRequest, bizErr.Code, bizErr.Message, bizErr.Err)
		default:
			log.Error().Err(bizErr).Msg("ledger operation failed")
			response.ErrorWithCode(w, http.StatusInternalServerError, bizErr.Code, bizErr.Message, nil)
		}
		return
	}

	log.Error().Err(err).Msg("unexpected error")
	response.InternalServerError(w, "unexpected error", err)
}

func asBusinessError(err error) (*customError.BusinessError, bool) {
	var bizErr *customError.BusinessError
	if errors.As(err, &bizErr) {
		return bizErr, true
	}
	return nil, false
}
