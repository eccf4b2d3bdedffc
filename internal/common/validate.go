package common

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct checks a request DTO against its `validate` tags and wraps
// the first failure in ErrValidation so handlers map it to a 400.
func ValidateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("field %s failed %s validation: %w", fe.Field(), fe.Tag(), ErrValidation)
	}
	return fmt.Errorf("%v: %w", err, ErrValidation)
}
