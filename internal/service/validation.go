package service

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/Yoseph1994/adventurehub/internal/apperr"
	"github.com/Yoseph1994/adventurehub/internal/utils"
)

// ValidateStringEquals fails unless the value equals str.
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// strongPassword rejects passwords that lack a lowercase letter, an
// uppercase letter, a digit or a symbol.
var strongPassword = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if s != "" && !utils.StrongPassword(s) {
		return errors.New("must be at least 8 characters with upper and lower case letters, a digit and a symbol")
	}
	return nil
})

// invalid converts an ozzo validation failure into a Validation error whose
// message lists the offending fields.
func invalid(err error) error {
	if err == nil {
		return nil
	}
	return apperr.Validation("Invalid input data. "+err.Error(), err)
}
