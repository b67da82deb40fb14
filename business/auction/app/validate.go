package app

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/fd1az/nft-auction/internal/apperror"
)

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// validationError reports the first failed field as InvalidInput.
func validationError(err error) error {
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		f := fields[0]
		return apperror.Validation(apperror.CodeInvalidInput, fmt.Sprintf("%s failed on %q", f.Field(), f.Tag()))
	}
	return apperror.Validation(apperror.CodeInvalidInput, err.Error())
}
