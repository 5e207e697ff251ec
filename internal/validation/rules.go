// Package validation provides custom validation rules for the application.
package validation

import (
	apperrors "github.com/allisson/vaultadmin/internal/errors"
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}
