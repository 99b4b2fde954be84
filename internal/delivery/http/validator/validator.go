// Package validator adapts go-playground/validator to echo's Validator hook.
package validator

import (
	validation "github.com/go-playground/validator/v10"
)

// CustomValidator wraps the go-playground validator for echo.
type CustomValidator struct {
	validator *validation.Validate
}

// New creates a new request validator.
func New() *CustomValidator {
	return &CustomValidator{validator: validation.New()}
}

// Validate validates the bound request struct against its tags.
func (v *CustomValidator) Validate(i any) error {
	return v.validator.Struct(i)
}
