package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var validationErr validator.ValidationErrors
	if errors.As(err, &validationErr) {
		firstErr := validationErr[0]
		field := strings.ToLower(firstErr.Field())
		switch firstErr.Tag() {
		case "required":
			return fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
		case "max":
			return fmt.Errorf("%w: %s must be at most %s characters", ErrInvalidInput, field, firstErr.Param())
		case "gte", "gt", "lte", "lt":
			return fmt.Errorf("%w: %s is out of range", ErrInvalidInput, field)
		case "email":
			return fmt.Errorf("%w: invalid email format", ErrInvalidInput)
		}
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}
