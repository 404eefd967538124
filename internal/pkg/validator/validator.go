package validator

import (
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks the struct's validate tags.
func Validate(s interface{}) error {
	return validate.Struct(s)
}

// Var checks a single value against a tag expression.
func Var(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
