package common

import (
	"fmt"
	"unicode/utf8"
)

type ValidationError struct {
	Errors map[string]string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %+v", e.Errors)
}

// NewFieldError is a shortcut for a single-field validation error.
func NewFieldError(field, message string) ValidationError {
	return ValidationError{Errors: map[string]string{field: message}}
}

type Validator struct {
	Errors map[string]string
}

func NewValidator() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

func (v *Validator) AddError(field, message string) {
	if _, ok := v.Errors[field]; !ok {
		v.Errors[field] = message
	}
}

func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

func (v *Validator) CheckStringLength(s string, min, max int) bool {
	return len(s) >= min && len(s) <= max
}

// MaxChars counts characters rather than bytes, matching varchar(n) in postgres.
func (v *Validator) MaxChars(s string, max int) bool {
	return utf8.RuneCountInString(s) <= max
}

func (v *Validator) ValidationError() error {
	return ValidationError{Errors: v.Errors}
}
