// Package validator collects field-level input violations.
package validator

import (
	"regexp"
	"strings"

	"shareit/internal/domain"
)

var EmailRX = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)

type Validator struct {
	fields []domain.FieldError
}

func New() *Validator {
	return &Validator{}
}

// CheckField records message for field when ok is false.
// Only the first violation per field is kept.
func (v *Validator) CheckField(ok bool, field, message string) {
	if ok {
		return
	}
	for _, f := range v.fields {
		if f.Field == field {
			return
		}
	}
	v.fields = append(v.fields, domain.FieldError{Field: field, Message: message})
}

func (v *Validator) HasErrors() bool {
	return len(v.fields) > 0
}

// Err returns a validation error carrying all recorded fields, or nil.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return &domain.Error{
		Kind:    domain.ErrValidation,
		Message: v.fields[0].Field + ": " + v.fields[0].Message,
		Fields:  v.fields,
	}
}

func NotBlank(s string) bool {
	return strings.TrimSpace(s) != ""
}

func Matches(s string, rx *regexp.Regexp) bool {
	return rx.MatchString(s)
}

func MaxChars(s string, n int) bool {
	return len([]rune(s)) <= n
}
