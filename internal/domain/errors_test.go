package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	err := NotFound("user with id=%d not found", 7)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "user with id=7 not found", err.Error())

	wrapped := fmt.Errorf("get user: %w", err)
	assert.True(t, errors.Is(wrapped, ErrNotFound))

	assert.Equal(t, "Unknown state: FOO", UnknownState("FOO").Error())
	assert.True(t, errors.Is(InUse("user with id=%d still has items", 3), ErrInUse))
}

func TestFieldErrors(t *testing.T) {
	err := &Error{Kind: ErrValidation, Message: "bad", Fields: []FieldError{{Field: "name", Message: "must not be blank"}}}
	assert.Len(t, FieldErrors(fmt.Errorf("wrap: %w", err)), 1)
	assert.Nil(t, FieldErrors(errors.New("plain")))
}
