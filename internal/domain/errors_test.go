package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	v := &ValidationError{}
	assert.False(t, v.HasErrors())
	assert.NoError(t, v.OrNil())

	v.Add("title", "is required")
	v.Add("attendees_count", "must be at least 1")
	v.Add("title", "second message ignored")

	err := v.OrNil()
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "validation failed: attendees_count: must be at least 1; title: is required", err.Error())

	var target *ValidationError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &target))
	assert.Equal(t, "is required", target.FieldErrors["title"])
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{NewValidationError("date", "invalid"), KindValidation},
		{fmt.Errorf("create: %w", ErrConflict), KindConflict},
		{ErrCodeNotFound, KindNotFound},
		{ErrAlreadyCheckedIn, KindAlreadyInState},
		{ErrInvalidTransition, KindInvalidTransition},
		{Transient("get booking", errors.New("disk I/O error")), KindTransient},
		{ErrRateLimited, KindRateLimited},
		{errors.New("boom"), KindInternal},
		{nil, KindInternal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err), fmt.Sprint(tt.err))
	}
}

func TestCodeNotFoundMessage(t *testing.T) {
	assert.Equal(t, "invalid code or booking not found", ErrCodeNotFound.Error())
	assert.Equal(t, "already checked in", ErrAlreadyCheckedIn.Error())
	assert.True(t, errors.Is(ErrCodeNotFound, ErrNotFound))

	err := Describe(ErrConflict, "room is taken")
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, "room is taken", err.Error())
}
