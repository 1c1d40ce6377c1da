package errprocess

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapMatchesKindAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(ErrTransient, "message.create", cause)

	assert.True(t, errors.Is(err, ErrTransient))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrForbidden))
	assert.Equal(t, "message.create: temporarily unavailable: connection reset", err.Error())
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "noop", nil))
}

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"invalid", New(ErrInvalidInput, "op", "empty"), CodeInvalidRequest},
		{"forbidden", Wrap(ErrForbidden, "op", nil), CodeForbidden},
		{"not found", Wrap(ErrNotFound, "op", nil), CodeNotFound},
		{"transient", Wrap(ErrTransient, "op", errors.New("x")), CodeUnavailable},
		{"external", Wrap(ErrExternal, "op", errors.New("x")), CodeExternalFailure},
		{"rate", Wrap(ErrRateLimited, "op", nil), CodeRateLimited},
		{"plain", errors.New("boom"), CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Code(tt.err))
		})
	}
}
