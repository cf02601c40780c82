package apperr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{NewValidation("bad input"), http.StatusBadRequest},
		{NewAuthentication("no token"), http.StatusUnauthorized},
		{NewAuthorization("forbidden"), http.StatusForbidden},
		{NewNotFound("missing"), http.StatusNotFound},
		{NewConflict("version mismatch"), http.StatusConflict},
		{NewGone("too old"), http.StatusGone},
		{NewRateLimited("slow down"), http.StatusTooManyRequests},
		{NewTimeout("took too long"), http.StatusRequestTimeout},
		{NewUnavailable("down", nil), http.StatusServiceUnavailable},
		{NewInternal("oops", nil), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.err.HTTPStatus(), tc.err.Kind)
	}
}

func TestWrapPreservesKind(t *testing.T) {
	original := NewConflict("ticket update conflict")
	wrapped := Wrap(original)
	assert.Same(t, original, wrapped)
}

func TestWrapDefaultsToInternal(t *testing.T) {
	plain := errors.New("boom")
	wrapped := Wrap(plain)
	assert.Equal(t, Internal, wrapped.Kind)
	assert.ErrorIs(t, wrapped.Unwrap(), plain)
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, NotFound, KindOf(NewNotFound("x")))
	assert.Equal(t, Internal, KindOf(errors.New("plain")))
}

func TestIsMatchesOnKindOnly(t *testing.T) {
	a := NewConflict("a")
	b := NewConflict("b")
	assert.True(t, a.Is(b))

	c := NewNotFound("c")
	assert.False(t, a.Is(c))
}

func TestValidationDetails(t *testing.T) {
	err := NewValidation("bad shape", FieldError{Field: "name", Message: "required"})
	assert.Len(t, err.Details, 1)
	assert.Equal(t, "name", err.Details[0].Field)
}
