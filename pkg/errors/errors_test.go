package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{NotFound("patient chain"), http.StatusNotFound},
		{BadRequest("bad input", nil), http.StatusBadRequest},
		{Unauthorized("no"), http.StatusForbidden},
		{MissingSignature("unsigned"), http.StatusUnprocessableEntity},
		// State conflicts share 409: the request was well-formed but collides
		// with what the ledger or dispatch board already holds.
		{BloodTypeConflict("A+", "O-"), http.StatusConflict},
		{InvalidTransition("completed", ""), http.StatusConflict},
		{Internal(fmt.Errorf("boom")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.StatusCode(), tt.err.Kind())
	}
}

func TestKindAndIs(t *testing.T) {
	err := BloodTypeConflict("A+", "O-")
	assert.Equal(t, "BloodTypeConflict", err.Kind())
	assert.True(t, Is(err, ErrBloodTypeConflict))
	assert.False(t, Is(err, ErrInvalidTransition))

	wrapped := fmt.Errorf("append failed: %w", err)
	assert.True(t, Is(wrapped, ErrBloodTypeConflict))
	assert.Equal(t, ErrInternal, CodeOf(fmt.Errorf("plain")))
}
