package apperror_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/jesser-selmi/idos-front/internal/shared/apperror"
	"github.com/stretchr/testify/assert"
)

func TestToHTTP(t *testing.T) {
	t.Run("app error keeps status and details", func(t *testing.T) {
		err := apperror.ErrForbidden.WithDetails(map[string]string{"role": "USER"})

		got := apperror.ToHTTP(fmt.Errorf("wrapped: %w", err))

		assert.Equal(t, http.StatusForbidden, got.Status)
		assert.Equal(t, apperror.CodeForbidden, got.Code)
		assert.Equal(t, map[string]string{"role": "USER"}, got.Details)
	})

	t.Run("deadline maps to unavailable", func(t *testing.T) {
		got := apperror.ToHTTP(context.DeadlineExceeded)

		assert.Equal(t, http.StatusServiceUnavailable, got.Status)
		assert.Equal(t, apperror.CodeServiceUnavailable, got.Code)
	})

	t.Run("unknown error is hidden", func(t *testing.T) {
		got := apperror.ToHTTP(errors.New("pq: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, got.Status)
		assert.Equal(t, "Internal server error", got.Message)
	})
}

func TestAppError_IsMatchesCopies(t *testing.T) {
	withDetails := apperror.ErrNotFound.WithDetails("x")

	assert.True(t, errors.Is(withDetails, apperror.ErrNotFound))
	assert.False(t, errors.Is(withDetails, apperror.ErrForbidden))
}

func TestMapValidationError(t *testing.T) {
	type payload struct {
		FirstName string `validate:"required"`
		Email     string `validate:"required,email"`
	}

	v := validator.New()
	err := v.Struct(payload{Email: "nope"})

	got := apperror.MapValidationError(err)

	assert.Equal(t, apperror.CodeInvalidInput, got.Code)
	assert.Equal(t, "Firstname is required", got.Message)
	details, ok := got.Details.(map[string]string)
	assert.True(t, ok)
	assert.Equal(t, "email", details["Email"])
}
