package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- AppError ---

func TestAppError_Error_WithWrapped(t *testing.T) {
	err := &AppError{Code: "NOT_FOUND", Message: "product missing", Err: ErrNotFound}
	assert.Equal(t, "NOT_FOUND: product missing: resource not found", err.Error())
}

func TestAppError_Error_WithoutWrapped(t *testing.T) {
	err := &AppError{Code: "INVALID_INPUT", Message: "bad"}
	assert.Equal(t, "INVALID_INPUT: bad", err.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	err := NotFound("product", "7")
	assert.True(t, errors.Is(err, ErrNotFound))
}

// --- Constructors ---

func TestNotFound(t *testing.T) {
	err := NotFound("product", "42")
	require.NotNil(t, err)
	assert.Equal(t, "NOT_FOUND", err.Code)
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.Contains(t, err.Message, "42")
}

func TestNotFoundBy(t *testing.T) {
	err := NotFoundBy("category", "slug", "shoes")
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.Contains(t, err.Message, `"shoes"`)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestAlreadyExists(t *testing.T) {
	err := AlreadyExists("product", "slug", "red-shirt")
	assert.Equal(t, "ALREADY_EXISTS", err.Code)
	assert.Equal(t, http.StatusConflict, err.Status)
	assert.True(t, errors.Is(err, ErrAlreadyExists))
}

func TestInvalidInput(t *testing.T) {
	err := InvalidInput("title is required")
	assert.Equal(t, "INVALID_INPUT", err.Code)
	assert.Equal(t, "title is required", err.Message)
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestUnresolvedAssociation(t *testing.T) {
	err := UnresolvedAssociation("category", []int64{9, 11})
	assert.Equal(t, http.StatusUnprocessableEntity, err.Status)
	assert.Contains(t, err.Message, "[9 11]")
	assert.True(t, errors.Is(err, ErrUnresolvedAssociation))
}

func TestUnavailable(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	err := Unavailable("search index", cause)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", err.Code)
	assert.Equal(t, http.StatusServiceUnavailable, err.Status)
	assert.True(t, errors.Is(err, ErrServiceUnavail))
	assert.Contains(t, err.Error(), "refused")
}

func TestUnavailable_NilCause(t *testing.T) {
	err := Unavailable("search index", nil)
	assert.True(t, errors.Is(err, ErrServiceUnavail))
}

func TestInternal(t *testing.T) {
	err := Internal(fmt.Errorf("segfault"))
	assert.Equal(t, "INTERNAL_ERROR", err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Contains(t, err.Error(), "segfault")
}

// --- Wrap ---

func TestWrap(t *testing.T) {
	wrapped := Wrap(ErrNotFound, "get product")
	assert.Contains(t, wrapped.Error(), "get product")
	assert.True(t, errors.Is(wrapped, ErrNotFound))
}

// --- HTTPStatus ---

func TestHTTPStatus_AppError(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("product", "1")))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(fmt.Errorf("search: %w", Unavailable("es", nil))))
}

func TestHTTPStatus_SentinelErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrAlreadyExists, http.StatusConflict},
		{ErrConflict, http.StatusConflict},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrUnresolvedAssociation, http.StatusUnprocessableEntity},
		{ErrServiceUnavail, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestHTTPStatus_WrappedSentinel(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(fmt.Errorf("outer: %w", ErrNotFound)))
}

func TestHTTPStatus_UnknownError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(fmt.Errorf("unknown")))
}
