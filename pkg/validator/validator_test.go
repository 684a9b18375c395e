package validator

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/catalog/pkg/errors"
)

type productInput struct {
	Title       string  `json:"title" validate:"required,notblank,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=10000"`
	CategoryIDs []int64 `json:"categoryIds,omitempty" validate:"omitempty,max=100,unique,dive,gt=0"`
}

type updateInput struct {
	Title *string `json:"title,omitempty" validate:"omitempty,notblank"`
}

func ptr[T any](v T) *T { return &v }

func TestValidate_Success(t *testing.T) {
	err := Validate(&productInput{Title: "Trail Runner 3000", CategoryIDs: []int64{1, 2}})
	assert.NoError(t, err)
}

func TestValidate_MissingTitle_UsesJSONName(t *testing.T) {
	err := Validate(&productInput{})
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "is required", ve.Fields()["title"])
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestValidate_BlankTitle(t *testing.T) {
	err := Validate(&productInput{Title: "   "})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "must not be blank", ve.Fields()["title"])
}

func TestValidate_BlankPointer(t *testing.T) {
	assert.NoError(t, Validate(&updateInput{}))
	assert.Error(t, Validate(&updateInput{Title: ptr("  ")}))
	assert.NoError(t, Validate(&updateInput{Title: ptr("New")}))
}

func TestValidate_CategoryIDs(t *testing.T) {
	err := Validate(&productInput{Title: "x", CategoryIDs: []int64{1, 0}})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "must be greater than 0", ve.Fields()["categoryIds[1]"])

	err = Validate(&productInput{Title: "x", CategoryIDs: []int64{3, 3}})
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "must not contain duplicates", ve.Fields()["categoryIds"])
}

func TestValidate_MaxLength(t *testing.T) {
	err := Validate(&productInput{Title: strings.Repeat("a", 256)})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "must be at most 255 characters", ve.Fields()["title"])
	assert.Contains(t, ve.Error(), "field 'title'")
}

func TestDecodeAndValidate_Success(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"Outdoor Gear"}`))
	var in productInput
	require.NoError(t, DecodeAndValidate(r, &in))
	assert.Equal(t, "Outdoor Gear", in.Title)
}

func TestDecodeAndValidate_InvalidJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":`))
	var in productInput
	err := DecodeAndValidate(r, &in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.Contains(t, err.Error(), "decode request body")
}

func TestDecodeAndValidate_UnknownField(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"x","price":3}`))
	var in productInput
	assert.True(t, errors.Is(DecodeAndValidate(r, &in), apperrors.ErrInvalidInput))
}

func TestDecodeAndValidate_ValidationFails(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":""}`))
	var in productInput
	var ve *ValidationError
	assert.True(t, errors.As(DecodeAndValidate(r, &in), &ve))
}
