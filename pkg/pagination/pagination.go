package pagination

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
)

const (
	DefaultPage    = 1
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// ErrInvalidParams is returned for non-numeric or non-positive page values.
var ErrInvalidParams = errors.New("invalid pagination parameters")

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"perPage"`
	Offset  int `json:"-"`
}

// DefaultParams returns the catalog pagination defaults.
func DefaultParams() Params {
	return Params{
		Page:    DefaultPage,
		PerPage: DefaultPerPage,
		Offset:  0,
	}
}

// New validates page/perPage and computes the offset. perPage above
// MaxPerPage is clamped.
func New(page, perPage int) (Params, error) {
	if page <= 0 {
		return Params{}, fmt.Errorf("%w: page must be a positive integer", ErrInvalidParams)
	}
	if perPage <= 0 {
		return Params{}, fmt.Errorf("%w: perPage must be a positive integer", ErrInvalidParams)
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	if page-1 > math.MaxInt/perPage {
		return Params{}, fmt.Errorf("%w: page is out of range", ErrInvalidParams)
	}
	return Params{Page: page, PerPage: perPage, Offset: (page - 1) * perPage}, nil
}

// FromRequest extracts page and perPage from the query string. Absent values
// take the defaults; present but malformed values are an error.
func FromRequest(r *http.Request) (Params, error) {
	q := r.URL.Query()
	defaults := DefaultParams()
	page, perPage := defaults.Page, defaults.PerPage

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Params{}, fmt.Errorf("%w: page must be a positive integer", ErrInvalidParams)
		}
		page = n
	}

	if v := q.Get("perPage"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Params{}, fmt.Errorf("%w: perPage must be a positive integer", ErrInvalidParams)
		}
		perPage = n
	}

	return New(page, perPage)
}

// Result wraps a paginated response.
type Result[T any] struct {
	Data       []T  `json:"data"`
	TotalCount int  `json:"total"`
	Page       int  `json:"page"`
	PerPage    int  `json:"perPage"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NewResult creates a paginated result.
func NewResult[T any](data []T, totalCount int, params Params) Result[T] {
	totalPages := totalCount / params.PerPage
	if totalCount%params.PerPage > 0 {
		totalPages++
	}

	return Result[T]{
		Data:       data,
		TotalCount: totalCount,
		Page:       params.Page,
		PerPage:    params.PerPage,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1,
	}
}
