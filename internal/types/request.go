package types

import (
	"github.com/go-playground/validator/v10"
)

// SearchRequest represents the request body for /search.
type SearchRequest struct {
	Title string `json:"title" validate:"required,min=1,max=200"`
	Year  string `json:"year,omitempty" validate:"max=8"`
}

// SearchResponse is returned by /search.
type SearchResponse struct {
	Query   Query       `json:"query"`
	Count   int         `json:"count"`
	Results []Candidate `json:"results"`
}

// Validate validates the SearchRequest using the validator.
func (r *SearchRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Query converts the request into a pipeline query.
func (r *SearchRequest) Query() Query {
	return NewQuery(r.Title, r.Year)
}
