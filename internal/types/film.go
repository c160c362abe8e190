// Package types provides type definitions for structured data used throughout the filmfinder system.
package types

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Query is the user's search input. Year is 0 when no year was supplied.
type Query struct {
	Title string `json:"title"`
	Year  int    `json:"year,omitempty"`
}

// NewQuery builds a Query from raw form values. Year strings that are not
// made up solely of digits are treated as "no year supplied".
func NewQuery(title, year string) Query {
	q := Query{Title: strings.TrimSpace(title)}
	year = strings.TrimSpace(year)
	if year == "" || strings.TrimLeft(year, "0123456789") != "" {
		return q
	}
	if y, err := strconv.Atoi(year); err == nil && y > 0 {
		q.Year = y
	}
	return q
}

// HasYear reports whether the query carries a release year.
func (q Query) HasYear() bool {
	return q.Year > 0
}

// RawCandidate is a single catalog search hit.
type RawCandidate struct {
	Title  string `json:"title"` // display title, may end in "(YYYY)"
	URL    string `json:"url"`
	ItemID string `json:"item_id"`
}

// Candidate is a catalog hit enriched by the resolution pipeline.
type Candidate struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	ItemID        string  `json:"item_id"`
	OriginalTitle string  `json:"original_title,omitempty"`
	Year          int     `json:"year,omitempty"`
	Score         float64 `json:"score"`
	YearDistance  float64 `json:"-"` // +Inf when either year is unknown
	PosterURL     string  `json:"poster_url,omitempty"`
}

// NewCandidate promotes a raw hit. The year distance starts out unknown.
func NewCandidate(raw RawCandidate) Candidate {
	return Candidate{
		Title:        raw.Title,
		URL:          raw.URL,
		ItemID:       raw.ItemID,
		YearDistance: math.Inf(1),
	}
}

// SearchTitle is the title used when searching secondary sources: the
// original title when known, otherwise the catalog title.
func (c Candidate) SearchTitle() string {
	if c.OriginalTitle != "" {
		return c.OriginalTitle
	}
	return c.Title
}

// MarshalJSON renders an unknown year distance as null.
func (c Candidate) MarshalJSON() ([]byte, error) {
	type alias Candidate
	var yearDiff *float64
	if !math.IsInf(c.YearDistance, 0) && !math.IsNaN(c.YearDistance) {
		d := c.YearDistance
		yearDiff = &d
	}
	return json.Marshal(struct {
		alias
		YearDiff *float64 `json:"year_diff"`
	}{alias: alias(c), YearDiff: yearDiff})
}

// FilmDetails is the detail view of a single catalog item.
type FilmDetails struct {
	ItemID       string `json:"item_id"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	Token        string `json:"token"`
	DCPAvailable bool   `json:"dcp_available"`
}
