package server

import (
	"encoding/json"
	"net/http"

	"github.com/jonathan/filmfinder/internal/pipeline"
	"github.com/jonathan/filmfinder/internal/types"
)

// maxBodyBytes bounds search request bodies.
const maxBodyBytes = 1 << 16

// maxTokenLength bounds the ?token= override on film details.
const maxTokenLength = 32

// decodeSearchRequest reads and validates a JSON search body.
func decodeSearchRequest(w http.ResponseWriter, r *http.Request) (*types.SearchRequest, error) {
	var req types.SearchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		return nil, &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	if err := req.Validate(); err != nil {
		return nil, validationError(err)
	}
	return &req, nil
}

// handleSearch resolves a title from a JSON body
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSearchRequest(w, r)
	if err != nil {
		s.errorFor(w, r, err)
		return
	}
	s.search(w, r, req)
}

// handleSearchQuery resolves a title from query parameters
func (s *Server) handleSearchQuery(w http.ResponseWriter, r *http.Request) {
	req := &types.SearchRequest{
		Title: r.URL.Query().Get("title"),
		Year:  r.URL.Query().Get("year"),
	}
	if err := req.Validate(); err != nil {
		s.errorFor(w, r, validationError(err))
		return
	}
	s.search(w, r, req)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, req *types.SearchRequest) {
	q := req.Query()
	s.requestLogger(r).Info("search", "title", q.Title, "year", q.Year)

	results := s.resolver.RunWithProgress(r.Context(), q, nil)
	s.jsonResponse(w, http.StatusOK, types.SearchResponse{
		Query:   q,
		Count:   len(results),
		Results: results,
	})
}

// handleSearchStream resolves a title and streams stage changes via SSE
func (s *Server) handleSearchStream(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSearchRequest(w, r)
	if err != nil {
		s.errorFor(w, r, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger := s.requestLogger(r)
	q := req.Query()
	logger.Info("streaming search", "title", q.Title, "year", q.Year)

	results := s.resolver.RunWithProgress(r.Context(), q, func(event pipeline.Event) {
		if err := sse.WriteEvent(EventStage, event); err != nil {
			logger.Warn("failed to write SSE event", "error", err)
		}
	})

	if r.Context().Err() != nil {
		logger.Info("client went away during search", "title", q.Title)
		return
	}

	if err := sse.WriteEvent(EventResults, types.SearchResponse{
		Query:   q,
		Count:   len(results),
		Results: results,
	}); err != nil {
		logger.Warn("failed to write SSE results", "error", err)
		return
	}

	status := string(pipeline.StageRanked)
	if len(results) == 0 {
		status = string(pipeline.StageEmpty)
	}
	sse.WriteComplete(status, len(results))
}

// handleFilm returns the detail view of a catalog item
func (s *Server) handleFilm(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("itemid")
	token := r.URL.Query().Get("token")
	if len(token) > maxTokenLength {
		s.errorFor(w, r, &ErrValidation{Field: "token", Message: "must be at most 32 characters"})
		return
	}

	details, err := s.films.Details(r.Context(), itemID, token)
	if err != nil {
		s.errorFor(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, details)
}
