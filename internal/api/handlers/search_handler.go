package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/markdave123-py/kodeks/internal/logger"
	"github.com/markdave123-py/kodeks/internal/services"
)

type Searcher interface {
	Search(ctx context.Context, req services.SearchRequest) (*services.SearchResponse, error)
}

type SearchHandler struct {
	search Searcher
	log    *logger.Logger
}

func NewSearchHandler(search Searcher, log *logger.Logger) *SearchHandler {
	return &SearchHandler{search: search, log: log}
}

// Search handles POST /api/acts-search.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req services.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}

	resp, err := h.search.Search(r.Context(), req)
	switch {
	case errors.Is(err, services.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "query is required", nil)
		return
	case err != nil:
		h.log.Error("search failed", "query", req.Query, "error", err)
		writeError(w, http.StatusInternalServerError, "search failed", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
