package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/markdave123-py/kodeks/internal/logger"
	"github.com/markdave123-py/kodeks/internal/services"
)

type ArticleReader interface {
	Article(ctx context.Context, req services.ContextRequest) (*services.ContextResponse, error)
}

type ContextHandler struct {
	articles ArticleReader
	log      *logger.Logger
}

func NewContextHandler(articles ArticleReader, log *logger.Logger) *ContextHandler {
	return &ContextHandler{articles: articles, log: log}
}

// Context handles POST /api/context.
func (h *ContextHandler) Context(w http.ResponseWriter, r *http.Request) {
	var req services.ContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}

	resp, err := h.articles.Article(r.Context(), req)
	switch {
	case errors.Is(err, services.ErrMissingArticle):
		writeError(w, http.StatusBadRequest, "act and article are required", nil)
		return
	case err != nil:
		h.log.Error("context lookup failed", "act", req.Act, "article", req.Article, "error", err)
		writeError(w, http.StatusInternalServerError, "context lookup failed", nil)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
