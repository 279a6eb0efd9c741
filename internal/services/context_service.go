package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/markdave123-py/kodeks/internal/core"
	"github.com/markdave123-py/kodeks/internal/logger"
	"github.com/markdave123-py/kodeks/internal/models"
)

var ErrMissingArticle = errors.New("act and article are required")

type ContextRequest struct {
	Act       string `json:"act"`
	Article   string `json:"article"`
	Paragraph string `json:"paragraph"`
	Point     string `json:"point"`
}

// ContextResponse holds a whole article. With no highlight the article
// heading is meant; with only a paragraph the paragraph and its points.
type ContextResponse struct {
	Fragments          []models.Record `json:"fragments"`
	HighlightParagraph *string         `json:"highlightParagraph"`
	HighlightPoint     *string         `json:"highlightPoint"`
}

type ContextService struct {
	store core.ActsStore
	log   *logger.Logger
}

func NewContextService(store core.ActsStore, log *logger.Logger) *ContextService {
	return &ContextService{store: store, log: log}
}

func (s *ContextService) Article(ctx context.Context, req ContextRequest) (*ContextResponse, error) {
	if req.Act == "" || req.Article == "" {
		return nil, ErrMissingArticle
	}
	frags, err := s.store.GetArticleFragments(ctx, req.Act, req.Article)
	if err != nil {
		return nil, fmt.Errorf("article %s %s: %w", req.Act, req.Article, err)
	}
	if frags == nil {
		frags = []models.Record{}
	}

	resp := &ContextResponse{Fragments: frags}
	resp.HighlightParagraph, resp.HighlightPoint = Highlight(frags, req.Paragraph, req.Point)

	s.log.Debug("article context", "act", req.Act, "article", req.Article,
		"fragments", len(frags), "paragraph", deref(resp.HighlightParagraph), "point", deref(resp.HighlightPoint))
	return resp, nil
}

// Highlight finds the stored paragraph matching paragraph, ignoring
// parentheses, and then the point within it. Values are returned as stored.
func Highlight(frags []models.Record, paragraph, point string) (*string, *string) {
	if paragraph == "" {
		return nil, nil
	}
	want := stripParens(paragraph)

	var par *string
	for _, f := range frags {
		if f.ParNo.IsValue() && stripParens(f.ParNo.Value) == want {
			v := f.ParNo.Value
			par = &v
			break
		}
	}
	if par == nil || point == "" {
		return par, nil
	}
	for _, f := range frags {
		if f.ParNo.IsValue() && f.ParNo.Value == *par && f.PktNo.IsValue() && f.PktNo.Value == point {
			v := f.PktNo.Value
			return par, &v
		}
	}
	return par, nil
}

func stripParens(s string) string {
	return strings.NewReplacer("(", "", ")", "").Replace(s)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
