package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/kodeks/internal/core"
	"github.com/markdave123-py/kodeks/internal/logger"
	"github.com/markdave123-py/kodeks/internal/models"
)

var ErrEmptyQuery = errors.New("query is required")

const searchLimit = 10

type SearchRequest struct {
	Query        string   `json:"query"`
	SelectedActs []string `json:"selectedActs"`
}

// SearchResult is one hit as shown to the user. Paragraph and Point are nil
// for status tags.
type SearchResult struct {
	ID             string  `json:"id"`
	Type           string  `json:"type"`
	Act            string  `json:"act"`
	Article        string  `json:"article"`
	Paragraph      *string `json:"paragraph"`
	Point          *string `json:"point"`
	Title          string  `json:"title"`
	Content        string  `json:"content"`
	TextClean      string  `json:"text_clean"`
	RelevanceScore float64 `json:"relevance_score"`
}

type SearchResponse struct {
	Cumulated []SearchResult `json:"cumulated"`
	Detailed  []SearchResult `json:"detailed"`
}

type SearchService struct {
	store    core.ActsStore
	embedder core.EmbeddingProvider
	vectors  *cache.Cache
	log      *logger.Logger
}

func NewSearchService(store core.ActsStore, embedder core.EmbeddingProvider, ttl time.Duration, log *logger.Logger) *SearchService {
	return &SearchService{
		store:    store,
		embedder: embedder,
		vectors:  cache.New(ttl, 2*ttl),
		log:      log,
	}
}

// Search embeds the query and runs the cumulated and single-row searches
// concurrently.
func (s *SearchService) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	vec, err := s.queryVector(ctx, query)
	if err != nil {
		return nil, err
	}

	var cumulated, single []models.SearchHit
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cumulated, err = s.store.SearchActs(gctx, models.SearchQuery{Vector: vec, Kind: models.HitCumulated, Acts: req.SelectedActs, Limit: searchLimit})
		return err
	})
	g.Go(func() error {
		var err error
		single, err = s.store.SearchActs(gctx, models.SearchQuery{Vector: vec, Kind: models.HitSingle, Acts: req.SelectedActs, Limit: searchLimit})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	s.log.Info("search done", "acts", req.SelectedActs, "cumulated", len(cumulated), "detailed", len(single))
	return &SearchResponse{Cumulated: toResults(cumulated), Detailed: toResults(single)}, nil
}

func (s *SearchService) queryVector(ctx context.Context, query string) ([]float32, error) {
	if v, ok := s.vectors.Get(query); ok {
		return v.([]float32), nil
	}
	vecs, err := s.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return nil, errors.New("embed query: empty response")
	}
	s.vectors.Set(query, vecs[0], cache.DefaultExpiration)
	return vecs[0], nil
}

func toResults(hits []models.SearchHit) []SearchResult {
	out := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		out = append(out, SearchResult{
			ID:             fmt.Sprint(h.ID),
			Type:           h.Kind,
			Act:            h.Act,
			Article:        h.ArtNo,
			Paragraph:      tagValue(h.ParNo),
			Point:          tagValue(h.PktNo),
			Title:          Title(h.Record),
			Content:        h.Text,
			TextClean:      h.TextClean,
			RelevanceScore: h.Similarity,
		})
	}
	return out
}

func tagValue(t models.Tag) *string {
	if !t.IsValue() {
		return nil
	}
	v := t.Value
	return &v
}

// Title renders "KPA Art. 20 § 1 pkt 2", leaving out status tags.
func Title(r models.Record) string {
	var parts []string
	if r.Act != "" {
		parts = append(parts, r.Act)
	}
	if r.ArtNo != "" {
		parts = append(parts, "Art. "+r.ArtNo)
	}
	if r.ParNo.IsValue() {
		parts = append(parts, "§ "+r.ParNo.Value)
	}
	if r.PktNo.IsValue() {
		parts = append(parts, "pkt "+r.PktNo.Value)
	}
	if len(parts) == 0 {
		return "Fragment aktu prawnego"
	}
	return strings.Join(parts, " ")
}
