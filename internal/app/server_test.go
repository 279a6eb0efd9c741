package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/markdave123-py/kodeks/internal/config"
	"github.com/markdave123-py/kodeks/internal/logger"
	"github.com/markdave123-py/kodeks/internal/services"
)

type stubSearch struct{}

func (stubSearch) Search(ctx context.Context, req services.SearchRequest) (*services.SearchResponse, error) {
	return &services.SearchResponse{Cumulated: []services.SearchResult{}, Detailed: []services.SearchResult{}}, nil
}

type stubArticles struct{}

func (stubArticles) Article(ctx context.Context, req services.ContextRequest) (*services.ContextResponse, error) {
	return &services.ContextResponse{}, nil
}

func TestRouter(t *testing.T) {
	cfg := &config.Config{CorsOrigins: []string{"http://localhost:3000"}}
	srv := httptest.NewServer(NewRouter(cfg, stubSearch{}, stubArticles{}, logger.Nop()))
	defer srv.Close()

	tests := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodPost, "/api/acts-search", `{"query":"x"}`, http.StatusOK},
		{http.MethodPost, "/api/context", `{"act":"KPA","article":"1"}`, http.StatusOK},
		{http.MethodGet, "/api/acts-search", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/unknown", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		req, _ := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", tt.method, tt.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, resp.StatusCode, tt.want)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	cfg := &config.Config{CorsOrigins: []string{"http://localhost:3000"}}
	h := NewRouter(cfg, stubSearch{}, stubArticles{}, logger.Nop())

	req := httptest.NewRequest(http.MethodOptions, "/api/acts-search", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestNeedsS3(t *testing.T) {
	if needsS3(&config.Config{Sources: []config.Source{{Act: "KPA", Path: "./KPA.json"}}}) {
		t.Error("local sources should not need s3")
	}
	if !needsS3(&config.Config{Sources: []config.Source{{Act: "KPA", Path: "s3://acts/KPA.json"}}}) {
		t.Error("s3 source should need s3")
	}
	if !needsS3(&config.Config{BackupBucket: "backups"}) {
		t.Error("backup bucket should need s3")
	}
}
