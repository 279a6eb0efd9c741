package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/markdave123-py/kodeks/internal/logger"
	"github.com/markdave123-py/kodeks/internal/models"
	"github.com/markdave123-py/kodeks/internal/services"
)

type fakeSearcher struct {
	got  services.SearchRequest
	resp *services.SearchResponse
	err  error
}

func (f *fakeSearcher) Search(ctx context.Context, req services.SearchRequest) (*services.SearchResponse, error) {
	f.got = req
	return f.resp, f.err
}

type fakeArticles struct {
	resp *services.ContextResponse
	err  error
}

func (f *fakeArticles) Article(ctx context.Context, req services.ContextRequest) (*services.ContextResponse, error) {
	return f.resp, f.err
}

func TestSearchHandler(t *testing.T) {
	par := "1"
	s := &fakeSearcher{resp: &services.SearchResponse{
		Cumulated: []services.SearchResult{{ID: "1", Type: "c", Act: "KPA", Article: "20"}},
		Detailed:  []services.SearchResult{{ID: "2", Type: "s", Act: "KPA", Article: "20", Paragraph: &par}},
	}}
	h := NewSearchHandler(s, logger.Nop())

	body := `{"query": "termin do wniesienia", "selectedActs": ["KPA", "KPC"]}`
	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodPost, "/api/acts-search", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if s.got.Query != "termin do wniesienia" || len(s.got.SelectedActs) != 2 {
		t.Errorf("request = %+v", s.got)
	}
	var out map[string][]map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out["cumulated"]) != 1 || out["detailed"][0]["paragraph"] != "1" || out["cumulated"][0]["paragraph"] != nil {
		t.Errorf("response = %v", out)
	}
}

func TestSearchHandlerErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"malformed body", `{`, nil, http.StatusBadRequest},
		{"empty query", `{"query": ""}`, services.ErrEmptyQuery, http.StatusBadRequest},
		{"backend failure", `{"query": "x"}`, errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSearchHandler(&fakeSearcher{err: tt.err}, logger.Nop())
			rec := httptest.NewRecorder()
			h.Search(rec, httptest.NewRequest(http.MethodPost, "/api/acts-search", strings.NewReader(tt.body)))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			var e errorBody
			if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil || e.Error == "" {
				t.Errorf("error body = %s", rec.Body)
			}
		})
	}
}

func TestContextHandler(t *testing.T) {
	par := "1"
	a := &fakeArticles{resp: &services.ContextResponse{
		Fragments: []models.Record{
			{ID: 1, Act: "KPA", ArtNo: "5", Text: "Art. 5."},
			{ID: 2, Act: "KPA", ArtNo: "5", ParNo: models.ValueTag("1"), Text: "§ 1."},
		},
		HighlightParagraph: &par,
	}}
	h := NewContextHandler(a, logger.Nop())

	rec := httptest.NewRecorder()
	h.Context(rec, httptest.NewRequest(http.MethodPost, "/api/context", strings.NewReader(`{"act":"KPA","article":"5","paragraph":"1"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var out struct {
		Fragments []struct {
			ParNo *string `json:"par_no"`
		} `json:"fragments"`
		HighlightParagraph *string `json:"highlightParagraph"`
		HighlightPoint     *string `json:"highlightPoint"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Fragments) != 2 || out.Fragments[0].ParNo != nil || *out.Fragments[1].ParNo != "1" {
		t.Errorf("fragments = %+v", out.Fragments)
	}
	if out.HighlightParagraph == nil || *out.HighlightParagraph != "1" || out.HighlightPoint != nil {
		t.Errorf("highlight = %v/%v", out.HighlightParagraph, out.HighlightPoint)
	}

	rec = httptest.NewRecorder()
	NewContextHandler(&fakeArticles{err: services.ErrMissingArticle}, logger.Nop()).
		Context(rec, httptest.NewRequest(http.MethodPost, "/api/context", strings.NewReader(`{"act":"KPA"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing article status = %d", rec.Code)
	}
}
