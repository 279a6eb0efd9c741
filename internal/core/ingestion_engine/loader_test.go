package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/markdave123-py/kodeks/internal/logger"
	"github.com/markdave123-py/kodeks/internal/models"
)

const kpaSource = `[
  {"art_no": "115", "art_index": "20", "par_no": "1", "par_index": null, "pkt_no": null, "text": "Art. 115(20). §1. Treść pierwsza."},
  {"art_no": 116, "art_index": "null", "par_no": "2", "par_index": "a", "pkt_no": 3, "text": "3) punkt trzeci"},
  {"art_no": null, "art_index": null, "par_no": null, "par_index": null, "pkt_no": null, "text": "bez artykułu"},
  {"art_no": "117", "art_index": "None", "par_no": null, "par_index": null, "pkt_no": null, "text": "Art. 117. (uchylony)"}
]`

func TestLoaderLoad(t *testing.T) {
	dir := t.TempDir()
	kpa := writeSource(t, dir, "KPA_articles.json", kpaSource)

	l := NewLoader(nil, logger.Nop())
	got, counts, err := l.Load(context.Background(), []SourceFile{
		{Statute: "KPA", Path: kpa},
		{Statute: "KPC", Path: filepath.Join(dir, "KPC_articles.json")},
	}, 0, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := []models.Fragment{
		{
			Statute: "KPA", Article: "115(20)", Paragraph: "1",
			RawText:       "Art. 115(20). §1. Treść pierwsza.",
			DisplayText:   "Art. 115(20). §1. Treść pierwsza.",
			EmbeddingText: "Treść pierwsza.",
			TokenEstimate: EstimateTokens("Treść pierwsza."),
		},
		{
			Statute: "KPA", Article: "116", Paragraph: "2(a)", Point: "3",
			RawText:       "3) punkt trzeci",
			DisplayText:   "3) punkt trzeci",
			EmbeddingText: "Punkt trzeci",
			TokenEstimate: EstimateTokens("Punkt trzeci"),
		},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d fragments, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fragment %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	if len(counts) != 2 {
		t.Fatalf("got %d counts, want 2", len(counts))
	}
	if c := counts[0]; c.Raw != 4 || c.Kept != 2 || c.Missing {
		t.Errorf("KPA count = %+v", c)
	}
	if c := counts[1]; !c.Missing {
		t.Errorf("KPC should be reported missing: %+v", c)
	}
}

func TestLoaderMalformedSourceIsFatal(t *testing.T) {
	dir := t.TempDir()
	bad := writeSource(t, dir, "bad.json", `[{"art_no": `)

	_, _, err := NewLoader(nil, logger.Nop()).Load(context.Background(), []SourceFile{{Statute: "KPA", Path: bad}}, 0, 0)
	var srcErr *SourceError
	if !errors.As(err, &srcErr) {
		t.Fatalf("want *SourceError, got %v", err)
	}
	if srcErr.Path != bad {
		t.Errorf("path = %q, want %q", srcErr.Path, bad)
	}
}

func TestLoaderObjectStorageSource(t *testing.T) {
	objs := newFakeObjects()
	objs.objects["acts/KPC_articles.json"] = []byte(`[{"art_no": "5", "text": "Art. 5. Sąd rozpoznaje sprawy."}]`)

	l := NewLoader(objs, logger.Nop())
	got, counts, err := l.Load(context.Background(), []SourceFile{
		{Statute: "KPC", Path: "s3://acts/KPC_articles.json"},
		{Statute: "KPK", Path: "s3://acts/KPK_articles.json"},
	}, 0, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 1 || got[0].Statute != "KPC" || got[0].EmbeddingText != "Sąd rozpoznaje sprawy." {
		t.Fatalf("unexpected fragments: %+v", got)
	}
	if !counts[1].Missing {
		t.Errorf("missing object should be skipped: %+v", counts[1])
	}
}

func TestLoaderSampling(t *testing.T) {
	rows := make([]string, 10)
	for i := range rows {
		rows[i] = fmt.Sprintf(`{"art_no": "%d", "text": "Art. %d. Treść artykułu numer %d."}`, i+1, i+1, i+1)
	}
	dir := t.TempDir()
	p := writeSource(t, dir, "KPA.json", "["+strings.Join(rows, ",")+"]")

	load := func() []models.Fragment {
		got, _, err := NewLoader(nil, logger.Nop()).Load(context.Background(), []SourceFile{{Statute: "KPA", Path: p}}, 3, 42)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		return got
	}
	first, second := load(), load()
	if len(first) != 3 {
		t.Fatalf("got %d fragments, want 3", len(first))
	}
	for i := range first {
		if first[i].Article != second[i].Article {
			t.Errorf("same seed gave different samples: %v vs %v", first[i].Article, second[i].Article)
		}
	}
}

func TestMergeIndex(t *testing.T) {
	tests := []struct {
		num, idx models.JSONText
		want     string
	}{
		{"115", "20", "115(20)"},
		{"115", "", "115"},
		{"115", "null", "115"},
		{"115", "None", "115"},
		{"", "20", ""},
		{"null", "20", ""},
	}
	for _, tt := range tests {
		if got := mergeIndex(tt.num, tt.idx); got != tt.want {
			t.Errorf("mergeIndex(%q, %q) = %q, want %q", tt.num, tt.idx, got, tt.want)
		}
	}
}
