package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/markdave123-py/kodeks/internal/core"
	"github.com/markdave123-py/kodeks/internal/models"
)

type fakeStore struct {
	mu        sync.Mutex
	tables    map[string][]models.Record
	resets    []string
	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{tables: make(map[string][]models.Record)}
}

func (s *fakeStore) ResetActsSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets = append(s.resets, "acts")
	delete(s.tables, core.TableActs)
	delete(s.tables, core.TableActsCumulated)
	return nil
}

func (s *fakeStore) ResetContextSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets = append(s.resets, "context")
	delete(s.tables, core.TableContext)
	return nil
}

func (s *fakeStore) InsertRecords(ctx context.Context, table string, records []models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.tables[table] = append(s.tables[table], records...)
	return nil
}

func (s *fakeStore) SearchActs(ctx context.Context, q models.SearchQuery) ([]models.SearchHit, error) {
	return nil, nil
}

func (s *fakeStore) GetArticleFragments(ctx context.Context, act, article string) ([]models.Record, error) {
	return nil, nil
}

func (s *fakeStore) Close() error { return nil }

// fakeEmbedder returns a one-dimensional vector holding each text's length.
// Any batch containing a text with failOn fails.
type fakeEmbedder struct {
	mu     sync.Mutex
	calls  [][]string
	failOn string
}

func (f *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.calls = append(f.calls, texts)
	f.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, t := range texts {
		if f.failOn != "" && strings.Contains(t, f.failOn) {
			return nil, errors.New("provider unavailable")
		}
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte)}
}

func (o *fakeObjects) UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.objects[bucket+"/"+key] = data
	return fmt.Sprintf("mem://%s/%s", bucket, key), nil
}

func (o *fakeObjects) GetFile(ctx context.Context, bucket, key string) ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	data, ok := o.objects[bucket+"/"+key]
	if !ok {
		return nil, core.ErrObjectNotFound
	}
	return data, nil
}

func writeSource(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

// frag builds a loaded fragment the way the loader would.
func frag(t *testing.T, statute, art, par, pkt, text string) models.Fragment {
	t.Helper()
	f, ok := BuildFragment(models.RawFragment{
		Statute: statute,
		ArtNo:   models.JSONText(art),
		ParNo:   models.JSONText(par),
		PktNo:   models.JSONText(pkt),
		Text:    models.JSONText(text),
	})
	if !ok {
		t.Fatalf("fragment %s art. %s was filtered out", statute, art)
	}
	return f
}
