package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/markdave123-py/kodeks/internal/logger"
)

func TestVoyageEmbedder_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		var req voyageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "voyage-law-2" || len(req.Input) != 2 {
			t.Errorf("request = %+v", req)
		}
		// Out of order on purpose; index decides placement.
		_, _ = w.Write([]byte(`{"data":[{"embedding":[2,2],"index":1},{"embedding":[1,1],"index":0}]}`))
	}))
	defer server.Close()

	e := NewVoyageEmbedder("test-key", "", server.URL, server.Client())
	vecs, err := e.EmbedTexts(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedTexts: %v", err)
	}
	if len(vecs) != 2 || vecs[0][0] != 1 || vecs[1][0] != 2 {
		t.Errorf("vectors = %v", vecs)
	}
}

func TestVoyageEmbedder_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer server.Close()

	_, err := NewVoyageEmbedder("k", "m", server.URL, server.Client()).EmbedTexts(context.Background(), []string{"a"})
	var se *StatusError
	if !errors.As(err, &se) || !se.IsRateLimited() || se.Body != "slow down" {
		t.Fatalf("want 429 StatusError, got %v", err)
	}
}

func TestVoyageEmbedder_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"embedding":[1],"index":0}]}`))
	}))
	defer server.Close()

	if _, err := NewVoyageEmbedder("k", "m", server.URL, server.Client()).EmbedTexts(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("want error for missing vectors")
	}
}

func TestOpenAIEmbedder_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("path = %s", r.URL.Path)
		}
		resp := openai.EmbeddingResponse{
			Object: "list",
			Data: []openai.Embedding{
				{Object: "embedding", Embedding: []float32{0.5}, Index: 0},
				{Object: "embedding", Embedding: []float32{0.25}, Index: 1},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	vecs, err := NewOpenAIEmbedder("test-key", "text-embedding-3-small", server.URL, 8).EmbedTexts(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedTexts: %v", err)
	}
	if vecs[0][0] != 0.5 || vecs[1][0] != 0.25 {
		t.Errorf("vectors = %v", vecs)
	}
}

func TestOpenAIEmbedder_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad input","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	_, err := NewOpenAIEmbedder("k", "m", server.URL, 0).EmbedTexts(context.Background(), []string{"a"})
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadRequest {
		t.Fatalf("want 400 StatusError, got %v", err)
	}
}

// scripted fails with errs in order, then succeeds.
type scripted struct {
	errs  []error
	calls atomic.Int32
}

func (s *scripted) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	n := int(s.calls.Add(1)) - 1
	if n < len(s.errs) {
		return nil, s.errs[n]
	}
	return [][]float32{{1}}, nil
}

func newRetrying(next *scripted, attempts int) (*RetryingEmbedder, *[]time.Duration) {
	r := NewRetryingEmbedder(next, RetryConfig{MaxAttempts: attempts, BaseDelay: time.Second}, logger.Nop())
	var waits []time.Duration
	r.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return r, &waits
}

func TestRetryingEmbedder(t *testing.T) {
	limited := &StatusError{Provider: "voyage", StatusCode: http.StatusTooManyRequests}
	transport := errors.New("connection reset")

	t.Run("rate limit backs off exponentially", func(t *testing.T) {
		next := &scripted{errs: []error{limited, limited}}
		r, waits := newRetrying(next, 3)
		if _, err := r.EmbedTexts(context.Background(), []string{"a"}); err != nil {
			t.Fatalf("EmbedTexts: %v", err)
		}
		if len(*waits) != 2 || (*waits)[0] != time.Second || (*waits)[1] != 2*time.Second {
			t.Errorf("waits = %v", *waits)
		}
	})

	t.Run("transport errors back off linearly", func(t *testing.T) {
		next := &scripted{errs: []error{transport, transport}}
		r, waits := newRetrying(next, 3)
		if _, err := r.EmbedTexts(context.Background(), []string{"a"}); err != nil {
			t.Fatalf("EmbedTexts: %v", err)
		}
		if len(*waits) != 2 || (*waits)[0] != time.Second || (*waits)[1] != 2*time.Second {
			t.Errorf("waits = %v", *waits)
		}
	})

	t.Run("other status fails at once", func(t *testing.T) {
		next := &scripted{errs: []error{&StatusError{Provider: "voyage", StatusCode: 401}}}
		r, waits := newRetrying(next, 3)
		_, err := r.EmbedTexts(context.Background(), []string{"a"})
		var se *StatusError
		if !errors.As(err, &se) || se.StatusCode != 401 {
			t.Fatalf("want 401, got %v", err)
		}
		if next.calls.Load() != 1 || len(*waits) != 0 {
			t.Errorf("calls = %d, waits = %v", next.calls.Load(), *waits)
		}
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		next := &scripted{errs: []error{limited, limited, limited}}
		r, waits := newRetrying(next, 3)
		_, err := r.EmbedTexts(context.Background(), []string{"a"})
		if !errors.Is(err, limited) {
			t.Fatalf("want wrapped rate limit error, got %v", err)
		}
		if next.calls.Load() != 3 || len(*waits) != 2 {
			t.Errorf("calls = %d, waits = %v", next.calls.Load(), *waits)
		}
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		next := &scripted{errs: []error{transport}}
		r, _ := newRetrying(next, 3)
		if _, err := r.EmbedTexts(ctx, []string{"a"}); !errors.Is(err, context.Canceled) {
			t.Fatalf("want context.Canceled, got %v", err)
		}
	})
}

func TestRateLimitedEmbedder_HonoursContext(t *testing.T) {
	next := &scripted{}
	l := NewRateLimitedEmbedder(next, 1)
	if _, err := l.EmbedTexts(context.Background(), []string{"a"}); err != nil {
		t.Fatalf("first call: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := l.EmbedTexts(ctx, []string{"a"}); err == nil {
		t.Fatal("second call within the minute should be refused")
	}
	if next.calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", next.calls.Load())
	}
}

func TestRetryingEmbedder_RateLimitWaitIgnoresAttemptTimeout(t *testing.T) {
	next := &scripted{}
	// One request per 100ms, each attempt bounded to 20ms.
	r := NewRetryingEmbedder(NewRateLimitedEmbedder(next, 600), RetryConfig{
		MaxAttempts:    3,
		BaseDelay:      time.Millisecond,
		AttemptTimeout: 20 * time.Millisecond,
	}, logger.Nop())

	for i := 0; i < 2; i++ {
		if _, err := r.EmbedTexts(context.Background(), []string{"a"}); err != nil {
			t.Fatalf("call %d: %v", i+1, err)
		}
	}
	if next.calls.Load() != 2 {
		t.Errorf("provider calls = %d, want 2", next.calls.Load())
	}
}
