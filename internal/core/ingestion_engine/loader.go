package ingestion_engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/markdave123-py/kodeks/internal/core"
	"github.com/markdave123-py/kodeks/internal/logger"
	"github.com/markdave123-py/kodeks/internal/models"
)

// ErrSourceMissing marks a source file that does not exist. The loader skips
// such files instead of failing the run.
var ErrSourceMissing = errors.New("source file missing")

// SourceError is a fatal problem reading or parsing one source file.
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string { return fmt.Sprintf("source %s: %v", e.Path, e.Err) }
func (e *SourceError) Unwrap() error { return e.Err }

// SourceFile pairs a statute code with the location of its JSON file.
// Path is a local path or an s3://bucket/key URL.
type SourceFile struct {
	Statute string
	Path    string
}

// StatuteCount reports how many rows one source file held and how many survived loading.
type StatuteCount struct {
	Statute string `json:"act"`
	Path    string `json:"path"`
	Raw     int    `json:"raw"`
	Kept    int    `json:"kept"`
	Missing bool   `json:"missing,omitempty"`
}

// Loader turns statute source files into Fragments.
type Loader struct {
	obj core.ObjectClient // only needed for s3:// sources
	log *logger.Logger
}

func NewLoader(obj core.ObjectClient, log *logger.Logger) *Loader {
	return &Loader{obj: obj, log: log}
}

// Load reads every source in order and returns the kept fragments.
// A missing file is logged and skipped; any other read or parse failure is
// returned as a *SourceError. sampleSize > 0 keeps that many random rows per file.
func (l *Loader) Load(ctx context.Context, sources []SourceFile, sampleSize int, seed uint64) ([]models.Fragment, []StatuteCount, error) {
	rng := newRand(seed)

	var (
		out    []models.Fragment
		counts = make([]StatuteCount, 0, len(sources))
	)
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		raw, err := l.readSource(ctx, src)
		if errors.Is(err, ErrSourceMissing) {
			l.log.Warn("source file missing, skipping", "act", src.Statute, "path", src.Path)
			counts = append(counts, StatuteCount{Statute: src.Statute, Path: src.Path, Missing: true})
			continue
		}
		if err != nil {
			return nil, nil, err
		}

		if sampleSize > 0 {
			raw = sample(rng, raw, sampleSize)
			l.log.Info("sampling source", "act", src.Statute, "rows", len(raw))
		}

		kept := 0
		for _, r := range raw {
			f, ok := BuildFragment(r)
			if !ok {
				continue
			}
			out = append(out, f)
			kept++
		}
		counts = append(counts, StatuteCount{Statute: src.Statute, Path: src.Path, Raw: len(raw), Kept: kept})
		l.log.Info("source loaded", "act", src.Statute, "rows", len(raw), "kept", kept)
	}
	return out, counts, nil
}

func (l *Loader) readSource(ctx context.Context, src SourceFile) ([]models.RawFragment, error) {
	rc, err := l.open(ctx, src.Path)
	if err != nil {
		if errors.Is(err, ErrSourceMissing) {
			return nil, err
		}
		return nil, &SourceError{Path: src.Path, Err: err}
	}
	defer rc.Close()

	raw, err := ParseFragments(src.Statute, rc)
	if err != nil {
		return nil, &SourceError{Path: src.Path, Err: err}
	}
	return raw, nil
}

func (l *Loader) open(ctx context.Context, path string) (io.ReadCloser, error) {
	if bucket, key, ok := parseS3Path(path); ok {
		if l.obj == nil {
			return nil, fmt.Errorf("no object storage configured for %s", path)
		}
		data, err := l.obj.GetFile(ctx, bucket, key)
		if errors.Is(err, core.ErrObjectNotFound) {
			return nil, ErrSourceMissing
		}
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrSourceMissing
	}
	return f, err
}

// ParseFragments decodes one source file: a JSON array of article rows.
func ParseFragments(statute string, r io.Reader) ([]models.RawFragment, error) {
	var raw []models.RawFragment
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	for i := range raw {
		raw[i].Statute = statute
	}
	return raw, nil
}

// BuildFragment merges index suffixes, normalizes the text and estimates
// tokens. It reports false for rows without an article number and for
// repealed provisions.
func BuildFragment(r models.RawFragment) (models.Fragment, bool) {
	f := models.Fragment{
		Statute:   r.Statute,
		Article:   mergeIndex(r.ArtNo, r.ArtIndex),
		Paragraph: mergeIndex(r.ParNo, r.ParIndex),
		Point:     r.PktNo.Value(),
		RawText:   string(r.Text),
	}
	f.DisplayText = StripPlaceholderMarker(f.RawText)
	f.EmbeddingText = StripStructuralPrefixes(f.DisplayText)
	f.TokenEstimate = EstimateTokens(f.EmbeddingText)

	if f.Article == "" || f.EmbeddingText == models.RepealedSentinel {
		return models.Fragment{}, false
	}
	return f, true
}

// mergeIndex appends a non-null index suffix in parentheses: "115" + "20" is "115(20)".
func mergeIndex(num, idx models.JSONText) string {
	n := num.Value()
	if n == "" || idx.IsNull() {
		return n
	}
	return n + "(" + idx.Value() + ")"
}

func parseS3Path(p string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(p, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

// newRand returns a seeded generator; seed 0 seeds from the clock.
func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed>>1|1))
}

// sample returns n random rows of raw in random order, or all rows when n >= len(raw).
func sample(rng *rand.Rand, raw []models.RawFragment, n int) []models.RawFragment {
	out := make([]models.RawFragment, len(raw))
	copy(out, raw)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	if n < len(out) {
		out = out[:n]
	}
	return out
}
