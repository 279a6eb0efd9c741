package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/markdave123-py/kodeks/internal/core"
)

const DefaultVoyageURL = "https://api.voyageai.com/v1/embeddings"

// VoyageEmbedder calls the Voyage embeddings endpoint once per EmbedTexts call.
// Retries are left to RetryingEmbedder.
type VoyageEmbedder struct {
	http   *http.Client
	url    string
	apiKey string
	model  string
}

func NewVoyageEmbedder(apiKey, model, url string, hc *http.Client) *VoyageEmbedder {
	if url == "" {
		url = DefaultVoyageURL
	}
	if model == "" {
		model = "voyage-law-2"
	}
	if hc == nil {
		hc = &http.Client{}
	}
	return &VoyageEmbedder{http: hc, url: url, apiKey: apiKey, model: model}
}

type voyageRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type voyageResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (v *VoyageEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(voyageRequest{Input: texts, Model: v.model})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+v.apiKey)

	resp, err := v.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voyage embeddings: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("voyage embeddings: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Provider: "voyage", StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out voyageResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("voyage embeddings: decode: %w", err)
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("voyage embeddings: got %d vectors for %d inputs", len(out.Data), len(texts))
	}
	sort.SliceStable(out.Data, func(i, j int) bool { return out.Data[i].Index < out.Data[j].Index })

	vecs := make([][]float32, len(out.Data))
	for i, d := range out.Data {
		vecs[i] = d.Embedding
	}
	return vecs, nil
}

var _ core.EmbeddingProvider = (*VoyageEmbedder)(nil)
