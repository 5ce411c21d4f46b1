// Package cohere scores (query, document) pairs with Cohere's hosted
// cross-encoder rerank API.
package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/varad-suryavanshi/member-qa/internal/core/ports"
)

const defaultBaseURL = "https://api.cohere.ai"

type Reranker struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// New reads the API key from apiKeyEnv. An empty key is not an error: the
// reranker reports not-ready and the retriever keeps fused order.
func New(apiKeyEnv, model, baseURL string) *Reranker {
	if model == "" {
		model = "rerank-english-v3.0"
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Reranker{
		apiKey:  os.Getenv(apiKeyEnv),
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (r *Reranker) Ready() bool {
	return r != nil && r.apiKey != ""
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Rerank returns one scored entry per input document, best first.
func (r *Reranker) Rerank(ctx context.Context, query string, documents []string) ([]ports.RerankedResult, error) {
	if !r.Ready() {
		return nil, fmt.Errorf("rerank: no API key configured")
	}
	if len(documents) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(rerankRequest{
		Query:     query,
		Documents: documents,
		Model:     r.model,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("rerank status: %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}

	var parsed rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	out := make([]ports.RerankedResult, 0, len(parsed.Results))
	for _, res := range parsed.Results {
		out = append(out, ports.RerankedResult{Index: res.Index, Score: res.RelevanceScore})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out, nil
}
