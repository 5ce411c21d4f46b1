package cohere

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestReadyRequiresAPIKey(t *testing.T) {
	t.Setenv("COHERE_TEST_KEY", "")
	if New("COHERE_TEST_KEY", "", "").Ready() {
		t.Fatalf("expected not ready without an API key")
	}

	t.Setenv("COHERE_TEST_KEY", "secret")
	if !New("COHERE_TEST_KEY", "", "").Ready() {
		t.Fatalf("expected ready with an API key")
	}
}

func TestRerankParsesAndOrdersResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/rerank" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req rerankRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode rerank request: %v", err)
		}
		if len(req.Documents) != 2 || req.Model != "rerank-english-v3.0" {
			t.Errorf("unexpected request %+v", req)
		}
		_, _ = w.Write([]byte(`{"results":[
			{"index":0,"relevance_score":0.2},
			{"index":1,"relevance_score":0.9}
		]}`))
	}))
	defer server.Close()

	t.Setenv("COHERE_TEST_KEY", "secret")
	reranker := New("COHERE_TEST_KEY", "", server.URL)

	results, err := reranker.Rerank(context.Background(), "query", []string{"doc a", "doc b"})
	if err != nil {
		t.Fatalf("Rerank() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Index != 1 || results[0].Score != 0.9 {
		t.Fatalf("expected best-first ordering, got %+v", results[0])
	}
}

func TestRerankSurfacesAPIFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid api token"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	t.Setenv("COHERE_TEST_KEY", "bad")
	reranker := New("COHERE_TEST_KEY", "", server.URL)

	_, err := reranker.Rerank(context.Background(), "query", []string{"doc"})
	if err == nil {
		t.Fatalf("expected error on API failure")
	}
}

func TestRerankWithoutKeyFails(t *testing.T) {
	t.Setenv("COHERE_TEST_KEY", "")
	reranker := New("COHERE_TEST_KEY", "", "http://unused")

	if _, err := reranker.Rerank(context.Background(), "query", []string{"doc"}); err == nil {
		t.Fatalf("expected error when no key is configured")
	}
}
