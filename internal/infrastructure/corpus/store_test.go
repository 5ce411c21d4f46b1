package corpus

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/varad-suryavanshi/member-qa/internal/core/domain"
)

type fakeEmbedder struct {
	dim        int
	embedErr   error
	queryErr   error
	embedCalls atomic.Int64
	queryCalls atomic.Int64
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.embedCalls.Add(1)
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	rows := make([][]float32, len(texts))
	for i := range texts {
		row := make([]float32, f.dim)
		// Deterministic per-text direction so similarity is meaningful.
		row[i%f.dim] = 1
		rows[i] = row
	}
	return rows, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	f.queryCalls.Add(1)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	row := make([]float32, f.dim)
	row[0] = 1
	return row, nil
}

func messagesServer(t *testing.T, fetches *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fetches != nil {
			fetches.Add(1)
		}
		_, _ = w.Write([]byte(`{"items":[
			{"user_name":"Bob Jones","timestamp":"t1","message":"Dinner on Friday at 7"},
			{"user_name":"Ana Silva","timestamp":"t2","message":"Booked a villa in London"},
			{"user_name":"Ana Silva","timestamp":"t3","message":"Flight lands Monday morning"}
		]}`))
	}))
}

func newTestStore(t *testing.T, serverURL string, embedder *fakeEmbedder, refreshEvery time.Duration) *Store {
	t.Helper()
	fetcher := NewFetcher(serverURL, time.Second)
	return NewStore(fetcher, embedder, StoreConfig{
		RefreshInterval: refreshEvery,
		EmbedDim:        4,
	}, nil)
}

func TestEnsureFreshBuildsAlignedSnapshot(t *testing.T) {
	server := messagesServer(t, nil)
	defer server.Close()

	embedder := &fakeEmbedder{dim: 4}
	store := newTestStore(t, server.URL, embedder, time.Minute)

	if err := store.EnsureFresh(context.Background()); err != nil {
		t.Fatalf("EnsureFresh() error = %v", err)
	}

	snap := store.current()
	if snap == nil {
		t.Fatalf("expected a published snapshot")
	}
	if len(snap.items) != 3 || len(snap.texts) != 3 || len(snap.embeddings) != 3 {
		t.Fatalf("snapshot artifacts misaligned: %d items, %d texts, %d embeddings",
			len(snap.items), len(snap.texts), len(snap.embeddings))
	}

	want := []string{"Ana Silva", "Bob Jones"}
	if !reflect.DeepEqual(store.UserNames(), want) {
		t.Fatalf("UserNames() = %v, want sorted distinct %v", store.UserNames(), want)
	}
}

func TestEnsureFreshSkipsRefetchWhileFresh(t *testing.T) {
	var fetches atomic.Int64
	server := messagesServer(t, &fetches)
	defer server.Close()

	store := newTestStore(t, server.URL, &fakeEmbedder{dim: 4}, time.Minute)

	for i := 0; i < 3; i++ {
		if err := store.EnsureFresh(context.Background()); err != nil {
			t.Fatalf("EnsureFresh() error = %v", err)
		}
	}
	if got := fetches.Load(); got != 1 {
		t.Fatalf("expected a single upstream fetch while fresh, got %d", got)
	}
}

func TestEnsureFreshRefetchesWhenStale(t *testing.T) {
	var fetches atomic.Int64
	server := messagesServer(t, &fetches)
	defer server.Close()

	store := newTestStore(t, server.URL, &fakeEmbedder{dim: 4}, 10*time.Millisecond)

	if err := store.EnsureFresh(context.Background()); err != nil {
		t.Fatalf("EnsureFresh() error = %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := store.EnsureFresh(context.Background()); err != nil {
		t.Fatalf("EnsureFresh() error = %v", err)
	}
	if got := fetches.Load(); got != 2 {
		t.Fatalf("expected refetch after staleness, got %d fetches", got)
	}
}

func TestEnsureFreshWarmsEmbedderOnce(t *testing.T) {
	server := messagesServer(t, nil)
	defer server.Close()

	embedder := &fakeEmbedder{dim: 4}
	store := newTestStore(t, server.URL, embedder, time.Minute)

	for i := 0; i < 3; i++ {
		if err := store.EnsureFresh(context.Background()); err != nil {
			t.Fatalf("EnsureFresh() error = %v", err)
		}
	}
	// One warm-up probe only; no further EmbedQuery without searches.
	if got := embedder.queryCalls.Load(); got != 1 {
		t.Fatalf("expected one warm-up probe, got %d", got)
	}
}

func TestEnsureFreshReportsModelLoadFailure(t *testing.T) {
	server := messagesServer(t, nil)
	defer server.Close()

	embedder := &fakeEmbedder{dim: 4, queryErr: errors.New("model missing")}
	store := newTestStore(t, server.URL, embedder, time.Minute)

	err := store.EnsureFresh(context.Background())
	if !domain.IsKind(err, domain.ErrModelLoad) {
		t.Fatalf("expected model load failure, got %v", err)
	}
}

func TestSearchLexicalRanksMatchingMessageFirst(t *testing.T) {
	server := messagesServer(t, nil)
	defer server.Close()

	store := newTestStore(t, server.URL, &fakeEmbedder{dim: 4}, time.Minute)
	if err := store.EnsureFresh(context.Background()); err != nil {
		t.Fatalf("EnsureFresh() error = %v", err)
	}

	got := store.SearchLexical("villa in London", 2)
	if len(got) != 2 {
		t.Fatalf("expected limit-capped results, got %d", len(got))
	}
	if got[0].Message.Message != "Booked a villa in London" {
		t.Fatalf("expected villa message first, got %q", got[0].Message.Message)
	}
	if got[0].Index != 1 {
		t.Fatalf("expected snapshot index carried through, got %d", got[0].Index)
	}
}

func TestSearchSemanticBoostsPerson(t *testing.T) {
	server := messagesServer(t, nil)
	defer server.Close()

	embedder := &fakeEmbedder{dim: 4}
	fetcher := NewFetcher(server.URL, time.Second)
	store := NewStore(fetcher, embedder, StoreConfig{
		RefreshInterval: time.Minute,
		EmbedDim:        4,
		PersonBoost:     2.0,
	}, nil)
	if err := store.EnsureFresh(context.Background()); err != nil {
		t.Fatalf("EnsureFresh() error = %v", err)
	}

	// The query vector aligns with message 0 (Bob). Without a boost Bob
	// wins; boosting Ana cannot invent similarity where the dot product is
	// zero, so Bob must still lead with sims 1.0 vs 0.
	results, err := store.SearchSemantic(context.Background(), "anything", "", 3)
	if err != nil {
		t.Fatalf("SearchSemantic() error = %v", err)
	}
	if results[0].UserName != "Bob Jones" {
		t.Fatalf("expected aligned message first, got %q", results[0].UserName)
	}

	boosted, err := store.SearchSemantic(context.Background(), "anything", "Bob Jones", 3)
	if err != nil {
		t.Fatalf("SearchSemantic() error = %v", err)
	}
	if boosted[0].Score != results[0].Score*2.0 {
		t.Fatalf("expected boosted score %f, got %f", results[0].Score*2.0, boosted[0].Score)
	}
}

func TestSearchSemanticWrapsQueryEmbedFailure(t *testing.T) {
	server := messagesServer(t, nil)
	defer server.Close()

	embedder := &fakeEmbedder{dim: 4}
	store := newTestStore(t, server.URL, embedder, time.Minute)
	if err := store.EnsureFresh(context.Background()); err != nil {
		t.Fatalf("EnsureFresh() error = %v", err)
	}

	embedder.queryErr = errors.New("embed backend flaking")
	_, err := store.SearchSemantic(context.Background(), "anything", "", 3)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary failure kind, got %v", err)
	}
}

func TestSearchesBeforeFirstRefreshReturnNothing(t *testing.T) {
	store := NewStore(NewFetcher("http://127.0.0.1:0", time.Second), &fakeEmbedder{dim: 4}, StoreConfig{}, nil)

	if got := store.SearchLexical("anything", 5); got != nil {
		t.Fatalf("expected nil lexical results without snapshot, got %v", got)
	}
	results, err := store.SearchSemantic(context.Background(), "anything", "", 5)
	if err != nil || results != nil {
		t.Fatalf("expected empty semantic results without snapshot, got %v, %v", results, err)
	}
	if names := store.UserNames(); names != nil {
		t.Fatalf("expected no user names without snapshot, got %v", names)
	}
}
