package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/varad-suryavanshi/member-qa/internal/core/domain"
	"github.com/varad-suryavanshi/member-qa/internal/core/ports"
)

// Observer receives refresh outcomes for metrics.
type Observer interface {
	ObserveRefresh(err error, took time.Duration)
}

// snapshot bundles the fetched messages with every derived artifact. All
// slices are index-aligned; a snapshot is immutable once published.
type snapshot struct {
	items      []domain.Message
	texts      []string
	embeddings [][]float32
	userNames  []string
	bm25       *bm25Index
	fetchedAt  time.Time
}

// Store owns the corpus snapshot lifecycle: lazy embedder warm-up,
// staleness-driven refresh and wholesale snapshot replacement. One Store is
// constructed at process start and injected into the question service.
type Store struct {
	fetcher      *Fetcher
	embedder     ports.Embedder
	refreshEvery time.Duration
	embedDim     int
	personBoost  float64
	observer     Observer

	modelMu    sync.Mutex
	modelReady bool

	refreshMu sync.Mutex

	mu   sync.RWMutex
	snap *snapshot
}

type StoreConfig struct {
	RefreshInterval time.Duration
	EmbedDim        int
	PersonBoost     float64
}

func NewStore(fetcher *Fetcher, embedder ports.Embedder, cfg StoreConfig, observer Observer) *Store {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 600 * time.Second
	}
	if cfg.EmbedDim <= 0 {
		cfg.EmbedDim = 384
	}
	if cfg.PersonBoost <= 0 {
		cfg.PersonBoost = 1.15
	}
	return &Store{
		fetcher:      fetcher,
		embedder:     embedder,
		refreshEvery: cfg.RefreshInterval,
		embedDim:     cfg.EmbedDim,
		personBoost:  cfg.PersonBoost,
		observer:     observer,
	}
}

// EnsureFresh warms the embedding backend exactly once, then refreshes the
// snapshot when none has ever loaded or the current one is stale. Errors
// propagate to the caller; the next call retries from scratch.
func (s *Store) EnsureFresh(ctx context.Context) error {
	if err := s.ensureModels(ctx); err != nil {
		return err
	}
	if s.isFresh() {
		return nil
	}
	return s.refresh(ctx)
}

// WarmBackground loads models and data on a detached goroutine. Failures
// are logged and swallowed: a later synchronous EnsureFresh retries.
func (s *Store) WarmBackground() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := s.EnsureFresh(ctx); err != nil {
			slog.Warn("warm_background_failed", "error", err)
		}
	}()
}

func (s *Store) ensureModels(ctx context.Context) error {
	if s.embedder == nil {
		return nil
	}
	s.modelMu.Lock()
	defer s.modelMu.Unlock()
	if s.modelReady {
		return nil
	}
	// One probe round-trip verifies the backend is reachable and serving
	// the configured model before the corpus is embedded.
	if _, err := s.embedder.EmbedQuery(ctx, "warmup"); err != nil {
		return domain.WrapError(domain.ErrModelLoad, "warm up embedder", err)
	}
	s.modelReady = true
	return nil
}

func (s *Store) isFresh() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap != nil && time.Since(s.snap.fetchedAt) <= s.refreshEvery
}

// refresh fetches the corpus and rebuilds every derived artifact, then
// publishes them as one snapshot. Concurrent callers coalesce: the second
// caller re-checks freshness after the first finishes.
func (s *Store) refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	if s.isFresh() {
		return nil
	}

	start := time.Now()
	err := s.rebuild(ctx)
	if s.observer != nil {
		s.observer.ObserveRefresh(err, time.Since(start))
	}
	return err
}

func (s *Store) rebuild(ctx context.Context) error {
	items, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return err
	}

	texts := make([]string, len(items))
	tokens := make([][]string, len(items))
	nameSet := make(map[string]struct{}, len(items))
	for i, it := range items {
		texts[i] = it.ComposedText()
		tokens[i] = tokenize(texts[i])
		nameSet[it.UserName] = struct{}{}
	}

	userNames := make([]string, 0, len(nameSet))
	for n := range nameSet {
		userNames = append(userNames, n)
	}
	sort.Strings(userNames)

	embeddings, err := s.embedTexts(ctx, texts)
	if err != nil {
		return err
	}

	next := &snapshot{
		items:      items,
		texts:      texts,
		embeddings: embeddings,
		userNames:  userNames,
		bm25:       newBM25Index(tokens),
		fetchedAt:  time.Now(),
	}

	s.mu.Lock()
	s.snap = next
	s.mu.Unlock()

	slog.Info("corpus_refreshed", "messages", len(items), "users", len(userNames))
	return nil
}

// embedTexts returns one L2-normalized row per text. An empty corpus or a
// missing embedder yields a zero-row matrix, keeping downstream dot
// products well-defined.
func (s *Store) embedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if s.embedder == nil || len(texts) == 0 {
		return [][]float32{}, nil
	}
	rows, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, domain.WrapError(domain.ErrModelLoad, "embed corpus", err)
	}
	if len(rows) != len(texts) {
		return nil, domain.WrapError(domain.ErrModelLoad, "embed corpus",
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(rows)))
	}
	if len(rows) > 0 && len(rows[0]) != s.embedDim {
		slog.Warn("embedding_dimension_mismatch", "want", s.embedDim, "got", len(rows[0]))
	}
	for _, row := range rows {
		normalizeVector(row)
	}
	return rows, nil
}

func (s *Store) current() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Store) UserNames() []string {
	if snap := s.current(); snap != nil {
		return snap.userNames
	}
	return nil
}

// SearchLexical scores every message against the tokenized query with BM25
// and returns the top candidates by score, ties broken by corpus order.
func (s *Store) SearchLexical(query string, limit int) []domain.ScoredMessage {
	snap := s.current()
	if snap == nil || len(snap.items) == 0 {
		return nil
	}
	return snap.top(snap.bm25.Scores(tokenize(query)), limit)
}

// SearchSemantic embeds the query and ranks messages by normalized dot
// product. A userName filter is a soft boost: matching messages'
// similarities are multiplied by the person boost factor, everything else
// stays eligible.
func (s *Store) SearchSemantic(ctx context.Context, query, userName string, limit int) ([]domain.ScoredMessage, error) {
	snap := s.current()
	if snap == nil || len(snap.embeddings) == 0 {
		return nil, nil
	}

	qvec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "embed query", err)
	}
	normalizeVector(qvec)

	sims := make([]float64, len(snap.embeddings))
	for i, row := range snap.embeddings {
		sims[i] = dot(row, qvec)
		if userName != "" && snap.items[i].UserName == userName {
			sims[i] *= s.personBoost
		}
	}
	return snap.top(sims, limit), nil
}

func (snap *snapshot) top(scores []float64, limit int) []domain.ScoredMessage {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	if limit > 0 && limit < len(order) {
		order = order[:limit]
	}

	out := make([]domain.ScoredMessage, 0, len(order))
	for _, i := range order {
		out = append(out, domain.ScoredMessage{
			Message: snap.items[i],
			Index:   i,
			Score:   scores[i],
		})
	}
	return out
}

func normalizeVector(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}

func dot(a []float32, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
