package ports

import (
	"context"

	"github.com/varad-suryavanshi/member-qa/internal/core/domain"
)

// CorpusIndex owns the message snapshot and its derived lexical and
// semantic artifacts. Implementations must refresh the snapshot
// atomically: readers see either the old complete snapshot or the new
// complete snapshot, never a partial rebuild.
type CorpusIndex interface {
	// EnsureFresh warms up the embedding backend exactly once and
	// refreshes the corpus when it has never loaded or is older than the
	// refresh interval. Errors propagate immediately; there is no retry
	// loop beyond the fetcher's single redirect follow.
	EnsureFresh(ctx context.Context) error
	// WarmBackground kicks off a best-effort asynchronous warm-up.
	// Failures are logged, never raised.
	WarmBackground()

	UserNames() []string
	SearchLexical(query string, limit int) []domain.ScoredMessage
	SearchSemantic(ctx context.Context, query, userName string, limit int) ([]domain.ScoredMessage, error)
}

// Embedder builds vectors for corpus texts and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// RerankedResult pairs a candidate's position in the input slice with its
// cross-encoder relevance score.
type RerankedResult struct {
	Index int
	Score float64
}

// Reranker scores (query, document) pairs jointly. Ready reports whether
// the backing model is available; when it is not, callers keep the fused
// candidate order.
type Reranker interface {
	Ready() bool
	Rerank(ctx context.Context, query string, documents []string) ([]RerankedResult, error)
}

// AnswerGenerator creates the final user-facing answer from approved
// evidence. Implementations report synthesis failures as the fixed
// fallback sentence, never as an error.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, evidence []domain.ScoredMessage) (string, error)
}
