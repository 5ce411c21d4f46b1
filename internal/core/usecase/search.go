package usecase

import (
	"context"
	"log/slog"
	"sort"

	"github.com/varad-suryavanshi/member-qa/internal/core/domain"
)

// SearchConfig carries the retrieval knobs. Zero values fall back to the
// defaults used by the service.
type SearchConfig struct {
	TopK       int // final result size
	RecallSize int // per-list recall depth before fusion
	RRFK       int // reciprocal rank fusion constant
	RerankPool int // fused candidates handed to the cross-encoder
}

func (c SearchConfig) normalize() SearchConfig {
	out := c
	if out.TopK <= 0 {
		out.TopK = 10
	}
	if out.RecallSize <= 0 {
		out.RecallSize = 100
	}
	if out.RRFK <= 0 {
		out.RRFK = 60
	}
	if out.RerankPool <= 0 {
		out.RerankPool = 60
	}
	return out
}

// searchHybrid runs lexical and semantic recall, fuses both rankings with
// reciprocal rank fusion and orders the fused pool with the cross-encoder
// when it is available. Without a ready reranker the fused order stands.
func (uc *AskUseCase) searchHybrid(ctx context.Context, query, userName string) []domain.ScoredMessage {
	lexical := uc.corpus.SearchLexical(query, uc.search.RecallSize)

	semantic, err := uc.corpus.SearchSemantic(ctx, query, userName, uc.search.RecallSize)
	if err != nil {
		// Lexical recall still works; degrade rather than fail the question.
		slog.Warn("semantic_recall_failed", "error", err)
		semantic = nil
	}

	fused := fuseRRF(lexical, semantic, uc.search.RRFK)
	if len(fused) > uc.search.RerankPool {
		fused = fused[:uc.search.RerankPool]
	}
	if len(fused) == 0 {
		return nil
	}

	return uc.rerankOrFused(ctx, query, fused)
}

type fusedCandidate struct {
	msg   domain.ScoredMessage
	score float64
}

// fuseRRF merges two ranked lists by reciprocal rank fusion: each candidate
// scores sum(1/(k+rank)) over the lists it appears in, rank starting at 1.
// Candidates are keyed by composed text so the same message surfaced by both
// lists fuses into one entry.
func fuseRRF(lexical, semantic []domain.ScoredMessage, k int) []domain.ScoredMessage {
	if k <= 0 {
		k = 60
	}

	acc := make(map[string]fusedCandidate, len(lexical)+len(semantic))
	addList := func(list []domain.ScoredMessage) {
		for rank, msg := range list {
			key := msg.ComposedText()
			candidate, seen := acc[key]
			if !seen {
				candidate.msg = msg
			}
			candidate.score += 1.0 / float64(k+rank+1)
			acc[key] = candidate
		}
	}

	addList(lexical)
	addList(semantic)

	out := make([]domain.ScoredMessage, 0, len(acc))
	for _, c := range acc {
		msg := c.msg
		msg.Score = c.score
		out = append(out, msg)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Index < out[j].Index
	})

	return out
}

// rerankOrFused asks the cross-encoder to reorder the fused pool and keeps
// the top-k by relevance. When the reranker is not ready (cold-start race)
// or fails, the first top-k candidates in fused order are returned instead.
func (uc *AskUseCase) rerankOrFused(ctx context.Context, query string, fused []domain.ScoredMessage) []domain.ScoredMessage {
	topK := uc.search.TopK
	if topK > len(fused) {
		topK = len(fused)
	}

	if uc.reranker == nil || !uc.reranker.Ready() {
		return fused[:topK]
	}

	texts := make([]string, len(fused))
	for i, c := range fused {
		texts[i] = c.ComposedText()
	}

	reranked, err := uc.reranker.Rerank(ctx, query, texts)
	if err != nil {
		slog.Warn("rerank_failed", "error", err)
		if uc.onRerankFallback != nil {
			uc.onRerankFallback()
		}
		return fused[:topK]
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})

	out := make([]domain.ScoredMessage, 0, topK)
	for _, r := range reranked {
		if len(out) == topK {
			break
		}
		if r.Index < 0 || r.Index >= len(fused) {
			continue
		}
		msg := fused[r.Index]
		msg.Score = r.Score
		out = append(out, msg)
	}
	return out
}
