package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/varad-suryavanshi/member-qa/internal/core/domain"
	"github.com/varad-suryavanshi/member-qa/internal/core/ports"
)

// AskUseCase answers member questions: it keeps the corpus fresh, retrieves
// hybrid evidence, applies the evidence gates and only then asks the
// generator for a synthesized answer.
type AskUseCase struct {
	corpus    ports.CorpusIndex
	reranker  ports.Reranker
	generator ports.AnswerGenerator
	search    SearchConfig

	onRerankFallback func()
}

func NewAskUseCase(
	corpus ports.CorpusIndex,
	reranker ports.Reranker,
	generator ports.AnswerGenerator,
	search SearchConfig,
) *AskUseCase {
	return &AskUseCase{
		corpus:    corpus,
		reranker:  reranker,
		generator: generator,
		search:    search.normalize(),
	}
}

// SetRerankFallbackHook registers an observer invoked whenever reranking
// fails and the fused order is served instead.
func (uc *AskUseCase) SetRerankFallbackHook(fn func()) {
	uc.onRerankFallback = fn
}

func (uc *AskUseCase) Ask(ctx context.Context, question string) (*ports.AskResult, error) {
	q := normalizeText(question)
	if q == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", fmt.Errorf("question is empty"))
	}

	if err := uc.corpus.EnsureFresh(ctx); err != nil {
		return nil, err
	}

	person, _ := detectPerson(q, uc.corpus.UserNames())
	topic := detectTopic(q)

	query := q
	if topic != "general" {
		query = q + " topic:" + topic
	}

	snippets := uc.searchHybrid(ctx, query, person)
	focus := extractFocusTerms(q, person)

	result := &ports.AskResult{
		Question:        q,
		PersonDetected:  person,
		Topic:           topic,
		FocusTerms:      focus,
		SnippetsChecked: snippets,
	}

	if verdict := permit(q, snippets, person); !verdict.Allowed {
		result.Answer = verdict.Text
		result.Refused = true
		result.RefusalReason = verdict.Reason
		return result, nil
	}

	answer, err := uc.generator.GenerateAnswer(ctx, q, snippets)
	if err != nil || strings.TrimSpace(answer) == "" {
		// Synthesis failure is never a request failure.
		answer = domain.FallbackAnswer
	}
	result.Answer = answer
	return result, nil
}
