package ports

import (
	"context"

	"github.com/varad-suryavanshi/member-qa/internal/core/domain"
)

// AskResult is the full outcome of answering one question, including the
// retrieval diagnostics surfaced in debug mode.
type AskResult struct {
	Question        string
	PersonDetected  string
	Topic           string
	FocusTerms      []string
	SnippetsChecked []domain.ScoredMessage
	Answer          string
	Refused         bool
	RefusalReason   domain.RefusalReason
}

// QuestionService is the inbound contract for answering member questions.
type QuestionService interface {
	Ask(ctx context.Context, question string) (*AskResult, error)
}
