package domain

import "fmt"

// Message is a single community chat message as delivered by the upstream
// messages API. Messages carry no stable external ID; a message is
// identified by its position in the corpus snapshot that produced it.
type Message struct {
	UserName  string `json:"user_name"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// ComposedText is the canonical text representation used for both lexical
// indexing and embedding.
func (m Message) ComposedText() string {
	return fmt.Sprintf("%s | %s | %s", m.UserName, m.Timestamp, m.Message)
}

// ScoredMessage is a retrieval candidate. Score is the reranker score when
// reranking ran, otherwise the fused score; it orders candidates within a
// single query and is not comparable across queries or runs.
type ScoredMessage struct {
	Message
	// Index is the message's position in the snapshot that produced it,
	// used only to break score ties deterministically within one query.
	Index int     `json:"-"`
	Score float64 `json:"score"`
}

type Answer struct {
	Text    string          `json:"text"`
	Sources []ScoredMessage `json:"sources"`
}

// FallbackAnswer is the exact sentence used whenever synthesis cannot
// produce a grounded answer.
const FallbackAnswer = "I don’t have enough information to answer."

// RefusalReason tags a gatekeeper refusal with a machine-readable cause.
type RefusalReason string

const (
	RefusalNoFocusTerms RefusalReason = "no message with focus terms"
	RefusalTypeWhen     RefusalReason = "type guard when"
	RefusalTypeQuantity RefusalReason = "type guard how many/much"
	RefusalNoEvidence   RefusalReason = "no evidence at all"
)

// Verdict is the outcome of the evidence gatekeeper. A refusal is a normal
// outcome, not an error: the service answers with the refusal text.
type Verdict struct {
	Allowed bool
	Reason  RefusalReason
	Text    string
}

func Allow() Verdict {
	return Verdict{Allowed: true}
}

func Refuse(reason RefusalReason, text string) Verdict {
	return Verdict{Reason: reason, Text: fmt.Sprintf("%s(%s)", text, reason)}
}
