package usecase

import (
	"reflect"
	"strings"
	"testing"

	"github.com/varad-suryavanshi/member-qa/internal/core/domain"
)

func TestExtractFocusTerms(t *testing.T) {
	tests := []struct {
		name     string
		question string
		person   string
		want     []string
	}{
		{
			name:     "drops generics and name tokens",
			question: "Where is Ana Silva going on her trip to London?",
			person:   "Ana Silva",
			want:     []string{"going", "london"},
		},
		{
			name:     "quoted phrases come first",
			question: `Did Bob mention "chef's table" at the restaurant?`,
			person:   "Bob Jones",
			want:     []string{"chef's table", "mention", "chef's"},
		},
		{
			name:     "caps at five terms",
			question: "compare alpha bravo charlie delta echo foxtrot golf",
			person:   "",
			want:     []string{"compare", "alpha", "bravo", "charlie", "delta"},
		},
		{
			name:     "short words removed",
			question: "is it ok to go",
			person:   "",
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractFocusTerms(tt.question, tt.person)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("extractFocusTerms() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasDateish(t *testing.T) {
	dated := []string{
		"arriving 2025-11-10 in the evening",
		"flight on 11/10",
		"dinner Nov 10, 2025",
		"see you tomorrow",
		"free next Friday",
		"busy this weekend",
		"first week of December works",
	}
	for _, s := range dated {
		if !hasDateish(s) {
			t.Errorf("hasDateish(%q) = false, want true", s)
		}
	}

	undated := []string{
		"no schedule mentioned here",
		"the villa has a pool",
	}
	for _, s := range undated {
		if hasDateish(s) {
			t.Errorf("hasDateish(%q) = true, want false", s)
		}
	}
}

func TestHasQuantityish(t *testing.T) {
	if !hasQuantityish("party of 6") {
		t.Fatalf("digits should count as quantity evidence")
	}
	if !hasQuantityish("three guests are coming") {
		t.Fatalf("number words should count as quantity evidence")
	}
	// Substring containment is intentional: "money" contains "one".
	if !hasQuantityish("no money involved") {
		t.Fatalf("substring number-word match expected")
	}
	if hasQuantityish("just a casual chat") {
		t.Fatalf("plain text should not count as quantity evidence")
	}
}

func TestPermitRefusesWhenNoFocusTermOverlaps(t *testing.T) {
	candidates := []domain.ScoredMessage{
		scored(0, "Ana Silva", "2025-03-01T10:00:00Z", "The weather is lovely."),
	}
	verdict := permit("Where is Ana Silva going to London?", candidates, "Ana Silva")
	if verdict.Allowed {
		t.Fatalf("expected refusal, got allow")
	}
	if verdict.Reason != domain.RefusalNoFocusTerms {
		t.Fatalf("unexpected reason %q", verdict.Reason)
	}
	if !strings.Contains(verdict.Text, "from the messages") {
		t.Fatalf("unexpected refusal text %q", verdict.Text)
	}
}

func TestPermitFocusGateIgnoresOtherMembers(t *testing.T) {
	// London appears only in another member's message; the gate must not
	// count that as support for a question about Ana.
	candidates := []domain.ScoredMessage{
		scored(0, "Bob Jones", "2025-03-01T10:00:00Z", "I love London in spring."),
	}
	verdict := permit("Where is Ana Silva going to London?", candidates, "Ana Silva")
	if verdict.Allowed {
		t.Fatalf("expected refusal when only other members mention the focus term")
	}
}

func TestPermitWhenGateNeedsDatedEvidence(t *testing.T) {
	undated := []domain.ScoredMessage{
		scored(0, "Ana Silva", "2025-03-01T10:00:00Z", "Thinking about London soon."),
	}
	verdict := permit("When is Ana Silva going to London?", undated, "Ana Silva")
	if verdict.Allowed {
		t.Fatalf("expected refusal without dated evidence")
	}
	if verdict.Reason != domain.RefusalTypeWhen {
		t.Fatalf("unexpected reason %q", verdict.Reason)
	}
	if !strings.Contains(verdict.Text, "couldn’t find a date") {
		t.Fatalf("unexpected refusal text %q", verdict.Text)
	}

	dated := []domain.ScoredMessage{
		scored(0, "Ana Silva", "2025-03-01T10:00:00Z", "Flying to London on March 5."),
	}
	if v := permit("When is Ana Silva going to London?", dated, "Ana Silva"); !v.Allowed {
		t.Fatalf("expected allow with dated evidence, got %q", v.Text)
	}
}

func TestPermitQuantityGateNeedsNumbers(t *testing.T) {
	candidates := []domain.ScoredMessage{
		scored(0, "Ana Silva", "2025-03-01T10:00:00Z", "Bringing some guests to London."),
	}
	verdict := permit("How many guests is Ana Silva bringing to London?", candidates, "Ana Silva")
	if verdict.Allowed {
		t.Fatalf("expected refusal without numeric evidence")
	}
	if verdict.Reason != domain.RefusalTypeQuantity {
		t.Fatalf("unexpected reason %q", verdict.Reason)
	}

	numbered := []domain.ScoredMessage{
		scored(0, "Ana Silva", "2025-03-01T10:00:00Z", "Bringing 4 guests to London."),
	}
	if v := permit("How many guests is Ana Silva bringing to London?", numbered, "Ana Silva"); !v.Allowed {
		t.Fatalf("expected allow with numeric evidence, got %q", v.Text)
	}
}

func TestPermitRefusesWithNoEvidenceAtAll(t *testing.T) {
	verdict := permit("is it ok to go", nil, "")
	if verdict.Allowed {
		t.Fatalf("expected refusal with empty candidates")
	}
	if verdict.Reason != domain.RefusalNoEvidence {
		t.Fatalf("unexpected reason %q", verdict.Reason)
	}
}
