package ollama

import (
	"fmt"
	"strings"

	"github.com/varad-suryavanshi/member-qa/internal/core/domain"
)

var systemPrompt = "You are a precise assistant. Answer the QUESTION using ONLY the EVIDENCE. " +
	"If the answer is not clearly supported by the EVIDENCE, reply exactly: " + domain.FallbackAnswer

func buildAnswerPrompt(question string, evidence []domain.ScoredMessage) string {
	var lines strings.Builder
	for _, s := range evidence {
		lines.WriteString(fmt.Sprintf("- [%s at %s] %s\n", s.UserName, s.Timestamp, s.Message.Message))
	}
	body := strings.TrimRight(lines.String(), "\n")
	if body == "" {
		body = "(none)"
	}

	return fmt.Sprintf(`QUESTION:
%s

EVIDENCE (relevant member messages):
%s

Instructions:
- Answer using only the EVIDENCE above, as ONE short sentence in natural third person.
- Prefer starting with the person’s name exactly as it appears in the QUESTION when helpful.
- If the EVIDENCE does not clearly contain the answer, reply exactly: %s`, question, body, domain.FallbackAnswer)
}
