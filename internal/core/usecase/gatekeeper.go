package usecase

import (
	"regexp"
	"strings"

	"github.com/varad-suryavanshi/member-qa/internal/core/domain"
)

// Utility words that carry no evidential weight: interrogatives, planning
// and travel/dining boilerplate, articles, common verbs.
var genericTerms = map[string]struct{}{
	"what": {}, "which": {}, "who": {}, "when": {}, "where": {}, "why": {}, "how": {}, "much": {}, "many": {},
	"plan": {}, "planning": {}, "trip": {}, "travel": {}, "vacation": {}, "book": {}, "booking": {},
	"secure": {}, "arrange": {}, "need": {}, "want": {},
	"restaurant": {}, "restaurants": {}, "dinner": {}, "reservation": {}, "reservations": {},
	"table": {}, "tables": {}, "seat": {}, "seats": {},
	"family": {}, "please": {}, "thanks": {}, "thank": {}, "you": {}, "my": {}, "his": {}, "her": {}, "their": {},
	"the": {}, "a": {}, "an": {}, "at": {}, "for": {}, "to": {}, "in": {}, "on": {}, "with": {}, "of": {}, "and": {}, "or": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "do": {}, "does": {}, "did": {},
}

var (
	focusWordRE  = regexp.MustCompile(`[a-zA-Z][a-zA-Z\-']+`)
	quotedTermRE = regexp.MustCompile(`"([^"]+)"|“([^”]+)”|'([^']+)'`)
)

// extractFocusTerms derives up to 5 question keywords that must appear in
// the evidence: quoted phrases verbatim first, then lowercase word tokens
// longer than 2 characters with the person's name tokens and generic
// utility words removed.
func extractFocusTerms(question, personName string) []string {
	q := strings.TrimSpace(question)

	var phrases []string
	for _, groups := range quotedTermRE.FindAllStringSubmatch(q, -1) {
		for _, g := range groups[1:] {
			if g != "" {
				phrases = append(phrases, g)
			}
		}
	}

	nameTokens := map[string]struct{}{}
	for _, t := range strings.Fields(strings.ToLower(personName)) {
		nameTokens[t] = struct{}{}
	}

	var focusWords []string
	for _, w := range focusWordRE.FindAllString(q, -1) {
		w = strings.ToLower(w)
		if len(w) <= 2 {
			continue
		}
		if _, isName := nameTokens[w]; isName {
			continue
		}
		if _, generic := genericTerms[w]; generic {
			continue
		}
		focusWords = append(focusWords, w)
	}

	// Phrases first, then words; dedupe; cap at 5.
	out := make([]string, 0, 5)
	seen := map[string]struct{}{}
	for _, t := range append(phrases, focusWords...) {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) == 5 {
			break
		}
	}
	return out
}

var dateishRE = regexp.MustCompile(`(?i)` +
	`(?:\b\d{4}-\d{2}-\d{2}\b)` + // 2025-11-10
	`|(?:\b\d{1,2}[/-]\d{1,2}(?:[/-]\d{2,4})?\b)` + // 11/10, 11-10-2025
	`|(?:\b(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)(?:uary|ch|ril|e|y|ust|tember|ober|ember)?\s+\d{1,2}(?:,\s*\d{4})?\b)` + // Nov 10, 2025 / November 10
	`|(?:\b(?:today|tomorrow|tonight|tonite|yesterday)\b)` + // relative day words
	`|(?:\b(?:this|next|coming)?\s*(?:mon|tue|tues|wed|thu|thur|thurs|fri|sat|sun|monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b)` + // (this) Friday
	`|(?:\b(?:this|next)\s+(?:week|weekend|month|quarter|year)\b)` + // this weekend / next month
	`|(?:\b(?:first|second|third|fourth)\s+week\s+of\s+(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec|january|february|march|april|may|june|july|august|september|october|november|december)\b)`) // first week of December

func hasDateish(text string) bool {
	return dateishRE.MatchString(text)
}

var digitRunRE = regexp.MustCompile(`\b\d+\b`)

var numberWords = []string{
	"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten",
	"eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen", "seventeen",
	"eighteen", "nineteen", "twenty", "thirty", "forty", "fifty", "sixty", "seventy",
	"eighty", "ninety", "hundred", "thousand", "million",
}

func hasQuantityish(text string) bool {
	t := strings.ToLower(text)
	if digitRunRE.MatchString(t) {
		return true
	}
	for _, w := range numberWords {
		if strings.Contains(t, w) {
			return true
		}
	}
	return false
}

// permit applies the evidence-sufficiency gates in order; the first failing
// gate wins. It never calls the language model and never trims the
// candidate list it approves.
func permit(question string, candidates []domain.ScoredMessage, personName string) domain.Verdict {
	low := strings.ToLower(question)

	if focus := extractFocusTerms(question, personName); len(focus) > 0 {
		supported := false
		for _, c := range candidates {
			if personName != "" && c.UserName != personName {
				continue
			}
			text := strings.ToLower(c.UserName + " " + c.Timestamp + " " + c.Message.Message)
			for _, f := range focus {
				if strings.Contains(text, f) {
					supported = true
					break
				}
			}
			if supported {
				break
			}
		}
		if !supported {
			return domain.Refuse(domain.RefusalNoFocusTerms,
				"I don’t have enough information to answer from the messages.")
		}
	}

	if strings.Contains(low, "when") {
		dated := false
		for _, c := range candidates {
			if hasDateish(c.Message.Message) {
				dated = true
				break
			}
		}
		if !dated {
			return domain.Refuse(domain.RefusalTypeWhen,
				"I don’t have enough information to answer when. I couldn’t find a date in the messages.")
		}
	}

	if strings.Contains(low, "how many") || strings.Contains(low, "how much") {
		var evidence strings.Builder
		for i, c := range candidates {
			if i > 0 {
				evidence.WriteString(" ")
			}
			evidence.WriteString(c.Message.Message)
		}
		if !hasQuantityish(evidence.String()) {
			return domain.Refuse(domain.RefusalTypeQuantity,
				"I don’t have enough information to answer the quantity from the messages.")
		}
	}

	if len(candidates) == 0 {
		return domain.Refuse(domain.RefusalNoEvidence,
			"I don’t have enough information to answer from the messages.")
	}

	return domain.Allow()
}
