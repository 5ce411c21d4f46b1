package usecase

import (
	"regexp"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Likeliest person mention: the longest run of capitalized words.
var capitalizedSpanRE = regexp.MustCompile(`[A-Z][a-zA-Z'’\-]+(?:\s+[A-Z][a-zA-Z'’\-]+)*`)

const personMatchThreshold = 70.0

// detectPerson fuzzy-matches the question against the corpus user names.
// The longest capitalized span is tried first, then the whole question, and
// the best token-set ratio wins. Below the acceptance threshold no person
// is reported.
func detectPerson(question string, userNames []string) (string, float64) {
	if len(userNames) == 0 {
		return "", 0
	}

	queries := make([]string, 0, 2)
	if caps := capitalizedSpanRE.FindAllString(question, -1); len(caps) > 0 {
		longest := caps[0]
		for _, c := range caps[1:] {
			if len(c) > len(longest) {
				longest = c
			}
		}
		queries = append(queries, longest)
	}
	queries = append(queries, question)

	bestName, bestScore := "", 0.0
	for _, q := range queries {
		for _, name := range userNames {
			if score := tokenSetRatio(q, name); score > bestScore {
				bestName, bestScore = name, score
			}
		}
	}

	if bestScore >= personMatchThreshold {
		return bestName, bestScore
	}
	return "", 0
}

// tokenSetRatio scores two strings 0..100 by comparing the sorted token
// intersection against each side's remainder, keeping the best of the three
// pairings. A name whose tokens all appear in the question scores 100
// regardless of the surrounding words.
func tokenSetRatio(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	var common, onlyA, onlyB []string
	for t := range ta {
		if _, ok := tb[t]; ok {
			common = append(common, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for t := range tb {
		if _, ok := ta[t]; !ok {
			onlyB = append(onlyB, t)
		}
	}
	sort.Strings(common)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	base := strings.Join(common, " ")
	full1 := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	full2 := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	best := ratio(base, full1)
	if r := ratio(base, full2); r > best {
		best = r
	}
	if r := ratio(full1, full2); r > best {
		best = r
	}
	return best
}

func ratio(a, b string) float64 {
	if a == "" && b == "" {
		return 0
	}
	if a == b {
		return 100
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	dist := levenshtein.ComputeDistance(a, b)
	if dist >= longest {
		return 0
	}
	return 100.0 * float64(longest-dist) / float64(longest)
}

func tokenSet(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, t := range strings.Fields(strings.ToLower(s)) {
		t = strings.Trim(t, `.,!?;:"'’“”`)
		if t != "" {
			out[t] = struct{}{}
		}
	}
	return out
}

var topicKeywords = map[string][]string{
	"travel":  {"book", "flight", "hotel", "suite", "room", "villa", "check-in", "itinerary", "trip", "travel"},
	"dining":  {"restaurant", "dinner", "table", "reservation", "chef’s table", "chef's table"},
	"billing": {"invoice", "billing", "charge", "payment", "renewal", "transaction", "points", "loyalty"},
}

// detectTopic is a light keyword classifier used only to decorate the
// retrieval query.
func detectTopic(question string) string {
	q := strings.ToLower(question)
	for _, topic := range []string{"travel", "dining", "billing"} {
		for _, kw := range topicKeywords[topic] {
			if strings.Contains(q, kw) {
				return topic
			}
		}
	}
	return "general"
}

// normalizeText collapses runs of whitespace and strips the ends.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
