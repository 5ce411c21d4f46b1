package corpus

import (
	"math"
	"regexp"
	"strings"
)

const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

var tokenRE = regexp.MustCompile(`[a-z0-9']+`)

// tokenize lowercases text and extracts runs of [a-z0-9'] as terms. The
// same tokenizer feeds index construction and query scoring.
func tokenize(text string) []string {
	return tokenRE.FindAllString(strings.ToLower(text), -1)
}

// bm25Index is an in-memory Okapi BM25 index over per-message token
// sequences. It is built once per snapshot and never mutated.
type bm25Index struct {
	termFreqs []map[string]int
	docLens   []int
	avgLen    float64
	idf       map[string]float64
}

func newBM25Index(docs [][]string) *bm25Index {
	n := len(docs)
	ix := &bm25Index{
		termFreqs: make([]map[string]int, n),
		docLens:   make([]int, n),
		idf:       make(map[string]float64),
	}

	df := make(map[string]int)
	total := 0
	for i, tokens := range docs {
		tf := make(map[string]int, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}
		for t := range tf {
			df[t]++
		}
		ix.termFreqs[i] = tf
		ix.docLens[i] = len(tokens)
		total += len(tokens)
	}
	if n > 0 {
		ix.avgLen = float64(total) / float64(n)
	}

	for term, count := range df {
		ix.idf[term] = math.Log((float64(n)-float64(count)+0.5)/(float64(count)+0.5) + 1)
	}
	return ix
}

// Scores returns one BM25 score per indexed document for the query tokens.
func (ix *bm25Index) Scores(queryTokens []string) []float64 {
	scores := make([]float64, len(ix.termFreqs))
	if len(queryTokens) == 0 || len(scores) == 0 {
		return scores
	}

	for _, term := range queryTokens {
		idf, known := ix.idf[term]
		if !known {
			continue
		}
		for i, tf := range ix.termFreqs {
			freq, ok := tf[term]
			if !ok {
				continue
			}
			dl := float64(ix.docLens[i])
			tfF := float64(freq)
			scores[i] += idf * (tfF * (bm25K1 + 1)) / (tfF + bm25K1*(1-bm25B+bm25B*dl/ix.avgLen))
		}
	}
	return scores
}
