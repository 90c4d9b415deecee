package compatibility

import (
	"errors"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

	errEmptyVocabulary = errors.New("empty vocabulary: documents contain only stop words or single characters")
)

// tokenize lowercases text and keeps word tokens of two or more runes.
func tokenize(text string) []string {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	tokens := words[:0]
	for _, w := range words {
		if utf8.RuneCountInString(w) >= 2 {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

// countVectors fits a vocabulary on the two documents only and returns
// their term-count vectors over it.
func countVectors(a, b string) ([]float64, []float64, error) {
	tokensA, tokensB := tokenize(a), tokenize(b)

	vocabulary := make(map[string]int)
	for _, tokens := range [][]string{tokensA, tokensB} {
		for _, t := range tokens {
			if _, ok := vocabulary[t]; !ok {
				vocabulary[t] = len(vocabulary)
			}
		}
	}
	if len(vocabulary) == 0 {
		return nil, nil, errEmptyVocabulary
	}

	vecA := make([]float64, len(vocabulary))
	vecB := make([]float64, len(vocabulary))
	for _, t := range tokensA {
		vecA[vocabulary[t]]++
	}
	for _, t := range tokensB {
		vecB[vocabulary[t]]++
	}
	return vecA, vecB, nil
}

// cosine returns 0 when either vector is all zeros.
func cosine(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// roundTenth rounds to one decimal, halves to even.
func roundTenth(x float64) float64 {
	return math.RoundToEven(x*10) / 10
}
