package analysis

import (
	"strings"
	"unicode"

	"grievance/backend/internal/config"
)

const (
	intensifierBoost = 1.3
	negationFactor   = -0.5
)

// SentimentAnalyzer scores text polarity in [-1, 1] from a word lexicon.
type SentimentAnalyzer struct {
	positive     map[string]bool
	negative     map[string]bool
	negators     map[string]bool
	intensifiers map[string]bool
}

func NewSentimentAnalyzer(lex config.SentimentLexicon) *SentimentAnalyzer {
	return &SentimentAnalyzer{
		positive:     wordSet(lex.Positive),
		negative:     wordSet(lex.Negative),
		negators:     wordSet(lex.Negators),
		intensifiers: wordSet(lex.Intensifiers),
	}
}

// Polarity averages the scores of lexicon words in text. A preceding
// intensifier strengthens a word; a negator within two words flips and damps
// it. Text without lexicon words scores 0.
func (s *SentimentAnalyzer) Polarity(text string) float64 {
	tokens := tokenize(fold(text))

	var sum float64
	hits := 0
	for i, tok := range tokens {
		var v float64
		switch {
		case s.positive[tok]:
			v = 1
		case s.negative[tok]:
			v = -1
		default:
			continue
		}
		if i > 0 && s.intensifiers[tokens[i-1]] {
			v *= intensifierBoost
		}
		if s.negated(tokens, i) {
			v *= negationFactor
		}
		sum += v
		hits++
	}
	if hits == 0 {
		return 0
	}
	return max(-1, min(1, sum/float64(hits)))
}

func (s *SentimentAnalyzer) negated(tokens []string, i int) bool {
	for j := i - 1; j >= 0 && j >= i-2; j-- {
		if s.negators[tokens[j]] || strings.HasSuffix(tokens[j], "n't") {
			return true
		}
	}
	return false
}

func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
}

func wordSet(words []string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[fold(w)] = true
	}
	return m
}
