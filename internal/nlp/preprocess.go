// Package nlp provides the text preprocessing shared by the intent
// classifier's offline training and online prediction paths. Both must
// produce identical token streams or the stored vocabulary is useless.
package nlp

import (
	"regexp"
	"strings"

	"github.com/kljensen/snowball"
)

var nonWord = regexp.MustCompile(`[^\w\s]`)

// stopwords is the fixed English stopword list applied before stemming.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"a", "an", "and", "are", "as", "at", "be", "been", "but", "by",
		"can", "did", "do", "does", "doing", "for", "from", "had", "has",
		"have", "having", "he", "her", "here", "hers", "him", "his", "how",
		"i", "if", "in", "into", "is", "it", "its", "just", "me", "more",
		"my", "of", "on", "or", "our", "ours", "she", "so", "some", "such",
		"than", "that", "the", "their", "theirs", "them", "then", "there",
		"these", "they", "this", "those", "to", "was", "we", "were", "what",
		"when", "where", "which", "who", "whom", "why", "will", "with",
		"you", "your", "yours",
	} {
		stopwords[w] = struct{}{}
	}
}

// Tokenize lowercases the text, strips punctuation, splits on whitespace,
// drops stopwords, and stems each remaining token.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	text = nonWord.ReplaceAllString(text, "")

	var tokens []string
	for _, field := range strings.Fields(text) {
		if _, skip := stopwords[field]; skip {
			continue
		}
		stemmed, err := snowball.Stem(field, "english", false)
		if err != nil {
			// Stemming only fails on unsupported languages; keep the
			// surface form so the token is not silently dropped.
			stemmed = field
		}
		tokens = append(tokens, stemmed)
	}
	return tokens
}

// Vector builds a presence/absence bag-of-words vector over the vocabulary.
func Vector(tokens []string, vocab []string) []float64 {
	present := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		present[t] = struct{}{}
	}

	vec := make([]float64, len(vocab))
	for i, word := range vocab {
		if _, ok := present[word]; ok {
			vec[i] = 1
		}
	}
	return vec
}
