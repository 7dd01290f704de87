// Package sentiment classifies messages as positive, negative, neutral or
// urgent. Scoring combines a VADER polarity model with fixed keyword lists
// and a blunt negation heuristic.
package sentiment

import (
	"regexp"
	"strings"

	"github.com/jonreiter/govader"

	"github.com/crispdesk/supportbot/internal/domain"
)

var positiveKeywords = []string{
	"excellent", "amazing", "great", "wonderful", "fantastic", "perfect",
	"love", "awesome", "brilliant", "outstanding", "superb", "pleased",
	"satisfied", "happy", "delighted", "impressed", "recommend",
}

var negativeKeywords = []string{
	"terrible", "awful", "horrible", "worst", "hate", "disgusting",
	"disappointed", "frustrated", "angry", "annoyed", "upset", "mad",
	"furious", "dissatisfied", "unhappy", "complaint", "problem",
	"issue", "broken", "defective", "useless", "waste",
}

// urgentKeywords dominate every other signal: any match classifies the
// message as urgent before polarity is even computed.
var urgentKeywords = []string{
	"urgent", "emergency", "asap", "immediately", "critical", "serious",
	"important", "help", "stuck", "broken", "not working", "error",
}

var frustrationIndicators = []string{
	"frustrated", "annoyed", "fed up", "sick of", "tired of",
	"ridiculous", "unacceptable", "this is crazy", "what the hell",
	"seriously", "come on", "are you kidding",
}

var escalationTriggers = []string{
	"speak to manager", "human agent", "real person", "supervisor",
	"this is ridiculous", "unacceptable", "lawyer", "legal action",
	"complaint", "report", "cancel everything", "close account",
}

var negationPattern = regexp.MustCompile(`\b(not|no|never|nothing|nobody|nowhere|neither|hardly|scarcely|barely)\b`)

// Analyzer scores message sentiment. It holds no per-request state and is
// safe for concurrent use.
type Analyzer struct {
	vader *govader.SentimentIntensityAnalyzer
}

// NewAnalyzer creates a sentiment analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{vader: govader.NewSentimentIntensityAnalyzer()}
}

// Analyze returns the sentiment label for the text. Empty text is neutral
// and skips the polarity model entirely.
func (a *Analyzer) Analyze(text string) domain.Sentiment {
	if text == "" {
		return domain.SentimentNeutral
	}

	lower := strings.ToLower(text)

	for _, keyword := range urgentKeywords {
		if strings.Contains(lower, keyword) {
			return domain.SentimentUrgent
		}
	}

	polarity := a.vader.PolarityScores(text).Compound

	positiveCount := countMatches(lower, positiveKeywords)
	negativeCount := countMatches(lower, negativeKeywords)

	// A tie between positive and negative matches leaves the polarity
	// unadjusted.
	if positiveCount > negativeCount {
		polarity += 0.2 * float64(positiveCount)
	} else if negativeCount > positiveCount {
		polarity -= 0.2 * float64(negativeCount)
	}

	// Negation anywhere in the text dampens and flips the score. This does
	// not scope the negation to the sentiment-bearing phrase.
	if negationPattern.MatchString(lower) {
		polarity *= -0.5
	}

	switch {
	case polarity > 0.1:
		return domain.SentimentPositive
	case polarity < -0.1:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}

// EmotionScore holds the raw polarity detail behind a classification.
type EmotionScore struct {
	Polarity  float64          `json:"polarity"`
	Positive  float64          `json:"positive"`
	Negative  float64          `json:"negative"`
	Sentiment domain.Sentiment `json:"sentiment"`
}

// Emotion returns the underlying polarity scores alongside the label.
func (a *Analyzer) Emotion(text string) EmotionScore {
	scores := a.vader.PolarityScores(text)
	return EmotionScore{
		Polarity:  scores.Compound,
		Positive:  scores.Positive,
		Negative:  scores.Negative,
		Sentiment: a.Analyze(text),
	}
}

// IsFrustrated detects explicit frustration indicators.
func IsFrustrated(text string) bool {
	lower := strings.ToLower(text)
	for _, indicator := range frustrationIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// NeedsEscalation reports whether the message should be handed to a human,
// either by explicit request or by negative sentiment plus frustration.
func NeedsEscalation(text string, s domain.Sentiment) bool {
	lower := strings.ToLower(text)
	for _, trigger := range escalationTriggers {
		if strings.Contains(lower, trigger) {
			return true
		}
	}
	return s == domain.SentimentNegative && IsFrustrated(text)
}

func countMatches(lower string, keywords []string) int {
	count := 0
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			count++
		}
	}
	return count
}
