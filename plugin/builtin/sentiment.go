package builtin

import (
	"context"
	"regexp"
	"strings"

	"github.com/voixagent/voixagent/plugin"
)

// SentimentName is the registered name of the sentiment plugin.
const SentimentName = "sentiment_analysis"

// Tone values written to the turn context.
const (
	ToneEmpathetic   = "empathetic"
	ToneEnthusiastic = "enthusiastic"
	ToneNeutral      = "neutral"
)

const (
	prefixNegative = "I understand your frustration. "
	prefixPositive = "I'm glad to help! "
	prefixUrgent   = "I'll handle this as a priority. "
)

var (
	wordPattern = regexp.MustCompile(`\w+`)

	defaultPositive = []string{
		"thanks", "thank", "perfect", "excellent", "great", "awesome", "good",
		"happy", "glad", "fantastic", "wonderful", "love",
	}
	defaultNegative = []string{
		"bad", "awful", "terrible", "horrible", "angry", "annoyed", "hate",
		"problem", "error", "bug", "broken", "useless",
	}
	defaultUrgent = []string{
		"urgent", "quickly", "right now", "immediately", "asap", "help", "emergency",
	}
)

// Analysis is stored under the sentiment_analysis context key.
type Analysis struct {
	Score    float64 `json:"score"`
	Emotion  string  `json:"emotion"`
	IsUrgent bool    `json:"is_urgent"`
}

// Sentiment scores messages by keyword and writes tone hints for the reply.
// The message itself is never changed.
type Sentiment struct {
	threshold float64
	positive  map[string]bool
	negative  map[string]bool
	urgent    []string
}

// NewSentiment builds the plugin. Config keys: threshold, positive_words,
// negative_words, urgency_words.
func NewSentiment(cfg plugin.Config) *Sentiment {
	return &Sentiment{
		threshold: cfg.Float("threshold", 0.5),
		positive:  wordSet(orDefault(cfg.Strings("positive_words"), defaultPositive)),
		negative:  wordSet(orDefault(cfg.Strings("negative_words"), defaultNegative)),
		urgent:    lower(orDefault(cfg.Strings("urgency_words"), defaultUrgent)),
	}
}

func (s *Sentiment) Name() string { return SentimentName }

func (s *Sentiment) Process(_ context.Context, message string, tc plugin.TurnContext) (plugin.Result, error) {
	score := s.Score(message)
	urgent := s.IsUrgent(message)
	tc[SentimentName] = Analysis{Score: score, Emotion: EmotionLabel(score), IsUrgent: urgent}

	prefix := ""
	switch {
	case score < -s.threshold:
		prefix = prefixNegative
		tc["tone"] = ToneEmpathetic
	case score > s.threshold:
		prefix = prefixPositive
		tc["tone"] = ToneEnthusiastic
	default:
		tc["tone"] = ToneNeutral
	}
	if urgent {
		tc["urgency"] = "high"
		prefix += prefixUrgent
	}
	if prefix != "" {
		tc[plugin.KeyResponsePrefix] = prefix
	}
	return plugin.Pass(message), nil
}

// Score returns (positive-negative)/(positive+negative) over the keyword
// hits, or 0 without any.
func (s *Sentiment) Score(message string) float64 {
	var pos, neg int
	for _, w := range wordPattern.FindAllString(strings.ToLower(message), -1) {
		if s.positive[w] {
			pos++
		}
		if s.negative[w] {
			neg++
		}
	}
	if pos+neg == 0 {
		return 0
	}
	return float64(pos-neg) / float64(pos+neg)
}

// IsUrgent reports whether the message contains an urgency phrase.
func (s *Sentiment) IsUrgent(message string) bool {
	m := strings.ToLower(message)
	for _, w := range s.urgent {
		if strings.Contains(m, w) {
			return true
		}
	}
	return false
}

// EmotionLabel maps a score to a coarse label.
func EmotionLabel(score float64) string {
	switch {
	case score > 0.3:
		return "positive"
	case score < -0.3:
		return "negative"
	case score > 0.1:
		return "slightly_positive"
	case score < -0.1:
		return "slightly_negative"
	default:
		return "neutral"
	}
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}

func lower(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = strings.ToLower(w)
	}
	return out
}

func wordSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = true
	}
	return set
}
