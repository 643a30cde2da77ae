package builtin

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/voixagent/voixagent/plugin"
)

// Registered names of the content filter.
const (
	ContentFilterName    = "content_filter"
	ProfanityFilterAlias = "profanity_filter"
)

// Filter reasons written to the turn context.
const (
	ReasonInappropriate = "inappropriate_content"
	ReasonSpam          = "spam"
)

const spamReply = "Your message looks like spam. Could you ask a more relevant question?"

var (
	defaultBlocked = []string{"fuck", "fucking", "shit", "bitch", "bastard", "asshole", "cunt", "motherfucker"}
	defaultMasked  = []string{"damn", "crap", "hell"}

	strictReplies = []string{
		"I'd rather not respond to that.",
		"Could you rephrase your question more respectfully?",
		"I can't process this kind of content.",
	}
	softReplies = []string{
		"Could you rephrase that more politely?",
		"I understand your frustration, but could you be more respectful?",
	}

	insultPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bson of a \w+`),
		regexp.MustCompile(`\byou (?:stupid|dumb|worthless|useless) \w+`),
		regexp.MustCompile(`\bpiece of \w+`),
	}
	spamPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:buy|sell|discount|offer)\b`),
		regexp.MustCompile(`(?i)https?://`),
		regexp.MustCompile(`@\w+`),
	}
)

// ContentFilter rejects abusive and spam messages with a terminal
// replacement. In non-strict mode it masks mild words instead of rejecting.
type ContentFilter struct {
	blocked     map[string]bool
	masked      map[string]bool
	strict      bool
	replacement string
}

// NewContentFilter builds the filter. Config keys: words (blocked words),
// mask_words, strict, replacement.
func NewContentFilter(cfg plugin.Config) (*ContentFilter, error) {
	f := &ContentFilter{
		blocked: wordSet(orDefault(cfg.Strings("words"), defaultBlocked)),
		masked:  wordSet(orDefault(cfg.Strings("mask_words"), defaultMasked)),
		strict:  cfg.Bool("strict", false),
	}
	replies := softReplies
	if f.strict {
		replies = strictReplies
	}
	f.replacement = cfg.String("replacement", replies[0])
	return f, nil
}

func (f *ContentFilter) Name() string { return ContentFilterName }

func (f *ContentFilter) Process(_ context.Context, message string, tc plugin.TurnContext) (plugin.Result, error) {
	if strings.TrimSpace(message) == "" {
		return plugin.Pass(message), nil
	}
	if f.inappropriate(message) {
		tc[plugin.KeyFiltered] = true
		tc[plugin.KeyFilterReason] = ReasonInappropriate
		return plugin.Terminate(f.replacement), nil
	}
	if IsSpam(message) {
		tc[plugin.KeyFiltered] = true
		tc[plugin.KeyFilterReason] = ReasonSpam
		return plugin.Terminate(spamReply), nil
	}
	if f.strict {
		return plugin.Pass(message), nil
	}
	if cleaned := f.mask(message); cleaned != message {
		tc["cleaned"] = true
		tc["original_message"] = message
		return plugin.Pass(cleaned), nil
	}
	return plugin.Pass(message), nil
}

func (f *ContentFilter) inappropriate(message string) bool {
	m := strings.ToLower(message)
	for _, w := range wordPattern.FindAllString(m, -1) {
		if f.blocked[w] {
			return true
		}
	}
	for _, p := range insultPatterns {
		if p.MatchString(m) {
			return true
		}
	}
	return false
}

func (f *ContentFilter) mask(message string) string {
	words := strings.Fields(message)
	for i, w := range words {
		lead := len(w) - len(strings.TrimLeftFunc(w, isPunct))
		if lead == len(w) {
			continue
		}
		trail := len(w) - len(strings.TrimRightFunc(w, isPunct))
		core := w[lead : len(w)-trail]
		if f.masked[strings.ToLower(core)] {
			words[i] = w[:lead] + strings.Repeat("*", utf8.RuneCountInString(core)) + w[len(w)-trail:]
		}
	}
	return strings.Join(words, " ")
}

// IsSpam scores the message against the spam patterns: a short message with
// any hit, or any message with two or more hits, is spam.
func IsSpam(message string) bool {
	score := 0
	if hasRepeatedRun(message, 5) {
		score++
	}
	for _, p := range spamPatterns {
		if p.MatchString(message) {
			score++
		}
	}
	if len(strings.Fields(message)) < 3 && score > 0 {
		return true
	}
	return score >= 2
}

// hasRepeatedRun reports whether any character repeats n or more times in a
// row. RE2 has no backreferences, so this is checked by hand.
func hasRepeatedRun(s string, n int) bool {
	var prev rune
	run := 0
	for _, r := range strings.ToLower(s) {
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run >= n {
			return true
		}
	}
	return false
}

func isPunct(r rune) bool {
	return strings.ContainsRune(`.,;:!?'"()[]{}-`, r)
}
