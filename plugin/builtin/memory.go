package builtin

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/voixagent/voixagent/plugin"
	"github.com/voixagent/voixagent/provider"
)

// MemoryName is the registered name of the conversation memory plugin.
const MemoryName = "conversation_memory"

const (
	defaultMemorySize = 10
	defaultRetention  = 24 * time.Hour
	recentEntries     = 5
	topTopics         = 5
)

// Entry is one remembered user message.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
}

// History is the stored conversation of one session.
type History struct {
	Entries []Entry `json:"entries"`
}

// SessionContext summarizes a session's history.
type SessionContext struct {
	SessionLength   int       `json:"session_length"`
	Topics          []string  `json:"topics"`
	DurationMinutes float64   `json:"duration_minutes"`
	LastActivity    time.Time `json:"last_activity"`
}

// Insights are hints derived from the history.
type Insights struct {
	IsReturningUser   bool     `json:"is_returning_user"`
	ConversationTrend string   `json:"conversation_trend"`
	SuggestedActions  []string `json:"suggested_actions"`
}

// Memory records each user message per session and exposes recent history
// to later stages and to reply generation.
type Memory struct {
	store     provider.ContextStore[History]
	size      int
	retention time.Duration
	now       func() time.Time
}

// NewMemory builds the plugin over store. Config keys: memory_size,
// retention (a duration string such as "2h").
func NewMemory(cfg plugin.Config, store provider.ContextStore[History], now func() time.Time) *Memory {
	m := &Memory{
		store:     store,
		size:      cfg.Int("memory_size", defaultMemorySize),
		retention: defaultRetention,
		now:       now,
	}
	if m.size <= 0 {
		m.size = defaultMemorySize
	}
	if d, err := time.ParseDuration(cfg.String("retention", "")); err == nil && d > 0 {
		m.retention = d
	}
	return m
}

func (m *Memory) Name() string { return MemoryName }

func (m *Memory) Process(ctx context.Context, message string, tc plugin.TurnContext) (plugin.Result, error) {
	sessionID := tc.String(plugin.KeySessionID)
	if sessionID == "" {
		sessionID = "default"
	}
	userID := tc.String(plugin.KeyUserID)
	if userID == "" {
		userID = "anonymous"
	}

	key := memoryKey(sessionID)
	stored, err := m.store.Load(ctx, key)
	if err != nil {
		return plugin.Result{}, err
	}
	var h History
	if stored != nil {
		h.Entries = append(h.Entries, stored.Entries...)
	}
	h.Entries = append(h.Entries, Entry{Timestamp: m.now(), UserID: userID, Message: message})
	if len(h.Entries) > m.size {
		h.Entries = h.Entries[len(h.Entries)-m.size:]
	}
	if err := m.store.Save(ctx, key, &h, m.retention); err != nil {
		return plugin.Result{}, err
	}

	sc := Summarize(h.Entries)
	tc[plugin.KeyHistory] = Recent(h.Entries, recentEntries)
	tc["session_context"] = sc
	tc["memory_insights"] = Insights{
		IsReturningUser:   len(h.Entries) > 5,
		ConversationTrend: Trend(h.Entries),
		SuggestedActions:  suggest(sc),
	}
	return plugin.Pass(message), nil
}

// Forget deletes a session's history.
func (m *Memory) Forget(ctx context.Context, sessionID string) error {
	return m.store.Delete(ctx, memoryKey(sessionID))
}

func memoryKey(sessionID string) string { return "memory:" + sessionID }

// Recent returns a copy of the last n entries.
func Recent(entries []Entry, n int) []Entry {
	if len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return append([]Entry(nil), entries...)
}

// Summarize computes the session context: length, the most frequent words
// longer than three characters, and the time spanned.
func Summarize(entries []Entry) SessionContext {
	sc := SessionContext{SessionLength: len(entries), Topics: []string{}}
	if len(entries) == 0 {
		return sc
	}

	freq := make(map[string]int)
	var order []string
	for _, e := range entries {
		for _, w := range strings.Fields(strings.ToLower(e.Message)) {
			if len(w) <= 3 {
				continue
			}
			if freq[w] == 0 {
				order = append(order, w)
			}
			freq[w]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return freq[order[i]] > freq[order[j]] })
	if len(order) > topTopics {
		order = order[:topTopics]
	}
	sc.Topics = order

	first, last := entries[0].Timestamp, entries[len(entries)-1].Timestamp
	sc.DurationMinutes = last.Sub(first).Minutes()
	sc.LastActivity = last
	return sc
}

// Trend compares the latest message length with the average of the
// preceding ones, over the last five messages.
func Trend(entries []Entry) string {
	if len(entries) < 3 {
		return "neutral"
	}
	recent := Recent(entries, 5)
	var sum int
	for _, e := range recent[:len(recent)-1] {
		sum += len(e.Message)
	}
	avg := float64(sum) / float64(len(recent)-1)
	last := float64(len(recent[len(recent)-1].Message))
	switch {
	case last > avg*1.5:
		return "increasing_engagement"
	case last < avg*0.5:
		return "decreasing_engagement"
	default:
		return "stable"
	}
}

func suggest(sc SessionContext) []string {
	suggestions := []string{}
	if sc.SessionLength > 10 {
		suggestions = append(suggestions, "The user seems engaged: offer a deeper conversation.")
	}
	if sc.DurationMinutes > 30 {
		suggestions = append(suggestions, "Long session: check whether the user needs specific help.")
	}
	if strings.Contains(strings.Join(sc.Topics, " "), "help") {
		suggestions = append(suggestions, "Ask what kind of help is needed.")
	}
	return suggestions
}
