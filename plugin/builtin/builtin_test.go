package builtin

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/voixagent/voixagent/logger"
	"github.com/voixagent/voixagent/plugin"
	"github.com/voixagent/voixagent/provider"
)

func TestExample(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello there", "Hello there" + exampleSuffix},
		{"say HELLO", "say HELLO" + exampleSuffix},
		{"goodbye", "goodbye"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			res, err := Example{}.Process(context.Background(), tt.in, plugin.TurnContext{})
			if err != nil {
				t.Fatal(err)
			}
			if res.Message != tt.want || res.Terminal {
				t.Errorf("got %+v, want %q", res, tt.want)
			}
		})
	}
}

func TestSentiment(t *testing.T) {
	s := NewSentiment(nil)
	tests := []struct {
		name    string
		msg     string
		score   float64
		emotion string
		tone    string
		urgent  bool
		prefix  string
	}{
		{"positive", "thanks, that is perfect", 1, "positive", ToneEnthusiastic, false, prefixPositive},
		{"negative", "this is a terrible bug", -1, "negative", ToneEmpathetic, false, prefixNegative},
		{"mixed", "great but broken", 0, "neutral", ToneNeutral, false, ""},
		{"neutral", "what time is it", 0, "neutral", ToneNeutral, false, ""},
		{"urgent negative", "urgent: the app is broken", -1, "negative", ToneEmpathetic, true, prefixNegative + prefixUrgent},
		{"urgent only", "please help me", 0, "neutral", ToneNeutral, true, prefixUrgent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := plugin.TurnContext{}
			res, err := s.Process(context.Background(), tt.msg, tc)
			if err != nil {
				t.Fatal(err)
			}
			if res.Message != tt.msg || res.Terminal {
				t.Errorf("message changed: %+v", res)
			}
			a, ok := tc[SentimentName].(Analysis)
			if !ok {
				t.Fatalf("analysis missing: %v", tc)
			}
			if a.Score != tt.score || a.Emotion != tt.emotion || a.IsUrgent != tt.urgent {
				t.Errorf("analysis = %+v", a)
			}
			if tc.String("tone") != tt.tone {
				t.Errorf("tone = %q, want %q", tc.String("tone"), tt.tone)
			}
			if tc.String(plugin.KeyResponsePrefix) != tt.prefix {
				t.Errorf("prefix = %q, want %q", tc.String(plugin.KeyResponsePrefix), tt.prefix)
			}
			if tt.urgent != (tc.String("urgency") == "high") {
				t.Errorf("urgency = %q", tc.String("urgency"))
			}
		})
	}
}

func TestSentimentConfig(t *testing.T) {
	s := NewSentiment(plugin.Config{"positive_words": []any{"yay"}, "threshold": 0.9})
	if s.Score("yay thanks") != 1 {
		t.Errorf("custom words not used: %v", s.Score("yay thanks"))
	}
	tc := plugin.TurnContext{}
	_, _ = s.Process(context.Background(), "yay", tc)
	if tc.String("tone") != ToneEnthusiastic {
		t.Errorf("tone = %q", tc.String("tone"))
	}
}

func TestEmotionLabel(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.5, "positive"},
		{0.2, "slightly_positive"},
		{0, "neutral"},
		{-0.2, "slightly_negative"},
		{-0.5, "negative"},
	}
	for _, tt := range tests {
		if got := EmotionLabel(tt.score); got != tt.want {
			t.Errorf("EmotionLabel(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestContentFilter(t *testing.T) {
	f, err := NewContentFilter(plugin.Config{"words": []any{"badword"}})
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name     string
		msg      string
		want     string
		terminal bool
		reason   string
	}{
		{"blocked word", "this is a badword", softReplies[0], true, ReasonInappropriate},
		{"blocked word with punctuation", "BADWORD!", softReplies[0], true, ReasonInappropriate},
		{"insult pattern", "you son of a gun", softReplies[0], true, ReasonInappropriate},
		{"short spam", "buy now", spamReply, true, ReasonSpam},
		{"two spam signals", "great discount at https://example.com today friends", spamReply, true, ReasonSpam},
		{"repeated characters", "nooooooo", spamReply, true, ReasonSpam},
		{"single signal long message", "I want to sell my old bike to a friend", "I want to sell my old bike to a friend", false, ""},
		{"masked word", "well damn, that failed", "well ****, that failed", false, ""},
		{"clean", "how is the weather", "how is the weather", false, ""},
		{"empty", "  ", "  ", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := plugin.TurnContext{}
			res, err := f.Process(context.Background(), tt.msg, tc)
			if err != nil {
				t.Fatal(err)
			}
			if res.Message != tt.want || res.Terminal != tt.terminal {
				t.Errorf("got %+v, want %q terminal=%v", res, tt.want, tt.terminal)
			}
			if tc.String(plugin.KeyFilterReason) != tt.reason {
				t.Errorf("reason = %q, want %q", tc.String(plugin.KeyFilterReason), tt.reason)
			}
			if tt.terminal != tc.Bool(plugin.KeyFiltered) {
				t.Errorf("filtered flag = %v", tc.Bool(plugin.KeyFiltered))
			}
		})
	}
}

func TestContentFilterModes(t *testing.T) {
	strict, _ := NewContentFilter(plugin.Config{"strict": true})
	res, _ := strict.Process(context.Background(), "what the shit", plugin.TurnContext{})
	if res.Message != strictReplies[0] || !res.Terminal {
		t.Errorf("strict reply = %+v", res)
	}
	res, _ = strict.Process(context.Background(), "well damn", plugin.TurnContext{})
	if res.Message != "well damn" {
		t.Errorf("strict mode should not mask, got %q", res.Message)
	}

	custom, _ := NewContentFilter(plugin.Config{"replacement": "Let's keep it friendly."})
	res, _ = custom.Process(context.Background(), "you bastard", plugin.TurnContext{})
	if res.Message != "Let's keep it friendly." {
		t.Errorf("custom replacement = %q", res.Message)
	}

	tc := plugin.TurnContext{}
	res, _ = custom.Process(context.Background(), "oh crap it broke", tc)
	if res.Message != "oh **** it broke" || tc.String("original_message") != "oh crap it broke" || !tc.Bool("cleaned") {
		t.Errorf("mask = %q ctx=%v", res.Message, tc)
	}
}

func TestMemory(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := provider.NewMemoryStore[History]()
	m := NewMemory(plugin.Config{"memory_size": 3}, store, clock)

	messages := []string{"tell me about weather", "weather tomorrow please", "and weekend weather", "thanks"}
	var tc plugin.TurnContext
	for _, msg := range messages {
		tc = plugin.NewTurnContext("s1", "room", "t")
		res, err := m.Process(context.Background(), msg, tc)
		if err != nil {
			t.Fatal(err)
		}
		if res.Message != msg {
			t.Errorf("message changed to %q", res.Message)
		}
		now = now.Add(10 * time.Minute)
	}

	history := tc[plugin.KeyHistory].([]Entry)
	if len(history) != 3 {
		t.Fatalf("history length = %d", len(history))
	}
	if history[0].Message != "weather tomorrow please" || history[2].Message != "thanks" {
		t.Errorf("history = %+v", history)
	}
	if history[0].UserID != "anonymous" {
		t.Errorf("user id = %q", history[0].UserID)
	}

	sc := tc["session_context"].(SessionContext)
	if sc.SessionLength != 3 || sc.DurationMinutes != 20 {
		t.Errorf("session context = %+v", sc)
	}
	if len(sc.Topics) == 0 || sc.Topics[0] != "weather" {
		t.Errorf("topics = %v", sc.Topics)
	}

	other := plugin.NewTurnContext("s2", "room", "t")
	if _, err := m.Process(context.Background(), "hi", other); err != nil {
		t.Fatal(err)
	}
	if got := other[plugin.KeyHistory].([]Entry); len(got) != 1 {
		t.Errorf("sessions share history: %+v", got)
	}

	if err := m.Forget(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}
	if h, _ := store.Load(context.Background(), memoryKey("s1")); h != nil {
		t.Error("history not forgotten")
	}
}

func TestTrend(t *testing.T) {
	mk := func(msgs ...string) []Entry {
		out := make([]Entry, len(msgs))
		for i, m := range msgs {
			out[i] = Entry{Message: m}
		}
		return out
	}
	tests := []struct {
		name    string
		entries []Entry
		want    string
	}{
		{"too short", mk("a", "b"), "neutral"},
		{"increasing", mk("aa", "aa", strings.Repeat("a", 10)), "increasing_engagement"},
		{"decreasing", mk(strings.Repeat("a", 10), strings.Repeat("a", 10), "a"), "decreasing_engagement"},
		{"stable", mk("aaaa", "aaaa", "aaaa"), "stable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Trend(tt.entries); got != tt.want {
				t.Errorf("Trend = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRegisterBuiltins(t *testing.T) {
	reg, err := NewRegistry(Options{})
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, info := range reg.List() {
		names = append(names, info.Name)
	}
	want := []string{ContentFilterName, MemoryName, ExampleName, SentimentName}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
	if canonical, ok := reg.Canonical(ProfanityFilterAlias); !ok || canonical != ContentFilterName {
		t.Errorf("alias resolves to %q", canonical)
	}
}

func TestContentFilterScenario(t *testing.T) {
	reg, err := NewRegistry(Options{})
	if err != nil {
		t.Fatal(err)
	}
	p, skipped := reg.Build([]plugin.Descriptor{
		{Name: ContentFilterName, Enabled: true, Config: plugin.Config{"words": "badword"}},
	}, plugin.WithLogger(logger.Nop()))
	if len(skipped) != 0 {
		t.Fatalf("skipped %v", skipped)
	}
	out := p.Run(context.Background(), "this is a badword", plugin.TurnContext{})
	if out.Message == "this is a badword" || !out.Terminal {
		t.Errorf("filter did not replace: %+v", out)
	}
}
