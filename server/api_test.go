package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"github.com/voixagent/voixagent/auth"
	"github.com/voixagent/voixagent/component"
	"github.com/voixagent/voixagent/config"
	"github.com/voixagent/voixagent/logger"
	"github.com/voixagent/voixagent/media/websocket"
	"github.com/voixagent/voixagent/metrics"
	"github.com/voixagent/voixagent/plugin/builtin"
	"github.com/voixagent/voixagent/provider"
	"github.com/voixagent/voixagent/resolver"
	"github.com/voixagent/voixagent/server"
	"github.com/voixagent/voixagent/session"
)

type testAPI struct {
	engine   *gin.Engine
	srv      *server.Server
	sessions *session.Registry
	agg      *metrics.Aggregator
}

func newTestAPI(t *testing.T, tokens *auth.TokenService) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	agent := config.AgentConfig{
		STT:     provider.Spec{Provider: "local"},
		LLM:     provider.Spec{Provider: "echo", APIKey: "sk-secret-value"},
		TTS:     provider.Spec{Provider: "local"},
		Plugins: []config.PluginEntry{{Name: "profanity_filter", Enabled: false}},
	}
	lookup := func(string) (string, bool) { return "", false }
	catalog := resolver.DefaultCatalog()
	res := resolver.New(catalog, resolver.WithLogger(logger.Nop()), resolver.WithLookup(lookup))
	plugins, err := builtin.NewRegistry(builtin.Options{})
	if err != nil {
		t.Fatal(err)
	}
	agg := metrics.NewAggregator(metrics.Config{})
	sessions := session.NewRegistry(session.Config{}, config.Static(agent), res, plugins,
		session.WithLogger(logger.Nop()),
		session.WithRecorder(agg),
	)
	t.Cleanup(func() { _ = sessions.Stop(context.Background()) })

	srv := server.New(server.Config{Host: "127.0.0.1"}, logger.Nop())
	srv.Mount(server.NewAPI(server.Deps{
		ServiceName: "voixagent-test",
		Sessions:    sessions,
		Metrics:     agg,
		Tokens:      tokens,
		Agent:       config.Static(agent),
		Catalog:     catalog,
		Plugins:     plugins,
		Lookup:      lookup,
		Health: func(ctx context.Context) []component.Health {
			return []component.Health{sessions.Health(ctx)}
		},
		RateLimit: 100,
	}, logger.Nop()))

	return &testAPI{engine: srv.Engine(), srv: srv, sessions: sessions, agg: agg}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	a.srv.Handler().ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, nil)

	rr := api.do(t, "GET", "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Status     string             `json:"status"`
		Components []component.Health `json:"components"`
	}
	decode(t, rr, &body)
	if body.Status != string(component.StatusHealthy) || len(body.Components) != 1 {
		t.Fatalf("unexpected health body: %+v", body)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected request id header from middleware")
	}
}

func TestToken(t *testing.T) {
	tokens, err := auth.NewTokenService(auth.LiveKitConfig{URL: "wss://lk.example.com", APIKey: "key", APISecret: "secret"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		tokens *auth.TokenService
		path   string
		want   int
	}{
		{"issued", tokens, "/token?room=r1&identity=alice", http.StatusOK},
		{"missing identity", tokens, "/token?room=r1", http.StatusBadRequest},
		{"missing room", tokens, "/token?identity=alice", http.StatusBadRequest},
		{"credentials unset", nil, "/token?room=r1&identity=alice", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t, tt.tokens)
			rr := api.do(t, "GET", tt.path, nil)
			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rr.Code, rr.Body.String())
			}
			if tt.want != http.StatusOK {
				return
			}
			var tok auth.Token
			decode(t, rr, &tok)
			if tok.URL != "wss://lk.example.com" {
				t.Errorf("unexpected url %q", tok.URL)
			}
			claims, err := tokens.Verify(tok.Token)
			if err != nil {
				t.Fatalf("token does not verify: %v", err)
			}
			if claims.Subject != "alice" || claims.Video == nil || claims.Video.Room != "r1" {
				t.Errorf("unexpected claims: %+v", claims)
			}
		})
	}
}

type sessionEnvelope struct {
	Data session.Record `json:"data"`
}

func TestSessionLifecycle(t *testing.T) {
	api := newTestAPI(t, nil)

	rr := api.do(t, "POST", "/sessions", map[string]any{"session_id": "s1", "room": "lobby"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created sessionEnvelope
	decode(t, rr, &created)
	if created.Data.SessionID != "s1" || created.Data.State != session.StateActive {
		t.Fatalf("unexpected record: %+v", created.Data)
	}

	if rr := api.do(t, "POST", "/sessions", map[string]any{"session_id": "s1", "room": "lobby"}); rr.Code != http.StatusConflict {
		t.Fatalf("duplicate: expected 409, got %d", rr.Code)
	}

	rr = api.do(t, "POST", "/sessions/s1/turns", map[string]any{"text": "what time is it"})
	if rr.Code != http.StatusOK {
		t.Fatalf("turn: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var turn struct {
		Data session.TurnResult `json:"data"`
	}
	decode(t, rr, &turn)
	if turn.Data.Reply != "You said: what time is it" {
		t.Fatalf("unexpected reply %q", turn.Data.Reply)
	}

	rr = api.do(t, "GET", "/sessions", nil)
	var list struct {
		Data []session.Record `json:"data"`
		Meta struct {
			Total int `json:"total"`
		} `json:"meta"`
	}
	decode(t, rr, &list)
	if list.Meta.Total != 1 || list.Data[0].Turns != 1 {
		t.Fatalf("unexpected list: %+v", list)
	}

	if rr := api.do(t, "DELETE", "/sessions/s1", nil); rr.Code != http.StatusNoContent {
		t.Fatalf("end: expected 204, got %d", rr.Code)
	}
	rr = api.do(t, "GET", "/sessions/s1", nil)
	var ended sessionEnvelope
	decode(t, rr, &ended)
	if ended.Data.State != session.StateTerminated {
		t.Fatalf("expected terminated, got %s", ended.Data.State)
	}

	if rr := api.do(t, "POST", "/sessions/s1/turns", map[string]any{"text": "again"}); rr.Code != http.StatusConflict {
		t.Fatalf("turn after end: expected 409, got %d", rr.Code)
	}
}

func TestSessionErrors(t *testing.T) {
	api := newTestAPI(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"missing room", "POST", "/sessions", map[string]any{"session_id": "x"}, http.StatusBadRequest},
		{"unknown provider", "POST", "/sessions", map[string]any{"room": "r", "config": map[string]any{"llm": map[string]any{"provider": "nope"}}}, http.StatusUnprocessableEntity},
		{"capitalized provider", "POST", "/sessions", map[string]any{"room": "r", "config": map[string]any{"tts": map[string]any{"provider": "Azure"}}}, http.StatusUnprocessableEntity},
		{"unknown session", "GET", "/sessions/missing", nil, http.StatusNotFound},
		{"turn unknown session", "POST", "/sessions/missing/turns", map[string]any{"text": "hi"}, http.StatusNotFound},
		{"empty turn", "POST", "/sessions/missing/turns", map[string]any{"text": ""}, http.StatusBadRequest},
		{"end unknown session", "DELETE", "/sessions/missing", nil, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := api.do(t, tt.method, tt.path, tt.body)
			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestCreateSessionPartialOverride(t *testing.T) {
	api := newTestAPI(t, nil)

	tests := []struct {
		name    string
		config  map[string]any
		plugins []string
	}{
		{"generation only", map[string]any{"llm": map[string]any{"model": "small", "temperature": 0.2}}, []string{}},
		{"empty plugin list", map[string]any{"plugins": []any{}}, []string{}},
		{"plugins only", map[string]any{"plugins": []any{map[string]any{"name": "example", "enabled": true}}}, []string{"example"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := api.do(t, "POST", "/sessions", map[string]any{"room": "r", "config": tt.config})
			if rr.Code != http.StatusCreated {
				t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
			}
			var body struct {
				Data session.Record `json:"data"`
			}
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Data.State != session.StateActive {
				t.Errorf("state = %s", body.Data.State)
			}
			if got := body.Data.Plugins; len(got) != len(tt.plugins) || (len(got) > 0 && got[0] != tt.plugins[0]) {
				t.Errorf("plugins = %v, want %v", got, tt.plugins)
			}
		})
	}
}

func TestMetricsSnapshot(t *testing.T) {
	api := newTestAPI(t, nil)
	api.agg.Record(metrics.SessionEvent("s1", metrics.LLMLatency, 12, metrics.UnitMilliseconds))
	if err := api.agg.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}

	rr := api.do(t, "GET", "/metrics", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var snap metrics.Snapshot
	decode(t, rr, &snap)
	if len(snap.RecentEvents) != 1 || snap.RecentEvents[0].Name != metrics.LLMLatency {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestMetricsStreamDisabled(t *testing.T) {
	api := newTestAPI(t, nil)
	if rr := api.do(t, "GET", "/metrics/stream", nil); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestProvidersMasksKeys(t *testing.T) {
	api := newTestAPI(t, nil)

	rr := api.do(t, "GET", "/providers", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "sk-secret-value") {
		t.Fatal("api key leaked in /providers")
	}
	var body struct {
		Data struct {
			Selected  []map[string]string     `json:"selected"`
			Available []resolver.ProviderInfo `json:"available"`
		} `json:"data"`
	}
	decode(t, rr, &body)
	if len(body.Data.Selected) != 3 || body.Data.Selected[1]["provider"] != "echo" {
		t.Fatalf("unexpected selection: %+v", body.Data.Selected)
	}
	if len(body.Data.Available) == 0 {
		t.Fatal("expected catalog entries")
	}
}

func TestPlugins(t *testing.T) {
	api := newTestAPI(t, nil)

	rr := api.do(t, "GET", "/plugins", nil)
	var body struct {
		Data []struct {
			Name       string `json:"name"`
			Enabled    bool   `json:"enabled"`
			Configured bool   `json:"configured"`
		} `json:"data"`
	}
	decode(t, rr, &body)
	found := false
	for _, p := range body.Data {
		if p.Name == builtin.ContentFilterName {
			found = true
			if !p.Configured || p.Enabled {
				t.Errorf("content filter should be configured and disabled: %+v", p)
			}
		}
	}
	if !found {
		t.Fatalf("content filter missing from %+v", body.Data)
	}
}

func TestWebsocketConversation(t *testing.T) {
	api := newTestAPI(t, nil)
	ts := httptest.NewServer(api.srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?room=lobby&identity=alice&session_id=ws1"
	ws, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()
	_ = ws.SetReadDeadline(time.Now().Add(5 * time.Second))

	readJSON := func() websocket.ServerMessage {
		t.Helper()
		for {
			kind, data, err := ws.ReadMessage()
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if kind != gorillaws.TextMessage {
				continue
			}
			var msg websocket.ServerMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatal(err)
			}
			return msg
		}
	}

	if msg := readJSON(); msg.Type != websocket.TypeSession || msg.SessionID != "ws1" {
		t.Fatalf("expected session frame, got %+v", msg)
	}
	if err := ws.WriteJSON(websocket.ClientMessage{Type: websocket.TypeInputText, Text: "hello there"}); err != nil {
		t.Fatal(err)
	}
	msg := readJSON()
	if msg.Type != websocket.TypeResponse || msg.Text != "You said: hello there" {
		t.Fatalf("unexpected response %+v", msg)
	}

	_ = ws.WriteMessage(gorillaws.CloseMessage, gorillaws.FormatCloseMessage(gorillaws.CloseNormalClosure, ""))

	s, ok := api.sessions.Session("ws1")
	if !ok {
		t.Fatal("session not registered")
	}
	select {
	case <-s.Terminated():
	case <-time.After(5 * time.Second):
		t.Fatalf("session did not end after disconnect, state %s", s.State())
	}
}
