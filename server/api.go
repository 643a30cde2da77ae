package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/voixagent/voixagent/auth"
	"github.com/voixagent/voixagent/config"
	apperrors "github.com/voixagent/voixagent/errors"
	"github.com/voixagent/voixagent/logger"
	"github.com/voixagent/voixagent/media/websocket"
	"github.com/voixagent/voixagent/metrics"
	"github.com/voixagent/voixagent/plugin"
	"github.com/voixagent/voixagent/provider"
	"github.com/voixagent/voixagent/resolver"
	"github.com/voixagent/voixagent/server/endpoint"
	"github.com/voixagent/voixagent/server/middleware"
	"github.com/voixagent/voixagent/session"
	"github.com/voixagent/voixagent/sse"
	"github.com/voixagent/voixagent/util"
	"github.com/voixagent/voixagent/validation"
)

const maxNameLength = 128

// Deps are the collaborators behind the HTTP routes. Nil optional fields
// disable their routes' functionality: Tokens answers 500, Stream 503 and
// Prometheus is not mounted.
type Deps struct {
	ServiceName string
	Sessions    *session.Registry
	Metrics     *metrics.Aggregator
	Stream      *sse.Hub
	Prometheus  http.Handler
	Tokens      *auth.TokenService
	Agent       config.Source
	Catalog     *resolver.Catalog
	Plugins     *plugin.Registry
	// Lookup resolves credential environment variables for /providers.
	Lookup    func(string) (string, bool)
	Health    endpoint.HealthChecker
	RateLimit int
}

// API serves sessions, metrics, tokens and the read-only management views.
type API struct {
	deps Deps
	log  *logger.Logger
}

// NewAPI creates the route handlers.
func NewAPI(deps Deps, log *logger.Logger) *API {
	if log == nil {
		log = logger.Nop()
	}
	return &API{deps: deps, log: log.WithComponent("api")}
}

// Register mounts every route on r.
func (a *API) Register(r gin.IRouter) {
	limit := middleware.RateLimit(middleware.RateLimitConfig{RequestsPerMinute: a.deps.RateLimit})

	r.GET("/health", endpoint.Health(a.deps.ServiceName, a.deps.Health))
	r.GET("/info", endpoint.Info(a.deps.ServiceName))
	r.GET("/token", limit, a.issueToken)

	r.GET("/metrics", a.metricsSnapshot)
	r.GET("/metrics/stream", a.metricsStream)
	if a.deps.Prometheus != nil {
		r.GET("/metrics/prometheus", gin.WrapH(a.deps.Prometheus))
	}

	sessions := r.Group("/sessions")
	sessions.GET("", a.listSessions)
	sessions.POST("", limit, a.createSession)
	sessions.GET("/:id", a.getSession)
	sessions.DELETE("/:id", a.endSession)
	sessions.POST("/:id/turns", a.turn)

	r.GET("/ws", a.conversation)
	r.GET("/providers", a.listProviders)
	r.GET("/plugins", a.listPlugins)
}

// Mount registers the API on the server's engine.
func (s *Server) Mount(api *API) {
	api.Register(s.engine)
}

func (a *API) issueToken(c *gin.Context) {
	room, identity := c.Query("room"), c.Query("identity")
	if err := validation.New().
		Required("room", room).MaxLength("room", room, maxNameLength).
		Required("identity", identity).MaxLength("identity", identity, maxNameLength).
		Err(); err != nil {
		RespondWithError(c, err)
		return
	}
	if a.deps.Tokens == nil {
		err := apperrors.Configuration("LIVEKIT env not set")
		err.HTTPStatus = http.StatusInternalServerError
		RespondWithError(c, err)
		return
	}
	token, err := a.deps.Tokens.Issue(room, identity)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}

func (a *API) metricsSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, a.deps.Metrics.Snapshot())
}

func (a *API) metricsStream(c *gin.Context) {
	if a.deps.Stream == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event stream disabled"})
		return
	}
	sse.ServeSSE(a.deps.Stream, c.Writer, c.Request, uuid.NewString(),
		sse.WithSessionID(c.Query("session_id")),
		sse.WithNamePattern(c.Query("name")),
	)
}

type createSessionRequest struct {
	SessionID string              `json:"session_id" validate:"omitempty,max=128"`
	Room      string              `json:"room" validate:"required,max=128"`
	Config    *config.AgentConfig `json:"config" validate:"-"`
}

func (a *API) createSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, apperrors.InvalidInput("body", err.Error()))
		return
	}
	if err := validation.Validate(req); err != nil {
		RespondWithError(c, err)
		return
	}

	var opts []session.CreateOption
	if req.Config != nil {
		opts = append(opts, session.WithOverride(*req.Config))
	}
	rec, err := a.deps.Sessions.CreateSession(c.Request.Context(), req.SessionID, req.Room, opts...)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondCreated(c, rec)
}

func (a *API) listSessions(c *gin.Context) {
	RespondList(c, a.deps.Sessions.List())
}

func (a *API) getSession(c *gin.Context) {
	rec, err := a.deps.Sessions.Get(c.Param("id"))
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, rec)
}

func (a *API) endSession(c *gin.Context) {
	if err := a.deps.Sessions.EndSession(c.Request.Context(), c.Param("id")); err != nil {
		RespondWithError(c, err)
		return
	}
	RespondNoContent(c)
}

type turnRequest struct {
	Text string `json:"text" validate:"required,max=4096"`
}

func (a *API) turn(c *gin.Context) {
	var req turnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, apperrors.InvalidInput("body", err.Error()))
		return
	}
	if err := validation.Validate(req); err != nil {
		RespondWithError(c, err)
		return
	}
	res, err := a.deps.Sessions.Turn(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, res)
}

// conversation upgrades to a websocket and runs a session over it until the
// session ends.
func (a *API) conversation(c *gin.Context) {
	room := c.Query("room")
	if err := validation.New().
		Required("room", room).MaxLength("room", room, maxNameLength).
		MaxLength("identity", c.Query("identity"), maxNameLength).
		Err(); err != nil {
		RespondWithError(c, err)
		return
	}

	conn, err := websocket.Upgrade(c.Writer, c.Request)
	if err != nil {
		a.log.WithContext(c.Request.Context()).Warn("websocket upgrade failed", logger.ErrorFields("upgrade", err))
		return
	}
	defer conn.Close()

	ctx := context.WithoutCancel(c.Request.Context())
	rec, err := a.deps.Sessions.CreateSession(ctx, c.Query("session_id"), room, session.WithConn(conn))
	if err != nil {
		code := string(apperrors.ErrCodeInternal)
		if appErr, ok := apperrors.AsAppError(err); ok {
			code = string(appErr.Code)
		}
		conn.SendError(code, err.Error())
		return
	}
	s, ok := a.deps.Sessions.Session(rec.SessionID)
	if !ok {
		return
	}
	if err := conn.SendSession(rec.SessionID); err != nil {
		_ = a.deps.Sessions.EndSession(ctx, rec.SessionID)
	}
	a.log.WithContext(logger.ContextWithSession(ctx, rec.SessionID, room)).Info("websocket conversation started",
		logger.Fields("identity", c.Query("identity")))
	<-s.Terminated()
}

type providerView struct {
	Capability string `json:"capability"`
	Provider   string `json:"provider"`
	Model      string `json:"model,omitempty"`
	Voice      string `json:"voice,omitempty"`
	APIKey     string `json:"api_key,omitempty"`
}

func (a *API) listProviders(c *gin.Context) {
	var selected []providerView
	if a.deps.Agent != nil {
		agent := a.deps.Agent.Current()
		for _, capability := range provider.Capabilities {
			spec := agent.Spec(capability)
			view := providerView{Capability: string(capability), Provider: spec.Provider, Model: spec.Model, Voice: spec.Voice}
			if spec.APIKey != "" {
				view.APIKey = util.MaskSecret(spec.APIKey, 4)
			}
			selected = append(selected, view)
		}
	}
	var available []resolver.ProviderInfo
	if a.deps.Catalog != nil {
		available = a.deps.Catalog.Describe(a.deps.Lookup)
	}
	RespondOK(c, gin.H{"selected": selected, "available": available})
}

type pluginView struct {
	plugin.Info
	Enabled    bool `json:"enabled"`
	Configured bool `json:"configured"`
}

func (a *API) listPlugins(c *gin.Context) {
	entries := map[string]bool{}
	if a.deps.Agent != nil {
		for _, p := range a.deps.Agent.Current().Plugins {
			name := p.Name
			if canonical, ok := a.deps.Plugins.Canonical(name); ok {
				name = canonical
			}
			entries[name] = entries[name] || p.Enabled
		}
	}
	infos := a.deps.Plugins.List()
	views := make([]pluginView, 0, len(infos))
	for _, info := range infos {
		enabled, configured := entries[info.Name]
		views = append(views, pluginView{Info: info, Enabled: enabled, Configured: configured})
	}
	RespondList(c, views)
}
