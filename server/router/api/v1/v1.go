// Package v1 exposes the engine over HTTP. Handlers stay thin: parse,
// delegate to the engine, shape the response. All memory semantics live
// below this layer.
package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v4"

	"github.com/animus-chat/animus/internal/observability"
	"github.com/animus-chat/animus/internal/profile"
	"github.com/animus-chat/animus/server/engine"
	"github.com/animus-chat/animus/store"
)

type APIV1Service struct {
	Profile *profile.Profile
	Engine  *engine.Engine
	Logger  *slog.Logger
}

func NewAPIV1Service(p *profile.Profile, eng *engine.Engine, logger *slog.Logger) *APIV1Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIV1Service{
		Profile: p,
		Engine:  eng,
		Logger:  logger,
	}
}

// Register mounts all routes on the echo instance.
func (s *APIV1Service) Register(e *echo.Echo) {
	e.GET("/healthz", s.GetHealth)

	g := e.Group("/api/v1")
	g.POST("/sessions", s.CreateSession)
	g.GET("/sessions/:id/persona", s.GetPersona)
	g.PUT("/sessions/:id/persona", s.SetPersona)
	g.POST("/messages", s.StoreMessage)
	g.POST("/context", s.BuildContext)
}

// CreateSessionResponse carries the generated session id.
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

// CreateSession mints a new session id. The session's database file is
// created lazily on the first write.
// POST /api/v1/sessions
func (s *APIV1Service) CreateSession(c echo.Context) error {
	return c.JSON(http.StatusOK, CreateSessionResponse{SessionID: shortuuid.New()})
}

// StoreMessageRequest is the body of POST /api/v1/messages.
type StoreMessageRequest struct {
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
}

// StoreMessageResponse echoes the stored message's derived attributes.
type StoreMessageResponse struct {
	Seq        int64   `json:"seq"`
	Emotion    string  `json:"emotion"`
	Importance float64 `json:"importance"`
	Embedded   bool    `json:"embedded"`
}

// StoreMessage appends one turn to the session's memory.
// POST /api/v1/messages
func (s *APIV1Service) StoreMessage(c echo.Context) error {
	req := &StoreMessageRequest{}
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request body"})
	}
	if req.SessionID == "" || req.Content == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "session_id and content are required"})
	}
	role := store.Role(req.Role)
	if !role.Valid() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "role must be system, user, or assistant"})
	}

	reqCtx := observability.NewRequestContext(s.Logger, req.SessionID)
	ctx := observability.WithRequestContext(c.Request().Context(), reqCtx)

	message, err := s.Engine.StoreMessage(ctx, req.SessionID, role, req.Content)
	if err != nil {
		reqCtx.Error("failed to store message", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to store message"})
	}

	reqCtx.Info("stored message",
		slog.Int64("seq", message.Seq),
		slog.String("emotion", message.Emotion),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
	return c.JSON(http.StatusOK, StoreMessageResponse{
		Seq:        message.Seq,
		Emotion:    message.Emotion,
		Importance: message.Importance,
		Embedded:   message.Embedded(),
	})
}

// BuildContextRequest is the body of POST /api/v1/context.
type BuildContextRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// BuildContextResponse carries the assembled prompt.
type BuildContextResponse struct {
	Entries []EntryResponse `json:"entries"`
}

// EntryResponse is one prompt element.
type EntryResponse struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BuildContext assembles the prompt for the given user message. It does
// not store the message; callers pair it with POST /messages.
// POST /api/v1/context
func (s *APIV1Service) BuildContext(c echo.Context) error {
	req := &BuildContextRequest{}
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request body"})
	}
	if req.SessionID == "" || req.Message == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "session_id and message are required"})
	}

	reqCtx := observability.NewRequestContext(s.Logger, req.SessionID)
	ctx := observability.WithRequestContext(c.Request().Context(), reqCtx)

	entries, err := s.Engine.BuildContext(ctx, req.SessionID, req.Message)
	if err != nil {
		reqCtx.Error("failed to build context", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to build context"})
	}

	resp := BuildContextResponse{Entries: make([]EntryResponse, len(entries))}
	for i, e := range entries {
		resp.Entries[i] = EntryResponse{Role: e.Role, Content: e.Content}
	}
	reqCtx.Info("built context",
		slog.Int("entries", len(entries)),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
	return c.JSON(http.StatusOK, resp)
}

// PersonaResponse carries the persona text.
type PersonaResponse struct {
	Persona string `json:"persona"`
}

// GetPersona returns the session's persona, 404 when none is set.
// GET /api/v1/sessions/:id/persona
func (s *APIV1Service) GetPersona(c echo.Context) error {
	sessionID := c.Param("id")
	persona, ok, err := s.Engine.GetPersona(c.Request().Context(), sessionID)
	if err != nil {
		s.Logger.Error("failed to get persona", "session_id", sessionID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get persona"})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no persona set for session"})
	}
	return c.JSON(http.StatusOK, PersonaResponse{Persona: persona})
}

// SetPersonaRequest is the body of PUT /api/v1/sessions/:id/persona.
type SetPersonaRequest struct {
	Persona string `json:"persona"`
}

// SetPersona replaces the session's persona and rebuilds its chunk index.
// PUT /api/v1/sessions/:id/persona
func (s *APIV1Service) SetPersona(c echo.Context) error {
	sessionID := c.Param("id")
	req := &SetPersonaRequest{}
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request body"})
	}
	if req.Persona == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "persona is required"})
	}

	reqCtx := observability.NewRequestContext(s.Logger, sessionID)
	ctx := observability.WithRequestContext(c.Request().Context(), reqCtx)

	if err := s.Engine.SetPersona(ctx, sessionID, req.Persona); err != nil {
		reqCtx.Error("failed to set persona", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to set persona"})
	}
	reqCtx.Info("persona updated", slog.Int("length", len(req.Persona)))
	return c.JSON(http.StatusOK, PersonaResponse{Persona: req.Persona})
}

// GetHealth reports engine liveness.
// GET /healthz
func (s *APIV1Service) GetHealth(c echo.Context) error {
	health := s.Engine.HealthSnapshot(c.Request().Context())
	status := http.StatusOK
	if !health.StoreReachable {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, health)
}
