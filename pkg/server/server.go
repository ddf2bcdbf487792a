// Package server exposes the runtime over HTTP: session CRUD, the streaming
// turn endpoint and the out-of-band confirmation endpoint.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/threadkit/threadkit/pkg/api"
	"github.com/threadkit/threadkit/pkg/concurrent"
	"github.com/threadkit/threadkit/pkg/confirmation"
	"github.com/threadkit/threadkit/pkg/runtime"
	"github.com/threadkit/threadkit/pkg/session"
	"github.com/threadkit/threadkit/pkg/team"
)

const (
	headerUserID = "X-User-ID"
	headerTeamID = "X-Team-ID"
)

type Server struct {
	e        *echo.Echo
	rt       *runtime.Runtime
	sessions session.Store
	agents   *team.Team

	// activeTurns tracks sessions with an in-flight turn; a session runs at
	// most one turn at a time.
	activeTurns *concurrent.Map[string, struct{}]
}

func New(rt *runtime.Runtime, sessions session.Store, agents *team.Team) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.CORS())
	e.Use(middleware.Recover())
	e.Use(requestLogger())

	s := &Server{
		e:           e,
		rt:          rt,
		sessions:    sessions,
		agents:      agents,
		activeTurns: concurrent.NewMap[string, struct{}](),
	}

	group := e.Group("/api")

	group.GET("/agents", s.getAgents)
	group.GET("/agents/:name/tools", s.getAgentTools)
	group.GET("/tools", s.getTools)

	group.GET("/sessions", s.getSessions)
	group.POST("/sessions", s.createSession)
	group.GET("/sessions/:id", s.getSession)
	group.DELETE("/sessions/:id", s.deleteSession)

	// Run one turn; the response is the event stream.
	group.POST("/sessions/:id/messages", s.runTurn)

	// Out-of-band approval of a pending tool confirmation.
	group.POST("/confirmations/:id", s.resolveConfirmation)

	group.GET("/ping", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	return s
}

func (s *Server) Serve(ln net.Listener) error {
	srv := http.Server{Handler: s.e}
	return srv.Serve(ln)
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogMethod: true,
		LogURI:    true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			slog.Debug("Request", "method", v.Method, "uri", v.URI, "status", v.Status)
			return nil
		},
	})
}

func (s *Server) getAgents(c echo.Context) error {
	out := make([]api.AgentResponse, 0, s.agents.Size())
	for _, name := range s.agents.AgentNames() {
		a, err := s.agents.Agent(name)
		if err != nil {
			continue
		}
		out = append(out, api.AgentResponse{
			Name:        a.Name(),
			Description: a.Description(),
			SubAgents:   a.SubAgents(),
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) getAgentTools(c echo.Context) error {
	a, err := s.agents.Agent(c.Param("name"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}

	agentTools, err := a.Tools(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to list tools: %v", err))
	}

	out := make([]api.ToolResponse, len(agentTools))
	for i, t := range agentTools {
		out[i] = api.ToolResponse{
			Name:          t.Name,
			Description:   t.Description,
			ReadOnly:      t.Annotations.ReadOnlyHint,
			UIResourceRef: t.UIResourceRef,
		}
	}
	return c.JSON(http.StatusOK, out)
}

// getTools lists every tool across the team, deduplicated by name.
func (s *Server) getTools(c echo.Context) error {
	seen := make(map[string]bool)
	out := make([]api.ToolResponse, 0)
	for _, name := range s.agents.AgentNames() {
		a, err := s.agents.Agent(name)
		if err != nil {
			continue
		}
		agentTools, err := a.Tools(c.Request().Context())
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to list tools: %v", err))
		}
		for _, t := range agentTools {
			if seen[t.Name] {
				continue
			}
			seen[t.Name] = true
			out = append(out, api.ToolResponse{
				Name:          t.Name,
				Description:   t.Description,
				ReadOnly:      t.Annotations.ReadOnlyHint,
				UIResourceRef: t.UIResourceRef,
			})
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) getSessions(c echo.Context) error {
	sessions, err := s.sessions.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to list sessions: %v", err))
	}

	userID := c.Request().Header.Get(headerUserID)
	out := make([]api.SessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		if userID != "" && sess.UserID != userID {
			continue
		}
		out = append(out, sessionResponse(sess))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) createSession(c echo.Context) error {
	var req api.CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}

	agentName := req.AgentName
	if agentName == "" {
		agentName = "root"
	}
	if _, err := s.agents.Agent(agentName); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sess := session.New(
		session.WithAgentName(agentName),
		session.WithOwner(c.Request().Header.Get(headerUserID), c.Request().Header.Get(headerTeamID)),
		session.WithMaxRounds(req.MaxRounds),
	)
	if err := s.sessions.Create(c.Request().Context(), sess); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to create session: %v", err))
	}

	return c.JSON(http.StatusCreated, sessionResponse(sess))
}

func (s *Server) getSession(c echo.Context) error {
	sess, err := s.loadOwnedSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionResponse(sess))
}

func (s *Server) deleteSession(c echo.Context) error {
	sess, err := s.loadOwnedSession(c)
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(c.Request().Context(), sess.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to delete session: %v", err))
	}
	return c.NoContent(http.StatusNoContent)
}

// runTurn runs one turn and streams its events back as SSE frames. The
// connection's lifetime bounds the turn: closing it cancels the loop and
// abandons any pending confirmation.
func (s *Server) runTurn(c echo.Context) error {
	sess, err := s.loadOwnedSession(c)
	if err != nil {
		return err
	}

	var req api.RunMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}
	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}

	if _, running := s.activeTurns.LoadOrStore(sess.ID, struct{}{}); running {
		return echo.NewHTTPError(http.StatusConflict, "session already has a turn in progress")
	}
	defer s.activeTurns.Delete(sess.ID)

	sess.ContextParts = append(sess.ContextParts, req.Context...)
	sess.AddMessage(session.UserMessage(req.Content))

	events := s.rt.RunStream(c.Request().Context(), sess)

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	for event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			slog.Error("Failed to marshal event", "error", err)
			continue
		}
		fmt.Fprintf(c.Response(), "data: %s\n\n", data)
		c.Response().Flush()
	}

	return nil
}

// resolveConfirmation answers a pending tool confirmation. Ownership is
// verified here; the broker itself is pure state.
func (s *Server) resolveConfirmation(c echo.Context) error {
	id := c.Param("id")

	var req api.ResolveConfirmationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}

	scope := confirmation.Scope(req.Scope)
	if scope == "" {
		scope = confirmation.ScopeOnce
	}
	if !scope.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid scope: %s", req.Scope))
	}

	pending, ok := s.rt.Broker().Get(id)
	if !ok {
		return c.JSON(http.StatusOK, api.ResolveConfirmationResponse{Resolved: false})
	}
	if userID := c.Request().Header.Get(headerUserID); pending.UserID != "" && pending.UserID != userID {
		return echo.NewHTTPError(http.StatusForbidden, "confirmation belongs to another user")
	}

	resolved := s.rt.Broker().Resolve(id, req.Approved, scope)
	return c.JSON(http.StatusOK, api.ResolveConfirmationResponse{Resolved: resolved})
}

func (s *Server) loadOwnedSession(c echo.Context) (*session.Session, error) {
	sess, err := s.sessions.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("session not found: %v", err))
	}
	if userID := c.Request().Header.Get(headerUserID); sess.UserID != "" && sess.UserID != userID {
		return nil, echo.NewHTTPError(http.StatusForbidden, "session belongs to another user")
	}
	return sess, nil
}

func sessionResponse(sess *session.Session) api.SessionResponse {
	return api.SessionResponse{
		ID:           sess.ID,
		ParentID:     sess.ParentID,
		Title:        sess.Title,
		AgentName:    sess.AgentName,
		InputTokens:  sess.InputTokens,
		OutputTokens: sess.OutputTokens,
		CreatedAt:    sess.CreatedAt,
	}
}
