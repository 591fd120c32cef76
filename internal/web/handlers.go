package web

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bowerhall/faqdesk/internal/session"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	cookieName   = "faqdesk_uid"
	cookieMaxAge = 30 * 24 * time.Hour
)

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply    string `json:"reply"`
	ThreadID string `json:"thread_id,omitempty"`
}

type resetResponse struct {
	ThreadID string `json:"thread_id"`
	Message  string `json:"message"`
}

type statusResponse struct {
	Connected   bool            `json:"connected"`
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	Model       string          `json:"model,omitempty"`
	ThreadID    string          `json:"thread_id,omitempty"`
	Error       string          `json:"error,omitempty"`
	Alerts      []alertResponse `json:"alerts,omitempty"`
}

type alertResponse struct {
	Severity  string    `json:"severity"`
	Component string    `json:"component"`
	Message   string    `json:"message"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) Index(c echo.Context) error {
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		return err
	}
	return c.HTMLBlob(http.StatusOK, page)
}

func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) Chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "message is required"})
	}

	userID := userID(c)

	reply, err := s.agent.TryProcess(c.Request().Context(), userID, message)
	if errors.Is(err, session.ErrBusy) {
		return c.JSON(http.StatusTooManyRequests, errorResponse{Error: "a previous message is still being answered"})
	}

	threadID, _ := s.agent.Thread(userID)
	return c.JSON(http.StatusOK, chatResponse{Reply: reply, ThreadID: threadID})
}

func (s *Server) Reset(c echo.Context) error {
	threadID, err := s.agent.Reset(c.Request().Context(), userID(c))
	if err != nil {
		return c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, resetResponse{
		ThreadID: threadID,
		Message:  "🔄 A new conversation has started.",
	})
}

func (s *Server) Status(c echo.Context) error {
	resp := statusResponse{}

	info, err := s.agent.Info(c.Request().Context())
	if err != nil {
		resp.Error = err.Error()
	} else {
		resp.Connected = true
		resp.Name = info.Name
		resp.Description = info.Description
		resp.Model = info.Model
	}

	resp.ThreadID, _ = s.agent.Thread(userID(c))

	for _, ev := range s.agent.Alerts() {
		resp.Alerts = append(resp.Alerts, alertResponse{
			Severity:  ev.Severity.String(),
			Component: ev.Component,
			Message:   ev.Message,
			Error:     ev.Err,
			At:        ev.At,
		})
	}

	return c.JSON(http.StatusOK, resp)
}

// userID returns the browser's id from its cookie, issuing a new one on
// first contact.
func userID(c echo.Context) string {
	if cookie, err := c.Cookie(cookieName); err == nil {
		if _, err := uuid.Parse(cookie.Value); err == nil {
			return "web:" + cookie.Value
		}
	}

	id := uuid.NewString()
	c.SetCookie(&http.Cookie{
		Name:     cookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	// later calls in the same request must see the same id
	c.Request().AddCookie(&http.Cookie{Name: cookieName, Value: id})

	return "web:" + id
}
