package web_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bowerhall/faqdesk/internal/agent"
	"github.com/bowerhall/faqdesk/internal/alerts"
	"github.com/bowerhall/faqdesk/internal/assistant/assistanttest"
	"github.com/bowerhall/faqdesk/internal/runner"
	"github.com/bowerhall/faqdesk/internal/session"
	"github.com/bowerhall/faqdesk/internal/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type instantClock struct{}

func (instantClock) Now() time.Time { return time.Time{} }

func (instantClock) Sleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func newTestServer(t *testing.T, fake *assistanttest.Fake) (*web.Server, *agent.Agent) {
	t.Helper()

	exec := runner.New(fake, runner.Options{AssistantID: "asst_test", Clock: instantClock{}})
	a := agent.New(fake, session.NewStore(fake), exec)

	return web.New(":0", a), a
}

func do(t *testing.T, srv *web.Server, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func uidCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, c := range rec.Result().Cookies() {
		if c.Name == "faqdesk_uid" {
			return c
		}
	}
	t.Fatal("faqdesk_uid cookie not set")
	return nil
}

func TestIndex(t *testing.T) {
	srv, _ := newTestServer(t, assistanttest.Completing("ok"))

	rec := do(t, srv, http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "/api/chat")
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, assistanttest.Completing("ok"))

	rec := do(t, srv, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestChat(t *testing.T) {
	fake := assistanttest.Completing("Attendance is checked at 9am.")
	srv, _ := newTestServer(t, fake)

	rec := do(t, srv, http.MethodPost, "/api/chat", `{"message":"attendance?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Reply    string `json:"reply"`
		ThreadID string `json:"thread_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "Attendance is checked at 9am.", resp.Reply)
	assert.Equal(t, "thread_1", resp.ThreadID)

	cookie := uidCookie(t, rec)

	fake.Statuses = nil
	rec = do(t, srv, http.MethodPost, "/api/chat", `{"message":"and lateness?"}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1, fake.ThreadCount(), "same cookie should reuse the thread")
}

func TestChatSeparatesBrowsers(t *testing.T) {
	fake := assistanttest.Completing("ok")
	srv, _ := newTestServer(t, fake)

	do(t, srv, http.MethodPost, "/api/chat", `{"message":"hello"}`)
	do(t, srv, http.MethodPost, "/api/chat", `{"message":"hello"}`)

	assert.Equal(t, 2, fake.ThreadCount())
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	fake := assistanttest.Completing("ok")
	srv, _ := newTestServer(t, fake)

	rec := do(t, srv, http.MethodPost, "/api/chat", `{"message":"   "}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, fake.ThreadCount())
}

func TestChatRejectsBadJSON(t *testing.T) {
	srv, _ := newTestServer(t, assistanttest.Completing("ok"))

	rec := do(t, srv, http.MethodPost, "/api/chat", `{"message":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatBusy(t *testing.T) {
	srv, a := newTestServer(t, assistanttest.Completing("ok"))

	id := "0b7f3e02-3c5e-4d8c-9a43-1f7fe4b0c2aa"
	cookie := &http.Cookie{Name: "faqdesk_uid", Value: id}

	require.True(t, a.Sessions().TryAcquire("web:"+id))
	defer a.Sessions().Release("web:" + id)

	rec := do(t, srv, http.MethodPost, "/api/chat", `{"message":"hello"}`, cookie)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestChatErrorIsDisplayed(t *testing.T) {
	fake := assistanttest.Completing("ok")
	fake.RunErr = errors.New("service unavailable")
	srv, _ := newTestServer(t, fake)

	rec := do(t, srv, http.MethodPost, "/api/chat", `{"message":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Contains(t, rec.Body.String(), "service unavailable")
	assert.Contains(t, rec.Body.String(), runner.ErrorMarker)
}

func TestReset(t *testing.T) {
	fake := assistanttest.Completing("ok")
	srv, _ := newTestServer(t, fake)

	rec := do(t, srv, http.MethodPost, "/api/chat", `{"message":"hello"}`)
	cookie := uidCookie(t, rec)

	rec = do(t, srv, http.MethodPost, "/api/reset", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ThreadID string `json:"thread_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "thread_2", resp.ThreadID)
}

func TestResetFailure(t *testing.T) {
	fake := assistanttest.Completing("ok")
	fake.ThreadErr = errors.New("service unavailable")
	srv, _ := newTestServer(t, fake)

	rec := do(t, srv, http.MethodPost, "/api/reset", "")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestStatus(t *testing.T) {
	srv, _ := newTestServer(t, assistanttest.Completing("ok"))

	rec := do(t, srv, http.MethodPost, "/api/chat", `{"message":"hello"}`)
	cookie := uidCookie(t, rec)

	rec = do(t, srv, http.MethodGet, "/api/status", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Connected bool   `json:"connected"`
		Name      string `json:"name"`
		ThreadID  string `json:"thread_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.True(t, resp.Connected)
	assert.Equal(t, "FAQ Assistant", resp.Name)
	assert.Equal(t, "thread_1", resp.ThreadID)
}

func TestStatusDisconnected(t *testing.T) {
	fake := assistanttest.Completing("ok")
	fake.InfoErr = errors.New("invalid api key")
	srv, _ := newTestServer(t, fake)

	rec := do(t, srv, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Contains(t, rec.Body.String(), `"connected":false`)
	assert.Contains(t, rec.Body.String(), "invalid api key")
}

func TestStatusReportsAlerts(t *testing.T) {
	fake := assistanttest.Completing("ok")
	fake.RunErr = errors.New("service unavailable")
	srv, a := newTestServer(t, fake)
	a.SetAlerter(alerts.New(nil, time.Hour))

	do(t, srv, http.MethodPost, "/api/chat", `{"message":"hello"}`)

	rec := do(t, srv, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Alerts []struct {
			Severity  string `json:"severity"`
			Component string `json:"component"`
			Error     string `json:"error"`
		} `json:"alerts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Len(t, resp.Alerts, 1)
	assert.Equal(t, "critical", resp.Alerts[0].Severity)
	assert.Equal(t, "assistant", resp.Alerts[0].Component)
	assert.Contains(t, resp.Alerts[0].Error, "service unavailable")
}

func TestSystem(t *testing.T) {
	srv, _ := newTestServer(t, assistanttest.Completing("ok"))

	do(t, srv, http.MethodPost, "/api/chat", `{"message":"hello"}`)

	rec := do(t, srv, http.MethodGet, "/api/system", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		OS         string `json:"os"`
		Goroutines int    `json:"goroutines"`
		Sessions   int    `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.NotEmpty(t, resp.OS)
	assert.Positive(t, resp.Goroutines)
	assert.Equal(t, 1, resp.Sessions)
}
