package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/alarm-bridge/internal/domain/alarm"
	"github.com/oshokin/alarm-bridge/internal/metrics"
)

const (
	testSecret   = "test-signing-secret"
	testPassword = "open sesame"
)

var testNow = time.Unix(1_700_000_000, 0)

// fakeEngine records the commands it receives.
type fakeEngine struct {
	mu        sync.Mutex
	armed     bool
	actor     *domain.Actor
	delay     time.Duration
	scheduled bool
	requests  int
	// panics makes Armed blow up.
	panics bool
}

func (f *fakeEngine) Armed(context.Context) bool {
	if f.panics {
		panic("engine failure")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return f.armed
}

func (f *fakeEngine) SetArmed(_ context.Context, actor *domain.Actor, armed bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.armed = armed
	f.actor = actor
	f.scheduled = false

	return armed
}

func (f *fakeEngine) ArmAfter(_ context.Context, actor *domain.Actor, delay time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.armed {
		return false
	}

	f.actor = actor
	f.delay = delay
	f.scheduled = true

	return true
}

func (f *fakeEngine) RequestCaptures(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests++
}

func newTestServer(engine Engine, m *metrics.Metrics) *Server {
	return New(engine, Options{
		SigningSecret:      testSecret,
		SignatureTolerance: 300 * time.Second,
		FrontPassword:      testPassword,
		ArmDelay:           5 * time.Minute,
		Metrics:            m,
		Now:                func() time.Time { return testNow },
	})
}

func slashForm(user string) string {
	return url.Values{
		"token":      {"ignored"},
		"team_id":    {"T1"},
		"channel_id": {"C1"},
		"user_id":    {"U1"},
		"user_name":  {user},
		"command":    {"/alarm"},
	}.Encode()
}

func signedRequest(path, body string, age time.Duration) *http.Request {
	ts := strconv.FormatInt(testNow.Add(-age).Unix(), 10)

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(HeaderTimestamp, ts)
	req.Header.Set(HeaderSignature, Sign(testSecret, ts, []byte(body)))

	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	return rec
}

func decodeSlash(t *testing.T, rec *httptest.ResponseRecorder) slashResponse {
	t.Helper()

	var resp slashResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "in_channel", resp.ResponseType)

	return resp
}

// TestCommand_Arm arms the alarm on behalf of the chat user.
func TestCommand_Arm(t *testing.T) {
	t.Parallel()

	engine := new(fakeEngine)
	s := newTestServer(engine, nil)

	rec := serve(s, signedRequest("/command/arm", slashForm("alice"), 0))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeSlash(t, rec)
	require.True(t, strings.HasPrefix(resp.Text, "@alice "))
	require.True(t, engine.armed)
	require.Equal(t, &domain.Actor{Source: domain.SourceChat, Username: "alice"}, engine.actor)
}

// TestCommand_Rejected leaves the state alone on any signature problem.
func TestCommand_Rejected(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	engine := new(fakeEngine)
	s := newTestServer(engine, m)

	// Stale by one second more than the tolerance.
	rec := serve(s, signedRequest("/command/arm", slashForm("alice"), 301*time.Second))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Body changed after signing.
	req := signedRequest("/command/arm", slashForm("alice"), 0)
	req.Body = http.NoBody
	rec = serve(s, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// No headers at all.
	req = httptest.NewRequest(http.MethodPost, "/command/arm", strings.NewReader(slashForm("alice")))
	rec = serve(s, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	require.False(t, engine.armed)
	require.Nil(t, engine.actor)

	// Just inside the tolerance.
	rec = serve(s, signedRequest("/command/arm", slashForm("alice"), 299*time.Second))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, engine.armed)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Contains(t, rec.Body.String(), `alarm_bridge_rejected_requests_total{reason="signature"} 3`)
}

// TestCommand_MissingSecret rejects everything when no secret is configured.
func TestCommand_MissingSecret(t *testing.T) {
	t.Parallel()

	engine := new(fakeEngine)
	s := New(engine, Options{SignatureTolerance: time.Minute, Now: func() time.Time { return testNow }})

	rec := serve(s, signedRequest("/command/arm", slashForm("alice"), 0))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, engine.armed)
}

// TestCommand_SlackHeaders accepts the X-Slack-* header names.
func TestCommand_SlackHeaders(t *testing.T) {
	t.Parallel()

	engine := new(fakeEngine)
	s := newTestServer(engine, nil)
	body := slashForm("bob")
	ts := strconv.FormatInt(testNow.Unix(), 10)

	req := httptest.NewRequest(http.MethodPost, "/command/status", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", Sign(testSecret, ts, []byte(body)))

	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "@bob Alarm is off :no_entry_sign:", decodeSlash(t, rec).Text)
}

// TestCommand_ArmDelayed schedules once and refuses while armed.
func TestCommand_ArmDelayed(t *testing.T) {
	t.Parallel()

	engine := new(fakeEngine)
	s := newTestServer(engine, nil)

	rec := serve(s, signedRequest("/command/arm-delayed", slashForm("carol"), 0))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, decodeSlash(t, rec).Text, "arming in 5 minutes")
	require.True(t, engine.scheduled)
	require.Equal(t, 5*time.Minute, engine.delay)

	engine.armed = true

	rec = serve(s, signedRequest("/command/arm-delayed", slashForm("carol"), 0))
	require.Contains(t, decodeSlash(t, rec).Text, "already armed")
}

// TestCommand_DisarmStatusSnapshot covers the remaining commands.
func TestCommand_DisarmStatusSnapshot(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{armed: true}
	s := newTestServer(engine, nil)

	rec := serve(s, signedRequest("/command/status", slashForm("dave"), 0))
	require.Equal(t, "@dave Alarm is armed :white_check_mark:", decodeSlash(t, rec).Text)

	rec = serve(s, signedRequest("/command/disarm", slashForm("dave"), 0))
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, engine.armed)

	rec = serve(s, signedRequest("/command/snapshot", slashForm("dave"), 0))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, engine.requests)
}

// TestWallPanel checks the password gate and the toggle.
func TestWallPanel(t *testing.T) {
	t.Parallel()

	engine := new(fakeEngine)
	s := newTestServer(engine, nil)

	wall := func(method, path, password string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		if password != "" {
			req.Header.Set("Password", password)
		}

		return serve(s, req)
	}

	require.Equal(t, http.StatusForbidden, wall(http.MethodGet, "/status", "").Code)
	require.Equal(t, http.StatusForbidden, wall(http.MethodPost, "/enable", "wrong").Code)
	require.False(t, engine.armed)

	rec := wall(http.MethodPost, "/enable", testPassword)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"enabled":true}`, rec.Body.String())
	require.True(t, engine.armed)
	require.Equal(t, domain.SourceWall, engine.actor.Source)

	rec = wall(http.MethodGet, "/status", testPassword)
	require.JSONEq(t, `{"enabled":true}`, rec.Body.String())

	rec = wall(http.MethodPost, "/disable", testPassword)
	require.JSONEq(t, `{"enabled":false}`, rec.Body.String())
	require.False(t, engine.armed)
}

// TestWallPanel_NoPasswordConfigured keeps the panel closed.
func TestWallPanel_NoPasswordConfigured(t *testing.T) {
	t.Parallel()

	s := New(new(fakeEngine), Options{})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Password", "")

	require.Equal(t, http.StatusForbidden, serve(s, req).Code)
}

// TestHealthAndRecovery covers the probe and the panic guard.
func TestHealthAndRecovery(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeEngine{panics: true}, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Password", testPassword)
	require.Equal(t, http.StatusInternalServerError, serve(s, req).Code)

	// Metrics are not configured.
	require.Equal(t, http.StatusNotFound, serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil)).Code)
}

func TestHumanDelay(t *testing.T) {
	t.Parallel()

	require.Equal(t, "5 minutes", humanDelay(5*time.Minute))
	require.Equal(t, "1 minute", humanDelay(time.Minute))
	require.Equal(t, "1m30s", humanDelay(90*time.Second))
}
