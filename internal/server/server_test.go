package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"radio-controller/internal/command"
	"radio-controller/internal/config"
	"radio-controller/internal/core"
	"radio-controller/internal/scheduler"
	"radio-controller/internal/state"
)

func newTestServer(t *testing.T, mutate func(*config.Settings)) *Server {
	t.Helper()
	dir := t.TempDir()

	settings, err := config.LoadSettings(filepath.Join(dir, "absent.json"))
	require.NoError(t, err)
	settings.Radio.StateFile = filepath.Join(dir, "radio-state")
	settings.Radio.HardwareConfigFile = filepath.Join(dir, "hardware-config.yaml")
	settings.Radio.RadioPlayCmd = "echo"
	settings.Setup.MarkerFile = filepath.Join(dir, "setup-mode")
	settings.Setup.ApplyCmd = "cat"
	settings.SchedulesFile = filepath.Join(dir, "schedules.json")
	if mutate != nil {
		mutate(settings)
	}

	auth := command.NewAuthorizer(settings.Radio.RadioPlayCmd, settings.Radio.AllowShutdown)
	exec := command.NewExecutor(auth, 5*time.Second, zerolog.Nop())
	store := state.NewStore(settings.Radio.StateFile)
	sched := scheduler.NewScheduler(make(core.CommandChannel, 10), auth, settings.SchedulesFile, zerolog.Nop())

	return NewServer(settings, exec, store, sched, core.NewEventBus(), zerolog.Nop())
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestHandleCommandForbidden(t *testing.T) {
	s := newTestServer(t, nil)
	rec, resp := doJSON(t, s.Handler(), http.MethodPost, "/command", map[string]any{"command": "rm -rf /"})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "forbidden_command", resp["error_type"])
	assert.Equal(t, "Command not allowed: rm -rf /", resp["error"])
}

func TestHandleCommandSuccess(t *testing.T) {
	s := newTestServer(t, nil)
	rec, resp := doJSON(t, s.Handler(), http.MethodPost, "/command", map[string]any{"command": "radio-play 2 7"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "2 7", resp["output"])
	assert.Equal(t, "radio-play 2 7", resp["command"])
}

func TestHandleCommandRateLimited(t *testing.T) {
	s := newTestServer(t, func(c *config.Settings) {
		c.Radio.RateLimit = 0.001
		c.Radio.RateBurst = 1
	})

	rec, _ := doJSON(t, s.Handler(), http.MethodPost, "/command", map[string]any{"command": "rm -rf /"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, resp := doJSON(t, s.Handler(), http.MethodPost, "/command", map[string]any{"command": "rm -rf /"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limited", resp["error_type"])
}

func TestHandleCommandBadJSON(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/command", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_request", resp["error_type"])
}

func TestHandleStateMissingFile(t *testing.T) {
	s := newTestServer(t, nil)
	rec, resp := doJSON(t, s.Handler(), http.MethodGet, "/state", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, resp["success"])
	assert.Contains(t, resp["error"], "State file not found")
}

func TestHandleState(t *testing.T) {
	s := newTestServer(t, nil)
	require.NoError(t, s.store.Write(map[string]any{
		state.KeyCurrentBank:    2,
		state.KeyCurrentStation: 5,
		state.KeyStationName:    "BBC World Service",
		state.KeyPlaybackState:  "playing",
	}))

	rec, resp := doJSON(t, s.Handler(), http.MethodGet, "/state", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, 2.0, resp["bank"])
	assert.Equal(t, 5.0, resp["station"])
	assert.Equal(t, "BBC World Service", resp["station_name"])
	assert.Equal(t, "playing", resp["playback_state"])
}

func TestHandleConfig(t *testing.T) {
	s := newTestServer(t, nil)
	rec, resp := doJSON(t, s.Handler(), http.MethodGet, "/config", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "local", resp["mode"])
	assert.Equal(t, "echo", resp["radio_play_cmd"])
}

func TestHandleSourceRoundTrip(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.Handler()

	rec, resp := doJSON(t, h, http.MethodGet, "/source", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", resp["source_url"])

	rec, resp = doJSON(t, h, http.MethodPost, "/source", map[string]any{"url": "http://example/feed"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, resp["success"])

	rec, resp = doJSON(t, h, http.MethodGet, "/source", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://example/feed", resp["source_url"])
}

func TestHandleSourceMissingURL(t *testing.T) {
	s := newTestServer(t, nil)
	rec, resp := doJSON(t, s.Handler(), http.MethodPost, "/source", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", resp["error_type"])
}

func TestHandleSchedules(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.Handler()

	rec, resp := doJSON(t, h, http.MethodGet, "/schedules", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, resp["schedules"])

	rec, _ = doJSON(t, h, http.MethodPost, "/schedules", map[string]any{
		"spec": "0 7 * * *", "command": "radio-play 0 0",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, resp = doJSON(t, h, http.MethodGet, "/schedules", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	schedules, ok := resp["schedules"].(map[string]any)
	require.True(t, ok)
	require.Len(t, schedules, 1)

	for id := range schedules {
		n, err := strconv.Atoi(id)
		require.NoError(t, err)
		rec, _ = doJSON(t, h, http.MethodDelete, "/schedules", map[string]any{"id": n})
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	_, resp = doJSON(t, h, http.MethodGet, "/schedules", nil)
	assert.Empty(t, resp["schedules"])
}

func TestHandleSchedulesRejectsForbiddenCommand(t *testing.T) {
	s := newTestServer(t, nil)
	rec, resp := doJSON(t, s.Handler(), http.MethodPost, "/schedules", map[string]any{
		"spec": "0 7 * * *", "command": "rm -rf /",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden_command", resp["error_type"])
}

func TestHandleSchedulesInvalidSpec(t *testing.T) {
	s := newTestServer(t, nil)
	rec, resp := doJSON(t, s.Handler(), http.MethodPost, "/schedules", map[string]any{
		"spec": "whenever", "command": "mpc play",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", resp["error_type"])
}

func TestHandleSetupConfig(t *testing.T) {
	s := newTestServer(t, nil)
	_, resp := doJSON(t, s.Handler(), http.MethodGet, "/setup/config", nil)
	assert.Equal(t, false, resp["setup_mode"])

	require.NoError(t, os.WriteFile(s.settings.Setup.MarkerFile, nil, 0o644))
	_, resp = doJSON(t, s.Handler(), http.MethodGet, "/setup/config", nil)
	assert.Equal(t, true, resp["setup_mode"])
}

func TestHandleSetupApplyDisabled(t *testing.T) {
	s := newTestServer(t, nil)
	rec, resp := doJSON(t, s.Handler(), http.MethodPost, "/setup/apply", map[string]any{
		"ssid": "net", "password": "12345678", "hostname": "radio",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "setup_mode_disabled", resp["error_type"])
}

func TestHandleSetupApplyInvalidPayload(t *testing.T) {
	s := newTestServer(t, nil)
	require.NoError(t, os.WriteFile(s.settings.Setup.MarkerFile, nil, 0o644))

	rec, resp := doJSON(t, s.Handler(), http.MethodPost, "/setup/apply", map[string]any{
		"ssid": "net", "password": "short", "hostname": "radio",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_setup_payload", resp["error_type"])
	fields, ok := resp["fields"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, fields, "password")
}

func TestHandleSetupApplyPassthrough(t *testing.T) {
	// ApplyCmd is `cat`, so the helper echoes the payload JSON back and the
	// handler passes it through as the response body.
	s := newTestServer(t, nil)
	require.NoError(t, os.WriteFile(s.settings.Setup.MarkerFile, nil, 0o644))

	rec, resp := doJSON(t, s.Handler(), http.MethodPost, "/setup/apply", map[string]any{
		"ssid": "net", "password": "12345678", "hostname": "radio-1",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "net", resp["ssid"])
	assert.Equal(t, "radio-1", resp["hostname"])
}

func TestHandleStaticTraversalBlocked(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/%2e%2e%2fetc%2fpasswd", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestHandleStaticServesWebRoot(t *testing.T) {
	webDir := ""
	s := newTestServer(t, func(c *config.Settings) {
		webDir = filepath.Join(filepath.Dir(c.Radio.StateFile), "web")
		c.Server.WebFilesDir = webDir
	})
	require.NoError(t, os.MkdirAll(webDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(webDir, "radio.html"), []byte("<html>radio</html>"), 0o644))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "radio")
}
