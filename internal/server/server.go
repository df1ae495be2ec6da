// Package server is the local HTTP backend: a JSON API over the command
// whitelist, the persistent state record and the provisioning workflow,
// plus the static browser UI and a WebSocket push channel.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"radio-controller/internal/command"
	"radio-controller/internal/config"
	"radio-controller/internal/core"
	"radio-controller/internal/player"
	"radio-controller/internal/scheduler"
	"radio-controller/internal/state"
)

// Server manages the HTTP and WebSocket services.
type Server struct {
	Hub *Hub

	settings  *config.Settings
	executor  *command.Executor
	store     *state.Store
	scheduler *scheduler.Scheduler
	bus       *core.EventBus

	cmdTimeout   time.Duration
	applyTimeout time.Duration

	limiter    *rate.Limiter
	httpServer *http.Server
	upgrader   websocket.Upgrader
	log        zerolog.Logger
}

// NewServer creates a server instance wired to the given collaborators.
func NewServer(settings *config.Settings, executor *command.Executor, store *state.Store, sched *scheduler.Scheduler, bus *core.EventBus, log zerolog.Logger) *Server {
	hub := NewHub(log)
	go hub.Run()

	cmdTimeout, err := time.ParseDuration(settings.Radio.CommandTimeout)
	if err != nil {
		cmdTimeout = 10 * time.Second
	}
	applyTimeout, err := time.ParseDuration(settings.Radio.ApplyTimeout)
	if err != nil {
		applyTimeout = 60 * time.Second
	}

	s := &Server{
		Hub:          hub,
		settings:     settings,
		executor:     executor,
		store:        store,
		scheduler:    sched,
		bus:          bus,
		cmdTimeout:   cmdTimeout,
		applyTimeout: applyTimeout,
		limiter:      rate.NewLimiter(rate.Limit(settings.Radio.RateLimit), settings.Radio.RateBurst),
		log:          log,
	}

	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(s.settings.Server.AllowedOrigins) == 0 {
				s.log.Warn().Msg("websocket CheckOrigin is disabled")
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range s.settings.Server.AllowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			s.log.Warn().Str("origin", origin).Msg("websocket connection blocked")
			return false
		},
	}

	s.httpServer = &http.Server{Addr: ":" + settings.Server.Port, Handler: s.Handler()}
	return s
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleStatic)
	mux.HandleFunc("/config", s.handleConfig)
	mux.HandleFunc("/command", s.handleCommand)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/state", s.handleState)
	mux.HandleFunc("/source", s.handleSource)
	mux.HandleFunc("/schedules", s.handleSchedules)
	mux.HandleFunc("/setup/config", s.handleSetupConfig)
	mux.HandleFunc("/setup/apply", s.handleSetupApply)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warn().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) readJSONBody(w http.ResponseWriter, r *http.Request, optional bool) (map[string]any, bool) {
	if optional && (r.ContentLength == 0 || r.Body == nil) {
		return map[string]any{}, true
	}
	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{
			"success":    false,
			"error":      "Invalid request format",
			"error_type": "invalid_request",
		})
		return nil, false
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, true
}

func (s *Server) handleOptions(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.WriteHeader(http.StatusOK)
}

// handleStatic serves the browser UI: the default page at the root, the
// setup page in provisioning mode, and single-segment files from the web
// root. Anything that resolves outside the web root is refused.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	name := ""
	switch {
	case r.URL.Path == "/" || r.URL.Path == "":
		name = s.settings.Server.DefaultPage
	case r.URL.Path == "/setup" || r.URL.Path == "/setup.html" || r.URL.Path == "/"+s.settings.Server.SetupPage:
		name = s.settings.Server.SetupPage
	case strings.Count(r.URL.Path, "/") == 1 && !strings.HasSuffix(r.URL.Path, "/"):
		name = r.URL.Path[1:]
	default:
		http.NotFound(w, r)
		return
	}

	root, err := filepath.Abs(s.settings.Server.WebFilesDir)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	requested := filepath.Join(root, filepath.Clean("/"+name))
	if requested != root && !strings.HasPrefix(requested, root+string(os.PathSeparator)) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	http.ServeFile(w, r, requested)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		s.handleOptions(w)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"mode":           "local",
		"bind_port":      s.settings.Server.Port,
		"radio_play_cmd": s.settings.Radio.RadioPlayCmd,
	})
}

// handleCommand authorizes and executes one whitelisted command.
// Authorization always runs before lexing or substitution; anything not
// matching the whitelist never reaches a subprocess.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		s.handleOptions(w)
		return
	}
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if !s.limiter.Allow() {
		s.writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"success":    false,
			"error":      "Too many commands",
			"error_type": "rate_limited",
		})
		return
	}

	data, ok := s.readJSONBody(w, r, true)
	if !ok {
		return
	}
	cmd, _ := data["command"].(string)

	result, err := s.executor.Execute(r.Context(), cmd)
	switch {
	case errors.Is(err, command.ErrForbidden):
		s.writeJSON(w, http.StatusForbidden, map[string]any{
			"success":    false,
			"error":      fmt.Sprintf("Command not allowed: %s", cmd),
			"error_type": "forbidden_command",
		})
		return
	case errors.Is(err, command.ErrTimeout):
		s.writeJSON(w, http.StatusGatewayTimeout, map[string]any{
			"success":    false,
			"error":      "Command timed out",
			"error_type": "timeout",
		})
		return
	case errors.Is(err, command.ErrNotFound):
		s.writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success":    false,
			"error":      fmt.Sprintf("Command not found: %v", err),
			"error_type": "command_not_found",
		})
		return
	case err != nil:
		s.writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success":    false,
			"error":      err.Error(),
			"error_type": "command_failed",
		})
		return
	}

	if result.ExitCode != 0 {
		s.writeJSON(w, http.StatusOK, map[string]any{
			"success":    false,
			"error":      orDefault(strings.TrimSpace(result.Stderr), "Command failed"),
			"error_type": "command_failed",
			"exit_code":  result.ExitCode,
		})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"output":  strings.TrimSpace(result.Stdout),
		"command": cmd,
	})
	s.broadcastState()
}

// handleStatus reports the playback daemon's view via mpc. These internal
// invocations bypass the whitelist: the whitelist gates remotely supplied
// strings, not fixed argv values.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		s.handleOptions(w)
		return
	}
	if _, ok := s.readJSONBody(w, r, true); !ok {
		return
	}

	currentResult, err := command.Run(r.Context(), []string{"mpc", "current"}, s.cmdTimeout, "")
	if err == nil {
		var statusResult command.Result
		statusResult, err = command.Run(r.Context(), []string{"mpc", "status"}, s.cmdTimeout, "")
		if err == nil {
			current := ""
			if currentResult.ExitCode == 0 {
				current = currentResult.Stdout
			}
			st := player.Parse(current, statusResult.Stdout)
			s.writeJSON(w, http.StatusOK, map[string]any{
				"success":       true,
				"current_track": st.CurrentTrack,
				"is_playing":    st.IsPlaying,
				"is_paused":     st.IsPaused,
				"volume":        st.Volume,
			})
			return
		}
	}

	switch {
	case errors.Is(err, command.ErrTimeout):
		s.writeJSON(w, http.StatusGatewayTimeout, map[string]any{
			"success":    false,
			"error":      "Timeout getting status",
			"error_type": "timeout",
		})
	case errors.Is(err, command.ErrNotFound):
		s.writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success":    false,
			"error":      fmt.Sprintf("Command not found: %v", err),
			"error_type": "command_not_found",
		})
	default:
		s.writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success":    false,
			"error":      err.Error(),
			"error_type": "command_failed",
		})
	}
}

// handleState reports the persistent state record. Unlike config loading,
// a missing state file is reported explicitly here, not masked as empty.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		s.handleOptions(w)
		return
	}
	if _, ok := s.readJSONBody(w, r, true); !ok {
		return
	}

	record, err := s.store.ReadStrict()
	if err != nil {
		if os.IsNotExist(err) {
			s.writeJSON(w, http.StatusOK, map[string]any{
				"success": false,
				"error":   fmt.Sprintf("State file not found: %s", s.store.Path()),
			})
			return
		}
		s.writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success":    false,
			"error":      err.Error(),
			"error_type": "io_error",
		})
		return
	}

	s.writeJSON(w, http.StatusOK, stateResponse(record))
}

func stateResponse(record state.Record) map[string]any {
	return map[string]any{
		"success":        true,
		"bank":           record.GetInt(state.KeyCurrentBank, 0),
		"station":        record.GetInt(state.KeyCurrentStation, 0),
		"bank_name":      record.Get(state.KeyBankName, ""),
		"station_name":   record.Get(state.KeyStationName, ""),
		"playback_state": record.Get(state.KeyPlaybackState, "stopped"),
	}
}

// handleSource reads or updates the stations source URL persisted in the
// hardware config file.
func (s *Server) handleSource(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		s.handleOptions(w)
	case http.MethodGet:
		url, err := config.ReadSourceURL(s.settings.Radio.HardwareConfigFile)
		if err != nil {
			s.writeJSON(w, http.StatusInternalServerError, map[string]any{
				"success":    false,
				"error":      err.Error(),
				"error_type": "io_error",
			})
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "source_url": url})
	case http.MethodPost:
		data, ok := s.readJSONBody(w, r, false)
		if !ok {
			return
		}
		url, _ := data["url"].(string)
		url = strings.TrimSpace(url)
		if url == "" {
			s.writeJSON(w, http.StatusBadRequest, map[string]any{
				"success":    false,
				"error":      "url is required",
				"error_type": "invalid_request",
			})
			return
		}
		if err := config.WriteSourceURL(s.settings.Radio.HardwareConfigFile, url); err != nil {
			s.writeJSON(w, http.StatusInternalServerError, map[string]any{
				"success":    false,
				"error":      err.Error(),
				"error_type": "io_error",
			})
			return
		}
		s.log.Info().Str("source_url", url).Msg("updated stations source url")
		s.writeJSON(w, http.StatusOK, map[string]any{"success": true})
	default:
		http.NotFound(w, r)
	}
}

// handleSchedules lists, adds and removes scheduled commands. Added
// commands go through the same whitelist as immediate ones; the scheduler
// refuses anything the authorizer would.
func (s *Server) handleSchedules(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodOptions:
		s.handleOptions(w)
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"schedules": s.scheduler.GetAll(),
		})
	case http.MethodPost:
		data, ok := s.readJSONBody(w, r, false)
		if !ok {
			return
		}
		spec, _ := data["spec"].(string)
		cmd, _ := data["command"].(string)
		if err := s.scheduler.Add(spec, cmd); err != nil {
			status := http.StatusBadRequest
			errType := "invalid_request"
			if !s.executor.Authorizer().IsAllowed(cmd) {
				status = http.StatusForbidden
				errType = "forbidden_command"
			}
			s.writeJSON(w, status, map[string]any{
				"success":    false,
				"error":      err.Error(),
				"error_type": errType,
			})
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"success": true})
		s.broadcastSchedules()
	case http.MethodDelete:
		data, ok := s.readJSONBody(w, r, false)
		if !ok {
			return
		}
		id, ok := data["id"].(float64)
		if !ok {
			s.writeJSON(w, http.StatusBadRequest, map[string]any{
				"success":    false,
				"error":      "id is required",
				"error_type": "invalid_request",
			})
			return
		}
		s.scheduler.Remove(int(id))
		s.writeJSON(w, http.StatusOK, map[string]any{"success": true})
		s.broadcastSchedules()
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleSetupConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		s.handleOptions(w)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"setup_mode": isSetupMode(s.settings.Setup.MarkerFile),
		"setup_page": s.settings.Server.SetupPage,
	})
}

// handleSetupApply runs the privileged network-config helper with the
// validated provisioning payload on stdin. This is the long-timeout call
// site; ordinary commands use the short timeout.
func (s *Server) handleSetupApply(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		s.handleOptions(w)
		return
	}
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if !isSetupMode(s.settings.Setup.MarkerFile) {
		s.writeJSON(w, http.StatusForbidden, map[string]any{
			"success":    false,
			"error":      "Setup mode is not enabled",
			"error_type": "setup_mode_disabled",
		})
		return
	}

	data, ok := s.readJSONBody(w, r, false)
	if !ok {
		return
	}
	payload, fieldErrors := validateSetupPayload(data)
	if fieldErrors != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{
			"success":    false,
			"error":      "Invalid setup payload",
			"error_type": "invalid_setup_payload",
			"fields":     fieldErrors,
		})
		return
	}

	argv, err := shlex.Split(s.settings.Setup.ApplyCmd)
	if err != nil || len(argv) == 0 {
		s.writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success":    false,
			"error":      "Apply command misconfigured",
			"error_type": "command_not_found",
		})
		return
	}

	stdin, _ := json.Marshal(payload)
	result, err := command.Run(r.Context(), argv, s.applyTimeout, string(stdin))
	switch {
	case errors.Is(err, command.ErrTimeout):
		s.writeJSON(w, http.StatusGatewayTimeout, map[string]any{
			"success":    false,
			"error":      "Apply command timed out",
			"error_type": "timeout",
		})
		return
	case errors.Is(err, command.ErrNotFound):
		s.writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success":    false,
			"error":      fmt.Sprintf("Apply command missing: %v", err),
			"error_type": "command_not_found",
		})
		return
	case err != nil:
		s.writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success":    false,
			"error":      err.Error(),
			"error_type": "apply_failed",
		})
		return
	}

	if result.ExitCode != 0 {
		s.writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success":    false,
			"error":      orDefault(strings.TrimSpace(result.Stderr), "Failed to apply settings"),
			"error_type": "apply_failed",
			"exit_code":  result.ExitCode,
		})
		return
	}

	// The helper may print a JSON result of its own; pass it through.
	if output := strings.TrimSpace(result.Stdout); output != "" {
		var parsed map[string]any
		if json.Unmarshal([]byte(output), &parsed) == nil && parsed != nil {
			s.writeJSON(w, http.StatusOK, parsed)
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Settings applied"})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade error")
		return
	}
	defer conn.Close()

	// Send current snapshots so a fresh client renders without polling.
	if record, err := s.store.Read(); err == nil {
		_ = conn.WriteJSON(NewMessage("state_update", stateResponse(record)))
	}
	if s.scheduler != nil {
		_ = conn.WriteJSON(NewMessage("schedule_list", s.scheduler.GetAll()))
	}

	s.Hub.register <- conn
	defer func() {
		s.Hub.unregister <- conn
	}()

	// Push-only channel: the read loop just detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// broadcastState pushes the persisted state record to WebSocket clients
// and onto the event bus (for the MQTT bridge).
func (s *Server) broadcastState() {
	record, err := s.store.Read()
	if err != nil {
		s.log.Warn().Err(err).Msg("cannot read state for broadcast")
		return
	}
	payload := stateResponse(record)
	select {
	case s.Hub.broadcast <- NewMessage("state_update", payload):
	default:
	}
	if s.bus != nil {
		s.bus.Publish(core.Event{Type: core.StateChangedEvent, Payload: payload})
	}
}

// broadcastSchedules pushes the current schedule list to WebSocket clients
// and announces the change on the event bus.
func (s *Server) broadcastSchedules() {
	payload := s.scheduler.GetAll()
	select {
	case s.Hub.broadcast <- NewMessage("schedule_list", payload):
	default:
	}
	if s.bus != nil {
		s.bus.Publish(core.Event{Type: core.ScheduleChangedEvent, Payload: payload})
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
