package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cjeanneret/camctl/internal/debug"
	"github.com/cjeanneret/camctl/internal/hw/camera"
)

// Camera is the part of camera.Camera the HTTP layer drives.
type Camera interface {
	State() camera.State
	SessionInfo() (camera.SessionInfo, bool)
	ListDevices(ctx context.Context) []camera.Device
	WaitForConnection(ctx context.Context, interval time.Duration, model, port string) error
	Disconnect() error
	ListConfig(ctx context.Context) ([]camera.Setting, error)
	GetValue(ctx context.Context, name string) (string, error)
	SetValue(ctx context.Context, name, value string) error
	ListChoices(ctx context.Context, name string) ([]string, error)
	CaptureStill(ctx context.Context) (*camera.Shot, error)
	CapturePreview(ctx context.Context) (*camera.Shot, error)
}

// TimelapseRequest is the body of POST /run.
type TimelapseRequest struct {
	Count      int `json:"count"`
	IntervalMs int `json:"interval_ms"`
}

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

const (
	maxTimelapseCount    = 100000
	maxTimelapseInterval = 24 * 60 * 60 * 1000
)

// ValidateTimelapse checks a run request.
func ValidateTimelapse(r TimelapseRequest) error {
	if r.Count < 1 || r.Count > maxTimelapseCount {
		return fmt.Errorf("count must be between 1 and %d", maxTimelapseCount)
	}
	if r.IntervalMs < 0 || r.IntervalMs > maxTimelapseInterval {
		return fmt.Errorf("interval_ms must be between 0 and %d", maxTimelapseInterval)
	}
	return nil
}

// RunTimelapseFunc runs a timelapse. It is called from POST /run on its own
// goroutine.
type RunTimelapseFunc func(ctx context.Context, req TimelapseRequest) error

// ConnectDefaults is the target used when POST /api/connect names none.
type ConnectDefaults struct {
	Model         string        `json:"model"`
	Port          string        `json:"port"`
	RetryInterval time.Duration `json:"-"`
}

// FormConfig holds default values for the timelapse form.
type FormConfig struct {
	Count      int    `json:"count"`
	IntervalMs int    `json:"interval_ms"`
	OutputDir  string `json:"output_dir"`
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster  *StatusBroadcaster
	Camera       Camera
	RunTimelapse RunTimelapseFunc
	FormDefaults FormConfig
	Connect      ConnectDefaults

	// ctx bounds background work started by requests.
	ctx      context.Context
	staticFS fs.FS

	runningMu  sync.Mutex
	running    bool
	capturing  int
	connecting bool
}

// NewHandlers creates handlers. If runTimelapse is nil, POST /run returns
// 503 Service Unavailable.
func NewHandlers(broadcaster *StatusBroadcaster, cam Camera, runTimelapse RunTimelapseFunc, formDefaults FormConfig, connect ConnectDefaults, staticFS fs.FS) *Handlers {
	return &Handlers{
		Broadcaster:  broadcaster,
		Camera:       cam,
		RunTimelapse: runTimelapse,
		FormDefaults: formDefaults,
		Connect:      connect,
		ctx:          context.Background(),
		staticFS:     staticFS,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps camera errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, camera.ErrNotConnected), errors.Is(err, camera.ErrDisconnected):
		return http.StatusServiceUnavailable
	case errors.Is(err, camera.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, camera.ErrCoercionFailed):
		return http.StatusBadRequest
	case errors.Is(err, camera.ErrDecodeFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, camera.ErrCaptureFailed),
		errors.Is(err, camera.ErrWriteFailed),
		errors.Is(err, camera.ErrLookupFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

// sessionView is the JSON form of camera.SessionInfo.
type sessionView struct {
	ID    string    `json:"id"`
	Model string    `json:"model,omitempty"`
	Port  string    `json:"port,omitempty"`
	Since time.Time `json:"since"`
}

type statusView struct {
	State     string       `json:"state"`
	Session   *sessionView `json:"session,omitempty"`
	Running   bool         `json:"timelapse_running"`
	Listeners int          `json:"listeners"`
}

// HandleStatus handles GET /api/status.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	v := statusView{State: h.Camera.State().String()}
	if info, ok := h.Camera.SessionInfo(); ok {
		v.Session = &sessionView{
			ID:    info.ID.String(),
			Model: info.Model,
			Port:  info.Port,
			Since: info.Since,
		}
	}
	h.runningMu.Lock()
	v.Running = h.running
	h.runningMu.Unlock()
	if h.Broadcaster != nil {
		v.Listeners = h.Broadcaster.Clients()
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleDevices handles GET /api/devices.
func (h *Handlers) HandleDevices(w http.ResponseWriter, r *http.Request) {
	devices := h.Camera.ListDevices(r.Context())
	if devices == nil {
		devices = []camera.Device{}
	}
	writeJSON(w, http.StatusOK, devices)
}

// HandleConnect handles POST /api/connect. The wait runs in the background
// and its outcome is reported on the status stream.
func (h *Handlers) HandleConnect(w http.ResponseWriter, r *http.Request) {
	target := h.Connect
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&target); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
	}
	if h.Camera.State() == camera.StateConnected {
		writeJSON(w, http.StatusOK, map[string]string{"status": "connected"})
		return
	}

	if !h.startConnect(target) {
		http.Error(w, "connection already in progress", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "connecting"})
}

// startConnect waits for the camera in the background. At most one wait
// runs at a time; it returns false if one already does.
func (h *Handlers) startConnect(target ConnectDefaults) bool {
	h.runningMu.Lock()
	if h.connecting {
		h.runningMu.Unlock()
		return false
	}
	h.connecting = true
	h.runningMu.Unlock()

	interval := h.Connect.RetryInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	h.broadcastState(camera.StateConnecting)
	go func() {
		defer func() {
			h.runningMu.Lock()
			h.connecting = false
			h.runningMu.Unlock()
		}()
		if err := h.Camera.WaitForConnection(h.ctx, interval, target.Model, target.Port); err != nil {
			h.broadcast("error", "Connection aborted: "+err.Error())
			debug.Error(err)
			return
		}
		h.broadcastState(camera.StateConnected)
	}()
	return true
}

// HandleDisconnect handles POST /api/disconnect.
func (h *Handlers) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.Camera.Disconnect(); err != nil {
		writeError(w, err)
		return
	}
	h.broadcastState(camera.StateDisconnected)
	writeJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}

// HandleConfigList handles GET /api/config.
func (h *Handlers) HandleConfigList(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Camera.ListConfig(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

type valueView struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// HandleConfigGet handles GET /api/config/{name}.
func (h *Handlers) HandleConfigGet(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	v, err := h.Camera.GetValue(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, valueView{Name: name, Value: v})
}

// HandleConfigSet handles PUT /api/config/{name} with {"value": "..."} and
// answers with the value read back from the camera.
func (h *Handlers) HandleConfigSet(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var body struct {
		Value *string `json:"value"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Value == nil {
		http.Error(w, "invalid JSON: want {\"value\": \"...\"}", http.StatusBadRequest)
		return
	}
	if err := h.Camera.SetValue(r.Context(), name, *body.Value); err != nil {
		writeError(w, err)
		return
	}
	v, err := h.Camera.GetValue(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	h.broadcast("info", fmt.Sprintf("%s = %s", name, v))
	writeJSON(w, http.StatusOK, valueView{Name: name, Value: v})
}

// HandleConfigChoices handles GET /api/config/{name}/choices.
func (h *Handlers) HandleConfigChoices(w http.ResponseWriter, r *http.Request) {
	choices, err := h.Camera.ListChoices(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	if choices == nil {
		choices = []string{}
	}
	writeJSON(w, http.StatusOK, choices)
}

// HandleCapture handles POST /api/capture. The response body is the image.
func (h *Handlers) HandleCapture(w http.ResponseWriter, r *http.Request) {
	h.runningMu.Lock()
	if h.running {
		h.runningMu.Unlock()
		http.Error(w, "timelapse in progress", http.StatusConflict)
		return
	}
	h.capturing++
	h.runningMu.Unlock()
	defer func() {
		h.runningMu.Lock()
		h.capturing--
		h.runningMu.Unlock()
	}()

	shot, err := h.Camera.CaptureStill(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if h.Broadcaster != nil {
		h.Broadcaster.BroadcastShot(shot.Path.String())
	}
	w.Header().Set("X-Camera-Path", shot.Path.String())
	writeAsset(w, shot.Asset)
}

// HandlePreview handles GET /api/preview.
func (h *Handlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	shot, err := h.Camera.CapturePreview(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeAsset(w, shot.Asset)
}

func writeAsset(w http.ResponseWriter, a camera.Asset) {
	mime := a.MIMEType
	if mime == "" {
		mime = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(a.Data)
}

// HandleFormDefaults returns the timelapse form defaults as JSON.
func (h *Handlers) HandleFormDefaults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.FormDefaults)
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleRun handles POST /run to start a timelapse.
func (h *Handlers) HandleRun(w http.ResponseWriter, r *http.Request) {
	req := TimelapseRequest{Count: h.FormDefaults.Count, IntervalMs: h.FormDefaults.IntervalMs}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := ValidateTimelapse(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if h.RunTimelapse == nil {
		http.Error(w, "timelapse not configured", http.StatusServiceUnavailable)
		return
	}

	h.runningMu.Lock()
	if h.running {
		h.runningMu.Unlock()
		http.Error(w, "timelapse already in progress", http.StatusConflict)
		return
	}
	if h.capturing > 0 {
		h.runningMu.Unlock()
		http.Error(w, "capture in progress", http.StatusConflict)
		return
	}
	h.running = true
	h.runningMu.Unlock()

	go func() {
		defer func() {
			h.runningMu.Lock()
			h.running = false
			h.runningMu.Unlock()
		}()

		if err := h.RunTimelapse(h.ctx, req); err != nil {
			h.broadcast("error", "Timelapse failed: "+err.Error())
			debug.Error(err)
		} else {
			h.broadcast("info", "Timelapse complete")
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (h *Handlers) broadcast(level, msg string) {
	if h.Broadcaster != nil {
		h.Broadcaster.Broadcast(level, msg)
	}
}

func (h *Handlers) broadcastState(s camera.State) {
	if h.Broadcaster != nil {
		h.Broadcaster.BroadcastState(s.String())
	}
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
