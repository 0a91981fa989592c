package web

import (
	"context"
	"io/fs"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/cjeanneret/camctl/internal/hw/camera"
)

// Deps bundles what the server drives.
type Deps struct {
	Broadcaster  *StatusBroadcaster
	Camera       Camera
	RunTimelapse RunTimelapseFunc
	FormDefaults FormConfig
	Connect      ConnectDefaults

	// ConnectOnStart waits for the Connect target as soon as Run starts.
	ConnectOnStart bool

	// Advertise publishes the server over mDNS under InstanceName.
	Advertise    bool
	InstanceName string
}

// Server wraps the HTTP server and handlers.
type Server struct {
	addr     string
	deps     Deps
	handlers *Handlers
}

// NewServer creates a server configured for the given address and dependencies.
func NewServer(addr string, deps Deps) *Server {
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatalf("web: failed to sub static fs: %v", err)
	}
	if deps.Broadcaster == nil {
		deps.Broadcaster = NewStatusBroadcaster()
	}

	handlers := NewHandlers(deps.Broadcaster, deps.Camera, deps.RunTimelapse, deps.FormDefaults, deps.Connect, subFS)

	return &Server{
		addr:     addr,
		deps:     deps,
		handlers: handlers,
	}
}

// Mux returns an http.Handler with all routes registered.
func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()
	h := s.handlers

	mux.HandleFunc("GET /api/status", h.HandleStatus)
	mux.HandleFunc("GET /api/devices", h.HandleDevices)
	mux.HandleFunc("POST /api/connect", h.HandleConnect)
	mux.HandleFunc("POST /api/disconnect", h.HandleDisconnect)
	mux.HandleFunc("GET /api/config", h.HandleConfigList)
	// Full widget paths are sent with escaped slashes (%2F).
	mux.HandleFunc("GET /api/config/{name}", h.HandleConfigGet)
	mux.HandleFunc("PUT /api/config/{name}", h.HandleConfigSet)
	mux.HandleFunc("GET /api/config/{name}/choices", h.HandleConfigChoices)
	mux.HandleFunc("POST /api/capture", h.HandleCapture)
	mux.HandleFunc("GET /api/preview", h.HandlePreview)

	mux.HandleFunc("POST /run", h.HandleRun)
	mux.HandleFunc("GET /config", h.HandleFormDefaults)
	mux.HandleFunc("GET /status/stream", h.HandleStatusStream)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(h.staticFS))))
	mux.HandleFunc("GET /{$}", h.ServeIndex) // exact match for root only

	return mux
}

// Run starts the server and blocks until ctx is cancelled, then shuts down
// gracefully. Background work started by requests ends with ctx.
func (s *Server) Run(ctx context.Context) error {
	s.handlers.ctx = ctx
	if s.deps.ConnectOnStart && s.deps.Camera.State() != camera.StateConnected {
		s.handlers.startConnect(s.deps.Connect)
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: s.Mux()}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("web server listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	if s.deps.Advertise {
		port := ln.Addr().(*net.TCPAddr).Port
		adv, err := Advertise(s.deps.InstanceName, port, []string{"path=/", "version=1"})
		if err != nil {
			log.Printf("web: mDNS advertisement failed: %v", err)
		} else {
			defer adv.Shutdown()
		}
	}

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
