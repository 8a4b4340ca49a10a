// Package server serves the built output tree for local preview and tells
// connected browsers to reload after every rebuild.
//
// The server only reads files. Pages are served as they were written, with a
// small live-reload script appended before the closing body tag.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/conneroisu/archipelago/internal/build"
	"github.com/conneroisu/archipelago/internal/config"
	"github.com/conneroisu/archipelago/internal/logging"
	"github.com/conneroisu/archipelago/internal/version"
)

// Message types sent to the browser.
const (
	MessageReload     = "reload"
	MessageBuildError = "build_error"
)

// LiveReloadPath is where the browser fetches the live-reload client.
const LiveReloadPath = "/__archipelago/livereload.js"

const liveReloadTag = `<script src="` + LiveReloadPath + `" defer></script>`

const liveReloadScript = `(() => {
  const scheme = location.protocol === "https:" ? "wss:" : "ws:";
  const connect = () => {
    const ws = new WebSocket(scheme + "//" + location.host + "/ws");
    ws.onmessage = (event) => {
      const msg = JSON.parse(event.data);
      if (msg.type === "reload") {
        location.reload();
      } else if (msg.type === "build_error") {
        console.error("archipelago: build failed\n" + msg.content);
      }
    };
    ws.onclose = () => setTimeout(connect, 1000);
  };
  connect();
})();
`

// UpdateMessage represents a message sent to the browser.
type UpdateMessage struct {
	Type      string    `json:"type"`
	BuildID   string    `json:"build_id,omitempty"`
	Content   string    `json:"content,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PreviewServer serves the output directory with live reload.
type PreviewServer struct {
	config       *config.Config
	fs           afero.Fs
	logger       logging.Logger
	hub          *Hub
	httpServer   *http.Server
	serverMutex  sync.RWMutex
	shutdownOnce sync.Once
}

// New creates a preview server for cfg.OutputDir on fs.
func New(cfg *config.Config, fs afero.Fs, logger logging.Logger) *PreviewServer {
	if logger == nil {
		logger = logging.Nop()
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	logger = logger.WithComponent("server")

	return &PreviewServer{
		config: cfg,
		fs:     fs,
		logger: logger,
		hub:    NewHub(logger, cfg.Server.Host, cfg.Server.Port),
	}
}

// Addr returns the listen address.
func (s *PreviewServer) Addr() string {
	return net.JoinHostPort(s.config.Server.Host, strconv.Itoa(s.config.Server.Port))
}

// Handler returns the HTTP handler with every route and middleware applied.
func (s *PreviewServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.hub.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc(LiveReloadPath, s.handleLiveReloadScript)
	mux.HandleFunc("/", s.handleStatic)
	return s.addMiddleware(mux)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *PreviewServer) Start(ctx context.Context) error {
	go s.hub.run(ctx)

	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	s.logger.Info(ctx, "Preview server listening", "url", "http://"+s.Addr(), "root", s.config.OutputDir)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}
}

// NotifyBuild tells every connected browser about a finished build: a reload
// on success, the error text on failure.
func (s *PreviewServer) NotifyBuild(ctx context.Context, report *build.Report, err error) {
	msg := UpdateMessage{Type: MessageReload, Timestamp: time.Now()}
	if report != nil {
		msg.BuildID = report.BuildID
	}
	if err != nil {
		msg.Type = MessageBuildError
		msg.Content = err.Error()
	}
	s.broadcastMessage(ctx, msg)
}

func (s *PreviewServer) broadcastMessage(ctx context.Context, msg UpdateMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Warn(ctx, err, "Failed to marshal message")
		data = []byte(`{"type":"reload"}`)
	}
	s.hub.Broadcast(ctx, data)
}

// Shutdown closes every live-reload connection and stops the HTTP server.
func (s *PreviewServer) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down preview server")
		s.hub.closeAll()

		s.serverMutex.RLock()
		server := s.httpServer
		s.serverMutex.RUnlock()

		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		}
	})

	return shutdownErr
}

func (s *PreviewServer) addMiddleware(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Cache-Control", "no-cache")

		start := time.Now()
		handler.ServeHTTP(w, r)
		s.logger.Debug(r.Context(), "Request served",
			"method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func (s *PreviewServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   version.GetShortVersion(),
		"root":      s.config.OutputDir,
		"clients":   s.hub.ClientCount(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.logger.Warn(r.Context(), err, "Failed to encode health response")
	}
}

func (s *PreviewServer) handleLiveReloadScript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	_, _ = w.Write([]byte(liveReloadScript))
}

// handleStatic serves a file from the output tree. "/about" resolves to
// about.html or about/index.html when no file of that exact name exists.
func (s *PreviewServer) handleStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name, ok := s.resolve(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	info, err := s.fs.Stat(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if filepath.Ext(name) == ".html" {
		data, err := afero.ReadFile(s.fs, name)
		if err != nil {
			http.Error(w, "Failed to read page", http.StatusInternalServerError)
			return
		}
		http.ServeContent(w, r, name, info.ModTime(), bytes.NewReader(injectLiveReload(data)))
		return
	}

	f, err := s.fs.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// resolve maps a request path to a regular file below the output directory.
func (s *PreviewServer) resolve(urlPath string) (string, bool) {
	rel := path.Clean("/" + urlPath)[1:]

	var candidates []string
	if rel == "" {
		candidates = []string{"index.html"}
	} else {
		candidates = []string{rel, rel + ".html", path.Join(rel, "index.html")}
	}

	for _, c := range candidates {
		name := filepath.Join(s.config.OutputDir, filepath.FromSlash(c))
		info, err := s.fs.Stat(name)
		if err == nil && info.Mode().IsRegular() {
			return name, true
		}
	}
	return "", false
}

// injectLiveReload places the live-reload script before the last closing body
// tag, or at the end of a fragment without one.
func injectLiveReload(page []byte) []byte {
	idx := bytes.LastIndex(bytes.ToLower(page), []byte("</body>"))
	if idx < 0 {
		return append(append([]byte{}, page...), liveReloadTag...)
	}

	out := make([]byte, 0, len(page)+len(liveReloadTag))
	out = append(out, page[:idx]...)
	out = append(out, liveReloadTag...)
	return append(out, page[idx:]...)
}
