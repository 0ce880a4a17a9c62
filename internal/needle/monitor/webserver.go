// Package monitor serves the HTTP status and debug-chart interface of a
// tracking session, and renders post-session reports from the store.
package monitor

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/smartneedle/needletrack/internal/httputil"
	"github.com/smartneedle/needletrack/internal/needle"
	"github.com/smartneedle/needletrack/internal/needle/trackdb"
	"github.com/smartneedle/needletrack/internal/version"
)

// WebServer exposes the monitoring endpoints of a live tracking session:
// health check, JSON status and echarts debug charts backed by the store.
type WebServer struct {
	address string
	session *needle.Session
	store   *trackdb.Store
	server  *http.Server
}

// WebServerConfig configures the monitor server.
type WebServerConfig struct {
	Address string
	Session *needle.Session
	Store   *trackdb.Store
}

// NewWebServer creates the monitor server.
func NewWebServer(cfg WebServerConfig) *WebServer {
	ws := &WebServer{
		address: cfg.Address,
		session: cfg.Session,
		store:   cfg.Store,
	}
	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}
	return ws
}

// Start runs the HTTP server in a goroutine and shuts it down gracefully
// when the context is cancelled.
func (ws *WebServer) Start(ctx context.Context) error {
	go func() {
		log.Printf("starting monitor HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start monitor server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down monitor HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("monitor server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			log.Printf("monitor server force close error: %v", err)
		}
	}
	return nil
}

// Close shuts down the server immediately.
func (ws *WebServer) Close() error {
	if ws.server != nil {
		return ws.server.Close()
	}
	return nil
}

func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/api/session/status", ws.handleStatus)
	mux.HandleFunc("/api/session/cycles", ws.handleCycles)
	mux.HandleFunc("/debug/tracking-chart", ws.handleTrackingChart)
	return mux
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{
		"status":    "ok",
		"service":   "needletrack",
		"version":   version.Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if ws.session == nil {
		httputil.NotFound(w, "no active session")
		return
	}
	httputil.WriteJSONOK(w, ws.session.Status())
}

func (ws *WebServer) handleCycles(w http.ResponseWriter, r *http.Request) {
	if ws.store == nil || ws.session == nil {
		httputil.NotFound(w, "no session store available")
		return
	}
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		fmt.Sscanf(l, "%d", &limit)
	}
	cycles, err := ws.store.GetCycles(ws.session.ID, limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, cycles)
}
