// Package web exposes the sensor's live state over HTTP: an HTML dashboard
// at / and the same snapshot as JSON at /index.json. Every response is
// rendered from one status.Tracker snapshot, so a page never mixes the
// fields of two ticks.
package web

import (
	"bytes"
	"context"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/sweeney/button-sensor/internal/status"
)

// Server is the status endpoint of one daemon.
type Server struct {
	tracker *status.Tracker
	routes  map[string]page
	srv     *http.Server
}

// page renders a snapshot into a response body.
type page struct {
	contentType string
	render      func(*bytes.Buffer, status.Snapshot) error
}

// New returns a Server bound to addr. Nothing listens until ListenAndServe or Serve.
func New(addr string, tracker *status.Tracker) *Server {
	html := page{contentType: "text/html; charset=utf-8", render: renderIndex}
	s := &Server{
		tracker: tracker,
		routes: map[string]page{
			"/":           html,
			"/index.html": html,
			"/index.json": {contentType: "application/json", render: renderJSON},
		},
	}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the handler behind the listener, for httptest.
func (s *Server) Handler() http.Handler { return s }

// ListenAndServe blocks until Shutdown. It returns http.ErrServerClosed after a clean stop.
func (s *Server) ListenAndServe() error { return s.srv.ListenAndServe() }

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ln net.Listener) error { return s.srv.Serve(ln) }

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error { return s.srv.Shutdown(ctx) }

// ServeHTTP looks the path up in the route table and renders it from a
// fresh snapshot. The body is built before any header is written, so a
// failed render is a clean 500 rather than half a page.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p, ok := s.routes[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body bytes.Buffer
	if err := p.render(&body, s.tracker.Snapshot()); err != nil {
		log.Printf("web: render %s: %v", r.URL.Path, err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", p.contentType)
	h.Set("Cache-Control", "no-store")
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		log.Printf("web: write %s: %v", r.URL.Path, err)
	}
}

func renderIndex(buf *bytes.Buffer, snap status.Snapshot) error {
	return renderHTML(buf, snap)
}

func renderJSON(buf *bytes.Buffer, snap status.Snapshot) error {
	buf.Write(status.FormatJSON(snap))
	return nil
}
