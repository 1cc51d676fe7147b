// Package httpfrontend exposes voltage-control submission, a health check, and Prometheus
// metrics over plain net/http, the way a small internal API is served without pulling in a web
// framework.
package httpfrontend

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/titone-mit/voltbridge/lalog"
	"github.com/titone-mit/voltbridge/voltage"
)

// Submitter is the subset of dispatch.Dispatcher this frontend needs.
type Submitter interface {
	Submit(tokens []string) (rc int, stdout, stderr string)
}

// Journal is the subset of queue.Queue this frontend needs: every command received over HTTP is
// recorded durably before it is submitted, so a device outage at submit time leaves the row
// unsent for the flusher to retry.
type Journal interface {
	Enqueue(cmd string, createdAtUnix int64) (int64, error)
	MarkSent(id int64, sentAtUnix int64) error
}

type sendRequest struct {
	Cmd     string `json:"cmd"`
	Command string `json:"command"`
}

type sendResponse struct {
	OK     bool   `json:"ok"`
	ID     int64  `json:"id"`
	RC     int    `json:"rc"`
	Stdout string `json:"stdout,omitempty"`
	Stderr string `json:"stderr,omitempty"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Voltage *int   `json:"voltage"`
}

// Server serves voltbridge's HTTP API.
type Server struct {
	Submit  Submitter
	Queue   Journal
	Voltage *voltage.State
	Logger  lalog.Logger
	Now     func() int64

	mux *http.ServeMux
}

// NewServer wires the HTTP routes: POST /send, GET /healthz, GET /metrics, and a JSON 404
// fallback for anything else.
func NewServer(sub Submitter, q Journal, vs *voltage.State, metricsHandler http.Handler, logger lalog.Logger) *Server {
	s := &Server{Submit: sub, Queue: q, Voltage: vs, Logger: logger}
	mux := http.NewServeMux()
	mux.HandleFunc("/send", s.handleSend)
	mux.HandleFunc("/healthz", s.handleHealthz)
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}
	mux.HandleFunc("/", s.handleNotFound)
	s.mux = mux
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) now() int64 {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().Unix()
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "request body must be JSON"})
		return
	}
	cmd := req.Cmd
	if cmd == "" {
		cmd = req.Command
	}
	if strings.TrimSpace(cmd) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cmd is required"})
		return
	}

	id, err := s.Queue.Enqueue(cmd, s.now())
	if err != nil {
		s.Logger.Warning("handleSend", err, "failed to record command %q durably", cmd)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to record command"})
		return
	}

	rc, stdout, stderr := s.Submit.Submit(strings.Fields(cmd))
	if rc != 0 {
		// Leave the row unsent so the flusher keeps retrying it.
		writeJSON(w, http.StatusInternalServerError, sendResponse{OK: false, ID: id, RC: rc, Stderr: stderr})
		return
	}
	if markErr := s.Queue.MarkSent(id, s.now()); markErr != nil {
		s.Logger.Warning("handleSend", markErr, "failed to mark queue entry %d sent", id)
	}
	writeJSON(w, http.StatusOK, sendResponse{OK: true, ID: id, RC: rc, Stdout: stdout})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if v, ok := s.Voltage.Get(); ok {
		resp.Voltage = &v
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// ListenAndServe builds the http.Server serving handler on addr; the caller starts and stops it.
func ListenAndServe(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *http.Server {
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	return srv
}
