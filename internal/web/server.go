// Package web provides the HTTP surface of the bin monitor: status page,
// snapshot and event queries, and command submission.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sweeney/binwatch/internal/control"
	"github.com/sweeney/binwatch/internal/eventlog"
	"github.com/sweeney/binwatch/internal/status"
)

// DefaultCommandTimeout bounds how long a request waits for the control loop.
const DefaultCommandTimeout = 2 * time.Second

// CommandResult is the JSON body of a command response.
type CommandResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	tracker    *status.Tracker
	events     *eventlog.Log
	commands   control.Submitter
	timeout    time.Duration
}

// New creates a Server that reads state from the tracker and event log and
// forwards commands to the control loop.
func New(addr string, tracker *status.Tracker, events *eventlog.Log, commands control.Submitter) *Server {
	s := &Server{
		tracker:  tracker,
		events:   events,
		commands: commands,
		timeout:  DefaultCommandTimeout,
	}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/index.html", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/index.json", s.handleJSON).Methods(http.MethodGet)
	r.HandleFunc("/events.json", s.handleEvents).Methods(http.MethodGet)
	r.HandleFunc("/command/{name}", s.handleCommand).Methods(http.MethodPost)
	s.router = r

	h := handlers.LoggingHandler(log.Logger, r)
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// SetCommandTimeout changes how long command requests wait for the loop.
func (s *Server) SetCommandTimeout(d time.Duration) {
	s.timeout = d
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap, s.events.Entries()); err != nil {
		log.Warn().Err(err).Msg("render index")
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(s.tracker.Snapshot()))
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatEvents(s.events.Entries()))
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if !control.Known(name) {
		writeResult(w, http.StatusNotFound, control.ErrUnknownCommand)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeResult(w, http.StatusBadRequest, err)
		return
	}

	params := make(map[string]string, len(r.Form))
	for k := range r.Form {
		params[k] = r.Form.Get(k)
	}
	cmd, err := control.Parse(name, params)
	if err != nil {
		writeResult(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	err = s.commands.Submit(ctx, cmd)
	switch {
	case err == nil:
		writeResult(w, http.StatusOK, nil)
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, control.ErrQueueClosed):
		writeResult(w, http.StatusServiceUnavailable, err)
	default:
		writeResult(w, http.StatusBadRequest, err)
	}
}

func writeResult(w http.ResponseWriter, code int, err error) {
	res := CommandResult{OK: err == nil}
	if err != nil {
		res.Error = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(res)
}
