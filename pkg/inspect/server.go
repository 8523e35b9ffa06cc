package inspect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/stackkit/internal/errors"
	"github.com/vango-dev/stackkit/pkg/overlay"
	"github.com/vango-dev/stackkit/pkg/vdom"
)

// Server exposes one stack over HTTP and a websocket feed.
type Server struct {
	stack  *overlay.Stack
	reg    *overlay.Registry
	logger *slog.Logger

	cmds    chan func()
	changed chan struct{}
	feed    *feed
	last    []byte

	middleware  []func(http.Handler) http.Handler
	checkOrigin func(*http.Request) bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMiddleware adds HTTP middleware in front of every route.
func WithMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(s *Server) {
		s.middleware = append(s.middleware, mw...)
	}
}

// WithCheckOrigin sets the websocket origin check. Default: allow all.
func WithCheckOrigin(fn func(*http.Request) bool) Option {
	return func(s *Server) {
		s.checkOrigin = fn
	}
}

// New creates a server for stack. reg resolves the keys accepted by /open.
func New(stack *overlay.Stack, reg *overlay.Registry, opts ...Option) *Server {
	s := &Server{
		stack:   stack,
		reg:     reg,
		logger:  slog.Default(),
		cmds:    make(chan func()),
		changed: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "inspect")
	s.feed = newFeed(s.checkOrigin)
	return s
}

// Run drives the stack until ctx is done. Requests block until Run is
// running.
func (s *Server) Run(ctx context.Context) error {
	cancel := s.stack.Watch(func() {
		select {
		case s.changed <- struct{}{}:
		default:
		}
	})
	defer cancel()
	defer s.feed.close()

	s.publish()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-s.cmds:
			cmd()
		case <-s.changed:
			s.publish()
		}
	}
}

// publish sends the snapshot to the feed when it differs from the last one.
func (s *Server) publish() {
	snap := s.stack.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		s.logger.Error("snapshot encode failed", "error", err)
		return
	}
	if bytes.Equal(data, s.last) {
		return
	}
	s.last = data
	s.feed.broadcast(Message{Type: MessageSnapshot, Snapshot: &snap})
}

// Do runs fn on the run goroutine and waits for it. A panic in fn is
// returned as an error.
func (s *Server) Do(ctx context.Context, fn func(*overlay.Stack)) error {
	errc := make(chan error, 1)
	cmd := func() {
		defer func() {
			if r := recover(); r != nil {
				if err, ok := r.(error); ok {
					errc <- err
					return
				}
				errc <- fmt.Errorf("inspect: %v", r)
			}
		}()
		fn(s.stack)
		errc <- nil
	}

	select {
	case s.cmds <- cmd:
	case <-ctx.Done():
		return errors.New("I003").Wrap(ctx.Err())
	}
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Clients returns the number of connected feed clients.
func (s *Server) Clients() int { return s.feed.count() }

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(s.middleware...)

	r.Get("/stack", s.handleStack)
	r.Post("/open/{key}", s.handleOpen)
	r.Post("/close/{id}", s.handleClose)
	r.Post("/close-current", s.handleCloseCurrent)
	r.Post("/close-all", s.handleCloseAll)
	r.Get("/render", s.handleRender)
	r.Get("/ws", s.handleWebSocket)
	return r
}

func (s *Server) handleStack(w http.ResponseWriter, r *http.Request) {
	var snap overlay.Snapshot
	if err := s.Do(r.Context(), func(st *overlay.Stack) { snap = st.Snapshot() }); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// OpenResponse is the body returned by /open.
type OpenResponse struct {
	ID     int  `json:"id"`
	Opened bool `json:"opened"`
	Result any  `json:"result,omitempty"`
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if !s.reg.Has(key) {
		s.writeError(w, errors.New("O006").WithDetailf("overlay %q", key))
		return
	}
	var props overlay.Props
	if err := decodeBody(r, &props); err != nil {
		s.writeError(w, err)
		return
	}

	var res overlay.OpenResult
	if err := s.Do(r.Context(), func(st *overlay.Stack) { res = st.Open(key, props, nil) }); err != nil {
		s.writeError(w, err)
		return
	}
	if res.ID == 0 {
		writeJSON(w, http.StatusOK, OpenResponse{})
		return
	}
	s.logger.Debug("overlay opened", "key", key, "id", res.ID)

	out := OpenResponse{ID: res.ID, Opened: true}
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		v, err := res.Result.Await(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}
		out.Result = v
		writeJSON(w, http.StatusOK, out)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, errors.New("I001").WithDetailf("id %q", chi.URLParam(r, "id")))
		return
	}
	var result any
	hasResult, err := decodeOptional(r, &result)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var ok bool
	err = s.Do(r.Context(), func(st *overlay.Stack) {
		if hasResult {
			ok = st.Close(id, result)
		} else {
			ok = st.Close(id)
		}
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !ok {
		s.writeError(w, errors.New("I001").WithDetailf("id %d", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCloseCurrent(w http.ResponseWriter, r *http.Request) {
	if err := s.Do(r.Context(), (*overlay.Stack).CloseCurrent); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCloseAll(w http.ResponseWriter, r *http.Request) {
	if err := s.Do(r.Context(), (*overlay.Stack).CloseAll); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var renderCtx any
	if v := r.URL.Query().Get("ctx"); v != "" {
		renderCtx = v
	}
	var html string
	err := s.Do(r.Context(), func(st *overlay.Stack) {
		if renderCtx != nil {
			html = vdom.HTML(st.Render(renderCtx))
			return
		}
		html = vdom.HTML(st.View())
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, html)
}

// handleWebSocket registers the connection and sends it the current
// snapshot from the run goroutine, then reads until the client goes away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.feed.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	err = s.Do(r.Context(), func(st *overlay.Stack) {
		snap := st.Snapshot()
		data, _ := json.Marshal(Message{Type: MessageSnapshot, Snapshot: &snap})
		if conn.WriteMessage(websocket.TextMessage, data) == nil {
			s.feed.add(conn)
		}
	})
	if err != nil {
		conn.Close()
		return
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.feed.remove(conn)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var e *errors.Error
	if errors.Code(err) != "" {
		e = errors.FromError(err, "")
	} else {
		e = errors.Newf(errors.CategoryInspect, "%s", err.Error())
	}
	status := http.StatusInternalServerError
	switch errors.Code(err) {
	case "O006", "I001":
		status = http.StatusNotFound
	case "I002":
		status = http.StatusBadRequest
	case "I003":
		status = http.StatusServiceUnavailable
	case "O001", "O002", "O003", "O004", "O005":
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, e.FormatJSON())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeBody decodes a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	_, err := decodeOptional(r, v)
	return err
}

func decodeOptional(r *http.Request, v any) (bool, error) {
	if r.Body == nil {
		return false, nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, errors.New("I002").Wrap(err)
	}
	return true, nil
}
