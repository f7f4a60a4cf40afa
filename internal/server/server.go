// Package server exposes a session over HTTP.
//
// The API is small and JSON only:
//
//	GET  /health              liveness
//	GET  /document            the document in its persisted form
//	GET  /nodes/{id}          one node
//	PUT  /nodes/{id}/text     {"text": "..."} edits a node, converting it when needed
//	POST /commands/{name}     {"arg": "..."} dispatches a shell command
//	POST /save                {"name": "..."} saves the document
//	GET  /metrics             Prometheus metrics, when configured
//
// Failures answer with {"error": "...", "code": "..."} and a status derived
// from the error code.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/mdcanvas/pkg/codec"
	"github.com/matzehuels/mdcanvas/pkg/errors"
	"github.com/matzehuels/mdcanvas/pkg/session"
	"github.com/matzehuels/mdcanvas/pkg/shell"
)

// maxBodyBytes limits request bodies.
const maxBodyBytes = 1 << 20

// FingerprintHeader carries the document fingerprint on GET /document.
const FingerprintHeader = "X-Document-Fingerprint"

// Options configures a server.
type Options struct {
	Logger     *log.Logger
	Session    *session.Session
	Dispatcher *shell.Dispatcher
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

// Server serves one session.
type Server struct {
	logger  *log.Logger
	sess    *session.Session
	disp    *shell.Dispatcher
	metrics http.Handler
}

// New creates a server. A nil dispatcher is created over the session.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = opts.Session.Logger()
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = shell.New(opts.Session, opts.Logger)
	}
	return &Server{
		logger:  opts.Logger,
		sess:    opts.Session,
		disp:    opts.Dispatcher,
		metrics: opts.Metrics,
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(s.logger))

	r.Get("/health", s.health)
	r.Get("/document", s.getDocument)
	r.Get("/nodes/{id}", s.getNode)
	r.Put("/nodes/{id}/text", s.setText)
	r.Post("/commands/{name}", s.runCommand)
	r.Post("/save", s.save)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// =============================================================================
// Handlers
// =============================================================================

type textRequest struct {
	Text string `json:"text"`
}

type commandRequest struct {
	Arg string `json:"arg"`
}

type saveRequest struct {
	Name string `json:"name"`
}

type saveResponse struct {
	Name        string `json:"name"`
	Fingerprint string `json:"fingerprint"`
}

type errorResponse struct {
	Error string      `json:"error"`
	Code  errors.Code `json:"code,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getDocument(w http.ResponseWriter, _ *http.Request) {
	doc, err := s.sess.Document()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if fp, err := s.sess.Fingerprint(); err == nil {
		w.Header().Set(FingerprintHeader, fp)
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) getNode(w http.ResponseWriter, r *http.Request) {
	n, err := s.sess.Node(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, codec.ToPersisted(&n))
}

func (s *Server) setText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decode(w, r, &req, false); err != nil {
		s.writeError(w, err)
		return
	}
	n, err := s.sess.SetText(r.Context(), chi.URLParam(r, "id"), req.Text)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, codec.ToPersisted(&n))
}

func (s *Server) runCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := decode(w, r, &req, true); err != nil {
		s.writeError(w, err)
		return
	}
	res := s.disp.Dispatch(r.Context(), shell.Command{Name: chi.URLParam(r, "name"), Arg: req.Arg})
	status := http.StatusOK
	if !res.Success {
		status = errors.HTTPStatus(errors.New(res.Code, "%s", res.Message))
	}
	writeJSON(w, status, res)
}

func (s *Server) save(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := decode(w, r, &req, true); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.sess.SaveAs(r.Context(), req.Name); err != nil {
		s.writeError(w, err)
		return
	}
	fp, err := s.sess.Fingerprint()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saveResponse{Name: s.sess.Name(), Fingerprint: fp})
}

// =============================================================================
// Helpers
// =============================================================================

// decode reads a JSON body into v. An empty body is accepted when optional.
func decode(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if optional && stderrors.Is(err, io.EOF) {
			return nil
		}
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body")
	}
	return nil
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, errorResponse{Error: errors.UserMessage(err), Code: errors.GetCode(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
