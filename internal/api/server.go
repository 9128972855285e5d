package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"git.home.luguber.info/inful/manyvis/internal/diagram"
	"git.home.luguber.info/inful/manyvis/internal/dispatcher"
	"git.home.luguber.info/inful/manyvis/internal/export"
	ferrors "git.home.luguber.info/inful/manyvis/internal/foundation/errors"
	"git.home.luguber.info/inful/manyvis/internal/logfields"
)

// Options tunes a Server. Zero values select the defaults.
type Options struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// RequestTimeout bounds every route except the editor round trip and
	// the event stream.
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	MetricsPath    string
	Metrics        http.Handler
	KeepAlive      time.Duration
}

// Server represents the API server.
type Server struct {
	Addr       string
	router     *chi.Mux
	server     *http.Server
	dispatcher *dispatcher.Dispatcher
	events     *EventSubscriber
	errors     *ferrors.HTTPErrorAdapter
	keepAlive  time.Duration

	// Triggers outlive their request; they run under baseCtx.
	baseCtx  context.Context
	cancel   context.CancelFunc
	triggers sync.WaitGroup
}

// NewServer creates a new API server. Events emitted by d reach /events only
// when d was built with events as its emitter.
func NewServer(addr string, d *dispatcher.Dispatcher, events *EventSubscriber, opts Options) *Server {
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 15 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 60 * time.Second
	}
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.MaxBodyBytes == 0 {
		opts.MaxBodyBytes = 8 << 20
	}
	if opts.KeepAlive == 0 {
		opts.KeepAlive = 30 * time.Second
	}
	if events == nil {
		events = NewEventSubscriber()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		Addr:       addr,
		router:     chi.NewRouter(),
		dispatcher: d,
		events:     events,
		errors:     ferrors.NewHTTPErrorAdapter(nil),
		keepAlive:  opts.KeepAlive,
		baseCtx:    ctx,
		cancel:     cancel,
	}
	s.setupRoutes(opts)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes(opts Options) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(limitBody(opts.MaxBodyBytes))

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/events", s.handleEvents)
	s.router.Post("/edit", s.handleEdit)

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(opts.RequestTimeout))
		r.Use(jsonContent)

		r.Post("/parse", s.handleParse)
		r.Get("/diagram", s.handleGetDiagram)
		r.Post("/diagram/update", s.handleUpdateDiagram)
		r.Get("/attributes", s.handleGetAttributes)
		r.Get("/base-configuration", s.handleGetBaseConfiguration)
		r.Get("/info/{groupID}", s.handleGetInfo)
		r.Get("/system", s.handleExportSystemText)
		r.Post("/export", s.handleExportDiagram)
		r.Post("/configuration/store", s.handleStoreConfiguration)
		r.Post("/configuration/load", s.handleLoadConfiguration)
		r.Post("/triggers/{name}", s.handleTrigger)
	})

	if opts.Metrics != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.router.Handle(path, opts.Metrics)
	}
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start starts the API server.
func (s *Server) Start() error {
	slog.Info("API server listening", slog.String("addr", s.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, cancels running triggers and waits
// for them to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.server.Shutdown(ctx)
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.triggers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return errors.Join(err, ctx.Err())
	}
	return err
}

// writeResult writes a dispatcher result with the status implied by its
// error category.
func (s *Server) writeResult(w http.ResponseWriter, r *http.Request, res dispatcher.Result) {
	status := http.StatusOK
	if !res.OK() {
		status = s.errors.WriteHeaders(r.Context(), w, res.Err)
		slog.Debug("Command rejected",
			logfields.Method(r.Method),
			logfields.Path(r.URL.Path),
			logfields.Status(status),
			logfields.RequestID(middleware.GetReqID(r.Context())),
			logfields.Category(string(res.Err.Category())))
	}
	s.writeJSON(w, status, res)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", logfields.Error(err))
	}
}

// badRequest reports a body that could not be decoded.
func (s *Server) badRequest(w http.ResponseWriter, err error) {
	ce := ferrors.WrapError(err, ferrors.CategoryValidation, "Invalid request body").Build()
	s.writeJSON(w, http.StatusBadRequest, dispatcher.Result{Status: dispatcher.StatusError, Message: ce.Message()})
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// withPath attaches a fixed file picker when the request names a path.
func withPath(ctx context.Context, path string) context.Context {
	if path == "" {
		return ctx
	}
	return export.ContextWithPicker(ctx, export.FixedPath{Path: path})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// ParseRequest names the system file to load.
type ParseRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if err := decode(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}
	s.writeResult(w, r, s.dispatcher.Parse(r.Context(), req.Path))
}

func (s *Server) handleGetDiagram(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, r, s.dispatcher.GetDiagram(r.Context()))
}

// UpdateRequest carries a complete configuration.
type UpdateRequest struct {
	Configuration     diagram.Configuration     `json:"configuration"`
	BaseConfiguration diagram.BaseConfiguration `json:"baseConfiguration"`
}

func (s *Server) handleUpdateDiagram(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := decode(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}
	s.writeResult(w, r, s.dispatcher.UpdateDiagram(r.Context(), req.Configuration, req.BaseConfiguration))
}

func (s *Server) handleGetAttributes(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, r, s.dispatcher.GetAttributes(r.Context()))
}

func (s *Server) handleGetBaseConfiguration(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, r, s.dispatcher.GetBaseConfiguration(r.Context()))
}

func (s *Server) handleGetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, r, s.dispatcher.GetInfo(r.Context(), chi.URLParam(r, "groupID")))
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, r, s.dispatcher.InitiateEdit(r.Context()))
}

func (s *Server) handleExportSystemText(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, r, s.dispatcher.ExportSystemText(r.Context()))
}

func (s *Server) handleExportDiagram(w http.ResponseWriter, r *http.Request) {
	var req dispatcher.ExportRequest
	if err := decode(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}
	s.writeResult(w, r, s.dispatcher.ExportDiagram(r.Context(), req))
}

// StoreRequest carries a configuration document and where to write it.
type StoreRequest struct {
	Path     string          `json:"path"`
	Document json.RawMessage `json:"document"`
}

func (s *Server) handleStoreConfiguration(w http.ResponseWriter, r *http.Request) {
	var req StoreRequest
	if err := decode(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}
	s.writeResult(w, r, s.dispatcher.StoreConfiguration(withPath(r.Context(), req.Path), req.Document))
}

// PathRequest names the file a command reads or writes.
type PathRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleLoadConfiguration(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if err := decode(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}
	s.writeResult(w, r, s.dispatcher.LoadConfiguration(withPath(r.Context(), req.Path)))
}

// TriggerRequest is the body of POST /triggers/{name}. The export fields
// only matter to export_diagram.
type TriggerRequest struct {
	Path string `json:"path"`
	dispatcher.ExportRequest
}

// handleTrigger starts a fire-and-forget command and answers 202 at once.
// The outcome arrives on /events.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req TriggerRequest
	if err := decode(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}
	switch name {
	case dispatcher.TriggerExportSystemText, dispatcher.TriggerExportConfiguration,
		dispatcher.TriggerLoadConfiguration, dispatcher.TriggerExportDiagram:
	default:
		s.writeResult(w, r, dispatcher.Result{
			Status:  dispatcher.StatusError,
			Message: "Unknown trigger",
			Err:     ferrors.ValidationError("Unknown trigger").WithContext("trigger", name).Build(),
		})
		return
	}

	ctx := withPath(s.baseCtx, req.Path)
	s.triggers.Add(1)
	go func() {
		defer s.triggers.Done()
		if err := s.dispatcher.RunTrigger(ctx, name, req.ExportRequest); err != nil {
			slog.Warn("Trigger rejected", logfields.Command(name), logfields.Error(err))
		}
	}()
	s.writeJSON(w, http.StatusAccepted, dispatcher.Result{Status: dispatcher.StatusOK, Message: "Accepted"})
}
