package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/blixt/skillflow/tool"
	"github.com/blixt/skillflow/uistream"
)

// maxRequestBody limits chat request bodies, which carry the whole history.
const maxRequestBody = 4 << 20

type Server struct {
	translator     *uistream.Translator
	companyContext string
	tools          func(companyContext string) *tool.Toolbox
	logger         zerolog.Logger
}

type Option func(*Server)

// WithCompanyContext sets the context used when a request doesn't carry one.
func WithCompanyContext(companyContext string) Option {
	return func(s *Server) {
		s.companyContext = companyContext
	}
}

// WithTools sets the function that builds the toolbox for a request.
func WithTools(fn func(companyContext string) *tool.Toolbox) Option {
	return func(s *Server) {
		s.tools = fn
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func New(translator *uistream.Translator, opts ...Option) *Server {
	s := &Server{
		translator: translator,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the chi router serving the chat endpoints.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/chat", func(api chi.Router) {
		api.Post("/", s.handleChat)
		api.Get("/ws", s.handleChatWS)
	})
	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully,
// giving open streams up to 10 seconds to finish.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// translate starts a stream for a decoded request.
func (s *Server) translate(ctx context.Context, req *chatRequest) (*uistream.Stream, error) {
	messages, err := req.llmMessages()
	if err != nil {
		return nil, err
	}
	companyContext := s.companyContext
	if req.Context != nil {
		companyContext = *req.Context
	}
	var tools *tool.Toolbox
	if s.tools != nil {
		tools = s.tools(companyContext)
	}
	translateReq := uistream.Request{
		Messages: messages,
		Context:  companyContext,
	}
	if tools != nil {
		translateReq.Tools = tools.Schema()
		translateReq.Invoker = tools
	}
	return s.translator.Translate(ctx, translateReq), nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) respondError(w http.ResponseWriter, status int, err error) {
	s.respondJSON(w, status, map[string]string{"error": err.Error()})
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info().
					Str("requestId", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", time.Since(start)).
					Msg("Request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
