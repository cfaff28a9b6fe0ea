// Package chi exposes the HTTP surface: the answer endpoint, the two
// SSE streaming endpoints, health and metrics.
package chi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/luminehq/lumine/internal/domain"
	logpkg "github.com/luminehq/lumine/internal/logger"
	"github.com/luminehq/lumine/internal/metrics"
	healthuc "github.com/luminehq/lumine/internal/usecase/health"
)

// Chatter answers queries, grounded on retrieved documents.
type Chatter interface {
	Answer(ctx context.Context, query string, source domain.Source) (string, []domain.Document, error)
	AnswerStream(ctx context.Context, messages []domain.Message, source domain.Source) (
		io.ReadCloser, []domain.Document, error,
	)
}

// Server routes HTTP requests to the chat and health services.
type Server struct {
	chat   Chatter
	health *healthuc.Service
	logger *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(chat Chatter, health *healthuc.Service, logger *zap.Logger) *Server {
	return &Server{chat: chat, health: health, logger: logger}
}

// Router builds the chi router with the standard middleware chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())

	r.Get("/chat", s.handleChat)
	r.Get("/chat/stream", s.handleChatStreamGet)
	r.Post("/chat/stream", s.handleChatStreamPost)
	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

type chatResponse struct {
	Response string            `json:"response"`
	Context  []domain.Document `json:"context"`
}

type streamRequest struct {
	Messages []domain.Message `json:"messages"`
	Source   string           `json:"source,omitempty"`
}

// handleChat handles GET /chat?q=.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "missing q parameter", http.StatusBadRequest)
		return
	}

	source, err := domain.ParseSource(r.URL.Query().Get("source"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	answer, docs, err := s.chat.Answer(r.Context(), query, source)
	if err != nil {
		logpkg.FromContext(r.Context()).Error("Chat request failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if docs == nil {
		docs = []domain.Document{}
	}
	writeJSON(w, http.StatusOK, chatResponse{Response: answer, Context: docs})
}

// handleChatStreamGet handles GET /chat/stream?q=. The query becomes a
// single-turn conversation.
func (s *Server) handleChatStreamGet(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "missing q parameter", http.StatusBadRequest)
		return
	}

	source, err := domain.ParseSource(r.URL.Query().Get("source"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	messages := []domain.Message{{Role: domain.RoleUser, Content: query}}
	s.stream(w, r, messages, source)
}

// handleChatStreamPost handles POST /chat/stream with a full conversation.
func (s *Server) handleChatStreamPost(w http.ResponseWriter, r *http.Request) {
	var req streamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Messages) == 0 {
		http.Error(w, "messages must not be empty", http.StatusBadRequest)
		return
	}
	for i, m := range req.Messages {
		if !domain.ValidRole(m.Role) {
			http.Error(w, fmt.Sprintf("message %d has invalid role %q", i, m.Role), http.StatusBadRequest)
			return
		}
	}

	source, err := domain.ParseSource(req.Source)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.stream(w, r, req.Messages, source)
}

// stream runs retrieval plus completion and relays the result over SSE.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, messages []domain.Message, source domain.Source) {
	logger := logpkg.FromContext(r.Context())

	upstream, docs, err := s.chat.AnswerStream(r.Context(), messages, source)
	if err != nil {
		logger.Error("Stream request failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	relay := NewStreamRelay(logger)
	relay.Run(r.Context(), w, upstream, docs)
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
