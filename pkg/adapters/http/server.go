package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/libris/pkg/domain"
	"github.com/aretw0/libris/pkg/ports"
	"github.com/aretw0/libris/pkg/runner"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
)

// maxBodySize bounds request bodies before decoding.
const maxBodySize = 64 << 10

// EventRequest is the body of POST /v1/chats/{chatID}/events.
type EventRequest struct {
	Type  domain.EventKind `json:"type"`
	Value string           `json:"value"`
}

// EventResponse carries the replies produced by one event. Images are base64.
type EventResponse struct {
	Replies []domain.Reply `json:"replies"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server exposes the engine over HTTP.
type Server struct {
	engine  ports.Engine
	secret  []byte
	version string
	logger  *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithJWTSecret requires an HS256 bearer token on the event route.
// The token must carry a "chat_id" claim and may only post to that chat.
func WithJWTSecret(secret string) Option {
	return func(s *Server) {
		if secret != "" {
			s.secret = []byte(secret)
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithVersion sets the version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = strings.TrimSpace(v) }
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine ports.Engine, opts ...Option) http.Handler {
	s := &Server{
		engine:  engine,
		version: "dev",
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Route("/v1", func(r chi.Router) {
		if s.secret != nil {
			r.Use(s.authenticate)
		}
		r.Post("/chats/{chatID}/events", s.PostEvent)
	})
	return r
}

// PostEvent handles POST /v1/chats/{chatID}/events.
func (s *Server) PostEvent(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	if err := runner.SanitizeChatID(chatID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if claimed, ok := r.Context().Value(chatClaimKey{}).(string); ok && claimed != chatID {
		writeError(w, http.StatusForbidden, "token is not valid for this chat")
		return
	}

	var body EventRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		s.logger.Warn("event rejected", "chat_id", chatID, "err", err)
		return
	}

	ev, err := runner.SanitizeEvent(domain.Event{Kind: body.Type, Value: body.Value})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		s.logger.Warn("event rejected", "chat_id", chatID, "err", err, "size", len(body.Value))
		return
	}

	replies, err := s.engine.Handle(r.Context(), chatID, ev)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		writeError(w, http.StatusInternalServerError, "the event could not be handled")
		s.logger.Error("handle event", "chat_id", chatID, "err", err)
		return
	}
	if replies == nil {
		replies = []domain.Reply{}
	}
	writeJSON(w, http.StatusOK, EventResponse{Replies: replies})
}

// GetHealth handles GET /healthz.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"app": "libris", "version": s.version})
}

type chatClaimKey struct{}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "missing token")
			return
		}

		token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			writeError(w, http.StatusUnauthorized, "invalid token")
			s.logger.Warn("token rejected", "err", err)
			return
		}

		claims, _ := token.Claims.(jwt.MapClaims)
		chatID, _ := claims["chat_id"].(string)
		if chatID == "" {
			writeError(w, http.StatusForbidden, "token is not scoped to a chat")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), chatClaimKey{}, chatID)))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// Serve runs srv until ctx is cancelled, then shuts it down gracefully.
func Serve(ctx context.Context, srv *http.Server) error {
	errc := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("listen %s: %w", srv.Addr, err)
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown %s: %w", srv.Addr, err)
	}
	return <-errc
}
