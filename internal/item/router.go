package item

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"contentflow/internal/common"
	"contentflow/internal/logger"
)

// NewRouter mounts the item API under /api/v1. events serves the websocket push channel and
// is registered ahead of /items/{id} so "events" is never read as an id.
func NewRouter(h *Handler, events http.HandlerFunc, secret []byte) *mux.Router {
	router := mux.NewRouter()
	router.Use(common.RequestIDMiddleware)
	router.Use(corsMiddleware)
	router.Use(loggingMiddleware)

	router.HandleFunc("/health", healthCheckHandler).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(common.HTTPAuthMiddleware(secret))

	api.HandleFunc("/items", h.withActor(h.List)).Methods(http.MethodGet)
	api.HandleFunc("/items", h.withActor(h.Create)).Methods(http.MethodPost)
	api.HandleFunc("/items/reorder", h.withActor(h.Reorder)).Methods(http.MethodPost)
	if events != nil {
		api.HandleFunc("/items/events", events).Methods(http.MethodGet)
	}
	api.HandleFunc("/items/{id}", h.withActor(h.Get)).Methods(http.MethodGet)
	api.HandleFunc("/items/{id}", h.withActor(h.Patch)).Methods(http.MethodPatch)
	api.HandleFunc("/items/{id}", h.withActor(h.Delete)).Methods(http.MethodDelete)

	return router
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// Hijack keeps websocket upgrades working through the recorder.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.WithContext(r.Context()).WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Info("http request")
	})
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	common.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "contentflow"})
}
