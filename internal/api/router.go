package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/pairlab/backend/internal/api/handlers"
	"github.com/wonny/pairlab/backend/pkg/logger"
	"github.com/wonny/pairlab/backend/pkg/metrics"
)

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(evalHandler *handlers.EvaluationHandler, dataHandler *handlers.DataHandler, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewNop()
	}
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// Prometheus
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Evaluation endpoints ("report" before "{id}")
	api.HandleFunc("/evaluations", evalHandler.Create).Methods("POST")
	api.HandleFunc("/evaluations", evalHandler.List).Methods("GET")
	api.HandleFunc("/evaluations/report", evalHandler.Report).Methods("GET")
	api.HandleFunc("/evaluations/{id}", evalHandler.Get).Methods("GET")

	// Data endpoints
	if dataHandler != nil {
		api.HandleFunc("/prices/{symbol}/coverage", dataHandler.GetCoverage).Methods("GET")
		api.HandleFunc("/data/collect", dataHandler.Collect).Methods("POST")
	}

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "pairlab-api",
	})
}

// statusRecorder captures the response code for logs and metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs HTTP requests and counts them per route template
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			// Call next handler
			next.ServeHTTP(rec, r)

			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
