package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/user/archive-bot-go/internal/store"
)

// Prometheus metrics
var (
	filesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "archive_bot_files_total",
		Help: "Total number of archived files by type and status",
	}, []string{"type", "status"})

	subscribersTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "archive_bot_subscribers_total",
		Help: "Total number of subscriber rows",
	})

	fileRecordsTotal = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "archive_bot_file_records",
		Help: "File record counts by state",
	}, []string{"state"})

	downloadDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "archive_bot_download_duration_seconds",
		Help:    "Duration of file downloads in seconds",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(filesTotal)
	prometheus.MustRegister(subscribersTotal)
	prometheus.MustRegister(fileRecordsTotal)
	prometheus.MustRegister(downloadDurationSeconds)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Uptime   string `json:"uptime"`
}

// Server handles HTTP requests for health checks and metrics
type Server struct {
	store     store.Store
	router    *http.ServeMux
	server    *http.Server
	startTime time.Time
}

// NewServer creates a new HTTP server instance
func NewServer(store store.Store) *Server {
	s := &Server{
		store:     store,
		router:    http.NewServeMux(),
		startTime: time.Now(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())
}

// Start begins listening on the specified port
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().Int("port", port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Info().Msg("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}

// handleHealth handles the /health endpoint.
// Returns JSON with status, database connectivity, and uptime
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Check database connectivity
	dbStatus := "healthy"
	if err := s.store.Ping(ctx); err != nil {
		dbStatus = fmt.Sprintf("unhealthy: %v", err)
	}

	uptime := time.Since(s.startTime).Round(time.Second).String()

	status := "healthy"
	if dbStatus != "healthy" {
		status = "unhealthy"
	}

	response := HealthResponse{
		Status:   status,
		Database: dbStatus,
		Uptime:   uptime,
	}

	w.Header().Set("Content-Type", "application/json")
	if status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Msg("Failed to encode health response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// RecordFile counts one archival attempt by type and outcome
func RecordFile(fileType, status string) {
	filesTotal.WithLabelValues(fileType, status).Inc()
}

// SetSubscriberCount updates the subscribers gauge
func SetSubscriberCount(count int64) {
	subscribersTotal.Set(float64(count))
}

// SetFileRecordCounts updates the file record gauges
func SetFileRecordCounts(total, succeeded int64) {
	fileRecordsTotal.WithLabelValues("attempted").Set(float64(total))
	fileRecordsTotal.WithLabelValues("succeeded").Set(float64(succeeded))
}

// ObserveDownloadDuration records the duration of one download
func ObserveDownloadDuration(duration time.Duration) {
	downloadDurationSeconds.Observe(duration.Seconds())
}

// GetUptime returns the server uptime
func (s *Server) GetUptime() time.Duration {
	return time.Since(s.startTime)
}
