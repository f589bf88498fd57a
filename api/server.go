// Package api exposes the dashboard over HTTP and WebSocket.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/drewbanne/Weatherly/dashboard"
	"github.com/drewbanne/Weatherly/datasource"
	"github.com/drewbanne/Weatherly/history"
	"github.com/drewbanne/Weatherly/models"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Server represents the API server
type Server struct {
	dashboard *dashboard.Dashboard
	metrics   *Metrics
	mode      datasource.Mode
	logger    *zap.Logger
	router    *mux.Router
	server    *http.Server
}

// NewServer creates a new API server. A nil metrics disables /metrics.
func NewServer(d *dashboard.Dashboard, metrics *Metrics, mode datasource.Mode, port int, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	router := mux.NewRouter()

	s := &Server{
		dashboard: d,
		metrics:   metrics,
		mode:      mode,
		logger:    logger,
		router:    router,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/weather", s.handleSearch).Methods(http.MethodGet)
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/locate", s.handleLocate).Methods(http.MethodPost)
	api.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/history", s.handleClearHistory).Methods(http.MethodDelete)
	api.HandleFunc("/history/{index:[0-9]+}/select", s.handleSelectHistory).Methods(http.MethodPost)
	api.HandleFunc("/error", s.handleDismissError).Methods(http.MethodDelete)
	api.HandleFunc("/stream", s.handleStream).Methods(http.MethodGet)
	api.HandleFunc("/health", s.handleHealthCheck).Methods(http.MethodGet)

	if metrics != nil {
		router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	}
	return s
}

// Handler returns the routed handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins the API server
func (s *Server) Start() error {
	s.logger.Info("starting API server", zap.String("addr", s.server.Addr), zap.String("mode", string(s.mode)))
	return s.server.ListenAndServe()
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// handleSearch runs a search by city or by coordinates
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q, err := queryFromRequest(r)
	if err != nil {
		_, err = s.dashboard.Reject(err)
		s.writeError(w, err)
		return
	}
	state, err := s.dashboard.Search(r.Context(), q)
	s.writeResult(w, state, err)
}

// handleState returns the current dashboard state
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dashboard.State())
}

// handleLocate searches by the current position
func (s *Server) handleLocate(w http.ResponseWriter, r *http.Request) {
	state, err := s.dashboard.LocateCurrentPosition(r.Context())
	s.writeResult(w, state, err)
}

// handleHistory returns the history entries, most recent first
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries := s.dashboard.History().Entries()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// handleSelectHistory re-runs the search for a history entry
func (s *Server) handleSelectHistory(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: bad history index", datasource.ErrInvalidQuery))
		return
	}
	state, err := s.dashboard.SelectHistoryEntry(r.Context(), index)
	s.writeResult(w, state, err)
}

// handleClearHistory empties the history
func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dashboard.ClearHistory())
}

// handleDismissError clears the displayed error
func (s *Server) handleDismissError(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dashboard.DismissError())
}

// handleHealthCheck provides a simple health check endpoint
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"mode":      string(s.mode),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// queryFromRequest reads ?city= or ?lat=&lon=
func queryFromRequest(r *http.Request) (models.Query, error) {
	values := r.URL.Query()
	lat, lon := values.Get("lat"), values.Get("lon")
	if lat == "" && lon == "" {
		return models.CityQuery(values.Get("city")), nil
	}

	latF, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return models.Query{}, fmt.Errorf("%w: lat must be a number", datasource.ErrInvalidQuery)
	}
	lonF, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return models.Query{}, fmt.Errorf("%w: lon must be a number", datasource.ErrInvalidQuery)
	}
	return models.CoordsQuery(latF, lonF), nil
}

// writeResult writes the state on success and the mapped error otherwise
func (s *Server) writeResult(w http.ResponseWriter, state dashboard.State, err error) {
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, map[string]string{
		"error": datasource.UserMessage(err),
	})
}

// statusFor maps an error to an HTTP status code
func statusFor(err error) int {
	switch {
	case errors.Is(err, datasource.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, datasource.ErrNotFound), errors.Is(err, history.ErrNoEntry):
		return http.StatusNotFound
	case errors.Is(err, datasource.ErrGeolocation):
		return http.StatusServiceUnavailable
	case errors.Is(err, dashboard.ErrSuperseded):
		return http.StatusConflict
	}
	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
