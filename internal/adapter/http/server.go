package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/trip-planner-service/internal/domain"
	"github.com/couchcryptid/trip-planner-service/internal/itinerary"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes bounds request bodies on the API routes.
const maxBodyBytes = 1 << 20

// writeTimeout covers a cold geocode batch, which waits on provider calls.
const writeTimeout = 60 * time.Second

// Geocoder resolves a batch of place names near a location.
type Geocoder interface {
	ResolveAll(ctx context.Context, places []string, location, country string) map[string]domain.Resolution
}

// Planner builds an itinerary for a destination.
type Planner interface {
	Plan(ctx context.Context, req itinerary.Request) (domain.Itinerary, error)
}

// Server exposes the trip-planning API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	geocoder   Geocoder
	planner    Planner
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /api/geocode, /api/generate_itinerary,
// /healthz, /readyz, and /metrics routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, geocoder Geocoder, planner Planner, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: writeTimeout,
			IdleTimeout:  60 * time.Second,
		},
		geocoder: geocoder,
		planner:  planner,
		logger:   logger,
	}

	mux.HandleFunc("POST /api/geocode", s.handleGeocode)
	mux.HandleFunc("POST /api/generate_itinerary", s.handleGenerateItinerary)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// errNullPlace rejects JSON null entries, which would otherwise decode as "".
var errNullPlace = errors.New("places entry is null")

type geocodeRequest struct {
	Places   []*string `json:"places"`
	Location string    `json:"location"`
	Country  string    `json:"country"`
}

func (req geocodeRequest) places() ([]string, error) {
	places := make([]string, 0, len(req.Places))
	for i, p := range req.Places {
		if p == nil {
			return nil, fmt.Errorf("index %d: %w", i, errNullPlace)
		}
		places = append(places, *p)
	}
	return places, nil
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	var req geocodeRequest
	err := decodeJSON(w, r, &req)
	var places []string
	if err == nil {
		places, err = req.places()
	}
	if err != nil {
		s.logger.Debug("invalid geocode request", "error", err)
		writeError(w, http.StatusBadRequest, "places must be a list of strings")
		return
	}

	coords := s.geocoder.ResolveAll(r.Context(), places, req.Location, req.Country)
	writeJSON(w, http.StatusOK, coords)
}

type itineraryRequest struct {
	Destination string   `json:"destination"`
	Month       string   `json:"month"`
	Country     string   `json:"country"`
	Preferences []string `json:"preferences"`
}

func (s *Server) handleGenerateItinerary(w http.ResponseWriter, r *http.Request) {
	var req itineraryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.logger.Debug("invalid itinerary request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	plan, err := s.planner.Plan(r.Context(), itinerary.Request{
		Destination: req.Destination,
		Month:       req.Month,
		Country:     req.Country,
		Preferences: req.Preferences,
	})
	switch {
	case errors.Is(err, itinerary.ErrMissingDestination):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.logger.Error("generate itinerary failed", "destination", req.Destination, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate itinerary")
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
