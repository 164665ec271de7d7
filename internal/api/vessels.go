// Package api provides REST API endpoints for the vessel registry.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ais_parser/internal/record"
	"ais_parser/internal/storage"
)

// MaxBatch is the largest number of MMSIs accepted by a batch lookup.
const MaxBatch = 100

// VesselStore is the registry the server reads from.
type VesselStore interface {
	GetVessel(ctx context.Context, mmsi uint32) (*storage.VesselRecord, error)
	ListVessels(ctx context.Context, p storage.ListParams) ([]storage.VesselRecord, error)
	CountVessels(ctx context.Context) (int, error)
}

// Config holds configuration for the vessel API server.
type Config struct {
	Port        int
	AuthEnabled bool
	APIKeys     []string            // List of valid API keys.
	Gatherer    prometheus.Gatherer // Served on /metrics when set.
	Logger      *zap.Logger
}

// VesselServer provides REST API access to the vessel registry.
type VesselServer struct {
	store       VesselStore
	port        int
	authEnabled bool
	apiKeys     map[string]bool // Simple API key auth (when enabled).
	gatherer    prometheus.Gatherer
	log         *zap.Logger
}

// NewVesselServer creates a new vessel API server.
func NewVesselServer(store VesselStore, cfg Config) *VesselServer {
	keys := make(map[string]bool)
	for _, k := range cfg.APIKeys {
		if k != "" {
			keys[k] = true
		}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &VesselServer{
		store:       store,
		port:        cfg.Port,
		authEnabled: cfg.AuthEnabled,
		apiKeys:     keys,
		gatherer:    cfg.Gatherer,
		log:         log,
	}
}

// Handler returns the full HTTP handler: middleware, /metrics and the
// versioned API.
func (s *VesselServer) Handler() http.Handler {
	r := chi.NewRouter()

	// Standard middleware.
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS for browser access.
	r.Use(corsMiddleware)

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	r.Mount("/api/v1", s.Router())
	return r
}

// Run serves until ctx is cancelled.
func (s *VesselServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Info("vessel API starting",
		zap.String("addr", srv.Addr),
		zap.Bool("auth", s.authEnabled),
		zap.Bool("metrics", s.gatherer != nil))

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Router returns the configured chi router for embedding in other servers.
func (s *VesselServer) Router() chi.Router {
	r := chi.NewRouter()

	// Optional authentication.
	if s.authEnabled {
		r.Use(s.authMiddleware)
	}

	r.Get("/health", s.handleHealth)
	r.Get("/vessels", s.handleListVessels)
	r.Get("/vessels/{mmsi}", s.handleGetVessel)
	r.Post("/vessels/batch", s.handleBatchVessels)

	return r
}

func (s *VesselServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authMiddleware validates API key authentication.
func (s *VesselServer) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check X-API-Key header first.
		apiKey := r.Header.Get("X-API-Key")

		// Fall back to Authorization: Bearer <key>.
		if apiKey == "" {
			auth := r.Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				apiKey = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		// Fall back to query parameter (for simple testing).
		if apiKey == "" {
			apiKey = r.URL.Query().Get("api_key")
		}

		if apiKey == "" {
			writeError(w, http.StatusUnauthorized, "API key required")
			return
		}

		if !s.apiKeys[apiKey] {
			writeError(w, http.StatusForbidden, "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// VesselResponse is the JSON response for vessel queries.
type VesselResponse struct {
	MMSI          uint32   `json:"mmsi"`
	Name          string   `json:"name,omitempty"`
	CallSign      string   `json:"call_sign,omitempty"`
	IMO           int64    `json:"imo,omitempty"`
	ShipType      *int16   `json:"ship_type,omitempty"`
	ShipTypeLabel string   `json:"ship_type_label,omitempty"`
	Destination   string   `json:"destination,omitempty"`
	Lat           *float64 `json:"lat,omitempty"`
	Lon           *float64 `json:"lon,omitempty"`
	SOG           *float64 `json:"sog,omitempty"`
	COG           *float64 `json:"cog,omitempty"`
	Heading       *float64 `json:"heading,omitempty"`
	NavStatus     string   `json:"nav_status,omitempty"`
	Geohash       string   `json:"geohash,omitempty"`
	LastMsgType   int16    `json:"last_msg_type"`
	FirstSeen     string   `json:"first_seen"`
	LastSeen      string   `json:"last_seen"`
	MsgCount      int      `json:"msg_count"`
}

func vesselToResponse(v *storage.VesselRecord) VesselResponse {
	resp := VesselResponse{
		MMSI:        v.MMSI,
		Name:        v.Name,
		CallSign:    v.CallSign,
		ShipType:    v.ShipType,
		Destination: v.Destination,
		Lat:         v.Lat,
		Lon:         v.Lon,
		SOG:         v.SOG,
		COG:         v.COG,
		Heading:     v.Heading,
		Geohash:     v.Geohash,
		LastMsgType: v.LastMsgType,
		FirstSeen:   v.FirstSeen.UTC().Format(time.RFC3339),
		LastSeen:    v.LastSeen.UTC().Format(time.RFC3339),
		MsgCount:    v.MsgCount,
	}

	if v.IMO != nil {
		resp.IMO = *v.IMO
	}
	if v.ShipType != nil && *v.ShipType >= 0 && *v.ShipType <= 255 {
		resp.ShipTypeLabel = record.ShipTypeLabel(uint8(*v.ShipType))
	}
	if v.NavStatus != nil && *v.NavStatus >= 0 && *v.NavStatus <= 15 {
		resp.NavStatus = record.NavStatusLabel(uint8(*v.NavStatus))
	}

	return resp
}

func (s *VesselServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	if s.store != nil {
		if n, err := s.store.CountVessels(r.Context()); err == nil {
			resp["vessels"] = n
		} else {
			resp["status"] = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseMMSI(s string) (uint32, bool) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil || v == 0 || v > 999999999 {
		return 0, false
	}
	return uint32(v), true
}

func (s *VesselServer) handleGetVessel(w http.ResponseWriter, r *http.Request) {
	mmsi, ok := parseMMSI(chi.URLParam(r, "mmsi"))
	if !ok {
		writeError(w, http.StatusBadRequest, "mmsi must be a number between 1 and 999999999")
		return
	}

	v, err := s.store.GetVessel(r.Context(), mmsi)
	if err != nil {
		s.log.Warn("get vessel", zap.Uint32("mmsi", mmsi), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if v == nil {
		writeError(w, http.StatusNotFound, "No vessel found")
		return
	}

	writeJSON(w, http.StatusOK, vesselToResponse(v))
}

func (s *VesselServer) handleListVessels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := storage.ListParams{
		Name:    q.Get("name"),
		Geohash: strings.ToLower(q.Get("geohash")),
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		p.Limit = n
	}
	if v := q.Get("since"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			p.Since = time.Now().Add(-d)
		} else if t, ok := record.ParseTime(v); ok {
			p.Since = t
		} else {
			writeError(w, http.StatusBadRequest, "Invalid since (use a duration like 1h or a timestamp)")
			return
		}
	}

	vessels, err := s.store.ListVessels(r.Context(), p)
	if err != nil {
		s.log.Warn("list vessels", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	results := make([]VesselResponse, 0, len(vessels))
	for i := range vessels {
		results = append(results, vesselToResponse(&vessels[i]))
	}
	writeJSON(w, http.StatusOK, results)
}

// BatchRequest is the request body for batch vessel lookups.
type BatchRequest struct {
	MMSI []uint32 `json:"mmsi"`
}

// BatchResponse is the response for batch vessel lookups.
type BatchResponse struct {
	Results map[string]VesselResponse `json:"results"` // Keyed by MMSI.
	Missing []uint32                  `json:"missing,omitempty"`
	Errors  map[string]string         `json:"errors,omitempty"`
}

func (s *VesselServer) handleBatchVessels(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}

	if len(req.MMSI) == 0 {
		writeError(w, http.StatusBadRequest, "No MMSI specified")
		return
	}

	if len(req.MMSI) > MaxBatch {
		writeError(w, http.StatusBadRequest, "Maximum 100 MMSI per batch request")
		return
	}

	resp := BatchResponse{
		Results: make(map[string]VesselResponse),
		Errors:  make(map[string]string),
	}

	for _, mmsi := range req.MMSI {
		key := strconv.FormatUint(uint64(mmsi), 10)
		v, err := s.store.GetVessel(r.Context(), mmsi)
		if err != nil {
			resp.Errors[key] = err.Error()
			continue
		}
		if v == nil {
			resp.Missing = append(resp.Missing, mmsi)
			continue
		}
		resp.Results[key] = vesselToResponse(v)
	}

	// Remove empty errors map for cleaner output.
	if len(resp.Errors) == 0 {
		resp.Errors = nil
	}

	writeJSON(w, http.StatusOK, resp)
}

// Helper functions.

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
