package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/lightning-alert/internal/domain"
	"github.com/couchcryptid/lightning-alert/internal/tilesystem"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/paulmach/orb/geojson"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AssetLookup is the read side of the asset registry.
type AssetLookup interface {
	Lookup(key tilesystem.QuadKey) []domain.Asset
	Level() int
}

// Server exposes health, readiness, metrics, and tile lookup endpoints.
type Server struct {
	httpServer *http.Server
	assets     AssetLookup
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and the
// quadkey routes backed by assets.
func NewServer(addr string, ready sharedobs.ReadinessChecker, assets AssetLookup, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		assets: assets,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /quadkey", s.handleQuadKey)
	mux.HandleFunc("GET /tiles/{quadkey}", s.handleTile)
	mux.HandleFunc("GET /buckets/{quadkey}/assets", s.handleBucketAssets)

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

type quadKeyResponse struct {
	QuadKey string  `json:"quadkey"`
	Level   int     `json:"level"`
	TileX   int     `json:"tile_x"`
	TileY   int     `json:"tile_y"`
	PixelX  int     `json:"pixel_x"`
	PixelY  int     `json:"pixel_y"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// handleQuadKey answers GET /quadkey?lat=..&lon=..[&level=..]. The level
// defaults to the registry's level.
func (s *Server) handleQuadKey(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid lat %q", q.Get("lat")))
		return
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid lon %q", q.Get("lon")))
		return
	}

	if err := tilesystem.CheckCoordinate(lat, lon); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	level := s.assets.Level()
	if v := q.Get("level"); v != "" {
		if level, err = strconv.Atoi(v); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid level %q", v))
			return
		}
	}
	indexer, err := tilesystem.NewIndexer(level)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	key := indexer.KeyFor(lat, lon)
	pixelX, pixelY := tilesystem.LatLongToPixelXY(lat, lon, level)
	tileX, tileY := tilesystem.PixelXYToTileXY(pixelX, pixelY)
	sharedobs.WriteJSON(w, http.StatusOK, quadKeyResponse{
		QuadKey: key.String(),
		Level:   level,
		TileX:   tileX,
		TileY:   tileY,
		PixelX:  pixelX,
		PixelY:  pixelY,
		Lat:     lat,
		Lon:     lon,
	})
}

// handleTile renders the tile named by a quadkey as a GeoJSON polygon feature.
func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	key := tilesystem.QuadKey(r.PathValue("quadkey"))
	bound, err := tilesystem.Bound(key)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tileX, tileY, level, _ := tilesystem.QuadKeyToTileXY(key.String())

	feature := geojson.NewFeature(bound.ToPolygon())
	feature.Properties["quadkey"] = key.String()
	feature.Properties["level"] = level
	feature.Properties["tile_x"] = tileX
	feature.Properties["tile_y"] = tileY
	if level == s.assets.Level() {
		feature.Properties["assets"] = len(s.assets.Lookup(key))
	}

	data, err := feature.MarshalJSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck // best-effort response
}

type bucketResponse struct {
	QuadKey string         `json:"quadkey"`
	Assets  []domain.Asset `json:"assets"`
}

// handleBucketAssets lists the assets registered in a bucket.
func (s *Server) handleBucketAssets(w http.ResponseWriter, r *http.Request) {
	key := tilesystem.QuadKey(r.PathValue("quadkey"))
	if err := key.Valid(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if key.Level() != s.assets.Level() {
		writeError(w, http.StatusBadRequest,
			fmt.Errorf("quadkey level %d does not match registry level %d", key.Level(), s.assets.Level()))
		return
	}

	assets := s.assets.Lookup(key)
	if assets == nil {
		assets = []domain.Asset{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, bucketResponse{QuadKey: key.String(), Assets: assets})
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}
