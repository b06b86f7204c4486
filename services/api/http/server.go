package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/parkride/parkride/services/api/config"
	"github.com/parkride/parkride/services/api/snapshot"
	"github.com/parkride/parkride/services/api/stations"
)

const requestTimeout = 15 * time.Second

// Server bundles router and dependencies for the REST API.
type Server struct {
	cfg      config.Config
	stations *stations.Service
	engine   *gin.Engine
}

// New constructs a server with routes and middleware.
func New(cfg config.Config, svc *stations.Service) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger())
	engine.Use(corsMiddleware(cfg.CORSAllowOrigin))

	server := &Server{cfg: cfg, stations: svc, engine: engine}
	server.registerRoutes()
	server.registerV1Routes()
	return server
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "home page"})
	})
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.engine.GET("/stations", s.handleListStations)
	s.engine.GET("/stations/:station_id", s.handleGetStation)
}

func corsMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) handleListStations(c *gin.Context) {
	src, ok := s.sourceParam(c)
	if !ok {
		return
	}

	shape := c.DefaultQuery("shape", "mapping")
	if shape != "mapping" && shape != "list" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shape"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	records, err := s.stations.Stations(ctx, src)
	if err != nil {
		respondError(c, err)
		return
	}

	if shape == "list" {
		c.JSON(http.StatusOK, gin.H{"parking_slots": stations.ProjectList(records)})
		return
	}

	mapping, err := stations.ProjectMapping(records)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"parking_slots": mapping})
}

func (s *Server) handleGetStation(c *gin.Context) {
	stationID := c.Param("station_id")
	if stationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "station_id is required"})
		return
	}

	src, ok := s.sourceParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	rec, err := s.stations.Station(ctx, src, stationID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"parking_slot": rec,
		"summary":      rec.Announce(),
	})
}

// sourceParam resolves the source query parameter, falling back to the
// configured default. It writes the 400 response itself on failure.
func (s *Server) sourceParam(c *gin.Context) (snapshot.Source, bool) {
	name := c.Query("source")
	if name == "" {
		return s.cfg.DefaultSource, true
	}
	src, err := snapshot.ParseSource(name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return 0, false
	}
	return src, true
}

func respondError(c *gin.Context, err error) {
	var unavailable *snapshot.SourceUnavailableError

	switch {
	case errors.Is(err, stations.ErrStationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, snapshot.ErrUnknownSource):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &unavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
	_ = c.Error(err)
}
