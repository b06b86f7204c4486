package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/parkride/parkride/services/api/stations"
)

// handleV1ListStations returns the fresh stations keyed by id
// GET /api/v1/stations
func (s *Server) handleV1ListStations(c *gin.Context) {
	src, ok := s.sourceParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	records, err := s.stations.Stations(ctx, src)
	if err != nil {
		respondError(c, err)
		return
	}

	mapping, err := stations.ProjectMapping(records)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": mapping,
		"meta": gin.H{
			"count":        len(mapping),
			"source":       src.String(),
			"generated_at": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// handleV1GetStation returns details for a specific station
// GET /api/v1/stations/:station_id
func (s *Server) handleV1GetStation(c *gin.Context) {
	stationID := c.Param("station_id")
	if stationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "station id is required"})
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
		"data": rec,
		"meta": gin.H{
			"source":       src.String(),
			"summary":      rec.Announce(),
			"generated_at": time.Now().UTC().Format(time.RFC3339),
		},
	})
}
