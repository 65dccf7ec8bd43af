package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"lab-trend-thumbnails/internal/rowsource"
	"lab-trend-thumbnails/internal/storage"
	"lab-trend-thumbnails/internal/thumbnail"
)

const defaultListLimit = 20

// handleDeriveThumbnail runs the pipeline for one posted result set.
// Opt-outs and validation defects both answer 204: the caller renders
// nothing either way, and defects are already logged and alerted.
func (s *Server) handleDeriveThumbnail(c *gin.Context) {
	var payload rowsource.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.requestTimeout())
	defer cancel()

	res, err := s.deriver.Derive(ctx, payload)
	if err != nil {
		if errors.Is(err, thumbnail.ErrInvalidThumbnail) {
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if res == nil {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}

func (s *Server) handleGetThumbnail(c *gin.Context) {
	if s.thumbs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage not configured"})
		return
	}

	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.requestTimeout())
	defer cancel()

	rec, err := s.thumbs.GetThumbnail(ctx, id)
	if err != nil {
		s.renderStoreError(c, err, gin.H{"error": "thumbnail not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"id":         rec.ID,
			"plot_title": rec.PlotTitle,
			"created_at": rec.CreatedAt,
			"thumbnail":  rec.Payload,
		},
	})
}

type thumbnailSummary struct {
	ID          string           `json:"id"`
	PlotTitle   string           `json:"plot_title"`
	FocusSeries *string          `json:"focus_series,omitempty"`
	Status      string           `json:"status"`
	PointCount  int              `json:"point_count"`
	SeriesCount int              `json:"series_count"`
	LatestValue *decimal.Decimal `json:"latest_value,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

func (s *Server) handleListThumbnails(c *gin.Context) {
	if s.thumbs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage not configured"})
		return
	}

	limit := defaultListLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.requestTimeout())
	defer cancel()

	records, err := s.thumbs.ListRecentThumbnails(ctx, limit)
	if err != nil {
		s.renderStoreError(c, err, nil)
		return
	}

	summaries := make([]thumbnailSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, thumbnailSummary{
			ID:          rec.ID,
			PlotTitle:   rec.PlotTitle,
			FocusSeries: rec.FocusSeries,
			Status:      rec.Status,
			PointCount:  rec.PointCount,
			SeriesCount: rec.SeriesCount,
			LatestValue: rec.LatestValue,
			CreatedAt:   rec.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"data": summaries,
		"meta": gin.H{
			"count": len(summaries),
		},
	})
}

// handleNormalizeRows exposes the renderer-side row normalizer so
// front-end callers can chart full result sets without re-implementing
// timestamp and flag handling.
func (s *Server) handleNormalizeRows(c *gin.Context) {
	var req struct {
		Rows []map[string]any `json:"rows"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": thumbnail.NormalizeRows(req.Rows)})
}

func (s *Server) renderStoreError(c *gin.Context, err error, notFoundBody gin.H) {
	switch {
	case errors.Is(err, storage.ErrNotFound) && notFoundBody != nil:
		c.JSON(http.StatusNotFound, notFoundBody)
	case errors.Is(err, storage.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage not configured"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
