package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	Cache       string `json:"cache"`
	ClockSynced bool   `json:"clockSynced"`
	Environment string `json:"environment"`
}

func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	dbStatus := "ok"
	if err := h.db.Ping(ctx); err != nil {
		dbStatus = "error"
		h.log.Error().Err(err).Msg("database ping failed")
	}

	cacheStatus := "ok"
	if err := h.cache.Ping(ctx).Err(); err != nil {
		cacheStatus = "error"
		h.log.Error().Err(err).Msg("redis ping failed")
	}

	_, synced := h.clock.MeasuredAt()

	c.JSON(http.StatusOK, healthResponse{
		Status:      "ok",
		Database:    dbStatus,
		Cache:       cacheStatus,
		ClockSynced: synced,
		Environment: h.cfg.Environment,
	})
}

// ServerTime is the lightweight endpoint clients (and the service itself,
// by default) use as the authoritative time source. The timestamp rides in
// both the standard Date header and the body.
func (h HandlerSet) ServerTime(c *gin.Context) {
	now := time.Now().UTC()
	c.Header("Date", now.Format(http.TimeFormat))
	c.JSON(http.StatusOK, gin.H{"serverTime": now})
}
