package handler

import (
	"context"
	"net/http"
	"time"

	"birthday-memory-app/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing service answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	db      Pinger
	storage Pinger
	started time.Time
}

func NewHealthHandler(db, storage Pinger) *HealthHandler {
	return &HealthHandler{db: db, storage: storage, started: time.Now()}
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	res := httpdto.HealthResponse{
		Status:    "ok",
		MongoDB:   status(ctx, h.db, "connected", "disconnected"),
		Storage:   status(ctx, h.storage, "available", "unavailable"),
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.started).Seconds(),
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessMessage(res, "server is running"))
}

func status(ctx context.Context, p Pinger, up, down string) string {
	if p == nil || p.Ping(ctx) != nil {
		return down
	}
	return up
}
