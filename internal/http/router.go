// Package http is the HTTP Control Plane (C8) and the Live Event Stream
// (C11): a gin.Engine exposing queue/subscription/history CRUD, Prometheus
// metrics, and a WebSocket push feed.
package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/arturoibarra/ovh-fleet/internal/events"
	"github.com/arturoibarra/ovh-fleet/internal/metrics"
	"github.com/arturoibarra/ovh-fleet/internal/monitor"
	"github.com/arturoibarra/ovh-fleet/internal/store"
)

var (
	errTaskBusy          = errors.New("task has an attempt in progress")
	errInvalidTransition = errors.New("invalid status transition")
)

// Handler holds every dependency the control plane's routes need. It is
// constructed once by cmd/api from the Engine's components and never
// mutated afterward.
type Handler struct {
	Queue         *store.QueueStore
	History       *store.HistoryStore
	Subscriptions *store.SubscriptionStore
	Accounts      *store.AccountStore
	Monitor       *monitor.Monitor
	Hub           *events.Hub
}

// RouterConfig carries the auth/metrics wiring the router needs beyond the
// store-backed handlers above.
type RouterConfig struct {
	APISecretKey string
	AuthEnabled  bool
	Log          zerolog.Logger
	Registry     *metrics.Registry
}

// NewRouter builds the gin.Engine: middleware chain, then route groups.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	gm := newGinMetrics(cfg.Registry.Registerer)

	r.Use(RequestID(), Logger(cfg.Log), Recovery(cfg.Log), gm.middleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Registry.Gatherer, promhttp.HandlerOpts{})))

	authed := r.Group("/")
	authed.Use(APIKeyAuth(cfg.APISecretKey, cfg.AuthEnabled), AccountContext())

	authed.GET("/ws/events", serveEvents(h.Hub, cfg.Log))

	authed.GET("/queue", h.listQueue)
	authed.GET("/queue/paged", h.listQueuePaged)
	authed.POST("/queue", h.createQueueTask)
	authed.PUT("/queue/:id", h.updateQueueTask)
	authed.PUT("/queue/:id/status", h.updateQueueTaskStatus)
	authed.PUT("/queue/:id/restart", h.restartQueueTask)
	authed.DELETE("/queue/:id", h.deleteQueueTask)
	authed.DELETE("/queue/clear", h.clearQueue)

	authed.GET("/purchase-history", h.listHistory)
	authed.DELETE("/purchase-history", h.clearHistory)

	authed.GET("/stats", h.stats)

	authed.GET("/vps-monitor/subscriptions", h.listSubscriptions)
	authed.POST("/vps-monitor/subscriptions", h.createSubscription)
	authed.DELETE("/vps-monitor/subscriptions/:id", h.deleteSubscription)
	authed.GET("/vps-monitor/status", h.monitorStatus)

	return r
}
