package rest

import (
	"net/http"

	"github.com/Gunvolt24/spot_drain/internal/ports"
	"github.com/Gunvolt24/spot_drain/pkg/httpx"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Handler — ops-эндпоинты воркера: пробы, состояние, метрики.
type Handler struct {
	status ports.StatusProvider
	log    ports.Logger
}

func NewHandler(status ports.StatusProvider, log ports.Logger) *Handler {
	return &Handler{status: status, log: log}
}

// NewRouter — gin с middleware: request id → otel → логирование → recovery.
// Пустой serviceName отключает otelgin.
func NewRouter(h *Handler, serviceName, ginMode string) *gin.Engine {
	if ginMode != "" {
		gin.SetMode(ginMode)
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(httpx.RequestIDMiddleware())
	if serviceName != "" {
		r.Use(otelgin.Middleware(serviceName))
	}
	r.Use(httpx.RequestLogger(h.log))
	r.Use(httpx.Recovery(h.log))

	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/healthz", h.healthz)
	r.GET("/readyz", h.readyz)
	r.GET("/status", h.getStatus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})

	return r
}

// healthz — процесс жив (в том числе во время остановки).
func (h *Handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// readyz — 503, как только получено уведомление об эвикции или начата остановка:
// балансировщик должен перестать слать сюда трафик.
func (h *Handler) readyz(c *gin.Context) {
	st := h.status.Status(c.Request.Context())
	if st.Evicted || st.Phase != "running" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "draining", "phase": st.Phase, "reason": st.Reason})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *Handler) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.status.Status(c.Request.Context()))
}
