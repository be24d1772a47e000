package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cbout22/policygate/internal/manifest"
	"github.com/cbout22/policygate/internal/policy"
)

// PolicyService is the set of operations exposed over HTTP.
type PolicyService interface {
	OutlineRouter(ctx context.Context) (string, error)
	SyncRepository(ctx context.Context) (map[string]string, error)
	ReadRules(ctx context.Context, names []string) (string, error)
	CopyScripts(ctx context.Context, names []string) (*policy.CopiedScripts, error)
}

// StatusReader returns the stored sync metadata; nil means never synced.
type StatusReader interface {
	Metadata() (*manifest.SyncMetadata, error)
}

// Handler translates HTTP requests into calls on the policy service.
type Handler struct {
	svc    PolicyService
	status StatusReader
	log    *slog.Logger
}

type namesRequest struct {
	Names []string `json:"names"`
}

// RegisterRoutes mounts the gateway API onto the given Gin engine.
func RegisterRoutes(r *gin.Engine, svc PolicyService, status StatusReader, gatherer prometheus.Gatherer, log *slog.Logger) {
	h := &Handler{svc: svc, status: status, log: log}

	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := r.Group("/v1")
	v1.GET("/router", h.Outline)
	v1.GET("/status", h.Status)
	v1.POST("/sync", h.Sync)
	v1.POST("/rules", h.ReadRules)
	v1.POST("/scripts", h.CopyScripts)
}

// Health handles GET /healthz.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Outline handles GET /v1/router.
func (h *Handler) Outline(c *gin.Context) {
	md, err := h.svc.OutlineRouter(c.Request.Context())
	if err != nil {
		h.fail(c, "failed to outline router", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"outline": md})
}

// Status handles GET /v1/status.
func (h *Handler) Status(c *gin.Context) {
	md, err := h.status.Metadata()
	if err != nil {
		h.fail(c, "failed to read sync metadata", err)
		return
	}
	if md == nil {
		c.JSON(http.StatusOK, gin.H{"synced": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"synced": true, "metadata": md})
}

// Sync handles POST /v1/sync.
func (h *Handler) Sync(c *gin.Context) {
	res, err := h.svc.SyncRepository(c.Request.Context())
	if err != nil {
		h.fail(c, "forced sync failed", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ReadRules handles POST /v1/rules.
func (h *Handler) ReadRules(c *gin.Context) {
	var req namesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "bad_request"})
		return
	}

	content, err := h.svc.ReadRules(c.Request.Context(), req.Names)
	if err != nil {
		h.fail(c, "failed to read rules", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": content})
}

// CopyScripts handles POST /v1/scripts.
func (h *Handler) CopyScripts(c *gin.Context) {
	var req namesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "bad_request"})
		return
	}

	res, err := h.svc.CopyScripts(c.Request.Context(), req.Names)
	if err != nil {
		h.fail(c, "failed to copy scripts", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) fail(c *gin.Context, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error(msg, "error", err, "request_id", c.GetString(requestIDKey))
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": errorKind(err)})
}
