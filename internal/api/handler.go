package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"catalog-service/internal/catalog"
	"catalog-service/internal/service"
	"catalog-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SnapshotReader returns the last published view state of a session
type SnapshotReader interface {
	Latest(ctx context.Context, sessionID string) ([]byte, error)
}

// Handler contains HTTP handlers
type Handler struct {
	sessions     *service.Manager
	availability *service.AvailabilityService
	snapshots    SnapshotReader
	checks       map[string]func(context.Context) error
	logger       *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(sessions *service.Manager, availability *service.AvailabilityService) *Handler {
	return &Handler{
		sessions:     sessions,
		availability: availability,
		logger:       util.GetLogger(),
	}
}

// WithSnapshots serves sessions held by other replicas from their last
// published view state.
func (h *Handler) WithSnapshots(snapshots SnapshotReader) *Handler {
	h.snapshots = snapshots
	return h
}

// WithReadinessCheck adds a dependency probed by the readiness endpoint
func (h *Handler) WithReadinessCheck(name string, check func(context.Context) error) *Handler {
	if h.checks == nil {
		h.checks = make(map[string]func(context.Context) error)
	}
	h.checks[name] = check
	return h
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(requestLogger(h.logger))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products/:slug/availability", h.getAvailability)
		v1.GET("/products/:slug/match", h.matchVariation)

		v1.POST("/sessions", h.openSession)
		v1.GET("/sessions/:id", h.getSession)
		v1.DELETE("/sessions/:id", h.closeSession)
		v1.POST("/sessions/:id/product", h.requestProduct)
		v1.PUT("/sessions/:id/channel", h.changeChannel)
		v1.POST("/sessions/:id/attribute", h.changeAttribute)
		v1.PUT("/sessions/:id/variation", h.selectVariation)
		v1.PUT("/sessions/:id/image", h.selectImage)
	}
}

// OpenSessionRequest opens a browsing session
type OpenSessionRequest struct {
	Channel string `json:"channel"`
	Page    string `json:"page"`
}

// RequestProductRequest loads a product into a session. Slug may be a route
// slug ending in the product id or the bare id.
type RequestProductRequest struct {
	Slug string `json:"slug" binding:"required"`
}

// ChangeChannelRequest switches the session channel
type ChangeChannelRequest struct {
	Channel string `json:"channel" binding:"required"`
}

// ChangeAttributeRequest changes one variation attribute
type ChangeAttributeRequest struct {
	Label string `json:"label" binding:"required"`
	Value string `json:"value"`
}

// SelectIndexRequest selects a variation or image by index
type SelectIndexRequest struct {
	Index *int `json:"index" binding:"required"`
}

// SelectionResponse reports whether a selection change was applied
type SelectionResponse struct {
	Applied bool                     `json:"applied"`
	State   service.ProductViewState `json:"state"`
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"sessions": h.sessions.Len(),
		"time":     time.Now().Unix(),
	})
}

// getAvailability resolves availability without a session
func (h *Handler) getAvailability(c *gin.Context) {
	req := service.ResolveRequest{
		ProductID: catalog.ProductIDFromSlug(c.Param("slug")),
		Channel:   c.DefaultQuery("channel", h.sessions.DefaultChannel()),
	}

	if raw := c.Query("variation"); raw != "" {
		index, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid variation index",
			})
			return
		}
		req.Variation = &index
	}

	state, err := h.availability.Resolve(c.Request.Context(), req)
	if err != nil {
		c.JSON(transportStatus(err), gin.H{
			"error":     "Failed to resolve availability",
			"errorCode": catalog.ErrorCode(err),
			"details":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, state)
}

// matchVariation resolves an attribute change without a session
func (h *Handler) matchVariation(c *gin.Context) {
	current, err := strconv.Atoi(c.DefaultQuery("current", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid current variation index",
		})
		return
	}

	label := c.Query("label")
	if label == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "label is required",
		})
		return
	}

	productID := catalog.ProductIDFromSlug(c.Param("slug"))
	index, ok, err := h.availability.Match(c.Request.Context(), productID, current, label, c.Query("value"))
	if err != nil {
		c.JSON(transportStatus(err), gin.H{
			"error":     "Failed to match variation",
			"errorCode": catalog.ErrorCode(err),
			"details":   err.Error(),
		})
		return
	}

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "No variation matches",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"index": index,
	})
}

// openSession handles session creation
func (h *Handler) openSession(c *gin.Context) {
	var req OpenSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request body",
				"details": err.Error(),
			})
			return
		}
	}

	session := h.sessions.Open(c.Request.Context(), req.Channel, req.Page)
	c.JSON(http.StatusCreated, session.State())
}

// getSession returns the current view state of a session. Sessions open on
// another replica are answered from their snapshot when one is available.
func (h *Handler) getSession(c *gin.Context) {
	id := c.Param("id")
	if session, ok := h.sessions.Get(id); ok {
		c.JSON(http.StatusOK, session.State())
		return
	}

	if h.snapshots != nil {
		doc, err := h.snapshots.Latest(c.Request.Context(), id)
		if err == nil {
			c.Data(http.StatusOK, "application/json; charset=utf-8", doc)
			return
		}
		h.logger.Debug("No view state snapshot", zap.String("session_id", id), zap.Error(err))
	}

	c.JSON(http.StatusNotFound, gin.H{
		"error": "Session not found",
	})
}

// closeSession clears and forgets a session
func (h *Handler) closeSession(c *gin.Context) {
	if !h.sessions.Close(c.Request.Context(), c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Session not found",
		})
		return
	}
	c.Status(http.StatusNoContent)
}

// requestProduct loads a product and its related products into a session
func (h *Handler) requestProduct(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req RequestProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	productID := catalog.ProductIDFromSlug(req.Slug)
	ctx := c.Request.Context()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := session.RequestRelated(ctx, productID); err != nil && !errors.Is(err, service.ErrSuperseded) {
			h.logger.Debug("Related products unavailable",
				zap.String("product_id", productID),
				zap.Error(err))
		}
	}()

	_, err := session.RequestProduct(ctx, productID)
	wg.Wait()

	if errors.Is(err, service.ErrSuperseded) {
		c.JSON(http.StatusConflict, gin.H{
			"error": "Superseded by a newer product request",
			"state": session.State(),
		})
		return
	}

	// fetch failures are part of the view state
	c.JSON(http.StatusOK, session.State())
}

// changeChannel switches the session channel
func (h *Handler) changeChannel(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req ChangeChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, session.ChangeChannel(c.Request.Context(), req.Channel))
}

// changeAttribute resolves an attribute change to a variation
func (h *Handler) changeAttribute(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req ChangeAttributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	state, applied := session.ChangeAttribute(c.Request.Context(), req.Label, req.Value)
	c.JSON(http.StatusOK, SelectionResponse{Applied: applied, State: state})
}

// selectVariation selects a variation by index
func (h *Handler) selectVariation(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req SelectIndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	state, applied := session.SelectVariation(c.Request.Context(), *req.Index)
	c.JSON(http.StatusOK, SelectionResponse{Applied: applied, State: state})
}

// selectImage selects the image shown for the current variation
func (h *Handler) selectImage(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req SelectIndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	state, applied := session.SelectImage(c.Request.Context(), *req.Index)
	c.JSON(http.StatusOK, SelectionResponse{Applied: applied, State: state})
}

func (h *Handler) session(c *gin.Context) (*service.Session, bool) {
	session, ok := h.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Session not found",
		})
		return nil, false
	}
	return session, true
}

func transportStatus(err error) int {
	code := catalog.ErrorCode(err)
	if code >= 400 && code < 600 {
		return code
	}
	return http.StatusBadGateway
}

// requestLogger logs each request once it completes
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
