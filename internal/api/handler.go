package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"ticket-service/internal/gateway"
	"ticket-service/internal/redisclient"
	"ticket-service/internal/service"
	"ticket-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	orderCacheTTL = 30 * time.Second
	scanDebounce  = 2 * time.Second
)

// Handler contains HTTP handlers
type Handler struct {
	ticketService *service.TicketService
	scanService   *service.ScanService
	redis         *redisclient.Client
}

// NewHandler creates a new HTTP handler
func NewHandler(ticketService *service.TicketService, scanService *service.ScanService, redis *redisclient.Client) *Handler {
	return &Handler{
		ticketService: ticketService,
		scanService:   scanService,
		redis:         redis,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/orders", h.prepareOrder)
		v1.GET("/orders/:id", h.getOrder)
		v1.POST("/orders/:id/approve", h.approveOrder)
		v1.POST("/orders/:id/cancel", h.cancelOrder)
		v1.POST("/scan", h.redeem)
		v1.DELETE("/orders/:id/redemption", h.unredeem)
	}
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
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// prepareOrder creates a pending order and returns the checksum token
// for the payment popup
func (h *Handler) prepareOrder(c *gin.Context) {
	var req service.PrepareOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.ticketService.PrepareOrder(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to prepare order",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// approveOrder settles the payment with the PG and issues the tickets
func (h *Handler) approveOrder(c *gin.Context) {
	var req service.ApproveOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	req.OrderID = c.Param("id")
	if req.IPAddr == "" {
		req.IPAddr = c.ClientIP()
	}

	order, err := h.ticketService.ApproveOrder(c.Request.Context(), &req)
	if err != nil {
		c.JSON(gatewayStatus(err), gin.H{
			"error":   "Payment was not completed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// cancelOrder cancels a settled payment, fully or partially
func (h *Handler) cancelOrder(c *gin.Context) {
	var req service.CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	req.OrderID = c.Param("id")
	if req.IPAddr == "" {
		req.IPAddr = c.ClientIP()
	}

	order, err := h.ticketService.CancelOrder(c.Request.Context(), &req)
	if err != nil {
		c.JSON(gatewayStatus(err), gin.H{
			"error":   "Cancellation was not completed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// getOrder returns an order with its tickets, cached briefly for the
// gate displays
func (h *Handler) getOrder(c *gin.Context) {
	orderID := c.Param("id")
	ctx := c.Request.Context()

	if h.redis != nil {
		if cached, err := h.redis.GetOrderSummary(ctx, orderID); err == nil && cached != nil {
			c.Data(http.StatusOK, "application/json", cached)
			return
		}
	}

	order, tickets, err := h.ticketService.GetOrder(ctx, orderID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Order not found",
			"details": err.Error(),
		})
		return
	}

	body := gin.H{"order": order, "tickets": tickets}
	if h.redis != nil {
		if payload, err := json.Marshal(body); err == nil {
			if err := h.redis.CacheOrderSummary(ctx, orderID, payload, orderCacheTTL); err != nil {
				util.GetLogger().Warn("Failed to cache order summary", zap.Error(err))
			}
		}
	}

	c.JSON(http.StatusOK, body)
}

// redeemRequest is the gate scanner's payload
type redeemRequest struct {
	Code      string `json:"code" binding:"required"`
	ScannerID string `json:"scanner_id" binding:"required"`
	Location  string `json:"location"`
}

// redeem admits a presented code at most once
func (h *Handler) redeem(c *gin.Context) {
	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	ctx := c.Request.Context()

	// drop rapid double presses from the same device; correctness does
	// not depend on this, the scan-log constraint does
	if h.redis != nil {
		first, err := h.redis.DebounceScan(ctx, req.Code, scanDebounce)
		if err != nil {
			util.GetLogger().Warn("Scan debounce unavailable", zap.Error(err))
		} else if !first {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Scan already in progress for this code",
			})
			return
		}
	}

	outcome, err := h.scanService.Redeem(ctx, req.Code, req.ScannerID, req.Location)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to process scan",
			"details": err.Error(),
		})
		return
	}

	status := http.StatusOK
	if outcome.Status == service.RedeemInvalid {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, outcome)
}

// unredeem reverses a redemption; operator control path
func (h *Handler) unredeem(c *gin.Context) {
	orderID := c.Param("id")

	if err := h.scanService.Unredeem(c.Request.Context(), orderID); err != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Failed to reverse redemption",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order_id": orderID, "status": "reverted"})
}

// gatewayStatus maps service errors to HTTP statuses: PG declines are
// payment-required, transport trouble is a bad gateway, everything
// else (preconditions included) is a conflict.
func gatewayStatus(err error) int {
	var pe *gateway.ProtocolError
	if errors.As(err, &pe) {
		return http.StatusPaymentRequired
	}
	var te *gateway.TransportError
	if errors.As(err, &te) || errors.Is(err, gateway.ErrCipherDecode) {
		return http.StatusBadGateway
	}
	return http.StatusConflict
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
