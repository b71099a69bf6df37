package http

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"shop-console/internal/domain"
	"shop-console/internal/infra/redisstore"
	"shop-console/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionController starts and stops the polling loop.
type SessionController interface {
	Start() bool
	Stop() bool
	Active() bool
	StartedAt() time.Time
}

type Handler struct {
	session   SessionController
	snapshots services.SnapshotSource
	lifecycle *services.LifecycleService
	shop      *services.ShopService
	cache     *redisstore.Cache
	// instance keeps cached summaries of separate processes apart; snapshot
	// sequence numbers restart with every process.
	instance string
}

// NewHandler wires the console routes. cache may be nil, in which case the
// summary is computed on every request.
func NewHandler(session SessionController, snaps services.SnapshotSource, lifecycle *services.LifecycleService, shop *services.ShopService, cache *redisstore.Cache) *Handler {
	return &Handler{
		session:   session,
		snapshots: snaps,
		lifecycle: lifecycle,
		shop:      shop,
		cache:     cache,
		instance:  uuid.NewString(),
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/session", h.StartSession)
	r.DELETE("/session", h.StopSession)
	r.GET("/session", h.GetSession)

	r.GET("/orders", h.ListOrders)
	r.GET("/orders/summary", h.GetSummary)
	r.POST("/orders/:id/status", h.UpdateStatus)

	r.GET("/shop", h.GetShop)
	r.POST("/shop/toggle", h.ToggleShop)
	r.POST("/shop/purge", h.PurgeOrders)
	r.POST("/shop/close", h.CloseShop)
}

func (h *Handler) StartSession(c *gin.Context) {
	code := http.StatusCreated
	if !h.session.Start() {
		code = http.StatusOK
	}
	c.JSON(code, h.sessionResponse())
}

func (h *Handler) StopSession(c *gin.Context) {
	h.session.Stop()
	c.JSON(http.StatusOK, h.sessionResponse())
}

func (h *Handler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.sessionResponse())
}

func (h *Handler) sessionResponse() SessionResponse {
	if !h.session.Active() {
		return SessionResponse{}
	}
	at := h.session.StartedAt()
	return SessionResponse{Active: true, StartedAt: &at}
}

func (h *Handler) ListOrders(c *gin.Context) {
	snap := h.snapshots.Snapshot()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "orders not loaded yet"})
		return
	}

	status := domain.OrderStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown status %q", status)})
		return
	}
	payment := domain.PaymentMethod(c.Query("payment"))
	if payment != "" && !payment.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown payment method %q", payment)})
		return
	}

	c.JSON(http.StatusOK, OrdersResponse{
		Orders:    toOrderViews(snap.Filter(status, payment)),
		FetchedAt: snap.FetchedAt,
	})
}

func (h *Handler) GetSummary(c *gin.Context) {
	snap := h.snapshots.Snapshot()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "orders not loaded yet"})
		return
	}

	ctx := c.Request.Context()
	cacheKey := h.summaryKey(snap)
	if h.cache != nil {
		var cached services.Summary
		hit, err := h.cache.GetJSON(ctx, cacheKey, &cached)
		if err != nil {
			log.Printf("Summary cache read failed: %v", err)
		}
		if hit {
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	sum := services.Summarize(snap, time.Now())
	if h.cache != nil {
		if err := h.cache.SetJSON(ctx, cacheKey, sum); err != nil {
			log.Printf("Summary cache write failed: %v", err)
		}
	}
	c.JSON(http.StatusOK, sum)
}

func (h *Handler) summaryKey(snap *services.Snapshot) string {
	return "orders:summary:" + h.instance + ":" + strconv.FormatUint(snap.Seq, 10)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	target, err := domain.ParseStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.lifecycle.Transition(c.Request.Context(), id, target)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, UpdateStatusResponse{
		Updated:  res.Updated,
		Notified: res.Notified,
		Message:  res.Message(),
	})
}

func (h *Handler) GetShop(c *gin.Context) {
	st, err := h.shop.Status(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"isOpen": st.IsOpen, "updatedAt": st.UpdatedAt})
}

func (h *Handler) ToggleShop(c *gin.Context) {
	res, err := h.shop.Toggle(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) PurgeOrders(c *gin.Context) {
	n, err := h.shop.Purge(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, PurgeResponse{Deleted: n})
}

func (h *Handler) CloseShop(c *gin.Context) {
	var req CloseShopRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.shop.Close(c.Request.Context(), req.Purge)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "isOpen": res.IsOpen})
		return
	}
	c.JSON(http.StatusOK, res)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrIllegalTransition),
		errors.Is(err, services.ErrOrderChanged):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrStatusWriteFailed),
		errors.Is(err, services.ErrShopReadFailed),
		errors.Is(err, services.ErrShopWriteFailed),
		errors.Is(err, services.ErrPurgeFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
