// README: Order handlers for intake, lookup, and lifecycle progression.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"phlebo/internal/http/middleware"
	"phlebo/internal/modules/order"
	"phlebo/internal/types"
)

// Geocoder resolves a street address when the client sends none of its own
// coordinates. Optional; without one the order is created unlocated.
type Geocoder interface {
	Resolve(ctx context.Context, address string) (types.Point, error)
}

type OrderHandler struct {
	order    *order.Service
	geocoder Geocoder
}

func NewOrderHandler(svc *order.Service, geocoder Geocoder) *OrderHandler {
	return &OrderHandler{order: svc, geocoder: geocoder}
}

type createOrderReq struct {
	CustomerID    string   `json:"customer_id"`
	Lat           *float64 `json:"lat"`
	Lng           *float64 `json:"lng"`
	Pincode       string   `json:"pincode"`
	Address       string   `json:"address"`
	RequestedDate string   `json:"requested_date"`
	RequestedHour int      `json:"requested_hour"`
	Amount        int64    `json:"amount"`
	Currency      string   `json:"currency"`
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	var loc *types.Point
	if req.Lat != nil && req.Lng != nil {
		loc = &types.Point{Lat: *req.Lat, Lng: *req.Lng}
	} else if h.geocoder != nil && req.Address != "" {
		// Best effort; an unresolvable address still books, it just cannot
		// be distance-ranked until coordinates arrive.
		if p, err := h.geocoder.Resolve(c.Request.Context(), req.Address); err == nil {
			loc = &p
		}
	}
	id, err := h.order.Create(c.Request.Context(), order.CreateCommand{
		CustomerID:    types.ID(req.CustomerID),
		Location:      loc,
		Pincode:       req.Pincode,
		Address:       req.Address,
		RequestedDate: req.RequestedDate,
		RequestedHour: req.RequestedHour,
		Amount:        types.Money{Amount: req.Amount, Currency: req.Currency},
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"order_id": id, "status": order.StatusPending})
}

func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	o, err := h.order.Get(c.Request.Context(), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, orderView(o))
}

type cancelReq struct {
	Reason string `json:"reason"`
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req cancelReq
	_ = c.ShouldBindJSON(&req)
	if err := h.order.Cancel(c.Request.Context(), id, middleware.Actor(c), req.Reason); err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": order.StatusCancelled})
}

func (h *OrderHandler) MarkReached(c *gin.Context) {
	h.mark(c, h.order.MarkReached, order.StatusReached)
}

func (h *OrderHandler) MarkCollected(c *gin.Context) {
	h.mark(c, h.order.MarkCollected, order.StatusCollected)
}

func (h *OrderHandler) MarkHandedOver(c *gin.Context) {
	h.mark(c, h.order.MarkHandedOver, order.StatusHandedOver)
}

func (h *OrderHandler) Confirm(c *gin.Context) {
	h.mark(c, h.order.Confirm, order.StatusCompleted)
}

func (h *OrderHandler) Void(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req cancelReq
	_ = c.ShouldBindJSON(&req)
	if err := h.order.Void(c.Request.Context(), id, middleware.Actor(c), req.Reason); err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": order.StatusVoided})
}

func (h *OrderHandler) mark(c *gin.Context, fn func(ctx context.Context, id types.ID, actor order.Actor) error, to order.Status) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := fn(c.Request.Context(), id, middleware.Actor(c)); err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": to})
}
