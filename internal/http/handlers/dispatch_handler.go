// README: Dispatch handlers; candidate search, slot assignment, worklists.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"phlebo/internal/http/middleware"
	"phlebo/internal/modules/assignment"
	"phlebo/internal/modules/dispatch"
	"phlebo/internal/modules/matching"
	"phlebo/internal/modules/order"
	"phlebo/internal/types"
)

type DispatchHandler struct {
	orders     *order.Service
	matching   *matching.Engine
	assignment *assignment.Service
	view       *dispatch.View
}

func NewDispatchHandler(orders *order.Service, engine *matching.Engine, assign *assignment.Service, view *dispatch.View) *DispatchHandler {
	return &DispatchHandler{orders: orders, matching: engine, assignment: assign, view: view}
}

// slotQuery reads the date/hour pair shared by candidate search and booking.
func slotQuery(c *gin.Context) (string, int, bool) {
	date := c.Query("date")
	hourStr := c.Query("hour")
	if date == "" || hourStr == "" {
		writeError(c, http.StatusBadRequest, "date and hour are required")
		return "", 0, false
	}
	hour, err := strconv.Atoi(hourStr)
	if err != nil || hour < 0 || hour > 23 {
		writeError(c, http.StatusBadRequest, "hour must be 0-23")
		return "", 0, false
	}
	return date, hour, true
}

func (h *DispatchHandler) Candidates(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	date, hour, ok := slotQuery(c)
	if !ok {
		return
	}
	o, err := h.orders.Get(c.Request.Context(), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	candidates, err := h.matching.FindCandidates(c.Request.Context(), o, date, hour)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	out := make([]gin.H, 0, len(candidates))
	for _, cand := range candidates {
		out = append(out, gin.H{
			"collector_id":       cand.CollectorID,
			"name":               cand.Name,
			"distance_km":        cand.DistanceKm,
			"estimated_fare":     cand.EstimatedFare.Amount,
			"currency":           cand.EstimatedFare.Currency,
			"available_capacity": cand.AvailableCapacity,
		})
	}
	writeJSON(c, http.StatusOK, gin.H{"order_id": id, "candidates": out})
}

type assignReq struct {
	CollectorID string `json:"collector_id"`
	Date        string `json:"date"`
	Hour        int    `json:"hour"`
}

func assignResult(res *assignment.Result) gin.H {
	v := gin.H{
		"order_id":     res.OrderID,
		"collector_id": res.CollectorID,
		"slot_date":    res.Date,
		"slot_hour":    res.Hour,
	}
	if res.DistanceKm != nil {
		v["distance_km"] = *res.DistanceKm
	}
	if res.Fare != nil {
		v["fare"] = res.Fare.Amount
		v["fare_currency"] = res.Fare.Currency
	}
	return v
}

func (h *DispatchHandler) Assign(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req assignReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := h.assignment.Assign(c.Request.Context(), id, types.ID(req.CollectorID), req.Date, req.Hour, middleware.Actor(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, assignResult(res))
}

func (h *DispatchHandler) Reassign(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req assignReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := h.assignment.Reassign(c.Request.Context(), id, types.ID(req.CollectorID), req.Date, req.Hour, middleware.Actor(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, assignResult(res))
}

func (h *DispatchHandler) Unassign(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.assignment.Unassign(c.Request.Context(), id, middleware.Actor(c)); err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"order_id": id, "status": order.StatusPending})
}

// Worklist returns the authenticated collector's route for a date,
// nearest order first.
func (h *DispatchHandler) Worklist(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		writeError(c, http.StatusBadRequest, "date is required")
		return
	}
	actor := middleware.Actor(c)
	items, err := h.view.WorklistFor(c.Request.Context(), actor.ID, date)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	out := make([]gin.H, 0, len(items))
	for i := range items {
		v := orderView(&items[i].Order)
		if items[i].Located {
			v["live_distance_km"] = items[i].DistanceKm
		}
		out = append(out, v)
	}
	writeJSON(c, http.StatusOK, gin.H{"date": date, "orders": out})
}

func (h *DispatchHandler) Summary(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		writeError(c, http.StatusBadRequest, "date is required")
		return
	}
	actor := middleware.Actor(c)
	sum, err := h.view.SummaryFor(c.Request.Context(), actor.ID, date)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"date":              date,
		"total_orders":      sum.TotalOrders,
		"pending":           sum.Pending,
		"in_progress":       sum.InProgress,
		"completed":         sum.Completed,
		"completed_revenue": sum.CompletedRevenue.Amount,
		"currency":          sum.CompletedRevenue.Currency,
	})
}
