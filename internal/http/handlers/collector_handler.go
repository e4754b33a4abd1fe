// README: Collector profile administration and location reporting.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"phlebo/internal/http/middleware"
	"phlebo/internal/modules/collector"
	"phlebo/internal/modules/location"
	"phlebo/internal/types"
)

type CollectorHandler struct {
	collectors *collector.Service
	locations  *location.Service
}

func NewCollectorHandler(collectors *collector.Service, locations *location.Service) *CollectorHandler {
	return &CollectorHandler{collectors: collectors, locations: locations}
}

type collectorReq struct {
	Name            string   `json:"name"`
	Pincodes        []string `json:"pincodes"`
	StartHour       int      `json:"start_hour"`
	EndHour         int      `json:"end_hour"`
	CapacityPerHour int      `json:"capacity_per_hour"`
}

func (h *CollectorHandler) Create(c *gin.Context) {
	var req collectorReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	id, err := h.collectors.Create(c.Request.Context(), collector.CreateCommand{
		Name:            req.Name,
		Pincodes:        req.Pincodes,
		StartHour:       req.StartHour,
		EndHour:         req.EndHour,
		CapacityPerHour: req.CapacityPerHour,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"collector_id": id})
}

func (h *CollectorHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := h.collectors.Get(c.Request.Context(), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, profileView(p))
}

func (h *CollectorHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req collectorReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	err := h.collectors.Update(c.Request.Context(), collector.UpdateCommand{
		ID:              id,
		Name:            req.Name,
		Pincodes:        req.Pincodes,
		StartHour:       req.StartHour,
		EndHour:         req.EndHour,
		CapacityPerHour: req.CapacityPerHour,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"collector_id": id})
}

func (h *CollectorHandler) Deactivate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.collectors.Deactivate(c.Request.Context(), id); err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"collector_id": id, "active": false})
}

type locationReq struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// UpdateLocation reports the authenticated collector's own position.
func (h *CollectorHandler) UpdateLocation(c *gin.Context) {
	var req locationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	actor := middleware.Actor(c)
	err := h.locations.Update(c.Request.Context(), actor.ID, types.Point{Lat: req.Lat, Lng: req.Lng})
	if err != nil {
		if err == location.ErrBadCoordinates {
			writeError(c, http.StatusBadRequest, err.Error())
			return
		}
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"collector_id": actor.ID})
}
