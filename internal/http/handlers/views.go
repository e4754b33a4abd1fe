// README: JSON projections of module types.
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"phlebo/internal/modules/collector"
	"phlebo/internal/modules/order"
)

func orderView(o *order.Order) gin.H {
	v := gin.H{
		"order_id":       o.ID,
		"customer_id":    o.CustomerID,
		"status":         o.Status,
		"pincode":        o.Pincode,
		"address":        o.Address,
		"requested_date": o.RequestedDate,
		"requested_hour": o.RequestedHour,
		"amount":         o.Amount.Amount,
		"currency":       o.Amount.Currency,
		"created_at":     o.CreatedAt.Format(time.RFC3339),
	}
	if o.Location != nil {
		v["lat"] = o.Location.Lat
		v["lng"] = o.Location.Lng
	}
	if o.CollectorID != nil {
		v["collector_id"] = *o.CollectorID
		v["slot_date"] = o.SlotDate
		v["slot_hour"] = o.SlotHour
	}
	if o.DistanceKm != nil {
		v["distance_km"] = *o.DistanceKm
	}
	if o.Fare != nil {
		v["fare"] = o.Fare.Amount
		v["fare_currency"] = o.Fare.Currency
	}
	if o.CancelReason != nil {
		v["cancel_reason"] = *o.CancelReason
	}
	return v
}

func profileView(p *collector.Profile) gin.H {
	v := gin.H{
		"collector_id":      p.ID,
		"name":              p.Name,
		"pincodes":          p.Pincodes,
		"start_hour":        p.StartHour,
		"end_hour":          p.EndHour,
		"capacity_per_hour": p.CapacityPerHour,
		"active":            p.Active,
	}
	if p.LastLocation != nil {
		v["lat"] = p.LastLocation.Lat
		v["lng"] = p.LastLocation.Lng
	}
	return v
}
