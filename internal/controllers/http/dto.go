package http

import (
	"time"

	"shop-console/internal/domain"
)

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type UpdateStatusResponse struct {
	Updated  bool   `json:"updated"`
	Notified bool   `json:"notified"`
	Message  string `json:"message"`
}

type CloseShopRequest struct {
	Purge bool `json:"purge"`
}

type PurgeResponse struct {
	Deleted int64 `json:"deleted"`
}

type SessionResponse struct {
	Active    bool       `json:"active"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
}

type OrderView struct {
	domain.Order
	StatusLabel string `json:"statusLabel"`
}

type OrdersResponse struct {
	Orders    []OrderView `json:"orders"`
	FetchedAt time.Time   `json:"fetchedAt"`
}

func toOrderViews(orders []domain.Order) []OrderView {
	out := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, OrderView{Order: o, StatusLabel: domain.StatusLabel(o.Status)})
	}
	return out
}
