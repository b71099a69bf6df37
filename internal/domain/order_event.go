package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderArrived       = "order.arrived"
	EventOrderStatusChanged = "order.status_changed"
	EventShopStatusChanged  = "shop.status_changed"
	EventOrdersPurged       = "shop.purged"
)

type OrderArrivedEvent struct {
	OrderID   uint64          `json:"orderId"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"createdAt"`
}

type OrderStatusChangedEvent struct {
	OrderID   uint64      `json:"orderId"`
	From      OrderStatus `json:"from"`
	To        OrderStatus `json:"to"`
	Notified  bool        `json:"notified"`
	ChangedAt time.Time   `json:"changedAt"`
}

type ShopStatusChangedEvent struct {
	IsOpen    bool      `json:"isOpen"`
	ChangedAt time.Time `json:"changedAt"`
}

type OrdersPurgedEvent struct {
	Deleted  int64     `json:"deleted"`
	PurgedAt time.Time `json:"purgedAt"`
}
