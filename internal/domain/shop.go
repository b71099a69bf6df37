package domain

import "time"

// ShopStatus is the singleton open/closed record.
type ShopStatus struct {
	IsOpen    bool      `json:"isOpen"`
	UpdatedAt time.Time `json:"updatedAt"`
}
