package repository

import (
	"context"
	"errors"
	"time"

	"shop-console/internal/domain"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrStatusChanged means the row exists but no longer holds the
	// expected status.
	ErrStatusChanged = errors.New("order status changed")
)

type OrderRepository interface {
	// List returns every order, newest id first.
	List(ctx context.Context) ([]domain.Order, error)
	// UpdateStatus writes to only while the stored status equals from. An
	// empty from overwrites unconditionally. A missing row is ErrNotFound.
	UpdateStatus(ctx context.Context, id uint64, from, to domain.OrderStatus) error
	// DeleteNotAccepted removes every order whose status is not accepted.
	DeleteNotAccepted(ctx context.Context) (int64, error)
}

type ShopStatusRepository interface {
	Get(ctx context.Context) (domain.ShopStatus, error)
	Set(ctx context.Context, isOpen bool, at time.Time) error
}
