package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"shop-console/internal/domain"
	rabbit "shop-console/internal/infra/rabbitmq"
	"shop-console/internal/repository"
)

var (
	ErrShopReadFailed  = errors.New("read shop status")
	ErrShopWriteFailed = errors.New("update shop status")
	// ErrPurgeFailed means the shop status change stands but no order was
	// deleted.
	ErrPurgeFailed = errors.New("purge orders")
)

type ToggleResult struct {
	IsOpen    bool      `json:"isOpen"`
	UpdatedAt time.Time `json:"updatedAt"`
	// PurgeOffered is true when the shop just closed; the operator decides
	// whether to call Purge.
	PurgeOffered bool `json:"purgeOffered"`
}

type CloseResult struct {
	IsOpen  bool  `json:"isOpen"`
	Purged  bool  `json:"purged"`
	Deleted int64 `json:"deleted"`
}

type ShopService struct {
	shop      repository.ShopStatusRepository
	orders    repository.OrderRepository
	publisher rabbit.PublisherInterface
	refresher interface{ RequestRefresh() }
	now       func() time.Time
}

func NewShopService(shop repository.ShopStatusRepository, orders repository.OrderRepository, pub rabbit.PublisherInterface, refresher interface{ RequestRefresh() }) *ShopService {
	if pub == nil {
		pub = rabbit.Discard
	}
	return &ShopService{
		shop:      shop,
		orders:    orders,
		publisher: pub,
		refresher: refresher,
		now:       time.Now,
	}
}

// Status reads the shop record. A store without the row counts as open.
func (s *ShopService) Status(ctx context.Context) (domain.ShopStatus, error) {
	st, err := s.shop.Get(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.ShopStatus{IsOpen: true}, nil
	}
	if err != nil {
		return domain.ShopStatus{}, fmt.Errorf("%w: %w", ErrShopReadFailed, err)
	}
	return st, nil
}

// Toggle flips open/closed and persists the change time.
func (s *ShopService) Toggle(ctx context.Context) (ToggleResult, error) {
	cur, err := s.Status(ctx)
	if err != nil {
		return ToggleResult{}, err
	}
	return s.set(ctx, !cur.IsOpen)
}

func (s *ShopService) set(ctx context.Context, isOpen bool) (ToggleResult, error) {
	at := s.now()
	if err := s.shop.Set(ctx, isOpen, at); err != nil {
		log.Printf("Error updating shop status: %v", err)
		return ToggleResult{}, fmt.Errorf("%w: %w", ErrShopWriteFailed, err)
	}
	log.Printf("Shop is now open=%t", isOpen)

	go s.publish(context.Background(), domain.EventShopStatusChanged, domain.ShopStatusChangedEvent{IsOpen: isOpen, ChangedAt: at})
	return ToggleResult{IsOpen: isOpen, UpdatedAt: at, PurgeOffered: !isOpen}, nil
}

// Purge deletes every order that is not accepted. It cannot be undone.
func (s *ShopService) Purge(ctx context.Context) (int64, error) {
	n, err := s.orders.DeleteNotAccepted(ctx)
	if err != nil {
		log.Printf("Error clearing orders: %v", err)
		return 0, fmt.Errorf("%w: %w", ErrPurgeFailed, err)
	}

	go s.publish(context.Background(), domain.EventOrdersPurged, domain.OrdersPurgedEvent{Deleted: n, PurgedAt: s.now()})
	if s.refresher != nil {
		s.refresher.RequestRefresh()
	}
	return n, nil
}

// Close marks the shop closed when it is open, then purges if the operator
// confirmed. A purge failure after a successful close is returned together
// with the closed result.
func (s *ShopService) Close(ctx context.Context, purge bool) (CloseResult, error) {
	cur, err := s.Status(ctx)
	if err != nil {
		return CloseResult{}, err
	}
	if cur.IsOpen {
		if _, err := s.set(ctx, false); err != nil {
			return CloseResult{IsOpen: true}, err
		}
	}

	res := CloseResult{IsOpen: false}
	if !purge {
		return res, nil
	}
	n, err := s.Purge(ctx)
	if err != nil {
		return res, err
	}
	res.Purged = true
	res.Deleted = n
	return res, nil
}

func (s *ShopService) publish(ctx context.Context, eventType string, evt any) {
	if err := s.publisher.Publish(ctx, eventType, evt); err != nil {
		log.Printf("Failed to publish %s: %v", eventType, err)
	}
}
