package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"shop-console/internal/domain"
	"shop-console/internal/infra/line"
	rabbit "shop-console/internal/infra/rabbitmq"
	"shop-console/internal/repository"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrStatusWriteFailed = errors.New("update order status")
	// ErrOrderChanged means the stored order moved on since the snapshot the
	// operator acted on; nothing was written.
	ErrOrderChanged = errors.New("order changed since last refresh")
)

// NotifyGuard hands out one marker per status change so customers are not
// messaged twice for it.
type NotifyGuard interface {
	Claim(ctx context.Context, orderID uint64, status domain.OrderStatus) (bool, error)
	Release(ctx context.Context, orderID uint64, status domain.OrderStatus) error
}

type TransitionResult struct {
	OrderID     uint64
	From        domain.OrderStatus
	To          domain.OrderStatus
	StatusLabel string
	Updated     bool
	Notified    bool
	// AlreadyNotified is set when an earlier identical change already
	// messaged the customer.
	AlreadyNotified bool
	// NotificationErr is independent of the status write, which stands.
	NotificationErr error
}

func (r TransitionResult) Message() string {
	switch {
	case !r.Updated:
		return "not updated"
	case r.NotificationErr != nil && errors.Is(r.NotificationErr, line.ErrNotConfigured):
		return "updated, notification not configured"
	case r.NotificationErr != nil:
		return "updated but notification failed: " + r.NotificationErr.Error()
	case r.Notified:
		return "updated, notified"
	case r.AlreadyNotified:
		return "updated, customer already notified"
	default:
		return "updated, not notified"
	}
}

type LifecycleService struct {
	repo      repository.OrderRepository
	snapshots SnapshotSource
	notifier  line.NotifierInterface
	publisher rabbit.PublisherInterface
	guard     NotifyGuard
	strict    bool
	now       func() time.Time
}

type LifecycleOption func(*LifecycleService)

// WithNotifyGuard deduplicates notifications per status change.
func WithNotifyGuard(g NotifyGuard) LifecycleOption {
	return func(l *LifecycleService) { l.guard = g }
}

// WithOverwrite disables the transition table: any known status may be
// written over any other.
func WithOverwrite() LifecycleOption {
	return func(l *LifecycleService) { l.strict = false }
}

func NewLifecycleService(repo repository.OrderRepository, snaps SnapshotSource, n line.NotifierInterface, pub rabbit.PublisherInterface, opts ...LifecycleOption) *LifecycleService {
	if pub == nil {
		pub = rabbit.Discard
	}
	l := &LifecycleService{
		repo:      repo,
		snapshots: snaps,
		notifier:  n,
		publisher: pub,
		strict:    true,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Transition moves a known order to target, persists it and notifies the
// customer when a messaging identity is on file. In strict mode the write
// only lands while the store still holds the status the snapshot showed.
// The in-memory snapshot is not touched; the next reconciliation reflects
// the write.
func (l *LifecycleService) Transition(ctx context.Context, orderID uint64, target domain.OrderStatus) (TransitionResult, error) {
	res := TransitionResult{OrderID: orderID, To: target}

	order, ok := l.snapshots.Snapshot().Find(orderID)
	if !ok {
		return res, fmt.Errorf("%w: %d", ErrOrderNotFound, orderID)
	}
	res.From = order.Status

	if !target.Valid() {
		return res, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, target)
	}
	if l.strict {
		if err := order.CheckTransition(target); err != nil {
			return res, err
		}
	}

	var expect domain.OrderStatus
	if l.strict {
		expect = order.Status
	}
	if err := l.repo.UpdateStatus(ctx, orderID, expect, target); err != nil {
		log.Printf("Error updating order %d: %v", orderID, err)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			l.snapshots.RequestRefresh()
			return res, fmt.Errorf("%w: %d", ErrOrderNotFound, orderID)
		case errors.Is(err, repository.ErrStatusChanged):
			l.snapshots.RequestRefresh()
			return res, fmt.Errorf("%w: %w", ErrOrderChanged, err)
		}
		return res, fmt.Errorf("%w: %w", ErrStatusWriteFailed, err)
	}
	res.Updated = true
	res.StatusLabel = domain.StatusLabel(target)

	if order.HasLineUser() {
		res.Notified, res.AlreadyNotified, res.NotificationErr = l.notify(ctx, order, target, res.StatusLabel)
	} else {
		log.Printf("Order %d has no LINE user id; skipping notification", orderID)
	}

	go l.publishStatusChanged(context.Background(), res)
	l.snapshots.RequestRefresh()

	log.Printf("Order %d: %s -> %s (%s)", orderID, res.From, target, res.Message())
	return res, nil
}

func (l *LifecycleService) notify(ctx context.Context, order domain.Order, target domain.OrderStatus, label string) (notified, duplicate bool, err error) {
	if l.guard != nil {
		claimed, gerr := l.guard.Claim(ctx, order.ID, target)
		if gerr != nil {
			// without the marker we may notify twice, which is allowed
			log.Printf("Notify guard unavailable for order %d: %v", order.ID, gerr)
		} else if !claimed {
			return false, true, nil
		}
	}

	err = l.notifier.Dispatch(ctx, line.Notification{
		LineUserID: *order.LineUserID,
		Items:      order.Items,
		Status:     label,
		Total:      order.Total,
	})
	if err != nil {
		if l.guard != nil {
			if rerr := l.guard.Release(ctx, order.ID, target); rerr != nil {
				log.Printf("Failed to release notify marker for order %d: %v", order.ID, rerr)
			}
		}
		return false, false, err
	}
	return true, false, nil
}

func (l *LifecycleService) publishStatusChanged(ctx context.Context, res TransitionResult) {
	evt := domain.OrderStatusChangedEvent{
		OrderID:   res.OrderID,
		From:      res.From,
		To:        res.To,
		Notified:  res.Notified,
		ChangedAt: l.now(),
	}
	if err := l.publisher.Publish(ctx, domain.EventOrderStatusChanged, evt); err != nil {
		log.Printf("Failed to publish event: %v", err)
	}
}
