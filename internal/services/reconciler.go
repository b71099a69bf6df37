package services

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"shop-console/internal/domain"
	"shop-console/internal/infra/alert"
	rabbit "shop-console/internal/infra/rabbitmq"
	"shop-console/internal/repository"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultPollInterval = 5 * time.Second
	// DefaultAlertTimeout bounds one alert so a stuck audio player cannot
	// hold up the next poll.
	DefaultAlertTimeout = 2 * time.Second
)

type AlertRule int

const (
	// AlertOnNewPending rings when an order id shows up as pending that was
	// not pending in the previous snapshot.
	AlertOnNewPending AlertRule = iota
	// AlertOnPendingIncrease rings when the pending count grows between two
	// snapshots. One order resolved plus one arrived in the same interval
	// nets to zero and stays silent.
	AlertOnPendingIncrease
)

// SnapshotSource is what the controllers read the current order set from.
type SnapshotSource interface {
	Snapshot() *Snapshot
	RequestRefresh()
}

type fetchResult struct {
	seq    uint64
	orders []domain.Order
}

// Reconciler polls the order store and keeps the in-memory snapshot.
type Reconciler struct {
	repo      repository.OrderRepository
	signal    alert.Signal
	publisher rabbit.PublisherInterface
	interval  time.Duration
	rule      AlertRule
	now       func() time.Time

	alertTimeout time.Duration

	group   singleflight.Group
	fetches atomic.Uint64
	applyMu sync.Mutex
	current atomic.Pointer[Snapshot]
	refresh chan struct{}
}

var _ SnapshotSource = (*Reconciler)(nil)

func NewReconciler(repo repository.OrderRepository, signal alert.Signal, pub rabbit.PublisherInterface, interval time.Duration, rule AlertRule) *Reconciler {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if signal == nil {
		signal = alert.Nop
	}
	if pub == nil {
		pub = rabbit.Discard
	}
	return &Reconciler{
		repo:      repo,
		signal:    signal,
		publisher: pub,
		interval:  interval,
		rule:      rule,
		now:       time.Now,
		refresh:   make(chan struct{}, 1),

		alertTimeout: DefaultAlertTimeout,
	}
}

// Snapshot returns the latest applied snapshot, or nil before the first
// successful fetch.
func (r *Reconciler) Snapshot() *Snapshot {
	return r.current.Load()
}

// RequestRefresh asks a running loop for an early tick. It never blocks.
func (r *Reconciler) RequestRefresh() {
	select {
	case r.refresh <- struct{}{}:
	default:
	}
}

// Run fetches immediately and then on every interval until ctx is done.
// Fetch failures are logged and retried on the next tick.
func (r *Reconciler) Run(ctx context.Context) {
	log.Printf("Order reconciler started (interval %s)", r.interval)
	_ = r.Tick(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("Order reconciler stopped")
			return
		case <-ticker.C:
			_ = r.Tick(ctx)
		case <-r.refresh:
			_ = r.Tick(ctx)
		}
	}
}

// Tick runs one reconciliation: fetch, diff against the current snapshot,
// replace it and alert when new pending work appeared. Concurrent calls
// share one fetch.
func (r *Reconciler) Tick(ctx context.Context) error {
	v, err, _ := r.group.Do("orders", func() (any, error) {
		seq := r.fetches.Add(1)
		orders, err := r.repo.List(ctx)
		if err != nil {
			return nil, err
		}
		return fetchResult{seq: seq, orders: orders}, nil
	})
	if err != nil {
		log.Printf("Error loading orders: %v", err)
		return err
	}
	if ctx.Err() != nil {
		// session ended while the fetch was in flight
		return ctx.Err()
	}

	res := v.(fetchResult)
	arrived, ring, applied := r.apply(res)
	if !applied {
		return nil
	}
	if ring {
		log.Printf("New pending orders: %d", len(arrived))
		actx, cancel := context.WithTimeout(ctx, r.alertTimeout)
		if err := r.signal.Alert(actx); err != nil {
			log.Printf("Alert signal failed: %v", err)
		}
		cancel()
	}
	for _, o := range arrived {
		evt := domain.OrderArrivedEvent{OrderID: o.ID, Total: o.Total, CreatedAt: o.CreatedAt}
		if err := r.publisher.Publish(ctx, domain.EventOrderArrived, evt); err != nil {
			log.Printf("Failed to publish %s for order %d: %v", domain.EventOrderArrived, o.ID, err)
		}
	}
	return nil
}

func (r *Reconciler) apply(res fetchResult) (arrived []domain.Order, ring bool, applied bool) {
	r.applyMu.Lock()
	defer r.applyMu.Unlock()

	prev := r.current.Load()
	if prev != nil && res.seq <= prev.Seq {
		return nil, false, false
	}
	next := &Snapshot{Orders: res.orders, FetchedAt: r.now(), Seq: res.seq}
	arrived, ring = decideAlert(r.rule, prev, next)
	r.current.Store(next)
	return arrived, ring, true
}

// decideAlert compares two snapshots. A nil prev is an empty baseline.
func decideAlert(rule AlertRule, prev, next *Snapshot) ([]domain.Order, bool) {
	seen := make(map[uint64]struct{}, prev.PendingCount())
	for _, o := range prev.Pending() {
		seen[o.ID] = struct{}{}
	}

	var arrived []domain.Order
	for _, o := range next.Orders {
		if o.Status != domain.StatusPending {
			continue
		}
		if _, ok := seen[o.ID]; !ok {
			arrived = append(arrived, o)
		}
	}

	switch rule {
	case AlertOnPendingIncrease:
		return arrived, next.PendingCount() > prev.PendingCount()
	default:
		return arrived, len(arrived) > 0
	}
}
