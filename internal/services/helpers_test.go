package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"shop-console/internal/domain"
	"shop-console/internal/repository"

	"github.com/shopspring/decimal"
)

func strPtr(s string) *string { return &s }

func CreateMockOrder(id uint64, status domain.OrderStatus, lineUserID *string) domain.Order {
	return domain.Order{
		ID:     id,
		Status: status,
		Items: []domain.Item{
			{Name: "Khao Man Gai", Quantity: 1, UnitPrice: decimal.NewFromInt(50)},
		},
		Total:         decimal.NewFromInt(50),
		PaymentMethod: domain.PaymentCash,
		LineUserID:    lineUserID,
		CreatedAt:     time.Now(),
	}
}

// staticSnapshots serves a fixed snapshot and counts refresh requests.
type staticSnapshots struct {
	snap      *Snapshot
	refreshes int
}

func (s *staticSnapshots) Snapshot() *Snapshot { return s.snap }
func (s *staticSnapshots) RequestRefresh()     { s.refreshes++ }

func snapshotOf(orders ...domain.Order) *staticSnapshots {
	return &staticSnapshots{snap: &Snapshot{Orders: orders, Seq: 1}}
}

// memStore is an in-memory order and shop store.
type memStore struct {
	mu      sync.Mutex
	orders  map[uint64]domain.Order
	shop    domain.ShopStatus
	hasShop bool
}

var (
	_ repository.OrderRepository      = (*memStore)(nil)
	_ repository.ShopStatusRepository = (*memStore)(nil)
)

func newMemStore(orders ...domain.Order) *memStore {
	m := &memStore{orders: map[uint64]domain.Order{}}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *memStore) List(ctx context.Context) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) UpdateStatus(ctx context.Context, id uint64, from, to domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	if from != "" && o.Status != from {
		return repository.ErrStatusChanged
	}
	o.Status = to
	m.orders[id] = o
	return nil
}

func (m *memStore) status(id uint64) domain.OrderStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id].Status
}

func (m *memStore) remove(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orders, id)
}

func (m *memStore) DeleteNotAccepted(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, o := range m.orders {
		if o.Status != domain.StatusAccepted {
			delete(m.orders, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) Get(ctx context.Context) (domain.ShopStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasShop {
		return domain.ShopStatus{}, repository.ErrNotFound
	}
	return m.shop, nil
}

func (m *memStore) Set(ctx context.Context, isOpen bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shop = domain.ShopStatus{IsOpen: isOpen, UpdatedAt: at}
	m.hasShop = true
	return nil
}

func (m *memStore) ids() []uint64 {
	orders, _ := m.List(context.Background())
	ids := make([]uint64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	return ids
}
