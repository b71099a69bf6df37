package services

import (
	"time"

	"shop-console/internal/domain"

	"github.com/shopspring/decimal"
)

// Snapshot is one completed fetch of the order set, newest id first. It is
// never mutated after it is published; the reconciler replaces it whole.
type Snapshot struct {
	Orders    []domain.Order
	FetchedAt time.Time
	Seq       uint64
}

func (s *Snapshot) Find(id uint64) (domain.Order, bool) {
	if s == nil {
		return domain.Order{}, false
	}
	for _, o := range s.Orders {
		if o.ID == id {
			return o, true
		}
	}
	return domain.Order{}, false
}

func (s *Snapshot) Pending() []domain.Order {
	return s.Filter(domain.StatusPending, "")
}

func (s *Snapshot) PendingCount() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, o := range s.Orders {
		if o.Status == domain.StatusPending {
			n++
		}
	}
	return n
}

// Filter returns orders matching status and payment method; an empty value
// matches everything.
func (s *Snapshot) Filter(status domain.OrderStatus, payment domain.PaymentMethod) []domain.Order {
	if s == nil {
		return nil
	}
	out := make([]domain.Order, 0, len(s.Orders))
	for _, o := range s.Orders {
		if status != "" && o.Status != status {
			continue
		}
		if payment != "" && o.PaymentMethod != payment {
			continue
		}
		out = append(out, o)
	}
	return out
}

type Summary struct {
	Pending      int             `json:"pending"`
	Accepted     int             `json:"accepted"`
	Ready        int             `json:"ready"`
	Rejected     int             `json:"rejected"`
	Revenue      decimal.Decimal `json:"revenue"`
	TodayRevenue decimal.Decimal `json:"todayRevenue"`
	FetchedAt    time.Time       `json:"fetchedAt"`
}

func Summarize(s *Snapshot, now time.Time) Summary {
	if s == nil {
		return Summary{Revenue: decimal.Zero, TodayRevenue: decimal.Zero}
	}
	counts := domain.CountByStatus(s.Orders)
	return Summary{
		Pending:      counts[domain.StatusPending],
		Accepted:     counts[domain.StatusAccepted],
		Ready:        counts[domain.StatusReady],
		Rejected:     counts[domain.StatusRejected],
		Revenue:      domain.Revenue(s.Orders),
		TodayRevenue: domain.RevenueOn(s.Orders, now),
		FetchedAt:    s.FetchedAt,
	}
}
