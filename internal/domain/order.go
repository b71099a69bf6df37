package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending  OrderStatus = "pending"
	StatusAccepted OrderStatus = "accepted"
	StatusReady    OrderStatus = "ready"
	StatusRejected OrderStatus = "rejected"
)

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentOnline PaymentMethod = "online"
)

var (
	ErrInvalidStatus     = errors.New("order status is invalid")
	ErrIllegalTransition = errors.New("illegal status transition")
)

// transitions lists the forward moves of the fulfillment lifecycle.
// ready and rejected are terminal.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:  {StatusAccepted, StatusRejected},
	StatusAccepted: {StatusReady},
}

// TransitionError reports a move the lifecycle does not allow.
type TransitionError struct {
	OrderID uint64
	From    OrderStatus
	To      OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("order %d: cannot move from %s to %s", e.OrderID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }

type Item struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"price"`
	ItemNote  string          `json:"itemNote,omitempty"`
}

func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID            uint64          `json:"id"`
	Status        OrderStatus     `json:"status"`
	Items         []Item          `json:"items"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	SlipURL       *string         `json:"slipUrl,omitempty"`
	CustomerPhone *string         `json:"customerPhone,omitempty"`
	LineUserID    *string         `json:"lineUserId,omitempty"`
	Note          *string         `json:"note,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// HasLineUser reports whether the customer linked a messaging identity.
func (o Order) HasLineUser() bool {
	return o.LineUserID != nil && *o.LineUserID != ""
}

// ItemsTotal sums the line items. Total is not checked against it.
func (o Order) ItemsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.Subtotal())
	}
	return sum
}

// CheckTransition validates a move of the order to the target status.
func (o Order) CheckTransition(to OrderStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	if !o.Status.CanTransitionTo(to) {
		return &TransitionError{OrderID: o.ID, From: o.Status, To: to}
	}
	return nil
}

func ParseStatus(s string) (OrderStatus, error) {
	st := OrderStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusReady, StatusRejected:
		return true
	default:
		return false
	}
}

func (s OrderStatus) Terminal() bool {
	return s == StatusReady || s == StatusRejected
}

func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	if s.Terminal() {
		return false
	}
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// CountsTowardRevenue is true for orders the shop has committed to.
func (s OrderStatus) CountsTowardRevenue() bool {
	return s == StatusAccepted || s == StatusReady
}

// StatusLabel is the customer-facing text sent with a notification.
func StatusLabel(s OrderStatus) string {
	switch s {
	case StatusAccepted:
		return "ยืนยันแล้ว"
	case StatusReady:
		return "พร้อมแล้ว"
	case StatusRejected:
		return "ปฏิเสธ"
	default:
		return string(s)
	}
}

func (p PaymentMethod) Valid() bool {
	return p == PaymentCash || p == PaymentOnline
}
