package line

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"shop-console/internal/domain"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotConfigured  = errors.New("notification endpoint not configured")
	ErrDeliveryFailed = errors.New("notification delivery failed")
)

// maxErrorBody caps how much of a failed response is kept for diagnostics.
const maxErrorBody = 4 << 10

// DeliveryError is a non-2xx answer from the notification endpoint.
type DeliveryError struct {
	StatusCode int
	Body       string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("notification endpoint returned HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *DeliveryError) Is(target error) bool { return target == ErrDeliveryFailed }

type Notification struct {
	LineUserID string
	Items      []domain.Item
	Status     string
	Total      decimal.Decimal
}

type wireItem struct {
	Name     string      `json:"name"`
	Quantity int         `json:"quantity"`
	Price    json.Number `json:"price"`
	ItemNote string      `json:"itemNote,omitempty"`
}

type wireRequest struct {
	LineUserID string      `json:"lineUserId"`
	OrderItem  []wireItem  `json:"orderitem"`
	Status     string      `json:"status"`
	OrderTotal json.Number `json:"orderTotal"`
}

type Notifier struct {
	endpoint   string
	httpClient *http.Client
	maxRetries int
	newBackOff func() backoff.BackOff
}

type Option func(*Notifier)

// WithMaxRetries allows n extra attempts after network errors and 5xx answers.
func WithMaxRetries(n int) Option {
	return func(nt *Notifier) {
		if n > 0 {
			nt.maxRetries = n
		}
	}
}

func WithBackOff(fn func() backoff.BackOff) Option {
	return func(nt *Notifier) {
		if fn != nil {
			nt.newBackOff = fn
		}
	}
}

func NewNotifier(endpoint string, timeout time.Duration, opts ...Option) *Notifier {
	n := &Notifier{
		endpoint:   strings.TrimSpace(endpoint),
		httpClient: &http.Client{Timeout: timeout},
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Notifier) Configured() bool { return n.endpoint != "" }

func (n *Notifier) Dispatch(ctx context.Context, msg Notification) error {
	if !n.Configured() {
		log.Printf("LINE notification for %s skipped: %v", msg.LineUserID, ErrNotConfigured)
		return ErrNotConfigured
	}

	body, err := json.Marshal(toWire(msg))
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	// One key per status change, shared by its retries.
	key := uuid.NewString()

	b := backoff.WithContext(backoff.WithMaxRetries(n.newBackOff(), uint64(n.maxRetries)), ctx)
	attempt := 0
	err = backoff.Retry(func() error {
		attempt++
		return n.post(ctx, body, key)
	}, b)
	if err != nil {
		log.Printf("LINE notification to %s failed after %d attempt(s): %v", msg.LineUserID, attempt, err)
		return err
	}
	log.Printf("LINE notification sent to %s (status %q)", msg.LineUserID, msg.Status)
	return nil
}

func (n *Notifier) post(ctx context.Context, body []byte, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build notification request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", key)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		derr := &DeliveryError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
		if resp.StatusCode >= http.StatusInternalServerError {
			return derr
		}
		return backoff.Permanent(derr)
	}

	var ack any
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return backoff.Permanent(fmt.Errorf("%w: decode response: %v", ErrDeliveryFailed, err))
	}
	return nil
}

func toWire(msg Notification) wireRequest {
	items := make([]wireItem, 0, len(msg.Items))
	for _, it := range msg.Items {
		items = append(items, wireItem{
			Name:     it.Name,
			Quantity: it.Quantity,
			Price:    json.Number(it.UnitPrice.String()),
			ItemNote: it.ItemNote,
		})
	}
	return wireRequest{
		LineUserID: msg.LineUserID,
		OrderItem:  items,
		Status:     msg.Status,
		OrderTotal: json.Number(msg.Total.String()),
	}
}
