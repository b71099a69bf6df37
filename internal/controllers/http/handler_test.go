package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shop-console/internal/domain"
	"shop-console/internal/infra/redisstore"
	"shop-console/internal/mocks"
	"shop-console/internal/repository"
	"shop-console/internal/services"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeSnapshots struct {
	snap      *services.Snapshot
	refreshes int
}

func (f *fakeSnapshots) Snapshot() *services.Snapshot { return f.snap }
func (f *fakeSnapshots) RequestRefresh()              { f.refreshes++ }

type fakeSession struct {
	active bool
	at     time.Time
}

func (f *fakeSession) Start() bool {
	if f.active {
		return false
	}
	f.active, f.at = true, time.Now()
	return true
}

func (f *fakeSession) Stop() bool {
	was := f.active
	f.active = false
	return was
}

func (f *fakeSession) Active() bool         { return f.active }
func (f *fakeSession) StartedAt() time.Time { return f.at }

func order(id uint64, status domain.OrderStatus, payment domain.PaymentMethod) domain.Order {
	return domain.Order{
		ID:            id,
		Status:        status,
		Items:         []domain.Item{{Name: "Pad Thai", Quantity: 2, UnitPrice: decimal.NewFromInt(60)}},
		Total:         decimal.NewFromInt(120),
		PaymentMethod: payment,
		CreatedAt:     time.Now(),
	}
}

type testServer struct {
	router   *gin.Engine
	snaps    *fakeSnapshots
	session  *fakeSession
	repo     *mocks.MockOrderRepository
	shopRepo *mocks.MockShopStatusRepository
	notifier *mocks.MockNotifier
	redis    *miniredis.Miniredis
}

func newTestServer(t *testing.T, snap *services.Snapshot) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ts := &testServer{
		snaps:    &fakeSnapshots{snap: snap},
		session:  &fakeSession{},
		repo:     new(mocks.MockOrderRepository),
		shopRepo: new(mocks.MockShopStatusRepository),
		notifier: new(mocks.MockNotifier),
		redis:    miniredis.RunT(t),
	}
	pub := new(mocks.MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	rdb := redis.NewClient(&redis.Options{Addr: ts.redis.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	lifecycle := services.NewLifecycleService(ts.repo, ts.snaps, ts.notifier, pub)
	shop := services.NewShopService(ts.shopRepo, ts.repo, pub, ts.snaps)
	h := NewHandler(ts.session, ts.snaps, lifecycle, shop, redisstore.NewCache(rdb, 2*time.Second))

	ts.router = gin.New()
	h.RegisterRoutes(ts.router)
	return ts
}

func (ts *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func TestHandler_Session(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(http.MethodPost, "/session", nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"active":true`)

	w = ts.do(http.MethodPost, "/session", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodDelete, "/session", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"active":false}`, w.Body.String())
	assert.False(t, ts.session.active)
}

func TestHandler_ListOrders(t *testing.T) {
	t.Run("not loaded yet", func(t *testing.T) {
		ts := newTestServer(t, nil)
		w := ts.do(http.MethodGet, "/orders", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	snap := &services.Snapshot{Seq: 1, FetchedAt: time.Now(), Orders: []domain.Order{
		order(3, domain.StatusPending, domain.PaymentOnline),
		order(2, domain.StatusAccepted, domain.PaymentCash),
		order(1, domain.StatusPending, domain.PaymentCash),
	}}

	tests := []struct {
		name     string
		query    string
		wantCode int
		wantIDs  []uint64
	}{
		{name: "all", query: "", wantCode: http.StatusOK, wantIDs: []uint64{3, 2, 1}},
		{name: "pending only", query: "?status=pending", wantCode: http.StatusOK, wantIDs: []uint64{3, 1}},
		{name: "pending cash", query: "?status=pending&payment=cash", wantCode: http.StatusOK, wantIDs: []uint64{1}},
		{name: "unknown status", query: "?status=cooking", wantCode: http.StatusBadRequest},
		{name: "unknown payment", query: "?payment=card", wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, snap)
			w := ts.do(http.MethodGet, "/orders"+tt.query, nil)
			require.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode != http.StatusOK {
				return
			}

			var resp struct {
				Orders []struct {
					ID          uint64 `json:"id"`
					StatusLabel string `json:"statusLabel"`
				} `json:"orders"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			ids := make([]uint64, 0, len(resp.Orders))
			for _, o := range resp.Orders {
				ids = append(ids, o.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestHandler_Summary_CachedPerSnapshot(t *testing.T) {
	snap := &services.Snapshot{Seq: 7, FetchedAt: time.Now(), Orders: []domain.Order{
		order(2, domain.StatusAccepted, domain.PaymentCash),
		order(1, domain.StatusPending, domain.PaymentCash),
	}}
	ts := newTestServer(t, snap)

	w := ts.do(http.MethodGet, "/orders/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var sum struct {
		Pending  int    `json:"pending"`
		Accepted int    `json:"accepted"`
		Revenue  string `json:"revenue"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sum))
	assert.Equal(t, 1, sum.Pending)
	assert.Equal(t, 1, sum.Accepted)
	assert.Equal(t, "120", sum.Revenue)
	keys := ts.redis.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "orders:summary:"))
	assert.True(t, strings.HasSuffix(keys[0], ":7"))

	w2 := ts.do(http.MethodGet, "/orders/summary", nil)
	assert.JSONEq(t, w.Body.String(), w2.Body.String())
}

func TestHandler_UpdateStatus(t *testing.T) {
	snap := &services.Snapshot{Seq: 1, Orders: []domain.Order{
		order(10, domain.StatusPending, domain.PaymentCash),
		order(11, domain.StatusReady, domain.PaymentCash),
	}}

	tests := []struct {
		name       string
		path       string
		body       any
		setupMocks func(*mocks.MockOrderRepository)
		wantCode   int
		wantBody   string
	}{
		{
			name: "accepted",
			path: "/orders/10/status",
			body: gin.H{"status": "accepted"},
			setupMocks: func(repo *mocks.MockOrderRepository) {
				repo.On("UpdateStatus", mock.Anything, uint64(10), domain.StatusPending, domain.StatusAccepted).Return(nil)
			},
			wantCode: http.StatusOK,
			wantBody: `{"updated":true,"notified":false,"message":"updated, not notified"}`,
		},
		{name: "unknown order", path: "/orders/99/status", body: gin.H{"status": "accepted"}, wantCode: http.StatusNotFound},
		{name: "terminal order", path: "/orders/11/status", body: gin.H{"status": "pending"}, wantCode: http.StatusConflict},
		{name: "unknown status", path: "/orders/10/status", body: gin.H{"status": "cooking"}, wantCode: http.StatusBadRequest},
		{name: "missing status", path: "/orders/10/status", body: gin.H{}, wantCode: http.StatusBadRequest},
		{name: "bad id", path: "/orders/abc/status", body: gin.H{"status": "accepted"}, wantCode: http.StatusBadRequest},
		{
			name: "store failure",
			path: "/orders/10/status",
			body: gin.H{"status": "rejected"},
			setupMocks: func(repo *mocks.MockOrderRepository) {
				repo.On("UpdateStatus", mock.Anything, uint64(10), domain.StatusPending, domain.StatusRejected).Return(errors.New("connection reset"))
			},
			wantCode: http.StatusBadGateway,
			wantBody: `{"error":"update order status: connection reset"}`,
		},
		{
			name: "order changed in the store",
			path: "/orders/10/status",
			body: gin.H{"status": "accepted"},
			setupMocks: func(repo *mocks.MockOrderRepository) {
				repo.On("UpdateStatus", mock.Anything, uint64(10), domain.StatusPending, domain.StatusAccepted).Return(repository.ErrStatusChanged)
			},
			wantCode: http.StatusConflict,
		},
		{
			name: "order deleted in the store",
			path: "/orders/10/status",
			body: gin.H{"status": "accepted"},
			setupMocks: func(repo *mocks.MockOrderRepository) {
				repo.On("UpdateStatus", mock.Anything, uint64(10), domain.StatusPending, domain.StatusAccepted).Return(repository.ErrNotFound)
			},
			wantCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, snap)
			if tt.setupMocks != nil {
				tt.setupMocks(ts.repo)
			}

			w := ts.do(http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, w.Body.String())
			}
			ts.repo.AssertExpectations(t)
		})
	}
}

func TestHandler_Shop(t *testing.T) {
	t.Run("toggle closes and offers purge", func(t *testing.T) {
		ts := newTestServer(t, nil)
		ts.shopRepo.On("Get", mock.Anything).Return(domain.ShopStatus{IsOpen: true}, nil)
		ts.shopRepo.On("Set", mock.Anything, false, mock.Anything).Return(nil)

		w := ts.do(http.MethodPost, "/shop/toggle", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"isOpen":false`)
		assert.Contains(t, w.Body.String(), `"purgeOffered":true`)
	})

	t.Run("status read failure", func(t *testing.T) {
		ts := newTestServer(t, nil)
		ts.shopRepo.On("Get", mock.Anything).Return(domain.ShopStatus{}, errors.New("timeout"))

		w := ts.do(http.MethodGet, "/shop", nil)
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("purge", func(t *testing.T) {
		ts := newTestServer(t, nil)
		ts.repo.On("DeleteNotAccepted", mock.Anything).Return(int64(4), nil)

		w := ts.do(http.MethodPost, "/shop/purge", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"deleted":4}`, w.Body.String())
		assert.Equal(t, 1, ts.snaps.refreshes)
	})

	t.Run("close without body keeps orders", func(t *testing.T) {
		ts := newTestServer(t, nil)
		ts.shopRepo.On("Get", mock.Anything).Return(domain.ShopStatus{IsOpen: true}, nil)
		ts.shopRepo.On("Set", mock.Anything, false, mock.Anything).Return(nil)

		w := ts.do(http.MethodPost, "/shop/close", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"isOpen":false,"purged":false,"deleted":0}`, w.Body.String())
		ts.repo.AssertNotCalled(t, "DeleteNotAccepted", mock.Anything)
	})

	t.Run("close with purge failure", func(t *testing.T) {
		ts := newTestServer(t, nil)
		ts.shopRepo.On("Get", mock.Anything).Return(domain.ShopStatus{IsOpen: false}, nil)
		ts.repo.On("DeleteNotAccepted", mock.Anything).Return(int64(0), errors.New("deadlock"))

		w := ts.do(http.MethodPost, "/shop/close", CloseShopRequest{Purge: true})
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.JSONEq(t, `{"error":"purge orders: deadlock","isOpen":false}`, w.Body.String())
	})
}

func TestHandler_Summary_NotSharedBetweenProcesses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cache := redisstore.NewCache(rdb, 2*time.Second)

	// both processes are at their first snapshot but see different stores
	newRouter := func(orders ...domain.Order) *gin.Engine {
		snaps := &fakeSnapshots{snap: &services.Snapshot{Seq: 1, FetchedAt: time.Now(), Orders: orders}}
		h := NewHandler(&fakeSession{}, snaps, nil, nil, cache)
		r := gin.New()
		h.RegisterRoutes(r)
		return r
	}
	first := newRouter(order(1, domain.StatusPending, domain.PaymentCash))
	second := newRouter(order(1, domain.StatusAccepted, domain.PaymentCash), order(2, domain.StatusAccepted, domain.PaymentCash))

	get := func(r *gin.Engine) (sum struct {
		Pending  int `json:"pending"`
		Accepted int `json:"accepted"`
	}) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/summary", nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sum))
		return sum
	}

	assert.Equal(t, 1, get(first).Pending)
	got := get(second)
	assert.Equal(t, 0, got.Pending)
	assert.Equal(t, 2, got.Accepted)
	assert.Len(t, mr.Keys(), 2)
}
