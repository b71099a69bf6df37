package mocks

import (
	"context"
	"time"

	"shop-console/internal/domain"
	"shop-console/internal/infra/line"

	"github.com/stretchr/testify/mock"
)

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, id uint64, from, to domain.OrderStatus) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

func (m *MockOrderRepository) DeleteNotAccepted(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockShopStatusRepository struct {
	mock.Mock
}

func (m *MockShopStatusRepository) Get(ctx context.Context) (domain.ShopStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.ShopStatus), args.Error(1)
}

func (m *MockShopStatusRepository) Set(ctx context.Context, isOpen bool, at time.Time) error {
	args := m.Called(ctx, isOpen, at)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Dispatch(ctx context.Context, msg line.Notification) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, message any) error {
	args := m.Called(ctx, topic, message)
	return args.Error(0)
}

type MockSignal struct {
	mock.Mock
}

func (m *MockSignal) Alert(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockNotifyGuard struct {
	mock.Mock
}

func (m *MockNotifyGuard) Claim(ctx context.Context, orderID uint64, status domain.OrderStatus) (bool, error) {
	args := m.Called(ctx, orderID, status)
	return args.Bool(0), args.Error(1)
}

func (m *MockNotifyGuard) Release(ctx context.Context, orderID uint64, status domain.OrderStatus) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}
