// Package storagemock provides a testify mock of the storage.Database
// interface for server and boundary tests.
package storagemock

import (
	"context"
	"time"

	"github.com/ratewise/ratewise/pkg/storage"
	"github.com/ratewise/ratewise/pkg/types"
	"github.com/stretchr/testify/mock"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) GetUsageSnapshot(ctx context.Context, householdID string, window time.Duration) (types.UsageSnapshot, error) {
	args := m.Called(ctx, householdID, window)
	return args.Get(0).(types.UsageSnapshot), args.Error(1)
}

func (m *MockDatabase) UpsertUsageIntervals(ctx context.Context, householdID string, intervals []types.UsageInterval) error {
	args := m.Called(ctx, householdID, intervals)
	return args.Error(0)
}

func (m *MockDatabase) GetTemplate(ctx context.Context, offerID string) (storage.Template, error) {
	args := m.Called(ctx, offerID)
	return args.Get(0).(storage.Template), args.Error(1)
}

func (m *MockDatabase) SetTemplate(ctx context.Context, tmpl storage.Template) error {
	args := m.Called(ctx, tmpl)
	return args.Error(0)
}

func (m *MockDatabase) GetOffer(ctx context.Context, offerID string) (types.Offer, error) {
	args := m.Called(ctx, offerID)
	return args.Get(0).(types.Offer), args.Error(1)
}

func (m *MockDatabase) ListOffers(ctx context.Context) ([]types.Offer, error) {
	args := m.Called(ctx)
	if offers, ok := args.Get(0).([]types.Offer); ok {
		return offers, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDatabase) UpsertOffer(ctx context.Context, offer types.Offer) error {
	args := m.Called(ctx, offer)
	return args.Error(0)
}

func (m *MockDatabase) GetDeliveryRates(ctx context.Context, deliverySlug string) ([]types.DeliveryRate, error) {
	args := m.Called(ctx, deliverySlug)
	if rates, ok := args.Get(0).([]types.DeliveryRate); ok {
		return rates, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDatabase) UpsertDeliveryRate(ctx context.Context, deliverySlug string, rate types.DeliveryRate) error {
	args := m.Called(ctx, deliverySlug, rate)
	return args.Error(0)
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
