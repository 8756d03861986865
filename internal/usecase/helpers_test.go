package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/event"
	infra "storefront/internal/infra/repository"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =====================
// Mocks
// =====================

type CommerceMock struct{ mock.Mock }

func (m *CommerceMock) CalculateOrder(ctx context.Context, req CalculateOrderRequest) (*model.CalculatedOrder, error) {
	args := m.Called(ctx, req)
	o, _ := args.Get(0).(*model.CalculatedOrder)
	return o, args.Error(1)
}

func (m *CommerceMock) CreateOrder(ctx context.Context, sub model.OrderSubmission) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *CommerceMock) CreateOrderPayment(ctx context.Context, orderID string, urls model.ReturnURLs) (*model.PaymentRecord, error) {
	args := m.Called(ctx, orderID, urls)
	rec, _ := args.Get(0).(*model.PaymentRecord)
	return rec, args.Error(1)
}

func (m *CommerceMock) GetShippingRates(ctx context.Context, shopID string) ([]model.ShippingRate, error) {
	args := m.Called(ctx, shopID)
	rs, _ := args.Get(0).([]model.ShippingRate)
	return rs, args.Error(1)
}

func (m *CommerceMock) GetProducts(ctx context.Context, shopID string, warehouseID string) ([]model.ProductSnapshot, error) {
	args := m.Called(ctx, shopID, warehouseID)
	ps, _ := args.Get(0).([]model.ProductSnapshot)
	return ps, args.Error(1)
}

func (m *CommerceMock) GetOrder(ctx context.Context, orderID string) (*model.ProcessedOrder, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(*model.ProcessedOrder)
	return o, args.Error(1)
}

// 連番のID
type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("order-%d", s.n)
}

// 待機時間を記録するだけのsleep
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func (r *sleepRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

// イベントを記録する
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) watch(bus *event.Bus, names ...string) {
	for _, n := range names {
		name := n
		bus.On(name, func(any) {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.events = append(l.events, name)
		})
	}
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type testEnv struct {
	client  *CommerceMock
	stores  repo.KeyValueStoreFactory
	logs    repo.CheckoutLogRepository
	sleeps  *sleepRecorder
	ids     *seqIDs
	session *Session
}

func (e *testEnv) deps() SessionDeps {
	retry := NewRetryPolicy(DefaultRetryOptions(), zap.NewNop()).WithSleep(e.sleeps.sleep)
	return SessionDeps{
		Client:    e.client,
		Stores:    e.stores,
		Logs:      e.logs,
		Validator: nil,
		IDs:       e.ids,
		ShopID:    "shop-1",
		Retry:     retry,
		Logger:    zap.NewNop(),
	}
}

func (e *testEnv) store() repo.KeyValueStore {
	return e.stores(e.session.ID)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		client: &CommerceMock{},
		stores: infra.NewKVMemoryFactory(),
		logs:   infra.NewCheckoutLogMemoryRepository(),
		sleeps: &sleepRecorder{},
		ids:    &seqIDs{},
	}
	s, err := NewSession(context.Background(), "sess-1", env.deps())
	require.NoError(t, err)
	env.session = s
	return env
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func calculated(total string) *model.CalculatedOrder {
	return &model.CalculatedOrder{
		Subtotal: dec(total),
		Total:    dec(total),
		Items:    []model.CalculatedOrderItem{},
	}
}

func ratesDEFR() []model.ShippingRate {
	return []model.ShippingRate{
		{WarehouseID: "W1", WarehouseName: "Berlin", Countries: []string{"DE"}},
		{WarehouseID: "W2", WarehouseName: "Lyon", Countries: []string{"FR", "de"}},
	}
}
