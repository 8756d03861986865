package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"

	"storefront/internal/domain/model"
	"storefront/internal/event"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
)

// ShippingSelector は配送先の国と倉庫を持つ。
// 倉庫は常に選択中の国と両立するものだけ
type ShippingSelector struct {
	mu     sync.Mutex
	sel    model.ShippingSelection
	store  repo.KeyValueStore
	bus    *event.Bus
	client CommerceClient
	retry  *RetryPolicy
	shopID string
	logger *zap.Logger
}

func NewShippingSelector(store repo.KeyValueStore, bus *event.Bus, client CommerceClient, retry *RetryPolicy, shopID string, logger *zap.Logger) *ShippingSelector {
	return &ShippingSelector{
		sel:    model.ShippingSelection{AvailableRates: []model.ShippingRate{}},
		store:  store,
		bus:    bus,
		client: client,
		retry:  retry,
		shopID: shopID,
		logger: logger,
	}
}

func (s *ShippingSelector) Snapshot() model.ShippingSelection {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.sel
	out.AvailableRates = append([]model.ShippingRate(nil), s.sel.AvailableRates...)
	return out
}

func (s *ShippingSelector) AvailableCountries() []string {
	return s.Snapshot().AvailableCountries()
}

func (s *ShippingSelector) AvailableWarehouses() []model.ShippingRate {
	return s.Snapshot().AvailableWarehouses()
}

// SetCountry は国を設定する。今の倉庫が新しい国に配送できなければ外す。
// rate未取得の間は判断せず、LoadRatesで確認し直す
func (s *ShippingSelector) SetCountry(ctx context.Context, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))

	s.mu.Lock()
	s.sel.SelectedCountry = code
	s.persistLocked(ctx, repo.KeyShippingCountry, code)

	if s.sel.SelectedWarehouse != "" && len(s.sel.AvailableRates) > 0 && !s.sel.WarehouseCompatible(s.sel.SelectedWarehouse) {
		s.logger.Info("warehouse cleared for country",
			zap.String("country", code),
			zap.String("warehouse_id", s.sel.SelectedWarehouse),
		)
		s.sel.SelectedWarehouse = ""
		s.persistLocked(ctx, repo.KeyShippingWarehouse, "")
	}
	snap := s.sel
	s.mu.Unlock()

	s.bus.Emit(event.ShippingUpdated, snap)
	return nil
}

// SetWarehouse は倉庫を設定する。rateがある時は国と両立するかを確認する。
// 空文字は選択解除
func (s *ShippingSelector) SetWarehouse(ctx context.Context, warehouseID string) error {
	warehouseID = strings.TrimSpace(warehouseID)

	s.mu.Lock()
	if warehouseID != "" && len(s.sel.AvailableRates) > 0 && !s.sel.WarehouseCompatible(warehouseID) {
		s.mu.Unlock()
		return ErrIncompatibleWarehouse
	}
	s.sel.SelectedWarehouse = warehouseID
	s.persistLocked(ctx, repo.KeyShippingWarehouse, warehouseID)
	snap := s.sel
	s.mu.Unlock()

	s.bus.Emit(event.ShippingUpdated, snap)
	return nil
}

// LoadRates は配送レートを取得して、選択中の倉庫を確認し直す
func (s *ShippingSelector) LoadRates(ctx context.Context) error {
	rates, err := WithRetry(ctx, s.retry, func(ctx context.Context) ([]model.ShippingRate, error) {
		rs, err := s.client.GetShippingRates(ctx, s.shopID)
		if err != nil {
			return nil, Classify(err)
		}
		return rs, nil
	})
	if err != nil {
		s.logger.Warn("load shipping rates failed", zap.String("shop_id", s.shopID), zap.Error(err))
		return Classify(err)
	}
	if rates == nil {
		rates = []model.ShippingRate{}
	}

	s.mu.Lock()
	s.sel.AvailableRates = rates
	if s.sel.SelectedWarehouse != "" && !s.sel.WarehouseCompatible(s.sel.SelectedWarehouse) {
		s.logger.Info("warehouse cleared after rates reload", zap.String("warehouse_id", s.sel.SelectedWarehouse))
		s.sel.SelectedWarehouse = ""
		s.persistLocked(ctx, repo.KeyShippingWarehouse, "")
	}
	snap := s.sel
	s.mu.Unlock()

	s.bus.Emit(event.ShippingUpdated, snap)
	return nil
}

// Rehydrate は保存済みの国・倉庫を読む
func (s *ShippingSelector) Rehydrate(ctx context.Context) error {
	country, err := s.load(ctx, repo.KeyShippingCountry)
	if err != nil {
		return err
	}
	warehouse, err := s.load(ctx, repo.KeyShippingWarehouse)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.sel.SelectedCountry = strings.ToUpper(country)
	s.sel.SelectedWarehouse = warehouse
	s.mu.Unlock()
	return nil
}

func (s *ShippingSelector) load(ctx context.Context, key string) (string, error) {
	v, err := s.store.Get(ctx, key)
	if errors.Is(err, repo.ErrNotFound) {
		return "", nil
	}
	return v, err
}

// 空文字はキーを消す
func (s *ShippingSelector) persistLocked(ctx context.Context, key, value string) {
	var err error
	if value == "" {
		err = s.store.Delete(ctx, key)
	} else {
		err = s.store.Set(ctx, key, value)
	}
	if err != nil {
		s.logger.Warn("persist shipping selection failed", zap.String("key", key), zap.Error(err))
	}
}
