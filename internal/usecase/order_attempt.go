package usecase

import (
	"context"
	"errors"
	"sync"

	repo "storefront/internal/repository"

	"go.uber.org/zap"
)

// orderAttempt はチェックアウト1回分の注文ID（冪等キー）を持つ。
// 開いている間は同じIDを返し、Resetで次の試行に進む
type orderAttempt struct {
	mu     sync.Mutex
	id     string
	store  repo.KeyValueStore
	ids    IDGenerator
	logger *zap.Logger
}

func newOrderAttempt(store repo.KeyValueStore, ids IDGenerator, logger *zap.Logger) *orderAttempt {
	return &orderAttempt{store: store, ids: ids, logger: logger}
}

// Current は現在のIDを返す。無ければ作って保存する
func (a *orderAttempt) Current(ctx context.Context) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.id != "" {
		return a.id
	}
	a.id = a.ids.NewID()
	if err := a.store.Set(ctx, repo.KeyCheckoutOrderID, a.id); err != nil {
		a.logger.Warn("persist order id failed", zap.String("order_id", a.id), zap.Error(err))
	}
	return a.id
}

// Peek はIDを作らずに返す
func (a *orderAttempt) Peek() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.id
}

func (a *orderAttempt) Reset(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.id == "" {
		return
	}
	a.id = ""
	if err := a.store.Delete(ctx, repo.KeyCheckoutOrderID); err != nil {
		a.logger.Warn("delete order id failed", zap.Error(err))
	}
}

func (a *orderAttempt) Rehydrate(ctx context.Context) error {
	v, err := a.store.Get(ctx, repo.KeyCheckoutOrderID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.id = v
	a.mu.Unlock()
	return nil
}
