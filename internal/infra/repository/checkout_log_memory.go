package repository

import (
	"context"
	"sync"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type checkoutLogMemoryRepository struct {
	mu   sync.Mutex
	logs []model.CheckoutLog
}

func NewCheckoutLogMemoryRepository() repo.CheckoutLogRepository {
	return &checkoutLogMemoryRepository{}
}

func (r *checkoutLogMemoryRepository) Create(ctx context.Context, log model.CheckoutLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	log.ID = int64(len(r.logs) + 1)
	r.logs = append(r.logs, log)
	return nil
}

func (r *checkoutLogMemoryRepository) ListByOrderID(ctx context.Context, orderID string) ([]model.CheckoutLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.CheckoutLog{}
	for _, l := range r.logs {
		if l.OrderID == orderID {
			out = append(out, l)
		}
	}
	return out, nil
}
