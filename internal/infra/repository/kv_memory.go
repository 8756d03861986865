package repository

import (
	"context"
	"sync"

	repo "storefront/internal/repository"
)

// メモリ上のストア（開発用・テスト用）
type KVMemoryRepository struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewKVMemoryRepository() *KVMemoryRepository {
	return &KVMemoryRepository{data: map[string]string{}}
}

// NewKVMemoryFactory はセッションIDごとに別のストアを返す
func NewKVMemoryFactory() repo.KeyValueStoreFactory {
	var mu sync.Mutex
	stores := map[string]*KVMemoryRepository{}

	return func(sessionID string) repo.KeyValueStore {
		mu.Lock()
		defer mu.Unlock()
		s, ok := stores[sessionID]
		if !ok {
			s = NewKVMemoryRepository()
			stores[sessionID] = s
		}
		return s
	}
}

func (r *KVMemoryRepository) Get(ctx context.Context, key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.data[key]
	if !ok {
		return "", repo.ErrNotFound
	}
	return v, nil
}

func (r *KVMemoryRepository) Set(ctx context.Context, key string, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[key] = value
	return nil
}

func (r *KVMemoryRepository) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, key)
	return nil
}
