package repository

import (
	"context"
	"errors"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type KVGormRepository struct {
	db        *gorm.DB
	sessionID string
}

// DI
func NewKVGormRepository(db *gorm.DB, sessionID string) *KVGormRepository {
	return &KVGormRepository{db: db, sessionID: sessionID}
}

// NewKVGormFactory はセッションごとのストアを作る関数を返す
func NewKVGormFactory(db *gorm.DB) repo.KeyValueStoreFactory {
	return func(sessionID string) repo.KeyValueStore {
		return NewKVGormRepository(db, sessionID)
	}
}

// キーの値を取得
func (r *KVGormRepository) Get(ctx context.Context, key string) (string, error) {
	var e model.KVEntry

	err := r.db.WithContext(ctx).
		Where("session_id = ? AND key = ?", r.sessionID, key).
		First(&e).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", repo.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return e.Value, nil
}

// 同じキーは上書き
func (r *KVGormRepository) Set(ctx context.Context, key string, value string) error {
	e := model.KVEntry{
		SessionID: r.sessionID,
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&e).Error
}

// 無いキーの削除はエラーにしない
func (r *KVGormRepository) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).
		Where("session_id = ? AND key = ?", r.sessionID, key).
		Delete(&model.KVEntry{}).Error
}
