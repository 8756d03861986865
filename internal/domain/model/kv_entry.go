package model

import "time"

// セッション単位のキーバリュー（ブラウザストレージの代わり）
type KVEntry struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_kv_session_key" json:"session_id"`
	Key       string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_kv_session_key" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (KVEntry) TableName() string {
	return "session_kv"
}
