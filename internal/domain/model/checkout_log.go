package model

import "time"

// チェックアウトの状態遷移ログ。
// 「どの注文IDが」「どのステップで」「どうなったか」を残す
type CheckoutLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	SessionID string `gorm:"type:varchar(64);not null;index" json:"session_id"`

	//冪等キーとして使う注文ID
	OrderID string `gorm:"type:varchar(64);not null;index" json:"order_id"`

	Step CheckoutStep `gorm:"type:varchar(30);not null" json:"step"`

	//失敗時のメッセージ
	Detail string `gorm:"type:text" json:"detail"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
