package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// チェックアウトの遷移ログの保存・取得の約束。
type CheckoutLogRepository interface {
	//1件保存
	Create(ctx context.Context, log model.CheckoutLog) error

	//注文IDのログを古い順で取得
	ListByOrderID(ctx context.Context, orderID string) ([]model.CheckoutLog, error)
}
