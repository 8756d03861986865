package repository

import "context"

// 永続化されるキー
const (
	KeyCartItems             = "cart_items"
	KeyShippingCountry       = "shipping_country"
	KeyShippingWarehouse     = "shipping_warehouse"
	KeyCheckoutState         = "checkout_state"
	KeyCheckoutOrderID       = "checkout_order_id"
	KeyPaymentReturnConsumed = "payment_return_consumed"
)

// セッション単位の永続キーバリュー。値は文字列（JSONなど）のまま保存。
// 無いキーのGetは ErrNotFound
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}

// セッションIDからストアを作る
type KeyValueStoreFactory func(sessionID string) KeyValueStore
