package model

import "github.com/shopspring/decimal"

// 注文リクエストの明細
type OrderLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// 注文作成のペイロード
type OrderSubmission struct {
	OrderID         string      `json:"order_id"`
	ShopID          string      `json:"shop_id"`
	Items           []OrderLine `json:"items"`
	CustomerEmail   string      `json:"customer_email"`
	CustomerUserID  string      `json:"customer_user_id,omitempty"`
	ShippingAddress Address     `json:"shipping_address"`
	BillingAddress  Address     `json:"billing_address"`
	Country         string      `json:"destination_country"`
	WarehouseID     string      `json:"warehouse_id,omitempty"`
}

type OrderKind string

const (
	OrderKindRegistered OrderKind = "registered"
	OrderKindPublic     OrderKind = "public"
)

// 会員の注文
type RegisteredUserOrder struct {
	CustomerUserID string `json:"customer_user_id"`
}

// ゲストの注文
type PublicUserOrder struct {
	CustomerEmail string `json:"customer_user_email"`
}

// 処理済み注文。Kindでどちらか一方だけが入る
type ProcessedOrder struct {
	OrderID    string               `json:"order_id"`
	Status     string               `json:"status"`
	Total      decimal.Decimal      `json:"total"`
	Kind       OrderKind            `json:"kind"`
	Registered *RegisteredUserOrder `json:"registered,omitempty"`
	Public     *PublicUserOrder     `json:"public,omitempty"`
}

// CustomerLabel は確認画面に出す顧客表示
func (o ProcessedOrder) CustomerLabel() string {
	switch o.Kind {
	case OrderKindRegistered:
		if o.Registered != nil {
			return o.Registered.CustomerUserID
		}
	case OrderKindPublic:
		if o.Public != nil {
			return o.Public.CustomerEmail
		}
	}
	return ""
}
