package model

import "github.com/shopspring/decimal"

// サーバーで計算された明細
type CalculatedOrderItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}

// サーバーで計算された金額の内訳。金額は全部decimal（floatは使わない）
type CalculatedOrder struct {
	SubtotalBeforeDiscount decimal.Decimal       `json:"subtotal_before_discount"`
	DiscountTotal          decimal.Decimal       `json:"discount_total"`
	Subtotal               decimal.Decimal       `json:"subtotal"`
	ShippingTotal          decimal.Decimal       `json:"shipping_total"`
	TaxTotal               decimal.Decimal       `json:"tax_total"`
	Total                  decimal.Decimal       `json:"total"`
	Items                  []CalculatedOrderItem `json:"items"`
}
