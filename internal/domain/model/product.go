package model

import "github.com/shopspring/decimal"

// カタログから取得した商品のスナップショット
type ProductSnapshot struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url,omitempty"`
	WarehouseID string          `json:"warehouse_id,omitempty"`
}
