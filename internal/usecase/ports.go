package usecase

import (
	"context"

	"storefront/internal/domain/model"

	"github.com/google/uuid"
)

// 価格計算のリクエスト
type CalculateOrderRequest struct {
	OrderID            string            `json:"order_id"`
	ShopID             string            `json:"shop_id"`
	Items              []model.OrderLine `json:"items"`
	DestinationCountry string            `json:"destination_country"`
	WarehouseID        string            `json:"warehouse_id,omitempty"`
}

// CommerceClient はリモートのコマースAPI
type CommerceClient interface {
	CalculateOrder(ctx context.Context, req CalculateOrderRequest) (*model.CalculatedOrder, error)
	CreateOrder(ctx context.Context, sub model.OrderSubmission) error
	CreateOrderPayment(ctx context.Context, orderID string, urls model.ReturnURLs) (*model.PaymentRecord, error)
	GetShippingRates(ctx context.Context, shopID string) ([]model.ShippingRate, error)
	GetProducts(ctx context.Context, shopID string, warehouseID string) ([]model.ProductSnapshot, error)
	GetOrder(ctx context.Context, orderID string) (*model.ProcessedOrder, error)
}

// CheckoutValidator はチェックアウト入力の検証
type CheckoutValidator interface {
	ValidateCheckout(state model.CheckoutState, urls model.ReturnURLs) error
}

// IDGenerator は注文IDやセッションIDを作る
type IDGenerator interface {
	NewID() string
}

type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

func toOrderLines(items []model.CartItem) []model.OrderLine {
	out := make([]model.OrderLine, 0, len(items))
	for _, it := range items {
		out = append(out, model.OrderLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return out
}
