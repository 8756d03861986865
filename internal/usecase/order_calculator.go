package usecase

import (
	"context"
	"strings"

	"storefront/internal/domain/model"

	"go.uber.org/zap"
)

// OrderCalculator はカートと配送先からサーバー側の価格計算を呼ぶ
type OrderCalculator struct {
	client  CommerceClient
	retry   *RetryPolicy
	shopID  string
	attempt *orderAttempt
	logger  *zap.Logger
}

func NewOrderCalculator(client CommerceClient, retry *RetryPolicy, shopID string, attempt *orderAttempt, logger *zap.Logger) *OrderCalculator {
	return &OrderCalculator{
		client:  client,
		retry:   retry,
		shopID:  shopID,
		attempt: attempt,
		logger:  logger,
	}
}

// Calculate は計算済み注文を返す。
// 空カートは (nil, nil)、国が未選択なら ErrDestinationRequired（どちらも通信しない）
func (c *OrderCalculator) Calculate(ctx context.Context, items []model.CartItem, sel model.ShippingSelection) (*model.CalculatedOrder, error) {
	if len(items) == 0 {
		return nil, nil
	}
	country := strings.TrimSpace(sel.SelectedCountry)
	if country == "" {
		return nil, ErrDestinationRequired
	}

	req := CalculateOrderRequest{
		OrderID:            c.attempt.Current(ctx),
		ShopID:             c.shopID,
		Items:              toOrderLines(items),
		DestinationCountry: country,
		WarehouseID:        sel.SelectedWarehouse,
	}

	order, err := WithRetry(ctx, c.retry, func(ctx context.Context) (*model.CalculatedOrder, error) {
		o, err := c.client.CalculateOrder(ctx, req)
		if err != nil {
			return nil, Classify(err)
		}
		return o, nil
	})
	if err != nil {
		c.logger.Warn("calculate order failed",
			zap.String("order_id", req.OrderID),
			zap.String("country", country),
			zap.Error(err),
		)
		return nil, err
	}
	return order, nil
}
