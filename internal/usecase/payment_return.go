package usecase

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"storefront/internal/domain/model"
	"storefront/internal/event"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
)

type PurchaseOutcome string

const (
	PurchaseSuccess PurchaseOutcome = "success"
	PurchaseFailed  PurchaseOutcome = "failed"
	PurchaseCancel  PurchaseOutcome = "cancel"
)

// 決済から戻ってきた時のクエリ
const (
	paramPurchase = "purchase"
	paramShopID   = "shop_id"
	paramOrder    = "order"
)

type PaymentReturnResult struct {
	Outcome        PurchaseOutcome       `json:"outcome,omitempty"`
	ShopID         string                `json:"shopId,omitempty"`
	OrderID        string                `json:"orderId,omitempty"`
	CleanURL       string                `json:"cleanUrl"`
	AlreadyHandled bool                  `json:"alreadyHandled"`
	Notice         *UserFacingError      `json:"notice,omitempty"`
	Order          *model.ProcessedOrder `json:"order,omitempty"`
}

// PaymentReturnHandler は決済後の戻りURLを処理する。
// 成功ならカートを空にし、失敗・キャンセルならカートを残す
type PaymentReturnHandler struct {
	cart     *CartStore
	checkout *CheckoutOrchestrator
	client   CommerceClient
	store    repo.KeyValueStore
	bus      *event.Bus
	shopID   string
	logger   *zap.Logger
}

func NewPaymentReturnHandler(cart *CartStore, checkout *CheckoutOrchestrator, client CommerceClient, store repo.KeyValueStore, bus *event.Bus, shopID string, logger *zap.Logger) *PaymentReturnHandler {
	return &PaymentReturnHandler{
		cart:     cart,
		checkout: checkout,
		client:   client,
		store:    store,
		bus:      bus,
		shopID:   shopID,
		logger:   logger,
	}
}

// Handle はURLを読んで処理する。purchaseが無ければ何もしない。
// 同じ (purchase, order) は2回目以降AlreadyHandled。shop_idが違えばエラー
func (h *PaymentReturnHandler) Handle(ctx context.Context, rawURL string) (PaymentReturnResult, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return PaymentReturnResult{}, NewValidationError("invalid return url")
	}

	q := u.Query()
	purchase := strings.ToLower(strings.TrimSpace(q.Get(paramPurchase)))
	res := PaymentReturnResult{
		ShopID:  q.Get(paramShopID),
		OrderID: q.Get(paramOrder),
	}

	q.Del(paramPurchase)
	q.Del(paramShopID)
	q.Del(paramOrder)
	u.RawQuery = q.Encode()
	res.CleanURL = u.String()

	if purchase == "" {
		return res, nil
	}

	switch PurchaseOutcome(purchase) {
	case PurchaseSuccess, PurchaseFailed, PurchaseCancel:
		res.Outcome = PurchaseOutcome(purchase)
	default:
		return res, ErrInvalidPaymentReturn
	}

	//他のショップの戻りではカートに触らない
	if res.ShopID != "" && res.ShopID != h.shopID {
		h.logger.Warn("payment return for another shop", zap.String("shop_id", res.ShopID))
		return res, ErrForeignShopReturn
	}

	//処理済みチェック。orderが無い戻りは試行を区別できないので毎回処理する
	marker := ""
	if res.OrderID != "" {
		marker = purchase + ":" + res.OrderID
		prev, err := h.store.Get(ctx, repo.KeyPaymentReturnConsumed)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return res, err
		}
		if err == nil && prev == marker {
			res.AlreadyHandled = true
			return res, nil
		}
	}

	switch res.Outcome {
	case PurchaseSuccess:
		h.cart.Clear(ctx)
		h.checkout.Reset(ctx)
		h.checkout.ClearDraft(ctx)
		if res.OrderID != "" {
			order, err := h.client.GetOrder(ctx, res.OrderID)
			if err != nil {
				//確認表示ができないだけなので続ける
				h.logger.Warn("get order failed", zap.String("order_id", res.OrderID), zap.Error(err))
			} else {
				res.Order = order
			}
		}
	case PurchaseFailed:
		h.checkout.Reset(ctx)
		res.Notice = &UserFacingError{Message: "Payment failed. Your cart has been kept so you can try again.", Action: ActionTryAgain}
	case PurchaseCancel:
		h.checkout.Reset(ctx)
		res.Notice = &UserFacingError{Message: "Payment was cancelled. Your cart has been kept.", Action: ActionGoBack}
	}

	if marker != "" {
		if err := h.store.Set(ctx, repo.KeyPaymentReturnConsumed, marker); err != nil {
			h.logger.Warn("persist payment return marker failed", zap.Error(err))
		}
	}

	h.logger.Info("payment return handled",
		zap.String("outcome", string(res.Outcome)),
		zap.String("order_id", res.OrderID),
	)
	h.bus.Emit(event.PaymentReturned, res)
	return res, nil
}
