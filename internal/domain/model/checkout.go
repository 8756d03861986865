package model

import (
	"encoding/json"
	"net/url"
)

// チェックアウト入力（入力途中のものは保存される）
type CheckoutState struct {
	Email           string   `json:"email"`
	ShippingAddress Address  `json:"shippingAddress"`
	BillingAddress  *Address `json:"billingAddress,omitempty"`

	// ログイン済みユーザーのID。空ならゲスト注文
	CustomerUserID string `json:"customerUserId,omitempty"`
}

// EffectiveBillingAddress は請求先（無ければ配送先を使う）
func (s CheckoutState) EffectiveBillingAddress() Address {
	if s.BillingAddress == nil || s.BillingAddress.IsZero() {
		return s.ShippingAddress
	}
	return *s.BillingAddress
}

// 決済後に戻ってくるURL
type ReturnURLs struct {
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
}

// WithOrder は両方のURLに注文IDを付ける。戻ってきた時にどの試行か分かるように
func (r ReturnURLs) WithOrder(orderID string) ReturnURLs {
	return ReturnURLs{
		SuccessURL: setQuery(r.SuccessURL, "order", orderID),
		CancelURL:  setQuery(r.CancelURL, "order", orderID),
	}
}

func setQuery(raw, key, value string) string {
	if raw == "" || value == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}

// 注文送信の結果
type OrderSubmissionResult struct {
	OrderID            string `json:"orderId"`
	PaymentRedirectURL string `json:"paymentRedirectUrl"`
}

// 決済作成のレスポンス。
// Dataはシリアライズされた JSON文字列のこともオブジェクトのこともある
type PaymentRecord struct {
	ID      string          `json:"id"`
	OrderID string          `json:"order_id"`
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
}

type CheckoutStep string

const (
	CheckoutIdle           CheckoutStep = "IDLE"
	CheckoutSubmitting     CheckoutStep = "SUBMITTING"
	CheckoutOrderCreated   CheckoutStep = "ORDER_CREATED"
	CheckoutPaymentCreated CheckoutStep = "PAYMENT_CREATED"
	CheckoutRedirecting    CheckoutStep = "REDIRECTING"
	CheckoutFailed         CheckoutStep = "FAILED"
)

// InFlight は送信処理の途中か
func (s CheckoutStep) InFlight() bool {
	return s == CheckoutSubmitting || s == CheckoutOrderCreated || s == CheckoutPaymentCreated
}

func (s CheckoutStep) String() string {
	return string(s)
}
