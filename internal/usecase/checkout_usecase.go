package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/event"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
)

// 失敗したステップ
type CheckoutStage string

const (
	StagePrepare       CheckoutStage = "prepare"
	StageCreateOrder   CheckoutStage = "create_order"
	StageCreatePayment CheckoutStage = "create_payment"
	StageRedirect      CheckoutStage = "redirect"
)

// CheckoutError はどのステップで失敗したかを持つ
type CheckoutError struct {
	Stage   CheckoutStage
	OrderID string
	Err     error
}

func (e *CheckoutError) Error() string {
	switch e.Stage {
	case StageCreateOrder:
		return fmt.Sprintf("order creation failed: %v", e.Err)
	case StageCreatePayment:
		return fmt.Sprintf("payment creation failed: %v", e.Err)
	case StageRedirect:
		return fmt.Sprintf("payment redirect missing: %v", e.Err)
	}
	return fmt.Sprintf("checkout failed: %v", e.Err)
}

func (e *CheckoutError) Unwrap() error {
	return e.Err
}

// UI向けのチェックアウト状態
type CheckoutStatus struct {
	Step    model.CheckoutStep `json:"step"`
	OrderID string             `json:"orderId,omitempty"`
	Error   *model.ErrorInfo   `json:"error"`
}

// CheckoutOrchestrator は 注文作成 -> 決済作成 -> リダイレクト を順に行う。
// 途中で失敗しても作成済みの注文は取り消さない
type CheckoutOrchestrator struct {
	mu      sync.Mutex
	step    model.CheckoutStep
	lastErr error
	draft   model.CheckoutState

	sessionID string
	cart      *CartStore
	shipping  SelectionSource
	client    CommerceClient
	attempt   *orderAttempt
	store     repo.KeyValueStore
	logs      repo.CheckoutLogRepository
	validator CheckoutValidator
	bus       *event.Bus
	shopID    string
	now       func() time.Time
	logger    *zap.Logger
}

// DI
func NewCheckoutOrchestrator(
	sessionID string,
	cart *CartStore,
	shipping SelectionSource,
	client CommerceClient,
	attempt *orderAttempt,
	store repo.KeyValueStore,
	logs repo.CheckoutLogRepository,
	validator CheckoutValidator,
	bus *event.Bus,
	shopID string,
	logger *zap.Logger,
) *CheckoutOrchestrator {
	return &CheckoutOrchestrator{
		step:      model.CheckoutIdle,
		sessionID: sessionID,
		cart:      cart,
		shipping:  shipping,
		client:    client,
		attempt:   attempt,
		store:     store,
		logs:      logs,
		validator: validator,
		bus:       bus,
		shopID:    shopID,
		now:       time.Now,
		logger:    logger,
	}
}

func (c *CheckoutOrchestrator) Status() CheckoutStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CheckoutStatus{
		Step:    c.step,
		OrderID: c.attempt.Peek(),
		Error:   ErrorInfo(c.lastErr, ContextCheckout),
	}
}

// SubmitOrder は注文を送信して決済のリダイレクト先を返す。
// 同じ試行のリトライでは同じorderIdを使う。カートは消さない
func (c *CheckoutOrchestrator) SubmitOrder(ctx context.Context, state model.CheckoutState, urls model.ReturnURLs) (model.OrderSubmissionResult, error) {
	//二重送信チェック
	c.mu.Lock()
	if c.step.InFlight() {
		c.mu.Unlock()
		return model.OrderSubmissionResult{}, ErrCheckoutInProgress
	}
	c.step = model.CheckoutSubmitting
	c.lastErr = nil
	c.mu.Unlock()
	c.transitioned(ctx, model.CheckoutSubmitting, c.attempt.Peek(), "")

	if c.validator != nil {
		if err := c.validator.ValidateCheckout(state, urls); err != nil {
			return model.OrderSubmissionResult{}, c.fail(ctx, &CheckoutError{Stage: StagePrepare, Err: err})
		}
	}

	//カートと計算結果の確認
	cart := c.cart.Snapshot()
	if cart.IsEmpty() {
		return model.OrderSubmissionResult{}, c.fail(ctx, &CheckoutError{Stage: StagePrepare, Err: ErrCartEmpty})
	}
	if _, ok := c.cart.FreshOrder(); !ok {
		if err := c.cart.Recalculate(ctx); err != nil {
			return model.OrderSubmissionResult{}, c.fail(ctx, &CheckoutError{Stage: StagePrepare, Err: err})
		}
		if _, ok := c.cart.FreshOrder(); !ok {
			cause := error(ErrOrderIncomplete)
			if snap := c.cart.Snapshot(); snap.Error != nil && c.shipping.Snapshot().SelectedCountry == "" {
				cause = ErrDestinationRequired
			}
			return model.OrderSubmissionResult{}, c.fail(ctx, &CheckoutError{Stage: StagePrepare, Err: cause})
		}
		cart = c.cart.Snapshot()
	}

	sel := c.shipping.Snapshot()
	orderID := c.attempt.Current(ctx)

	sub := model.OrderSubmission{
		OrderID:         orderID,
		ShopID:          c.shopID,
		Items:           toOrderLines(cart.Items),
		CustomerEmail:   strings.TrimSpace(state.Email),
		CustomerUserID:  state.CustomerUserID,
		ShippingAddress: state.ShippingAddress,
		BillingAddress:  state.EffectiveBillingAddress(),
		Country:         sel.SelectedCountry,
		WarehouseID:     sel.SelectedWarehouse,
	}

	//注文作成（再試行しない）
	if err := c.client.CreateOrder(ctx, sub); err != nil {
		return model.OrderSubmissionResult{}, c.fail(ctx, &CheckoutError{Stage: StageCreateOrder, OrderID: orderID, Err: Classify(err)})
	}
	c.setStep(ctx, model.CheckoutOrderCreated, orderID)

	//決済作成
	rec, err := c.client.CreateOrderPayment(ctx, orderID, urls.WithOrder(orderID))
	if err != nil {
		return model.OrderSubmissionResult{}, c.fail(ctx, &CheckoutError{Stage: StageCreatePayment, OrderID: orderID, Err: Classify(err)})
	}
	c.setStep(ctx, model.CheckoutPaymentCreated, orderID)

	redirect, err := ExtractRedirectURL(rec)
	if err != nil {
		return model.OrderSubmissionResult{}, c.fail(ctx, &CheckoutError{Stage: StageRedirect, OrderID: orderID, Err: err})
	}

	//入力内容は戻ってきた時のために残す
	c.saveDraft(ctx, state)
	c.setStep(ctx, model.CheckoutRedirecting, orderID)

	c.logger.Info("checkout redirecting", zap.String("order_id", orderID))
	return model.OrderSubmissionResult{OrderID: orderID, PaymentRedirectURL: redirect}, nil
}

// Reset は次の試行に備えて状態と注文IDを戻す
func (c *CheckoutOrchestrator) Reset(ctx context.Context) {
	c.mu.Lock()
	c.step = model.CheckoutIdle
	c.lastErr = nil
	c.mu.Unlock()

	c.attempt.Reset(ctx)
	c.emit()
}

// SaveDraft は入力途中の内容を保存する
func (c *CheckoutOrchestrator) SaveDraft(ctx context.Context, state model.CheckoutState) {
	c.saveDraft(ctx, state)
}

func (c *CheckoutOrchestrator) Draft() model.CheckoutState {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.draft
	if c.draft.BillingAddress != nil {
		b := *c.draft.BillingAddress
		d.BillingAddress = &b
	}
	return d
}

// ClearDraft は注文完了後に入力内容を消す
func (c *CheckoutOrchestrator) ClearDraft(ctx context.Context) {
	c.mu.Lock()
	c.draft = model.CheckoutState{}
	c.mu.Unlock()
	if err := c.store.Delete(ctx, repo.KeyCheckoutState); err != nil {
		c.logger.Warn("delete checkout draft failed", zap.Error(err))
	}
}

func (c *CheckoutOrchestrator) Rehydrate(ctx context.Context) error {
	if err := c.attempt.Rehydrate(ctx); err != nil {
		return err
	}
	raw, err := c.store.Get(ctx, repo.KeyCheckoutState)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	var d model.CheckoutState
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		c.logger.Warn("ignore broken checkout draft", zap.Error(err))
		return nil
	}
	c.mu.Lock()
	c.draft = d
	c.mu.Unlock()
	return nil
}

// History は注文IDの遷移ログ
func (c *CheckoutOrchestrator) History(ctx context.Context, orderID string) ([]model.CheckoutLog, error) {
	if c.logs == nil {
		return []model.CheckoutLog{}, nil
	}
	return c.logs.ListByOrderID(ctx, orderID)
}

func (c *CheckoutOrchestrator) saveDraft(ctx context.Context, state model.CheckoutState) {
	c.mu.Lock()
	c.draft = state
	c.mu.Unlock()

	b, err := json.Marshal(state)
	if err != nil {
		c.logger.Warn("encode checkout draft failed", zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, repo.KeyCheckoutState, string(b)); err != nil {
		c.logger.Warn("persist checkout draft failed", zap.Error(err))
	}
}

func (c *CheckoutOrchestrator) setStep(ctx context.Context, step model.CheckoutStep, orderID string) {
	c.mu.Lock()
	c.step = step
	c.mu.Unlock()
	c.transitioned(ctx, step, orderID, "")
}

func (c *CheckoutOrchestrator) fail(ctx context.Context, err *CheckoutError) error {
	c.mu.Lock()
	c.step = model.CheckoutFailed
	c.lastErr = err
	c.mu.Unlock()

	c.logger.Warn("checkout failed",
		zap.String("stage", string(err.Stage)),
		zap.String("order_id", err.OrderID),
		zap.Error(err.Err),
	)
	c.transitioned(ctx, model.CheckoutFailed, err.OrderID, err.Error())
	return err
}

// transitioned はイベント通知と遷移ログ（ログの失敗は無視）
func (c *CheckoutOrchestrator) transitioned(ctx context.Context, step model.CheckoutStep, orderID, detail string) {
	if c.logs != nil && orderID != "" {
		entry := model.CheckoutLog{
			SessionID: c.sessionID,
			OrderID:   orderID,
			Step:      step,
			Detail:    detail,
			CreatedAt: c.now(),
		}
		if err := c.logs.Create(ctx, entry); err != nil {
			c.logger.Warn("checkout log write failed", zap.String("order_id", orderID), zap.Error(err))
		}
	}
	c.emit()
}

func (c *CheckoutOrchestrator) emit() {
	c.bus.Emit(event.CheckoutState, c.Status())
}

// ExtractRedirectURL は決済レスポンスのdataからURLを取り出す。
// dataはJSONオブジェクトでも、それを文字列にしたものでもよい
func ExtractRedirectURL(rec *model.PaymentRecord) (string, error) {
	if rec == nil {
		return "", ErrNoRedirect
	}
	data := bytes.TrimSpace(rec.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", ErrNoRedirect
	}

	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoRedirect, err)
	}
	//文字列の中にJSONが入っている場合
	if s, ok := payload.(string); ok {
		if strings.TrimSpace(s) == "" {
			return "", ErrNoRedirect
		}
		if err := json.Unmarshal([]byte(s), &payload); err != nil {
			return "", fmt.Errorf("%w: %v", ErrNoRedirect, err)
		}
	}

	raw := findRedirect(payload)
	if raw == "" {
		return "", ErrNoRedirect
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoRedirect, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: not an absolute url", ErrNoRedirect)
	}
	return u.String(), nil
}

var redirectKeys = []string{"redirect_url", "redirectUrl", "checkout_url", "url"}

func findRedirect(v any) string {
	m, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	for _, k := range redirectKeys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	//1階層下（session など）も見る
	for _, k := range []string{"session", "checkout_session", "payment"} {
		if s := findRedirect(m[k]); s != "" {
			return s
		}
	}
	return ""
}
