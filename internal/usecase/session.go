package usecase

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"storefront/internal/domain/model"
	"storefront/internal/event"
	repo "storefront/internal/repository"

	"github.com/go-faster/errors"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// セッションを作るのに必要なもの
type SessionDeps struct {
	Client    CommerceClient
	Stores    repo.KeyValueStoreFactory
	Logs      repo.CheckoutLogRepository
	Validator CheckoutValidator
	IDs       IDGenerator
	ShopID    string
	Retry     *RetryPolicy
	Logger    *zap.Logger
}

// Session は1ブラウザセッション分のエンジン。
// グローバルには持たず、SessionManagerから取り出す
type Session struct {
	ID         string
	Bus        *event.Bus
	Store      repo.KeyValueStore
	Shipping   *ShippingSelector
	Calculator *OrderCalculator
	Cart       *CartStore
	Checkout   *CheckoutOrchestrator
	Returns    *PaymentReturnHandler

	attempt *orderAttempt
	logger  *zap.Logger

	mu        sync.Mutex
	lastLines string
	lastDest  string
}

func NewSession(ctx context.Context, id string, deps SessionDeps) (*Session, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("session_id", id))

	ids := deps.IDs
	if ids == nil {
		ids = UUIDGenerator{}
	}
	retry := deps.Retry
	if retry == nil {
		retry = NewRetryPolicy(DefaultRetryOptions(), logger)
	}

	store := deps.Stores(id)
	bus := event.NewBus(logger)
	attempt := newOrderAttempt(store, ids, logger)
	shipping := NewShippingSelector(store, bus, deps.Client, retry, deps.ShopID, logger)
	calc := NewOrderCalculator(deps.Client, retry, deps.ShopID, attempt, logger)
	cart := NewCartStore(store, bus, calc, shipping, deps.Client, retry, deps.ShopID, logger)
	checkout := NewCheckoutOrchestrator(id, cart, shipping, deps.Client, attempt, store, deps.Logs, deps.Validator, bus, deps.ShopID, logger)
	returns := NewPaymentReturnHandler(cart, checkout, deps.Client, store, bus, deps.ShopID, logger)

	s := &Session{
		ID:         id,
		Bus:        bus,
		Store:      store,
		Shipping:   shipping,
		Calculator: calc,
		Cart:       cart,
		Checkout:   checkout,
		Returns:    returns,
		attempt:    attempt,
		logger:     logger,
	}

	//復元
	if err := shipping.Rehydrate(ctx); err != nil {
		return nil, errors.Wrap(err, "rehydrate shipping")
	}
	if err := cart.Rehydrate(ctx); err != nil {
		return nil, errors.Wrap(err, "rehydrate cart")
	}
	if err := checkout.Rehydrate(ctx); err != nil {
		return nil, errors.Wrap(err, "rehydrate checkout")
	}

	s.lastLines = lineSignature(cart.Snapshot().Items)
	s.lastDest = destSignature(shipping.Snapshot())
	bus.On(event.CartUpdated, s.onCartUpdated)
	bus.On(event.ShippingUpdated, s.onShippingUpdated)

	return s, nil
}

// 明細が変わったら次の注文IDにする
func (s *Session) onCartUpdated(payload any) {
	cart, ok := payload.(model.Cart)
	if !ok {
		return
	}
	sig := lineSignature(cart.Items)

	s.mu.Lock()
	changed := sig != s.lastLines
	s.lastLines = sig
	s.mu.Unlock()

	if changed {
		s.attempt.Reset(context.Background())
	}
}

// 国・倉庫が変わったら計算結果を再計算待ちにする
func (s *Session) onShippingUpdated(payload any) {
	sel, ok := payload.(model.ShippingSelection)
	if !ok {
		return
	}
	sig := destSignature(sel)

	s.mu.Lock()
	changed := sig != s.lastDest
	s.lastDest = sig
	s.mu.Unlock()

	if changed {
		s.Cart.Invalidate()
	}
}

// ChangeCountry は国を変えて再計算する
func (s *Session) ChangeCountry(ctx context.Context, code string) error {
	if err := s.Shipping.SetCountry(ctx, code); err != nil {
		return err
	}
	return s.Cart.Recalculate(ctx)
}

// ChangeWarehouse は倉庫を変えて再計算する
func (s *Session) ChangeWarehouse(ctx context.Context, warehouseID string) error {
	if err := s.Shipping.SetWarehouse(ctx, warehouseID); err != nil {
		return err
	}
	return s.Cart.Recalculate(ctx)
}

func lineSignature(items []model.CartItem) string {
	var b strings.Builder
	for _, it := range items {
		b.WriteString(it.ProductID)
		b.WriteByte('=')
		b.WriteString(strconv.Itoa(it.Quantity))
		b.WriteByte(';')
	}
	return b.String()
}

func destSignature(sel model.ShippingSelection) string {
	return sel.SelectedCountry + "|" + sel.SelectedWarehouse
}

// SessionManager はセッションをLRUで保持する。
// 追い出されても状態はKeyValueStoreから復元できる
type SessionManager struct {
	mu    sync.Mutex
	cache *lru.Cache
	deps  SessionDeps
	ids   IDGenerator
}

func NewSessionManager(deps SessionDeps, size int) (*SessionManager, error) {
	if deps.Client == nil {
		return nil, errors.New("commerce client is required")
	}
	if deps.Stores == nil {
		return nil, errors.New("store factory is required")
	}
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "create session cache")
	}
	ids := deps.IDs
	if ids == nil {
		ids = UUIDGenerator{}
	}
	return &SessionManager{cache: cache, deps: deps, ids: ids}, nil
}

// NewID は新しいセッションIDを払い出す
func (m *SessionManager) NewID() string {
	return m.ids.NewID()
}

// Get はセッションを返す。無ければ作って復元する
func (m *SessionManager) Get(ctx context.Context, id string) (*Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	if v, ok := m.cache.Get(id); ok {
		return v.(*Session), nil
	}

	//復元はストアを読むのでロックの外で行う
	s, err := NewSession(ctx, id, m.deps)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	//同時に作られていたら先に入った方を使う
	if v, ok := m.cache.Get(id); ok {
		return v.(*Session), nil
	}
	m.cache.Add(id, s)
	return s, nil
}

func (m *SessionManager) Len() int {
	return m.cache.Len()
}
