package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"storefront/internal/domain/model"
	"storefront/internal/event"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
)

// SelectionSource は現在の配送先を返す（ShippingSelectorが実装）
type SelectionSource interface {
	Snapshot() model.ShippingSelection
}

// 永続化する形（商品情報は持たない）
type persistedItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CartStore はセッションのカートを持つ。
// 楽観的に変更してから再計算し、AddItemだけ失敗時に巻き戻す
type CartStore struct {
	mu   sync.Mutex
	cart model.Cart

	//再計算の世代。最後に発行したものだけ反映する
	gen      uint64
	inflight int

	store    repo.KeyValueStore
	bus      *event.Bus
	calc     *OrderCalculator
	shipping SelectionSource
	client   CommerceClient
	retry    *RetryPolicy
	shopID   string
	logger   *zap.Logger
}

func NewCartStore(
	store repo.KeyValueStore,
	bus *event.Bus,
	calc *OrderCalculator,
	shipping SelectionSource,
	client CommerceClient,
	retry *RetryPolicy,
	shopID string,
	logger *zap.Logger,
) *CartStore {
	return &CartStore{
		cart:     model.Cart{Items: []model.CartItem{}},
		store:    store,
		bus:      bus,
		calc:     calc,
		shipping: shipping,
		client:   client,
		retry:    retry,
		shopID:   shopID,
		logger:   logger,
	}
}

// Snapshot は現在のカートのコピー
func (s *CartStore) Snapshot() model.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// AddItem は同一商品なら数量加算、無ければ追加。
// 再計算が失敗したら追加分を戻してエラーを返す
func (s *CartStore) AddItem(ctx context.Context, productID string, quantity int) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return ErrInvalidProductID
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	s.mu.Lock()
	prevPending := s.cart.Pending
	if i := s.cart.IndexOf(productID); i >= 0 {
		s.cart.Items[i].Quantity += quantity
	} else {
		s.cart.Items = append(s.cart.Items, model.CartItem{ProductID: productID, Quantity: quantity})
	}
	s.cart.Pending = true
	s.persistLocked(ctx)
	snap := s.cart.Clone()
	s.mu.Unlock()

	s.bus.Emit(event.CartUpdated, snap)

	if err := s.Recalculate(ctx); err != nil {
		s.rollbackAdd(ctx, productID, quantity, prevPending)
		return err
	}
	return nil
}

func (s *CartStore) rollbackAdd(ctx context.Context, productID string, quantity int, prevPending bool) {
	s.mu.Lock()
	if i := s.cart.IndexOf(productID); i >= 0 {
		q := s.cart.Items[i].Quantity - quantity
		if q <= 0 {
			s.cart.Items = append(s.cart.Items[:i], s.cart.Items[i+1:]...)
		} else {
			s.cart.Items[i].Quantity = q
		}
	}
	s.cart.Pending = prevPending
	s.persistLocked(ctx)
	snap := s.cart.Clone()
	s.mu.Unlock()

	s.logger.Info("add item rolled back", zap.String("product_id", productID), zap.Int("quantity", quantity))
	s.bus.Emit(event.CartUpdated, snap)
}

// RemoveItem は明細を消す。再計算の失敗はログだけ（巻き戻さない）
func (s *CartStore) RemoveItem(ctx context.Context, productID string) error {
	s.mu.Lock()
	i := s.cart.IndexOf(productID)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}
	s.cart.Items = append(s.cart.Items[:i], s.cart.Items[i+1:]...)
	s.cart.Pending = true
	s.persistLocked(ctx)
	snap := s.cart.Clone()
	s.mu.Unlock()

	s.bus.Emit(event.CartUpdated, snap)

	if err := s.Recalculate(ctx); err != nil {
		s.logger.Warn("recalculate after remove failed", zap.String("product_id", productID), zap.Error(err))
	}
	return nil
}

// UpdateQuantity は数量変更。0以下ならRemoveItem
func (s *CartStore) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, productID)
	}

	s.mu.Lock()
	i := s.cart.IndexOf(productID)
	if i < 0 {
		s.mu.Unlock()
		return ErrItemNotInCart
	}
	s.cart.Items[i].Quantity = quantity
	s.cart.Pending = true
	s.persistLocked(ctx)
	snap := s.cart.Clone()
	s.mu.Unlock()

	s.bus.Emit(event.CartUpdated, snap)

	if err := s.Recalculate(ctx); err != nil {
		s.logger.Warn("recalculate after update failed", zap.String("product_id", productID), zap.Error(err))
	}
	return nil
}

// Clear は明細と計算結果を空にする
func (s *CartStore) Clear(ctx context.Context) {
	s.mu.Lock()
	s.cart.Items = []model.CartItem{}
	s.cart.CalculatedOrder = nil
	s.cart.Pending = false
	s.cart.Error = nil
	//実行中の再計算結果は捨てる
	s.gen++
	s.persistLocked(ctx)
	snap := s.cart.Clone()
	s.mu.Unlock()

	s.bus.Emit(event.CartUpdated, snap)
}

// Invalidate は配送先が変わった時に呼ばれる
func (s *CartStore) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cart.IsEmpty() {
		s.cart.Pending = true
	}
}

// Recalculate は現在の明細と配送先で計算し直す。
// 古い世代の結果は捨てる（エラーも返さない）
func (s *CartStore) Recalculate(ctx context.Context) error {
	s.mu.Lock()
	s.gen++
	myGen := s.gen
	s.inflight++
	s.cart.IsLoading = true
	items := make([]model.CartItem, len(s.cart.Items))
	copy(items, s.cart.Items)
	s.mu.Unlock()

	order, err := s.calc.Calculate(ctx, items, s.shipping.Snapshot())

	s.mu.Lock()
	s.inflight--
	s.cart.IsLoading = s.inflight > 0

	if myGen != s.gen {
		s.mu.Unlock()
		s.logger.Debug("stale calculation discarded", zap.Uint64("generation", myGen), zap.Error(err))
		return nil
	}

	//国が未選択：ゲートとして扱い、失敗にはしない
	if errors.Is(err, ErrDestinationRequired) {
		s.cart.CalculatedOrder = nil
		s.cart.Error = ErrorInfo(err, ContextCart)
		snap := s.cart.Clone()
		s.mu.Unlock()
		s.bus.Emit(event.CartError, snap)
		return nil
	}

	if err != nil {
		s.cart.Error = ErrorInfo(err, ContextCart)
		snap := s.cart.Clone()
		s.mu.Unlock()
		s.bus.Emit(event.CartError, snap)
		return err
	}

	s.cart.CalculatedOrder = order
	s.cart.Pending = false
	s.cart.Error = nil
	snap := s.cart.Clone()
	s.mu.Unlock()

	s.bus.Emit(event.CartCalculated, snap)
	return nil
}

// FreshOrder は再計算待ちでない計算結果を返す
func (s *CartStore) FreshOrder() (*model.CalculatedOrder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cart.CalculatedOrder == nil || s.cart.Pending {
		return nil, false
	}
	o := *s.cart.CalculatedOrder
	return &o, true
}

// LoadProducts は明細に商品情報を付ける。見つからない商品は外す
func (s *CartStore) LoadProducts(ctx context.Context) error {
	s.mu.Lock()
	if s.cart.IsEmpty() {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	warehouseID := s.shipping.Snapshot().SelectedWarehouse
	products, err := WithRetry(ctx, s.retry, func(ctx context.Context) ([]model.ProductSnapshot, error) {
		ps, err := s.client.GetProducts(ctx, s.shopID, warehouseID)
		if err != nil {
			return nil, Classify(err)
		}
		return ps, nil
	})
	if err != nil {
		ae := Classify(err)
		s.mu.Lock()
		s.cart.Error = ErrorInfo(ae, ContextProducts)
		snap := s.cart.Clone()
		s.mu.Unlock()
		s.bus.Emit(event.CartError, snap)
		return ae
	}

	byID := make(map[string]model.ProductSnapshot, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	s.mu.Lock()
	kept := make([]model.CartItem, 0, len(s.cart.Items))
	var dropped []string
	for _, it := range s.cart.Items {
		p, ok := byID[it.ProductID]
		if !ok {
			dropped = append(dropped, it.ProductID)
			continue
		}
		it.Product = &p
		kept = append(kept, it)
	}
	s.cart.Items = kept
	if len(dropped) > 0 {
		s.cart.Pending = !s.cart.IsEmpty()
		if s.cart.IsEmpty() {
			s.cart.CalculatedOrder = nil
		}
	}
	s.persistLocked(ctx)
	snap := s.cart.Clone()
	s.mu.Unlock()

	if len(dropped) > 0 {
		s.logger.Info("dropped unavailable products", zap.Strings("product_ids", dropped))
	}
	s.bus.Emit(event.CartUpdated, snap)
	return nil
}

// Rehydrate は保存済みの明細を読み込む
func (s *CartStore) Rehydrate(ctx context.Context) error {
	raw, err := s.store.Get(ctx, repo.KeyCartItems)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	var saved []persistedItem
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		//壊れた値は捨てて空カートで始める
		s.logger.Warn("ignore broken cart data", zap.Error(err))
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	items := []model.CartItem{}
	for _, p := range saved {
		if p.ProductID == "" || p.Quantity <= 0 {
			continue
		}
		merged := false
		for i := range items {
			if items[i].ProductID == p.ProductID {
				items[i].Quantity += p.Quantity
				merged = true
				break
			}
		}
		if !merged {
			items = append(items, model.CartItem{ProductID: p.ProductID, Quantity: p.Quantity})
		}
	}
	s.cart.Items = items
	s.cart.Pending = len(items) > 0
	return nil
}

// persistLocked は明細を保存する。空ならキーごと消す
func (s *CartStore) persistLocked(ctx context.Context) {
	if s.cart.IsEmpty() {
		if err := s.store.Delete(ctx, repo.KeyCartItems); err != nil {
			s.logger.Warn("persist cart failed", zap.Error(err))
		}
		return
	}

	out := make([]persistedItem, 0, len(s.cart.Items))
	for _, it := range s.cart.Items {
		out = append(out, persistedItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	b, err := json.Marshal(out)
	if err != nil {
		s.logger.Warn("encode cart failed", zap.Error(err))
		return
	}
	if err := s.store.Set(ctx, repo.KeyCartItems, string(b)); err != nil {
		s.logger.Warn("persist cart failed", zap.Error(err))
	}
}
