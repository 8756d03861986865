package event

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// イベント名
const (
	CartUpdated     = "cart:updated"
	CartCalculated  = "cart:calculated"
	CartError       = "cart:error"
	ShippingUpdated = "shipping:updated"
	CheckoutState   = "checkout:state"
	PaymentReturned = "payment:returned"
)

type Handler func(payload any)

// Subscription はOffで購読を解除するためのハンドル
type Subscription struct {
	event string
	id    uint64
}

type listener struct {
	id   uint64
	fn   Handler
	once bool
}

// Bus は同期のpub/sub。セッションごとに1つ作る
type Bus struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[string][]listener
	logger    *zap.Logger
}

func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		listeners: map[string][]listener{},
		logger:    logger,
	}
}

func (b *Bus) On(event string, fn Handler) Subscription {
	return b.add(event, fn, false)
}

// Once は最初の1回だけ呼ばれる
func (b *Bus) Once(event string, fn Handler) Subscription {
	return b.add(event, fn, true)
}

func (b *Bus) Off(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(sub.event, sub.id)
}

// Emit は購読順に呼び出し元のgoroutineで配信する。
// handlerのpanicはログに出して次のhandlerへ進む
func (b *Bus) Emit(event string, payload any) {
	b.mu.Lock()
	ls := make([]listener, len(b.listeners[event]))
	copy(ls, b.listeners[event])
	for _, l := range ls {
		if l.once {
			b.removeLocked(event, l.id)
		}
	}
	b.mu.Unlock()

	for _, l := range ls {
		b.call(event, l)(payload)
	}
}

// ListenerCount はテスト・デバッグ用
func (b *Bus) ListenerCount(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[event])
}

func (b *Bus) add(event string, fn Handler, once bool) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.listeners[event] = append(b.listeners[event], listener{id: b.nextID, fn: fn, once: once})
	return Subscription{event: event, id: b.nextID}
}

func (b *Bus) removeLocked(event string, id uint64) {
	ls := b.listeners[event]
	for i, l := range ls {
		if l.id == id {
			out := make([]listener, 0, len(ls)-1)
			out = append(out, ls[:i]...)
			out = append(out, ls[i+1:]...)
			if len(out) == 0 {
				delete(b.listeners, event)
			} else {
				b.listeners[event] = out
			}
			return
		}
	}
}

func (b *Bus) call(event string, l listener) Handler {
	return func(payload any) {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("event handler panicked",
					zap.String("event", event),
					zap.Uint64("listener", l.id),
					zap.String("panic", fmt.Sprint(r)),
				)
			}
		}()
		l.fn(payload)
	}
}
