// Package events はクライアント内のコンポーネント間で使う型付きイベントバスを提供する。
package events

import (
	"sync"

	"github.com/hitoshi/fitzone/internal/client/wire"
)

// Event はバスに流れるイベント。このパッケージで定義した型のみが実装できる。
type Event interface {
	Name() string
	sealed()
}

// AuthOpened は認証画面（login / register）を開く要求。
type AuthOpened struct {
	View string
}

// LoginSucceeded はログインまたは会員登録の成功。
type LoginSucceeded struct {
	User wire.User
}

// BookingConfirmed は予約がサーバーに登録されたことを示す。
type BookingConfirmed struct {
	Booking wire.Booking
}

// SubscriptionUpdated は会員契約の作成または更新。
type SubscriptionUpdated struct {
	Subscription wire.Subscription
}

// LoggedOut はセッションの終了。Reason には logout / unauthorized などが入る。
type LoggedOut struct {
	Reason string
}

func (AuthOpened) Name() string          { return "auth:open" }
func (LoginSucceeded) Name() string      { return "auth:login" }
func (BookingConfirmed) Name() string    { return "booking:confirmed" }
func (SubscriptionUpdated) Name() string { return "subscription:updated" }
func (LoggedOut) Name() string           { return "auth:logout" }

func (AuthOpened) sealed()          {}
func (LoginSucceeded) sealed()      {}
func (BookingConfirmed) sealed()    {}
func (SubscriptionUpdated) sealed() {}
func (LoggedOut) sealed()           {}

type subscriber struct {
	id uint64
	fn func(Event)
}

// Bus は同期配信のpublish/subscribeバス。
// ハンドラーは購読順に、Publishを呼んだgoroutine上で実行される。
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscriber
}

// NewBus は空のBusを生成する。
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe はハンドラーを登録し、登録解除関数を返す。
// 登録解除関数は何度呼んでもよい。
func (b *Bus) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscriber{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish はイベントを全購読者に配信する。
// ハンドラー内からのSubscribe/Publishも可能。
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]func(Event), len(b.subs))
	for i, s := range b.subs {
		handlers[i] = s.fn
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(e)
	}
}

// Count は現在の購読者数を返す。
func (b *Bus) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
