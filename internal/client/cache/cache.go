// Package cache はAPIレスポンスのメモリ内キャッシュを提供する。
//
// エントリは作成時刻+TTLで失効し、失効後は参照時に削除される。
// プロセス終了時に破棄される。
package cache

import (
	"strings"
	"sync"
	"time"
)

// DefaultTTL はTTL未指定時に使用する有効期間。
const DefaultTTL = 5 * time.Minute

type entry struct {
	payload   any
	expiresAt time.Time
}

// Cache はキー単位でペイロードを保持するTTL付きキャッシュ。
// 複数goroutineから安全に利用できる。
type Cache struct {
	mu         sync.Mutex
	entries    map[string]entry
	defaultTTL time.Duration
	now        func() time.Time
}

// New はCacheを生成する。defaultTTLが0以下の場合はDefaultTTLを使用する。
// nowがnilの場合はtime.Nowを使用する。
func New(defaultTTL time.Duration, now func() time.Time) *Cache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{
		entries:    make(map[string]entry),
		defaultTTL: defaultTTL,
		now:        now,
	}
}

// Get はキーのペイロードを返す。
// 未登録または現在時刻が失効時刻を過ぎている場合はfalseを返し、失効エントリを削除する。
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.payload, true
}

// Set はペイロードを保存する。ttlが0以下の場合はデフォルトTTLを使用する。
// 同一キーの既存エントリは上書きされる。
func (c *Cache) Set(key string, payload any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{payload: payload, expiresAt: c.now().Add(ttl)}
}

// Delete はキーを削除する。
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// DeletePrefix は接頭辞に一致するキーをすべて削除する。
func (c *Cache) DeletePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
}

// Clear は全エントリを削除する。
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Len は保持中のエントリ数を返す。失効済みでも未参照のエントリは含まれる。
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
