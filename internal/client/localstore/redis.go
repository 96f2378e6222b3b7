package localstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore はRedisに永続化するStore。
// 複数端末でプロファイルを共有する場合に使用する。キーにはprefixを付与する。
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore は既存のクライアントからRedisStoreを生成する。
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// OpenRedis はRedisに接続し、疎通確認を行ってからRedisStoreを返す。
func OpenRedis(ctx context.Context, addr, password, prefix string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("Redisへの接続に失敗しました: %w", err)
	}

	return NewRedisStore(client, prefix), nil
}

func (r *RedisStore) key(k string) string {
	return r.prefix + k
}

// Get は値を返す。
func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("ローカルデータの取得に失敗しました (key=%s): %w", key, err)
	}
	return val, true, nil
}

// Set は値を有効期限なしで保存する。
func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("ローカルデータの保存に失敗しました (key=%s): %w", key, err)
	}
	return nil
}

// Remove はキーを削除する。
func (r *RedisStore) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("ローカルデータの削除に失敗しました (key=%s): %w", key, err)
	}
	return nil
}

// Close はRedisクライアントを閉じる。
func (r *RedisStore) Close() error {
	return r.client.Close()
}
