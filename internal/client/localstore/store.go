// Package localstore はクライアント端末に永続化されるキーバリューストアを提供する。
//
// 1つのクライアントプロファイルにつき1つのストアを使用する。
// 値はすべて文字列で、構造化データはJSONとして保存する。
// 同一キーへの並行書き込みは後勝ちとなる。複数プロセスからの同時利用は想定しない。
package localstore

import (
	"context"
	"encoding/json"
	"fmt"
)

// 永続化スロットのキー名。
const (
	KeyToken        = "token"
	KeyUser         = "user"
	KeySubscription = "userSubscription"
	KeyBookings     = "userBookings"
)

// Store はローカル永続ストアのインターフェース。
type Store interface {
	// Get は値を返す。キーが存在しない場合はokにfalseを返す。
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set は値を保存する。既存の値は上書きされる。
	Set(ctx context.Context, key, value string) error
	// Remove はキーを削除する。存在しない場合もエラーにならない。
	Remove(ctx context.Context, key string) error
}

// ClosableStore は終了処理を持つStore。
type ClosableStore interface {
	Store
	Close() error
}

// GetJSON はキーの値をJSONとしてdstにデコードする。
// キーが存在しない場合はfalseを返し、dstは変更しない。
func GetJSON(ctx context.Context, s Store, key string, dst any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok || raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("ローカルデータのデコードに失敗しました (key=%s): %w", key, err)
	}
	return true, nil
}

// SetJSON はvをJSONにエンコードして保存する。
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("ローカルデータのエンコードに失敗しました (key=%s): %w", key, err)
	}
	return s.Set(ctx, key, string(data))
}
