package localstore

import (
	"context"
	"fmt"
)

// ドライバー名
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Options はOpenに渡すストア設定。
type Options struct {
	Driver        string
	Path          string
	RedisAddr     string
	RedisPassword string
	RedisPrefix   string
}

// Open は設定されたドライバーのストアを開く。
func Open(ctx context.Context, opts Options) (ClosableStore, error) {
	switch opts.Driver {
	case DriverSQLite, "":
		return OpenSQLite(ctx, opts.Path)
	case DriverRedis:
		return OpenRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisPrefix)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("未対応のローカルストアドライバーです: %s", opts.Driver)
	}
}
