package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const createKVTable = `CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLiteStore はSQLiteファイルに永続化するStore。
// プロセス再起動後も値が残る。
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite は指定パスのSQLiteデータベースを開き、kvテーブルを用意する。
// pathに":memory:"を渡すとメモリ上のデータベースになる。
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ローカルストアのオープンに失敗しました: %w", err)
	}
	// :memory: は接続ごとに別データベースになるため接続を1本に固定する
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, createKVTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("ローカルストアの初期化に失敗しました: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get は値を返す。見つからない場合はokにfalseを返す。
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("ローカルデータの取得に失敗しました (key=%s): %w", key, err)
	}
	return value, true, nil
}

// Set は値を保存する。
func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("ローカルデータの保存に失敗しました (key=%s): %w", key, err)
	}
	return nil
}

// Remove はキーを削除する。
func (s *SQLiteStore) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("ローカルデータの削除に失敗しました (key=%s): %w", key, err)
	}
	return nil
}

// Close はデータベース接続を閉じる。
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
