// Package model はドメインモデルを定義する。
package model

import "time"

// UserRole はユーザーの権限区分を表す。
type UserRole string

const (
	RoleUser    UserRole = "user"
	RoleTrainer UserRole = "trainer"
	RoleAdmin   UserRole = "admin"
)

// User はサービス利用ユーザーを表す。
// Emailは小文字に正規化して保存する。
type User struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	Phone        string    `bson:"phone,omitempty"`
	PasswordHash string    `bson:"password_hash"`
	Role         UserRole  `bson:"role"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}
