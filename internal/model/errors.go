// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, booking, membership, catalog, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized            = "UNAUTHORIZED"
	ErrCodeInvalidCredentials      = "INVALID_CREDENTIALS"
	ErrCodeEmailTaken              = "EMAIL_TAKEN"
	ErrCodeUserNotFound            = "USER_NOT_FOUND"
	ErrCodeValidation              = "VALIDATION_FAILED"
	ErrCodeInvalidRequest          = "INVALID_REQUEST"
	ErrCodeBookingConflict         = "BOOKING_CONFLICT"
	ErrCodeBookingNotFound         = "BOOKING_NOT_FOUND"
	ErrCodeBookingForbidden        = "BOOKING_FORBIDDEN"
	ErrCodeBookingAlreadyCancelled = "BOOKING_ALREADY_CANCELLED"
	ErrCodeClassNotFound           = "CLASS_NOT_FOUND"
	ErrCodeClassFull               = "CLASS_FULL"
	ErrCodeTrainerNotFound         = "TRAINER_NOT_FOUND"
	ErrCodePlanNotFound            = "PLAN_NOT_FOUND"
	ErrCodeInvalidDay              = "INVALID_DAY"
)

// NewUnauthorizedError は認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewInvalidCredentialsError はメールアドレスまたはパスワード不一致のエラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewEmailTakenError は登録済みメールアドレスでの登録エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "ログインするか、別のメールアドレスを使用してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewValidationError は入力値検証エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewBookingConflictError は同一日時の予約が既に存在する場合のエラーを生成する。
func NewBookingConflictError() *APIError {
	return &APIError{
		Code:     ErrCodeBookingConflict,
		Message:  "この時間帯には既に予約があります。",
		Category: "booking",
		Action:   "別の日時を選択してください。",
	}
}

// NewBookingNotFoundError は予約が見つからない場合のエラーを生成する。
func NewBookingNotFoundError(bookingID string) *APIError {
	return &APIError{
		Code:     ErrCodeBookingNotFound,
		Message:  fmt.Sprintf("指定された予約が見つかりません: %s", bookingID),
		Category: "booking",
		Action:   "予約IDを確認してください。",
	}
}

// NewBookingForbiddenError は他ユーザーの予約を操作しようとした場合のエラーを生成する。
func NewBookingForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeBookingForbidden,
		Message:  "この予約を操作する権限がありません。",
		Category: "booking",
		Action:   "自分の予約のみキャンセルできます。",
	}
}

// NewBookingAlreadyCancelledError はキャンセル済み予約の再キャンセルエラーを生成する。
func NewBookingAlreadyCancelledError() *APIError {
	return &APIError{
		Code:     ErrCodeBookingAlreadyCancelled,
		Message:  "この予約は既にキャンセルされています。",
		Category: "booking",
		Action:   "予約一覧を再読み込みしてください。",
	}
}

// NewClassNotFoundError はクラスが見つからない場合のエラーを生成する。
func NewClassNotFoundError(classID string) *APIError {
	return &APIError{
		Code:     ErrCodeClassNotFound,
		Message:  fmt.Sprintf("指定されたクラスが見つかりません: %s", classID),
		Category: "catalog",
		Action:   "クラス一覧を確認してください。",
	}
}

// NewClassFullError はクラスが満席の場合のエラーを生成する。
func NewClassFullError() *APIError {
	return &APIError{
		Code:     ErrCodeClassFull,
		Message:  "このクラスは満席です。",
		Category: "booking",
		Action:   "別のクラスまたは日時を選択してください。",
	}
}

// NewTrainerNotFoundError はトレーナーが見つからない場合のエラーを生成する。
func NewTrainerNotFoundError(trainerID string) *APIError {
	return &APIError{
		Code:     ErrCodeTrainerNotFound,
		Message:  fmt.Sprintf("指定されたトレーナーが見つかりません: %s", trainerID),
		Category: "catalog",
		Action:   "トレーナー一覧を確認してください。",
	}
}

// NewPlanNotFoundError は会員プランが見つからない場合のエラーを生成する。
func NewPlanNotFoundError(planID string) *APIError {
	return &APIError{
		Code:     ErrCodePlanNotFound,
		Message:  fmt.Sprintf("指定されたプランが見つかりません: %s", planID),
		Category: "membership",
		Action:   "プラン一覧を確認してください。",
	}
}

// NewInvalidDayError は無効な曜日指定のエラーを生成する。
func NewInvalidDayError(day string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDay,
		Message:  fmt.Sprintf("無効な曜日です: %s", day),
		Category: "validation",
		Action:   "Monday から Sunday のいずれかを指定してください。",
	}
}
