// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は予約の連絡先やメモなど利用者が自由入力するテキストから
// HTMLを除去し、他の利用者やトレーナーの画面でのXSSを防ぐ。
package security

import (
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// DefaultMaxNoteLength はメモ欄の最大文字数（rune数）。
const DefaultMaxNoteLength = 500

// TextSanitizer は自由入力テキストのサニタイズ機能のインターフェース。
type TextSanitizer interface {
	// Sanitize はHTMLタグを除去し、前後の空白を取り除いたテキストを返す。
	// 結果はHTMLエスケープ済みで、同一入力に対して常に同一出力を返す。
	Sanitize(raw string) string
	// SanitizeNote はSanitizeに加えて最大文字数で切り詰める。
	SanitizeNote(raw string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのポリシーは並行利用に対して安全。
type textSanitizer struct {
	policy    *bluemonday.Policy
	maxLength int
}

// NewTextSanitizer はTextSanitizerを生成する。
// maxLengthが0以下の場合はDefaultMaxNoteLengthを使用する。
func NewTextSanitizer(maxLength int) *textSanitizer {
	if maxLength <= 0 {
		maxLength = DefaultMaxNoteLength
	}
	return &textSanitizer{
		policy:    bluemonday.StrictPolicy(),
		maxLength: maxLength,
	}
}

// Sanitize は全てのHTMLタグを除去する。script, styleは中身ごと除去される。
func (s *textSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(s.policy.Sanitize(raw))
}

// SanitizeNote はタグ除去後に最大文字数で切り詰める。
// エスケープ文字の途中で切らないよう、除去前の入力を先に切り詰める。
func (s *textSanitizer) SanitizeNote(raw string) string {
	if utf8.RuneCountInString(raw) > s.maxLength {
		raw = string([]rune(raw)[:s.maxLength])
	}
	return s.Sanitize(raw)
}
