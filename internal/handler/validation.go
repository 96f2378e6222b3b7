package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/fitzone/internal/model"
)

// maxRequestBodyBytes はリクエストボディの上限。
const maxRequestBodyBytes = 1 << 20

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// requestValidator は構造体タグ validate によるバリデータを返す。
// エラーのフィールド名はJSONのキー名になる。
func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// decodeAndValidate はJSONボディをdstに読み込み、validateタグを検証する。
// 失敗した場合はエラーレスポンスを書き込んでfalseを返す。
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return false
	}

	if err := requestValidator().Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError(validationMessage(verrs[0])))
			return false
		}
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return false
	}
	return true
}

// validationMessage は最初の検証エラーを利用者向けのメッセージにする。
func validationMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s を入力してください。", field)
	case "email":
		return "有効なメールアドレスを入力してください。"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s は%s文字以上で入力してください。", field, fe.Param())
		}
		return fmt.Sprintf("%s は%s以上で指定してください。", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s は%s文字以内で入力してください。", field, fe.Param())
		}
		return fmt.Sprintf("%s は%s以下で指定してください。", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s は %s のいずれかを指定してください。", field, fe.Param())
	case "datetime":
		return fmt.Sprintf("%s の形式が正しくありません。", field)
	default:
		return fmt.Sprintf("%s の値が正しくありません。", field)
	}
}
