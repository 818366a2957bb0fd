// Package apperr は全コンポーネント共通のエラーモデル。
// 呼び出し側が「重複」「終了済み」「入力不正」を区別できるよう、
// 期待されるエラーはすべて型付きで返す（panic/握りつぶし禁止）。
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeInvalidArgument     Code = "INVALID_ARGUMENT"
	CodeNotFound            Code = "NOT_FOUND"
	CodeInactiveSession     Code = "INACTIVE_SESSION"
	CodeDuplicateAttendance Code = "DUPLICATE_ATTENDANCE"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeConflict            Code = "CONFLICT"
	CodeInternal            Code = "INTERNAL"
)

type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func Invalid(msg string) *Error      { return &Error{Code: CodeInvalidArgument, Message: msg} }
func NotFound(msg string) *Error     { return &Error{Code: CodeNotFound, Message: msg} }
func Inactive(msg string) *Error     { return &Error{Code: CodeInactiveSession, Message: msg} }
func Duplicate(msg string) *Error    { return &Error{Code: CodeDuplicateAttendance, Message: msg} }
func Unauthorized(msg string) *Error { return &Error{Code: CodeUnauthorized, Message: msg} }
func Conflict(msg string) *Error     { return &Error{Code: CodeConflict, Message: msg} }
func Internal(msg string) *Error     { return &Error{Code: CodeInternal, Message: msg} }

func ToHTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		switch e.Code {
		case CodeInvalidArgument:
			return http.StatusBadRequest
		case CodeNotFound:
			return http.StatusNotFound
		case CodeInactiveSession, CodeDuplicateAttendance, CodeConflict:
			return http.StatusConflict
		case CodeUnauthorized:
			return http.StatusUnauthorized
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

// レスポンスボディ {"error":{"code","message"}}
type ErrorDTO struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func Body(code Code, msg string) ErrorDTO {
	var d ErrorDTO
	d.Error.Code = code
	d.Error.Message = msg
	return d
}

// FromErr: ハンドラ境界でのマッピング。
// 型付きエラー以外（ストレージ障害など）は詳細をクライアントへ出さない。
func FromErr(err error) ErrorDTO {
	var e *Error
	if errors.As(err, &e) {
		return Body(e.Code, e.Message)
	}
	return Body(CodeInternal, "internal error")
}
