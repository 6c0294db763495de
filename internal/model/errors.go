// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, content, preview, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeMissingFields    = "MISSING_FIELDS"
	ErrCodeInvalidID        = "INVALID_ID"
	ErrCodeInvalidType      = "INVALID_TYPE"
	ErrCodeInvalidBody      = "INVALID_BODY"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeUpstreamFailed   = "UPSTREAM_FAILED"
	ErrCodeInvalidSecret    = "INVALID_PREVIEW_SECRET"
	ErrCodeRateLimited      = "RATE_LIMIT_EXCEEDED"
	ErrCodeCommentsDisabled = "COMMENTS_DISABLED"
)

// NewMissingFieldsError はコメントの必須項目不足エラーを生成する。
func NewMissingFieldsError(fields ...string) *APIError {
	msg := "必須項目が入力されていません。"
	if len(fields) > 0 {
		msg = fmt.Sprintf("必須項目が入力されていません: %v", fields)
	}
	return &APIError{
		Code:     ErrCodeMissingFields,
		Message:  msg,
		Category: "validation",
		Action:   "名前とコメント本文を入力してください。",
	}
}

// NewInvalidIDError は数値でないIDが指定された場合のエラーを生成する。
func NewInvalidIDError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidID,
		Message:  fmt.Sprintf("無効なIDです: %s", id),
		Category: "validation",
		Action:   "数値のIDを指定してください。",
	}
}

// NewInvalidTypeError はコレクション名として使えないtypeが指定された場合のエラーを生成する。
func NewInvalidTypeError(restBase string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidType,
		Message:  fmt.Sprintf("無効なtypeです: %s", restBase),
		Category: "validation",
		Action:   "英小文字・数字・ハイフン・アンダースコアのみのrest_baseを指定してください。",
	}
}

// NewInvalidBodyError はリクエストボディの形式が不正な場合のエラーを生成する。
func NewInvalidBodyError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidBody,
		Message:  "リクエストボディの形式が不正です。",
		Category: "validation",
		Action:   "JSON形式で送信してください。",
	}
}

// NewNotFoundError はコンテンツ未検出エラーを生成する。
func NewNotFoundError(what string) *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("指定されたコンテンツが見つかりません: %s", what),
		Category: "content",
		Action:   "URLまたはIDを確認してください。",
	}
}

// NewUpstreamFailedError はCMSとの通信失敗エラーを生成する。
// 詳細はログにのみ記録し、メッセージは汎用的なものにする。
func NewUpstreamFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamFailed,
		Message:  "コンテンツサーバーとの通信に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidSecretError はプレビュー用シークレットが一致しない場合のエラーを生成する。
func NewInvalidSecretError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSecret,
		Message:  "プレビュー用のシークレットが無効です。",
		Category: "preview",
		Action:   "CMSのプレビューリンクから再度アクセスしてください。",
	}
}

// NewRateLimitedError はコメント投稿のレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエスト数が上限を超えました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewCommentsDisabledError はコメントを受け付けていない投稿への投稿エラーを生成する。
func NewCommentsDisabledError(postID int) *APIError {
	return &APIError{
		Code:     ErrCodeCommentsDisabled,
		Message:  fmt.Sprintf("この投稿はコメントを受け付けていません: %d", postID),
		Category: "validation",
		Action:   "公開中でコメントが有効な投稿にのみコメントできます。",
	}
}
