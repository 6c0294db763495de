package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/wpfront/internal/comments"
	"github.com/hitoshi/wpfront/internal/middleware"
	"github.com/hitoshi/wpfront/internal/model"
)

// handleServiceError はサービス層のエラーを統一フォーマットのレスポンスに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	if errors.Is(err, comments.ErrSubmitFailed) {
		middleware.WriteErrorResponse(w, http.StatusInternalServerError, model.NewUpstreamFailedError())
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeMissingFields, model.ErrCodeInvalidID, model.ErrCodeInvalidType, model.ErrCodeInvalidBody:
		return http.StatusBadRequest
	case model.ErrCodeInvalidSecret:
		return http.StatusUnauthorized
	case model.ErrCodeCommentsDisabled:
		return http.StatusForbidden
	case model.ErrCodeNotFound:
		return http.StatusNotFound
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case model.ErrCodeUpstreamFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// userMessage はHTMLページに表示する短いエラーメッセージを返す。詳細は含めない。
func userMessage(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case model.ErrCodeMissingFields, model.ErrCodeInvalidID:
			return "名前とコメントを入力してください。"
		case model.ErrCodeCommentsDisabled:
			return "この投稿はコメントを受け付けていません。"
		}
	}
	return "コメントを投稿できませんでした。時間をおいて再度お試しください。"
}

func asAPIError(err error) *model.APIError {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}
