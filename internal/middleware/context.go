// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"net"
	"net/http"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	draftContextKey = contextKey("draft")
	csrfContextKey  = contextKey("csrf_token")
)

// ClientIP はリクエスト元のIPアドレスを返す。
// リバースプロキシ配下ではchiのRealIPミドルウェアでRemoteAddrを書き換えておくこと。
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// DraftFromContext はリクエストがドラフト（プレビュー）モードかを返す。
func DraftFromContext(ctx context.Context) bool {
	v, _ := ctx.Value(draftContextKey).(bool)
	return v
}

// ContextWithDraft はコンテキストにドラフトモードを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithDraft(ctx context.Context, draft bool) context.Context {
	return context.WithValue(ctx, draftContextKey, draft)
}

// CSRFTokenFromContext はフォームに埋め込むCSRFトークンを返す。
// CSRFミドルウェアを通過したリクエストでのみ有効。
func CSRFTokenFromContext(ctx context.Context) string {
	v, _ := ctx.Value(csrfContextKey).(string)
	return v
}

// ContextWithCSRFToken はコンテキストにCSRFトークンを注入する。
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfContextKey, token)
}
