package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
)

// DraftCookieName はドラフト（プレビュー）モードを示すCookieの名前。
const DraftCookieName = "wp_draft"

const draftCookieMessage = "wpfront-draft-mode"

// DraftConfig はドラフトモードCookieの設定。
type DraftConfig struct {
	// Secret はプレビュー用シークレット。空の場合ドラフトモードは常に無効。
	Secret       string
	CookieSecure bool
	CookieDomain string
	// MaxAge はCookieの有効期間（秒）。0の場合はブラウザセッション中のみ。
	MaxAge int
}

// NewDraftMiddleware はドラフトモードCookieを検証し、結果をコンテキストに注入するミドルウェアを返す。
// Cookieの値はシークレットから導出した署名で、シークレットを変更すると既存のCookieは無効になる。
func NewDraftMiddleware(config DraftConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			draft := false
			if cookie, err := r.Cookie(DraftCookieName); err == nil {
				draft = validDraftValue(config.Secret, cookie.Value)
			}
			next.ServeHTTP(w, r.WithContext(ContextWithDraft(r.Context(), draft)))
		})
	}
}

// SetDraftCookie はドラフトモードを有効にするCookieを設定する。
func SetDraftCookie(w http.ResponseWriter, config DraftConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     DraftCookieName,
		Value:    draftValue(config.Secret),
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   config.MaxAge,
		HttpOnly: true,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearDraftCookie はドラフトモードCookieを削除する。
func ClearDraftCookie(w http.ResponseWriter, config DraftConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     DraftCookieName,
		Value:    "",
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func draftValue(secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(draftCookieMessage))
	return hex.EncodeToString(mac.Sum(nil))
}

func validDraftValue(secret, value string) bool {
	if secret == "" || value == "" {
		return false
	}
	return hmac.Equal([]byte(value), []byte(draftValue(secret)))
}
