package middleware

import "net/http"

// defaultContentSecurityPolicy はCMSの画像（任意のhttpsオリジン）を許可し、スクリプトは自サイトのみとする。
const defaultContentSecurityPolicy = "default-src 'self'; img-src 'self' https: data:; " +
	"script-src 'self'; style-src 'self' 'unsafe-inline'; frame-ancestors 'none'; base-uri 'self'; form-action 'self'"

// NewSecurityHeadersMiddleware はセキュリティ関連のHTTPレスポンスヘッダーを付与するミドルウェアを返す。
// cspが空の場合は既定のContent-Security-Policyを使う。
func NewSecurityHeadersMiddleware(csp string) func(next http.Handler) http.Handler {
	if csp == "" {
		csp = defaultContentSecurityPolicy
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			w.Header().Set("Content-Security-Policy", csp)
			next.ServeHTTP(w, r)
		})
	}
}
