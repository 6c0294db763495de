// Package handler はHTTPルーティングとリクエストハンドラーを提供する。
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hitoshi/wpfront/internal/comments"
	"github.com/hitoshi/wpfront/internal/links"
	"github.com/hitoshi/wpfront/internal/middleware"
	"github.com/hitoshi/wpfront/internal/resolve"
	"github.com/hitoshi/wpfront/internal/templates"
	"github.com/hitoshi/wpfront/internal/wp"
)

// CMS はスラッグ参照・静的パス列挙・サイト設定に使うCMSクライアント。*wp.Clientが満たす。
type CMS interface {
	SlugFinder
	SlugLister
	SettingsSource
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRF              middleware.CSRFConfig
	Draft             middleware.DraftConfig
	// TrustProxy がtrueの場合はX-Forwarded-For等からクライアントIPを決める。
	TrustProxy bool

	// 監視
	HealthChecker  HealthChecker
	StatusRecorder middleware.StatusRecorder
	MetricsHandler http.Handler

	// ドメイン
	CMS       CMS
	Pages     PageResolverInterface
	Templates RegistrySource
	Comments  CommentServiceInterface
	Links     *links.Rewriter
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → (RealIP) → Logging → Recovery → SecurityHeaders → Draft
//	/api/*: CORS → RateLimit(API) → [POST /api/comments: RateLimit(Comment) → CSRF]
//	ページ: CSRF → [POST /comments: RateLimit(Comment)]
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	if deps.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.NewLoggingMiddleware(logger, deps.StatusRecorder))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware(""))
	r.Use(middleware.NewDraftMiddleware(deps.Draft))

	commentHandler := NewCommentHandler(deps.Comments)
	slugHandler := NewSlugHandler(deps.CMS, deps.CMS)
	draftHandler := NewDraftHandler(deps.CMS, deps.Draft)
	pageHandler := NewPageHandler(deps.Pages, deps.CMS, deps.Templates, deps.Comments, PageHandlerConfig{
		PreviewSecret: deps.Draft.Secret,
		Links:         deps.Links,
		Logger:        logger,
	})

	// --- 監視 ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- API ---
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
		r.Use(deps.RateLimiter.APIMiddleware())

		r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRF))
		r.Get("/static-paths", slugHandler.StaticPaths)
		r.Get("/get-slug/{id}", slugHandler.GetSlug)

		r.Get("/draft", draftHandler.Enable)
		r.Get("/draft/disable", draftHandler.Disable)

		r.Get("/comments/{postId}", commentHandler.List)
		r.With(
			deps.RateLimiter.CommentMiddleware(),
			middleware.NewCSRFMiddleware(deps.CSRF),
		).Post("/comments", commentHandler.Submit)
	})

	// --- ページ ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRF))

		r.With(deps.RateLimiter.CommentMiddleware()).Post("/comments", pageHandler.SubmitForm)
		r.Get("/*", pageHandler.Page)
	})

	return r
}

// --- compile-time interface checks ---

var _ CMS = (*wp.Client)(nil)
var _ PageResolverInterface = (*resolve.PageResolver)(nil)
var _ CommentServiceInterface = (*comments.Service)(nil)
var _ RegistrySource = (*templates.Store)(nil)
