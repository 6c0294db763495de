package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/hitoshi/wpfront/internal/blocks"
	"github.com/hitoshi/wpfront/internal/comments"
	"github.com/hitoshi/wpfront/internal/config"
	"github.com/hitoshi/wpfront/internal/database"
	"github.com/hitoshi/wpfront/internal/handler"
	"github.com/hitoshi/wpfront/internal/links"
	"github.com/hitoshi/wpfront/internal/logger"
	"github.com/hitoshi/wpfront/internal/metrics"
	"github.com/hitoshi/wpfront/internal/middleware"
	"github.com/hitoshi/wpfront/internal/repository"
	"github.com/hitoshi/wpfront/internal/resolve"
	"github.com/hitoshi/wpfront/internal/security"
	"github.com/hitoshi/wpfront/internal/templates"
	"github.com/hitoshi/wpfront/internal/worker/cleanup"
	"github.com/hitoshi/wpfront/internal/wp"
)

// databasePingTimeout は起動時のDB疎通確認のタイムアウト。
const databasePingTimeout = 5 * time.Second

// ErrDatabaseRequired はDATABASE_URLが必要なコマンドで未設定の場合に返す。
var ErrDatabaseRequired = errors.New("DATABASE_URL is required for this command")

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数（と.env）からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. ログレベルを設定に合わせる
	logger.SetLevel(cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd.Standalone() {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	if cmd.RequiresDatabase() && !cfg.AuditEnabled() {
		return fmt.Errorf("%s: %w", cmd, ErrDatabaseRequired)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("wp_url", cfg.WPURL),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// Server はserveモードの依存関係一式を保持する。
type Server struct {
	Handler http.Handler

	templates   *templates.Store
	rateLimiter *middleware.RateLimiter
	db          *sql.DB
}

// NewServer は設定から全依存関係をワイヤリングし、Serverを生成する。
// regにはCMS・ページ解決・HTTPステータスのメトリクスを登録する。
// 監査ログが有効な場合のみDBに接続する。
func NewServer(ctx context.Context, cfg *config.Config, reg *prometheus.Registry) (*Server, error) {
	log := slog.Default()

	// 1. 外向き通信の制限
	guard := security.NewOutboundGuard(cfg.WPAllowPrivateNetwork)
	if err := guard.CheckBaseURL(cfg.WPURL); err != nil {
		return nil, fmt.Errorf("invalid WP_URL: %w", err)
	}

	// 2. メトリクス
	collector := metrics.NewCollector(reg)

	// 3. CMSクライアント
	client, err := wp.NewClient(wp.ClientConfig{
		BaseURL:    cfg.WPURL,
		Credential: cfg.WPCredential,
	}, guard.Client(cfg.CMSTimeout), log, collector)
	if err != nil {
		return nil, fmt.Errorf("failed to create CMS client: %w", err)
	}

	// 4. 出力の無害化とリンク書き換え
	sanitizer := security.NewContentSanitizer()
	rewriter := links.NewRewriter(cfg.WPURL, cfg.SiteURL)

	blockRenderer, err := blocks.NewRenderer(func(s string) string {
		return rewriter.RewriteHTML(sanitizer.Sanitize(s))
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load block templates: %w", err)
	}

	// 5. ページテンプレート
	helpers := templates.Helpers{
		Sanitizer: sanitizer,
		Links:     rewriter,
		Blocks:    blockRenderer,
		Logger:    log,
	}
	var fsys fs.FS = templates.EmbeddedFS()
	if cfg.TemplatesDir != "" {
		fsys = os.DirFS(cfg.TemplatesDir)
	}
	store, err := templates.NewStore(fsys, templates.Options{
		Funcs:    helpers.FuncMap(),
		Logger:   log,
		Warnings: cfg.TemplateWarnings,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	// 6. 監査ログ（任意）
	var (
		db        *sql.DB
		audit     repository.CommentAuditRepository
		readiness handler.HealthChecker
	)
	if cfg.AuditEnabled() {
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.Ping(ctx, db, databasePingTimeout); err != nil {
			db.Close()
			return nil, err
		}
		slog.Info("database connection established")
		audit = repository.NewPostgresCommentAuditRepo(db)
		readiness = db
	}

	// 7. ドメインサービス
	pageResolver := resolve.NewPageResolver(client, cfg.PreviewSecret, collector, log)
	commentService := comments.NewService(client, audit, sanitizer, collector, log)

	// 8. ルーター
	rateLimiter := middleware.NewRateLimiter(rateLimiterConfig(cfg))

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            log,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		CSRF: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Draft: middleware.DraftConfig{
			Secret:       cfg.PreviewSecret,
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		TrustProxy: cfg.TrustProxy,

		HealthChecker:  readiness,
		StatusRecorder: collector,
		MetricsHandler: metrics.Handler(reg),

		CMS:       client,
		Pages:     pageResolver,
		Templates: store,
		Comments:  commentService,
		Links:     rewriter,
	})

	return &Server{
		Handler:     router,
		templates:   store,
		rateLimiter: rateLimiter,
		db:          db,
	}, nil
}

// WatchTemplates はテンプレートディレクトリを監視し、変更時に再読み込みする。
// 組み込みテンプレートを使う場合は何もしない。ctxが終了するまでブロックする。
func (s *Server) WatchTemplates(ctx context.Context, dir string) error {
	if dir == "" {
		return nil
	}
	return s.templates.Watch(ctx, dir, templates.DefaultDebounce)
}

// Close はServerが保持するリソースを解放する。
func (s *Server) Close() {
	s.rateLimiter.Stop()
	if s.db != nil {
		s.db.Close()
	}
}

// rateLimiterConfig は設定のreq/minをRateLimiterConfigのreq/secに変換する。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	rc := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitAPI > 0 {
		rc.APIRate = rate.Limit(float64(cfg.RateLimitAPI) / 60.0)
		rc.APIBurst = cfg.RateLimitAPI
	}
	if cfg.RateLimitComment > 0 {
		rc.CommentRate = rate.Limit(float64(cfg.RateLimitComment) / 60.0)
	}
	if cfg.RateLimitCommentBurst > 0 {
		rc.CommentBurst = cfg.RateLimitCommentBurst
	}
	return rc
}

// newRegistry はGo runtimeとプロセスのメトリクスを登録済みのレジストリを返す。
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// runServe はHTTPサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := NewServer(ctx, cfg, newRegistry())
	if err != nil {
		return err
	}
	defer srv.Close()

	if cfg.TemplatesWatch {
		go func() {
			if err := srv.WatchTemplates(ctx, cfg.TemplatesDir); err != nil {
				slog.Error("template watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      srv.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	listenErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-listenErr:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("HTTP server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 監査ログの保持期間を超えた行を日次で削除する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := database.Ping(ctx, db, databasePingTimeout); err != nil {
		return err
	}

	slog.Info("database connection established (worker)")

	job := cleanup.NewCleanupJob(db, repository.NewPostgresCommentAuditRepo(db), slog.Default())
	job.RetentionDays = cfg.AuditRetentionDays

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Int("retention_days", job.RetentionDays),
		slog.Duration("interval", cleanup.DefaultInterval),
	)

	// ctxが終了するまでブロックする
	job.Start(ctx, cleanup.DefaultInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
