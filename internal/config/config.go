// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// CMS
	WPURL                 string
	WPCredential          string
	CMSTimeout            time.Duration
	WPAllowPrivateNetwork bool

	// Site
	SiteURL       string
	PreviewSecret string

	// Templates
	TemplatesDir     string
	TemplatesWatch   bool
	TemplateWarnings bool

	// Rate Limit（req/min）
	RateLimitAPI          int
	RateLimitComment      int
	RateLimitCommentBurst int

	// Audit
	DatabaseURL        string
	AuditRetentionDays int

	// Logging
	LogLevel string

	// Server
	ServerPort string
	TrustProxy bool

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load はカレントディレクトリの.envを読み込んだうえで、環境変数からConfigを読み込む。
// 既に設定されている環境変数は.envで上書きしない。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv は環境変数のみからConfigを読み込む。
func FromEnv() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.WPURL = strings.TrimRight(os.Getenv("WP_URL"), "/")
	if cfg.WPURL == "" {
		missing = append(missing, "WP_URL")
	}

	cfg.WPCredential = os.Getenv("WP_APPLICATION_PASSWORD")
	if cfg.WPCredential == "" {
		missing = append(missing, "WP_APPLICATION_PASSWORD")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if !strings.Contains(cfg.WPCredential, ":") {
		return nil, errors.New("WP_APPLICATION_PASSWORD must be in the form user:application-password")
	}

	// Optional fields with defaults
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.SiteURL = strings.TrimRight(getEnvString("SITE_URL", "http://localhost:"+cfg.ServerPort), "/")
	cfg.PreviewSecret = getEnvString("PREVIEW_SECRET", "")
	cfg.CMSTimeout = getEnvDuration("CMS_TIMEOUT", 10*time.Second)
	cfg.WPAllowPrivateNetwork = getEnvBool("WP_ALLOW_PRIVATE_NETWORK", false)
	cfg.TemplatesDir = getEnvString("TEMPLATES_DIR", "")
	cfg.TemplatesWatch = getEnvBool("TEMPLATES_WATCH", false)
	cfg.TemplateWarnings = getEnvBool("TEMPLATE_WARNINGS", true)
	cfg.RateLimitAPI = getEnvInt("RATE_LIMIT_API", 120)
	cfg.RateLimitComment = getEnvInt("COMMENT_RATE_PER_MIN", 5)
	cfg.RateLimitCommentBurst = getEnvInt("COMMENT_RATE_BURST", 5)
	cfg.DatabaseURL = getEnvString("DATABASE_URL", "")
	cfg.AuditRetentionDays = getEnvInt("AUDIT_RETENTION_DAYS", 30)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.TrustProxy = getEnvBool("TRUST_PROXY", false)
	cfg.CookieSecure = strings.HasPrefix(cfg.SiteURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// AuditEnabled はコメント投稿の監査ログを記録するかを返す。
func (c *Config) AuditEnabled() bool {
	return c.DatabaseURL != ""
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
