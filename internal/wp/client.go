// Package wp はヘッドレスCMS（WordPress REST API）との通信を提供する。
// すべてのリクエストに固定のアプリケーションパスワードによるBasic認証を付与する。
package wp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// apiPrefix はCMSのオリジンからREST APIまでのパス。
	apiPrefix = "/wp-json"
	// maxResponseSize はレスポンスボディの読み取り上限（10MB）。
	maxResponseSize = 10 * 1024 * 1024
	// defaultUserAgent はCMSへ送るUser-Agent。
	defaultUserAgent = "wpfront/1.0"
)

// ErrMissingBaseURL はCMSのURLが設定されていない場合の設定エラー。
var ErrMissingBaseURL = errors.New("CMSのURLが設定されていません")

// UpstreamError はCMSとの通信失敗または2xx以外の応答を表す。
// Status は通信自体が失敗した場合0。
type UpstreamError struct {
	Status int
	Path   string
	Err    error
}

// Error はerrorインターフェースを実装する。
func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("CMSへのリクエストに失敗しました: %s: %v", e.Path, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("CMSがステータス %d を返しました: %s: %v", e.Status, e.Path, e.Err)
	}
	return fmt.Sprintf("CMSがステータス %d を返しました: %s", e.Status, e.Path)
}

// Unwrap は原因となったエラーを返す。
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsNotFound はCMSが404を返したかどうかを返す。
func IsNotFound(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Status == http.StatusNotFound
}

// MetricsRecorder はCMSリクエストの計測を記録するインターフェース。
// metrics.Collectorが実装する。
type MetricsRecorder interface {
	RecordCMSRequest(endpoint string, statusCode int, duration time.Duration)
}

// ClientConfig はCMSクライアントの設定。
type ClientConfig struct {
	// BaseURL はCMSのオリジン（例: https://cms.example.com）。
	BaseURL string
	// Credential は "user:application-password" 形式の認証情報。
	Credential string
	// UserAgent は省略時 defaultUserAgent。
	UserAgent string
}

// Client はCMSのREST APIクライアント。
// 再試行やキャッシュは行わない。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    MetricsRecorder
	apiBase    string
	authHeader string
	userAgent  string
}

// NewClient はClientの新しいインスタンスを生成する。
// BaseURLが空の場合は ErrMissingBaseURL を返す。
func NewClient(cfg ClientConfig, httpClient *http.Client, logger *slog.Logger, metrics MetricsRecorder) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, ErrMissingBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("CMSのURLが不正です: %w", err)
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		httpClient: httpClient,
		logger:     logger,
		metrics:    metrics,
		apiBase:    base + apiPrefix,
		userAgent:  cfg.UserAgent,
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}
	if cfg.Credential != "" {
		c.authHeader = "Basic " + base64.StdEncoding.EncodeToString([]byte(cfg.Credential))
	}
	return c, nil
}

// GetJSON はGETリクエストを送信し、レスポンスボディをoutにデコードする。
// ページネーション用ヘッダーを参照できるようレスポンスヘッダーを返す。
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) (http.Header, error) {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// PostJSON はbodyをJSONとしてPOSTし、レスポンスボディをoutにデコードする。
func (c *Client) PostJSON(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, path, nil, payload, out)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload []byte, out any) (http.Header, error) {
	reqURL := c.apiBase + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authHeader != "" {
		req.Header.Set("Authorization", c.authHeader)
	}

	endpoint := endpointLabel(path)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record(endpoint, 0, start)
		c.logger.Error("CMSへのリクエストに失敗しました",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, &UpstreamError{Path: path, Err: err}
	}
	defer resp.Body.Close()
	c.record(endpoint, resp.StatusCode, start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// 本文はログ用に先頭だけ読む
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		level := slog.LevelWarn
		if resp.StatusCode >= 500 {
			level = slog.LevelError
		}
		c.logger.Log(ctx, level, "CMSがエラーステータスを返しました",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
			slog.String("body", string(snippet)),
		)
		return resp.Header, &UpstreamError{Status: resp.StatusCode, Path: path}
	}

	if out == nil {
		return resp.Header, nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return resp.Header, &UpstreamError{Status: resp.StatusCode, Path: path, Err: err}
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Error("CMSのレスポンスのパースに失敗しました",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return resp.Header, &UpstreamError{Status: resp.StatusCode, Path: path, Err: err}
	}
	return resp.Header, nil
}

func (c *Client) record(endpoint string, status int, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordCMSRequest(endpoint, status, time.Since(start))
}

// endpointLabel はメトリクスのラベル用にパスからIDを取り除く。
// 例: /wp/v2/pages/12 → pages/{id}
func endpointLabel(path string) string {
	p := strings.TrimPrefix(path, "/wp/v2/")
	p = strings.Trim(p, "/")
	parts := strings.Split(p, "/")
	for i, part := range parts {
		if _, err := strconv.Atoi(part); err == nil {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}
