// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// CMSクライアント、リゾルバー、ハンドラー層から利用する。
type MetricsCollector interface {
	RecordCMSRequest(endpoint string, statusCode int, duration time.Duration)
	RecordPageResolution(kind string)
	RecordCommentSubmission(result string)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	cmsRequests        *prometheus.CounterVec
	cmsLatency         *prometheus.HistogramVec
	pageResolutions    *prometheus.CounterVec
	commentSubmissions *prometheus.CounterVec
	httpStatus         *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		cmsRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wpfront_cms_requests_total",
			Help: "CMS REST APIへのリクエスト数（エンドポイント・ステータス別）",
		}, []string{"endpoint", "status"}),
		cmsLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wpfront_cms_request_duration_seconds",
			Help:    "CMS REST APIのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		pageResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wpfront_page_resolutions_total",
			Help: "ページ解決結果の種別ごとの件数",
		}, []string{"kind"}),
		commentSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wpfront_comment_submissions_total",
			Help: "コメント投稿の結果別件数",
		}, []string{"result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wpfront_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.cmsRequests,
		c.cmsLatency,
		c.pageResolutions,
		c.commentSubmissions,
		c.httpStatus,
	)

	return c
}

// RecordCMSRequest はCMSへのリクエスト1件を記録する。
// 通信自体が失敗した場合のstatusCodeは0で、ラベルは "error" になる。
func (c *Collector) RecordCMSRequest(endpoint string, statusCode int, duration time.Duration) {
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	c.cmsRequests.WithLabelValues(endpoint, status).Inc()
	c.cmsLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordPageResolution はページ解決の結果種別を記録する。
func (c *Collector) RecordPageResolution(kind string) {
	c.pageResolutions.WithLabelValues(kind).Inc()
}

// RecordCommentSubmission はコメント投稿の結果を記録する。
func (c *Collector) RecordCommentSubmission(result string) {
	c.commentSubmissions.WithLabelValues(result).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordCMSRequest(string, int, time.Duration) {}
func (Nop) RecordPageResolution(string)                 {}
func (Nop) RecordCommentSubmission(string)              {}
func (Nop) RecordHTTPStatus(int)                        {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
