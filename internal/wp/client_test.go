package wp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/wpfront/internal/model"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// recordedRequest はfakeMetricsが記録した1件分。
type recordedRequest struct {
	endpoint string
	status   int
}

type fakeMetrics struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (m *fakeMetrics) RecordCMSRequest(endpoint string, statusCode int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, recordedRequest{endpoint: endpoint, status: statusCode})
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *fakeMetrics, *bytes.Buffer) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	var buf bytes.Buffer
	m := &fakeMetrics{}
	c, err := NewClient(ClientConfig{
		BaseURL:    server.URL + "/",
		Credential: "admin:app pass",
	}, server.Client(), newTestLogger(&buf), m)
	if err != nil {
		t.Fatalf("NewClient がエラーを返した: %v", err)
	}
	return c, m, &buf
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func TestNewClient_MissingBaseURL(t *testing.T) {
	_, err := NewClient(ClientConfig{BaseURL: "  "}, nil, nil, nil)
	if !errors.Is(err, ErrMissingBaseURL) {
		t.Errorf("err = %v, want ErrMissingBaseURL", err)
	}
}

func TestClient_AttachesBasicAuthHeader(t *testing.T) {
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("admin:app pass"))

	c, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != want {
			t.Errorf("Authorization = %q, want %q", got, want)
		}
		if r.URL.Path != "/wp-json/wp/v2/settings" {
			t.Errorf("path = %s, want /wp-json/wp/v2/settings", r.URL.Path)
		}
		writeJSON(w, map[string]any{"title": "Site", "page_on_front": 5, "page_for_posts": 9})
	}))

	s := c.Settings(context.Background())
	if s.Title != "Site" || s.PageOnFront != 5 || s.PageForPosts != 9 {
		t.Errorf("Settings = %+v", s)
	}
}

func TestClient_GetJSON_NonOKReturnsUpstreamError(t *testing.T) {
	c, m, buf := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"code":"boom"}`)
	}))

	var out map[string]any
	_, err := c.GetJSON(context.Background(), "/wp/v2/pages/12", nil, &out)

	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want *UpstreamError", err)
	}
	if ue.Status != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500", ue.Status)
	}
	if ue.Path != "/wp/v2/pages/12" {
		t.Errorf("Path = %s, want /wp/v2/pages/12", ue.Path)
	}
	if !strings.Contains(buf.String(), "ERROR") {
		t.Error("5xxはERRORレベルでログ出力されるべき")
	}
	if len(m.requests) != 1 || m.requests[0].endpoint != "pages/{id}" || m.requests[0].status != 500 {
		t.Errorf("metrics = %+v, want [{pages/{id} 500}]", m.requests)
	}
}

func TestClient_GetJSON_NotFound(t *testing.T) {
	c, _, buf := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.GetJSON(context.Background(), "/wp/v2/pages/1", nil, nil)
	if !IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false, want true", err)
	}
	if !strings.Contains(buf.String(), "WARN") {
		t.Error("4xxはWARNレベルでログ出力されるべき")
	}
}

func TestClient_GetJSON_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	var buf bytes.Buffer
	m := &fakeMetrics{}
	c, err := NewClient(ClientConfig{BaseURL: url}, http.DefaultClient, newTestLogger(&buf), m)
	if err != nil {
		t.Fatalf("NewClient がエラーを返した: %v", err)
	}

	_, err = c.GetJSON(context.Background(), "/wp/v2/types", nil, nil)
	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.Status != 0 {
		t.Fatalf("err = %v, want *UpstreamError with Status 0", err)
	}
	if len(m.requests) != 1 || m.requests[0].status != 0 {
		t.Errorf("metrics = %+v, want status 0", m.requests)
	}
}

func TestClient_GetJSON_InvalidJSON(t *testing.T) {
	c, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>not json</html>")
	}))

	var out []model.Entity
	_, err := c.GetJSON(context.Background(), "/wp/v2/posts", nil, &out)
	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.Status != http.StatusOK || ue.Err == nil {
		t.Errorf("err = %v, want *UpstreamError wrapping decode error", err)
	}
}

func TestEndpointLabel(t *testing.T) {
	tests := map[string]string{
		"/wp/v2/types":      "types",
		"/wp/v2/pages/12":   "pages/{id}",
		"/wp/v2/comments":   "comments",
		"/wp/v2/projects/3": "projects/{id}",
	}
	for path, want := range tests {
		if got := endpointLabel(path); got != want {
			t.Errorf("endpointLabel(%q) = %q, want %q", path, got, want)
		}
	}
}
