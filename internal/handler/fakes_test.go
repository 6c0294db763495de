package handler

import (
	"context"
	"testing"
	"time"

	"github.com/hitoshi/wpfront/internal/comments"
	"github.com/hitoshi/wpfront/internal/links"
	"github.com/hitoshi/wpfront/internal/middleware"
	"github.com/hitoshi/wpfront/internal/model"
	"github.com/hitoshi/wpfront/internal/resolve"
	"github.com/hitoshi/wpfront/internal/templates"
)

const testSecret = "preview-secret"

// --- モック定義 ---

// mockCMS はCMSのモック実装。
type mockCMS struct {
	slugs    map[string]map[int]string
	settings model.Settings
	// lookups はSlugByIDに渡されたrest_base。
	lookups []string
}

func (m *mockCMS) SlugByID(_ context.Context, restBase string, id int) string {
	m.lookups = append(m.lookups, restBase)
	return m.slugs[restBase][id]
}

func (m *mockCMS) Slugs(_ context.Context, restBase string) []string {
	var out []string
	for id := 1; id <= len(m.slugs[restBase]); id++ {
		if s, ok := m.slugs[restBase][id]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (m *mockCMS) Settings(context.Context) model.Settings {
	return m.settings
}

// mockPages はPageResolverInterfaceのモック実装。uriごとの結果を返す。
type mockPages struct {
	pages    map[string]*resolve.PageData
	previews map[string]*model.Entity
	lastURI  string
}

func (m *mockPages) Resolve(_ context.Context, uri string, preview resolve.Preview) *resolve.PageData {
	m.lastURI = uri
	page, ok := m.pages[uri]
	if !ok {
		return &resolve.PageData{URI: uri, PageNumber: 1}
	}
	cp := *page
	if m.PreviewValid(preview) {
		cp.PreviewData = m.previews[uri]
	}
	return &cp
}

func (m *mockPages) PreviewValid(p resolve.Preview) bool {
	return p.Valid(testSecret)
}

// mockComments はCommentServiceInterfaceのモック実装。
type mockComments struct {
	listFn   func(ctx context.Context, postID int) ([]model.Comment, error)
	submitFn func(ctx context.Context, in comments.SubmitInput) (*model.Comment, error)
	lastIn   comments.SubmitInput
}

func (m *mockComments) List(ctx context.Context, postID int) ([]model.Comment, error) {
	if m.listFn != nil {
		return m.listFn(ctx, postID)
	}
	return []model.Comment{}, nil
}

func (m *mockComments) Thread(ctx context.Context, postID int) (*comments.Thread, error) {
	list, err := m.List(ctx, postID)
	if err != nil {
		return nil, err
	}
	t := comments.NewThread(postID)
	t.Reload(list)
	return t, nil
}

func (m *mockComments) Submit(ctx context.Context, in comments.SubmitInput) (*model.Comment, error) {
	m.lastIn = in
	if m.submitFn != nil {
		return m.submitFn(ctx, in)
	}
	return &model.Comment{ID: 100, Post: in.PostID, AuthorName: in.AuthorName,
		Content: model.Rendered{Rendered: in.Content}, Status: model.CommentStatusUnapproved}, nil
}

// --- テストヘルパー ---

func testPost() *model.Entity {
	return &model.Entity{
		ID:            42,
		Slug:          "hello-world",
		Type:          "post",
		Status:        model.StatusPublish,
		CommentStatus: "open",
		Title:         model.Rendered{Rendered: "Hello world"},
		Content:       model.Rendered{Rendered: "<p>published body</p>"},
	}
}

// testDraft はtestPostの下書きリビジョン。
func testDraft() *model.Entity {
	e := testPost()
	e.Status = model.StatusDraft
	e.Title = model.Rendered{Rendered: "Draft title"}
	e.Content = model.Rendered{Rendered: "<p>draft body</p>"}
	return e
}

func testStore(t *testing.T) *templates.Store {
	t.Helper()
	helpers := templates.Helpers{Links: links.NewRewriter("https://cms.example.com", "https://www.example.com")}
	store, err := templates.NewStore(templates.EmbeddedFS(), templates.Options{Funcs: helpers.FuncMap()})
	if err != nil {
		t.Fatalf("failed to load templates: %v", err)
	}
	return store
}

type testEnv struct {
	cms      *mockCMS
	pages    *mockPages
	comments *mockComments
	deps     *RouterDeps
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cms := &mockCMS{
		slugs: map[string]map[int]string{
			"posts": {1: "hello-world", 2: "second"},
			"pages": {1: "about"},
		},
		settings: model.Settings{Title: "Example"},
	}
	pages := &mockPages{
		pages: map[string]*resolve.PageData{
			"hello-world": {URI: "hello-world", PageNumber: 1, Data: testPost()},
		},
		previews: map[string]*model.Entity{
			"hello-world": testDraft(),
		},
	}
	commentSvc := &mockComments{}

	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		APIRate:         100,
		APIBurst:        100,
		CommentRate:     1.0 / 60.0,
		CommentBurst:    2,
		CleanupInterval: time.Minute,
	})
	t.Cleanup(rl.Stop)

	return &testEnv{
		cms:      cms,
		pages:    pages,
		comments: commentSvc,
		deps: &RouterDeps{
			CORSAllowedOrigin: "http://localhost:3000",
			RateLimiter:       rl,
			Draft:             middleware.DraftConfig{Secret: testSecret},
			CMS:               cms,
			Pages:             pages,
			Templates:         testStore(t),
			Comments:          commentSvc,
			Links:             links.NewRewriter("https://cms.example.com", "https://www.example.com"),
		},
	}
}
