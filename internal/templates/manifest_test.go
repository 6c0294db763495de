package templates

import (
	"bytes"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/wpfront/internal/links"
	"github.com/hitoshi/wpfront/internal/model"
	"github.com/hitoshi/wpfront/internal/resolve"
	"github.com/hitoshi/wpfront/internal/seo"
)

func testFuncs() Helpers {
	return Helpers{Links: links.NewRewriter("https://cms.example.com", "https://www.example.com")}
}

func testOptions() Options {
	return Options{Funcs: testFuncs().FuncMap()}
}

func minimalFS() fstest.MapFS {
	return fstest.MapFS{
		ManifestFile: {Data: []byte(`
layout: layout.html
fallback: fallback.html
templates:
  page:
    default: page.html
    about: page.html
`)},
		"layout.html":   {Data: []byte(`<main>{{block "content" .}}{{end}}</main>`)},
		"fallback.html": {Data: []byte(`{{define "content"}}fallback{{end}}`)},
		"page.html":     {Data: []byte(`{{define "content"}}page:{{plain .Data.Title.Rendered}}{{end}}`)},
	}
}

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest(strings.NewReader(`
layout: layout.html
not_found: 404.html
partials: ["partials/*.html"]
templates:
  post:
    default: post.html
`))
	require.NoError(t, err)
	assert.Equal(t, "layout.html", m.Layout)
	assert.Equal(t, "404.html", m.NotFound)
	assert.Equal(t, []string{"partials/*.html"}, m.Partials)
	assert.Equal(t, "post.html", m.Templates["post"]["default"])
}

func TestParseManifest_Invalid(t *testing.T) {
	_, err := ParseManifest(strings.NewReader(`fallback: x.html`))
	assert.Error(t, err, "layoutは必須")

	_, err = ParseManifest(strings.NewReader("layout: l.html\nunknown: 1\n"))
	assert.Error(t, err, "未知のキーはエラー")
}

func TestLoad_RendersWithLayout(t *testing.T) {
	reg, err := Load(minimalFS(), testOptions())
	require.NoError(t, err)

	page := &resolve.PageData{Data: &model.Entity{Type: "page", Title: model.Rendered{Rendered: "About"}}}
	rd, ok := Select(page, reg)
	require.True(t, ok)

	var buf bytes.Buffer
	require.NoError(t, rd.Render(&buf, NewView(page, model.Settings{}, seo.Metadata{}, false)))
	assert.Equal(t, "<main>page:About</main>", buf.String())
}

func TestLoad_SharesRendererForSameFile(t *testing.T) {
	reg, err := Load(minimalFS(), testOptions())
	require.NoError(t, err)

	def, ok := reg.lookup("page", "default")
	require.True(t, ok)
	about, ok := reg.lookup("page", "about")
	require.True(t, ok)
	assert.Same(t, def, about)
}

func TestLoad_MissingFile(t *testing.T) {
	fsys := minimalFS()
	delete(fsys, "page.html")

	_, err := Load(fsys, testOptions())
	assert.Error(t, err)
}

func TestLoad_EmbeddedViews(t *testing.T) {
	reg, err := Load(EmbeddedFS(), testOptions())
	require.NoError(t, err)
	require.NotNil(t, reg.NotFound())

	for _, c := range []struct{ category, name string }{
		{"page", "default"},
		{"page", "contact"},
		{"post", "default"},
		{CategoryArchive, "default"},
		{CategoryTaxonomy, "default"},
	} {
		_, ok := reg.lookup(c.category, c.name)
		assert.True(t, ok, "%s/%s が登録されていません", c.category, c.name)
	}
}

func TestEmbeddedViews_RenderPost(t *testing.T) {
	reg, err := Load(EmbeddedFS(), testOptions())
	require.NoError(t, err)

	page := &resolve.PageData{
		URI:        "hello-world",
		PageNumber: 1,
		Data: &model.Entity{
			ID:      42,
			Type:    "post",
			Date:    "2024-03-05T10:00:00",
			Title:   model.Rendered{Rendered: "Hello &amp; world"},
			Content: model.Rendered{Rendered: `<p>see <a href="https://cms.example.com/about/">about</a></p>`},
		},
	}
	rd, ok := Select(page, reg)
	require.True(t, ok)

	view := NewView(page, model.Settings{Title: "Example"}, seo.Metadata{Title: "Hello"}, false)
	view.CSRFToken = "tok"
	view.Comments = &CommentsView{
		PostID: 42,
		Open:   true,
		Top:    []model.Comment{{ID: 1, AuthorName: "A", Content: model.Rendered{Rendered: "hi"}}},
		Replies: map[int][]model.Comment{
			1: {{ID: 2, Parent: 1, AuthorName: "B", Content: model.Rendered{Rendered: "re"}}},
		},
		Count: 2,
	}

	var buf bytes.Buffer
	require.NoError(t, rd.Render(&buf, view))
	out := buf.String()

	assert.Contains(t, out, "<title>Hello</title>")
	assert.Contains(t, out, "2024年3月5日")
	assert.Contains(t, out, `href="https://www.example.com/about/"`)
	assert.Contains(t, out, `id="comment-2"`)
	assert.Contains(t, out, `name="csrf_token" value="tok"`)
	assert.Contains(t, out, `name="post" value="42"`)
	assert.NotContains(t, out, "プレビューを表示しています")
}

func TestEmbeddedViews_SelectTaxonomy(t *testing.T) {
	reg, err := Load(EmbeddedFS(), testOptions())
	require.NoError(t, err)

	for _, tax := range []model.Taxonomy{
		{Key: "post_tag", Slug: "post_tag", Name: "Tags"},
		{Key: "category", Slug: "category", Name: "Categories"},
		{Key: "genre", Slug: "genre", Name: "Genres"},
	} {
		t.Run(tax.Slug, func(t *testing.T) {
			page := &resolve.PageData{
				URI:        "tag/news",
				PageNumber: 1,
				Taxonomy:   &tax,
				Listing: model.NewListing([]model.Entity{
					{ID: 1, Link: "https://cms.example.com/hello/", Title: model.Rendered{Rendered: "Hello"}},
				}, 1, 1, 1),
			}

			rd, ok := Select(page, reg)
			require.True(t, ok)
			assert.Equal(t, "taxonomy/default.html", rd.Name(), "分類ページがフォールバックで描画されている")

			var buf bytes.Buffer
			require.NoError(t, rd.Render(&buf, NewView(page, model.Settings{}, seo.Metadata{}, false)))
			assert.Contains(t, buf.String(), `href="/hello/"`)
			assert.Contains(t, buf.String(), tax.Name)
		})
	}
}

func TestEmbeddedViews_RenderArchivePagination(t *testing.T) {
	reg, err := Load(EmbeddedFS(), testOptions())
	require.NoError(t, err)

	page := &resolve.PageData{
		URI:        "projects",
		PageNumber: 2,
		Archive:    &model.PostType{Name: "Projects", Slug: "projects"},
		Listing: model.NewListing([]model.Entity{
			{ID: 1, Link: "https://cms.example.com/projects/a/", Title: model.Rendered{Rendered: "A"}},
		}, 21, 3, 2),
	}
	rd, ok := Select(page, reg)
	require.True(t, ok)

	var buf bytes.Buffer
	require.NoError(t, rd.Render(&buf, NewView(page, model.Settings{}, seo.Metadata{}, true)))
	out := buf.String()

	assert.Contains(t, out, `href="/projects/a/"`)
	assert.Contains(t, out, `href="/projects" rel="prev"`)
	assert.Contains(t, out, `href="/projects/page/3" rel="next"`)
	assert.Contains(t, out, "プレビューを表示しています")
}
