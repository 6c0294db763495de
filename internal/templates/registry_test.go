package templates

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/wpfront/internal/model"
	"github.com/hitoshi/wpfront/internal/resolve"
)

type stubRenderer struct {
	name string
}

func (s *stubRenderer) Name() string { return s.name }

func (s *stubRenderer) Render(w io.Writer, _ *View) error {
	_, err := io.WriteString(w, s.name)
	return err
}

func newTestRegistry() *Registry {
	reg := NewRegistry(nil, true)
	reg.Register("page", "default", &stubRenderer{name: "page/default"})
	reg.Register("page", "contact", &stubRenderer{name: "page/contact"})
	reg.Register("post", "default", &stubRenderer{name: "post/default"})
	reg.Register(CategoryArchive, "projects", &stubRenderer{name: "archive/projects"})
	reg.Register(CategoryTaxonomy, "default", &stubRenderer{name: "taxonomy/default"})
	return reg
}

func TestNormalizeTemplateName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  ", ""},
		{"contact", "contact"},
		{"template-contact.php", "contact"},
		{"page-templates/template-contact.php", "contact"},
		{"landing.php", "landing"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeTemplateName(tt.in), tt.in)
	}
}

func TestIdentify(t *testing.T) {
	archive := &model.PostType{Slug: "projects"}
	tax := &model.Taxonomy{Slug: "category"}

	cat, id := Identify(&resolve.PageData{Archive: archive})
	assert.Equal(t, CategoryArchive, cat)
	assert.Equal(t, "projects", id)

	cat, id = Identify(&resolve.PageData{Taxonomy: tax})
	assert.Equal(t, CategoryTaxonomy, cat)
	assert.Equal(t, "category", id)

	cat, id = Identify(&resolve.PageData{Data: &model.Entity{Type: "page", Template: "template-contact.php"}})
	assert.Equal(t, "page", cat)
	assert.Equal(t, "contact", id)

	cat, id = Identify(&resolve.PageData{})
	assert.Empty(t, cat)
	assert.Empty(t, id)
}

func TestSelect_ExactMatch(t *testing.T) {
	reg := newTestRegistry()
	page := &resolve.PageData{Data: &model.Entity{Type: "page", Template: "template-contact.php"}}

	rd, ok := Select(page, reg)
	require.True(t, ok)
	assert.Equal(t, "page/contact", rd.Name())
}

func TestSelect_CategoryDefault(t *testing.T) {
	reg := newTestRegistry()

	tests := []struct {
		name string
		page *resolve.PageData
		want string
	}{
		{"テンプレート未指定", &resolve.PageData{Data: &model.Entity{Type: "page"}}, "page/default"},
		{"未登録のテンプレート", &resolve.PageData{Data: &model.Entity{Type: "page", Template: "landing.php"}}, "page/default"},
		{"分類の既定", &resolve.PageData{Taxonomy: &model.Taxonomy{Key: "post_tag", Slug: "post_tag"}}, "taxonomy/default"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rd, ok := Select(tt.page, reg)
			require.True(t, ok)
			assert.Equal(t, tt.want, rd.Name())
		})
	}
}

func TestSelect_PreviewTemplateWins(t *testing.T) {
	reg := newTestRegistry()
	page := &resolve.PageData{
		Data:        &model.Entity{ID: 3, Type: "page"},
		PreviewData: &model.Entity{ID: 3, Type: "page", Template: "template-contact.php"},
	}

	rd, ok := Select(page, reg)
	require.True(t, ok)
	assert.Equal(t, "page/contact", rd.Name())
}

func TestSelect_Fallback(t *testing.T) {
	reg := newTestRegistry()
	page := &resolve.PageData{Data: &model.Entity{Type: "event"}}

	_, ok := Select(page, reg)
	assert.False(t, ok, "フォールバック未設定なら選択できない")

	reg.SetFallback(&stubRenderer{name: "fallback"})
	rd, ok := Select(page, reg)
	require.True(t, ok)
	assert.Equal(t, "fallback", rd.Name())
}

func TestSelect_ArchiveWithoutDefault(t *testing.T) {
	reg := newTestRegistry()

	rd, ok := Select(&resolve.PageData{Archive: &model.PostType{Slug: "projects"}}, reg)
	require.True(t, ok)
	assert.Equal(t, "archive/projects", rd.Name())

	_, ok = Select(&resolve.PageData{Archive: &model.PostType{Slug: "events"}}, reg)
	assert.False(t, ok)
}

func TestSelect_NilRegistry(t *testing.T) {
	_, ok := Select(&resolve.PageData{}, nil)
	assert.False(t, ok)
}
