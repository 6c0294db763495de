// Package templates はページ種別ごとのHTMLテンプレートの登録と選択を提供する。
package templates

import (
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/hitoshi/wpfront/internal/resolve"
)

// テンプレートのカテゴリと既定名
const (
	CategoryArchive  = "archive"
	CategoryTaxonomy = "taxonomy"
	DefaultName      = "default"
)

// Renderer は1つのページテンプレート。
type Renderer interface {
	Name() string
	Render(w io.Writer, view *View) error
}

// Registry はカテゴリ → 名前 → Renderer の対応と、任意の全体フォールバックを保持する。
// 構築後は読み取り専用で、複数のgoroutineから参照できる。
type Registry struct {
	templates map[string]map[string]Renderer
	fallback  Renderer
	notFound  Renderer
	logger    *slog.Logger
	warnings  bool
}

// NewRegistry は空のRegistryを生成する。warningsがfalseの場合、
// 既定テンプレートやフォールバックへの切り替えをログに残さない。
func NewRegistry(logger *slog.Logger, warnings bool) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		templates: make(map[string]map[string]Renderer),
		logger:    logger,
		warnings:  warnings,
	}
}

// Register はカテゴリと名前にRendererを登録する。
func (r *Registry) Register(category, name string, rd Renderer) {
	if r.templates[category] == nil {
		r.templates[category] = make(map[string]Renderer)
	}
	r.templates[category][name] = rd
}

// SetFallback は一致するテンプレートがない場合に使うRendererを設定する。
func (r *Registry) SetFallback(rd Renderer) {
	r.fallback = rd
}

// SetNotFound は404ページ用のRendererを設定する。
func (r *Registry) SetNotFound(rd Renderer) {
	r.notFound = rd
}

// NotFound は404ページ用のRendererを返す。未設定ならnil。
func (r *Registry) NotFound() Renderer {
	return r.notFound
}

func (r *Registry) lookup(category, name string) (Renderer, bool) {
	byName, ok := r.templates[category]
	if !ok {
		return nil, false
	}
	rd, ok := byName[name]
	return rd, ok
}

// Identify はページデータからテンプレートのカテゴリと識別子を決める。
// アーカイブはアーカイブのスラッグ、分類は分類のスラッグ、
// 単一エンティティはエンティティのtypeとページテンプレート名を使う。
func Identify(page *resolve.PageData) (category, identifier string) {
	switch {
	case page == nil:
		return "", ""
	case page.Archive != nil:
		return CategoryArchive, page.Archive.Slug
	case page.Taxonomy != nil:
		return CategoryTaxonomy, page.Taxonomy.Slug
	}

	data := page.Merged()
	if data == nil {
		return "", ""
	}
	return data.Type, NormalizeTemplateName(data.Template)
}

// NormalizeTemplateName はCMSのページテンプレート指定（例: page-templates/template-contact.php）を
// テンプレート名（contact）に変換する。未指定の場合は空文字列。
func NormalizeTemplateName(tmpl string) string {
	tmpl = strings.TrimSpace(tmpl)
	if tmpl == "" {
		return ""
	}
	name := path.Base(tmpl)
	name = strings.TrimSuffix(name, ".php")
	name = strings.TrimPrefix(name, "template-")
	return name
}

// Select はページデータに対応するRendererを選ぶ。
// 完全一致、カテゴリの既定テンプレート、全体フォールバックの順に探し、
// どれもなければfalseを返す（呼び出し側は404を返す）。
func Select(page *resolve.PageData, reg *Registry) (Renderer, bool) {
	if reg == nil {
		return nil, false
	}
	category, identifier := Identify(page)

	if identifier != "" {
		if rd, ok := reg.lookup(category, identifier); ok {
			return rd, true
		}
	}

	if rd, ok := reg.lookup(category, DefaultName); ok {
		if identifier != "" && identifier != DefaultName {
			reg.warn("既定テンプレートを使用します", category, identifier)
		}
		return rd, true
	}

	if reg.fallback != nil {
		reg.warn("フォールバックテンプレートを使用します", category, identifier)
		return reg.fallback, true
	}

	reg.warn("テンプレートが見つかりません", category, identifier)
	return nil, false
}

func (r *Registry) warn(msg, category, identifier string) {
	if !r.warnings {
		return
	}
	r.logger.Debug(msg,
		slog.String("category", category),
		slog.String("identifier", identifier),
	)
}
