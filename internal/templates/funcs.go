package templates

import (
	"html/template"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/wpfront/internal/blocks"
	"github.com/hitoshi/wpfront/internal/links"
	"github.com/hitoshi/wpfront/internal/model"
)

// cmsDateLayout はCMSが返す日時（タイムゾーンなし）の形式。
const cmsDateLayout = "2006-01-02T15:04:05"

// ContentSanitizer はCMSのHTMLを出力可能な形に無害化する。
type ContentSanitizer interface {
	Sanitize(rawHTML string) string
	StripTags(rawHTML string) string
}

// Helpers はテンプレート関数が利用する依存。
type Helpers struct {
	Sanitizer ContentSanitizer
	Links     *links.Rewriter
	Blocks    *blocks.Renderer
	Logger    *slog.Logger
}

// FuncMap はテンプレートから使える関数を返す。
//
//	safeHTML      CMSのHTMLを無害化し、CMSへのリンクを公開サイトに書き換える
//	plain         タグを除いた文字列（タイトル用）
//	swapURL       CMSのURLを公開サイトのURLに置き換える
//	stripURL      CMSのURLからオリジンを除く
//	date          CMSの日時を指定形式で表示する
//	blocks        acf.modules のブロックを描画する
//	hasBlocks     acf.modules にブロックがあるか
//	featuredImage アイキャッチ画像
//	pageURL       一覧のページ番号付きURL
//	pager         一覧のページ送り
func (h Helpers) FuncMap() template.FuncMap {
	return template.FuncMap{
		"safeHTML":      h.safeHTML,
		"plain":         h.plain,
		"swapURL":       h.Links.Swap,
		"stripURL":      h.Links.Strip,
		"date":          formatDate,
		"blocks":        h.renderBlocks,
		"hasBlocks":     HasBlocks,
		"featuredImage": featuredImage,
		"pageURL":       pageURL,
		"pager":         NewPager,
	}
}

func (h Helpers) safeHTML(s string) template.HTML {
	if h.Sanitizer != nil {
		s = h.Sanitizer.Sanitize(s)
	}
	// 無害化済み
	return template.HTML(h.Links.RewriteHTML(s))
}

func (h Helpers) plain(s string) string {
	if h.Sanitizer != nil {
		return h.Sanitizer.StripTags(s)
	}
	return s
}

func (h Helpers) renderBlocks(e *model.Entity) template.HTML {
	if e == nil || h.Blocks == nil {
		return ""
	}
	list, err := blocks.Decode(e.ACF)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("ブロックのデコードに失敗しました",
				slog.Int("entity_id", e.ID),
				slog.String("error", err.Error()),
			)
		}
		return ""
	}
	return h.Blocks.Render(list)
}

// HasBlocks はエンティティにフレキシブルコンテンツがあるかを返す。
func HasBlocks(e *model.Entity) bool {
	if e == nil {
		return false
	}
	list, err := blocks.Decode(e.ACF)
	return err == nil && len(list) > 0
}

func featuredImage(e *model.Entity) *model.Image {
	return e.FeaturedImage()
}

// formatDate はCMSの日時をlayoutで整形する。解釈できない場合は入力をそのまま返す。
func formatDate(value, layout string) string {
	if value == "" {
		return ""
	}
	t, err := time.Parse(cmsDateLayout, value)
	if err != nil {
		t, err = time.Parse(time.RFC3339, value)
		if err != nil {
			return value
		}
	}
	return t.Format(layout)
}

// pageURL は一覧のn ページ目のURLを返す。1ページ目はページ番号を付けない。
func pageURL(base string, n int) string {
	base = "/" + strings.Trim(base, "/")
	if n <= 1 {
		return base
	}
	if base == "/" {
		return "/page/" + strconv.Itoa(n)
	}
	return base + "/page/" + strconv.Itoa(n)
}

// PagerLink はページ送りの1リンク。
type PagerLink struct {
	Number  int
	URL     string
	Current bool
}

// Pager は一覧のページ送り。PrevURL / NextURL は該当ページがない場合空文字列。
type Pager struct {
	PrevURL string
	NextURL string
	Pages   []PagerLink
}

// NewPager はbaseとListingからページ送りを組み立てる。1ページしかない場合はnil。
func NewPager(base string, l *model.Listing) *Pager {
	if l == nil || l.TotalPages <= 1 {
		return nil
	}
	p := &Pager{Pages: make([]PagerLink, 0, l.TotalPages)}
	if l.HasPreviousPage {
		p.PrevURL = pageURL(base, l.PreviousPage)
	}
	if l.HasNextPage {
		p.NextURL = pageURL(base, l.NextPage)
	}
	for n := 1; n <= l.TotalPages; n++ {
		p.Pages = append(p.Pages, PagerLink{
			Number:  n,
			URL:     pageURL(base, n),
			Current: n == l.CurrentPage,
		})
	}
	return p
}
