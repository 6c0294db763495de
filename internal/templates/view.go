package templates

import (
	"github.com/hitoshi/wpfront/internal/model"
	"github.com/hitoshi/wpfront/internal/resolve"
	"github.com/hitoshi/wpfront/internal/seo"
)

// View はページテンプレートに渡す値。
type View struct {
	URI       string
	Page      *resolve.PageData
	Data      *model.Entity
	Listing   *model.Listing
	Archive   *model.PostType
	Taxonomy  *model.Taxonomy
	Term      *model.Term
	IsPreview bool
	Meta      seo.Metadata
	Settings  model.Settings
	Comments  *CommentsView
	CSRFToken string
	// Status は404ページなどでテンプレートに伝えるHTTPステータス。
	Status int
}

// CommentsView はコメント欄の表示内容。
type CommentsView struct {
	PostID  int
	Open    bool
	Top     []model.Comment
	Replies map[int][]model.Comment
	Count   int
	// Error は投稿・取得失敗時にユーザーへ表示する短いメッセージ。
	Error string
	// Notice は投稿受付時のメッセージ。
	Notice string
}

// NewView はページデータからViewを組み立てる。Dataにはプレビューをマージ済みのエンティティを入れる。
func NewView(page *resolve.PageData, settings model.Settings, meta seo.Metadata, isPreview bool) *View {
	v := &View{
		Page:      page,
		Settings:  settings,
		Meta:      meta,
		IsPreview: isPreview,
	}
	if page == nil {
		return v
	}
	v.URI = page.URI
	v.Data = page.Merged()
	v.Listing = page.Listing
	v.Archive = page.Archive
	v.Taxonomy = page.Taxonomy
	v.Term = page.Term
	return v
}
