// Package resolve はURLパスをCMSのコンテンツに対応付ける。
// NodeResolver がURLの種別（固定ページ・投稿・アーカイブ・分類）を判定し、
// PageResolver がその種別に応じたページデータを組み立てる。
package resolve

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/hitoshi/wpfront/internal/model"
	"github.com/hitoshi/wpfront/internal/wp"
)

const (
	defaultRestBase         = "pages"
	defaultPostRestBase     = "posts"
	defaultTaxonomyRestBase = "categories"
	defaultTagRestBase      = "tags"
	tagPrefix               = "tag/"
)

// CMS はリゾルバーが利用するCMSの読み取り操作。
// wp.Client が実装する。取得失敗時はゼロ値・nilに縮退する。
type CMS interface {
	Settings(ctx context.Context) model.Settings
	PostTypes(ctx context.Context) []model.PostType
	Taxonomies(ctx context.Context) []model.Taxonomy
	ItemByID(ctx context.Context, restBase string, id int) *model.Entity
	ItemBySlug(ctx context.Context, restBase, slug string, statuses ...model.EntityStatus) *model.Entity
	Latest(ctx context.Context, restBase string) *model.Entity
	List(ctx context.Context, q wp.ListQuery) (*wp.ListResult, error)
	TermBySlug(ctx context.Context, restBase, slug string) *model.Term
}

// Node はURLパスの判定結果。
type Node struct {
	// RestBase は単一エンティティを検索するコレクション。既定は "pages"。
	RestBase string
	Archive  *model.PostType
	Taxonomy *model.Taxonomy
}

// NodeResolver はURLパスの種別を判定する。
type NodeResolver struct {
	cms    CMS
	logger *slog.Logger
}

// NewNodeResolver はNodeResolverの新しいインスタンスを生成する。
func NewNodeResolver(cms CMS, logger *slog.Logger) *NodeResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &NodeResolver{cms: cms, logger: logger}
}

// Resolve はuri（先頭・末尾のスラッシュを除いたパス）の種別を判定する。
// CMSへの問い合わせが失敗しても既定値に縮退し、エラーは返さない。
//
// 投稿タイプはスラッグの短い順に評価し、前方一致した最後のものを採用する。
// 分類はスラッグの長い順に評価し、最初に前方一致したものを採用する。
// どちらも結果として最も長いスラッグが優先される。
func (r *NodeResolver) Resolve(ctx context.Context, uri string) Node {
	settings := r.cms.Settings(ctx)
	postTypes := sortPostTypes(r.cms.PostTypes(ctx))
	taxonomies := sortTaxonomies(r.cms.Taxonomies(ctx))

	node := Node{RestBase: defaultRestBase}

	for i := range postTypes {
		pt := postTypes[i]
		if pt.Slug != "" && strings.HasPrefix(uri, pt.Slug) {
			node.RestBase = firstNonEmpty(pt.RestBase, defaultPostRestBase)
		}
		if pt.HasArchive != "" && pt.HasArchive == uri {
			node.Archive = &pt
		}
	}

	for i := range taxonomies {
		tax := taxonomies[i]
		if tax.Slug != "" && strings.HasPrefix(uri, tax.Slug) {
			node.Taxonomy = &tax
			node.RestBase = firstNonEmpty(tax.RestBase, defaultTaxonomyRestBase)
			break
		}
	}

	if strings.HasPrefix(uri, tagPrefix) {
		tag := findTaxonomy(taxonomies, model.TagTaxonomyKey)
		if tag == nil {
			builtin := model.BuiltinTagTaxonomy()
			tag = &builtin
		}
		node.Taxonomy = tag
		node.RestBase = firstNonEmpty(tag.RestBase, defaultTagRestBase)
	}

	if settings.PageForPosts != 0 {
		blogPage := r.cms.ItemByID(ctx, defaultRestBase, settings.PageForPosts)
		if blogPage != nil && blogPage.Slug != "" && blogPage.Slug == lastSegment(uri) {
			archive := model.PostsArchive(blogPage.Slug)
			node.Archive = &archive
		}
	}

	r.logger.Debug("ノードを判定しました",
		slog.String("uri", uri),
		slog.String("rest_base", node.RestBase),
		slog.Bool("archive", node.Archive != nil),
		slog.Bool("taxonomy", node.Taxonomy != nil),
	)
	return node
}

// sortPostTypes はスラッグの短い順（同じ長さはスラッグ順）に並べた複製を返す。
func sortPostTypes(in []model.PostType) []model.PostType {
	out := append([]model.PostType(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		if len(out[i].Slug) != len(out[j].Slug) {
			return len(out[i].Slug) < len(out[j].Slug)
		}
		return out[i].Slug < out[j].Slug
	})
	return out
}

// sortTaxonomies はスラッグの長い順（同じ長さはスラッグ順）に並べた複製を返す。
func sortTaxonomies(in []model.Taxonomy) []model.Taxonomy {
	out := append([]model.Taxonomy(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		if len(out[i].Slug) != len(out[j].Slug) {
			return len(out[i].Slug) > len(out[j].Slug)
		}
		return out[i].Slug < out[j].Slug
	})
	return out
}

func findTaxonomy(taxonomies []model.Taxonomy, key string) *model.Taxonomy {
	for i := range taxonomies {
		if taxonomies[i].Key == key {
			tax := taxonomies[i]
			return &tax
		}
	}
	return nil
}

// lastSegment はパスの最後のセグメントを返す。
func lastSegment(uri string) string {
	trimmed := strings.TrimRight(uri, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
