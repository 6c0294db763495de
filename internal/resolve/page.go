package resolve

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/hitoshi/wpfront/internal/model"
	"github.com/hitoshi/wpfront/internal/wp"
)

// PageSize はアーカイブ・分類ページの1ページあたりの件数。
const PageSize = 10

// ページ解決結果の種別（メトリクスのラベル）。
const (
	KindFront    = "front"
	KindArchive  = "archive"
	KindTaxonomy = "taxonomy"
	KindSingle   = "single"
	KindPreview  = "preview"
	KindNotFound = "not_found"
)

var pageSuffix = regexp.MustCompile(`/page/(\d+)$`)

// Preview はリクエストのプレビュー指定（preview / secret クエリ）。
type Preview struct {
	Enabled bool
	Secret  string
}

// Valid はプレビューが有効で、シークレットがサーバー側の設定値と一致するかを返す。
// サーバー側のシークレットが未設定の場合は常にfalse。
func (p Preview) Valid(configured string) bool {
	if !p.Enabled || configured == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(p.Secret), []byte(configured)) == 1
}

// PageData はページ解決の結果。
type PageData struct {
	URI        string
	PageNumber int

	Data        *model.Entity
	PreviewData *model.Entity
	Listing     *model.Listing
	Archive     *model.PostType
	Taxonomy    *model.Taxonomy
	Term        *model.Term
}

// NotFound はいずれのデータも得られなかった場合にtrueを返す。
func (p *PageData) NotFound() bool {
	return p.Data == nil &&
		p.PreviewData == nil &&
		p.Listing == nil &&
		p.Archive == nil &&
		p.Taxonomy == nil &&
		p.Term == nil
}

// Merged は公開済みデータにプレビューデータを重ねたエンティティを返す。
// マージに失敗した場合は公開済みデータを返す。
func (p *PageData) Merged() *model.Entity {
	merged, err := model.MergeEntities(p.Data, p.PreviewData)
	if err != nil {
		slog.Warn("プレビューデータのマージに失敗しました",
			slog.String("uri", p.URI),
			slog.String("error", err.Error()),
		)
		return p.Data
	}
	return merged
}

// ResolutionRecorder はページ解決の結果種別を記録する。
type ResolutionRecorder interface {
	RecordPageResolution(kind string)
}

// PageResolver はURLパスからページデータを組み立てる。
type PageResolver struct {
	cms           CMS
	nodes         *NodeResolver
	previewSecret string
	recorder      ResolutionRecorder
	logger        *slog.Logger
}

// NewPageResolver はPageResolverの新しいインスタンスを生成する。
// recorderはnilでもよい。
func NewPageResolver(cms CMS, previewSecret string, recorder ResolutionRecorder, logger *slog.Logger) *PageResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageResolver{
		cms:           cms,
		nodes:         NewNodeResolver(cms, logger),
		previewSecret: previewSecret,
		recorder:      recorder,
		logger:        logger,
	}
}

// PreviewValid はプレビュー指定がサーバー側のシークレットと一致するかを返す。
func (r *PageResolver) PreviewValid(p Preview) bool {
	return p.Valid(r.previewSecret)
}

// Resolve はuriに対応するページデータを返す。CMSの障害は縮退して扱い、
// 何も見つからなかった場合は NotFound() がtrueになる結果を返す。
func (r *PageResolver) Resolve(ctx context.Context, uri string, preview Preview) *PageData {
	page, kind := r.resolve(ctx, uri, preview)
	if r.recorder != nil {
		r.recorder.RecordPageResolution(kind)
	}
	r.logger.Debug("ページを解決しました",
		slog.String("uri", uri),
		slog.String("kind", kind),
		slog.Int("page", page.PageNumber),
	)
	return page
}

func (r *PageResolver) resolve(ctx context.Context, uri string, preview Preview) (*PageData, string) {
	if uri == "" || uri == "/" || uri == "index" {
		return r.frontPage(ctx, uri)
	}

	stripped, pageNumber := splitPageNumber(uri)
	result := &PageData{URI: stripped, PageNumber: pageNumber}

	node := r.nodes.Resolve(ctx, stripped)

	if node.Archive != nil {
		result.Archive = node.Archive
		result.Listing = r.list(ctx, wp.ListQuery{
			RestBase: node.Archive.RestBase,
			Page:     pageNumber,
			PerPage:  PageSize,
		})
		return result, KindArchive
	}

	if node.Taxonomy != nil {
		r.taxonomyPage(ctx, result, node.Taxonomy, stripped, pageNumber)
		return result, KindTaxonomy
	}

	slug := lastSegment(stripped)
	previewValid := r.PreviewValid(preview)

	for _, restBase := range candidateRestBases(node.RestBase) {
		item := r.cms.ItemBySlug(ctx, restBase, slug)
		if item == nil {
			continue
		}
		result.Data = item
		if previewValid {
			result.PreviewData = r.cms.ItemBySlug(ctx, restBase, slug, model.PreviewStatuses...)
			if result.PreviewData != nil {
				return result, KindPreview
			}
		}
		return result, KindSingle
	}

	// 公開済みのものがなくプレビュー中であれば下書きを主データとして返す
	if previewValid {
		for _, restBase := range candidateRestBases(node.RestBase) {
			if draft := r.cms.ItemBySlug(ctx, restBase, slug, model.PreviewStatuses...); draft != nil {
				result.Data = draft
				return result, KindPreview
			}
		}
	}

	return result, KindNotFound
}

// frontPage はトップページを解決する。固定ページが設定されていればそれを、
// なければ最新の投稿を返す。
func (r *PageResolver) frontPage(ctx context.Context, uri string) (*PageData, string) {
	result := &PageData{URI: uri, PageNumber: 1}

	settings := r.cms.Settings(ctx)
	if settings.PageOnFront != 0 {
		result.Data = r.cms.ItemByID(ctx, defaultRestBase, settings.PageOnFront)
	}
	if result.Data == nil {
		result.Data = r.cms.Latest(ctx, defaultPostRestBase)
	}
	if result.Data == nil {
		return result, KindNotFound
	}
	return result, KindFront
}

// taxonomyPage は分類ページの語と一覧を組み立てる。
// 語が見つからない場合は空の一覧を返す。
func (r *PageResolver) taxonomyPage(ctx context.Context, result *PageData, tax *model.Taxonomy, uri string, pageNumber int) {
	result.Taxonomy = tax

	restBase := firstNonEmpty(tax.RestBase, defaultTaxonomyRestBase)
	term := r.cms.TermBySlug(ctx, restBase, lastSegment(uri))
	if term == nil {
		result.Listing = model.NewListing(nil, 0, 0, pageNumber)
		return
	}
	result.Term = term
	result.Listing = r.list(ctx, wp.ListQuery{
		RestBase:      defaultPostRestBase,
		Page:          pageNumber,
		PerPage:       PageSize,
		TaxonomyParam: restBase,
		TermID:        term.ID,
	})
}

// list は一覧を取得する。失敗時はnilを返す。
func (r *PageResolver) list(ctx context.Context, q wp.ListQuery) *model.Listing {
	res, err := r.cms.List(ctx, q)
	if err != nil {
		r.logger.Warn("一覧の取得に失敗しました",
			slog.String("rest_base", q.RestBase),
			slog.Int("page", q.Page),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return model.NewListing(res.Items, res.Total, res.TotalPages, q.Page)
}

// splitPageNumber は末尾の /page/<N> を取り除き、ページ番号を返す。既定は1。
func splitPageNumber(uri string) (string, int) {
	m := pageSuffix.FindStringSubmatchIndex(uri)
	if m == nil {
		return uri, 1
	}
	n, err := strconv.Atoi(uri[m[2]:m[3]])
	if err != nil || n < 1 {
		n = 1
	}
	return uri[:m[0]], n
}

// candidateRestBases は単一エンティティを探すコレクションの順序を返す。
// 投稿はスラッグの接頭辞を持たないことがあるため最後にpostsを探す。
func candidateRestBases(restBase string) []string {
	if restBase == defaultPostRestBase {
		return []string{restBase}
	}
	return []string{restBase, defaultPostRestBase}
}
