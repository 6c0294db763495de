package wp

import (
	"context"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/hitoshi/wpfront/internal/model"
)

const (
	// slugsPerPage は静的パス列挙時の1リクエストあたりの件数（CMSの上限）。
	slugsPerPage = 100
	// commentsPerPage はコメント一覧取得時の件数。
	commentsPerPage = 100
)

func collectionPath(restBase string) string {
	return "/wp/v2/" + strings.Trim(restBase, "/")
}

func itemPath(restBase string, id int) string {
	return collectionPath(restBase) + "/" + strconv.Itoa(id)
}

// PostTypes は投稿タイプの一覧をキー順で返す。取得失敗時は空。
func (c *Client) PostTypes(ctx context.Context) []model.PostType {
	var raw map[string]model.PostType
	if _, err := c.GetJSON(ctx, "/wp/v2/types", nil, &raw); err != nil {
		return nil
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	types := make([]model.PostType, 0, len(raw))
	for _, k := range keys {
		pt := raw[k]
		pt.Key = k
		types = append(types, pt)
	}
	return types
}

// Taxonomies は分類の一覧をキー順で返す。取得失敗時は空。
func (c *Client) Taxonomies(ctx context.Context) []model.Taxonomy {
	var raw map[string]model.Taxonomy
	if _, err := c.GetJSON(ctx, "/wp/v2/taxonomies", nil, &raw); err != nil {
		return nil
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	taxonomies := make([]model.Taxonomy, 0, len(raw))
	for _, k := range keys {
		tax := raw[k]
		tax.Key = k
		taxonomies = append(taxonomies, tax)
	}
	return taxonomies
}

// Settings はサイト設定を返す。取得失敗時はゼロ値。
func (c *Client) Settings(ctx context.Context) model.Settings {
	var s model.Settings
	if _, err := c.GetJSON(ctx, "/wp/v2/settings", nil, &s); err != nil {
		return model.Settings{}
	}
	return s
}

// ItemByID はIDでエンティティを1件取得する。見つからない場合や失敗時はnil。
func (c *Client) ItemByID(ctx context.Context, restBase string, id int) *model.Entity {
	if id <= 0 {
		return nil
	}
	var e model.Entity
	q := url.Values{"_embed": {"true"}}
	if _, err := c.GetJSON(ctx, itemPath(restBase, id), q, &e); err != nil {
		return nil
	}
	return &e
}

// ItemBySlug はスラッグでエンティティを1件取得する。
// statusesを指定した場合はそのステータスのもののみを対象にする（プレビュー用）。
func (c *Client) ItemBySlug(ctx context.Context, restBase, slug string, statuses ...model.EntityStatus) *model.Entity {
	if slug == "" {
		return nil
	}
	q := url.Values{
		"slug":   {slug},
		"_embed": {"true"},
	}
	if len(statuses) > 0 {
		s := make([]string, len(statuses))
		for i, st := range statuses {
			s[i] = string(st)
		}
		q.Set("status", strings.Join(s, ","))
	}

	var items []model.Entity
	if _, err := c.GetJSON(ctx, collectionPath(restBase), q, &items); err != nil {
		return nil
	}
	if len(items) == 0 {
		return nil
	}
	return &items[0]
}

// Latest はコレクションの最新1件を返す。
func (c *Client) Latest(ctx context.Context, restBase string) *model.Entity {
	q := url.Values{
		"_embed":   {"true"},
		"per_page": {"1"},
	}
	var items []model.Entity
	if _, err := c.GetJSON(ctx, collectionPath(restBase), q, &items); err != nil {
		return nil
	}
	if len(items) == 0 {
		return nil
	}
	return &items[0]
}

// ListQuery は一覧取得の条件。
type ListQuery struct {
	RestBase string
	Page     int
	PerPage  int
	// TaxonomyParam / TermID は分類による絞り込み（例: categories=3）。
	TaxonomyParam string
	TermID        int
}

// ListResult は一覧取得の結果とページネーション情報。
type ListResult struct {
	Items      []model.Entity
	Total      int
	TotalPages int
}

// List はコレクションの1ページ分を取得する。
// 総件数と総ページ数は X-WP-Total / X-WP-TotalPages ヘッダーから読む。
func (c *Client) List(ctx context.Context, lq ListQuery) (*ListResult, error) {
	page := lq.Page
	if page < 1 {
		page = 1
	}
	perPage := lq.PerPage
	if perPage < 1 {
		perPage = 10
	}

	q := url.Values{
		"_embed":   {"true"},
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(perPage)},
	}
	if lq.TaxonomyParam != "" && lq.TermID > 0 {
		q.Set(lq.TaxonomyParam, strconv.Itoa(lq.TermID))
	}

	var items []model.Entity
	header, err := c.GetJSON(ctx, collectionPath(lq.RestBase), q, &items)
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Items:      items,
		Total:      headerInt(header.Get("X-WP-Total")),
		TotalPages: headerInt(header.Get("X-WP-TotalPages")),
	}, nil
}

func headerInt(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// TermBySlug は分類の語をスラッグで1件取得する。
func (c *Client) TermBySlug(ctx context.Context, restBase, slug string) *model.Term {
	if slug == "" {
		return nil
	}
	var terms []model.Term
	if _, err := c.GetJSON(ctx, collectionPath(restBase), url.Values{"slug": {slug}}, &terms); err != nil {
		return nil
	}
	if len(terms) == 0 {
		return nil
	}
	return &terms[0]
}

// SlugByID はIDからスラッグを取得する。見つからない場合は空文字列。
func (c *Client) SlugByID(ctx context.Context, restBase string, id int) string {
	var item struct {
		Slug string `json:"slug"`
	}
	if _, err := c.GetJSON(ctx, itemPath(restBase, id), url.Values{"_fields": {"slug"}}, &item); err != nil {
		return ""
	}
	return item.Slug
}

// Slugs はコレクションの公開済みエンティティのスラッグを返す。
// 静的パス列挙用で、先頭の1ページ分（最大100件）のみを対象にする。
func (c *Client) Slugs(ctx context.Context, restBase string) []string {
	q := url.Values{
		"per_page": {strconv.Itoa(slugsPerPage)},
		"_fields":  {"slug"},
	}
	var items []struct {
		Slug string `json:"slug"`
	}
	if _, err := c.GetJSON(ctx, collectionPath(restBase), q, &items); err != nil {
		return nil
	}

	slugs := make([]string, 0, len(items))
	for _, it := range items {
		if it.Slug != "" {
			slugs = append(slugs, it.Slug)
		}
	}
	return slugs
}

// Comments は投稿に対するコメントをCMSの返す順序のまま返す。
func (c *Client) Comments(ctx context.Context, postID int) ([]model.Comment, error) {
	q := url.Values{
		"post":     {strconv.Itoa(postID)},
		"per_page": {strconv.Itoa(commentsPerPage)},
	}
	var comments []model.Comment
	if _, err := c.GetJSON(ctx, "/wp/v2/comments", q, &comments); err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []model.Comment{}
	}
	return comments, nil
}

// NewComment はCMSへ送信するコメント作成リクエスト。
type NewComment struct {
	Post        int    `json:"post"`
	Parent      int    `json:"parent"`
	AuthorName  string `json:"author_name"`
	AuthorEmail string `json:"author_email"`
	Content     string `json:"content"`
	Status      string `json:"status"`
}

// CreateComment はコメントを作成する。ステータスは常に未承認で送信する。
func (c *Client) CreateComment(ctx context.Context, nc NewComment) (*model.Comment, error) {
	nc.Status = model.CommentStatusUnapproved

	var created model.Comment
	if err := c.PostJSON(ctx, "/wp/v2/comments", nc, &created); err != nil {
		return nil, err
	}
	c.logger.Info("コメントを作成しました",
		slog.Int("post_id", nc.Post),
		slog.Int("comment_id", created.ID),
	)
	return &created, nil
}
