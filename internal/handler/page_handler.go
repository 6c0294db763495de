package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/wpfront/internal/comments"
	"github.com/hitoshi/wpfront/internal/links"
	"github.com/hitoshi/wpfront/internal/middleware"
	"github.com/hitoshi/wpfront/internal/model"
	"github.com/hitoshi/wpfront/internal/resolve"
	"github.com/hitoshi/wpfront/internal/seo"
	"github.com/hitoshi/wpfront/internal/templates"
)

// commentNotice はフォームからの投稿を受け付けたときの表示。
const commentNotice = "コメントを受け付けました。承認後に公開されます。"

// PageResolverInterface はページハンドラーが必要とするページ解決のインターフェース。
type PageResolverInterface interface {
	Resolve(ctx context.Context, uri string, preview resolve.Preview) *resolve.PageData
	PreviewValid(p resolve.Preview) bool
}

// SettingsSource はサイト設定を返す。
type SettingsSource interface {
	Settings(ctx context.Context) model.Settings
}

// RegistrySource は現在のテンプレートRegistryを返す。*templates.Storeが満たす。
type RegistrySource interface {
	Registry() *templates.Registry
}

// PageHandlerConfig はページハンドラーの設定。
type PageHandlerConfig struct {
	// PreviewSecret はドラフトモードCookieが有効なときにプレビューとして扱うためのシークレット。
	PreviewSecret string
	Links         *links.Rewriter
	Logger        *slog.Logger
}

// PageHandler はCMSのページをテンプレートで描画するハンドラー。
type PageHandler struct {
	pages     PageResolverInterface
	settings  SettingsSource
	templates RegistrySource
	comments  CommentServiceInterface
	config    PageHandlerConfig
	logger    *slog.Logger
}

// NewPageHandler はPageHandlerを生成する。commentsはnilでもよい（コメント欄を表示しない）。
func NewPageHandler(
	pages PageResolverInterface,
	settings SettingsSource,
	tmpl RegistrySource,
	commentService CommentServiceInterface,
	config PageHandlerConfig,
) *PageHandler {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &PageHandler{
		pages:     pages,
		settings:  settings,
		templates: tmpl,
		comments:  commentService,
		config:    config,
		logger:    logger,
	}
}

// renderState はページ描画時にコメント欄へ反映する状態。
type renderState struct {
	status  int
	created *model.Comment
	notice  string
	errMsg  string
}

// Page はURLパスに対応するページを描画する。
// GET /*
func (h *PageHandler) Page(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, normalizeURI(chi.URLParam(r, "*")), renderState{status: http.StatusOK})
}

// SubmitForm はHTMLフォームからのコメント投稿を処理し、投稿元のページを再描画する。
// 投稿できたコメントは承認前でも一覧の先頭に表示する。
// POST /comments
func (h *PageHandler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	uri := normalizeURI(r.PostFormValue("redirect"))
	if h.comments == nil {
		http.NotFound(w, r)
		return
	}

	postID, _ := strconv.Atoi(r.PostFormValue("post"))
	parentID, _ := strconv.Atoi(r.PostFormValue("parent"))

	created, err := h.comments.Submit(r.Context(), comments.SubmitInput{
		PostID:      postID,
		ParentID:    parentID,
		AuthorName:  r.PostFormValue("author_name"),
		AuthorEmail: r.PostFormValue("author_email"),
		Content:     r.PostFormValue("content"),
		ClientIP:    middleware.ClientIP(r),
	})
	if err != nil {
		status := http.StatusInternalServerError
		if apiErr := asAPIError(err); apiErr != nil {
			status = mapAPIErrorToHTTPStatus(apiErr)
		}
		h.render(w, r, uri, renderState{status: status, errMsg: userMessage(err)})
		return
	}

	h.render(w, r, uri, renderState{status: http.StatusOK, created: created, notice: commentNotice})
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, uri string, state renderState) {
	ctx := r.Context()
	reg := h.templates.Registry()

	preview := previewFromRequest(r, h.config.PreviewSecret)
	isPreview := h.pages.PreviewValid(preview)

	page := h.pages.Resolve(ctx, uri, preview)
	if page.NotFound() {
		h.renderNotFound(w, r, reg)
		return
	}

	rd, ok := templates.Select(page, reg)
	if !ok {
		h.renderNotFound(w, r, reg)
		return
	}

	settings := h.settings.Settings(ctx)
	view := templates.NewView(page, settings, seo.Build(settings, page, h.config.Links), isPreview)
	view.CSRFToken = middleware.CSRFTokenFromContext(ctx)
	view.Status = state.status
	view.Comments = h.commentsView(ctx, view.Data, state)

	if isPreview {
		w.Header().Set("Cache-Control", "private, no-store")
	}
	h.write(w, rd, view, state.status)
}

// commentsView は投稿ページのコメント欄を組み立てる。投稿以外はnil。
func (h *PageHandler) commentsView(ctx context.Context, data *model.Entity, state renderState) *templates.CommentsView {
	if h.comments == nil || data == nil || data.Type != "post" || data.ID <= 0 {
		return nil
	}

	cv := &templates.CommentsView{
		PostID: data.ID,
		Open:   data.CommentsOpen(),
		Notice: state.notice,
		Error:  state.errMsg,
	}

	thread, err := h.comments.Thread(ctx, data.ID)
	if err != nil {
		h.logger.Warn("コメントの取得に失敗しました",
			slog.Int("post_id", data.ID),
			slog.String("error", err.Error()),
		)
		thread = comments.NewThread(data.ID)
		if cv.Error == "" {
			cv.Error = "コメントを読み込めませんでした。"
		}
	}
	if state.created != nil {
		thread.Add(*state.created)
	}

	cv.Top, cv.Replies = thread.Partition()
	cv.Count = thread.Len()
	return cv
}

func (h *PageHandler) renderNotFound(w http.ResponseWriter, r *http.Request, reg *templates.Registry) {
	var rd templates.Renderer
	if reg != nil {
		rd = reg.NotFound()
	}
	if rd == nil {
		http.NotFound(w, r)
		return
	}

	settings := h.settings.Settings(r.Context())
	view := templates.NewView(nil, settings, seo.Build(settings, nil, h.config.Links), false)
	view.Meta.Robots = "noindex"
	view.Status = http.StatusNotFound
	h.write(w, rd, view, http.StatusNotFound)
}

// write はテンプレートをバッファに描画してから書き込む。描画に失敗した場合は500を返す。
func (h *PageHandler) write(w http.ResponseWriter, rd templates.Renderer, view *templates.View, status int) {
	var buf bytes.Buffer
	if err := rd.Render(&buf, view); err != nil {
		h.logger.Error("テンプレートの描画に失敗しました",
			slog.String("template", rd.Name()),
			slog.String("uri", view.URI),
			slog.String("error", err.Error()),
		)
		http.Error(w, "ページを表示できませんでした。", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// previewFromRequest はクエリ（preview=true&secret=）またはドラフトモードCookieからプレビュー指定を作る。
func previewFromRequest(r *http.Request, configuredSecret string) resolve.Preview {
	if middleware.DraftFromContext(r.Context()) {
		return resolve.Preview{Enabled: true, Secret: configuredSecret}
	}
	q := r.URL.Query()
	return resolve.Preview{
		Enabled: q.Get("preview") == "true",
		Secret:  q.Get("secret"),
	}
}

// normalizeURI はパスを前後のスラッシュを除いた形にする。空の場合はトップページ。
// スキームを含む値はトップページとして扱う。
func normalizeURI(p string) string {
	if strings.Contains(p, "://") {
		return "/"
	}
	p = strings.Trim(p, "/")
	if p == "" {
		return "/"
	}
	return p
}
