package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hitoshi/wpfront/internal/middleware"
	"github.com/hitoshi/wpfront/internal/model"
	"github.com/hitoshi/wpfront/internal/resolve"
)

// DraftHandler はプレビュー（ドラフトモード）の開始と終了を扱う。
type DraftHandler struct {
	finder SlugFinder
	config middleware.DraftConfig
}

// NewDraftHandler はDraftHandlerを生成する。
func NewDraftHandler(finder SlugFinder, config middleware.DraftConfig) *DraftHandler {
	return &DraftHandler{finder: finder, config: config}
}

// Enable はシークレットを検証してドラフトモードCookieを設定し、対象ページにリダイレクトする。
// GET /api/draft?secret=&slug= または ?secret=&id=&type=
func (h *DraftHandler) Enable(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	secret := q.Get("secret")

	preview := resolve.Preview{Enabled: true, Secret: secret}
	if !preview.Valid(h.config.Secret) {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidSecretError())
		return
	}

	slug := strings.Trim(q.Get("slug"), "/")
	if slug == "" && q.Get("id") != "" {
		id, err := strconv.Atoi(q.Get("id"))
		if err != nil || id <= 0 {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidIDError(q.Get("id")))
			return
		}
		restBase, ok := restBaseParam(q)
		if !ok {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidTypeError(restBase))
			return
		}
		slug = h.finder.SlugByID(r.Context(), restBase, id)
		if slug == "" {
			middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewNotFoundError(restBase+"/"+q.Get("id")))
			return
		}
	}

	middleware.SetDraftCookie(w, h.config)

	target := url.URL{
		Path:     "/" + slug,
		RawQuery: url.Values{"preview": {"true"}, "secret": {secret}}.Encode(),
	}
	http.Redirect(w, r, target.String(), http.StatusTemporaryRedirect)
}

// Disable はドラフトモードCookieを削除してトップページにリダイレクトする。
// GET /api/draft/disable
func (h *DraftHandler) Disable(w http.ResponseWriter, r *http.Request) {
	middleware.ClearDraftCookie(w, h.config)
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}
