package handler

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/wpfront/internal/middleware"
	"github.com/hitoshi/wpfront/internal/model"
)

// defaultSlugRestBase はtype未指定時に参照するコレクション。
const defaultSlugRestBase = "posts"

// restBasePattern はtypeクエリとして受け付けるrest_base。
// CMSへのパスに埋め込まれるため、区切り文字を含む値は拒否する。
var restBasePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// staticPathRestBases は静的パスとして列挙するコレクション。
var staticPathRestBases = []string{"pages", "posts"}

// SlugFinder はIDからスラッグを引く。見つからない場合は空文字列を返す。
type SlugFinder interface {
	SlugByID(ctx context.Context, restBase string, id int) string
}

// SlugLister はコレクションの公開済みスラッグを列挙する。
type SlugLister interface {
	Slugs(ctx context.Context, restBase string) []string
}

// SlugHandler はスラッグ参照と静的パス列挙のHTTPハンドラー。
type SlugHandler struct {
	finder SlugFinder
	lister SlugLister
}

// NewSlugHandler はSlugHandlerを生成する。
func NewSlugHandler(finder SlugFinder, lister SlugLister) *SlugHandler {
	return &SlugHandler{finder: finder, lister: lister}
}

type slugResponse struct {
	ID       int    `json:"id"`
	Slug     string `json:"slug"`
	RestBase string `json:"rest_base"`
	URL      string `json:"url"`
}

type slugNotFoundResponse struct {
	Error    string `json:"error"`
	ID       int    `json:"id"`
	RestBase string `json:"rest_base"`
}

// staticPath は静的生成するページ1件のパス。
type staticPath struct {
	Paths []string `json:"paths"`
}

// GetSlug はIDに対応するスラッグを返す。
// GET /api/get-slug/{id}?type=<rest_base>
func (h *SlugHandler) GetSlug(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidIDError(raw))
		return
	}

	restBase, ok := restBaseParam(r.URL.Query())
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidTypeError(restBase))
		return
	}

	slug := h.finder.SlugByID(r.Context(), restBase, id)
	if slug == "" {
		middleware.WriteJSON(w, http.StatusNotFound, slugNotFoundResponse{
			Error:    "slug not found",
			ID:       id,
			RestBase: restBase,
		})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, slugResponse{
		ID:       id,
		Slug:     slug,
		RestBase: restBase,
		URL:      "/" + slug,
	})
}

// StaticPaths は固定ページと投稿のスラッグを静的パスとして返す。
// GET /api/static-paths
func (h *SlugHandler) StaticPaths(w http.ResponseWriter, r *http.Request) {
	paths := make([]staticPath, 0)
	for _, restBase := range staticPathRestBases {
		for _, slug := range h.lister.Slugs(r.Context(), restBase) {
			paths = append(paths, staticPath{Paths: []string{slug}})
		}
	}
	middleware.WriteJSON(w, http.StatusOK, paths)
}

// restBaseParam はtypeクエリを返す。未指定なら既定のコレクション。
func restBaseParam(q url.Values) (string, bool) {
	restBase := q.Get("type")
	if restBase == "" {
		return defaultSlugRestBase, true
	}
	return restBase, restBasePattern.MatchString(restBase)
}
