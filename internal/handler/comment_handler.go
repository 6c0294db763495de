package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/wpfront/internal/comments"
	"github.com/hitoshi/wpfront/internal/middleware"
	"github.com/hitoshi/wpfront/internal/model"
)

// CommentServiceInterface はコメントハンドラーが必要とするサービスインターフェース。
type CommentServiceInterface interface {
	// List は投稿のコメントをCMSの返す順序のまま返す。
	List(ctx context.Context, postID int) ([]model.Comment, error)
	// Thread は投稿のコメントを取得済みのThreadを返す。
	Thread(ctx context.Context, postID int) (*comments.Thread, error)
	// Submit はコメントを未承認として投稿する。
	Submit(ctx context.Context, in comments.SubmitInput) (*model.Comment, error)
}

// CommentHandler はコメントAPIのHTTPハンドラー。
type CommentHandler struct {
	service CommentServiceInterface
}

// NewCommentHandler はCommentHandlerを生成する。
func NewCommentHandler(service CommentServiceInterface) *CommentHandler {
	return &CommentHandler{service: service}
}

// submitCommentRequest はコメント投稿リクエストのボディ。
type submitCommentRequest struct {
	Post        int    `json:"post"`
	Parent      int    `json:"parent"`
	AuthorName  string `json:"author_name"`
	AuthorEmail string `json:"author_email"`
	Content     string `json:"content"`
}

// Submit はコメント投稿を処理する。
// POST /api/comments
func (h *CommentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidBodyError())
		return
	}

	created, err := h.service.Submit(r.Context(), comments.SubmitInput{
		PostID:      req.Post,
		ParentID:    req.Parent,
		AuthorName:  req.AuthorName,
		AuthorEmail: req.AuthorEmail,
		Content:     req.Content,
		ClientIP:    middleware.ClientIP(r),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, created)
}

// List は投稿のコメント一覧を返す。
// GET /api/comments/{postId}
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "postId")
	postID, err := strconv.Atoi(raw)
	if err != nil || postID <= 0 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidIDError(raw))
		return
	}

	list, err := h.service.List(r.Context(), postID)
	if err != nil {
		slog.Warn("コメント一覧の取得に失敗しました",
			slog.Int("post_id", postID),
			slog.String("error", err.Error()),
		)
		middleware.WriteErrorResponse(w, http.StatusBadGateway, model.NewUpstreamFailedError())
		return
	}

	middleware.WriteJSON(w, http.StatusOK, list)
}
