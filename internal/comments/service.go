package comments

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/wpfront/internal/model"
	"github.com/hitoshi/wpfront/internal/repository"
	"github.com/hitoshi/wpfront/internal/wp"
)

// ErrSubmitFailed はCMSへのコメント投稿が失敗したことを示す。
// 原因はログにのみ記録する。
var ErrSubmitFailed = errors.New("コメントの投稿に失敗しました")

// Gateway はコメントの取得と作成に使うCMSの操作。
// ItemByIDは取得できない場合にnilを返す。
type Gateway interface {
	Comments(ctx context.Context, postID int) ([]model.Comment, error)
	CreateComment(ctx context.Context, nc wp.NewComment) (*model.Comment, error)
	ItemByID(ctx context.Context, restBase string, id int) *model.Entity
}

// postsRestBase はコメント受付状態を確認する投稿のエンドポイント。
const postsRestBase = "posts"

// HTMLSanitizer はコメント本文を表示用に無害化する。
type HTMLSanitizer interface {
	SanitizeComment(rawHTML string) string
}

// SubmissionRecorder はコメント投稿の結果を記録する。
type SubmissionRecorder interface {
	RecordCommentSubmission(result string)
}

// SubmitInput はコメント投稿の入力。
type SubmitInput struct {
	PostID      int
	ParentID    int
	AuthorName  string
	AuthorEmail string
	Content     string
	// ClientIP は監査ログにハッシュ化して記録する。
	ClientIP string
}

// Service はコメントの取得と投稿のサービス層。
type Service struct {
	gateway   Gateway
	audit     repository.CommentAuditRepository
	sanitizer HTMLSanitizer
	metrics   SubmissionRecorder
	logger    *slog.Logger
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// auditがnilの場合は監査ログを記録しない。sanitizerがnilの場合は本文をそのまま返す。
func NewService(
	gateway Gateway,
	audit repository.CommentAuditRepository,
	sanitizer HTMLSanitizer,
	metrics SubmissionRecorder,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		gateway:   gateway,
		audit:     audit,
		sanitizer: sanitizer,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// List は投稿のコメントをCMSの返す順序のまま返す。
func (s *Service) List(ctx context.Context, postID int) ([]model.Comment, error) {
	if postID <= 0 {
		return nil, model.NewInvalidIDError(fmt.Sprint(postID))
	}
	list, err := s.gateway.Comments(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("コメント一覧の取得に失敗しました: %w", err)
	}
	for i := range list {
		list[i].Content.Rendered = s.sanitize(list[i].Content.Rendered)
	}
	return list, nil
}

// Thread は投稿のコメントを取得済みのThreadを返す。
func (s *Service) Thread(ctx context.Context, postID int) (*Thread, error) {
	list, err := s.List(ctx, postID)
	if err != nil {
		return nil, err
	}
	t := NewThread(postID)
	t.Reload(list)
	return t, nil
}

// Submit は入力を検証し、未承認のコメントとしてCMSに投稿する。
// 検証エラーとコメントを受け付けていない投稿はmodel.APIError、
// CMSへの投稿失敗はステータスに関係なくErrSubmitFailedを返す。
// 投稿を取得できない場合は受付状態の判断をCMSに任せる。
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*model.Comment, error) {
	in.AuthorName = strings.TrimSpace(in.AuthorName)
	in.AuthorEmail = strings.TrimSpace(in.AuthorEmail)
	in.Content = strings.TrimSpace(in.Content)

	if err := validate(in); err != nil {
		s.finish(ctx, in, model.AuditOutcomeRejected, 0)
		return nil, err
	}

	if post := s.gateway.ItemByID(ctx, postsRestBase, in.PostID); post != nil && !post.CommentsOpen() {
		s.logger.Info("コメントを受け付けていない投稿への投稿です",
			slog.Int("post_id", in.PostID),
		)
		s.finish(ctx, in, model.AuditOutcomeRejected, 0)
		return nil, model.NewCommentsDisabledError(in.PostID)
	}

	created, err := s.gateway.CreateComment(ctx, wp.NewComment{
		Post:        in.PostID,
		Parent:      in.ParentID,
		AuthorName:  in.AuthorName,
		AuthorEmail: in.AuthorEmail,
		Content:     in.Content,
	})
	if err != nil {
		s.logger.Error("コメントの投稿に失敗しました",
			slog.Int("post_id", in.PostID),
			slog.String("error", err.Error()),
		)
		s.finish(ctx, in, model.AuditOutcomeFailed, 0)
		return nil, ErrSubmitFailed
	}

	// CMSが返さない場合も未承認として扱う
	if created.Status == "" {
		created.Status = model.CommentStatusUnapproved
	}
	if created.Post == 0 {
		created.Post = in.PostID
	}
	created.Content.Rendered = s.sanitize(created.Content.Rendered)

	s.finish(ctx, in, model.AuditOutcomeCreated, created.ID)
	return created, nil
}

func validate(in SubmitInput) error {
	if in.PostID <= 0 {
		return model.NewInvalidIDError(fmt.Sprint(in.PostID))
	}
	var missing []string
	if in.AuthorName == "" {
		missing = append(missing, "author_name")
	}
	if in.Content == "" {
		missing = append(missing, "content")
	}
	if len(missing) > 0 {
		return model.NewMissingFieldsError(missing...)
	}
	if in.ParentID < 0 {
		return model.NewInvalidIDError(fmt.Sprint(in.ParentID))
	}
	return nil
}

// finish はメトリクスと監査ログに投稿結果を記録する。
// 監査ログの失敗は投稿結果に影響させない。
func (s *Service) finish(ctx context.Context, in SubmitInput, outcome string, commentID int) {
	if s.metrics != nil {
		s.metrics.RecordCommentSubmission(outcome)
	}
	if s.audit == nil {
		return
	}
	entry := &model.CommentAudit{
		PostID:       in.PostID,
		ParentID:     in.ParentID,
		Outcome:      outcome,
		CommentID:    commentID,
		ClientIPHash: hashClientIP(in.ClientIP),
		CreatedAt:    s.now(),
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("コメント監査ログの記録に失敗しました",
			slog.Int("post_id", in.PostID),
			slog.String("outcome", outcome),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) sanitize(rawHTML string) string {
	if s.sanitizer == nil {
		return rawHTML
	}
	return s.sanitizer.SanitizeComment(rawHTML)
}

func hashClientIP(ip string) string {
	if ip == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:])
}
