package model

import "time"

// コメント投稿の監査ログに記録する結果
const (
	AuditOutcomeCreated  = "created"
	AuditOutcomeRejected = "rejected"
	AuditOutcomeFailed   = "failed"
)

// CommentAudit はコメント投稿1回分の監査ログ。
// CMS側のコメントやモデレーションとは独立した運用記録。
type CommentAudit struct {
	ID           string
	PostID       int
	ParentID     int
	Outcome      string
	// CommentID はCMSが採番したコメントID。作成に至らなかった場合は0。
	CommentID    int
	ClientIPHash string
	CreatedAt    time.Time
}
