// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/wpfront/internal/model"
)

// CommentAuditRepository はコメント投稿の監査ログの永続化インターフェース。
type CommentAuditRepository interface {
	// Create は監査ログを1件記録する。IDが空の場合は採番する。
	Create(ctx context.Context, entry *model.CommentAudit) error

	// CountByOutcomeSince はsince以降の結果ごとの件数を返す。
	CountByOutcomeSince(ctx context.Context, since time.Time) (map[string]int, error)
}
