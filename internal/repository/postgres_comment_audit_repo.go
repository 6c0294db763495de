package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/wpfront/internal/model"
)

// PostgresCommentAuditRepo はPostgreSQLを使用したコメント監査ログリポジトリ。
type PostgresCommentAuditRepo struct {
	db *sql.DB
}

// NewPostgresCommentAuditRepo はPostgresCommentAuditRepoを生成する。
func NewPostgresCommentAuditRepo(db *sql.DB) *PostgresCommentAuditRepo {
	return &PostgresCommentAuditRepo{db: db}
}

// Create は監査ログを1件記録する。
func (r *PostgresCommentAuditRepo) Create(ctx context.Context, entry *model.CommentAudit) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO comment_audits (id, post_id, parent_id, outcome, comment_id, client_ip_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.PostID, entry.ParentID, entry.Outcome,
		nullableInt(entry.CommentID), entry.ClientIPHash, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create comment audit: %w", err)
	}
	return nil
}

// CountByOutcomeSince はsince以降の結果ごとの件数を返す。
func (r *PostgresCommentAuditRepo) CountByOutcomeSince(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT outcome, count(*)
		 FROM comment_audits
		 WHERE created_at >= $1
		 GROUP BY outcome`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count comment audits: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("failed to scan comment audit count: %w", err)
		}
		counts[outcome] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comment audit counts: %w", err)
	}
	return counts, nil
}

func nullableInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: v != 0}
}

// compile-time interface check
var _ CommentAuditRepository = (*PostgresCommentAuditRepo)(nil)
