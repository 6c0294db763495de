// Package cleanup はコメント監査ログの自動削除ジョブを提供する。
// 保持期間（デフォルト30日）を超過した監査ログを日次バッチで削除する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// DefaultRetentionDays は監査ログの既定の保持日数。
const DefaultRetentionDays = 30

// DefaultInterval はジョブの既定の実行間隔。
const DefaultInterval = 24 * time.Hour

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// OutcomeCounter は直近の投稿結果の件数を返す。
type OutcomeCounter interface {
	CountByOutcomeSince(ctx context.Context, since time.Time) (map[string]int, error)
}

// CleanupJob は保持期間を超過した監査ログの自動削除ジョブ。
// 削除は冪等で、対象がなくてもエラーにならない。
type CleanupJob struct {
	db            Executor
	counter       OutcomeCounter
	logger        *slog.Logger
	RetentionDays int // 監査ログの保持日数（デフォルト: 30）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// counterを指定した場合、実行のたびに直近24時間の投稿結果の件数をログに残す。
func NewCleanupJob(db Executor, counter OutcomeCounter, logger *slog.Logger) *CleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{
		db:            db,
		counter:       counter,
		logger:        logger,
		RetentionDays: DefaultRetentionDays,
	}
}

// Run は保持期間を超過した監査ログを削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	interval := fmt.Sprintf("%d days", j.RetentionDays)

	query := `DELETE FROM comment_audits WHERE created_at < now() - $1::interval`
	result, err := j.db.ExecContext(ctx, query, interval)
	if err != nil {
		j.logger.Error("監査ログのクリーンアップに失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("監査ログのクリーンアップに失敗: %w", err)
	}

	deletedCount, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	j.logger.Info("監査ログのクリーンアップが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	j.logSummary(ctx, start)
	return nil
}

func (j *CleanupJob) logSummary(ctx context.Context, now time.Time) {
	if j.counter == nil {
		return
	}
	counts, err := j.counter.CountByOutcomeSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		j.logger.Warn("コメント投稿件数の集計に失敗しました", slog.String("error", err.Error()))
		return
	}
	attrs := make([]any, 0, len(counts))
	for outcome, n := range counts {
		attrs = append(attrs, slog.Int(outcome, n))
	}
	j.logger.Info("直近24時間のコメント投稿", slog.Group("outcomes", attrs...))
}

// Start は起動直後に1回、その後intervalごとにRunを実行する。ctxが終了するまでブロックする。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	// Runはエラーをログ済み
	_ = j.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
