package cleanup

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type fakeResult struct {
	rowsAffected int64
	err          error
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.rowsAffected, r.err }

// recordingExecutor は実行されたDELETE文と引数を記録する。
type recordingExecutor struct {
	calls  int
	query  string
	args   []interface{}
	result sql.Result
	err    error
}

func (e *recordingExecutor) ExecContext(_ context.Context, query string, args ...interface{}) (sql.Result, error) {
	e.calls++
	e.query = query
	e.args = args
	return e.result, e.err
}

type fakeCounter struct {
	counts map[string]int
	err    error
	since  time.Time
}

func (c *fakeCounter) CountByOutcomeSince(_ context.Context, since time.Time) (map[string]int, error) {
	c.since = since
	return c.counts, c.err
}

func newJob(exec Executor, counter OutcomeCounter) (*CleanupJob, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	return NewCleanupJob(exec, counter, logger), &buf
}

// logEntries はJSONログを1行ずつデコードする。
func logEntries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e map[string]any
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("ログがJSONではない: %v (%s)", err, line)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestNewCleanupJob_DefaultRetention(t *testing.T) {
	job, _ := newJob(&recordingExecutor{result: fakeResult{}}, nil)

	if job.RetentionDays != DefaultRetentionDays {
		t.Errorf("RetentionDays = %d, want %d", job.RetentionDays, DefaultRetentionDays)
	}
}

func TestCleanupJob_Run_DeletesExpiredAudits(t *testing.T) {
	tests := []struct {
		name         string
		retention    int
		wantInterval string
	}{
		{name: "既定の保持期間", retention: DefaultRetentionDays, wantInterval: "30 days"},
		{name: "短い保持期間", retention: 7, wantInterval: "7 days"},
		{name: "長い保持期間", retention: 90, wantInterval: "90 days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &recordingExecutor{result: fakeResult{rowsAffected: 5}}
			job, buf := newJob(exec, nil)
			job.RetentionDays = tt.retention

			if err := job.Run(context.Background()); err != nil {
				t.Fatalf("Run() がエラーを返した: %v", err)
			}

			if !strings.Contains(exec.query, "DELETE FROM comment_audits") || !strings.Contains(exec.query, "created_at") {
				t.Errorf("監査ログの削除クエリではない: %s", exec.query)
			}
			if len(exec.args) != 1 || exec.args[0] != tt.wantInterval {
				t.Errorf("interval引数 = %v, want [%s]", exec.args, tt.wantInterval)
			}

			entries := logEntries(t, buf)
			if len(entries) == 0 {
				t.Fatal("完了ログが出力されていない")
			}
			done := entries[0]
			if done["deleted_count"] != float64(5) {
				t.Errorf("deleted_count = %v, want 5", done["deleted_count"])
			}
			if done["retention_days"] != float64(tt.retention) {
				t.Errorf("retention_days = %v, want %d", done["retention_days"], tt.retention)
			}
			if _, ok := done["duration_ms"]; !ok {
				t.Error("duration_ms が記録されていない")
			}
		})
	}
}

func TestCleanupJob_Run_NothingToDelete(t *testing.T) {
	exec := &recordingExecutor{result: fakeResult{}}
	job, buf := newJob(exec, nil)

	// 削除対象がなくても繰り返し実行できる
	for i := 0; i < 2; i++ {
		if err := job.Run(context.Background()); err != nil {
			t.Fatalf("%d回目の Run() がエラーを返した: %v", i+1, err)
		}
	}

	if exec.calls != 2 {
		t.Errorf("ExecContext の呼び出し回数 = %d, want 2", exec.calls)
	}
	if entries := logEntries(t, buf); entries[0]["deleted_count"] != float64(0) {
		t.Errorf("0件でも deleted_count=0 を記録するべき: %v", entries[0])
	}
}

func TestCleanupJob_Run_Errors(t *testing.T) {
	tests := []struct {
		name string
		exec *recordingExecutor
	}{
		{name: "DELETEの失敗", exec: &recordingExecutor{err: sql.ErrConnDone}},
		{name: "削除件数の取得失敗", exec: &recordingExecutor{result: fakeResult{err: errors.New("driver does not support")}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := &fakeCounter{}
			job, buf := newJob(tt.exec, counter)

			if err := job.Run(context.Background()); err == nil {
				t.Fatal("Run() はエラーを返すべき")
			}

			entries := logEntries(t, buf)
			if len(entries) == 0 || entries[0]["level"] != "ERROR" {
				t.Errorf("ERRORレベルのログが記録されていない: %s", buf.String())
			}
			if !counter.since.IsZero() {
				t.Error("失敗時に投稿件数の集計を行うべきではない")
			}
		})
	}
}

func TestCleanupJob_Run_LogsOutcomeSummary(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int{"created": 3, "failed": 1}}
	job, buf := newJob(&recordingExecutor{result: fakeResult{}}, counter)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}

	if d := time.Since(counter.since); d < 23*time.Hour || d > 25*time.Hour {
		t.Errorf("集計の開始時刻が直近24時間になっていない: %v", d)
	}

	entries := logEntries(t, buf)
	if len(entries) != 2 {
		t.Fatalf("ログ件数 = %d, want 2: %s", len(entries), buf.String())
	}
	outcomes, ok := entries[1]["outcomes"].(map[string]any)
	if !ok {
		t.Fatalf("outcomes グループがない: %v", entries[1])
	}
	if outcomes["created"] != float64(3) || outcomes["failed"] != float64(1) {
		t.Errorf("outcomes = %v", outcomes)
	}
}

func TestCleanupJob_Run_SummaryFailureIsNotFatal(t *testing.T) {
	counter := &fakeCounter{err: errors.New("relation does not exist")}
	job, buf := newJob(&recordingExecutor{result: fakeResult{}}, counter)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("集計の失敗でRun()がエラーを返すべきではない: %v", err)
	}
	if !strings.Contains(buf.String(), `"level":"WARN"`) {
		t.Errorf("集計の失敗がWARNで記録されていない: %s", buf.String())
	}
}

func TestCleanupJob_Start_StopsOnCancel(t *testing.T) {
	exec := &recordingExecutor{result: fakeResult{}}
	job, _ := newJob(exec, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx, time.Hour)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("キャンセル後もStartが終了しない")
	}
	if exec.calls == 0 {
		t.Error("起動直後にRunが実行されていない")
	}
}
