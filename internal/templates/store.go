package templates

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

//go:embed all:views
var embedded embed.FS

// DefaultDebounce はファイル変更から再読み込みまでの待ち時間。
const DefaultDebounce = 500 * time.Millisecond

// EmbeddedFS は組み込みのテンプレート一式を返す。
func EmbeddedFS() fs.FS {
	sub, err := fs.Sub(embedded, "views")
	if err != nil {
		// 埋め込みのディレクトリ名は固定のため発生しない
		panic(err)
	}
	return sub
}

// Store は現在のRegistryを保持し、テンプレートディレクトリの変更時に差し替える。
// 再読み込みに失敗した場合は直前のRegistryを使い続ける。
type Store struct {
	current atomic.Pointer[Registry]
	fsys    fs.FS
	opts    Options
	logger  *slog.Logger
}

// NewStore はfsysからテンプレートを読み込んだStoreを生成する。
func NewStore(fsys fs.FS, opts Options) (*Store, error) {
	reg, err := Load(fsys, opts)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{fsys: fsys, opts: opts, logger: logger}
	s.current.Store(reg)
	return s, nil
}

// Registry は現在のRegistryを返す。
func (s *Store) Registry() *Registry {
	return s.current.Load()
}

// Reload はテンプレートを読み込み直す。失敗時は現在のRegistryを維持してエラーを返す。
func (s *Store) Reload() error {
	reg, err := Load(s.fsys, s.opts)
	if err != nil {
		s.logger.Error("テンプレートの再読み込みに失敗しました。直前のテンプレートを使用します",
			slog.String("error", err.Error()),
		)
		return err
	}
	s.current.Store(reg)
	s.logger.Info("テンプレートを再読み込みしました")
	return nil
}

// Watch はdir以下の変更を監視し、debounce後にReloadする。ctxが終了するまでブロックする。
func (s *Store) Watch(ctx context.Context, dir string, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("ファイル監視の開始に失敗: %w", err)
	}
	defer watcher.Close()

	if err := addRecursive(watcher, dir); err != nil {
		return err
	}
	s.logger.Info("テンプレートディレクトリの監視を開始しました", slog.String("dir", dir))

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if event.Has(fsnotify.Create) && isDir(event.Name) {
				if err := watcher.Add(event.Name); err != nil {
					s.logger.Warn("ディレクトリを監視に追加できません",
						slog.String("dir", event.Name),
						slog.String("error", err.Error()),
					)
				}
			}
			s.logger.Debug("テンプレートの変更を検出しました",
				slog.String("file", event.Name),
				slog.String("op", event.Op.String()),
			)

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				_ = s.Reload()
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("ファイル監視でエラーが発生しました", slog.String("error", err.Error()))
		}
	}
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("監視対象のディレクトリがありません: %w", err)
	}
	if !info.IsDir() {
		return errors.New("監視対象はディレクトリである必要があります: " + root)
	}
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(p)
		}
		return nil
	})
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
