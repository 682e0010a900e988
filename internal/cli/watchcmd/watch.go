// Package watchcmd implements `gametracker watch`: watch a local
// staging directory and run a synchronization pass for every newly
// delivered batch file.
package watchcmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/pressplay/gametracker/internal/catalog/engine"
	common "github.com/pressplay/gametracker/internal/cli/common"
	"github.com/pressplay/gametracker/internal/db"
	repocatalog "github.com/pressplay/gametracker/internal/repo/gorm/catalog"
)

// debounceDelay lets the scraper finish writing a batch file before the
// watcher picks it up.
const debounceDelay = 500 * time.Millisecond

// New returns the `gametracker watch` command.
func New() *cobra.Command {
	var cfgFile, dir string
	var consume bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a staging directory and sync each delivered batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := common.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log := common.SetupLoggerFromViper(v)

			if dir == "" {
				dir = v.GetString("staging.base_dir")
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("ensure staging dir: %w", err)
			}

			gdb, err := db.Open(v.GetString("dsn"))
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			if err := repocatalog.AutoMigrate(gdb); err != nil {
				return fmt.Errorf("migrate store: %w", err)
			}

			w := &watcher{
				eng:        engine.New(gdb, log),
				log:        log,
				consume:    consume,
				debouncers: make(map[string]*time.Timer),
			}
			return w.run(cmd.Context(), dir)
		},
	}

	cmd.Flags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.Flags().StringVar(&dir, "dir", "", "staging directory (defaults to staging.base_dir)")
	cmd.Flags().BoolVar(&consume, "consume", false, "delete each batch file after a committed run")
	return cmd
}

type watcher struct {
	eng     *engine.Engine
	log     *slog.Logger
	consume bool

	mu         sync.Mutex
	debouncers map[string]*time.Timer
}

func (w *watcher) run(ctx context.Context, dir string) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.log.Info("watching staging directory", "dir", dir)

	// pick up anything already sitting in the directory
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scan staging dir: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() && isBatchFile(e.Name()) {
			w.process(ctx, filepath.Join(dir, e.Name()))
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 || !isBatchFile(ev.Name) {
				continue
			}
			w.schedule(ctx, ev.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watch error", "error", err)
		}
	}
}

// schedule debounces repeated events for the same file into one run.
func (w *watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debouncers[path]; ok {
		t.Stop()
	}
	w.debouncers[path] = time.AfterFunc(debounceDelay, func() {
		w.mu.Lock()
		delete(w.debouncers, path)
		w.mu.Unlock()
		w.process(ctx, path)
	})
}

func (w *watcher) process(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		w.log.Error("read batch", "path", path, "error", err)
		return
	}
	report, err := w.eng.SyncBatch(ctx, data)
	if err != nil {
		w.log.Error("sync batch", "path", path, "error", err)
		return
	}
	w.log.Info("batch synchronized",
		"path", path,
		"received", report.Received,
		"new_games", report.NewGames,
		"already_known", report.AlreadyKnown,
	)
	if w.consume {
		if err := os.Remove(path); err != nil {
			w.log.Error("consume batch", "path", path, "error", err)
		}
	}
}

func isBatchFile(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".json")
}
