package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"PolyPulse/pkg/logger"
)

// FileTier is the durable tier: one JSON file per sanitized key under a
// managed directory, bounded by a max entry count with oldest-by-mtime
// eviction.
type FileTier struct {
	dir        string
	maxEntries int
	log        *logger.Logger
}

// NewFileTier creates the on-disk tier rooted at dir.
func NewFileTier(dir string, opts ...FileOption) (*FileTier, error) {
	cfg := &FileConfig{
		MaxEntries: 200,
		Logger:     logger.Nop(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache dir: %w", err)
	}

	return &FileTier{
		dir:        dir,
		maxEntries: cfg.MaxEntries,
		log:        cfg.Logger,
	}, nil
}

func (ft *FileTier) path(key string) string {
	return filepath.Join(ft.dir, SanitizeKey(key)+".json")
}

func (ft *FileTier) GetRaw(_ context.Context, key string) ([]byte, time.Time, error) {
	path := ft.path(key)
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, ErrCacheMiss
	}

	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		// Corrupt entries are treated as absent, never surfaced.
		ft.log.Warn("removing corrupt cache file",
			logger.String("key", key), logger.Error(err))
		_ = os.Remove(path)
		return nil, time.Time{}, ErrCacheMiss
	}

	return env.Data, env.storedAt(), nil
}

func (ft *FileTier) SetRaw(_ context.Context, key string, raw []byte, storedAt time.Time) error {
	b, err := json.Marshal(envelope{Timestamp: toUnixSeconds(storedAt), Data: raw})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	// Write-then-rename keeps a crashed writer from leaving a torn file.
	path := ft.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename cache entry: %w", err)
	}

	ft.evict()
	return nil
}

func (ft *FileTier) Delete(_ context.Context, key string) error {
	err := os.Remove(ft.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Clear removes the managed *.json files only, not the directory itself
// or anything else a user dropped in it.
func (ft *FileTier) Clear(_ context.Context) error {
	files, err := filepath.Glob(filepath.Join(ft.dir, "*.json"))
	if err != nil {
		return err
	}
	for _, f := range files {
		_ = os.Remove(f)
	}
	return nil
}

func (ft *FileTier) Close() error { return nil }

// evict removes oldest-by-modification-time files until the entry count
// is back at or under the limit. LRU by mtime, not by access: reads do
// not touch files.
func (ft *FileTier) evict() {
	files, err := filepath.Glob(filepath.Join(ft.dir, "*.json"))
	if err != nil || len(files) <= ft.maxEntries {
		return
	}

	type fileAge struct {
		path  string
		mtime time.Time
	}
	aged := make([]fileAge, 0, len(files))
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		aged = append(aged, fileAge{path: f, mtime: info.ModTime()})
	}

	sort.Slice(aged, func(i, j int) bool { return aged[i].mtime.Before(aged[j].mtime) })

	excess := len(aged) - ft.maxEntries
	for _, f := range aged[:excess] {
		if err := os.Remove(f.path); err != nil {
			ft.log.Warn("cache eviction failed",
				logger.String("file", f.path), logger.Error(err))
		}
	}
}
