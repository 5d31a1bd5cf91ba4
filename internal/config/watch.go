package config

import (
	"context"
	"osenaabo-go/internal/models"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch calls onChange with the freshly loaded config whenever the file at path
// is written or replaced, until ctx is done. The parent directory is watched
// because saves replace the file by rename. Corrupt or invalid edits are
// logged and skipped.
func Watch(ctx context.Context, path string, logger *zap.Logger, onChange func(*models.Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return err
	}

	go func() {
		defer w.Close()
		target := filepath.Clean(path)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
					continue
				}
				cfg, err := LoadConfig(path)
				if err != nil {
					logger.Warn("ignoring unreadable config change", zap.Error(err))
					continue
				}
				if err := Validate(cfg); err != nil {
					logger.Warn("ignoring invalid config change", zap.Error(err))
					continue
				}
				logger.Info("config reloaded",
					zap.Float64("daily_target_percent", cfg.DailyTargetPercent),
					zap.Strings("betting_hours", cfg.BettingHours))
				onChange(cfg)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("config watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
