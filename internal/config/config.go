package config

import (
	"errors"
	"fmt"
	"os"
	"osenaabo-go/internal/filestore"
	"osenaabo-go/internal/models"
	"osenaabo-go/internal/schedule"
	"path/filepath"
	"strings"
)

// Environment variables read by the application.
const (
	EnvDataDir  = "OSENAABO_DATA_DIR"
	EnvLogLevel = "OSENAABO_LOG_LEVEL"
	EnvPlatform = "OSENAABO_PLATFORM"
)

// FileName is the config file inside the data directory.
const FileName = "config.json"

// Default 返回所有字段都已填充默认值的配置
func Default() *models.Config {
	cfg := &models.Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *models.Config) {
	if cfg.Platform == "" {
		cfg.Platform = "SportyBetNg"
	}
	if cfg.DailyTargetPercent <= 0 {
		cfg.DailyTargetPercent = 5.0
	}
	if cfg.BaseBetRate <= 0 {
		cfg.BaseBetRate = 0.001
	}
	if len(cfg.BettingHours) == 0 {
		cfg.BettingHours = append([]string(nil), schedule.DefaultHours...)
	}
	if cfg.Validator.TimeoutSec <= 0 {
		cfg.Validator.TimeoutSec = 30
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.LogConfig.Output == "" {
		cfg.LogConfig.Output = "both"
	}
	if cfg.LogConfig.File == "" {
		cfg.LogConfig.File = filepath.Join("logs", "osenaabo.log")
	}
	if cfg.LogConfig.MaxSize <= 0 {
		cfg.LogConfig.MaxSize = 10
	}
	if cfg.LogConfig.MaxBackups <= 0 {
		cfg.LogConfig.MaxBackups = 5
	}
	if cfg.LogConfig.MaxAge <= 0 {
		cfg.LogConfig.MaxAge = 30
	}
}

func applyEnv(cfg *models.Config) {
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.LogConfig.Level = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPlatform)); v != "" {
		cfg.Platform = v
	}
}

// LoadConfig 从指定路径加载JSON配置文件并解析到Config结构体中.
// A missing file yields the defaults and no error. A corrupt file also yields
// the defaults, together with an error wrapping filestore.ErrCorrupt for the caller to log.
func LoadConfig(path string) (*models.Config, error) {
	cfg := &models.Config{}
	err := filestore.ReadJSON(path, cfg)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		cfg = &models.Config{}
		err = nil
	default:
		cfg = &models.Config{}
	}
	applyDefaults(cfg)
	applyEnv(cfg)
	return cfg, err
}

// Save writes cfg to path.
func Save(path string, cfg *models.Config) error {
	return filestore.WriteJSON(path, cfg)
}

// Validate checks the fields that have a closed set of legal values.
func Validate(cfg *models.Config) error {
	if _, ok := models.PlatformURLs[cfg.Platform]; !ok {
		return fmt.Errorf("unknown platform %q", cfg.Platform)
	}
	if _, err := schedule.Parse(cfg.BettingHours); err != nil {
		return err
	}
	return nil
}

// DataDir returns the application-private directory holding every state file.
func DataDir() string {
	if dir := strings.TrimSpace(os.Getenv(EnvDataDir)); dir != "" {
		return dir
	}
	if base, err := os.UserConfigDir(); err == nil && base != "" {
		return filepath.Join(base, "Osenaabo")
	}
	return filepath.Join(os.TempDir(), "Osenaabo")
}
