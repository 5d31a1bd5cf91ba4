package config

import (
	"context"
	"errors"
	"os"
	"osenaabo-go/internal/filestore"
	"osenaabo-go/internal/models"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	assert.Equal(t, "SportyBetNg", cfg.Platform)
	assert.Equal(t, 5.0, cfg.DailyTargetPercent)
	assert.Equal(t, 0.001, cfg.BaseBetRate)
	assert.Equal(t, []string{"09:00-12:00", "14:00-17:00", "19:00-22:00"}, cfg.BettingHours)
	assert.Equal(t, "info", cfg.LogConfig.Level)
}

func TestLoadConfigKeepsFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(`{
  "platform": "BetwayNg",
  "daily_target_percent": 7.5,
  "validator": {"command": ["check-license", "--json"]}
}`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "BetwayNg", cfg.Platform)
	assert.Equal(t, 7.5, cfg.DailyTargetPercent)
	assert.Equal(t, []string{"check-license", "--json"}, cfg.Validator.Command)
	assert.Equal(t, 30, cfg.Validator.TimeoutSec)
	assert.Equal(t, 0.001, cfg.BaseBetRate, "unset fields take defaults")
}

func TestLoadConfigCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(`{"platform": `), 0o600))

	cfg, err := LoadConfig(path)
	assert.True(t, errors.Is(err, filestore.ErrCorrupt))
	require.NotNil(t, cfg)
	assert.Equal(t, *Default(), *cfg)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvPlatform, "BetwayNg")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogConfig.Level)
	assert.Equal(t, "BetwayNg", cfg.Platform)
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	cfg := Default()
	cfg.DailyTargetPercent = 4
	require.NoError(t, Save(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4.0, loaded.DailyTargetPercent)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(Default()))

	bad := Default()
	bad.Platform = "Nowhere"
	assert.Error(t, Validate(bad))

	bad = Default()
	bad.BettingHours = []string{"late"}
	assert.Error(t, Validate(bad))
}

func TestDataDir(t *testing.T) {
	t.Setenv(EnvDataDir, "/srv/osenaabo")
	assert.Equal(t, "/srv/osenaabo", DataDir())

	t.Setenv(EnvDataDir, "")
	assert.Equal(t, "Osenaabo", filepath.Base(DataDir()))
}

func TestWatchReloadsOnSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Default()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *models.Config, 4)
	require.NoError(t, Watch(ctx, path, zap.NewNop(), func(cfg *models.Config) { changes <- cfg }))

	cfg := Default()
	cfg.DailyTargetPercent = 9
	require.NoError(t, Save(path, cfg))

	select {
	case got := <-changes:
		assert.Equal(t, 9.0, got.DailyTargetPercent)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}
