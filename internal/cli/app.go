package cli

import (
	"fmt"
	"os"
	"osenaabo-go/internal/audit"
	"osenaabo-go/internal/config"
	"osenaabo-go/internal/hwid"
	"osenaabo-go/internal/license"
	"osenaabo-go/internal/logger"
	"osenaabo-go/internal/models"
	"osenaabo-go/internal/persistence"
	"osenaabo-go/internal/session"
	"osenaabo-go/internal/target"
	"osenaabo-go/internal/validation"
	"path/filepath"

	"go.uber.org/zap"
)

// Files and directories inside the data directory.
const (
	licenseFile    = "license.json"
	validationFile = "validation_state.json"
	botStateFile   = "bot_state.json"
	sessionsDir    = "sessions"
	auditDir       = "audit"
)

// App is the set of stores one command works with.
type App struct {
	DataDir    string
	ConfigPath string
	Config     *models.Config
	Logger     *zap.Logger

	Fingerprint *hwid.Fingerprinter
	Licenses    *license.Store
	Activator   *license.Activator
	Ledger      *session.Ledger
	Artifacts   *session.Artifacts
	Tracker     *target.Tracker
	Validation  *validation.Store

	recorder *audit.Recorder
	repo     persistence.AuditRepository
}

// openApp resolves the data directory, loads the config and builds every store.
// withAudit opens the audit database, which only one process may hold at a time.
func openApp(opts *RootOptions, withAudit bool) (*App, error) {
	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = config.DataDir()
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = filepath.Join(dataDir, config.FileName)
	}

	cfg, cfgErr := config.LoadConfig(configPath)
	if opts.Verbose {
		cfg.LogConfig.Level = "debug"
	}
	log := logger.InitLogger(cfg.LogConfig, dataDir)
	if cfgErr != nil {
		log.Warn("config unreadable, using defaults", zap.String("path", configPath), zap.Error(cfgErr))
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	app := &App{
		DataDir:     dataDir,
		ConfigPath:  configPath,
		Config:      cfg,
		Logger:      log,
		Fingerprint: hwid.New(),
		Licenses:    license.NewStore(filepath.Join(dataDir, licenseFile), log),
		Ledger:      session.NewLedger(filepath.Join(dataDir, sessionsDir), log),
		Artifacts:   session.NewArtifacts(filepath.Join(dataDir, sessionsDir), log),
		Tracker:     target.NewTracker(filepath.Join(dataDir, botStateFile), cfg.DailyTargetPercent, log),
		Validation:  validation.NewStore(filepath.Join(dataDir, validationFile), log),
	}

	var sink audit.Sink = audit.Discard{}
	if withAudit {
		repo, err := persistence.NewBadgerRepository(filepath.Join(dataDir, auditDir))
		if err != nil {
			log.Warn("audit trail unavailable", zap.Error(err))
		} else {
			app.repo = repo
			app.recorder = audit.NewRecorder(repo, log)
			app.recorder.Start()
			sink = app.recorder
		}
	}
	app.Activator = license.NewActivator(license.NewValidator(cfg.Validator), app.Licenses, app.Fingerprint, sink, log)
	return app, nil
}

// Audit returns the recorder, or nil when the audit trail is unavailable.
func (a *App) Audit() *audit.Recorder {
	return a.recorder
}

// Sink returns where audit events go.
func (a *App) Sink() audit.Sink {
	if a.recorder == nil {
		return audit.Discard{}
	}
	return a.recorder
}

// Close flushes the audit trail and the log.
func (a *App) Close() {
	if a.recorder != nil {
		a.recorder.Stop()
	}
	if a.repo != nil {
		if err := a.repo.Close(); err != nil {
			a.Logger.Warn("closing audit database", zap.Error(err))
		}
	}
	_ = a.Logger.Sync()
}

