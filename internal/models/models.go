package models

// Config holds every user-editable setting, stored as config.json in the data directory.
type Config struct {
	Platform           string          `json:"platform"`             // selected web platform, e.g. "SportyBetNg"
	DailyTargetPercent float64         `json:"daily_target_percent"` // profit % that locks the day
	BaseBetRate        float64         `json:"base_bet_rate"`        // base bet = capital * rate
	BettingHours       []string        `json:"betting_hours"`        // "HH:MM-HH:MM" windows, local time
	Validator          ValidatorConfig `json:"validator"`            // external license validator
	LogConfig          LogConfig       `json:"log"`
}

// ValidatorConfig describes how the external license validator is reached.
type ValidatorConfig struct {
	Command    []string `json:"command,omitempty"` // helper program and args; empty means unavailable
	TimeoutSec int      `json:"timeout_sec,omitempty"`
}

// LogConfig 定义了日志相关的配置
type LogConfig struct {
	Level      string `json:"level"`       // "debug", "info", "warn", "error"
	Output     string `json:"output"`      // "console", "file", "both"
	File       string `json:"file"`        // log file path, relative paths resolve against the data directory
	MaxSize    int    `json:"max_size"`    // MB per file
	MaxBackups int    `json:"max_backups"` // rotated files kept
	MaxAge     int    `json:"max_age"`     // days
	Compress   bool   `json:"compress"`
}

// Platform start pages, keyed by Config.Platform.
var PlatformURLs = map[string]string{
	"SportyBetNg": "https://www.sportybet.com/ng/",
	"BetwayNg":    "https://www.betway.com.ng/",
}
