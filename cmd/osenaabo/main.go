package main

import (
	"errors"
	"os"
	"osenaabo-go/internal/cli"
	"osenaabo-go/internal/config"
	"osenaabo-go/internal/logger"
	"path/filepath"

	"github.com/joho/godotenv"
)

func main() {
	// --- 加载 .env 文件 ---
	// The working directory's .env is read first; godotenv never overrides
	// variables that are already set, so it wins over the data directory's one.
	_ = godotenv.Load()
	_ = godotenv.Load(filepath.Join(config.DataDir(), ".env"))

	if err := cli.NewRootCommand().Execute(); err != nil {
		// Rejections were already reported by the command itself.
		if !errors.Is(err, cli.ErrRejected) {
			logger.S().Errorf("osenaabo: %v", err)
		}
		_ = logger.L().Sync()
		os.Exit(1)
	}
	_ = logger.L().Sync()
}
