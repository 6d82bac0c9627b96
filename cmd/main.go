package main

import (
	"log/slog"
	"os"

	"github.com/lumabyte/misspauling/internal/config"
	"github.com/lumabyte/misspauling/internal/server"
)

func main() {
	envConfig := config.LoadEnv()

	cfg, err := config.Load(envConfig.ConfigPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if envConfig.SecretKey == "" {
		slog.Error("MISS_PAULING_SECRET_KEY is not set")
		os.Exit(1)
	}

	if err := server.Start(cfg, envConfig); err != nil {
		os.Exit(1)
	}
}
