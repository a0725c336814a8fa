package main

import (
	"fmt"
	"log/slog"
	"os"

	"VestLedger/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point with error handling.
func run() error {
	cfg := parseFlags()

	level := slog.LevelInfo
	if cfg.LogDebug {
		level = slog.LevelDebug
	}
	logger.Init(level)

	if cfg.SnapshotExport != "" {
		return exportSnapshot(cfg.DataPath, cfg.SnapshotExport)
	}

	if cfg.SnapshotImport != "" {
		return importSnapshot(cfg.DataPath, cfg.SnapshotImport)
	}

	if cfg.AdminToken == "" {
		return fmt.Errorf("-admin-token is required")
	}

	genesis, err := loadGenesis(cfg.GenesisPath)
	if err != nil {
		return fmt.Errorf("load genesis:\n%w", err)
	}
	cfg.Genesis = genesis

	node, err := NewNode(cfg)
	if err != nil {
		return fmt.Errorf("create node:\n%w", err)
	}

	printStartupInfo(cfg)

	return node.Run()
}

// printStartupInfo displays node configuration at startup.
func printStartupInfo(cfg *Config) {
	logger.Info("starting vestd node",
		"http", cfg.HTTPAddress,
		"data", cfg.DataPath,
		"admin", cfg.Genesis.Admin,
		"block_interval", cfg.BlockInterval,
	)
}
