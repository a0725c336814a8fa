package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"time"

	yaml "go.yaml.in/yaml/v3"

	"VestLedger/internal/ledger"
)

// Config holds the node configuration.
type Config struct {
	// DataPath is the directory for persistent storage.
	DataPath string

	// HTTPAddress is the HTTP API listen address.
	HTTPAddress string

	// GenesisPath is the path to the YAML genesis file.
	GenesisPath string

	// AdminToken authorizes privileged API requests.
	AdminToken string

	// BlockInterval is the height advance interval.
	BlockInterval time.Duration

	// RatePerSec limits mutating API requests; 0 disables.
	RatePerSec float64

	// RateBurst is the rate limiter burst size.
	RateBurst int

	// LogDebug enables debug logging.
	LogDebug bool

	// SnapshotExport, when set, exports a snapshot to this path and exits.
	SnapshotExport string

	// SnapshotImport, when set, imports a snapshot from this path and exits.
	SnapshotImport string

	// Genesis is the parsed genesis file.
	Genesis *Genesis
}

// Genesis declares the ledger's initial state: the admin, the custodian
// funding, and optionally pre-seeded schedules. Applied only to a fresh
// data directory.
type Genesis struct {
	Admin     string            `yaml:"admin"`     // Admin is the hex admin account
	Custodian string            `yaml:"custodian"` // Custodian is the hex custodial account; derived from Admin if empty
	Funding   []GenesisFunding  `yaml:"funding"`
	Schedules []GenesisSchedule `yaml:"schedules"`
}

// GenesisFunding credits the custodian with asset units.
type GenesisFunding struct {
	Asset  string `yaml:"asset"`
	Amount uint64 `yaml:"amount"`
}

// GenesisSchedule pre-seeds one vesting schedule.
type GenesisSchedule struct {
	Beneficiary   string `yaml:"beneficiary"`
	Asset         string `yaml:"asset"`
	TotalAmount   uint64 `yaml:"totalAmount"`
	Start         uint64 `yaml:"start"`
	CliffDuration uint64 `yaml:"cliffDuration"`
	VestDuration  uint64 `yaml:"vestDuration"`
	Revocable     bool   `yaml:"revocable"`
}

// parseFlags parses command-line flags into Config.
func parseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.DataPath, "data", "./data", "Data directory path")
	flag.StringVar(&cfg.HTTPAddress, "http", ":8080", "HTTP API address")
	flag.StringVar(&cfg.GenesisPath, "genesis", "./genesis.yaml", "Genesis file path")
	flag.StringVar(&cfg.AdminToken, "admin-token", "", "Admin API token (required)")
	flag.DurationVar(&cfg.BlockInterval, "block-interval", time.Second, "Height advance interval")
	flag.Float64Var(&cfg.RatePerSec, "rate", 50, "Mutating request rate limit per second (0 disables)")
	flag.IntVar(&cfg.RateBurst, "burst", 100, "Rate limiter burst size")
	flag.BoolVar(&cfg.LogDebug, "debug", false, "Enable debug logging")
	flag.StringVar(&cfg.SnapshotExport, "snapshot-export", "", "Export a snapshot to this path and exit")
	flag.StringVar(&cfg.SnapshotImport, "snapshot-import", "", "Import a snapshot from this path and exit")
	flag.Parse()

	return cfg
}

// loadGenesis reads and validates the YAML genesis file.
func loadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis file:\n%w", err)
	}

	var g Genesis
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse genesis file:\n%w", err)
	}

	if g.Admin == "" {
		return nil, fmt.Errorf("genesis: admin account is required")
	}

	if _, err := parseHexAccount(g.Admin); err != nil {
		return nil, fmt.Errorf("genesis admin:\n%w", err)
	}

	if g.Custodian != "" {
		if _, err := parseHexAccount(g.Custodian); err != nil {
			return nil, fmt.Errorf("genesis custodian:\n%w", err)
		}
	}

	return &g, nil
}

// parseHexAccount decodes a 64-character hex account identifier.
func parseHexAccount(s string) (ledger.Account, error) {
	var account ledger.Account

	data, err := hex.DecodeString(s)
	if err != nil || len(data) != 32 {
		return account, fmt.Errorf("invalid account: %q", s)
	}

	copy(account[:], data)

	return account, nil
}

// parseHexAsset decodes a 64-character hex asset identifier.
func parseHexAsset(s string) (ledger.Asset, error) {
	var asset ledger.Asset

	data, err := hex.DecodeString(s)
	if err != nil || len(data) != 32 {
		return asset, fmt.Errorf("invalid asset: %q", s)
	}

	copy(asset[:], data)

	return asset, nil
}
