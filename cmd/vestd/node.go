package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zeebo/blake3"

	"VestLedger/internal/api"
	"VestLedger/internal/chain"
	"VestLedger/internal/ledger"
	"VestLedger/internal/logger"
	"VestLedger/internal/snapshot"
	"VestLedger/internal/storage"
	"VestLedger/internal/treasury"
)

// Node wires storage, treasury, ledger, clock, and the HTTP API.
type Node struct {
	cfg      *Config
	db       *storage.Storage
	treasury *treasury.Treasury
	ledger   *ledger.Ledger
	clock    *chain.Height
	api      *api.Server
	admin    ledger.Account
}

// NewNode creates a node from the given configuration.
func NewNode(cfg *Config) (*Node, error) {
	db, err := storage.New(cfg.DataPath)
	if err != nil {
		return nil, fmt.Errorf("open storage:\n%w", err)
	}

	clock, err := chain.New(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load height:\n%w", err)
	}

	admin, err := parseHexAccount(cfg.Genesis.Admin)
	if err != nil {
		db.Close()
		return nil, err
	}

	custodian := custodianAccount(cfg.Genesis, admin)

	t := treasury.New(db)
	l := ledger.New(db, t, ledger.SingleAdmin(admin), clock, custodian, admin)

	apiServer := api.New(api.Config{
		Addr:         cfg.HTTPAddress,
		AdminToken:   cfg.AdminToken,
		AdminAccount: admin,
		RatePerSec:   cfg.RatePerSec,
		RateBurst:    cfg.RateBurst,
	}, l, t, clock)

	node := &Node{
		cfg:      cfg,
		db:       db,
		treasury: t,
		ledger:   l,
		clock:    clock,
		api:      apiServer,
		admin:    admin,
	}

	if err := node.applyGenesis(); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply genesis:\n%w", err)
	}

	return node, nil
}

// custodianAccount resolves the custodial account: the configured one,
// or an account derived from the admin when left unset.
func custodianAccount(g *Genesis, admin ledger.Account) ledger.Account {
	if g.Custodian != "" {
		custodian, _ := parseHexAccount(g.Custodian)
		return custodian
	}

	h := blake3.New()
	h.Write([]byte("vesting-custodian:"))
	h.Write(admin[:])

	var custodian ledger.Account
	copy(custodian[:], h.Sum(nil))

	return custodian
}

// applyGenesis funds the custodian and seeds schedules on a fresh store.
// A store that already holds schedules or height is left untouched.
func (n *Node) applyGenesis() error {
	count, err := n.ledger.GlobalCount()
	if err != nil {
		return err
	}

	if count > 0 || n.clock.Now() > 0 {
		return nil
	}

	custodian := custodianAccount(n.cfg.Genesis, n.admin)

	for _, f := range n.cfg.Genesis.Funding {
		asset, err := parseHexAsset(f.Asset)
		if err != nil {
			return fmt.Errorf("genesis funding:\n%w", err)
		}

		if err := n.treasury.Credit(asset, custodian, f.Amount); err != nil {
			return fmt.Errorf("fund custodian:\n%w", err)
		}

		logger.Info("custodian funded", "asset", f.Asset, "amount", f.Amount)
	}

	for i, gs := range n.cfg.Genesis.Schedules {
		beneficiary, err := parseHexAccount(gs.Beneficiary)
		if err != nil {
			return fmt.Errorf("genesis schedule %d:\n%w", i, err)
		}

		asset, err := parseHexAsset(gs.Asset)
		if err != nil {
			return fmt.Errorf("genesis schedule %d:\n%w", i, err)
		}

		_, err = n.ledger.Create(
			n.admin,
			beneficiary,
			asset,
			gs.TotalAmount,
			gs.Start,
			gs.CliffDuration,
			gs.VestDuration,
			gs.Revocable,
		)
		if err != nil {
			return fmt.Errorf("genesis schedule %d:\n%w", i, err)
		}
	}

	return nil
}

// Run starts the API and the height ticker, then blocks until a
// shutdown signal arrives.
func (n *Node) Run() error {
	if err := n.api.Start(); err != nil {
		return fmt.Errorf("start api:\n%w", err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go n.tickHeight(stop, done)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")

	close(stop)
	<-done

	if err := n.api.Stop(); err != nil {
		logger.Error("stop api", "error", err)
	}

	return n.db.Close()
}

// tickHeight advances the logical clock at the configured interval.
func (n *Node) tickHeight(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(n.cfg.BlockInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := n.clock.Advance(); err != nil {
				logger.Error("advance height", "error", err)
			}
		case <-stop:
			return
		}
	}
}

// exportSnapshot writes a compressed snapshot of the data directory.
func exportSnapshot(dataPath, outPath string) error {
	db, err := storage.New(dataPath)
	if err != nil {
		return fmt.Errorf("open storage:\n%w", err)
	}
	defer db.Close()

	data, err := snapshot.Export(db)
	if err != nil {
		return fmt.Errorf("export snapshot:\n%w", err)
	}

	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("write snapshot:\n%w", err)
	}

	logger.Info("snapshot exported", "path", outPath, "bytes", len(data))

	return nil
}

// importSnapshot restores a compressed snapshot into the data directory.
func importSnapshot(dataPath, inPath string) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read snapshot:\n%w", err)
	}

	db, err := storage.New(dataPath)
	if err != nil {
		return fmt.Errorf("open storage:\n%w", err)
	}
	defer db.Close()

	if err := snapshot.Import(db, data); err != nil {
		return fmt.Errorf("import snapshot:\n%w", err)
	}

	logger.Info("snapshot imported", "path", inPath)

	return nil
}
