package integration

import (
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"VestLedger/client"
	"VestLedger/internal/api"
	"VestLedger/internal/chain"
	"VestLedger/internal/ledger"
	"VestLedger/internal/snapshot"
	"VestLedger/internal/storage"
	"VestLedger/internal/treasury"
)

const adminToken = "integration-admin-token"

var (
	admin       = ledger.Account{0xAD}
	custodian   = ledger.Account{0xC0}
	beneficiary = ledger.Account{0xBE}
	asset       = ledger.Asset{0xA5}
)

// node bundles one full stack: storage, treasury, ledger, clock, HTTP API.
type node struct {
	db       *storage.Storage
	clock    *chain.Height
	treasury *treasury.Treasury
	ledger   *ledger.Ledger
	server   *httptest.Server
}

// startNode wires a full node over the given data directory.
func startNode(t *testing.T, dataPath string) *node {
	t.Helper()

	db, err := storage.New(dataPath)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	clock, err := chain.New(db)
	if err != nil {
		t.Fatalf("failed to load height: %v", err)
	}

	tr := treasury.New(db)
	l := ledger.New(db, tr, ledger.SingleAdmin(admin), clock, custodian, admin)

	srv := httptest.NewServer(api.New(api.Config{
		AdminToken:   adminToken,
		AdminAccount: admin,
	}, l, tr, clock).Handler())
	t.Cleanup(srv.Close)

	return &node{db: db, clock: clock, treasury: tr, ledger: l, server: srv}
}

// clientFor creates an API client talking to the node.
func (n *node) clientFor(token string) *client.Client {
	addr := strings.TrimPrefix(n.server.URL, "http://")
	return client.New(addr, token)
}

// advanceTo moves the chain height forward to the given value.
func (n *node) advanceTo(t *testing.T, height uint64) {
	t.Helper()

	for n.clock.Now() < height {
		if _, err := n.clock.Advance(); err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
	}
}

func TestFullVestingLifecycle(t *testing.T) {
	n := startNode(t, filepath.Join(t.TempDir(), "db"))

	if err := n.treasury.Credit(asset, custodian, 10_000); err != nil {
		t.Fatalf("fund custodian: %v", err)
	}

	adminClient := n.clientFor(adminToken)
	publicClient := n.clientFor("")

	// Create: cliff at height 10, fully vested at height 30.
	id, err := adminClient.CreateSchedule(client.CreateParams{
		Beneficiary:   beneficiary,
		Asset:         asset,
		TotalAmount:   10_000,
		Start:         0,
		CliffDuration: 10,
		VestDuration:  30,
		Revocable:     true,
	})
	if err != nil {
		t.Fatalf("CreateSchedule failed: %v", err)
	}
	if id != 1 {
		t.Errorf("schedule id = %d, want 1", id)
	}

	// Anonymous clients cannot create.
	if _, err := publicClient.CreateSchedule(client.CreateParams{
		Beneficiary:  beneficiary,
		Asset:        asset,
		TotalAmount:  1,
		VestDuration: 1,
	}); err == nil {
		t.Error("anonymous create succeeded")
	}

	// Before the cliff nothing is releasable.
	if _, err := publicClient.Release(beneficiary, id); err == nil {
		t.Error("release before cliff succeeded")
	}

	summary, err := publicClient.Summary(beneficiary, id)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if summary.Vested != 0 || summary.CliffPassed {
		t.Errorf("summary before cliff = %+v", summary)
	}

	// Halfway through the post-cliff span: 5000 of 10000 vested.
	n.advanceTo(t, 20)

	released, err := publicClient.Release(beneficiary, id)
	if err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if released != 5000 {
		t.Errorf("released = %d, want 5000", released)
	}

	balance, err := publicClient.Balance(asset, beneficiary)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance != 5000 {
		t.Errorf("beneficiary balance = %d, want 5000", balance)
	}

	// Advance a quarter further and revoke: 2500 newly vested goes to the
	// beneficiary, the unvested 2500 back to the admin.
	n.advanceTo(t, 25)

	if err := adminClient.Revoke(beneficiary, id); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	balance, err = publicClient.Balance(asset, beneficiary)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance != 7500 {
		t.Errorf("beneficiary balance after revoke = %d, want 7500", balance)
	}

	balance, err = publicClient.Balance(asset, admin)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance != 2500 {
		t.Errorf("admin balance after revoke = %d, want 2500", balance)
	}

	summary, err = publicClient.Summary(beneficiary, id)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if !summary.Revoked || summary.Released != 7500 {
		t.Errorf("summary after revoke = %+v", summary)
	}

	// The custodian paid everything out.
	balance, err = publicClient.Balance(asset, custodian)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance != 0 {
		t.Errorf("custodian balance = %d, want 0", balance)
	}
}

func TestPauseBlocksReleases(t *testing.T) {
	n := startNode(t, filepath.Join(t.TempDir(), "db"))

	if err := n.treasury.Credit(asset, custodian, 1000); err != nil {
		t.Fatalf("fund custodian: %v", err)
	}

	adminClient := n.clientFor(adminToken)
	publicClient := n.clientFor("")

	id, err := adminClient.CreateSchedule(client.CreateParams{
		Beneficiary:   beneficiary,
		Asset:         asset,
		TotalAmount:   1000,
		CliffDuration: 2,
		VestDuration:  4,
	})
	if err != nil {
		t.Fatalf("CreateSchedule failed: %v", err)
	}

	n.advanceTo(t, 3)

	if err := adminClient.Pause(); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}

	if _, err := publicClient.Release(beneficiary, id); err == nil {
		t.Error("release succeeded while paused")
	}

	status, err := publicClient.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !status.Paused {
		t.Error("status does not report paused")
	}

	if err := adminClient.Resume(); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}

	if _, err := publicClient.Release(beneficiary, id); err != nil {
		t.Errorf("release after resume failed: %v", err)
	}
}

func TestSnapshotRestoresState(t *testing.T) {
	srcPath := filepath.Join(t.TempDir(), "src")
	src := startNode(t, srcPath)

	if err := src.treasury.Credit(asset, custodian, 1000); err != nil {
		t.Fatalf("fund custodian: %v", err)
	}

	adminClient := src.clientFor(adminToken)

	id, err := adminClient.CreateSchedule(client.CreateParams{
		Beneficiary:   beneficiary,
		Asset:         asset,
		TotalAmount:   1000,
		CliffDuration: 2,
		VestDuration:  4,
	})
	if err != nil {
		t.Fatalf("CreateSchedule failed: %v", err)
	}

	src.advanceTo(t, 3)

	if _, err := src.clientFor("").Release(beneficiary, id); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	image, err := snapshot.Export(src.db)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	dst := startNode(t, filepath.Join(t.TempDir(), "dst"))
	if err := snapshot.Import(dst.db, image); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	summary, err := dst.clientFor("").Summary(beneficiary, id)
	if err != nil {
		t.Fatalf("Summary on restored node failed: %v", err)
	}
	if summary.TotalAmount != 1000 || summary.Released != 500 {
		t.Errorf("restored summary = %+v", summary)
	}

	balance, err := dst.clientFor("").Balance(asset, beneficiary)
	if err != nil {
		t.Fatalf("Balance on restored node failed: %v", err)
	}
	if balance != 500 {
		t.Errorf("restored balance = %d, want 500", balance)
	}
}
