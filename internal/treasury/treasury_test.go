package treasury

import (
	"math"
	"path/filepath"
	"testing"

	"VestLedger/internal/ledger"
	"VestLedger/internal/storage"
)

var (
	testAsset = ledger.Asset{0xA5}
	alice     = ledger.Account{0x0A}
	bob       = ledger.Account{0x0B}
)

// newTestTreasury creates a treasury over temporary storage.
func newTestTreasury(t *testing.T) (*Treasury, *storage.Storage) {
	t.Helper()

	db, err := storage.New(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return New(db), db
}

func TestCreditAndBalance(t *testing.T) {
	tr, _ := newTestTreasury(t)

	if err := tr.Credit(testAsset, alice, 1000); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	balance, err := tr.Balance(testAsset, alice)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance != 1000 {
		t.Errorf("balance = %d, want 1000", balance)
	}

	// Balances are per (asset, account).
	otherAsset := ledger.Asset{0xFF}

	balance, err = tr.Balance(otherAsset, alice)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance != 0 {
		t.Errorf("balance for other asset = %d, want 0", balance)
	}
}

func TestCreditOverflow(t *testing.T) {
	tr, _ := newTestTreasury(t)

	if err := tr.Credit(testAsset, alice, math.MaxUint64); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	if err := tr.Credit(testAsset, alice, 1); err == nil {
		t.Error("Credit accepted an overflowing amount")
	}
}

func TestTransfer(t *testing.T) {
	tr, db := newTestTreasury(t)

	if err := tr.Credit(testAsset, alice, 1000); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	batch := db.NewBatch()
	if err := tr.Transfer(batch, testAsset, alice, bob, 300); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	if err := batch.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	aliceBalance, _ := tr.Balance(testAsset, alice)
	bobBalance, _ := tr.Balance(testAsset, bob)

	if aliceBalance != 700 || bobBalance != 300 {
		t.Errorf("balances = %d, %d, want 700, 300", aliceBalance, bobBalance)
	}
}

func TestTransferInsufficient(t *testing.T) {
	tr, db := newTestTreasury(t)

	if err := tr.Credit(testAsset, alice, 100); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	batch := db.NewBatch()
	defer batch.Discard()

	if err := tr.Transfer(batch, testAsset, alice, bob, 101); err == nil {
		t.Error("Transfer accepted an amount exceeding the balance")
	}
}

func TestTransferZeroIsNoop(t *testing.T) {
	tr, db := newTestTreasury(t)

	batch := db.NewBatch()
	defer batch.Discard()

	// Zero from an unfunded account: skipped, not a failure.
	if err := tr.Transfer(batch, testAsset, alice, bob, 0); err != nil {
		t.Errorf("zero Transfer failed: %v", err)
	}
}

func TestConsecutiveTransfersSeeStagedDebits(t *testing.T) {
	tr, db := newTestTreasury(t)

	if err := tr.Credit(testAsset, alice, 100); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	batch := db.NewBatch()
	defer batch.Discard()

	if err := tr.Transfer(batch, testAsset, alice, bob, 60); err != nil {
		t.Fatalf("first Transfer failed: %v", err)
	}

	// The second transfer must see the 60 already staged out.
	if err := tr.Transfer(batch, testAsset, alice, bob, 60); err == nil {
		t.Error("second Transfer ignored the staged debit")
	}

	if err := tr.Transfer(batch, testAsset, alice, bob, 40); err != nil {
		t.Errorf("Transfer of remaining balance failed: %v", err)
	}
}

func TestDiscardedTransferLeavesBalances(t *testing.T) {
	tr, db := newTestTreasury(t)

	if err := tr.Credit(testAsset, alice, 1000); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	batch := db.NewBatch()
	if err := tr.Transfer(batch, testAsset, alice, bob, 400); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	batch.Discard()

	aliceBalance, _ := tr.Balance(testAsset, alice)
	bobBalance, _ := tr.Balance(testAsset, bob)

	if aliceBalance != 1000 || bobBalance != 0 {
		t.Errorf("balances = %d, %d, want 1000, 0", aliceBalance, bobBalance)
	}
}
