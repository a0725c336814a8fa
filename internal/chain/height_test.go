package chain

import (
	"path/filepath"
	"testing"

	"VestLedger/internal/storage"
)

func TestHeightStartsAtZero(t *testing.T) {
	db, err := storage.New(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer db.Close()

	h, err := New(db)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if h.Now() != 0 {
		t.Errorf("fresh height = %d, want 0", h.Now())
	}
}

func TestAdvance(t *testing.T) {
	db, err := storage.New(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer db.Close()

	h, err := New(db)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for i := uint64(1); i <= 5; i++ {
		next, err := h.Advance()
		if err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
		if next != i {
			t.Errorf("Advance = %d, want %d", next, i)
		}
	}

	if h.Now() != 5 {
		t.Errorf("height = %d, want 5", h.Now())
	}
}

func TestHeightPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")

	db, err := storage.New(path)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	h, err := New(db)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := h.Advance(); err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
	}

	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	db, err = storage.New(path)
	if err != nil {
		t.Fatalf("failed to reopen storage: %v", err)
	}
	defer db.Close()

	h, err = New(db)
	if err != nil {
		t.Fatalf("New after reopen failed: %v", err)
	}

	if h.Now() != 3 {
		t.Errorf("height after reopen = %d, want 3", h.Now())
	}
}
