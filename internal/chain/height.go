package chain

import (
	"encoding/binary"
	"fmt"
	"sync"

	"VestLedger/internal/storage"
)

// heightKey is the Pebble key for the persisted chain height.
var heightKey = []byte("h:")

// Height is the node's logical clock: a monotonic block-height counter
// persisted across restarts. It implements ledger.Clock.
type Height struct {
	db *storage.Storage
	mu sync.Mutex
	h  uint64
}

// New loads the persisted height, starting at 0 on a fresh store.
func New(db *storage.Storage) (*Height, error) {
	data, err := db.Get(heightKey)
	if err != nil {
		return nil, fmt.Errorf("read height:\n%w", err)
	}

	var h uint64
	if data != nil {
		if len(data) != 8 {
			return nil, fmt.Errorf("height size: got %d, want 8", len(data))
		}
		h = binary.LittleEndian.Uint64(data)
	}

	return &Height{db: db, h: h}, nil
}

// Now returns the current height.
func (c *Height) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.h
}

// Advance increments the height by one and persists it.
// Returns the new height.
func (c *Height) Advance() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.h + 1

	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, next)

	if err := c.db.Set(heightKey, buf); err != nil {
		return c.h, fmt.Errorf("persist height:\n%w", err)
	}

	c.h = next

	return next, nil
}
