package ledger

import (
	"encoding/binary"
	"fmt"

	"VestLedger/internal/storage"
)

// Pebble key prefixes for ledger entries.
var (
	scheduleKeyPrefix = []byte("s:")
	countKeyPrefix    = []byte("c:")
	assetKeyPrefix    = []byte("a:")
	globalCountKey    = []byte("n:")
	pausedKey         = []byte("p:")
)

// store persists schedule records and the ledger counters.
type store struct {
	db *storage.Storage
}

// newStore creates a ledger store backed by the given storage.
func newStore(db *storage.Storage) *store {
	return &store{db: db}
}

// scheduleKey builds the key for a schedule: "s:" + beneficiary + big-endian id.
// Big-endian ids keep a beneficiary's schedules in creation order under
// prefix iteration.
func scheduleKey(beneficiary Account, id uint64) []byte {
	key := make([]byte, len(scheduleKeyPrefix)+32+8)
	copy(key, scheduleKeyPrefix)
	copy(key[len(scheduleKeyPrefix):], beneficiary[:])
	binary.BigEndian.PutUint64(key[len(scheduleKeyPrefix)+32:], id)

	return key
}

// countKey builds the key for a beneficiary's schedule count.
func countKey(beneficiary Account) []byte {
	key := make([]byte, len(countKeyPrefix)+32)
	copy(key, countKeyPrefix)
	copy(key[len(countKeyPrefix):], beneficiary[:])

	return key
}

// assetKey builds the key for an asset's committed total.
func assetKey(asset Asset) []byte {
	key := make([]byte, len(assetKeyPrefix)+32)
	copy(key, assetKeyPrefix)
	copy(key[len(assetKeyPrefix):], asset[:])

	return key
}

// newBatch creates an atomic write batch over the underlying storage.
func (st *store) newBatch() *storage.Batch {
	return st.db.NewBatch()
}

// get retrieves a schedule. Returns nil if not found.
func (st *store) get(beneficiary Account, id uint64) (*Schedule, error) {
	data, err := st.db.Get(scheduleKey(beneficiary, id))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	return decodeSchedule(beneficiary, id, data)
}

// putBatch stages a schedule write in the given batch.
func (st *store) putBatch(batch *storage.Batch, s *Schedule) error {
	return batch.Set(scheduleKey(s.Beneficiary, s.ID), encodeSchedule(s))
}

// list returns all schedules of a beneficiary in creation order.
func (st *store) list(beneficiary Account) ([]*Schedule, error) {
	prefix := scheduleKey(beneficiary, 0)[:len(scheduleKeyPrefix)+32]

	var schedules []*Schedule

	err := st.db.IteratePrefix(prefix, func(key, value []byte) error {
		if len(key) != len(prefix)+8 {
			return nil
		}

		id := binary.BigEndian.Uint64(key[len(prefix):])

		s, err := decodeSchedule(beneficiary, id, value)
		if err != nil {
			return fmt.Errorf("decode schedule %d:\n%w", id, err)
		}

		schedules = append(schedules, s)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return schedules, nil
}

// count returns the number of schedules ever created for a beneficiary.
func (st *store) count(beneficiary Account) (uint64, error) {
	return st.readCounter(countKey(beneficiary))
}

// assetTotal returns the running sum of all committed amounts for an asset.
func (st *store) assetTotal(asset Asset) (uint64, error) {
	return st.readCounter(assetKey(asset))
}

// globalCount returns the total number of schedules ever created.
func (st *store) globalCount() (uint64, error) {
	return st.readCounter(globalCountKey)
}

// setCounterBatch stages a counter write in the given batch.
func (st *store) setCounterBatch(batch *storage.Batch, key []byte, value uint64) error {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, value)

	return batch.Set(key, buf)
}

// readCounter reads an 8-byte little-endian counter. Missing keys read as 0.
func (st *store) readCounter(key []byte) (uint64, error) {
	data, err := st.db.Get(key)
	if err != nil {
		return 0, err
	}
	if data == nil {
		return 0, nil
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("counter size: got %d, want 8", len(data))
	}

	return binary.LittleEndian.Uint64(data), nil
}

// paused reports whether the ledger pause flag is set.
func (st *store) paused() (bool, error) {
	data, err := st.db.Get(pausedKey)
	if err != nil {
		return false, err
	}

	return len(data) == 1 && data[0] == 1, nil
}

// setPaused sets or clears the ledger pause flag.
func (st *store) setPaused(v bool) error {
	b := byte(0)
	if v {
		b = 1
	}

	return st.db.Set(pausedKey, []byte{b})
}
