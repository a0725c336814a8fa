package treasury

import (
	"encoding/binary"
	"fmt"

	"VestLedger/internal/ledger"
	"VestLedger/internal/storage"
)

// balanceKeyPrefix is the Pebble key prefix for balance entries.
var balanceKeyPrefix = []byte("b:")

// Treasury is the account balance book: one uint64 balance per
// (asset, account) pair. It implements ledger.Transferor, staging
// movements in the caller's batch so they commit atomically with
// the schedule record.
type Treasury struct {
	db *storage.Storage
}

// New creates a treasury backed by the given storage.
func New(db *storage.Storage) *Treasury {
	return &Treasury{db: db}
}

// balanceKey builds the key for a balance: "b:" + asset + account.
func balanceKey(asset ledger.Asset, account ledger.Account) []byte {
	key := make([]byte, len(balanceKeyPrefix)+32+32)
	copy(key, balanceKeyPrefix)
	copy(key[len(balanceKeyPrefix):], asset[:])
	copy(key[len(balanceKeyPrefix)+32:], account[:])

	return key
}

// Balance returns the committed balance of an account for an asset.
// Missing entries read as 0.
func (t *Treasury) Balance(asset ledger.Asset, account ledger.Account) (uint64, error) {
	data, err := t.db.Get(balanceKey(asset, account))
	if err != nil {
		return 0, err
	}

	return decodeBalance(data)
}

// Credit adds amount to an account's balance, committing immediately.
// Used for genesis funding of the custodian.
func (t *Treasury) Credit(asset ledger.Asset, account ledger.Account, amount uint64) error {
	if amount == 0 {
		return nil
	}

	balance, err := t.Balance(asset, account)
	if err != nil {
		return fmt.Errorf("read balance:\n%w", err)
	}

	newBalance := balance + amount
	if newBalance < balance {
		return fmt.Errorf("credit overflow: balance=%d + amount=%d wraps", balance, amount)
	}

	return t.db.Set(balanceKey(asset, account), encodeBalance(newBalance))
}

// Transfer stages a movement of amount units from one account to another.
// Zero amounts are a no-op, not a failure. Reads go through the batch so
// consecutive transfers in one operation see each other's debits.
func (t *Treasury) Transfer(batch *storage.Batch, asset ledger.Asset, from, to ledger.Account, amount uint64) error {
	if amount == 0 {
		return nil
	}

	fromBalance, err := t.batchBalance(batch, asset, from)
	if err != nil {
		return fmt.Errorf("read sender balance:\n%w", err)
	}

	if fromBalance < amount {
		return fmt.Errorf("insufficient balance: have %d, need %d", fromBalance, amount)
	}

	toBalance, err := t.batchBalance(batch, asset, to)
	if err != nil {
		return fmt.Errorf("read recipient balance:\n%w", err)
	}

	newToBalance := toBalance + amount
	if newToBalance < toBalance {
		return fmt.Errorf("credit overflow: balance=%d + amount=%d wraps", toBalance, amount)
	}

	if err := batch.Set(balanceKey(asset, from), encodeBalance(fromBalance-amount)); err != nil {
		return err
	}

	return batch.Set(balanceKey(asset, to), encodeBalance(newToBalance))
}

// batchBalance reads a balance through the batch, seeing staged writes.
func (t *Treasury) batchBalance(batch *storage.Batch, asset ledger.Asset, account ledger.Account) (uint64, error) {
	data, err := batch.Get(balanceKey(asset, account))
	if err != nil {
		return 0, err
	}

	return decodeBalance(data)
}

// encodeBalance serializes a balance as 8 little-endian bytes.
func encodeBalance(balance uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, balance)

	return buf
}

// decodeBalance deserializes a balance. Nil reads as 0.
func decodeBalance(data []byte) (uint64, error) {
	if data == nil {
		return 0, nil
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("balance size: got %d, want 8", len(data))
	}

	return binary.LittleEndian.Uint64(data), nil
}
