package ledger

import (
	"encoding/hex"
	"fmt"

	"VestLedger/internal/logger"
	"VestLedger/internal/storage"
)

// Clock supplies the logical height driving the vesting curve.
// Heights are non-decreasing across operations.
type Clock interface {
	Now() uint64
}

// Authorizer answers whether a caller holds the admin role.
type Authorizer interface {
	IsAdmin(caller Account) bool
}

// Transferor moves asset units between accounts. The movement is staged in
// the given batch and only lands when the batch commits, so a failed
// operation leaves no balance half-moved.
type Transferor interface {
	Transfer(batch *storage.Batch, asset Asset, from, to Account, amount uint64) error
}

// SingleAdmin is an Authorizer recognizing exactly one admin account.
type SingleAdmin Account

// IsAdmin reports whether caller is the configured admin.
func (a SingleAdmin) IsAdmin(caller Account) bool {
	return Account(a) == caller
}

// Ledger is the vesting schedule state machine. Every operation is a
// synchronous, atomic step: validation first, then transfers staged
// against a batch, then the record committed together with them.
type Ledger struct {
	store     *store
	assets    Transferor
	auth      Authorizer
	clock     Clock
	custodian Account // custodian funds releases
	admin     Account // admin receives unvested refunds on revoke
}

// New creates a ledger over the given storage and collaborators.
func New(db *storage.Storage, assets Transferor, auth Authorizer, clock Clock, custodian, admin Account) *Ledger {
	return &Ledger{
		store:     newStore(db),
		assets:    assets,
		auth:      auth,
		clock:     clock,
		custodian: custodian,
		admin:     admin,
	}
}

// Create adds a new schedule for beneficiary and returns its id.
// Ids are per-beneficiary sequential, starting at 1. The record, the
// beneficiary count, the asset committed total, and the global counter
// commit in one batch.
func (l *Ledger) Create(caller, beneficiary Account, asset Asset, total, start, cliffDuration, vestDuration uint64, revocable bool) (uint64, error) {
	if err := l.requireAdmin(caller); err != nil {
		return 0, err
	}

	now := l.clock.Now()

	if err := validateCreate(total, start, cliffDuration, vestDuration, now); err != nil {
		return 0, err
	}

	count, err := l.store.count(beneficiary)
	if err != nil {
		return 0, fmt.Errorf("read beneficiary count:\n%w", err)
	}

	assetTotal, err := l.store.assetTotal(asset)
	if err != nil {
		return 0, fmt.Errorf("read asset total:\n%w", err)
	}

	if assetTotal+total < assetTotal {
		return 0, fmt.Errorf("%w: asset committed total overflows", ErrInvalidParameters)
	}

	global, err := l.store.globalCount()
	if err != nil {
		return 0, fmt.Errorf("read global count:\n%w", err)
	}

	id := count + 1
	s := &Schedule{
		Beneficiary:   beneficiary,
		ID:            id,
		Asset:         asset,
		TotalAmount:   total,
		Start:         start,
		CliffDuration: cliffDuration,
		VestDuration:  vestDuration,
		Revocable:     revocable,
		CreatedBy:     caller,
		CreatedAt:     now,
	}

	batch := l.store.newBatch()

	if err := l.store.putBatch(batch, s); err != nil {
		batch.Discard()
		return 0, fmt.Errorf("stage schedule:\n%w", err)
	}
	if err := l.store.setCounterBatch(batch, countKey(beneficiary), id); err != nil {
		batch.Discard()
		return 0, fmt.Errorf("stage beneficiary count:\n%w", err)
	}
	if err := l.store.setCounterBatch(batch, assetKey(asset), assetTotal+total); err != nil {
		batch.Discard()
		return 0, fmt.Errorf("stage asset total:\n%w", err)
	}
	if err := l.store.setCounterBatch(batch, globalCountKey, global+1); err != nil {
		batch.Discard()
		return 0, fmt.Errorf("stage global count:\n%w", err)
	}

	if err := batch.Commit(); err != nil {
		return 0, fmt.Errorf("commit create:\n%w", err)
	}

	logger.Info("schedule created",
		"beneficiary", shortHex(beneficiary),
		"id", id,
		"total", total,
		"start", start,
		"revocable", revocable,
	)

	return id, nil
}

// Release pays out the releasable amount of a schedule to its beneficiary.
// Anyone may call it; units only ever move to the beneficiary of record.
// Returns the amount released.
func (l *Ledger) Release(beneficiary Account, id uint64) (uint64, error) {
	if err := l.requireUnpaused(); err != nil {
		return 0, err
	}

	s, err := l.store.get(beneficiary, id)
	if err != nil {
		return 0, fmt.Errorf("read schedule:\n%w", err)
	}
	if s == nil {
		return 0, ErrNotFound
	}

	if s.Revoked {
		return 0, ErrVestingEnded
	}

	now := l.clock.Now()

	if !s.CliffPassedAt(now) {
		return 0, ErrCliffNotReached
	}

	// Independent guard: a schedule past its cliff but with nothing newly
	// vested fails here, not on the cliff check.
	releasable := s.ReleasableAt(now)
	if releasable == 0 {
		return 0, ErrNoTokensToRelease
	}

	batch := l.store.newBatch()

	if err := l.assets.Transfer(batch, s.Asset, l.custodian, beneficiary, releasable); err != nil {
		batch.Discard()
		return 0, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	s.Released += releasable

	if err := l.store.putBatch(batch, s); err != nil {
		batch.Discard()
		return 0, fmt.Errorf("stage schedule:\n%w", err)
	}

	if err := batch.Commit(); err != nil {
		return 0, fmt.Errorf("commit release:\n%w", err)
	}

	logger.Info("schedule released",
		"beneficiary", shortHex(beneficiary),
		"id", id,
		"amount", releasable,
		"released_total", s.Released,
	)

	return releasable, nil
}

// Revoke terminates a revocable schedule. The releasable amount goes to the
// beneficiary, the never-vested remainder returns to the admin, and the
// record flips to revoked — all in one atomic step. If either nonzero
// transfer fails, nothing commits.
func (l *Ledger) Revoke(caller, beneficiary Account, id uint64) error {
	if err := l.requireAdmin(caller); err != nil {
		return err
	}

	s, err := l.store.get(beneficiary, id)
	if err != nil {
		return fmt.Errorf("read schedule:\n%w", err)
	}
	if s == nil {
		return ErrNotFound
	}

	if s.Revoked {
		return ErrVestingEnded
	}

	if !s.Revocable {
		return fmt.Errorf("%w: schedule is not revocable", ErrUnauthorized)
	}

	now := l.clock.Now()
	releasable := s.ReleasableAt(now)
	unvested := s.TotalAmount - s.Released - releasable

	batch := l.store.newBatch()

	if releasable > 0 {
		if err := l.assets.Transfer(batch, s.Asset, l.custodian, beneficiary, releasable); err != nil {
			batch.Discard()
			return fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
	}

	if unvested > 0 {
		if err := l.assets.Transfer(batch, s.Asset, l.custodian, l.admin, unvested); err != nil {
			batch.Discard()
			return fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
	}

	s.Revoked = true
	s.Released += releasable

	if err := l.store.putBatch(batch, s); err != nil {
		batch.Discard()
		return fmt.Errorf("stage schedule:\n%w", err)
	}

	if err := batch.Commit(); err != nil {
		return fmt.Errorf("commit revoke:\n%w", err)
	}

	logger.Info("schedule revoked",
		"beneficiary", shortHex(beneficiary),
		"id", id,
		"paid_out", releasable,
		"refunded", unvested,
	)

	return nil
}

// SetPaused toggles the ledger pause flag. Admin only.
// While paused, Create, Release, and Revoke all reject.
func (l *Ledger) SetPaused(caller Account, paused bool) error {
	if !l.auth.IsAdmin(caller) {
		return ErrUnauthorized
	}

	if err := l.store.setPaused(paused); err != nil {
		return fmt.Errorf("write pause flag:\n%w", err)
	}

	logger.Info("pause flag set", "paused", paused)

	return nil
}

// Paused reports whether the ledger is paused.
func (l *Ledger) Paused() (bool, error) {
	return l.store.paused()
}

// requireUnpaused rejects when the pause flag is set.
// Paused operations report ErrUnauthorized, same as a role failure.
func (l *Ledger) requireUnpaused() error {
	paused, err := l.store.paused()
	if err != nil {
		return fmt.Errorf("read pause flag:\n%w", err)
	}
	if paused {
		return fmt.Errorf("%w: ledger is paused", ErrUnauthorized)
	}

	return nil
}

// requireAdmin rejects when paused or when caller is not the admin.
func (l *Ledger) requireAdmin(caller Account) error {
	if err := l.requireUnpaused(); err != nil {
		return err
	}

	if !l.auth.IsAdmin(caller) {
		return ErrUnauthorized
	}

	return nil
}

// validateCreate checks creation arguments against the schedule invariants.
func validateCreate(total, start, cliffDuration, vestDuration, now uint64) error {
	if total == 0 {
		return fmt.Errorf("%w: total amount is zero", ErrInvalidParameters)
	}

	if vestDuration == 0 {
		return fmt.Errorf("%w: vesting duration is zero", ErrInvalidParameters)
	}

	if cliffDuration >= vestDuration {
		return fmt.Errorf("%w: cliff duration %d >= vesting duration %d", ErrInvalidParameters, cliffDuration, vestDuration)
	}

	if start < now {
		return fmt.Errorf("%w: start %d is in the past (now %d)", ErrInvalidParameters, start, now)
	}

	if start+vestDuration < start {
		return fmt.Errorf("%w: vesting end overflows", ErrInvalidParameters)
	}

	return nil
}

// shortHex renders the first 8 bytes of an account for logging.
func shortHex(a Account) string {
	return hex.EncodeToString(a[:8])
}
