package ledger

import (
	"encoding/binary"
	"fmt"
)

// Account is a 32-byte account identifier (beneficiary, admin, custodian).
type Account [32]byte

// Asset is a 32-byte fungible asset identifier.
type Asset [32]byte

// Schedule flag bits.
const (
	flagRevocable = 1 << 0
	flagRevoked   = 1 << 1
)

// scheduleSize is the fixed encoded size of a schedule record.
const scheduleSize = 32 + 8 + 8 + 8 + 8 + 8 + 1 + 32 + 8

// Schedule is one vesting schedule record, keyed by (beneficiary, id).
// TotalAmount, timings, Revocable, and provenance are immutable after
// creation; only Released grows and Revoked flips (once, terminally).
type Schedule struct {
	Beneficiary   Account // Beneficiary receives released units
	ID            uint64  // ID is the per-beneficiary sequence number, starting at 1
	Asset         Asset   // Asset is the vested fungible asset
	TotalAmount   uint64  // TotalAmount is the total units committed, > 0
	Start         uint64  // Start is the height at which vesting begins
	CliffDuration uint64  // CliffDuration is the cliff offset from Start
	VestDuration  uint64  // VestDuration is the total vesting span, > CliffDuration
	Released      uint64  // Released is the units already paid out
	Revocable     bool    // Revocable marks the schedule as admin-revocable
	Revoked       bool    // Revoked is the terminal flag
	CreatedBy     Account // CreatedBy is the creating admin
	CreatedAt     uint64  // CreatedAt is the height at creation
}

// VestedAt returns the units unlocked at height now.
func (s *Schedule) VestedAt(now uint64) uint64 {
	return VestedAmount(s.TotalAmount, s.Start, s.CliffDuration, s.VestDuration, now)
}

// ReleasableAt returns the units unlocked but not yet released at height now.
func (s *Schedule) ReleasableAt(now uint64) uint64 {
	return ReleasableOf(s.TotalAmount, s.Start, s.CliffDuration, s.VestDuration, s.Released, now)
}

// CliffPassedAt reports whether the cliff has been reached at height now.
func (s *Schedule) CliffPassedAt(now uint64) bool {
	return now >= safeAdd(s.Start, s.CliffDuration)
}

// CompleteAt reports whether the schedule is fully vested at height now.
func (s *Schedule) CompleteAt(now uint64) bool {
	return now >= safeAdd(s.Start, s.VestDuration)
}

// encodeSchedule serializes a schedule record.
// Format (little-endian, fixed width): [u8;32] asset + u64 total + u64 start +
// u64 cliff_duration + u64 vest_duration + u64 released + u8 flags +
// [u8;32] created_by + u64 created_at. Beneficiary and ID live in the key.
func encodeSchedule(s *Schedule) []byte {
	buf := make([]byte, scheduleSize)

	copy(buf[0:32], s.Asset[:])
	binary.LittleEndian.PutUint64(buf[32:40], s.TotalAmount)
	binary.LittleEndian.PutUint64(buf[40:48], s.Start)
	binary.LittleEndian.PutUint64(buf[48:56], s.CliffDuration)
	binary.LittleEndian.PutUint64(buf[56:64], s.VestDuration)
	binary.LittleEndian.PutUint64(buf[64:72], s.Released)

	var flags byte
	if s.Revocable {
		flags |= flagRevocable
	}
	if s.Revoked {
		flags |= flagRevoked
	}
	buf[72] = flags

	copy(buf[73:105], s.CreatedBy[:])
	binary.LittleEndian.PutUint64(buf[105:113], s.CreatedAt)

	return buf
}

// decodeSchedule deserializes a schedule record.
// Beneficiary and ID are supplied by the caller from the storage key.
func decodeSchedule(beneficiary Account, id uint64, data []byte) (*Schedule, error) {
	if len(data) != scheduleSize {
		return nil, fmt.Errorf("schedule record size: got %d, want %d", len(data), scheduleSize)
	}

	s := &Schedule{
		Beneficiary:   beneficiary,
		ID:            id,
		TotalAmount:   binary.LittleEndian.Uint64(data[32:40]),
		Start:         binary.LittleEndian.Uint64(data[40:48]),
		CliffDuration: binary.LittleEndian.Uint64(data[48:56]),
		VestDuration:  binary.LittleEndian.Uint64(data[56:64]),
		Released:      binary.LittleEndian.Uint64(data[64:72]),
		Revocable:     data[72]&flagRevocable != 0,
		Revoked:       data[72]&flagRevoked != 0,
		CreatedAt:     binary.LittleEndian.Uint64(data[105:113]),
	}

	copy(s.Asset[:], data[0:32])
	copy(s.CreatedBy[:], data[73:105])

	return s, nil
}
