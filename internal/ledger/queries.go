package ledger

import "fmt"

// Summary is a read-only projection of one schedule with its derived
// amounts at the current height.
type Summary struct {
	Beneficiary   Account
	ID            uint64
	Asset         Asset
	TotalAmount   uint64
	Start         uint64
	CliffDuration uint64
	VestDuration  uint64
	Released      uint64
	Vested        uint64
	Releasable    uint64
	Revocable     bool
	Revoked       bool
	CliffPassed   bool
	Complete      bool
	CreatedBy     Account
	CreatedAt     uint64
}

// getSchedule fetches a schedule or reports ErrNotFound.
func (l *Ledger) getSchedule(beneficiary Account, id uint64) (*Schedule, error) {
	s, err := l.store.get(beneficiary, id)
	if err != nil {
		return nil, fmt.Errorf("read schedule:\n%w", err)
	}
	if s == nil {
		return nil, ErrNotFound
	}

	return s, nil
}

// VestedAmount returns the units unlocked for a schedule at the current height.
func (l *Ledger) VestedAmount(beneficiary Account, id uint64) (uint64, error) {
	s, err := l.getSchedule(beneficiary, id)
	if err != nil {
		return 0, err
	}

	return s.VestedAt(l.clock.Now()), nil
}

// ReleasableAmount returns the unlocked-but-unreleased units at the current height.
func (l *Ledger) ReleasableAmount(beneficiary Account, id uint64) (uint64, error) {
	s, err := l.getSchedule(beneficiary, id)
	if err != nil {
		return 0, err
	}

	return s.ReleasableAt(l.clock.Now()), nil
}

// ReleasedAmount returns the units already paid out.
func (l *Ledger) ReleasedAmount(beneficiary Account, id uint64) (uint64, error) {
	s, err := l.getSchedule(beneficiary, id)
	if err != nil {
		return 0, err
	}

	return s.Released, nil
}

// IsCliffPassed reports whether the schedule's cliff has been reached.
func (l *Ledger) IsCliffPassed(beneficiary Account, id uint64) (bool, error) {
	s, err := l.getSchedule(beneficiary, id)
	if err != nil {
		return false, err
	}

	return s.CliffPassedAt(l.clock.Now()), nil
}

// IsVestingComplete reports whether the schedule is fully vested.
func (l *Ledger) IsVestingComplete(beneficiary Account, id uint64) (bool, error) {
	s, err := l.getSchedule(beneficiary, id)
	if err != nil {
		return false, err
	}

	return s.CompleteAt(l.clock.Now()), nil
}

// Summary returns the full read-only projection of one schedule.
func (l *Ledger) Summary(beneficiary Account, id uint64) (*Summary, error) {
	s, err := l.getSchedule(beneficiary, id)
	if err != nil {
		return nil, err
	}

	return l.summarize(s), nil
}

// ListSummaries returns projections for all schedules of a beneficiary,
// in creation order.
func (l *Ledger) ListSummaries(beneficiary Account) ([]*Summary, error) {
	schedules, err := l.store.list(beneficiary)
	if err != nil {
		return nil, fmt.Errorf("list schedules:\n%w", err)
	}

	summaries := make([]*Summary, len(schedules))
	for i, s := range schedules {
		summaries[i] = l.summarize(s)
	}

	return summaries, nil
}

// summarize builds the projection of a schedule at the current height.
func (l *Ledger) summarize(s *Schedule) *Summary {
	now := l.clock.Now()

	return &Summary{
		Beneficiary:   s.Beneficiary,
		ID:            s.ID,
		Asset:         s.Asset,
		TotalAmount:   s.TotalAmount,
		Start:         s.Start,
		CliffDuration: s.CliffDuration,
		VestDuration:  s.VestDuration,
		Released:      s.Released,
		Vested:        s.VestedAt(now),
		Releasable:    s.ReleasableAt(now),
		Revocable:     s.Revocable,
		Revoked:       s.Revoked,
		CliffPassed:   s.CliffPassedAt(now),
		Complete:      s.CompleteAt(now),
		CreatedBy:     s.CreatedBy,
		CreatedAt:     s.CreatedAt,
	}
}

// ScheduleCount returns the number of schedules ever created for a beneficiary.
func (l *Ledger) ScheduleCount(beneficiary Account) (uint64, error) {
	return l.store.count(beneficiary)
}

// AssetTotal returns the running sum of committed amounts for an asset.
func (l *Ledger) AssetTotal(asset Asset) (uint64, error) {
	return l.store.assetTotal(asset)
}

// GlobalCount returns the total number of schedules ever created.
func (l *Ledger) GlobalCount() (uint64, error) {
	return l.store.globalCount()
}
