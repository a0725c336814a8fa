package ledger

import (
	"math"
	"math/bits"
)

// VestedAmount computes how many units of total have unlocked at height now
// under a cliff-plus-linear curve. The curve is zero up to and including the
// cliff, climbs linearly from the cliff (not from start), and saturates at
// total once start+vestDuration is reached.
//
// Pure function; inputs are validated at schedule creation.
func VestedAmount(total, start, cliffDuration, vestDuration, now uint64) uint64 {
	cliff := safeAdd(start, cliffDuration)
	end := safeAdd(start, vestDuration)

	if now < cliff {
		return 0
	}

	if now >= end {
		return total
	}

	// Strictly between cliff and end: total * elapsed / span, with the
	// multiply widened to 128 bits. elapsed < span guarantees the quotient
	// fits in 64 bits.
	elapsed := now - cliff
	span := vestDuration - cliffDuration

	hi, lo := bits.Mul64(total, elapsed)
	quo, _ := bits.Div64(hi, lo, span)

	return quo
}

// ReleasableOf computes vested minus already-released at height now.
// Returns 0 rather than wrapping when released exceeds vested (cannot
// happen in a well-formed schedule, but keeps the function total).
func ReleasableOf(total, start, cliffDuration, vestDuration, released, now uint64) uint64 {
	vested := VestedAmount(total, start, cliffDuration, vestDuration, now)
	if released >= vested {
		return 0
	}

	return vested - released
}

// safeAdd returns a + b, capping at MaxUint64 on overflow.
func safeAdd(a, b uint64) uint64 {
	sum := a + b
	if sum < a {
		return math.MaxUint64
	}

	return sum
}
