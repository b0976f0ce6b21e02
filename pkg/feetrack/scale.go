package feetrack

import (
	"errors"

	"github.com/ledgerops/feetrack/pkg/models"
)

// ErrZeroReferenceUnits is returned by the scaling operations when the
// caller passes referenceFeeUnits == 0. Callers must reject the request
// that asked for the conversion rather than price it.
var ErrZeroReferenceUnits = errors.New("reference fee units must be positive")

// mulDivBoundary is the cutover between the two mulDiv strategies: above
// it the multiply could overflow 64 bits, so we divide first instead.
const mulDivBoundary uint64 = 0xFFFFFFFF

// privilegedReliefFactor bounds the relief window for privileged callers:
// they are shielded from local-only spikes smaller than this multiple of
// the externally observed load, but not from larger ones.
const privilegedReliefFactor uint32 = 4

// mulDiv computes value*mul/div in 64-bit arithmetic. Large values divide
// first to avoid overflow at some cost in precision; normal values
// multiply first to keep it.
func mulDiv(value, mul, div uint64) uint64 {
	if value > mulDivBoundary {
		return (value / div) * mul
	}
	return (value * mul) / div
}

// ScaleFeeBase converts a fee expressed in fee units into base-currency
// micro-units at the base rate, with no load scaling. It reads no shared
// state.
func ScaleFeeBase(fee, baseFee uint64, referenceFeeUnits uint32) (uint64, error) {
	if referenceFeeUnits == 0 {
		return 0, ErrZeroReferenceUnits
	}
	return mulDiv(fee, baseFee, uint64(referenceFeeUnits)), nil
}

// ScaleFeeLoad converts a fee expressed in fee units into base-currency
// micro-units and applies the current load multiplier. Privileged callers
// pay the externally observed rate while the local level stays inside the
// relief window (above remFee but below privilegedReliefFactor*remFee);
// outside it they pay full freight like everyone else.
func (t *Tracker) ScaleFeeLoad(fee, baseFee uint64, referenceFeeUnits uint32, privileged bool) (uint64, error) {
	if referenceFeeUnits == 0 {
		return 0, ErrZeroReferenceUnits
	}

	big := fee > mulDivBoundary
	if big {
		// Big fee, divide first to avoid overflow.
		fee /= uint64(referenceFeeUnits)
	} else {
		// Normal fee, multiply first for accuracy.
		fee *= baseFee
	}

	// One snapshot of all three levels. Computing feeFactor from fields
	// read outside the lock would let a concurrent setter split the pair.
	t.mu.Lock()
	local, remote, cluster := t.localLevel, t.remoteLevel, t.clusterLevel
	t.mu.Unlock()

	feeFactor := max(local, remote)

	remFee := max(remote, cluster)
	if privileged && feeFactor > remFee && feeFactor < privilegedReliefFactor*remFee {
		feeFactor = remFee
	}

	fee = mulDiv(fee, uint64(feeFactor), uint64(LoadBase))

	if big {
		fee *= baseFee
	} else {
		fee /= uint64(referenceFeeUnits)
	}

	return fee, nil
}

// Status returns the two headline fee numbers: what a reference
// transaction costs under no load, and what it costs right now.
func (t *Tracker) Status(baseFee uint64, referenceFeeUnits uint32) (models.FeeStatus, error) {
	if referenceFeeUnits == 0 {
		return models.FeeStatus{}, ErrZeroReferenceUnits
	}

	t.mu.Lock()
	factor := max(t.localLevel, t.remoteLevel)
	t.mu.Unlock()

	return models.FeeStatus{
		BaseFee: baseFee,
		LoadFee: mulDiv(baseFee, uint64(factor), uint64(LoadBase)),
	}, nil
}
