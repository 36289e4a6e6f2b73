// Package fees computes the gross/platform/processor/net split for
// customer-facing payment amounts. All monetary values are integer cents;
// the platform fee rate is carried in basis points so fractional
// percentages stay exact.
package fees

import "errors"

var (
	ErrInvalidAmount        = errors.New("invalid_amount")
	ErrInvalidFeePercentage = errors.New("invalid_fee_percentage")
)

// Card-processing fee schedule: 2.9% + 30 cents per charge.
const (
	processorRateMille   = 29
	processorFlatCents   = 30
	basisPointsPerWhole  = 10000
	halfBasisPointsRound = basisPointsPerWhole / 2
)

// Breakdown is the fee split for a single gross amount. The identity
// PlatformFeeCents + ProcessorFeeCents + NetCents == GrossCents always holds.
type Breakdown struct {
	GrossCents        int64 `json:"gross_cents"`
	PlatformFeeCents  int64 `json:"platform_fee_cents"`
	ProcessorFeeCents int64 `json:"processor_fee_cents"`
	NetCents          int64 `json:"net_cents"`
}

// NegativeNet reports whether the fees exceed the gross amount. Callers
// that move money must refuse the transaction when this is true.
func (b Breakdown) NegativeNet() bool { return b.NetCents < 0 }

// Calculate splits amountCents according to the platform fee rate.
// platformFeeBPS is basis points in [0, 10000]; 1000 means 10%.
func Calculate(amountCents int64, platformFeeBPS int64) (Breakdown, error) {
	if amountCents <= 0 {
		return Breakdown{}, ErrInvalidAmount
	}
	if platformFeeBPS < 0 || platformFeeBPS > basisPointsPerWhole {
		return Breakdown{}, ErrInvalidFeePercentage
	}

	platformFee := roundDiv(amountCents*platformFeeBPS, basisPointsPerWhole)
	processorFee := roundDiv(amountCents*processorRateMille, 1000) + processorFlatCents

	return Breakdown{
		GrossCents:        amountCents,
		PlatformFeeCents:  platformFee,
		ProcessorFeeCents: processorFee,
		NetCents:          amountCents - platformFee - processorFee,
	}, nil
}

// Zero returns a breakdown with no fees, used for worker payouts where the
// platform absorbs transfer costs.
func Zero(amountCents int64) (Breakdown, error) {
	if amountCents <= 0 {
		return Breakdown{}, ErrInvalidAmount
	}
	return Breakdown{GrossCents: amountCents, NetCents: amountCents}, nil
}

// BPSFromPercent converts a whole-number percentage to basis points.
func BPSFromPercent(percent float64) int64 {
	return int64(percent*100 + 0.5)
}

// roundDiv divides with round-half-up semantics on non-negative input.
func roundDiv(numerator, denominator int64) int64 {
	return (numerator + denominator/2) / denominator
}
