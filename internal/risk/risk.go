// Package risk converts a risk percentage into a position size. A sizing
// rejection is terminal: the request never enters the dispatcher queue.
package risk

import (
	"context"

	"github.com/marlinquant/marlin/internal/exchange"
	"github.com/marlinquant/marlin/pkg/errors"
	"github.com/shopspring/decimal"
)

// Sizer is the risk collaborator consumed by the order dispatcher.
type Sizer interface {
	// SizePosition returns the position size for the given risk percentage,
	// or an ErrCodeRiskRejected error when constraints are not met.
	SizePosition(ctx context.Context, symbol string, riskPct float64) (float64, error)
}

// BalanceSizer sizes positions as a fraction of the available account
// balance, rounded down to the instrument's volume precision.
type BalanceSizer struct {
	gateway   exchange.Gateway
	contracts exchange.ContractSet
}

// NewBalanceSizer creates a BalanceSizer over the cached contract set.
func NewBalanceSizer(gateway exchange.Gateway, contracts exchange.ContractSet) *BalanceSizer {
	return &BalanceSizer{
		gateway:   gateway,
		contracts: contracts,
	}
}

// SizePosition implements Sizer.
func (s *BalanceSizer) SizePosition(ctx context.Context, symbol string, riskPct float64) (float64, error) {
	if riskPct <= 0 || riskPct > 1 {
		return 0, errors.Newf(errors.ErrCodeRiskRejected, "risk percentage %v out of (0, 1]", riskPct)
	}

	contract, err := s.contracts.Get(symbol)
	if err != nil {
		return 0, err
	}

	balance, err := s.gateway.GetAccountBalance(ctx)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeRiskRejected, err, "could not size position for %s", symbol)
	}

	size, _ := decimal.NewFromFloat(balance * riskPct).
		RoundDown(int32(contract.VolumePrecision)).
		Float64()

	if size < contract.MinTradeSize || size <= 0 {
		return 0, errors.Newf(errors.ErrCodeRiskRejected,
			"size %v below minimum %v for %s", size, contract.MinTradeSize, symbol)
	}

	return size, nil
}

// Verify BalanceSizer implements the Sizer interface.
var _ Sizer = (*BalanceSizer)(nil)
