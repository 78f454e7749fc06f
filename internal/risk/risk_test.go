package risk

import (
	"context"
	"testing"

	"github.com/marlinquant/marlin/internal/exchange"
	"github.com/marlinquant/marlin/internal/types"
	"github.com/marlinquant/marlin/pkg/errors"
	"github.com/stretchr/testify/suite"
)

// balanceGateway stubs the gateway with a fixed balance.
type balanceGateway struct {
	exchange.Gateway
	balance    float64
	balanceErr error
}

func (g *balanceGateway) GetAccountBalance(_ context.Context) (float64, error) {
	return g.balance, g.balanceErr
}

type RiskTestSuite struct {
	suite.Suite
	contracts exchange.ContractSet
}

func (s *RiskTestSuite) SetupTest() {
	s.contracts = exchange.ContractSet{
		"BTCUSDT": types.InstrumentContract{
			Symbol:          "BTCUSDT",
			PricePrecision:  2,
			VolumePrecision: 3,
			MinTradeSize:    0.001,
		},
	}
}

func TestRiskSuite(t *testing.T) {
	suite.Run(t, new(RiskTestSuite))
}

func (s *RiskTestSuite) TestSizePosition() {
	sizer := NewBalanceSizer(&balanceGateway{balance: 10000}, s.contracts)

	size, err := sizer.SizePosition(context.Background(), "BTCUSDT", 0.02)
	s.Require().NoError(err)
	s.Equal(200.0, size)
}

func (s *RiskTestSuite) TestSizeRoundsDownToVolumePrecision() {
	sizer := NewBalanceSizer(&balanceGateway{balance: 123.4567}, s.contracts)

	size, err := sizer.SizePosition(context.Background(), "BTCUSDT", 0.1)
	s.Require().NoError(err)
	// 12.34567 rounded down to 3 decimals.
	s.Equal(12.345, size)
}

func (s *RiskTestSuite) TestRejectsZeroBalance() {
	sizer := NewBalanceSizer(&balanceGateway{balance: 0}, s.contracts)

	_, err := sizer.SizePosition(context.Background(), "BTCUSDT", 0.5)
	s.Error(err)
	s.True(errors.IsRiskRejected(err))
}

func (s *RiskTestSuite) TestRejectsSizeBelowMinimum() {
	sizer := NewBalanceSizer(&balanceGateway{balance: 0.5}, s.contracts)

	_, err := sizer.SizePosition(context.Background(), "BTCUSDT", 0.001)
	s.Error(err)
	s.True(errors.IsRiskRejected(err))
}

func (s *RiskTestSuite) TestRejectsOutOfRangeRiskPct() {
	sizer := NewBalanceSizer(&balanceGateway{balance: 10000}, s.contracts)

	for _, riskPct := range []float64{0, -0.1, 1.5} {
		_, err := sizer.SizePosition(context.Background(), "BTCUSDT", riskPct)
		s.Error(err)
		s.True(errors.IsRiskRejected(err))
	}
}

func (s *RiskTestSuite) TestRejectsWhenBalanceUnavailable() {
	sizer := NewBalanceSizer(&balanceGateway{
		balanceErr: errors.New(errors.ErrCodeBalanceUnavailable, "timeout"),
	}, s.contracts)

	_, err := sizer.SizePosition(context.Background(), "BTCUSDT", 0.1)
	s.Error(err)
	s.True(errors.IsRiskRejected(err))
}

func (s *RiskTestSuite) TestUnknownSymbol() {
	sizer := NewBalanceSizer(&balanceGateway{balance: 10000}, s.contracts)

	_, err := sizer.SizePosition(context.Background(), "DOGEUSDT", 0.1)
	s.Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeContractUnavailable))
}
