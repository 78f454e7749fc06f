package types

import (
	"testing"

	"github.com/google/uuid"
	"github.com/marlinquant/marlin/pkg/errors"
	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
)

type OrderTestSuite struct {
	suite.Suite
}

func TestOrderSuite(t *testing.T) {
	suite.Run(t, new(OrderTestSuite))
}

func (suite *OrderTestSuite) validRequest(kind OrderKind) OrderRequest {
	req := OrderRequest{
		ID:         uuid.New().String(),
		Symbol:     "BTCUSDT",
		Kind:       kind,
		Side:       PurchaseTypeBuy,
		Size:       0.5,
		LimitPrice: optional.None[float64](),
		StopLoss:   optional.None[float64](),
		TakeProfit: optional.None[float64](),
	}
	if kind != OrderKindMarket {
		req.LimitPrice = optional.Some(50000.0)
	}

	return req
}

func (suite *OrderTestSuite) TestValidateMarketOrder() {
	req := suite.validRequest(OrderKindMarket)
	suite.NoError(req.Validate())
}

func (suite *OrderTestSuite) TestValidateLimitOrder() {
	req := suite.validRequest(OrderKindLimit)
	suite.NoError(req.Validate())
}

func (suite *OrderTestSuite) TestValidateTriggerOrder() {
	req := suite.validRequest(OrderKindPlanTrigger)
	req.StopLoss = optional.Some(48000.0)
	req.TakeProfit = optional.Some(55000.0)
	suite.NoError(req.Validate())
}

func (suite *OrderTestSuite) TestValidateRejectsMissingID() {
	req := suite.validRequest(OrderKindMarket)
	req.ID = ""

	err := req.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidOrderRequest))
}

func (suite *OrderTestSuite) TestValidateRejectsNonUUID() {
	req := suite.validRequest(OrderKindMarket)
	req.ID = "order-1"

	suite.Error(req.Validate())
}

func (suite *OrderTestSuite) TestValidateRejectsUnknownKind() {
	req := suite.validRequest(OrderKindMarket)
	req.Kind = OrderKind("ICEBERG")

	suite.Error(req.Validate())
}

func (suite *OrderTestSuite) TestValidateRejectsZeroSize() {
	req := suite.validRequest(OrderKindMarket)
	req.Size = 0

	suite.Error(req.Validate())
}

func (suite *OrderTestSuite) TestValidateRejectsLimitWithoutPrice() {
	req := suite.validRequest(OrderKindLimit)
	req.LimitPrice = optional.None[float64]()

	err := req.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidOrderRequest))
}

func (suite *OrderTestSuite) TestValidateRejectsMarketWithPrice() {
	req := suite.validRequest(OrderKindMarket)
	req.LimitPrice = optional.Some(50000.0)

	err := req.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidOrderRequest))
}

func (suite *OrderTestSuite) TestFailedOutcome() {
	req := suite.validRequest(OrderKindMarket)
	outcome := req.FailedOutcome(errors.New(errors.ErrCodeOrderFailed, "transport error"))

	suite.Equal(req.ID, outcome.ClientOrderID)
	suite.False(outcome.Success)
	suite.Empty(outcome.ExchangeOrderID)
	suite.Contains(outcome.ErrorDetail, "transport error")
}
