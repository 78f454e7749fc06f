package executor

import (
	"context"

	"github.com/marlinquant/marlin/internal/exchange"
	"github.com/marlinquant/marlin/internal/types"
	"github.com/marlinquant/marlin/pkg/errors"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// triggerExecutor places plan/trigger orders with attached stop-loss and
// take-profit. Prices are rounded to the contract's price precision and the
// size to its volume precision before transmission; the contract metadata was
// cached at startup.
type triggerExecutor struct {
	gateway   exchange.Gateway
	contracts exchange.ContractSet
}

func newTriggerExecutor(gateway exchange.Gateway, contracts exchange.ContractSet) *triggerExecutor {
	return &triggerExecutor{
		gateway:   gateway,
		contracts: contracts,
	}
}

func roundTo(value float64, places int) float64 {
	rounded, _ := decimal.NewFromFloat(value).Round(int32(places)).Float64()

	return rounded
}

func roundOptional(value optional.Option[float64], places int) optional.Option[float64] {
	if value.IsNone() {
		return value
	}

	return optional.Some(roundTo(value.Unwrap(), places))
}

func (e *triggerExecutor) Execute(ctx context.Context, req types.OrderRequest) types.ExecutionOutcome {
	if req.LimitPrice.IsNone() {
		return req.FailedOutcome(errors.New(errors.ErrCodeInvalidOrderRequest, "trigger order without a trigger price"))
	}

	contract, err := e.contracts.Get(req.Symbol)
	if err != nil {
		return req.FailedOutcome(err)
	}

	size := roundTo(req.Size, contract.VolumePrecision)
	if size < contract.MinTradeSize {
		return req.FailedOutcome(errors.Newf(errors.ErrCodeInvalidOrderRequest,
			"size %v below minimum %v for %s", size, contract.MinTradeSize, req.Symbol))
	}

	price := roundTo(req.LimitPrice.Unwrap(), contract.PricePrecision)

	params := exchange.TriggerOrderParams{
		Symbol:        req.Symbol,
		Side:          req.Side,
		Size:          size,
		Price:         price,
		TriggerPrice:  price,
		StopLoss:      roundOptional(req.StopLoss, contract.PricePrecision),
		TakeProfit:    roundOptional(req.TakeProfit, contract.PricePrecision),
		ClientOrderID: req.ID,
	}

	exchangeOrderID, err := e.gateway.PlaceTriggerOrder(ctx, params)
	if err != nil {
		return req.FailedOutcome(err)
	}

	return types.ExecutionOutcome{
		ClientOrderID:   req.ID,
		Success:         true,
		ExchangeOrderID: exchangeOrderID,
		ErrorDetail:     "",
	}
}
