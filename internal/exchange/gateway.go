// Package exchange defines the gateway contract the trading core talks to and
// its Binance USDT-futures implementation. The core treats any non-success
// response or transport error as a failed execution outcome; it never retries.
package exchange

import (
	"context"

	"github.com/marlinquant/marlin/internal/types"
	"github.com/marlinquant/marlin/pkg/errors"
	"github.com/moznion/go-optional"
)

// TriggerOrderParams carries a plan/trigger order: an entry that activates
// when the mark price crosses TriggerPrice, with optional attached stop-loss
// and take-profit trigger prices. All prices and the size must already be
// rounded to the instrument's contract precision.
type TriggerOrderParams struct {
	Symbol        string
	Side          types.PurchaseType
	Size          float64
	Price         float64
	TriggerPrice  float64
	StopLoss      optional.Option[float64]
	TakeProfit    optional.Option[float64]
	ClientOrderID string
}

// OrderDetail is the exchange's view of a single order.
type OrderDetail struct {
	ExchangeOrderID string
	ClientOrderID   string
	Status          string
	ExecutedQty     float64
	AvgPrice        float64
}

// Gateway is the exchange collaborator consumed by the executors, the risk
// sizer, and the startup bootstrap. Implementations own authentication and
// transport; callers own precision rounding and outcome bookkeeping.
type Gateway interface {
	// PlaceMarketOrder submits a market order and returns the exchange order ID.
	PlaceMarketOrder(ctx context.Context, symbol string, side types.PurchaseType, size float64, clientOrderID string) (string, error)
	// PlaceLimitOrder submits a limit order and returns the exchange order ID.
	PlaceLimitOrder(ctx context.Context, symbol string, side types.PurchaseType, price float64, size float64, clientOrderID string) (string, error)
	// PlaceTriggerOrder submits a plan/trigger order with attached SL/TP and
	// returns the exchange order ID of the entry order.
	PlaceTriggerOrder(ctx context.Context, params TriggerOrderParams) (string, error)
	// GetAccountBalance returns the available margin balance.
	GetAccountBalance(ctx context.Context) (float64, error)
	// GetInstrumentContract returns the contract metadata for a symbol.
	GetInstrumentContract(ctx context.Context, symbol string) (types.InstrumentContract, error)
	// GetAllPositions returns all open positions.
	GetAllPositions(ctx context.Context) ([]types.Position, error)
	// GetOrderDetail looks up an order by its client order ID.
	GetOrderDetail(ctx context.Context, symbol string, clientOrderID string) (OrderDetail, error)
}

// ContractSet caches instrument contracts fetched once at startup.
type ContractSet map[string]types.InstrumentContract

// LoadContracts fetches the contract metadata for every symbol. A missing
// contract aborts startup for that instrument's pipeline, so the whole load
// fails fast on the first unavailable symbol.
func LoadContracts(ctx context.Context, gateway Gateway, symbols []string) (ContractSet, error) {
	contracts := make(ContractSet, len(symbols))

	for _, symbol := range symbols {
		contract, err := gateway.GetInstrumentContract(ctx, symbol)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeContractUnavailable, err, "could not retrieve contract for %s", symbol)
		}

		contracts[symbol] = contract
	}

	return contracts, nil
}

// Get returns the cached contract for a symbol.
func (c ContractSet) Get(symbol string) (types.InstrumentContract, error) {
	contract, ok := c[symbol]
	if !ok {
		return types.InstrumentContract{}, errors.Newf(errors.ErrCodeContractUnavailable, "no cached contract for %s", symbol)
	}

	return contract, nil
}
