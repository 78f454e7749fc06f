// Package executor translates normalized order requests into exchange calls.
// One executor variant exists per order kind; the registry is the fixed total
// mapping the dispatcher resolves against.
package executor

import (
	"context"

	"github.com/marlinquant/marlin/internal/exchange"
	"github.com/marlinquant/marlin/internal/types"
	"github.com/marlinquant/marlin/pkg/errors"
)

// Executor executes a single order request against the exchange. Execution
// never panics: transport and validation failures become failed outcomes.
type Executor interface {
	Execute(ctx context.Context, req types.OrderRequest) types.ExecutionOutcome
}

// Registry maps order kinds to executor implementations. The mapping is total
// over the known kinds; an unrecognized kind resolves to a failed outcome with
// a distinguished error detail rather than a panic.
type Registry struct {
	executors map[types.OrderKind]Executor
}

// NewRegistry builds the standard registry over the given gateway and cached
// contract set.
func NewRegistry(gateway exchange.Gateway, contracts exchange.ContractSet) *Registry {
	return &Registry{
		executors: map[types.OrderKind]Executor{
			types.OrderKindMarket:      &marketExecutor{gateway: gateway},
			types.OrderKindLimit:       &limitExecutor{gateway: gateway},
			types.OrderKindPlanTrigger: newTriggerExecutor(gateway, contracts),
		},
	}
}

// Resolve returns the executor for the given kind.
func (r *Registry) Resolve(kind types.OrderKind) (Executor, error) {
	exec, ok := r.executors[kind]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnsupportedOrderKind, "unsupported order kind %q", kind)
	}

	return exec, nil
}

// Execute resolves and runs the executor for the request. Unknown kinds yield
// a failed outcome carrying the unsupported-kind error detail.
func (r *Registry) Execute(ctx context.Context, req types.OrderRequest) types.ExecutionOutcome {
	exec, err := r.Resolve(req.Kind)
	if err != nil {
		return req.FailedOutcome(err)
	}

	return exec.Execute(ctx, req)
}

// marketExecutor forwards market orders directly to the gateway.
type marketExecutor struct {
	gateway exchange.Gateway
}

func (e *marketExecutor) Execute(ctx context.Context, req types.OrderRequest) types.ExecutionOutcome {
	exchangeOrderID, err := e.gateway.PlaceMarketOrder(ctx, req.Symbol, req.Side, req.Size, req.ID)
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

// limitExecutor forwards limit orders directly to the gateway.
type limitExecutor struct {
	gateway exchange.Gateway
}

func (e *limitExecutor) Execute(ctx context.Context, req types.OrderRequest) types.ExecutionOutcome {
	if req.LimitPrice.IsNone() {
		return req.FailedOutcome(errors.New(errors.ErrCodeInvalidOrderRequest, "limit order without a limit price"))
	}

	exchangeOrderID, err := e.gateway.PlaceLimitOrder(ctx, req.Symbol, req.Side, req.LimitPrice.Unwrap(), req.Size, req.ID)
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
