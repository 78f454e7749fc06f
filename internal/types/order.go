package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/marlinquant/marlin/pkg/errors"
	"github.com/moznion/go-optional"
)

type PurchaseType string

type OrderKind string

const (
	PurchaseTypeBuy  PurchaseType = "BUY"
	PurchaseTypeSell PurchaseType = "SELL"
)

const (
	OrderKindMarket      OrderKind = "MARKET"
	OrderKindLimit       OrderKind = "LIMIT"
	OrderKindPlanTrigger OrderKind = "PLAN_TRIGGER"
)

// OrderRequest is a fully-formed trade request. It is immutable once enqueued
// on the dispatcher queue. ID is a process-unique client order ID generated at
// submission time.
type OrderRequest struct {
	ID     string       `yaml:"id" json:"id" validate:"required,uuid"`
	Symbol string       `yaml:"symbol" json:"symbol" validate:"required"`
	Kind   OrderKind    `yaml:"kind" json:"kind" validate:"required,oneof=MARKET LIMIT PLAN_TRIGGER"`
	Side   PurchaseType `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	Size   float64      `yaml:"size" json:"size" validate:"required,gt=0"`
	// LimitPrice is required for limit and plan-trigger orders.
	LimitPrice optional.Option[float64] `yaml:"limit_price" json:"limit_price"`
	// StopLoss is the stop-loss trigger price. Can be None if not set.
	StopLoss optional.Option[float64] `yaml:"stop_loss" json:"stop_loss"`
	// TakeProfit is the take-profit trigger price. Can be None if not set.
	TakeProfit optional.Option[float64] `yaml:"take_profit" json:"take_profit"`
}

// ExecutionOutcome records the result of a single execution attempt for an
// OrderRequest. Exactly one outcome is produced per dequeued request; failed
// attempts are not retried.
type ExecutionOutcome struct {
	ClientOrderID   string `yaml:"client_order_id" json:"client_order_id"`
	Success         bool   `yaml:"success" json:"success"`
	ExchangeOrderID string `yaml:"exchange_order_id" json:"exchange_order_id"`
	ErrorDetail     string `yaml:"error_detail" json:"error_detail"`
}

// Validate validates the OrderRequest struct.
func (r *OrderRequest) Validate() error {
	validate := validator.New()

	if err := validate.Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrderRequest, "invalid order request", err)
	}

	// Limit and trigger orders carry a price; market orders must not.
	switch r.Kind {
	case OrderKindLimit, OrderKindPlanTrigger:
		if r.LimitPrice.IsNone() {
			return errors.Newf(errors.ErrCodeInvalidOrderRequest, "%s order requires a limit price", r.Kind)
		}
	case OrderKindMarket:
		if r.LimitPrice.IsSome() {
			return errors.New(errors.ErrCodeInvalidOrderRequest, "MARKET order must not carry a limit price")
		}
	}

	return nil
}

// FailedOutcome builds a failed ExecutionOutcome for this request.
func (r *OrderRequest) FailedOutcome(err error) ExecutionOutcome {
	return ExecutionOutcome{
		ClientOrderID:   r.ID,
		Success:         false,
		ExchangeOrderID: "",
		ErrorDetail:     err.Error(),
	}
}
