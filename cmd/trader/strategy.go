package main

import (
	"context"
	"sync"

	"github.com/marlinquant/marlin/internal/dispatcher"
	"github.com/marlinquant/marlin/internal/pipeline"
	"github.com/marlinquant/marlin/internal/types"
	"github.com/moznion/go-optional"
)

// breakoutThreshold is the close-over-close move that counts as a breakout.
const breakoutThreshold = 0.002

// momentumStrategy is a small reference strategy: enter in the direction of a
// close-over-close breakout when flat, stay put otherwise. Real strategies
// implement pipeline.Strategy and replace this at wiring time.
type momentumStrategy struct {
	riskPcts map[string]float64

	mu         sync.Mutex
	prevCloses map[string]float64
}

func newMomentumStrategy(riskPcts map[string]float64) *momentumStrategy {
	return &momentumStrategy{
		riskPcts:   riskPcts,
		prevCloses: make(map[string]float64, len(riskPcts)),
	}
}

func (st *momentumStrategy) Evaluate(_ context.Context, candle types.Candle, _ types.PriceTick, position types.Position) (optional.Option[dispatcher.Submission], error) {
	st.mu.Lock()
	prevClose, seen := st.prevCloses[candle.Symbol]
	st.prevCloses[candle.Symbol] = candle.Close
	st.mu.Unlock()

	if !seen || position.IsOpen() {
		return optional.None[dispatcher.Submission](), nil
	}

	var side types.PurchaseType

	switch {
	case candle.Close > prevClose*(1+breakoutThreshold):
		side = types.PurchaseTypeBuy
	case candle.Close < prevClose*(1-breakoutThreshold):
		side = types.PurchaseTypeSell
	default:
		return optional.None[dispatcher.Submission](), nil
	}

	return optional.Some(dispatcher.Submission{
		Symbol:  candle.Symbol,
		Kind:    types.OrderKindMarket,
		Side:    side,
		RiskPct: st.riskPcts[candle.Symbol],
	}), nil
}

var _ pipeline.Strategy = (*momentumStrategy)(nil)
