// Package trailing implements the ratcheting stop-loss adjustment.
package trailing

import "github.com/marlinquant/marlin/internal/types"

// Config holds the trailing stop parameters as fractions of the entry price.
type Config struct {
	// TriggerPct is the favorable move, relative to the entry price, that must
	// be exceeded before the stop starts trailing.
	TriggerPct float64 `yaml:"trailing_trigger_pct" json:"trailing_trigger_pct" validate:"gte=0"`
	// TrailPct is the distance the stop trails behind the price, relative to
	// the entry price.
	TrailPct float64 `yaml:"trailing_stop_pct" json:"trailing_stop_pct" validate:"gte=0"`
}

// Recompute returns the position with its stop loss ratcheted toward the
// current price. For a long position the stop only ever moves up, for a short
// position only ever down; an unfavorable move never relaxes the stop. Pure
// function: the caller persists or transmits the result.
func Recompute(pos types.Position, tick types.PriceTick, cfg Config) types.Position {
	switch pos.Side {
	case types.PositionSideLong:
		bid := tick.EffectiveBid()
		if bid-pos.EntryPrice > cfg.TriggerPct*pos.EntryPrice {
			candidate := bid - cfg.TrailPct*pos.EntryPrice
			if candidate > pos.StopLoss {
				pos.StopLoss = candidate
			}
		}
	case types.PositionSideShort:
		ask := tick.EffectiveAsk()
		if pos.EntryPrice-ask > cfg.TriggerPct*pos.EntryPrice {
			candidate := ask + cfg.TrailPct*pos.EntryPrice
			if candidate < pos.StopLoss {
				pos.StopLoss = candidate
			}
		}
	}

	return pos
}
