package types

type PositionSide string

const (
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
)

// Position is the current holding for one instrument. The stop loss is
// mutated only by the trailing stop engine; the owning strategy consumer
// applies the result.
type Position struct {
	Symbol     string       `yaml:"symbol" json:"symbol"`
	Side       PositionSide `yaml:"side" json:"side"`
	EntryPrice float64      `yaml:"entry_price" json:"entry_price"`
	StopLoss   float64      `yaml:"stop_loss" json:"stop_loss"`
	Size       float64      `yaml:"size" json:"size"`
}

// IsOpen reports whether the position holds any size.
func (p Position) IsOpen() bool {
	return p.Size > 0
}
