package types

// InstrumentContract holds the exchange contract metadata for one instrument.
// It is fetched once at startup and cached; prices and sizes are rounded to
// these precisions before transmission.
type InstrumentContract struct {
	Symbol string `yaml:"symbol" json:"symbol"`
	// PricePrecision is the number of decimal places for prices.
	PricePrecision int `yaml:"price_precision" json:"price_precision"`
	// VolumePrecision is the number of decimal places for order sizes.
	VolumePrecision int `yaml:"volume_precision" json:"volume_precision"`
	// MinTradeSize is the smallest order size the exchange accepts.
	MinTradeSize float64 `yaml:"min_trade_size" json:"min_trade_size"`
}
