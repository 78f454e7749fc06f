package types

import "time"

// PriceTick is a single timestamped price observation for one instrument.
// It is immutable once published by the feed.
type PriceTick struct {
	Symbol string    `yaml:"symbol" json:"symbol"`
	Time   time.Time `yaml:"time" json:"time"`
	// Price is the last traded price.
	Price float64 `yaml:"price" json:"price"`
	// Bid and Ask are the best book prices. They may be zero when the feed
	// carries trades only; use EffectiveBid/EffectiveAsk in that case.
	Bid    float64 `yaml:"bid" json:"bid"`
	Ask    float64 `yaml:"ask" json:"ask"`
	Volume float64 `yaml:"volume" json:"volume"`
}

// EffectiveBid returns the bid price, falling back to the last price when the
// feed provides no book data.
func (t PriceTick) EffectiveBid() float64 {
	if t.Bid > 0 {
		return t.Bid
	}

	return t.Price
}

// EffectiveAsk returns the ask price, falling back to the last price when the
// feed provides no book data.
func (t PriceTick) EffectiveAsk() float64 {
	if t.Ask > 0 {
		return t.Ask
	}

	return t.Price
}

// Candle is an aggregated OHLCV bar for a fixed time bucket.
// BucketStart is aligned to the aggregation granularity and candles for one
// symbol have strictly increasing bucket starts. Immutable after emission.
type Candle struct {
	Symbol      string    `yaml:"symbol" json:"symbol"`
	BucketStart time.Time `yaml:"bucket_start" json:"bucket_start"`
	Open        float64   `yaml:"open" json:"open"`
	High        float64   `yaml:"high" json:"high"`
	Low         float64   `yaml:"low" json:"low"`
	Close       float64   `yaml:"close" json:"close"`
	Volume      float64   `yaml:"volume" json:"volume"`
}
