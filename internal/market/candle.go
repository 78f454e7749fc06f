package market

import (
	"time"

	"github.com/marlinquant/marlin/internal/logger"
	"github.com/marlinquant/marlin/internal/types"
	"github.com/marlinquant/marlin/pkg/errors"
	"go.uber.org/zap"
)

// ParseGranularity converts a candle interval string to a duration.
func ParseGranularity(granularity string) (time.Duration, error) {
	switch granularity {
	case "1m":
		return time.Minute, nil
	case "5m":
		return 5 * time.Minute, nil
	case "15m":
		return 15 * time.Minute, nil
	case "1h":
		return time.Hour, nil
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidGranularity, "unsupported granularity %q", granularity)
	}
}

// accumulator folds ticks for the bucket currently being built. It is owned
// exclusively by one Aggregator and reset after each emission.
type accumulator struct {
	firstPrice float64
	lastPrice  float64
	minPrice   float64
	maxPrice   float64
	volumeSum  float64
	count      int
}

func (a *accumulator) fold(tick types.PriceTick) {
	if a.count == 0 {
		a.firstPrice = tick.Price
		a.minPrice = tick.Price
		a.maxPrice = tick.Price
	}

	if tick.Price < a.minPrice {
		a.minPrice = tick.Price
	}

	if tick.Price > a.maxPrice {
		a.maxPrice = tick.Price
	}

	a.lastPrice = tick.Price
	a.volumeSum += tick.Volume
	a.count++
}

func (a *accumulator) reset() {
	*a = accumulator{}
}

// Aggregator buckets price ticks for one instrument into fixed-granularity
// OHLCV candles. It trusts tick timestamps, not arrival time, and emits at
// most one candle per detected bucket crossing. Not safe for concurrent use;
// each instrument's price consumer owns exactly one Aggregator.
type Aggregator struct {
	symbol          string
	granularity     time.Duration
	lastBucketStart time.Time
	acc             accumulator
	log             *logger.Logger
}

// NewAggregator creates an Aggregator whose first bucket starts at now rounded
// down to the granularity boundary.
func NewAggregator(symbol string, granularity time.Duration, now time.Time, log *logger.Logger) *Aggregator {
	return &Aggregator{
		symbol:          symbol,
		granularity:     granularity,
		lastBucketStart: now.UTC().Truncate(granularity),
		acc:             accumulator{},
		log:             log,
	}
}

// Apply folds a tick into the aggregator. When the tick's timestamp crosses
// into a newer bucket, the candle built from the previous bucket is returned
// with ok=true before the tick is folded into the fresh bucket. A crossing
// with an empty accumulator emits nothing.
//
// Timestamps exactly on a boundary belong to the bucket they start, never the
// previous one. Ticks older than the current bucket are folded into it rather
// than reopening closed buckets, so emitted bucket starts stay strictly
// increasing.
func (a *Aggregator) Apply(tick types.PriceTick) (types.Candle, bool) {
	newBucketStart := tick.Time.UTC().Truncate(a.granularity)

	if !newBucketStart.After(a.lastBucketStart) {
		a.acc.fold(tick)

		return types.Candle{}, false
	}

	emitted, ok := a.snapshot()
	if !ok {
		a.log.Debug("bucket crossed with no samples, nothing to emit",
			zap.String("symbol", a.symbol),
			zap.Time("bucket_start", a.lastBucketStart),
		)
	}

	a.acc.reset()
	a.lastBucketStart = newBucketStart
	a.acc.fold(tick)

	return emitted, ok
}

// snapshot builds the candle for the current bucket, if it has any samples.
func (a *Aggregator) snapshot() (types.Candle, bool) {
	if a.acc.count == 0 {
		return types.Candle{}, false
	}

	return types.Candle{
		Symbol:      a.symbol,
		BucketStart: a.lastBucketStart,
		Open:        a.acc.firstPrice,
		High:        a.acc.maxPrice,
		Low:         a.acc.minPrice,
		Close:       a.acc.lastPrice,
		Volume:      a.acc.volumeSum,
	}, true
}
