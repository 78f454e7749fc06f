// Package feed connects the Binance USDT-futures market streams to the shared
// pipeline state. It is the publisher side of the price and position slots;
// the pipeline consumers never talk to the exchange for market data.
package feed

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/marlinquant/marlin/internal/exchange"
	"github.com/marlinquant/marlin/internal/logger"
	"github.com/marlinquant/marlin/internal/market"
	"github.com/marlinquant/marlin/internal/types"
	"github.com/marlinquant/marlin/pkg/errors"
	"go.uber.org/zap"
)

// DefaultPositionPollInterval is how often open positions are refreshed when
// the caller does not configure an interval.
const DefaultPositionPollInterval = 2 * time.Second

// StreamService abstracts the futures websocket subscriptions the feed uses,
// so tests can drive the handlers directly.
type StreamService interface {
	WsAggTradeServe(symbol string, handler futures.WsAggTradeHandler, errHandler futures.ErrHandler) (doneC chan struct{}, stopC chan struct{}, err error)
	WsBookTickerServe(symbol string, handler futures.WsBookTickerHandler, errHandler futures.ErrHandler) (doneC chan struct{}, stopC chan struct{}, err error)
}

// realStreamService subscribes through the live Binance websocket endpoints.
type realStreamService struct{}

func (realStreamService) WsAggTradeServe(symbol string, handler futures.WsAggTradeHandler, errHandler futures.ErrHandler) (chan struct{}, chan struct{}, error) {
	return futures.WsAggTradeServe(symbol, handler, errHandler)
}

func (realStreamService) WsBookTickerServe(symbol string, handler futures.WsBookTickerHandler, errHandler futures.ErrHandler) (chan struct{}, chan struct{}, error) {
	return futures.WsBookTickerServe(symbol, handler, errHandler)
}

// tickMerge holds the latest trade and quote fragments for one symbol. Trades
// carry price and volume, book tickers carry bid and ask; a published tick is
// the union of the freshest of each.
type tickMerge struct {
	mu   sync.Mutex
	tick types.PriceTick
}

// Feed subscribes to the aggregated trade and book ticker streams for every
// configured symbol and publishes merged ticks into the shared price state.
// It also polls open positions through the gateway and publishes snapshots
// into the shared position state.
type Feed struct {
	streams      StreamService
	gateway      exchange.Gateway
	priceState   *market.State[types.PriceTick]
	posState     *market.State[types.Position]
	symbols      []string
	pollInterval time.Duration
	log          *logger.Logger

	merges  map[string]*tickMerge
	stops   []chan struct{}
	dones   []chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewFeed creates a Feed publishing into the given state slots.
func NewFeed(streams StreamService, gateway exchange.Gateway, priceState *market.State[types.PriceTick], posState *market.State[types.Position], symbols []string, pollInterval time.Duration, log *logger.Logger) *Feed {
	if pollInterval <= 0 {
		pollInterval = DefaultPositionPollInterval
	}

	merges := make(map[string]*tickMerge, len(symbols))
	for _, symbol := range symbols {
		merges[symbol] = &tickMerge{}
	}

	return &Feed{
		streams:      streams,
		gateway:      gateway,
		priceState:   priceState,
		posState:     posState,
		symbols:      symbols,
		pollInterval: pollInterval,
		log:          log.Named("feed"),
		merges:       merges,
	}
}

// NewBinanceFeed creates a Feed backed by the live Binance websocket streams.
func NewBinanceFeed(gateway exchange.Gateway, priceState *market.State[types.PriceTick], posState *market.State[types.Position], symbols []string, pollInterval time.Duration, log *logger.Logger) *Feed {
	return NewFeed(realStreamService{}, gateway, priceState, posState, symbols, pollInterval, log)
}

// Start opens every websocket subscription and launches the position poller.
// A subscription that cannot be opened fails the whole start; running with a
// silently missing stream is worse than not starting.
func (f *Feed) Start(ctx context.Context) error {
	if f.started {
		return errors.New(errors.ErrCodePipelineInitFailed, "feed already started")
	}

	for _, symbol := range f.symbols {
		errHandler := func(err error) {
			f.log.Error("websocket stream error", zap.String("symbol", symbol), zap.Error(err))
		}

		doneC, stopC, err := f.streams.WsAggTradeServe(symbol, f.aggTradeHandler(symbol), errHandler)
		if err != nil {
			f.stopStreams()
			return errors.Wrapf(errors.ErrCodeFeedClosed, err, "could not subscribe to %s trades", symbol)
		}
		f.dones = append(f.dones, doneC)
		f.stops = append(f.stops, stopC)

		doneC, stopC, err = f.streams.WsBookTickerServe(symbol, f.bookTickerHandler(symbol), errHandler)
		if err != nil {
			f.stopStreams()
			return errors.Wrapf(errors.ErrCodeFeedClosed, err, "could not subscribe to %s book ticker", symbol)
		}
		f.dones = append(f.dones, doneC)
		f.stops = append(f.stops, stopC)

		f.log.Info("market streams subscribed", zap.String("symbol", symbol))
	}

	// Prime the position slots before trading starts so the first candle
	// already sees current exposure.
	f.publishPositions(ctx)

	pollCtx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.started = true

	f.wg.Add(1)
	go f.pollPositions(pollCtx)

	return nil
}

// Shutdown closes the websocket subscriptions and stops the position poller,
// returning once everything has wound down.
func (f *Feed) Shutdown() {
	f.stopStreams()

	if f.cancel != nil {
		f.cancel()
	}

	f.wg.Wait()
	f.log.Info("feed stopped")
}

func (f *Feed) stopStreams() {
	for _, stopC := range f.stops {
		close(stopC)
	}

	for _, doneC := range f.dones {
		<-doneC
	}

	f.stops = nil
	f.dones = nil
}

// aggTradeHandler folds a trade into the symbol's merged tick and publishes.
func (f *Feed) aggTradeHandler(symbol string) futures.WsAggTradeHandler {
	return func(event *futures.WsAggTradeEvent) {
		price, err := strconv.ParseFloat(event.Price, 64)
		if err != nil {
			f.log.Warn("unparseable trade price", zap.String("symbol", symbol), zap.String("price", event.Price))
			return
		}

		quantity, err := strconv.ParseFloat(event.Quantity, 64)
		if err != nil {
			f.log.Warn("unparseable trade quantity", zap.String("symbol", symbol), zap.String("quantity", event.Quantity))
			return
		}

		f.publishMerged(symbol, func(tick *types.PriceTick) {
			tick.Time = time.UnixMilli(event.TradeTime).UTC()
			tick.Price = price
			tick.Volume = quantity
		})
	}
}

// bookTickerHandler folds a quote into the symbol's merged tick and publishes.
func (f *Feed) bookTickerHandler(symbol string) futures.WsBookTickerHandler {
	return func(event *futures.WsBookTickerEvent) {
		bid, err := strconv.ParseFloat(event.BestBidPrice, 64)
		if err != nil {
			f.log.Warn("unparseable bid", zap.String("symbol", symbol), zap.String("bid", event.BestBidPrice))
			return
		}

		ask, err := strconv.ParseFloat(event.BestAskPrice, 64)
		if err != nil {
			f.log.Warn("unparseable ask", zap.String("symbol", symbol), zap.String("ask", event.BestAskPrice))
			return
		}

		f.publishMerged(symbol, func(tick *types.PriceTick) {
			if event.TransactionTime > 0 {
				tick.Time = time.UnixMilli(event.TransactionTime).UTC()
			}
			tick.Bid = bid
			tick.Ask = ask
			// Quotes between trades repeat the last trade; volume belongs to
			// trades only.
			tick.Volume = 0
		})
	}
}

func (f *Feed) publishMerged(symbol string, update func(*types.PriceTick)) {
	merge, ok := f.merges[symbol]
	if !ok {
		return
	}

	merge.mu.Lock()
	merge.tick.Symbol = symbol
	update(&merge.tick)
	tick := merge.tick
	merge.mu.Unlock()

	// A quote can arrive before the first trade; without a price the tick
	// would poison the aggregator.
	if tick.Price == 0 {
		return
	}

	if err := f.priceState.Publish(symbol, tick); err != nil {
		f.log.Error("price publish failed", zap.String("symbol", symbol), zap.Error(err))
	}
}

// pollPositions periodically fetches open positions and publishes a snapshot
// per configured symbol. A symbol with no open position publishes the zero
// position so consumers observe closes, not just opens.
func (f *Feed) pollPositions(ctx context.Context) {
	defer f.wg.Done()

	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		f.publishPositions(ctx)
	}
}

func (f *Feed) publishPositions(ctx context.Context) {
	positions, err := f.gateway.GetAllPositions(ctx)
	if err != nil {
		f.log.Warn("position poll failed", zap.Error(err))
		return
	}

	bySymbol := make(map[string]types.Position, len(positions))
	for _, position := range positions {
		bySymbol[position.Symbol] = position
	}

	for _, symbol := range f.symbols {
		position, ok := bySymbol[symbol]
		if !ok {
			position = types.Position{Symbol: symbol}
		}

		if err := f.posState.Publish(symbol, position); err != nil {
			f.log.Error("position publish failed", zap.String("symbol", symbol), zap.Error(err))
		}
	}
}
