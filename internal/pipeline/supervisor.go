// Package pipeline wires the per-instrument consumer goroutines together: the
// feed publishes into shared state, consumers fan the data out through FIFO
// queues, and the strategy consumer turns candles into dispatcher submissions.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/marlinquant/marlin/internal/dispatcher"
	"github.com/marlinquant/marlin/internal/exchange"
	"github.com/marlinquant/marlin/internal/logger"
	"github.com/marlinquant/marlin/internal/market"
	"github.com/marlinquant/marlin/internal/trailing"
	"github.com/marlinquant/marlin/internal/types"
	"github.com/marlinquant/marlin/pkg/errors"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"
)

// Strategy is the trading decision collaborator. Evaluate is called once per
// closed candle with the freshest tick and position snapshots available; a
// None return means no order this candle.
type Strategy interface {
	Evaluate(ctx context.Context, candle types.Candle, tick types.PriceTick, position types.Position) (optional.Option[dispatcher.Submission], error)
}

// SymbolConfig carries the per-instrument pipeline parameters.
type SymbolConfig struct {
	Granularity time.Duration
	Trailing    trailing.Config
}

// instrument groups the plumbing owned by one symbol's consumer goroutines.
type instrument struct {
	config        SymbolConfig
	aggregator    *market.Aggregator
	priceQueue    *market.Queue[types.PriceTick]
	candleQueue   *market.Queue[types.Candle]
	positionQueue *market.Queue[types.Position]
}

// Supervisor owns the pipeline lifecycle: contract bootstrap, the three
// consumer goroutines per instrument, and coordinated shutdown. Exactly one
// Supervisor runs per process, alongside the single order dispatcher it was
// constructed with.
type Supervisor struct {
	gateway    exchange.Gateway
	dispatcher *dispatcher.Dispatcher
	strategy   Strategy
	configs    map[string]SymbolConfig
	log        *logger.Logger

	priceState    *market.State[types.PriceTick]
	positionState *market.State[types.Position]
	contracts     exchange.ContractSet
	instruments   map[string]*instrument

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewSupervisor creates a Supervisor for the configured symbols. The shared
// state slots exist from construction so the feed can be wired up before
// Start. Start fills contracts in place, so collaborators constructed around
// the same set (executor registry, risk sizer) see the loaded contracts
// without a second fetch.
func NewSupervisor(gateway exchange.Gateway, contracts exchange.ContractSet, disp *dispatcher.Dispatcher, strategy Strategy, configs map[string]SymbolConfig, log *logger.Logger) *Supervisor {
	symbols := make([]string, 0, len(configs))
	for symbol := range configs {
		symbols = append(symbols, symbol)
	}

	if contracts == nil {
		contracts = exchange.ContractSet{}
	}

	return &Supervisor{
		gateway:       gateway,
		dispatcher:    disp,
		strategy:      strategy,
		configs:       configs,
		log:           log.Named("pipeline"),
		priceState:    market.NewState[types.PriceTick](symbols),
		positionState: market.NewState[types.Position](symbols),
		contracts:     contracts,
		instruments:   make(map[string]*instrument, len(configs)),
	}
}

// PriceState returns the shared tick state the feed publishes into.
func (s *Supervisor) PriceState() *market.State[types.PriceTick] {
	return s.priceState
}

// PositionState returns the shared position state the feed publishes into.
func (s *Supervisor) PositionState() *market.State[types.Position] {
	return s.positionState
}

// Contracts returns the cached instrument contracts. Valid after Start.
func (s *Supervisor) Contracts() exchange.ContractSet {
	return s.contracts
}

// Start fetches and caches the instrument contracts, then launches the
// consumer goroutines. A missing contract fails the whole startup; trading an
// instrument without its precision metadata is not an option.
func (s *Supervisor) Start(ctx context.Context) error {
	if s.started {
		return errors.New(errors.ErrCodePipelineInitFailed, "supervisor already started")
	}

	symbols := make([]string, 0, len(s.configs))
	for symbol := range s.configs {
		symbols = append(symbols, symbol)
	}

	loaded, err := exchange.LoadContracts(ctx, s.gateway, symbols)
	if err != nil {
		return errors.Wrap(errors.ErrCodePipelineInitFailed, "contract bootstrap failed", err)
	}

	for symbol, contract := range loaded {
		s.contracts[symbol] = contract
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.started = true

	now := time.Now()
	for symbol, config := range s.configs {
		inst := &instrument{
			config:        config,
			aggregator:    market.NewAggregator(symbol, config.Granularity, now, s.log),
			priceQueue:    market.NewQueue[types.PriceTick](),
			candleQueue:   market.NewQueue[types.Candle](),
			positionQueue: market.NewQueue[types.Position](),
		}
		s.instruments[symbol] = inst

		s.wg.Add(3)
		go s.runPriceConsumer(runCtx, symbol, inst)
		go s.runPositionConsumer(runCtx, symbol, inst)
		go s.runStrategyConsumer(runCtx, symbol, inst)

		s.log.Info("instrument pipeline started",
			zap.String("symbol", symbol),
			zap.Duration("granularity", config.Granularity),
		)
	}

	return nil
}

// Shutdown cancels every consumer goroutine, waits for them to exit, then
// stops the dispatcher so any queued orders are either executed or dropped
// deliberately rather than racing the process exit.
func (s *Supervisor) Shutdown() {
	if s.cancel != nil {
		s.cancel()
	}

	s.wg.Wait()
	s.dispatcher.Shutdown()
	s.log.Info("pipeline stopped")
}

// runPriceConsumer moves ticks from the shared state into the price queue and
// feeds the aggregator, pushing each closed candle to the candle queue.
func (s *Supervisor) runPriceConsumer(ctx context.Context, symbol string, inst *instrument) {
	defer s.wg.Done()

	for {
		tick, err := s.priceState.Consume(ctx, symbol)
		if err != nil {
			return
		}

		inst.priceQueue.Push(tick)

		if candle, ok := inst.aggregator.Apply(tick); ok {
			inst.candleQueue.Push(candle)
		}
	}
}

// runPositionConsumer moves position snapshots from the shared state into the
// position queue, ratcheting the trailing stop against the freshest tick
// before handing the snapshot on. Exchange snapshots do not carry the
// ratcheted stop, so the consumer holds the last ratcheted position and folds
// its stop into each fresh snapshot of the same position; the stop never
// relaxes while the position stays open.
func (s *Supervisor) runPositionConsumer(ctx context.Context, symbol string, inst *instrument) {
	defer s.wg.Done()

	var held types.Position

	for {
		position, err := s.positionState.Consume(ctx, symbol)
		if err != nil {
			return
		}

		if !position.IsOpen() {
			held = types.Position{}
			inst.positionQueue.Push(position)

			continue
		}

		if samePosition(held, position) {
			position.StopLoss = carriedStop(held, position)
		}

		if tick, ok := s.priceState.Peek(symbol); ok {
			adjusted := trailing.Recompute(position, tick, inst.config.Trailing)
			if adjusted.StopLoss != position.StopLoss {
				s.log.Info("trailing stop ratcheted",
					zap.String("symbol", symbol),
					zap.Float64("old_stop_loss", position.StopLoss),
					zap.Float64("new_stop_loss", adjusted.StopLoss),
				)
			}
			position = adjusted
		}

		held = position
		inst.positionQueue.Push(position)
	}
}

// samePosition reports whether a fresh snapshot describes the position the
// consumer is already tracking. A changed side or entry price means the old
// position closed and a new one opened, so the old stop must not carry over.
func samePosition(held, fresh types.Position) bool {
	return held.IsOpen() && held.Side == fresh.Side && held.EntryPrice == fresh.EntryPrice
}

// carriedStop returns the tighter of the held ratcheted stop and the fresh
// snapshot's stop. A zero stop means none is set.
func carriedStop(held, fresh types.Position) float64 {
	switch fresh.Side {
	case types.PositionSideLong:
		if held.StopLoss > fresh.StopLoss {
			return held.StopLoss
		}
	case types.PositionSideShort:
		if held.StopLoss != 0 && (fresh.StopLoss == 0 || held.StopLoss < fresh.StopLoss) {
			return held.StopLoss
		}
	}

	return fresh.StopLoss
}

// runStrategyConsumer blocks on closed candles, pairs each with the freshest
// tick and position snapshots, and submits whatever the strategy decides.
func (s *Supervisor) runStrategyConsumer(ctx context.Context, symbol string, inst *instrument) {
	defer s.wg.Done()

	var latestTick types.PriceTick
	var latestPosition types.Position

	for {
		candle, err := inst.candleQueue.Pull(ctx)
		if err != nil {
			return
		}

		// Drain to the newest snapshots; intermediate values are stale by the
		// time a candle closes.
		for {
			tick, ok := inst.priceQueue.TryPull()
			if !ok {
				break
			}
			latestTick = tick
		}
		for {
			position, ok := inst.positionQueue.TryPull()
			if !ok {
				break
			}
			latestPosition = position
		}

		intent, err := s.strategy.Evaluate(ctx, candle, latestTick, latestPosition)
		if err != nil {
			s.log.Error("strategy evaluation failed",
				zap.String("symbol", symbol),
				zap.Time("bucket_start", candle.BucketStart),
				zap.Error(err),
			)
			continue
		}

		if intent.IsNone() {
			continue
		}

		submission := intent.Unwrap()
		if err := s.dispatcher.Submit(ctx, submission); err != nil {
			if errors.IsRiskRejected(err) {
				s.log.Warn("order intent rejected by risk sizing",
					zap.String("symbol", submission.Symbol),
					zap.Error(err),
				)
				continue
			}

			s.log.Error("order submission failed",
				zap.String("symbol", submission.Symbol),
				zap.Error(err),
			)
		}
	}
}
