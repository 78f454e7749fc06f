// Package dispatcher serializes all order submissions through one worker so
// that at most one exchange order submission is in flight per process.
package dispatcher

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marlinquant/marlin/internal/executor"
	"github.com/marlinquant/marlin/internal/logger"
	"github.com/marlinquant/marlin/internal/market"
	"github.com/marlinquant/marlin/internal/risk"
	"github.com/marlinquant/marlin/internal/types"
	"github.com/marlinquant/marlin/pkg/errors"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"
)

// DefaultPollTimeout bounds how long the worker waits on an empty queue
// before re-checking the shutdown flag.
const DefaultPollTimeout = time.Second

// Submission is the caller-facing order intent handed to Submit. The
// dispatcher sizes it via the risk collaborator and stamps the client order
// ID; everything else passes through to the executor unchanged.
type Submission struct {
	Symbol     string
	Kind       types.OrderKind
	Side       types.PurchaseType
	Price      optional.Option[float64]
	StopLoss   optional.Option[float64]
	TakeProfit optional.Option[float64]
	RiskPct    float64
}

// Dispatcher owns the process-wide order queue and its single worker. Exactly
// one instance is constructed during startup and injected into every caller
// that submits orders, which preserves the one-worker guarantee without
// hidden global state.
type Dispatcher struct {
	queue       *market.Queue[types.OrderRequest]
	registry    *executor.Registry
	sizer       risk.Sizer
	log         *logger.Logger
	pollTimeout time.Duration

	// stop is closed by Shutdown; done is closed by the worker on exit.
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New creates the dispatcher and starts its worker.
func New(registry *executor.Registry, sizer risk.Sizer, log *logger.Logger, pollTimeout time.Duration) *Dispatcher {
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}

	d := &Dispatcher{
		queue:       market.NewQueue[types.OrderRequest](),
		registry:    registry,
		sizer:       sizer,
		log:         log.Named("dispatcher"),
		pollTimeout: pollTimeout,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}

	go d.worker()

	return d
}

// Submit sizes the intent via the risk collaborator and enqueues a
// fully-formed order request. On risk rejection the request is logged,
// dropped, and never enqueued; the rejection is returned to the caller.
func (d *Dispatcher) Submit(ctx context.Context, sub Submission) error {
	select {
	case <-d.stop:
		return errors.New(errors.ErrCodeDispatcherStopped, "dispatcher is shut down")
	default:
	}

	size, err := d.sizer.SizePosition(ctx, sub.Symbol, sub.RiskPct)
	if err != nil {
		d.log.Warn("order rejected by risk sizer",
			zap.String("symbol", sub.Symbol),
			zap.String("kind", string(sub.Kind)),
			zap.Float64("risk_pct", sub.RiskPct),
			zap.Error(err),
		)

		return err
	}

	req := types.OrderRequest{
		ID:         uuid.New().String(),
		Symbol:     sub.Symbol,
		Kind:       sub.Kind,
		Side:       sub.Side,
		Size:       size,
		LimitPrice: sub.Price,
		StopLoss:   sub.StopLoss,
		TakeProfit: sub.TakeProfit,
	}

	if err := req.Validate(); err != nil {
		d.log.Warn("order request failed validation",
			zap.String("symbol", sub.Symbol),
			zap.String("kind", string(sub.Kind)),
			zap.Error(err),
		)

		return err
	}

	d.queue.Push(req)
	d.log.Info("order enqueued",
		zap.String("client_order_id", req.ID),
		zap.String("symbol", req.Symbol),
		zap.String("kind", string(req.Kind)),
		zap.Float64("size", req.Size),
	)

	return nil
}

// QueueLen returns the number of requests waiting for the worker.
func (d *Dispatcher) QueueLen() int {
	return d.queue.Len()
}

// Shutdown signals the worker and blocks until it has exited. The worker
// observes the flag within one poll timeout; an in-flight exchange call is
// allowed to complete first.
func (d *Dispatcher) Shutdown() {
	d.stopOnce.Do(func() {
		close(d.stop)
	})

	<-d.done
}

// worker drains the queue one request at a time. A failure is terminal for
// that single request only; the loop never exits on a bad request.
func (d *Dispatcher) worker() {
	defer close(d.done)

	ctx := context.Background()

	for {
		select {
		case <-d.stop:
			d.log.Info("dispatcher worker stopping",
				zap.Int("pending", d.queue.Len()),
			)

			return
		default:
		}

		req, ok, err := d.queue.Poll(ctx, d.pollTimeout)
		if err != nil {
			return
		}

		if !ok {
			// Empty-queue timeout: cancellation checkpoint, not an error.
			continue
		}

		d.execute(ctx, req)
	}
}

func (d *Dispatcher) execute(ctx context.Context, req types.OrderRequest) {
	outcome := d.registry.Execute(ctx, req)

	if outcome.Success {
		d.log.Info("order executed",
			zap.String("client_order_id", outcome.ClientOrderID),
			zap.String("exchange_order_id", outcome.ExchangeOrderID),
			zap.String("symbol", req.Symbol),
			zap.String("kind", string(req.Kind)),
		)

		return
	}

	d.log.Error("order failed",
		zap.String("client_order_id", outcome.ClientOrderID),
		zap.String("symbol", req.Symbol),
		zap.String("kind", string(req.Kind)),
		zap.String("error_detail", outcome.ErrorDetail),
	)
}
