package market

import (
	"context"
	"testing"
	"time"

	"github.com/marlinquant/marlin/internal/types"
	"github.com/stretchr/testify/suite"
)

type StateTestSuite struct {
	suite.Suite
}

func TestStateSuite(t *testing.T) {
	suite.Run(t, new(StateTestSuite))
}

func (s *StateTestSuite) TestPublishConsume() {
	state := NewState[types.PriceTick]([]string{"BTCUSDT"})

	tick := types.PriceTick{Symbol: "BTCUSDT", Time: time.Now().UTC(), Price: 50000}
	s.Require().NoError(state.Publish("BTCUSDT", tick))

	got, err := state.Consume(context.Background(), "BTCUSDT")
	s.Require().NoError(err)
	s.Equal(tick, got)
}

func (s *StateTestSuite) TestConsumeBlocksUntilPublish() {
	state := NewState[types.PriceTick]([]string{"BTCUSDT"})

	done := make(chan types.PriceTick, 1)

	go func() {
		tick, err := state.Consume(context.Background(), "BTCUSDT")
		if err == nil {
			done <- tick
		}
	}()

	select {
	case <-done:
		s.Fail("consume returned before any publish")
	case <-time.After(50 * time.Millisecond):
	}

	s.Require().NoError(state.Publish("BTCUSDT", types.PriceTick{Symbol: "BTCUSDT", Price: 100}))

	select {
	case tick := <-done:
		s.Equal(100.0, tick.Price)
	case <-time.After(time.Second):
		s.Fail("consume did not observe the publish")
	}
}

func (s *StateTestSuite) TestConsumeReturnsOnCancellation() {
	state := NewState[types.PriceTick]([]string{"BTCUSDT"})

	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)

	go func() {
		_, err := state.Consume(ctx, "BTCUSDT")
		errc <- err
	}()

	cancel()

	select {
	case err := <-errc:
		s.ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		s.Fail("consume did not observe cancellation")
	}
}

func (s *StateTestSuite) TestPublishOverwrites() {
	state := NewState[types.PriceTick]([]string{"BTCUSDT"})

	s.Require().NoError(state.Publish("BTCUSDT", types.PriceTick{Symbol: "BTCUSDT", Price: 1}))
	s.Require().NoError(state.Publish("BTCUSDT", types.PriceTick{Symbol: "BTCUSDT", Price: 2}))

	// Coalesced publishes: the consumer observes the latest value once.
	got, err := state.Consume(context.Background(), "BTCUSDT")
	s.Require().NoError(err)
	s.Equal(2.0, got.Price)
}

func (s *StateTestSuite) TestConsumerTakesIndependentCopy() {
	state := NewState[types.Position]([]string{"BTCUSDT"})

	published := types.Position{Symbol: "BTCUSDT", Side: types.PositionSideLong, EntryPrice: 50000, StopLoss: 49000, Size: 1}
	s.Require().NoError(state.Publish("BTCUSDT", published))

	got, err := state.Consume(context.Background(), "BTCUSDT")
	s.Require().NoError(err)

	// Mutating the copy must not leak back into the slot.
	got.StopLoss = 49500

	peeked, ok := state.Peek("BTCUSDT")
	s.Require().True(ok)
	s.Equal(49000.0, peeked.StopLoss)
}

func (s *StateTestSuite) TestUnknownSymbol() {
	state := NewState[types.PriceTick]([]string{"BTCUSDT"})

	s.Error(state.Publish("DOGEUSDT", types.PriceTick{Symbol: "DOGEUSDT"}))

	_, err := state.Consume(context.Background(), "DOGEUSDT")
	s.Error(err)

	_, ok := state.Peek("DOGEUSDT")
	s.False(ok)
}

func (s *StateTestSuite) TestIndependentConsumersPerPath() {
	prices := NewState[types.PriceTick]([]string{"BTCUSDT"})
	positions := NewState[types.Position]([]string{"BTCUSDT"})

	s.Require().NoError(prices.Publish("BTCUSDT", types.PriceTick{Symbol: "BTCUSDT", Price: 50000}))

	// The position path has its own event; the price publish does not wake it.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := positions.Consume(ctx, "BTCUSDT")
	s.ErrorIs(err, context.DeadlineExceeded)

	tick, err := prices.Consume(context.Background(), "BTCUSDT")
	s.Require().NoError(err)
	s.Equal(50000.0, tick.Price)
}
