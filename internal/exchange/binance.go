package exchange

import (
	"context"
	"strconv"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/marlinquant/marlin/internal/types"
	"github.com/marlinquant/marlin/pkg/errors"
)

const marginAsset = "USDT"

// Service interfaces for mocking the Binance futures API

// CreateOrderService interface for creating orders.
type CreateOrderService interface {
	Symbol(symbol string) CreateOrderService
	Side(side futures.SideType) CreateOrderService
	Type(orderType futures.OrderType) CreateOrderService
	Quantity(quantity string) CreateOrderService
	Price(price string) CreateOrderService
	StopPrice(price string) CreateOrderService
	TimeInForce(tif futures.TimeInForceType) CreateOrderService
	NewClientOrderID(id string) CreateOrderService
	WorkingType(workingType futures.WorkingType) CreateOrderService
	ClosePosition(closePosition bool) CreateOrderService
	Do(ctx context.Context) (*futures.CreateOrderResponse, error)
}

// GetBalanceService interface for reading account balances.
type GetBalanceService interface {
	Do(ctx context.Context) ([]*futures.Balance, error)
}

// ExchangeInfoService interface for reading contract metadata.
type ExchangeInfoService interface {
	Do(ctx context.Context) (*futures.ExchangeInfo, error)
}

// PositionRiskService interface for reading open positions.
type PositionRiskService interface {
	Do(ctx context.Context) ([]*futures.PositionRisk, error)
}

// GetOrderService interface for looking up a single order.
type GetOrderService interface {
	Symbol(symbol string) GetOrderService
	OrigClientOrderID(id string) GetOrderService
	Do(ctx context.Context) (*futures.Order, error)
}

// FuturesClient interface abstracts the Binance futures client for testing.
type FuturesClient interface {
	NewCreateOrderService() CreateOrderService
	NewGetBalanceService() GetBalanceService
	NewExchangeInfoService() ExchangeInfoService
	NewGetPositionRiskService() PositionRiskService
	NewGetOrderService() GetOrderService
}

// realFuturesClient wraps the actual futures.Client.
type realFuturesClient struct {
	client *futures.Client
}

func (r *realFuturesClient) NewCreateOrderService() CreateOrderService {
	return &realCreateOrderService{service: r.client.NewCreateOrderService()}
}

func (r *realFuturesClient) NewGetBalanceService() GetBalanceService {
	return &realGetBalanceService{service: r.client.NewGetBalanceService()}
}

func (r *realFuturesClient) NewExchangeInfoService() ExchangeInfoService {
	return &realExchangeInfoService{service: r.client.NewExchangeInfoService()}
}

func (r *realFuturesClient) NewGetPositionRiskService() PositionRiskService {
	return &realPositionRiskService{service: r.client.NewGetPositionRiskService()}
}

func (r *realFuturesClient) NewGetOrderService() GetOrderService {
	return &realGetOrderService{service: r.client.NewGetOrderService()}
}

type realCreateOrderService struct {
	service *futures.CreateOrderService
}

func (s *realCreateOrderService) Symbol(symbol string) CreateOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCreateOrderService) Side(side futures.SideType) CreateOrderService {
	s.service = s.service.Side(side)

	return s
}

func (s *realCreateOrderService) Type(orderType futures.OrderType) CreateOrderService {
	s.service = s.service.Type(orderType)

	return s
}

func (s *realCreateOrderService) Quantity(quantity string) CreateOrderService {
	s.service = s.service.Quantity(quantity)

	return s
}

func (s *realCreateOrderService) Price(price string) CreateOrderService {
	s.service = s.service.Price(price)

	return s
}

func (s *realCreateOrderService) StopPrice(price string) CreateOrderService {
	s.service = s.service.StopPrice(price)

	return s
}

func (s *realCreateOrderService) TimeInForce(tif futures.TimeInForceType) CreateOrderService {
	s.service = s.service.TimeInForce(tif)

	return s
}

func (s *realCreateOrderService) NewClientOrderID(id string) CreateOrderService {
	s.service = s.service.NewClientOrderID(id)

	return s
}

func (s *realCreateOrderService) WorkingType(workingType futures.WorkingType) CreateOrderService {
	s.service = s.service.WorkingType(workingType)

	return s
}

func (s *realCreateOrderService) ClosePosition(closePosition bool) CreateOrderService {
	s.service = s.service.ClosePosition(closePosition)

	return s
}

func (s *realCreateOrderService) Do(ctx context.Context) (*futures.CreateOrderResponse, error) {
	return s.service.Do(ctx)
}

type realGetBalanceService struct {
	service *futures.GetBalanceService
}

func (s *realGetBalanceService) Do(ctx context.Context) ([]*futures.Balance, error) {
	return s.service.Do(ctx)
}

type realExchangeInfoService struct {
	service *futures.ExchangeInfoService
}

func (s *realExchangeInfoService) Do(ctx context.Context) (*futures.ExchangeInfo, error) {
	return s.service.Do(ctx)
}

type realPositionRiskService struct {
	service *futures.GetPositionRiskService
}

func (s *realPositionRiskService) Do(ctx context.Context) ([]*futures.PositionRisk, error) {
	return s.service.Do(ctx)
}

type realGetOrderService struct {
	service *futures.GetOrderService
}

func (s *realGetOrderService) Symbol(symbol string) GetOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realGetOrderService) OrigClientOrderID(id string) GetOrderService {
	s.service = s.service.OrigClientOrderID(id)

	return s
}

func (s *realGetOrderService) Do(ctx context.Context) (*futures.Order, error) {
	return s.service.Do(ctx)
}

// BinanceGateway implements Gateway against Binance USDT-margined futures.
type BinanceGateway struct {
	client FuturesClient
}

// NewBinanceGateway creates a gateway backed by the real Binance futures
// client. useTestnet selects the paper-trading environment.
func NewBinanceGateway(apiKey, secretKey string, useTestnet bool) *BinanceGateway {
	futures.UseTestnet = useTestnet

	return &BinanceGateway{
		client: &realFuturesClient{client: futures.NewClient(apiKey, secretKey)},
	}
}

// NewBinanceGatewayWithClient creates a gateway with a custom client, used in
// tests to inject mocks.
func NewBinanceGatewayWithClient(client FuturesClient) *BinanceGateway {
	return &BinanceGateway{client: client}
}

func toBinanceSide(side types.PurchaseType) futures.SideType {
	if side == types.PurchaseTypeSell {
		return futures.SideTypeSell
	}

	return futures.SideTypeBuy
}

func oppositeSide(side types.PurchaseType) futures.SideType {
	if side == types.PurchaseTypeSell {
		return futures.SideTypeBuy
	}

	return futures.SideTypeSell
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// PlaceMarketOrder implements Gateway.
func (g *BinanceGateway) PlaceMarketOrder(ctx context.Context, symbol string, side types.PurchaseType, size float64, clientOrderID string) (string, error) {
	resp, err := g.client.NewCreateOrderService().
		Symbol(symbol).
		Side(toBinanceSide(side)).
		Type(futures.OrderTypeMarket).
		Quantity(formatFloat(size)).
		NewClientOrderID(clientOrderID).
		Do(ctx)
	if err != nil {
		return "", errors.Wrapf(errors.ErrCodeOrderFailed, err, "market order failed for %s", symbol)
	}

	return strconv.FormatInt(resp.OrderID, 10), nil
}

// PlaceLimitOrder implements Gateway.
func (g *BinanceGateway) PlaceLimitOrder(ctx context.Context, symbol string, side types.PurchaseType, price float64, size float64, clientOrderID string) (string, error) {
	resp, err := g.client.NewCreateOrderService().
		Symbol(symbol).
		Side(toBinanceSide(side)).
		Type(futures.OrderTypeLimit).
		Quantity(formatFloat(size)).
		Price(formatFloat(price)).
		TimeInForce(futures.TimeInForceTypeGTC).
		NewClientOrderID(clientOrderID).
		Do(ctx)
	if err != nil {
		return "", errors.Wrapf(errors.ErrCodeOrderFailed, err, "limit order failed for %s", symbol)
	}

	return strconv.FormatInt(resp.OrderID, 10), nil
}

// PlaceTriggerOrder implements Gateway. The entry is a stop-limit order
// triggered on mark price; the attached stop-loss and take-profit are
// close-position orders on the opposite side, also triggered on mark price.
func (g *BinanceGateway) PlaceTriggerOrder(ctx context.Context, params TriggerOrderParams) (string, error) {
	resp, err := g.client.NewCreateOrderService().
		Symbol(params.Symbol).
		Side(toBinanceSide(params.Side)).
		Type(futures.OrderTypeStop).
		Quantity(formatFloat(params.Size)).
		Price(formatFloat(params.Price)).
		StopPrice(formatFloat(params.TriggerPrice)).
		TimeInForce(futures.TimeInForceTypeGTC).
		WorkingType(futures.WorkingTypeMarkPrice).
		NewClientOrderID(params.ClientOrderID).
		Do(ctx)
	if err != nil {
		return "", errors.Wrapf(errors.ErrCodeOrderFailed, err, "trigger order failed for %s", params.Symbol)
	}

	if params.StopLoss.IsSome() {
		_, err = g.client.NewCreateOrderService().
			Symbol(params.Symbol).
			Side(oppositeSide(params.Side)).
			Type(futures.OrderTypeStopMarket).
			StopPrice(formatFloat(params.StopLoss.Unwrap())).
			WorkingType(futures.WorkingTypeMarkPrice).
			ClosePosition(true).
			Do(ctx)
		if err != nil {
			return "", errors.Wrapf(errors.ErrCodeOrderFailed, err, "stop loss placement failed for %s", params.Symbol)
		}
	}

	if params.TakeProfit.IsSome() {
		_, err = g.client.NewCreateOrderService().
			Symbol(params.Symbol).
			Side(oppositeSide(params.Side)).
			Type(futures.OrderTypeTakeProfitMarket).
			StopPrice(formatFloat(params.TakeProfit.Unwrap())).
			WorkingType(futures.WorkingTypeMarkPrice).
			ClosePosition(true).
			Do(ctx)
		if err != nil {
			return "", errors.Wrapf(errors.ErrCodeOrderFailed, err, "take profit placement failed for %s", params.Symbol)
		}
	}

	return strconv.FormatInt(resp.OrderID, 10), nil
}

// GetAccountBalance implements Gateway. It returns the available balance of
// the USDT margin asset.
func (g *BinanceGateway) GetAccountBalance(ctx context.Context) (float64, error) {
	balances, err := g.client.NewGetBalanceService().Do(ctx)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeBalanceUnavailable, "balance lookup failed", err)
	}

	for _, balance := range balances {
		if balance.Asset != marginAsset {
			continue
		}

		available, err := strconv.ParseFloat(balance.AvailableBalance, 64)
		if err != nil {
			return 0, errors.Wrapf(errors.ErrCodeBalanceUnavailable, err, "unparseable balance %q", balance.AvailableBalance)
		}

		return available, nil
	}

	return 0, errors.Newf(errors.ErrCodeBalanceUnavailable, "no %s balance in account", marginAsset)
}

// GetInstrumentContract implements Gateway.
func (g *BinanceGateway) GetInstrumentContract(ctx context.Context, symbol string) (types.InstrumentContract, error) {
	info, err := g.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return types.InstrumentContract{}, errors.Wrap(errors.ErrCodeContractUnavailable, "exchange info lookup failed", err)
	}

	for i := range info.Symbols {
		s := &info.Symbols[i]
		if s.Symbol != symbol {
			continue
		}

		contract := types.InstrumentContract{
			Symbol:          symbol,
			PricePrecision:  s.PricePrecision,
			VolumePrecision: s.QuantityPrecision,
			MinTradeSize:    0,
		}

		if lotSize := s.LotSizeFilter(); lotSize != nil {
			minQty, err := strconv.ParseFloat(lotSize.MinQuantity, 64)
			if err != nil {
				return types.InstrumentContract{}, errors.Wrapf(errors.ErrCodeContractUnavailable, err, "unparseable min quantity %q for %s", lotSize.MinQuantity, symbol)
			}

			contract.MinTradeSize = minQty
		}

		return contract, nil
	}

	return types.InstrumentContract{}, errors.Newf(errors.ErrCodeContractUnavailable, "symbol %s not in exchange info", symbol)
}

// GetAllPositions implements Gateway. Flat positions are filtered out.
func (g *BinanceGateway) GetAllPositions(ctx context.Context) ([]types.Position, error) {
	risks, err := g.client.NewGetPositionRiskService().Do(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeExchangeUnavailable, "position lookup failed", err)
	}

	positions := make([]types.Position, 0, len(risks))

	for _, risk := range risks {
		amount, err := strconv.ParseFloat(risk.PositionAmt, 64)
		if err != nil || amount == 0 {
			continue
		}

		entryPrice, err := strconv.ParseFloat(risk.EntryPrice, 64)
		if err != nil {
			continue
		}

		side := types.PositionSideLong
		if amount < 0 {
			side = types.PositionSideShort
			amount = -amount
		}

		positions = append(positions, types.Position{
			Symbol:     risk.Symbol,
			Side:       side,
			EntryPrice: entryPrice,
			StopLoss:   0,
			Size:       amount,
		})
	}

	return positions, nil
}

// GetOrderDetail implements Gateway.
func (g *BinanceGateway) GetOrderDetail(ctx context.Context, symbol string, clientOrderID string) (OrderDetail, error) {
	order, err := g.client.NewGetOrderService().
		Symbol(symbol).
		OrigClientOrderID(clientOrderID).
		Do(ctx)
	if err != nil {
		return OrderDetail{}, errors.Wrapf(errors.ErrCodeOrderNotFound, err, "order %s not found for %s", clientOrderID, symbol)
	}

	executedQty, _ := strconv.ParseFloat(order.ExecutedQuantity, 64)
	avgPrice, _ := strconv.ParseFloat(order.AvgPrice, 64)

	return OrderDetail{
		ExchangeOrderID: strconv.FormatInt(order.OrderID, 10),
		ClientOrderID:   order.ClientOrderID,
		Status:          string(order.Status),
		ExecutedQty:     executedQty,
		AvgPrice:        avgPrice,
	}, nil
}

// Verify BinanceGateway implements the Gateway interface.
var _ Gateway = (*BinanceGateway)(nil)
