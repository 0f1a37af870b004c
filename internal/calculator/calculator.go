// Package calculator holds the per-trade arithmetic: pips, P&L, risk/reward, position
// sizing and trade validation. All functions are pure; instrument conventions come from
// the injected resolver.
package calculator

import (
	"math"

	"github.com/LurkingFox/Tradeworth-sub000/internal/instrument"
	"github.com/LurkingFox/Tradeworth-sub000/internal/types"
	"github.com/LurkingFox/Tradeworth-sub000/pkg/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Calculator performs instrument-aware trade arithmetic.
type Calculator struct {
	resolver *instrument.Resolver
	validate *validator.Validate
}

// PositionSize is the result of CalculatePositionSize.
type PositionSize struct {
	Lots       float64
	Units      float64
	RiskAmount float64
	StopPips   float64
}

// New creates a calculator. A nil resolver means the built-in instrument table.
func New(resolver *instrument.Resolver) *Calculator {
	if resolver == nil {
		resolver = instrument.NewResolver(nil)
	}

	return &Calculator{
		resolver: resolver,
		validate: newValidator(),
	}
}

// Resolver returns the instrument resolver used by the calculator.
func (c *Calculator) Resolver() *instrument.Resolver {
	return c.resolver
}

// CalculatePips returns the signed price move in pips, rounded to one decimal.
func (c *Calculator) CalculatePips(entry, exit float64, symbol string) float64 {
	if entry == 0 || exit == 0 {
		return 0
	}

	spec := c.resolver.Resolve(symbol)
	pips := decimal.NewFromFloat(exit).Sub(decimal.NewFromFloat(entry)).Div(decimal.NewFromFloat(spec.PipValue))

	return pips.Round(1).InexactFloat64()
}

// CalculatePnL returns the account-currency P&L of a closed position rounded to cents.
// Sell positions profit from a falling price. For USD-base forex pairs the quote
// currency amount is converted back through the exit price.
func (c *Calculator) CalculatePnL(entry, exit, lots float64, direction types.Direction, symbol string) (float64, error) {
	if entry == 0 || exit == 0 || lots == 0 {
		return 0, errors.New(errors.ErrCodeMissingInput, "entry, exit and lot size are required to calculate pnl")
	}

	if entry < 0 || exit < 0 || lots < 0 {
		return 0, errors.New(errors.ErrCodeNonPositiveInput, "prices and lot size must be positive")
	}

	if err := checkDirection(direction); err != nil {
		return 0, err
	}

	spec := c.resolver.Resolve(symbol)

	delta := decimal.NewFromFloat(exit).Sub(decimal.NewFromFloat(entry))
	if direction == types.DirectionSell {
		delta = delta.Neg()
	}

	pnl := delta.Mul(decimal.NewFromFloat(lots))

	if spec.Category != types.InstrumentCrypto {
		pnl = pnl.Mul(decimal.NewFromFloat(spec.ContractSize))
	}

	if spec.USDBase {
		pnl = pnl.Div(decimal.NewFromFloat(exit))
	}

	return pnl.Round(2).InexactFloat64(), nil
}

// CalculateRiskReward returns reward/risk rounded to two decimals. A stop on the wrong
// side of the entry yields 0 and ErrCodeInvalidStopPlacement; a target on the wrong
// side gives a negative ratio.
func (c *Calculator) CalculateRiskReward(entry, stop, target float64, direction types.Direction) (float64, error) {
	if entry == 0 || stop == 0 || target == 0 {
		return 0, errors.New(errors.ErrCodeMissingInput, "entry, stop loss and take profit are required")
	}

	if err := checkDirection(direction); err != nil {
		return 0, err
	}

	e := decimal.NewFromFloat(entry)
	risk := e.Sub(decimal.NewFromFloat(stop))
	reward := decimal.NewFromFloat(target).Sub(e)

	if direction == types.DirectionSell {
		risk = risk.Neg()
		reward = reward.Neg()
	}

	if !risk.IsPositive() {
		return 0, errors.Newf(errors.ErrCodeInvalidStopPlacement, "stop loss %v is on the wrong side of entry %v for a %s trade", stop, entry, direction)
	}

	return reward.Div(risk).Round(2).InexactFloat64(), nil
}

// CalculatePositionSize sizes a position so that hitting the stop loses riskPercent of
// the balance. The lot size is truncated, never rounded up: 2 decimals from one lot
// upwards, 3 decimals from 0.01, 5 below that.
func (c *Calculator) CalculatePositionSize(balance, riskPercent, entry, stop float64, symbol string, direction types.Direction) (PositionSize, error) {
	if balance <= 0 || riskPercent <= 0 || entry <= 0 || stop <= 0 {
		return PositionSize{}, errors.New(errors.ErrCodeNonPositiveInput, "balance, risk percent, entry and stop must be positive")
	}

	if err := checkDirection(direction); err != nil {
		return PositionSize{}, err
	}

	priceRisk := decimal.NewFromFloat(entry).Sub(decimal.NewFromFloat(stop))
	if direction == types.DirectionSell {
		priceRisk = priceRisk.Neg()
	}

	if !priceRisk.IsPositive() {
		return PositionSize{}, errors.Newf(errors.ErrCodeInvalidStopPlacement, "stop loss %v is on the wrong side of entry %v for a %s trade", stop, entry, direction)
	}

	spec := c.resolver.Resolve(symbol)
	riskAmount := decimal.NewFromFloat(balance).Mul(decimal.NewFromFloat(riskPercent)).Div(decimal.NewFromInt(100))

	perLot := priceRisk
	if spec.Category != types.InstrumentCrypto {
		perLot = perLot.Mul(decimal.NewFromFloat(spec.ContractSize))
	}

	lots := riskAmount.Div(perLot)
	if spec.USDBase {
		lots = lots.Mul(decimal.NewFromFloat(entry))
	}

	lots = lots.Truncate(lotPrecision(lots.InexactFloat64()))

	return PositionSize{
		Lots:       lots.InexactFloat64(),
		Units:      c.LotsToUnits(lots.InexactFloat64(), symbol),
		RiskAmount: riskAmount.Round(2).InexactFloat64(),
		StopPips:   priceRisk.Div(decimal.NewFromFloat(spec.PipValue)).Round(1).InexactFloat64(),
	}, nil
}

// CalculateRiskAmount returns the account-currency loss if the stop is hit.
func (c *Calculator) CalculateRiskAmount(entry, stop, lots float64, symbol string) (float64, error) {
	pnl, err := c.CalculatePnL(entry, stop, lots, types.DirectionBuy, symbol)
	if err != nil {
		return 0, err
	}

	return math.Abs(pnl), nil
}

// LotsToUnits converts lots into instrument units using the contract size.
func (c *Calculator) LotsToUnits(lots float64, symbol string) float64 {
	spec := c.resolver.Resolve(symbol)
	if spec.Category == types.InstrumentCrypto {
		return lots
	}

	return decimal.NewFromFloat(lots).Mul(decimal.NewFromFloat(spec.ContractSize)).InexactFloat64()
}

// UnitsToLots is the inverse of LotsToUnits.
func (c *Calculator) UnitsToLots(units float64, symbol string) float64 {
	spec := c.resolver.Resolve(symbol)
	if spec.Category == types.InstrumentCrypto || spec.ContractSize == 0 {
		return units
	}

	return decimal.NewFromFloat(units).Div(decimal.NewFromFloat(spec.ContractSize)).InexactFloat64()
}

func lotPrecision(lots float64) int32 {
	switch {
	case lots >= 1:
		return 2
	case lots >= 0.01:
		return 3
	default:
		return 5
	}
}

func checkDirection(direction types.Direction) error {
	if direction != types.DirectionBuy && direction != types.DirectionSell {
		return errors.Newf(errors.ErrCodeInvalidDirection, "unknown direction %q", direction)
	}

	return nil
}
