package types

import (
	"strings"
	"time"

	"github.com/moznion/go-optional"
)

type Direction string

type TradeStatus string

type Provenance string

type Outcome string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

const (
	TradeStatusOpen   TradeStatus = "open"
	TradeStatusClosed TradeStatus = "closed"
)

const (
	ProvenanceManual   Provenance = "manual"
	ProvenanceImported Provenance = "imported"
)

const (
	OutcomeWin       Outcome = "win"
	OutcomeLoss      Outcome = "loss"
	OutcomeBreakeven Outcome = "breakeven"
)

// DateLayout is the calendar-date layout used for trade dates on every boundary.
const DateLayout = "2006-01-02"

// ParseDirection maps broker wording onto a Direction. The second value is false
// when the input is not a recognized direction.
func ParseDirection(raw string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "buy", "long", "b":
		return DirectionBuy, true
	case "sell", "short", "s":
		return DirectionSell, true
	default:
		return "", false
	}
}

// Sign returns +1 for buy and -1 for sell.
func (d Direction) Sign() float64 {
	if d == DirectionSell {
		return -1
	}

	return 1
}

// Trade is one logical position in the journal.
type Trade struct {
	ID   string    `yaml:"id" json:"id" validate:"required"`
	Date time.Time `yaml:"date" json:"date"`
	// Pair is the uppercase instrument symbol, e.g. EURUSD or XAUUSD.
	Pair       string    `yaml:"pair" json:"pair" validate:"required"`
	Direction  Direction `yaml:"direction" json:"direction" validate:"required,oneof=buy sell"`
	EntryPrice float64   `yaml:"entry_price" json:"entry_price" validate:"gt=0"`
	// ExitPrice is None while the trade is open.
	ExitPrice  optional.Option[float64] `yaml:"exit_price" json:"exit_price"`
	StopLoss   optional.Option[float64] `yaml:"stop_loss" json:"stop_loss"`
	TakeProfit optional.Option[float64] `yaml:"take_profit" json:"take_profit"`
	LotSize    float64                  `yaml:"lot_size" json:"lot_size" validate:"gt=0"`
	// PnL is signed and expressed in account currency.
	PnL    float64     `yaml:"pnl" json:"pnl"`
	Status TradeStatus `yaml:"status" json:"status" validate:"required,oneof=open closed"`
	// RiskReward is only set when both stop and target are present and the stop is correctly
	// placed. A target on the wrong side of the entry gives a negative ratio.
	RiskReward optional.Option[float64] `yaml:"risk_reward" json:"risk_reward"`
	Setup      string                   `yaml:"setup" json:"setup" validate:"max=200"`
	Notes      string                   `yaml:"notes" json:"notes" validate:"max=500"`
	Provenance Provenance               `yaml:"provenance" json:"provenance" validate:"omitempty,oneof=manual imported"`
	DedupHash  string                   `yaml:"dedup_hash" json:"dedup_hash"`
}

// IsClosed reports whether the trade has an exit.
func (t Trade) IsClosed() bool {
	return t.Status == TradeStatusClosed
}

// HasStop reports whether a positive stop loss is set.
func (t Trade) HasStop() bool {
	return t.StopLoss.IsSome() && t.StopLoss.Unwrap() > 0
}

// HasTarget reports whether a positive take profit is set.
func (t Trade) HasTarget() bool {
	return t.TakeProfit.IsSome() && t.TakeProfit.Unwrap() > 0
}

// Outcome classifies the trade by the sign of its PnL. Open trades are breakeven.
func (t Trade) Outcome() Outcome {
	switch {
	case !t.IsClosed() || t.PnL == 0:
		return OutcomeBreakeven
	case t.PnL > 0:
		return OutcomeWin
	default:
		return OutcomeLoss
	}
}

// DateKey returns the calendar day of the trade.
func (t Trade) DateKey() string {
	return t.Date.Format(DateLayout)
}

// TradePatch is an explicit partial update. Only fields that are Some are applied;
// ClearExit reopens the trade and ClearStop/ClearTarget remove the levels.
type TradePatch struct {
	Date        optional.Option[time.Time]
	Pair        optional.Option[string]
	Direction   optional.Option[Direction]
	EntryPrice  optional.Option[float64]
	ExitPrice   optional.Option[float64]
	StopLoss    optional.Option[float64]
	TakeProfit  optional.Option[float64]
	LotSize     optional.Option[float64]
	PnL         optional.Option[float64]
	Setup       optional.Option[string]
	Notes       optional.Option[string]
	ClearExit   bool
	ClearStop   bool
	ClearTarget bool
}

// PricesChanged reports whether the patch touches a field PnL is derived from.
func (p TradePatch) PricesChanged() bool {
	return p.EntryPrice.IsSome() || p.ExitPrice.IsSome() || p.LotSize.IsSome() ||
		p.Direction.IsSome() || p.Pair.IsSome() || p.ClearExit
}

// Apply returns a copy of t with the patch applied. Derived fields (status, PnL,
// risk/reward) are not recomputed here.
func (p TradePatch) Apply(t Trade) Trade {
	if p.Date.IsSome() {
		t.Date = p.Date.Unwrap()
	}

	if p.Pair.IsSome() {
		t.Pair = strings.ToUpper(strings.TrimSpace(p.Pair.Unwrap()))
	}

	if p.Direction.IsSome() {
		t.Direction = p.Direction.Unwrap()
	}

	if p.EntryPrice.IsSome() {
		t.EntryPrice = p.EntryPrice.Unwrap()
	}

	if p.ExitPrice.IsSome() {
		t.ExitPrice = optional.Some(p.ExitPrice.Unwrap())
	}

	if p.ClearExit {
		t.ExitPrice = optional.None[float64]()
	}

	if p.StopLoss.IsSome() {
		t.StopLoss = optional.Some(p.StopLoss.Unwrap())
	}

	if p.ClearStop {
		t.StopLoss = optional.None[float64]()
	}

	if p.TakeProfit.IsSome() {
		t.TakeProfit = optional.Some(p.TakeProfit.Unwrap())
	}

	if p.ClearTarget {
		t.TakeProfit = optional.None[float64]()
	}

	if p.LotSize.IsSome() {
		t.LotSize = p.LotSize.Unwrap()
	}

	if p.PnL.IsSome() {
		t.PnL = p.PnL.Unwrap()
	}

	if p.Setup.IsSome() {
		t.Setup = p.Setup.Unwrap()
	}

	if p.Notes.IsSome() {
		t.Notes = p.Notes.Unwrap()
	}

	return t
}
