// Package normalize is the single path from externally sourced trade data to a
// types.Trade. Manual entry, the import pipeline and the HTTP API all go through it.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/LurkingFox/Tradeworth-sub000/internal/calculator"
	"github.com/LurkingFox/Tradeworth-sub000/internal/instrument"
	"github.com/LurkingFox/Tradeworth-sub000/internal/types"
	"github.com/LurkingFox/Tradeworth-sub000/pkg/errors"
	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/zeebo/xxh3"
)

// dateLayouts are tried in order. Day-first layouts come after month-first ones, so
// "03/04/2024" is read as March 4th.
var dateLayouts = []string{
	types.DateLayout,
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"2006.01.02",
	"2006.01.02 15:04:05",
	"2006.01.02 15:04",
	"01/02/2006",
	"01/02/2006 15:04:05",
	"02.01.2006",
	"02-01-2006",
}

// Normalizer converts RawTrade values into validated trades.
type Normalizer struct {
	calc  *calculator.Calculator
	newID func() string
}

// New creates a normalizer backed by the given calculator.
func New(calc *calculator.Calculator) *Normalizer {
	if calc == nil {
		calc = calculator.New(nil)
	}

	return &Normalizer{
		calc:  calc,
		newID: uuid.NewString,
	}
}

// Calculator returns the calculator used for derived fields.
func (n *Normalizer) Calculator() *calculator.Calculator {
	return n.calc
}

// ParseDate accepts the date layouts brokers commonly export and returns the calendar
// day at UTC midnight.
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, errors.New(errors.ErrCodeMissingRequiredFields, "date is required")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()

			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}

	return time.Time{}, errors.Newf(errors.ErrCodeInvalidDate, "unrecognized date %q", raw)
}

// Normalize turns a raw record into a trade with derived status, P&L, risk/reward and
// dedup hash. A broker-supplied P&L is kept as-is; otherwise it is calculated from the
// prices. Stops on the "wrong" side (trailed into profit) are accepted here; callers
// that want advisory checks run Calculator.ValidateTrade. The returned error carries a code that SkipReasonFor maps onto a skip reason.
func (n *Normalizer) Normalize(raw types.RawTrade, provenance types.Provenance) (types.Trade, error) {
	var missing []string

	pair := instrument.Normalize(raw.Pair)
	if pair == "" {
		missing = append(missing, "pair")
	}

	if raw.Entry.IsEmpty() {
		missing = append(missing, "entry")
	}

	if strings.TrimSpace(raw.Date) == "" {
		missing = append(missing, "date")
	}

	if len(missing) > 0 {
		return types.Trade{}, errors.Newf(errors.ErrCodeMissingRequiredFields, "missing required fields: %s", strings.Join(missing, ", "))
	}

	direction, ok := types.ParseDirection(raw.Type)
	if !ok {
		return types.Trade{}, errors.Newf(errors.ErrCodeInvalidEnum, "invalid trade type %q", raw.Type)
	}

	date, err := ParseDate(raw.Date)
	if err != nil {
		return types.Trade{}, err
	}

	entry, err := positive("entry", raw.Entry)
	if err != nil {
		return types.Trade{}, err
	}

	lots, err := positive("lotSize", raw.LotSize)
	if err != nil {
		return types.Trade{}, err
	}

	exit, err := level("exit", raw.Exit)
	if err != nil {
		return types.Trade{}, err
	}

	stop, err := level("stopLoss", raw.StopLoss)
	if err != nil {
		return types.Trade{}, err
	}

	target, err := level("takeProfit", raw.TakeProfit)
	if err != nil {
		return types.Trade{}, err
	}

	trade := types.Trade{
		ID:         n.newID(),
		Date:       date,
		Pair:       pair,
		Direction:  direction,
		EntryPrice: entry,
		ExitPrice:  exit,
		StopLoss:   stop,
		TakeProfit: target,
		LotSize:    lots,
		PnL:        0,
		Status:     types.TradeStatusOpen,
		RiskReward: optional.None[float64](),
		Setup:      Truncate(strings.TrimSpace(raw.Setup), types.MaxSetupLength),
		Notes:      Truncate(strings.TrimSpace(raw.Notes), types.MaxNotesLength),
		Provenance: provenance,
		DedupHash:  "",
	}

	recomputePnL := true

	if !raw.PnL.IsEmpty() {
		pnl, err := calculator.ParseFinancialNumber(raw.PnL.String())
		if err != nil {
			return types.Trade{}, errors.Wrap(errors.ErrCodeInvalidNumber, "invalid pnl", err)
		}

		trade.PnL = pnl
		recomputePnL = false
	}

	trade, err = n.Recalculate(trade, recomputePnL)
	if err != nil {
		return types.Trade{}, err
	}

	if err := n.calc.CheckStructure(trade); err != nil {
		return types.Trade{}, err
	}

	return trade, nil
}

// Recalculate refreshes the fields derived from prices: status, risk/reward, dedup hash
// and, when recomputePnL is set, the P&L of a closed trade. Open trades carry zero P&L.
func (n *Normalizer) Recalculate(t types.Trade, recomputePnL bool) (types.Trade, error) {
	if t.ExitPrice.IsSome() {
		t.Status = types.TradeStatusClosed
	} else {
		t.Status = types.TradeStatusOpen
		t.PnL = 0
	}

	if t.IsClosed() && recomputePnL {
		pnl, err := n.calc.CalculatePnL(t.EntryPrice, t.ExitPrice.Unwrap(), t.LotSize, t.Direction, t.Pair)
		if err != nil {
			return t, err
		}

		t.PnL = pnl
	}

	t.RiskReward = optional.None[float64]()

	if t.HasStop() && t.HasTarget() {
		if rr, err := n.calc.CalculateRiskReward(t.EntryPrice, t.StopLoss.Unwrap(), t.TakeProfit.Unwrap(), t.Direction); err == nil {
			t.RiskReward = optional.Some(rr)
		}
	}

	t.DedupHash = DedupHash(t)

	return t, nil
}

// SkipReasonFor maps a Normalize error onto the import skip reason it is counted under.
func SkipReasonFor(err error) types.SkipReason {
	switch errors.GetCode(err) {
	case errors.ErrCodeMissingRequiredFields:
		return types.SkipMissingRequiredFields
	case errors.ErrCodeInvalidEnum:
		return types.SkipInvalidEnum
	default:
		return types.SkipProcessingError
	}
}

// DedupHash identifies a trade by date, pair, direction, entry, lot size and exit.
// Two records with the same hash are the same position.
func DedupHash(t types.Trade) string {
	exit := "open"
	if t.ExitPrice.IsSome() {
		exit = formatFloat(t.ExitPrice.Unwrap())
	}

	key := strings.Join([]string{
		t.DateKey(),
		t.Pair,
		string(t.Direction),
		formatFloat(t.EntryPrice),
		formatFloat(t.LotSize),
		exit,
	}, "|")

	return fmt.Sprintf("%016x", xxh3.HashString(key))
}

// Truncate cuts s to at most limit runes.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	runes := []rune(s)

	return string(runes[:limit])
}

// ToRecord converts a trade into the persistence row for userID.
func ToRecord(t types.Trade, userID string) types.TradeRecord {
	return types.TradeRecord{
		ID:         t.ID,
		UserID:     userID,
		Date:       t.DateKey(),
		Pair:       t.Pair,
		Type:       t.Direction,
		Entry:      t.EntryPrice,
		Exit:       t.ExitPrice,
		StopLoss:   t.StopLoss,
		TakeProfit: t.TakeProfit,
		LotSize:    t.LotSize,
		PnL:        t.PnL,
		Status:     t.Status,
		Notes:      Truncate(t.Notes, types.MaxNotesLength),
		Setup:      Truncate(t.Setup, types.MaxSetupLength),
		RR:         t.RiskReward,
		Outcome:    t.Outcome(),
		Provenance: t.Provenance,
		DedupHash:  t.DedupHash,
	}
}

// FromRecord converts a persisted row back into a trade.
func FromRecord(rec types.TradeRecord) (types.Trade, error) {
	date, err := ParseDate(rec.Date)
	if err != nil {
		return types.Trade{}, err
	}

	trade := types.Trade{
		ID:         rec.ID,
		Date:       date,
		Pair:       rec.Pair,
		Direction:  rec.Type,
		EntryPrice: rec.Entry,
		ExitPrice:  rec.Exit,
		StopLoss:   rec.StopLoss,
		TakeProfit: rec.TakeProfit,
		LotSize:    rec.LotSize,
		PnL:        rec.PnL,
		Status:     rec.Status,
		RiskReward: rec.RR,
		Setup:      rec.Setup,
		Notes:      rec.Notes,
		Provenance: rec.Provenance,
		DedupHash:  rec.DedupHash,
	}

	if trade.DedupHash == "" {
		trade.DedupHash = DedupHash(trade)
	}

	return trade, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func positive(field string, raw types.RawNumber) (float64, error) {
	if raw.IsEmpty() {
		return 0, errors.Newf(errors.ErrCodeInvalidNumber, "%s is required", field)
	}

	v, err := calculator.ParseFinancialNumber(raw.String())
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeInvalidNumber, err, "invalid %s", field)
	}

	if v <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidNumber, "%s must be positive, got %v", field, v)
	}

	return v, nil
}

// level parses an optional price level. Blank and zero mean "not set".
func level(field string, raw types.RawNumber) (optional.Option[float64], error) {
	if raw.IsEmpty() {
		return optional.None[float64](), nil
	}

	v, err := calculator.ParseFinancialNumber(raw.String())
	if err != nil {
		return optional.None[float64](), errors.Wrapf(errors.ErrCodeInvalidNumber, err, "invalid %s", field)
	}

	if v < 0 {
		return optional.None[float64](), errors.Newf(errors.ErrCodeInvalidNumber, "%s must not be negative, got %v", field, v)
	}

	if v == 0 {
		return optional.None[float64](), nil
	}

	return optional.Some(v), nil
}
