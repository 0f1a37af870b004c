package calculator

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/LurkingFox/Tradeworth-sub000/internal/types"
	"github.com/LurkingFox/Tradeworth-sub000/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// MaxLotSizeWarning is the lot size above which a trade is flagged as unusual.
const MaxLotSizeWarning = 100

// ValidationResult separates blocking errors from advisory warnings.
type ValidationResult struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func newValidator() *validator.Validate {
	v := validator.New()

	// report fields by their json names
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}

		return name
	})

	return v
}

// ValidateTrade runs the structural checks declared on types.Trade plus the
// directional checks between prices. It never returns an error: problems are listed in
// the result.
func (c *Calculator) ValidateTrade(t types.Trade) ValidationResult {
	result := ValidationResult{
		IsValid:  true,
		Errors:   []string{},
		Warnings: []string{},
	}

	if err := c.validate.Struct(t); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok { //nolint:errorlint
			for _, fe := range fieldErrs {
				result.Errors = append(result.Errors, describeFieldError(fe))
			}
		} else {
			result.Errors = append(result.Errors, err.Error())
		}
	}

	if t.Date.IsZero() {
		result.Errors = append(result.Errors, "date is required")
	} else if t.Date.After(time.Now().UTC().AddDate(0, 0, 1)) {
		result.Warnings = append(result.Warnings, "date is in the future")
	}

	switch {
	case t.Status == types.TradeStatusClosed && t.ExitPrice.IsNone():
		result.Errors = append(result.Errors, "exit_price is required for a closed trade")
	case t.Status == types.TradeStatusOpen && t.ExitPrice.IsSome():
		result.Errors = append(result.Errors, "exit_price must be empty for an open trade")
	}

	if t.ExitPrice.IsSome() && t.ExitPrice.Unwrap() <= 0 {
		result.Errors = append(result.Errors, "exit_price must be greater than 0")
	}

	c.checkLevels(t, &result)

	if t.LotSize > MaxLotSizeWarning {
		result.Warnings = append(result.Warnings, fmt.Sprintf("lot_size %v is above %d", t.LotSize, MaxLotSizeWarning))
	}

	if !t.HasStop() {
		result.Warnings = append(result.Warnings, "no stop_loss set")
	}

	if t.IsClosed() && t.ExitPrice.IsSome() && t.PnL != 0 {
		move := (t.ExitPrice.Unwrap() - t.EntryPrice) * t.Direction.Sign()
		if move != 0 && (move > 0) != (t.PnL > 0) {
			result.Warnings = append(result.Warnings, "pnl sign disagrees with the price movement")
		}
	}

	result.IsValid = len(result.Errors) == 0

	return result
}

// CheckStructure runs only the struct-tag checks of types.Trade and returns them as one
// ErrCodeInvalidTrade error. Price placement is left to ValidateTrade.
func (c *Calculator) CheckStructure(t types.Trade) error {
	err := c.validate.Struct(t)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors) //nolint:errorlint
	if !ok {
		return errors.Wrap(errors.ErrCodeInvalidTrade, "invalid trade", err)
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, describeFieldError(fe))
	}

	return errors.Newf(errors.ErrCodeInvalidTrade, "invalid trade: %s", strings.Join(messages, "; "))
}

//nolint:funcorder
func (c *Calculator) checkLevels(t types.Trade, result *ValidationResult) {
	if t.EntryPrice <= 0 || (t.Direction != types.DirectionBuy && t.Direction != types.DirectionSell) {
		return
	}

	sign := t.Direction.Sign()

	if t.HasStop() && (t.EntryPrice-t.StopLoss.Unwrap())*sign <= 0 {
		side := "below"
		if t.Direction == types.DirectionSell {
			side = "above"
		}

		result.Errors = append(result.Errors, fmt.Sprintf("stop_loss must be %s entry_price for a %s trade", side, t.Direction))
	}

	if t.HasTarget() && (t.TakeProfit.Unwrap()-t.EntryPrice)*sign <= 0 {
		side := "above"
		if t.Direction == types.DirectionSell {
			side = "below"
		}

		result.Errors = append(result.Errors, fmt.Sprintf("take_profit must be %s entry_price for a %s trade", side, t.Direction))
	}

	if t.HasStop() && t.HasTarget() {
		rr, err := c.CalculateRiskReward(t.EntryPrice, t.StopLoss.Unwrap(), t.TakeProfit.Unwrap(), t.Direction)
		if err == nil && rr > 0 && rr < 1 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("risk_reward %.2f is below 1:1", rr))
		}
	}
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
