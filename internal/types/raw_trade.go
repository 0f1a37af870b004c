package types

import (
	"encoding/json"
	"strings"
)

// RawNumber keeps the textual form of a numeric input field. It unmarshals from either
// a JSON number or a JSON string so values such as "1.234,56", "$1,250" or "2%" survive
// until the calculator parses them.
type RawNumber string

// UnmarshalJSON implements json.Unmarshaler.
func (n *RawNumber) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*n = ""

		return nil
	}

	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}

		*n = RawNumber(str)

		return nil
	}

	*n = RawNumber(s)

	return nil
}

// IsEmpty reports whether the field was absent or blank.
func (n RawNumber) IsEmpty() bool {
	return strings.TrimSpace(string(n)) == ""
}

// String implements fmt.Stringer.
func (n RawNumber) String() string {
	return string(n)
}

// RawTrade is the only accepted shape for externally sourced trades (manual entry form,
// broker file parsers, the import API). It is converted into a Trade by the normalize
// package and nowhere else.
type RawTrade struct {
	Date       string    `json:"date" yaml:"date"`
	Pair       string    `json:"pair" yaml:"pair"`
	Type       string    `json:"type" yaml:"type"`
	Entry      RawNumber `json:"entry" yaml:"entry"`
	Exit       RawNumber `json:"exit,omitempty" yaml:"exit,omitempty"`
	StopLoss   RawNumber `json:"stopLoss,omitempty" yaml:"stop_loss,omitempty"`
	TakeProfit RawNumber `json:"takeProfit,omitempty" yaml:"take_profit,omitempty"`
	LotSize    RawNumber `json:"lotSize" yaml:"lot_size"`
	PnL        RawNumber `json:"pnl,omitempty" yaml:"pnl,omitempty"`
	Notes      string    `json:"notes,omitempty" yaml:"notes,omitempty"`
	Setup      string    `json:"setup,omitempty" yaml:"setup,omitempty"`
}
