package types

import (
	"github.com/moznion/go-optional"
)

const (
	// MaxNotesLength is the persisted length limit for notes.
	MaxNotesLength = 500
	// MaxSetupLength is the persisted length limit for the setup tag.
	MaxSetupLength = 200
)

// TradeRecord is the normalized row handed to the persistence collaborator.
type TradeRecord struct {
	ID         string                   `json:"id"`
	UserID     string                   `json:"user_id"`
	Date       string                   `json:"date"`
	Pair       string                   `json:"pair"`
	Type       Direction                `json:"type"`
	Entry      float64                  `json:"entry"`
	Exit       optional.Option[float64] `json:"exit"`
	StopLoss   optional.Option[float64] `json:"stop_loss"`
	TakeProfit optional.Option[float64] `json:"take_profit"`
	LotSize    float64                  `json:"lot_size"`
	PnL        float64                  `json:"pnl"`
	Status     TradeStatus              `json:"status"`
	Notes      string                   `json:"notes"`
	Setup      string                   `json:"setup"`
	RR         optional.Option[float64] `json:"rr"`
	Outcome    Outcome                  `json:"outcome"`
	Provenance Provenance               `json:"provenance"`
	DedupHash  string                   `json:"dedup_hash"`
}
