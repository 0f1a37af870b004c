package types

type InstrumentCategory string

const (
	InstrumentForex     InstrumentCategory = "forex"
	InstrumentMetal     InstrumentCategory = "metal"
	InstrumentCrypto    InstrumentCategory = "crypto"
	InstrumentIndex     InstrumentCategory = "index"
	InstrumentCommodity InstrumentCategory = "commodity"
)

// InstrumentSpec describes the pip and contract conventions of a symbol.
type InstrumentSpec struct {
	Symbol   string             `yaml:"symbol" json:"symbol"`
	Category InstrumentCategory `yaml:"category" json:"category"`
	// PipValue is the price increment of one pip, e.g. 0.0001 for EURUSD.
	PipValue float64 `yaml:"pip_value" json:"pip_value"`
	// PipPosition is the number of decimals the pip sits at.
	PipPosition int `yaml:"pip_position" json:"pip_position"`
	// ContractSize is the number of units one lot represents.
	ContractSize float64 `yaml:"contract_size" json:"contract_size"`
	// USDBase is true for forex pairs quoted as USD/xxx, whose PnL is converted
	// back to USD by dividing by the exit price.
	USDBase bool `yaml:"usd_base" json:"usd_base"`
}
