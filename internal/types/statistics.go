package types

import (
	"fmt"
	"os"
	"time"

	"github.com/LurkingFox/Tradeworth-sub000/internal/version"
	"gopkg.in/yaml.v3"
)

// GradeNone is the worth-score grade of an empty journal.
const GradeNone = "N/A"

type WorthScore struct {
	// Overall is the weighted blend of the component scores, 0-100.
	Overall float64 `yaml:"overall" json:"overall"`
	// WinRateScore maps the win rate onto 0-100 (70% win rate scores 100).
	WinRateScore float64 `yaml:"win_rate_score" json:"win_rate_score"`
	// RiskManagementScore blends profit factor and average R:R.
	RiskManagementScore float64 `yaml:"risk_management_score" json:"risk_management_score"`
	// ConsistencyScore penalizes drawdown and long loss streaks.
	ConsistencyScore float64 `yaml:"consistency_score" json:"consistency_score"`
	// ProfitFactorScore maps the profit factor onto 0-100 (2.5 scores 100).
	ProfitFactorScore float64 `yaml:"profit_factor_score" json:"profit_factor_score"`
	// DisciplineScore is the share of stop and target levels that were set.
	DisciplineScore float64 `yaml:"discipline_score" json:"discipline_score"`
	// MarketTimingScore is the share of trading days that closed positive.
	MarketTimingScore float64 `yaml:"market_timing_score" json:"market_timing_score"`
	// Grade is the letter grade of Overall.
	Grade string `yaml:"grade" json:"grade"`
}

type RiskMetrics struct {
	// Maximum risk of a single trade as a percentage of the account balance.
	MaxRiskPerTrade float64 `yaml:"max_risk_per_trade" json:"max_risk_per_trade"`
	// Average risk per trade as a percentage, over trades with a stop loss.
	AvgRiskPerTrade float64 `yaml:"avg_risk_per_trade" json:"avg_risk_per_trade"`
	// Number of trades that carried an explicit risk amount.
	TradesWithRisk int `yaml:"trades_with_risk" json:"trades_with_risk"`
	// Average risk/reward ratio over trades with a valid ratio.
	AverageRiskReward float64 `yaml:"average_risk_reward" json:"average_risk_reward"`
	// Empirical 95% value at risk, expressed as a positive loss amount.
	ValueAtRisk95 float64 `yaml:"value_at_risk_95" json:"value_at_risk_95"`
	// ValueAtRisk95 as a percentage of the account balance.
	ValueAtRisk95Percent float64 `yaml:"value_at_risk_95_percent" json:"value_at_risk_95_percent"`
}

// GroupPerformance is one row of the per-pair or per-setup breakdown.
type GroupPerformance struct {
	Name       string  `yaml:"name" json:"name"`
	Trades     int     `yaml:"trades" json:"trades"`
	Wins       int     `yaml:"wins" json:"wins"`
	Losses     int     `yaml:"losses" json:"losses"`
	WinRate    float64 `yaml:"win_rate" json:"win_rate"`
	TotalPnL   float64 `yaml:"total_pnl" json:"total_pnl"`
	AveragePnL float64 `yaml:"average_pnl" json:"average_pnl"`
}

// PeriodPerformance is a monthly ("2024-03") or daily ("2024-03-15") bucket.
type PeriodPerformance struct {
	Period  string    `yaml:"period" json:"period"`
	Start   time.Time `yaml:"start" json:"start"`
	Trades  int       `yaml:"trades" json:"trades"`
	Wins    int       `yaml:"wins" json:"wins"`
	Losses  int       `yaml:"losses" json:"losses"`
	WinRate float64   `yaml:"win_rate" json:"win_rate"`
	PnL     float64   `yaml:"pnl" json:"pnl"`
}

type EquityPoint struct {
	Date          time.Time `yaml:"date" json:"date"`
	TradeID       string    `yaml:"trade_id" json:"trade_id"`
	Balance       float64   `yaml:"balance" json:"balance"`
	CumulativePnL float64   `yaml:"cumulative_pnl" json:"cumulative_pnl"`
}

type DrawdownPoint struct {
	Date            time.Time `yaml:"date" json:"date"`
	Balance         float64   `yaml:"balance" json:"balance"`
	Peak            float64   `yaml:"peak" json:"peak"`
	DrawdownPercent float64   `yaml:"drawdown_percent" json:"drawdown_percent"`
}

// StatisticsSnapshot is the immutable output of one aggregation. It is shared by
// pointer between the store, the cache and every reader, and never modified after
// construction.
type StatisticsSnapshot struct {
	TotalTrades     int `yaml:"total_trades" json:"total_trades"`
	OpenTrades      int `yaml:"open_trades" json:"open_trades"`
	ClosedTrades    int `yaml:"closed_trades" json:"closed_trades"`
	WinningTrades   int `yaml:"winning_trades" json:"winning_trades"`
	LosingTrades    int `yaml:"losing_trades" json:"losing_trades"`
	BreakevenTrades int `yaml:"breakeven_trades" json:"breakeven_trades"`
	// Win rate in percent over closed trades.
	WinRate  float64 `yaml:"win_rate" json:"win_rate"`
	LossRate float64 `yaml:"loss_rate" json:"loss_rate"`

	TotalPnL        float64 `yaml:"total_pnl" json:"total_pnl"`
	GrossProfit     float64 `yaml:"gross_profit" json:"gross_profit"`
	GrossLoss       float64 `yaml:"gross_loss" json:"gross_loss"`
	AverageWin      float64 `yaml:"average_win" json:"average_win"`
	AverageLoss     float64 `yaml:"average_loss" json:"average_loss"`
	LargestWin      float64 `yaml:"largest_win" json:"largest_win"`
	LargestLoss     float64 `yaml:"largest_loss" json:"largest_loss"`
	AverageTradePnL float64 `yaml:"average_trade_pnl" json:"average_trade_pnl"`
	ProfitFactor    float64 `yaml:"profit_factor" json:"profit_factor"`
	TotalPips       float64 `yaml:"total_pips" json:"total_pips"`
	ReturnPercent   float64 `yaml:"return_percent" json:"return_percent"`

	CurrentWinStreak  int `yaml:"current_win_streak" json:"current_win_streak"`
	CurrentLossStreak int `yaml:"current_loss_streak" json:"current_loss_streak"`
	MaxWinStreak      int `yaml:"max_win_streak" json:"max_win_streak"`
	MaxLossStreak     int `yaml:"max_loss_streak" json:"max_loss_streak"`

	// Drawdowns in percent of the running peak balance.
	MaxDrawdown       float64 `yaml:"max_drawdown" json:"max_drawdown"`
	CurrentDrawdown   float64 `yaml:"current_drawdown" json:"current_drawdown"`
	MaxDrawdownAmount float64 `yaml:"max_drawdown_amount" json:"max_drawdown_amount"`

	Expectancy     float64 `yaml:"expectancy" json:"expectancy"`
	RecoveryFactor float64 `yaml:"recovery_factor" json:"recovery_factor"`
	CalmarRatio    float64 `yaml:"calmar_ratio" json:"calmar_ratio"`
	SharpeRatio    float64 `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	SortinoRatio   float64 `yaml:"sortino_ratio" json:"sortino_ratio"`
	Skewness       float64 `yaml:"skewness" json:"skewness"`
	Kurtosis       float64 `yaml:"kurtosis" json:"kurtosis"`
	// Kelly fraction in percent of the account. Negative means the edge is negative.
	KellyCriterion float64 `yaml:"kelly_criterion" json:"kelly_criterion"`

	WorthScore WorthScore  `yaml:"worth_score" json:"worth_score"`
	Risk       RiskMetrics `yaml:"risk" json:"risk"`

	PairPerformance    []GroupPerformance  `yaml:"pair_performance" json:"pair_performance"`
	SetupPerformance   []GroupPerformance  `yaml:"setup_performance" json:"setup_performance"`
	MonthlyPerformance []PeriodPerformance `yaml:"monthly_performance" json:"monthly_performance"`
	DailyPerformance   []PeriodPerformance `yaml:"daily_performance" json:"daily_performance"`
	EquityCurve        []EquityPoint       `yaml:"equity_curve" json:"equity_curve"`
	DrawdownSeries     []DrawdownPoint     `yaml:"drawdown_series" json:"drawdown_series"`
}

// EmptySnapshot returns a fully shaped snapshot with zero values and empty, non-nil lists.
func EmptySnapshot() *StatisticsSnapshot {
	return &StatisticsSnapshot{
		WorthScore:         WorthScore{Grade: GradeNone},
		PairPerformance:    []GroupPerformance{},
		SetupPerformance:   []GroupPerformance{},
		MonthlyPerformance: []PeriodPerformance{},
		DailyPerformance:   []PeriodPerformance{},
		EquityCurve:        []EquityPoint{},
		DrawdownSeries:     []DrawdownPoint{},
	}
}

// StatisticsExport is the on-disk form of a snapshot.
type StatisticsExport struct {
	// SchemaVersion is checked on read with version.CheckCompatibility.
	SchemaVersion  string              `yaml:"schema_version"`
	EngineVersion  string              `yaml:"engine_version"`
	ExportedAt     time.Time           `yaml:"exported_at"`
	UserID         string              `yaml:"user_id"`
	AccountBalance float64             `yaml:"account_balance"`
	Statistics     *StatisticsSnapshot `yaml:"statistics"`
}

func WriteStatistics(path string, export StatisticsExport) error {
	if export.SchemaVersion == "" {
		export.SchemaVersion = version.SchemaVersion
	}

	if export.EngineVersion == "" {
		export.EngineVersion = version.GetVersion()
	}

	data, err := yaml.Marshal(export)
	if err != nil {
		return fmt.Errorf("failed to marshal statistics to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write statistics to file: %w", err)
	}

	return nil
}

func ReadStatistics(path string) (StatisticsExport, error) {
	var export StatisticsExport

	data, err := os.ReadFile(path)
	if err != nil {
		return export, fmt.Errorf("failed to read statistics file: %w", err)
	}

	if err := yaml.Unmarshal(data, &export); err != nil {
		return export, fmt.Errorf("failed to unmarshal statistics YAML: %w", err)
	}

	if err := version.CheckCompatibility(version.SchemaVersion, export.SchemaVersion); err != nil {
		return export, fmt.Errorf("incompatible statistics export: %w", err)
	}

	if export.Statistics == nil {
		export.Statistics = EmptySnapshot()
	}

	return export, nil
}
