package main

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/LurkingFox/Tradeworth-sub000/internal/types"
	"github.com/charmbracelet/lipgloss"
)

// readTrades loads raw records from a JSON file holding either an array of trades
// or an object with a "trades" array.
func readTrades(path string) ([]types.RawTrade, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	trimmed := strings.TrimSpace(string(data))

	if strings.HasPrefix(trimmed, "[") {
		var raws []types.RawTrade
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, fmt.Errorf("failed to decode trades: %w", err)
		}

		return raws, nil
	}

	var wrapped struct {
		Trades []types.RawTrade `json:"trades"`
	}

	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode trades: %w", err)
	}

	return wrapped.Trades, nil
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, LabelStyle.Render(label), value)
}

func section(title string, rows ...string) string {
	body := append([]string{TitleStyle.Render(title)}, rows...)

	return SectionStyle.Render(lipgloss.JoinVertical(lipgloss.Left, body...))
}

// renderStatistics formats the snapshot as a terminal report. pairs limits the
// per-pair breakdown; zero shows every pair.
func renderStatistics(s *types.StatisticsSnapshot, balance float64, pairs int) string {
	overview := section("Overview",
		row("Trades", fmt.Sprintf("%d (%d open, %d closed)", s.TotalTrades, s.OpenTrades, s.ClosedTrades)),
		row("Win rate", fmt.Sprintf("%.2f%%", s.WinRate)),
		row("Total P&L", FormatMoney(s.TotalPnL)),
		row("Return", fmt.Sprintf("%.2f%% of %.2f", s.ReturnPercent, balance)),
		row("Profit factor", fmt.Sprintf("%.2f", s.ProfitFactor)),
		row("Expectancy", FormatMoney(s.Expectancy)),
		row("Total pips", fmt.Sprintf("%.1f", s.TotalPips)),
	)

	risk := section("Risk",
		row("Max drawdown", fmt.Sprintf("%.2f%% (%.2f)", s.MaxDrawdown, s.MaxDrawdownAmount)),
		row("Sharpe / Sortino", fmt.Sprintf("%.2f / %.2f", s.SharpeRatio, s.SortinoRatio)),
		row("Calmar / Recovery", fmt.Sprintf("%.2f / %.2f", s.CalmarRatio, s.RecoveryFactor)),
		row("Kelly", fmt.Sprintf("%.2f%%", s.KellyCriterion)),
		row("Average R:R", fmt.Sprintf("%.2f", s.Risk.AverageRiskReward)),
		row("VaR 95%", fmt.Sprintf("%.2f (%.2f%%)", s.Risk.ValueAtRisk95, s.Risk.ValueAtRisk95Percent)),
		row("Streaks (W/L max)", fmt.Sprintf("%d / %d", s.MaxWinStreak, s.MaxLossStreak)),
	)

	worth := section("Worth Score",
		row("Overall", fmt.Sprintf("%.1f %s", s.WorthScore.Overall, GradeStyle.Render(s.WorthScore.Grade))),
		row("Win rate", fmt.Sprintf("%.1f", s.WorthScore.WinRateScore)),
		row("Risk management", fmt.Sprintf("%.1f", s.WorthScore.RiskManagementScore)),
		row("Consistency", fmt.Sprintf("%.1f", s.WorthScore.ConsistencyScore)),
		row("Profit factor", fmt.Sprintf("%.1f", s.WorthScore.ProfitFactorScore)),
		row("Discipline", fmt.Sprintf("%.1f", s.WorthScore.DisciplineScore)),
		row("Market timing", fmt.Sprintf("%.1f", s.WorthScore.MarketTimingScore)),
	)

	blocks := []string{lipgloss.JoinHorizontal(lipgloss.Top, overview, risk), worth}

	if len(s.PairPerformance) > 0 {
		perf := s.PairPerformance
		if pairs > 0 && len(perf) > pairs {
			perf = perf[:pairs]
		}

		rows := make([]string, 0, len(perf))
		for _, p := range perf {
			rows = append(rows, row(p.Name, fmt.Sprintf("%3d trades  %6.2f%%  %s", p.Trades, p.WinRate, FormatMoney(p.TotalPnL))))
		}

		blocks = append(blocks, section("Pairs", rows...))
	}

	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

func renderImport(job *types.ImportJob) string {
	rows := []string{
		row("Job", job.ID),
		row("Status", string(job.Status)),
		row("Processed", fmt.Sprintf("%d / %d", job.Totals.Processed, job.Totals.Total)),
		row("Succeeded", fmt.Sprintf("%d", job.Totals.Succeeded)),
		row("Failed", fmt.Sprintf("%d", job.Totals.Failed)),
		row("Duplicate", fmt.Sprintf("%d", job.Totals.Duplicate)),
		row("Chunk size", fmt.Sprintf("%d", job.ChunkSize)),
	}

	for _, reason := range slices.Sorted(maps.Keys(job.SkipBreakdown)) {
		if n := job.SkipBreakdown[reason]; n > 0 {
			rows = append(rows, row("  "+string(reason), fmt.Sprintf("%d", n)))
		}
	}

	if job.Verification != nil && !job.Verification.Matched {
		rows = append(rows, row("Verification", ErrorStyle.Render("mismatch")))
	}

	if job.Error != "" {
		rows = append(rows, row("Error", ErrorStyle.Render(job.Error)))
	}

	return section("Import", rows...)
}
