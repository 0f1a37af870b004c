package stats

import (
	"math"

	"github.com/LurkingFox/Tradeworth-sub000/internal/types"
)

// Worth score component weights; they sum to 100.
const (
	weightWinRate        = 20
	weightRiskManagement = 25
	weightConsistency    = 20
	weightProfitFactor   = 15
	weightDiscipline     = 15
	weightMarketTiming   = 5
)

// Targets at which a component reaches 100.
const (
	targetWinRate      = 70.0
	targetProfitFactor = 2.5
	targetRiskPF       = 3.0
	targetRiskReward   = 3.0
)

type worthInputs struct {
	closed        int
	total         int
	winRate       float64
	profitFactor  float64
	avgRiskReward float64
	maxDrawdown   float64
	maxLossStreak int
	withStop      int
	withTarget    int
	positiveDays  int
	tradingDays   int
}

func worthScore(in worthInputs) types.WorthScore {
	if in.closed == 0 {
		return types.WorthScore{Grade: types.GradeNone}
	}

	score := types.WorthScore{
		WinRateScore: clamp(in.winRate/targetWinRate*100, 0, 100),
		RiskManagementScore: 0.5*clamp(in.profitFactor/targetRiskPF*100, 0, 100) +
			0.5*clamp(in.avgRiskReward/targetRiskReward*100, 0, 100),
		ConsistencyScore:  clamp(100-in.maxDrawdown*2-float64(in.maxLossStreak)*5, 0, 100),
		ProfitFactorScore: clamp(in.profitFactor/targetProfitFactor*100, 0, 100),
		DisciplineScore:   clamp(ratio(float64(in.withStop+in.withTarget), float64(2*in.total))*100, 0, 100),
		MarketTimingScore: clamp(ratio(float64(in.positiveDays), float64(in.tradingDays))*100, 0, 100),
	}

	overall := (score.WinRateScore*weightWinRate +
		score.RiskManagementScore*weightRiskManagement +
		score.ConsistencyScore*weightConsistency +
		score.ProfitFactorScore*weightProfitFactor +
		score.DisciplineScore*weightDiscipline +
		score.MarketTimingScore*weightMarketTiming) / 100

	score.Overall = round1(overall)
	score.WinRateScore = round1(score.WinRateScore)
	score.RiskManagementScore = round1(score.RiskManagementScore)
	score.ConsistencyScore = round1(score.ConsistencyScore)
	score.ProfitFactorScore = round1(score.ProfitFactorScore)
	score.DisciplineScore = round1(score.DisciplineScore)
	score.MarketTimingScore = round1(score.MarketTimingScore)
	score.Grade = Grade(score.Overall)

	return score
}

func round1(v float64) float64 {
	return sanitize(math.Round(sanitize(v)*10) / 10)
}

// Grade maps an overall worth score onto a letter grade.
func Grade(overall float64) string {
	switch {
	case overall >= 90:
		return "A+"
	case overall >= 80:
		return "A"
	case overall >= 70:
		return "B"
	case overall >= 60:
		return "C"
	case overall >= 50:
		return "D"
	default:
		return "F"
	}
}
