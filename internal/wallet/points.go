package wallet

import "strings"

// Eco-level labels, ordered by lifetime CO2 saved.
const (
	LevelSemilla  = "Semilla"
	LevelBrote    = "Brote Consciente"
	LevelGuardian = "Guardián del Bosque"
	LevelHeroe    = "Héroe Climático"
)

const (
	pointsPerDollar = 1
	pointsPerKgCO2  = 20
)

// Breakdown records how a credit was computed; it is embedded in the
// EARN transaction's metadata for audit purposes.
type Breakdown struct {
	FromRevenue   int64  `json:"pointsFromRevenue"`
	FromImpact    int64  `json:"pointsFromImpact"`
	Base          int64  `json:"basePoints"`
	MultiplierBps int64  `json:"multiplierBps"`
	AppliedLevel  string `json:"appliedLevel"`
}

// CalculatePoints is pure: floor(total$) * 1 + floor(kg * 20), then the
// level multiplier, floored again. Currency comes in as cents and CO2 as
// grams, so everything stays in integer arithmetic.
func CalculatePoints(totalCents, co2Grams int64, level string) (int64, Breakdown) {
	fromRevenue := totalCents / 100 * pointsPerDollar
	fromImpact := co2Grams * pointsPerKgCO2 / 1000

	base := fromRevenue + fromImpact
	bps := levelMultiplierBps(level)
	final := base * bps / 100

	return final, Breakdown{
		FromRevenue:   fromRevenue,
		FromImpact:    fromImpact,
		Base:          base,
		MultiplierBps: bps,
		AppliedLevel:  level,
	}
}

func levelMultiplierBps(level string) int64 {
	switch strings.ToUpper(level) {
	case strings.ToUpper(LevelBrote):
		return 110
	case strings.ToUpper(LevelGuardian):
		return 125
	case strings.ToUpper(LevelHeroe):
		return 150
	default:
		return 100
	}
}

// LevelForCarbon derives the eco-level from cumulative CO2 saved across
// paid orders. The wallet's level column is only a cached label of this.
// The second return is the next threshold in kg, for display.
func LevelForCarbon(lifetimeGrams int64) (string, int64) {
	kg := lifetimeGrams / 1000
	switch {
	case kg >= 200:
		return LevelHeroe, 1000
	case kg >= 50:
		return LevelGuardian, 200
	case kg >= 10:
		return LevelBrote, 50
	default:
		return LevelSemilla, 10
	}
}
