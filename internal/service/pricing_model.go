package service

import (
	"fmt"
	"time"

	"pricing-sync-service/config"
	"pricing-sync-service/internal/models"

	"github.com/shopspring/decimal"
)

// PricingModel computes a final nightly rate from a room's base price and
// the demand signals active for a stay date. It is a pure calculator: no
// I/O, no clock reads, and identical inputs always produce the identical
// decimal, because the batch diffs and caches its output across runs.
//
// Factors are multiplied against the base price in a fixed order so a rate
// can be audited term by term: weekend, demand, lead time, seasonal.
type PricingModel struct {
	cfg config.PricingConfig
}

// NewPricingModel creates a pricing model from static configuration
func NewPricingModel(cfg config.PricingConfig) *PricingModel {
	return &PricingModel{cfg: cfg}
}

// ComputePrice returns the nightly rate for one (room, stay date) cell,
// rounded half-up to currency minor units. A non-positive base price is a
// caller contract violation and fails fast.
func (m *PricingModel) ComputePrice(
	basePrice decimal.Decimal,
	date time.Time,
	today time.Time,
	occupancyRatio float64,
	rules []models.SeasonalRule,
) (decimal.Decimal, error) {
	if !basePrice.IsPositive() {
		return decimal.Zero, fmt.Errorf("base price must be positive, got %s", basePrice)
	}

	price := basePrice.
		Mul(m.weekendFactor(date)).
		Mul(m.demandFactor(occupancyRatio)).
		Mul(m.leadTimeFactor(today, date)).
		Mul(seasonalFactor(date, rules))

	return price.Round(2), nil
}

func (m *PricingModel) weekendFactor(date time.Time) decimal.Decimal {
	for _, day := range m.cfg.WeekendDays {
		if date.Weekday() == day {
			return decimal.NewFromFloat(m.cfg.WeekendFactor)
		}
	}
	return decimal.NewFromInt(1)
}

// demandFactor is a non-decreasing step function of the occupancy ratio,
// clamped to the configured bounds so a mis-tuned band cannot run away.
func (m *PricingModel) demandFactor(occupancyRatio float64) decimal.Decimal {
	occ := clamp01(occupancyRatio)

	factor := 1.0
	for _, band := range m.cfg.DemandBands {
		if occ >= band.MinOccupancy {
			factor = band.Factor
			break
		}
	}

	if factor < m.cfg.DemandFactorMin {
		factor = m.cfg.DemandFactorMin
	}
	if factor > m.cfg.DemandFactorMax {
		factor = m.cfg.DemandFactorMax
	}
	return decimal.NewFromFloat(factor)
}

func (m *PricingModel) leadTimeFactor(today, date time.Time) decimal.Decimal {
	lead := daysBetween(today, date)
	switch {
	case lead <= m.cfg.LastMinuteWithin:
		return decimal.NewFromFloat(m.cfg.LastMinuteFactor)
	case lead >= m.cfg.EarlyBirdBeyond:
		return decimal.NewFromFloat(m.cfg.EarlyBirdFactor)
	default:
		return decimal.NewFromInt(1)
	}
}

// seasonalFactor stacks every active rule covering the date by multiplying
// their multipliers together. Overlapping promotions compound.
func seasonalFactor(date time.Time, rules []models.SeasonalRule) decimal.Decimal {
	factor := decimal.NewFromInt(1)
	day := truncateToDay(date)
	for _, rule := range rules {
		if !rule.Active {
			continue
		}
		if day.Before(truncateToDay(rule.StartDate)) || day.After(truncateToDay(rule.EndDate)) {
			continue
		}
		factor = factor.Mul(rule.Multiplier)
	}
	return factor
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(truncateToDay(to).Sub(truncateToDay(from)) / (24 * time.Hour))
}
