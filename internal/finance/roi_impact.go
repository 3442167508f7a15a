package finance

import (
	"math"
	"time"

	"github.com/pesio-ai/be-fin-capex/internal/domain"
)

// Severity grades the economic impact of approval delay.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ImpactStatus distinguishes closed from still-open delay measurements.
type ImpactStatus string

const (
	ImpactApproved ImpactStatus = "approved"
	ImpactPending  ImpactStatus = "pending"
)

// ROIImpact quantifies the return eroded by approval delay. Derived on
// demand, never persisted.
type ROIImpact struct {
	RequestID    string
	OriginalROI  float64 // percent
	AdjustedROI  float64 // percent
	ROILoss      float64 // percentage points lost
	DelayInWeeks float64
	DecayRate    float64 // percentage points per week
	LostValue    float64 // reference-currency units
	Severity     Severity
	Status       ImpactStatus
}

// TimelinePoint is one weekly sample of the decay curve.
type TimelinePoint struct {
	Date                 time.Time
	WeeksSinceSubmission int
	ROI                  float64
	CumulativeLoss       float64
}

// SummaryStats aggregates a set of impact records.
type SummaryStats struct {
	Count          int
	MeanDelayWeeks float64
	TotalROILoss   float64
	MeanROILoss    float64
	MinDelayWeeks  float64 // over positive delays; zero when none
	MaxDelayWeeks  float64
	TotalLostValue float64
}

// Decay-rate model: base rate plus additive adjustments, clamped.
const (
	baseDecayRate = 0.75
	minDecayRate  = 0.10
	maxDecayRate  = 2.00

	// timelineMaxWeeks bounds timeline output for very old open requests.
	timelineMaxWeeks = 520

	week = 7 * 24 * time.Hour
)

var decayTypeAdjustments = map[domain.BusinessCaseType]float64{
	domain.CaseIPOPrep:    0.50,
	domain.CaseCompliance: 0.30,
	domain.CaseExpansion:  0.20,
	domain.CaseESG:        -0.10,
}

var decayDepartmentAdjustments = map[string]float64{
	"IT":            0.20,
	"Manufacturing": 0.10,
	"R&D":           -0.10,
	"Finance":       0.15,
	"Sales":         0.25,
	"Marketing":     0.20,
}

var decayPriorityAdjustments = map[domain.Priority]float64{
	domain.PriorityCritical: 0.40,
	domain.PriorityHigh:     0.20,
	domain.PriorityMedium:   0.00,
	domain.PriorityLow:      -0.10,
}

// ROIImpactCalculator translates elapsed approval time into lost value.
type ROIImpactCalculator struct{}

// NewROIImpactCalculator creates an ROIImpactCalculator.
func NewROIImpactCalculator() *ROIImpactCalculator {
	return &ROIImpactCalculator{}
}

// Calculate computes the decayed ROI for a request. When finalApproval is
// nil the delay is still running: now stands in and the impact is marked
// pending.
func (c *ROIImpactCalculator) Calculate(
	originalROI float64,
	submitted time.Time,
	finalApproval *time.Time,
	investmentAmount float64,
	decayRate float64,
	now time.Time,
) ROIImpact {
	end := now
	status := ImpactPending
	if finalApproval != nil {
		end = *finalApproval
		status = ImpactApproved
	}

	delayWeeks := math.Max(0, end.Sub(submitted).Hours()/(7*24))
	adjusted := math.Max(0, originalROI-decayRate*delayWeeks)
	loss := originalROI - adjusted

	return ROIImpact{
		OriginalROI:  originalROI,
		AdjustedROI:  adjusted,
		ROILoss:      loss,
		DelayInWeeks: delayWeeks,
		DecayRate:    decayRate,
		LostValue:    investmentAmount * loss / 100,
		Severity:     c.Severity(loss),
		Status:       status,
	}
}

// DynamicDecayRate derives the weekly decay rate from request attributes:
// base 0.75 %/week plus a tiered amount adjustment, additive business-case
// type adjustments, a department table and a priority table, clamped to
// [0.1, 2.0].
func (c *ROIImpactCalculator) DynamicDecayRate(
	amount float64,
	types []domain.BusinessCaseType,
	department string,
	priority domain.Priority,
) float64 {
	rate := baseDecayRate

	switch {
	case amount > 1_000_000:
		rate += 0.30
	case amount > 500_000:
		rate += 0.20
	case amount > 100_000:
		rate += 0.10
	}

	for _, t := range types {
		rate += decayTypeAdjustments[t]
	}
	rate += decayDepartmentAdjustments[department]
	rate += decayPriorityAdjustments[priority]

	return math.Min(maxDecayRate, math.Max(minDecayRate, rate))
}

// Timeline samples the decay curve at each whole week from submission to the
// final (or current) date. The output is a pure function of its inputs and
// is capped at 520 weeks.
func (c *ROIImpactCalculator) Timeline(
	originalROI float64,
	submitted time.Time,
	finalApproval *time.Time,
	decayRate float64,
	now time.Time,
) []TimelinePoint {
	end := now
	if finalApproval != nil {
		end = *finalApproval
	}

	totalWeeks := math.Max(0, end.Sub(submitted).Hours()/(7*24))
	weeks := int(math.Floor(totalWeeks))
	if weeks > timelineMaxWeeks {
		weeks = timelineMaxWeeks
	}

	points := make([]TimelinePoint, 0, weeks+1)
	for w := 0; w <= weeks; w++ {
		roi := math.Max(0, originalROI-decayRate*float64(w))
		points = append(points, TimelinePoint{
			Date:                 submitted.Add(time.Duration(w) * week),
			WeeksSinceSubmission: w,
			ROI:                  roi,
			CumulativeLoss:       originalROI - roi,
		})
	}
	return points
}

// Summarize reduces a set of impacts to aggregate statistics. An empty input
// yields the zero summary.
func (c *ROIImpactCalculator) Summarize(impacts []ROIImpact) SummaryStats {
	stats := SummaryStats{Count: len(impacts)}
	if len(impacts) == 0 {
		return stats
	}

	var totalDelay float64
	positiveSeen := false
	for _, imp := range impacts {
		totalDelay += imp.DelayInWeeks
		stats.TotalROILoss += imp.ROILoss
		stats.TotalLostValue += imp.LostValue

		if imp.DelayInWeeks > 0 {
			if !positiveSeen || imp.DelayInWeeks < stats.MinDelayWeeks {
				stats.MinDelayWeeks = imp.DelayInWeeks
			}
			if imp.DelayInWeeks > stats.MaxDelayWeeks {
				stats.MaxDelayWeeks = imp.DelayInWeeks
			}
			positiveSeen = true
		}
	}

	stats.MeanDelayWeeks = totalDelay / float64(len(impacts))
	stats.MeanROILoss = stats.TotalROILoss / float64(len(impacts))
	return stats
}

// Severity grades an ROI loss in percentage points. Boundaries are half-open
// on the lower side: a loss of exactly 5 is medium.
func (c *ROIImpactCalculator) Severity(roiLoss float64) Severity {
	switch {
	case roiLoss < 5:
		return SeverityLow
	case roiLoss < 15:
		return SeverityMedium
	case roiLoss < 30:
		return SeverityHigh
	default:
		return SeverityCritical
	}
}
