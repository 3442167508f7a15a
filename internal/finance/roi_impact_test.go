package finance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-fin-capex/internal/domain"
)

var submittedAt = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

func weeksAfter(n float64) time.Time {
	return submittedAt.Add(time.Duration(n * float64(7*24) * float64(time.Hour)))
}

func TestCalculate_TenWeekDelayReference(t *testing.T) {
	c := NewROIImpactCalculator()
	approved := weeksAfter(10)

	imp := c.Calculate(20, submittedAt, &approved, 500_000, 0.75, approved)

	assert.InDelta(t, 10.0, imp.DelayInWeeks, 1e-9)
	assert.InDelta(t, 12.5, imp.AdjustedROI, 1e-9)
	assert.InDelta(t, 7.5, imp.ROILoss, 1e-9)
	assert.InDelta(t, 37_500, imp.LostValue, 1e-6)
	assert.Equal(t, SeverityMedium, imp.Severity)
	assert.Equal(t, ImpactApproved, imp.Status)
}

func TestCalculate_PendingUsesCurrentTime(t *testing.T) {
	c := NewROIImpactCalculator()
	now := weeksAfter(4)

	imp := c.Calculate(20, submittedAt, nil, 100_000, 0.5, now)

	assert.Equal(t, ImpactPending, imp.Status)
	assert.InDelta(t, 4.0, imp.DelayInWeeks, 1e-9)
	assert.InDelta(t, 18.0, imp.AdjustedROI, 1e-9)
}

func TestCalculate_ROINeverGoesNegative(t *testing.T) {
	c := NewROIImpactCalculator()
	approved := weeksAfter(100)

	imp := c.Calculate(20, submittedAt, &approved, 100_000, 0.75, approved)

	assert.Equal(t, 0.0, imp.AdjustedROI)
	assert.InDelta(t, 20.0, imp.ROILoss, 1e-9, "loss saturates at the original ROI")
	assert.Equal(t, SeverityHigh, imp.Severity)
}

func TestCalculate_ClockSkewClampsDelayToZero(t *testing.T) {
	c := NewROIImpactCalculator()
	before := submittedAt.Add(-48 * time.Hour)

	imp := c.Calculate(20, submittedAt, &before, 100_000, 0.75, before)

	assert.Equal(t, 0.0, imp.DelayInWeeks)
	assert.Equal(t, 20.0, imp.AdjustedROI)
	assert.Equal(t, 0.0, imp.ROILoss)
}

func TestDynamicDecayRate_TieredAndAdditive(t *testing.T) {
	c := NewROIImpactCalculator()

	cases := []struct {
		name     string
		amount   float64
		types    []domain.BusinessCaseType
		dept     string
		priority domain.Priority
		want     float64
	}{
		{"base only", 50_000, nil, "Other", domain.PriorityMedium, 0.75},
		{"mid amount tier", 250_000, nil, "Other", domain.PriorityMedium, 0.85},
		{"upper amount tier", 750_000, nil, "Other", domain.PriorityMedium, 0.95},
		{"top amount tier exclusive", 2_000_000, nil, "Other", domain.PriorityMedium, 1.05},
		{"esg dampens", 50_000, []domain.BusinessCaseType{domain.CaseESG}, "Other", domain.PriorityMedium, 0.65},
		{"types stack", 50_000, []domain.BusinessCaseType{domain.CaseIPOPrep, domain.CaseCompliance}, "Other", domain.PriorityMedium, 1.55},
		{"department and priority", 50_000, nil, "Sales", domain.PriorityCritical, 1.40},
		{"clamped at ceiling", 2_000_000, []domain.BusinessCaseType{domain.CaseIPOPrep, domain.CaseCompliance}, "Sales", domain.PriorityCritical, 2.00},
		{"dampening stacks", 50_000, []domain.BusinessCaseType{domain.CaseESG}, "R&D", domain.PriorityLow, 0.45},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := c.DynamicDecayRate(tc.amount, tc.types, tc.dept, tc.priority)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestSeverity_Boundaries(t *testing.T) {
	c := NewROIImpactCalculator()

	cases := []struct {
		loss float64
		want Severity
	}{
		{0, SeverityLow},
		{4.99, SeverityLow},
		{5.0, SeverityMedium},
		{14.99, SeverityMedium},
		{15.0, SeverityHigh},
		{29.99, SeverityHigh},
		{30.0, SeverityCritical},
		{80.0, SeverityCritical},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, c.Severity(tc.loss), "loss %.2f", tc.loss)
	}
}

func TestTimeline_OnePointPerWholeWeek(t *testing.T) {
	c := NewROIImpactCalculator()
	approved := weeksAfter(3.5)

	points := c.Timeline(20, submittedAt, &approved, 0.75, approved)
	require.Len(t, points, 4, "weeks 0 through 3")

	assert.Equal(t, submittedAt, points[0].Date)
	assert.Equal(t, 20.0, points[0].ROI)
	assert.Equal(t, 0.0, points[0].CumulativeLoss)

	for i := 1; i < len(points); i++ {
		assert.Equal(t, i, points[i].WeeksSinceSubmission)
		assert.Less(t, points[i].ROI, points[i-1].ROI, "ROI decays monotonically")
		assert.Greater(t, points[i].CumulativeLoss, points[i-1].CumulativeLoss)
	}

	last := points[len(points)-1]
	assert.InDelta(t, 20-0.75*3, last.ROI, 1e-9)
}

func TestTimeline_CappedForVeryOldRequests(t *testing.T) {
	c := NewROIImpactCalculator()
	now := weeksAfter(1000)

	points := c.Timeline(50, submittedAt, nil, 0.1, now)
	assert.Len(t, points, 521)
}

func TestTimeline_FloorsAtZeroROI(t *testing.T) {
	c := NewROIImpactCalculator()
	approved := weeksAfter(10)

	points := c.Timeline(3, submittedAt, &approved, 1.0, approved)
	last := points[len(points)-1]
	assert.Equal(t, 0.0, last.ROI)
	assert.Equal(t, 3.0, last.CumulativeLoss)
}

func TestSummarize_EmptyIsZero(t *testing.T) {
	c := NewROIImpactCalculator()

	stats := c.Summarize(nil)
	assert.Equal(t, SummaryStats{}, stats)
}

func TestSummarize_Aggregates(t *testing.T) {
	c := NewROIImpactCalculator()

	impacts := []ROIImpact{
		{DelayInWeeks: 2, ROILoss: 1.5, LostValue: 1_500},
		{DelayInWeeks: 0, ROILoss: 0, LostValue: 0},
		{DelayInWeeks: 10, ROILoss: 7.5, LostValue: 37_500},
	}

	stats := c.Summarize(impacts)
	assert.Equal(t, 3, stats.Count)
	assert.InDelta(t, 4.0, stats.MeanDelayWeeks, 1e-9)
	assert.InDelta(t, 9.0, stats.TotalROILoss, 1e-9)
	assert.InDelta(t, 3.0, stats.MeanROILoss, 1e-9)
	assert.InDelta(t, 39_000, stats.TotalLostValue, 1e-6)
	assert.InDelta(t, 2.0, stats.MinDelayWeeks, 1e-9, "zero delays excluded from min")
	assert.InDelta(t, 10.0, stats.MaxDelayWeeks, 1e-9)
}
