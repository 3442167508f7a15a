package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-fin-capex/internal/domain"
	"github.com/pesio-ai/be-fin-capex/internal/platform/errors"
)

// referenceAssumptions is a worked example checked against a spreadsheet:
// 500k invested, 75k back per year for ten years at a 10% discount rate.
func referenceAssumptions() Assumptions {
	return Assumptions{
		InitialInvestment:    500_000,
		DiscountRate:         0.10,
		ProjectDurationYears: 10,
		AnnualCashInflow:     75_000,
	}
}

func TestCompute_ReferenceCase(t *testing.T) {
	e := NewMetricsEngine()

	m, err := e.Compute(referenceAssumptions())
	require.NoError(t, err)

	assert.InDelta(t, -39_155, m.NPV, 100)

	require.NotNil(t, m.IRR)
	assert.InDelta(t, 0.0814, *m.IRR, 0.001)

	require.NotNil(t, m.PaybackYears)
	assert.InDelta(t, 6.67, *m.PaybackYears, 0.1)

	assert.InDelta(t, 50.0, m.ROI, 1e-9)
}

func TestCompute_RejectsBadAssumptions(t *testing.T) {
	e := NewMetricsEngine()

	cases := []struct {
		name   string
		mutate func(*Assumptions)
	}{
		{"zero investment", func(a *Assumptions) { a.InitialInvestment = 0 }},
		{"negative investment", func(a *Assumptions) { a.InitialInvestment = -1 }},
		{"negative discount rate", func(a *Assumptions) { a.DiscountRate = -0.01 }},
		{"zero duration", func(a *Assumptions) { a.ProjectDurationYears = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := referenceAssumptions()
			tc.mutate(&a)
			_, err := e.Compute(a)
			assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
		})
	}
}

func TestNPV_ZeroRateIsPlainSum(t *testing.T) {
	e := NewMetricsEngine()
	flows := []float64{100, 100, 100}

	assert.InDelta(t, 100, e.NPV(flows, 0, 200), 1e-9)
}

func TestIRR_RecognizesKnownRoot(t *testing.T) {
	e := NewMetricsEngine()

	// 1000 invested, 1100 back after one year: the root is exactly 10%.
	irr, err := e.IRR([]float64{1100}, 1000)
	require.NoError(t, err)
	assert.InDelta(t, 0.10, irr, 1e-4)
}

func TestIRR_NoInflowsNeverConverges(t *testing.T) {
	e := NewMetricsEngine()

	_, err := e.IRR([]float64{0, 0, 0}, 1000)
	assert.True(t, errors.HasCode(err, errors.ErrCodeConvergence))
}

func TestCompute_ConvergenceFailureLeavesIRRUnset(t *testing.T) {
	e := NewMetricsEngine()

	m, err := e.Compute(Assumptions{
		InitialInvestment:    1000,
		DiscountRate:         0.10,
		ProjectDurationYears: 3,
		AnnualCashInflow:     0,
	})
	require.NoError(t, err)
	assert.Nil(t, m.IRR)
	assert.Nil(t, m.PaybackYears)
	assert.InDelta(t, -100.0, m.ROI, 1e-9)
}

func TestPaybackPeriod_InterpolatesFinalYear(t *testing.T) {
	e := NewMetricsEngine()

	years, ok := e.PaybackPeriod([]float64{400, 400, 400}, 1000)
	require.True(t, ok)
	assert.InDelta(t, 2.5, years, 1e-9)
}

func TestPaybackPeriod_BeyondHorizon(t *testing.T) {
	e := NewMetricsEngine()

	_, ok := e.PaybackPeriod([]float64{100, 100}, 1000)
	assert.False(t, ok)
}

func TestDefaultDiscountRate_AdjustmentsAreAdditive(t *testing.T) {
	e := NewMetricsEngine()

	cases := []struct {
		name  string
		types []domain.BusinessCaseType
		want  float64
	}{
		{"no types", nil, 0.10},
		{"esg", []domain.BusinessCaseType{domain.CaseESG}, 0.12},
		{"ipo prep", []domain.BusinessCaseType{domain.CaseIPOPrep}, 0.13},
		{"cost control lowers", []domain.BusinessCaseType{domain.CaseCostControl}, 0.09},
		{"esg and ipo prep stack", []domain.BusinessCaseType{domain.CaseESG, domain.CaseIPOPrep}, 0.15},
		{"unadjusted type keeps base", []domain.BusinessCaseType{domain.CaseExpansion}, 0.10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, e.DefaultDiscountRate(tc.types), 1e-9)
		})
	}
}

func TestEstimateAnnualCashInflow_TypePrecedenceAndHorizonScaling(t *testing.T) {
	e := NewMetricsEngine()

	cases := []struct {
		name     string
		types    []domain.BusinessCaseType
		duration int
		want     float64
	}{
		{"base rate", nil, 5, 150_000},
		{"esg", []domain.BusinessCaseType{domain.CaseESG}, 5, 120_000},
		{"cost control wins over esg", []domain.BusinessCaseType{domain.CaseESG, domain.CaseCostControl}, 5, 200_000},
		{"ipo prep wins over esg", []domain.BusinessCaseType{domain.CaseESG, domain.CaseIPOPrep}, 5, 180_000},
		{"long horizon scales down", nil, 6, 135_000},
		{"cost control long horizon", []domain.BusinessCaseType{domain.CaseCostControl}, 10, 180_000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := e.EstimateAnnualCashInflow(1_000_000, tc.types, tc.duration)
			assert.InDelta(t, tc.want, got, 1e-6)
		})
	}
}

func TestGenerateCashFlows_OneFlowPerYear(t *testing.T) {
	e := NewMetricsEngine()

	flows, err := e.GenerateCashFlows(referenceAssumptions())
	require.NoError(t, err)
	require.Len(t, flows, 10)
	for _, cf := range flows {
		assert.Equal(t, 75_000.0, cf)
	}
}
