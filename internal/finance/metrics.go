// Package finance implements the financial metrics engine and the ROI
// decay-impact calculator. All functions are pure; monetary inputs are in
// reference-currency units.
package finance

import (
	"fmt"
	"math"
	"time"

	"github.com/pesio-ai/be-fin-capex/internal/domain"
	"github.com/pesio-ai/be-fin-capex/internal/platform/errors"
)

// Assumptions are the cash-flow inputs for metric computation.
type Assumptions struct {
	InitialInvestment    float64
	DiscountRate         float64 // decimal, e.g. 0.10
	ProjectDurationYears int
	AnnualCashInflow     float64
}

// Metrics is the computed KPI set. IRR and PaybackYears are nil when
// undetermined (non-convergence, or recovery beyond the project horizon).
type Metrics struct {
	NPV          float64
	IRR          *float64
	PaybackYears *float64
	ROI          float64 // percent
}

// IRR solver bounds.
const (
	irrInitialGuess  = 0.10
	irrTolerance     = 1e-6
	irrMaxIterations = 100
)

// Base and per-type discount-rate adjustments (decimal).
const baseDiscountRate = 0.10

var discountRateAdjustments = map[domain.BusinessCaseType]float64{
	domain.CaseESG:         0.02,
	domain.CaseIPOPrep:     0.03,
	domain.CaseCostControl: -0.01,
}

// Annual inflow estimation: base share of investment per year, overridden by
// business-case type in precedence order.
const baseInflowRate = 0.15

var inflowRateByType = []struct {
	caseType domain.BusinessCaseType
	rate     float64
}{
	{domain.CaseCostControl, 0.20},
	{domain.CaseIPOPrep, 0.18},
	{domain.CaseESG, 0.12},
}

// MetricsEngine computes investment metrics from cash-flow assumptions.
type MetricsEngine struct{}

// NewMetricsEngine creates a MetricsEngine.
func NewMetricsEngine() *MetricsEngine {
	return &MetricsEngine{}
}

// validate rejects bad inputs before any computation proceeds.
func (e *MetricsEngine) validate(a Assumptions) error {
	if a.InitialInvestment <= 0 {
		return errors.InvalidInput("initial_investment", "initial investment must be positive")
	}
	if a.DiscountRate < 0 {
		return errors.InvalidInput("discount_rate", "discount rate cannot be negative")
	}
	if a.ProjectDurationYears < 1 {
		return errors.InvalidInput("project_duration_years", "project duration must be at least one year")
	}
	return nil
}

// GenerateCashFlows returns the per-year net inflow series for the project
// horizon. Flows occur at end of year; the initial outlay is tracked
// separately, not as flow zero.
func (e *MetricsEngine) GenerateCashFlows(a Assumptions) ([]float64, error) {
	if err := e.validate(a); err != nil {
		return nil, err
	}
	flows := make([]float64, a.ProjectDurationYears)
	for i := range flows {
		flows[i] = a.AnnualCashInflow
	}
	return flows, nil
}

// NPV is the net present value: -I + Σ CF_t/(1+r)^t for t = 1..n.
func (e *MetricsEngine) NPV(cashFlows []float64, rate, initialInvestment float64) float64 {
	npv := -initialInvestment
	for t, cf := range cashFlows {
		npv += cf / math.Pow(1+rate, float64(t+1))
	}
	return npv
}

// IRR finds the rate at which NPV is zero via Newton-Raphson from a 10%
// starting guess, falling back to bisection steps when the derivative
// vanishes or the iterate leaves (-1, ∞). Non-convergence within the
// iteration budget is a convergence error, never a silently wrong number.
func (e *MetricsEngine) IRR(cashFlows []float64, initialInvestment float64) (float64, error) {
	if initialInvestment <= 0 {
		return 0, errors.InvalidInput("initial_investment", "initial investment must be positive")
	}

	tolerance := irrTolerance * initialInvestment

	rate := irrInitialGuess
	lo, hi := -0.99, 10.0

	for i := 0; i < irrMaxIterations; i++ {
		npv := e.NPV(cashFlows, rate, initialInvestment)
		if math.Abs(npv) < tolerance {
			return rate, nil
		}

		// Maintain a bracket for the bisection fallback.
		if npv > 0 {
			lo = rate
		} else {
			hi = rate
		}

		deriv := e.npvDerivative(cashFlows, rate)
		var next float64
		if math.Abs(deriv) > 1e-12 {
			next = rate - npv/deriv
		}
		if math.Abs(deriv) <= 1e-12 || math.IsNaN(next) || next <= lo || next >= hi {
			next = (lo + hi) / 2
		}
		rate = next
	}

	return 0, errors.Newf(errors.ErrCodeConvergence,
		"IRR did not converge within %d iterations", irrMaxIterations)
}

// npvDerivative is dNPV/dr.
func (e *MetricsEngine) npvDerivative(cashFlows []float64, rate float64) float64 {
	var d float64
	for t, cf := range cashFlows {
		n := float64(t + 1)
		d -= n * cf / math.Pow(1+rate, n+1)
	}
	return d
}

// PaybackPeriod is the time for cumulative inflows to recover the initial
// investment: whole years plus a linearly interpolated fraction of the final
// year. ok is false when the investment is never recovered within the
// horizon.
func (e *MetricsEngine) PaybackPeriod(cashFlows []float64, initialInvestment float64) (years float64, ok bool) {
	remaining := initialInvestment
	for t, cf := range cashFlows {
		if cf >= remaining && cf > 0 {
			return float64(t) + remaining/cf, true
		}
		remaining -= cf
	}
	return 0, false
}

// ROI is the simple return on investment in percent.
func (e *MetricsEngine) ROI(cashFlows []float64, initialInvestment float64) float64 {
	var total float64
	for _, cf := range cashFlows {
		total += cf
	}
	return (total - initialInvestment) / initialInvestment * 100
}

// Compute runs the full metric set for one assumption set.
func (e *MetricsEngine) Compute(a Assumptions) (*Metrics, error) {
	flows, err := e.GenerateCashFlows(a)
	if err != nil {
		return nil, err
	}

	m := &Metrics{
		NPV: e.NPV(flows, a.DiscountRate, a.InitialInvestment),
		ROI: e.ROI(flows, a.InitialInvestment),
	}

	// An undetermined IRR is reportable, not fatal: the KPI record simply
	// carries no IRR.
	if irr, err := e.IRR(flows, a.InitialInvestment); err == nil {
		m.IRR = &irr
	} else if !errors.HasCode(err, errors.ErrCodeConvergence) {
		return nil, err
	}

	if payback, ok := e.PaybackPeriod(flows, a.InitialInvestment); ok {
		m.PaybackYears = &payback
	}

	return m, nil
}

// DefaultDiscountRate returns the base 10% rate with additive per-type
// adjustments; adjustments from multiple types sum.
func (e *MetricsEngine) DefaultDiscountRate(types []domain.BusinessCaseType) float64 {
	rate := baseDiscountRate
	for _, t := range types {
		rate += discountRateAdjustments[t]
	}
	return rate
}

// EstimateAnnualCashInflow estimates the yearly inflow as a share of the
// investment. The share is set by the first matching business-case type in
// precedence order (cost control, IPO prep, ESG), and scaled down 10% for
// horizons beyond five years.
func (e *MetricsEngine) EstimateAnnualCashInflow(investment float64, types []domain.BusinessCaseType, durationYears int) float64 {
	rate := baseInflowRate
	for _, candidate := range inflowRateByType {
		if containsType(types, candidate.caseType) {
			rate = candidate.rate
			break
		}
	}
	if durationYears > 5 {
		rate *= 0.9
	}
	return investment * rate
}

func containsType(types []domain.BusinessCaseType, want domain.BusinessCaseType) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}

// BasisOfCalculation renders the free-text input documentation stored on a
// KPI record.
func BasisOfCalculation(a Assumptions, now time.Time) string {
	return fmt.Sprintf(
		"initial_investment=%.2f discount_rate=%.4f duration_years=%d annual_cash_inflow=%.2f computed_at=%s",
		a.InitialInvestment, a.DiscountRate, a.ProjectDurationYears, a.AnnualCashInflow,
		now.UTC().Format(time.RFC3339),
	)
}
