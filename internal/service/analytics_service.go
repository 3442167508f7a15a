package service

import (
	"context"
	"time"

	"github.com/pesio-ai/be-fin-capex/internal/domain"
	"github.com/pesio-ai/be-fin-capex/internal/finance"
	"github.com/pesio-ai/be-fin-capex/internal/platform/errors"
	"github.com/pesio-ai/be-fin-capex/internal/platform/logger"
	"github.com/pesio-ai/be-fin-capex/internal/repository"
)

// AnalyticsService computes and serves financial KPIs and ROI-decay impact.
// KPI records persist; impact, timeline and summary are derived on demand.
type AnalyticsService struct {
	requestRepo *repository.RequestRepository
	kpiRepo     *repository.KPIRepository
	logRepo     *repository.ApprovalLogRepository
	metrics     *finance.MetricsEngine
	impact      *finance.ROIImpactCalculator
	log         *logger.Logger
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(
	requestRepo *repository.RequestRepository,
	kpiRepo *repository.KPIRepository,
	logRepo *repository.ApprovalLogRepository,
	metrics *finance.MetricsEngine,
	impact *finance.ROIImpactCalculator,
	log *logger.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		requestRepo: requestRepo,
		kpiRepo:     kpiRepo,
		logRepo:     logRepo,
		metrics:     metrics,
		impact:      impact,
		log:         log,
	}
}

// ComputeKPIRequest carries optional overrides for KPI computation; absent
// fields fall back to the engine's business-case defaults.
type ComputeKPIRequest struct {
	RequestID        string   `json:"request_id"`
	DiscountRate     *float64 `json:"discount_rate"`
	DurationYears    int      `json:"duration_years"`
	AnnualCashInflow *float64 `json:"annual_cash_inflow"`
}

// ComputeKPIs derives the assumption set for a request, runs the metrics
// engine and stores the resulting KPI record (replacing any prior one).
func (s *AnalyticsService) ComputeKPIs(ctx context.Context, req *ComputeKPIRequest) (*domain.KPIRecord, error) {
	request, err := s.requestRepo.GetByID(ctx, req.RequestID)
	if err != nil {
		return nil, err
	}
	if req.DurationYears < 1 {
		return nil, errors.InvalidInput("duration_years", "project duration must be at least one year")
	}

	investment := centsToUnits(request.TotalBaseAmount())

	rate := s.metrics.DefaultDiscountRate(request.BusinessCaseTypes)
	if req.DiscountRate != nil {
		rate = *req.DiscountRate
	}

	inflow := s.metrics.EstimateAnnualCashInflow(investment, request.BusinessCaseTypes, req.DurationYears)
	if req.AnnualCashInflow != nil {
		inflow = *req.AnnualCashInflow
	}

	assumptions := finance.Assumptions{
		InitialInvestment:    investment,
		DiscountRate:         rate,
		ProjectDurationYears: req.DurationYears,
		AnnualCashInflow:     inflow,
	}

	computed, err := s.metrics.Compute(assumptions)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	record := &domain.KPIRecord{
		RequestID:          request.ID,
		IRR:                computed.IRR,
		NPV:                computed.NPV,
		PaybackYears:       computed.PaybackYears,
		ROI:                computed.ROI,
		BasisOfCalculation: finance.BasisOfCalculation(assumptions, now),
		ComputedAt:         now,
	}

	if err := s.kpiRepo.Upsert(ctx, record); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("request_id", request.ID).
		Float64("npv", record.NPV).
		Float64("roi", record.ROI).
		Bool("irr_determined", record.IRR != nil).
		Msg("KPI record computed")

	return record, nil
}

// GetKPIs returns the stored KPI record for a request.
func (s *AnalyticsService) GetKPIs(ctx context.Context, requestID string) (*domain.KPIRecord, error) {
	return s.kpiRepo.GetByRequestID(ctx, requestID)
}

// GetROIImpact computes the delay impact for one request from its KPI
// record, submission date and decision trail.
func (s *AnalyticsService) GetROIImpact(ctx context.Context, requestID string) (*finance.ROIImpact, error) {
	request, kpi, final, err := s.loadImpactInputs(ctx, requestID)
	if err != nil {
		return nil, err
	}

	decayRate := s.impact.DynamicDecayRate(
		centsToUnits(request.TotalBaseAmount()),
		request.BusinessCaseTypes,
		request.Department,
		request.Priority,
	)

	impact := s.impact.Calculate(
		kpi.ROI,
		*request.SubmittedDate,
		final,
		centsToUnits(request.TotalBaseAmount()),
		decayRate,
		time.Now(),
	)
	impact.RequestID = request.ID
	return &impact, nil
}

// GetROITimeline returns the weekly decay curve for one request.
func (s *AnalyticsService) GetROITimeline(ctx context.Context, requestID string) ([]finance.TimelinePoint, error) {
	request, kpi, final, err := s.loadImpactInputs(ctx, requestID)
	if err != nil {
		return nil, err
	}

	decayRate := s.impact.DynamicDecayRate(
		centsToUnits(request.TotalBaseAmount()),
		request.BusinessCaseTypes,
		request.Department,
		request.Priority,
	)

	return s.impact.Timeline(kpi.ROI, *request.SubmittedDate, final, decayRate, time.Now()), nil
}

// GetPortfolioSummary aggregates delay impact across every submitted request
// that has a KPI record.
func (s *AnalyticsService) GetPortfolioSummary(ctx context.Context) (*finance.SummaryStats, error) {
	requests, _, err := s.requestRepo.List(ctx, repository.ListFilter{Limit: 1000})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var impacts []finance.ROIImpact
	for _, request := range requests {
		if request.SubmittedDate == nil {
			continue
		}
		kpi, err := s.kpiRepo.GetByRequestID(ctx, request.ID)
		if err != nil {
			if errors.HasCode(err, errors.ErrCodeNotFound) {
				continue
			}
			return nil, err
		}

		final, err := s.finalApprovalDate(ctx, request)
		if err != nil {
			return nil, err
		}

		decayRate := s.impact.DynamicDecayRate(
			centsToUnits(request.TotalBaseAmount()),
			request.BusinessCaseTypes,
			request.Department,
			request.Priority,
		)
		impact := s.impact.Calculate(
			kpi.ROI, *request.SubmittedDate, final,
			centsToUnits(request.TotalBaseAmount()), decayRate, now,
		)
		impact.RequestID = request.ID
		impacts = append(impacts, impact)
	}

	summary := s.impact.Summarize(impacts)
	return &summary, nil
}

// loadImpactInputs gathers the request, its KPI record and the final
// approval timestamp (nil while the request is still open).
func (s *AnalyticsService) loadImpactInputs(ctx context.Context, requestID string) (*domain.InvestmentRequest, *domain.KPIRecord, *time.Time, error) {
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, nil, nil, err
	}
	if request.SubmittedDate == nil {
		return nil, nil, nil, errors.New(errors.ErrCodeValidation,
			"request has not been submitted; no delay to measure").
			With("request_id", requestID)
	}
	kpi, err := s.kpiRepo.GetByRequestID(ctx, requestID)
	if err != nil {
		return nil, nil, nil, err
	}
	final, err := s.finalApprovalDate(ctx, request)
	if err != nil {
		return nil, nil, nil, err
	}
	return request, kpi, final, nil
}

// finalApprovalDate is the timestamp of the decision that closed the chain,
// nil while the request is still open.
func (s *AnalyticsService) finalApprovalDate(ctx context.Context, request *domain.InvestmentRequest) (*time.Time, error) {
	if !request.Status.Terminal() {
		return nil, nil
	}
	latest, err := s.logRepo.LatestForRequest(ctx, request.ID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		// Terminal with no trail should not happen; fall back to lastUpdated.
		t := request.LastUpdated
		return &t, nil
	}
	t := latest.DecidedAt
	return &t, nil
}

// centsToUnits converts integer cents into whole reference-currency units.
func centsToUnits(cents int64) float64 {
	return float64(cents) / 100
}
