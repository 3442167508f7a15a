// Package domain holds the investment-approval domain types shared by the
// pure engines, services and repositories.
package domain

import "time"

// Priority classifies request urgency.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// ParsePriority validates a priority string.
func ParsePriority(raw string) (Priority, bool) {
	switch p := Priority(raw); p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return p, true
	}
	return "", false
}

// BusinessCaseType is the closed enum of business-case classifications used
// for discount-rate and decay-rate adjustments.
type BusinessCaseType string

const (
	CaseCompliance    BusinessCaseType = "compliance"
	CaseESG           BusinessCaseType = "esg"
	CaseCostControl   BusinessCaseType = "cost_control"
	CaseExpansion     BusinessCaseType = "expansion"
	CaseAssetCreation BusinessCaseType = "asset_creation"
	CaseIPOPrep       BusinessCaseType = "ipo_prep"
)

// ParseBusinessCaseType validates a business-case type string.
func ParseBusinessCaseType(raw string) (BusinessCaseType, bool) {
	switch t := BusinessCaseType(raw); t {
	case CaseCompliance, CaseESG, CaseCostControl, CaseExpansion, CaseAssetCreation, CaseIPOPrep:
		return t, true
	}
	return "", false
}

// InvestmentRequest is a capital-investment request routed through the
// approval chain. Amounts are integer cents; Base* amounts are normalized to
// the reference currency by the currency collaborator before persistence.
type InvestmentRequest struct {
	ID                string
	Title             string
	Department        string
	Priority          Priority
	BusinessCaseTypes []BusinessCaseType
	Capex             int64
	Opex              int64
	Currency          string
	BaseCurrencyCapex int64
	BaseCurrencyOpex  int64
	Status            Status
	SubmittedBy       string
	SubmittedDate     *time.Time
	LastUpdated       time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TotalBaseAmount is the request total in reference-currency cents, the value
// compared against approval-matrix thresholds.
func (r *InvestmentRequest) TotalBaseAmount() int64 {
	return r.BaseCurrencyCapex + r.BaseCurrencyOpex
}

// ApprovalMatrixRule is one configured routing rule. Department "All" is a
// wildcard; amount bounds are a closed interval in reference-currency cents.
type ApprovalMatrixRule struct {
	ID         string
	Level      int
	Role       string
	Department string
	AmountMin  int64
	AmountMax  int64
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DepartmentWildcard matches any department in a matrix rule.
const DepartmentWildcard = "All"

// Decision is the outcome recorded in an approval log entry.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
	DecisionOnHold   Decision = "on_hold"
)

// ApprovalLogEntry is one immutable decision record. The pair
// (RequestID, ActorID) is unique: a user decides at most once per request.
type ApprovalLogEntry struct {
	ID        string
	RequestID string
	ActorID   string
	Role      string
	Level     int
	Decision  Decision
	Comments  string
	DecidedAt time.Time
}

// KPIRecord holds the financial metrics computed for a request. IRR and
// PaybackYears are nil when undetermined (non-convergence / beyond horizon).
type KPIRecord struct {
	RequestID          string
	IRR                *float64 // decimal rate, e.g. 0.0814
	NPV                float64  // reference-currency units
	PaybackYears       *float64
	ROI                float64 // percent
	BasisOfCalculation string
	ComputedAt         time.Time
}
