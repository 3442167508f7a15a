package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pesio-ai/be-fin-capex/internal/platform/errors"
	"github.com/pesio-ai/be-fin-capex/internal/platform/logger"
	"github.com/pesio-ai/be-fin-capex/internal/repository"
	"github.com/pesio-ai/be-fin-capex/internal/service"
)

// HTTPHandler handles HTTP requests.
type HTTPHandler struct {
	requests  *service.RequestService
	analytics *service.AnalyticsService
	rules     *service.RulesService
	log       *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(
	requests *service.RequestService,
	analytics *service.AnalyticsService,
	rules *service.RulesService,
	log *logger.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		requests:  requests,
		analytics: analytics,
		rules:     rules,
		log:       log,
	}
}

// userID extracts the acting user from the X-User-ID header set by the API
// gateway after authentication.
func userID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

// ── Requests ─────────────────────────────────────────────────────────────────

// CreateRequest handles draft creation.
func (h *HTTPHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var req service.CreateRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.SubmittedBy = userID(r)

	request, err := h.requests.CreateRequest(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, request)
}

// GetRequest handles single-request reads.
func (h *HTTPHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Request ID is required", http.StatusBadRequest)
		return
	}

	request, err := h.requests.GetRequest(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, request)
}

// ListRequests handles filtered, paginated listing.
func (h *HTTPHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	filter := repository.ListFilter{}
	if v := r.URL.Query().Get("department"); v != "" {
		filter.Department = &v
	}
	if v := r.URL.Query().Get("status"); v != "" {
		filter.Status = &v
	}
	if v := r.URL.Query().Get("priority"); v != "" {
		filter.Priority = &v
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize

	requests, total, err := h.requests.ListRequests(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"requests": requests,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

// UpdateRequest handles submitter edits to a draft.
func (h *HTTPHandler) UpdateRequest(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Request ID is required", http.StatusBadRequest)
		return
	}

	var req service.CreateRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	request, err := h.requests.UpdateDraft(r.Context(), id, userID(r), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, request)
}

// SubmitRequest moves a draft into the approval chain.
func (h *HTTPHandler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	request, err := h.requests.Submit(r.Context(), req.ID, userID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, request)
}

// DecideRequest applies an approve/reject/hold decision.
func (h *HTTPHandler) DecideRequest(w http.ResponseWriter, r *http.Request) {
	var req service.DecideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.UserID = userID(r)

	request, err := h.requests.Decide(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, request)
}

// ResumeRequest returns a held request to its prior pending level.
func (h *HTTPHandler) ResumeRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	request, err := h.requests.Resume(r.Context(), req.ID, userID(r), req.Role)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, request)
}

// StartReview marks a submitted request as under review.
func (h *HTTPHandler) StartReview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	request, err := h.requests.StartReview(r.Context(), req.ID, userID(r), req.Role)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, request)
}

// ApprovalHistory returns the decision trail for a request.
func (h *HTTPHandler) ApprovalHistory(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Request ID is required", http.StatusBadRequest)
		return
	}

	entries, err := h.requests.GetApprovalHistory(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// PendingApprovals lists the requests the caller may decide on.
func (h *HTTPHandler) PendingApprovals(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	department := r.URL.Query().Get("department")

	requests, err := h.requests.PendingForActor(r.Context(), userID(r), role, department)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"requests": requests})
}

// ── Analytics ────────────────────────────────────────────────────────────────

// ComputeKPIs computes and stores the financial metrics for a request.
func (h *HTTPHandler) ComputeKPIs(w http.ResponseWriter, r *http.Request) {
	var req service.ComputeKPIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	record, err := h.analytics.ComputeKPIs(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, record)
}

// GetKPIs returns the stored KPI record for a request.
func (h *HTTPHandler) GetKPIs(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Request ID is required", http.StatusBadRequest)
		return
	}

	record, err := h.analytics.GetKPIs(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, record)
}

// ROIImpact returns the delay-decay impact for a request.
func (h *HTTPHandler) ROIImpact(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Request ID is required", http.StatusBadRequest)
		return
	}

	impact, err := h.analytics.GetROIImpact(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, impact)
}

// ROITimeline returns the weekly decay curve for a request.
func (h *HTTPHandler) ROITimeline(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Request ID is required", http.StatusBadRequest)
		return
	}

	points, err := h.analytics.GetROITimeline(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"points": points})
}

// PortfolioSummary aggregates delay impact across the portfolio.
func (h *HTTPHandler) PortfolioSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.analytics.GetPortfolioSummary(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// ── Matrix rules ─────────────────────────────────────────────────────────────

// Rules dispatches rule collection operations by method.
func (h *HTTPHandler) Rules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		activeOnly := r.URL.Query().Get("active") == "true"
		rules, err := h.rules.ListRules(r.Context(), activeOnly)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, map[string]any{"rules": rules})

	case http.MethodPost:
		var req service.RuleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		rule, err := h.rules.CreateRule(r.Context(), &req)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusCreated, rule)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// UpdateRule replaces one rule's fields.
func (h *HTTPHandler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Rule ID is required", http.StatusBadRequest)
		return
	}

	var req service.RuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	rule, err := h.rules.UpdateRule(r.Context(), id, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rule)
}

// DeactivateRule soft-disables one rule.
func (h *HTTPHandler) DeactivateRule(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Rule ID is required", http.StatusBadRequest)
		return
	}

	if err := h.rules.DeactivateRule(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Response helpers ─────────────────────────────────────────────────────────

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Warn().Err(err).Msg("Failed to encode response body")
	}
}

// writeError maps coded errors to HTTP statuses.
func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.CodeOf(err) {
	case errors.ErrCodeValidation:
		status = http.StatusBadRequest
	case errors.ErrCodeUnauthorized:
		status = http.StatusForbidden
	case errors.ErrCodeNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeConflict, errors.ErrCodeDuplicateAction, errors.ErrCodeInvalidTransition:
		status = http.StatusConflict
	case errors.ErrCodeConvergence:
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Request failed")
	}

	h.writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"code":  string(errors.CodeOf(err)),
	})
}
