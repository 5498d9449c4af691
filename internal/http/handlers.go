package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/auth"
	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/core"
	applog "github.com/shubhamchaurasiya12/Carbon-Tracker/internal/log"
	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/services"
)

const maxImportUploadBytes = 10 << 20 // 10 MiB

// decimalField accepts a JSON number or string, keeping the raw decimal
// text so kgCO2e values are parsed once, by core, with exact rounding.
type decimalField string

func (d *decimalField) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = decimalField(s)
		return nil
	}
	if string(b) == "null" {
		*d = ""
		return nil
	}
	*d = decimalField(b)
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps service failures onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyActivity),
		errors.Is(err, core.ErrInvalidSource),
		errors.Is(err, services.ErrMissingColumn):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			applog.FieldComponent, applog.ComponentHTTP,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldError, err.Error())
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// authorize resolves the principal and checks it against the action.
// A nil error means the caller may proceed.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, action auth.Action) (auth.Principal, bool) {
	p, err := principalFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing or malformed identity headers")
		return auth.Principal{}, false
	}
	if err := auth.Authorize(p, action); err != nil {
		slog.WarnContext(r.Context(), "Authorization denied",
			applog.FieldComponent, applog.ComponentHTTP,
			applog.FieldUserID, p.UserID,
			"role", string(p.Role),
			"action", string(action))
		writeError(w, http.StatusForbidden, "forbidden")
		return auth.Principal{}, false
	}
	return p, true
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

func requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

type submitEmissionRequest struct {
	ActivityType string       `json:"activity_type"`
	EmissionKg   decimalField `json:"emission_kgco2e"`
	Date         string       `json:"date"` // YYYY-MM-DD, optional
}

type submitEmissionResponse struct {
	Message    string `json:"message"`
	EmissionID int64  `json:"emission_id"`
	Created    bool   `json:"created"`
}

// handleSubmitEmission records one reading for the calling user.
// Resubmitting the same (date, activity) overwrites the amount.
func (s *Server) handleSubmitEmission(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	p, ok := s.authorize(w, r, auth.ActionSubmitEmission)
	if !ok {
		return
	}

	var req submitEmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := core.ParseAmount(string(req.EmissionKg))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid emission amount")
		return
	}

	var date core.Date
	if strings.TrimSpace(req.Date) != "" {
		date, err = core.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid date, expected YYYY-MM-DD")
			return
		}
	}

	result, err := s.emissions.SubmitEmission(r.Context(), p.UserID, req.ActivityType, amount, date)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateReports(p.UserID)

	status := http.StatusOK
	msg := "Emission updated"
	if result.Created {
		status = http.StatusCreated
		msg = "Emission recorded"
	}
	writeJSON(w, status, submitEmissionResponse{
		Message:    msg,
		EmissionID: result.EmissionID,
		Created:    result.Created,
	})
}

type dashboardResponse struct {
	TotalEmissions    float64            `json:"total_emissions"`
	CategoryBreakdown map[string]float64 `json:"category_breakdown"`
	DailyEmissions    map[string]float64 `json:"daily_emissions"`
	CarbonLimit       *float64           `json:"carbon_limit"`
	LimitExceeded     bool               `json:"limit_exceeded"`
}

// handleDashboard serves the calling user's current-month aggregate. An
// optional date query parameter selects another month.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	p, ok := s.authorize(w, r, auth.ActionViewDashboard)
	if !ok {
		return
	}

	refDate := core.Today()
	if v := strings.TrimSpace(r.URL.Query().Get("date")); v != "" {
		parsed, err := core.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid date, expected YYYY-MM-DD")
			return
		}
		refDate = parsed
	}

	key := s.reportCacheKey(p.UserID, refDate.FirstOfMonth(), p.CarbonLimit)
	if cached, found := s.reportCache.Get(key); found {
		slog.DebugContext(r.Context(), "Dashboard cache hit", "user_id", p.UserID)
		writeJSON(w, http.StatusOK, cached)
		return
	}

	report, err := s.summaries.MonthlyReport(r.Context(), p.UserID, p.CarbonLimit, refDate)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := buildDashboardResponse(report)
	s.reportCache.Set(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

func buildDashboardResponse(report services.Report) dashboardResponse {
	resp := dashboardResponse{
		TotalEmissions:    report.Summary.Total.Kilograms(),
		CategoryBreakdown: make(map[string]float64, len(report.Summary.ByCategory)),
		DailyEmissions:    make(map[string]float64, len(report.Summary.ByDay)),
		LimitExceeded:     report.LimitExceeded,
	}
	for category, amount := range report.Summary.ByCategory {
		resp.CategoryBreakdown[category] = amount.Kilograms()
	}
	for day, amount := range report.Summary.ByDay {
		resp.DailyEmissions[day] = amount.Kilograms()
	}
	if report.CarbonLimit != nil {
		kg := report.CarbonLimit.Kilograms()
		resp.CarbonLimit = &kg
	}
	return resp
}

type updateLimitRequest struct {
	CarbonLimit decimalField `json:"carbon_limit"`
}

// handleUpdateLimit sets or clears the calling user's monthly limit.
// A null or absent carbon_limit clears it.
func (s *Server) handleUpdateLimit(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	p, ok := s.authorize(w, r, auth.ActionUpdateLimit)
	if !ok {
		return
	}

	var req updateLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var limit *core.Amount
	if string(req.CarbonLimit) != "" {
		parsed, err := core.ParseAmount(string(req.CarbonLimit))
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid carbon limit")
			return
		}
		limit = &parsed
	}

	if err := s.emissions.UpdateCarbonLimit(r.Context(), p.UserID, limit); err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateReports(p.UserID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Carbon limit updated"})
}

type importResponse struct {
	Message  string `json:"message"`
	Inserted int    `json:"inserted"`
}

// handleAdminImport ingests a CSV file upload as one transactional
// batch. Any malformed row aborts the whole upload.
func (s *Server) handleAdminImport(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	if _, ok := s.authorize(w, r, auth.ActionImportBatch); !ok {
		return
	}

	if err := r.ParseMultipartForm(maxImportUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart upload with a file field")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart upload with a file field")
		return
	}
	defer file.Close()

	rows, err := services.ParseCSVRows(file)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if len(rows) == 0 {
		writeJSON(w, http.StatusOK, importResponse{Message: "No rows to import", Inserted: 0})
		return
	}

	inserted, err := s.imports.ImportBatch(r.Context(), rows)
	if err != nil {
		// Row-level failures surface the offending row in the message.
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, importResponse{Message: "Import completed", Inserted: inserted})
}

type adminRecordRequest struct {
	UserID       int64        `json:"user_id"`
	ActivityType string       `json:"activity_type"`
	EmissionKg   decimalField `json:"emission_kgco2e"`
}

// handleAdminRecord inserts a reading on behalf of any user. Unlike
// self-submission this path never overwrites; repeated calls stack rows.
func (s *Server) handleAdminRecord(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	if _, ok := s.authorize(w, r, auth.ActionRecordForUser); !ok {
		return
	}

	var req adminRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "user_id is required")
		return
	}

	amount, err := core.ParseAmount(string(req.EmissionKg))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid emission amount")
		return
	}

	id, err := s.emissions.RecordForUser(r.Context(), req.UserID, req.ActivityType, amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateReports(req.UserID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "Emission recorded",
		"emission_id": id,
	})
}

type overviewResponse struct {
	Users         int64 `json:"users"`
	Emissions     int64 `json:"emissions"`
	MockDataCount int64 `json:"mock_data_count"`
}

func (s *Server) handleAdminOverview(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	if _, ok := s.authorize(w, r, auth.ActionViewOverview); !ok {
		return
	}

	overview, err := s.summaries.AdminOverview(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, overviewResponse{
		Users:         overview.Users,
		Emissions:     overview.Emissions,
		MockDataCount: overview.MockDataCount,
	})
}
