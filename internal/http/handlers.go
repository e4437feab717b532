package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"

	"finadvisor/internal/core"
	applog "finadvisor/internal/log"
	"finadvisor/internal/services"
)

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error code to its HTTP status.
func statusFor(code string) int {
	switch code {
	case core.CodeUnknownCategory, core.CodeInvalidAmount, core.CodeInvalidInput:
		return http.StatusUnprocessableEntity
	case core.CodePredictorUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the error's code and its message verbatim.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := http.StatusBadRequest
	code := core.CodeInvalidInput
	if !errors.Is(err, errMalformedBody) {
		code = core.ErrorCode(err)
		status = statusFor(code)
	}

	logger := applog.FromContext(r.Context())
	fields := applog.NewFields().
		WithOperation(op).
		WithError(err, code)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", fields.ToSlice()...)
	} else {
		logger.WarnContext(r.Context(), "Request rejected", fields.ToSlice()...)
	}

	writeJSON(w, status, errorResponse{Code: code, Error: err.Error()})
}

func (s *Server) unavailable(w http.ResponseWriter, what string) {
	writeJSON(w, http.StatusServiceUnavailable, errorResponse{
		Code:  core.CodePredictorUnavailable,
		Error: what + " not configured",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady checks the store and the predictor circuit.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	ready := true

	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			checks["store"] = err.Error()
			ready = false
		} else {
			checks["store"] = "ok"
		}
	}
	if s.predictorReady != nil {
		if s.predictorReady() {
			checks["predictor"] = "ok"
		} else {
			checks["predictor"] = "circuit open"
			ready = false
		}
	}

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "not_ready"
	}
	writeJSON(w, status, map[string]any{"status": state, "checks": checks})
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	if s.forecaster == nil {
		s.unavailable(w, "predictor")
		return
	}

	var req forecastRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, applog.OpForecast, err)
		return
	}
	tx, err := req.transaction()
	if err != nil {
		s.writeError(w, r, applog.OpForecast, err)
		return
	}

	res, err := s.forecaster.Forecast(r.Context(), tx)
	if err != nil {
		s.writeError(w, r, applog.OpForecast, err)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Forecast served",
		applog.NewFields().
			WithOperation(applog.OpForecast).
			WithTransaction(tx.Merchant, tx.Amount.Cents, tx.Balance.Cents).
			ToSlice()...)
	resp := newForecastResponse(res)
	if strings.TrimSpace(req.Description) != "" {
		m := s.advisor.Explain(req.Description)
		resp.KeywordCategory = string(m.Category)
		resp.Keyword = m.Keyword
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBatchAdvisory(w http.ResponseWriter, r *http.Request) {
	var req advisoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, applog.OpAdvise, err)
		return
	}
	in, err := req.batchInput(s.today())
	if err != nil {
		s.writeError(w, r, applog.OpAdvise, err)
		return
	}
	rep, err := s.advisor.Advise(r.Context(), in)
	if err != nil {
		s.writeError(w, r, applog.OpAdvise, err)
		return
	}
	writeJSON(w, http.StatusOK, newAdvisoryResponse(in.Today, rep))
}

// storedReport runs the advisor over stored data using the today and
// since query parameters.
func (s *Server) storedReport(w http.ResponseWriter, r *http.Request, op string) (core.Date, services.BatchReport, bool) {
	if s.stored == nil {
		s.unavailable(w, "store")
		return core.Date{}, services.BatchReport{}, false
	}
	today, err := queryDate(r, "today", s.today())
	if err != nil {
		s.writeError(w, r, op, err)
		return core.Date{}, services.BatchReport{}, false
	}
	since, err := queryDate(r, "since", core.Date{})
	if err != nil {
		s.writeError(w, r, op, err)
		return core.Date{}, services.BatchReport{}, false
	}
	rep, err := s.stored.Advise(r.Context(), today, since)
	if err != nil {
		s.writeError(w, r, op, err)
		return core.Date{}, services.BatchReport{}, false
	}
	return today, rep, true
}

func (s *Server) handleStoredAdvisory(w http.ResponseWriter, r *http.Request) {
	today, rep, ok := s.storedReport(w, r, applog.OpAdvise)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newAdvisoryResponse(today, rep))
}

func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	_, rep, ok := s.storedReport(w, r, applog.OpProject)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newProjectionResponse(rep.Projection))
}

// handleReminders lists stored bills inside the window; window overrides
// the configured number of days.
func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.unavailable(w, "store")
		return
	}
	today, err := queryDate(r, "today", s.today())
	if err != nil {
		s.writeError(w, r, applog.OpRemind, err)
		return
	}
	window, err := queryInt(r, "window", s.advisor.Window(), 366)
	if err != nil {
		s.writeError(w, r, applog.OpRemind, err)
		return
	}
	bills, err := s.store.ListActiveBills(r.Context())
	if err != nil {
		s.writeError(w, r, applog.OpRemind, err)
		return
	}
	reminders := slices.Collect(services.DueSoon(bills, today, window))
	writeJSON(w, http.StatusOK, map[string]any{
		"today":     today.String(),
		"window":    window,
		"reminders": newReminderResponses(reminders),
	})
}
