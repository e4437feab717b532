package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"finadvisor/internal/classify"
	"finadvisor/internal/core"
	"finadvisor/internal/features"
	applog "finadvisor/internal/log"
	"finadvisor/internal/predictor"
	"finadvisor/internal/services"
)

var fixedNow = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeStore struct {
	bills    []core.Bill
	expenses []core.Expense
	balance  core.Money
	pingErr  error
	listErr  error
}

func (f *fakeStore) ListActiveBills(context.Context) ([]core.Bill, error) {
	return f.bills, f.listErr
}

func (f *fakeStore) ListExpenses(_ context.Context, since core.Date) ([]core.Expense, error) {
	var out []core.Expense
	for _, e := range f.expenses {
		if since.IsEmpty() || !e.Date.Before(since.Time) {
			out = append(out, e)
		}
	}
	return out, f.listErr
}

func (f *fakeStore) LatestBalance(context.Context) (core.Money, error) {
	return f.balance, nil
}

func (f *fakeStore) Ping(context.Context) error {
	return f.pingErr
}

func newTestForecaster(t *testing.T, p services.Predictor) *services.Forecaster {
	t.Helper()
	f, err := services.NewForecaster(services.ForecastConfig{
		Schema:     features.DefaultSchema(),
		Categories: services.DefaultCategories(),
		Thresholds: services.DefaultThresholds(),
	}, p)
	if err != nil {
		t.Fatalf("NewForecaster() error = %v", err)
	}
	return f
}

func stubPredictor() predictor.Funcs {
	return predictor.Funcs{
		BillDue:         func(features.Vector) (float64, error) { return 0.8, nil },
		ExpenseCategory: func(features.Vector) ([]float64, error) { return []float64{0.7, 0.1, 0.1, 0.05, 0.03, 0.02}, nil },
		LowBalance:      func(features.Vector) (float64, error) { return 0.2, nil },
	}
}

func newTestServer(t *testing.T, deps Deps) *Server {
	t.Helper()
	deps.Now = func() time.Time { return fixedNow }
	if deps.Advisor == nil {
		deps.Advisor = services.NewBatchAdvisor(classify.New(classify.DefaultTable()), 7, core.Money{Cents: 5000})
	}
	s := NewServer(":0", deps)
	t.Cleanup(func() { s.rateLimiter.stop() })
	return s
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var e errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&e); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	return e
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, Deps{})
	rec := do(t, s, http.MethodGet, "/healthz", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name       string
		store      *fakeStore
		ready      bool
		wantStatus int
	}{
		{"all ok", &fakeStore{}, true, http.StatusOK},
		{"store down", &fakeStore{pingErr: errors.New("disk gone")}, true, http.StatusServiceUnavailable},
		{"circuit open", &fakeStore{}, false, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ready := tt.ready
			s := newTestServer(t, Deps{Store: tt.store, PredictorReady: func() bool { return ready }})
			if rec := do(t, s, http.MethodGet, "/readyz", ""); rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestForecast(t *testing.T) {
	s := newTestServer(t, Deps{Forecaster: newTestForecaster(t, stubPredictor())})

	rec := do(t, s, http.MethodPost, "/api/v1/forecast",
		`{"amount": 100, "day_of_month": 10, "day_of_week": 2, "hour": 14, "balance": "1000.00", "merchant": "Amazon"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var got forecastResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if !got.BillDueSoon || got.ExpenseCategory != "groceries" || got.LowBalanceWarning {
		t.Errorf("forecast = %+v", got)
	}
	if got.SchemaVersion != features.DefaultSchema().Version {
		t.Errorf("schema_version = %q", got.SchemaVersion)
	}
	if len(got.Scores.ExpenseCategory) != len(services.DefaultCategories()) {
		t.Errorf("scores = %+v", got.Scores)
	}
}

func TestForecast_Description(t *testing.T) {
	s := newTestServer(t, Deps{Forecaster: newTestForecaster(t, stubPredictor())})

	tests := []struct {
		name        string
		description string
		wantCat     string
		wantKeyword string
	}{
		{"keyword match", "Grocery shopping", "Food", "grocery"},
		{"no rule", "Birthday gift", "Other", ""},
		{"omitted", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"amount": 100, "day_of_month": 10, "day_of_week": 2, "hour": 14, "balance": "1000.00", "merchant": "Amazon"`
			if tt.description != "" {
				body += `, "description": "` + tt.description + `"`
			}
			rec := do(t, s, http.MethodPost, "/api/v1/forecast", body+"}")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
			}

			var got forecastResponse
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatal(err)
			}
			if got.ExpenseCategory != "groceries" {
				t.Errorf("expense_category = %q, want model output groceries", got.ExpenseCategory)
			}
			if got.KeywordCategory != tt.wantCat || got.Keyword != tt.wantKeyword {
				t.Errorf("keyword_category = %q keyword = %q, want %q %q",
					got.KeywordCategory, got.Keyword, tt.wantCat, tt.wantKeyword)
			}
		})
	}
}

func TestForecast_Errors(t *testing.T) {
	failing := stubPredictor()
	failing.LowBalance = func(features.Vector) (float64, error) { return 0, errors.New("model crashed") }

	tests := []struct {
		name       string
		predictor  services.Predictor
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "unknown merchant",
			predictor:  stubPredictor(),
			body:       `{"amount": 10, "day_of_month": 1, "day_of_week": 0, "hour": 0, "balance": 5, "merchant": "Costco"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   core.CodeUnknownCategory,
		},
		{
			name:       "negative amount",
			predictor:  stubPredictor(),
			body:       `{"amount": -5, "day_of_month": 1, "day_of_week": 0, "hour": 0, "balance": 5, "merchant": "Amazon"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   core.CodeInvalidAmount,
		},
		{
			name:       "hour out of range",
			predictor:  stubPredictor(),
			body:       `{"amount": 5, "day_of_month": 1, "day_of_week": 0, "hour": 24, "balance": 5, "merchant": "Amazon"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   core.CodeInvalidInput,
		},
		{
			name:       "malformed json",
			predictor:  stubPredictor(),
			body:       `{"amount": `,
			wantStatus: http.StatusBadRequest,
			wantCode:   core.CodeInvalidInput,
		},
		{
			name:       "unknown field",
			predictor:  stubPredictor(),
			body:       `{"amount": 1, "currency": "EUR"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   core.CodeInvalidInput,
		},
		{
			name:      "description too long",
			predictor: stubPredictor(),
			body: `{"amount": 5, "day_of_month": 1, "day_of_week": 0, "hour": 1, "balance": 5, "merchant": "Amazon", "description": "` +
				strings.Repeat("x", core.MaxDescriptionLength+1) + `"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   core.CodeInvalidInput,
		},
		{
			name:       "predictor failure",
			predictor:  failing,
			body:       `{"amount": 5, "day_of_month": 1, "day_of_week": 0, "hour": 1, "balance": 5, "merchant": "Amazon"}`,
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   core.CodePredictorUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, Deps{Forecaster: newTestForecaster(t, tt.predictor)})
			rec := do(t, s, http.MethodPost, "/api/v1/forecast", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if e := decodeError(t, rec); e.Code != tt.wantCode || e.Error == "" {
				t.Errorf("error = %+v, want code %q", e, tt.wantCode)
			}
		})
	}
}

func TestForecast_NotConfigured(t *testing.T) {
	s := newTestServer(t, Deps{})
	rec := do(t, s, http.MethodPost, "/api/v1/forecast", `{}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestBatchAdvisory(t *testing.T) {
	s := newTestServer(t, Deps{})
	body := `{
		"today": "2024-03-10",
		"balance": "200.00",
		"bills": [{"name": "Electricity", "due_date": "2024-03-13", "amount": 100}],
		"expenses": [
			{"description": "Grocery shopping", "amount": 80},
			{"description": "Movie tickets", "amount": "20.00"}
		]
	}`
	rec := do(t, s, http.MethodPost, "/api/v1/advisory", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var got advisoryResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got.Reminders) != 1 || got.Reminders[0].DaysLeft != 3 || got.Reminders[0].Status != "upcoming" {
		t.Errorf("reminders = %+v", got.Reminders)
	}
	if got.Expenses[0].Category != "Food" || got.Expenses[1].Category != "Entertainment" {
		t.Errorf("expenses = %+v", got.Expenses)
	}
	if got.Projection.Projected != "0.00" || !got.Projection.Warning {
		t.Errorf("projection = %+v", got.Projection)
	}
}

func TestBatchAdvisory_NegativeExpense(t *testing.T) {
	s := newTestServer(t, Deps{})
	rec := do(t, s, http.MethodPost, "/api/v1/advisory",
		`{"balance": 100, "expenses": [{"description": "Refund", "amount": -10}]}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if e := decodeError(t, rec); e.Code != core.CodeInvalidAmount {
		t.Errorf("code = %q", e.Code)
	}
}

func TestBatchAdvisory_InvalidRecords(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{
			name:    "empty bill name",
			body:    `{"bills": [{"name": " ", "due_date": "2024-03-13", "amount": 10}]}`,
			wantErr: core.ErrEmptyName,
		},
		{
			name:    "unknown repetition",
			body:    `{"bills": [{"name": "Rent", "due_date": "2024-03-13", "amount": 10, "every": "fortnightly"}]}`,
			wantErr: core.ErrInvalidRepetition,
		},
		{
			name:    "empty expense description",
			body:    `{"expenses": [{"description": "", "amount": 10}]}`,
			wantErr: core.ErrEmptyDescription,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, Deps{})
			rec := do(t, s, http.MethodPost, "/api/v1/advisory", tt.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422: %s", rec.Code, rec.Body.String())
			}
			e := decodeError(t, rec)
			if e.Code != core.CodeInvalidInput {
				t.Errorf("code = %q, want %q", e.Code, core.CodeInvalidInput)
			}
			if !strings.Contains(e.Error, tt.wantErr.Error()) {
				t.Errorf("error = %q, want it to mention %q", e.Error, tt.wantErr)
			}
		})
	}

	var req advisoryRequest
	if err := json.Unmarshal([]byte(`{"bills": [{"name": "", "due_date": "2024-03-13", "amount": 1}]}`), &req); err != nil {
		t.Fatal(err)
	}
	_, err := req.batchInput(core.DateOf(fixedNow))
	if !errors.Is(err, core.ErrInvalidInput) || !errors.Is(err, core.ErrEmptyName) {
		t.Errorf("batchInput() error = %v, want ErrInvalidInput wrapping ErrEmptyName", err)
	}
}

func TestRejectionLog_SingleRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Format: "json", Output: &buf})
	s := newTestServer(t, Deps{Logger: logger})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/advisory", strings.NewReader(`{"today": "yesterday"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(applog.RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var found bool
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if !strings.Contains(line, "Request rejected") {
			continue
		}
		found = true
		if n := strings.Count(line, `"request_id"`); n != 1 {
			t.Errorf("request_id appears %d times in %s", n, line)
		}
		if !strings.Contains(line, `"req-42"`) {
			t.Errorf("log line lacks the caller's request ID: %s", line)
		}
	}
	if !found {
		t.Fatalf("no rejection log line in:\n%s", buf.String())
	}
}

func storedFixture() *fakeStore {
	return &fakeStore{
		bills: []core.Bill{
			{ID: 1, Name: "Rent", DueDate: core.NewDate(2024, 3, 30), Amount: core.Money{Cents: 90000}},
			{ID: 2, Name: "Internet", DueDate: core.NewDate(2024, 3, 12), Amount: core.Money{Cents: 3000}},
			{ID: 3, Name: "Phone", DueDate: core.NewDate(2024, 3, 8), Amount: core.Money{Cents: 2000}},
		},
		expenses: []core.Expense{
			{Date: core.NewDate(2024, 2, 1), Description: "Bus fare", Amount: core.Money{Cents: 500}},
			{Date: core.NewDate(2024, 3, 5), Description: "Restaurant", Amount: core.Money{Cents: 4000}},
		},
		balance: core.Money{Cents: 150000},
	}
}

func TestReminders(t *testing.T) {
	s := newTestServer(t, Deps{Store: storedFixture()})

	rec := do(t, s, http.MethodGet, "/api/v1/reminders", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var got struct {
		Window    int                `json:"window"`
		Reminders []reminderResponse `json:"reminders"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Window != 7 || len(got.Reminders) != 2 {
		t.Fatalf("got %+v", got)
	}
	if got.Reminders[0].Name != "Phone" || got.Reminders[0].Status != "overdue" || got.Reminders[1].Name != "Internet" {
		t.Errorf("order = %+v", got.Reminders)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/reminders?window=30", "")
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got.Reminders) != 3 {
		t.Errorf("window=30 reminders = %d, want 3", len(got.Reminders))
	}
}

func TestReminders_BadQuery(t *testing.T) {
	s := newTestServer(t, Deps{Store: storedFixture()})
	for _, target := range []string{"/api/v1/reminders?window=-1", "/api/v1/reminders?today=10/03/2024"} {
		rec := do(t, s, http.MethodGet, target, "")
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("%s: status = %d, want 422", target, rec.Code)
		}
	}
}

func TestProjection(t *testing.T) {
	s := newTestServer(t, Deps{Store: storedFixture()})

	tests := []struct {
		target string
		want   string
	}{
		{"/api/v1/projection", "505.00"},
		{"/api/v1/projection?since=2024-03-01", "510.00"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, tt.target, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
			}
			var got projectionResponse
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatal(err)
			}
			if got.Projected != tt.want || got.Warning {
				t.Errorf("projection = %+v, want projected %s", got, tt.want)
			}
		})
	}
}

func TestStoredEndpoints_NoStore(t *testing.T) {
	s := newTestServer(t, Deps{})
	for _, target := range []string{"/api/v1/reminders", "/api/v1/projection", "/api/v1/advisory"} {
		if rec := do(t, s, http.MethodGet, target, ""); rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: status = %d, want 503", target, rec.Code)
		}
	}
}

func TestNotFoundAndMethod(t *testing.T) {
	s := newTestServer(t, Deps{})
	if rec := do(t, s, http.MethodGet, "/api/v1/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if rec := do(t, s, http.MethodDelete, "/api/v1/forecast", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2)
	defer rl.stop()

	if !rl.allow("1.2.3.4", fixedNow) || !rl.allow("1.2.3.4", fixedNow) {
		t.Fatal("first two requests should pass")
	}
	if rl.allow("1.2.3.4", fixedNow) {
		t.Fatal("third request should be limited")
	}
	if !rl.allow("5.6.7.8", fixedNow) {
		t.Fatal("other clients are independent")
	}
	if !rl.allow("1.2.3.4", fixedNow.Add(61*time.Second)) {
		t.Fatal("window should reset after a minute")
	}

	rl.cleanupStaleEntries(fixedNow.Add(time.Hour))
	if len(rl.clients) != 0 {
		t.Errorf("stale entries left: %d", len(rl.clients))
	}
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"direct", "203.0.113.9:5000", "", "203.0.113.9"},
		{"untrusted proxy ignored", "203.0.113.9:5000", "198.51.100.1", "203.0.113.9"},
		{"trusted proxy", "10.0.0.2:5000", "198.51.100.1, 10.0.0.2", "198.51.100.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := extractClientIP(r); got != tt.want {
				t.Errorf("extractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
