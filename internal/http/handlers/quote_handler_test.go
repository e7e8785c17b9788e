// README: Handler tests for quote routes using stub services and a stub token verifier.
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"carhire/internal/http/handlers"
	httpmiddleware "carhire/internal/http/middleware"
	"carhire/internal/infra"
	"carhire/internal/modules/pricing"
	"carhire/internal/modules/quote"
	"carhire/internal/types"
)

type stubTokenVerifier struct {
	token *infra.FirebaseToken
	err   error
}

func (s *stubTokenVerifier) VerifyIDToken(_ context.Context, _ string) (*infra.FirebaseToken, error) {
	return s.token, s.err
}

func makeVerifier(uid, role string) *stubTokenVerifier {
	claims := map[string]interface{}{}
	if role != "" {
		claims["role"] = role
	}
	return &stubTokenVerifier{token: &infra.FirebaseToken{UID: uid, Claims: claims}}
}

type stubQuoteService struct {
	calcIn   quote.Inputs
	calcErr  error
	saved    quote.SaveCommand
	saveErr  error
	getErr   error
	filter   quote.ListFilter
	transErr error
	deadline bool
}

func (s *stubQuoteService) Calculate(ctx context.Context, in quote.Inputs) ([]quote.CategoryResult, error) {
	s.calcIn = in
	_, s.deadline = ctx.Deadline()
	if s.calcErr != nil {
		return nil, s.calcErr
	}
	return []quote.CategoryResult{{CategoryID: "sedan", Currency: "KES", GrandTotal: decimal.NewFromInt(11600)}}, nil
}

func (s *stubQuoteService) Save(ctx context.Context, cmd quote.SaveCommand) (*quote.Quote, error) {
	s.saved = cmd
	if s.saveErr != nil {
		return nil, s.saveErr
	}
	return &quote.Quote{ID: "3f9a1c2e-0000-4000-8000-000000000001", Status: quote.StatusDraft, CreatedBy: cmd.CreatedBy}, nil
}

func (s *stubQuoteService) Get(ctx context.Context, id types.ID) (*quote.Quote, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &quote.Quote{ID: id, Status: quote.StatusSent}, nil
}

func (s *stubQuoteService) List(ctx context.Context, f quote.ListFilter) ([]quote.Quote, error) {
	s.filter = f
	return nil, nil
}

func (s *stubQuoteService) Transition(ctx context.Context, cmd quote.TransitionCommand) (*quote.Quote, error) {
	if s.transErr != nil {
		return nil, s.transErr
	}
	return &quote.Quote{ID: cmd.QuoteID, Status: cmd.To}, nil
}

func buildQuoteRouter(svc handlers.QuoteService, verifier infra.TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handlers.RegisterValidators()
	r := gin.New()
	r.Use(httpmiddleware.Auth(verifier))
	h := handlers.NewQuoteHandler(svc, time.Second)
	r.POST("/api/quotes/calculate", h.Calculate)
	r.POST("/api/quotes", h.Save)
	r.GET("/api/quotes", h.List)
	r.GET("/api/quotes/:id", h.Get)
	r.POST("/api/quotes/:id/status", h.UpdateStatus)
	return r
}

func doRequest(r *gin.Engine, method, path string, body interface{}, authHeader string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func calcBody() map[string]any {
	return map[string]any{
		"start":            "2026-07-10T10:00:00+03:00",
		"end":              "2026-07-12T10:00:00+03:00",
		"variant":          "self_drive",
		"pickup_location":  "JKIA",
		"dropoff_location": "Westlands",
		"extra_fees":       []map[string]any{{"description": "child seat", "amount": 500}},
		"category_ids":     []string{"sedan"},
	}
}

const validQuoteID = "3f9a1c2e-0000-4000-8000-000000000001"

func TestCalculate_Unauthenticated(t *testing.T) {
	r := buildQuoteRouter(&stubQuoteService{}, &stubTokenVerifier{err: errors.New("no token")})
	w := doRequest(r, http.MethodPost, "/api/quotes/calculate", calcBody(), "Bearer badtoken")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestCalculate_OK(t *testing.T) {
	svc := &stubQuoteService{}
	r := buildQuoteRouter(svc, makeVerifier("agent1", "agent"))
	w := doRequest(r, http.MethodPost, "/api/quotes/calculate", calcBody(), "Bearer token")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !svc.deadline {
		t.Error("calculate should run under a timeout")
	}
	if svc.calcIn.Variant != quote.VariantSelfDrive || len(svc.calcIn.ExtraFees) != 1 || !svc.calcIn.ExtraFees[0].Amount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("inputs not mapped: %+v", svc.calcIn)
	}
	if len(svc.calcIn.CategoryIDs) != 1 || svc.calcIn.CategoryIDs[0] != "sedan" {
		t.Errorf("category filter not mapped: %v", svc.calcIn.CategoryIDs)
	}
	var resp struct {
		Results []quote.CategoryResult `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Results) != 1 || !resp.Results[0].GrandTotal.Equal(decimal.NewFromInt(11600)) {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestCalculate_BindingRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(b map[string]any)
	}{
		{"unknown variant", func(b map[string]any) { b["variant"] = "boat" }},
		{"missing pickup", func(b map[string]any) { delete(b, "pickup_location") }},
		{"end before start", func(b map[string]any) { b["end"] = "2026-07-09T10:00:00+03:00" }},
		{"missing start", func(b map[string]any) { delete(b, "start") }},
		{"unnamed fee", func(b map[string]any) { b["extra_fees"] = []map[string]any{{"amount": 10}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubQuoteService{}
			r := buildQuoteRouter(svc, makeVerifier("agent1", ""))
			body := calcBody()
			tt.mutate(body)
			w := doRequest(r, http.MethodPost, "/api/quotes/calculate", body, "Bearer token")
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			if svc.calcIn.PickupLocation != "" {
				t.Error("service called for a rejected request")
			}
		})
	}
}

func TestCalculate_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", fmt.Errorf("%w: negative surcharge", quote.ErrInvalidInput), http.StatusBadRequest},
		{"pricing failure", fmt.Errorf("%w: category suv: %w", quote.ErrPricingComputation, pricing.ErrInvalidPricing), http.StatusInternalServerError},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := buildQuoteRouter(&stubQuoteService{calcErr: tt.err}, makeVerifier("agent1", ""))
			w := doRequest(r, http.MethodPost, "/api/quotes/calculate", calcBody(), "Bearer token")
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestSave_RecordsCaller(t *testing.T) {
	svc := &stubQuoteService{}
	r := buildQuoteRouter(svc, makeVerifier("agent7", "agent"))
	w := doRequest(r, http.MethodPost, "/api/quotes", map[string]any{
		"inputs":               calcBody(),
		"results":              []map[string]any{{"category_id": "sedan", "grand_total": 11600}},
		"selected_category_id": "sedan",
		"customer_name":        "Wanjiru Kamau",
		"customer_email":       "wanjiru@example.com",
	}, "Bearer token")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if svc.saved.CreatedBy != "agent7" {
		t.Errorf("created_by = %q, want caller uid", svc.saved.CreatedBy)
	}
	if svc.saved.SelectedCategoryID == nil || *svc.saved.SelectedCategoryID != "sedan" {
		t.Errorf("selected = %v", svc.saved.SelectedCategoryID)
	}
}

func TestSave_Errors(t *testing.T) {
	body := map[string]any{
		"inputs":        calcBody(),
		"results":       []map[string]any{{"category_id": "sedan"}},
		"customer_name": "Wanjiru Kamau",
	}

	r := buildQuoteRouter(&stubQuoteService{saveErr: fmt.Errorf("%w: %w", quote.ErrPersistence, errors.New("db down"))}, makeVerifier("a", ""))
	w := doRequest(r, http.MethodPost, "/api/quotes", body, "Bearer token")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "db down") {
		t.Error("store error leaked to the client")
	}

	body["results"] = []map[string]any{}
	w = doRequest(r, http.MethodPost, "/api/quotes", body, "Bearer token")
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty results: expected 400, got %d", w.Code)
	}
}

func TestGet(t *testing.T) {
	r := buildQuoteRouter(&stubQuoteService{}, makeVerifier("a", ""))
	if w := doRequest(r, http.MethodGet, "/api/quotes/not-a-uuid", nil, "Bearer token"); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodGet, "/api/quotes/"+validQuoteID, nil, "Bearer token"); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	r = buildQuoteRouter(&stubQuoteService{getErr: quote.ErrNotFound}, makeVerifier("a", ""))
	if w := doRequest(r, http.MethodGet, "/api/quotes/"+validQuoteID, nil, "Bearer token"); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestList(t *testing.T) {
	svc := &stubQuoteService{}
	r := buildQuoteRouter(svc, makeVerifier("a", ""))
	w := doRequest(r, http.MethodGet, "/api/quotes?status=sent&limit=20", nil, "Bearer token")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if svc.filter.Status != quote.StatusSent || svc.filter.Limit != 20 {
		t.Errorf("filter = %+v", svc.filter)
	}
	if !strings.Contains(w.Body.String(), `"quotes":[]`) {
		t.Errorf("empty list should be [], got %s", w.Body.String())
	}
	if w := doRequest(r, http.MethodGet, "/api/quotes?status=lost", nil, "Bearer token"); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodGet, "/api/quotes?limit=-1", nil, "Bearer token"); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestUpdateStatus(t *testing.T) {
	tests := []struct {
		name   string
		status string
		err    error
		want   int
	}{
		{"ok", "sent", nil, http.StatusOK},
		{"unknown status", "archived", nil, http.StatusBadRequest},
		{"invalid transition", "converted", quote.ErrInvalidState, http.StatusConflict},
		{"lost race", "accepted", quote.ErrConflict, http.StatusConflict},
		{"missing", "sent", quote.ErrNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := buildQuoteRouter(&stubQuoteService{transErr: tt.err}, makeVerifier("a", ""))
			w := doRequest(r, http.MethodPost, "/api/quotes/"+validQuoteID+"/status", map[string]any{"status": tt.status}, "Bearer token")
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}
