package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/quizfunnel-backend/internal/offers"
	"github.com/angelmondragon/quizfunnel-backend/pkg/config"
	"github.com/angelmondragon/quizfunnel-backend/pkg/logger"
	"github.com/angelmondragon/quizfunnel-backend/pkg/metrics"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev"},
		RateLimit: config.RateLimitConfig{
			ConversionRPS:   1,
			ConversionBurst: 1,
		},
	}
}

func newTestRouter(t *testing.T) (http.Handler, *prometheus.Registry) {
	t.Helper()
	registry := prometheus.NewRegistry()
	catalog, err := offers.NewCatalog(offers.PriceRefs{
		{"price_sr", "price_se", "price_sf"},
		{"price_mr", "price_me", "price_mf"},
		{"price_lr", "price_le", "price_lf"},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return NewRouter(testConfig(), logger.Nop(), Dependencies{
		Registry:  registry,
		Metrics:   metrics.NewFunnelMetrics(registry),
		Catalog:   catalog,
		Sequencer: offers.NewSequencer(5),
	}), registry
}

func TestHealthLive(t *testing.T) {
	router, _ := newTestRouter(t)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected request id header")
	}
}

func TestOffersRouteServesCatalog(t *testing.T) {
	router, _ := newTestRouter(t)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/offers?tier=exit_discount", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"recurringPriceRef":"price_me"`) {
		t.Fatalf("expected medium exit discount offer: %s", w.Body.String())
	}
}

func TestUnwiredServicesAnswer500(t *testing.T) {
	router, _ := newTestRouter(t)
	cases := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/api/v1/payment/config", ""},
		{http.MethodPost, "/api/v1/payment/create-intent", `{"planTier":"short","offerTier":"regular","email":"a@b.co"}`},
		{http.MethodPost, "/api/v1/payment/webhook", `{}`},
		{http.MethodPost, "/api/v1/leads", `{"email":"a@b.co","quizData":{}}`},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body)))
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("%s %s: expected 500, got %d", tc.method, tc.path, w.Code)
		}
	}
}

func TestConversionRouteThrottlesWith200(t *testing.T) {
	router, _ := newTestRouter(t)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/events/conversion", strings.NewReader(`{"eventName":"Lead"}`))
		req.RemoteAddr = "198.51.100.7:4000"
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
		if !strings.Contains(w.Body.String(), `"success":false`) {
			t.Fatalf("request %d: expected failed result, got %s", i, w.Body.String())
		}
	}
}

func TestMetricsEndpointExposesRouteLabels(t *testing.T) {
	router, _ := newTestRouter(t)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/offers", nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `route="/api/v1/offers`) {
		t.Fatalf("expected offers route label in exposition:\n%s", w.Body.String())
	}
}

func TestCORSPreflightAllowsDefaultOrigin(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/leads", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("expected allowed origin, got %q", got)
	}
}
