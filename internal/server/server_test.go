package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/infra/commerceapi"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	cfg := config.Config{
		JWTSecret:  "test-secret",
		SessionTTL: time.Hour,
		FEURL:      "https://shop.example.com",
		ShopID:     "shop-1",
	}
	sessions, err := usecase.NewSessionManager(usecase.SessionDeps{
		Client: commerceapi.NewClient("http://127.0.0.1:1", "", time.Second),
		Stores: infraRepo.NewKVMemoryFactory(),
		Logs:   infraRepo.NewCheckoutLogMemoryRepository(),
		ShopID: cfg.ShopID,
		Logger: zap.NewNop(),
	}, 8)
	require.NoError(t, err)

	return New(cfg, Handlers{
		Session:       handler.NewSessionHandler(sessions, cfg),
		Cart:          handler.NewCartHandler(sessions),
		Shipping:      handler.NewShippingHandler(sessions),
		Checkout:      handler.NewCheckoutHandler(sessions, cfg),
		PaymentReturn: handler.NewPaymentReturnHandler(sessions),
	}, zap.NewNop())
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCORS_AllowsFrontend(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/cart", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, "https://shop.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRoutes_RequireSession(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/cart", "/shipping", "/checkout", "/payment/return"} {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}
