package commerceapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", "secret", 2*time.Second)
}

func TestClient_CalculateOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders/calculate", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))

		var req usecase.CalculateOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "o-1", req.OrderID)
		assert.Equal(t, "DE", req.DestinationCountry)

		//金額は文字列でも数値でも受ける
		_, _ = io.WriteString(w, `{"subtotal":"19.90","total":24.35,"shipping_total":"4.45","items":[{"product_id":"p1","quantity":2,"unit_price":"9.95","total":"19.90"}]}`)
	})

	out, err := c.CalculateOrder(context.Background(), usecase.CalculateOrderRequest{
		OrderID:            "o-1",
		ShopID:             "shop",
		Items:              []model.OrderLine{{ProductID: "p1", Quantity: 2}},
		DestinationCountry: "DE",
	})
	require.NoError(t, err)
	assert.True(t, out.Total.Equal(decimal.RequireFromString("24.35")))
	assert.True(t, out.Subtotal.Equal(decimal.RequireFromString("19.90")))
	require.Len(t, out.Items, 1)
	assert.Equal(t, "p1", out.Items[0].ProductID)
}

func TestClient_ErrorStatusBecomesAppError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":"maintenance"}`)
	})

	_, err := c.GetShippingRates(context.Background(), "shop")
	require.Error(t, err)

	ae, ok := usecase.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, usecase.KindServer, ae.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, ae.Status)
	assert.Equal(t, "maintenance", ae.Message)
	assert.True(t, usecase.IsRetryable(err))
}

func TestClient_NotFoundIsClientError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"product not found"}`)
	})

	_, err := c.GetProducts(context.Background(), "shop", "W1")
	ae, ok := usecase.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, usecase.KindClient, ae.Kind)
	assert.Equal(t, "product not found", ae.Message)
	assert.False(t, usecase.IsRetryable(err))
}

func TestClient_GetProducts_WarehouseQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/shops/shop/products", r.URL.Path)
		assert.Equal(t, "W1", r.URL.Query().Get("warehouse_id"))
		_, _ = io.WriteString(w, `[{"id":"p1","name":"Tea","price":"4.50"}]`)
	})

	ps, err := c.GetProducts(context.Background(), "shop", "W1")
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, "Tea", ps[0].Name)
}

func TestClient_CreateOrderPayment(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/o-9/payments", r.URL.Path)
		var body paymentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://shop.example.com/ok", body.SuccessURL)
		_, _ = io.WriteString(w, `{"id":"pay_1","order_id":"o-9","status":"open","data":"{\"redirect_url\":\"https://pay.example.com/c/1\"}"}`)
	})

	rec, err := c.CreateOrderPayment(context.Background(), "o-9", model.ReturnURLs{
		SuccessURL: "https://shop.example.com/ok",
		CancelURL:  "https://shop.example.com/cancel",
	})
	require.NoError(t, err)

	u, err := usecase.ExtractRedirectURL(rec)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/c/1", u)
}

// dataがオブジェクトで返ってきても読める
func TestClient_CreateOrderPayment_ObjectData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":"pay_2","order_id":"o-9","status":"open","data":{"session":{"url":"https://pay.example.com/c/2"}}}`)
	})

	rec, err := c.CreateOrderPayment(context.Background(), "o-9", model.ReturnURLs{
		SuccessURL: "https://shop.example.com/ok",
		CancelURL:  "https://shop.example.com/cancel",
	})
	require.NoError(t, err)

	u, err := usecase.ExtractRedirectURL(rec)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/c/2", u)
}

// dataにURLが無ければ決済作成の失敗ではなくリダイレクト無し
func TestClient_CreateOrderPayment_ObjectWithoutRedirect(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":"pay_3","order_id":"o-9","status":"open","data":{"status":"open"}}`)
	})

	rec, err := c.CreateOrderPayment(context.Background(), "o-9", model.ReturnURLs{})
	require.NoError(t, err)

	_, err = usecase.ExtractRedirectURL(rec)
	assert.ErrorIs(t, err, usecase.ErrNoRedirect)
}

func TestClient_GetOrder_TaggedUnion(t *testing.T) {
	cases := []struct {
		name string
		body string
		kind model.OrderKind
		who  string
	}{
		{"registered", `{"order_id":"o1","status":"paid","total":"10.00","customer_user_id":"u-1"}`, model.OrderKindRegistered, "u-1"},
		{"public", `{"order_id":"o1","status":"paid","total":"10.00","customer_user_email":"a@b.co"}`, model.OrderKindPublic, "a@b.co"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tc.body)
			})
			o, err := c.GetOrder(context.Background(), "o1")
			require.NoError(t, err)
			assert.Equal(t, tc.kind, o.Kind)
			assert.Equal(t, tc.who, o.CustomerLabel())
		})
	}
}

func TestClient_GetOrder_MissingCustomer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"order_id":"o1","status":"paid"}`)
	})
	_, err := c.GetOrder(context.Background(), "o1")
	assert.Error(t, err)
}

func TestClient_NetworkErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	c := NewClient(base, "", time.Second)
	err := c.CreateOrder(context.Background(), model.OrderSubmission{OrderID: "o1"})
	require.Error(t, err)
	assert.Equal(t, usecase.KindNetwork, usecase.Classify(err).Kind)
	assert.True(t, usecase.IsRetryable(err))
}
