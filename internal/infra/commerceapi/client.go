package commerceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Client はコマースAPIのHTTPクライアント（usecase.CommerceClient）
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// baseURL example:
// - http://localhost:9000/api
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		client:  &http.Client{Timeout: timeout},
	}
}

var _ usecase.CommerceClient = (*Client)(nil)

func (c *Client) CalculateOrder(ctx context.Context, req usecase.CalculateOrderRequest) (*model.CalculatedOrder, error) {
	var out model.CalculatedOrder
	if err := c.do(ctx, http.MethodPost, "/orders/calculate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateOrder(ctx context.Context, sub model.OrderSubmission) error {
	return c.do(ctx, http.MethodPost, "/orders", sub, nil)
}

type paymentRequest struct {
	OrderID    string `json:"order_id"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

func (c *Client) CreateOrderPayment(ctx context.Context, orderID string, urls model.ReturnURLs) (*model.PaymentRecord, error) {
	body := paymentRequest{
		OrderID:    orderID,
		SuccessURL: urls.SuccessURL,
		CancelURL:  urls.CancelURL,
	}
	var out model.PaymentRecord
	if err := c.do(ctx, http.MethodPost, "/orders/"+url.PathEscape(orderID)+"/payments", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetShippingRates(ctx context.Context, shopID string) ([]model.ShippingRate, error) {
	out := []model.ShippingRate{}
	if err := c.do(ctx, http.MethodGet, "/shops/"+url.PathEscape(shopID)+"/shipping-rates", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProducts(ctx context.Context, shopID string, warehouseID string) ([]model.ProductSnapshot, error) {
	path := "/shops/" + url.PathEscape(shopID) + "/products"
	if warehouseID != "" {
		path += "?" + url.Values{"warehouse_id": {warehouseID}}.Encode()
	}
	out := []model.ProductSnapshot{}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// 注文レスポンス。会員かゲストかはフィールドの有無で判断する
type orderPayload struct {
	OrderID           string          `json:"order_id"`
	Status            string          `json:"status"`
	Total             decimal.Decimal `json:"total"`
	CustomerUserID    *string         `json:"customer_user_id"`
	CustomerUserEmail *string         `json:"customer_user_email"`
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (*model.ProcessedOrder, error) {
	var p orderPayload
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, &p); err != nil {
		return nil, err
	}
	return decodeProcessedOrder(p)
}

func decodeProcessedOrder(p orderPayload) (*model.ProcessedOrder, error) {
	o := &model.ProcessedOrder{
		OrderID: p.OrderID,
		Status:  p.Status,
		Total:   p.Total,
	}
	switch {
	case p.CustomerUserID != nil && strings.TrimSpace(*p.CustomerUserID) != "":
		o.Kind = model.OrderKindRegistered
		o.Registered = &model.RegisteredUserOrder{CustomerUserID: *p.CustomerUserID}
	case p.CustomerUserEmail != nil && strings.TrimSpace(*p.CustomerUserEmail) != "":
		o.Kind = model.OrderKindPublic
		o.Public = &model.PublicUserOrder{CustomerEmail: *p.CustomerUserEmail}
	default:
		return nil, errors.Errorf("order %s: missing customer", p.OrderID)
	}
	return o, nil
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// do はJSONで送ってJSONで受ける。2xx以外はステータス付きのAppError
func (c *Client) do(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	res, err := c.client.Do(req)
	if err != nil {
		//ネットワークエラーはusecase.Classifyで判定する
		return err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return usecase.NewHTTPError(res.StatusCode, errorMessage(res.StatusCode, raw))
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrapf(err, "decode %s %s", method, path)
	}
	return nil
}

func errorMessage(status int, raw []byte) string {
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err == nil {
		if eb.Error != "" {
			return eb.Error
		}
		if eb.Message != "" {
			return eb.Message
		}
	}
	if s := strings.TrimSpace(string(raw)); s != "" && len(s) < 200 {
		return s
	}
	return http.StatusText(status)
}
