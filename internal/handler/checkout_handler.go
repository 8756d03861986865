package handler

import (
	"net/http"
	"net/url"

	"storefront/internal/config"
	"storefront/internal/domain/model"
	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /checkoutのHTTP
type CheckoutHandler struct {
	sessions *usecase.SessionManager
	feURL    string
	shopID   string
}

// DI
func NewCheckoutHandler(sessions *usecase.SessionManager, cfg config.Config) *CheckoutHandler {
	return &CheckoutHandler{sessions: sessions, feURL: cfg.FEURL, shopID: cfg.ShopID}
}

type SubmitCheckoutRequest struct {
	Checkout   model.CheckoutState `json:"checkout"`
	SuccessURL string              `json:"success_url"`
	CancelURL  string              `json:"cancel_url"`
}

type CheckoutResponse struct {
	Status  usecase.CheckoutStatus `json:"status"`
	Draft   model.CheckoutState    `json:"draft"`
	History []model.CheckoutLog    `json:"history"`
}

func (h *CheckoutHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/checkout")
	g.Use(middleware.AuthJWT(cfg))

	g.GET("", h.get)
	g.POST("", h.submit)
	g.PUT("/draft", h.saveDraft)
}

func (h *CheckoutHandler) get(c echo.Context) error {
	s, err := currentSession(c, h.sessions)
	if err != nil {
		return writeError(c, err, usecase.ContextCheckout)
	}

	st := s.Checkout.Status()
	history := []model.CheckoutLog{}
	if st.OrderID != "" {
		logs, err := s.Checkout.History(c.Request().Context(), st.OrderID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		}
		history = logs
	}

	return c.JSON(http.StatusOK, CheckoutResponse{
		Status:  st,
		Draft:   s.Checkout.Draft(),
		History: history,
	})
}

func (h *CheckoutHandler) saveDraft(c echo.Context) error {
	s, err := currentSession(c, h.sessions)
	if err != nil {
		return writeError(c, err, usecase.ContextCheckout)
	}

	var req model.CheckoutState
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	s.Checkout.SaveDraft(c.Request().Context(), req)
	return c.JSON(http.StatusOK, s.Checkout.Draft())
}

func (h *CheckoutHandler) submit(c echo.Context) error {
	s, err := currentSession(c, h.sessions)
	if err != nil {
		return writeError(c, err, usecase.ContextCheckout)
	}

	var req SubmitCheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	urls := model.ReturnURLs{
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	}
	//指定が無ければフロントの/checkoutに戻す
	if urls.SuccessURL == "" {
		urls.SuccessURL = h.returnURL(usecase.PurchaseSuccess)
	}
	if urls.CancelURL == "" {
		urls.CancelURL = h.returnURL(usecase.PurchaseCancel)
	}

	out, err := s.Checkout.SubmitOrder(c.Request().Context(), req.Checkout, urls)
	if err != nil {
		return writeError(c, err, usecase.ContextCheckout)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CheckoutHandler) returnURL(outcome usecase.PurchaseOutcome) string {
	q := url.Values{}
	q.Set("purchase", string(outcome))
	q.Set("shop_id", h.shopID)
	return h.feURL + "/checkout?" + q.Encode()
}
