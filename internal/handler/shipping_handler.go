package handler

import (
	"errors"
	"net/http"

	"storefront/internal/config"
	"storefront/internal/domain/model"
	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /shippingのHTTP
type ShippingHandler struct {
	sessions *usecase.SessionManager
}

// DI
func NewShippingHandler(sessions *usecase.SessionManager) *ShippingHandler {
	return &ShippingHandler{sessions: sessions}
}

type SetCountryRequest struct {
	Country string `json:"country"`
}

type SetWarehouseRequest struct {
	WarehouseID string `json:"warehouse_id"`
}

type ShippingResponse struct {
	Selection           model.ShippingSelection `json:"selection"`
	AvailableCountries  []string                `json:"available_countries"`
	AvailableWarehouses []model.ShippingRate    `json:"available_warehouses"`
}

// 国・倉庫の変更後はカートも再計算されるので両方返す
type ShippingChangeResponse struct {
	Shipping ShippingResponse `json:"shipping"`
	Cart     model.Cart       `json:"cart"`
}

func (h *ShippingHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/shipping")
	g.Use(middleware.AuthJWT(cfg))

	g.GET("", h.get)
	g.POST("/rates", h.loadRates)
	g.PUT("/country", h.setCountry)
	g.PUT("/warehouse", h.setWarehouse)
}

func (h *ShippingHandler) get(c echo.Context) error {
	s, err := currentSession(c, h.sessions)
	if err != nil {
		return writeError(c, err, usecase.ContextShipping)
	}
	return c.JSON(http.StatusOK, shippingResponse(s))
}

func (h *ShippingHandler) loadRates(c echo.Context) error {
	s, err := currentSession(c, h.sessions)
	if err != nil {
		return writeError(c, err, usecase.ContextShipping)
	}

	if err := s.Shipping.LoadRates(c.Request().Context()); err != nil {
		return writeError(c, err, usecase.ContextShipping)
	}
	return c.JSON(http.StatusOK, shippingResponse(s))
}

func (h *ShippingHandler) setCountry(c echo.Context) error {
	s, err := currentSession(c, h.sessions)
	if err != nil {
		return writeError(c, err, usecase.ContextShipping)
	}

	var req SetCountryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := s.ChangeCountry(c.Request().Context(), req.Country); err != nil {
		return h.changeFailed(c, s, err)
	}
	return c.JSON(http.StatusOK, ShippingChangeResponse{
		Shipping: shippingResponse(s),
		Cart:     s.Cart.Snapshot(),
	})
}

func (h *ShippingHandler) setWarehouse(c echo.Context) error {
	s, err := currentSession(c, h.sessions)
	if err != nil {
		return writeError(c, err, usecase.ContextShipping)
	}

	var req SetWarehouseRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := s.ChangeWarehouse(c.Request().Context(), req.WarehouseID); err != nil {
		return h.changeFailed(c, s, err)
	}

	return c.JSON(http.StatusOK, ShippingChangeResponse{
		Shipping: shippingResponse(s),
		Cart:     s.Cart.Snapshot(),
	})
}

// 選択そのものが不正な時だけエラー。再計算の失敗はcart.errorで返す
func (h *ShippingHandler) changeFailed(c echo.Context, s *usecase.Session, err error) error {
	if errors.Is(err, usecase.ErrIncompatibleWarehouse) {
		return writeError(c, err, usecase.ContextShipping)
	}
	return c.JSON(http.StatusOK, ShippingChangeResponse{
		Shipping: shippingResponse(s),
		Cart:     s.Cart.Snapshot(),
	})
}

func shippingResponse(s *usecase.Session) ShippingResponse {
	return ShippingResponse{
		Selection:           s.Shipping.Snapshot(),
		AvailableCountries:  s.Shipping.AvailableCountries(),
		AvailableWarehouses: s.Shipping.AvailableWarehouses(),
	}
}
