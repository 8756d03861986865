package handler

import (
	"net/http"

	"storefront/internal/config"
	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /cartのHTTP
type CartHandler struct {
	sessions *usecase.SessionManager
}

// DI
func NewCartHandler(sessions *usecase.SessionManager) *CartHandler {
	return &CartHandler{sessions: sessions}
}

type AddCartRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// /cart, /cart/items/{productId} を登録
func (h *CartHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/cart")
	g.Use(middleware.AuthJWT(cfg))

	g.GET("", h.getCart)
	g.DELETE("", h.clear)
	g.POST("/items", h.addItem)
	g.PATCH("/items/:productId", h.patchItem)
	g.DELETE("/items/:productId", h.deleteItem)
	g.POST("/products", h.loadProducts)
}

func (h *CartHandler) getCart(c echo.Context) error {
	s, err := currentSession(c, h.sessions)
	if err != nil {
		return writeError(c, err, usecase.ContextCart)
	}
	return c.JSON(http.StatusOK, s.Cart.Snapshot())
}

func (h *CartHandler) addItem(c echo.Context) error {
	s, err := currentSession(c, h.sessions)
	if err != nil {
		return writeError(c, err, usecase.ContextCart)
	}

	var req AddCartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := s.Cart.AddItem(c.Request().Context(), req.ProductID, req.Quantity); err != nil {
		return writeError(c, err, usecase.ContextCart)
	}
	return c.JSON(http.StatusOK, s.Cart.Snapshot())
}

func (h *CartHandler) patchItem(c echo.Context) error {
	s, err := currentSession(c, h.sessions)
	if err != nil {
		return writeError(c, err, usecase.ContextCart)
	}

	var req UpdateCartItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := s.Cart.UpdateQuantity(c.Request().Context(), c.Param("productId"), req.Quantity); err != nil {
		return writeError(c, err, usecase.ContextCart)
	}
	return c.JSON(http.StatusOK, s.Cart.Snapshot())
}

func (h *CartHandler) deleteItem(c echo.Context) error {
	s, err := currentSession(c, h.sessions)
	if err != nil {
		return writeError(c, err, usecase.ContextCart)
	}

	if err := s.Cart.RemoveItem(c.Request().Context(), c.Param("productId")); err != nil {
		return writeError(c, err, usecase.ContextCart)
	}
	return c.JSON(http.StatusOK, s.Cart.Snapshot())
}

func (h *CartHandler) clear(c echo.Context) error {
	s, err := currentSession(c, h.sessions)
	if err != nil {
		return writeError(c, err, usecase.ContextCart)
	}

	s.Cart.Clear(c.Request().Context())
	return c.JSON(http.StatusOK, s.Cart.Snapshot())
}

// 商品情報を付け直す（無くなった商品は消える）
func (h *CartHandler) loadProducts(c echo.Context) error {
	s, err := currentSession(c, h.sessions)
	if err != nil {
		return writeError(c, err, usecase.ContextProducts)
	}

	if err := s.Cart.LoadProducts(c.Request().Context()); err != nil {
		return writeError(c, err, usecase.ContextProducts)
	}
	return c.JSON(http.StatusOK, s.Cart.Snapshot())
}
