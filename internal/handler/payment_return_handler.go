package handler

import (
	"net/http"

	"storefront/internal/config"
	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 決済からの戻り
type PaymentReturnHandler struct {
	sessions *usecase.SessionManager
}

// DI
func NewPaymentReturnHandler(sessions *usecase.SessionManager) *PaymentReturnHandler {
	return &PaymentReturnHandler{sessions: sessions}
}

func (h *PaymentReturnHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/payment")
	g.Use(middleware.AuthJWT(cfg))

	g.GET("/return", h.handle)
}

// ?url= があればそのURLを、無ければこのリクエスト自体のクエリを読む
func (h *PaymentReturnHandler) handle(c echo.Context) error {
	s, err := currentSession(c, h.sessions)
	if err != nil {
		return writeError(c, err, usecase.ContextCheckout)
	}

	raw := c.QueryParam("url")
	if raw == "" {
		raw = c.Request().URL.RequestURI()
	}

	res, err := s.Returns.Handle(c.Request().Context(), raw)
	if err != nil {
		return writeError(c, err, usecase.ContextCheckout)
	}
	return c.JSON(http.StatusOK, res)
}
