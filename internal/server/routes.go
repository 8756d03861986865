package server

import (
	"net/http"

	"storefront/internal/config"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, cfg config.Config, h Handlers) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	h.Session.RegisterRoutes(e)
	h.Cart.RegisterRoutes(e, cfg)
	h.Shipping.RegisterRoutes(e, cfg)
	h.Checkout.RegisterRoutes(e, cfg)
	h.PaymentReturn.RegisterRoutes(e, cfg)
}
