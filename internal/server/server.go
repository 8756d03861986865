package server

import (
	"context"
	"net/http"
	"time"

	"storefront/internal/config"
	"storefront/internal/handler"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Handlers はルートに載せるハンドラ一式
type Handlers struct {
	Session       *handler.SessionHandler
	Cart          *handler.CartHandler
	Shipping      *handler.ShippingHandler
	Checkout      *handler.CheckoutHandler
	PaymentReturn *handler.PaymentReturnHandler
}

// New はechoを組み立てる（起動はしない）
func New(cfg config.Config, h Handlers, logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.FEURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURIPath: true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			logger.Info("request",
				zap.String("method", v.Method),
				zap.String("path", v.URIPath),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	}))

	RegisterRoutes(e, cfg, h)
	return e
}

// Start はsignalでctxが閉じるまで動かす
func Start(ctx context.Context, e *echo.Echo, addr string, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("server shutting down")
	return e.Shutdown(shutdownCtx)
}
