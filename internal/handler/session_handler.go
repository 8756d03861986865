package handler

import (
	"net/http"
	"time"

	"storefront/internal/config"
	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /session のHTTP。セッションIDを払い出してトークンにする
type SessionHandler struct {
	sessions     *usecase.SessionManager
	secret       string
	ttl          time.Duration
	cookieSecure bool
	now          func() time.Time
}

// DI
func NewSessionHandler(sessions *usecase.SessionManager, cfg config.Config) *SessionHandler {
	return &SessionHandler{
		sessions:     sessions,
		secret:       cfg.JWTSecret,
		ttl:          cfg.SessionTTL,
		cookieSecure: cfg.GoEnv == "prod",
		now:          time.Now,
	}
}

type SessionResponse struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

func (h *SessionHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/session", h.create)
}

func (h *SessionHandler) create(c echo.Context) error {
	sid := h.sessions.NewID()

	//空のセッションを作っておく
	if _, err := h.sessions.Get(c.Request().Context(), sid); err != nil {
		return writeError(c, err, usecase.ContextCart)
	}

	token, err := middleware.IssueSessionToken(h.secret, sid, h.ttl, h.now())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}

	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	return c.JSON(http.StatusCreated, SessionResponse{
		SessionID: sid,
		Token:     token,
		ExpiresIn: int64(h.ttl.Seconds()),
	})
}

// セッションをcontextのsidから取り出す
func currentSession(c echo.Context, sessions *usecase.SessionManager) (*usecase.Session, error) {
	return sessions.Get(c.Request().Context(), middleware.SessionID(c))
}
