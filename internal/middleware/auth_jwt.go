package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"storefront/internal/config"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CtxSessionIDKey = "session_id" // string

	// トークンをcookieで渡す場合の名前
	SessionCookieName = "sid"
)

// セッショントークン（Bearer or cookie）の検証ミドルウェア。
func AuthJWT(cfg config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rawToken := tokenFromRequest(c)
			if rawToken == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			sid, err := ParseSessionToken(cfg.JWTSecret, rawToken)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//contextへ保存
			c.Set(CtxSessionIDKey, sid)
			return next(c)
		}
	}
}

// SessionID はAuthJWTが入れたセッションIDを返す
func SessionID(c echo.Context) string {
	sid, _ := c.Get(CtxSessionIDKey).(string)
	return sid
}

// IssueSessionToken はsidを入れたHS256トークンを作る
func IssueSessionToken(secret string, sid string, ttl time.Duration, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sid": sid,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// ParseSessionToken は署名と期限を確認してsidを返す
func ParseSessionToken(secret string, rawToken string) (string, error) {
	token, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || token == nil || !token.Valid {
		return "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}

	sid, err := parseString(claims["sid"])
	if err != nil || strings.TrimSpace(sid) == "" {
		return "", errors.New("invalid sid")
	}
	return sid, nil
}

// Authorizationヘッダを優先し、無ければcookie
func tokenFromRequest(c echo.Context) string {
	if authz := c.Request().Header.Get("Authorization"); authz != "" {
		parts := strings.SplitN(authz, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return ""
		}
		return strings.TrimSpace(parts[1])
	}
	if ck, err := c.Cookie(SessionCookieName); err == nil {
		return strings.TrimSpace(ck.Value)
	}
	return ""
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}

func parseString(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.New("invalid string")
	}
	return s, nil
}
