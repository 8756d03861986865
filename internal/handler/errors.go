package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// エラーレスポンス
type ErrorResponse struct {
	Error  string `json:"error"`
	Action string `json:"action,omitempty"`
	Kind   string `json:"kind,omitempty"`
}

// writeError はAppErrorの種類からステータスを決め、画面向けの文言で返す
func writeError(c echo.Context, err error, ctx usecase.ErrorContext) error {
	if err == nil {
		return nil
	}
	ae := usecase.Classify(err)
	uf := usecase.UserFacing(err, ctx)

	return c.JSON(statusFor(ae), ErrorResponse{
		Error:  uf.Message,
		Action: uf.Action,
		Kind:   string(ae.Kind),
	})
}

func statusFor(ae *usecase.AppError) int {
	switch ae.Kind {
	case usecase.KindValidation:
		return http.StatusBadRequest
	case usecase.KindClient:
		if ae.Status != 0 {
			return ae.Status
		}
		return http.StatusBadRequest
	case usecase.KindNetwork, usecase.KindServer:
		//コマースAPI側の失敗
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
