package usecase

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"storefront/internal/domain/model"
)

type ErrorKind string

const (
	KindNetwork    ErrorKind = "NetworkError"
	KindValidation ErrorKind = "ValidationError"
	KindClient     ErrorKind = "ClientError"
	KindServer     ErrorKind = "ServerError"
	KindUnknown    ErrorKind = "UnknownError"
)

// AppError は分類済みのエラー。Statusはサーバー応答がある時だけ入る
type AppError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%d: %s", e.Status, e.Message)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewHTTPError(status int, message string) error {
	return &AppError{
		Kind:    kindForStatus(status),
		Status:  status,
		Message: message,
	}
}

func NewValidationError(message string) error {
	return &AppError{Kind: KindValidation, Message: message}
}

func AsAppError(err error) (*AppError, bool) {
	var ae *AppError
	ok := errors.As(err, &ae)
	return ae, ok
}

var (
	ErrDestinationRequired   = &AppError{Kind: KindValidation, Message: "destination country is required"}
	ErrInvalidQuantity       = &AppError{Kind: KindValidation, Message: "invalid quantity"}
	ErrInvalidProductID      = &AppError{Kind: KindValidation, Message: "invalid product id"}
	ErrItemNotInCart         = &AppError{Kind: KindClient, Status: http.StatusNotFound, Message: "item not in cart"}
	ErrIncompatibleWarehouse = &AppError{Kind: KindValidation, Message: "invalid warehouse for selected country"}
	ErrCartEmpty             = &AppError{Kind: KindValidation, Message: "cart is empty"}
	ErrOrderIncomplete       = &AppError{Kind: KindValidation, Message: "order is incomplete: calculated order missing"}
	ErrCheckoutInProgress    = &AppError{Kind: KindClient, Status: http.StatusConflict, Message: "checkout already in progress"}
	ErrNoRedirect            = &AppError{Kind: KindServer, Message: "payment response has no redirect url"}
	ErrInvalidPaymentReturn  = &AppError{Kind: KindValidation, Message: "invalid purchase parameter"}
	ErrForeignShopReturn     = &AppError{Kind: KindValidation, Message: "payment return belongs to another shop"}
)

func kindForStatus(status int) ErrorKind {
	switch {
	case status >= 400 && status < 500:
		return KindClient
	case status >= 500:
		return KindServer
	default:
		return KindUnknown
	}
}

// Classify はエラーを分類する。HTTPステータス優先、次にメッセージで判定
func Classify(err error) *AppError {
	if err == nil {
		return nil
	}

	if ae, ok := AsAppError(err); ok {
		if ae.Status > 0 && ae.Kind != kindForStatus(ae.Status) && ae.Kind != KindValidation {
			return &AppError{Kind: kindForStatus(ae.Status), Status: ae.Status, Message: ae.Message, Err: err}
		}
		return ae
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &AppError{Kind: KindNetwork, Message: "request timed out", Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &AppError{Kind: KindUnknown, Message: "request canceled", Err: err}
	}

	var ne net.Error
	if errors.As(err, &ne) {
		return &AppError{Kind: KindNetwork, Message: err.Error(), Err: err}
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return &AppError{Kind: KindNetwork, Message: err.Error(), Err: err}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "required", "invalid", "missing"):
		return &AppError{Kind: KindValidation, Message: err.Error(), Err: err}
	case containsAny(msg, "network", "timeout", "connection", "fetch"):
		return &AppError{Kind: KindNetwork, Message: err.Error(), Err: err}
	}

	return &AppError{Kind: KindUnknown, Message: err.Error(), Err: err}
}

// IsRetryable はネットワークエラーと一時的な5xxだけtrue
func IsRetryable(err error) bool {
	ae := Classify(err)
	if ae == nil {
		return false
	}
	switch ae.Kind {
	case KindNetwork:
		return true
	case KindServer:
		switch ae.Status {
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
	}
	return false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// 画面ごとのエラー文脈
type ErrorContext string

const (
	ContextCart     ErrorContext = "cart"
	ContextCheckout ErrorContext = "checkout"
	ContextProducts ErrorContext = "products"
	ContextShipping ErrorContext = "shipping"
)

const (
	ActionTryAgain         = "Try again"
	ActionCheckInformation = "Check information"
	ActionGoBack           = "Go back"
)

// ユーザーに見せる文言と次の行動
type UserFacingError struct {
	Message string `json:"message"`
	Action  string `json:"action"`
}

type messageKey string

const (
	msgNotFound   messageKey = "not_found"
	msgAuth       messageKey = "auth"
	msgConflict   messageKey = "conflict"
	msgClient     messageKey = "client"
	msgValidation messageKey = "validation"
	msgNetwork    messageKey = "network"
	msgServer     messageKey = "server"
	msgUnknown    messageKey = "unknown"
)

var userMessages = map[ErrorContext]map[messageKey]UserFacingError{
	ContextCart: {
		msgNotFound:   {"The product was not found. It may no longer be available.", ActionGoBack},
		msgValidation: {"Please check the items in your cart.", ActionCheckInformation},
		msgClient:     {"Your cart could not be updated.", ActionCheckInformation},
		msgServer:     {"We could not update your cart right now.", ActionTryAgain},
	},
	ContextCheckout: {
		msgNotFound:   {"The order could not be found.", ActionGoBack},
		msgConflict:   {"Your order is already being submitted.", ActionTryAgain},
		msgValidation: {"Please check your contact and address details.", ActionCheckInformation},
		msgClient:     {"Your order could not be placed. Please check your details.", ActionCheckInformation},
		msgServer:     {"Your order could not be placed right now.", ActionTryAgain},
	},
	ContextProducts: {
		msgNotFound:   {"Some products are no longer available.", ActionGoBack},
		msgValidation: {"The product list request was invalid.", ActionGoBack},
		msgServer:     {"Products could not be loaded right now.", ActionTryAgain},
	},
	ContextShipping: {
		msgNotFound:   {"No shipping options were found for this shop.", ActionGoBack},
		msgValidation: {"Please choose a shipping destination we deliver to.", ActionCheckInformation},
		msgServer:     {"Shipping options could not be loaded right now.", ActionTryAgain},
	},
}

var defaultMessages = map[messageKey]UserFacingError{
	msgNotFound:   {"The requested item was not found.", ActionGoBack},
	msgAuth:       {"Your session has expired. Please reload the page.", ActionGoBack},
	msgConflict:   {"This request is already being processed.", ActionTryAgain},
	msgClient:     {"The request could not be completed.", ActionCheckInformation},
	msgValidation: {"Please check the information you entered.", ActionCheckInformation},
	msgNetwork:    {"Connection problem. Please check your internet connection.", ActionTryAgain},
	msgServer:     {"The shop is temporarily unavailable.", ActionTryAgain},
	msgUnknown:    {"Something went wrong.", ActionTryAgain},
}

// UserFacing は内部の種類とは別に、文脈ごとの文言を返す
func UserFacing(err error, ctx ErrorContext) UserFacingError {
	if err == nil {
		return UserFacingError{}
	}

	//個別のもの
	switch {
	case errors.Is(err, ErrDestinationRequired):
		return UserFacingError{"Select a shipping country to calculate your total.", ActionCheckInformation}
	case errors.Is(err, ErrIncompatibleWarehouse):
		return UserFacingError{"This warehouse does not ship to the selected country.", ActionCheckInformation}
	case errors.Is(err, ErrCartEmpty):
		return UserFacingError{"Your cart is empty.", ActionGoBack}
	case errors.Is(err, ErrNoRedirect):
		return UserFacingError{"Payment could not be started. Please try again.", ActionTryAgain}
	case errors.Is(err, ErrItemNotInCart):
		return UserFacingError{"This item is no longer in your cart.", ActionGoBack}
	}

	key := keyFor(Classify(err))
	if m, ok := userMessages[ctx][key]; ok {
		return m
	}
	return defaultMessages[key]
}

func keyFor(ae *AppError) messageKey {
	switch ae.Kind {
	case KindValidation:
		return msgValidation
	case KindClient:
		switch ae.Status {
		case http.StatusNotFound:
			return msgNotFound
		case http.StatusUnauthorized, http.StatusForbidden:
			return msgAuth
		case http.StatusConflict:
			return msgConflict
		}
		return msgClient
	case KindNetwork:
		return msgNetwork
	case KindServer:
		return msgServer
	}
	return msgUnknown
}

// ErrorInfo はCartなどに保存する形
func ErrorInfo(err error, ctx ErrorContext) *model.ErrorInfo {
	if err == nil {
		return nil
	}
	ae := Classify(err)
	uf := UserFacing(err, ctx)
	return &model.ErrorInfo{
		Kind:    string(ae.Kind),
		Status:  ae.Status,
		Message: uf.Message,
		Action:  uf.Action,
	}
}
