package validator

import (
	"net/url"
	"regexp"
	"strings"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ISO 3166-1 alpha-2
var countryRe = regexp.MustCompile(`^[A-Za-z]{2}$`)

type checkoutValidator struct{}

// Usecaseは interface を依存注入
func NewCheckoutValidator() usecase.CheckoutValidator {
	return &checkoutValidator{}
}

// チェックアウト入力を検証
func (v *checkoutValidator) ValidateCheckout(state model.CheckoutState, urls model.ReturnURLs) error {
	email := strings.TrimSpace(state.Email)

	// 必須チェック
	if email == "" {
		return usecase.NewValidationError("email is required")
	}

	// email形式
	if !isEmailLike(email) {
		return usecase.NewValidationError("email is invalid")
	}

	if err := validateAddress("shipping address", state.ShippingAddress); err != nil {
		return err
	}

	// 請求先は入っている時だけ
	if state.BillingAddress != nil && !state.BillingAddress.IsZero() {
		if err := validateAddress("billing address", *state.BillingAddress); err != nil {
			return err
		}
	}

	// 戻り先URL
	if !isAbsoluteURL(urls.SuccessURL) {
		return usecase.NewValidationError("success url is invalid")
	}
	if !isAbsoluteURL(urls.CancelURL) {
		return usecase.NewValidationError("cancel url is invalid")
	}

	return nil
}

func validateAddress(label string, a model.Address) error {
	if strings.TrimSpace(a.Name) == "" {
		return usecase.NewValidationError(label + " name is required")
	}
	if strings.TrimSpace(a.Line1) == "" {
		return usecase.NewValidationError(label + " line1 is required")
	}
	if strings.TrimSpace(a.City) == "" {
		return usecase.NewValidationError(label + " city is required")
	}
	if strings.TrimSpace(a.PostalCode) == "" {
		return usecase.NewValidationError(label + " postal code is required")
	}
	if !countryRe.MatchString(strings.TrimSpace(a.Country)) {
		return usecase.NewValidationError(label + " country is invalid")
	}
	return nil
}

// 簡易メール形式をチェック
func isEmailLike(s string) bool {
	return emailRe.MatchString(s)
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
