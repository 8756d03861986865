package validator

import (
	"testing"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validState() model.CheckoutState {
	return model.CheckoutState{
		Email: "buyer@example.com",
		ShippingAddress: model.Address{
			Name:       "Erika Muster",
			Line1:      "Hauptstr. 1",
			City:       "Berlin",
			PostalCode: "10115",
			Country:    "DE",
		},
	}
}

func validURLs() model.ReturnURLs {
	return model.ReturnURLs{
		SuccessURL: "https://shop.example.com/?purchase=success",
		CancelURL:  "https://shop.example.com/?purchase=cancel",
	}
}

func TestCheckoutValidator_OK(t *testing.T) {
	v := NewCheckoutValidator()
	assert.NoError(t, v.ValidateCheckout(validState(), validURLs()))
}

func TestCheckoutValidator_BillingAddressOptional(t *testing.T) {
	v := NewCheckoutValidator()
	st := validState()
	st.BillingAddress = &model.Address{}
	assert.NoError(t, v.ValidateCheckout(st, validURLs()))
}

func TestCheckoutValidator_Errors(t *testing.T) {
	v := NewCheckoutValidator()

	cases := []struct {
		name   string
		mutate func(*model.CheckoutState, *model.ReturnURLs)
		msg    string
	}{
		{"email missing", func(s *model.CheckoutState, _ *model.ReturnURLs) { s.Email = " " }, "email is required"},
		{"email invalid", func(s *model.CheckoutState, _ *model.ReturnURLs) { s.Email = "nope" }, "email is invalid"},
		{"name missing", func(s *model.CheckoutState, _ *model.ReturnURLs) { s.ShippingAddress.Name = "" }, "shipping address name is required"},
		{"country invalid", func(s *model.CheckoutState, _ *model.ReturnURLs) { s.ShippingAddress.Country = "Germany" }, "shipping address country is invalid"},
		{"billing incomplete", func(s *model.CheckoutState, _ *model.ReturnURLs) {
			s.BillingAddress = &model.Address{Name: "X"}
		}, "billing address line1 is required"},
		{"success url relative", func(_ *model.CheckoutState, u *model.ReturnURLs) { u.SuccessURL = "/done" }, "success url is invalid"},
		{"cancel url missing", func(_ *model.CheckoutState, u *model.ReturnURLs) { u.CancelURL = "" }, "cancel url is invalid"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st, urls := validState(), validURLs()
			tc.mutate(&st, &urls)

			err := v.ValidateCheckout(st, urls)
			require.Error(t, err)
			ae, ok := usecase.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, usecase.KindValidation, ae.Kind)
			assert.Equal(t, tc.msg, ae.Message)
		})
	}
}
