package handlers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	appValidator "github.com/charlesng35/larkrelay/pkg/validator"
)

func TestFormatValidationError(t *testing.T) {
	err := appValidator.ValidationErrors{
		{Field: "webhookRequest.url", Tag: "httpurl"},
		{Field: "webhookRequest.secret", Tag: "required"},
		{Field: "priceWebhookRequest.data[0].symbol", Tag: "required"},
		{Field: "x.n", Tag: "max", Param: "3"},
	}

	require.Equal(t,
		"url must be an http(s) URL; secret is required; data[0].symbol is required; n failed validation: max=3",
		formatValidationError(err))
	require.Equal(t, "invalid request payload", formatValidationError(errors.New("boom")))
}

func TestPrettifyFieldName(t *testing.T) {
	require.Equal(t, "secret", prettifyFieldName("webhookRequest.secret"))
	require.Equal(t, "field", prettifyFieldName("root."))
	require.Equal(t, "moyu url", prettifyFieldName("MOYU_URL"))
}
