package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subtrack/internal/core"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "2024-02-29", want: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{in: " 2024-03-01 ", want: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{in: "2024-03-01T09:30:00+09:00", want: time.Date(2024, 3, 1, 0, 30, 0, 0, time.UTC)},
		{in: "2024-02-30", wantErr: true},
		{in: "03/01/2024", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDate(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}

func TestSubscriptionPatchRequest(t *testing.T) {
	var req subscriptionPatchRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"amount": 9.99,
		"startedAt": "2024-01-15",
		"freeUntil": null,
		"paymentMethodId": "pm-1"
	}`), &req))

	p := req.patch()
	require.NotNil(t, p.Amount)
	assert.Equal(t, 9.99, *p.Amount)
	assert.Nil(t, p.Name)

	assert.True(t, p.StartedAt.Set)
	require.NotNil(t, p.StartedAt.Value)
	assert.Equal(t, "2024-01-15", p.StartedAt.Value.Format(time.DateOnly))

	assert.True(t, p.FreeUntil.Set, "explicit null clears the field")
	assert.Nil(t, p.FreeUntil.Value)

	assert.False(t, p.PromoUntil.Set, "absent keys are left alone")
	assert.True(t, p.PaymentMethodID.Set)
	assert.Equal(t, "pm-1", *p.PaymentMethodID.Value)
}

func TestQueryCurrency(t *testing.T) {
	tests := []struct {
		query   string
		want    core.Currency
		wantErr bool
	}{
		{query: "", want: ""},
		{query: "currency=krw", want: core.KRW},
		{query: "currency=USD", want: core.USD},
		{query: "currency=EUR", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/dashboard?"+tt.query, nil)
			got, err := queryCurrency(r)
			if tt.wantErr {
				assert.True(t, errors.Is(err, core.ErrInvalidCurrency))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", errors.Join(errors.New("get subscription"), core.ErrNotFound), http.StatusNotFound},
		{"validation", core.ErrInvalidBillingDay, http.StatusBadRequest},
		{"settings", errors.Join(core.ErrInvalidSettings, errors.New("unsupported language")), http.StatusBadRequest},
		{"decode", errBadRequest, http.StatusBadRequest},
		{"storage", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
