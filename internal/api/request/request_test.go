package request

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balu-dk/e3dc-gateway/internal/e3dc"
)

func TestParsePowerSettingsRequiresToggle(t *testing.T) {
	for _, body := range []string{`{}`, `{"maxChargePower": 200, "foo": true}`} {
		_, err := ParsePowerSettings(json.RawMessage(body))

		var verr *ValidationError
		require.ErrorAs(t, err, &verr, body)
		assert.Equal(t, MissingToggleMessage, verr.Message)
		assert.Contains(t, verr.Message, "at least one of")
	}
}

func TestParsePowerSettingsTypeErrors(t *testing.T) {
	tests := []struct {
		body  string
		field string
	}{
		{`{"powerLimitsUsed": "yes"}`, KeyPowerLimitsUsed},
		{`{"powerLimitsUsed": null}`, KeyPowerLimitsUsed},
		{`{"powerSaveEnabled": 1}`, KeyPowerSaveEnabled},
		{`{"weatherRegulatedChargeEnabled": "false"}`, KeyWeatherRegulatedChargeEnabled},
		{`{"powerLimitsUsed": true, "maxChargePower": "200"}`, e3dc.KeyMaxChargePower},
		// A later toggle is checked even when an earlier one is fine.
		{`{"powerLimitsUsed": true, "weatherRegulatedChargeEnabled": []}`, KeyWeatherRegulatedChargeEnabled},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			_, err := ParsePowerSettings(json.RawMessage(tt.body))

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestParsePowerSettingsNonObject(t *testing.T) {
	for _, body := range []string{`[]`, `null`, `"powerLimitsUsed"`, `42`} {
		_, err := ParsePowerSettings(json.RawMessage(body))

		var verr *ValidationError
		require.ErrorAs(t, err, &verr, body)
		assert.Equal(t, MissingToggleMessage, verr.Message)
	}
}

func TestParsePowerSettingsPatch(t *testing.T) {
	patch, err := ParsePowerSettings(json.RawMessage(`{
		"powerLimitsUsed": true,
		"maxChargePower": 200,
		"powerSaveEnabled": false
	}`))
	require.NoError(t, err)

	require.NotNil(t, patch.PowerLimitsUsed)
	assert.True(t, *patch.PowerLimitsUsed)
	require.NotNil(t, patch.Limits.MaxCharge)
	assert.Equal(t, 200.0, *patch.Limits.MaxCharge)
	assert.Nil(t, patch.Limits.MaxDischarge)
	assert.Nil(t, patch.Limits.DischargeStart)
	require.NotNil(t, patch.PowerSaveEnabled)
	assert.False(t, *patch.PowerSaveEnabled)
	assert.Nil(t, patch.WeatherRegulatedChargeEnabled)
}

func TestParsePowerSettingsIgnoresLimitsWithoutToggle(t *testing.T) {
	patch, err := ParsePowerSettings(json.RawMessage(`{"powerSaveEnabled": true, "maxChargePower": "ignored"}`))
	require.NoError(t, err)
	assert.Nil(t, patch.PowerLimitsUsed)
	assert.Nil(t, patch.Limits.MaxCharge)
}

func TestParseDBQueryDefaults(t *testing.T) {
	now := time.Date(2024, 5, 17, 15, 4, 5, 0, time.UTC)

	args, err := ParseDBQuery(url.Values{}, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC), args.StartDate)
	assert.Equal(t, e3dc.TimespanDay, args.Timespan)
}

func TestParseDBQueryExplicit(t *testing.T) {
	now := time.Date(2024, 5, 17, 15, 4, 5, 0, time.UTC)

	args, err := ParseDBQuery(url.Values{"startDate": {"2023-01-31"}, "timespan": {"MONTH"}}, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC), args.StartDate)
	assert.Equal(t, e3dc.TimespanMonth, args.Timespan)
}

func TestParseDBQueryInvalid(t *testing.T) {
	tests := []struct {
		query url.Values
		field string
	}{
		{url.Values{"timespan": {"WEEK"}}, "timespan"},
		{url.Values{"timespan": {"day"}}, "timespan"},
		{url.Values{"startDate": {"17.05.2024"}}, "startDate"},
		{url.Values{"startDate": {"2024-02-30"}}, "startDate"},
	}

	for _, tt := range tests {
		t.Run(tt.query.Encode(), func(t *testing.T) {
			_, err := ParseDBQuery(tt.query, time.Now())

			var merr *MalformedError
			require.ErrorAs(t, err, &merr)
			assert.Equal(t, tt.field, merr.Field)
		})
	}
}

func TestReadJSON(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantErr     bool
	}{
		{"json", "application/json", `{"a":1}`, false},
		{"json with charset", "application/json; charset=utf-8", `[1,2]`, false},
		{"vendor json", "application/vnd.e3dc+json", `{}`, false},
		{"form", "application/x-www-form-urlencoded", `a=1`, true},
		{"missing content type", "", `{}`, true},
		{"invalid json", "application/json", `{"a":`, true},
		{"empty", "application/json", `  `, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/idle_periods", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}

			body, err := ReadJSON(httptest.NewRecorder(), req)
			if tt.wantErr {
				var merr *MalformedError
				require.ErrorAs(t, err, &merr)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.body, string(body))
		})
	}
}
