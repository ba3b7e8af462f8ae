package request

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/balu-dk/e3dc-gateway/internal/e3dc"
	"github.com/balu-dk/e3dc-gateway/internal/service"
)

// Keys recognized in a power settings patch.
const (
	KeyPowerLimitsUsed               = "powerLimitsUsed"
	KeyPowerSaveEnabled              = "powerSaveEnabled"
	KeyWeatherRegulatedChargeEnabled = "weatherRegulatedChargeEnabled"
)

// MissingToggleMessage is reported when a patch names none of the toggles.
var MissingToggleMessage = fmt.Sprintf("request must contain at least one of %s, %s or %s",
	KeyPowerLimitsUsed, KeyPowerSaveEnabled, KeyWeatherRegulatedChargeEnabled)

// PowerSettingsPatch is a validated POST /api/power_settings body. Nil fields
// were absent from the request.
type PowerSettingsPatch = service.PowerSettingsUpdate

// ParsePowerSettings validates body in one pass. Nothing in the returned
// patch has been applied yet, so a validation error leaves the device
// untouched.
func ParsePowerSettings(body json.RawMessage) (PowerSettingsPatch, error) {
	// A JSON value that is not an object carries none of the toggles.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return PowerSettingsPatch{}, &ValidationError{Message: MissingToggleMessage}
	}

	_, limits := fields[KeyPowerLimitsUsed]
	_, save := fields[KeyPowerSaveEnabled]
	_, weather := fields[KeyWeatherRegulatedChargeEnabled]
	if !limits && !save && !weather {
		return PowerSettingsPatch{}, &ValidationError{Message: MissingToggleMessage}
	}

	var (
		patch PowerSettingsPatch
		err   error
	)
	if patch.PowerLimitsUsed, err = optionalBool(fields, KeyPowerLimitsUsed); err != nil {
		return PowerSettingsPatch{}, err
	}
	// Limit values only matter when the limits themselves are being set.
	if limits {
		if patch.Limits.MaxCharge, err = optionalNumber(fields, e3dc.KeyMaxChargePower); err != nil {
			return PowerSettingsPatch{}, err
		}
		if patch.Limits.MaxDischarge, err = optionalNumber(fields, e3dc.KeyMaxDischargePower); err != nil {
			return PowerSettingsPatch{}, err
		}
		if patch.Limits.DischargeStart, err = optionalNumber(fields, e3dc.KeyDischargeStartPower); err != nil {
			return PowerSettingsPatch{}, err
		}
	}
	if patch.PowerSaveEnabled, err = optionalBool(fields, KeyPowerSaveEnabled); err != nil {
		return PowerSettingsPatch{}, err
	}
	if patch.WeatherRegulatedChargeEnabled, err = optionalBool(fields, KeyWeatherRegulatedChargeEnabled); err != nil {
		return PowerSettingsPatch{}, err
	}
	return patch, nil
}

func optionalBool(fields map[string]json.RawMessage, key string) (*bool, error) {
	raw, ok := fields[key]
	if !ok {
		return nil, nil
	}
	var b bool
	if bytes.Equal(raw, []byte("null")) || json.Unmarshal(raw, &b) != nil {
		return nil, &ValidationError{Field: key, Message: key + " is not a boolean"}
	}
	return &b, nil
}

func optionalNumber(fields map[string]json.RawMessage, key string) (*float64, error) {
	raw, ok := fields[key]
	if !ok {
		return nil, nil
	}
	var f float64
	if bytes.Equal(raw, []byte("null")) || json.Unmarshal(raw, &f) != nil {
		return nil, &ValidationError{Field: key, Message: key + " is not a number"}
	}
	return &f, nil
}
