package e3dc

import (
	"encoding/json"
	"fmt"
)

// Keys of the power settings snapshot reported by the device.
const (
	KeyMaxChargePower      = "maxChargePower"
	KeyMaxDischargePower   = "maxDischargePower"
	KeyDischargeStartPower = "dischargeStartPower"
)

// LimitsFromSettings extracts the three power limits from a power settings
// snapshot.
func LimitsFromSettings(settings Snapshot) (PowerLimits, error) {
	m, ok := settings.(map[string]any)
	if !ok {
		return PowerLimits{}, fmt.Errorf("power settings: unexpected payload type %T", settings)
	}

	var (
		limits PowerLimits
		err    error
	)
	if limits.MaxCharge, err = number(m, KeyMaxChargePower); err != nil {
		return PowerLimits{}, err
	}
	if limits.MaxDischarge, err = number(m, KeyMaxDischargePower); err != nil {
		return PowerLimits{}, err
	}
	if limits.DischargeStart, err = number(m, KeyDischargeStartPower); err != nil {
		return PowerLimits{}, err
	}
	return limits, nil
}

func number(m map[string]any, key string) (float64, error) {
	v, ok := m[key]
	if !ok {
		return 0, fmt.Errorf("power settings: missing %s", key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("power settings: %s: %w", key, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("power settings: %s has type %T, want number", key, v)
	}
}
