package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/balu-dk/e3dc-gateway/internal/e3dc"
	"github.com/sirupsen/logrus"
)

// Failure messages reported when the device refuses a change.
const (
	MsgPowerLimitsFailed   = "error updating power limits"
	MsgPowerSaveFailed     = "error updating Power Save"
	MsgWeatherChargeFailed = "error updating Weather Regulated Charge"
	MsgIdlePeriodsFailed   = "error updating Idle Times"
)

// OperationError is returned when the device reports that it refused a
// requested change.
type OperationError struct {
	Operation string
	Message   string
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Operation, e.Message)
}

// DeviceException is returned when the device raised on the input of a
// mutation, e.g. a malformed idle period schedule.
type DeviceException struct {
	Operation string
	Message   string
}

func (e *DeviceException) Error() string {
	return fmt.Sprintf("%s: %s", e.Operation, e.Message)
}

// PowerSettingsUpdate is a validated set of power setting changes. Nil
// toggles are left alone.
type PowerSettingsUpdate struct {
	PowerLimitsUsed               *bool
	Limits                        e3dc.LimitsOverride
	PowerSaveEnabled              *bool
	WeatherRegulatedChargeEnabled *bool
}

// Gateway is the E3/DC gateway service
type Gateway struct {
	session  *e3dc.Session
	commands *CommandLogger
}

// NewGateway creates a new gateway service
func NewGateway(session *e3dc.Session, commands *CommandLogger) *Gateway {
	return &Gateway{
		session:  session,
		commands: commands,
	}
}

// Read returns the current device snapshot for r
func (g *Gateway) Read(ctx context.Context, r e3dc.Resource) (e3dc.Snapshot, error) {
	return g.session.Read(ctx, r)
}

// DBData returns aggregated history from the device database
func (g *Gateway) DBData(ctx context.Context, startDate time.Time, timespan e3dc.Timespan) (e3dc.Snapshot, error) {
	return g.session.DBData(ctx, startDate, timespan)
}

// UpdatePowerSettings applies u in the order limits, power save, weather
// regulated charge. The first failure stops the remaining steps.
func (g *Gateway) UpdatePowerSettings(ctx context.Context, u PowerSettingsUpdate, remoteIP string) error {
	if u.PowerLimitsUsed != nil {
		limits, res, err := g.session.ApplyPowerLimits(ctx, *u.PowerLimitsUsed, u.Limits)
		payload := map[string]interface{}{
			"enable":         *u.PowerLimitsUsed,
			"maxCharge":      limits.MaxCharge,
			"maxDischarge":   limits.MaxDischarge,
			"dischargeStart": limits.DischargeStart,
		}
		if err := g.finish("set_power_limits", payload, res, err, MsgPowerLimitsFailed, remoteIP); err != nil {
			return err
		}
	}

	if u.PowerSaveEnabled != nil {
		res, err := g.session.SetPowerSave(ctx, *u.PowerSaveEnabled)
		payload := map[string]interface{}{"enable": *u.PowerSaveEnabled}
		if err := g.finish("set_powersave", payload, res, err, MsgPowerSaveFailed, remoteIP); err != nil {
			return err
		}
	}

	if u.WeatherRegulatedChargeEnabled != nil {
		res, err := g.session.SetWeatherRegulatedCharge(ctx, *u.WeatherRegulatedChargeEnabled)
		payload := map[string]interface{}{"enable": *u.WeatherRegulatedChargeEnabled}
		if err := g.finish("set_weather_regulated_charge", payload, res, err, MsgWeatherChargeFailed, remoteIP); err != nil {
			return err
		}
	}

	return nil
}

// SetIdlePeriods forwards the schedule to the device unchanged
func (g *Gateway) SetIdlePeriods(ctx context.Context, periods json.RawMessage, remoteIP string) error {
	res, err := g.session.SetIdlePeriods(ctx, periods)
	return g.finish("set_idle_periods", periods, res, err, MsgIdlePeriodsFailed, remoteIP)
}

// finish records the command and converts its result into an error.
func (g *Gateway) finish(operation string, payload interface{}, res e3dc.Result, err error, failure, remoteIP string) error {
	if err != nil {
		g.commands.Log(operation, payload, "error", err.Error(), remoteIP)
		return fmt.Errorf("%s: %w", operation, err)
	}

	switch res.Outcome {
	case e3dc.Success:
		g.commands.Log(operation, payload, res.Outcome.String(), "", remoteIP)
		return nil
	case e3dc.Rejected:
		g.commands.Log(operation, payload, res.Outcome.String(), failure, remoteIP)
		return &OperationError{Operation: operation, Message: failure}
	case e3dc.InvalidInput:
		g.commands.Log(operation, payload, res.Outcome.String(), res.Detail, remoteIP)
		return &DeviceException{Operation: operation, Message: res.Detail}
	default:
		logrus.WithField("outcome", res.Outcome).Error("Unknown device outcome")
		return fmt.Errorf("%s: unknown outcome %s", operation, res.Outcome)
	}
}
