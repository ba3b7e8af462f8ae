package e3dc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/balu-dk/e3dc-gateway/internal/metrics"
	"github.com/sirupsen/logrus"
)

// Resource names a read-only device resource. The values double as the
// HTTP path segment under /api.
type Resource string

const (
	ResourcePoll            Resource = "poll"
	ResourceSystemInfo      Resource = "system_info"
	ResourceSystemStatus    Resource = "system_status"
	ResourceBatteries       Resource = "batteries"
	ResourceBatteryData     Resource = "battery_data"
	ResourceBatteriesData   Resource = "batteries_data"
	ResourcePVIs            Resource = "pvis"
	ResourcePVIData         Resource = "pvi_data"
	ResourcePVIsData        Resource = "pvis_data"
	ResourcePowerMeters     Resource = "powermeters"
	ResourcePowerMeterData  Resource = "powermeter_data"
	ResourcePowerMetersData Resource = "powermeters_data"
	ResourcePowerSettings   Resource = "power_settings"
	ResourceIdlePeriods     Resource = "idle_periods"
)

var readers = map[Resource]func(Client, context.Context, bool) (Snapshot, error){
	ResourcePoll:            Client.Poll,
	ResourceSystemInfo:      Client.GetSystemInfo,
	ResourceSystemStatus:    Client.GetSystemStatus,
	ResourceBatteries:       Client.GetBatteries,
	ResourceBatteryData:     Client.GetBatteryData,
	ResourceBatteriesData:   Client.GetBatteriesData,
	ResourcePVIs:            Client.GetPVIs,
	ResourcePVIData:         Client.GetPVIData,
	ResourcePVIsData:        Client.GetPVIsData,
	ResourcePowerMeters:     Client.GetPowerMeters,
	ResourcePowerMeterData:  Client.GetPowerMeterData,
	ResourcePowerMetersData: Client.GetPowerMetersData,
	ResourcePowerSettings:   Client.GetPowerSettings,
	ResourceIdlePeriods:     Client.GetIdlePeriods,
}

// ReadResources lists every resource Session.Read accepts, in route order.
func ReadResources() []Resource {
	return []Resource{
		ResourcePoll, ResourceSystemInfo, ResourceSystemStatus,
		ResourceBatteries, ResourceBatteryData, ResourceBatteriesData,
		ResourcePVIs, ResourcePVIData, ResourcePVIsData,
		ResourcePowerMeters, ResourcePowerMeterData, ResourcePowerMetersData,
		ResourcePowerSettings, ResourceIdlePeriods,
	}
}

// Outcome classifies the answer to a device write.
type Outcome int

const (
	Success Outcome = iota
	Rejected
	InvalidInput
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Rejected:
		return "rejected"
	case InvalidInput:
		return "invalid_input"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is the outcome of a device write. Detail is set for InvalidInput.
type Result struct {
	Outcome Outcome
	Detail  string
}

// PowerLimits are the values handed to the device's limit-setting operation.
type PowerLimits struct {
	MaxCharge      float64
	MaxDischarge   float64
	DischargeStart float64
}

// LimitsOverride carries the limits a caller wants to change. Nil fields keep
// the device's current value.
type LimitsOverride struct {
	MaxCharge      *float64
	MaxDischarge   *float64
	DischargeStart *float64
}

// Apply overlays o onto base.
func (o LimitsOverride) Apply(base PowerLimits) PowerLimits {
	if o.MaxCharge != nil {
		base.MaxCharge = *o.MaxCharge
	}
	if o.MaxDischarge != nil {
		base.MaxDischarge = *o.MaxDischarge
	}
	if o.DischargeStart != nil {
		base.DischargeStart = *o.DischargeStart
	}
	return base
}

// Session funnels every call to the collaborator through a single mutex so
// that at most one device operation is in flight. All calls request
// keep-alive.
type Session struct {
	mu      sync.Mutex
	client  Client
	metrics *metrics.AppMetrics
}

// NewSession wraps client. m may be nil.
func NewSession(client Client, m *metrics.AppMetrics) *Session {
	return &Session{client: client, metrics: m}
}

func (s *Session) do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	// Device calls run to completion even if the HTTP client goes away.
	ctx = context.WithoutCancel(ctx)
	started := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	err := fn(ctx)
	s.metrics.ObserveDeviceCall(operation, started, err)
	if err != nil {
		logrus.WithError(err).WithField("operation", operation).Warn("Device call failed")
	} else {
		logrus.WithFields(logrus.Fields{
			"operation": operation,
			"duration":  time.Since(started),
		}).Debug("Device call completed")
	}
	return err
}

// Read performs the single device read behind r.
func (s *Session) Read(ctx context.Context, r Resource) (Snapshot, error) {
	read, ok := readers[r]
	if !ok {
		return nil, fmt.Errorf("unknown resource %q", r)
	}

	var snap Snapshot
	err := s.do(ctx, string(r), func(ctx context.Context) error {
		var err error
		snap, err = read(s.client, ctx, true)
		return err
	})
	return snap, err
}

// ApplyPowerLimits fetches the current power settings, overlays o and writes
// the merged limits back. Both steps run while holding the session, so no
// other write can slip in between.
func (s *Session) ApplyPowerLimits(ctx context.Context, enable bool, o LimitsOverride) (PowerLimits, Result, error) {
	var (
		limits PowerLimits
		status int
	)
	err := s.do(ctx, "set_power_limits", func(ctx context.Context) error {
		current, err := s.client.GetPowerSettings(ctx, true)
		if err != nil {
			return fmt.Errorf("reading power settings: %w", err)
		}
		base, err := LimitsFromSettings(current)
		if err != nil {
			return err
		}
		limits = o.Apply(base)
		status, err = s.client.SetPowerLimits(ctx, enable, limits.MaxCharge, limits.MaxDischarge, limits.DischargeStart, true)
		return err
	})
	if err != nil {
		return limits, Result{}, err
	}
	return limits, statusResult(status), nil
}

// SetPowerSave toggles the device's power-save mode.
func (s *Session) SetPowerSave(ctx context.Context, enable bool) (Result, error) {
	var status int
	err := s.do(ctx, "set_powersave", func(ctx context.Context) error {
		var err error
		status, err = s.client.SetPowerSave(ctx, enable, true)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	return statusResult(status), nil
}

// SetWeatherRegulatedCharge toggles weather-regulated charging.
func (s *Session) SetWeatherRegulatedCharge(ctx context.Context, enable bool) (Result, error) {
	var status int
	err := s.do(ctx, "set_weather_regulated_charge", func(ctx context.Context) error {
		var err error
		status, err = s.client.SetWeatherRegulatedCharge(ctx, enable, true)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	return statusResult(status), nil
}

// SetIdlePeriods forwards periods to the device unchanged. A schedule the
// device raises on comes back as InvalidInput rather than an error.
func (s *Session) SetIdlePeriods(ctx context.Context, periods json.RawMessage) (Result, error) {
	var ok bool
	err := s.do(ctx, "set_idle_periods", func(ctx context.Context) error {
		var err error
		ok, err = s.client.SetIdlePeriods(ctx, periods, true)
		return err
	})

	var remote *RemoteError
	switch {
	case errors.As(err, &remote):
		return Result{Outcome: InvalidInput, Detail: remote.Message}, nil
	case err != nil:
		return Result{}, err
	case !ok:
		return Result{Outcome: Rejected}, nil
	default:
		return Result{Outcome: Success}, nil
	}
}

// DBData reads aggregated history starting at startDate.
func (s *Session) DBData(ctx context.Context, startDate time.Time, timespan Timespan) (Snapshot, error) {
	var snap Snapshot
	err := s.do(ctx, "db_data", func(ctx context.Context) error {
		var err error
		snap, err = s.client.GetDBData(ctx, startDate, timespan, true)
		return err
	})
	return snap, err
}

func statusResult(status int) Result {
	if status == FailureSentinel {
		return Result{Outcome: Rejected}
	}
	return Result{Outcome: Success}
}
