// Package e3dctest provides an in-memory e3dc.Client for tests.
package e3dctest

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/balu-dk/e3dc-gateway/internal/e3dc"
)

// Call is one recorded invocation of the fake.
type Call struct {
	Method    string
	Args      []any
	KeepAlive bool
}

// Fake records every call and answers from its fields. The zero value answers
// reads with {"source": <method>} and accepts every write.
type Fake struct {
	// Snapshots overrides the answer of a read, keyed by method name.
	Snapshots map[string]e3dc.Snapshot
	// PowerSettings answers GetPowerSettings when set.
	PowerSettings e3dc.Snapshot
	ReadErr       error

	LimitsStatus    int
	PowerSaveStatus int
	WeatherStatus   int
	WriteErr        error

	IdleRejected bool
	IdleErr      error

	// Delay is slept inside every call, to widen race windows in tests.
	Delay time.Duration

	mu          sync.Mutex
	calls       []Call
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

// Calls returns a copy of the recorded calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsTo returns the recorded calls to method.
func (f *Fake) CallsTo(method string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// MaxInFlight is the highest number of concurrent calls observed.
func (f *Fake) MaxInFlight() int {
	return int(f.maxInFlight.Load())
}

func (f *Fake) enter(method string, keepAlive bool, args ...any) func() {
	n := f.inFlight.Add(1)
	for {
		cur := f.maxInFlight.Load()
		if n <= cur || f.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, Call{Method: method, Args: args, KeepAlive: keepAlive})
	f.mu.Unlock()

	if f.Delay > 0 {
		time.Sleep(f.Delay)
	}
	return func() { f.inFlight.Add(-1) }
}

func (f *Fake) read(method string, keepAlive bool) (e3dc.Snapshot, error) {
	defer f.enter(method, keepAlive)()
	if f.ReadErr != nil {
		return nil, f.ReadErr
	}
	if snap, ok := f.Snapshots[method]; ok {
		return snap, nil
	}
	return map[string]any{"source": method}, nil
}

func (f *Fake) Poll(_ context.Context, keepAlive bool) (e3dc.Snapshot, error) {
	return f.read("poll", keepAlive)
}

func (f *Fake) GetSystemInfo(_ context.Context, keepAlive bool) (e3dc.Snapshot, error) {
	return f.read("get_system_info", keepAlive)
}

func (f *Fake) GetSystemStatus(_ context.Context, keepAlive bool) (e3dc.Snapshot, error) {
	return f.read("get_system_status", keepAlive)
}

func (f *Fake) GetBatteries(_ context.Context, keepAlive bool) (e3dc.Snapshot, error) {
	return f.read("get_batteries", keepAlive)
}

func (f *Fake) GetBatteryData(_ context.Context, keepAlive bool) (e3dc.Snapshot, error) {
	return f.read("get_battery_data", keepAlive)
}

func (f *Fake) GetBatteriesData(_ context.Context, keepAlive bool) (e3dc.Snapshot, error) {
	return f.read("get_batteries_data", keepAlive)
}

func (f *Fake) GetPVIs(_ context.Context, keepAlive bool) (e3dc.Snapshot, error) {
	return f.read("get_pvis", keepAlive)
}

func (f *Fake) GetPVIData(_ context.Context, keepAlive bool) (e3dc.Snapshot, error) {
	return f.read("get_pvi_data", keepAlive)
}

func (f *Fake) GetPVIsData(_ context.Context, keepAlive bool) (e3dc.Snapshot, error) {
	return f.read("get_pvis_data", keepAlive)
}

func (f *Fake) GetPowerMeters(_ context.Context, keepAlive bool) (e3dc.Snapshot, error) {
	return f.read("get_powermeters", keepAlive)
}

func (f *Fake) GetPowerMeterData(_ context.Context, keepAlive bool) (e3dc.Snapshot, error) {
	return f.read("get_powermeter_data", keepAlive)
}

func (f *Fake) GetPowerMetersData(_ context.Context, keepAlive bool) (e3dc.Snapshot, error) {
	return f.read("get_powermeters_data", keepAlive)
}

func (f *Fake) GetPowerSettings(_ context.Context, keepAlive bool) (e3dc.Snapshot, error) {
	defer f.enter("get_power_settings", keepAlive)()
	if f.ReadErr != nil {
		return nil, f.ReadErr
	}
	if f.PowerSettings != nil {
		return f.PowerSettings, nil
	}
	return map[string]any{
		e3dc.KeyMaxChargePower:          float64(3000),
		e3dc.KeyMaxDischargePower:       float64(3000),
		e3dc.KeyDischargeStartPower:     float64(65),
		"powerLimitsUsed":               false,
		"powerSaveEnabled":              false,
		"weatherRegulatedChargeEnabled": false,
	}, nil
}

func (f *Fake) SetPowerLimits(_ context.Context, enable bool, maxCharge, maxDischarge, dischargeStart float64, keepAlive bool) (int, error) {
	defer f.enter("set_power_limits", keepAlive, enable, maxCharge, maxDischarge, dischargeStart)()
	return f.LimitsStatus, f.WriteErr
}

func (f *Fake) SetPowerSave(_ context.Context, enable bool, keepAlive bool) (int, error) {
	defer f.enter("set_powersave", keepAlive, enable)()
	return f.PowerSaveStatus, f.WriteErr
}

func (f *Fake) SetWeatherRegulatedCharge(_ context.Context, enable bool, keepAlive bool) (int, error) {
	defer f.enter("set_weather_regulated_charge", keepAlive, enable)()
	return f.WeatherStatus, f.WriteErr
}

func (f *Fake) GetIdlePeriods(_ context.Context, keepAlive bool) (e3dc.Snapshot, error) {
	return f.read("get_idle_periods", keepAlive)
}

func (f *Fake) SetIdlePeriods(_ context.Context, periods json.RawMessage, keepAlive bool) (bool, error) {
	defer f.enter("set_idle_periods", keepAlive, string(periods))()
	if f.IdleErr != nil {
		return false, f.IdleErr
	}
	return !f.IdleRejected, nil
}

func (f *Fake) GetDBData(_ context.Context, startDate time.Time, timespan e3dc.Timespan, keepAlive bool) (e3dc.Snapshot, error) {
	defer f.enter("get_db_data", keepAlive, startDate, timespan)()
	if f.ReadErr != nil {
		return nil, f.ReadErr
	}
	return map[string]any{
		"startDate": startDate,
		"timespan":  string(timespan),
	}, nil
}

var _ e3dc.Client = (*Fake)(nil)
