package e3dc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// FailureSentinel is the status a device write operation returns when the
// storage system refused the change.
const FailureSentinel = -1

// Timespan selects the aggregation window of a historical database query.
type Timespan string

const (
	TimespanDay   Timespan = "DAY"
	TimespanMonth Timespan = "MONTH"
	TimespanYear  Timespan = "YEAR"
)

// Snapshot is an opaque payload reported by the device. It is a mix of
// maps, slices and scalars and may contain time.Time leaves.
type Snapshot = any

// Client is the contract of the device-communication collaborator. It owns the
// RSCP session to the storage system; keepAlive asks it to retain that session
// after the call instead of reconnecting.
type Client interface {
	Poll(ctx context.Context, keepAlive bool) (Snapshot, error)
	GetSystemInfo(ctx context.Context, keepAlive bool) (Snapshot, error)
	GetSystemStatus(ctx context.Context, keepAlive bool) (Snapshot, error)

	GetBatteries(ctx context.Context, keepAlive bool) (Snapshot, error)
	GetBatteryData(ctx context.Context, keepAlive bool) (Snapshot, error)
	GetBatteriesData(ctx context.Context, keepAlive bool) (Snapshot, error)

	GetPVIs(ctx context.Context, keepAlive bool) (Snapshot, error)
	GetPVIData(ctx context.Context, keepAlive bool) (Snapshot, error)
	GetPVIsData(ctx context.Context, keepAlive bool) (Snapshot, error)

	GetPowerMeters(ctx context.Context, keepAlive bool) (Snapshot, error)
	GetPowerMeterData(ctx context.Context, keepAlive bool) (Snapshot, error)
	GetPowerMetersData(ctx context.Context, keepAlive bool) (Snapshot, error)

	GetPowerSettings(ctx context.Context, keepAlive bool) (Snapshot, error)
	SetPowerLimits(ctx context.Context, enable bool, maxCharge, maxDischarge, dischargeStart float64, keepAlive bool) (int, error)
	SetPowerSave(ctx context.Context, enable bool, keepAlive bool) (int, error)
	SetWeatherRegulatedCharge(ctx context.Context, enable bool, keepAlive bool) (int, error)

	GetIdlePeriods(ctx context.Context, keepAlive bool) (Snapshot, error)
	// SetIdlePeriods returns a *RemoteError when the device side rejects the
	// schedule as malformed.
	SetIdlePeriods(ctx context.Context, periods json.RawMessage, keepAlive bool) (bool, error)

	GetDBData(ctx context.Context, startDate time.Time, timespan Timespan, keepAlive bool) (Snapshot, error)
}

// RemoteError is an exception raised on the device side of the collaborator.
type RemoteError struct {
	Method  string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Method, e.Message)
}
