// Package bridge implements e3dc.Client on top of an RSCP bridge process
// reachable over HTTP. The bridge owns the encrypted RSCP session with the
// storage system; this client authenticates it once and then relays calls.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/balu-dk/e3dc-gateway/internal/e3dc"
)

// Config holds what the bridge needs to open the RSCP session.
type Config struct {
	BaseURL   string
	IPAddress string
	Username  string
	Password  string
	Key       string
	// DeviceConfig is the optional free-form configuration blob passed through
	// to the bridge.
	DeviceConfig json.RawMessage
	Timeout      time.Duration
}

// Client relays e3dc.Client calls to the bridge.
type Client struct {
	http *resty.Client
}

type connectRequest struct {
	IPAddress string          `json:"ipAddress"`
	Username  string          `json:"username"`
	Password  string          `json:"password"`
	Key       string          `json:"key"`
	Config    json.RawMessage `json:"config,omitempty"`
}

type callRequest struct {
	KeepAlive bool           `json:"keepAlive"`
	Args      map[string]any `json:"args,omitempty"`
}

type callResponse struct {
	Result    any     `json:"result"`
	Exception *string `json:"exception"`
}

// New connects to the bridge and asks it to open the device session.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	c := &Client{http: httpClient}

	resp, err := httpClient.R().
		SetContext(ctx).
		SetBody(connectRequest{
			IPAddress: cfg.IPAddress,
			Username:  cfg.Username,
			Password:  cfg.Password,
			Key:       cfg.Key,
			Config:    cfg.DeviceConfig,
		}).
		Post("/connect")
	if err != nil {
		return nil, fmt.Errorf("failed to reach RSCP bridge: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("RSCP bridge refused connection: %s: %s", resp.Status(), bytes.TrimSpace(resp.Body()))
	}

	logrus.WithFields(logrus.Fields{
		"bridge":    cfg.BaseURL,
		"ipAddress": cfg.IPAddress,
	}).Info("Connected to E3/DC device through RSCP bridge")

	return c, nil
}

// call invokes method on the bridge. A device-side exception is returned as
// *e3dc.RemoteError.
func (c *Client) call(ctx context.Context, method string, keepAlive bool, args map[string]any) (any, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(callRequest{KeepAlive: keepAlive, Args: args}).
		SetPathParam("method", method).
		Post("/call/{method}")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}

	var out callResponse
	dec := json.NewDecoder(bytes.NewReader(resp.Body()))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("%s: bridge answered %s with undecodable body: %w", method, resp.Status(), err)
	}

	if out.Exception != nil {
		return nil, &e3dc.RemoteError{Method: method, Message: *out.Exception}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%s: bridge answered %s", method, resp.Status())
	}
	return out.Result, nil
}

func (c *Client) status(ctx context.Context, method string, keepAlive bool, args map[string]any) (int, error) {
	res, err := c.call(ctx, method, keepAlive, args)
	if err != nil {
		return 0, err
	}
	switch v := res.(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%s: non-integer status %q", method, v)
		}
		return int(n), nil
	case bool:
		if v {
			return 1, nil
		}
		return e3dc.FailureSentinel, nil
	default:
		return 0, fmt.Errorf("%s: unexpected status type %T", method, res)
	}
}

func (c *Client) Poll(ctx context.Context, keepAlive bool) (e3dc.Snapshot, error) {
	return c.call(ctx, "poll", keepAlive, nil)
}

func (c *Client) GetSystemInfo(ctx context.Context, keepAlive bool) (e3dc.Snapshot, error) {
	return c.call(ctx, "get_system_info", keepAlive, nil)
}

func (c *Client) GetSystemStatus(ctx context.Context, keepAlive bool) (e3dc.Snapshot, error) {
	return c.call(ctx, "get_system_status", keepAlive, nil)
}

func (c *Client) GetBatteries(ctx context.Context, keepAlive bool) (e3dc.Snapshot, error) {
	return c.call(ctx, "get_batteries", keepAlive, nil)
}

func (c *Client) GetBatteryData(ctx context.Context, keepAlive bool) (e3dc.Snapshot, error) {
	return c.call(ctx, "get_battery_data", keepAlive, nil)
}

func (c *Client) GetBatteriesData(ctx context.Context, keepAlive bool) (e3dc.Snapshot, error) {
	return c.call(ctx, "get_batteries_data", keepAlive, nil)
}

func (c *Client) GetPVIs(ctx context.Context, keepAlive bool) (e3dc.Snapshot, error) {
	return c.call(ctx, "get_pvis", keepAlive, nil)
}

func (c *Client) GetPVIData(ctx context.Context, keepAlive bool) (e3dc.Snapshot, error) {
	return c.call(ctx, "get_pvi_data", keepAlive, nil)
}

func (c *Client) GetPVIsData(ctx context.Context, keepAlive bool) (e3dc.Snapshot, error) {
	return c.call(ctx, "get_pvis_data", keepAlive, nil)
}

func (c *Client) GetPowerMeters(ctx context.Context, keepAlive bool) (e3dc.Snapshot, error) {
	return c.call(ctx, "get_powermeters", keepAlive, nil)
}

func (c *Client) GetPowerMeterData(ctx context.Context, keepAlive bool) (e3dc.Snapshot, error) {
	return c.call(ctx, "get_powermeter_data", keepAlive, nil)
}

func (c *Client) GetPowerMetersData(ctx context.Context, keepAlive bool) (e3dc.Snapshot, error) {
	return c.call(ctx, "get_powermeters_data", keepAlive, nil)
}

func (c *Client) GetPowerSettings(ctx context.Context, keepAlive bool) (e3dc.Snapshot, error) {
	return c.call(ctx, "get_power_settings", keepAlive, nil)
}

func (c *Client) SetPowerLimits(ctx context.Context, enable bool, maxCharge, maxDischarge, dischargeStart float64, keepAlive bool) (int, error) {
	return c.status(ctx, "set_power_limits", keepAlive, map[string]any{
		"enable":          enable,
		"max_charge":      maxCharge,
		"max_discharge":   maxDischarge,
		"discharge_start": dischargeStart,
	})
}

func (c *Client) SetPowerSave(ctx context.Context, enable bool, keepAlive bool) (int, error) {
	return c.status(ctx, "set_powersave", keepAlive, map[string]any{"enable": enable})
}

func (c *Client) SetWeatherRegulatedCharge(ctx context.Context, enable bool, keepAlive bool) (int, error) {
	return c.status(ctx, "set_weather_regulated_charge", keepAlive, map[string]any{"enable": enable})
}

func (c *Client) GetIdlePeriods(ctx context.Context, keepAlive bool) (e3dc.Snapshot, error) {
	return c.call(ctx, "get_idle_periods", keepAlive, nil)
}

func (c *Client) SetIdlePeriods(ctx context.Context, periods json.RawMessage, keepAlive bool) (bool, error) {
	res, err := c.call(ctx, "set_idle_periods", keepAlive, map[string]any{"idlePeriods": periods})
	if err != nil {
		return false, err
	}
	ok, isBool := res.(bool)
	if !isBool {
		return false, fmt.Errorf("set_idle_periods: unexpected result type %T", res)
	}
	return ok, nil
}

func (c *Client) GetDBData(ctx context.Context, startDate time.Time, timespan e3dc.Timespan, keepAlive bool) (e3dc.Snapshot, error) {
	return c.call(ctx, "get_db_data", keepAlive, map[string]any{
		"startDate": startDate.Format(time.DateOnly),
		"timespan":  string(timespan),
	})
}

var _ e3dc.Client = (*Client)(nil)
