package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balu-dk/e3dc-gateway/internal/e3dc"
)

type recordedCall struct {
	Method string
	Body   callRequest
}

// fakeBridge answers /connect and /call/{method} from a table of canned
// responses.
type fakeBridge struct {
	mu        sync.Mutex
	connected connectRequest
	calls     []recordedCall
	answers   map[string]string
}

func (b *fakeBridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.URL.Path == "/connect" {
		b.mu.Lock()
		defer b.mu.Unlock()
		if err := json.NewDecoder(r.Body).Decode(&b.connected); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if b.connected.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"exception":"authentication failed"}`))
			return
		}
		_, _ = w.Write([]byte(`{"result":true}`))
		return
	}

	method := strings.TrimPrefix(r.URL.Path, "/call/")
	var body callRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	b.calls = append(b.calls, recordedCall{Method: method, Body: body})
	answer, ok := b.answers[method]
	b.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"exception":"unknown method"}`))
		return
	}
	if strings.Contains(answer, `"exception"`) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}
	_, _ = w.Write([]byte(answer))
}

func (b *fakeBridge) recorded() []recordedCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]recordedCall(nil), b.calls...)
}

func (b *fakeBridge) connectBody() connectRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func newTestClient(t *testing.T, answers map[string]string) (*Client, *fakeBridge) {
	t.Helper()
	fb := &fakeBridge{answers: answers}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Config{
		BaseURL:      srv.URL,
		IPAddress:    "192.168.1.50",
		Username:     "installer",
		Password:     "secret",
		Key:          "rscp-key",
		DeviceConfig: json.RawMessage(`{"powermeters":[{"index":6}]}`),
		Timeout:      2 * time.Second,
	})
	require.NoError(t, err)
	return c, fb
}

func TestNewSendsCredentials(t *testing.T) {
	_, fb := newTestClient(t, nil)
	req := fb.connectBody()

	assert.Equal(t, "192.168.1.50", req.IPAddress)
	assert.Equal(t, "installer", req.Username)
	assert.Equal(t, "rscp-key", req.Key)
	assert.JSONEq(t, `{"powermeters":[{"index":6}]}`, string(req.Config))
}

func TestNewRejected(t *testing.T) {
	srv := httptest.NewServer(&fakeBridge{})
	defer srv.Close()

	_, err := New(context.Background(), Config{BaseURL: srv.URL, Password: "wrong"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
}

func TestReadDecodesNumbersExactly(t *testing.T) {
	c, fb := newTestClient(t, map[string]string{
		"poll": `{"result":{"production":{"solar":4711,"add":0},"time":"2024-05-01T12:00:00"}}`,
	})

	snap, err := c.Poll(context.Background(), true)
	require.NoError(t, err)

	m, ok := snap.(map[string]any)
	require.True(t, ok)
	prod := m["production"].(map[string]any)
	assert.Equal(t, json.Number("4711"), prod["solar"])

	calls := fb.recorded()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Body.KeepAlive)
}

func TestSetPowerLimitsArgs(t *testing.T) {
	c, fb := newTestClient(t, map[string]string{
		"set_power_limits": `{"result":-1}`,
	})

	status, err := c.SetPowerLimits(context.Background(), true, 200, 100, 50, true)
	require.NoError(t, err)
	assert.Equal(t, e3dc.FailureSentinel, status)

	args := fb.recorded()[0].Body.Args
	assert.Equal(t, true, args["enable"])
	assert.EqualValues(t, 200, args["max_charge"])
	assert.EqualValues(t, 100, args["max_discharge"])
	assert.EqualValues(t, 50, args["discharge_start"])
}

func TestSetIdlePeriodsException(t *testing.T) {
	c, fb := newTestClient(t, map[string]string{
		"set_idle_periods": `{"exception":"idleCharge: day out of range"}`,
	})

	_, err := c.SetIdlePeriods(context.Background(), json.RawMessage(`{"idleCharge":[{"day":9}]}`), true)

	var remote *e3dc.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, "idleCharge: day out of range", remote.Message)

	raw, err := json.Marshal(fb.recorded()[0].Body.Args["idlePeriods"])
	require.NoError(t, err)
	assert.JSONEq(t, `{"idleCharge":[{"day":9}]}`, string(raw))
}

func TestSetIdlePeriodsResult(t *testing.T) {
	c, _ := newTestClient(t, map[string]string{"set_idle_periods": `{"result":false}`})

	ok, err := c.SetIdlePeriods(context.Background(), json.RawMessage(`{}`), true)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetDBDataArgs(t *testing.T) {
	c, fb := newTestClient(t, map[string]string{"get_db_data": `{"result":{"bat_power_in":12.5}}`})

	_, err := c.GetDBData(context.Background(), time.Date(2024, 2, 29, 0, 0, 0, 0, time.Local), e3dc.TimespanYear, true)
	require.NoError(t, err)

	args := fb.recorded()[0].Body.Args
	assert.Equal(t, "2024-02-29", args["startDate"])
	assert.Equal(t, "YEAR", args["timespan"])
}

func TestUnexpectedStatus(t *testing.T) {
	c, _ := newTestClient(t, map[string]string{"set_powersave": `{"result":"yes"}`})

	_, err := c.SetPowerSave(context.Background(), true, true)
	require.Error(t, err)
}
