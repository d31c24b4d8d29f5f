package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"axiapac.com/punchsync/collector"
	"axiapac.com/punchsync/config"
	"axiapac.com/punchsync/core"
	"axiapac.com/punchsync/model"
	"axiapac.com/punchsync/utils"
)

type collectorStub struct {
	mu             sync.Mutex
	attendanceCode int
	devices        string
	deliveries     []model.Delivery
	logs           []model.LogEntry
}

func (s *collectorStub) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(collector.DevicesPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, s.devices)
	})
	mux.HandleFunc(collector.AttendancePath, func(w http.ResponseWriter, r *http.Request) {
		var d model.Delivery
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&d))
		s.mu.Lock()
		s.deliveries = append(s.deliveries, d)
		s.mu.Unlock()
		w.WriteHeader(s.attendanceCode)
		io.WriteString(w, `{"status":"ok"}`)
	})
	mux.HandleFunc(collector.LogsPath, func(w http.ResponseWriter, r *http.Request) {
		var e model.LogEntry
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&e))
		s.mu.Lock()
		s.logs = append(s.logs, e)
		s.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})
	return mux
}

type fixture struct {
	dir       string
	watermark string
	stub      *collectorStub
	cfg       *config.Config
}

func newFixture(t *testing.T, attendanceCode int, withDevices bool) *fixture {
	t.Helper()
	dir := t.TempDir()
	stub := &collectorStub{attendanceCode: attendanceCode, devices: `[]`}
	srv := httptest.NewServer(stub.handler(t))
	t.Cleanup(srv.Close)

	yaml := fmt.Sprintf(`
collector:
  base_url: %s
terminal:
  source: %s
watermark:
  file: %s
snapshot:
  file: %s
log:
  level: debug
  file: %s
`, srv.URL, dir, filepath.Join(dir, "last_sync.json"), filepath.Join(dir, "attendance_records.json"), filepath.Join(dir, "attendance_logs.log"))
	if withDevices {
		yaml += `
devices:
  - device_ip: 10.0.0.5
    organization_id: "42"
`
	}
	cfg, err := config.Parse([]byte(yaml))
	require.NoError(t, err)

	return &fixture{dir: dir, watermark: filepath.Join(dir, "last_sync.json"), stub: stub, cfg: cfg}
}

func (f *fixture) writeExports(t *testing.T, ip string, punches ...time.Time) {
	t.Helper()
	var b strings.Builder
	b.WriteString("user_id,timestamp,status\n")
	for _, p := range punches {
		fmt.Fprintf(&b, "7,%s,0\n", p.Format("2006-01-02 15:04:05"))
	}
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, ip+".attlog.csv"), []byte(b.String()), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, ip+".users.csv"), []byte("user_id,name\n7,Sita Rai\n"), 0o644))
}

func (f *fixture) writeWatermark(t *testing.T, wm time.Time) []byte {
	t.Helper()
	b, err := json.Marshal(model.Watermark{LastSyncDate: wm.Format(utils.ISOLayout)})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.watermark, b, 0o644))
	return b
}

func punchesBeforeNow(zone *time.Location) (time.Time, time.Time, time.Time) {
	now := time.Now().In(zone)
	wm := utils.StartOfDay(now.AddDate(0, 0, -1), zone)
	return wm, now.Add(-2 * time.Hour), now.Add(-time.Hour)
}

func TestSweepDeliversAndAdvancesWatermark(t *testing.T) {
	f := newFixture(t, http.StatusOK, true)
	zone := f.cfg.Zone()
	wm, in, out := punchesBeforeNow(zone)
	f.writeWatermark(t, wm)
	f.writeExports(t, "10.0.0.5", in, out)

	a, err := New(context.Background(), f.cfg, io.Discard)
	require.NoError(t, err)
	defer a.Close()

	summary := a.Scheduler.Sweep(context.Background())
	require.Len(t, summary.Results, 1)
	result := summary.Results[0]
	require.Equal(t, core.Succeeded, result.State, "error: %v", result.Err)
	assert.Equal(t, 2, result.Delivered)
	assert.True(t, result.WatermarkAdvanced)
	assert.True(t, result.LogShipped)

	require.Len(t, f.stub.deliveries, 1)
	delivery := f.stub.deliveries[0]
	assert.Equal(t, "42", delivery.OrganizationID)
	require.Len(t, delivery.Data, 1)
	assert.Equal(t, 2, delivery.Data[0].Count())
	for _, persons := range delivery.Data[0] {
		for _, records := range persons {
			for _, r := range records {
				assert.Equal(t, "Sita Rai", r.PersonName)
				assert.True(t, strings.HasSuffix(r.Time, "+05:45"), r.Time)
			}
		}
	}

	got, err := a.Watermark.Read(context.Background())
	require.NoError(t, err)
	assert.True(t, utils.StartOfDay(time.Now(), zone).Equal(got))

	require.Len(t, f.stub.logs, 1)
	assert.Equal(t, "10.0.0.5", f.stub.logs[0].DeviceIP)
	assert.Contains(t, f.stub.logs[0].LogText, "starting device cycle")
	text, err := a.RunLog.Text()
	require.NoError(t, err)
	assert.NotContains(t, text, "starting device cycle")

	_, err = os.Stat(filepath.Join(f.dir, "attendance_records.json"))
	assert.NoError(t, err)
	snap, ok := a.Snapshots.Latest()
	require.True(t, ok)
	assert.Equal(t, "10.0.0.5", snap.DeviceIP)
}

func TestDeliveryFailureLeavesWatermarkUntouched(t *testing.T) {
	f := newFixture(t, http.StatusInternalServerError, true)
	wm, in, out := punchesBeforeNow(f.cfg.Zone())
	before := f.writeWatermark(t, wm)
	f.writeExports(t, "10.0.0.5", in, out)

	a, err := New(context.Background(), f.cfg, io.Discard)
	require.NoError(t, err)
	defer a.Close()

	summary := a.Scheduler.Sweep(context.Background())
	require.Len(t, summary.Results, 1)
	result := summary.Results[0]
	assert.Equal(t, core.Failed, result.State)
	assert.ErrorIs(t, result.Err, core.ErrDelivery)
	assert.False(t, result.WatermarkAdvanced)
	assert.False(t, summary.Aborted)

	after, err := os.ReadFile(f.watermark)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// the run log is still shipped for a failed cycle
	require.Len(t, f.stub.logs, 1)
	assert.Contains(t, f.stub.logs[0].LogText, "device cycle failed")
}

func TestUnreachableDeviceDoesNotStopSweep(t *testing.T) {
	f := newFixture(t, http.StatusOK, true)
	f.cfg.Devices = append([]model.DeviceDescriptor{{IP: "10.0.0.9", Port: model.DefaultPort, OrganizationID: "42"}}, f.cfg.Devices...)
	wm, in, out := punchesBeforeNow(f.cfg.Zone())
	f.writeWatermark(t, wm)
	f.writeExports(t, "10.0.0.5", in, out)

	a, err := New(context.Background(), f.cfg, io.Discard)
	require.NoError(t, err)
	defer a.Close()

	summary := a.Scheduler.Sweep(context.Background())
	require.Len(t, summary.Results, 2)
	assert.ErrorIs(t, summary.Results[0].Err, core.ErrConnectivity)
	assert.Equal(t, core.Succeeded, summary.Results[1].State)
	assert.Len(t, f.stub.deliveries, 1)
}

func TestMissingWatermarkAbortsSweep(t *testing.T) {
	f := newFixture(t, http.StatusOK, true)
	_, in, out := punchesBeforeNow(f.cfg.Zone())
	f.writeExports(t, "10.0.0.5", in, out)

	a, err := New(context.Background(), f.cfg, io.Discard)
	require.NoError(t, err)
	defer a.Close()

	summary := a.Scheduler.Sweep(context.Background())
	require.Len(t, summary.Results, 1)
	assert.ErrorIs(t, summary.Results[0].Err, core.ErrConfig)
	assert.True(t, summary.Aborted)
	assert.Empty(t, f.stub.deliveries)

	require.NoError(t, a.SeedWatermark(context.Background()))
	got, err := a.Watermark.Read(context.Background())
	require.NoError(t, err)
	assert.True(t, utils.StartOfDay(time.Now(), f.cfg.Zone()).Equal(got))
}

func TestEmptyRegistryIsConfigError(t *testing.T) {
	f := newFixture(t, http.StatusOK, false)

	_, err := New(context.Background(), f.cfg, io.Discard)
	assert.ErrorIs(t, err, core.ErrConfig)
}

func TestRegistryDevicesAreUsed(t *testing.T) {
	f := newFixture(t, http.StatusOK, false)
	f.stub.devices = `{"data":[{"device_ip":"10.0.0.5","port":"4370","organization":{"id":42}}]}`

	a, err := New(context.Background(), f.cfg, io.Discard)
	require.NoError(t, err)
	defer a.Close()

	require.Len(t, a.Devices, 1)
	assert.Equal(t, "10.0.0.5", a.Devices[0].IP)
	assert.Equal(t, "42", a.Devices[0].OrganizationID)
	assert.Equal(t, model.DefaultUsername, a.Devices[0].Username)
}
