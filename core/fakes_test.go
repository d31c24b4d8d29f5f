package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"axiapac.com/punchsync/model"
	"axiapac.com/punchsync/terminal"
)

var testZone = time.FixedZone("+05:45", 5*3600+45*60)

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02T15:04:05-07:00", s)
	if err != nil {
		panic(err)
	}
	return t
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	waited []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After fires immediately and moves the clock forward.
func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.waited = append(c.waited, d)
	now := c.now
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

type fakeDevice struct {
	events    []model.PunchEvent
	persons   []model.Person
	dialErr   error
	eventsErr error
	panicOn   string

	disabled bool
	enabled  int
	closed   int
}

type fakeDialer struct {
	mu      sync.Mutex
	devices map[string]*fakeDevice
	dialed  []terminal.Options
}

func (d *fakeDialer) Dial(ctx context.Context, opts terminal.Options) (terminal.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialed = append(d.dialed, opts)
	dev, ok := d.devices[opts.IP]
	if !ok {
		return nil, fmt.Errorf("no route to %s", opts.IP)
	}
	if dev.panicOn == "dial" {
		panic("terminal driver crashed")
	}
	if dev.dialErr != nil {
		return nil, dev.dialErr
	}
	return &fakeSession{dev: dev}, nil
}

type fakeSession struct {
	dev *fakeDevice
}

func (s *fakeSession) DisableIntake(ctx context.Context) error {
	s.dev.disabled = true
	return nil
}

func (s *fakeSession) EnableIntake(ctx context.Context) error {
	s.dev.disabled = false
	s.dev.enabled++
	return nil
}

func (s *fakeSession) Events(ctx context.Context) ([]model.PunchEvent, error) {
	if s.dev.panicOn == "events" {
		panic("corrupt attendance table")
	}
	return s.dev.events, s.dev.eventsErr
}

func (s *fakeSession) Persons(ctx context.Context) ([]model.Person, error) {
	return s.dev.persons, nil
}

func (s *fakeSession) Close() error {
	s.dev.closed++
	return nil
}

type memWatermark struct {
	mu      sync.Mutex
	value   time.Time
	missing bool
	readErr error
	commits []time.Time
}

func (m *memWatermark) Read(ctx context.Context) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.missing {
		return time.Time{}, fmt.Errorf("%w: last_sync.json not found", ErrConfig)
	}
	if m.readErr != nil {
		return time.Time{}, m.readErr
	}
	return m.value, nil
}

func (m *memWatermark) Commit(ctx context.Context, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = t
	m.commits = append(m.commits, t)
	return nil
}

type delivery struct {
	org     string
	payload model.SyncPayload
}

type fakeCollector struct {
	mu         sync.Mutex
	deliveries []delivery
	logs       map[string][]string
	failFor    map[string]bool
	failLogs   bool
}

func (f *fakeCollector) Deliver(ctx context.Context, org string, payload model.SyncPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[org] {
		return fmt.Errorf("%w: collector returned 500", ErrDelivery)
	}
	f.deliveries = append(f.deliveries, delivery{org: org, payload: payload})
	return nil
}

func (f *fakeCollector) ShipLog(ctx context.Context, ip, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLogs {
		return errors.New("log collector down")
	}
	if f.logs == nil {
		f.logs = map[string][]string{}
	}
	f.logs[ip] = append(f.logs[ip], text)
	return nil
}

// memRunLog is the run log as an in-memory buffer; it is also the log sink.
type memRunLog struct {
	mu        sync.Mutex
	b         strings.Builder
	truncated int
}

func (l *memRunLog) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func (l *memRunLog) Text() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.String(), nil
}

func (l *memRunLog) Truncate() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.b.Reset()
	l.truncated++
	return nil
}

type memSnapshots struct {
	saved map[string]model.SyncPayload
}

func (m *memSnapshots) Save(ctx context.Context, ip string, payload model.SyncPayload) error {
	if m.saved == nil {
		m.saved = map[string]model.SyncPayload{}
	}
	m.saved[ip] = payload
	return nil
}

type recordingNotifier struct {
	infos, errs []string
}

func (n *recordingNotifier) Info(msg string) error {
	n.infos = append(n.infos, msg)
	return nil
}

func (n *recordingNotifier) Error(msg string) error {
	n.errs = append(n.errs, msg)
	return nil
}

type harness struct {
	clock     *fakeClock
	dialer    *fakeDialer
	watermark *memWatermark
	collector *fakeCollector
	runlog    *memRunLog
	snapshots *memSnapshots
	cycle     *Cycle
}

func newHarness(now, watermark time.Time, devices map[string]*fakeDevice) *harness {
	h := &harness{
		clock:     &fakeClock{now: now},
		dialer:    &fakeDialer{devices: devices},
		watermark: &memWatermark{value: watermark},
		collector: &fakeCollector{},
		runlog:    &memRunLog{},
		snapshots: &memSnapshots{},
	}
	h.cycle = &Cycle{
		Dialer:       h.dialer,
		Watermark:    h.watermark,
		Snapshots:    h.snapshots,
		Deliverer:    h.collector,
		Shipper:      h.collector,
		RunLog:       h.runlog,
		Clock:        h.clock,
		Logger:       slog.New(slog.NewTextHandler(h.runlog, nil)),
		Zone:         testZone,
		Timeout:      time.Second,
		DeliverEmpty: true,
	}
	return h
}
