package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"axiapac.com/punchsync/model"
)

const DefaultInterval = 60 * time.Second

// Notifier receives a text summary after every sweep.
type Notifier interface {
	Info(message string) error
	Error(message string) error
}

type SweepSummary struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []CycleResult
	// Aborted is set when a configuration error stopped the sweep early.
	Aborted bool
	// Skipped lists devices not visited because the sweep was aborted.
	Skipped []string
}

func (s SweepSummary) Succeeded() int {
	n := 0
	for _, r := range s.Results {
		if r.State == Succeeded {
			n++
		}
	}
	return n
}

func (s SweepSummary) Failed() int {
	return len(s.Results) - s.Succeeded()
}

func (s SweepSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "sweep %s: %d succeeded, %d failed", s.ID, s.Succeeded(), s.Failed())
	if s.Aborted {
		fmt.Fprintf(&b, ", aborted (%d skipped)", len(s.Skipped))
	}
	for _, r := range s.Results {
		if r.State == Failed {
			fmt.Fprintf(&b, "\n- %s: %s: %v", r.Device.IP, Category(r.Err), r.Err)
		}
	}
	return b.String()
}

// Scheduler sweeps the fleet on a fixed interval.
type Scheduler struct {
	Devices   []model.DeviceDescriptor
	Cycle     *Cycle
	Clock     Clock
	Logger    *slog.Logger
	Interval  time.Duration
	Notifiers []Notifier
	Observer  Observer
	// MaxSweeps stops Run after that many sweeps; zero runs until ctx is done.
	MaxSweeps int
	// OnSweep is called with every summary, e.g. to publish it to the status API.
	OnSweep func(SweepSummary)

	mu   sync.RWMutex
	last *SweepSummary
}

// NewScheduler fails with ErrConfig when there is no device to sweep.
func NewScheduler(devices []model.DeviceDescriptor, cycle *Cycle) (*Scheduler, error) {
	if len(devices) == 0 {
		return nil, fmt.Errorf("%w: no devices registered", ErrConfig)
	}
	if cycle == nil {
		return nil, fmt.Errorf("%w: no device cycle", ErrConfig)
	}
	return &Scheduler{
		Devices:  devices,
		Cycle:    cycle,
		Clock:    cycle.clock(),
		Logger:   cycle.logger(),
		Interval: DefaultInterval,
	}, nil
}

// Run sweeps until ctx is cancelled or MaxSweeps is reached. Cancellation is
// honoured between sweeps and while waiting.
func (s *Scheduler) Run(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.Sweep(ctx)
		if s.MaxSweeps > 0 && n >= s.MaxSweeps {
			return nil
		}

		s.logger().Debug("waiting for next sweep", "interval", interval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock().After(interval):
		}
	}
}

// Sweep runs every device once, in order. A device failure, panics included,
// never stops the sweep; a configuration error does.
func (s *Scheduler) Sweep(ctx context.Context) SweepSummary {
	clock := s.clock()
	summary := SweepSummary{ID: uuid.NewString(), StartedAt: clock.Now()}
	logger := s.logger().With("sweep", summary.ID)
	logger.Info("starting sweep", "devices", len(s.Devices))

	for i, dev := range s.Devices {
		if ctx.Err() != nil {
			summary.Aborted = true
			summary.Skipped = deviceIPs(s.Devices[i:])
			logger.Warn("sweep cancelled", "skipped", len(summary.Skipped))
			break
		}

		result := s.runDevice(ctx, dev, logger)
		summary.Results = append(summary.Results, result)

		if errors.Is(result.Err, ErrConfig) {
			summary.Aborted = true
			summary.Skipped = deviceIPs(s.Devices[i+1:])
			logger.Error("configuration error, aborting sweep", "device", dev.IP, "error", result.Err, "skipped", len(summary.Skipped))
			break
		}
	}

	summary.FinishedAt = clock.Now()
	logger.Info("sweep finished",
		"succeeded", summary.Succeeded(),
		"failed", summary.Failed(),
		"aborted", summary.Aborted,
		"duration", summary.FinishedAt.Sub(summary.StartedAt))

	s.publish(summary, logger)
	return summary
}

func (s *Scheduler) runDevice(ctx context.Context, dev model.DeviceDescriptor, logger *slog.Logger) (result CycleResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("device cycle panicked", "device", dev.IP, "panic", r)
			result = CycleResult{
				Device:    dev,
				State:     Failed,
				Err:       fmt.Errorf("device %s panicked: %v", dev.IP, r),
				StartedAt: s.clock().Now(),
			}
		}
	}()

	cycle := *s.Cycle
	cycle.Logger = logger
	return cycle.Run(ctx, dev)
}

func (s *Scheduler) publish(summary SweepSummary, logger *slog.Logger) {
	s.mu.Lock()
	s.last = &summary
	s.mu.Unlock()

	if s.Observer != nil {
		s.Observer.ObserveSweep(summary)
	}
	for _, n := range s.Notifiers {
		var err error
		if summary.Failed() > 0 || summary.Aborted {
			err = n.Error(summary.String())
		} else {
			err = n.Info(summary.String())
		}
		if err != nil {
			logger.Warn("sending sweep notification failed", "error", err)
		}
	}
	if s.OnSweep != nil {
		s.OnSweep(summary)
	}
}

// LastSweep returns the most recent summary, if any.
func (s *Scheduler) LastSweep() (SweepSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return SweepSummary{}, false
	}
	return *s.last, true
}

func (s *Scheduler) clock() Clock {
	if s.Clock == nil {
		return RealClock{}
	}
	return s.Clock
}

func (s *Scheduler) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func deviceIPs(devices []model.DeviceDescriptor) []string {
	ips := make([]string, 0, len(devices))
	for _, d := range devices {
		ips = append(ips, d.IP)
	}
	return ips
}
