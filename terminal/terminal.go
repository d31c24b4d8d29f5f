// Package terminal describes the attendance terminals the sync pulls from.
// The wire protocol lives behind Dialer; this package only owns the session
// lifecycle.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"axiapac.com/punchsync/model"
)

const DefaultTimeout = 5 * time.Second

type Options struct {
	IP       string
	Port     int
	Password int
	Timeout  time.Duration
	ForceUDP bool
}

// OptionsFor builds the dial options of a registry entry.
func OptionsFor(d model.DeviceDescriptor, timeout time.Duration) Options {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	port := d.Port
	if port == 0 {
		port = model.DefaultPort
	}
	return Options{
		IP:       d.IP,
		Port:     port,
		Password: d.CommKey(),
		Timeout:  timeout,
	}
}

// Session is an open connection to one terminal.
type Session interface {
	DisableIntake(ctx context.Context) error
	EnableIntake(ctx context.Context) error
	Events(ctx context.Context) ([]model.PunchEvent, error)
	Persons(ctx context.Context) ([]model.Person, error)
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, opts Options) (Session, error)
}

// DialFunc adapts a function to a Dialer.
type DialFunc func(ctx context.Context, opts Options) (Session, error)

func (f DialFunc) Dial(ctx context.Context, opts Options) (Session, error) {
	return f(ctx, opts)
}

var (
	// ErrDial wraps every connection failure returned by WithSession.
	ErrDial = errors.New("connect terminal")
	// ErrTeardown wraps a failure to re-enable intake or disconnect after fn succeeded.
	ErrTeardown = errors.New("release terminal")
)

// WithSession connects, suspends intake and runs fn. Intake is re-enabled and
// the connection closed on every exit path, panics included. Teardown runs on
// a context detached from ctx so a cancelled run still releases the terminal.
func WithSession(ctx context.Context, dialer Dialer, opts Options, fn func(Session) error) (err error) {
	dialCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	sess, err := dialer.Dial(dialCtx, opts)
	if err != nil {
		return fmt.Errorf("%w %s:%d: %w", ErrDial, opts.IP, opts.Port, err)
	}

	defer func() {
		teardown, cancel := context.WithTimeout(context.WithoutCancel(ctx), opts.Timeout)
		defer cancel()
		if enableErr := sess.EnableIntake(teardown); enableErr != nil && err == nil {
			err = fmt.Errorf("%w: enable intake: %w", ErrTeardown, enableErr)
		}
		if closeErr := sess.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("%w: disconnect: %w", ErrTeardown, closeErr)
		}
	}()

	if err := sess.DisableIntake(ctx); err != nil {
		return fmt.Errorf("disable intake: %w", err)
	}
	return fn(sess)
}
