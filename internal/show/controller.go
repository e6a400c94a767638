package show

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State of a Controller.
type State int

const (
	Idle State = iota
	Starting
	Running
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Running:
		return "running"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// EventKind classifies controller events.
type EventKind int

const (
	EventStarted EventKind = iota
	EventStopped
	EventFailed
	EventLost
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventStopped:
		return "stopped"
	case EventFailed:
		return "failed"
	case EventLost:
		return "lost"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event reports a lifecycle change of the current mode.
type Event struct {
	Kind       EventKind
	Mode       Name
	Activation string
	Err        error
}

// Option configures a Controller.
type Option func(*Controller)

// WithObserver delivers every Event to fn on the controller's goroutine.
func WithObserver(fn func(Event)) Option {
	return func(c *Controller) { c.observer = fn }
}

// WithLogger sets the logger; the default discards.
func WithLogger(log *zap.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// Controller runs at most one mode at a time. It is not safe for
// concurrent use: drive it from the frame goroutine and post work from
// elsewhere through the frame scheduler.
type Controller struct {
	registry   *Registry
	log        *zap.Logger
	observer   func(Event)
	state      State
	current    Handle
	name       Name
	activation string
}

func NewController(registry *Registry, opts ...Option) *Controller {
	c := &Controller{registry: registry, log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) State() State { return c.state }

// Current returns the running mode name, or "" when idle.
func (c *Controller) Current() Name {
	if c.state != Running {
		return ""
	}
	return c.name
}

// Activate loads and starts name on surface. A running mode is stopped
// first. On failure the controller is Idle and nothing stays allocated.
func (c *Controller) Activate(ctx context.Context, name Name, surface Surface) error {
	switch c.state {
	case Starting:
		return fmt.Errorf("activate %q: %w", name, ErrBusy)
	case Running:
		c.Deactivate()
	}

	c.state = Starting
	activation := uuid.NewString()
	log := c.log.With(zap.String("mode", string(name)), zap.String("activation", activation))

	h, err := c.registry.Load(ctx, name)
	if err != nil {
		c.state = Idle
		log.Warn("mode load failed", zap.Error(err))
		c.emit(Event{Kind: EventFailed, Mode: name, Activation: activation, Err: err})
		return err
	}

	if r, ok := h.(LossReporter); ok {
		r.OnLost(c.lostFunc(h))
	}
	if err := h.Start(ctx, surface); err != nil {
		h.Stop()
		c.state = Idle
		err = fmt.Errorf("start %q: %w", name, err)
		log.Warn("mode start failed", zap.Error(err))
		c.emit(Event{Kind: EventFailed, Mode: name, Activation: activation, Err: err})
		return err
	}

	c.current, c.name, c.activation = h, name, activation
	c.state = Running
	log.Info("mode started")
	c.emit(Event{Kind: EventStarted, Mode: name, Activation: activation})
	return nil
}

// Deactivate stops the running mode. It is a no-op when idle.
func (c *Controller) Deactivate() {
	if c.state != Running {
		return
	}
	h, name, activation := c.release()
	h.Stop()
	c.log.Info("mode stopped", zap.String("mode", string(name)), zap.String("activation", activation))
	c.emit(Event{Kind: EventStopped, Mode: name, Activation: activation})
}

// Switch is Deactivate followed by Activate.
func (c *Controller) Switch(ctx context.Context, name Name, surface Surface) error {
	c.Deactivate()
	return c.Activate(ctx, name, surface)
}

// Resize forwards to the running mode.
func (c *Controller) Resize() {
	if c.state == Running {
		c.current.OnResize()
	}
}

// Boost forwards to the running mode.
func (c *Controller) Boost(active bool) {
	if c.state == Running {
		c.current.OnBoost(active)
	}
}

func (c *Controller) release() (Handle, Name, string) {
	h, name, activation := c.current, c.name, c.activation
	c.current, c.name, c.activation = nil, "", ""
	c.state = Idle
	return h, name, activation
}

// lostFunc returns the loss callback for h. Reports from a handle that is
// no longer current are dropped.
func (c *Controller) lostFunc(h Handle) func(error) {
	return func(err error) {
		if c.state != Running || c.current != h {
			return
		}
		if !errors.Is(err, ErrDeviceLost) {
			err = fmt.Errorf("%w: %w", ErrDeviceLost, err)
		}
		_, name, activation := c.release()
		h.Stop()
		c.log.Error("mode lost", zap.String("mode", string(name)), zap.String("activation", activation), zap.Error(err))
		c.emit(Event{Kind: EventLost, Mode: name, Activation: activation, Err: err})
	}
}

func (c *Controller) emit(e Event) {
	if c.observer != nil {
		c.observer(e)
	}
}
