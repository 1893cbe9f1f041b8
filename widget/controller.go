// Package widget drives the checkout-side lifecycle of the hosted Monmi
// widget: creating a payment session when the gateway is selected, mounting
// the widget through a binding, and confirming the payment at submit time.
// The controller is binding-agnostic; the classic form flow and the
// block-based checkout plug in through the same interface.
package widget

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// State of the controller's session lifecycle.
type State int

const (
	StateIdle State = iota
	StateLoadingSession
	StateSessionReady
	StateConfirming
	StateSucceeded
	StateFailed
)

// Seed is what the controller needs to mount the widget.
type Seed struct {
	Token  string
	Code   string
	Status string
}

// Fields is the payment data populated into the checkout submission.
type Fields struct {
	Token   string
	Code    string
	Status  string
	Payload string
}

// SessionSource creates payment sessions. ServerSeed returns a previously
// created session, if any, so a page reload does not burn a new session.
type SessionSource interface {
	ServerSeed(ctx context.Context) (*Seed, error)
	CreateSession(ctx context.Context) (*Seed, error)
}

// Confirmer runs the hosted widget's confirm step for a mounted session.
type Confirmer interface {
	Confirm(ctx context.Context, token string) (Fields, error)
}

// Binding is the surface-specific half: it mounts the widget, fills the
// submission fields and surfaces errors to the shopper.
type Binding interface {
	Mount(seed Seed)
	Unmount()
	Populate(fields Fields)
	ShowError(message string)
}

// Controller owns the session state for one checkout surface instance.
type Controller struct {
	Source    SessionSource
	Confirmer Confirmer
	Binding   Binding
	Log       zerolog.Logger

	mu         sync.Mutex
	state      State
	generation uint64
	inflight   bool
	seed       *Seed
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// HandleMethodChange reacts to the shopper (de)selecting the gateway.
// Re-selecting while a session is already mounted forces a fresh one.
func (c *Controller) HandleMethodChange(ctx context.Context, selected bool) {
	if !selected {
		c.mu.Lock()
		c.generation++
		c.seed = nil
		c.state = StateIdle
		c.mu.Unlock()
		c.Binding.Unmount()
		return
	}

	c.mu.Lock()
	force := c.seed != nil
	c.mu.Unlock()
	c.ensureSession(ctx, force)
}

// Refresh re-creates the session after checkout data changed (totals,
// addresses), invalidating whatever was mounted.
func (c *Controller) Refresh(ctx context.Context) {
	c.ensureSession(ctx, true)
}

// HandleSubmit runs the confirm step and returns the populated fields. The
// submission may proceed only when ok is true.
func (c *Controller) HandleSubmit(ctx context.Context) (Fields, bool) {
	c.mu.Lock()
	if c.inflight || c.state == StateConfirming {
		c.mu.Unlock()
		return Fields{}, false
	}
	if c.seed == nil {
		c.mu.Unlock()
		c.ensureSession(ctx, false)
		c.mu.Lock()
	}
	seed := c.seed
	if seed == nil {
		c.mu.Unlock()
		return Fields{}, false
	}
	gen := c.generation
	c.state = StateConfirming
	c.mu.Unlock()

	fields, err := c.Confirmer.Confirm(ctx, seed.Token)

	c.mu.Lock()
	if gen != c.generation {
		// instance was torn down mid-confirm; discard the result
		c.mu.Unlock()
		return Fields{}, false
	}
	if err != nil {
		c.state = StateFailed
		c.seed = nil
		c.mu.Unlock()
		c.Log.Warn().Err(err).Msg("widget: confirm failed")
		c.Binding.ShowError("Payment could not be completed. Please try again.")
		return Fields{}, false
	}
	if fields.Token == "" {
		fields.Token = seed.Token
	}
	c.state = StateSucceeded
	c.mu.Unlock()

	c.Binding.Populate(fields)
	return fields, true
}

// ensureSession creates (or reuses) a session and mounts the widget. Only one
// creation runs at a time; re-entrant calls while one is in flight are
// dropped. Results for a torn-down instance generation are discarded.
func (c *Controller) ensureSession(ctx context.Context, force bool) {
	c.mu.Lock()
	if c.inflight {
		c.mu.Unlock()
		return
	}
	if c.seed != nil && !force {
		seed := *c.seed
		c.state = StateSessionReady
		c.mu.Unlock()
		c.Binding.Mount(seed)
		return
	}
	c.inflight = true
	c.state = StateLoadingSession
	gen := c.generation
	c.mu.Unlock()

	seed := c.resolveSeed(ctx, force)

	c.mu.Lock()
	c.inflight = false
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	if seed == nil {
		c.state = StateFailed
		c.seed = nil
		c.mu.Unlock()
		c.Binding.ShowError("Unable to start the payment. Please reload and try again.")
		return
	}
	c.seed = seed
	c.state = StateSessionReady
	c.mu.Unlock()
	c.Binding.Mount(*seed)
}

// resolveSeed prefers the server-stored session unless a fresh one is forced.
func (c *Controller) resolveSeed(ctx context.Context, force bool) *Seed {
	if !force {
		if seed, err := c.Source.ServerSeed(ctx); err == nil && seed != nil && seed.Token != "" {
			return seed
		}
	}
	seed, err := c.Source.CreateSession(ctx)
	if err != nil {
		c.Log.Warn().Err(err).Msg("widget: create session failed")
		return nil
	}
	if seed == nil || seed.Token == "" {
		return nil
	}
	return seed
}
