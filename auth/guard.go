package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/storefront-session/internal/errors"
	"github.com/jrsteele09/storefront-session/internal/metrics"
	"github.com/jrsteele09/storefront-session/profile"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultGuardPeriod is how often the guard re-validates sessions.
const DefaultGuardPeriod = 60 * time.Second

// SessionChecker re-validates the held sessions against the store.
type SessionChecker interface {
	CheckSessions(trigger string)
}

var _ SessionChecker = (*Controller)(nil)

// CheckSessions reconciles the persisted tokens and narrows the in-memory state
// to match: a role found invalid is cleared, a role still valid takes over the
// stored pair. Roles replaced while the check ran are left alone.
func (c *Controller) CheckSessions(trigger string) {
	c.metrics.GuardCheck(trigger)

	before := c.State()
	validity := c.validator.ReconcileStoredTokens()

	c.mu.Lock()
	defer c.mu.Unlock()

	changed := false
	for _, role := range profile.Roles {
		seen := before.Session(role)
		current := c.state.Session(role)
		if !current.Exists() || current.ID != seen.ID {
			continue
		}

		if !validity.Valid(role) {
			c.clearRoleLocked(role, current.ID, metrics.ReasonGuard)
			c.logger.Info().Str("role", role.String()).Str("trigger", trigger).Msg("session no longer valid, cleared")
			changed = true
			continue
		}

		pair, err := c.deps.Store.Tokens(role)
		if err != nil || pair == nil {
			continue
		}
		if current.Tokens == nil || *current.Tokens != *pair {
			current.Tokens = pair
			c.state.setSession(current)
			changed = true
		}
	}
	if changed {
		c.publishLocked()
	}
}

// Guard re-runs session validation on a fixed period and whenever the application
// regains focus. Both triggers feed one queue drained by a single goroutine, so a
// burst of triggers collapses into one pending check.
type Guard struct {
	checker SessionChecker
	period  time.Duration
	logger  zerolog.Logger

	triggers chan string

	mu        sync.Mutex
	scheduler *cron.Cron
	cancel    context.CancelFunc
	done      chan struct{}
}

type GuardOption func(*Guard)

func WithGuardPeriod(period time.Duration) GuardOption {
	return func(g *Guard) {
		g.period = period
	}
}

func WithGuardLogger(logger zerolog.Logger) GuardOption {
	return func(g *Guard) {
		g.logger = logger
	}
}

func NewGuard(checker SessionChecker, options ...GuardOption) (*Guard, error) {
	if checker == nil {
		return nil, errors.New("[NewGuard] checker is required")
	}

	g := &Guard{
		checker:  checker,
		period:   DefaultGuardPeriod,
		logger:   log.Logger.With().Str("component", "session_guard").Logger(),
		triggers: make(chan string, 1),
	}
	for _, opt := range options {
		opt(g)
	}
	if g.period <= 0 {
		return nil, errors.New("[NewGuard] period must be positive")
	}
	return g, nil
}

// Start schedules the periodic check and begins draining triggers until ctx is
// done or Stop is called.
func (g *Guard) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done != nil {
		return errors.New("[Guard.Start] guard already started")
	}

	scheduler := cron.New()
	schedule := fmt.Sprintf("@every %s", g.period)
	if _, err := scheduler.AddFunc(schedule, func() { g.enqueue(metrics.TriggerTimer) }); err != nil {
		return errors.Wrapf(err, "[Guard.Start] scheduling %q", schedule)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	g.scheduler = scheduler
	g.cancel = cancel
	g.done = done

	scheduler.Start()
	go g.run(ctx, done)

	g.logger.Debug().Dur("period", g.period).Msg("session guard started")
	return nil
}

// Stop halts the schedule and waits for an in-flight check to finish.
func (g *Guard) Stop() {
	g.mu.Lock()
	scheduler, cancel, done := g.scheduler, g.cancel, g.done
	g.scheduler, g.cancel, g.done = nil, nil, nil
	g.mu.Unlock()

	if done == nil {
		return
	}
	<-scheduler.Stop().Done()
	cancel()
	<-done
	g.logger.Debug().Msg("session guard stopped")
}

// NotifyFocus requests a check because the application regained focus.
func (g *Guard) NotifyFocus() {
	g.enqueue(metrics.TriggerFocus)
}

func (g *Guard) enqueue(trigger string) {
	select {
	case g.triggers <- trigger:
	default:
	}
}

func (g *Guard) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case trigger := <-g.triggers:
			g.checker.CheckSessions(trigger)
		}
	}
}
