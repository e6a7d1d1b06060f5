package engine

import (
	"log/slog"

	"github.com/blockberries/crowdfund/types"
)

// EventHook observes every committed mutation. Hooks run while the
// engine lock is held, so they must not block or call back into the
// engine.
type EventHook func(types.Event)

// Option configures an Engine.
type Option func(*Engine)

// WithRewardRate sets the tokens minted per unit contributed. The
// default is 1/1.
func WithRewardRate(r types.Ratio) Option {
	return func(e *Engine) { e.reward = r }
}

// WithLogger sets the logger for the engine.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithEventHook registers a hook called after every committed mutation.
func WithEventHook(h EventHook) Option {
	return func(e *Engine) { e.hooks = append(e.hooks, h) }
}
