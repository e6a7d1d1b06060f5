// Package persist keeps a snapshot store in step with a running
// ledger. State changes mark the ledger dirty; a background worker
// saves at most once per interval and once more on shutdown.
package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/blockberries/crowdfund"
	"github.com/blockberries/crowdfund/store"
	"github.com/blockberries/crowdfund/types"
)

// DefaultInterval is the save interval used when none is configured.
const DefaultInterval = 5 * time.Second

// Persister saves ledger snapshots in the background.
type Persister struct {
	store    store.Store
	interval time.Duration
	logger   *slog.Logger

	dirty    chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup

	mu     sync.Mutex
	source crowdfund.Snapshotter
	saves  int
}

// Option configures a Persister.
type Option func(*Persister)

// WithInterval sets how often pending changes are saved.
func WithInterval(d time.Duration) Option {
	return func(p *Persister) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Persister) { p.logger = l }
}

// New creates a Persister writing to st.
func New(st store.Store, opts ...Option) *Persister {
	p := &Persister{
		store:    st,
		interval: DefaultInterval,
		logger:   slog.Default(),
		dirty:    make(chan struct{}, 1),
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Notify marks the ledger dirty. It never blocks, so it is safe to
// install as an engine event hook.
func (p *Persister) Notify(types.Event) {
	select {
	case p.dirty <- struct{}{}:
	default:
	}
}

// Recover restores src from the latest stored snapshot. It reports
// false when the store is empty.
func (p *Persister) Recover(ctx context.Context, src crowdfund.Snapshotter) (bool, error) {
	snap, err := p.store.Load(ctx)
	if errors.Is(err, store.ErrNoSnapshot) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load snapshot: %w", err)
	}
	if err := src.Restore(ctx, snap); err != nil {
		return false, fmt.Errorf("restore snapshot %d: %w", snap.Sequence, err)
	}
	p.logger.Info("ledger recovered", "sequence", snap.Sequence, "campaigns", len(snap.Campaigns))
	return true, nil
}

// Start begins the background worker saving snapshots of src.
func (p *Persister) Start(ctx context.Context, src crowdfund.Snapshotter) {
	p.mu.Lock()
	p.source = src
	p.mu.Unlock()

	p.wg.Add(1)
	go p.worker(ctx)

	p.logger.Info("persister started", "interval", p.interval)
}

// Stop halts the worker after a final save of pending changes.
func (p *Persister) Stop() {
	close(p.stopChan)
	p.wg.Wait()
}

// Flush saves the current state immediately.
func (p *Persister) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.source == nil {
		return errors.New("persist: not started")
	}
	snap, err := p.source.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := p.store.Save(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot %d: %w", snap.Sequence, err)
	}
	p.saves++
	p.logger.Debug("snapshot saved", "sequence", snap.Sequence)
	return nil
}

// Saves reports how many snapshots have been written.
func (p *Persister) Saves() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}

func (p *Persister) worker(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	pending := false
	for {
		select {
		case <-p.stopChan:
			// Final save
			select {
			case <-p.dirty:
				pending = true
			default:
			}
			if pending {
				// The caller's context may already be done at shutdown.
				p.save(context.WithoutCancel(ctx))
			}
			return

		case <-p.dirty:
			pending = true

		case <-ticker.C:
			if pending {
				pending = !p.save(ctx)
			}
		}
	}
}

func (p *Persister) save(ctx context.Context) bool {
	if err := p.Flush(ctx); err != nil {
		p.logger.Error("failed to persist snapshot", "error", err)
		return false
	}
	return true
}
