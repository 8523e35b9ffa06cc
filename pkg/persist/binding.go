package persist

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/vango-dev/stackkit/pkg/overlay"
	"github.com/vango-dev/stackkit/pkg/reactive"
)

// Binding keeps a stack's entries in a signal and saves them to a Store in
// the background. Writes are coalesced: only the latest entries are saved.
type Binding struct {
	store   Store
	session string
	logger  *slog.Logger

	entries *reactive.Signal[[]overlay.Entry]

	mu      sync.Mutex
	lastErr error

	kick   chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
}

// Bind loads the session's entries and starts the background writer. ctx
// bounds the initial load only.
func Bind(ctx context.Context, store Store, session string, logger *slog.Logger) (*Binding, error) {
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := store.Load(ctx, session)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	b := &Binding{
		store:   store,
		session: session,
		logger:  logger.With("component", "persist", "session", session),
		entries: reactive.NewSignal(entries),
		kick:    make(chan struct{}, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go b.run(runCtx)
	return b, nil
}

// Data returns a copy of the current entries and tracks the read. Use it as
// ProviderProps.Data.
func (b *Binding) Data() []overlay.Entry {
	return slices.Clone(b.entries.Get())
}

// OnChange records entries and schedules a save. Use it as
// ProviderProps.OnChange.
func (b *Binding) OnChange(entries []overlay.Entry) {
	b.entries.Set(slices.Clone(entries))

	select {
	case b.kick <- struct{}{}:
	default:
	}
}

// Err returns the error of the last background save, nil after a success.
func (b *Binding) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

func (b *Binding) run(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.kick:
			if err := b.Flush(ctx); err != nil && ctx.Err() == nil {
				b.logger.Warn("saving overlay stack failed", "error", err)
			}
		}
	}
}

// Flush saves the current entries now.
func (b *Binding) Flush(ctx context.Context) error {
	snapshot := slices.Clone(b.entries.Peek())
	err := b.store.Save(ctx, b.session, snapshot)
	b.mu.Lock()
	b.lastErr = err
	b.mu.Unlock()
	return err
}

// Close stops the background writer and saves the final entries.
func (b *Binding) Close(ctx context.Context) error {
	b.cancel()
	<-b.done
	return b.Flush(ctx)
}
