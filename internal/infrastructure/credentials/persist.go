package credentials

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"hokz.academy/cli/internal/core/domain"
	"hokz.academy/cli/internal/core/ports"
)

// NopSnapshotter persists nothing
type NopSnapshotter struct{}

func (NopSnapshotter) Load(context.Context) (map[domain.Role]domain.CredentialRecord, error) {
	return map[domain.Role]domain.CredentialRecord{}, nil
}

func (NopSnapshotter) Save(context.Context, domain.CredentialRecord) error { return nil }

func (NopSnapshotter) Delete(context.Context, domain.Role) error { return nil }

// persistTimeout bounds each write-through call
const persistTimeout = 5 * time.Second

// Persister restores saved records at startup and writes every later store change
// through to a snapshotter from a background goroutine, in change order.
type Persister struct {
	snap   ports.CredentialSnapshotter
	logger *slog.Logger

	mu          sync.Mutex
	closed      bool
	changes     chan domain.CredentialRecord
	unsubscribe []func()
	wg          sync.WaitGroup
}

// Persist restores records from snap into stores and starts the write-through
func Persist(ctx context.Context, stores *RoleStores, snap ports.CredentialSnapshotter, logger *slog.Logger) (*Persister, error) {
	if logger == nil {
		logger = slog.Default()
	}

	records, err := snap.Load(ctx)
	if err != nil {
		return nil, err
	}
	for role, record := range records {
		if store := stores.ForRole(role); store != nil {
			store.Restore(record)
		}
	}

	p := &Persister{
		snap:    snap,
		logger:  logger,
		changes: make(chan domain.CredentialRecord, 64),
	}
	for _, store := range stores.All() {
		p.unsubscribe = append(p.unsubscribe, store.Subscribe(p.enqueue))
	}

	p.wg.Add(1)
	go p.run(context.WithoutCancel(ctx))

	return p, nil
}

// Close stops the write-through after flushing pending changes
func (p *Persister) Close() {
	for _, fn := range p.unsubscribe {
		fn()
	}

	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.changes)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Persister) enqueue(record domain.CredentialRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.changes <- record
}

func (p *Persister) run(ctx context.Context) {
	defer p.wg.Done()

	for record := range p.changes {
		p.write(ctx, record)
	}
}

func (p *Persister) write(ctx context.Context, record domain.CredentialRecord) {
	writeCtx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	var err error
	if record.IsAuthenticated || record.HasToken() {
		err = p.snap.Save(writeCtx, record)
	} else {
		err = p.snap.Delete(writeCtx, record.Role)
	}
	if err != nil {
		p.logger.Warn("failed to persist credentials",
			slog.String("role", record.Role.String()),
			slog.String("error", err.Error()))
	}
}

var _ ports.CredentialSnapshotter = NopSnapshotter{}
