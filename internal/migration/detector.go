// Package migration watches for bonding-curve to AMM liquidity migrations
// through a transaction log subscription on the pump.fun migrator.
package migration

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"solana-mint-intel/internal/cache"
	"solana-mint-intel/internal/domain"
	"solana-mint-intel/internal/market"
	"solana-mint-intel/internal/observability"
	"solana-mint-intel/internal/solana"
	"solana-mint-intel/internal/storage"
)

const (
	// eventCacheCapacity bounds the in-memory migration cache; oldest
	// events are evicted first.
	eventCacheCapacity = 1000

	// subscriberBuffer is the per-subscriber channel depth. Events to a
	// full subscriber are dropped, not queued.
	subscriberBuffer = 64

	fetchTimeout = 10 * time.Second
)

// TxFetcher fetches confirmed transactions.
type TxFetcher interface {
	GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error)
}

// LogSubscriber is the WebSocket subscription surface the detector needs.
type LogSubscriber interface {
	SubscribeLogs(ctx context.Context, filter solana.LogsFilter) (*solana.Subscription, error)
	Unsubscribe(ctx context.Context, sub *solana.Subscription) error
}

// Detector turns migrator log notifications into MigrationEvents.
type Detector struct {
	ws      LogSubscriber
	rpc     TxFetcher
	pairs   market.PairIndexClient
	journal storage.MigrationEventStore

	events *cache.Cache[*domain.MigrationEvent]
	logger *log.Logger

	mu      sync.Mutex
	running bool
	sub     *solana.Subscription
	wg      sync.WaitGroup

	subscribersMu sync.RWMutex
	subscribers   map[int]chan *domain.MigrationEvent
	nextSubID     int
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithPairIndex enables pre-detector migration lookup through the pair
// index API.
func WithPairIndex(c market.PairIndexClient) DetectorOption {
	return func(d *Detector) { d.pairs = c }
}

// WithJournal enables durable persistence of detected migrations.
func WithJournal(s storage.MigrationEventStore) DetectorOption {
	return func(d *Detector) { d.journal = s }
}

// WithLogger sets the detector logger.
func WithLogger(l *log.Logger) DetectorOption {
	return func(d *Detector) { d.logger = l }
}

// NewDetector creates a migration detector.
func NewDetector(ws LogSubscriber, rpc TxFetcher, opts ...DetectorOption) *Detector {
	d := &Detector{
		ws:          ws,
		rpc:         rpc,
		events:      cache.New[*domain.MigrationEvent](cache.WithCapacity(eventCacheCapacity)),
		logger:      log.Default(),
		subscribers: make(map[int]chan *domain.MigrationEvent),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start subscribes to migrator logs and begins processing. Calling Start
// on a running detector is a no-op.
func (d *Detector) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return nil
	}

	sub, err := d.ws.SubscribeLogs(ctx, solana.LogsFilter{
		Mentions: []string{PumpFunMigratorID},
	})
	if err != nil {
		return fmt.Errorf("subscribe migrator logs: %w", err)
	}

	d.sub = sub
	d.running = true
	d.wg.Add(1)
	go d.worker(sub)

	d.logger.Printf("[migration] detector started, subscription %d", sub.ID)
	return nil
}

// Stop releases the subscription and waits for the worker to drain.
func (d *Detector) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	sub := d.sub
	d.sub = nil
	d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := d.ws.Unsubscribe(ctx, sub); err != nil {
		d.logger.Printf("[migration] unsubscribe failed: %v", err)
	}
	cancel()

	d.wg.Wait()
	d.logger.Printf("[migration] detector stopped")
}

// worker consumes notifications until the subscription channel closes.
// Errors on individual messages never end the loop.
func (d *Detector) worker(sub *solana.Subscription) {
	defer d.wg.Done()

	for notif := range sub.C {
		d.handleNotification(notif)
	}
}

func (d *Detector) handleNotification(notif solana.LogNotification) {
	if notif.Err != nil {
		return
	}
	observability.RecordMigrationCandidate()

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	tx, err := d.rpc.GetTransaction(ctx, notif.Signature)
	if err != nil {
		d.logger.Printf("[migration] fetch %s failed: %v", notif.Signature, err)
		return
	}
	if tx == nil {
		return
	}

	event, err := decodeMigration(tx)
	if err != nil {
		// Most migrator mentions are not pool initializations; drop
		// silently at info level.
		observability.RecordMigrationDecodeFailure()
		return
	}

	d.record(event)
	d.logger.Printf("[migration] %s migrated to pool %s (tx %s)", event.Mint, event.Pool, event.TxSignature)
}

// record caches, persists and broadcasts a migration event.
func (d *Detector) record(event *domain.MigrationEvent) {
	d.events.Set(event.Mint, event)
	observability.RecordMigrationEvent()

	if d.journal != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := d.journal.Insert(ctx, event)
		cancel()
		if errors.Is(err, storage.ErrDuplicateKey) {
			err = nil
		}
		observability.RecordJournalWrite(err)
		if err != nil {
			d.logger.Printf("[migration] journal write failed for %s: %v", event.Mint, err)
		}
	}

	d.subscribersMu.RLock()
	defer d.subscribersMu.RUnlock()
	for _, ch := range d.subscribers {
		select {
		case ch <- event:
		default:
			observability.RecordSubscriberDrop()
		}
	}
}

// Subscribe returns a bounded channel of future migration events and a
// cancel function. Events arriving while the buffer is full are dropped.
func (d *Detector) Subscribe() (<-chan *domain.MigrationEvent, func()) {
	ch := make(chan *domain.MigrationEvent, subscriberBuffer)

	d.subscribersMu.Lock()
	id := d.nextSubID
	d.nextSubID++
	d.subscribers[id] = ch
	d.subscribersMu.Unlock()

	cancel := func() {
		d.subscribersMu.Lock()
		if _, ok := d.subscribers[id]; ok {
			delete(d.subscribers, id)
			close(ch)
		}
		d.subscribersMu.Unlock()
	}
	return ch, cancel
}

// HasMigrated reports whether a migration for the mint is cached.
func (d *Detector) HasMigrated(mint string) bool {
	return d.events.Contains(mint)
}

// GetMigrationEvent returns the cached migration event for a mint.
func (d *Detector) GetMigrationEvent(mint string) (*domain.MigrationEvent, bool) {
	return d.events.Get(mint)
}

// CheckMigrationStatus reports whether the mint has migrated, consulting
// the pair index for migrations that predate the live subscription. A
// positive answer is cached.
func (d *Detector) CheckMigrationStatus(ctx context.Context, mint string) (*domain.MigrationEvent, bool, error) {
	if event, ok := d.events.Get(mint); ok {
		return event, true, nil
	}
	if d.pairs == nil {
		return nil, false, nil
	}

	pairs, err := d.pairs.TokenPairs(ctx, mint)
	if err != nil {
		return nil, false, fmt.Errorf("pair index lookup: %w", err)
	}

	for _, p := range pairs {
		if p.DexID != "raydium" {
			continue
		}
		if p.BaseToken != mint && p.QuoteToken != mint {
			continue
		}
		event := &domain.MigrationEvent{
			Mint:      mint,
			Pool:      p.PairAddress,
			BlockTime: p.CreatedAtMs / 1000,
		}
		d.events.Set(mint, event)
		return event, true, nil
	}
	return nil, false, nil
}

// WarmFromJournal loads recent persisted migrations into the cache. Called
// once at startup before Start.
func (d *Detector) WarmFromJournal(ctx context.Context, limit int) error {
	if d.journal == nil {
		return nil
	}
	events, err := d.journal.GetRecent(ctx, limit)
	if err != nil {
		return fmt.Errorf("load journal: %w", err)
	}
	// GetRecent is newest first; insert oldest first so FIFO eviction
	// keeps the newest events.
	for i := len(events) - 1; i >= 0; i-- {
		d.events.Set(events[i].Mint, events[i])
	}
	d.logger.Printf("[migration] warmed cache with %d journaled events", len(events))
	return nil
}
