// Package bundle classifies transactions as MEV-bundle participants and
// tracks bundle lifecycles.
//
// Classification is heuristic. The strong signal is a positive lamport
// delta on a known Jito tip account inside the transaction; weaker signals
// are an unusually high fee and an existing signature-to-bundle mapping.
package bundle

import (
	"context"
	"log"
	"sync"
	"time"

	"solana-mint-intel/internal/cache"
	"solana-mint-intel/internal/domain"
	"solana-mint-intel/internal/observability"
	"solana-mint-intel/internal/solana"
)

// jitoTipAccounts are the tip payment accounts of the Jito block engine.
var jitoTipAccounts = map[string]bool{
	"96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5": true,
	"HFqU5x63VTqvQss8hp11i4wVV8bD44PvwucfZ2bU7gRe": true,
	"Cw8CFyM9FkoMi7K7Crf6HNQqf4uEMzpKw6QNghXLvLkY": true,
	"ADaUMid9yfUytqMBgopwjb2DTLSokTSzL1zt6iGPaS49": true,
	"DfXygSm4jCyNCybVYYK6DwvWqjKee8pbDmJGcLWNDXjh": true,
	"ADuUkR4vqLUMWXxW9gh6D6L8pMSawimctcNZ5pGwDcEt": true,
	"DttWaMuVvTiduZRnguLF7jNxTgiMBZ1hyAumKUiL2KRL": true,
	"3AVi9Tg9Uo68tJfuvoKvqKNWKkC5wPdSSdeBnizKZ6jT": true,
}

const (
	// highFeeThreshold marks fees well above the 5000-lamport base as a
	// weak bundling signal.
	highFeeThreshold = 100_000

	sweepInterval = 30 * time.Minute
	maxBundleIdle = time.Hour

	fetchTimeout = 10 * time.Second
)

// TxFetcher fetches confirmed transactions.
type TxFetcher interface {
	GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error)
}

// BundleStatusUpdate is one lifecycle event for a bundle, as delivered by
// a bundle result stream.
type BundleStatusUpdate struct {
	BundleID        string
	Status          domain.BundleStatus
	Slot            int64
	Validator       string
	TipLamports     uint64
	RejectionReason string
	DropReason      string
}

// Monitor detects bundle participation and tracks bundle lifecycles.
type Monitor struct {
	rpc    TxFetcher
	logger *log.Logger

	bundles *cache.Cache[*domain.BundleData]

	mu          sync.RWMutex
	sigToBundle map[string]string

	sweepOnce sync.Once
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithLogger sets the monitor logger.
func WithLogger(l *log.Logger) MonitorOption {
	return func(m *Monitor) { m.logger = l }
}

// NewMonitor creates a bundle monitor.
func NewMonitor(rpc TxFetcher, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		rpc:         rpc,
		logger:      log.Default(),
		bundles:     cache.New[*domain.BundleData](),
		sigToBundle: make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DetectBundleFromTransaction classifies one transaction. A nil tx is
// fetched by signature; an unfetchable transaction yields a LOW-confidence
// non-bundle, never an error.
func (m *Monitor) DetectBundleFromTransaction(ctx context.Context, signature string, tx *solana.Transaction) domain.BundleDetection {
	detection := domain.BundleDetection{Signature: signature}

	m.mu.RLock()
	detection.BundleID = m.sigToBundle[signature]
	m.mu.RUnlock()

	if tx == nil {
		fctx, cancel := context.WithTimeout(ctx, fetchTimeout)
		fetched, err := m.rpc.GetTransaction(fctx, signature)
		cancel()
		if err != nil {
			m.logger.Printf("[bundle] fetch %s failed: %v", signature, err)
		}
		tx = fetched
	}

	if tx != nil && tx.Meta != nil {
		m.applyTransactionSignals(tx, &detection)
	}

	mapped := detection.BundleID != ""
	detection.IsBundle = detection.HasTipTransfer || mapped

	switch {
	case detection.HasTipTransfer:
		detection.Confidence = domain.ConfidenceHigh
	case detection.HighPriorityFee || mapped:
		detection.Confidence = domain.ConfidenceMedium
	default:
		detection.Confidence = domain.ConfidenceLow
	}

	observability.RecordBundleDetection(string(detection.Confidence))
	return detection
}

// applyTransactionSignals fills the tip-transfer and fee signals.
func (m *Monitor) applyTransactionSignals(tx *solana.Transaction, detection *domain.BundleDetection) {
	detection.HighPriorityFee = tx.Meta.Fee > highFeeThreshold

	if tx.Message == nil {
		return
	}
	for i, key := range tx.Message.AccountKeys {
		if !jitoTipAccounts[key] {
			continue
		}
		if i >= len(tx.Meta.PreBalances) || i >= len(tx.Meta.PostBalances) {
			continue
		}
		if tx.Meta.PostBalances[i] > tx.Meta.PreBalances[i] {
			detection.HasTipTransfer = true
			detection.TipLamports = tx.Meta.PostBalances[i] - tx.Meta.PreBalances[i]
			detection.TipAccount = key
			return
		}
	}
}

// DetectBundleActivity classifies a set of signatures, typically a mint's
// earliest transactions, and aggregates the results.
func (m *Monitor) DetectBundleActivity(ctx context.Context, signatures []string) domain.BundleActivity {
	activity := domain.BundleActivity{
		Signatures: len(signatures),
		Detections: make([]domain.BundleDetection, 0, len(signatures)),
	}

	for _, sig := range signatures {
		detection := m.DetectBundleFromTransaction(ctx, sig, nil)
		activity.Detections = append(activity.Detections, detection)
		if detection.IsBundle {
			activity.BundleCount++
		}
		activity.TotalTipLamport += detection.TipLamports
	}
	return activity
}

// TrackBundle registers a bundle and maps its signatures to it.
func (m *Monitor) TrackBundle(bundleID string, signatures []string) {
	data := &domain.BundleData{
		BundleID:     bundleID,
		Status:       domain.BundleUnknown,
		Transactions: append([]string(nil), signatures...),
		UpdatedAt:    time.Now().UTC(),
	}
	m.bundles.Set(bundleID, data)

	m.mu.Lock()
	for _, sig := range signatures {
		m.sigToBundle[sig] = bundleID
	}
	m.mu.Unlock()

	observability.SetBundlesTracked(m.bundles.Len())
}

// ApplyStatusUpdate advances a bundle's lifecycle in place. Updates for an
// untracked bundle create it.
func (m *Monitor) ApplyStatusUpdate(update BundleStatusUpdate) {
	var data *domain.BundleData
	if current, ok := m.bundles.Get(update.BundleID); ok {
		// Copy-on-write so previously returned snapshots stay stable.
		data = copyBundle(current)
	} else {
		data = &domain.BundleData{
			BundleID: update.BundleID,
			Status:   domain.BundleUnknown,
		}
	}

	if update.Status != "" {
		data.Status = update.Status
	}
	if update.Slot != 0 {
		data.Slot = update.Slot
	}
	if update.Validator != "" {
		data.Validator = update.Validator
	}
	if update.TipLamports != 0 {
		data.TipLamports = update.TipLamports
	}
	if update.RejectionReason != "" {
		data.RejectionReason = update.RejectionReason
	}
	if update.DropReason != "" {
		data.DropReason = update.DropReason
	}
	data.UpdatedAt = time.Now().UTC()

	m.bundles.Set(update.BundleID, data)
	observability.SetBundlesTracked(m.bundles.Len())
}

// GetBundle returns a snapshot of tracked lifecycle data for a bundle id.
// The copy shields callers from later status updates.
func (m *Monitor) GetBundle(bundleID string) (*domain.BundleData, bool) {
	data, ok := m.bundles.Get(bundleID)
	if !ok {
		return nil, false
	}
	return copyBundle(data), true
}

func copyBundle(data *domain.BundleData) *domain.BundleData {
	c := *data
	c.Transactions = append([]string(nil), data.Transactions...)
	return &c
}

// BundleIDForSignature returns the bundle a signature is mapped to.
func (m *Monitor) BundleIDForSignature(signature string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.sigToBundle[signature]
	return id, ok
}

// Sweep removes bundles idle longer than maxBundleIdle together with their
// signature mappings, and returns how many bundles were removed.
func (m *Monitor) Sweep() int {
	swept := m.bundles.SweepIdle(maxBundleIdle)
	if len(swept) == 0 {
		return 0
	}

	sweptSet := make(map[string]bool, len(swept))
	for _, id := range swept {
		sweptSet[id] = true
	}

	m.mu.Lock()
	for sig, id := range m.sigToBundle {
		if sweptSet[id] {
			delete(m.sigToBundle, sig)
		}
	}
	m.mu.Unlock()

	observability.RecordBundlesSwept(len(swept))
	observability.SetBundlesTracked(m.bundles.Len())
	m.logger.Printf("[bundle] swept %d idle bundles", len(swept))
	return len(swept)
}

// StartSweeper runs Sweep every 30 minutes until ctx is canceled. Safe to
// call once; repeated calls are ignored.
func (m *Monitor) StartSweeper(ctx context.Context) {
	m.sweepOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(sweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					m.Sweep()
				}
			}
		}()
	})
}
