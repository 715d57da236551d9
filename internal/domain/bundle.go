package domain

import "time"

// BundleStatus is the lifecycle state of a tracked MEV bundle.
type BundleStatus string

// Bundle lifecycle states. StatusUnknown is the default and absorbing
// state when no stream data has arrived for a bundle.
const (
	BundleAccepted  BundleStatus = "ACCEPTED"
	BundleProcessed BundleStatus = "PROCESSED"
	BundleFinalized BundleStatus = "FINALIZED"
	BundleRejected  BundleStatus = "REJECTED"
	BundleDropped   BundleStatus = "DROPPED"
	BundleUnknown   BundleStatus = "UNKNOWN"
)

// BundleData tracks one bundle's lifecycle. Mutated in place as stream
// events arrive for the same bundle id; swept after prolonged inactivity.
type BundleData struct {
	BundleID string
	Status   BundleStatus
	// Slot is the landing slot, zero if not yet known.
	Slot int64
	// Validator is the leader that processed the bundle, if reported.
	Validator string
	// TipLamports is the landed tip, if reported.
	TipLamports uint64
	// RejectionReason and DropReason carry structured failure detail.
	RejectionReason string
	DropReason      string
	// Transactions are the signatures registered for this bundle.
	Transactions []string
	UpdatedAt    time.Time
}

// BundleConfidence grades how strongly a transaction looks bundled.
type BundleConfidence string

// Detection confidence levels.
const (
	ConfidenceHigh   BundleConfidence = "HIGH"
	ConfidenceMedium BundleConfidence = "MEDIUM"
	ConfidenceLow    BundleConfidence = "LOW"
)

// BundleDetection is the per-transaction classification result.
type BundleDetection struct {
	Signature string
	IsBundle  bool
	// HasTipTransfer reports a positive lamport delta on a known tip
	// account; TipLamports/TipAccount carry the amount and recipient.
	HasTipTransfer  bool
	TipLamports     uint64
	TipAccount      string
	HighPriorityFee bool
	// BundleID is set when the signature is already mapped to a tracked
	// bundle.
	BundleID   string
	Confidence BundleConfidence
}

// BundleActivity aggregates per-transaction detections over a set of
// signatures, typically a token's earliest transactions.
type BundleActivity struct {
	Signatures      int
	BundleCount     int
	TotalTipLamport uint64
	Detections      []BundleDetection
}
