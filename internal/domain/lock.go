package domain

import "time"

// LockProtocol identifies the vesting/lock program holding tokens.
type LockProtocol string

// Known lock protocols.
const (
	LockStreamflow LockProtocol = "streamflow"
	LockJupiter    LockProtocol = "jupiter"
	LockOther      LockProtocol = "other"
)

// LockInfo describes one locked token account.
type LockInfo struct {
	Protocol LockProtocol
	// LockAccount is the token account holding the locked tokens.
	LockAccount string
	// Amount is the decimal-adjusted locked amount.
	Amount float64
	// Percent is the share of total supply locked in this account.
	Percent float64
	// UnlockAt is the unlock timestamp when the lock schedule exposes
	// one, nil otherwise.
	UnlockAt *time.Time
	IsLocked bool
}

// TokenLockStatus aggregates all detected locks for a mint.
type TokenLockStatus struct {
	Mint  string
	Locks []LockInfo
	// TotalLockedAmount is the decimal-adjusted sum across locks.
	TotalLockedAmount float64
	// TotalLockedPercent is lockedAmount / totalSupply * 100.
	TotalLockedPercent float64
	IsLocked           bool
	CapturedAt         time.Time
}
