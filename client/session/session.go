// Package session owns the client-side authenticated-session lifecycle:
// rehydration from persisted tokens, idle-timeout enforcement with a
// warning window, and opening the realtime channel in lockstep with the
// authenticated state.
package session

import (
	"context"
	"time"

	"github.com/vibesocial/backend/domain"
)

// State is the observable lifecycle state of the session machine.
type State int

const (
	StateUnauthenticated State = iota
	StateActive
	StateWarning
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateWarning:
		return "warning"
	case StateExpired:
		return "expired"
	default:
		return "unauthenticated"
	}
}

// Store is the persistence surface the manager needs. The bbolt
// implementation lives in client/store; tests substitute an in-memory fake.
type Store interface {
	SaveToken(token string) error
	LoadToken() (string, error)
	Clear() error
	CacheProfile(token string, user *domain.User, ttl time.Duration) error
	ReadProfile(token string) (*domain.User, error)
	InvalidateProfile(token string) error
	MarkOnboardingShown(userID string) error
	OnboardingShown(userID string) (bool, error)
}

// Backend is the slice of the REST API the manager calls on its own.
type Backend interface {
	Me(ctx context.Context, token string) (*domain.User, error)
	CompleteOnboarding(ctx context.Context, token string) error
	Logout(ctx context.Context, token string) error
}

// Channel is the realtime push connection opened when a session becomes
// live and torn down when it ends.
type Channel interface {
	Connect(userID, token string) error
	Disconnect()
}

const (
	// DefaultIdleTimeout is the inactivity window after which the session
	// is forcibly terminated.
	DefaultIdleTimeout = 30 * time.Minute
	// DefaultWarningWindow is the trailing part of the idle timeout during
	// which a countdown is surfaced.
	DefaultWarningWindow = 5 * time.Minute
	// DefaultCheckInterval is how often idle time is evaluated. The
	// countdown shown to the user is refreshed on this cadence, not per
	// second.
	DefaultCheckInterval = time.Minute
	// DefaultProfileTTL bounds how long a cached profile snapshot may serve
	// startup rehydration.
	DefaultProfileTTL = 5 * time.Minute
)

// Config tunes the session policy. Zero values fall back to the defaults
// above.
type Config struct {
	IdleTimeout   time.Duration
	WarningWindow time.Duration
	CheckInterval time.Duration
	ProfileTTL    time.Duration

	// OnWarning is invoked on each check tick while the machine is in the
	// warning band, with the time remaining until forced logout.
	OnWarning func(remaining time.Duration)
	// OnExpired is invoked once after an idle-timeout logout, after the
	// session has been torn down.
	OnExpired func()
}

func (c *Config) normalize() {
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.WarningWindow <= 0 || c.WarningWindow >= c.IdleTimeout {
		c.WarningWindow = DefaultWarningWindow
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = DefaultCheckInterval
	}
	if c.ProfileTTL <= 0 {
		c.ProfileTTL = DefaultProfileTTL
	}
}
