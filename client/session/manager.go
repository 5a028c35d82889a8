package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/vibesocial/backend/domain"
)

// Manager is the session state machine. Exactly one session is live per
// manager; all mutation goes through its operations, never through the
// returned user value.
type Manager struct {
	cfg     Config
	store   Store
	backend Backend
	channel Channel
	monitor *ActivityMonitor
	logger  *zap.Logger

	// lastActivity is unix nanoseconds; last-write-wins, written from
	// Touch without taking mu.
	lastActivity atomic.Int64

	mu      sync.Mutex
	user    *domain.User
	token   string
	expired bool
	stopCh  chan struct{}

	// now is swappable for tests.
	now func() time.Time
}

// New wires a manager from its collaborators. Store and backend are
// required; channel may be nil when the host has no realtime surface.
func New(cfg Config, store Store, backend Backend, channel Channel, logger *zap.Logger) *Manager {
	cfg.normalize()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cfg:     cfg,
		store:   store,
		backend: backend,
		channel: channel,
		monitor: NewActivityMonitor(),
		logger:  logger,
		now:     time.Now,
	}
}

// Monitor returns the activity monitor the host feeds interaction signals
// into. It forwards only while a session is live.
func (m *Manager) Monitor() *ActivityMonitor { return m.monitor }

// Touch resets the activity clock to now. It is called on every qualifying
// interaction signal and must stay cheap: a single timestamp write, no I/O.
func (m *Manager) Touch() {
	m.lastActivity.Store(m.now().UnixNano())
}

// User returns the live session's user, or nil when unauthenticated.
func (m *Manager) User() *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user
}

// Token returns the live bearer token, or "".
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// WasExpired reports whether the last teardown was timeout-initiated. It
// only affects user-facing messaging and is cleared by the next login.
func (m *Manager) WasExpired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expired
}

// State derives the current lifecycle state from the activity clock, so a
// Touch while in Warning returns the machine to Active without waiting for
// the next check tick.
func (m *Manager) State() State {
	m.mu.Lock()
	user, expired := m.user, m.expired
	m.mu.Unlock()

	if user == nil {
		if expired {
			return StateExpired
		}
		return StateUnauthenticated
	}

	idle := m.idleTime()
	switch {
	case idle >= m.cfg.IdleTimeout:
		return StateExpired
	case idle >= m.cfg.IdleTimeout-m.cfg.WarningWindow:
		return StateWarning
	default:
		return StateActive
	}
}

// Remaining returns the time left until forced logout. Zero when no
// session is live or the timeout has already elapsed.
func (m *Manager) Remaining() time.Duration {
	m.mu.Lock()
	user := m.user
	m.mu.Unlock()
	if user == nil {
		return 0
	}
	left := m.cfg.IdleTimeout - m.idleTime()
	if left < 0 {
		return 0
	}
	return left
}

// Restore rehydrates a session from the persisted token at startup. A
// fresh cached profile avoids the network round trip entirely; otherwise
// the profile is fetched and re-cached. A rejected token clears persisted
// state and leaves the machine unauthenticated without error; transient
// failures are returned and leave the stored token untouched.
func (m *Manager) Restore(ctx context.Context) error {
	token, err := m.store.LoadToken()
	if err != nil {
		m.logger.Warn("token load failed", zap.Error(err))
		return err
	}
	if token == "" {
		return nil
	}

	if cached, err := m.store.ReadProfile(token); err == nil && cached != nil {
		m.establish(cached, token)
		return nil
	}

	user, err := m.backend.Me(ctx, token)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeUnauthorized) {
			m.logger.Info("stored token rejected, clearing")
			if clearErr := m.store.Clear(); clearErr != nil {
				m.logger.Warn("store clear failed", zap.Error(clearErr))
			}
			return nil
		}
		return err
	}

	if err := m.store.CacheProfile(token, user, m.cfg.ProfileTTL); err != nil {
		m.logger.Warn("profile cache write failed", zap.Error(err))
	}
	m.establish(user, token)
	return nil
}

// Login installs a session from server-confirmed credentials. Persistence
// is best-effort: a storage failure keeps the in-memory session valid for
// the current process lifetime and only costs rehydration after restart.
func (m *Manager) Login(user *domain.User, token string) error {
	if user == nil || token == "" {
		return domain.ErrInvalidPayload
	}
	if err := m.store.SaveToken(token); err != nil {
		m.logger.Warn("token persist failed, session is memory-only", zap.Error(err))
	}
	if err := m.store.CacheProfile(token, user, m.cfg.ProfileTTL); err != nil {
		m.logger.Warn("profile cache write failed", zap.Error(err))
	}
	m.establish(user, token)
	return nil
}

// Logout tears the session down. expired distinguishes a timeout-initiated
// logout from a voluntary one; it changes user-facing messaging only.
func (m *Manager) Logout(expired bool) {
	m.mu.Lock()
	user := m.user
	token := m.token
	stopCh := m.stopCh
	m.user = nil
	m.token = ""
	m.expired = expired
	m.stopCh = nil
	m.mu.Unlock()

	if user == nil {
		return
	}

	m.monitor.detach()
	if stopCh != nil {
		close(stopCh)
	}
	if m.channel != nil {
		m.channel.Disconnect()
	}
	if err := m.store.Clear(); err != nil {
		m.logger.Warn("store clear failed", zap.Error(err))
	}
	if !expired && m.backend != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.backend.Logout(ctx, token); err != nil {
			m.logger.Debug("server-side logout failed", zap.Error(err))
		}
	}
	m.logger.Info("session ended",
		zap.String("user_id", user.ID),
		zap.Bool("expired", expired))
}

// RefreshUserData re-fetches the profile, bypassing the cache, and replaces
// the session's profile fields. It never touches the activity clock or the
// token. A transient failure leaves the previous data intact; a rejected
// token logs the session out.
func (m *Manager) RefreshUserData(ctx context.Context) (*domain.User, error) {
	m.mu.Lock()
	token := m.token
	m.mu.Unlock()
	if token == "" {
		return nil, domain.ErrSessionNotFound
	}

	if err := m.store.InvalidateProfile(token); err != nil {
		m.logger.Warn("profile cache invalidate failed", zap.Error(err))
	}

	user, err := m.backend.Me(ctx, token)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeUnauthorized) {
			m.Logout(false)
		}
		return nil, err
	}

	if err := m.store.CacheProfile(token, user, m.cfg.ProfileTTL); err != nil {
		m.logger.Warn("profile cache write failed", zap.Error(err))
	}

	m.mu.Lock()
	if m.token == token {
		m.user = user
	}
	m.mu.Unlock()
	return user, nil
}

// CompleteOnboarding marks onboarding complete on the server and, on
// success, flips the session flag and writes the local per-user record so
// the welcome flow is not replayed.
func (m *Manager) CompleteOnboarding(ctx context.Context) error {
	m.mu.Lock()
	token := m.token
	user := m.user
	m.mu.Unlock()
	if user == nil {
		return domain.ErrSessionNotFound
	}

	if err := m.backend.CompleteOnboarding(ctx, token); err != nil {
		return err
	}

	m.mu.Lock()
	if m.user != nil {
		m.user.OnboardingCompleted = true
	}
	m.mu.Unlock()

	if err := m.store.MarkOnboardingShown(user.ID); err != nil {
		m.logger.Warn("onboarding flag persist failed", zap.Error(err))
	}
	return nil
}

// establish installs the session and starts the idle-check loop.
func (m *Manager) establish(user *domain.User, token string) {
	m.mu.Lock()
	if m.stopCh != nil {
		close(m.stopCh)
	}
	stopCh := make(chan struct{})
	m.user = user
	m.token = token
	m.expired = false
	m.stopCh = stopCh
	m.mu.Unlock()

	m.Touch()
	m.monitor.attach(m.Touch)

	if m.channel != nil {
		if err := m.channel.Connect(user.ID, token); err != nil {
			// The channel retries on its own; the session stays live.
			m.logger.Warn("realtime channel connect failed", zap.Error(err))
		}
	}

	go m.checkLoop(stopCh)
	m.logger.Info("session established", zap.String("user_id", user.ID))
}

func (m *Manager) checkLoop(stopCh chan struct{}) {
	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.evaluate()
		case <-stopCh:
			return
		}
	}
}

// evaluate is one check tick: compare idle time against the two thresholds
// and fire the matching side effect.
func (m *Manager) evaluate() {
	m.mu.Lock()
	live := m.user != nil
	m.mu.Unlock()
	if !live {
		return
	}

	idle := m.idleTime()
	switch {
	case idle >= m.cfg.IdleTimeout:
		m.Logout(true)
		if m.cfg.OnExpired != nil {
			m.cfg.OnExpired()
		}
	case idle >= m.cfg.IdleTimeout-m.cfg.WarningWindow:
		if m.cfg.OnWarning != nil {
			m.cfg.OnWarning(m.cfg.IdleTimeout - idle)
		}
	}
}

func (m *Manager) idleTime() time.Duration {
	return m.now().Sub(time.Unix(0, m.lastActivity.Load()))
}
