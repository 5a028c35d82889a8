package session

import (
	"go.uber.org/zap"

	"github.com/vibesocial/backend/domain"
)

// OnboardingGate decides, once per session establishment, whether the
// first-run welcome flow should be shown. The decision combines the
// server-sourced completion flag with a local per-user dedupe record, so a
// user who skipped the flow locally is not shown it again even if the
// server field lags behind.
type OnboardingGate struct {
	store  Store
	logger *zap.Logger
}

// NewOnboardingGate builds a gate over the given store.
func NewOnboardingGate(store Store, logger *zap.Logger) *OnboardingGate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OnboardingGate{store: store, logger: logger}
}

// ShouldShow returns true iff the server has not marked onboarding complete
// for this user and no local shown record exists for the user id.
func (g *OnboardingGate) ShouldShow(user *domain.User) bool {
	if user == nil || user.OnboardingCompleted {
		return false
	}
	shown, err := g.store.OnboardingShown(user.ID)
	if err != nil {
		g.logger.Warn("onboarding flag read failed", zap.Error(err))
		return false
	}
	return !shown
}

// MarkShown records that the flow was completed or explicitly skipped for
// the user. Idempotent; the record survives logout/login of the same
// account.
func (g *OnboardingGate) MarkShown(userID string) {
	if err := g.store.MarkOnboardingShown(userID); err != nil {
		g.logger.Warn("onboarding flag write failed", zap.Error(err))
	}
}
