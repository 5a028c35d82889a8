package session

import (
	"testing"

	"github.com/vibesocial/backend/domain"
)

func TestOnboardingGate(t *testing.T) {
	store := newFakeStore()
	gate := NewOnboardingGate(store, nil)

	fresh := &domain.User{ID: "u-1"}
	if !gate.ShouldShow(fresh) {
		t.Fatal("fresh user not offered onboarding")
	}

	// Server says done: never show, regardless of local state.
	done := &domain.User{ID: "u-2", OnboardingCompleted: true}
	if gate.ShouldShow(done) {
		t.Fatal("completed user offered onboarding")
	}

	// Local shown record suppresses the flow even if the server flag lags.
	gate.MarkShown("u-1")
	if gate.ShouldShow(fresh) {
		t.Fatal("locally shown user offered onboarding again")
	}

	if gate.ShouldShow(nil) {
		t.Fatal("nil user offered onboarding")
	}
}

func TestOnboardingShownSurvivesSessionTeardown(t *testing.T) {
	m, store, _, _, _ := newTestManager(t, Config{})
	gate := NewOnboardingGate(store, nil)

	user := testUser()
	if err := m.Login(user, "tok"); err != nil {
		t.Fatalf("login: %v", err)
	}
	gate.MarkShown(user.ID)
	m.Logout(false)

	// Same account logs back in: the flow is not replayed.
	if err := m.Login(testUser(), "tok-2"); err != nil {
		t.Fatalf("relogin: %v", err)
	}
	if gate.ShouldShow(m.User()) {
		t.Fatal("onboarding replayed after logout/login")
	}
}
