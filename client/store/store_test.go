package store

import (
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/vibesocial/backend/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "client.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTokenRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if tok, err := s.LoadToken(); err != nil || tok != "" {
		t.Fatalf("fresh store: token=%q err=%v", tok, err)
	}
	if err := s.SaveToken("tok-one"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveToken("tok-two"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	tok, err := s.LoadToken()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tok != "tok-two" {
		t.Fatalf("token = %q, want tok-two", tok)
	}
}

func TestProfileCacheTTL(t *testing.T) {
	s := openTestStore(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	user := &domain.User{ID: "u-1", FirstName: "Ada"}
	if err := s.CacheProfile("sometoken1234", user, 5*time.Minute); err != nil {
		t.Fatalf("cache: %v", err)
	}

	got, err := s.ReadProfile("sometoken1234")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got == nil || got.ID != "u-1" {
		t.Fatalf("profile = %+v", got)
	}

	now = now.Add(5*time.Minute + time.Second)
	got, err = s.ReadProfile("sometoken1234")
	if err != nil {
		t.Fatalf("read after ttl: %v", err)
	}
	if got != nil {
		t.Fatal("expired profile served")
	}

	// The expired entry is removed on read, not merely skipped.
	var raw []byte
	s.db.View(func(tx *bolt.Tx) error {
		raw = tx.Bucket(bucketProfiles).Get(tokenKey("sometoken1234"))
		return nil
	})
	if raw != nil {
		t.Fatal("expired entry still present after read")
	}
}

func TestProfileKeyedByTokenSuffix(t *testing.T) {
	s := openTestStore(t)

	alice := &domain.User{ID: "u-alice"}
	if err := s.CacheProfile("aaaa-token-alice11", alice, time.Hour); err != nil {
		t.Fatalf("cache: %v", err)
	}

	// A different token must not see alice's snapshot.
	got, err := s.ReadProfile("bbbb-token-bob22222")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != nil {
		t.Fatalf("foreign token resolved a profile: %+v", got)
	}
}

func TestInvalidateProfile(t *testing.T) {
	s := openTestStore(t)
	if err := s.CacheProfile("token-123456", &domain.User{ID: "u-1"}, time.Hour); err != nil {
		t.Fatalf("cache: %v", err)
	}
	if err := s.InvalidateProfile("token-123456"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	got, err := s.ReadProfile("token-123456")
	if err != nil || got != nil {
		t.Fatalf("after invalidate: profile=%+v err=%v", got, err)
	}
}

func TestClearKeepsOnboardingFlags(t *testing.T) {
	s := openTestStore(t)
	if err := s.SaveToken("tok"); err != nil {
		t.Fatalf("save token: %v", err)
	}
	if err := s.CacheProfile("tok", &domain.User{ID: "u-1"}, time.Hour); err != nil {
		t.Fatalf("cache: %v", err)
	}
	if err := s.MarkOnboardingShown("u-1"); err != nil {
		t.Fatalf("mark shown: %v", err)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}

	if tok, _ := s.LoadToken(); tok != "" {
		t.Fatalf("token survived clear: %q", tok)
	}
	if got, _ := s.ReadProfile("tok"); got != nil {
		t.Fatal("profile survived clear")
	}
	shown, err := s.OnboardingShown("u-1")
	if err != nil {
		t.Fatalf("shown: %v", err)
	}
	if !shown {
		t.Fatal("onboarding flag lost on clear")
	}
}

func TestLegacyOnboardingKeyPurged(t *testing.T) {
	s := openTestStore(t)

	// Plant a record under the retired key format.
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketOnboarding).Put([]byte(legacyCompletedPrefix+"u-1"), []byte("true"))
	})
	if err != nil {
		t.Fatalf("plant legacy key: %v", err)
	}

	// Legacy keys carry no decision power.
	shown, err := s.OnboardingShown("u-1")
	if err != nil {
		t.Fatalf("shown: %v", err)
	}
	if shown {
		t.Fatal("legacy key treated as a shown record")
	}

	// And reading purged it.
	var raw []byte
	s.db.View(func(tx *bolt.Tx) error {
		raw = tx.Bucket(bucketOnboarding).Get([]byte(legacyCompletedPrefix + "u-1"))
		return nil
	})
	if raw != nil {
		t.Fatal("legacy key not purged")
	}
}

func TestStoreReopens(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.SaveToken("persisted"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	tok, err := s2.LoadToken()
	if err != nil || tok != "persisted" {
		t.Fatalf("after reopen: token=%q err=%v", tok, err)
	}
}
