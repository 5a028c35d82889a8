package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/vibesocial/backend/domain"
)

// Bucket layout. Tokens and onboarding flags are single keys; profile cache
// entries are keyed by a token fingerprint so logging in with a different
// token never resurrects another account's snapshot.
var (
	bucketAuth       = []byte("auth")
	bucketProfiles   = []byte("profiles")
	bucketOnboarding = []byte("onboarding")

	keyToken = []byte("token")
)

const (
	// tokenSuffixLen is the number of trailing token bytes used as the
	// profile cache key.
	tokenSuffixLen = 8

	onboardingShownPrefix = "onboarding_shown_"
	// legacyCompletedPrefix is a leftover from a prior design. Entries under
	// it carry no decision power and are deleted whenever encountered.
	legacyCompletedPrefix = "onboarding_completed_"
)

// profileEntry is the persisted (data, storedAt, ttl) triple.
type profileEntry struct {
	Data     domain.User   `json:"data"`
	StoredAt time.Time     `json:"stored_at"`
	TTL      time.Duration `json:"ttl"`
}

func (e *profileEntry) expired(now time.Time) bool {
	return now.After(e.StoredAt.Add(e.TTL))
}

// Store persists the bearer token, cached profile snapshots, and onboarding
// flags across process restarts. All operations are best-effort from the
// session manager's point of view: a write failure never invalidates the
// in-memory session, it only means rehydration will fail after a restart.
type Store struct {
	db *bolt.DB

	// now is swappable for expiry tests.
	now func() time.Time
}

// Open initializes the Bolt file and ensures all buckets exist.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketAuth, bucketProfiles, bucketOnboarding} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

// SaveToken persists the bearer token, overwriting any previous one.
func (s *Store) SaveToken(token string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAuth).Put(keyToken, []byte(token))
	})
}

// LoadToken returns the persisted token, or "" when absent.
func (s *Store) LoadToken() (string, error) {
	var token string
	err := s.db.View(func(tx *bolt.Tx) error {
		token = string(tx.Bucket(bucketAuth).Get(keyToken))
		return nil
	})
	return token, err
}

// Clear removes the token and every cached profile entry. Onboarding flags
// survive: they are keyed by user id so the welcome flow is not replayed on
// the next login of the same account.
func (s *Store) Clear() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketAuth).Delete(keyToken); err != nil {
			return err
		}
		if err := tx.DeleteBucket(bucketProfiles); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketProfiles)
		return err
	})
}

// CacheProfile stores a profile snapshot under the token's fingerprint.
func (s *Store) CacheProfile(token string, user *domain.User, ttl time.Duration) error {
	if user == nil || token == "" {
		return domain.ErrInvalidPayload
	}
	entry := profileEntry{
		Data:     *user,
		StoredAt: s.now(),
		TTL:      ttl,
	}
	payload, err := json.Marshal(&entry)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketProfiles).Put(tokenKey(token), payload)
	})
}

// ReadProfile returns the cached snapshot for the token, or nil when no
// entry exists or the entry's TTL has elapsed. Expired entries are removed
// on read; there is no background sweep.
func (s *Store) ReadProfile(token string) (*domain.User, error) {
	if token == "" {
		return nil, nil
	}
	var user *domain.User
	stale := false
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketProfiles).Get(tokenKey(token))
		if raw == nil {
			return nil
		}
		var entry profileEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			stale = true
			return nil
		}
		if entry.expired(s.now()) {
			stale = true
			return nil
		}
		u := entry.Data
		user = &u
		return nil
	})
	if err != nil {
		return nil, err
	}
	if stale {
		_ = s.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(bucketProfiles).Delete(tokenKey(token))
		})
	}
	return user, nil
}

// InvalidateProfile drops the cached snapshot for the token, forcing the
// next read through to the backend.
func (s *Store) InvalidateProfile(token string) error {
	if token == "" {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketProfiles).Delete(tokenKey(token))
	})
}

// MarkOnboardingShown records that the welcome flow was shown (or skipped)
// for the user. Idempotent.
func (s *Store) MarkOnboardingShown(userID string) error {
	if userID == "" {
		return domain.ErrInvalidPayload
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketOnboarding).Put([]byte(onboardingShownPrefix+userID), []byte("true"))
	})
}

// OnboardingShown reports whether the welcome flow was already shown for
// the user. Encountering a legacy onboarding_completed_<id> key purges it.
func (s *Store) OnboardingShown(userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	var shown, legacy bool
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOnboarding)
		shown = b.Get([]byte(onboardingShownPrefix+userID)) != nil
		legacy = b.Get([]byte(legacyCompletedPrefix+userID)) != nil
		return nil
	})
	if err != nil {
		return false, err
	}
	if legacy {
		_ = s.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(bucketOnboarding).Delete([]byte(legacyCompletedPrefix + userID))
		})
	}
	return shown, nil
}

// Close closes the Bolt database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func tokenKey(token string) []byte {
	if len(token) > tokenSuffixLen {
		token = token[len(token)-tokenSuffixLen:]
	}
	return []byte("user_data_" + token)
}
