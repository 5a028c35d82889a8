package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vibesocial/backend/domain"
)

type memUsers struct {
	byEmail map[string]*domain.User
}

func newMemUsers() *memUsers {
	return &memUsers{byEmail: make(map[string]*domain.User)}
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUsers) Create(ctx context.Context, user *domain.User) error {
	m.byEmail[user.Email] = user
	return nil
}

func (m *memUsers) UpdateProfile(ctx context.Context, user *domain.User) error {
	return nil
}

func (m *memUsers) SetOnboardingCompleted(ctx context.Context, id string) error {
	u, err := m.GetByID(ctx, id)
	if err != nil {
		return err
	}
	u.OnboardingCompleted = true
	return nil
}

type memSessions struct {
	byToken map[string]*domain.Session
}

func newMemSessions() *memSessions {
	return &memSessions{byToken: make(map[string]*domain.Session)}
}

func (m *memSessions) Get(ctx context.Context, token string) (*domain.Session, error) {
	if s, ok := m.byToken[token]; ok {
		return s, nil
	}
	return nil, domain.ErrSessionNotFound
}

func (m *memSessions) Save(ctx context.Context, session *domain.Session) error {
	m.byToken[session.Token] = session
	return nil
}

func (m *memSessions) Delete(ctx context.Context, token string) error {
	delete(m.byToken, token)
	return nil
}

func (m *memSessions) Extend(ctx context.Context, token string, ttlSeconds int) error {
	return nil
}

func newTestUseCase(t *testing.T) (*UseCase, *memUsers, *memSessions) {
	t.Helper()
	users := newMemUsers()
	sessions := newMemSessions()
	uc := New(users, sessions, Config{JWTSecret: "test-secret", JWTIssuer: "test"}, nil)
	return uc, users, sessions
}

func seedUser(t *testing.T, users *memUsers, password string, mutate func(*domain.User)) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &domain.User{
		ID:            "u-1",
		FirstName:     "Ada",
		LastName:      "Lovelace",
		Email:         "ada@example.com",
		IsActive:      true,
		IsVerified:    true,
		AccountStatus: domain.AccountActive,
		PasswordHash:  string(hash),
	}
	if mutate != nil {
		mutate(u)
	}
	users.byEmail[u.Email] = u
	return u
}

func TestRegisterValidation(t *testing.T) {
	uc, _, _ := newTestUseCase(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   RegisterInput
	}{
		{"missing name", RegisterInput{Email: "a@b.c", Password: "Passw0rd"}},
		{"missing email", RegisterInput{FirstName: "A", LastName: "B", Password: "Passw0rd"}},
		{"short password", RegisterInput{FirstName: "A", LastName: "B", Email: "a@b.c", Password: "Pw0"}},
		{"no uppercase", RegisterInput{FirstName: "A", LastName: "B", Email: "a@b.c", Password: "passw0rd"}},
		{"no digit", RegisterInput{FirstName: "A", LastName: "B", Email: "a@b.c", Password: "Password"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.Register(ctx, tc.in)
			require.Error(t, err)
			require.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid), "got %v", err)
		})
	}
}

func TestRegisterCreatesPendingAccount(t *testing.T) {
	uc, users, _ := newTestUseCase(t)
	ctx := context.Background()

	user, err := uc.Register(ctx, RegisterInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "  Ada@Example.com ",
		Password:  "Passw0rd",
	})
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", user.Email, "email not normalized")
	require.Equal(t, domain.AccountPending, user.AccountStatus)
	require.False(t, user.IsVerified)
	require.NotEqual(t, "Passw0rd", user.PasswordHash)
	require.Contains(t, users.byEmail, "ada@example.com")

	_, err = uc.Register(ctx, RegisterInput{
		FirstName: "Other",
		LastName:  "Person",
		Email:     "ada@example.com",
		Password:  "Passw0rd",
	})
	require.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestLoginHappyPath(t *testing.T) {
	uc, users, sessions := newTestUseCase(t)
	seedUser(t, users, "Passw0rd", nil)

	result, err := uc.Login(context.Background(), "ada@example.com", "Passw0rd")
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	require.Equal(t, "bearer", result.TokenType)
	require.Equal(t, "u-1", result.User.ID)

	// A revocable session record exists for the token.
	session, err := sessions.Get(context.Background(), result.Token)
	require.NoError(t, err)
	require.Equal(t, "u-1", session.UserID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	uc, users, _ := newTestUseCase(t)
	seedUser(t, users, "Passw0rd", nil)

	_, err := uc.Login(context.Background(), "ada@example.com", "wrong")
	require.ErrorIs(t, err, domain.ErrBadCredentials)

	// Unknown email gets the same answer so callers cannot probe accounts.
	_, err = uc.Login(context.Background(), "ghost@example.com", "Passw0rd")
	require.ErrorIs(t, err, domain.ErrBadCredentials)
}

func TestLoginGates(t *testing.T) {
	ctx := context.Background()

	t.Run("inactive", func(t *testing.T) {
		uc, users, _ := newTestUseCase(t)
		seedUser(t, users, "Passw0rd", func(u *domain.User) { u.IsActive = false })
		_, err := uc.Login(ctx, "ada@example.com", "Passw0rd")
		require.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden), "got %v", err)
	})

	t.Run("unverified", func(t *testing.T) {
		uc, users, _ := newTestUseCase(t)
		seedUser(t, users, "Passw0rd", func(u *domain.User) { u.IsVerified = false })
		_, err := uc.Login(ctx, "ada@example.com", "Passw0rd")
		require.ErrorIs(t, err, domain.ErrEmailNotVerified)
	})

	for _, status := range []domain.AccountStatus{
		domain.AccountPending, domain.AccountSuspended, domain.AccountBanned,
	} {
		t.Run(string(status), func(t *testing.T) {
			uc, users, _ := newTestUseCase(t)
			seedUser(t, users, "Passw0rd", func(u *domain.User) { u.AccountStatus = status })
			_, err := uc.Login(ctx, "ada@example.com", "Passw0rd")
			require.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden), "got %v", err)
		})
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	uc, users, sessions := newTestUseCase(t)
	seedUser(t, users, "Passw0rd", nil)

	result, err := uc.Login(context.Background(), "ada@example.com", "Passw0rd")
	require.NoError(t, err)

	require.NoError(t, uc.Logout(context.Background(), result.Token))
	_, err = sessions.Get(context.Background(), result.Token)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	// Revoking again is not an error.
	require.NoError(t, uc.Logout(context.Background(), result.Token))
}

func TestCompleteOnboarding(t *testing.T) {
	uc, users, _ := newTestUseCase(t)
	seedUser(t, users, "Passw0rd", nil)

	require.NoError(t, uc.CompleteOnboarding(context.Background(), "u-1"))
	u, err := users.GetByID(context.Background(), "u-1")
	require.NoError(t, err)
	require.True(t, u.OnboardingCompleted)

	err = uc.CompleteOnboarding(context.Background(), "u-ghost")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestEmailExists(t *testing.T) {
	uc, users, _ := newTestUseCase(t)
	seedUser(t, users, "Passw0rd", nil)

	exists, err := uc.EmailExists(context.Background(), "ADA@example.com")
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = uc.EmailExists(context.Background(), "ghost@example.com")
	require.NoError(t, err)
	require.False(t, exists)
}
