package auth

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/vibesocial/backend/domain"
	"github.com/vibesocial/backend/repository"
)

// Config carries token-issuing settings.
type Config struct {
	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration
}

type UseCase struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	cfg      Config
	logger   *zap.Logger
}

func New(users repository.UserRepository, sessions repository.SessionRepository, cfg Config, logger *zap.Logger) *UseCase {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		users:    users,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
	}
}

// RegisterInput is the signup payload after transport decoding.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Gender    string
	BirthDate string
	Phone     string
}

var passwordClasses = []*regexp.Regexp{
	regexp.MustCompile(`[a-z]`),
	regexp.MustCompile(`[A-Z]`),
	regexp.MustCompile(`\d`),
}

// Register validates the signup payload and creates an account. New
// accounts are active but unverified: they cannot log in until the email
// is confirmed and the account status flips to active.
func (uc *UseCase) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if in.FirstName == "" || in.LastName == "" || in.Email == "" {
		return nil, domain.NewError(domain.ErrCodeInvalid, "name and email are required")
	}
	if len(in.Password) < 8 {
		return nil, domain.NewError(domain.ErrCodeInvalid, "password must be at least 8 characters")
	}
	for _, class := range passwordClasses {
		if !class.MatchString(in.Password) {
			return nil, domain.NewError(domain.ErrCodeInvalid,
				"password must contain an uppercase letter, a lowercase letter and a digit")
		}
	}

	if _, err := uc.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "password hashing failed", err)
	}

	user := &domain.User{
		ID:            uuid.NewString(),
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Email:         in.Email,
		Gender:        in.Gender,
		BirthDate:     in.BirthDate,
		Phone:         in.Phone,
		IsActive:      true,
		AccountStatus: domain.AccountPending,
		PasswordHash:  string(hash),
	}

	if err := uc.users.Create(ctx, user); err != nil {
		return nil, err
	}

	uc.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// LoginResult pairs the issued token with the authenticated user.
type LoginResult struct {
	Token     string       `json:"access_token"`
	TokenType string       `json:"token_type"`
	User      *domain.User `json:"-"`
}

// Login verifies credentials, enforces the account gates the platform
// applies before issuing a token, and records a revocable session.
func (uc *UseCase) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := uc.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return nil, domain.ErrBadCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrBadCredentials
	}
	if !user.IsActive {
		return nil, domain.NewError(domain.ErrCodeForbidden, "inactive user")
	}
	if !user.IsVerified {
		return nil, domain.ErrEmailNotVerified
	}
	if user.AccountStatus != domain.AccountActive {
		return nil, accountStatusError(user.AccountStatus)
	}

	token, expiresAt, err := uc.issueToken(user)
	if err != nil {
		return nil, err
	}

	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     token,
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
	}
	if err := uc.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	uc.logger.Info("user logged in", zap.String("user_id", user.ID))
	return &LoginResult{Token: token, TokenType: "bearer", User: user}, nil
}

// Me resolves the user behind a live token.
func (uc *UseCase) Me(ctx context.Context, userID string) (*domain.User, error) {
	return uc.users.GetByID(ctx, userID)
}

// Logout revokes the token's session. Revoking an unknown token is not an
// error.
func (uc *UseCase) Logout(ctx context.Context, token string) error {
	return uc.sessions.Delete(ctx, token)
}

// CompleteOnboarding marks the first-run flow complete.
func (uc *UseCase) CompleteOnboarding(ctx context.Context, userID string) error {
	if err := uc.users.SetOnboardingCompleted(ctx, userID); err != nil {
		return err
	}
	uc.logger.Info("onboarding completed", zap.String("user_id", userID))
	return nil
}

// EmailExists reports whether an account exists for the email.
func (uc *UseCase) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := uc.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err == nil {
		return true, nil
	}
	if domain.IsDomainError(err, domain.ErrCodeNotFound) {
		return false, nil
	}
	return false, err
}

func (uc *UseCase) issueToken(user *domain.User) (string, time.Time, error) {
	expiresAt := time.Now().Add(uc.cfg.TokenTTL)
	claims := jwt.MapClaims{
		"sub":     user.Email,
		"user_id": user.ID,
		"iss":     uc.cfg.JWTIssuer,
		"exp":     expiresAt.Unix(),
		"iat":     time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(uc.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, domain.WrapError(domain.ErrCodeInternal, "token signing failed", err)
	}
	return token, expiresAt, nil
}

func accountStatusError(status domain.AccountStatus) error {
	switch status {
	case domain.AccountPending:
		return domain.NewError(domain.ErrCodeForbidden, "account pending activation, confirm your email")
	case domain.AccountSuspended:
		return domain.NewError(domain.ErrCodeForbidden, "account suspended, contact support")
	case domain.AccountBanned:
		return domain.NewError(domain.ErrCodeForbidden, "account banned, contact support")
	default:
		return domain.ErrAccountNotActive
	}
}
