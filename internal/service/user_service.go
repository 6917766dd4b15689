package service

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prn-tf/photoshare/internal/domain"
	"github.com/prn-tf/photoshare/internal/metrics"
	"github.com/prn-tf/photoshare/internal/pkg/crypto"
	"github.com/prn-tf/photoshare/internal/repository"
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) error
}

var _ PasswordHasher = (*crypto.PasswordHasher)(nil)

// UserService handles registration, login and logout.
type UserService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	hasher      PasswordHasher
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// NewUserService creates a new UserService. m may be nil.
func NewUserService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	hasher PasswordHasher,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		hasher:      hasher,
		metrics:     m,
		logger:      logger.With().Str("service", "user").Logger(),
	}
}

// RegisterInput contains the data needed to register a user.
type RegisterInput struct {
	Name     string
	Username string
	Password string
}

// RegisterOutput contains the session created for a new user.
type RegisterOutput struct {
	SessionID uuid.UUID
	UserID    int64
	Name      string
}

// Register creates a user together with its first session.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*RegisterOutput, error) {
	if err := validateCredentials(input.Username, input.Password); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("%w: failed to hash password", ErrInternalError)
	}

	user := domain.NewUser(input.Name, input.Username, passwordHash)
	session := domain.NewSession(0)

	if err := s.userRepo.CreateWithSession(ctx, user, session); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("username", input.Username).Msg("failed to create user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.metrics.RecordRegistration()
	s.logger.Info().
		Int64("user_id", user.ID).
		Str("username", user.Username).
		Msg("user registered")

	return &RegisterOutput{
		SessionID: session.ID,
		UserID:    user.ID,
		Name:      user.Name,
	}, nil
}

// LoginInput contains login credentials.
type LoginInput struct {
	Username string
	Password string
}

// LoginOutput contains the session created by a successful login.
type LoginOutput struct {
	SessionID uuid.UUID
	UserID    int64
	Name      string
}

// Login verifies credentials and opens a new session. Existing sessions of
// the user stay valid.
func (s *UserService) Login(ctx context.Context, input LoginInput) (*LoginOutput, error) {
	user, err := s.userRepo.GetByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.metrics.RecordLoginFailure("unknown_user")
			s.logger.Debug().Str("username", input.Username).Msg("login for unknown user")
			return nil, err
		}
		s.logger.Error().Err(err).Str("username", input.Username).Msg("failed to load user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if err := s.hasher.Verify(user.PasswordHash, input.Password); err != nil {
		if !errors.Is(err, crypto.ErrMismatchedPassword) {
			s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("stored password hash is unusable")
		}
		s.metrics.RecordLoginFailure("bad_password")
		s.logger.Debug().Str("username", input.Username).Msg("invalid password during login")
		return nil, domain.ErrInvalidCredentials
	}

	session := domain.NewSession(user.ID)
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to create session")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.metrics.RecordLogin()
	s.logger.Info().
		Int64("user_id", user.ID).
		Str("username", user.Username).
		Msg("user logged in")

	return &LoginOutput{
		SessionID: session.ID,
		UserID:    user.ID,
		Name:      user.Name,
	}, nil
}

// Logout revokes the session the request was authenticated with.
func (s *UserService) Logout(ctx context.Context, identity *domain.Identity) error {
	if identity == nil {
		return domain.ErrAuthenticationRequired
	}

	if err := s.sessionRepo.Delete(ctx, identity.SessionID, identity.User.ID); err != nil {
		s.logger.Error().Err(err).Int64("user_id", identity.User.ID).Msg("failed to delete session")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("user_id", identity.User.ID).Msg("user logged out")
	return nil
}

// validateCredentials enforces the minimum lengths, counted in characters.
func validateCredentials(username, password string) error {
	if utf8.RuneCountInString(password) < domain.MinPasswordLength {
		return domain.ErrPasswordTooShort
	}
	if utf8.RuneCountInString(username) < domain.MinUsernameLength {
		return domain.ErrUsernameTooShort
	}
	return nil
}
