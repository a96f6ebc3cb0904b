package auth

import (
	"context"
	"strings"
	"sync"

	"catalog-service/internal/models"
	"catalog-service/internal/repository"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// bcrypt ignores input past 72 bytes; longer passwords are refused instead.
const maxPasswordBytes = 72

type CredentialService struct {
	users  repository.UserRepository
	hasher PasswordHasher
	tokens *Tokens
	log    logrus.FieldLogger

	dummyOnce sync.Once
	dummyHash string
}

func NewCredentialService(users repository.UserRepository, hasher PasswordHasher, tokens *Tokens, log logrus.FieldLogger) *CredentialService {
	return &CredentialService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		log:    log,
	}
}

// Authenticate looks the user up and checks the password. An unknown user
// still pays for one hash comparison so response time does not give the
// username away.
func (s *CredentialService) Authenticate(ctx context.Context, username, password string) (Identity, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidInput) {
			s.compareDummy(password)
			return Identity{}, ErrInvalidCredentials
		}
		return Identity{}, errors.Wrap(err, "look up user")
	}

	ok, err := s.hasher.Check(user.PasswordHash, password)
	if err != nil {
		return Identity{}, errors.Wrapf(err, "check password for user %d", user.ID)
	}
	if !ok {
		return Identity{}, ErrInvalidCredentials
	}

	return Identity{UserID: user.ID, Username: user.Username, IsAdmin: user.IsAdmin}, nil
}

func (s *CredentialService) IssueToken(id Identity) (string, error) {
	return s.tokens.Issue(id)
}

// Login authenticates and issues a token in one step.
func (s *CredentialService) Login(ctx context.Context, username, password string) (string, Identity, error) {
	id, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return "", Identity{}, err
	}

	token, err := s.IssueToken(id)
	if err != nil {
		return "", Identity{}, err
	}

	return token, id, nil
}

// CreateAccount stores a new user. A taken username surfaces as
// repository.ErrDuplicate from the unique constraint.
func (s *CredentialService) CreateAccount(ctx context.Context, username, password string, isAdmin bool) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, errors.Wrap(repository.ErrInvalidInput, "username and password are required")
	}
	if len(password) > maxPasswordBytes {
		return nil, errors.Wrapf(repository.ErrInvalidInput, "password must be at most %d bytes", maxPasswordBytes)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		IsAdmin:      isAdmin,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, errors.Wrapf(err, "create account %q", username)
	}

	s.log.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
		"is_admin": user.IsAdmin,
	}).Info("account created")

	return user, nil
}

func (s *CredentialService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.users.GetAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	return users, nil
}

// EnsureAdmin creates the bootstrap administrator when no administrator
// exists yet. It reports whether an account was created.
func (s *CredentialService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	exists, err := s.users.HasAdmin(ctx)
	if err != nil {
		return false, errors.Wrap(err, "check for administrator")
	}
	if exists {
		return false, nil
	}

	if _, err := s.CreateAccount(ctx, username, password, true); err != nil {
		return false, errors.Wrap(err, "create default administrator")
	}

	s.log.WithField("username", username).Warn("no administrator found, created default administrator; change its password")
	return true, nil
}

func (s *CredentialService) compareDummy(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("dummy-password-for-timing")
		if err != nil {
			s.log.WithError(err).Warn("failed to prepare dummy hash")
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Check(s.dummyHash, password)
	}
}
