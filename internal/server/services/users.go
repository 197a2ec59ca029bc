// Package services holds the relay's business logic on top of the
// repositories: accounts, chat operations, media storage and support.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/auctionchat/internal/common"
	"github.com/dmitrijs2005/auctionchat/internal/server/auth"
	"github.com/dmitrijs2005/auctionchat/internal/server/config"
	"github.com/dmitrijs2005/auctionchat/internal/server/models"
	"github.com/dmitrijs2005/auctionchat/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLen = 6
	maxUsernameLen = 64
)

// Credentials are returned by Register and Login.
type Credentials struct {
	UserID string
	Token  string
}

type UserService struct {
	repomanager                 repomanager.RepositoryManager
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	bcryptCost                  int
}

func NewUserService(m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		repomanager:                 m,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		bcryptCost:                  bcrypt.DefaultCost,
	}
}

func validateCredentials(username, password string) error {
	if username == "" || utf8.RuneCountInString(username) > maxUsernameLen {
		return fmt.Errorf("%w: username must be 1-%d characters", common.ErrValidation, maxUsernameLen)
	}
	if len(password) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrValidation, minPasswordLen)
	}
	return nil
}

// Register creates an account and returns a fresh access token.
func (s *UserService) Register(ctx context.Context, username, password string) (*Credentials, error) {
	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	repo := s.repomanager.Users(s.repomanager.DB())

	user, err := repo.Create(ctx, &models.User{UserName: username, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return s.issue(user.ID)
}

// Login verifies the password. Unknown users and wrong passwords both
// yield common.ErrUnauthorized.
func (s *UserService) Login(ctx context.Context, username, password string) (*Credentials, error) {
	repo := s.repomanager.Users(s.repomanager.DB())

	user, err := repo.GetUserByLogin(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, common.ErrUnauthorized
	}

	return s.issue(user.ID)
}

// Authenticate resolves an access token to its user id.
func (s *UserService) Authenticate(token string) (string, error) {
	return auth.GetUserIDFromToken(token, s.jwtSecret)
}

func (s *UserService) issue(userID string) (*Credentials, error) {
	token, err := auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}
	return &Credentials{UserID: userID, Token: token}, nil
}
