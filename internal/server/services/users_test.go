package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/auctionchat/internal/common"
	"github.com/dmitrijs2005/auctionchat/internal/dbx"
	"github.com/dmitrijs2005/auctionchat/internal/server/config"
	"github.com/dmitrijs2005/auctionchat/internal/server/models"
	"github.com/dmitrijs2005/auctionchat/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/auctionchat/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newUserService(t *testing.T, m repomanager.RepositoryManager) *UserService {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	s := NewUserService(m, cfg)
	s.bcryptCost = bcrypt.MinCost
	return s
}

func TestUserService_RegisterAndLogin(t *testing.T) {
	s := newUserService(t, repomanager.NewMemoryRepositoryManager())
	ctx := context.Background()

	reg, err := s.Register(ctx, "  alice ", "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, reg.UserID)

	uid, err := s.Authenticate(reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.UserID, uid)

	login, err := s.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, reg.UserID, login.UserID)

	_, err = s.Login(ctx, "alice", "wrong-pw")
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = s.Login(ctx, "bob", "secret1")
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = s.Register(ctx, "alice", "secret2")
	assert.ErrorIs(t, err, common.ErrAlreadyExists)
}

func TestUserService_RegisterValidation(t *testing.T) {
	s := newUserService(t, repomanager.NewMemoryRepositoryManager())

	_, err := s.Register(context.Background(), " ", "secret1")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = s.Register(context.Background(), "carol", "123")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestUserService_Authenticate_Expired(t *testing.T) {
	s := newUserService(t, repomanager.NewMemoryRepositoryManager())
	s.accessTokenValidityDuration = -time.Minute

	creds, err := s.issue("u1")
	require.NoError(t, err)

	_, err = s.Authenticate(creds.Token)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

type failingUsers struct{ err error }

func (f failingUsers) Create(context.Context, *models.User) (*models.User, error) { return nil, f.err }
func (f failingUsers) GetUserByLogin(context.Context, string) (*models.User, error) {
	return nil, f.err
}

type failingUsersManager struct {
	*repomanager.MemoryRepositoryManager
	err error
}

func (m failingUsersManager) Users(dbx.DBTX) users.Repository { return failingUsers{m.err} }

func TestUserService_RepositoryErrorsAreWrapped(t *testing.T) {
	boom := errors.New("db down")
	s := newUserService(t, failingUsersManager{repomanager.NewMemoryRepositoryManager(), boom})

	_, err := s.Register(context.Background(), "dave", "secret1")
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "error creating user")

	_, err = s.Login(context.Background(), "dave", "secret1")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, common.ErrUnauthorized)
}
