package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/plevandm/repairhub-backend/internal/models"
	"github.com/plevandm/repairhub-backend/internal/pkg/apperror"
)

type mockUserStore struct {
	mock.Mock
}

func (m *mockUserStore) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	if args.Error(0) == nil {
		user.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUserStore) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func newTestTokenManager() *TokenManager {
	return NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
}

func TestAuthService_Register_Success(t *testing.T) {
	users := new(mockUserStore)
	svc := NewAuthService(users, newTestTokenManager())
	ctx := context.Background()

	users.On("GetByEmail", ctx, "ivan@example.com").Return(nil, apperror.ErrUserNotFound)
	users.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(nil)

	result, err := svc.Register(ctx, RegisterInput{
		Email:    "ivan@example.com",
		Password: "Password123",
		Role:     models.RoleMaster,
		City:     "Казань",
	})

	assert.NoError(t, err)
	assert.Equal(t, models.RoleMaster, result.User.Role)
	assert.Equal(t, "ivan", result.User.Username)
	assert.True(t, result.User.IsActive)
	assert.NotEmpty(t, result.TokenPair.AccessToken)
	assert.NotEmpty(t, result.TokenPair.RefreshToken)
	assert.NotEqual(t, "Password123", result.User.PasswordHash)
}

func TestAuthService_Register_DefaultRoleClient(t *testing.T) {
	users := new(mockUserStore)
	svc := NewAuthService(users, newTestTokenManager())
	ctx := context.Background()

	users.On("GetByEmail", ctx, "anna@example.com").Return(nil, apperror.ErrUserNotFound)
	users.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(nil)

	result, err := svc.Register(ctx, RegisterInput{
		Email:    "anna@example.com",
		Password: "Password123",
	})

	assert.NoError(t, err)
	assert.Equal(t, models.RoleClient, result.User.Role)
}

func TestAuthService_Register_AdminForbidden(t *testing.T) {
	svc := NewAuthService(new(mockUserStore), newTestTokenManager())

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "root@example.com",
		Password: "Password123",
		Role:     models.RoleAdmin,
	})

	assert.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	users := new(mockUserStore)
	svc := NewAuthService(users, newTestTokenManager())
	ctx := context.Background()

	users.On("GetByEmail", ctx, "ivan@example.com").Return(&models.User{ID: uuid.New()}, nil)

	_, err := svc.Register(ctx, RegisterInput{
		Email:    "ivan@example.com",
		Password: "Password123",
	})

	assert.Error(t, err)
	assert.True(t, apperror.IsConflict(err))
	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_Register_WeakPassword(t *testing.T) {
	svc := NewAuthService(new(mockUserStore), newTestTokenManager())

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "ivan@example.com",
		Password: "12345",
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "не менее 8 символов")
}

func TestAuthService_Login_Success(t *testing.T) {
	users := new(mockUserStore)
	svc := NewAuthService(users, newTestTokenManager())
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("Password123"), bcrypt.MinCost)
	assert.NoError(t, err)

	user := &models.User{
		ID:           uuid.New(),
		Email:        "ivan@example.com",
		PasswordHash: string(hash),
		Role:         models.RoleClient,
		IsActive:     true,
	}
	users.On("GetByEmail", ctx, "ivan@example.com").Return(user, nil)
	users.On("UpdateLastLoginAt", ctx, user.ID).Return(nil)

	result, err := svc.Login(ctx, LoginInput{Email: "ivan@example.com", Password: "Password123"})

	assert.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)
	assert.NotEmpty(t, result.TokenPair.AccessToken)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	users := new(mockUserStore)
	svc := NewAuthService(users, newTestTokenManager())
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("Password123"), bcrypt.MinCost)
	users.On("GetByEmail", ctx, "ivan@example.com").Return(&models.User{
		ID:           uuid.New(),
		PasswordHash: string(hash),
		IsActive:     true,
	}, nil)

	_, err := svc.Login(ctx, LoginInput{Email: "ivan@example.com", Password: "wrong"})

	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestAuthService_Login_InactiveAccount(t *testing.T) {
	users := new(mockUserStore)
	svc := NewAuthService(users, newTestTokenManager())
	ctx := context.Background()

	users.On("GetByEmail", ctx, "banned@example.com").Return(&models.User{ID: uuid.New(), IsActive: false}, nil)

	_, err := svc.Login(ctx, LoginInput{Email: "banned@example.com", Password: "Password123"})

	assert.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
}

func TestAuthService_Refresh_RoundTrip(t *testing.T) {
	users := new(mockUserStore)
	tm := newTestTokenManager()
	svc := NewAuthService(users, tm)
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), Role: models.RoleClient, IsActive: true}
	pair, err := tm.GeneratePair(user)
	assert.NoError(t, err)

	users.On("GetByID", ctx, user.ID).Return(user, nil)

	fresh, err := svc.Refresh(ctx, pair.RefreshToken)

	assert.NoError(t, err)
	assert.NotEmpty(t, fresh.AccessToken)
	assert.NotEmpty(t, fresh.RefreshToken)
}

func TestAuthService_Refresh_MalformedToken(t *testing.T) {
	svc := NewAuthService(new(mockUserStore), newTestTokenManager())

	_, err := svc.Refresh(context.Background(), "not-a-jwt")

	assert.Error(t, err)
}

func TestDeriveUsername(t *testing.T) {
	assert.Equal(t, "ivan_petrov", deriveUsername("Ivan.Petrov@example.com"))
	assert.Equal(t, "master_1", deriveUsername("master+1@example.com"))
}
