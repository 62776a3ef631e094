package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"

	"github.com/rustaceolibre/marketplace-backend/internal/clock"
	"github.com/rustaceolibre/marketplace-backend/internal/models"
	"github.com/rustaceolibre/marketplace-backend/internal/pkg/apperror"
)

// mockAuthRepository реализует AuthRepository для тестов.
type mockAuthRepository struct {
	usersByEmail map[string]*models.User
	usersByID    map[uuid.UUID]*models.User
	sessions     map[string]*models.Session
}

func newMockAuthRepository() *mockAuthRepository {
	return &mockAuthRepository{
		usersByEmail: make(map[string]*models.User),
		usersByID:    make(map[uuid.UUID]*models.User),
		sessions:     make(map[string]*models.Session),
	}
}

func (m *mockAuthRepository) Create(ctx context.Context, user *models.User) error {
	user.ID = uuid.New()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.IsActive = true
	m.usersByEmail[user.Email] = user
	m.usersByID[user.ID] = user
	return nil
}

func (m *mockAuthRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := m.usersByEmail[email]; ok {
		return user, nil
	}
	return nil, apperror.ErrUserNotFound
}

func (m *mockAuthRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := m.usersByID[id]; ok {
		return user, nil
	}
	return nil, apperror.ErrUserNotFound
}

func (m *mockAuthRepository) CreateSession(ctx context.Context, session *models.Session) error {
	session.ID = uuid.New()
	session.CreatedAt = time.Now()
	m.sessions[session.RefreshToken] = session
	return nil
}

func (m *mockAuthRepository) GetSessionByToken(ctx context.Context, token string) (*models.Session, error) {
	if session, ok := m.sessions[token]; ok {
		return session, nil
	}
	return nil, apperror.ErrUnauthorized
}

func (m *mockAuthRepository) DeleteSession(ctx context.Context, refreshToken string) error {
	delete(m.sessions, refreshToken)
	return nil
}

func (m *mockAuthRepository) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID, at time.Time) error {
	if user, ok := m.usersByID[userID]; ok {
		user.LastLoginAt = &at
	}
	return nil
}

func newAuthServiceForTest(repo *mockAuthRepository) *AuthService {
	tm := NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 720*time.Hour, uuid.Nil)
	return NewAuthService(repo, tm, clock.New())
}

func TestAuthService_Register_Success(t *testing.T) {
	repo := newMockAuthRepository()
	svc := newAuthServiceForTest(repo)

	result, err := svc.Register(context.Background(), RegisterInput{
		Email:    "buyer@example.com",
		Password: "Password1",
		Role:     models.RoleBuyer,
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, models.RoleBuyer, result.User.Role)
	assert.NotEmpty(t, result.TokenPair.AccessToken)
	assert.NotEmpty(t, result.TokenPair.RefreshToken)
	// Пароль не хранится в открытом виде.
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(result.User.PasswordHash), []byte("Password1")))
}

func TestAuthService_Register_InvalidRole(t *testing.T) {
	svc := newAuthServiceForTest(newMockAuthRepository())

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "buyer@example.com",
		Password: "Password1",
		Role:     "admin",
	}, nil)
	assert.Error(t, err)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	repo := newMockAuthRepository()
	svc := newAuthServiceForTest(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "buyer@example.com", Password: "Password1", Role: models.RoleBuyer}, nil)
	assert.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Email: "buyer@example.com", Password: "Password1", Role: models.RoleSeller}, nil)
	assert.Error(t, err)
}

func TestAuthService_Register_WeakPassword(t *testing.T) {
	svc := newAuthServiceForTest(newMockAuthRepository())

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "buyer@example.com",
		Password: "short",
		Role:     models.RoleBuyer,
	}, nil)
	assert.Error(t, err)
}

func TestAuthService_Login_Success(t *testing.T) {
	repo := newMockAuthRepository()
	svc := newAuthServiceForTest(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "seller@example.com", Password: "Password1", Role: models.RoleSeller}, nil)
	assert.NoError(t, err)

	result, err := svc.Login(ctx, LoginInput{Email: "seller@example.com", Password: "Password1"}, nil)
	assert.NoError(t, err)
	assert.NotNil(t, result.User.LastLoginAt)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	repo := newMockAuthRepository()
	svc := newAuthServiceForTest(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "seller@example.com", Password: "Password1", Role: models.RoleSeller}, nil)
	assert.NoError(t, err)

	_, err = svc.Login(ctx, LoginInput{Email: "seller@example.com", Password: "Password2"}, nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	svc := newAuthServiceForTest(newMockAuthRepository())

	_, err := svc.Login(context.Background(), LoginInput{Email: "nobody@example.com", Password: "Password1"}, nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
}

func TestAuthService_Refresh_RotatesSession(t *testing.T) {
	repo := newMockAuthRepository()
	svc := newAuthServiceForTest(repo)
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterInput{Email: "buyer@example.com", Password: "Password1", Role: models.RoleBuyer}, nil)
	assert.NoError(t, err)

	oldToken := result.TokenPair.RefreshToken
	pair, err := svc.Refresh(ctx, oldToken, nil)
	assert.NoError(t, err)
	assert.NotEqual(t, oldToken, pair.RefreshToken)

	// Старый токен инвалидирован.
	_, err = svc.Refresh(ctx, oldToken, nil)
	assert.Error(t, err)
}

func TestTokenManager_ParseAccess_Claims(t *testing.T) {
	tm := NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, time.Hour, uuid.Nil)
	user := &models.User{ID: uuid.New(), Role: models.RoleBoth, IsStaff: true}

	pair, _, _, err := tm.GeneratePair(user)
	assert.NoError(t, err)

	claims, err := tm.ParseAccess(pair.AccessToken)
	assert.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleBoth, claims.Role)
	assert.True(t, claims.IsStaff)
}

func TestTokenManager_ParseAccess_WrongSecret(t *testing.T) {
	tm := NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, time.Hour, uuid.Nil)
	other := NewTokenManager("other-secret", "refresh-secret", 15*time.Minute, time.Hour, uuid.Nil)
	user := &models.User{ID: uuid.New(), Role: models.RoleBuyer}

	pair, _, _, err := tm.GeneratePair(user)
	assert.NoError(t, err)

	_, err = other.ParseAccess(pair.AccessToken)
	assert.Error(t, err)
}
