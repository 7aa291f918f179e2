package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"careercompass/internal/entity"
	"careercompass/internal/repository"
	"careercompass/pkg/jwt"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRefreshTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]entity.RefreshToken
}

func newFakeRefreshTokenRepo() *fakeRefreshTokenRepo {
	return &fakeRefreshTokenRepo{tokens: make(map[string]entity.RefreshToken)}
}

func (r *fakeRefreshTokenRepo) Create(_ context.Context, token entity.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token.Id = uuid.NewString()
	token.CreatedAt = time.Now()
	r.tokens[token.Token] = token
	return nil
}

func (r *fakeRefreshTokenRepo) GetByToken(_ context.Context, token string) (entity.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.tokens[token]
	if !ok {
		return entity.RefreshToken{}, repository.ErrRefreshTokenNotFound
	}
	return rt, nil
}

func (r *fakeRefreshTokenRepo) Revoke(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.tokens[token]
	if !ok {
		return repository.ErrRefreshTokenNotFound
	}
	now := time.Now()
	rt.IsRevoked = true
	rt.RevokedAt = &now
	r.tokens[token] = rt
	return nil
}

func (r *fakeRefreshTokenRepo) RevokeAllByUserId(_ context.Context, userId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for key, rt := range r.tokens {
		if rt.UserId == userId && !rt.IsRevoked {
			rt.IsRevoked = true
			rt.RevokedAt = &now
			r.tokens[key] = rt
		}
	}
	return nil
}

func newAuthFixture() (AuthUsecase, *fakeUserRepo, *fakeRefreshTokenRepo) {
	userRepo := newFakeUserRepo()
	tokenRepo := newFakeRefreshTokenRepo()
	manager := jwt.NewJWTManager("test-secret", 15*time.Minute, 30*24*time.Hour)
	return NewAuthUsecase(userRepo, tokenRepo, manager), userRepo, tokenRepo
}

func registerReq(role string) entity.RegisterRequest {
	return entity.RegisterRequest{
		Username: "mina",
		Email:    "mina@example.com",
		Password: "s3cret-pass",
		Name:     "Mina Mentee",
		Role:     role,
	}
}

func TestRegister_IssuesTokensAndDefaultsRole(t *testing.T) {
	uc, _, tokenRepo := newAuthFixture()
	ctx := context.Background()

	resp, err := uc.Register(ctx, registerReq(""))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, entity.RoleMentee, resp.User.Role)
	assert.Empty(t, resp.User.Password)
	assert.True(t, resp.User.IsActive)

	// Refresh token is persisted for rotation.
	stored, err := tokenRepo.GetByToken(ctx, resp.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.Id, stored.UserId)

	// Access token round-trips through validation.
	claims, err := uc.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.Id, claims.UserId)
	assert.Equal(t, entity.RoleMentee, claims.Role)
}

func TestRegister_RejectsReservedRoleAndDuplicates(t *testing.T) {
	uc, _, _ := newAuthFixture()
	ctx := context.Background()

	_, err := uc.Register(ctx, registerReq(entity.RoleAdmin))
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = uc.Register(ctx, registerReq(entity.RoleMentor))
	require.NoError(t, err)

	dup := registerReq(entity.RoleMentee)
	_, err = uc.Register(ctx, dup)
	assert.ErrorIs(t, err, ErrEmailAlreadyTaken)

	dup.Email = "other@example.com"
	_, err = uc.Register(ctx, dup)
	assert.ErrorIs(t, err, ErrUsernameAlreadyTaken)
}

func TestLogin_VerifiesPassword(t *testing.T) {
	uc, _, _ := newAuthFixture()
	ctx := context.Background()

	_, err := uc.Register(ctx, registerReq(""))
	require.NoError(t, err)

	resp, err := uc.Login(ctx, entity.LoginRequest{Email: "mina@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	_, err = uc.Login(ctx, entity.LoginRequest{Email: "mina@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = uc.Login(ctx, entity.LoginRequest{Email: "nobody@example.com", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshToken_RotatesAndRevokes(t *testing.T) {
	uc, _, tokenRepo := newAuthFixture()
	ctx := context.Background()

	first, err := uc.Register(ctx, registerReq(""))
	require.NoError(t, err)

	second, err := uc.RefreshToken(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// The used token is revoked and cannot be replayed.
	used, err := tokenRepo.GetByToken(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.True(t, used.IsRevoked)

	_, err = uc.RefreshToken(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrRevokedRefreshToken)

	_, err = uc.RefreshToken(ctx, "never-issued")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestLogoutAllDevices(t *testing.T) {
	uc, _, tokenRepo := newAuthFixture()
	ctx := context.Background()

	reg, err := uc.Register(ctx, registerReq(""))
	require.NoError(t, err)
	login, err := uc.Login(ctx, entity.LoginRequest{Email: "mina@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	require.NoError(t, uc.LogoutAllDevices(ctx, reg.User.Id))

	for _, token := range []string{reg.RefreshToken, login.RefreshToken} {
		stored, err := tokenRepo.GetByToken(ctx, token)
		require.NoError(t, err)
		assert.True(t, stored.IsRevoked)
	}
}
