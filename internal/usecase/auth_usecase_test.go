package usecase

import (
	"context"
	"testing"
	"time"

	"whatsapp-booking-bot/config"
	"whatsapp-booking-bot/internal/delivery/dto"
	"whatsapp-booking-bot/pkg/jwt"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthFixture(t *testing.T) (AuthUsecase, *jwt.JWTService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	jwtService := jwt.NewJWTService(config.JWTConfig{Secret: "test-secret", AccessExpiry: 15 * time.Minute})
	uc := NewAuthUsecase(newTestLogger(), config.AdminConfig{Username: "admin", PasswordHash: string(hash)}, jwtService, client)
	return uc, jwtService, mr
}

func TestLoginStoresTokenAndLogoutRevokes(t *testing.T) {
	uc, jwtService, mr := newAuthFixture(t)
	ctx := context.Background()

	token, err := uc.Login(ctx, &dto.LoginRequest{Username: "admin", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.Equal(t, int64(900), token.ExpiresIn)

	claims, err := jwtService.ValidateToken(token.AccessToken)
	require.NoError(t, err)
	key := AccessTokenKey("admin", claims.TokenID)
	assert.True(t, mr.Exists(key))
	assert.Equal(t, 15*time.Minute, mr.TTL(key))

	require.NoError(t, uc.Logout(ctx, claims.Username, claims.TokenID))
	assert.False(t, mr.Exists(key))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	uc, _, mr := newAuthFixture(t)

	_, err := uc.Login(context.Background(), &dto.LoginRequest{Username: "admin", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = uc.Login(context.Background(), &dto.LoginRequest{Username: "root", Password: "s3cret"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.Empty(t, mr.Keys())
}

func TestLoginWithoutConfiguredAdmin(t *testing.T) {
	uc := NewAuthUsecase(newTestLogger(), config.AdminConfig{Username: "admin"}, jwt.NewJWTService(config.JWTConfig{Secret: "x"}), nil)

	_, err := uc.Login(context.Background(), &dto.LoginRequest{Username: "admin", Password: "anything"})
	assert.ErrorIs(t, err, ErrAdminNotConfigured)
}
