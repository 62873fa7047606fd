package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"whatsapp-booking-bot/config"
	"whatsapp-booking-bot/internal/delivery/dto"
	"whatsapp-booking-bot/pkg/jwt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAdminNotConfigured = errors.New("admin account is not configured")
)

// AccessTokenKey is the Redis key marking an issued access token as live
func AccessTokenKey(username, tokenID string) string {
	return fmt.Sprintf("access_token:%s:%s", username, tokenID)
}

type AuthUsecase interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Logout(ctx context.Context, username, tokenID string) error
}

type authUsecase struct {
	log         *logrus.Logger
	admin       config.AdminConfig
	jwtService  *jwt.JWTService
	redisClient *redis.Client
}

func NewAuthUsecase(
	log *logrus.Logger,
	admin config.AdminConfig,
	jwtService *jwt.JWTService,
	redisClient *redis.Client,
) AuthUsecase {
	return &authUsecase{
		log:         log,
		admin:       admin,
		jwtService:  jwtService,
		redisClient: redisClient,
	}
}

func (u *authUsecase) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	if u.admin.PasswordHash == "" {
		return nil, ErrAdminNotConfigured
	}

	// Verify username and password; both checks always run
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(u.admin.Username)) == 1
	passErr := bcrypt.CompareHashAndPassword([]byte(u.admin.PasswordHash), []byte(req.Password))
	if !userOK || passErr != nil {
		return nil, ErrInvalidCredentials
	}

	accessToken, tokenID, err := u.jwtService.GenerateAccessToken(u.admin.Username, jwt.RoleAdmin)
	if err != nil {
		u.log.Warnf("Failed to generate access token: %+v", err)
		return nil, err
	}

	if err := u.redisClient.Set(ctx, AccessTokenKey(u.admin.Username, tokenID), "valid", u.jwtService.GetAccessExpiry()).Err(); err != nil {
		u.log.Warnf("Failed to store access token in Redis: %+v", err)
		return nil, err
	}

	u.log.Infof("Admin logged in: %s", u.admin.Username)
	return &dto.TokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(u.jwtService.GetAccessExpiry().Seconds()),
	}, nil
}

func (u *authUsecase) Logout(ctx context.Context, username, tokenID string) error {
	if err := u.redisClient.Del(ctx, AccessTokenKey(username, tokenID)).Err(); err != nil {
		u.log.Warnf("Failed to revoke access token: %+v", err)
		return err
	}
	return nil
}
