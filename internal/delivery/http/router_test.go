package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"whatsapp-booking-bot/config"
	"whatsapp-booking-bot/internal/delivery/dto"
	"whatsapp-booking-bot/internal/delivery/http/handler"
	"whatsapp-booking-bot/internal/delivery/http/middleware"
	"whatsapp-booking-bot/internal/domain/entity"
	"whatsapp-booking-bot/internal/usecase"
	"whatsapp-booking-bot/pkg/jwt"
	"whatsapp-booking-bot/pkg/validator"

	"github.com/alicebob/miniredis/v2"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stubConversation struct{}

func (stubConversation) HandleInbound(ctx context.Context, payload map[string]string) (*dto.WebhookResult, error) {
	return &dto.WebhookResult{Status: usecase.StatusFallback}, nil
}

type stubDoctors struct{}

func (stubDoctors) CreateDoctor(ctx context.Context, actor string, req *dto.CreateDoctorRequest) (*dto.DoctorResponse, error) {
	return &dto.DoctorResponse{Name: req.Name}, nil
}

func (stubDoctors) GetDoctor(ctx context.Context, id uuid.UUID) (*dto.DoctorResponse, error) {
	return nil, usecase.ErrDoctorNotFound
}

func (stubDoctors) GetAllDoctors(ctx context.Context) (*dto.DoctorListResponse, error) {
	return &dto.DoctorListResponse{}, nil
}

func (stubDoctors) EnsureDoctor(ctx context.Context, name, phone string) (*entity.Doctor, bool, error) {
	return nil, false, nil
}

type stubAppointments struct{}

func (stubAppointments) GetDoctorAppointments(ctx context.Context, id uuid.UUID, status string) (*dto.AppointmentListResponse, error) {
	return &dto.AppointmentListResponse{}, nil
}

func (stubAppointments) GetPatientAppointments(ctx context.Context, phone string) (*dto.PatientAppointmentsResponse, error) {
	return nil, usecase.ErrPatientNotFound
}

func (stubAppointments) PreviewSlots(ctx context.Context) *dto.SlotListResponse {
	return &dto.SlotListResponse{}
}

type stubAuditLogs struct{}

func (stubAuditLogs) GetActorAuditLogs(ctx context.Context, actor string) (*dto.AuditLogListResponse, error) {
	return &dto.AuditLogListResponse{}, nil
}

func newTestRouter(t *testing.T, rateLimit config.RateLimitConfig, readiness ...map[string]ReadinessCheck) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	jwtService := jwt.NewJWTService(config.JWTConfig{Secret: "test-secret", AccessExpiry: time.Hour})
	authUsecase := usecase.NewAuthUsecase(log, config.AdminConfig{Username: "admin", PasswordHash: string(hash)}, jwtService, redisClient)
	v := validator.NewValidator()

	return NewRouter(RouterDeps{
		RateLimit:          rateLimit,
		WebhookHandler:     handler.NewWebhookHandler(stubConversation{}, log),
		AuthHandler:        handler.NewAuthHandler(authUsecase, v),
		DoctorHandler:      handler.NewDoctorHandler(stubDoctors{}, stubAppointments{}, v),
		AppointmentHandler: handler.NewAppointmentHandler(stubAppointments{}),
		AuditLogHandler:    handler.NewAuditLogHandler(stubAuditLogs{}),
		AuthMiddleware:     middleware.NewAuthMiddleware(jwtService, redisClient),
		CORSMiddleware:     middleware.NewCORSMiddleware(""),
		SignatureCheck:     middleware.NewTwilioSignatureMiddleware("", "", log),
		MetricsHandler:     http.NotFoundHandler(),
		Readiness:          firstReadiness(readiness),
	}).Setup()
}

func firstReadiness(checks []map[string]ReadinessCheck) map[string]ReadinessCheck {
	if len(checks) == 0 {
		return nil
	}
	return checks[0]
}

func serve(h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if strings.HasPrefix(body, "{") {
		req.Header.Set("Content-Type", "application/json")
	} else if body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndCORS(t *testing.T) {
	r := newTestRouter(t, config.RateLimitConfig{})

	rec := serve(r, http.MethodGet, "/api/v1/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAdminLoginLogoutLifecycle(t *testing.T) {
	r := newTestRouter(t, config.RateLimitConfig{})

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/v1/admin/slots", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodPost, "/api/v1/auth/login", `{"username":"admin","password":"wrong"}`, "").Code)

	rec := serve(r, http.MethodPost, "/api/v1/auth/login", `{"username":"admin","password":"s3cret"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data dto.TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	token := body.Data.AccessToken
	require.NotEmpty(t, token)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/v1/admin/slots", "", token).Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/api/v1/admin/patients/+15550001111/appointments", "", token).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/api/v1/auth/logout", "", token).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/v1/admin/slots", "", token).Code)
}

func TestWebhookRateLimited(t *testing.T) {
	r := newTestRouter(t, config.RateLimitConfig{Requests: 2, Window: time.Minute})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/api/v1/webhook/whatsapp", "Body=hi", "").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodPost, "/api/v1/webhook/whatsapp", "Body=hi", "").Code)
}

func TestReadinessReportsFailingDependency(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("dial tcp: connection refused") }

	r := newTestRouter(t, config.RateLimitConfig{}, map[string]ReadinessCheck{"database": ok, "redis": ok})
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/v1/ready", "", "").Code)

	r = newTestRouter(t, config.RateLimitConfig{}, map[string]ReadinessCheck{"database": ok, "redis": down})
	rec := serve(r, http.MethodGet, "/api/v1/ready", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis")
}
