package http

import (
	"context"
	"net/http"
	"sort"

	"whatsapp-booking-bot/config"
	"whatsapp-booking-bot/internal/delivery/http/handler"
	"whatsapp-booking-bot/internal/delivery/http/middleware"
	"whatsapp-booking-bot/pkg/response"

	"github.com/go-chi/httprate"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	router             *mux.Router
	rateLimit          config.RateLimitConfig
	webhookHandler     *handler.WebhookHandler
	authHandler        *handler.AuthHandler
	doctorHandler      *handler.DoctorHandler
	appointmentHandler *handler.AppointmentHandler
	auditLogHandler    *handler.AuditLogHandler
	authMiddleware     *middleware.AuthMiddleware
	corsMiddleware     *middleware.CORSMiddleware
	signatureCheck     *middleware.TwilioSignatureMiddleware
	metricsHandler     http.Handler
	readiness          map[string]ReadinessCheck
}

// ReadinessCheck reports whether one backing dependency is reachable
type ReadinessCheck func(ctx context.Context) error

type RouterDeps struct {
	RateLimit          config.RateLimitConfig
	WebhookHandler     *handler.WebhookHandler
	AuthHandler        *handler.AuthHandler
	DoctorHandler      *handler.DoctorHandler
	AppointmentHandler *handler.AppointmentHandler
	AuditLogHandler    *handler.AuditLogHandler
	AuthMiddleware     *middleware.AuthMiddleware
	CORSMiddleware     *middleware.CORSMiddleware
	SignatureCheck     *middleware.TwilioSignatureMiddleware
	// MetricsHandler defaults to the global prometheus registry
	MetricsHandler http.Handler
	Readiness      map[string]ReadinessCheck
}

func NewRouter(deps RouterDeps) *Router {
	metricsHandler := deps.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	return &Router{
		router:             mux.NewRouter(),
		rateLimit:          deps.RateLimit,
		webhookHandler:     deps.WebhookHandler,
		authHandler:        deps.AuthHandler,
		doctorHandler:      deps.DoctorHandler,
		appointmentHandler: deps.AppointmentHandler,
		auditLogHandler:    deps.AuditLogHandler,
		authMiddleware:     deps.AuthMiddleware,
		corsMiddleware:     deps.CORSMiddleware,
		signatureCheck:     deps.SignatureCheck,
		metricsHandler:     metricsHandler,
		readiness:          deps.Readiness,
	}
}

func (r *Router) Setup() *mux.Router {
	r.router.Handle("/metrics", r.metricsHandler).Methods(http.MethodGet)

	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)
	api.HandleFunc("/ready", r.readinessCheck).Methods(http.MethodGet)

	// Provider webhook (public, signed, rate limited per IP)
	webhook := api.PathPrefix("/webhook").Subrouter()
	if r.rateLimit.Requests > 0 {
		webhook.Use(httprate.Limit(
			r.rateLimit.Requests,
			r.rateLimit.Window,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
				response.TooManyRequests(w)
			}),
		))
	}
	webhook.Use(r.signatureCheck.Verify)
	webhook.HandleFunc("/whatsapp", r.webhookHandler.Receive).Methods(http.MethodPost)

	// Auth routes
	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", r.authHandler.Login).Methods(http.MethodPost)

	authProtected := api.PathPrefix("/auth").Subrouter()
	authProtected.Use(r.authMiddleware.Authenticate)
	authProtected.HandleFunc("/logout", r.authHandler.Logout).Methods(http.MethodPost)

	// Admin routes (protected - admin only)
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(r.authMiddleware.Authenticate)
	admin.Use(middleware.RequireAdmin)

	admin.HandleFunc("/doctors", r.doctorHandler.CreateDoctor).Methods(http.MethodPost)
	admin.HandleFunc("/doctors", r.doctorHandler.GetAllDoctors).Methods(http.MethodGet)
	admin.HandleFunc("/doctors/{id}", r.doctorHandler.GetDoctor).Methods(http.MethodGet)
	admin.HandleFunc("/doctors/{id}/appointments", r.doctorHandler.GetDoctorAppointments).Methods(http.MethodGet)
	admin.HandleFunc("/patients/{phone}/appointments", r.appointmentHandler.GetPatientAppointments).Methods(http.MethodGet)
	admin.HandleFunc("/patients/{phone}/audit-logs", r.auditLogHandler.GetPatientAuditLogs).Methods(http.MethodGet)
	admin.HandleFunc("/slots", r.appointmentHandler.PreviewSlots).Methods(http.MethodGet)

	r.router.Use(r.corsMiddleware.Handle)

	return r.router
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	names := make([]string, 0, len(r.readiness))
	for name := range r.readiness {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := map[string]string{}
	for _, name := range names {
		if err := r.readiness[name](req.Context()); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		response.Error(w, http.StatusServiceUnavailable, "Dependencies unavailable", failed)
		return
	}
	response.Success(w, http.StatusOK, "Ready", names)
}
