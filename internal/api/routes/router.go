package routes

import (
	"net/http"
	"time"

	"github.com/medconnect/clinic-backend/internal/api/handlers"
	"github.com/medconnect/clinic-backend/internal/api/middleware"
	"github.com/medconnect/clinic-backend/internal/domain/entities"
	"github.com/medconnect/clinic-backend/internal/infrastructure/observability"
)

const (
	fieldsCacheTTL    = time.Hour
	directoryCacheTTL = 30 * time.Second
)

// Handlers groups every HTTP handler served by the API
type Handlers struct {
	Auth          *handlers.AuthHandler
	Profile       *handlers.ProfileHandler
	Availability  *handlers.AvailabilityHandler
	Appointment   *handlers.AppointmentHandler
	Message       *handlers.MessageHandler
	Notification  *handlers.NotificationHandler
	Article       *handlers.ArticleHandler
	Event         *handlers.EventHandler
	Dashboard     *handlers.DashboardHandler
	Notifications *handlers.SSEHandler
}

// Router holds all route handlers
type Router struct {
	mux            *http.ServeMux
	h              Handlers
	verifier       middleware.SessionVerifier
	responseCache  *middleware.ResponseCache
	metrics        *observability.Metrics
	allowedOrigins []string
	ready          func(*http.Request) error
}

// NewRouter creates a new router. responseCache may be nil.
func NewRouter(
	h Handlers,
	verifier middleware.SessionVerifier,
	responseCache *middleware.ResponseCache,
	metrics *observability.Metrics,
	allowedOrigins []string,
	ready func(*http.Request) error,
) *Router {
	return &Router{
		mux:            http.NewServeMux(),
		h:              h,
		verifier:       verifier,
		responseCache:  responseCache,
		metrics:        metrics,
		allowedOrigins: allowedOrigins,
		ready:          ready,
	}
}

func (r *Router) authed(fn http.HandlerFunc) http.Handler {
	return middleware.Authenticate(r.verifier)(fn)
}

func (r *Router) role(fn http.HandlerFunc, roles ...entities.Role) http.Handler {
	return middleware.Authenticate(r.verifier)(middleware.RequireRole(roles...)(fn))
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", r.health)

	// Identity
	auth := r.h.Auth
	r.mux.Handle("POST /auth/admins", auth.Register(entities.RoleAdmin))
	r.mux.Handle("POST /auth/doctors", auth.Register(entities.RoleDoctor))
	r.mux.Handle("POST /auth/clients", auth.Register(entities.RoleClient))
	r.mux.HandleFunc("POST /auth/login", auth.Login)
	r.mux.HandleFunc("POST /auth/verify", auth.Verify)
	r.mux.Handle("GET /auth/profile", r.authed(auth.GetProfile))
	r.mux.Handle("POST /auth/send-otp", r.authed(auth.SendOTP))
	r.mux.Handle("POST /auth/verify-otp", r.authed(auth.VerifyOTP))
	r.mux.Handle("PUT /auth/change-password", r.authed(auth.ChangePassword))
	r.mux.Handle("PUT /auth/change-profile-picture", r.authed(auth.ChangeProfilePicture))

	// Profiles
	profile := r.h.Profile
	r.mux.Handle("GET /admin/profile", r.role(profile.GetAdminProfile, entities.RoleAdmin))
	r.mux.Handle("PUT /admin/profile", r.role(profile.UpdateProfile(entities.RoleAdmin), entities.RoleAdmin))
	r.mux.Handle("GET /admin/admins", r.authed(profile.ListAdmins))
	r.mux.Handle("PUT /admin/users/{id}/status", r.role(profile.SetUserStatus, entities.RoleAdmin))
	r.mux.Handle("GET /client/all", r.role(profile.ListClients, entities.RoleAdmin, entities.RoleDoctor))
	r.mux.Handle("PUT /client/profile", r.role(profile.UpdateProfile(entities.RoleClient), entities.RoleClient))
	r.mux.Handle("GET /doctor/all", r.authed(r.cached(directoryCacheTTL, profile.ListDoctors).ServeHTTP))
	r.mux.Handle("GET /doctor/doctor-by-id", r.role(profile.GetOwnDoctor, entities.RoleDoctor))
	r.mux.Handle("PUT /doctor/profile", r.role(profile.UpdateProfile(entities.RoleDoctor), entities.RoleDoctor))
	r.mux.Handle("GET /doctor/fields", r.cached(fieldsCacheTTL, profile.ListFields))
	r.mux.Handle("GET /doctor/dashboard", r.role(r.h.Dashboard.DoctorDashboard, entities.RoleDoctor))
	r.mux.Handle("GET /doctor/stats", r.role(r.h.Dashboard.DoctorStats, entities.RoleDoctor))

	// Availability
	availability := r.h.Availability
	r.mux.Handle("GET /doctor/availability", r.authed(availability.ListSlots))
	r.mux.Handle("POST /doctor/availability", r.role(availability.DeclareSlot, entities.RoleDoctor, entities.RoleAdmin))
	r.mux.Handle("GET /doctor/available-times", r.authed(availability.AvailableTimes))

	// Appointments
	appointment := r.h.Appointment
	r.mux.Handle("GET /appointments", r.authed(appointment.ListMine))
	r.mux.Handle("POST /appointments", r.role(appointment.RequestAppointment, entities.RoleClient))
	r.mux.Handle("GET /appointments/doctor", r.role(appointment.ListForDoctor, entities.RoleDoctor, entities.RoleAdmin))
	r.mux.Handle("GET /appointments/client", r.role(appointment.ListForClient, entities.RoleClient))
	r.mux.Handle("GET /appointments/stats/{year}", r.role(appointment.MonthlyCounts, entities.RoleAdmin))
	r.mux.Handle("PUT /appointments/{id}/decision", r.role(appointment.Decide, entities.RoleDoctor, entities.RoleAdmin))
	r.mux.Handle("PUT /appointments/{id}/complete", r.role(appointment.Complete, entities.RoleDoctor, entities.RoleAdmin))
	r.mux.Handle("PUT /appointments/{id}/cancel", r.authed(appointment.Cancel))

	// Messaging
	message := r.h.Message
	r.mux.Handle("POST /messages/client", r.authed(message.SendAsClient))
	r.mux.Handle("POST /messages/doctor", r.authed(message.SendAsDoctor))
	r.mux.Handle("POST /messages/admin", r.authed(message.SendToAdmins))
	r.mux.Handle("GET /messages/admin", r.role(message.Partners, entities.RoleAdmin))
	r.mux.Handle("GET /messages/partners", r.authed(message.Partners))
	r.mux.Handle("GET /messages/stats", r.authed(message.Stats))
	r.mux.Handle("GET /messages/{user1}/{user2}", r.authed(message.Conversation))
	r.mux.Handle("PUT /messages/read/{id}", r.authed(message.MarkAsRead))
	r.mux.Handle("PUT /messages/conversations/{partnerId}/read", r.authed(message.MarkConversationRead))

	// Notifications
	notification := r.h.Notification
	r.mux.Handle("GET /notifications", r.authed(notification.List))
	r.mux.Handle("GET /notifications/unread-count", r.authed(notification.UnreadCount))
	r.mux.Handle("PUT /notifications/{id}/read", r.authed(notification.MarkReadByID))
	r.mux.Handle("PUT /notifications/read", r.authed(notification.MarkRead))
	if r.h.Notifications != nil {
		r.mux.Handle("GET /notifications/stream", r.authed(r.h.Notifications.StreamNotifications))
	}

	// Articles
	article := r.h.Article
	r.mux.Handle("GET /articles", r.authed(article.List))
	r.mux.Handle("POST /articles", r.role(article.Create, entities.RoleDoctor, entities.RoleAdmin))
	r.mux.Handle("GET /articles/{id}", r.authed(article.Get))
	r.mux.Handle("POST /articles/like", r.authed(article.ToggleLike))
	r.mux.Handle("POST /articles/comments", r.authed(article.Comment))
	r.mux.Handle("DELETE /articles/comments/{id}", r.authed(article.DeleteComment))

	// Events
	event := r.h.Event
	r.mux.Handle("GET /events", r.authed(event.List))
	r.mux.Handle("POST /events", r.role(event.Create, entities.RoleAdmin, entities.RoleDoctor))
	r.mux.Handle("GET /events/upcoming", r.authed(event.Upcoming))
	r.mux.Handle("GET /events/stats/{year}", r.authed(event.MonthlyCounts))
	r.mux.Handle("POST /events/{id}/interest", r.authed(event.ToggleInterest))

	// Dashboard
	r.mux.Handle("GET /dashboard/counts", r.authed(r.h.Dashboard.Counts))

	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)
	return handler
}

func (r *Router) cached(ttl time.Duration, fn http.HandlerFunc) http.Handler {
	if r.responseCache == nil {
		return fn
	}
	return r.responseCache.Wrap(ttl, fn)
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.ready != nil {
		if err := r.ready(req); err != nil {
			observability.LoggerFromContext(req.Context()).Warn().Err(err).Msg("Health check failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
