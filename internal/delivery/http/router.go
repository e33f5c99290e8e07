package http

import (
	"net/http"

	"telemed-backend/internal/delivery/http/handler"
	"telemed-backend/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
)

type Router struct {
	router              *mux.Router
	userHandler         *handler.UserHandler
	appointmentHandler  *handler.AppointmentHandler
	consultationHandler *handler.ConsultationHandler
	chatHandler         *handler.ChatHandler
	videoCallHandler    *handler.VideoCallHandler
	dashboardHandler    *handler.DashboardHandler
	authMiddleware      *middleware.AuthMiddleware
	corsMiddleware      *middleware.CORSMiddleware
}

type Handlers struct {
	User         *handler.UserHandler
	Appointment  *handler.AppointmentHandler
	Consultation *handler.ConsultationHandler
	Chat         *handler.ChatHandler
	VideoCall    *handler.VideoCallHandler
	Dashboard    *handler.DashboardHandler
}

func NewRouter(
	handlers Handlers,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
) *Router {
	return &Router{
		router:              mux.NewRouter(),
		userHandler:         handlers.User,
		appointmentHandler:  handlers.Appointment,
		consultationHandler: handlers.Consultation,
		chatHandler:         handlers.Chat,
		videoCallHandler:    handlers.VideoCall,
		dashboardHandler:    handlers.Dashboard,
		authMiddleware:      authMiddleware,
		corsMiddleware:      corsMiddleware,
	}
}

func (r *Router) Setup() *mux.Router {
	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Own profile: any authenticated identity, registered or not
	me := api.PathPrefix("/users/me").Subrouter()
	me.Use(r.authMiddleware.Authenticate)
	me.HandleFunc("", r.userHandler.Register).Methods(http.MethodPost)
	me.HandleFunc("", r.userHandler.GetMe).Methods(http.MethodGet)
	me.HandleFunc("", r.userHandler.UpdateMe).Methods(http.MethodPut)

	// Everything else needs a registered role
	protected := api.NewRoute().Subrouter()
	protected.Use(r.authMiddleware.Authenticate)
	protected.Use(middleware.RequireRegistered)

	// Directory
	protected.HandleFunc("/users/doctors", r.userHandler.GetDoctors).Methods(http.MethodGet)
	protected.HandleFunc("/users/search", r.userHandler.Search).Methods(http.MethodGet)
	protected.HandleFunc("/users/{id}", r.userHandler.GetUser).Methods(http.MethodGet)

	// Appointments
	protected.HandleFunc("/appointments", r.appointmentHandler.CreateAppointment).Methods(http.MethodPost)
	protected.HandleFunc("/appointments", r.appointmentHandler.GetMyAppointments).Methods(http.MethodGet)
	protected.HandleFunc("/appointments/stream", r.appointmentHandler.StreamAppointments).Methods(http.MethodGet)
	protected.HandleFunc("/appointments/{id}", r.appointmentHandler.GetAppointment).Methods(http.MethodGet)
	protected.HandleFunc("/appointments/{id}", r.appointmentHandler.UpdateAppointment).Methods(http.MethodPatch)
	protected.HandleFunc("/appointments/{id}/history", r.appointmentHandler.GetAppointmentHistory).Methods(http.MethodGet)

	// Consultations (writes are doctor only)
	protected.HandleFunc("/consultations", r.consultationHandler.GetMyConsultations).Methods(http.MethodGet)
	protected.HandleFunc("/consultations/{id}", r.consultationHandler.GetConsultation).Methods(http.MethodGet)
	protected.HandleFunc("/consultations/{id}/history", r.consultationHandler.GetConsultationHistory).Methods(http.MethodGet)

	doctor := protected.NewRoute().Subrouter()
	doctor.Use(middleware.RequireDoctor)
	doctor.HandleFunc("/consultations", r.consultationHandler.CreateConsultation).Methods(http.MethodPost)
	doctor.HandleFunc("/consultations/{id}", r.consultationHandler.UpdateConsultation).Methods(http.MethodPatch)
	doctor.HandleFunc("/consultations/{id}/notes", r.consultationHandler.AddNote).Methods(http.MethodPost)

	// Chat
	protected.HandleFunc("/chat/rooms", r.chatHandler.CreateRoom).Methods(http.MethodPost)
	protected.HandleFunc("/chat/rooms", r.chatHandler.GetMyRooms).Methods(http.MethodGet)
	protected.HandleFunc("/chat/rooms/{id}/messages", r.chatHandler.GetMessages).Methods(http.MethodGet)
	protected.HandleFunc("/chat/rooms/{id}/messages", r.chatHandler.SendMessage).Methods(http.MethodPost)
	protected.HandleFunc("/chat/rooms/{id}/stream", r.chatHandler.StreamMessages).Methods(http.MethodGet)

	// Video calls
	protected.HandleFunc("/video-calls", r.videoCallHandler.GetAvailableCalls).Methods(http.MethodGet)
	protected.HandleFunc("/video-calls/{id}/start", r.videoCallHandler.StartCall).Methods(http.MethodPost)
	protected.HandleFunc("/video-calls/{id}/end", r.videoCallHandler.EndCall).Methods(http.MethodPost)

	// Dashboard
	protected.HandleFunc("/dashboard/stats", r.dashboardHandler.GetStats).Methods(http.MethodGet)

	// Add CORS middleware
	r.router.Use(r.corsMiddleware.Handle)

	return r.router
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
