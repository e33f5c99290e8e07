package entity

// DashboardStats summarizes an actor's activity. Fields not relevant to the
// actor's role stay zero.
type DashboardStats struct {
	Role                   Role `json:"role"`
	TotalAppointments      int  `json:"total_appointments"`
	PendingAppointments    int  `json:"pending_appointments,omitempty"`
	CompletedConsultations int  `json:"completed_consultations,omitempty"`
	TotalConsultations     int  `json:"total_consultations,omitempty"`
}
