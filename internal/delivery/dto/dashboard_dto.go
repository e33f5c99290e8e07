package dto

type DashboardStatsResponse struct {
	Role                   string `json:"role"`
	TotalAppointments      int    `json:"total_appointments"`
	PendingAppointments    int    `json:"pending_appointments"`
	CompletedConsultations int    `json:"completed_consultations"`
	TotalConsultations     int    `json:"total_consultations"`
}
