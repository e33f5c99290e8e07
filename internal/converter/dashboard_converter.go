package converter

import (
	"telemed-backend/internal/delivery/dto"
	"telemed-backend/internal/domain/entity"
)

// DashboardStatsToResponse converts DashboardStats to its response DTO
func DashboardStatsToResponse(stats *entity.DashboardStats) *dto.DashboardStatsResponse {
	if stats == nil {
		return nil
	}

	return &dto.DashboardStatsResponse{
		Role:                   string(stats.Role),
		TotalAppointments:      stats.TotalAppointments,
		PendingAppointments:    stats.PendingAppointments,
		CompletedConsultations: stats.CompletedConsultations,
		TotalConsultations:     stats.TotalConsultations,
	}
}
