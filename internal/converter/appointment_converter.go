package converter

import (
	"telemed-backend/internal/delivery/dto"
	"telemed-backend/internal/domain/entity"
)

// DocumentToAppointment maps an appointments document onto the Appointment entity
func DocumentToAppointment(doc *entity.Document) *entity.Appointment {
	if doc == nil {
		return nil
	}
	d := doc.Data

	return &entity.Appointment{
		ID:              doc.ID,
		PatientID:       d.String("patientId"),
		PatientName:     d.String("patientName"),
		DoctorID:        d.String("doctorId"),
		DoctorName:      d.String("doctorName"),
		AppointmentDate: d.Time("appointmentDate"),
		Type:            entity.AppointmentType(d.String("type")),
		Status:          entity.AppointmentStatus(d.String("status")),
		Reason:          d.String("reason"),
		Notes:           d.String("notes"),
		Urgency:         entity.Urgency(d.String("urgency")),
		CreatedBy:       d.String("createdBy"),
		CallStartTime:   d.TimePtr("callStartTime"),
		CallEndTime:     d.TimePtr("callEndTime"),
		Duration:        d.Int("duration"),
		CreatedAt:       d.Time(entity.FieldCreatedAt),
		UpdatedAt:       d.Time(entity.FieldUpdatedAt),
	}
}

// DocumentsToAppointments converts a slice of appointments documents
func DocumentsToAppointments(docs []entity.Document) []entity.Appointment {
	appointments := make([]entity.Appointment, len(docs))
	for i := range docs {
		appointments[i] = *DocumentToAppointment(&docs[i])
	}
	return appointments
}

// AppointmentToDocument renders the stored fields of a new appointment
func AppointmentToDocument(a *entity.Appointment) entity.JSON {
	return entity.JSON{
		"patientId":       a.PatientID,
		"patientName":     a.PatientName,
		"doctorId":        a.DoctorID,
		"doctorName":      a.DoctorName,
		"appointmentDate": a.AppointmentDate.UTC(),
		"type":            string(a.Type),
		"status":          string(a.Status),
		"reason":          a.Reason,
		"notes":           a.Notes,
		"urgency":         string(a.Urgency),
		"createdBy":       a.CreatedBy,
	}
}

// AppointmentToResponse converts an Appointment entity to AppointmentResponse DTO
func AppointmentToResponse(a *entity.Appointment) *dto.AppointmentResponse {
	if a == nil {
		return nil
	}

	return &dto.AppointmentResponse{
		ID:              a.ID,
		PatientID:       a.PatientID,
		PatientName:     a.PatientName,
		DoctorID:        a.DoctorID,
		DoctorName:      a.DoctorName,
		AppointmentDate: a.AppointmentDate,
		Type:            string(a.Type),
		Status:          string(a.Status),
		Reason:          a.Reason,
		Notes:           a.Notes,
		Urgency:         string(a.Urgency),
		CreatedBy:       a.CreatedBy,
		CallStartTime:   a.CallStartTime,
		CallEndTime:     a.CallEndTime,
		Duration:        a.Duration,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

// AppointmentsToResponses converts a slice of Appointment entities to slice of AppointmentResponse DTOs
func AppointmentsToResponses(appointments []entity.Appointment) []dto.AppointmentResponse {
	responses := make([]dto.AppointmentResponse, len(appointments))
	for i := range appointments {
		responses[i] = *AppointmentToResponse(&appointments[i])
	}
	return responses
}
