package converter

import (
	"telemed-backend/internal/delivery/dto"
	"telemed-backend/internal/domain/entity"
)

// DocumentToConsultation maps a consultations document onto the Consultation entity
func DocumentToConsultation(doc *entity.Document) *entity.Consultation {
	if doc == nil {
		return nil
	}
	d := doc.Data

	c := &entity.Consultation{
		ID:            doc.ID,
		AppointmentID: d.String("appointmentId"),
		PatientID:     d.String("patientId"),
		PatientName:   d.String("patientName"),
		DoctorID:      d.String("doctorId"),
		DoctorName:    d.String("doctorName"),
		Type:          d.String("type"),
		Symptoms:      d.String("symptoms"),
		Diagnosis:     d.String("diagnosis"),
		Prescription:  d.String("prescription"),
		Notes:         d.String("notes"),
		FollowUpDate:  d.TimePtr("followUpDate"),
		Duration:      d.Int("duration"),
		Status:        entity.ConsultationStatus(d.String("status")),
		NoteHistory:   []entity.ConsultationNote{},
		CreatedAt:     d.Time(entity.FieldCreatedAt),
		UpdatedAt:     d.Time(entity.FieldUpdatedAt),
	}

	for _, raw := range d.Slice("noteHistory") {
		note := entity.AsJSON(raw)
		if note == nil {
			continue
		}
		c.NoteHistory = append(c.NoteHistory, entity.ConsultationNote{
			ID:        note.String("id"),
			Content:   note.String("content"),
			AuthorID:  note.String("authorId"),
			Timestamp: note.Time("timestamp"),
		})
	}

	return c
}

// DocumentsToConsultations converts a slice of consultations documents
func DocumentsToConsultations(docs []entity.Document) []entity.Consultation {
	consultations := make([]entity.Consultation, len(docs))
	for i := range docs {
		consultations[i] = *DocumentToConsultation(&docs[i])
	}
	return consultations
}

// ConsultationToDocument renders the stored fields of a new consultation
func ConsultationToDocument(c *entity.Consultation) entity.JSON {
	data := entity.JSON{
		"appointmentId": c.AppointmentID,
		"patientId":     c.PatientID,
		"patientName":   c.PatientName,
		"doctorId":      c.DoctorID,
		"doctorName":    c.DoctorName,
		"type":          c.Type,
		"symptoms":      c.Symptoms,
		"diagnosis":     c.Diagnosis,
		"prescription":  c.Prescription,
		"notes":         c.Notes,
		"duration":      c.Duration,
		"status":        string(c.Status),
		"noteHistory":   []interface{}{},
	}
	if c.FollowUpDate != nil {
		data["followUpDate"] = c.FollowUpDate.UTC()
	}
	return data
}

// NoteToDocument renders a note for appending to noteHistory. The timestamp
// is left to the store clock.
func NoteToDocument(note *entity.ConsultationNote) entity.JSON {
	return entity.JSON{
		"id":        note.ID,
		"content":   note.Content,
		"authorId":  note.AuthorID,
		"timestamp": entity.ServerTimestamp,
	}
}

// ConsultationToResponse converts a Consultation entity to ConsultationResponse DTO
func ConsultationToResponse(c *entity.Consultation) *dto.ConsultationResponse {
	if c == nil {
		return nil
	}

	notes := make([]dto.ConsultationNoteResponse, len(c.NoteHistory))
	for i, n := range c.NoteHistory {
		notes[i] = dto.ConsultationNoteResponse{
			ID:        n.ID,
			Content:   n.Content,
			AuthorID:  n.AuthorID,
			Timestamp: n.Timestamp,
		}
	}

	return &dto.ConsultationResponse{
		ID:            c.ID,
		AppointmentID: c.AppointmentID,
		PatientID:     c.PatientID,
		PatientName:   c.PatientName,
		DoctorID:      c.DoctorID,
		DoctorName:    c.DoctorName,
		Type:          c.Type,
		Symptoms:      c.Symptoms,
		Diagnosis:     c.Diagnosis,
		Prescription:  c.Prescription,
		Notes:         c.Notes,
		FollowUpDate:  c.FollowUpDate,
		Duration:      c.Duration,
		Status:        string(c.Status),
		NoteHistory:   notes,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

// ConsultationsToResponses converts a slice of Consultation entities to slice of ConsultationResponse DTOs
func ConsultationsToResponses(consultations []entity.Consultation) []dto.ConsultationResponse {
	responses := make([]dto.ConsultationResponse, len(consultations))
	for i := range consultations {
		responses[i] = *ConsultationToResponse(&consultations[i])
	}
	return responses
}
