package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"telemed-backend/internal/converter"
	"telemed-backend/internal/delivery/dto"
	"telemed-backend/internal/domain/entity"
	"telemed-backend/internal/domain/repository"
	"telemed-backend/internal/service"

	"github.com/sirupsen/logrus"
)

var (
	ErrNotVideoAppointment = fmt.Errorf("%w: appointment is not a video appointment", entity.ErrValidation)
	ErrCallNotReady        = fmt.Errorf("%w: only confirmed appointments can start a call", entity.ErrInvalidTransition)
	ErrCallNotInProgress   = fmt.Errorf("%w: no call is in progress for this appointment", entity.ErrInvalidTransition)
)

// VideoCallUsecase tracks call sessions on video appointments. Media is
// handled by the clients; only the session lifecycle is recorded here.
type VideoCallUsecase interface {
	AvailableCalls(ctx context.Context, actor entity.Actor) (*dto.AppointmentListResponse, error)
	StartCall(ctx context.Context, actor entity.Actor, appointmentID string) (*dto.AppointmentResponse, error)
	EndCall(ctx context.Context, actor entity.Actor, appointmentID string, req *dto.EndCallRequest) (*dto.EndCallResponse, error)
}

type videoCallUsecase struct {
	log          *logrus.Logger
	repo         repository.DocumentRepository
	auditService service.AuditService
}

func NewVideoCallUsecase(log *logrus.Logger, repo repository.DocumentRepository, auditService service.AuditService) VideoCallUsecase {
	return &videoCallUsecase{
		log:          log,
		repo:         repo,
		auditService: auditService,
	}
}

// AvailableCalls lists the actor's confirmed video appointments, soonest first
func (u *videoCallUsecase) AvailableCalls(ctx context.Context, actor entity.Actor) (*dto.AppointmentListResponse, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}

	query := entity.NewQuery().
		Where(actor.Role.ParticipantField(), actor.ID).
		Where("type", string(entity.AppointmentTypeVideo)).
		Where("status", string(entity.AppointmentStatusConfirmed)).
		OrderBy("appointmentDate", entity.Asc)

	docs, err := u.repo.Query(ctx, entity.CollectionAppointments, query)
	if err != nil {
		u.log.Warnf("Failed to query video calls for %s: %+v", actor.ID, err)
		return nil, err
	}

	appointments := converter.DocumentsToAppointments(docs)
	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

// StartCall moves a confirmed video appointment to in-progress
func (u *videoCallUsecase) StartCall(ctx context.Context, actor entity.Actor, appointmentID string) (*dto.AppointmentResponse, error) {
	appointment, err := u.findVideoAppointment(ctx, actor, appointmentID)
	if err != nil {
		return nil, err
	}
	if !appointment.IsConfirmed() {
		return nil, ErrCallNotReady
	}

	partial := entity.JSON{
		"status":        string(entity.AppointmentStatusInProgress),
		"callStartTime": entity.ServerTimestamp,
	}
	if err := u.transition(ctx, appointment, partial); err != nil {
		return nil, err
	}

	u.auditService.LogUpdate(ctx, actor.ID, entity.AuditActionVideoCallStart, entity.CollectionAppointments, appointmentID,
		entity.JSON{"status": string(appointment.Status)}, entity.JSON{"status": string(entity.AppointmentStatusInProgress)})

	doc, err := u.repo.GetByID(ctx, entity.CollectionAppointments, appointmentID)
	if err != nil {
		return nil, err
	}
	return converter.AppointmentToResponse(converter.DocumentToAppointment(doc)), nil
}

// EndCall completes an in-progress call. The consultation is recorded first,
// under an id derived from the appointment, so a completed appointment always
// has exactly one. Concurrent or repeated calls reuse it and then lose the
// status check.
func (u *videoCallUsecase) EndCall(ctx context.Context, actor entity.Actor, appointmentID string, req *dto.EndCallRequest) (*dto.EndCallResponse, error) {
	appointment, err := u.findVideoAppointment(ctx, actor, appointmentID)
	if err != nil {
		return nil, err
	}
	if appointment.Status != entity.AppointmentStatusInProgress {
		return nil, ErrCallNotInProgress
	}

	duration := req.Duration
	if duration == 0 && appointment.CallStartTime != nil {
		duration = int(time.Since(*appointment.CallStartTime).Minutes())
	}

	consultation := &entity.Consultation{
		AppointmentID: appointment.ID,
		PatientID:     appointment.PatientID,
		PatientName:   appointment.PatientName,
		DoctorID:      appointment.DoctorID,
		DoctorName:    appointment.DoctorName,
		Type:          entity.ConsultationTypeVideoCall,
		Symptoms:      req.Symptoms,
		Diagnosis:     req.Diagnosis,
		Prescription:  req.Prescription,
		Notes:         req.Notes,
		Duration:      duration,
		Status:        entity.ConsultationStatusCompleted,
	}
	consultationID := entity.CallConsultationID(appointment.ID)
	data := converter.ConsultationToDocument(consultation)
	created, err := u.repo.CreateIfAbsent(ctx, entity.CollectionConsultations, consultationID, data)
	if err != nil {
		u.log.Warnf("Failed to record consultation for call %s: %+v", appointmentID, err)
		return nil, err
	}
	if created {
		u.auditService.LogCreate(ctx, actor.ID, entity.AuditActionConsultationCreate, entity.CollectionConsultations, consultationID, data)
	}

	partial := entity.JSON{
		"status":      string(entity.AppointmentStatusCompleted),
		"callEndTime": entity.ServerTimestamp,
		"duration":    duration,
	}
	if err := u.transition(ctx, appointment, partial); err != nil {
		return nil, err
	}
	u.auditService.LogUpdate(ctx, actor.ID, entity.AuditActionVideoCallEnd, entity.CollectionAppointments, appointmentID,
		entity.JSON{"status": string(appointment.Status)}, entity.JSON{"status": string(entity.AppointmentStatusCompleted), "consultationId": consultationID})

	appointmentDoc, err := u.repo.GetByID(ctx, entity.CollectionAppointments, appointmentID)
	if err != nil {
		return nil, err
	}
	consultationDoc, err := u.repo.GetByID(ctx, entity.CollectionConsultations, consultationID)
	if err != nil {
		return nil, err
	}

	return &dto.EndCallResponse{
		Appointment:  converter.AppointmentToResponse(converter.DocumentToAppointment(appointmentDoc)),
		Consultation: converter.ConsultationToResponse(converter.DocumentToConsultation(consultationDoc)),
	}, nil
}

// transition writes partial only if the appointment status is unchanged
func (u *videoCallUsecase) transition(ctx context.Context, appointment *entity.Appointment, partial entity.JSON) error {
	next := entity.AppointmentStatus(partial.String("status"))
	if !appointment.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: appointment %s cannot move from %s to %s", entity.ErrInvalidTransition, appointment.ID, appointment.Status, next)
	}

	err := u.repo.UpdateIf(ctx, entity.CollectionAppointments, appointment.ID, entity.JSON{"status": string(appointment.Status)}, partial)
	if err != nil {
		if errors.Is(err, entity.ErrPreconditionFailed) {
			return fmt.Errorf("%w: appointment %s changed status concurrently", entity.ErrInvalidTransition, appointment.ID)
		}
		u.log.Warnf("Failed to update call state of appointment %s: %+v", appointment.ID, err)
		return err
	}
	return nil
}

func (u *videoCallUsecase) findVideoAppointment(ctx context.Context, actor entity.Actor, id string) (*entity.Appointment, error) {
	doc, err := u.repo.GetByID(ctx, entity.CollectionAppointments, id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if doc == nil {
		return nil, ErrAppointmentNotFound
	}

	appointment := converter.DocumentToAppointment(doc)
	if !appointment.HasParticipant(actor.ID) {
		return nil, ErrNotAppointmentParticipant
	}
	if !appointment.IsVideo() {
		return nil, ErrNotVideoAppointment
	}
	return appointment, nil
}
