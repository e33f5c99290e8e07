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
	ErrAppointmentNotFound       = fmt.Errorf("%w: appointment not found", entity.ErrNotFound)
	ErrAppointmentInPast         = fmt.Errorf("%w: appointment date must be in the future", entity.ErrValidation)
	ErrNotAppointmentParticipant = fmt.Errorf("%w: appointment does not belong to you", entity.ErrPermissionDenied)
	ErrCounterpartRequired       = fmt.Errorf("%w: the other participant of the appointment is required", entity.ErrValidation)
)

type AppointmentUsecase interface {
	Create(ctx context.Context, actor entity.Actor, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error)
	GetByID(ctx context.Context, actor entity.Actor, id string) (*dto.AppointmentResponse, error)
	GetByParticipant(ctx context.Context, identity string, role entity.Role) (*dto.AppointmentListResponse, error)
	Update(ctx context.Context, actor entity.Actor, id string, req *dto.UpdateAppointmentRequest) (*dto.AppointmentResponse, error)
	Listen(ctx context.Context, identity string, role entity.Role, onChange func(*dto.AppointmentListResponse)) (*service.Subscription, error)
	History(ctx context.Context, actor entity.Actor, id string) (*dto.AuditLogListResponse, error)
}

type appointmentUsecase struct {
	log          *logrus.Logger
	repo         repository.DocumentRepository
	subs         *service.SubscriptionManager
	auditService service.AuditService
	now          func() time.Time
}

func NewAppointmentUsecase(
	log *logrus.Logger,
	repo repository.DocumentRepository,
	subs *service.SubscriptionManager,
	auditService service.AuditService,
) AppointmentUsecase {
	return &appointmentUsecase{
		log:          log,
		repo:         repo,
		subs:         subs,
		auditService: auditService,
		now:          time.Now,
	}
}

// Create books an appointment. The creator's role decides which side of the
// appointment they fill; the stored status is always scheduled.
func (u *appointmentUsecase) Create(ctx context.Context, actor entity.Actor, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}

	appointment := &entity.Appointment{
		AppointmentDate: req.AppointmentDate,
		Type:            entity.AppointmentType(req.Type),
		Status:          entity.AppointmentStatusScheduled,
		Reason:          req.Reason,
		Notes:           req.Notes,
		Urgency:         entity.Urgency(req.Urgency),
		CreatedBy:       actor.ID,
		PatientName:     req.PatientName,
		DoctorName:      req.DoctorName,
	}
	if appointment.Urgency == "" {
		appointment.Urgency = entity.UrgencyNormal
	}

	var counterpart string
	switch actor.Role {
	case entity.RolePatient:
		appointment.PatientID = actor.ID
		appointment.DoctorID = req.DoctorID
		counterpart = req.DoctorID
	case entity.RoleDoctor:
		appointment.DoctorID = actor.ID
		appointment.PatientID = req.PatientID
		counterpart = req.PatientID
	}
	if counterpart == "" {
		return nil, ErrCounterpartRequired
	}
	if err := entity.ValidateIdentity(counterpart); err != nil {
		return nil, err
	}
	if counterpart == actor.ID {
		return nil, fmt.Errorf("%w: cannot book an appointment with yourself", entity.ErrValidation)
	}

	if !appointment.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown appointment type %q", entity.ErrValidation, req.Type)
	}
	if !appointment.Urgency.Valid() {
		return nil, fmt.Errorf("%w: unknown urgency %q", entity.ErrValidation, req.Urgency)
	}
	if !appointment.AppointmentDate.After(u.now()) {
		return nil, ErrAppointmentInPast
	}

	data := converter.AppointmentToDocument(appointment)
	id, err := u.repo.Create(ctx, entity.CollectionAppointments, data)
	if err != nil {
		u.log.Warnf("Failed to create appointment: %+v", err)
		return nil, err
	}

	u.auditService.LogCreate(ctx, actor.ID, entity.AuditActionAppointmentCreate, entity.CollectionAppointments, id, data)

	return u.load(ctx, id)
}

// GetByID returns an appointment the actor takes part in
func (u *appointmentUsecase) GetByID(ctx context.Context, actor entity.Actor, id string) (*dto.AppointmentResponse, error) {
	appointment, err := u.findOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return converter.AppointmentToResponse(appointment), nil
}

// GetByParticipant lists the appointments where identity acts in role, latest first
func (u *appointmentUsecase) GetByParticipant(ctx context.Context, identity string, role entity.Role) (*dto.AppointmentListResponse, error) {
	query, err := participantQuery(identity, role, "appointmentDate")
	if err != nil {
		return nil, err
	}

	docs, err := u.repo.Query(ctx, entity.CollectionAppointments, query)
	if err != nil {
		u.log.Warnf("Failed to query appointments for %s %s: %+v", role, identity, err)
		return nil, err
	}

	appointments := converter.DocumentsToAppointments(docs)
	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

// Update changes an appointment on behalf of one of its participants. Status
// changes are checked against the transition table and written only if the
// status is still the one that was checked.
func (u *appointmentUsecase) Update(ctx context.Context, actor entity.Actor, id string, req *dto.UpdateAppointmentRequest) (*dto.AppointmentResponse, error) {
	appointment, err := u.findOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	partial := entity.JSON{}
	if req.AppointmentDate != nil {
		if !req.AppointmentDate.After(u.now()) {
			return nil, ErrAppointmentInPast
		}
		partial["appointmentDate"] = req.AppointmentDate.UTC()
	}
	if req.Reason != nil {
		partial["reason"] = *req.Reason
	}
	if req.Notes != nil {
		partial["notes"] = *req.Notes
	}

	if req.Status == nil {
		if len(partial) == 0 {
			return converter.AppointmentToResponse(appointment), nil
		}
		if err := u.repo.Update(ctx, entity.CollectionAppointments, id, partial); err != nil {
			u.log.Warnf("Failed to update appointment %s: %+v", id, err)
			return nil, err
		}
		return u.load(ctx, id)
	}

	next := entity.AppointmentStatus(*req.Status)
	if err := u.transition(ctx, actor, appointment, next, partial); err != nil {
		return nil, err
	}
	return u.load(ctx, id)
}

// transition moves appointment to next, merging extra fields in the same write
func (u *appointmentUsecase) transition(ctx context.Context, actor entity.Actor, appointment *entity.Appointment, next entity.AppointmentStatus, extra entity.JSON) error {
	current := appointment.Status
	if !current.CanTransitionTo(next) {
		return fmt.Errorf("%w: appointment %s cannot move from %s to %s", entity.ErrInvalidTransition, appointment.ID, current, next)
	}

	partial := extra.Clone()
	if partial == nil {
		partial = entity.JSON{}
	}
	partial["status"] = string(next)

	err := u.repo.UpdateIf(ctx, entity.CollectionAppointments, appointment.ID, entity.JSON{"status": string(current)}, partial)
	if err != nil {
		if errors.Is(err, entity.ErrPreconditionFailed) {
			return fmt.Errorf("%w: appointment %s changed status concurrently", entity.ErrInvalidTransition, appointment.ID)
		}
		u.log.Warnf("Failed to update appointment %s status: %+v", appointment.ID, err)
		return err
	}

	u.auditService.LogUpdate(ctx, actor.ID, entity.AuditActionAppointmentStatus, entity.CollectionAppointments, appointment.ID,
		entity.JSON{"status": string(current)}, entity.JSON{"status": string(next)})
	return nil
}

// Listen delivers the participant's appointment list now and on every change
func (u *appointmentUsecase) Listen(ctx context.Context, identity string, role entity.Role, onChange func(*dto.AppointmentListResponse)) (*service.Subscription, error) {
	query, err := participantQuery(identity, role, "appointmentDate")
	if err != nil {
		return nil, err
	}

	return u.subs.Subscribe(ctx, entity.CollectionAppointments, query, func(docs []entity.Document) {
		appointments := converter.DocumentsToAppointments(docs)
		onChange(&dto.AppointmentListResponse{
			Appointments: converter.AppointmentsToResponses(appointments),
			Total:        len(appointments),
		})
	})
}

// History returns the audit trail of an appointment, oldest first
func (u *appointmentUsecase) History(ctx context.Context, actor entity.Actor, id string) (*dto.AuditLogListResponse, error) {
	if _, err := u.findOwned(ctx, actor, id); err != nil {
		return nil, err
	}
	return auditHistory(ctx, u.repo, entity.CollectionAppointments, id)
}

func (u *appointmentUsecase) findOwned(ctx context.Context, actor entity.Actor, id string) (*entity.Appointment, error) {
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
	return appointment, nil
}

func (u *appointmentUsecase) load(ctx context.Context, id string) (*dto.AppointmentResponse, error) {
	doc, err := u.repo.GetByID(ctx, entity.CollectionAppointments, id)
	if err != nil {
		u.log.Warnf("Failed to reload appointment %s: %+v", id, err)
		return nil, err
	}
	if doc == nil {
		return nil, ErrAppointmentNotFound
	}
	return converter.AppointmentToResponse(converter.DocumentToAppointment(doc)), nil
}
