package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"telemed-backend/internal/converter"
	"telemed-backend/internal/delivery/dto"
	"telemed-backend/internal/domain/entity"
	"telemed-backend/internal/domain/repository"
	"telemed-backend/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrConsultationNotFound = fmt.Errorf("%w: consultation not found", entity.ErrNotFound)
	ErrDoctorOnly           = fmt.Errorf("%w: only doctors can do this", entity.ErrPermissionDenied)
	ErrNotConsultingDoctor  = fmt.Errorf("%w: consultation belongs to another doctor", entity.ErrPermissionDenied)
	ErrNotConsultationParty = fmt.Errorf("%w: consultation does not belong to you", entity.ErrPermissionDenied)
	ErrEmptyNote            = fmt.Errorf("%w: note content is empty", entity.ErrValidation)
)

type ConsultationUsecase interface {
	Create(ctx context.Context, actor entity.Actor, req *dto.CreateConsultationRequest) (*dto.ConsultationResponse, error)
	GetByID(ctx context.Context, actor entity.Actor, id string) (*dto.ConsultationResponse, error)
	GetByParticipant(ctx context.Context, identity string, role entity.Role) (*dto.ConsultationListResponse, error)
	Update(ctx context.Context, actor entity.Actor, id string, req *dto.UpdateConsultationRequest) (*dto.ConsultationResponse, error)
	AddNote(ctx context.Context, actor entity.Actor, id string, content string) (*dto.ConsultationResponse, error)
	History(ctx context.Context, actor entity.Actor, id string) (*dto.AuditLogListResponse, error)
}

type consultationUsecase struct {
	log          *logrus.Logger
	repo         repository.DocumentRepository
	auditService service.AuditService
}

func NewConsultationUsecase(
	log *logrus.Logger,
	repo repository.DocumentRepository,
	auditService service.AuditService,
) ConsultationUsecase {
	return &consultationUsecase{
		log:          log,
		repo:         repo,
		auditService: auditService,
	}
}

// Create records a consultation by the acting doctor
func (u *consultationUsecase) Create(ctx context.Context, actor entity.Actor, req *dto.CreateConsultationRequest) (*dto.ConsultationResponse, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	if actor.Role != entity.RoleDoctor {
		return nil, ErrDoctorOnly
	}
	if err := entity.ValidateIdentity(req.PatientID); err != nil {
		return nil, err
	}
	if req.PatientID == actor.ID {
		return nil, fmt.Errorf("%w: patient and doctor must differ", entity.ErrValidation)
	}

	status := entity.ConsultationStatusActive
	if req.Status != "" {
		status = entity.ConsultationStatus(req.Status)
		if !status.Valid() {
			return nil, fmt.Errorf("%w: unknown consultation status %q", entity.ErrValidation, req.Status)
		}
	}

	if req.AppointmentID != "" {
		doc, err := u.repo.GetByID(ctx, entity.CollectionAppointments, req.AppointmentID)
		if err != nil {
			u.log.Warnf("Failed to find appointment %s: %+v", req.AppointmentID, err)
			return nil, err
		}
		if doc == nil {
			return nil, ErrAppointmentNotFound
		}
		if converter.DocumentToAppointment(doc).DoctorID != actor.ID {
			return nil, ErrNotAppointmentParticipant
		}
	}

	consultation := &entity.Consultation{
		AppointmentID: req.AppointmentID,
		PatientID:     req.PatientID,
		PatientName:   req.PatientName,
		DoctorID:      actor.ID,
		DoctorName:    req.DoctorName,
		Symptoms:      req.Symptoms,
		Diagnosis:     req.Diagnosis,
		Prescription:  req.Prescription,
		Notes:         req.Notes,
		FollowUpDate:  req.FollowUpDate,
		Status:        status,
	}

	id, err := u.create(ctx, actor, consultation)
	if err != nil {
		return nil, err
	}
	return u.load(ctx, id)
}

func (u *consultationUsecase) create(ctx context.Context, actor entity.Actor, consultation *entity.Consultation) (string, error) {
	data := converter.ConsultationToDocument(consultation)
	id, err := u.repo.Create(ctx, entity.CollectionConsultations, data)
	if err != nil {
		u.log.Warnf("Failed to create consultation: %+v", err)
		return "", err
	}

	u.auditService.LogCreate(ctx, actor.ID, entity.AuditActionConsultationCreate, entity.CollectionConsultations, id, data)
	return id, nil
}

// GetByID returns a consultation the actor takes part in
func (u *consultationUsecase) GetByID(ctx context.Context, actor entity.Actor, id string) (*dto.ConsultationResponse, error) {
	consultation, err := u.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if consultation.PatientID != actor.ID && consultation.DoctorID != actor.ID {
		return nil, ErrNotConsultationParty
	}
	return converter.ConsultationToResponse(consultation), nil
}

// GetByParticipant lists the consultations where identity acts in role, newest first
func (u *consultationUsecase) GetByParticipant(ctx context.Context, identity string, role entity.Role) (*dto.ConsultationListResponse, error) {
	query, err := participantQuery(identity, role, entity.FieldCreatedAt)
	if err != nil {
		return nil, err
	}

	docs, err := u.repo.Query(ctx, entity.CollectionConsultations, query)
	if err != nil {
		u.log.Warnf("Failed to query consultations for %s %s: %+v", role, identity, err)
		return nil, err
	}

	consultations := converter.DocumentsToConsultations(docs)
	return &dto.ConsultationListResponse{
		Consultations: converter.ConsultationsToResponses(consultations),
		Total:         len(consultations),
	}, nil
}

// Update changes a consultation on behalf of its doctor
func (u *consultationUsecase) Update(ctx context.Context, actor entity.Actor, id string, req *dto.UpdateConsultationRequest) (*dto.ConsultationResponse, error) {
	consultation, err := u.findOwnedByDoctor(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	partial := entity.JSON{}
	if req.Symptoms != nil {
		partial["symptoms"] = *req.Symptoms
	}
	if req.Diagnosis != nil {
		partial["diagnosis"] = *req.Diagnosis
	}
	if req.Prescription != nil {
		partial["prescription"] = *req.Prescription
	}
	if req.Notes != nil {
		partial["notes"] = *req.Notes
	}
	if req.FollowUpDate != nil {
		partial["followUpDate"] = req.FollowUpDate.UTC()
	}

	if req.Status == nil {
		if len(partial) == 0 {
			return converter.ConsultationToResponse(consultation), nil
		}
		if err := u.repo.Update(ctx, entity.CollectionConsultations, id, partial); err != nil {
			u.log.Warnf("Failed to update consultation %s: %+v", id, err)
			return nil, err
		}
		return u.load(ctx, id)
	}

	current := consultation.Status
	next := entity.ConsultationStatus(*req.Status)
	if !current.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: consultation %s cannot move from %s to %s", entity.ErrInvalidTransition, id, current, next)
	}
	partial["status"] = string(next)

	err = u.repo.UpdateIf(ctx, entity.CollectionConsultations, id, entity.JSON{"status": string(current)}, partial)
	if err != nil {
		if errors.Is(err, entity.ErrPreconditionFailed) {
			return nil, fmt.Errorf("%w: consultation %s changed status concurrently", entity.ErrInvalidTransition, id)
		}
		u.log.Warnf("Failed to update consultation %s status: %+v", id, err)
		return nil, err
	}

	u.auditService.LogUpdate(ctx, actor.ID, entity.AuditActionConsultationStatus, entity.CollectionConsultations, id,
		entity.JSON{"status": string(current)}, entity.JSON{"status": string(next)})
	return u.load(ctx, id)
}

// AddNote appends a timestamped note. Notes are appended atomically by the
// store so concurrent notes are never lost.
func (u *consultationUsecase) AddNote(ctx context.Context, actor entity.Actor, id string, content string) (*dto.ConsultationResponse, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyNote
	}
	if _, err := u.findOwnedByDoctor(ctx, actor, id); err != nil {
		return nil, err
	}

	note := &entity.ConsultationNote{
		ID:       uuid.NewString(),
		Content:  content,
		AuthorID: actor.ID,
	}
	if err := u.repo.ArrayAppend(ctx, entity.CollectionConsultations, id, "noteHistory", converter.NoteToDocument(note)); err != nil {
		u.log.Warnf("Failed to add note to consultation %s: %+v", id, err)
		return nil, err
	}

	u.auditService.LogCreate(ctx, actor.ID, entity.AuditActionConsultationAddNote, entity.CollectionConsultations, id,
		entity.JSON{"noteId": note.ID})
	return u.load(ctx, id)
}

// History returns the audit trail of a consultation, oldest first
func (u *consultationUsecase) History(ctx context.Context, actor entity.Actor, id string) (*dto.AuditLogListResponse, error) {
	if _, err := u.GetByID(ctx, actor, id); err != nil {
		return nil, err
	}
	return auditHistory(ctx, u.repo, entity.CollectionConsultations, id)
}

func (u *consultationUsecase) find(ctx context.Context, id string) (*entity.Consultation, error) {
	doc, err := u.repo.GetByID(ctx, entity.CollectionConsultations, id)
	if err != nil {
		u.log.Warnf("Failed to find consultation %s: %+v", id, err)
		return nil, err
	}
	if doc == nil {
		return nil, ErrConsultationNotFound
	}
	return converter.DocumentToConsultation(doc), nil
}

func (u *consultationUsecase) findOwnedByDoctor(ctx context.Context, actor entity.Actor, id string) (*entity.Consultation, error) {
	if actor.Role != entity.RoleDoctor {
		return nil, ErrDoctorOnly
	}
	consultation, err := u.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if consultation.DoctorID != actor.ID {
		return nil, ErrNotConsultingDoctor
	}
	return consultation, nil
}

func (u *consultationUsecase) load(ctx context.Context, id string) (*dto.ConsultationResponse, error) {
	consultation, err := u.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return converter.ConsultationToResponse(consultation), nil
}
