package handler

import (
	"encoding/json"
	"net/http"

	"telemed-backend/internal/delivery/dto"
	"telemed-backend/internal/usecase"
	"telemed-backend/pkg/response"
	"telemed-backend/pkg/validator"

	"github.com/gorilla/mux"
)

type ConsultationHandler struct {
	consultationUsecase usecase.ConsultationUsecase
	validator           *validator.CustomValidator
}

func NewConsultationHandler(consultationUsecase usecase.ConsultationUsecase, validator *validator.CustomValidator) *ConsultationHandler {
	return &ConsultationHandler{
		consultationUsecase: consultationUsecase,
		validator:           validator,
	}
}

func (h *ConsultationHandler) CreateConsultation(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req dto.CreateConsultationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	consultation, err := h.consultationUsecase.Create(r.Context(), actor, &req)
	if err != nil {
		writeError(w, err, "Failed to create consultation")
		return
	}

	response.Success(w, http.StatusCreated, "Consultation created successfully", consultation)
}

func (h *ConsultationHandler) GetMyConsultations(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	consultations, err := h.consultationUsecase.GetByParticipant(r.Context(), actor.ID, actor.Role)
	if err != nil {
		writeError(w, err, "Failed to get consultations")
		return
	}

	response.Success(w, http.StatusOK, "Consultations retrieved successfully", consultations)
}

func (h *ConsultationHandler) GetConsultation(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	consultation, err := h.consultationUsecase.GetByID(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, "Failed to get consultation")
		return
	}

	response.Success(w, http.StatusOK, "Consultation retrieved successfully", consultation)
}

func (h *ConsultationHandler) UpdateConsultation(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req dto.UpdateConsultationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	consultation, err := h.consultationUsecase.Update(r.Context(), actor, mux.Vars(r)["id"], &req)
	if err != nil {
		writeError(w, err, "Failed to update consultation")
		return
	}

	response.Success(w, http.StatusOK, "Consultation updated successfully", consultation)
}

func (h *ConsultationHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req dto.AddNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	consultation, err := h.consultationUsecase.AddNote(r.Context(), actor, mux.Vars(r)["id"], req.Content)
	if err != nil {
		writeError(w, err, "Failed to add note")
		return
	}

	response.Success(w, http.StatusCreated, "Note added successfully", consultation)
}

func (h *ConsultationHandler) GetConsultationHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	history, err := h.consultationUsecase.History(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, "Failed to get consultation history")
		return
	}

	response.Success(w, http.StatusOK, "Consultation history retrieved successfully", history)
}
