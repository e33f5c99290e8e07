package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"telemed-backend/internal/delivery/dto"
	"telemed-backend/internal/usecase"
	"telemed-backend/pkg/response"
	"telemed-backend/pkg/validator"

	"github.com/gorilla/mux"
)

type VideoCallHandler struct {
	videoCallUsecase usecase.VideoCallUsecase
	validator        *validator.CustomValidator
}

func NewVideoCallHandler(videoCallUsecase usecase.VideoCallUsecase, validator *validator.CustomValidator) *VideoCallHandler {
	return &VideoCallHandler{
		videoCallUsecase: videoCallUsecase,
		validator:        validator,
	}
}

func (h *VideoCallHandler) GetAvailableCalls(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	calls, err := h.videoCallUsecase.AvailableCalls(r.Context(), actor)
	if err != nil {
		writeError(w, err, "Failed to get video calls")
		return
	}

	response.Success(w, http.StatusOK, "Video calls retrieved successfully", calls)
}

func (h *VideoCallHandler) StartCall(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	appointment, err := h.videoCallUsecase.StartCall(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, "Failed to start call")
		return
	}

	response.Success(w, http.StatusOK, "Call started", appointment)
}

// EndCall accepts an empty body; duration is then taken from the call start
func (h *VideoCallHandler) EndCall(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req dto.EndCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	result, err := h.videoCallUsecase.EndCall(r.Context(), actor, mux.Vars(r)["id"], &req)
	if err != nil {
		writeError(w, err, "Failed to end call")
		return
	}

	response.Success(w, http.StatusOK, "Call ended", result)
}
