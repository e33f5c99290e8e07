package handler

import (
	"encoding/json"
	"net/http"

	"telemed-backend/internal/delivery/dto"
	"telemed-backend/internal/delivery/http/middleware"
	"telemed-backend/internal/domain/entity"
	"telemed-backend/internal/usecase"
	"telemed-backend/pkg/response"
	"telemed-backend/pkg/validator"

	"github.com/gorilla/mux"
)

type UserHandler struct {
	userUsecase usecase.UserDirectoryUsecase
	validator   *validator.CustomValidator
}

func NewUserHandler(userUsecase usecase.UserDirectoryUsecase, validator *validator.CustomValidator) *UserHandler {
	return &UserHandler{
		userUsecase: userUsecase,
		validator:   validator,
	}
}

// Register creates the caller's profile
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req dto.RegisterUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if req.Email == "" {
		req.Email, _ = middleware.GetUserEmailFromContext(r.Context())
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	user, err := h.userUsecase.Register(r.Context(), actor.ID, &req)
	if err != nil {
		if err == usecase.ErrAlreadyRegistered {
			response.Conflict(w, "Profile already registered")
			return
		}
		writeError(w, err, "Failed to register profile")
		return
	}

	response.Success(w, http.StatusCreated, "Profile registered successfully", user)
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	user, err := h.userUsecase.GetByID(r.Context(), actor.ID)
	if err != nil {
		writeError(w, err, "Failed to get profile")
		return
	}
	if user == nil {
		response.NotFound(w, "Profile not registered")
		return
	}

	response.Success(w, http.StatusOK, "Profile retrieved successfully", user)
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	user, err := h.userUsecase.UpdateProfile(r.Context(), actor.ID, &req)
	if err != nil {
		writeError(w, err, "Failed to update profile")
		return
	}

	response.Success(w, http.StatusOK, "Profile updated successfully", user)
}

func (h *UserHandler) GetDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.userUsecase.GetDoctors(r.Context())
	if err != nil {
		writeError(w, err, "Failed to get doctors")
		return
	}

	response.Success(w, http.StatusOK, "Doctors retrieved successfully", doctors)
}

func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	users, err := h.userUsecase.Search(r.Context(), query.Get("q"), entity.Role(query.Get("role")))
	if err != nil {
		writeError(w, err, "Failed to search users")
		return
	}

	response.Success(w, http.StatusOK, "Users retrieved successfully", users)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	user, err := h.userUsecase.GetByID(r.Context(), vars["id"])
	if err != nil {
		writeError(w, err, "Failed to get user")
		return
	}
	if user == nil {
		response.NotFound(w, "User not found")
		return
	}

	response.Success(w, http.StatusOK, "User retrieved successfully", user)
}
