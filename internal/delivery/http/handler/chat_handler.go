package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"telemed-backend/internal/delivery/dto"
	"telemed-backend/internal/service"
	"telemed-backend/internal/usecase"
	"telemed-backend/pkg/response"
	"telemed-backend/pkg/validator"

	"github.com/gorilla/mux"
)

type ChatHandler struct {
	chatUsecase usecase.ChatUsecase
	validator   *validator.CustomValidator
	streamer    *Streamer
}

func NewChatHandler(chatUsecase usecase.ChatUsecase, validator *validator.CustomValidator, streamer *Streamer) *ChatHandler {
	return &ChatHandler{
		chatUsecase: chatUsecase,
		validator:   validator,
		streamer:    streamer,
	}
}

// CreateRoom opens, or returns the existing, room between the caller and a participant
func (h *ChatHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req dto.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	room, err := h.chatUsecase.CreateOrGetRoom(r.Context(), actor.ID, req.ParticipantID)
	if err != nil {
		writeError(w, err, "Failed to open chat room")
		return
	}

	response.Success(w, http.StatusOK, "Chat room ready", room)
}

func (h *ChatHandler) GetMyRooms(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	rooms, err := h.chatUsecase.GetRoomsForParticipant(r.Context(), actor.ID)
	if err != nil {
		writeError(w, err, "Failed to get chat rooms")
		return
	}

	response.Success(w, http.StatusOK, "Chat rooms retrieved successfully", rooms)
}

func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	messages, err := h.chatUsecase.GetMessages(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, "Failed to get messages")
		return
	}

	response.Success(w, http.StatusOK, "Messages retrieved successfully", messages)
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	message, err := h.chatUsecase.SendMessage(r.Context(), mux.Vars(r)["id"], actor.ID, &req)
	if err != nil {
		writeError(w, err, "Failed to send message")
		return
	}

	response.Success(w, http.StatusCreated, "Message sent successfully", message)
}

// StreamMessages pushes the room's messages over a websocket
func (h *ChatHandler) StreamMessages(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	roomID := mux.Vars(r)["id"]

	h.streamer.serveSnapshots(w, r, func(ctx context.Context, push func(interface{})) (*service.Subscription, error) {
		return h.chatUsecase.SubscribeMessages(ctx, actor, roomID, func(list *dto.MessageListResponse) {
			push(list)
		})
	})
}
