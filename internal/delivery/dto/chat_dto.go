package dto

import (
	"time"
)

// Request DTOs

type CreateRoomRequest struct {
	ParticipantID string `json:"participant_id" validate:"required,identity"`
}

type SendMessageRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
	Type    string `json:"type" validate:"omitempty,oneof=text"`
}

// Response DTOs

type ChatRoomResponse struct {
	ID           string     `json:"id"`
	Participants []string   `json:"participants"`
	LastMessage  string     `json:"last_message,omitempty"`
	LastSenderID string     `json:"last_sender_id,omitempty"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type ChatRoomListResponse struct {
	Rooms []ChatRoomResponse `json:"rooms"`
	Total int                `json:"total"`
}

type MessageResponse struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	SenderID  string    `json:"sender_id"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

type MessageListResponse struct {
	Messages []MessageResponse `json:"messages"`
	Total    int               `json:"total"`
}
