package converter

import (
	"telemed-backend/internal/delivery/dto"
	"telemed-backend/internal/domain/entity"
)

// DocumentToChatRoom maps a chatRooms document onto the ChatRoom entity
func DocumentToChatRoom(doc *entity.Document) *entity.ChatRoom {
	if doc == nil {
		return nil
	}
	d := doc.Data

	return &entity.ChatRoom{
		ID:           doc.ID,
		Participants: d.Strings("participants"),
		LastMessage:  d.String("lastMessage"),
		LastSenderID: d.String("lastSenderId"),
		LastActivity: d.TimePtr("lastActivity"),
		CreatedAt:    d.Time(entity.FieldCreatedAt),
	}
}

// DocumentsToChatRooms converts a slice of chatRooms documents
func DocumentsToChatRooms(docs []entity.Document) []entity.ChatRoom {
	rooms := make([]entity.ChatRoom, len(docs))
	for i := range docs {
		rooms[i] = *DocumentToChatRoom(&docs[i])
	}
	return rooms
}

// DocumentToMessage maps a message document of roomID onto the Message entity
func DocumentToMessage(roomID string, doc *entity.Document) *entity.Message {
	if doc == nil {
		return nil
	}
	d := doc.Data

	return &entity.Message{
		ID:        doc.ID,
		RoomID:    roomID,
		SenderID:  d.String("senderId"),
		Content:   d.String("content"),
		Type:      d.String("type"),
		Timestamp: d.Time("timestamp"),
	}
}

// DocumentsToMessages converts a slice of message documents of roomID
func DocumentsToMessages(roomID string, docs []entity.Document) []entity.Message {
	messages := make([]entity.Message, len(docs))
	for i := range docs {
		messages[i] = *DocumentToMessage(roomID, &docs[i])
	}
	return messages
}

// MessageToDocument renders a new message; the timestamp comes from the store
func MessageToDocument(m *entity.Message) entity.JSON {
	return entity.JSON{
		"senderId":  m.SenderID,
		"content":   m.Content,
		"type":      m.Type,
		"timestamp": entity.ServerTimestamp,
	}
}

// ChatRoomToResponse converts a ChatRoom entity to ChatRoomResponse DTO
func ChatRoomToResponse(room *entity.ChatRoom) *dto.ChatRoomResponse {
	if room == nil {
		return nil
	}

	return &dto.ChatRoomResponse{
		ID:           room.ID,
		Participants: room.Participants,
		LastMessage:  room.LastMessage,
		LastSenderID: room.LastSenderID,
		LastActivity: room.LastActivity,
		CreatedAt:    room.CreatedAt,
	}
}

// ChatRoomsToResponses converts a slice of ChatRoom entities to slice of ChatRoomResponse DTOs
func ChatRoomsToResponses(rooms []entity.ChatRoom) []dto.ChatRoomResponse {
	responses := make([]dto.ChatRoomResponse, len(rooms))
	for i := range rooms {
		responses[i] = *ChatRoomToResponse(&rooms[i])
	}
	return responses
}

// MessageToResponse converts a Message entity to MessageResponse DTO
func MessageToResponse(m *entity.Message) *dto.MessageResponse {
	if m == nil {
		return nil
	}

	return &dto.MessageResponse{
		ID:        m.ID,
		RoomID:    m.RoomID,
		SenderID:  m.SenderID,
		Content:   m.Content,
		Type:      m.Type,
		Timestamp: m.Timestamp,
	}
}

// MessagesToResponses converts a slice of Message entities to slice of MessageResponse DTOs
func MessagesToResponses(messages []entity.Message) []dto.MessageResponse {
	responses := make([]dto.MessageResponse, len(messages))
	for i := range messages {
		responses[i] = *MessageToResponse(&messages[i])
	}
	return responses
}
