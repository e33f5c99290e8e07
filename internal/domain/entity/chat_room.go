package entity

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"
)

// RoomSeparator joins the two participant identities of a room id. Legal
// identities never contain it, so distinct pairs never share a room id.
const RoomSeparator = "~"

// MessageTypeText is the only message type currently sent
const MessageTypeText = "text"

// ChatRoom is a conversation between an unordered pair of participants
type ChatRoom struct {
	ID           string     `json:"id"`
	Participants []string   `json:"participants"`
	LastMessage  string     `json:"last_message,omitempty"`
	LastSenderID string     `json:"last_sender_id,omitempty"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Message belongs to exactly one room and is immutable once written
type Message struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	SenderID  string    `json:"sender_id"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// ValidateIdentity checks that id can take part in a room id
func ValidateIdentity(id string) error {
	if id == "" {
		return fmt.Errorf("%w: identity is empty", ErrValidation)
	}
	if strings.Contains(id, RoomSeparator) {
		return fmt.Errorf("%w: identity %q contains %q", ErrValidation, id, RoomSeparator)
	}
	if strings.ContainsFunc(id, unicode.IsSpace) || strings.Contains(id, "/") {
		return fmt.Errorf("%w: identity %q contains whitespace or '/'", ErrValidation, id)
	}
	return nil
}

// RoomID derives the room identifier for two participants. The result does
// not depend on argument order.
func RoomID(a, b string) (string, error) {
	if err := ValidateIdentity(a); err != nil {
		return "", err
	}
	if err := ValidateIdentity(b); err != nil {
		return "", err
	}
	pair := []string{a, b}
	sort.Strings(pair)
	return pair[0] + RoomSeparator + pair[1], nil
}

// RoomParticipants splits a room id back into its sorted participants
func RoomParticipants(roomID string) ([]string, error) {
	parts := strings.Split(roomID, RoomSeparator)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: malformed room id %q", ErrValidation, roomID)
	}
	for _, p := range parts {
		if err := ValidateIdentity(p); err != nil {
			return nil, err
		}
	}
	if parts[0] > parts[1] {
		return nil, fmt.Errorf("%w: room id %q is not normalized", ErrValidation, roomID)
	}
	return parts, nil
}

// HasParticipant reports whether identity takes part in the room
func (r *ChatRoom) HasParticipant(identity string) bool {
	for _, p := range r.Participants {
		if p == identity {
			return true
		}
	}
	return false
}
