package entity

import (
	"errors"
	"testing"
)

func TestRoomID(t *testing.T) {
	ab, err := RoomID("alice", "bob")
	if err != nil {
		t.Fatalf("RoomID: %v", err)
	}
	ba, err := RoomID("bob", "alice")
	if err != nil {
		t.Fatalf("RoomID: %v", err)
	}
	if ab != ba {
		t.Fatalf("RoomID not symmetric: %q vs %q", ab, ba)
	}
	if ab != "alice~bob" {
		t.Errorf("RoomID = %q", ab)
	}

	parts, err := RoomParticipants(ab)
	if err != nil {
		t.Fatalf("RoomParticipants: %v", err)
	}
	if parts[0] != "alice" || parts[1] != "bob" {
		t.Errorf("participants = %v", parts)
	}
}

func TestRoomIDDistinctPairs(t *testing.T) {
	pairs := [][2]string{
		{"a", "b_c"},
		{"a_b", "c"},
		{"ab", "c"},
		{"a", "bc"},
		{"u1", "u2"},
		{"u1", "u12"},
		{"u11", "u2"},
	}
	seen := make(map[string][2]string)
	for _, p := range pairs {
		id, err := RoomID(p[0], p[1])
		if err != nil {
			t.Fatalf("RoomID(%q, %q): %v", p[0], p[1], err)
		}
		if prev, ok := seen[id]; ok {
			t.Fatalf("pairs %v and %v share room id %q", prev, p, id)
		}
		seen[id] = p
	}
}

func TestValidateIdentity(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"u1", true},
		{"Xy9-_.@", true},
		{"", false},
		{"a~b", false},
		{"a b", false},
		{"a\tb", false},
		{"a/b", false},
	}
	for _, tt := range tests {
		err := ValidateIdentity(tt.id)
		if tt.valid && err != nil {
			t.Errorf("ValidateIdentity(%q) = %v, want nil", tt.id, err)
		}
		if !tt.valid && !errors.Is(err, ErrValidation) {
			t.Errorf("ValidateIdentity(%q) = %v, want ErrValidation", tt.id, err)
		}
	}
}

func TestRoomParticipantsRejects(t *testing.T) {
	for _, roomID := range []string{"", "solo", "a~b~c", "b~a", "~a"} {
		if _, err := RoomParticipants(roomID); err == nil {
			t.Errorf("RoomParticipants(%q) accepted", roomID)
		}
	}
}
