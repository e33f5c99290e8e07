package usecase

import (
	"context"
	"fmt"
	"strings"

	"telemed-backend/internal/converter"
	"telemed-backend/internal/delivery/dto"
	"telemed-backend/internal/domain/entity"
	"telemed-backend/internal/domain/repository"
	"telemed-backend/internal/service"

	"github.com/sirupsen/logrus"
)

var (
	ErrRoomNotFound       = fmt.Errorf("%w: chat room not found", entity.ErrNotFound)
	ErrNotRoomMember      = fmt.Errorf("%w: you are not a participant of this room", entity.ErrPermissionDenied)
	ErrSelfChat           = fmt.Errorf("%w: a chat room needs two distinct participants", entity.ErrValidation)
	ErrEmptyMessage       = fmt.Errorf("%w: message content is empty", entity.ErrValidation)
	ErrUnsupportedMsgType = fmt.Errorf("%w: unsupported message type", entity.ErrValidation)
)

type ChatUsecase interface {
	CreateOrGetRoom(ctx context.Context, participantA, participantB string) (*dto.ChatRoomResponse, error)
	SendMessage(ctx context.Context, roomID string, senderID string, req *dto.SendMessageRequest) (*dto.MessageResponse, error)
	GetMessages(ctx context.Context, actor entity.Actor, roomID string) (*dto.MessageListResponse, error)
	SubscribeMessages(ctx context.Context, actor entity.Actor, roomID string, onChange func(*dto.MessageListResponse)) (*service.Subscription, error)
	GetRoomsForParticipant(ctx context.Context, identity string) (*dto.ChatRoomListResponse, error)
}

type chatUsecase struct {
	log  *logrus.Logger
	repo repository.DocumentRepository
	subs *service.SubscriptionManager
}

func NewChatUsecase(log *logrus.Logger, repo repository.DocumentRepository, subs *service.SubscriptionManager) ChatUsecase {
	return &chatUsecase{
		log:  log,
		repo: repo,
		subs: subs,
	}
}

// CreateOrGetRoom returns the room of the pair, creating it on first use.
// The room id is derived from the pair and the create is conditional, so
// concurrent callers converge on a single room.
func (u *chatUsecase) CreateOrGetRoom(ctx context.Context, participantA, participantB string) (*dto.ChatRoomResponse, error) {
	roomID, err := entity.RoomID(participantA, participantB)
	if err != nil {
		return nil, err
	}
	if participantA == participantB {
		return nil, ErrSelfChat
	}

	doc, err := u.repo.GetByID(ctx, entity.CollectionChatRooms, roomID)
	if err != nil {
		u.log.Warnf("Failed to find chat room %s: %+v", roomID, err)
		return nil, err
	}

	if doc == nil {
		participants, _ := entity.RoomParticipants(roomID)
		created, err := u.repo.CreateIfAbsent(ctx, entity.CollectionChatRooms, roomID, entity.JSON{
			"participants": participants,
			"lastMessage":  "",
			"lastSenderId": "",
			"lastActivity": entity.ServerTimestamp,
		})
		if err != nil {
			u.log.Warnf("Failed to create chat room %s: %+v", roomID, err)
			return nil, err
		}
		if created {
			u.log.Infof("Chat room %s created", roomID)
		}

		doc, err = u.repo.GetByID(ctx, entity.CollectionChatRooms, roomID)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return nil, ErrRoomNotFound
		}
	}

	return converter.ChatRoomToResponse(converter.DocumentToChatRoom(doc)), nil
}

// SendMessage appends a message to the room, then refreshes the room preview.
// The preview is best-effort: the message is already stored when the preview
// write fails, so that failure is logged and the send still succeeds. The
// next message repairs the preview.
func (u *chatUsecase) SendMessage(ctx context.Context, roomID string, senderID string, req *dto.SendMessageRequest) (*dto.MessageResponse, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	msgType := req.Type
	if msgType == "" {
		msgType = entity.MessageTypeText
	}
	if msgType != entity.MessageTypeText {
		return nil, ErrUnsupportedMsgType
	}

	room, err := u.findRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasParticipant(senderID) {
		return nil, ErrNotRoomMember
	}

	message := &entity.Message{
		RoomID:   roomID,
		SenderID: senderID,
		Content:  content,
		Type:     msgType,
	}
	collection := entity.MessagesCollection(roomID)
	id, err := u.repo.Create(ctx, collection, converter.MessageToDocument(message))
	if err != nil {
		u.log.Warnf("Failed to send message to room %s: %+v", roomID, err)
		return nil, err
	}

	preview := entity.JSON{
		"lastMessage":  content,
		"lastSenderId": senderID,
		"lastActivity": entity.ServerTimestamp,
	}
	if err := u.repo.Update(ctx, entity.CollectionChatRooms, roomID, preview); err != nil {
		u.log.Warnf("Failed to update preview of room %s after message %s: %+v", roomID, id, err)
	}

	doc, err := u.repo.GetByID(ctx, collection, id)
	if err != nil || doc == nil {
		// The message is stored; answer with what was sent.
		message.ID = id
		return converter.MessageToResponse(message), nil
	}
	return converter.MessageToResponse(converter.DocumentToMessage(roomID, doc)), nil
}

// GetMessages returns the messages of a room, oldest first
func (u *chatUsecase) GetMessages(ctx context.Context, actor entity.Actor, roomID string) (*dto.MessageListResponse, error) {
	if err := u.checkMember(ctx, actor, roomID); err != nil {
		return nil, err
	}

	docs, err := u.repo.Query(ctx, entity.MessagesCollection(roomID), messagesQuery())
	if err != nil {
		u.log.Warnf("Failed to query messages of room %s: %+v", roomID, err)
		return nil, err
	}
	return messageList(roomID, docs), nil
}

// SubscribeMessages delivers the room's messages, oldest first, now and on
// every new message
func (u *chatUsecase) SubscribeMessages(ctx context.Context, actor entity.Actor, roomID string, onChange func(*dto.MessageListResponse)) (*service.Subscription, error) {
	if err := u.checkMember(ctx, actor, roomID); err != nil {
		return nil, err
	}

	return u.subs.Subscribe(ctx, entity.MessagesCollection(roomID), messagesQuery(), func(docs []entity.Document) {
		onChange(messageList(roomID, docs))
	})
}

// GetRoomsForParticipant lists identity's rooms, most recently active first
func (u *chatUsecase) GetRoomsForParticipant(ctx context.Context, identity string) (*dto.ChatRoomListResponse, error) {
	if err := entity.ValidateIdentity(identity); err != nil {
		return nil, err
	}

	query := entity.NewQuery().
		WhereArrayContains("participants", identity).
		OrderBy("lastActivity", entity.Desc)
	docs, err := u.repo.Query(ctx, entity.CollectionChatRooms, query)
	if err != nil {
		u.log.Warnf("Failed to query rooms of %s: %+v", identity, err)
		return nil, err
	}

	rooms := converter.DocumentsToChatRooms(docs)
	return &dto.ChatRoomListResponse{
		Rooms: converter.ChatRoomsToResponses(rooms),
		Total: len(rooms),
	}, nil
}

func (u *chatUsecase) findRoom(ctx context.Context, roomID string) (*entity.ChatRoom, error) {
	if _, err := entity.RoomParticipants(roomID); err != nil {
		return nil, ErrRoomNotFound
	}
	doc, err := u.repo.GetByID(ctx, entity.CollectionChatRooms, roomID)
	if err != nil {
		u.log.Warnf("Failed to find chat room %s: %+v", roomID, err)
		return nil, err
	}
	if doc == nil {
		return nil, ErrRoomNotFound
	}
	return converter.DocumentToChatRoom(doc), nil
}

func (u *chatUsecase) checkMember(ctx context.Context, actor entity.Actor, roomID string) error {
	room, err := u.findRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.HasParticipant(actor.ID) {
		return ErrNotRoomMember
	}
	return nil
}

func messagesQuery() *entity.Query {
	return entity.NewQuery().OrderBy("timestamp", entity.Asc)
}

func messageList(roomID string, docs []entity.Document) *dto.MessageListResponse {
	messages := converter.DocumentsToMessages(roomID, docs)
	return &dto.MessageListResponse{
		Messages: converter.MessagesToResponses(messages),
		Total:    len(messages),
	}
}
