package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"careercompass/infrastructure/cache"
	"careercompass/internal/entity"
	"careercompass/internal/repository"
	"careercompass/pkg/apperr"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// EditWindow bounds how long after sending a message may still be edited.
	EditWindow = 5 * time.Minute

	DefaultPageSize = 50
	MaxPageSize     = 100

	userCacheTTL = 5 * time.Minute
)

type ChatUsecase interface {
	// GetOrCreateChat returns the unique chat between the mentee and the
	// mentor, creating it on first contact. The mentor must exist, be
	// active, and hold the mentor role.
	GetOrCreateChat(ctx context.Context, menteeId, mentorId string) (entity.Chat, error)

	// ListChats returns the caller's chats newest-activity-first, with the
	// counterpart's profile joined in.
	ListChats(ctx context.Context, userId string) ([]entity.ChatSummary, error)

	// ListMessages returns one page in chronological order plus the total
	// message count. As a side effect it records read receipts for every
	// unread message not sent by the requester and resets the requester's
	// unread slot.
	ListMessages(ctx context.Context, chatId, requesterId string, page, limit int) ([]entity.Message, int64, error)

	SendMessage(ctx context.Context, chatId, senderId, content string, attachment *entity.Attachment) (entity.Message, error)
	EditMessage(ctx context.Context, chatId, messageId, requesterId, newContent string) (entity.Message, error)
	DeleteMessage(ctx context.Context, chatId, messageId, requesterId string) error
	ToggleReaction(ctx context.Context, chatId, messageId, userId, emoji string) ([]entity.Reaction, error)
	MarkRead(ctx context.Context, chatId, messageId, userId string) error
}

type chatUsecase struct {
	chatRepo    repository.ChatRepository
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	userCache   cache.Cache
	log         *zap.Logger
}

func NewChatUsecase(
	chatRepo repository.ChatRepository,
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	userCache cache.Cache,
	log *zap.Logger,
) ChatUsecase {
	return &chatUsecase{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		userCache:   userCache,
		log:         log,
	}
}

func validIds(ids ...string) error {
	for _, id := range ids {
		if uuid.Validate(id) != nil {
			return apperr.BadRequest("malformed identifier")
		}
	}
	return nil
}

func (c *chatUsecase) GetOrCreateChat(ctx context.Context, menteeId, mentorId string) (entity.Chat, error) {
	if err := validIds(menteeId, mentorId); err != nil {
		return entity.Chat{}, err
	}
	if menteeId == mentorId {
		return entity.Chat{}, apperr.BadRequest("cannot start a chat with yourself")
	}

	mentor, err := c.userRepo.Get(ctx, mentorId)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return entity.Chat{}, apperr.NotFound("mentor not found")
		}
		return entity.Chat{}, apperr.Internal(err)
	}
	if mentor.Role != entity.RoleMentor || !mentor.IsActive {
		return entity.Chat{}, apperr.NotFound("mentor not found")
	}

	chat, created, err := c.chatRepo.GetOrCreate(ctx, menteeId, mentorId)
	if err != nil {
		return entity.Chat{}, apperr.Internal(err)
	}
	if created {
		c.log.Info("chat created",
			zap.String("chatId", chat.Id),
			zap.String("menteeId", menteeId),
			zap.String("mentorId", mentorId),
		)
	}

	return chat, nil
}

func (c *chatUsecase) ListChats(ctx context.Context, userId string) ([]entity.ChatSummary, error) {
	if err := validIds(userId); err != nil {
		return nil, err
	}

	chats, err := c.chatRepo.ListByParticipant(ctx, userId)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	summaries := make([]entity.ChatSummary, 0, len(chats))
	for _, chat := range chats {
		summary := entity.ChatSummary{Chat: chat}
		if partner, err := c.cachedUser(ctx, chat.OtherParticipant(userId)); err == nil {
			summary.Partner = &partner
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// cachedUser is a cache-aside profile lookup; misses fall through to the
// user repository.
func (c *chatUsecase) cachedUser(ctx context.Context, userId string) (entity.User, error) {
	key := "user:" + userId
	if raw, ok := c.userCache.Get(ctx, key); ok {
		var user entity.User
		if err := json.Unmarshal(raw, &user); err == nil {
			return user, nil
		}
	}

	user, err := c.userRepo.Get(ctx, userId)
	if err != nil {
		return entity.User{}, err
	}
	user.Password = ""

	if raw, err := json.Marshal(user); err == nil {
		c.userCache.Set(ctx, key, raw, userCacheTTL)
	}
	return user, nil
}

// participantChat loads the chat and verifies the requester belongs to it.
func (c *chatUsecase) participantChat(ctx context.Context, chatId, userId string) (entity.Chat, error) {
	if err := validIds(chatId, userId); err != nil {
		return entity.Chat{}, err
	}

	chat, err := c.chatRepo.Get(ctx, chatId)
	if err != nil {
		if errors.Is(err, repository.ErrChatNotFound) {
			return entity.Chat{}, apperr.NotFound("chat not found")
		}
		return entity.Chat{}, apperr.Internal(err)
	}
	if !chat.IsParticipant(userId) {
		return entity.Chat{}, apperr.Forbidden("you are not a participant of this chat")
	}

	return chat, nil
}

// chatMessage loads a message and verifies it belongs to the given chat.
func (c *chatUsecase) chatMessage(ctx context.Context, chatId, messageId string) (entity.Message, error) {
	if err := validIds(messageId); err != nil {
		return entity.Message{}, err
	}

	msg, err := c.messageRepo.Get(ctx, messageId)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return entity.Message{}, apperr.NotFound("message not found")
		}
		return entity.Message{}, apperr.Internal(err)
	}
	if msg.ChatId != chatId {
		return entity.Message{}, apperr.NotFound("message not found")
	}

	return msg, nil
}

func (c *chatUsecase) ListMessages(ctx context.Context, chatId, requesterId string, page, limit int) ([]entity.Message, int64, error) {
	chat, err := c.participantChat(ctx, chatId, requesterId)
	if err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	offset := (page - 1) * limit

	// Paged newest-first internally, presented oldest-first.
	messages, total, err := c.messageRepo.ListByChat(ctx, chat.Id, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	// Fetching a page counts as reading the chat: receipt every unread
	// message from the counterpart and zero the requester's slot.
	if _, err := c.messageRepo.MarkChatRead(ctx, chat.Id, requesterId, time.Now()); err != nil {
		return nil, 0, apperr.Internal(err)
	}
	if err := c.chatRepo.ResetUnread(ctx, chat.Id, chat.Slot(requesterId)); err != nil {
		return nil, 0, apperr.Internal(err)
	}

	return messages, total, nil
}

func (c *chatUsecase) SendMessage(ctx context.Context, chatId, senderId, content string, attachment *entity.Attachment) (entity.Message, error) {
	chat, err := c.participantChat(ctx, chatId, senderId)
	if err != nil {
		return entity.Message{}, err
	}

	content = strings.TrimSpace(content)
	if content == "" && attachment == nil {
		return entity.Message{}, apperr.BadRequest("message content or attachment is required")
	}
	if len(content) > entity.MaxContentLength {
		return entity.Message{}, apperr.BadRequest("message content exceeds 2000 characters")
	}

	msg, err := c.messageRepo.Create(ctx, entity.Message{
		ChatId:      chat.Id,
		SenderId:    senderId,
		Content:     content,
		MessageType: entity.MessageTypeFor(attachment),
		Attachment:  attachment,
	})
	if err != nil {
		return entity.Message{}, apperr.Internal(err)
	}

	recipientSlot := chat.Slot(chat.OtherParticipant(senderId))
	if err := c.chatRepo.RecordMessage(ctx, chat.Id, msg.Id, recipientSlot, msg.CreatedAt); err != nil {
		// The message is durable; the chat summary lags until the next
		// send. Recorded for reconciliation rather than failing the call.
		c.log.Error("chat aggregate update failed after message insert",
			zap.String("chatId", chat.Id),
			zap.String("messageId", msg.Id),
			zap.Error(err),
		)
	}

	return msg, nil
}

func (c *chatUsecase) EditMessage(ctx context.Context, chatId, messageId, requesterId, newContent string) (entity.Message, error) {
	if _, err := c.participantChat(ctx, chatId, requesterId); err != nil {
		return entity.Message{}, err
	}

	msg, err := c.chatMessage(ctx, chatId, messageId)
	if err != nil {
		return entity.Message{}, err
	}
	if msg.SenderId != requesterId {
		return entity.Message{}, apperr.Forbidden("only the sender can edit a message")
	}
	if msg.IsDeleted {
		return entity.Message{}, apperr.BadRequest("cannot edit a deleted message")
	}
	if time.Since(msg.CreatedAt) > EditWindow {
		return entity.Message{}, apperr.TooOld("messages can only be edited within 5 minutes of sending")
	}

	newContent = strings.TrimSpace(newContent)
	if newContent == "" {
		return entity.Message{}, apperr.BadRequest("message content is required")
	}
	if len(newContent) > entity.MaxContentLength {
		return entity.Message{}, apperr.BadRequest("message content exceeds 2000 characters")
	}

	now := time.Now()
	if err := c.messageRepo.SetContent(ctx, msg.Id, newContent, now); err != nil {
		return entity.Message{}, apperr.Internal(err)
	}

	msg.Content = newContent
	msg.IsEdited = true
	msg.EditedAt = &now
	return msg, nil
}

func (c *chatUsecase) DeleteMessage(ctx context.Context, chatId, messageId, requesterId string) error {
	if _, err := c.participantChat(ctx, chatId, requesterId); err != nil {
		return err
	}

	msg, err := c.chatMessage(ctx, chatId, messageId)
	if err != nil {
		return err
	}
	if msg.SenderId != requesterId {
		return apperr.Forbidden("only the sender can delete a message")
	}
	if msg.IsDeleted {
		return apperr.BadRequest("message is already deleted")
	}

	if err := c.messageRepo.Tombstone(ctx, msg.Id, entity.DeletedContent, time.Now()); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (c *chatUsecase) ToggleReaction(ctx context.Context, chatId, messageId, userId, emoji string) ([]entity.Reaction, error) {
	if _, err := c.participantChat(ctx, chatId, userId); err != nil {
		return nil, err
	}

	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return nil, apperr.BadRequest("emoji is required")
	}

	msg, err := c.chatMessage(ctx, chatId, messageId)
	if err != nil {
		return nil, err
	}

	if msg.HasReaction(userId, emoji) {
		err = c.messageRepo.RemoveReaction(ctx, msg.Id, userId, emoji)
	} else {
		err = c.messageRepo.AddReaction(ctx, msg.Id, entity.Reaction{
			UserId:    userId,
			Emoji:     emoji,
			CreatedAt: time.Now(),
		})
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}

	updated, err := c.messageRepo.Get(ctx, msg.Id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return updated.Reactions, nil
}

func (c *chatUsecase) MarkRead(ctx context.Context, chatId, messageId, userId string) error {
	if _, err := c.participantChat(ctx, chatId, userId); err != nil {
		return err
	}

	msg, err := c.chatMessage(ctx, chatId, messageId)
	if err != nil {
		return err
	}
	if msg.SenderId == userId {
		// Senders never receipt their own messages.
		return nil
	}

	if err := c.messageRepo.AddReadReceipt(ctx, msg.Id, userId, time.Now()); err != nil {
		return apperr.Internal(err)
	}
	return nil
}
