package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"telechat/internal/config"
	"telechat/internal/models"
	"telechat/pkg/database"
	"telechat/pkg/logger"
)

// ChatService handles conversation and message operations. Every
// mutation is a single-document read-modify-write; concurrent writers
// race at document granularity and the last write wins.
type ChatService struct {
	chats     *mongo.Collection
	users     *mongo.Collection
	uploadDir string
}

// NewChatService creates a new chat service
func NewChatService() *ChatService {
	cfg := config.Load()
	return &ChatService{
		chats:     database.GetCollection("chats"),
		users:     database.GetCollection("users"),
		uploadDir: cfg.Upload.Directory,
	}
}

// ForwardResult is the outcome of forwarding into one target chat
type ForwardResult struct {
	ChatID  primitive.ObjectID `json:"chat_id"`
	Message models.Message     `json:"message"`
}

// MessageSearchResult locates a matching message within a chat
type MessageSearchResult struct {
	ChatID   primitive.ObjectID `json:"chat_id"`
	ChatName string             `json:"chat_name,omitempty"`
	Message  models.Message     `json:"message"`
}

// ListForUser returns the caller's chats ordered by recent activity
func (s *ChatService) ListForUser(ctx context.Context, userID string) ([]models.Chat, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id", ErrNotFound)
	}

	opts := options.Find().SetSort(bson.D{{Key: "last_activity", Value: -1}})
	cursor, err := s.chats.Find(ctx, bson.M{"participants": oid}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer cursor.Close(ctx)

	var chats []models.Chat
	if err := cursor.All(ctx, &chats); err != nil {
		return nil, fmt.Errorf("failed to decode chats: %w", err)
	}

	return chats, nil
}

// typingStaleAfter is the read-side staleness threshold for typing
// entries; the store never expires them itself.
const typingStaleAfter = 10 * time.Second

// GetChat returns a chat the caller participates in. Stale typing
// entries are filtered from the returned view.
func (s *ChatService) GetChat(ctx context.Context, chatID, userID string) (*models.Chat, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	chat, err := s.fetchChatForUser(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}

	chat.TypingUsers = chat.CurrentlyTyping(typingStaleAfter, time.Now())
	return chat, nil
}

// GetOrCreateDirect returns the direct chat between the caller and
// another user, creating it on first contact.
func (s *ChatService) GetOrCreateDirect(ctx context.Context, userID, otherUserID string) (*models.Chat, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id", ErrNotFound)
	}
	oid, err := primitive.ObjectIDFromHex(otherUserID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id", ErrNotFound)
	}
	if uid == oid {
		return nil, fmt.Errorf("%w: cannot open a chat with yourself", ErrForbidden)
	}

	if count, err := s.users.CountDocuments(ctx, bson.M{"_id": oid}); err != nil {
		return nil, fmt.Errorf("failed to check user: %w", err)
	} else if count == 0 {
		return nil, ErrNotFound
	}

	filter := bson.M{
		"type":         models.ChatTypeDirect,
		"participants": bson.M{"$all": []primitive.ObjectID{uid, oid}},
	}

	var chat models.Chat
	err = s.chats.FindOne(ctx, filter).Decode(&chat)
	if err == nil {
		return &chat, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("failed to look up direct chat: %w", err)
	}

	created := models.NewDirectChat(uid, oid)
	if _, err := s.chats.InsertOne(ctx, created); err != nil {
		return nil, fmt.Errorf("failed to create direct chat: %w", err)
	}

	logger.LogChatEvent("direct_chat_created", created.ID.Hex(), userID, nil)

	return created, nil
}

// CreateGroup creates a group chat with the caller as admin
func (s *ChatService) CreateGroup(ctx context.Context, adminID, name string, participantIDs []string) (*models.Chat, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	admin, err := primitive.ObjectIDFromHex(adminID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id", ErrNotFound)
	}

	participants := make([]primitive.ObjectID, 0, len(participantIDs))
	for _, id := range participantIDs {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid participant id %s", ErrNotFound, id)
		}
		participants = append(participants, oid)
	}

	chat := models.NewGroupChat(name, admin, participants)
	if _, err := s.chats.InsertOne(ctx, chat); err != nil {
		return nil, fmt.Errorf("failed to create group chat: %w", err)
	}

	logger.LogChatEvent("group_created", chat.ID.Hex(), adminID, map[string]interface{}{
		"name":         name,
		"participants": len(chat.Participants),
	})

	return chat, nil
}

// AddMember adds a user to a group. Admin only.
func (s *ChatService) AddMember(ctx context.Context, chatID, callerID, memberID string) (*models.Chat, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	chat, err := s.fetchChatForUser(ctx, chatID, callerID)
	if err != nil {
		return nil, err
	}
	if !chat.IsGroup() {
		return nil, fmt.Errorf("%w: not a group chat", ErrForbidden)
	}
	if chat.Admin.Hex() != callerID {
		return nil, fmt.Errorf("%w: only the group admin can add members", ErrForbidden)
	}

	member, err := primitive.ObjectIDFromHex(memberID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id", ErrNotFound)
	}
	if count, err := s.users.CountDocuments(ctx, bson.M{"_id": member}); err != nil {
		return nil, fmt.Errorf("failed to check user: %w", err)
	} else if count == 0 {
		return nil, ErrNotFound
	}

	chat.AddParticipant(member)
	if err := s.save(ctx, chat); err != nil {
		return nil, err
	}

	logger.LogChatEvent("member_added", chatID, callerID, map[string]interface{}{
		"member_id": memberID,
	})

	return chat, nil
}

// RemoveMember removes a user from a group. Permitted for the admin or
// for self-removal. Removing the admin reassigns admin to the first
// remaining participant; an emptied group is left adminless.
func (s *ChatService) RemoveMember(ctx context.Context, chatID, callerID, memberID string) (*models.Chat, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	chat, err := s.fetchChatForUser(ctx, chatID, callerID)
	if err != nil {
		return nil, err
	}
	if !chat.IsGroup() {
		return nil, fmt.Errorf("%w: not a group chat", ErrForbidden)
	}
	if chat.Admin.Hex() != callerID && callerID != memberID {
		return nil, fmt.Errorf("%w: only the group admin can remove other members", ErrForbidden)
	}

	member, err := primitive.ObjectIDFromHex(memberID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id", ErrNotFound)
	}
	if !chat.RemoveParticipant(member) {
		return nil, fmt.Errorf("%w: user is not a member", ErrNotFound)
	}

	if err := s.save(ctx, chat); err != nil {
		return nil, err
	}

	logger.LogChatEvent("member_removed", chatID, callerID, map[string]interface{}{
		"member_id": memberID,
	})

	return chat, nil
}

// UpdateGroupInfo overwrites a group's name and avatar. Admin only.
func (s *ChatService) UpdateGroupInfo(ctx context.Context, chatID, callerID, name, avatar string) (*models.Chat, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	chat, err := s.fetchChatForUser(ctx, chatID, callerID)
	if err != nil {
		return nil, err
	}
	if !chat.IsGroup() {
		return nil, fmt.Errorf("%w: not a group chat", ErrForbidden)
	}
	if chat.Admin.Hex() != callerID {
		return nil, fmt.Errorf("%w: only the group admin can edit the group", ErrForbidden)
	}

	if name != "" {
		chat.Name = name
	}
	if avatar != "" {
		chat.Avatar = avatar
	}
	chat.UpdatedAt = time.Now()

	if err := s.save(ctx, chat); err != nil {
		return nil, err
	}

	return chat, nil
}

// UpdateTheme sets the chat theme. Any participant may change it.
func (s *ChatService) UpdateTheme(ctx context.Context, chatID, callerID, theme string) (*models.Chat, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	chat, err := s.fetchChatForUser(ctx, chatID, callerID)
	if err != nil {
		return nil, err
	}

	chat.Theme = theme
	chat.UpdatedAt = time.Now()

	if err := s.save(ctx, chat); err != nil {
		return nil, err
	}

	logger.LogChatEvent("theme_updated", chatID, callerID, map[string]interface{}{
		"theme": theme,
	})

	return chat, nil
}

// GetMessages returns the chat's messages with soft-deleted entries
// filtered out
func (s *ChatService) GetMessages(ctx context.Context, chatID, userID string) ([]models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	chat, err := s.fetchChatForUser(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}

	return chat.VisibleMessages(), nil
}

// GetPinned returns the chat's pinned, non-deleted messages
func (s *ChatService) GetPinned(ctx context.Context, chatID, userID string) ([]models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	chat, err := s.fetchChatForUser(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}

	pinned := make([]models.Message, 0, len(chat.PinnedMessages))
	for _, id := range chat.PinnedMessages {
		if msg, ok := chat.FindMessage(id); ok && !msg.IsDeleted {
			pinned = append(pinned, *msg)
		}
	}

	return pinned, nil
}

// SendMessage appends a message to the chat and refreshes the
// denormalized last-message fields
func (s *ChatService) SendMessage(ctx context.Context, chatID, senderID, text, msgType, replyTo string) (*models.Chat, *models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	chat, err := s.fetchChatForUser(ctx, chatID, senderID)
	if err != nil {
		return nil, nil, err
	}

	sender, _ := primitive.ObjectIDFromHex(senderID)
	if msgType == "" {
		msgType = models.MessageTypeText
	}

	msg := models.NewMessage(sender, text, msgType)
	if replyTo != "" {
		target, err := primitive.ObjectIDFromHex(replyTo)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: invalid reply target", ErrNotFound)
		}
		if _, ok := chat.FindMessage(target); !ok {
			return nil, nil, fmt.Errorf("%w: reply target message", ErrNotFound)
		}
		msg.ReplyTo = &target
	}

	chat.AppendMessage(msg)
	if err := s.save(ctx, chat); err != nil {
		return nil, nil, err
	}

	logger.LogChatEvent("message_sent", chatID, senderID, map[string]interface{}{
		"message_id":   msg.ID.Hex(),
		"message_type": msgType,
	})

	return chat, msg, nil
}

// SendFileMessage appends a file-backed message to the chat
func (s *ChatService) SendFileMessage(ctx context.Context, chatID, senderID, text, msgType, fileURL, fileName string, fileSize int64) (*models.Chat, *models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	chat, err := s.fetchChatForUser(ctx, chatID, senderID)
	if err != nil {
		return nil, nil, err
	}

	sender, _ := primitive.ObjectIDFromHex(senderID)
	msg := models.NewMessage(sender, text, msgType)
	msg.FileURL = fileURL
	msg.FileName = fileName
	msg.FileSize = fileSize

	chat.AppendMessage(msg)
	if err := s.save(ctx, chat); err != nil {
		return nil, nil, err
	}

	logger.LogChatEvent("file_sent", chatID, senderID, map[string]interface{}{
		"message_id": msg.ID.Hex(),
		"file_name":  fileName,
		"file_size":  fileSize,
	})

	return chat, msg, nil
}

// EditMessage updates a message's text. Sender only.
func (s *ChatService) EditMessage(ctx context.Context, messageID, callerID, text string) (*models.Chat, *models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	chat, msg, err := s.fetchChatByMessage(ctx, messageID, callerID)
	if err != nil {
		return nil, nil, err
	}
	if msg.Sender.Hex() != callerID {
		return nil, nil, fmt.Errorf("%w: only the sender can edit a message", ErrForbidden)
	}

	now := time.Now()
	msg.Text = text
	msg.IsEdited = true
	msg.EditedAt = &now
	if chat.LastMessage != nil && chat.LastMessage.ID == msg.ID {
		chat.LastMessage = msg
	}

	if err := s.save(ctx, chat); err != nil {
		return nil, nil, err
	}

	return chat, msg, nil
}

// DeleteMessage soft-deletes a message and removes its uploaded file
// from storage. Sender only. The message stays in the sequence.
func (s *ChatService) DeleteMessage(ctx context.Context, messageID, callerID string) (*models.Chat, *models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	chat, msg, err := s.fetchChatByMessage(ctx, messageID, callerID)
	if err != nil {
		return nil, nil, err
	}
	if msg.Sender.Hex() != callerID {
		return nil, nil, fmt.Errorf("%w: only the sender can delete a message", ErrForbidden)
	}

	now := time.Now()
	msg.IsDeleted = true
	msg.DeletedAt = &now

	if err := s.save(ctx, chat); err != nil {
		return nil, nil, err
	}

	if msg.FileURL != "" {
		s.removeStoredFile(msg.FileURL)
	}

	logger.LogChatEvent("message_deleted", chat.ID.Hex(), callerID, map[string]interface{}{
		"message_id": messageID,
	})

	return chat, msg, nil
}

// ToggleReaction toggles the caller's reaction on a message
func (s *ChatService) ToggleReaction(ctx context.Context, messageID, callerID, emoji string) (*models.Chat, *models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	chat, msg, err := s.fetchChatByMessage(ctx, messageID, callerID)
	if err != nil {
		return nil, nil, err
	}

	caller, _ := primitive.ObjectIDFromHex(callerID)
	msg.ToggleReaction(caller, emoji)

	if err := s.save(ctx, chat); err != nil {
		return nil, nil, err
	}

	return chat, msg, nil
}

// TogglePin pins or unpins a message. Group chats restrict pinning to
// the admin; either participant may pin in a direct chat.
func (s *ChatService) TogglePin(ctx context.Context, messageID, callerID string) (*models.Chat, *models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	chat, msg, err := s.fetchChatByMessage(ctx, messageID, callerID)
	if err != nil {
		return nil, nil, err
	}
	if chat.IsGroup() && chat.Admin.Hex() != callerID {
		return nil, nil, fmt.Errorf("%w: only the group admin can pin messages", ErrForbidden)
	}

	caller, _ := primitive.ObjectIDFromHex(callerID)
	if _, ok := chat.TogglePin(msg.ID, caller, time.Now()); !ok {
		return nil, nil, fmt.Errorf("%w: message", ErrNotFound)
	}

	if err := s.save(ctx, chat); err != nil {
		return nil, nil, err
	}

	return chat, msg, nil
}

// Forward copies a message into each target chat the caller belongs
// to, with provenance attached. Targets the caller is not a member of
// are skipped, not errors.
func (s *ChatService) Forward(ctx context.Context, messageID, callerID string, targetChatIDs []string) ([]ForwardResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	sourceChat, original, err := s.fetchChatByMessage(ctx, messageID, callerID)
	if err != nil {
		return nil, err
	}

	caller, _ := primitive.ObjectIDFromHex(callerID)
	results := make([]ForwardResult, 0, len(targetChatIDs))

	for _, targetID := range targetChatIDs {
		target, err := s.fetchChatForUser(ctx, targetID, callerID)
		if err != nil {
			// Non-member targets and bad ids are skipped
			continue
		}

		msg := models.NewMessage(caller, original.Text, original.Type)
		msg.FileURL = original.FileURL
		msg.FileName = original.FileName
		msg.FileSize = original.FileSize
		msg.Forwarded = &models.ForwardInfo{
			OriginChat:   sourceChat.ID,
			OriginSender: original.Sender,
			OriginTime:   original.CreatedAt,
		}

		target.AppendMessage(msg)
		if err := s.save(ctx, target); err != nil {
			logger.LogError(err, "chat_forward_save", map[string]interface{}{
				"target_chat": targetID,
			})
			continue
		}

		results = append(results, ForwardResult{ChatID: target.ID, Message: *msg})
	}

	logger.LogChatEvent("message_forwarded", sourceChat.ID.Hex(), callerID, map[string]interface{}{
		"message_id": messageID,
		"targets":    len(results),
	})

	return results, nil
}

// MarkRead records read receipts for the caller. With no message ids
// given, every message in the chat is marked. Returns the ids that
// gained a receipt.
func (s *ChatService) MarkRead(ctx context.Context, chatID, callerID string, messageIDs []string) ([]primitive.ObjectID, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	chat, err := s.fetchChatForUser(ctx, chatID, callerID)
	if err != nil {
		return nil, err
	}

	caller, _ := primitive.ObjectIDFromHex(callerID)

	var ids []primitive.ObjectID
	for _, id := range messageIDs {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		ids = append(ids, oid)
	}

	updated := chat.MarkRead(caller, ids, time.Now())
	if len(updated) == 0 {
		return updated, nil
	}

	if err := s.save(ctx, chat); err != nil {
		return nil, err
	}

	return updated, nil
}

// SetTyping adds, refreshes or clears the caller's typing entry
func (s *ChatService) SetTyping(ctx context.Context, chatID, callerID string, typing bool) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	chat, err := s.fetchChatForUser(ctx, chatID, callerID)
	if err != nil {
		return err
	}

	caller, _ := primitive.ObjectIDFromHex(callerID)
	chat.SetTyping(caller, typing, time.Now())

	return s.save(ctx, chat)
}

// SearchMessages finds non-deleted messages containing the query,
// case-insensitively, across all of the caller's chats
func (s *ChatService) SearchMessages(ctx context.Context, callerID, query string) ([]MessageSearchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	chats, err := s.ListForUser(ctx, callerID)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	var results []MessageSearchResult

	for i := range chats {
		for _, msg := range chats[i].Messages {
			if msg.IsDeleted {
				continue
			}
			if strings.Contains(strings.ToLower(msg.Text), needle) {
				results = append(results, MessageSearchResult{
					ChatID:   chats[i].ID,
					ChatName: chats[i].Name,
					Message:  msg,
				})
			}
		}
	}

	return results, nil
}

// fetchChatForUser loads a chat and checks the caller's membership
func (s *ChatService) fetchChatForUser(ctx context.Context, chatID, userID string) (*models.Chat, error) {
	oid, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid chat id", ErrNotFound)
	}
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id", ErrNotFound)
	}

	var chat models.Chat
	if err := s.chats.FindOne(ctx, bson.M{"_id": oid}).Decode(&chat); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: chat", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch chat: %w", err)
	}

	if !chat.HasParticipant(uid) {
		return nil, fmt.Errorf("%w: not a participant of this chat", ErrForbidden)
	}

	return &chat, nil
}

// fetchChatByMessage locates the chat containing a message and checks
// the caller's membership
func (s *ChatService) fetchChatByMessage(ctx context.Context, messageID, userID string) (*models.Chat, *models.Message, error) {
	oid, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: invalid message id", ErrNotFound)
	}
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: invalid user id", ErrNotFound)
	}

	var chat models.Chat
	if err := s.chats.FindOne(ctx, bson.M{"messages._id": oid}).Decode(&chat); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil, fmt.Errorf("%w: message", ErrNotFound)
		}
		return nil, nil, fmt.Errorf("failed to fetch chat by message: %w", err)
	}

	if !chat.HasParticipant(uid) {
		return nil, nil, fmt.Errorf("%w: not a participant of this chat", ErrForbidden)
	}

	msg, ok := chat.FindMessage(oid)
	if !ok {
		return nil, nil, fmt.Errorf("%w: message", ErrNotFound)
	}

	return &chat, msg, nil
}

// save writes the whole chat document back
func (s *ChatService) save(ctx context.Context, chat *models.Chat) error {
	if _, err := s.chats.ReplaceOne(ctx, bson.M{"_id": chat.ID}, chat); err != nil {
		logger.LogError(err, "chat_save", map[string]interface{}{
			"chat_id": chat.ID.Hex(),
		})
		return fmt.Errorf("failed to save chat: %w", err)
	}
	return nil
}

// removeStoredFile deletes an uploaded file referenced by URL
func (s *ChatService) removeStoredFile(fileURL string) {
	name := filepath.Base(fileURL)
	if name == "" || name == "." || name == "/" {
		return
	}

	path := filepath.Join(s.uploadDir, name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.LogError(err, "upload_remove", map[string]interface{}{
			"path": path,
		})
	}
}
