package handlers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"telechat/internal/config"
	"telechat/internal/middleware"
	"telechat/internal/models"
	"telechat/internal/services"
	"telechat/internal/utils"
	"telechat/internal/websocket"
	"telechat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ChatHandler handles conversation and message routes. Each mutation
// persists through ChatService, then mirrors the change to connected
// participants over the hub; the two steps are not atomic.
type ChatHandler struct {
	chatService *services.ChatService
	hub         *websocket.Hub
	cfg         *config.Config
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *services.ChatService, hub *websocket.Hub, cfg *config.Config) *ChatHandler {
	return &ChatHandler{chatService: chatService, hub: hub, cfg: cfg}
}

// deliver mirrors an event to a chat's audience: room broadcast for
// groups, direct push to the other participant otherwise. Offline
// recipients are silently skipped.
func (h *ChatHandler) deliver(chat *models.Chat, senderID string, event *websocket.Event) {
	event.SetChatID(chat.ID.Hex())
	event.SetFrom(senderID)

	if chat.IsGroup() {
		h.hub.BroadcastToRoomExcept(chat.ID.Hex(), senderID, event)
		return
	}

	for _, p := range chat.Participants {
		if p.Hex() != senderID {
			h.hub.BroadcastToUser(p.Hex(), event)
		}
	}
}

// List returns the caller's chats ordered by recent activity
func (h *ChatHandler) List(c *gin.Context) {
	chats, err := h.chatService.ListForUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, chats)
}

// Get returns a single chat
func (h *ChatHandler) Get(c *gin.Context) {
	chat, err := h.chatService.GetChat(c.Request.Context(), c.Param("chatId"), middleware.GetUserID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, chat)
}

// GetOrCreateDirect returns the direct chat with another user,
// creating it on first contact
func (h *ChatHandler) GetOrCreateDirect(c *gin.Context) {
	chat, err := h.chatService.GetOrCreateDirect(c.Request.Context(), middleware.GetUserID(c), c.Param("userId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, chat)
}

// CreateGroupRequest is the group creation payload
type CreateGroupRequest struct {
	Name         string   `json:"name" validate:"required,min=1,max=100"`
	Participants []string `json:"participants" validate:"required,min=2"`
}

// CreateGroup creates a group chat with the caller as admin
func (h *ChatHandler) CreateGroup(c *gin.Context) {
	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, 400, "Invalid request body")
		return
	}

	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, utils.ValidationErrorsToMap(errs))
		return
	}

	chat, err := h.chatService.CreateGroup(c.Request.Context(), middleware.GetUserID(c), req.Name, req.Participants)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, chat)
}

// MemberRequest identifies a user for roster changes
type MemberRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// AddMember adds a user to a group chat
func (h *ChatHandler) AddMember(c *gin.Context) {
	var req MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, 400, "Invalid request body")
		return
	}

	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, utils.ValidationErrorsToMap(errs))
		return
	}

	callerID := middleware.GetUserID(c)
	chat, err := h.chatService.AddMember(c.Request.Context(), c.Param("chatId"), callerID, req.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.deliver(chat, callerID, websocket.NewEvent(websocket.EventGroupUpdated, map[string]interface{}{
		"action":  "member_added",
		"user_id": req.UserID,
	}))

	utils.SuccessResponse(c, chat)
}

// RemoveMember removes a user from a group chat
func (h *ChatHandler) RemoveMember(c *gin.Context) {
	callerID := middleware.GetUserID(c)
	chat, err := h.chatService.RemoveMember(c.Request.Context(), c.Param("chatId"), callerID, c.Param("userId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.deliver(chat, callerID, websocket.NewEvent(websocket.EventGroupUpdated, map[string]interface{}{
		"action":  "member_removed",
		"user_id": c.Param("userId"),
	}))

	utils.SuccessResponse(c, chat)
}

// UpdateGroupRequest is the group info payload
type UpdateGroupRequest struct {
	Name   string `json:"name" validate:"max=100"`
	Avatar string `json:"avatar" validate:"max=500"`
}

// UpdateGroup overwrites a group's name and avatar
func (h *ChatHandler) UpdateGroup(c *gin.Context) {
	var req UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, 400, "Invalid request body")
		return
	}

	callerID := middleware.GetUserID(c)
	chat, err := h.chatService.UpdateGroupInfo(c.Request.Context(), c.Param("chatId"), callerID, req.Name, req.Avatar)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.deliver(chat, callerID, websocket.NewEvent(websocket.EventGroupUpdated, map[string]interface{}{
		"action": "info_updated",
		"name":   chat.Name,
		"avatar": chat.Avatar,
	}))

	utils.SuccessResponse(c, chat)
}

// UpdateThemeRequest is the chat theme payload
type UpdateThemeRequest struct {
	Theme string `json:"theme" validate:"required"`
}

// UpdateTheme sets the chat theme and mirrors it to participants
func (h *ChatHandler) UpdateTheme(c *gin.Context) {
	var req UpdateThemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, 400, "Invalid request body")
		return
	}

	if !models.ValidTheme(req.Theme) {
		utils.ErrorResponse(c, 400, "Unknown theme")
		return
	}

	callerID := middleware.GetUserID(c)
	chat, err := h.chatService.UpdateTheme(c.Request.Context(), c.Param("chatId"), callerID, req.Theme)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.deliver(chat, callerID, websocket.NewEvent(websocket.EventChatThemeUpdate, map[string]interface{}{
		"theme": chat.Theme,
	}))

	utils.SuccessResponse(c, chat)
}

// GetMessages returns the chat's non-deleted messages
func (h *ChatHandler) GetMessages(c *gin.Context) {
	messages, err := h.chatService.GetMessages(c.Request.Context(), c.Param("chatId"), middleware.GetUserID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, messages)
}

// GetPinned returns the chat's pinned messages
func (h *ChatHandler) GetPinned(c *gin.Context) {
	messages, err := h.chatService.GetPinned(c.Request.Context(), c.Param("chatId"), middleware.GetUserID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, messages)
}

// SendMessageRequest is the message payload
type SendMessageRequest struct {
	Text    string `json:"text" validate:"required,max=4096"`
	Type    string `json:"type"`
	ReplyTo string `json:"reply_to"`
}

// SendMessage appends a message and mirrors it to participants
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, 400, "Invalid request body")
		return
	}

	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, utils.ValidationErrorsToMap(errs))
		return
	}

	callerID := middleware.GetUserID(c)
	chat, msg, err := h.chatService.SendMessage(c.Request.Context(), c.Param("chatId"), callerID, req.Text, req.Type, req.ReplyTo)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.deliver(chat, callerID, websocket.NewEvent(websocket.EventNewMessage, map[string]interface{}{
		"message": msg,
	}))

	utils.CreatedResponse(c, msg)
}

// Upload stores a multipart file and appends it as a file message
func (h *ChatHandler) Upload(c *gin.Context) {
	callerID := middleware.GetUserID(c)

	file, err := c.FormFile("file")
	if err != nil {
		utils.ErrorResponse(c, 400, "File is required")
		return
	}

	if file.Size > h.cfg.Upload.MaxSizeBytes {
		utils.ErrorResponse(c, 413, "File too large")
		return
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(file.Filename)), ".")
	if !h.extensionAllowed(ext) {
		utils.ErrorResponse(c, 400, fmt.Sprintf("File type .%s is not allowed", ext))
		return
	}

	if err := os.MkdirAll(h.cfg.Upload.Directory, 0755); err != nil {
		logger.LogError(err, "upload_mkdir", nil)
		utils.InternalErrorResponse(c, "")
		return
	}

	storedName := uuid.New().String() + "." + ext
	dst := filepath.Join(h.cfg.Upload.Directory, storedName)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		logger.LogError(err, "upload_save", map[string]interface{}{"file": file.Filename})
		utils.InternalErrorResponse(c, "")
		return
	}

	fileURL := "/uploads/" + storedName
	text := c.PostForm("text")
	if text == "" {
		text = file.Filename
	}

	chat, msg, err := h.chatService.SendFileMessage(c.Request.Context(), c.Param("chatId"), callerID,
		text, messageTypeForExtension(ext), fileURL, file.Filename, file.Size)
	if err != nil {
		os.Remove(dst)
		respondServiceError(c, err)
		return
	}

	h.deliver(chat, callerID, websocket.NewEvent(websocket.EventNewMessage, map[string]interface{}{
		"message": msg,
	}))

	utils.CreatedResponse(c, msg)
}

// extensionAllowed checks the upload extension allow-list
func (h *ChatHandler) extensionAllowed(ext string) bool {
	for _, allowed := range h.cfg.Upload.AllowedTypes {
		if ext == allowed {
			return true
		}
	}
	return false
}

// messageTypeForExtension maps a file extension to a message type
func messageTypeForExtension(ext string) string {
	switch ext {
	case "jpg", "jpeg", "png", "gif":
		return models.MessageTypeImage
	case "mp3", "wav":
		return models.MessageTypeVoice
	default:
		return models.MessageTypeFile
	}
}

// MarkReadRequest lists message ids to mark; empty means the whole chat
type MarkReadRequest struct {
	MessageIDs []string `json:"message_ids"`
}

// MarkRead records read receipts and mirrors them to participants
func (h *ChatHandler) MarkRead(c *gin.Context) {
	var req MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, 400, "Invalid request body")
		return
	}

	callerID := middleware.GetUserID(c)
	updated, err := h.chatService.MarkRead(c.Request.Context(), c.Param("chatId"), callerID, req.MessageIDs)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if len(updated) > 0 {
		chat, err := h.chatService.GetChat(c.Request.Context(), c.Param("chatId"), callerID)
		if err == nil {
			ids := make([]string, 0, len(updated))
			for _, id := range updated {
				ids = append(ids, id.Hex())
			}
			h.deliver(chat, callerID, websocket.NewEvent(websocket.EventMessageReadReceipt, map[string]interface{}{
				"message_ids": ids,
				"reader":      callerID,
			}))
		}
	}

	utils.SuccessResponse(c, gin.H{"marked": len(updated)})
}

// TypingRequest is the typing indicator payload
type TypingRequest struct {
	IsTyping bool `json:"is_typing"`
}

// SetTyping records the typing state and mirrors it to the room
func (h *ChatHandler) SetTyping(c *gin.Context) {
	var req TypingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, 400, "Invalid request body")
		return
	}

	callerID := middleware.GetUserID(c)
	chatID := c.Param("chatId")
	if err := h.chatService.SetTyping(c.Request.Context(), chatID, callerID, req.IsTyping); err != nil {
		respondServiceError(c, err)
		return
	}

	h.hub.BroadcastTyping(chatID, callerID, req.IsTyping, time.Now())

	utils.SuccessResponse(c, gin.H{"is_typing": req.IsTyping})
}

// EditMessageRequest is the edit payload
type EditMessageRequest struct {
	Text string `json:"text" validate:"required,max=4096"`
}

// EditMessage updates a message's text. Sender only.
func (h *ChatHandler) EditMessage(c *gin.Context) {
	var req EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, 400, "Invalid request body")
		return
	}

	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, utils.ValidationErrorsToMap(errs))
		return
	}

	callerID := middleware.GetUserID(c)
	chat, msg, err := h.chatService.EditMessage(c.Request.Context(), c.Param("messageId"), callerID, req.Text)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.deliver(chat, callerID, websocket.NewEvent(websocket.EventMessageEdited, map[string]interface{}{
		"message": msg,
	}))

	utils.SuccessResponse(c, msg)
}

// DeleteMessage soft-deletes a message. Sender only.
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	callerID := middleware.GetUserID(c)
	chat, msg, err := h.chatService.DeleteMessage(c.Request.Context(), c.Param("messageId"), callerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.deliver(chat, callerID, websocket.NewEvent(websocket.EventMessageDeleted, map[string]interface{}{
		"message_id": msg.ID.Hex(),
	}))

	utils.SuccessResponseWithMessage(c, "Message deleted", gin.H{"message_id": msg.ID.Hex()})
}

// ReactionRequest is the reaction toggle payload
type ReactionRequest struct {
	Emoji string `json:"emoji" validate:"required,max=16"`
}

// ToggleReaction toggles the caller's reaction on a message
func (h *ChatHandler) ToggleReaction(c *gin.Context) {
	var req ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, 400, "Invalid request body")
		return
	}

	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, utils.ValidationErrorsToMap(errs))
		return
	}

	callerID := middleware.GetUserID(c)
	chat, msg, err := h.chatService.ToggleReaction(c.Request.Context(), c.Param("messageId"), callerID, req.Emoji)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.deliver(chat, callerID, websocket.NewEvent(websocket.EventReactionUpdate, map[string]interface{}{
		"message_id": msg.ID.Hex(),
		"reactions":  msg.Reactions,
	}))

	utils.SuccessResponse(c, msg)
}

// TogglePin pins or unpins a message
func (h *ChatHandler) TogglePin(c *gin.Context) {
	callerID := middleware.GetUserID(c)
	chat, msg, err := h.chatService.TogglePin(c.Request.Context(), c.Param("messageId"), callerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.deliver(chat, callerID, websocket.NewEvent(websocket.EventPinUpdate, map[string]interface{}{
		"message_id": msg.ID.Hex(),
		"is_pinned":  msg.IsPinned,
	}))

	utils.SuccessResponse(c, msg)
}

// ForwardRequest lists target chats for a forward
type ForwardRequest struct {
	ChatIDs []string `json:"chat_ids" validate:"required,min=1"`
}

// Forward copies a message into target chats and mirrors each copy
func (h *ChatHandler) Forward(c *gin.Context) {
	var req ForwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, 400, "Invalid request body")
		return
	}

	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, utils.ValidationErrorsToMap(errs))
		return
	}

	callerID := middleware.GetUserID(c)
	results, err := h.chatService.Forward(c.Request.Context(), c.Param("messageId"), callerID, req.ChatIDs)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	// One event per target conversation
	for i := range results {
		target, err := h.chatService.GetChat(c.Request.Context(), results[i].ChatID.Hex(), callerID)
		if err != nil {
			continue
		}
		h.deliver(target, callerID, websocket.NewEvent(websocket.EventNewMessage, map[string]interface{}{
			"message": results[i].Message,
		}))
	}

	utils.SuccessResponse(c, results)
}

// SearchMessages finds messages by substring across the caller's chats
func (h *ChatHandler) SearchMessages(c *gin.Context) {
	query := c.Query("q")
	if len(query) < 2 {
		utils.ErrorResponse(c, 400, "Query must be at least 2 characters")
		return
	}

	results, err := h.chatService.SearchMessages(c.Request.Context(), middleware.GetUserID(c), query)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, results)
}
