package handlers

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/taskvera/marketplace_be/internal/models"
	"github.com/taskvera/marketplace_be/internal/realtime"
)

type ChatHandler struct {
	DB  *gorm.DB
	Hub *realtime.Hub
	RDB *redis.Client
}

func NewChatHandler(db *gorm.DB, hub *realtime.Hub, rdb *redis.Client) *ChatHandler {
	return &ChatHandler{DB: db, Hub: hub, RDB: rdb}
}

type CreateChatReq struct {
	ParticipantID string  `json:"participant_id"`
	ProjectID     *string `json:"project_id"`
}

// CreateOrGetChat returns the existing chat for this participant pair
// (checked in both orders) and project context, or creates one.
func (h *ChatHandler) CreateOrGetChat(c *fiber.Ctx) error {
	uid, errResp := getAuth(c)
	if errResp != nil {
		return errResp
	}

	var req CreateChatReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request",
		})
	}

	otherID, err := uuid.Parse(strings.TrimSpace(req.ParticipantID))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid participant ID",
		})
	}
	if otherID == uid {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Cannot chat with yourself",
		})
	}

	var other models.User
	if err := h.DB.First(&other, "id = ?", otherID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "User not found",
		})
	}

	var projectID *uuid.UUID
	if req.ProjectID != nil && strings.TrimSpace(*req.ProjectID) != "" {
		pid, err := uuid.Parse(strings.TrimSpace(*req.ProjectID))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Invalid project ID",
			})
		}
		var p models.Project
		if err := h.DB.First(&p, "id = ?", pid).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "Project not found",
			})
		}
		projectID = &pid
	}

	// lookup in both participant orders before creating
	q := h.DB.Where(
		"(participant1_id = ? AND participant2_id = ?) OR (participant1_id = ? AND participant2_id = ?)",
		uid, otherID, otherID, uid,
	)
	if projectID != nil {
		q = q.Where("project_id = ?", *projectID)
	} else {
		q = q.Where("project_id IS NULL")
	}

	var chat models.Chat
	err = q.Order("updated_at DESC").First(&chat).Error

	created := false
	if err == gorm.ErrRecordNotFound {
		chat = models.Chat{
			Participant1ID: uid,
			Participant2ID: otherID,
			ProjectID:      projectID,
		}
		if err := h.DB.Create(&chat).Error; err != nil {
			log.Println("Error creating chat:", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to create chat",
			})
		}
		created = true
	} else if err != nil {
		log.Println("Error fetching chat:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch chat",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"created": created,
		"data":    chat,
	})
}

type ChatOut struct {
	ID             string     `json:"id"`
	Participant1ID string     `json:"participant1_id"`
	Participant2ID string     `json:"participant2_id"`
	ProjectID      *string    `json:"project_id,omitempty"`
	LastMessageAt  *time.Time `json:"last_message_timestamp,omitempty"`
	UnreadCount    int64      `json:"unread_count"`

	LastMessage *MessageOut `json:"last_message,omitempty"`
}

type MessageOut struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	SenderID  string    `json:"sender_id"`
	Content   string    `json:"content"`
	IsRead    bool      `json:"is_read"`
	Timestamp time.Time `json:"timestamp"`
}

func toMessageOut(m models.Message) MessageOut {
	return MessageOut{
		ID:        m.ID.String(),
		ChatID:    m.ChatID.String(),
		SenderID:  m.SenderID.String(),
		Content:   m.Content,
		IsRead:    m.IsRead,
		Timestamp: m.CreatedAt,
	}
}

// GetChats returns the caller's chats, most recent activity first.
func (h *ChatHandler) GetChats(c *fiber.Ctx) error {
	uid, errResp := getAuth(c)
	if errResp != nil {
		return errResp
	}

	var chats []models.Chat
	if err := h.DB.
		Where("participant1_id = ? OR participant2_id = ?", uid, uid).
		Order("last_message_at DESC").
		Find(&chats).Error; err != nil {

		log.Println("Error fetching chats:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch chats",
		})
	}

	out := make([]ChatOut, 0, len(chats))
	for _, chat := range chats {
		var unreadCount int64
		h.DB.Model(&models.Message{}).
			Where("chat_id = ? AND sender_id != ? AND is_read = false", chat.ID, uid).
			Count(&unreadCount)

		var lastPtr *MessageOut
		var last models.Message
		if err := h.DB.
			Where("chat_id = ?", chat.ID).
			Order("created_at DESC").
			Limit(1).
			First(&last).Error; err == nil {
			mo := toMessageOut(last)
			lastPtr = &mo
		}

		var pidStr *string
		if chat.ProjectID != nil {
			s := chat.ProjectID.String()
			pidStr = &s
		}

		out = append(out, ChatOut{
			ID:             chat.ID.String(),
			Participant1ID: chat.Participant1ID.String(),
			Participant2ID: chat.Participant2ID.String(),
			ProjectID:      pidStr,
			LastMessageAt:  chat.LastMessageAt,
			UnreadCount:    unreadCount,
			LastMessage:    lastPtr,
		})
	}

	return c.JSON(fiber.Map{"success": true, "data": out})
}

func (h *ChatHandler) loadChatForParticipant(c *fiber.Ctx, uid uuid.UUID) (*models.Chat, error) {
	chatID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid chat ID",
		})
	}

	var chat models.Chat
	if err := h.DB.First(&chat, "id = ?", chatID).Error; err != nil {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Chat not found",
		})
	}
	if !chat.HasParticipant(uid) {
		return nil, c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Access denied",
		})
	}
	return &chat, nil
}

// GetMessages returns a chat's messages ascending and marks incoming
// ones as read.
func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	uid, errResp := getAuth(c)
	if errResp != nil {
		return errResp
	}

	chat, resp := h.loadChatForParticipant(c, uid)
	if chat == nil {
		return resp
	}

	var messages []models.Message
	if err := h.DB.
		Where("chat_id = ?", chat.ID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		log.Println("Error fetching messages:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch messages",
		})
	}

	if err := h.DB.Model(&models.Message{}).
		Where("chat_id = ? AND sender_id != ? AND is_read = false", chat.ID, uid).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now(),
		}).Error; err != nil {
		// don't fail the read, just log it
		log.Println("Error marking messages as read:", err)
	}

	out := make([]MessageOut, 0, len(messages))
	for _, m := range messages {
		out = append(out, toMessageOut(m))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    out,
	})
}

// MarkAsRead marks all incoming messages in a chat as read.
func (h *ChatHandler) MarkAsRead(c *fiber.Ctx) error {
	uid, errResp := getAuth(c)
	if errResp != nil {
		return errResp
	}

	chat, resp := h.loadChatForParticipant(c, uid)
	if chat == nil {
		return resp
	}

	if err := h.DB.Model(&models.Message{}).
		Where("chat_id = ? AND sender_id != ? AND is_read = false", chat.ID, uid).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now(),
		}).Error; err != nil {
		log.Println("Error marking messages as read:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to mark messages as read",
		})
	}

	return c.JSON(fiber.Map{"success": true})
}

type SendMessageReq struct {
	Content string `json:"content"`
}

// SendMessage stores the message, bumps the chat, pushes it over the
// websocket hub and publishes a redis notification for the receiver.
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	uid, errResp := getAuth(c)
	if errResp != nil {
		return errResp
	}

	chat, resp := h.loadChatForParticipant(c, uid)
	if chat == nil {
		return resp
	}

	var req SendMessageReq
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Content is required",
		})
	}

	receiverID := chat.Participant1ID
	if uid == chat.Participant1ID {
		receiverID = chat.Participant2ID
	}

	msg := models.Message{
		ChatID:     chat.ID,
		SenderID:   uid,
		ReceiverID: receiverID,
		Content:    strings.TrimSpace(req.Content),
		IsRead:     false,
	}
	if err := h.DB.Create(&msg).Error; err != nil {
		log.Println("Error creating message:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to send message",
		})
	}

	_ = h.DB.Model(&models.Chat{}).
		Where("id = ?", chat.ID).
		Update("last_message_at", msg.CreatedAt).Error

	msgOut := toMessageOut(msg)

	h.Hub.SendToChat(chat.Participant1ID, chat.Participant2ID, fiber.Map{
		"type":    "new_message",
		"message": msgOut,
	})

	if h.RDB != nil {
		notif := map[string]interface{}{
			"type":      "chat_message",
			"chat_id":   chat.ID.String(),
			"sender_id": uid.String(),
			"content":   msg.Content,
		}
		payload, _ := json.Marshal(notif)
		h.RDB.Publish(context.Background(), "notifications:"+receiverID.String(), payload)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    msgOut,
	})
}

// WebSocketHandler registers the connection on the hub keyed by user id.
func (h *ChatHandler) WebSocketHandler(c *websocket.Conn) {
	userID := c.Query("user_id")
	if userID == "" {
		log.Println("WebSocket: user_id parameter missing")
		c.Close()
		return
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		log.Println("WebSocket: invalid user_id:", userID, "error:", err)
		c.Close()
		return
	}

	log.Printf("WebSocket: user %s connected\n", userID)

	client := &realtime.Client{
		ID:     uuid.New().String(),
		UserID: userUUID,
		Conn:   realtime.NewWebSocketConn(c),
		Send:   make(chan []byte, 256),
	}

	h.Hub.RegisterClient(client)
	defer func() {
		h.Hub.UnregisterClient(client)
		log.Printf("WebSocket: user %s disconnected\n", userID)
	}()

	go func() {
		for msg := range client.Send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Println("WebSocket write error:", err)
				return
			}
		}
	}()

	// read loop keeps the connection alive
	for {
		var payload map[string]interface{}
		if err := c.ReadJSON(&payload); err != nil {
			log.Printf("WebSocket read error for user %s: %v\n", userID, err)
			break
		}

		if msgType, ok := payload["type"].(string); ok && msgType == "pong" {
			continue
		}
	}
}
