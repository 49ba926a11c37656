package dto

import (
	"time"

	"nutriplan_backend/internal/models"
)

type SendChatMessageRequest struct {
	SessionID string `json:"session_id" validate:"omitempty,max=64"`
	Content   string `json:"content" validate:"required,min=1,max=4000"`
}

type ReplyChatMessageRequest struct {
	Content string `json:"content" validate:"required,min=1,max=4000"`
}

type ChatMessageResponse struct {
	ID          string                   `json:"id"`
	SessionID   string                   `json:"session_id"`
	UserID      string                   `json:"user_id"`
	AuthorID    string                   `json:"author_id"`
	AuthorRole  models.ChatAuthorRole    `json:"author_role"`
	Content     string                   `json:"content"`
	Status      models.ChatMessageStatus `json:"status"`
	ProcessedAt *time.Time               `json:"processed_at,omitempty"`
	ReadAt      *time.Time               `json:"read_at,omitempty"`
	Error       string                   `json:"error,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
}

func NewChatMessageResponse(m *models.ChatMessage) ChatMessageResponse {
	return ChatMessageResponse{
		ID:          m.ID,
		SessionID:   m.SessionID,
		UserID:      m.UserID,
		AuthorID:    m.AuthorID,
		AuthorRole:  m.AuthorRole,
		Content:     m.Content,
		Status:      m.Status,
		ProcessedAt: m.ProcessedAt,
		ReadAt:      m.ReadAt,
		Error:       m.Error,
		CreatedAt:   m.CreatedAt,
	}
}

type MarkReadResponse struct {
	SessionID string `json:"session_id"`
	Updated   int64  `json:"updated"`
}

// ChatEvent - событие, уходящее по WebSocket
type ChatEvent struct {
	Type    string              `json:"type"`
	Message ChatMessageResponse `json:"message"`
}

const ChatEventMessage = "chat.message"
