package models

import "time"

type ChatMessage struct {
	BaseModel
	SessionID   string            `gorm:"type:varchar(64);not null;index:idx_chat_session_created,priority:1" json:"session_id"`
	UserID      string            `gorm:"type:uuid;not null;index" json:"user_id"`
	AuthorID    string            `gorm:"type:uuid;not null" json:"author_id"`
	AuthorRole  ChatAuthorRole    `gorm:"type:varchar(10);not null;default:'user'" json:"author_role"`
	Content     string            `gorm:"type:text;not null" json:"content"`
	Status      ChatMessageStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	ProcessedAt *time.Time        `json:"processed_at,omitempty"`
	ReadAt      *time.Time        `json:"read_at,omitempty"`
	Error       string            `json:"error,omitempty"`
	// Attempts - сколько раз сообщение переотправлялось в очередь
	Attempts int `gorm:"not null;default:0" json:"-"`
}

// ChatSession - агрегат по session_id, не таблица
type ChatSession struct {
	SessionID     string    `json:"session_id"`
	UserID        string    `json:"user_id"`
	MessageCount  int64     `json:"message_count"`
	UnreadCount   int64     `json:"unread_count"`
	LastMessageAt time.Time `json:"last_message_at"`
	LastMessage   string    `json:"last_message"`
}
