package repositories

import (
	"errors"
	"time"

	"nutriplan_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrChatMessageNotFound = errors.New("chat message not found")
	ErrChatSessionNotFound = errors.New("chat session not found")
)

type ChatRepository interface {
	Create(db *gorm.DB, msg *models.ChatMessage) error
	FindByID(db *gorm.DB, id string) (*models.ChatMessage, error)
	UpdateStatus(db *gorm.DB, id string, from, to models.ChatMessageStatus, processedAt time.Time, errMsg string) (bool, error)
	FindSessionOwner(db *gorm.DB, sessionID string) (string, error)
	FindBySession(db *gorm.DB, sessionID string, page, pageSize int) ([]models.ChatMessage, int64, error)
	FindSessions(db *gorm.DB, userID string, page, pageSize int) ([]models.ChatSession, int64, error)
	MarkSessionRead(db *gorm.DB, sessionID string, readerRole models.ChatAuthorRole, at time.Time) (int64, error)
	FindPending(db *gorm.DB, notChangedSince time.Time, limit int) ([]models.ChatMessage, error)
	RecordAttempt(db *gorm.DB, id string, at time.Time) (bool, error)
	RecordError(db *gorm.DB, id string, errMsg string) error
	DeleteOlderThan(db *gorm.DB, before time.Time) (int64, error)
	CountByStatus(db *gorm.DB) (map[models.ChatMessageStatus]int64, error)
}

type ChatRepositoryImpl struct{}

func NewChatRepository() *ChatRepositoryImpl {
	return &ChatRepositoryImpl{}
}

func (r *ChatRepositoryImpl) Create(db *gorm.DB, msg *models.ChatMessage) error {
	return db.Create(msg).Error
}

func (r *ChatRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.ChatMessage, error) {
	var msg models.ChatMessage
	if err := db.First(&msg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatMessageNotFound
		}
		return nil, err
	}
	return &msg, nil
}

// UpdateStatus меняет статус, только если текущий равен from.
// false означает, что сообщение уже обработано кем-то другим.
func (r *ChatRepositoryImpl) UpdateStatus(db *gorm.DB, id string, from, to models.ChatMessageStatus, processedAt time.Time, errMsg string) (bool, error) {
	result := db.Model(&models.ChatMessage{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":       to,
			"processed_at": processedAt,
			"error":        errMsg,
			"updated_at":   processedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *ChatRepositoryImpl) FindSessionOwner(db *gorm.DB, sessionID string) (string, error) {
	var msg models.ChatMessage
	err := db.Select("user_id").Where("session_id = ?", sessionID).Order("created_at ASC").First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrChatSessionNotFound
		}
		return "", err
	}
	return msg.UserID, nil
}

// FindBySession - сообщения в хронологическом порядке
func (r *ChatRepositoryImpl) FindBySession(db *gorm.DB, sessionID string, page, pageSize int) ([]models.ChatMessage, int64, error) {
	query := db.Model(&models.ChatMessage{}).Where("session_id = ?", sessionID)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var msgs []models.ChatMessage
	err := query.Order("created_at ASC, id ASC").
		Scopes(Paginate(page, pageSize)).
		Find(&msgs).Error
	return msgs, total, err
}

// FindSessions агрегирует сообщения по session_id. Пустой userID - все сессии.
// unread считается относительно владельца сессии: непрочитанные ответы админа.
func (r *ChatRepositoryImpl) FindSessions(db *gorm.DB, userID string, page, pageSize int) ([]models.ChatSession, int64, error) {
	base := db.Model(&models.ChatMessage{})
	if userID != "" {
		base = base.Where("user_id = ?", userID)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Distinct("session_id").Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []struct {
		SessionID    string
		UserID       string
		MessageCount int64
		UnreadCount  int64
	}
	err := base.Session(&gorm.Session{}).
		Select(
			"session_id, user_id, COUNT(*) AS message_count, "+
				"COUNT(CASE WHEN status <> ? AND author_role = ? THEN 1 END) AS unread_count",
			models.ChatMessageStatusRead, models.ChatAuthorAdmin,
		).
		Group("session_id, user_id").
		Order("MAX(created_at) DESC").
		Scopes(Paginate(page, pageSize)).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	sessions := make([]models.ChatSession, 0, len(rows))
	for _, row := range rows {
		var last models.ChatMessage
		if err := db.Where("session_id = ?", row.SessionID).
			Order("created_at DESC, id DESC").
			First(&last).Error; err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, models.ChatSession{
			SessionID:     row.SessionID,
			UserID:        row.UserID,
			MessageCount:  row.MessageCount,
			UnreadCount:   row.UnreadCount,
			LastMessageAt: last.CreatedAt,
			LastMessage:   last.Content,
		})
	}
	return sessions, total, nil
}

// MarkSessionRead помечает прочитанными сообщения другой стороны
func (r *ChatRepositoryImpl) MarkSessionRead(db *gorm.DB, sessionID string, readerRole models.ChatAuthorRole, at time.Time) (int64, error) {
	result := db.Model(&models.ChatMessage{}).
		Where("session_id = ? AND author_role <> ? AND status IN ?", sessionID, readerRole,
			[]models.ChatMessageStatus{models.ChatMessageStatusPending, models.ChatMessageStatusDelivered}).
		Updates(map[string]interface{}{
			"status":     models.ChatMessageStatusRead,
			"read_at":    at,
			"updated_at": at,
		})
	return result.RowsAffected, result.Error
}

// FindPending - PENDING-сообщения, которые не менялись с notChangedSince
// (не дошли до обработчика или обработчик упал).
func (r *ChatRepositoryImpl) FindPending(db *gorm.DB, notChangedSince time.Time, limit int) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	err := db.Where("status = ? AND updated_at <= ?", models.ChatMessageStatusPending, notChangedSince).
		Order("created_at ASC").
		Limit(limit).
		Find(&msgs).Error
	return msgs, err
}

// RecordAttempt увеличивает счетчик попыток и сдвигает updated_at,
// чтобы следующий проход не взял сообщение раньше времени.
func (r *ChatRepositoryImpl) RecordAttempt(db *gorm.DB, id string, at time.Time) (bool, error) {
	result := db.Model(&models.ChatMessage{}).
		Where("id = ? AND status = ?", id, models.ChatMessageStatusPending).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"updated_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// RecordError запоминает последнюю ошибку обработки, статус не меняется
func (r *ChatRepositoryImpl) RecordError(db *gorm.DB, id string, errMsg string) error {
	return db.Model(&models.ChatMessage{}).
		Where("id = ? AND status = ?", id, models.ChatMessageStatusPending).
		UpdateColumn("error", errMsg).Error
}

func (r *ChatRepositoryImpl) DeleteOlderThan(db *gorm.DB, before time.Time) (int64, error) {
	result := db.Where("created_at < ?", before).Delete(&models.ChatMessage{})
	return result.RowsAffected, result.Error
}

func (r *ChatRepositoryImpl) CountByStatus(db *gorm.DB) (map[models.ChatMessageStatus]int64, error) {
	var rows []struct {
		Status models.ChatMessageStatus
		Count  int64
	}
	err := db.Model(&models.ChatMessage{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make(map[models.ChatMessageStatus]int64, len(rows))
	for _, row := range rows {
		result[row.Status] = row.Count
	}
	return result, nil
}
