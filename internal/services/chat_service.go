package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nutriplan_backend/internal/logger"
	"nutriplan_backend/internal/metrics"
	"nutriplan_backend/internal/models"
	"nutriplan_backend/internal/queue"
	"nutriplan_backend/internal/repositories"
	"nutriplan_backend/internal/services/dto"
	"nutriplan_backend/pkg/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatService interface {
	SendMessage(db *gorm.DB, userID string, req *dto.SendChatMessageRequest) (*dto.ChatMessageResponse, error)
	ListSessions(db *gorm.DB, userID string, query *dto.PageQuery) (*dto.PaginatedResponse, error)
	ListMessages(db *gorm.DB, userID string, isAdmin bool, sessionID string, query *dto.PageQuery) (*dto.PaginatedResponse, error)
	MarkRead(db *gorm.DB, userID string, isAdmin bool, sessionID string) (*dto.MarkReadResponse, error)

	// Admin
	Reply(db *gorm.DB, adminID, sessionID string, req *dto.ReplyChatMessageRequest) (*dto.ChatMessageResponse, error)
	ListAllSessions(db *gorm.DB, query *dto.PageQuery) (*dto.PaginatedResponse, error)

	CleanupOldMessages(db *gorm.DB, retentionDays int) (int64, error)
}

// Notifier доставляет события чата подключенным клиентам
type Notifier interface {
	NotifyUser(userID string, event interface{})
	NotifyAdmins(event interface{})
}

type ChatServiceImpl struct {
	repo  repositories.ChatRepository
	queue queue.Queue
	now   Clock
}

func NewChatService(repo repositories.ChatRepository, q queue.Queue) *ChatServiceImpl {
	return &ChatServiceImpl{repo: repo, queue: q, now: utcNow}
}

// SendMessage сохраняет сообщение в статусе PENDING и ставит его в очередь.
// Без session_id открывается новая сессия.
func (s *ChatServiceImpl) SendMessage(db *gorm.DB, userID string, req *dto.SendChatMessageRequest) (*dto.ChatMessageResponse, error) {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	} else {
		owner, err := s.repo.FindSessionOwner(db, sessionID)
		switch {
		case err == nil:
			if owner != userID {
				return nil, apperrors.ErrChatSessionAccessDenied
			}
		case errors.Is(err, repositories.ErrChatSessionNotFound):
			// клиент сам выбрал id новой сессии
		default:
			return nil, apperrors.InternalError(err)
		}
	}

	msg := &models.ChatMessage{
		SessionID:  sessionID,
		UserID:     userID,
		AuthorID:   userID,
		AuthorRole: models.ChatAuthorUser,
		Content:    req.Content,
		Status:     models.ChatMessageStatusPending,
	}
	return s.persistAndEnqueue(db, msg)
}

// Reply - ответ администратора. Владельцем сессии остается пользователь.
func (s *ChatServiceImpl) Reply(db *gorm.DB, adminID, sessionID string, req *dto.ReplyChatMessageRequest) (*dto.ChatMessageResponse, error) {
	owner, err := s.repo.FindSessionOwner(db, sessionID)
	if err != nil {
		return nil, handleNotFound(err, apperrors.ErrChatSessionNotFound, repositories.ErrChatSessionNotFound)
	}

	msg := &models.ChatMessage{
		SessionID:  sessionID,
		UserID:     owner,
		AuthorID:   adminID,
		AuthorRole: models.ChatAuthorAdmin,
		Content:    req.Content,
		Status:     models.ChatMessageStatusPending,
	}
	return s.persistAndEnqueue(db, msg)
}

func (s *ChatServiceImpl) persistAndEnqueue(db *gorm.DB, msg *models.ChatMessage) (*dto.ChatMessageResponse, error) {
	if err := s.repo.Create(db, msg); err != nil {
		return nil, apperrors.InternalError(err)
	}

	ctx := dbContext(db)
	job := queue.Job{MessageID: msg.ID, SessionID: msg.SessionID}
	if err := s.queue.Publish(ctx, job); err != nil {
		// сообщение остается PENDING, его переотправит RetryStale
		logger.CtxWithError(ctx, "failed to enqueue chat message", err, "message_id", msg.ID)
	}

	resp := dto.NewChatMessageResponse(msg)
	return &resp, nil
}

func (s *ChatServiceImpl) ListSessions(db *gorm.DB, userID string, query *dto.PageQuery) (*dto.PaginatedResponse, error) {
	page, pageSize := query.Normalize()
	sessions, total, err := s.repo.FindSessions(db, userID, page, pageSize)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return dto.NewPaginatedResponse(sessions, total, page, pageSize), nil
}

func (s *ChatServiceImpl) ListAllSessions(db *gorm.DB, query *dto.PageQuery) (*dto.PaginatedResponse, error) {
	return s.ListSessions(db, "", query)
}

func (s *ChatServiceImpl) ListMessages(db *gorm.DB, userID string, isAdmin bool, sessionID string, query *dto.PageQuery) (*dto.PaginatedResponse, error) {
	if err := s.checkAccess(db, userID, isAdmin, sessionID); err != nil {
		return nil, err
	}

	page, pageSize := query.Normalize()
	msgs, total, err := s.repo.FindBySession(db, sessionID, page, pageSize)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	items := make([]dto.ChatMessageResponse, 0, len(msgs))
	for i := range msgs {
		items = append(items, dto.NewChatMessageResponse(&msgs[i]))
	}
	return dto.NewPaginatedResponse(items, total, page, pageSize), nil
}

// MarkRead помечает прочитанными сообщения противоположной стороны
func (s *ChatServiceImpl) MarkRead(db *gorm.DB, userID string, isAdmin bool, sessionID string) (*dto.MarkReadResponse, error) {
	if err := s.checkAccess(db, userID, isAdmin, sessionID); err != nil {
		return nil, err
	}

	reader := models.ChatAuthorUser
	if isAdmin {
		owner, _ := s.repo.FindSessionOwner(db, sessionID)
		if owner != userID {
			reader = models.ChatAuthorAdmin
		}
	}

	updated, err := s.repo.MarkSessionRead(db, sessionID, reader, s.now())
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return &dto.MarkReadResponse{SessionID: sessionID, Updated: updated}, nil
}

func (s *ChatServiceImpl) CleanupOldMessages(db *gorm.DB, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	before := s.now().AddDate(0, 0, -retentionDays)
	deleted, err := s.repo.DeleteOlderThan(db, before)
	if err != nil {
		return 0, apperrors.InternalError(err)
	}
	return deleted, nil
}

// checkAccess - сессия существует и принадлежит пользователю (админу - любая)
func (s *ChatServiceImpl) checkAccess(db *gorm.DB, userID string, isAdmin bool, sessionID string) error {
	owner, err := s.repo.FindSessionOwner(db, sessionID)
	if err != nil {
		return handleNotFound(err, apperrors.ErrChatSessionNotFound, repositories.ErrChatSessionNotFound)
	}
	if owner != userID && !isAdmin {
		// чужая сессия выглядит как несуществующая
		return apperrors.ErrChatSessionNotFound
	}
	return nil
}

// ChatProcessor - потребитель очереди чата
type ChatProcessor struct {
	db       *gorm.DB
	repo     repositories.ChatRepository
	notifier Notifier
	now      Clock

	maxAttempts int
	retryAfter  time.Duration
}

const (
	DefaultChatMaxAttempts = 5
	DefaultChatRetryAfter  = time.Minute
)

func NewChatProcessor(db *gorm.DB, repo repositories.ChatRepository, notifier Notifier) *ChatProcessor {
	return &ChatProcessor{
		db:          db,
		repo:        repo,
		notifier:    notifier,
		now:         utcNow,
		maxAttempts: DefaultChatMaxAttempts,
		retryAfter:  DefaultChatRetryAfter,
	}
}

// WithRetryPolicy: после maxAttempts переотправок сообщение становится FAILED;
// retryAfter - сколько PENDING-сообщение должно простоять, чтобы его переотправили.
func (p *ChatProcessor) WithRetryPolicy(maxAttempts int, retryAfter time.Duration) *ChatProcessor {
	if maxAttempts > 0 {
		p.maxAttempts = maxAttempts
	}
	if retryAfter > 0 {
		p.retryAfter = retryAfter
	}
	return p
}

// Handle переводит сообщение PENDING -> DELIVERED и рассылает событие.
// Повторная доставка того же задания ничего не меняет.
func (p *ChatProcessor) Handle(ctx context.Context, job queue.Job) error {
	ctx = logger.WithFields(ctx, "message_id", job.MessageID, "session_id", job.SessionID)
	db := p.db.WithContext(ctx)

	msg, err := p.repo.FindByID(db, job.MessageID)
	if err != nil {
		if errors.Is(err, repositories.ErrChatMessageNotFound) {
			// удалено ретеншеном до обработки
			metrics.RecordChatMessage("dropped")
			return nil
		}
		return err
	}
	if msg.Status != models.ChatMessageStatusPending {
		return nil
	}

	now := p.now()
	if msg.Content == "" {
		return p.fail(ctx, msg, "empty message content", now)
	}

	ok, err := p.repo.UpdateStatus(db, msg.ID, models.ChatMessageStatusPending, models.ChatMessageStatusDelivered, now, "")
	if err != nil {
		metrics.RecordChatMessage("error")
		// сообщение остается PENDING, его подберет RetryStale
		if recErr := p.repo.RecordError(db, msg.ID, err.Error()); recErr != nil {
			logger.CtxWithError(ctx, "failed to record chat delivery error", recErr)
		}
		return err
	}
	if !ok {
		return nil
	}
	msg.Status = models.ChatMessageStatusDelivered
	msg.ProcessedAt = &now

	p.notify(msg)
	metrics.RecordChatMessage("delivered")
	logger.CtxDebug(ctx, "chat message delivered")
	return nil
}

func (p *ChatProcessor) fail(ctx context.Context, msg *models.ChatMessage, reason string, now time.Time) error {
	if _, err := p.repo.UpdateStatus(p.db.WithContext(ctx), msg.ID, models.ChatMessageStatusPending, models.ChatMessageStatusFailed, now, reason); err != nil {
		return err
	}
	msg.Status = models.ChatMessageStatusFailed
	msg.ProcessedAt = &now
	msg.Error = reason

	p.notify(msg)
	metrics.RecordChatMessage("failed")
	logger.CtxWarn(ctx, "chat message failed", "reason", reason)
	return nil
}

func (p *ChatProcessor) notify(msg *models.ChatMessage) {
	if p.notifier == nil {
		return
	}
	event := dto.ChatEvent{Type: dto.ChatEventMessage, Message: dto.NewChatMessageResponse(msg)}
	p.notifier.NotifyUser(msg.UserID, event)
	if msg.AuthorRole == models.ChatAuthorUser {
		p.notifier.NotifyAdmins(event)
	}
}

// RequeuePending при старте возвращает в очередь все PENDING-сообщения:
// после рестарта ни одно из них уже не обрабатывается.
func (p *ChatProcessor) RequeuePending(ctx context.Context, q queue.Queue, limit int) (int, error) {
	return p.requeue(ctx, q, p.now(), limit)
}

// RetryStale - периодическая задача: переотправляет сообщения, простоявшие
// в PENDING дольше retryAfter (очередь была полна, обработчик вернул ошибку).
func (p *ChatProcessor) RetryStale(ctx context.Context, q queue.Queue, limit int) (int, error) {
	return p.requeue(ctx, q, p.now().Add(-p.retryAfter), limit)
}

func (p *ChatProcessor) requeue(ctx context.Context, q queue.Queue, notChangedSince time.Time, limit int) (int, error) {
	db := p.db.WithContext(ctx)
	msgs, err := p.repo.FindPending(db, notChangedSince, limit)
	if err != nil {
		return 0, err
	}

	queued := 0
	for i := range msgs {
		m := &msgs[i]
		now := p.now()

		if m.Attempts >= p.maxAttempts {
			reason := fmt.Sprintf("delivery failed after %d attempts", m.Attempts)
			if m.Error != "" {
				reason += ": " + m.Error
			}
			if err := p.fail(ctx, m, reason, now); err != nil {
				return queued, err
			}
			continue
		}

		ok, err := p.repo.RecordAttempt(db, m.ID, now)
		if err != nil {
			return queued, err
		}
		if !ok {
			continue // обработано, пока шел проход
		}

		if err := q.Publish(ctx, queue.Job{MessageID: m.ID, SessionID: m.SessionID}); err != nil {
			if errors.Is(err, queue.ErrQueueFull) {
				break
			}
			return queued, err
		}
		queued++
	}
	return queued, nil
}
