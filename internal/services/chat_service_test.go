package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"nutriplan_backend/internal/models"
	"nutriplan_backend/internal/queue"
	"nutriplan_backend/internal/repositories"
	"nutriplan_backend/internal/services/dto"
	"nutriplan_backend/internal/testutil"
	"nutriplan_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu     sync.Mutex
	users  map[string][]interface{}
	admins []interface{}
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{users: map[string][]interface{}{}}
}

func (n *recordingNotifier) NotifyUser(userID string, event interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.users[userID] = append(n.users[userID], event)
}

func (n *recordingNotifier) NotifyAdmins(event interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.admins = append(n.admins, event)
}

func TestChatService_SendAndProcess(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repositories.NewChatRepository()
	q := queue.NewMemoryQueue(10)
	svc := NewChatService(repo, q)
	notifier := newRecordingNotifier()
	processor := NewChatProcessor(db, repo, notifier)

	user := testutil.CreateUser(t, db, "chat@test.com", "password1")

	msg, err := svc.SendMessage(db, user.ID, &dto.SendChatMessageRequest{Content: "Hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.SessionID, "id сессии генерируется")
	assert.Equal(t, models.ChatMessageStatusPending, msg.Status)
	assert.Equal(t, 1, q.Len())

	// обработчик вызывается напрямую, без фоновой горутины
	require.NoError(t, processor.Handle(context.Background(), queue.Job{MessageID: msg.ID, SessionID: msg.SessionID}))

	stored, err := repo.FindByID(db, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChatMessageStatusDelivered, stored.Status)
	assert.NotNil(t, stored.ProcessedAt)

	require.Len(t, notifier.users[user.ID], 1)
	event := notifier.users[user.ID][0].(dto.ChatEvent)
	assert.Equal(t, dto.ChatEventMessage, event.Type)
	assert.Equal(t, msg.ID, event.Message.ID)
	assert.Len(t, notifier.admins, 1, "сообщение пользователя видят админы")

	// повторная доставка ничего не меняет
	require.NoError(t, processor.Handle(context.Background(), queue.Job{MessageID: msg.ID}))
	assert.Len(t, notifier.users[user.ID], 1)

	// исчезнувшее сообщение не ошибка
	require.NoError(t, processor.Handle(context.Background(), queue.Job{MessageID: "00000000-0000-0000-0000-000000000000"}))
}

func TestChatService_SessionAccess(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repositories.NewChatRepository()
	svc := NewChatService(repo, queue.NewMemoryQueue(10))

	owner := testutil.CreateUser(t, db, "owner@test.com", "password1")
	stranger := testutil.CreateUser(t, db, "stranger@test.com", "password1")
	admin := testutil.CreateUser(t, db, "admin@test.com", "password1", models.RoleAdmin)

	first, err := svc.SendMessage(db, owner.ID, &dto.SendChatMessageRequest{Content: "Question"})
	require.NoError(t, err)
	session := first.SessionID

	_, err = svc.SendMessage(db, stranger.ID, &dto.SendChatMessageRequest{SessionID: session, Content: "hi"})
	assert.ErrorIs(t, err, apperrors.ErrChatSessionAccessDenied)

	_, err = svc.ListMessages(db, stranger.ID, false, session, &dto.PageQuery{})
	assert.ErrorIs(t, err, apperrors.ErrChatSessionNotFound)

	reply, err := svc.Reply(db, admin.ID, session, &dto.ReplyChatMessageRequest{Content: "Answer"})
	require.NoError(t, err)
	assert.Equal(t, owner.ID, reply.UserID, "владелец сессии не меняется")
	assert.Equal(t, admin.ID, reply.AuthorID)
	assert.Equal(t, models.ChatAuthorAdmin, reply.AuthorRole)

	_, err = svc.Reply(db, admin.ID, "missing-session", &dto.ReplyChatMessageRequest{Content: "x"})
	assert.ErrorIs(t, err, apperrors.ErrChatSessionNotFound)

	page, err := svc.ListMessages(db, admin.ID, true, session, &dto.PageQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)

	sessions, err := svc.ListSessions(db, owner.ID, &dto.PageQuery{})
	require.NoError(t, err)
	require.EqualValues(t, 1, sessions.Total)
	items := sessions.Data.([]models.ChatSession)
	assert.EqualValues(t, 1, items[0].UnreadCount)

	read, err := svc.MarkRead(db, owner.ID, false, session)
	require.NoError(t, err)
	assert.EqualValues(t, 1, read.Updated, "прочитан только ответ админа")

	sessions, err = svc.ListSessions(db, owner.ID, &dto.PageQuery{})
	require.NoError(t, err)
	assert.Zero(t, sessions.Data.([]models.ChatSession)[0].UnreadCount)

	all, err := svc.ListAllSessions(db, &dto.PageQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, all.Total)
}

func TestChatProcessor_RequeuePending(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repositories.NewChatRepository()
	user := testutil.CreateUser(t, db, "pending@test.com", "password1")

	// очередь заполнена: сообщения остаются PENDING
	full := queue.NewMemoryQueue(1)
	svc := NewChatService(repo, full)
	for _, text := range []string{"one", "two", "three"} {
		_, err := svc.SendMessage(db, user.ID, &dto.SendChatMessageRequest{Content: text})
		require.NoError(t, err)
	}

	fresh := queue.NewMemoryQueue(10)
	processor := NewChatProcessor(db, repo, nil)
	n, err := processor.RequeuePending(context.Background(), fresh, 100)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, fresh.Len())
}

// brokenDeliveryRepo отказывает на смене статуса, как при потере соединения с БД
type brokenDeliveryRepo struct {
	repositories.ChatRepository
}

func (r brokenDeliveryRepo) UpdateStatus(*gorm.DB, string, models.ChatMessageStatus, models.ChatMessageStatus, time.Time, string) (bool, error) {
	return false, errors.New("connection reset by peer")
}

func TestChatProcessor_StoreErrorLeadsToFailedAfterRetries(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repositories.NewChatRepository()
	user := testutil.CreateUser(t, db, "flaky@test.com", "password1")

	svc := NewChatService(repo, queue.NewMemoryQueue(10))
	msg, err := svc.SendMessage(db, user.ID, &dto.SendChatMessageRequest{Content: "ping"})
	require.NoError(t, err)

	broken := NewChatProcessor(db, brokenDeliveryRepo{repo}, nil).WithRetryPolicy(2, time.Minute)
	job := queue.Job{MessageID: msg.ID, SessionID: msg.SessionID}
	assert.Error(t, broken.Handle(context.Background(), job))

	stored, err := repo.FindByID(db, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChatMessageStatusPending, stored.Status)
	assert.Equal(t, "connection reset by peer", stored.Error)

	notifier := newRecordingNotifier()
	processor := NewChatProcessor(db, repo, notifier).WithRetryPolicy(2, time.Minute)
	retryQueue := queue.NewMemoryQueue(10)

	// каждый проход идет на минуту позже предыдущего
	clock := time.Now().UTC()
	for i := 1; i <= 2; i++ {
		clock = clock.Add(2 * time.Minute)
		processor.now = fixedClock(clock)

		n, err := processor.RetryStale(context.Background(), retryQueue, 100)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "проход %d", i)
	}

	clock = clock.Add(2 * time.Minute)
	processor.now = fixedClock(clock)
	n, err := processor.RetryStale(context.Background(), retryQueue, 100)
	require.NoError(t, err)
	assert.Zero(t, n)

	stored, err = repo.FindByID(db, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChatMessageStatusFailed, stored.Status)
	assert.Contains(t, stored.Error, "after 2 attempts")
	assert.Contains(t, stored.Error, "connection reset by peer")
	require.Len(t, notifier.users[user.ID], 1, "клиент узнает о FAILED")
}

func TestChatProcessor_RetryStaleRepublishesAfterQueueFull(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repositories.NewChatRepository()
	user := testutil.CreateUser(t, db, "burst@test.com", "password1")

	q := queue.NewMemoryQueue(1)
	svc := NewChatService(repo, q)
	_, err := svc.SendMessage(db, user.ID, &dto.SendChatMessageRequest{Content: "first"})
	require.NoError(t, err)
	second, err := svc.SendMessage(db, user.ID, &dto.SendChatMessageRequest{Content: "second"})
	require.NoError(t, err, "переполненная очередь не ломает отправку")
	assert.Equal(t, 1, q.Len())

	processor := NewChatProcessor(db, repo, nil).WithRetryPolicy(5, time.Minute)

	// свежие сообщения не трогаются
	n, err := processor.RetryStale(context.Background(), queue.NewMemoryQueue(10), 100)
	require.NoError(t, err)
	assert.Zero(t, n)

	processor.now = fixedClock(time.Now().UTC().Add(5 * time.Minute))
	retryQueue := queue.NewMemoryQueue(10)
	n, err = processor.RetryStale(context.Background(), retryQueue, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, processor.Handle(context.Background(), queue.Job{MessageID: second.ID}))
	stored, err := repo.FindByID(db, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChatMessageStatusDelivered, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
}
