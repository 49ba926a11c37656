package workers

import (
	"context"
	"sync"
	"testing"
	"time"

	"nutriplan_backend/internal/models"
	"nutriplan_backend/internal/queue"
	"nutriplan_backend/internal/repositories"
	"nutriplan_backend/internal/services"
	"nutriplan_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_Add(t *testing.T) {
	s := NewScheduler(time.Second)

	require.NoError(t, s.Add("disabled", "", func(context.Context) error { return nil }))
	assert.Equal(t, 0, s.Len())

	require.NoError(t, s.Add("every_minute", "0 * * * * *", func(context.Context) error { return nil }))
	assert.Equal(t, 1, s.Len())

	err := s.Add("broken", "not a schedule", func(context.Context) error { return nil })
	assert.Error(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestScheduler_RunNowRecoversPanic(t *testing.T) {
	s := NewScheduler(time.Second)

	assert.NotPanics(t, func() {
		s.RunNow("boom", func(context.Context) error { panic("boom") })
	})
}

func TestScheduler_StopCancelsJobContext(t *testing.T) {
	s := NewScheduler(0)

	var jobCtx context.Context
	s.RunNow("capture", func(ctx context.Context) error {
		jobCtx = ctx
		return nil
	})

	s.Start()
	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(stopCtx)

	require.NotNil(t, jobCtx)
	assert.Error(t, jobCtx.Err())
}

func TestSubscriptionWorker_ExpireSubscriptions(t *testing.T) {
	db := testutil.NewTestDB(t)

	user := testutil.CreateUser(t, db, "expire@test.com", "password1")
	plan := testutil.CreatePlan(t, db, "Monthly", 10, 20)
	sub := testutil.CreateSubscription(t, db, user.ID, plan, models.SubscriptionStatusApproved)

	past := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, db.Model(sub).Update("end_date", past).Error)

	service := services.NewSubscriptionService(
		repositories.NewSubscriptionRepository(),
		repositories.NewUserRepository(),
		nil,
		services.FreeTier{PlanName: "Free", NutritionPlanLimit: 5},
	)
	worker := NewSubscriptionWorker(db, service)

	require.NoError(t, worker.ExpireSubscriptions(context.Background()))

	var reloaded models.Subscription
	require.NoError(t, db.First(&reloaded, "id = ?", sub.ID).Error)
	assert.Equal(t, models.SubscriptionStatusCancelled, reloaded.Status)
	assert.NotNil(t, reloaded.CancelledAt)
}

func TestMaintenanceWorker(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "tokens@test.com", "password1")

	now := time.Now().UTC()
	require.NoError(t, db.Create(&models.RefreshToken{UserID: user.ID, Token: "expired", ExpiresAt: now.Add(-time.Hour)}).Error)
	require.NoError(t, db.Create(&models.RefreshToken{UserID: user.ID, Token: "valid", ExpiresAt: now.Add(time.Hour)}).Error)

	old := &models.ChatMessage{
		SessionID:  "old-session",
		UserID:     user.ID,
		AuthorID:   user.ID,
		AuthorRole: models.ChatAuthorUser,
		Content:    "hello from the past",
		Status:     models.ChatMessageStatusDelivered,
	}
	require.NoError(t, db.Create(old).Error)
	require.NoError(t, db.Model(old).UpdateColumn("created_at", now.AddDate(0, 0, -100)).Error)

	chat := services.NewChatService(repositories.NewChatRepository(), queue.NewMemoryQueue(1))
	maintenance := services.NewMaintenanceService(repositories.NewRefreshTokenRepository())
	worker := NewMaintenanceWorker(db, maintenance, chat, 30)

	scheduler := NewScheduler(time.Second)
	require.NoError(t, worker.Register(scheduler, "0 0 3 * * *", "0 30 3 * * *"))
	assert.Equal(t, 2, scheduler.Len())

	require.NoError(t, worker.PurgeExpiredTokens(context.Background()))
	require.NoError(t, worker.CleanupChat(context.Background()))

	var tokens []models.RefreshToken
	require.NoError(t, db.Find(&tokens).Error)
	require.Len(t, tokens, 1)
	assert.Equal(t, "valid", tokens[0].Token)

	var messages int64
	require.NoError(t, db.Model(&models.ChatMessage{}).Count(&messages).Error)
	assert.Zero(t, messages)
}

func TestMaintenanceWorker_RetentionDisabled(t *testing.T) {
	worker := NewMaintenanceWorker(nil, nil, nil, 0)
	scheduler := NewScheduler(time.Second)

	require.NoError(t, worker.Register(scheduler, "0 0 3 * * *", "0 30 3 * * *"))
	assert.Equal(t, 1, scheduler.Len())
}

type countingNotifier struct {
	mu    sync.Mutex
	users []string
}

func (n *countingNotifier) NotifyUser(userID string, _ interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.users = append(n.users, userID)
}

func (n *countingNotifier) NotifyAdmins(interface{}) {}

func (n *countingNotifier) notified() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.users...)
}

func TestChatWorker_RequeuesPendingOnStart(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "chat@test.com", "password1")

	// сообщение осталось PENDING после "рестарта"
	msg := &models.ChatMessage{
		SessionID:  "session-1",
		UserID:     user.ID,
		AuthorID:   user.ID,
		AuthorRole: models.ChatAuthorUser,
		Content:    "are you there?",
		Status:     models.ChatMessageStatusPending,
	}
	require.NoError(t, db.Create(msg).Error)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := queue.NewMemoryQueue(8)
	defer q.Close()

	notifier := &countingNotifier{}
	processor := services.NewChatProcessor(db, repositories.NewChatRepository(), notifier)
	require.NoError(t, NewChatWorker(q, processor).Start(ctx))

	require.Eventually(t, func() bool {
		var reloaded models.ChatMessage
		if err := db.First(&reloaded, "id = ?", msg.ID).Error; err != nil {
			return false
		}
		return reloaded.Status == models.ChatMessageStatusDelivered
	}, 2*time.Second, 20*time.Millisecond)

	assert.Equal(t, []string{user.ID}, notifier.notified())
}

func TestChatWorker_RetryStaleJob(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "stale@test.com", "password1")

	newPending := func(content string, attempts int) *models.ChatMessage {
		msg := &models.ChatMessage{
			SessionID:  "session-1",
			UserID:     user.ID,
			AuthorID:   user.ID,
			AuthorRole: models.ChatAuthorUser,
			Content:    content,
			Status:     models.ChatMessageStatusPending,
		}
		require.NoError(t, db.Create(msg).Error)
		require.NoError(t, db.Model(msg).UpdateColumns(map[string]interface{}{
			"attempts":   attempts,
			"updated_at": time.Now().UTC().Add(-time.Hour),
		}).Error)
		return msg
	}
	exhausted := newPending("lost", 3)
	stale := newPending("stuck", 0)

	q := queue.NewMemoryQueue(8)
	defer q.Close()

	processor := services.NewChatProcessor(db, repositories.NewChatRepository(), &countingNotifier{}).
		WithRetryPolicy(3, time.Minute)
	w := NewChatWorker(q, processor)

	s := NewScheduler(time.Second)
	require.NoError(t, w.Register(s, "30 * * * * *"))
	assert.Equal(t, 1, s.Len())

	s.RunNow(JobChatRetry, w.RetryStale)

	var reloaded models.ChatMessage
	require.NoError(t, db.First(&reloaded, "id = ?", exhausted.ID).Error)
	assert.Equal(t, models.ChatMessageStatusFailed, reloaded.Status)
	assert.Contains(t, reloaded.Error, "after 3 attempts")

	require.NoError(t, db.First(&reloaded, "id = ?", stale.ID).Error)
	assert.Equal(t, models.ChatMessageStatusPending, reloaded.Status)
	assert.Equal(t, 1, reloaded.Attempts)
	assert.Equal(t, 1, q.Len())
}
