package repositories

import (
	"testing"
	"time"

	"nutriplan_backend/internal/models"
	"nutriplan_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMessage(sessionID, userID, authorID string, role models.ChatAuthorRole, content string) *models.ChatMessage {
	return &models.ChatMessage{
		SessionID:  sessionID,
		UserID:     userID,
		AuthorID:   authorID,
		AuthorRole: role,
		Content:    content,
		Status:     models.ChatMessageStatusPending,
	}
}

func TestChatRepository_UpdateStatusOnlyFromExpected(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewChatRepository()
	user := testutil.CreateUser(t, db, "chat@test.com", "password1")

	msg := newMessage("s1", user.ID, user.ID, models.ChatAuthorUser, "hello")
	require.NoError(t, repo.Create(db, msg))

	ok, err := repo.UpdateStatus(db, msg.ID, models.ChatMessageStatusPending, models.ChatMessageStatusDelivered, time.Now().UTC(), "")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateStatus(db, msg.ID, models.ChatMessageStatusPending, models.ChatMessageStatusFailed, time.Now().UTC(), "boom")
	require.NoError(t, err)
	assert.False(t, ok, "повторная обработка не должна перетирать статус")

	got, err := repo.FindByID(db, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChatMessageStatusDelivered, got.Status)
	assert.NotNil(t, got.ProcessedAt)
}

func TestChatRepository_SessionsAndRead(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewChatRepository()
	user := testutil.CreateUser(t, db, "chat@test.com", "password1")
	admin := testutil.CreateUser(t, db, "admin@test.com", "password1", models.RoleUser, models.RoleAdmin)

	require.NoError(t, repo.Create(db, newMessage("s1", user.ID, user.ID, models.ChatAuthorUser, "first")))
	require.NoError(t, repo.Create(db, newMessage("s1", user.ID, admin.ID, models.ChatAuthorAdmin, "reply")))
	require.NoError(t, repo.Create(db, newMessage("s2", user.ID, user.ID, models.ChatAuthorUser, "second session")))

	owner, err := repo.FindSessionOwner(db, "s1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, owner)

	_, err = repo.FindSessionOwner(db, "missing")
	assert.ErrorIs(t, err, ErrChatSessionNotFound)

	sessions, total, err := repo.FindSessions(db, user.ID, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, sessions, 2)

	bySession := map[string]int{}
	for i, s := range sessions {
		bySession[s.SessionID] = i
	}
	s1 := sessions[bySession["s1"]]
	assert.EqualValues(t, 2, s1.MessageCount)
	assert.EqualValues(t, 1, s1.UnreadCount)

	n, err := repo.MarkSessionRead(db, "s1", models.ChatAuthorUser, time.Now().UTC())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "пользователь читает только ответы админа")

	msgs, total, err := repo.FindBySession(db, "s1", 1, 50)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, models.ChatMessageStatusPending, msgs[0].Status)
	assert.Equal(t, models.ChatMessageStatusRead, msgs[1].Status)

	counts, err := repo.CountByStatus(db)
	require.NoError(t, err)
	assert.EqualValues(t, 2, counts[models.ChatMessageStatusPending])
	assert.EqualValues(t, 1, counts[models.ChatMessageStatusRead])
}

func TestChatRepository_DeleteOlderThan(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewChatRepository()
	user := testutil.CreateUser(t, db, "chat@test.com", "password1")

	old := newMessage("s1", user.ID, user.ID, models.ChatAuthorUser, "old")
	old.CreatedAt = time.Now().UTC().AddDate(0, 0, -40)
	require.NoError(t, repo.Create(db, old))
	require.NoError(t, repo.Create(db, newMessage("s1", user.ID, user.ID, models.ChatAuthorUser, "new")))

	n, err := repo.DeleteOlderThan(db, time.Now().UTC().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	pending, err := repo.FindPending(db, time.Now().UTC().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "new", pending[0].Content)
}

func TestChatRepository_RecordAttempt(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewChatRepository()
	user := testutil.CreateUser(t, db, "retry@test.com", "password1")

	msg := newMessage("s1", user.ID, user.ID, models.ChatAuthorUser, "hello")
	require.NoError(t, repo.Create(db, msg))

	later := time.Now().UTC().Add(time.Hour)
	ok, err := repo.RecordAttempt(db, msg.ID, later)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, repo.RecordError(db, msg.ID, "db timeout"))

	stored, err := repo.FindByID(db, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Attempts)
	assert.Equal(t, "db timeout", stored.Error)
	assert.Equal(t, models.ChatMessageStatusPending, stored.Status)

	// после попытки сообщение не считается зависшим до later
	pending, err := repo.FindPending(db, time.Now().UTC().Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	pending, err = repo.FindPending(db, later, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	// обработанное сообщение счетчик не трогает
	_, err = repo.UpdateStatus(db, msg.ID, models.ChatMessageStatusPending, models.ChatMessageStatusDelivered, later, "")
	require.NoError(t, err)
	ok, err = repo.RecordAttempt(db, msg.ID, later)
	require.NoError(t, err)
	assert.False(t, ok)
}
