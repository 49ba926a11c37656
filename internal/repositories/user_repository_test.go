package repositories

import (
	"testing"
	"time"

	"nutriplan_backend/internal/models"
	"nutriplan_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateNormalizesEmail(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository()
	roles := NewRoleRepository()

	role, err := roles.FindByName(db, models.RoleUser)
	require.NoError(t, err)

	user := &models.User{Email: "  Mixed@Case.COM ", PasswordHash: "x", Status: models.UserStatusActive, Roles: []models.Role{*role}}
	require.NoError(t, repo.Create(db, user))
	assert.Equal(t, "mixed@case.com", user.Email)

	dup := &models.User{Email: "MIXED@case.com", PasswordHash: "x", Status: models.UserStatusActive}
	assert.ErrorIs(t, repo.Create(db, dup), ErrUserAlreadyExists)

	got, err := repo.FindByEmail(db, "Mixed@case.com")
	require.NoError(t, err)
	assert.Equal(t, []string{models.RoleUser}, got.RoleNames())
}

func TestUserRepository_FilterAndRoles(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository()
	roles := NewRoleRepository()

	testutil.CreateUser(t, db, "anna@test.com", "password1")
	admin := testutil.CreateUser(t, db, "boss@test.com", "password1", models.RoleUser, models.RoleAdmin)

	users, total, err := repo.FindWithFilter(db, UserFilter{Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, admin.ID, users[0].ID)

	users, total, err = repo.FindWithFilter(db, UserFilter{Search: "ANNA"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "anna@test.com", users[0].Email)

	userRole, err := roles.FindByNames(db, []string{models.RoleUser})
	require.NoError(t, err)
	require.NoError(t, repo.ReplaceRoles(db, admin, userRole))

	reloaded, err := repo.FindByID(db, admin.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.HasRole(models.RoleAdmin))

	_, err = roles.FindByNames(db, []string{models.RoleUser, "moderator"})
	assert.ErrorIs(t, err, ErrRoleNotFound)
}

func TestUserRepository_DeleteKeepsSubscriptionHistory(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository()

	user := testutil.CreateUser(t, db, "gone@test.com", "password1")
	plan := testutil.CreatePlan(t, db, "Basic", 10, 5)
	approved := testutil.CreateSubscription(t, db, user.ID, plan, models.SubscriptionStatusApproved)
	rejected := testutil.CreateSubscription(t, db, user.ID, plan, models.SubscriptionStatusRejected)
	require.NoError(t, db.Create(&models.NutritionPlan{UserID: user.ID, PlanDate: testutil.Date("2026-01-01")}).Error)

	require.NoError(t, repo.Delete(db, user.ID))

	_, err := repo.FindByID(db, user.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	var plans int64
	require.NoError(t, db.Model(&models.NutritionPlan{}).Where("user_id = ?", user.ID).Count(&plans).Error)
	assert.Zero(t, plans)

	var subs []models.Subscription
	require.NoError(t, db.Order("created_at").Find(&subs).Error)
	require.Len(t, subs, 2)
	for _, sub := range subs {
		assert.Nil(t, sub.UserID)
		assert.Empty(t, sub.OwnerID())
	}

	var reloaded models.Subscription
	require.NoError(t, db.First(&reloaded, "id = ?", approved.ID).Error)
	assert.Equal(t, models.SubscriptionStatusCancelled, reloaded.Status)
	assert.NotNil(t, reloaded.CancelledAt)
	require.NoError(t, db.First(&reloaded, "id = ?", rejected.ID).Error)
	assert.Equal(t, models.SubscriptionStatusRejected, reloaded.Status)

	// выручка за одобренную подписку не пропадает
	revenue, err := NewAnalyticsRepository().GetRevenue(db, time.Now().UTC().Add(-time.Hour), time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.InDelta(t, 10, revenue, 0.001)

	assert.ErrorIs(t, repo.Delete(db, user.ID), ErrUserNotFound)
}
