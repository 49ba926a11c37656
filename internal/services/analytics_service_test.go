package services

import (
	"testing"
	"time"

	"nutriplan_backend/internal/models"
	"nutriplan_backend/internal/repositories"
	"nutriplan_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyticsService_Dashboard(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewAnalyticsService(
		repositories.NewAnalyticsRepository(),
		repositories.NewUserRepository(),
		repositories.NewNutritionPlanRepository(),
		repositories.NewChatRepository(),
		repositories.NewServiceProviderRepository(),
	)

	u1 := testutil.CreateUser(t, db, "a1@test.com", "password1")
	u2 := testutil.CreateUser(t, db, "a2@test.com", "password1")
	basic := testutil.CreatePlan(t, db, "Basic", 10, 10)
	premium := testutil.CreatePlan(t, db, "Premium", 30, 0)

	testutil.CreateSubscription(t, db, u1.ID, basic, models.SubscriptionStatusApproved)
	testutil.CreateSubscription(t, db, u2.ID, premium, models.SubscriptionStatusApproved)
	testutil.CreateSubscription(t, db, u2.ID, basic, models.SubscriptionStatusPending)

	today := models.NormalizeDate(time.Now().UTC())
	require.NoError(t, db.Create(&models.NutritionPlan{UserID: u1.ID, PlanDate: today, Calories: 2000, Completed: true}).Error)
	require.NoError(t, db.Create(&models.NutritionPlan{UserID: u2.ID, PlanDate: today, Calories: 1000}).Error)

	require.NoError(t, db.Create(&models.ChatMessage{
		SessionID: "s1", UserID: u1.ID, AuthorID: u1.ID, AuthorRole: models.ChatAuthorUser,
		Content: "hi", Status: models.ChatMessageStatusPending,
	}).Error)
	require.NoError(t, db.Create(&models.ServiceProvider{
		Name: "Gym", Address: "x", City: "Almaty", Latitude: 43, Longitude: 76, IsActive: true,
	}).Error)

	resp, err := svc.GetDashboard(db, "", "")
	require.NoError(t, err)

	assert.EqualValues(t, 2, resp.Users.Total)
	assert.EqualValues(t, 2, resp.Users.NewInRange)
	assert.EqualValues(t, 1, resp.Subscriptions.Pending)
	assert.EqualValues(t, 2, resp.Subscriptions.Active)
	assert.EqualValues(t, 2, resp.Subscriptions.ApprovedInRange)
	assert.Equal(t, 40.0, resp.Revenue.Total)
	require.Len(t, resp.Revenue.ByPlan, 2)
	assert.Equal(t, "Premium", resp.Revenue.ByPlan[0].PlanName)
	assert.EqualValues(t, 2, resp.Nutrition.Total)
	assert.Equal(t, 50.0, resp.Nutrition.CompletionRate)
	assert.Equal(t, 1500.0, resp.Nutrition.AvgCalories)
	assert.EqualValues(t, 1, resp.Chat.Total)
	assert.EqualValues(t, 1, resp.Chat.Pending)
	assert.EqualValues(t, 1, resp.Providers.Active)

	_, err = svc.GetDashboard(db, "2026-02-01", "2026-01-01")
	assert.Error(t, err)

	// окно без событий
	old, err := svc.GetDashboard(db, "2000-01-01", "2000-01-31")
	require.NoError(t, err)
	assert.Zero(t, old.Revenue.Total)
	assert.EqualValues(t, 2, old.Users.Total, "общее число пользователей от окна не зависит")
}
