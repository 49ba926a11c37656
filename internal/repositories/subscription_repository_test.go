package repositories

import (
	"testing"
	"time"

	"nutriplan_backend/internal/models"
	"nutriplan_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionRepository_CancelApprovedExcept(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSubscriptionRepository()

	user := testutil.CreateUser(t, db, "sub@test.com", "password1")
	other := testutil.CreateUser(t, db, "other@test.com", "password1")
	basic := testutil.CreatePlan(t, db, "Basic", 10, 10)
	premium := testutil.CreatePlan(t, db, "Premium", 30, 0)

	approved := testutil.CreateSubscription(t, db, user.ID, basic, models.SubscriptionStatusApproved)
	pending := testutil.CreateSubscription(t, db, user.ID, premium, models.SubscriptionStatusPending)
	otherApproved := testutil.CreateSubscription(t, db, other.ID, basic, models.SubscriptionStatusApproved)

	now := time.Now().UTC()
	n, err := repo.CancelApprovedExcept(db, user.ID, pending.ID, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := repo.FindByID(db, approved.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusCancelled, got.Status)
	require.NotNil(t, got.CancelledAt)

	got, err = repo.FindByID(db, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusPending, got.Status)

	got, err = repo.FindByID(db, otherApproved.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusApproved, got.Status, "чужие подписки не трогаются")
}

func TestSubscriptionRepository_OneApprovedIndex(t *testing.T) {
	db := testutil.NewTestDB(t)

	user := testutil.CreateUser(t, db, "idx@test.com", "password1")
	plan := testutil.CreatePlan(t, db, "Basic", 10, 10)
	testutil.CreateSubscription(t, db, user.ID, plan, models.SubscriptionStatusApproved)

	second := &models.Subscription{
		UserID:   &user.ID,
		PlanID:   plan.ID,
		Status:   models.SubscriptionStatusApproved,
		Amount:   plan.Price,
		Currency: plan.Currency,
	}
	err := db.Omit("Plan", "User", "ApprovedBy").Create(second).Error
	assert.Error(t, err, "вторая APPROVED подписка должна нарушать уникальный индекс")

	// REJECTED/CANCELLED индекс не ограничивает
	testutil.CreateSubscription(t, db, user.ID, plan, models.SubscriptionStatusRejected)
	testutil.CreateSubscription(t, db, user.ID, plan, models.SubscriptionStatusCancelled)
}

func TestSubscriptionRepository_FindApprovedByUser(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSubscriptionRepository()

	user := testutil.CreateUser(t, db, "active@test.com", "password1")
	plan := testutil.CreatePlan(t, db, "Basic", 10, 7)

	_, err := repo.FindApprovedByUser(db, user.ID)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)

	testutil.CreateSubscription(t, db, user.ID, plan, models.SubscriptionStatusPending)
	_, err = repo.FindApprovedByUser(db, user.ID)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)

	sub := testutil.CreateSubscription(t, db, user.ID, plan, models.SubscriptionStatusApproved)
	got, err := repo.FindApprovedByUser(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, got.ID)
	assert.Equal(t, "Basic", got.Plan.Name)
	assert.Equal(t, 7, got.Plan.NutritionPlanLimit)
}

func TestSubscriptionRepository_FindWithFilter(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSubscriptionRepository()

	user := testutil.CreateUser(t, db, "filter@test.com", "password1")
	plan := testutil.CreatePlan(t, db, "Basic", 10, 7)
	testutil.CreateSubscription(t, db, user.ID, plan, models.SubscriptionStatusPending)
	testutil.CreateSubscription(t, db, user.ID, plan, models.SubscriptionStatusRejected)
	testutil.CreateSubscription(t, db, user.ID, plan, models.SubscriptionStatusPending)

	subs, total, err := repo.FindWithFilter(db, SubscriptionFilter{Status: models.SubscriptionStatusPending, Page: 1, PageSize: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, subs, 1)
	require.NotNil(t, subs[0].User)
	assert.Equal(t, user.Email, subs[0].User.Email)

	exists, err := repo.ExistsPending(db, user.ID, plan.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSubscriptionRepository_FindExpiredApproved(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSubscriptionRepository()

	user := testutil.CreateUser(t, db, "exp@test.com", "password1")
	plan := testutil.CreatePlan(t, db, "Basic", 10, 7)
	sub := testutil.CreateSubscription(t, db, user.ID, plan, models.SubscriptionStatusApproved)

	expired, err := repo.FindExpiredApproved(db, time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, expired)

	expired, err = repo.FindExpiredApproved(db, time.Now().UTC().AddDate(0, 0, 31))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, sub.ID, expired[0].ID)
}

func TestSubscriptionRepository_Plans(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSubscriptionRepository()

	testutil.CreatePlan(t, db, "Premium", 30, 0)
	basic := testutil.CreatePlan(t, db, "Basic", 10, 10)

	hidden := &models.SubscriptionPlan{Name: "Legacy", Price: 5, Currency: "USD", DurationDays: 30, IsActive: false}
	require.NoError(t, repo.CreatePlan(db, hidden))

	active, err := repo.FindActivePlans(db)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "Basic", active[0].Name, "сортировка по цене")

	all, err := repo.FindAllPlans(db)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	dup := &models.SubscriptionPlan{Name: "Basic", Price: 1, Currency: "USD", DurationDays: 30, IsActive: true}
	assert.ErrorIs(t, repo.CreatePlan(db, dup), ErrPlanAlreadyExists)

	_, err = repo.FindPlanByID(db, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrSubscriptionPlanNotFound)

	require.NoError(t, repo.DeletePlan(db, basic.ID))
	assert.ErrorIs(t, repo.DeletePlan(db, basic.ID), ErrSubscriptionPlanNotFound)
}
