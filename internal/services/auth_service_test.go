package services

import (
	"testing"
	"time"

	"nutriplan_backend/internal/auth"
	"nutriplan_backend/internal/email"
	"nutriplan_backend/internal/models"
	"nutriplan_backend/internal/repositories"
	"nutriplan_backend/internal/services/dto"
	"nutriplan_backend/internal/testutil"
	"nutriplan_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authFixture struct {
	svc   *AuthServiceImpl
	subs  *SubscriptionServiceImpl
	maker *auth.JWTMaker
	mail  *email.LogProvider
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()
	subs, _ := newSubscriptionService(t)
	mail := newTestEmailProvider(t)
	maker := auth.NewJWTMaker("test-secret-key-with-enough-length", "nutriplan-test", 15*time.Minute)
	svc := NewAuthService(
		repositories.NewUserRepository(),
		repositories.NewRoleRepository(),
		repositories.NewRefreshTokenRepository(),
		subs,
		maker,
		24*time.Hour,
		mail,
	)
	return authFixture{svc: svc, subs: subs, maker: maker, mail: mail}
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	db := testutil.NewTestDB(t)
	f := newAuthFixture(t)

	resp, err := f.svc.Register(db, &dto.RegisterRequest{
		Email:     "  New@Test.com ",
		Password:  "password1",
		FirstName: "Ann",
	})
	require.NoError(t, err)
	assert.Equal(t, "new@test.com", resp.User.Email)
	assert.Equal(t, []string{models.RoleUser}, resp.User.Roles)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.EqualValues(t, 15*60, resp.ExpiresIn)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "Free", resp.Plan.PlanName)

	claims, err := f.maker.ParseToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, 5, claims.NutritionPlanLimit)

	require.Len(t, f.mail.Sent(), 1, "приветственное письмо")

	_, err = f.svc.Register(db, &dto.RegisterRequest{Email: "NEW@test.com", Password: "password1"})
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)

	_, err = f.svc.Register(db, &dto.RegisterRequest{Email: "weak@test.com", Password: "short"})
	assert.ErrorIs(t, err, apperrors.ErrWeakPassword)

	login, err := f.svc.Login(db, &dto.LoginRequest{Email: "new@test.com", Password: "password1"})
	require.NoError(t, err)
	assert.NotNil(t, login.User.LastLoginAt)

	_, err = f.svc.Login(db, &dto.LoginRequest{Email: "new@test.com", Password: "wrong-pass1"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = f.svc.Login(db, &dto.LoginRequest{Email: "missing@test.com", Password: "password1"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestAuthService_SuspendedUserCannotLogin(t *testing.T) {
	db := testutil.NewTestDB(t)
	f := newAuthFixture(t)

	user := testutil.CreateUser(t, db, "blocked@test.com", "password1")
	require.NoError(t, db.Model(user).Update("status", models.UserStatusSuspended).Error)

	_, err := f.svc.Login(db, &dto.LoginRequest{Email: "blocked@test.com", Password: "password1"})
	assert.ErrorIs(t, err, apperrors.ErrUserSuspended)
}

func TestAuthService_RefreshRotatesAndRereadsPlan(t *testing.T) {
	db := testutil.NewTestDB(t)
	f := newAuthFixture(t)

	user := testutil.CreateUser(t, db, "refresh@test.com", "password1")
	first, err := f.svc.Login(db, &dto.LoginRequest{Email: "refresh@test.com", Password: "password1"})
	require.NoError(t, err)
	assert.Empty(t, first.Plan.PlanID)

	// подписку одобрили после входа
	plan := testutil.CreatePlan(t, db, "Premium", 30, 0)
	testutil.CreateSubscription(t, db, user.ID, plan, models.SubscriptionStatusApproved)

	second, err := f.svc.RefreshToken(db, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.Equal(t, plan.ID, second.Plan.PlanID)

	claims, err := f.maker.ParseToken(second.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "Premium", claims.PlanName)
	assert.Equal(t, 0, claims.NutritionPlanLimit)

	_, err = f.svc.RefreshToken(db, first.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken, "старый refresh-токен одноразовый")

	require.NoError(t, f.svc.Logout(db, second.RefreshToken))
	require.NoError(t, f.svc.Logout(db, second.RefreshToken), "повторный logout не ошибка")
	_, err = f.svc.RefreshToken(db, second.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestMeFromClaims(t *testing.T) {
	maker := auth.NewJWTMaker("test-secret-key-with-enough-length", "nutriplan-test", time.Minute)
	token, _, err := maker.GenerateToken("u1", "me@test.com", []string{models.RoleAdmin},
		auth.PlanInfo{PlanID: "p1", PlanName: "Pro", NutritionPlanLimit: 30})
	require.NoError(t, err)

	claims, err := maker.ParseToken(token)
	require.NoError(t, err)

	me := MeFromClaims(claims)
	assert.Equal(t, "u1", me.UserID)
	assert.Equal(t, "Pro", me.Plan.PlanName)
	assert.Equal(t, 30, me.Plan.NutritionPlanLimit)
	assert.False(t, me.ExpiresAt.IsZero())
}
