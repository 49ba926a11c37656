package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTMaker_GenerateAndParseToken(t *testing.T) {
	maker := NewJWTMaker("test_secret_key_1234567890", "nutriplan", 15*time.Minute)

	tests := []struct {
		name  string
		roles []string
		plan  PlanInfo
	}{
		{
			name:  "free tier user",
			roles: []string{"user"},
			plan:  PlanInfo{PlanName: "Free", NutritionPlanLimit: 5},
		},
		{
			name:  "user with approved plan",
			roles: []string{"user"},
			plan: PlanInfo{
				SubscriptionID:     "sub-1",
				PlanID:             "plan-1",
				PlanName:           "Premium",
				NutritionPlanLimit: 0,
			},
		},
		{
			name:  "admin",
			roles: []string{"user", "admin"},
			plan:  PlanInfo{PlanName: "Free", NutritionPlanLimit: 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, issued, err := maker.GenerateToken("user-1", "a@b.com", tt.roles, tt.plan)
			require.NoError(t, err)
			require.NotEmpty(t, token)
			assert.Equal(t, "user-1", issued.Subject)

			claims, err := maker.ParseToken(token)
			require.NoError(t, err)

			assert.Equal(t, "user-1", claims.UserID)
			assert.Equal(t, "a@b.com", claims.Email)
			assert.Equal(t, tt.roles, claims.Roles)
			assert.Equal(t, tt.plan, claims.PlanInfo)
			assert.Equal(t, "nutriplan", claims.Issuer)
			assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, 2*time.Second)
		})
	}
}

func TestJWTMaker_ParseToken_Invalid(t *testing.T) {
	maker := NewJWTMaker("test_secret_key_1234567890", "nutriplan", 15*time.Minute)
	token, _, err := maker.GenerateToken("user-1", "a@b.com", []string{"user"}, PlanInfo{})
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTMaker("another_secret", "nutriplan", 15*time.Minute)
		_, err := other.ParseToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewJWTMaker("test_secret_key_1234567890", "someone-else", 15*time.Minute)
		_, err := other.ParseToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := maker.ParseToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := maker.ParseToken("")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		claims := &Claims{
			UserID: "user-1",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "nutriplan",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = maker.ParseToken(unsigned)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestJWTMaker_ParseToken_Expired(t *testing.T) {
	maker := NewJWTMaker("test_secret_key_1234567890", "nutriplan", time.Minute)
	maker.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := maker.GenerateToken("user-1", "a@b.com", []string{"user"}, PlanInfo{})
	require.NoError(t, err)

	maker.now = time.Now
	_, err = maker.ParseToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestNewRefreshToken(t *testing.T) {
	a, err := NewRefreshToken()
	require.NoError(t, err)
	b, err := NewRefreshToken()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
