package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	PlanDate string  `json:"plan_date" validate:"required,is-plan-date"`
	Currency *string `json:"currency" validate:"omitempty,is-currency"`
	Status   string  `form:"status" validate:"omitempty,is-subscription-status"`
	Role     string  `json:"role" validate:"omitempty,is-role-name"`
}

func TestValidate_FieldNamesFromTags(t *testing.T) {
	v := New()

	usd := "usd"
	err := v.Validate(&sampleRequest{
		Email:    "not-an-email",
		PlanDate: "01.02.2030",
		Currency: &usd,
		Status:   "PAID",
		Role:     "root",
	})
	require.Error(t, err)

	vErr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Equal(t, "Must be a valid email address", vErr.Errors["email"])
	assert.Equal(t, "Must be a date in YYYY-MM-DD format", vErr.Errors["plan_date"])
	assert.Contains(t, vErr.Errors, "currency")
	assert.Contains(t, vErr.Errors, "status")
	assert.Contains(t, vErr.Errors, "role")
	assert.Contains(t, vErr.Error(), "field 'currency'")
}

func TestValidate_EmptyOptionalValuesPass(t *testing.T) {
	v := New()

	eur := "EUR"
	assert.NoError(t, v.Validate(&sampleRequest{Email: "a@b.com", PlanDate: "2030-02-01"}))
	assert.NoError(t, v.Validate(&sampleRequest{Email: "a@b.com", PlanDate: "2030-02-01", Currency: &eur, Status: "APPROVED", Role: "admin"}))

	err := v.Validate(&sampleRequest{})
	require.Error(t, err)
	assert.Equal(t, "This field is required", err.(*ValidationError).Errors["plan_date"])
}
