package services

import (
	"testing"
	"time"

	"nutriplan_backend/internal/email"

	"github.com/stretchr/testify/require"
)

func newTestEmailProvider(t *testing.T) *email.LogProvider {
	t.Helper()
	tm, err := email.NewTemplateManager()
	require.NoError(t, err)
	return email.NewLogProvider(tm)
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func floatPtr(f float64) *float64 { return &f }
