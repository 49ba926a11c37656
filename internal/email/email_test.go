package email

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateManager_RenderBuiltins(t *testing.T) {
	tm, err := NewTemplateManager()
	require.NoError(t, err)

	html, err := tm.Render(TemplateSubscriptionApproved, TemplateData{
		"Name":     "Anna <script>",
		"PlanName": "Premium",
		"Amount":   19.9,
		"Currency": "USD",
		"EndDate":  "2026-12-01",
	})
	require.NoError(t, err)
	assert.Contains(t, html, "Premium")
	assert.Contains(t, html, "19.90 USD")
	assert.NotContains(t, html, "<script>", "html/template экранирует данные")

	html, err = tm.Render(TemplateSubscriptionRejected, TemplateData{"Name": "Anna", "PlanName": "Basic"})
	require.NoError(t, err)
	assert.NotContains(t, html, "Reason")

	_, err = tm.Render("missing", nil)
	assert.Error(t, err)
}

func TestLogProvider_RecordsMessages(t *testing.T) {
	tm, err := NewTemplateManager()
	require.NoError(t, err)
	p := NewLogProvider(tm)

	err = p.SendTemplate(context.Background(), []string{"a@b.com"}, "Welcome", TemplateWelcome, TemplateData{"Name": "Anna"})
	require.NoError(t, err)

	sent := p.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"a@b.com"}, sent[0].To)
	assert.Contains(t, sent[0].HTMLBody, "Anna")
}

func TestNewSMTPProvider_RequiresHost(t *testing.T) {
	_, err := NewSMTPProvider(SMTPConfig{}, nil)
	assert.Error(t, err)

	p, err := NewSMTPProvider(SMTPConfig{Host: "smtp.example.com", Port: 587, FromEmail: "noreply@example.com"}, nil)
	require.NoError(t, err)
	assert.Error(t, p.Send(context.Background(), &Email{Subject: "no recipients"}))
}
