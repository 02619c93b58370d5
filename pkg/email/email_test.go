package email

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderWelcome(t *testing.T) {
	subject, plain, html, err := render(NewTemplates().Welcome, &EmailData{
		Recipient:    Recipient{Email: "amina@example.com", Name: "Amina <script>"},
		AppName:      "BarakaFlow",
		BaseURL:      "http://localhost:5173",
		SupportEmail: "support@barakaflow.local",
	})
	require.NoError(t, err)

	assert.Equal(t, "Welcome to BarakaFlow!", subject)
	assert.Contains(t, plain, "Start planning: http://localhost:5173")
	assert.Contains(t, html, "Amina &lt;script&gt;")
	assert.NotContains(t, html, "<script>")
}

func TestSMTPEmailService_BuildMessage(t *testing.T) {
	svc := NewSMTPEmailService(&Config{
		SMTPHost:  "localhost",
		SMTPPort:  2525,
		FromEmail: "noreply@barakaflow.local",
		FromName:  "BarakaFlow",
		AppName:   "BarakaFlow",
	})

	to := Recipient{Email: "amina@example.com", Name: "Amina"}
	msg, err := svc.buildMessage(to, svc.templates.Welcome, svc.buildEmailData(to))
	require.NoError(t, err)
	assert.Equal(t, []string{"Welcome to BarakaFlow!"}, msg.GetHeader("Subject"))
	assert.Equal(t, []string{`"Amina" <amina@example.com>`}, msg.GetHeader("To"))
}

func TestSMTPEmailService_CanceledContext(t *testing.T) {
	svc := NewSMTPEmailService(&Config{SMTPHost: "localhost", SMTPPort: 1, AppName: "BarakaFlow"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.SendWelcomeEmail(ctx, Recipient{Email: "a@b.co", Name: "A"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockEmailService(t *testing.T) {
	m := NewMockEmailService()
	assert.Nil(t, m.GetLastSentEmail())

	require.NoError(t, m.SendWelcomeEmail(context.Background(), Recipient{Email: "a@b.co", Name: "A"}))
	last := m.GetLastSentEmail()
	require.NotNil(t, last)
	assert.Equal(t, "a@b.co", last.To)
	assert.Equal(t, "welcome", last.Template)
	assert.Contains(t, last.Body, "Hi A,")

	m.Err = errors.New("smtp down")
	assert.Error(t, m.SendWelcomeEmail(context.Background(), Recipient{Email: "c@d.co"}))
	assert.Len(t, m.GetSentEmails(), 1)
}
