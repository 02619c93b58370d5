// pkg/email/smtp.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sync"
	"time"

	"github.com/go-mail/mail/v2"
)

const sendAttempts = 3

// SMTPEmailService implements EmailService using SMTP
type SMTPEmailService struct {
	config    *Config
	templates *Templates
	dialer    *mail.Dialer
}

// NewSMTPEmailService creates a new SMTP email service
func NewSMTPEmailService(config *Config) *SMTPEmailService {
	dialer := mail.NewDialer(config.SMTPHost, config.SMTPPort, config.SMTPUsername, config.SMTPPassword)
	dialer.Timeout = 10 * time.Second

	return &SMTPEmailService{
		config:    config,
		templates: NewTemplates(),
		dialer:    dialer,
	}
}

// SendWelcomeEmail sends a welcome email after registration
func (s *SMTPEmailService) SendWelcomeEmail(ctx context.Context, to Recipient) error {
	msg, err := s.buildMessage(to, s.templates.Welcome, s.buildEmailData(to))
	if err != nil {
		return err
	}
	return s.send(ctx, msg)
}

func (s *SMTPEmailService) buildEmailData(to Recipient) *EmailData {
	return &EmailData{
		Recipient:    to,
		SupportEmail: s.config.SupportEmail,
		AppName:      s.config.AppName,
		BaseURL:      s.config.BaseURL,
	}
}

func (s *SMTPEmailService) buildMessage(to Recipient, tmpl *template.Template, data *EmailData) (*mail.Message, error) {
	subject, plainBody, htmlBody, err := render(tmpl, data)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMessage()
	msg.SetHeader("To", msg.FormatAddress(to.Email, to.Name))
	msg.SetHeader("From", msg.FormatAddress(s.config.FromEmail, s.config.FromName))
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", plainBody)
	msg.AddAlternative("text/html", htmlBody)
	return msg, nil
}

func (s *SMTPEmailService) send(ctx context.Context, msg *mail.Message) error {
	var err error
	for i := 0; i < sendAttempts; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = s.dialer.DialAndSend(msg)
		if err == nil {
			return nil
		}
	}
	return fmt.Errorf("send email: %w", err)
}

// TestConnection tests the SMTP connection
func (s *SMTPEmailService) TestConnection(ctx context.Context) error {
	closer, err := s.dialer.Dial()
	if err != nil {
		return fmt.Errorf("dial SMTP server: %w", err)
	}
	return closer.Close()
}

func render(tmpl *template.Template, data any) (subject, plainBody, htmlBody string, err error) {
	var buf bytes.Buffer
	if err = tmpl.ExecuteTemplate(&buf, "subject", data); err != nil {
		return "", "", "", fmt.Errorf("execute subject template: %w", err)
	}
	subject = buf.String()

	buf.Reset()
	if err = tmpl.ExecuteTemplate(&buf, "plainBody", data); err != nil {
		return "", "", "", fmt.Errorf("execute text template: %w", err)
	}
	plainBody = buf.String()

	buf.Reset()
	if err = tmpl.ExecuteTemplate(&buf, "htmlBody", data); err != nil {
		return "", "", "", fmt.Errorf("execute HTML template: %w", err)
	}
	htmlBody = buf.String()

	return subject, plainBody, htmlBody, nil
}

// MockEmailService implements EmailService for testing
type MockEmailService struct {
	mu         sync.Mutex
	templates  *Templates
	SentEmails []SentEmail
	Err        error
}

// SentEmail represents an email that was sent via MockEmailService
type SentEmail struct {
	To       string
	Template string
	Subject  string
	Body     string
	SentAt   time.Time
}

// NewMockEmailService creates a new mock email service
func NewMockEmailService() *MockEmailService {
	return &MockEmailService{
		templates:  NewTemplates(),
		SentEmails: make([]SentEmail, 0),
	}
}

// SendWelcomeEmail mock implementation
func (m *MockEmailService) SendWelcomeEmail(ctx context.Context, to Recipient) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	subject, body, _, err := render(m.templates.Welcome, &EmailData{Recipient: to, AppName: "BarakaFlow"})
	if err != nil {
		return err
	}
	m.SentEmails = append(m.SentEmails, SentEmail{
		To:       to.Email,
		Template: "welcome",
		Subject:  subject,
		Body:     body,
		SentAt:   time.Now(),
	})
	return nil
}

// GetSentEmails returns all sent emails (for testing)
func (m *MockEmailService) GetSentEmails() []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentEmail(nil), m.SentEmails...)
}

// GetLastSentEmail returns the last sent email (for testing)
func (m *MockEmailService) GetLastSentEmail() *SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.SentEmails) == 0 {
		return nil
	}
	last := m.SentEmails[len(m.SentEmails)-1]
	return &last
}
