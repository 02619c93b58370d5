// pkg/email/service.go
package email

import (
	"context"
	"html/template"
)

// EmailService defines the interface for sending emails
type EmailService interface {
	SendWelcomeEmail(ctx context.Context, to Recipient) error
}

// Recipient is the addressee of an email.
type Recipient struct {
	Email string
	Name  string
}

// EmailData contains data for template rendering
type EmailData struct {
	Recipient    Recipient
	SupportEmail string
	AppName      string
	BaseURL      string
}

// Config holds email service configuration
type Config struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
	BaseURL      string
	AppName      string
	SupportEmail string
}

// Templates holds all email templates. Each template defines the
// "subject", "plainBody" and "htmlBody" blocks.
type Templates struct {
	Welcome *template.Template
}

// NewTemplates creates default email templates
func NewTemplates() *Templates {
	return &Templates{
		Welcome: template.Must(template.New("welcome").Parse(welcomeTemplate)),
	}
}

const welcomeTemplate = `{{define "subject"}}Welcome to {{.AppName}}!{{end}}

{{define "plainBody"}}Hi {{.Recipient.Name}},

Your {{.AppName}} account is ready. Here are a few things to try first:

- Add your first task and give it a start time
- Open the day view to see what's on today
- Ask the assistant for suggestions on a task or your whole day

Start planning: {{.BaseURL}}

Best regards,
The {{.AppName}} Team

Need help? Contact us at {{.SupportEmail}}{{end}}

{{define "htmlBody"}}<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Welcome to {{.AppName}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .button { display: inline-block; padding: 12px 24px; background-color: #28a745; color: white; text-decoration: none; border-radius: 5px; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 14px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Welcome to {{.AppName}}!</h1>
        <p>Hi {{.Recipient.Name}},</p>
        <p>Your {{.AppName}} account is ready. Here are a few things to try first:</p>
        <ul>
            <li>Add your first task and give it a start time</li>
            <li>Open the day view to see what's on today</li>
            <li>Ask the assistant for suggestions on a task or your whole day</li>
        </ul>
        <p style="text-align: center; margin: 30px 0;">
            <a href="{{.BaseURL}}" class="button">Start planning</a>
        </p>
        <div class="footer">
            <p>Best regards,<br>The {{.AppName}} Team</p>
            <p>Need help? Contact us at <a href="mailto:{{.SupportEmail}}">{{.SupportEmail}}</a></p>
        </div>
    </div>
</body>
</html>{{end}}`
