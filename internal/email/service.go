// Package email sends moderation notifications via SMTP.
package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"designflow/api/internal/store"
)

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
	// NotifyTo receives new-submission notifications.
	NotifyTo string
}

// Service provides email sending
type Service struct {
	config Config
	server string
	auth   smtp.Auth
}

// NewService creates a new email service
func NewService(config Config) *Service {
	auth := smtp.PlainAuth("", config.Username, config.Password, config.Host)

	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
	}
}

// IsConfigured returns true if email is configured
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != "" && s.config.NotifyTo != ""
}

// SendEmail sends a plain text email
func (s *Service) SendEmail(to []string, subject, body string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}

	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	msg := []byte(fmt.Sprintf(
		"To: %s\r\n"+
			"From: %s\r\n"+
			"Subject: %s\r\n"+
			"Content-Type: text/plain; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		strings.Join(to, ", "),
		from,
		subject,
		body,
	))

	return smtp.SendMail(s.server, s.auth, s.config.From, to, msg)
}

// SendHTMLEmail sends an HTML email with a plain text fallback part
func (s *Service) SendHTMLEmail(to []string, subject, htmlBody string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}

	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	boundary := "boundary-designflow"

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "Please view this email in an HTML-capable email client.\r\n")
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", htmlBody)
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	return smtp.SendMail(s.server, s.auth, s.config.From, to, msg.Bytes())
}

// SubmissionData holds data for the submission notification template.
type SubmissionData struct {
	AppName     string
	Submission  store.Submission
	ApprovalURL string
}

// NotifySubmission emails the moderator about a new tool submission.
// approvalURL may be empty, in which case the one-click approve button is
// omitted and the moderator reviews through the admin endpoints.
func (s *Service) NotifySubmission(submission store.Submission, approvalURL string) error {
	data := SubmissionData{
		AppName:     "Design Workflow",
		Submission:  submission,
		ApprovalURL: approvalURL,
	}

	subject := fmt.Sprintf("Tool Submission: %s", submission.Name)
	html, err := renderTemplate(submissionEmailTemplate, data)
	if err != nil {
		return fmt.Errorf("render submission template: %w", err)
	}

	return s.SendHTMLEmail([]string{s.config.NotifyTo}, subject, html)
}

func renderTemplate(tmpl string, data interface{}) (string, error) {
	t := template.Must(template.New("email").Parse(tmpl))
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const submissionEmailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>New Tool Submission</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #FFA60C; padding-bottom: 10px; margin-bottom: 20px; }
        table { border-collapse: collapse; margin: 20px 0; }
        td { padding: 8px; }
        td.label { font-weight: bold; }
        .button { display: inline-block; padding: 12px 24px; background: #FFA60C; color: white; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.AppName}}</h1>
    </div>

    <h2>New Tool Submission</h2>

    <table>
        <tr><td class="label">Tool Name:</td><td>{{.Submission.Name}}</td></tr>
        <tr><td class="label">URL:</td><td><a href="{{.Submission.URL}}">{{.Submission.URL}}</a></td></tr>
        <tr><td class="label">Phase:</td><td>{{.Submission.PhaseTitle}} (phase {{.Submission.PhaseNumber}})</td></tr>
        <tr><td class="label">Section:</td><td>{{.Submission.SectionTitle}}</td></tr>
        {{if .Submission.Description}}<tr><td class="label">Description:</td><td>{{.Submission.Description}}</td></tr>{{end}}
        {{if .Submission.UseCase}}<tr><td class="label">Use case:</td><td>{{.Submission.UseCase}}</td></tr>{{end}}
        <tr><td class="label">Submitted by:</td><td>{{.Submission.SubmittedByName}} &lt;{{.Submission.SubmittedByEmail}}&gt;</td></tr>
    </table>

    {{if .ApprovalURL}}
    <p>
        <a href="{{.ApprovalURL}}" class="button">&#10003; Approve &amp; Add to Site</a>
    </p>
    <p class="footer">This approval link will expire in 30 days.</p>
    {{end}}

    <div class="footer">
        <p>Review pending submissions in the {{.AppName}} admin dashboard.</p>
    </div>
</body>
</html>`
