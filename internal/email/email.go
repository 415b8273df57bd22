// Package email renders and delivers transactional email.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"strings"

	"inkwell/internal/observability"

	"github.com/resend/resend-go/v2"
)

// Template names, also used as metric labels.
const (
	TemplateVerification = "verification"
	TemplateWelcome      = "welcome"
	TemplateSubscription = "subscription_confirmation"
)

// Message is one rendered email.
type Message struct {
	Template string
	To       string
	Subject  string
	HTML     string
	Text     string
}

// Sender delivers rendered messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ResendSender delivers through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey), from: from}
}

func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	_, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
		Tags:    []resend.Tag{{Name: "template", Value: msg.Template}},
	})
	record(msg.Template, err)
	if err != nil {
		return fmt.Errorf("resend %s: %w", msg.Template, err)
	}
	return nil
}

// LogSender writes messages to the log instead of sending them.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = observability.GlobalLogger.Logger
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "email not sent (no provider configured)",
		slog.String("template", msg.Template),
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("text", msg.Text),
	)
	record(msg.Template, nil)
	return nil
}

// NewSender returns a ResendSender when apiKey is set, otherwise a LogSender.
func NewSender(apiKey, from string, logger *slog.Logger) Sender {
	if strings.TrimSpace(apiKey) == "" {
		return NewLogSender(logger)
	}
	return NewResendSender(apiKey, from)
}

func record(tmpl string, err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	observability.EmailsSent.WithLabelValues(tmpl, result).Inc()
}

var layout = template.Must(template.New("layout").Parse(`<!doctype html>
<html><body style="font-family:Georgia,serif;max-width:560px;margin:0 auto;padding:24px">
<h1 style="font-size:22px">{{.Heading}}</h1>
<p>{{.Body}}</p>
{{if .ActionURL}}<p><a href="{{.ActionURL}}" style="display:inline-block;padding:10px 18px;background:#111;color:#fff;text-decoration:none">{{.ActionLabel}}</a></p>{{end}}
{{if .Footer}}<p style="color:#777;font-size:12px">{{.Footer}}</p>{{end}}
</body></html>`))

type layoutData struct {
	Heading     string
	Body        string
	ActionURL   string
	ActionLabel string
	Footer      string
}

func render(d layoutData) string {
	var buf bytes.Buffer
	// The template is static and its inputs are strings, so Execute cannot fail.
	_ = layout.Execute(&buf, d)
	return buf.String()
}

// VerificationEmail asks a new user to confirm their address.
func VerificationEmail(baseURL, to, username, token string) Message {
	link := strings.TrimRight(baseURL, "/") + "/verify-email?token=" + url.QueryEscape(token)
	return Message{
		Template: TemplateVerification,
		To:       to,
		Subject:  "Verify your email for Inkwell",
		HTML: render(layoutData{
			Heading:     "Confirm your email",
			Body:        "Hi " + username + ", confirm your address to start publishing on Inkwell. The link expires in 24 hours.",
			ActionURL:   link,
			ActionLabel: "Verify email",
			Footer:      "If you did not create an account you can ignore this message.",
		}),
		Text: "Hi " + username + ", verify your email: " + link,
	}
}

// WelcomeEmail is sent once an address is verified.
func WelcomeEmail(baseURL, to, username string) Message {
	return Message{
		Template: TemplateWelcome,
		To:       to,
		Subject:  "Welcome to Inkwell",
		HTML: render(layoutData{
			Heading:     "Welcome, " + username,
			Body:        "Your email is verified. Start writing or explore what others are publishing.",
			ActionURL:   strings.TrimRight(baseURL, "/"),
			ActionLabel: "Open Inkwell",
		}),
		Text: "Welcome to Inkwell, " + username + ".",
	}
}

// SubscriptionEmail confirms a newsletter subscription.
func SubscriptionEmail(baseURL, to string) Message {
	unsub := strings.TrimRight(baseURL, "/") + "/unsubscribe?email=" + url.QueryEscape(to)
	return Message{
		Template: TemplateSubscription,
		To:       to,
		Subject:  "You're subscribed to Inkwell",
		HTML: render(layoutData{
			Heading: "Thanks for subscribing",
			Body:    "You will receive new stories from Inkwell in your inbox.",
			Footer:  "Unsubscribe any time: " + unsub,
		}),
		Text: "You're subscribed to Inkwell. Unsubscribe: " + unsub,
	}
}
