package services

import (
	"fmt"
	"html"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"

	"reliefhub-api/config"
	"reliefhub-api/models"
)

type EmailService struct {
	config config.EmailConfig
	dialer *gomail.Dialer
}

func NewEmailService(cfg config.EmailConfig) *EmailService {
	return &EmailService{
		config: cfg,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
	}
}

func (es *EmailService) newMessage(to, subject string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", fmt.Sprintf("%s <%s>", es.config.FromName, es.config.FromEmail))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	return m
}

func (es *EmailService) link(path string) string {
	if path == "" {
		return ""
	}
	return strings.TrimRight(es.config.PublicURL, "/") + path
}

// SendNotificationEmail mirrors an in-app notification to the recipient's inbox.
func (es *EmailService) SendNotificationEmail(to, name string, n *models.Notification) error {
	m := es.newMessage(to, "ReliefHub - "+n.Title)

	link := es.link(n.Link)
	button := ""
	if link != "" {
		button = fmt.Sprintf(`<p><a class="btn" href="%s">View on ReliefHub</a></p>`, html.EscapeString(link))
	}

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>%s</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { text-align: center; background: #1f7a4d; color: white; padding: 20px; border-radius: 10px 10px 0 0; }
        .content { background: #f8f9fa; padding: 30px; border-radius: 0 0 10px 10px; }
        .footer { text-align: center; margin-top: 20px; color: #666; font-size: 14px; }
        .btn { display: inline-block; background: #1f7a4d; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>ReliefHub</h1>
            <p>%s</p>
        </div>
        <div class="content">
            <h2>Hello %s,</h2>
            <p>%s</p>
            %s
        </div>
        <div class="footer">
            <p>You receive this because you have a ReliefHub account.</p>
            <p>This is an automated email, please do not reply.</p>
        </div>
    </div>
</body>
</html>`,
		html.EscapeString(n.Title),
		html.EscapeString(n.Title),
		html.EscapeString(name),
		html.EscapeString(n.Message),
		button,
	)

	textBody := fmt.Sprintf("Hello %s,\n\n%s\n\n%s\n\nThis is an automated email, please do not reply.\n", name, n.Message, link)

	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)

	return es.send(m, "notification")
}

// SendWelcomeEmail greets a newly registered account.
func (es *EmailService) SendWelcomeEmail(to, name string) error {
	m := es.newMessage(to, "Welcome to ReliefHub")

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Welcome to ReliefHub</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { text-align: center; background: #1f7a4d; color: white; padding: 30px; border-radius: 10px 10px 0 0; }
        .content { background: #f8f9fa; padding: 30px; border-radius: 0 0 10px 10px; }
        .feature { background: white; padding: 20px; margin: 15px 0; border-radius: 8px; border-left: 4px solid #1f7a4d; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Welcome to ReliefHub</h1>
        </div>
        <div class="content">
            <h2>Hello %s,</h2>
            <p>Your account is ready.</p>
            <div class="feature">
                <h4>Post a need</h4>
                <p>Tell your neighbours what your family is missing and track pledges as they arrive.</p>
            </div>
            <div class="feature">
                <h4>Donate</h4>
                <p>Pledge items to open needs and follow your impact on your donor profile.</p>
            </div>
            <p><a href="%s">Open ReliefHub</a></p>
        </div>
    </div>
</body>
</html>`, html.EscapeString(name), html.EscapeString(es.link("/")))

	textBody := fmt.Sprintf(`Hello %s,

Your ReliefHub account is ready.

Post a need: tell your neighbours what your family is missing and track pledges as they arrive.
Donate: pledge items to open needs and follow your impact on your donor profile.

%s
`, name, es.link("/"))

	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)

	return es.send(m, "welcome")
}

// send delivers m over SMTP. With email disabled the message is only logged.
func (es *EmailService) send(m *gomail.Message, kind string) error {
	to := m.GetHeader("To")
	if !es.config.Enabled {
		log.Debug().Strs("to", to).Str("kind", kind).Msg("email disabled, message not sent")
		return nil
	}

	if err := es.dialer.DialAndSend(m); err != nil {
		return errors.Wrapf(err, "failed to send %s email", kind)
	}

	log.Debug().Strs("to", to).Str("kind", kind).Msg("email sent")
	return nil
}
