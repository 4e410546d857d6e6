package notify

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"
)

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailSink sends notifications by SMTP. Users without an e-mail are skipped.
type EmailSink struct {
	sender mailSender
	from   string
	users  Directory
}

func NewEmailSink(host string, port int, username, password, from string, users Directory) *EmailSink {
	return &EmailSink{
		sender: gomail.NewDialer(host, port, username, password),
		from:   from,
		users:  users,
	}
}

func (s *EmailSink) Notify(ctx context.Context, userID int64, title, message string) error {
	user, err := lookup(ctx, s.users, userID)
	if err != nil {
		return fmt.Errorf("email notify %d: %w", userID, err)
	}

	to := strings.TrimSpace(user.Email)
	if to == "" {
		return nil
	}

	mailer := gomail.NewMessage()
	mailer.SetHeader("From", s.from)
	mailer.SetHeader("To", to)
	mailer.SetHeader("Subject", title)
	mailer.SetBody("text/plain", message)

	if err := s.sender.DialAndSend(mailer); err != nil {
		return fmt.Errorf("email notify %d: %w", userID, err)
	}

	return nil
}
