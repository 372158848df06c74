package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/steward/internal/common"
	"github.com/ternarybob/steward/internal/interfaces"
	"github.com/ternarybob/steward/internal/models"
)

// Service sends status-change notification emails over SMTP.
// All sends are best-effort; callers log and swallow errors.
type Service struct {
	config *common.MailerConfig
	logger arbor.ILogger
}

// NewService creates a new mailer service. Returns nil when the mailer
// is disabled so callers can skip wiring it.
func NewService(config *common.MailerConfig, logger arbor.ILogger) interfaces.MailerService {
	if !config.Enabled {
		logger.Debug().Msg("Mailer disabled")
		return nil
	}
	return &Service{
		config: config,
		logger: logger,
	}
}

// NotifyStatusChange emails the configured admin address about a
// request status change.
func (s *Service) NotifyStatusChange(ctx context.Context, request *models.Request) error {
	if s.config.Host == "" {
		return fmt.Errorf("SMTP host not configured")
	}
	if s.config.From == "" {
		return fmt.Errorf("from email not configured")
	}
	if s.config.AdminTo == "" {
		return fmt.Errorf("admin recipient not configured")
	}

	subject := fmt.Sprintf("Maintenance request %s is now %s", request.ID, request.Status)

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: Steward <%s>\r\n", s.config.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", s.config.AdminTo))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(fmt.Sprintf("Request:     %s\r\n", request.ID))
	msg.WriteString(fmt.Sprintf("Status:      %s\r\n", request.Status))
	msg.WriteString(fmt.Sprintf("Category:    %s\r\n", request.Category))
	msg.WriteString(fmt.Sprintf("Priority:    %s\r\n", request.Priority))
	msg.WriteString(fmt.Sprintf("Description: %s\r\n", request.Description))
	if request.Location != "" {
		msg.WriteString(fmt.Sprintf("Location:    %s\r\n", request.Location))
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	var auth smtp.Auth
	if s.config.UseAuth && s.config.Username != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}

	if err := smtp.SendMail(addr, auth, s.config.From, []string{s.config.AdminTo}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send notification email: %w", err)
	}

	s.logger.Info().
		Str("request_id", request.ID).
		Str("status", string(request.Status)).
		Str("to", s.config.AdminTo).
		Msg("Status change notification sent")

	return nil
}
