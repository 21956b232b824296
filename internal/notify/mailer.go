package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"

	"oftaclinic/api/internal/cleanup"
	"oftaclinic/api/internal/config"
)

// Mailer sends operator notifications over SMTP to the configured admin
// addresses.
type Mailer struct {
	cfg    config.SMTPConfig
	admins []string
	log    zerolog.Logger
}

func NewMailer(cfg config.SMTPConfig, adminEmails []string, log zerolog.Logger) *Mailer {
	return &Mailer{
		cfg:    cfg,
		admins: adminEmails,
		log:    log,
	}
}

// CleanupReport mails the outcome of a cleanup pass.
func (m *Mailer) CleanupReport(report cleanup.Report) error {
	var list strings.Builder
	for _, key := range report.Deleted {
		fmt.Fprintf(&list, "<li>%s</li>", key)
	}

	body := fmt.Sprintf(
		"<h2>Image Cleanup Report</h2>"+
			"<p>The scheduled image cleanup finished:</p>"+
			"<ul><li>Images deleted: %d</li></ul>"+
			"<ul>%s</ul>",
		report.Total, list.String(),
	)
	return m.notifyAdmins("Image Cleanup Report", body)
}

// StorageAlert warns admins that a usage threshold was exceeded.
func (m *Mailer) StorageAlert(stats cleanup.Stats) error {
	body := fmt.Sprintf(
		"<h2>Image Storage Alert</h2>"+
			"<p>High storage usage detected:</p>"+
			"<ul>"+
			"<li>Total images: %d</li>"+
			"<li>Unused images: %d</li>"+
			"<li>Total size: %.2f GB</li>"+
			"<li>Average size: %.2f MB</li>"+
			"</ul>"+
			"<p>Please review the system and run a cleanup if needed.</p>",
		stats.TotalImages,
		stats.UnusedImages,
		float64(stats.TotalSize)/(1<<30),
		stats.AverageSize/(1<<20),
	)
	return m.notifyAdmins("Image Storage Alert", body)
}

// TaskStatus reports a scheduled task being enabled or disabled.
func (m *Mailer) TaskStatus(task string, enabled bool) error {
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	body := fmt.Sprintf(
		"<h2>Scheduled Task Update</h2>"+
			"<p>The task %q has been %s.</p>",
		task, state,
	)
	return m.notifyAdmins(fmt.Sprintf("Task Status: %s", task), body)
}

func (m *Mailer) notifyAdmins(subject, body string) error {
	var firstErr error
	for _, to := range m.admins {
		if err := m.send(to, subject, body); err != nil {
			m.log.Error().Err(err).Str("to", to).Msg("admin notification failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (m *Mailer) send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.Username != "" && m.cfg.Password != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", m.cfg.From, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	m.log.Debug().Str("to", to).Str("subject", subject).Msg("notification sent")
	return nil
}
