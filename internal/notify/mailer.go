// Package notify delivers operational email about the as-run feed.
// Delivery is fire-and-forget from the poll cycle's perspective: failures
// are logged by the caller and never fail the cycle.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/wneessen/go-mail"

	"github.com/asrun-analyzer/backend/internal/models"
)

// StatusInfo is the payload of a periodic status report.
type StatusInfo struct {
	TotalFiles    int
	RecentFiles   int
	SystemStatus  string
	UnknownValues []string
}

// Notifier sends gap alerts and status reports.
type Notifier interface {
	SendGapAlert(ctx context.Context, report *models.GapReport) error
	SendStatusReport(ctx context.Context, status StatusInfo) error
}

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// Mailer implements Notifier over SMTP.
type Mailer struct {
	cfg Config
	log *slog.Logger
}

// NewMailer creates a Mailer.
func NewMailer(cfg Config, log *slog.Logger) *Mailer {
	if log == nil {
		log = slog.Default()
	}
	return &Mailer{cfg: cfg, log: log.With("component", "notify")}
}

var gapTemplate = template.Must(template.New("gap").Parse(`
<html>
<body>
  <h2>AsRun File Alert</h2>
  <p>Missing files have been detected in the AsRun system.</p>

  <h3>Status Details:</h3>
  <ul>
    <li><strong>Current Time:</strong> {{.CurrentTime.Format "2006-01-02 15:04:05 MST"}}</li>
    <li><strong>Days Behind:</strong> {{.DaysBehind}}</li>
    {{if .LatestFile}}<li><strong>Last Successful File:</strong> {{.LatestFile.Timestamp.Format "2006-01-02"}}</li>{{end}}
  </ul>

  <h3>Missing Dates:</h3>
  <ul>
    {{range .MissingDates}}<li>{{.Format "2006-01-02"}}</li>{{end}}
  </ul>

  {{if .LatestFile}}
  <h3>Latest File Details:</h3>
  <ul>
    <li><strong>Filename:</strong> {{.LatestFile.Filename}}</li>
    <li><strong>Time:</strong> {{.LatestFile.Timestamp.Format "15:04:05"}}</li>
    <li><strong>Size:</strong> {{.LatestFile.Size}} bytes</li>
  </ul>
  {{end}}

  <p style="color: #666; margin-top: 20px;">
  This is an automated message from the AsRun Analyzer system.
  </p>
</body>
</html>`))

var statusTemplate = template.Must(template.New("status").Parse(`
<html>
<body>
  <h2>AsRun System Status Report</h2>
  <p>Daily status report for the AsRun system.</p>

  <h3>File Processing Status:</h3>
  <ul>
    <li><strong>Total Files Processed:</strong> {{.TotalFiles}}</li>
    <li><strong>Files Last 24 Hours:</strong> {{.RecentFiles}}</li>
    <li><strong>System Status:</strong> {{.SystemStatus}}</li>
  </ul>

  {{if .UnknownValues}}
  <h3>Unknown Vocabulary Values Seen:</h3>
  <ul>
    {{range .UnknownValues}}<li>{{.}}</li>{{end}}
  </ul>
  {{end}}

  <p style="color: #666; margin-top: 20px;">
  This is an automated status report from the AsRun Analyzer system.
  </p>
</body>
</html>`))

// SendGapAlert emails the gap report to the configured recipients.
func (m *Mailer) SendGapAlert(ctx context.Context, report *models.GapReport) error {
	subject := fmt.Sprintf("AsRun File Alert - %d Day(s) Behind", report.DaysBehind)
	if report.Status == models.GapStatusNoFilesFound {
		subject = "AsRun File Alert - No Daily Files Found"
	}

	body, err := render(gapTemplate, report)
	if err != nil {
		return err
	}
	return m.send(ctx, subject, body)
}

// SendStatusReport emails a periodic status summary.
func (m *Mailer) SendStatusReport(ctx context.Context, status StatusInfo) error {
	body, err := render(statusTemplate, status)
	if err != nil {
		return err
	}
	return m.send(ctx, "AsRun System Status Update", body)
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering notification body: %w", err)
	}
	return buf.String(), nil
}

func (m *Mailer) send(ctx context.Context, subject, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(m.cfg.To...); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("creating SMTP client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	m.log.Info("notification sent", "subject", subject, "recipients", len(m.cfg.To))
	return nil
}
