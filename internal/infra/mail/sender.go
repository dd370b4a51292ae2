package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/xavierca1/agency-backoffice/internal/usecase"
)

//go:embed templates/*.html
var templatesFS embed.FS

var syncReportTmpl = template.Must(template.ParseFS(templatesFS, "templates/sync_report.html"))

func NewEmailSender(host string, port int, user, password, from, to string) *EmailSender {
	var recipients []string
	for _, addr := range strings.Split(to, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			recipients = append(recipients, addr)
		}
	}
	return &EmailSender{
		From:   from,
		To:     recipients,
		Dialer: gomail.NewDialer(host, port, user, password),
	}
}

// SendSyncReport envia o resumo de uma execução com erros ou truncada.
func (s *EmailSender) SendSyncReport(_ context.Context, report usecase.SyncReport) error {
	if len(s.To) == 0 {
		return nil
	}

	body, err := RenderSyncReport(report)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", s.To...)
	m.SetHeader("Subject", reportSubject(report))
	m.SetBody("text/html", body)

	if err := s.Dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("erro ao enviar email SMTP: %w", err)
	}
	return nil
}

func RenderSyncReport(report usecase.SyncReport) (string, error) {
	sum := report.Summary
	data := SyncReportData{
		TenantID:   report.TenantID,
		Mode:       string(report.Mode),
		StartedAt:  report.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt: report.FinishedAt.UTC().Format(time.RFC3339),
		Total:      sum.Total,
		Processed:  sum.Processed,
		Created:    sum.Created,
		Updated:    sum.Updated,
		Deleted:    sum.Deleted,
		Skipped:    sum.Skipped,
		Errors:     sum.Errors,
		Truncated:  sum.Truncated,
		ElapsedMs:  sum.TimeElapsedMs,
	}

	var body bytes.Buffer
	if err := syncReportTmpl.Execute(&body, data); err != nil {
		return "", fmt.Errorf("erro ao processar template: %w", err)
	}
	return body.String(), nil
}

func reportSubject(report usecase.SyncReport) string {
	switch {
	case report.Summary.Truncated:
		return fmt.Sprintf("[sync %s] %s: execução truncada", report.Mode, report.TenantID)
	default:
		return fmt.Sprintf("[sync %s] %s: %d erro(s)", report.Mode, report.TenantID, report.Summary.Errors)
	}
}
