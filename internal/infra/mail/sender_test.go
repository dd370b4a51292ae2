package mail

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/xavierca1/agency-backoffice/internal/usecase"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func sampleReport() usecase.SyncReport {
	return usecase.SyncReport{
		TenantID: "t1",
		Mode:     usecase.SyncModeFull,
		Summary: usecase.SyncSummary{
			Total: 120, Processed: 90, Created: 3, Updated: 80, Deleted: 2, Skipped: 1, Errors: 4,
			Truncated: true, TimeElapsedMs: 280100,
		},
		StartedAt:  time.Date(2024, 3, 1, 3, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2024, 3, 1, 3, 4, 40, 0, time.UTC),
	}
}

func TestRenderSyncReport(t *testing.T) {
	body, err := RenderSyncReport(sampleReport())
	require.NoError(t, err)

	assert.Contains(t, body, "Sincronização full do tenant t1")
	assert.Contains(t, body, "Execução interrompida pelo prazo")
	assert.Contains(t, body, "4 card(s) com erro")
	assert.Contains(t, body, "2024-03-01T03:00:00Z")
	assert.Contains(t, body, "280100 ms")
}

func TestRenderSyncReportWithoutProblems(t *testing.T) {
	report := sampleReport()
	report.Summary.Errors = 0
	report.Summary.Truncated = false

	body, err := RenderSyncReport(report)
	require.NoError(t, err)
	assert.NotContains(t, body, "interrompida")
	assert.NotContains(t, body, "com erro")
}

func TestSendSyncReport(t *testing.T) {
	dialer := &fakeDialer{}
	sender := &EmailSender{From: "sync@example.com", To: []string{"ops@example.com", "dev@example.com"}, Dialer: dialer}

	require.NoError(t, sender.SendSyncReport(context.Background(), sampleReport()))
	require.Len(t, dialer.sent, 1)

	msg := dialer.sent[0]
	assert.Equal(t, []string{"ops@example.com", "dev@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"[sync full] t1: execução truncada"}, msg.GetHeader("Subject"))
}

func TestSendSyncReportErrors(t *testing.T) {
	dialer := &fakeDialer{err: errors.New("smtp down")}
	sender := &EmailSender{From: "a@b.c", To: []string{"ops@example.com"}, Dialer: dialer}
	assert.ErrorContains(t, sender.SendSyncReport(context.Background(), sampleReport()), "smtp down")
}

func TestNewEmailSenderSplitsRecipients(t *testing.T) {
	sender := NewEmailSender("smtp.example.com", 587, "u", "p", "from@example.com", "a@example.com, b@example.com,")
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, sender.To)

	empty := NewEmailSender("smtp.example.com", 587, "u", "p", "from@example.com", "")
	assert.NoError(t, empty.SendSyncReport(context.Background(), sampleReport()))
}
