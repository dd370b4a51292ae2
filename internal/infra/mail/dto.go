package mail

import "gopkg.in/gomail.v2"

type SyncReportData struct {
	TenantID   string
	Mode       string
	StartedAt  string
	FinishedAt string
	Total      int
	Processed  int
	Created    int
	Updated    int
	Deleted    int
	Skipped    int
	Errors     int
	Truncated  bool
	ElapsedMs  int64
}

// Dialer é satisfeito por *gomail.Dialer.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailSender struct {
	From   string
	To     []string
	Dialer Dialer
}
