// Package notify e-mails the summary of finished ingestion runs.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"recipes-backend/internal/ingest"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("internal/notify")

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
}

type Config struct {
	Smtp SmtpConfig `json:"smtp"`
	To   []string   `json:"to"`
	// OnlyFailures skips reports of runs where no site gave up.
	OnlyFailures bool `json:"only_failures"`
}

func (c Config) Enabled() bool {
	return c.Smtp.Server != "" && len(c.To) > 0
}

type Mailer struct {
	config Config
}

func NewMailer(config Config) Mailer {
	return Mailer{config: config}
}

// SummaryTable lays out the summaries of a run with a total row.
func SummaryTable(report ingest.RunReport) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Site", "Status", "Persisted", "Dropped", "Failed", "Skipped elements", "Skipped pages", "Retries", "Duration"})
	for _, s := range report.Summaries {
		t.AppendRow(summaryRow(s))
	}
	total := report.Totals()
	t.AppendFooter(summaryRow(total))
	return t
}

func summaryRow(s ingest.Summary) table.Row {
	status := "done"
	switch {
	case s.Error:
		status = "error"
	case s.Stopped:
		status = "stopped"
	}
	return table.Row{
		s.Site,
		status,
		s.Persisted,
		s.Dropped,
		s.Failed,
		s.SkippedElements,
		s.SkippedPages,
		s.Retries,
		s.Duration.Round(time.Second).String(),
	}
}

func subject(report ingest.RunReport) string {
	total := report.Totals()
	status := "finished"
	if report.Failed() {
		status = "failed"
	}
	return fmt.Sprintf("Recipe ingestion %s %s: %d recipes persisted", report.Id, status, total.Persisted)
}

// Render returns the plain text body of the report mail.
func Render(report ingest.RunReport) string {
	var body strings.Builder
	fmt.Fprintf(
		&body,
		"Ingestion run %s started at %s and took %s.\n\n",
		report.Id,
		report.StartedAt.Format(time.RFC1123),
		report.FinishedAt.Sub(report.StartedAt).Round(time.Second),
	)
	body.WriteString(SummaryTable(report).Render())
	body.WriteString("\n")
	return body.String()
}

func (m Mailer) NotifyRun(ctx context.Context, report ingest.RunReport) error {
	ctx, span := tracer.Start(ctx, "NotifyRun")
	defer span.End()
	span.SetAttributes(attribute.String("run_id", report.Id))

	if !m.config.Enabled() || (m.config.OnlyFailures && !report.Failed()) {
		return nil
	}

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Recipes <%s>", m.config.Smtp.EmailAddress)
	mail.To = m.config.To
	mail.Subject = subject(report)
	mail.Text = []byte(Render(report))

	addr := fmt.Sprintf("%s:%d", m.config.Smtp.Server, m.config.Smtp.Port)
	err := mail.Send(addr, smtp.PlainAuth("", m.config.Smtp.EmailAddress, m.config.Smtp.Password, m.config.Smtp.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return fmt.Errorf("send run report: %w", err)
	}
	return nil
}
