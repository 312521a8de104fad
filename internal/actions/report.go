package actions

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bulkops/internal/bulk"
	"github.com/ternarybob/bulkops/internal/interfaces"
	"github.com/ternarybob/bulkops/internal/models"
)

// Report formats
const (
	ReportFormatPDF      = "pdf"
	ReportFormatMarkdown = "markdown"
	ReportFormatHTML     = "html"
)

var reportFiles = map[string]struct{ ext, contentType string }{
	ReportFormatPDF:      {"pdf", "application/pdf"},
	ReportFormatMarkdown: {"md", "text/markdown"},
	ReportFormatHTML:     {"html", "text/html"},
}

type reportEntry struct {
	guest    *models.Guest
	payments []*models.Payment
}

// ReportGenerateHandler builds an occupancy and payments report for the job's guests
type ReportGenerateHandler struct {
	guests   interfaces.GuestStorage
	payments interfaces.PaymentStorage
	renderer interfaces.ReportRenderer
	logger   arbor.ILogger
	now      func() time.Time
}

// NewReportGenerateHandler creates a report handler. payments may be nil.
func NewReportGenerateHandler(guests interfaces.GuestStorage, payments interfaces.PaymentStorage, renderer interfaces.ReportRenderer, logger arbor.ILogger) *ReportGenerateHandler {
	return &ReportGenerateHandler{
		guests:   guests,
		payments: payments,
		renderer: renderer,
		logger:   logger,
		now:      time.Now,
	}
}

// Execute renders the report in the requested format
func (h *ReportGenerateHandler) Execute(ctx context.Context, job models.BulkJob, tracker bulk.Tracker) (*models.ActionResult, error) {
	format := stringParam(job.Parameters, "format", ReportFormatPDF)
	file, ok := reportFiles[format]
	if !ok {
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
	title := stringParam(job.Parameters, "title", "Guest Report")

	entries := make([]reportEntry, 0, len(job.ItemIDs))
	outcomes, err := bulk.ProcessItems(ctx, job, tracker, func(ctx context.Context, guestID string) error {
		g, err := h.guests.GetGuest(ctx, guestID)
		if err != nil {
			return itemStorageError(err,
				fmt.Sprintf("Guest %s not found", guestID),
				func(err error) error { return fmt.Errorf("Error loading guest %s: %v", guestID, err) })
		}

		entry := reportEntry{guest: g}
		if h.payments != nil {
			payments, err := h.payments.ListPaymentsByGuest(ctx, guestID)
			if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
				return itemStorageError(err, "",
					func(err error) error { return fmt.Errorf("Error loading payments for guest %s: %v", guestID, err) })
			}
			entry.payments = payments
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	generatedAt := h.now().UTC()
	markdown := buildGuestReport(title, generatedAt, entries)

	var content string
	switch format {
	case ReportFormatPDF:
		pdf, err := h.renderer.MarkdownToPDF(markdown, title)
		if err != nil {
			return nil, fmt.Errorf("render pdf report: %w", err)
		}
		content = base64.StdEncoding.EncodeToString(pdf)
	case ReportFormatHTML:
		html, err := h.renderer.MarkdownToHTML(markdown)
		if err != nil {
			return nil, fmt.Errorf("render html report: %w", err)
		}
		content = string(html)
	default:
		content = markdown
	}

	result := models.NewActionResult(outcomes)
	result.Data = map[string]interface{}{
		"filename":     fmt.Sprintf("guest_report_%s.%s", generatedAt.Format("20060102_150405"), file.ext),
		"format":       format,
		"content_type": file.contentType,
		"content":      content,
	}

	h.logger.Debug().
		Str("format", format).
		Int("guests", len(entries)).
		Msg("Guest report generated")

	return result, nil
}

func buildGuestReport(title string, generatedAt time.Time, entries []reportEntry) string {
	var sb strings.Builder

	active, paid := 0, 0
	outstanding := 0.0
	for _, e := range entries {
		if e.guest.IsActive {
			active++
		}
		if e.guest.PaymentStatus == models.GuestPaymentPaid {
			paid++
		}
		for _, p := range e.payments {
			if p.Status == models.PaymentStatusPending {
				outstanding += p.Amount
			}
		}
	}

	fmt.Fprintf(&sb, "# %s\n\n", title)
	fmt.Fprintf(&sb, "Generated %s\n\n", generatedAt.Format("2006-01-02 15:04 MST"))

	sb.WriteString("## Summary\n\n")
	fmt.Fprintf(&sb, "- **Guests:** %d\n", len(entries))
	fmt.Fprintf(&sb, "- **Active:** %d\n", active)
	fmt.Fprintf(&sb, "- **Paid:** %d\n", paid)
	fmt.Fprintf(&sb, "- **Outstanding payments:** %.2f\n\n", outstanding)

	sb.WriteString("## Guests\n\n")
	for _, e := range entries {
		g := e.guest
		fmt.Fprintf(&sb, "### %s (%s)\n\n", g.Name, g.ID)
		if g.RoomNumber != "" {
			fmt.Fprintf(&sb, "- Room: %s\n", g.RoomNumber)
		}
		fmt.Fprintf(&sb, "- Status: %s\n", g.StatusLabel())
		fmt.Fprintf(&sb, "- Payment status: %s\n", g.PaymentStatus)
		fmt.Fprintf(&sb, "- Monthly rate: %.2f\n", g.MonthlyRate)
		if g.StartDate != nil {
			fmt.Fprintf(&sb, "- Start date: %s\n", formatDate(g.StartDate))
		}
		if g.EndDate != nil {
			fmt.Fprintf(&sb, "- End date: %s\n", formatDate(g.EndDate))
		}
		if len(e.payments) > 0 {
			sb.WriteString("\nPayments:\n\n")
			for _, p := range e.payments {
				fmt.Fprintf(&sb, "- %s %.2f %s (%s)\n", p.ID, p.Amount, p.Currency, p.Status)
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
