package actions

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bulkops/internal/bulk"
	"github.com/ternarybob/bulkops/internal/interfaces"
	"github.com/ternarybob/bulkops/internal/models"
	"gopkg.in/yaml.v3"
)

// Export formats
const (
	ExportFormatCSV  = "csv"
	ExportFormatJSON = "json"
	ExportFormatYAML = "yaml"
)

var exportContentTypes = map[string]string{
	ExportFormatCSV:  "text/csv",
	ExportFormatJSON: "application/json",
	ExportFormatYAML: "application/x-yaml",
}

var exportHeader = []string{"ID", "Name", "Email", "Phone", "Start Date", "End Date", "Status"}

type guestExportRow struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Email     string `json:"email" yaml:"email"`
	Phone     string `json:"phone" yaml:"phone"`
	StartDate string `json:"start_date" yaml:"start_date"`
	EndDate   string `json:"end_date" yaml:"end_date"`
	Status    string `json:"status" yaml:"status"`
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// GuestExportHandler exports guest records as CSV, JSON or YAML
type GuestExportHandler struct {
	guests interfaces.GuestStorage
	logger arbor.ILogger
	now    func() time.Time
}

// NewGuestExportHandler creates a guest export handler
func NewGuestExportHandler(guests interfaces.GuestStorage, logger arbor.ILogger) *GuestExportHandler {
	return &GuestExportHandler{guests: guests, logger: logger, now: time.Now}
}

// Execute exports the job's guests in the requested format.
// Missing guests are item failures; the export contains the rest.
func (h *GuestExportHandler) Execute(ctx context.Context, job models.BulkJob, tracker bulk.Tracker) (*models.ActionResult, error) {
	format := stringParam(job.Parameters, "format", ExportFormatCSV)
	contentType, ok := exportContentTypes[format]
	if !ok {
		return nil, fmt.Errorf("unsupported export format %q", format)
	}

	rows := make([]guestExportRow, 0, len(job.ItemIDs))
	outcomes, err := bulk.ProcessItems(ctx, job, tracker, func(ctx context.Context, guestID string) error {
		g, err := h.guests.GetGuest(ctx, guestID)
		if err != nil {
			return itemStorageError(err,
				fmt.Sprintf("Guest %s not found", guestID),
				func(err error) error { return fmt.Errorf("Error exporting guest %s: %v", guestID, err) })
		}
		rows = append(rows, guestExportRow{
			ID:        g.ID,
			Name:      g.Name,
			Email:     g.Email,
			Phone:     g.Phone,
			StartDate: formatDate(g.StartDate),
			EndDate:   formatDate(g.EndDate),
			Status:    g.StatusLabel(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	encoded, err := encodeExport(format, rows)
	if err != nil {
		return nil, fmt.Errorf("encode %s export: %w", format, err)
	}

	result := models.NewActionResult(outcomes)
	result.Data = map[string]interface{}{
		format + "_data": encoded,
		"filename":       fmt.Sprintf("guests_export_%s.%s", h.now().UTC().Format("20060102_150405"), format),
		"format":         format,
		"content_type":   contentType,
	}

	h.logger.Debug().
		Str("format", format).
		Int("rows", len(rows)).
		Msg("Guest export generated")

	return result, nil
}

func encodeExport(format string, rows []guestExportRow) (string, error) {
	switch format {
	case ExportFormatJSON:
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	case ExportFormatYAML:
		data, err := yaml.Marshal(rows)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		if err := w.Write(exportHeader); err != nil {
			return "", err
		}
		for _, r := range rows {
			if err := w.Write([]string{r.ID, r.Name, r.Email, r.Phone, r.StartDate, r.EndDate, r.Status}); err != nil {
				return "", err
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return "", err
		}
		return buf.String(), nil
	}
}
