package reports

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bulkops/internal/interfaces"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Page layout in millimetres (A4 portrait)
const (
	pageMargin   = 12.0
	contentWidth = 210.0 - 2*pageMargin
	bodyFont     = "Arial"
	bodySize     = 10.0
	lineHeight   = 5.0
)

// Service renders markdown reports as PDF or HTML
type Service struct {
	markdown goldmark.Markdown
	logger   arbor.ILogger
}

var _ interfaces.ReportRenderer = (*Service)(nil)

// NewService creates a new report rendering service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		markdown: goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough)),
		logger:   logger,
	}
}

// MarkdownToHTML converts markdown to an HTML fragment
func (s *Service) MarkdownToHTML(markdown string) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(markdown), &buf); err != nil {
		return nil, fmt.Errorf("failed to render html: %w", err)
	}
	return buf.Bytes(), nil
}

// MarkdownToPDF converts markdown to a PDF document. title is stored as document metadata.
func (s *Service) MarkdownToPDF(markdown, title string) ([]byte, error) {
	s.logger.Debug().
		Int("markdown_len", len(markdown)).
		Str("title", title).
		Msg("Rendering markdown report to PDF")

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("bulkops", true)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-pageMargin)
		pdf.SetFont(bodyFont, "I", 8)
		pdf.CellFormat(0, 6, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()
	pdf.SetFont(bodyFont, "", bodySize)

	source := []byte(markdown)
	doc := s.markdown.Parser().Parse(text.NewReader(source))

	w := &pdfWriter{
		pdf:       pdf,
		source:    source,
		translate: pdf.UnicodeTranslatorFromDescriptor(""),
	}
	if err := w.render(doc); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}

	s.logger.Debug().Int("pdf_size", buf.Len()).Msg("PDF report rendered")
	return buf.Bytes(), nil
}
