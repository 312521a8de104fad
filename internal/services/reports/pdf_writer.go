package reports

import (
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var headingSizes = map[int]float64{1: 16, 2: 13, 3: 11}

// pdfWriter walks a goldmark AST and draws it with fpdf core fonts
type pdfWriter struct {
	pdf       *fpdf.Fpdf
	source    []byte
	translate func(string) string
	bold      bool
	italic    bool
	size      float64
	listDepth int
}

func (w *pdfWriter) render(doc ast.Node) error {
	w.size = bodySize
	return ast.Walk(doc, w.walk)
}

func (w *pdfWriter) applyFont() {
	style := ""
	if w.bold {
		style += "B"
	}
	if w.italic {
		style += "I"
	}
	w.pdf.SetFont(bodyFont, style, w.size)
}

func (w *pdfWriter) write(s string) {
	w.pdf.Write(lineHeight, w.translate(s))
}

func (w *pdfWriter) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if entering {
			w.pdf.Ln(3)
			w.size = headingSizes[node.Level]
			if w.size == 0 {
				w.size = bodySize
			}
			w.bold = true
		} else {
			w.bold = false
			w.size = bodySize
			w.pdf.Ln(lineHeight + 2)
		}
		w.applyFont()

	case *ast.Paragraph:
		if !entering && w.listDepth == 0 {
			w.pdf.Ln(lineHeight + 1)
		}

	case *ast.TextBlock:
		// Tight list items hold their text in a TextBlock

	case *ast.Text:
		if entering {
			w.write(string(node.Segment.Value(w.source)))
			if node.SoftLineBreak() {
				w.write(" ")
			}
			if node.HardLineBreak() {
				w.pdf.Ln(lineHeight)
			}
		}

	case *ast.String:
		if entering {
			w.write(string(node.Value))
		}

	case *ast.Emphasis:
		if node.Level >= 2 {
			w.bold = entering
		} else {
			w.italic = entering
		}
		w.applyFont()

	case *ast.CodeSpan:
		if entering {
			w.pdf.SetFont("Courier", "", w.size)
			w.write(string(node.Text(w.source)))
			w.applyFont()
		}
		return ast.WalkSkipChildren, nil

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		if entering {
			w.codeBlock(n.Lines())
		}
		return ast.WalkSkipChildren, nil

	case *ast.List:
		if entering {
			w.listDepth++
		} else {
			w.listDepth--
			if w.listDepth == 0 {
				w.pdf.Ln(lineHeight)
			}
		}

	case *ast.ListItem:
		if entering {
			if w.pdf.GetX() > pageMargin+0.1 {
				w.pdf.Ln(lineHeight)
			}
			w.pdf.SetX(pageMargin + float64(w.listDepth)*4)
			w.write("- ")
		}

	case *ast.ThematicBreak:
		if entering {
			w.pdf.Ln(2)
			y := w.pdf.GetY()
			w.pdf.Line(pageMargin, y, pageMargin+contentWidth, y)
			w.pdf.Ln(2)
		}

	case *extast.Table:
		if entering {
			w.table(node)
		}
		return ast.WalkSkipChildren, nil
	}

	return ast.WalkContinue, nil
}

func (w *pdfWriter) codeBlock(lines *text.Segments) {
	w.pdf.SetFont("Courier", "", bodySize-1)
	w.pdf.SetFillColor(242, 242, 242)
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		txt := strings.TrimRight(string(line.Value(w.source)), "\n")
		w.pdf.MultiCell(0, lineHeight, w.translate(txt), "", "L", true)
	}
	w.pdf.SetFillColor(255, 255, 255)
	w.applyFont()
	w.pdf.Ln(2)
}

// table draws rows with equal column widths. The header row is shaded.
func (w *pdfWriter) table(t *extast.Table) {
	var rows [][]string
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, string(cell.Text(w.source)))
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	colWidth := contentWidth / float64(len(rows[0]))
	w.pdf.Ln(2)
	for i, cells := range rows {
		if i == 0 {
			w.pdf.SetFont(bodyFont, "B", bodySize-1)
			w.pdf.SetFillColor(225, 225, 225)
		} else {
			w.pdf.SetFont(bodyFont, "", bodySize-1)
			w.pdf.SetFillColor(255, 255, 255)
		}
		for j := range rows[0] {
			value := ""
			if j < len(cells) {
				value = cells[j]
			}
			w.pdf.CellFormat(colWidth, lineHeight+1, w.translate(value), "1", 0, "L", i == 0, 0, "")
		}
		w.pdf.Ln(-1)
	}
	w.applyFont()
	w.pdf.Ln(2)
}
