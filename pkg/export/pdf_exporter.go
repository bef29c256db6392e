package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// SummaryItem is a labelled value shown above report tables.
type SummaryItem struct {
	Label string
	Value string
}

// Section is one titled table inside a report.
type Section struct {
	Title string
	Data  Dataset
}

// Report is the renderer-facing shape of a statistics report: a title, a
// summary block and any number of tabular sections.
type Report struct {
	Title    string
	Summary  []SummaryItem
	Sections []Section
}

// PDFExporter renders reports into a simple tabular PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document from the report context.
func (e *PDFExporter) Render(report Report) ([]byte, error) {
	if report.Title == "" && len(report.Sections) == 0 {
		return nil, fmt.Errorf("pdf requires a title or at least one section")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if report.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, report.Title, "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	if len(report.Summary) > 0 {
		pdf.SetFont("Arial", "", 10)
		for _, item := range report.Summary {
			pdf.CellFormat(60, 6, item.Label, "", 0, "", false, 0, "")
			pdf.CellFormat(0, 6, item.Value, "", 1, "", false, 0, "")
		}
		pdf.Ln(4)
	}

	for _, section := range report.Sections {
		if err := e.renderSection(pdf, section); err != nil {
			return nil, err
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) renderSection(pdf *gofpdf.Fpdf, section Section) error {
	if len(section.Data.Headers) == 0 {
		return fmt.Errorf("pdf section %q requires at least one header", section.Title)
	}

	if section.Title != "" {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 8, section.Title, "", 1, "", false, 0, "")
	}

	pdf.SetFont("Arial", "B", 10)
	colWidth := 190.0 / float64(len(section.Data.Headers))
	for _, header := range section.Data.Headers {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range section.Data.Rows {
		for _, header := range section.Data.Headers {
			pdf.CellFormat(colWidth, 7, row[header], "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
	return nil
}
