package reporting

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"invoiceaudit/quality"
)

// ExportFormat формат экспорта
type ExportFormat string

const (
	FormatJSON  ExportFormat = "json"
	FormatCSV   ExportFormat = "csv"
	FormatExcel ExportFormat = "excel"
)

// Exporter экспорт аномалий и сводок для выгрузки в бухгалтерию
// и для переписки с поставщиками.
type Exporter struct{}

// NewExporter создает экспортер.
func NewExporter() *Exporter {
	return &Exporter{}
}

// Export пишет аномалии и сводный отчет в заданном формате.
func (e *Exporter) Export(w io.Writer, format ExportFormat, anomalies []quality.Anomaly, report quality.Report) error {
	switch format {
	case FormatJSON:
		return e.exportJSON(w, anomalies, report)
	case FormatCSV:
		return e.exportCSV(w, anomalies)
	case FormatExcel:
		return e.exportExcel(w, anomalies, report)
	default:
		return fmt.Errorf("unknown export format: %q", format)
	}
}

func (e *Exporter) exportJSON(w io.Writer, anomalies []quality.Anomaly, report quality.Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	result := map[string]interface{}{
		"exported_at": time.Now().Format(time.RFC3339),
		"total":       len(anomalies),
		"anomalies":   anomalies,
		"report":      report,
	}

	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

var anomalyHeaders = []string{
	"Supplier", "Article", "Designation", "Invoice", "Date", "Family",
	"Quantity", "Unit Price", "Target Price", "Loss", "Motif", "Detail",
	"Reference Invoice", "Reference Date",
}

func anomalyRow(a quality.Anomaly) []string {
	return []string{
		a.Supplier,
		a.Article,
		a.Designation,
		a.InvoiceNumber,
		formatDate(a.Date),
		string(a.Family),
		strconv.Itoa(a.Quantity),
		strconv.FormatFloat(a.UnitPrice, 'f', 4, 64),
		strconv.FormatFloat(a.TargetPrice, 'f', 4, 64),
		strconv.FormatFloat(a.Loss, 'f', 2, 64),
		a.Motif,
		a.Detail,
		a.ReferenceInvoice,
		formatDate(a.ReferenceDate),
	}
}

func (e *Exporter) exportCSV(w io.Writer, anomalies []quality.Anomaly) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(anomalyHeaders); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, a := range anomalies {
		if err := writer.Write(anomalyRow(a)); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	return nil
}

func (e *Exporter) exportExcel(w io.Writer, anomalies []quality.Anomaly, report quality.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	// Лист аномалий
	anomalySheet := "Anomalies"
	index, err := f.NewSheet(anomalySheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	for i, header := range anomalyHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(anomalySheet, cell, header)
		f.SetCellStyle(anomalySheet, cell, cell, headerStyle)
	}
	for rowIdx, a := range anomalies {
		row := rowIdx + 2
		f.SetCellValue(anomalySheet, fmt.Sprintf("A%d", row), a.Supplier)
		f.SetCellValue(anomalySheet, fmt.Sprintf("B%d", row), a.Article)
		f.SetCellValue(anomalySheet, fmt.Sprintf("C%d", row), a.Designation)
		f.SetCellValue(anomalySheet, fmt.Sprintf("D%d", row), a.InvoiceNumber)
		f.SetCellValue(anomalySheet, fmt.Sprintf("E%d", row), formatDate(a.Date))
		f.SetCellValue(anomalySheet, fmt.Sprintf("F%d", row), string(a.Family))
		f.SetCellValue(anomalySheet, fmt.Sprintf("G%d", row), a.Quantity)
		f.SetCellValue(anomalySheet, fmt.Sprintf("H%d", row), a.UnitPrice)
		f.SetCellValue(anomalySheet, fmt.Sprintf("I%d", row), a.TargetPrice)
		f.SetCellValue(anomalySheet, fmt.Sprintf("J%d", row), a.Loss)
		f.SetCellValue(anomalySheet, fmt.Sprintf("K%d", row), a.Motif)
		f.SetCellValue(anomalySheet, fmt.Sprintf("L%d", row), a.Detail)
		f.SetCellValue(anomalySheet, fmt.Sprintf("M%d", row), a.ReferenceInvoice)
		f.SetCellValue(anomalySheet, fmt.Sprintf("N%d", row), formatDate(a.ReferenceDate))
	}
	for i := range anomalyHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(anomalySheet, col, col, 15)
	}

	// Лист сводки по поставщикам
	summarySheet := "Suppliers"
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	summaryHeaders := []string{"Supplier", "Anomalies", "Loss", "Spend", "Loss Ratio"}
	for i, header := range summaryHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(summarySheet, cell, header)
		f.SetCellStyle(summarySheet, cell, cell, headerStyle)
	}
	for rowIdx, s := range report.Suppliers {
		row := rowIdx + 2
		f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), s.Supplier)
		f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), s.AnomalyCount)
		f.SetCellValue(summarySheet, fmt.Sprintf("C%d", row), s.TotalLoss)
		f.SetCellValue(summarySheet, fmt.Sprintf("D%d", row), s.Spend)
		f.SetCellValue(summarySheet, fmt.Sprintf("E%d", row), s.LossRatio)
	}

	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}

func formatDate(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Format("2006-01-02")
}
