package reporting

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"invoiceaudit/invoice"
	"invoiceaudit/quality"
)

func sampleAnomalies() []quality.Anomaly {
	return []quality.Anomaly{
		{
			Supplier:      "REXEL",
			Article:       "52041",
			Designation:   "Cable U1000 R2V",
			InvoiceNumber: "B-200",
			Date:          time.Date(2023, 3, 5, 0, 0, 0, 0, time.UTC),
			Family:        invoice.FamilyCommodity,
			Quantity:      100,
			UnitPrice:     0.5495,
			TargetPrice:   0.4121,
			Loss:          13.74,
			Motif:         "скидка 60.0% ниже референсной 70.0%",
		},
	}
}

func sampleReport() quality.Report {
	return quality.Report{
		TotalLoss: 13.74,
		Suppliers: []quality.SupplierSummary{
			{Supplier: "REXEL", AnomalyCount: 1, TotalLoss: 13.74, Spend: 96.16, LossRatio: 0.1429},
		},
	}
}

// TestExport_JSON JSON-выгрузка несет аномалии и сводку
func TestExport_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := NewExporter().Export(&buf, FormatJSON, sampleAnomalies(), sampleReport()); err != nil {
		t.Fatalf("Export: %v", err)
	}

	var payload struct {
		Total     int               `json:"total"`
		Anomalies []quality.Anomaly `json:"anomalies"`
		Report    quality.Report    `json:"report"`
	}
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("выгрузка не является валидным JSON: %v", err)
	}
	if payload.Total != 1 || len(payload.Anomalies) != 1 {
		t.Errorf("total = %d, anomalies = %d", payload.Total, len(payload.Anomalies))
	}
	if payload.Anomalies[0].Loss != 13.74 || payload.Report.TotalLoss != 13.74 {
		t.Errorf("потери исказились: %+v", payload)
	}
}

// TestExport_CSV CSV-выгрузка: заголовок и строки аномалий
func TestExport_CSV(t *testing.T) {
	var buf bytes.Buffer
	if err := NewExporter().Export(&buf, FormatCSV, sampleAnomalies(), sampleReport()); err != nil {
		t.Fatalf("Export: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("выгрузка не является валидным CSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want заголовок + 1 строка", len(rows))
	}
	if rows[0][0] != "Supplier" || len(rows[0]) != len(rows[1]) {
		t.Errorf("заголовок = %v", rows[0])
	}
	if rows[1][0] != "REXEL" || rows[1][1] != "52041" || rows[1][9] != "13.74" {
		t.Errorf("строка аномалии = %v", rows[1])
	}
}

// TestExport_Excel Excel-выгрузка: листы аномалий и сводки читаются назад
func TestExport_Excel(t *testing.T) {
	var buf bytes.Buffer
	if err := NewExporter().Export(&buf, FormatExcel, sampleAnomalies(), sampleReport()); err != nil {
		t.Fatalf("Export: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("выгрузка не является валидным XLSX: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 {
		t.Fatalf("листы = %v, want Anomalies и Suppliers", sheets)
	}

	article, err := f.GetCellValue("Anomalies", "B2")
	if err != nil || article != "52041" {
		t.Errorf("Anomalies!B2 = %q, %v", article, err)
	}
	supplier, err := f.GetCellValue("Suppliers", "A2")
	if err != nil || supplier != "REXEL" {
		t.Errorf("Suppliers!A2 = %q, %v", supplier, err)
	}
}

// TestExport_UnknownFormat неизвестный формат — ошибка
func TestExport_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := NewExporter().Export(&buf, "pdf", nil, quality.Report{})
	if err == nil || !strings.Contains(err.Error(), "unknown export format") {
		t.Errorf("err = %v", err)
	}
}

// TestExport_EmptyAnomalies пустой набор выгружается без ошибок
func TestExport_EmptyAnomalies(t *testing.T) {
	for _, format := range []ExportFormat{FormatJSON, FormatCSV, FormatExcel} {
		var buf bytes.Buffer
		if err := NewExporter().Export(&buf, format, nil, quality.Report{Message: "аномалии не обнаружены"}); err != nil {
			t.Errorf("Export(%s) на пустом наборе: %v", format, err)
		}
		if buf.Len() == 0 {
			t.Errorf("Export(%s) не записал ничего", format)
		}
	}
}
