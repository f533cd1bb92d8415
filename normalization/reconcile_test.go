package normalization

import (
	"testing"

	"invoiceaudit/invoice"
)

// TestReconcileLine_QuantityFromRatio количество восстанавливается из
// отношения amount/unit_price, когда заявленное количество искажено
func TestReconcileLine_QuantityFromRatio(t *testing.T) {
	line := invoice.RawLine{
		Quantity:     "3", // Искаженное извлечением количество
		NetUnitPrice: "2.5",
		Amount:       "125.0",
	}

	r := ReconcileLine(line, DefaultOptions())

	if r.Quantity != 50 {
		t.Errorf("Quantity = %d, want 50 (125/2.5 — точное целое отношение)", r.Quantity)
	}
	if r.UnitPrice != 2.5 {
		t.Errorf("UnitPrice = %v, want 2.5", r.UnitPrice)
	}
}

// TestReconcileLine_Per100Divisor эвристика цены "за 100 штук":
// кабель в бухтах с неправдоподобной ценой за единицу
func TestReconcileLine_Per100Divisor(t *testing.T) {
	line := invoice.RawLine{
		Quantity:       "100",
		GrossUnitPrice: "137,37",
		Discount:       "70",
		NetUnitPrice:   "41,21",
		Amount:         "41,21",
	}

	r := ReconcileLine(line, DefaultOptions())

	if r.Divisor != 100 {
		t.Fatalf("Divisor = %d, want 100", r.Divisor)
	}
	if r.Quantity != 100 {
		t.Errorf("Quantity = %d, want 100", r.Quantity)
	}
	if r.UnitPrice != 0.4121 {
		t.Errorf("UnitPrice = %v, want 0.4121", r.UnitPrice)
	}
	if r.GrossUnitPrice != 1.3737 {
		t.Errorf("GrossUnitPrice = %v, want 1.3737", r.GrossUnitPrice)
	}
	if r.DiscountPct != 70 {
		t.Errorf("DiscountPct = %v, want 70", r.DiscountPct)
	}
}

// TestReconcileLine_ExplicitDivisor явный делитель имеет приоритет
// над эвристикой
func TestReconcileLine_ExplicitDivisor(t *testing.T) {
	line := invoice.RawLine{
		Quantity:     "100",
		NetUnitPrice: "54,95",
		Divisor:      100,
		Amount:       "54,95",
	}

	r := ReconcileLine(line, DefaultOptions())

	if r.UnitPrice != 0.5495 {
		t.Errorf("UnitPrice = %v, want 0.5495", r.UnitPrice)
	}
	if r.Quantity != 100 {
		t.Errorf("Quantity = %d, want 100", r.Quantity)
	}
}

// TestReconcileLine_AmountMissing без итога строки запасной вариант —
// скорректированная нетто-цена
func TestReconcileLine_AmountMissing(t *testing.T) {
	line := invoice.RawLine{
		Quantity:     "4",
		NetUnitPrice: "12,30",
	}

	r := ReconcileLine(line, DefaultOptions())

	if r.UnitPrice != 12.3 {
		t.Errorf("UnitPrice = %v, want 12.3 (fallback на нетто-цену)", r.UnitPrice)
	}
	if r.Quantity != 4 {
		t.Errorf("Quantity = %d, want 4", r.Quantity)
	}
}

// TestReconcileLine_ZeroQuantity нулевое количество поднимается до 1
func TestReconcileLine_ZeroQuantity(t *testing.T) {
	line := invoice.RawLine{
		Quantity:    "0",
		Designation: "Frais de gestion",
		Amount:      "25,00",
	}

	r := ReconcileLine(line, DefaultOptions())

	if r.Quantity != 1 {
		t.Errorf("Quantity = %d, want 1", r.Quantity)
	}
	if r.Amount != 25 {
		t.Errorf("Amount = %v, want 25", r.Amount)
	}
}

// TestReconcileLine_Unparsable неразборчивые поля деградируют в нули,
// строка не отбрасывается
func TestReconcileLine_Unparsable(t *testing.T) {
	line := invoice.RawLine{
		Quantity:     "???",
		NetUnitPrice: "n/a",
		Amount:       "--",
	}

	r := ReconcileLine(line, DefaultOptions())

	if r.UnitPrice != 0 || r.Amount != 0 {
		t.Errorf("ожидались нулевые значения, got UnitPrice=%v Amount=%v", r.UnitPrice, r.Amount)
	}
	if r.Quantity != 1 {
		t.Errorf("Quantity = %d, want 1", r.Quantity)
	}
}

// fixedFamilyClassifier тестовая заглушка классификатора
type fixedFamilyClassifier struct{ family invoice.Family }

func (f fixedFamilyClassifier) Classify(_, _ string) invoice.Family { return f.family }

// TestNormalizer_NormalizeRecord сквозная нормализация записи счета
func TestNormalizer_NormalizeRecord(t *testing.T) {
	aliases := invoice.NewAliasTable(map[string]string{"Ste Rexel  France": "REXEL"})
	n := NewNormalizer(DefaultOptions(), aliases, fixedFamilyClassifier{invoice.FamilyStable})

	rec := invoice.InvoiceRecord{
		DocumentID:    "doc-1",
		Supplier:      "STE REXEL FRANCE",
		Date:          "2023-04-12",
		InvoiceNumber: "F-100",
		Lines: []invoice.RawLine{
			{Quantity: "10", Article: "52041", Designation: "Cable U1000 R2V", NetUnitPrice: "1,20", Amount: "12,00"},
			{Quantity: "1", Designation: "Frais de facturation minimum", Amount: "4,50"},
		},
	}

	lines := n.NormalizeRecord(rec)

	if len(lines) != 2 {
		t.Fatalf("len(lines) = %d, want 2", len(lines))
	}
	if lines[0].Supplier != "REXEL" {
		t.Errorf("Supplier = %q, want REXEL (канонизация алиасов)", lines[0].Supplier)
	}
	if lines[0].UnitPrice != 1.2 {
		t.Errorf("UnitPrice = %v, want 1.2", lines[0].UnitPrice)
	}
	if lines[1].Article == "" {
		t.Error("пустой артикул должен заменяться усеченным наименованием")
	}
	if lines[1].Article != "FRAIS DE FACTURATION MIN" {
		t.Errorf("Article = %q, want усеченное до 24 символов наименование", lines[1].Article)
	}
	if lines[0].Date.IsZero() {
		t.Error("дата счета должна разбираться")
	}
}
