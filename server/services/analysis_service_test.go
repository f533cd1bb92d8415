package services

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoiceaudit/classification"
	"invoiceaudit/database"
	"invoiceaudit/invoice"
	"invoiceaudit/normalization"
	"invoiceaudit/quality"
	"invoiceaudit/reference"
)

func setupServiceStore(t *testing.T) *database.Store {
	t.Helper()

	store, err := database.NewStore(filepath.Join(t.TempDir(), "audit_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newAnalysisService(store *database.Store) *AnalysisService {
	return NewAnalysisService(
		store,
		normalization.DefaultOptions(),
		reference.DefaultConfig(),
		quality.DefaultConfig(),
		classification.DefaultKeywords(),
	)
}

// cableInvoice счет с одной строкой кабеля 52041 в ценах "за 100 штук".
func cableInvoice(number, date, discount, netPer100 string) invoice.InvoiceRecord {
	return invoice.InvoiceRecord{
		Supplier:      "REXEL",
		Date:          date,
		InvoiceNumber: number,
		Lines: []invoice.RawLine{
			{
				Quantity:       "100",
				Article:        "52041",
				Designation:    "Cable U1000 R2V 3G2.5",
				GrossUnitPrice: "137,37",
				Discount:       discount,
				NetUnitPrice:   netPer100,
				Amount:         netPer100,
			},
		},
	}
}

// TestAnalysisService_EndToEnd полный прогон: два счета по кабелю 52041,
// скидка упала с 70% до 60%
func TestAnalysisService_EndToEnd(t *testing.T) {
	store := setupServiceStore(t)

	require.NoError(t, store.SaveDocument("doc-a", "a.pdf", cableInvoice("A-100", "2023-01-10", "70", "41,21"), ""))
	require.NoError(t, store.SaveDocument("doc-b", "b.pdf", cableInvoice("B-200", "2023-03-05", "60", "54,95"), ""))

	result, err := newAnalysisService(store).Run(Filter{})
	require.NoError(t, err)

	require.Len(t, result.Lines, 2)
	for _, line := range result.Lines {
		assert.Equal(t, invoice.FamilyCommodity, line.Family)
		assert.Equal(t, 100, line.Quantity, "цена за 100 штук должна распознаваться")
	}

	ref, ok := result.References["52041"]
	require.True(t, ok, "референс по 52041 должен построиться")
	assert.Equal(t, 0.4121, ref.BestPrice)
	assert.Equal(t, 70.0, ref.BestDiscount)
	assert.Equal(t, "A-100", ref.BestPriceInvoice)

	require.Len(t, result.Anomalies, 1)
	a := result.Anomalies[0]
	assert.Equal(t, "B-200", a.InvoiceNumber)
	assert.InDelta(t, 13.74, a.Loss, 0.001)
	assert.Contains(t, a.Motif, "60.0%")
	assert.Contains(t, a.Motif, "70.0%")

	assert.InDelta(t, 13.74, result.Report.TotalLoss, 0.001)
	require.Len(t, result.Report.Suppliers, 1)
	assert.Equal(t, "REXEL", result.Report.Suppliers[0].Supplier)
}

// TestAnalysisService_IgnoreOverride IGNORE подавляет аномалии артикула
// на уровне всего прогона
func TestAnalysisService_IgnoreOverride(t *testing.T) {
	store := setupServiceStore(t)

	require.NoError(t, store.SaveDocument("doc-a", "a.pdf", cableInvoice("A-100", "2023-01-10", "70", "41,21"), ""))
	require.NoError(t, store.SaveDocument("doc-b", "b.pdf", cableInvoice("B-200", "2023-03-05", "60", "54,95"), ""))
	require.NoError(t, store.UpsertOverride(reference.Override{Article: "52041", Kind: reference.OverrideIgnore}))

	result, err := newAnalysisService(store).Run(Filter{})
	require.NoError(t, err)

	assert.Empty(t, result.Anomalies)
	assert.Equal(t, "аномалии не обнаружены", result.Report.Message)
}

// TestAnalysisService_AliasCanonicalization разные написания поставщика
// сводятся в одну историю цен
func TestAnalysisService_AliasCanonicalization(t *testing.T) {
	store := setupServiceStore(t)

	first := cableInvoice("A-100", "2023-01-10", "70", "41,21")
	first.Supplier = "Ste Rexel France"
	second := cableInvoice("B-200", "2023-03-05", "60", "54,95")
	second.Supplier = "REXEL SAS"

	require.NoError(t, store.SaveDocument("doc-a", "a.pdf", first, ""))
	require.NoError(t, store.SaveDocument("doc-b", "b.pdf", second, ""))
	require.NoError(t, store.UpsertSupplierAlias("Ste Rexel France", "REXEL"))
	require.NoError(t, store.UpsertSupplierAlias("Rexel SAS", "REXEL"))

	result, err := newAnalysisService(store).Run(Filter{})
	require.NoError(t, err)

	// Обе строки под каноническим именем: референс общий, аномалия видна.
	require.Len(t, result.Report.Suppliers, 1)
	assert.Equal(t, "REXEL", result.Report.Suppliers[0].Supplier)
	require.Len(t, result.Anomalies, 1)
}

// TestAnalysisService_Filter фильтры по поставщику и году
func TestAnalysisService_Filter(t *testing.T) {
	store := setupServiceStore(t)

	rexel := cableInvoice("A-100", "2023-01-10", "70", "41,21")
	sonepar := cableInvoice("S-100", "2022-06-01", "50", "60,00")
	sonepar.Supplier = "SONEPAR"
	sonepar.Lines[0].Article = "77001"

	require.NoError(t, store.SaveDocument("doc-a", "a.pdf", rexel, ""))
	require.NoError(t, store.SaveDocument("doc-s", "s.pdf", sonepar, ""))

	svc := newAnalysisService(store)

	bySupplier, err := svc.Run(Filter{Supplier: "SONEPAR"})
	require.NoError(t, err)
	require.Len(t, bySupplier.Lines, 1)
	assert.Equal(t, "SONEPAR", bySupplier.Lines[0].Supplier)

	byYear, err := svc.Run(Filter{Year: 2023})
	require.NoError(t, err)
	require.Len(t, byYear.Lines, 1)
	assert.Equal(t, "REXEL", byYear.Lines[0].Supplier)
}

// TestAnalysisService_BulkGeneratedData прогон на объемном
// сгенерированном наборе не ломается и дает согласованные сводки
func TestAnalysisService_BulkGeneratedData(t *testing.T) {
	store := setupServiceStore(t)
	faker := gofakeit.New(42)

	for i := 0; i < 40; i++ {
		supplier := faker.RandomString([]string{"REXEL", "SONEPAR", "CGED"})
		rec := invoice.InvoiceRecord{
			Supplier:      supplier,
			Date:          fmt.Sprintf("202%d-0%d-15", faker.Number(2, 3), faker.Number(1, 9)),
			InvoiceNumber: fmt.Sprintf("F-%05d", i),
		}
		for l := 0; l < faker.Number(1, 5); l++ {
			price := faker.Price(0.5, 50)
			qty := faker.Number(1, 20)
			rec.Lines = append(rec.Lines, invoice.RawLine{
				Quantity:     fmt.Sprintf("%d", qty),
				Article:      fmt.Sprintf("ART%05d", faker.Number(1, 30)),
				Designation:  faker.ProductName(),
				Discount:     fmt.Sprintf("%d", faker.Number(0, 70)),
				NetUnitPrice: fmt.Sprintf("%.2f", price),
				Amount:       fmt.Sprintf("%.2f", price*float64(qty)),
			})
		}
		require.NoError(t, store.SaveDocument(fmt.Sprintf("doc-%05d", i), fmt.Sprintf("f%d.pdf", i), rec, ""))
	}

	result, err := newAnalysisService(store).Run(Filter{})
	require.NoError(t, err)
	require.NotEmpty(t, result.Lines)

	var supplierLoss float64
	for _, s := range result.Report.Suppliers {
		supplierLoss += s.TotalLoss
	}
	assert.InDelta(t, result.Report.TotalLoss, supplierLoss, 0.05,
		"сводка по поставщикам должна сходиться с общим итогом")

	var anomalyLoss float64
	for _, a := range result.Anomalies {
		anomalyLoss += a.Loss
	}
	assert.InDelta(t, result.Report.TotalLoss, anomalyLoss, 0.05)
}
