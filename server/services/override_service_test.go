package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoiceaudit/invoice"
	"invoiceaudit/quality"
	"invoiceaudit/reference"
	apperrors "invoiceaudit/server/errors"
)

// TestOverrideService_UpsertValidation проверка границ значений решений
func TestOverrideService_UpsertValidation(t *testing.T) {
	svc := NewOverrideService(setupServiceStore(t))

	cases := []struct {
		name string
		ov   reference.Override
	}{
		{"пустой артикул", reference.Override{Kind: reference.OverrideIgnore}},
		{"контракт 0%", reference.Override{Article: "A", Kind: reference.OverrideContract, Value: 0}},
		{"контракт 100%", reference.Override{Article: "A", Kind: reference.OverrideContract, Value: 100}},
		{"промо без цены", reference.Override{Article: "A", Kind: reference.OverridePromo, Value: 0}},
		{"неизвестный вид", reference.Override{Article: "A", Kind: "BOGUS"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Upsert(tc.ov)
			require.Error(t, err)

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, 400, appErr.Code)
		})
	}
}

// TestOverrideService_Lifecycle запись, чтение и удаление решений
func TestOverrideService_Lifecycle(t *testing.T) {
	svc := NewOverrideService(setupServiceStore(t))

	require.NoError(t, svc.Upsert(reference.Override{Article: "52041", Kind: reference.OverrideContract, Value: 70, Comment: "accord cadre"}))
	require.NoError(t, svc.Upsert(reference.Override{Article: "77001", Kind: reference.OverridePromo, Value: 0.35}))
	require.NoError(t, svc.Upsert(reference.Override{Article: "88001", Kind: reference.OverrideIgnore}))

	overrides, err := svc.List()
	require.NoError(t, err)
	assert.Len(t, overrides, 3)

	contract, ok := overrides.Contract("52041")
	require.True(t, ok)
	assert.Equal(t, 70.0, contract.Value)
	assert.False(t, contract.CreatedAt.IsZero(), "дата решения проставляется при записи")

	require.NoError(t, svc.Delete("52041"))
	overrides, err = svc.List()
	require.NoError(t, err)
	assert.Len(t, overrides, 2)

	err = svc.Delete("")
	require.Error(t, err)
}

// TestOverrideService_SupplierConfigs условия поставщиков
func TestOverrideService_SupplierConfigs(t *testing.T) {
	svc := NewOverrideService(setupServiceStore(t))

	require.NoError(t, svc.UpsertSupplierConfig("REXEL", quality.SupplierConfig{FreeShippingThreshold: 300, MaxFee: 10}))

	err := svc.UpsertSupplierConfig("REXEL", quality.SupplierConfig{FreeShippingThreshold: -1})
	require.Error(t, err, "отрицательные условия отклоняются")

	err = svc.UpsertSupplierConfig("", quality.SupplierConfig{})
	require.Error(t, err)

	configs, err := svc.SupplierConfigs()
	require.NoError(t, err)
	assert.Equal(t, quality.SupplierConfig{FreeShippingThreshold: 300, MaxFee: 10}, configs["REXEL"])
}

// TestOverrideService_SupplierConfigCanonicalKey условия пишутся под
// каноническим именем: детектор ищет их по имени из нормализованных строк
func TestOverrideService_SupplierConfigCanonicalKey(t *testing.T) {
	store := setupServiceStore(t)
	svc := NewOverrideService(store)

	require.NoError(t, store.UpsertSupplierAlias("Rexel SAS", "REXEL"))

	require.NoError(t, svc.UpsertSupplierConfig("Rexel SAS", quality.SupplierConfig{FreeShippingThreshold: 300, MaxFee: 10}))
	require.NoError(t, svc.UpsertSupplierConfig("Sonepar", quality.SupplierConfig{FreeShippingThreshold: 400}))

	configs, err := svc.SupplierConfigs()
	require.NoError(t, err)
	assert.Equal(t, quality.SupplierConfig{FreeShippingThreshold: 300, MaxFee: 10}, configs["REXEL"])
	assert.Equal(t, quality.SupplierConfig{FreeShippingThreshold: 400}, configs["SONEPAR"])
	assert.NotContains(t, configs, "Rexel SAS")
	assert.NotContains(t, configs, "Sonepar")

	// Порог 300 не достигнут на счете в 200€: платная доставка законна,
	// условия из записи под смешанным регистром должны сработать.
	shipping := invoice.NormalizedLine{
		Supplier:      "REXEL",
		InvoiceNumber: "S-1",
		Date:          time.Date(2023, 3, 5, 0, 0, 0, 0, time.UTC),
		Designation:   "Frais de port",
		Quantity:      1,
		UnitPrice:     15,
		Amount:        15,
		Family:        invoice.FamilyShippingFee,
	}
	product := invoice.NormalizedLine{
		Supplier:      "REXEL",
		InvoiceNumber: "S-1",
		Date:          shipping.Date,
		Article:       "52041",
		Designation:   "Cable U1000 R2V",
		Quantity:      100,
		UnitPrice:     2,
		Amount:        200,
		Family:        invoice.FamilyCommodity,
	}

	anomalies := quality.NewDetector(quality.DefaultConfig()).DetectAll(
		[]invoice.NormalizedLine{product, shipping}, nil, nil, configs)
	assert.Empty(t, anomalies, "доставка ниже порога бесплатной не аномальна")
}

// TestDocumentService_IngestWithoutClient загрузка без настроенного
// извлечения — ошибка валидации, а не паника
func TestDocumentService_IngestWithoutClient(t *testing.T) {
	svc := NewDocumentService(setupServiceStore(t), nil)

	_, err := svc.Ingest(context.Background(), "facture.pdf", []byte("pdf bytes"), false)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.Code)
}

// TestDocumentService_IngestEmptyFile пустой файл отклоняется
func TestDocumentService_IngestEmptyFile(t *testing.T) {
	svc := NewDocumentService(setupServiceStore(t), nil)

	_, err := svc.Ingest(context.Background(), "facture.pdf", nil, false)
	require.Error(t, err)
}

// TestDocumentService_GetNotFound отсутствующий документ — 404
func TestDocumentService_GetNotFound(t *testing.T) {
	svc := NewDocumentService(setupServiceStore(t), nil)

	_, err := svc.Get("missing")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.Code)
	assert.Equal(t, "GetDocument: missing", appErr.GetContext(), "контекст для логов несет идентификатор")
}
