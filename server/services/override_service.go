package services

import (
	"invoiceaudit/database"
	"invoiceaudit/quality"
	"invoiceaudit/reference"
	apperrors "invoiceaudit/server/errors"
)

// OverrideService управление ручными решениями и условиями поставщиков.
// Каждая запись — одиночный идемпотентный upsert по явному действию
// пользователя.
type OverrideService struct {
	store *database.Store
}

// NewOverrideService создает сервис.
func NewOverrideService(store *database.Store) *OverrideService {
	return &OverrideService{store: store}
}

// Upsert сохраняет решение по артикулу.
func (s *OverrideService) Upsert(ov reference.Override) error {
	if ov.Article == "" {
		return apperrors.NewValidationError("артикул обязателен", nil)
	}
	switch ov.Kind {
	case reference.OverrideContract:
		if ov.Value <= 0 || ov.Value >= 100 {
			return apperrors.NewValidationError("контрактная скидка должна быть в (0, 100)", nil)
		}
	case reference.OverridePromo:
		if ov.Value <= 0 {
			return apperrors.NewValidationError("промо-цена должна быть положительной", nil)
		}
	case reference.OverrideIgnore:
	default:
		return apperrors.NewValidationError("неизвестный вид решения: "+string(ov.Kind), nil)
	}

	if err := s.store.UpsertOverride(ov); err != nil {
		return apperrors.NewInternalError("не удалось сохранить решение", err).
			WithContext("UpsertOverride: " + ov.Article)
	}
	return nil
}

// Delete удаляет решение по артикулу.
func (s *OverrideService) Delete(article string) error {
	if article == "" {
		return apperrors.NewValidationError("артикул обязателен", nil)
	}
	if err := s.store.DeleteOverride(article); err != nil {
		return apperrors.NewInternalError("не удалось удалить решение", err)
	}
	return nil
}

// List возвращает все решения.
func (s *OverrideService) List() (reference.Overrides, error) {
	overrides, err := s.store.LoadOverrides()
	if err != nil {
		return nil, apperrors.NewInternalError("не удалось загрузить решения", err)
	}
	return overrides, nil
}

// UpsertSupplierConfig сохраняет условия поставщика. Имя приводится
// к каноническому виду той же таблицей алиасов, что и строки счетов:
// детектор ищет условия по каноническому имени поставщика строки.
func (s *OverrideService) UpsertSupplierConfig(supplier string, cfg quality.SupplierConfig) error {
	if cfg.FreeShippingThreshold < 0 || cfg.MaxFee < 0 {
		return apperrors.NewValidationError("условия поставщика не могут быть отрицательными", nil)
	}
	aliases, err := s.store.LoadAliasTable()
	if err != nil {
		return apperrors.NewInternalError("не удалось загрузить алиасы поставщиков", err)
	}
	canonical := aliases.Canonical(supplier)
	if canonical == "" {
		return apperrors.NewValidationError("имя поставщика обязательно", nil)
	}
	if err := s.store.UpsertSupplierConfig(canonical, cfg); err != nil {
		return apperrors.NewInternalError("не удалось сохранить условия поставщика", err)
	}
	return nil
}

// SupplierConfigs возвращает условия всех поставщиков.
func (s *OverrideService) SupplierConfigs() (map[string]quality.SupplierConfig, error) {
	configs, err := s.store.LoadSupplierConfigs()
	if err != nil {
		return nil, apperrors.NewInternalError("не удалось загрузить условия поставщиков", err)
	}
	return configs, nil
}
