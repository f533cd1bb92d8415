package services

import (
	"time"

	"invoiceaudit/classification"
	"invoiceaudit/database"
	"invoiceaudit/invoice"
	"invoiceaudit/normalization"
	"invoiceaudit/quality"
	"invoiceaudit/reference"
	apperrors "invoiceaudit/server/errors"
)

// AnalysisService полный пересчет аудита по текущему снимку данных.
//
// Движок принципиально не хранит производное состояние: нормализованные
// строки, референсная таблица и аномалии — чистые функции от (снимок
// счетов, решения, условия поставщиков). Каждый вызов Run пересчитывает
// все с нуля; новые счета и решения задним числом меняют референсы.
type AnalysisService struct {
	store      *database.Store
	normalizer normalization.Options
	refCfg     reference.Config
	detCfg     quality.Config
	keywords   classification.Keywords
	now        func() time.Time
}

// NewAnalysisService создает сервис анализа.
func NewAnalysisService(
	store *database.Store,
	normOpts normalization.Options,
	refCfg reference.Config,
	detCfg quality.Config,
	keywords classification.Keywords,
) *AnalysisService {
	return &AnalysisService{
		store:      store,
		normalizer: normOpts,
		refCfg:     refCfg,
		detCfg:     detCfg,
		keywords:   keywords,
		now:        time.Now,
	}
}

// Filter фильтр результатов анализа для представлений.
type Filter struct {
	Supplier string
	Year     int
}

// Result результат одного прогона анализа.
type Result struct {
	Lines      []invoice.NormalizedLine   `json:"lines"`
	References map[string]reference.Entry `json:"references"`
	Anomalies  []quality.Anomaly          `json:"anomalies"`
	Report     quality.Report             `json:"report"`
}

// Run выполняет полный прогон: снимок счетов → нормализация →
// классификация → референсы → аномалии → сводки.
func (s *AnalysisService) Run(filter Filter) (*Result, error) {
	records, err := s.store.AllRecords()
	if err != nil {
		return nil, apperrors.NewInternalError("не удалось загрузить счета", err)
	}
	overrides, err := s.store.LoadOverrides()
	if err != nil {
		return nil, apperrors.NewInternalError("не удалось загрузить решения", err)
	}
	supplierConfigs, err := s.store.LoadSupplierConfigs()
	if err != nil {
		return nil, apperrors.NewInternalError("не удалось загрузить условия поставщиков", err)
	}
	aliases, err := s.store.LoadAliasTable()
	if err != nil {
		return nil, apperrors.NewInternalError("не удалось загрузить алиасы поставщиков", err)
	}

	classifier := classification.NewClassifier(s.keywords)
	normalizer := normalization.NewNormalizer(s.normalizer, aliases, classifier)
	lines := normalizer.NormalizeAll(records)

	refs := reference.NewEngine(s.refCfg).Build(lines, overrides, s.now())
	anomalies := quality.NewDetector(s.detCfg).DetectAll(lines, refs, overrides, supplierConfigs)

	lines = applyLineFilter(lines, filter)
	anomalies = applyAnomalyFilter(anomalies, filter)

	return &Result{
		Lines:      lines,
		References: refs,
		Anomalies:  anomalies,
		Report:     quality.Summarize(anomalies, lines),
	}, nil
}

func applyLineFilter(lines []invoice.NormalizedLine, filter Filter) []invoice.NormalizedLine {
	if filter.Supplier == "" && filter.Year == 0 {
		return lines
	}
	kept := make([]invoice.NormalizedLine, 0, len(lines))
	for _, line := range lines {
		if filter.Supplier != "" && line.Supplier != filter.Supplier {
			continue
		}
		if filter.Year != 0 && line.Year() != filter.Year {
			continue
		}
		kept = append(kept, line)
	}
	return kept
}

func applyAnomalyFilter(anomalies []quality.Anomaly, filter Filter) []quality.Anomaly {
	if filter.Supplier == "" && filter.Year == 0 {
		return anomalies
	}
	kept := make([]quality.Anomaly, 0, len(anomalies))
	for _, a := range anomalies {
		if filter.Supplier != "" && a.Supplier != filter.Supplier {
			continue
		}
		if filter.Year != 0 && a.Date.Year() != filter.Year {
			continue
		}
		kept = append(kept, a)
	}
	return kept
}
