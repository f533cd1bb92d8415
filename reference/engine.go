package reference

import (
	"sort"
	"time"

	"invoiceaudit/invoice"
	"invoiceaudit/normalization"
)

// Config пороги движка референсных цен. Константы эвристические
// (см. допуски по биржевым товарам), поэтому конфигурируемые.
type Config struct {
	// CommodityTolerance допуск цены для биржевых товаров (доля, 0.30 = ±30%).
	CommodityTolerance float64 `json:"commodity_tolerance"`
	// StableTolerance допуск цены для стабильных товаров.
	StableTolerance float64 `json:"stable_tolerance"`
	// StaleMonths месяцы без повторного заказа, после которых референс
	// помечается устаревшим и требует подтверждения человеком.
	StaleMonths int `json:"stale_months"`
	// PromoTolerance окрестность признанной промо-цены, исключаемая
	// из кандидатов референса.
	PromoTolerance float64 `json:"promo_tolerance"`
	// PriceEpsilon материальность разницы цен при сверке кандидатов.
	PriceEpsilon float64 `json:"price_epsilon"`
	// MinValidPrice цены не выше этого порога считаются отсутствующими.
	MinValidPrice float64 `json:"min_valid_price"`
}

// DefaultConfig пороги по умолчанию.
func DefaultConfig() Config {
	return Config{
		CommodityTolerance: 0.30,
		StableTolerance:    0.10,
		StaleMonths:        12,
		PromoTolerance:     0.02,
		PriceEpsilon:       0.03,
		MinValidPrice:      0.01,
	}
}

// Источники референсной скидки.
const (
	DiscountSourceExplicit = "explicit" // Лучшая заявленная скидка
	DiscountSourceImplied  = "implied"  // Выведена из лучшей цены против брутто
	DiscountSourceContract = "contract" // Зафиксирована контрактным override
)

// Entry референсная запись по одному артикулу: лучшие наблюдавшиеся
// условия закупки и производные сигналы.
type Entry struct {
	Article     string `json:"article"`
	Designation string `json:"designation"`
	Supplier    string `json:"supplier"`

	// Лучшая скидка и связанные с ней цены.
	BestDiscount        float64   `json:"best_discount"`
	BestDiscountPrice   float64   `json:"best_discount_price"`
	BestDiscountGross   float64   `json:"best_discount_gross"`
	BestDiscountDate    time.Time `json:"best_discount_date"`
	BestDiscountInvoice string    `json:"best_discount_invoice"`
	DiscountSource      string    `json:"discount_source"`

	// Лучшая (минимальная) реализованная цена.
	BestPrice        float64   `json:"best_price"`
	BestPriceDate    time.Time `json:"best_price_date"`
	BestPriceInvoice string    `json:"best_price_invoice"`

	Commodity bool    `json:"commodity"`
	Tolerance float64 `json:"tolerance"` // Допуск, применяемый детектором

	// Производные сигналы для ручной проверки.
	LikelyPromo bool      `json:"likely_promo"` // Нулевая скидка при цене сильно ниже референса
	Suspicious  bool      `json:"suspicious"`   // Нулевая скидка при цене сильно выше референса
	Stale       bool      `json:"stale"`        // Нет повторного заказа дольше окна
	LastOrdered time.Time `json:"last_ordered"`
}

// Engine движок референсных цен.
type Engine struct {
	cfg Config
}

// NewEngine создает движок с заданными порогами.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Build строит референсную таблицу по всей истории нормализованных строк
// с учетом ручных решений. Таблица каждый раз пересчитывается целиком:
// новый счет или новое решение задним числом меняют, какая историческая
// строка является лучшей, поэтому инкрементальных обновлений нет.
func (e *Engine) Build(lines []invoice.NormalizedLine, overrides Overrides, now time.Time) map[string]Entry {
	grouped := make(map[string][]invoice.NormalizedLine)
	for _, line := range lines {
		// Референсы строятся только по товарным строкам с настоящим артикулом.
		if !line.Family.IsProduct() {
			continue
		}
		if line.Article == "" || line.Article == invoice.AnnexFeeArticle {
			continue
		}
		grouped[line.Article] = append(grouped[line.Article], line)
	}

	entries := make(map[string]Entry, len(grouped))
	for article, group := range grouped {
		if entry, ok := e.buildEntry(article, group, overrides, now); ok {
			entries[article] = entry
		}
	}
	return entries
}

func (e *Engine) buildEntry(article string, group []invoice.NormalizedLine, overrides Overrides, now time.Time) (Entry, bool) {
	// Стабильный порядок: по дате, затем по номеру счета. Ранняя дата
	// выигрывает при равенстве кандидатов.
	sort.SliceStable(group, func(i, j int) bool {
		if !group[i].Date.Equal(group[j].Date) {
			return group[i].Date.Before(group[j].Date)
		}
		return group[i].InvoiceNumber < group[j].InvoiceNumber
	})

	candidates := group
	if promo, ok := overrides.Promo(article); ok {
		candidates = e.excludePromoPriced(group, promo.Value)
	}

	entry := Entry{
		Article:     article,
		Designation: group[len(group)-1].Designation,
		Supplier:    group[len(group)-1].Supplier,
		LastOrdered: group[len(group)-1].Date,
	}

	for _, line := range group {
		if line.Family == invoice.FamilyCommodity {
			entry.Commodity = true
			break
		}
	}
	entry.Tolerance = e.cfg.StableTolerance
	if entry.Commodity {
		entry.Tolerance = e.cfg.CommodityTolerance
	}

	// Кандидат "лучшая скидка": максимальная комбинированная скидка
	// среди строк с ненулевой скидкой; ранняя дата при равенстве.
	for _, line := range candidates {
		if line.DiscountPct <= 0 || line.UnitPrice <= e.cfg.MinValidPrice {
			continue
		}
		if line.DiscountPct > entry.BestDiscount {
			entry.BestDiscount = line.DiscountPct
			entry.BestDiscountPrice = line.UnitPrice
			entry.BestDiscountGross = line.GrossUnitPrice
			entry.BestDiscountDate = line.Date
			entry.BestDiscountInvoice = line.InvoiceNumber
			entry.DiscountSource = DiscountSourceExplicit
		}
	}

	// Кандидат "лучшая цена": минимальная реализованная цена.
	var bestPriceDiscount float64
	for _, line := range candidates {
		if line.UnitPrice <= e.cfg.MinValidPrice {
			continue
		}
		if entry.BestPrice == 0 || line.UnitPrice < entry.BestPrice {
			entry.BestPrice = line.UnitPrice
			entry.BestPriceDate = line.Date
			entry.BestPriceInvoice = line.InvoiceNumber
			bestPriceDiscount = line.DiscountPct
		}
	}

	if entry.BestPrice == 0 {
		// По артикулу нет ни одной валидной цены: референс не строится,
		// артикул на этот прогон выпадает из поиска аномалий.
		return Entry{}, false
	}

	// Сверка кандидатов: тихо выторгованная нетто-цена против явно
	// заявленной скидки. Политика — в пользу покупателя: берется
	// большая из явной и выведенной скидки.
	if bestPriceDiscount == 0 && entry.BestDiscountGross > 0 &&
		entry.BestPrice < entry.BestDiscountPrice-e.cfg.PriceEpsilon {
		implied := normalization.Round2((1 - entry.BestPrice/entry.BestDiscountGross) * 100)
		if implied > entry.BestDiscount {
			entry.BestDiscount = implied
			entry.DiscountSource = DiscountSourceImplied
		}
	}

	// Контрактная скидка фиксирует ставку, но не исторический минимум цены.
	if contract, ok := overrides.Contract(article); ok {
		entry.BestDiscount = contract.Value
		entry.DiscountSource = DiscountSourceContract
		if !contract.CreatedAt.IsZero() {
			entry.BestDiscountDate = contract.CreatedAt
		}
	}

	// Сигналы по строкам с нулевой заявленной скидкой: цена сильно ниже
	// базы — вероятная промо-акция, сильно выше — подозрительно.
	// Базой служит цена лучшей заявленной скидки, не минимум группы:
	// дешевая строка без скидки сама и есть минимум, против себя
	// отклонение всегда нулевое. Без скидок в истории база — минимум
	// остальных строк группы.
	for i, line := range group {
		if line.DiscountPct != 0 || line.UnitPrice <= e.cfg.MinValidPrice {
			continue
		}
		baseline := entry.BestDiscountPrice
		if baseline <= e.cfg.MinValidPrice {
			baseline = minOtherPrice(group, i, e.cfg.MinValidPrice)
		}
		if baseline <= e.cfg.MinValidPrice {
			continue
		}
		switch {
		case line.UnitPrice < baseline*(1-entry.Tolerance):
			entry.LikelyPromo = true
		case line.UnitPrice > baseline*(1+entry.Tolerance):
			entry.Suspicious = true
		}
	}

	if e.cfg.StaleMonths > 0 && !entry.LastOrdered.IsZero() &&
		entry.LastOrdered.Before(now.AddDate(0, -e.cfg.StaleMonths, 0)) {
		entry.Stale = true
	}

	return entry, true
}

// minOtherPrice минимальная валидная цена в группе без строки skip.
func minOtherPrice(group []invoice.NormalizedLine, skip int, minValid float64) float64 {
	var min float64
	for i, line := range group {
		if i == skip || line.UnitPrice <= minValid {
			continue
		}
		if min == 0 || line.UnitPrice < min {
			min = line.UnitPrice
		}
	}
	return min
}

// excludePromoPriced убирает из кандидатов строки с ценой в окрестности
// признанной промо-цены: признанная акция не должна стать новым референсом.
func (e *Engine) excludePromoPriced(group []invoice.NormalizedLine, promoPrice float64) []invoice.NormalizedLine {
	kept := make([]invoice.NormalizedLine, 0, len(group))
	for _, line := range group {
		if line.UnitPrice >= promoPrice-e.cfg.PromoTolerance &&
			line.UnitPrice <= promoPrice+e.cfg.PromoTolerance {
			continue
		}
		kept = append(kept, line)
	}
	return kept
}
