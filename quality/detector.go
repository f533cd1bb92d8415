package quality

import (
	"fmt"
	"time"

	"invoiceaudit/invoice"
	"invoiceaudit/normalization"
	"invoiceaudit/reference"
)

// SupplierConfig договорные условия поставщика.
// Отсутствующий в конфигурации поставщик получает нулевые значения —
// консервативный вариант: бесплатная доставка ожидается всегда, любой
// сбор недопустим. Лучше лишняя аномалия, чем пропущенная.
type SupplierConfig struct {
	FreeShippingThreshold float64 `json:"free_shipping_threshold"`
	MaxFee                float64 `json:"max_fee"`
}

// Config пороги детектора аномалий.
type Config struct {
	// NoiseFloor минимальная потеря: все, что ниже, считается шумом
	// плавающей точки и отбрасывается.
	NoiseFloor float64 `json:"noise_floor"`
	// PriceEpsilon допуск в несколько центов: цена на уровне референса
	// аномалией не является.
	PriceEpsilon float64 `json:"price_epsilon"`
	// DiscountEpsilon материальность отклонения скидки от контрактной,
	// проценты.
	DiscountEpsilon float64 `json:"discount_epsilon"`
}

// DefaultConfig пороги по умолчанию.
func DefaultConfig() Config {
	return Config{
		NoiseFloor:      0.01,
		PriceEpsilon:    0.03,
		DiscountEpsilon: 0.5,
	}
}

// Anomaly одна обнаруженная переплата. Каждая аномалия несет источник
// референса и текстовую расшифровку арифметики: результат используется
// как доказательная база в спорах с поставщиком.
type Anomaly struct {
	Supplier      string         `json:"supplier"`
	Article       string         `json:"article"`
	Designation   string         `json:"designation"`
	InvoiceNumber string         `json:"invoice_number"`
	DocumentID    string         `json:"document_id"`
	Date          time.Time      `json:"date"`
	Family        invoice.Family `json:"family"`
	Quantity      int            `json:"quantity"`

	UnitPrice   float64 `json:"unit_price"`   // Фактическая цена
	TargetPrice float64 `json:"target_price"` // Целевая (справедливая) цена
	Loss        float64 `json:"loss"`         // Переплата по строке
	Motif       string  `json:"motif"`        // Краткая причина
	Detail      string  `json:"detail"`       // Расшифровка расчета

	ReferenceDate    time.Time `json:"reference_date,omitempty"`
	ReferenceInvoice string    `json:"reference_invoice,omitempty"`
}

// Detector сравнивает нормализованные строки с референсной таблицей.
type Detector struct {
	cfg Config
}

// NewDetector создает детектор.
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// DetectAll проверяет весь пакет строк. Итоги счетов (для правила
// бесплатной доставки) считаются по этому же пакету.
func (d *Detector) DetectAll(
	lines []invoice.NormalizedLine,
	refs map[string]reference.Entry,
	overrides reference.Overrides,
	supplierConfigs map[string]SupplierConfig,
) []Anomaly {
	totals := invoiceTotals(lines)

	anomalies := make([]Anomaly, 0)
	for _, line := range lines {
		cfg := supplierConfigs[line.Supplier] // Нулевое значение и есть консервативный дефолт
		if a := d.Detect(line, totals[invoiceKey(line)], refs, overrides, cfg); a != nil {
			anomalies = append(anomalies, *a)
		}
	}
	return anomalies
}

// Detect проверяет одну строку. Возвращает nil, если строка в норме.
func (d *Detector) Detect(
	line invoice.NormalizedLine,
	invoiceTotal float64,
	refs map[string]reference.Entry,
	overrides reference.Overrides,
	supplierCfg SupplierConfig,
) *Anomaly {
	switch line.Family {
	case invoice.FamilyManagementFee:
		return d.checkFee(line, supplierCfg)
	case invoice.FamilyShippingFee:
		return d.checkShipping(line, invoiceTotal, supplierCfg)
	case invoice.FamilyCommodity, invoice.FamilyStable:
		return d.checkProduct(line, refs, overrides)
	default:
		// Налоги и упаковка аномалиями не считаются.
		return nil
	}
}

// checkFee сбор сверх допустимого максимума поставщика.
func (d *Detector) checkFee(line invoice.NormalizedLine, cfg SupplierConfig) *Anomaly {
	loss := normalization.Round2(line.Amount - cfg.MaxFee)
	if loss < d.cfg.NoiseFloor {
		return nil
	}
	a := d.newAnomaly(line)
	a.TargetPrice = cfg.MaxFee
	a.Loss = loss
	a.Motif = "сбор превышает допустимый максимум"
	a.Detail = fmt.Sprintf("сбор %.2f при максимуме %.2f: переплата %.2f",
		line.Amount, cfg.MaxFee, loss)
	return a
}

// checkShipping доставка выставлена, хотя итог счета достиг порога
// бесплатной доставки. Потеря — вся сумма доставки.
func (d *Detector) checkShipping(line invoice.NormalizedLine, invoiceTotal float64, cfg SupplierConfig) *Anomaly {
	if invoiceTotal < cfg.FreeShippingThreshold {
		return nil
	}
	loss := normalization.Round2(line.Amount)
	if loss < d.cfg.NoiseFloor {
		return nil
	}
	a := d.newAnomaly(line)
	a.TargetPrice = 0
	a.Loss = loss
	a.Motif = "доставка выставлена при достигнутом пороге бесплатной доставки"
	a.Detail = fmt.Sprintf("итог счета %.2f >= порога %.2f, доставка %.2f должна быть бесплатной",
		invoiceTotal, cfg.FreeShippingThreshold, loss)
	return a
}

// checkProduct товарная строка против референса артикула.
func (d *Detector) checkProduct(
	line invoice.NormalizedLine,
	refs map[string]reference.Entry,
	overrides reference.Overrides,
) *Anomaly {
	if overrides.Ignored(line.Article) {
		return nil
	}

	entry, ok := refs[line.Article]
	if !ok {
		// Нет референса — нет базы для сравнения (не ошибка).
		return nil
	}

	if contract, ok := overrides.Contract(line.Article); ok {
		return d.checkContract(line, contract)
	}

	if line.UnitPrice <= entry.BestPrice+d.cfg.PriceEpsilon {
		// Цена на уровне референса или лучше: движок никогда не
		// штрафует цену не хуже собственного референса.
		return nil
	}

	// Биржевой товар внутри широкого допуска — колебание сырьевого
	// индекса, а не ошибка биллинга.
	if entry.Commodity && line.UnitPrice <= entry.BestPrice*(1+entry.Tolerance) {
		return nil
	}

	loss := normalization.Round2((line.UnitPrice - entry.BestPrice) * float64(line.Quantity))
	if loss < d.cfg.NoiseFloor {
		return nil
	}

	a := d.newAnomaly(line)
	a.TargetPrice = entry.BestPrice
	a.Loss = loss
	a.ReferenceDate = entry.BestPriceDate
	a.ReferenceInvoice = entry.BestPriceInvoice
	if line.DiscountPct < entry.BestDiscount {
		a.Motif = fmt.Sprintf("скидка %.1f%% ниже референсной %.1f%%",
			line.DiscountPct, entry.BestDiscount)
	} else {
		overPct := (line.UnitPrice/entry.BestPrice - 1) * 100
		a.Motif = fmt.Sprintf("цена выше исторического минимума на %.1f%%", overPct)
	}
	a.Detail = fmt.Sprintf("цена %.4f против референса %.4f (счет %s от %s): (%.4f - %.4f) × %d = %.2f",
		line.UnitPrice, entry.BestPrice, entry.BestPriceInvoice,
		entry.BestPriceDate.Format("2006-01-02"),
		line.UnitPrice, entry.BestPrice, line.Quantity, loss)
	return a
}

// checkContract сверка фактической скидки с контрактной. Целевая цена
// считается от брутто-цены самой строки по контрактной ставке.
func (d *Detector) checkContract(line invoice.NormalizedLine, contract reference.Override) *Anomaly {
	if line.DiscountPct >= contract.Value-d.cfg.DiscountEpsilon {
		return nil
	}
	if line.GrossUnitPrice <= 0 {
		return nil
	}

	expected := normalization.Round4(line.GrossUnitPrice * (1 - contract.Value/100))
	loss := normalization.Round2((line.UnitPrice - expected) * float64(line.Quantity))
	if loss < d.cfg.NoiseFloor {
		return nil
	}

	a := d.newAnomaly(line)
	a.TargetPrice = expected
	a.Loss = loss
	a.ReferenceDate = contract.CreatedAt
	a.Motif = fmt.Sprintf("скидка %.1f%% ниже контрактной %.1f%% (контракт от %s)",
		line.DiscountPct, contract.Value, contract.CreatedAt.Format("2006-01-02"))
	a.Detail = fmt.Sprintf("брутто %.4f × (1 - %.1f%%) = целевая %.4f; (%.4f - %.4f) × %d = %.2f",
		line.GrossUnitPrice, contract.Value, expected,
		line.UnitPrice, expected, line.Quantity, loss)
	return a
}

func (d *Detector) newAnomaly(line invoice.NormalizedLine) *Anomaly {
	return &Anomaly{
		Supplier:      line.Supplier,
		Article:       line.Article,
		Designation:   line.Designation,
		InvoiceNumber: line.InvoiceNumber,
		DocumentID:    line.DocumentID,
		Date:          line.Date,
		Family:        line.Family,
		Quantity:      line.Quantity,
		UnitPrice:     line.UnitPrice,
	}
}

// invoiceTotals суммы счетов для правила бесплатной доставки.
// Сама строка доставки в итог не входит: порог относится к товарной части.
func invoiceTotals(lines []invoice.NormalizedLine) map[string]float64 {
	totals := make(map[string]float64)
	for _, line := range lines {
		if line.Family == invoice.FamilyShippingFee {
			continue
		}
		totals[invoiceKey(line)] += line.Amount
	}
	return totals
}

func invoiceKey(line invoice.NormalizedLine) string {
	if line.DocumentID != "" {
		return line.DocumentID
	}
	return line.Supplier + "|" + line.InvoiceNumber
}
