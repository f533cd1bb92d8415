package normalization

import (
	"math"
	"strings"

	"invoiceaudit/invoice"
)

// Options пороги согласования строки. Значения эвристические,
// поэтому вынесены в конфигурацию, а не зашиты в код.
type Options struct {
	// QuantityRatioTolerance допустимое отклонение отношения amount/unit_price
	// от целого, при котором отношение заменяет заявленное количество.
	QuantityRatioTolerance float64
	// ImplausiblePricePerUnit цена за единицу, выше которой при больших
	// количествах подозревается ценообразование "за 100 штук".
	ImplausiblePricePerUnit float64
	// ImplausibleQuantity минимальное количество для срабатывания
	// эвристики делителя.
	ImplausibleQuantity int
	// ArticleFallbackLen длина усечения наименования, когда артикул пуст.
	ArticleFallbackLen int
}

// DefaultOptions пороги по умолчанию.
func DefaultOptions() Options {
	return Options{
		QuantityRatioTolerance:  0.05,
		ImplausiblePricePerUnit: 10.0,
		ImplausibleQuantity:     100,
		ArticleFallbackLen:      24,
	}
}

// Reconciled результат согласования числовых полей одной строки.
type Reconciled struct {
	Quantity       int
	UnitPrice      float64 // Реализованная цена за единицу
	GrossUnitPrice float64 // Брутто-цена, приведенная к единице
	DiscountPct    float64
	Amount         float64
	Divisor        int // Фактически примененный делитель
}

// ReconcileLine восстанавливает инвариант amount ≈ unit_price × quantity.
//
// Порядок важен: сначала определяется делитель "за N штук", затем,
// с учетом делителя, количество сверяется с отношением amount/unit_price.
// Количество — корректируемая неизвестная: итог строки и физический счет
// надежнее возможно искаженного поля цены.
func ReconcileLine(line invoice.RawLine, opts Options) Reconciled {
	quantity := int(math.Round(NormalizeAmount(line.Quantity)))
	net := NormalizeAmount(line.NetUnitPrice)
	gross := NormalizeAmount(line.GrossUnitPrice)
	amount := NormalizeAmount(line.Amount)

	divisor := line.Divisor
	if divisor <= 0 {
		divisor = 1
	}

	// Эвристика делителя: явного маркера нет, но цена за единицу
	// неправдоподобно велика при большом количестве, а итог строки
	// сходится с ценой, деленной на 100 (кабель в бухтах, метизы).
	if line.Divisor <= 0 && net > opts.ImplausiblePricePerUnit &&
		quantity >= opts.ImplausibleQuantity && amount > 0 {
		if ratioIsNearInteger(amount/(net/100), opts.QuantityRatioTolerance) &&
			int(math.Round(amount/(net/100))) == quantity {
			divisor = 100
		}
	}

	unitNet := net / float64(divisor)

	// Сверка количества: если amount/unit_price — почти целое число,
	// отличное от заявленного количества, верим отношению.
	if amount > 0 && unitNet > 0 {
		ratio := amount / unitNet
		if ratioIsNearInteger(ratio, opts.QuantityRatioTolerance) {
			if n := int(math.Round(ratio)); n >= 1 && n != quantity {
				quantity = n
			}
		}
	}

	if quantity < 1 {
		quantity = 1
	}

	// Итоговая реализованная цена: amount/quantity, когда итог есть;
	// скорректированная нетто-цена — только запасной вариант.
	unitPrice := unitNet
	if amount > 0 {
		unitPrice = amount / float64(quantity)
	}

	return Reconciled{
		Quantity:       quantity,
		UnitPrice:      Round4(unitPrice),
		GrossUnitPrice: Round4(gross / float64(divisor)),
		DiscountPct:    CombineDiscounts(line.Discount),
		Amount:         Round2(amount),
		Divisor:        divisor,
	}
}

func ratioIsNearInteger(ratio, tolerance float64) bool {
	if ratio <= 0 {
		return false
	}
	return math.Abs(ratio-math.Round(ratio)) <= tolerance
}

// Classifier присваивает строке семейство. Реализуется пакетом
// classification; интерфейс здесь, чтобы нормализация не зависела
// от конкретных списков ключевых слов.
type Classifier interface {
	Classify(designation, article string) invoice.Family
}

// Normalizer превращает сырые записи экстрактора в нормализованные строки.
type Normalizer struct {
	opts       Options
	aliases    *invoice.AliasTable
	classifier Classifier
}

// NewNormalizer создает нормализатор.
func NewNormalizer(opts Options, aliases *invoice.AliasTable, classifier Classifier) *Normalizer {
	return &Normalizer{opts: opts, aliases: aliases, classifier: classifier}
}

// NormalizeRecord нормализует все строки одного счета.
// Чистая функция без побочных эффектов: неразборчивые поля деградируют
// в нули, строки не отбрасываются — решение об исключении нулевых строк
// принимают последующие стадии.
func (n *Normalizer) NormalizeRecord(rec invoice.InvoiceRecord) []invoice.NormalizedLine {
	supplier := n.aliases.Canonical(rec.Supplier)
	date := rec.ParsedDate()

	lines := make([]invoice.NormalizedLine, 0, len(rec.Lines))
	for _, raw := range rec.Lines {
		r := ReconcileLine(raw, n.opts)

		article := strings.TrimSpace(raw.Article)
		if article == "" {
			article = fallbackArticle(raw.Designation, n.opts.ArticleFallbackLen)
		}

		lines = append(lines, invoice.NormalizedLine{
			Supplier:        supplier,
			Date:            date,
			InvoiceNumber:   rec.InvoiceNumber,
			DocumentID:      rec.DocumentID,
			Quantity:        r.Quantity,
			Article:         article,
			Designation:     strings.TrimSpace(raw.Designation),
			UnitPrice:       r.UnitPrice,
			GrossUnitPrice:  r.GrossUnitPrice,
			DiscountPct:     r.DiscountPct,
			Family:          n.classifier.Classify(raw.Designation, article),
			Amount:          r.Amount,
			DeliveryNoteRef: strings.TrimSpace(raw.DeliveryNoteRef),
		})
	}
	return lines
}

// NormalizeAll нормализует пакет счетов, сохраняя порядок строк.
func (n *Normalizer) NormalizeAll(records []invoice.InvoiceRecord) []invoice.NormalizedLine {
	var all []invoice.NormalizedLine
	for _, rec := range records {
		all = append(all, n.NormalizeRecord(rec)...)
	}
	return all
}

// fallbackArticle строит суррогатный артикул из наименования,
// когда артикула в строке нет.
func fallbackArticle(designation string, maxLen int) string {
	folded := strings.ToUpper(strings.Join(strings.Fields(designation), " "))
	if folded == "" {
		return ""
	}
	runes := []rune(folded)
	if len(runes) > maxLen {
		return string(runes[:maxLen])
	}
	return folded
}
