package invoice

import (
	"strings"
	"time"
)

// Family семейство строки счета. Определяет, по каким правилам строка
// участвует в построении референсных цен и в поиске аномалий.
type Family string

const (
	FamilyTax           Family = "TAX"               // Налоги и экологические сборы
	FamilyManagementFee Family = "MANAGEMENT_FEE"    // Административные сборы за обработку
	FamilyShippingFee   Family = "SHIPPING_FEE"      // Доставка/транспорт
	FamilyPackaging     Family = "PACKAGING"         // Упаковка
	FamilyCommodity     Family = "COMMODITY_PRODUCT" // Биржевой товар (кабель, медь) с волатильной ценой
	FamilyStable        Family = "STABLE_PRODUCT"    // Обычный товар со стабильной ценой
)

// IsProduct возвращает true для товарных семейств, участвующих
// в построении референсных цен.
func (f Family) IsProduct() bool {
	return f == FamilyCommodity || f == FamilyStable
}

// AnnexFeeArticle сентинельный код артикула, который экстрактор подставляет
// строкам дополнительных сборов, не имеющим собственного артикула.
const AnnexFeeArticle = "FRAIS_ANNEXES"

// RawLine одна строка счета в том виде, в котором её вернул экстрактор.
// Числовые поля текстовые: локаль, валютные символы и цены "за N штук"
// разбираются нормализатором, а не экстрактором.
type RawLine struct {
	Quantity        string `json:"quantity"`
	Article         string `json:"article"`
	Designation     string `json:"designation"`
	GrossUnitPrice  string `json:"gross_unit_price"`
	Discount        string `json:"discount"` // Возможна цепочка скидок: "60+10"
	NetUnitPrice    string `json:"net_unit_price"`
	Divisor         int    `json:"divisor"` // Явный делитель "цена за N штук", 0 если не указан
	Amount          string `json:"amount"`  // Итог строки, авторитетное значение
	DeliveryNoteRef string `json:"delivery_note_ref"`
}

// InvoiceRecord один распознанный счет поставщика. Создается экстрактором,
// после сохранения не изменяется (кроме антишумовой правки order_ref).
type InvoiceRecord struct {
	DocumentID    string    `json:"document_id"` // Стабильный идентификатор исходного файла
	Supplier      string    `json:"supplier"`    // Имя поставщика, как в счете
	Date          string    `json:"date"`        // YYYY-MM-DD
	InvoiceNumber string    `json:"invoice_number"`
	OrderRef      string    `json:"order_ref"`
	Address       string    `json:"address"`
	TaxID         string    `json:"tax_id"`
	BankID        string    `json:"bank_id"`
	Lines         []RawLine `json:"lines"`
}

// ParsedDate возвращает дату счета. Неразборчивая дата деградирует
// в нулевое время, а не в ошибку.
func (r *InvoiceRecord) ParsedDate() time.Time {
	for _, layout := range []string{"2006-01-02", "02/01/2006", "02.01.2006"} {
		if ts, err := time.Parse(layout, strings.TrimSpace(r.Date)); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// NormalizedLine строка счета после нормализации и классификации.
// Не персистентна: пересчитывается из InvoiceRecord при каждом анализе.
type NormalizedLine struct {
	Supplier        string    `json:"supplier"` // Каноническое имя поставщика
	Date            time.Time `json:"date"`
	InvoiceNumber   string    `json:"invoice_number"`
	DocumentID      string    `json:"document_id"`
	Quantity        int       `json:"quantity"` // Всегда >= 1
	Article         string    `json:"article"`  // Непустой: при отсутствии — усеченное наименование
	Designation     string    `json:"designation"`
	UnitPrice       float64   `json:"unit_price"`       // Реализованная цена за единицу (amount/quantity)
	GrossUnitPrice  float64   `json:"gross_unit_price"` // Брутто-цена, приведенная к единице
	DiscountPct     float64   `json:"discount_pct"`     // Комбинированная скидка, проценты
	Family          Family    `json:"family"`
	Amount          float64   `json:"amount"`
	DeliveryNoteRef string    `json:"delivery_note_ref,omitempty"`
}

// Year год счета для сводных отчетов.
func (l *NormalizedLine) Year() int {
	if l.Date.IsZero() {
		return 0
	}
	return l.Date.Year()
}
