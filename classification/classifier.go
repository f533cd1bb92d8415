package classification

import (
	"strings"
	"sync"
	"unicode"

	"github.com/kljensen/snowball"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"invoiceaudit/invoice"
)

// Classifier присваивает строке счета семейство по упорядоченной таблице
// правил. Порядок правил — инвариант корректности: налоговые слова
// встречаются в товарных строках, поэтому TAX проверяется первым,
// а транспорт — только после отсечения сборов.
type Classifier struct {
	keywords Keywords
	rules    []rule

	stemCache map[string]string
	mu        sync.RWMutex
}

// rule одно правило классификации: первый сработавший предикат побеждает.
type rule struct {
	name   string
	match  func(designation, article string) bool
	family invoice.Family
}

// NewClassifier создает классификатор с заданными списками ключевых слов.
func NewClassifier(keywords Keywords) *Classifier {
	c := &Classifier{
		keywords:  keywords,
		stemCache: make(map[string]string),
	}
	c.rules = []rule{
		{"tax", c.matchTax, invoice.FamilyTax},
		{"management_fee", c.matchManagementFee, invoice.FamilyManagementFee},
		{"shipping_fee", c.matchShipping, invoice.FamilyShippingFee},
		{"packaging", c.matchPackaging, invoice.FamilyPackaging},
		{"commodity", c.matchCommodity, invoice.FamilyCommodity},
	}
	return c
}

// NewDefaultClassifier создает классификатор со словарем по умолчанию.
func NewDefaultClassifier() *Classifier {
	return NewClassifier(DefaultKeywords())
}

// Classify возвращает семейство строки. Строки, не попавшие ни под одно
// правило, считаются обычным товаром.
func (c *Classifier) Classify(designation, article string) invoice.Family {
	d := Fold(designation)
	a := Fold(article)
	for _, r := range c.rules {
		if r.match(d, a) {
			return r.family
		}
	}
	return invoice.FamilyStable
}

func (c *Classifier) matchTax(designation, article string) bool {
	return c.containsAny(designation, c.keywords.Tax) ||
		c.containsAny(article, c.keywords.Tax)
}

func (c *Classifier) matchManagementFee(designation, article string) bool {
	if article == invoice.AnnexFeeArticle {
		return true
	}
	if c.containsAny(designation, c.keywords.Billing) {
		return true
	}
	// Короткий маркер сбора: наименование целиком или отдельным словом.
	for _, marker := range c.keywords.FeeMarkers {
		m := Fold(marker)
		if designation == m || c.hasToken(designation, m) {
			return true
		}
	}
	return false
}

func (c *Classifier) matchShipping(designation, article string) bool {
	// Подстроки транспортных слов внутри других слов ("SUPPORT")
	// вычищаются перед проверкой.
	cleaned := designation
	for _, fp := range c.keywords.ShippingFalsePositives {
		cleaned = strings.ReplaceAll(cleaned, Fold(fp), " ")
	}
	if !c.containsAny(cleaned, c.keywords.Shipping) {
		return false
	}
	// Настоящий товарный референс с транспортным словом в наименовании —
	// не строка доставки.
	return !c.articleLooksTechnical(article)
}

func (c *Classifier) matchPackaging(designation, _ string) bool {
	return c.containsAny(designation, c.keywords.Packaging)
}

func (c *Classifier) matchCommodity(designation, article string) bool {
	if !c.articleLooksTechnical(article) {
		return false
	}
	return c.containsAny(designation, c.keywords.Commodity) ||
		c.containsAny(article, c.keywords.Commodity)
}

// articleLooksTechnical отличает настоящий товарный референс от кода сбора:
// длина больше 4 и код не состоит из слов-сборов.
func (c *Classifier) articleLooksTechnical(article string) bool {
	if len([]rune(article)) <= 4 {
		return false
	}
	return !c.containsAny(article, c.keywords.FeeCodes)
}

// containsAny проверяет вхождение любого из ключевых слов.
// Однословные ключи дополнительно сверяются по французским стеммам,
// чтобы "EMBALLAGES"/"EMBALLAGE" сходились к одной форме.
func (c *Classifier) containsAny(folded string, keywords []string) bool {
	if folded == "" {
		return false
	}
	var tokens []string // Лениво: стеммы нужны не каждому правилу
	for _, kw := range keywords {
		k := Fold(kw)
		if k == "" {
			continue
		}
		if strings.Contains(folded, k) {
			return true
		}
		if strings.ContainsRune(k, ' ') {
			continue
		}
		if tokens == nil {
			tokens = strings.Fields(folded)
		}
		stemmedKw := c.stem(k)
		for _, tok := range tokens {
			if c.stem(tok) == stemmedKw {
				return true
			}
		}
	}
	return false
}

// hasToken проверяет наличие отдельного слова.
func (c *Classifier) hasToken(folded, token string) bool {
	for _, tok := range strings.Fields(folded) {
		if tok == token {
			return true
		}
	}
	return false
}

// stem возвращает французский стемм слова с кэшированием.
func (c *Classifier) stem(word string) string {
	c.mu.RLock()
	if cached, ok := c.stemCache[word]; ok {
		c.mu.RUnlock()
		return cached
	}
	c.mu.RUnlock()

	stemmed, err := snowball.Stem(strings.ToLower(word), "french", true)
	if err != nil {
		stemmed = strings.ToLower(word)
	}

	c.mu.Lock()
	c.stemCache[word] = stemmed
	c.mu.Unlock()
	return stemmed
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold приводит текст к форме для сравнения: верхний регистр,
// без диакритики, со схлопнутыми пробелами.
func Fold(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToUpper(strings.Join(strings.Fields(folded), " "))
}
