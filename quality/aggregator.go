package quality

import (
	"sort"
	"strconv"

	"invoiceaudit/invoice"
	"invoiceaudit/normalization"
)

// SupplierSummary сводка потерь по поставщику.
type SupplierSummary struct {
	Supplier     string  `json:"supplier"`
	AnomalyCount int     `json:"anomaly_count"`
	TotalLoss    float64 `json:"total_loss"`
	Spend        float64 `json:"spend"`      // Общий оборот по поставщику
	LossRatio    float64 `json:"loss_ratio"` // Доля потерь в обороте
}

// YearSummary сводка по поставщику и году.
type YearSummary struct {
	Supplier     string  `json:"supplier"`
	Year         int     `json:"year"`
	AnomalyCount int     `json:"anomaly_count"`
	TotalLoss    float64 `json:"total_loss"`
	Spend        float64 `json:"spend"`
	LossRatio    float64 `json:"loss_ratio"`
}

// ArticleSummary исторический разброс цен артикула для детализации.
type ArticleSummary struct {
	Article     string  `json:"article"`
	Designation string  `json:"designation"`
	Supplier    string  `json:"supplier"`
	BestPrice   float64 `json:"best_price"`
	WorstPrice  float64 `json:"worst_price"`
	LineCount   int     `json:"line_count"`
	TotalLoss   float64 `json:"total_loss"`
}

// Report итог агрегации. Пустой набор аномалий — валидный результат.
type Report struct {
	TotalLoss float64           `json:"total_loss"`
	Suppliers []SupplierSummary `json:"suppliers"`
	Years     []YearSummary     `json:"years"`
	Articles  []ArticleSummary  `json:"articles"`
	Message   string            `json:"message,omitempty"`
}

// Summarize строит сводки по поставщикам, годам и артикулам.
// Никаких новых бизнес-правил: только группировка и суммирование.
func Summarize(anomalies []Anomaly, lines []invoice.NormalizedLine) Report {
	report := Report{
		Suppliers: []SupplierSummary{},
		Years:     []YearSummary{},
		Articles:  []ArticleSummary{},
	}

	suppliers := make(map[string]*SupplierSummary)
	years := make(map[string]*YearSummary)
	articles := make(map[string]*ArticleSummary)

	// Оборот считается по всем строкам, не только по аномальным:
	// иначе доля потерь теряет смысл.
	for _, line := range lines {
		s := supplierEntry(suppliers, line.Supplier)
		s.Spend += line.Amount

		y := yearEntry(years, line.Supplier, line.Year())
		y.Spend += line.Amount

		if line.Family.IsProduct() && line.Article != "" {
			a, ok := articles[line.Article]
			if !ok {
				a = &ArticleSummary{
					Article:     line.Article,
					Designation: line.Designation,
					Supplier:    line.Supplier,
				}
				articles[line.Article] = a
			}
			if line.UnitPrice > 0 {
				if a.BestPrice == 0 || line.UnitPrice < a.BestPrice {
					a.BestPrice = line.UnitPrice
				}
				if line.UnitPrice > a.WorstPrice {
					a.WorstPrice = line.UnitPrice
				}
			}
			a.LineCount++
		}
	}

	for _, anomaly := range anomalies {
		report.TotalLoss += anomaly.Loss

		s := supplierEntry(suppliers, anomaly.Supplier)
		s.AnomalyCount++
		s.TotalLoss += anomaly.Loss

		y := yearEntry(years, anomaly.Supplier, anomaly.Date.Year())
		y.AnomalyCount++
		y.TotalLoss += anomaly.Loss

		if a, ok := articles[anomaly.Article]; ok {
			a.TotalLoss += anomaly.Loss
		}
	}

	report.TotalLoss = normalization.Round2(report.TotalLoss)

	for _, s := range suppliers {
		s.TotalLoss = normalization.Round2(s.TotalLoss)
		s.Spend = normalization.Round2(s.Spend)
		if s.Spend > 0 {
			s.LossRatio = normalization.Round4(s.TotalLoss / s.Spend)
		}
		report.Suppliers = append(report.Suppliers, *s)
	}
	for _, y := range years {
		y.TotalLoss = normalization.Round2(y.TotalLoss)
		y.Spend = normalization.Round2(y.Spend)
		if y.Spend > 0 {
			y.LossRatio = normalization.Round4(y.TotalLoss / y.Spend)
		}
		report.Years = append(report.Years, *y)
	}
	for _, a := range articles {
		a.TotalLoss = normalization.Round2(a.TotalLoss)
		report.Articles = append(report.Articles, *a)
	}

	// Стабильный порядок для отчетов и сравнений в тестах.
	sort.Slice(report.Suppliers, func(i, j int) bool {
		return report.Suppliers[i].Supplier < report.Suppliers[j].Supplier
	})
	sort.Slice(report.Years, func(i, j int) bool {
		if report.Years[i].Supplier != report.Years[j].Supplier {
			return report.Years[i].Supplier < report.Years[j].Supplier
		}
		return report.Years[i].Year < report.Years[j].Year
	})
	sort.Slice(report.Articles, func(i, j int) bool {
		return report.Articles[i].Article < report.Articles[j].Article
	})

	if len(anomalies) == 0 {
		report.Message = "аномалии не обнаружены"
	}
	return report
}

func supplierEntry(m map[string]*SupplierSummary, supplier string) *SupplierSummary {
	s, ok := m[supplier]
	if !ok {
		s = &SupplierSummary{Supplier: supplier}
		m[supplier] = s
	}
	return s
}

func yearEntry(m map[string]*YearSummary, supplier string, year int) *YearSummary {
	key := supplier + "|" + strconv.Itoa(year)
	y, ok := m[key]
	if !ok {
		y = &YearSummary{Supplier: supplier, Year: year}
		m[key] = y
	}
	return y
}
