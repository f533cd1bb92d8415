package normalization

import (
	"math"
	"strconv"
	"strings"
)

// NormalizeAmount приводит текстовое денежное значение к float64.
//
// Правила разбора:
//   - валютные символы и пробелы (включая неразрывные) отбрасываются;
//   - если встречаются и ",", и "." — точка считается разделителем тысяч
//     и удаляется, запятая становится десятичной точкой;
//   - если встречается только "," — она становится десятичной точкой.
//
// Неразборчивое значение дает 0.0, никогда не ошибку: один испорченный
// номер в выгрузке не должен ронять весь пакет.
// Примеры: "1 234,56 €" -> 1234.56, "12.5" -> 12.5, "abc" -> 0.
func NormalizeAmount(raw string) float64 {
	cleaned := stripCurrency(raw)
	if cleaned == "" {
		return 0
	}

	hasComma := strings.Contains(cleaned, ",")
	hasDot := strings.Contains(cleaned, ".")

	switch {
	case hasComma && hasDot:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	case hasComma:
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return value
}

// stripCurrency убирает валютные символы, пробелы и прочий мусор,
// оставляя только цифры, знаки и разделители.
func stripCurrency(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ',' || r == '.' || r == '-' || r == '+':
			b.WriteRune(r)
		}
	}
	return strings.TrimSuffix(strings.TrimSpace(b.String()), "+")
}

// CombineDiscounts разбирает цепочку скидок вида "60+10" и возвращает
// эквивалентную одиночную скидку в процентах, округленную до 2 знаков.
// Скидки применяются мультипликативно: 60+10 -> 1 - 0.4*0.9 = 64%.
// Пустая или неразборчивая цепочка дает 0.
func CombineDiscounts(raw string) float64 {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0
	}

	remaining := 1.0
	for _, part := range strings.Split(trimmed, "+") {
		pct := NormalizeAmount(part)
		if pct <= 0 || pct > 100 {
			continue
		}
		remaining *= 1 - pct/100
	}

	return Round2((1 - remaining) * 100)
}

// Round2 округляет до 2 десятичных знаков. Все денежные сравнения
// в движке работают с уже округленными значениями.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round4 округляет до 4 знаков: используется для цен за единицу,
// которые после деления "за 100 штук" имеют значащие доли цента.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
