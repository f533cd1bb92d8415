package invoice

import "strings"

// AliasTable таблица канонизации имен поставщиков.
// Один и тот же поставщик встречается в счетах под разными написаниями
// ("Sté REXEL France", "REXEL", "Rexel SAS") — для группировки истории
// цен все варианты сводятся к одному каноническому имени.
type AliasTable struct {
	aliases map[string]string // Ключ: свернутое сырое имя
}

// NewAliasTable создает таблицу канонизации из пар сырое имя → каноническое.
func NewAliasTable(aliases map[string]string) *AliasTable {
	t := &AliasTable{aliases: make(map[string]string, len(aliases))}
	for raw, canonical := range aliases {
		t.aliases[foldSupplierName(raw)] = canonical
	}
	return t
}

// Canonical возвращает каноническое имя поставщика.
// Без записи в таблице применяется консервативное свертывание:
// обрезка пробелов и верхний регистр.
func (t *AliasTable) Canonical(raw string) string {
	folded := foldSupplierName(raw)
	if folded == "" {
		return ""
	}
	if t != nil {
		if canonical, ok := t.aliases[folded]; ok {
			return canonical
		}
		// Каноническое имя само может быть записано как алиас другого:
		// один шаг разрешения достаточен, цепочки не поддерживаются.
	}
	return folded
}

// Add добавляет или заменяет алиас.
func (t *AliasTable) Add(raw, canonical string) {
	t.aliases[foldSupplierName(raw)] = canonical
}

func foldSupplierName(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(raw), " "))
}
