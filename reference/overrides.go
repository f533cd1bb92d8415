package reference

import "time"

// OverrideKind вид ручного решения по артикулу.
type OverrideKind string

const (
	// OverrideContract фиксированная контрактная скидка: референсная
	// ставка задана договором, а не историей.
	OverrideContract OverrideKind = "CONTRACT"
	// OverridePromo признанная промо-цена: исключается из поиска
	// референса, чтобы разовая акция не стала новым "полом".
	OverridePromo OverrideKind = "PROMO"
	// OverrideIgnore полное подавление аномалий по артикулу.
	OverrideIgnore OverrideKind = "IGNORE"
)

// Override ручное решение пользователя по артикулу. Всегда имеет
// приоритет над автоматически выведенным референсом. Создается
// и перезаписывается только явным действием человека.
type Override struct {
	Article   string       `json:"article"`
	Kind      OverrideKind `json:"kind"`
	Value     float64      `json:"value"` // CONTRACT: скидка %, PROMO: цена
	Comment   string       `json:"comment,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// Overrides таблица решений по артикулам. Загружается один раз на запуск
// анализа и дальше только читается — никакого глобального реестра.
type Overrides map[string]Override

// Get возвращает решение по артикулу.
func (o Overrides) Get(article string) (Override, bool) {
	ov, ok := o[article]
	return ov, ok
}

// Contract возвращает контрактную скидку, если она задана.
func (o Overrides) Contract(article string) (Override, bool) {
	if ov, ok := o[article]; ok && ov.Kind == OverrideContract {
		return ov, true
	}
	return Override{}, false
}

// Promo возвращает признанную промо-цену, если она задана.
func (o Overrides) Promo(article string) (Override, bool) {
	if ov, ok := o[article]; ok && ov.Kind == OverridePromo {
		return ov, true
	}
	return Override{}, false
}

// Ignored сообщает, подавлены ли аномалии по артикулу.
func (o Overrides) Ignored(article string) bool {
	ov, ok := o[article]
	return ok && ov.Kind == OverrideIgnore
}
