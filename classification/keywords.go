package classification

// Keywords списки ключевых слов классификатора. Вынесены в данные,
// а не в ветвления кода: списки правятся в конфигурации без пересборки.
// Слова задаются без учета регистра и диакритики.
type Keywords struct {
	// Tax ключевые слова налогов и экосборов. Проверяются первыми:
	// налоговые маркеры встречаются вместе с товарными кодами.
	Tax []string `json:"tax"`
	// FeeMarkers короткие маркеры строк сборов ("FRAIS").
	FeeMarkers []string `json:"fee_markers"`
	// Billing административные/биллинговые формулировки сборов.
	Billing []string `json:"billing"`
	// Shipping слова доставки/транспорта.
	Shipping []string `json:"shipping"`
	// ShippingFalsePositives слова, содержащие транспортную подстроку,
	// но не являющиеся доставкой ("SUPPORT" содержит "PORT").
	ShippingFalsePositives []string `json:"shipping_false_positives"`
	// Packaging слова упаковки.
	Packaging []string `json:"packaging"`
	// FeeCodes слова, по которым код артикула признается кодом сбора,
	// а не настоящим товарным референсом.
	FeeCodes []string `json:"fee_codes"`
	// Commodity маркеры биржевых товаров с волатильной ценой.
	Commodity []string `json:"commodity"`
}

// DefaultKeywords словарь по умолчанию для счетов французских
// поставщиков электроматериалов.
func DefaultKeywords() Keywords {
	return Keywords{
		Tax: []string{
			"ECOTAXE", "ECO-TAXE", "ECO TAXE", "ECO-PART", "ECOPART",
			"DEEE", "D3E", "TAXE", "CONTRIBUTION ENERGIE", "CONTRIBUTION RECYCLAGE",
		},
		FeeMarkers: []string{"FRAIS"},
		Billing: []string{
			"FRAIS DE FACTURATION", "FRAIS DE GESTION", "FRAIS DE DOSSIER",
			"FRAIS ADMINISTRATIF", "FACTURATION MINIMUM", "MINIMUM DE FACTURATION",
		},
		Shipping: []string{
			"PORT", "TRANSPORT", "LIVRAISON", "EXPEDITION", "ACHEMINEMENT", "FRET",
		},
		ShippingFalsePositives: []string{
			"SUPPORT", "PORTE", "PORTAIL", "PORTIQUE", "REPORT", "PORTEE",
		},
		Packaging: []string{
			"EMBALLAGE", "CONDITIONNEMENT", "PALETTE", "CONSIGNE", "TOURET",
		},
		FeeCodes: []string{
			"PORT", "FRAIS", "DIVERS", "TRANSPORT", "ZDIV",
		},
		Commodity: []string{
			"CABLE", "CUIVRE", "U1000", "R2V", "H07", "RO2V",
		},
	}
}
