package classification

import (
	"testing"

	"invoiceaudit/invoice"
)

// TestClassify_Tax налоговые и экологические сборы
func TestClassify_Tax(t *testing.T) {
	c := NewDefaultClassifier()

	cases := []struct {
		designation string
		article     string
	}{
		{"ECOTAXE", ""},
		{"Éco-taxe DEEE", ""},
		{"Contribution recyclage D3E", "52041"},
		{"TAXE", "TX01"},
	}
	for _, tc := range cases {
		if got := c.Classify(tc.designation, tc.article); got != invoice.FamilyTax {
			t.Errorf("Classify(%q, %q) = %v, want TAX", tc.designation, tc.article, got)
		}
	}
}

// TestClassify_TaxBeatsCommodity налоговое правило срабатывает раньше
// товарных даже при техническом артикуле
func TestClassify_TaxBeatsCommodity(t *testing.T) {
	c := NewDefaultClassifier()

	if got := c.Classify("ECOTAXE sur cable cuivre", "52041"); got != invoice.FamilyTax {
		t.Errorf("Classify = %v, want TAX (порядок правил)", got)
	}
}

// TestClassify_ManagementFee административные сборы
func TestClassify_ManagementFee(t *testing.T) {
	c := NewDefaultClassifier()

	cases := []struct {
		designation string
		article     string
	}{
		{"Quelconque ligne", invoice.AnnexFeeArticle},
		{"Frais de facturation minimum", ""},
		{"FRAIS", ""},
		{"Frais de dossier", "ZDIV"},
		// Маркер FRAIS отдельным словом перехватывает строку раньше
		// транспортного правила.
		{"Frais de port", ""},
	}
	for _, tc := range cases {
		if got := c.Classify(tc.designation, tc.article); got != invoice.FamilyManagementFee {
			t.Errorf("Classify(%q, %q) = %v, want MANAGEMENT_FEE", tc.designation, tc.article, got)
		}
	}
}

// TestClassify_Shipping строки доставки
func TestClassify_Shipping(t *testing.T) {
	c := NewDefaultClassifier()

	cases := []struct {
		designation string
		article     string
	}{
		{"Forfait transport", ""},
		{"Participation au port", "PORT"},
		{"LIVRAISON EXPRESS", "DIV1"},
		{"Acheminement", "TRANSPORT01"}, // Код сбора, не товарный референс
	}
	for _, tc := range cases {
		if got := c.Classify(tc.designation, tc.article); got != invoice.FamilyShippingFee {
			t.Errorf("Classify(%q, %q) = %v, want SHIPPING_FEE", tc.designation, tc.article, got)
		}
	}
}

// TestClassify_ShippingFalsePositives слова с транспортной подстрокой
// не признаются доставкой
func TestClassify_ShippingFalsePositives(t *testing.T) {
	c := NewDefaultClassifier()

	cases := []struct {
		designation string
		article     string
		want        invoice.Family
	}{
		{"PORTE FUSIBLE 10X38", "PF38", invoice.FamilyStable},
		{"SUPPORT MURAL GALVA", "SM12", invoice.FamilyStable},
		// Транспортное слово в наименовании настоящего товара.
		{"CHARIOT DE TRANSPORT", "CHT90210", invoice.FamilyStable},
	}
	for _, tc := range cases {
		if got := c.Classify(tc.designation, tc.article); got != tc.want {
			t.Errorf("Classify(%q, %q) = %v, want %v", tc.designation, tc.article, got, tc.want)
		}
	}
}

// TestClassify_Packaging упаковка и тара
func TestClassify_Packaging(t *testing.T) {
	c := NewDefaultClassifier()

	cases := []string{"Emballages perdus", "CONSIGNE TOURET", "Palette bois"}
	for _, d := range cases {
		if got := c.Classify(d, ""); got != invoice.FamilyPackaging {
			t.Errorf("Classify(%q) = %v, want PACKAGING", d, got)
		}
	}
}

// TestClassify_Commodity биржевые товары требуют технического артикула
func TestClassify_Commodity(t *testing.T) {
	c := NewDefaultClassifier()

	if got := c.Classify("Cable U1000 R2V 3G2.5", "52041"); got != invoice.FamilyCommodity {
		t.Errorf("Classify = %v, want COMMODITY_PRODUCT", got)
	}
	// Маркер в артикуле, а не в наименовании.
	if got := c.Classify("Fil rigide 2.5mm", "U1000R2V25"); got != invoice.FamilyCommodity {
		t.Errorf("Classify по артикулу = %v, want COMMODITY_PRODUCT", got)
	}
	// Короткий артикул — товарным референсом не считается.
	if got := c.Classify("Cable HO7VK", "C25"); got != invoice.FamilyStable {
		t.Errorf("Classify с коротким артикулом = %v, want STABLE_PRODUCT", got)
	}
}

// TestClassify_DefaultStable строки без правил — обычный товар
func TestClassify_DefaultStable(t *testing.T) {
	c := NewDefaultClassifier()

	if got := c.Classify("Disjoncteur 2A courbe C", "DIS2A123"); got != invoice.FamilyStable {
		t.Errorf("Classify = %v, want STABLE_PRODUCT", got)
	}
	if got := c.Classify("", ""); got != invoice.FamilyStable {
		t.Errorf("Classify пустой строки = %v, want STABLE_PRODUCT", got)
	}
}

// TestFold свертывание текста для сравнения
func TestFold(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Éco-taxé", "ECO-TAXE"},
		{"  livraison   express ", "LIVRAISON EXPRESS"},
		{"Câble cuivre", "CABLE CUIVRE"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Fold(tc.in); got != tc.want {
			t.Errorf("Fold(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
