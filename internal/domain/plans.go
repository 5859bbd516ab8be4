package domain

// PlanTier identifies a paid subscription tier.
type PlanTier string

const (
	PlanStarter  PlanTier = "starter"
	PlanStandard PlanTier = "standard"
	PlanPro      PlanTier = "pro"
)

// PlanTrial is the plan label reported for users on the free trial.
const PlanTrial = "trial"

// Trial allowance granted before a paid plan is required.
const (
	TrialDays    = 7
	TrialLessons = 5
)

// ExportFormat is a downloadable lesson format.
type ExportFormat string

const (
	FormatPDF  ExportFormat = "pdf"
	FormatDOCX ExportFormat = "docx"
	FormatTXT  ExportFormat = "txt"
)

// ParseExportFormat returns the format for s and whether it is known.
func ParseExportFormat(s string) (ExportFormat, bool) {
	switch f := ExportFormat(s); f {
	case FormatPDF, FormatDOCX, FormatTXT:
		return f, true
	}
	return "", false
}

// Plan represents a paid tier with its generation caps.
type Plan struct {
	ID            PlanTier       `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	DailyMax      int            `json:"dailyMax"`
	MonthlyMax    int            `json:"monthlyMax"`
	ExportFormats []ExportFormat `json:"exportFormats"`
	PricePence    int            `json:"pricePence"` // monthly price in GBP pence (500 = £5)
	PriceID       string         `json:"priceId"`
	Popular       bool           `json:"popular"`
}

// Default Stripe price IDs, overridable through configuration.
const (
	DefaultStarterPriceID  = "price_1SpaYECVrhYYeZRkoBDVNJU1"
	DefaultStandardPriceID = "price_1SpaYaCVrhYYeZRkzoB3NAVC"
	DefaultProPriceID      = "price_1SpaYuCVrhYYeZRkL3hXHreu"
)

// PlanCatalog holds the paid tiers with their configured price IDs.
type PlanCatalog struct {
	plans []Plan
}

// NewPlanCatalog builds the catalogue. Empty price IDs fall back to the defaults.
func NewPlanCatalog(starterPrice, standardPrice, proPrice string) *PlanCatalog {
	return &PlanCatalog{plans: []Plan{
		{
			ID:            PlanStarter,
			Name:          "Starter",
			Description:   "1 lesson per day, PDF export",
			DailyMax:      1,
			MonthlyMax:    30,
			ExportFormats: []ExportFormat{FormatPDF},
			PricePence:    500, // £5/mo
			PriceID:       orDefault(starterPrice, DefaultStarterPriceID),
		},
		{
			ID:            PlanStandard,
			Name:          "Standard",
			Description:   "3 lessons per day, PDF and Word export",
			DailyMax:      3,
			MonthlyMax:    90,
			ExportFormats: []ExportFormat{FormatPDF, FormatDOCX},
			PricePence:    800, // £8/mo
			PriceID:       orDefault(standardPrice, DefaultStandardPriceID),
			Popular:       true,
		},
		{
			ID:            PlanPro,
			Name:          "Pro",
			Description:   "5 lessons per day, every export format",
			DailyMax:      5,
			MonthlyMax:    150,
			ExportFormats: []ExportFormat{FormatPDF, FormatDOCX, FormatTXT},
			PricePence:    1300, // £13/mo
			PriceID:       orDefault(proPrice, DefaultProPriceID),
		},
	}}
}

// Plans returns a copy of all paid tiers in display order.
func (c *PlanCatalog) Plans() []Plan {
	out := make([]Plan, len(c.plans))
	copy(out, c.plans)
	return out
}

// Get returns the plan for a tier.
func (c *PlanCatalog) Get(tier PlanTier) (Plan, bool) {
	for _, p := range c.plans {
		if p.ID == tier {
			return p, true
		}
	}
	return Plan{}, false
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// DefaultExportFormats returns the formats for a tier when the status
// snapshot does not report any.
func DefaultExportFormats(tier PlanTier) []ExportFormat {
	switch tier {
	case PlanStandard:
		return []ExportFormat{FormatPDF, FormatDOCX}
	case PlanPro:
		return []ExportFormat{FormatPDF, FormatDOCX, FormatTXT}
	default:
		return []ExportFormat{FormatPDF}
	}
}
