package reserve

import "github.com/openclaims/kite/internal/domain"

// severityMultiplier scales the vehicle damage reserve by damage tier. Total
// loss uses 1.0 because the settlement amount is already authoritative.
var severityMultiplier = map[domain.DamageSeverity]float64{
	domain.DamageMinor:     1.1,
	domain.DamageModerate:  1.2,
	domain.DamageSevere:    1.3,
	domain.DamageTotalLoss: 1.0,
}

// injuryReserveTable maps injury type and severity to a dollar reserve range.
// Values are underwriting heuristics, kept as data.
var injuryReserveTable = map[domain.InjuryType]map[domain.InjurySeverity]domain.ReserveRange{
	domain.InjurySoftTissue: {
		domain.InjuryMinor:    {Min: 1000, Max: 5000, Recommended: 2500},
		domain.InjuryModerate: {Min: 3000, Max: 15000, Recommended: 7500},
		domain.InjurySevere:   {Min: 10000, Max: 40000, Recommended: 20000},
	},
	domain.InjuryFracture: {
		domain.InjuryMinor:    {Min: 5000, Max: 20000, Recommended: 10000},
		domain.InjuryModerate: {Min: 15000, Max: 50000, Recommended: 30000},
		domain.InjurySevere:   {Min: 40000, Max: 120000, Recommended: 75000},
	},
	domain.InjuryHead: {
		domain.InjuryMinor:    {Min: 10000, Max: 40000, Recommended: 20000},
		domain.InjuryModerate: {Min: 30000, Max: 100000, Recommended: 60000},
		domain.InjurySevere:   {Min: 100000, Max: 500000, Recommended: 250000},
	},
	domain.InjurySpinal: {
		domain.InjuryMinor:    {Min: 15000, Max: 60000, Recommended: 30000},
		domain.InjuryModerate: {Min: 50000, Max: 200000, Recommended: 100000},
		domain.InjurySevere:   {Min: 200000, Max: 1000000, Recommended: 500000},
	},
	domain.InjuryInternal: {
		domain.InjuryMinor:    {Min: 10000, Max: 40000, Recommended: 20000},
		domain.InjuryModerate: {Min: 40000, Max: 150000, Recommended: 80000},
		domain.InjurySevere:   {Min: 120000, Max: 600000, Recommended: 300000},
	},
	domain.InjuryFatality: {
		domain.InjuryFatal: {Min: 250000, Max: 2000000, Recommended: 1000000},
	},
}

// fallbackInjuryReserve applies when the type/severity pair is not tabled.
var fallbackInjuryReserve = map[domain.InjurySeverity]domain.ReserveRange{
	domain.InjuryMinor:    {Min: 2000, Max: 10000, Recommended: 5000},
	domain.InjuryModerate: {Min: 10000, Max: 40000, Recommended: 20000},
	domain.InjurySevere:   {Min: 40000, Max: 150000, Recommended: 80000},
	domain.InjuryFatal:    {Min: 250000, Max: 2000000, Recommended: 1000000},
}

// Conditional fixed-range add-ons.
var (
	rentalReserve  = domain.ReserveRange{Min: 600, Max: 1800, Recommended: 900}
	towingReserve  = domain.ReserveRange{Min: 150, Max: 500, Recommended: 250}
	legalReserve   = domain.ReserveRange{Min: 2500, Max: 25000, Recommended: 7500}
)

// stateCOLMultiplier adjusts reserve totals for state cost-of-living, bounded
// 0.85-1.25. Unlisted states use 1.0.
var stateCOLMultiplier = map[string]float64{
	"AL": 0.88,
	"AR": 0.85,
	"AZ": 1.00,
	"CA": 1.25,
	"CO": 1.05,
	"CT": 1.12,
	"FL": 1.02,
	"GA": 0.95,
	"IL": 1.00,
	"IN": 0.90,
	"MA": 1.18,
	"MI": 0.92,
	"MO": 0.88,
	"NC": 0.93,
	"NJ": 1.15,
	"NV": 1.02,
	"NY": 1.22,
	"OH": 0.90,
	"OK": 0.86,
	"OR": 1.08,
	"PA": 0.98,
	"TX": 0.96,
	"WA": 1.12,
	"WI": 0.92,
}

// COLMultiplierFor returns the cost-of-living multiplier for a state.
func COLMultiplierFor(state string) float64 {
	if m, ok := stateCOLMultiplier[state]; ok {
		return m
	}
	return 1.0
}

// autoApproveClaimTypes is the allow-list for auto-approval eligibility.
var autoApproveClaimTypes = map[domain.ClaimType]bool{
	domain.ClaimCollision:     true,
	domain.ClaimComprehensive: true,
	domain.ClaimVandalism:     true,
	domain.ClaimWeather:       true,
}
