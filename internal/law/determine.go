package law

import "custos/internal/geo"

// subdivisionLaws maps country+first-level-subdivision to a jurisdiction.
// Checked before countryLaws because subdivisions can carry stricter rules
// than their country (Quebec, the US states).
var subdivisionLaws = map[string]Jurisdiction{
	"CA-QC": QuebecLaw25,

	"US-CA": USCalifornia,
	"US-VA": USVirginia,
	"US-CO": USColorado,
	"US-CT": USConnecticut,
	"US-UT": USUtah,
	"US-TX": USTexas,
	"US-OR": USOregon,
	"US-MT": USMontana,
	"US-DE": USDelaware,
	"US-IA": USIowa,
	"US-NE": USNebraska,
	"US-NH": USNewHampshire,
	"US-NJ": USNewJersey,
	"US-MN": USMinnesota,
	"US-TN": USTennessee,
	"US-IN": USIndiana,
	"US-KY": USKentucky,
	"US-MD": USMaryland,
	"US-RI": USRhodeIsland,
	"US-FL": USFlorida,
}

// countryLaws maps an ISO 3166-1 alpha-2 country code to a jurisdiction.
// EU and EEA members all resolve to GDPR. The US has no federal entry on
// purpose; only its subdivisions match.
var countryLaws = map[string]Jurisdiction{
	// EU members.
	"AT": GDPR, "BE": GDPR, "BG": GDPR, "HR": GDPR, "CY": GDPR,
	"CZ": GDPR, "DK": GDPR, "EE": GDPR, "FI": GDPR, "FR": GDPR,
	"DE": GDPR, "GR": GDPR, "HU": GDPR, "IE": GDPR, "IT": GDPR,
	"LV": GDPR, "LT": GDPR, "LU": GDPR, "MT": GDPR, "NL": GDPR,
	"PL": GDPR, "PT": GDPR, "RO": GDPR, "SK": GDPR, "SI": GDPR,
	"ES": GDPR, "SE": GDPR,
	// EEA members outside the EU.
	"IS": GDPR, "LI": GDPR, "NO": GDPR,

	// Reserved marker produced by the strictest fallback strategy.
	"EU": GDPR,

	"GB": UKGDPR,
	"CH": SwissFADP,

	"BR": LGPD,
	"CA": PIPEDA,
	"AR": ArgentinaPDPL,
	"CO": ColombiaLDP,
	"MX": MexicoLFPDPPP,
	"CL": ChileLPDP,
	"PE": PeruPDPL,
	"UY": UruguayLPDP,
	"EC": EcuadorLOPDP,

	"JP": JapanAPPI,
	"KR": KoreaPIPA,
	"CN": ChinaPIPL,
	"SG": SingaporePDPA,
	"TH": ThailandPDPA,
	"MY": MalaysiaPDPA,
	"ID": IndonesiaPDP,
	"PH": PhilippinesDPA,
	"VN": VietnamPDPD,
	"TW": TaiwanPDPA,
	"HK": HongKongPDPO,
	"IN": IndiaDPDP,
	"AU": AustraliaAPA,
	"NZ": NewZealandPA,

	"TR": TurkeyKVKK,
	"IL": IsraelPPL,
	"SA": SaudiPDPL,
	"AE": UAEPDPL,
	"QA": QatarPDPPL,
	"BH": BahrainPDPL,
	"ZA": SouthAfricaPOPIA,
	"NG": NigeriaNDPA,
	"KE": KenyaDPA,
	"EG": EgyptPDPL,
	"MA": MoroccoDPL,
}

// Determine maps a resolved location to the best-matching jurisdiction.
// Subdivision matches win over country matches; no match or nil input yields
// JurisdictionNone. Pure function, no I/O.
func Determine(result *geo.Result) Jurisdiction {
	if result == nil || result.Country == "" {
		return JurisdictionNone
	}
	if result.Region != "" {
		if j, ok := subdivisionLaws[result.Country+"-"+result.Region]; ok {
			return j
		}
	}
	if j, ok := countryLaws[result.Country]; ok {
		return j
	}
	return JurisdictionNone
}
