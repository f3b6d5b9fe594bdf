package law

// registry is the exhaustive jurisdiction table. Parameters reflect the
// configured defaults shipped with the engine; sites can override reconsent
// behavior per deployment (see reconsent.Params).
var registry = map[Jurisdiction]Config{
	GDPR: {
		Model:                   OptIn,
		ExplicitConsent:         true,
		ReconsentDays:           365,
		ReconsentOnPolicyChange: true,
		ReconsentOnNewCategory:  true,
		ShowDecline:             true,
		GranularCategories:      true,
	},
	UKGDPR: {
		Model:                   OptIn,
		ExplicitConsent:         true,
		ReconsentDays:           365,
		ReconsentOnPolicyChange: true,
		ReconsentOnNewCategory:  true,
		ShowDecline:             true,
		GranularCategories:      true,
	},
	SwissFADP: {
		Model:                  OptIn,
		ExplicitConsent:        true,
		ReconsentDays:          365,
		ReconsentOnNewCategory: true,
		ShowDecline:            true,
		GranularCategories:     true,
	},
	LGPD: {
		Model:                   OptIn,
		ExplicitConsent:         true,
		ReconsentDays:           365,
		ReconsentOnPolicyChange: true,
		ReconsentOnNewCategory:  true,
		ShowDecline:             true,
		GranularCategories:      true,
	},
	PIPEDA: {
		Model:              OptIn,
		ExplicitConsent:    true,
		ReconsentDays:      365,
		ShowDecline:        true,
		GranularCategories: true,
	},
	QuebecLaw25: {
		Model:                   OptIn,
		ExplicitConsent:         true,
		ReconsentDays:           365,
		ReconsentOnPolicyChange: true,
		ReconsentOnNewCategory:  true,
		ShowDecline:             true,
		GranularCategories:      true,
	},
	ArgentinaPDPL: {Model: OptIn, ExplicitConsent: true, ReconsentDays: 365, ShowDecline: true, GranularCategories: true},
	ColombiaLDP:   {Model: OptIn, ExplicitConsent: true, ReconsentDays: 365, ShowDecline: true, GranularCategories: true},
	MexicoLFPDPPP: {Model: OptIn, ExplicitConsent: true, ReconsentDays: 365, ShowDecline: true, GranularCategories: true},
	ChileLPDP:     {Model: OptIn, ExplicitConsent: true, ReconsentDays: 365, ShowDecline: true, GranularCategories: true},
	PeruPDPL:      {Model: OptIn, ExplicitConsent: true, ReconsentDays: 365, ShowDecline: true, GranularCategories: true},
	UruguayLPDP:   {Model: OptIn, ExplicitConsent: true, ReconsentDays: 365, ShowDecline: true, GranularCategories: true},
	EcuadorLOPDP:  {Model: OptIn, ExplicitConsent: true, ReconsentDays: 365, ShowDecline: true, GranularCategories: true},

	USCalifornia: {
		Model:                  OptOut,
		ReconsentDays:          365,
		ReconsentOnNewCategory: true,
		ShowDecline:            true,
		GranularCategories:     true,
	},
	USVirginia:     {Model: OptOut, ReconsentDays: 365, ShowDecline: true},
	USColorado:     {Model: OptOut, ReconsentDays: 365, ShowDecline: true},
	USConnecticut:  {Model: OptOut, ReconsentDays: 365, ShowDecline: true},
	USUtah:         {Model: OptOut, ReconsentDays: 365, ShowDecline: true},
	USTexas:        {Model: OptOut, ReconsentDays: 365, ShowDecline: true},
	USOregon:       {Model: OptOut, ReconsentDays: 365, ShowDecline: true},
	USMontana:      {Model: OptOut, ReconsentDays: 365, ShowDecline: true},
	USDelaware:     {Model: OptOut, ReconsentDays: 365, ShowDecline: true},
	USIowa:         {Model: OptOut, ReconsentDays: 365, ShowDecline: true},
	USNebraska:     {Model: OptOut, ReconsentDays: 365, ShowDecline: true},
	USNewHampshire: {Model: OptOut, ReconsentDays: 365, ShowDecline: true},
	USNewJersey:    {Model: OptOut, ReconsentDays: 365, ShowDecline: true},
	USMinnesota:    {Model: OptOut, ReconsentDays: 365, ShowDecline: true},
	USTennessee:    {Model: OptOut, ReconsentDays: 365, ShowDecline: true},
	USIndiana:      {Model: OptOut, ReconsentDays: 365, ShowDecline: true},
	USKentucky:     {Model: OptOut, ReconsentDays: 365, ShowDecline: true},
	USMaryland:     {Model: OptOut, ReconsentDays: 365, ShowDecline: true},
	USRhodeIsland:  {Model: OptOut, ReconsentDays: 365, ShowDecline: true},
	USFlorida:      {Model: OptOut, ReconsentDays: 365, ShowDecline: true},

	JapanAPPI:      {Model: OptIn, ExplicitConsent: true, ReconsentDays: 365, ShowDecline: true},
	KoreaPIPA:      {Model: OptIn, ExplicitConsent: true, ReconsentDays: 365, ShowDecline: true, GranularCategories: true},
	ChinaPIPL:      {Model: OptIn, ExplicitConsent: true, ReconsentDays: 365, ReconsentOnPolicyChange: true, ShowDecline: true, GranularCategories: true},
	SingaporePDPA:  {Model: OptIn, ExplicitConsent: true, ReconsentDays: 365, ShowDecline: true},
	ThailandPDPA:   {Model: OptIn, ExplicitConsent: true, ReconsentDays: 365, ShowDecline: true, GranularCategories: true},
	MalaysiaPDPA:   {Model: OptIn, ExplicitConsent: true, ReconsentDays: 365, ShowDecline: true},
	IndonesiaPDP:   {Model: OptIn, ExplicitConsent: true, ReconsentDays: 365, ShowDecline: true},
	PhilippinesDPA: {Model: OptIn, ExplicitConsent: true, ReconsentDays: 365, ShowDecline: true},
	VietnamPDPD:    {Model: OptIn, ExplicitConsent: true, ReconsentDays: 365, ShowDecline: true},
	TaiwanPDPA:     {Model: OptIn, ExplicitConsent: true, ReconsentDays: 365, ShowDecline: true},
	HongKongPDPO:   {Model: OptOut, ReconsentDays: 365, ShowDecline: true},
	IndiaDPDP:      {Model: OptIn, ExplicitConsent: true, ReconsentDays: 365, ShowDecline: true, GranularCategories: true},
	AustraliaAPA:   {Model: OptOut, ReconsentDays: 365, ShowDecline: true},
	NewZealandPA:   {Model: OptOut, ReconsentDays: 365, ShowDecline: true},

	TurkeyKVKK:       {Model: OptIn, ExplicitConsent: true, ReconsentDays: 365, ShowDecline: true, GranularCategories: true},
	IsraelPPL:        {Model: OptIn, ExplicitConsent: true, ReconsentDays: 365, ShowDecline: true},
	SaudiPDPL:        {Model: OptIn, ExplicitConsent: true, ReconsentDays: 365, ShowDecline: true},
	UAEPDPL:          {Model: OptIn, ExplicitConsent: true, ReconsentDays: 365, ShowDecline: true},
	QatarPDPPL:       {Model: OptIn, ExplicitConsent: true, ReconsentDays: 365, ShowDecline: true},
	BahrainPDPL:      {Model: OptIn, ExplicitConsent: true, ReconsentDays: 365, ShowDecline: true},
	SouthAfricaPOPIA: {Model: OptIn, ExplicitConsent: true, ReconsentDays: 365, ShowDecline: true, GranularCategories: true},
	NigeriaNDPA:      {Model: OptIn, ExplicitConsent: true, ReconsentDays: 365, ShowDecline: true},
	KenyaDPA:         {Model: OptIn, ExplicitConsent: true, ReconsentDays: 365, ShowDecline: true},
	EgyptPDPL:        {Model: OptIn, ExplicitConsent: true, ReconsentDays: 365, ShowDecline: true},
	MoroccoDPL:       {Model: OptIn, ExplicitConsent: true, ReconsentDays: 365, ShowDecline: true},

	// The sentinel carries the most permissive parameters: no consent is
	// required anywhere no law applies.
	JurisdictionNone: {Model: OptOut},
}

// Get returns the configuration for a jurisdiction.
func Get(j Jurisdiction) (Config, bool) {
	cfg, ok := registry[j]
	return cfg, ok
}

// MustGet returns the configuration for a jurisdiction, falling back to the
// sentinel configuration for unknown values so callers cannot end up without
// parameters.
func MustGet(j Jurisdiction) Config {
	if cfg, ok := registry[j]; ok {
		return cfg
	}
	return registry[JurisdictionNone]
}

// MostProtective returns the jurisdiction assumed under the strictest
// fallback strategy.
func MostProtective() Jurisdiction {
	return GDPR
}

// All returns every configured jurisdiction id. Order is unspecified.
func All() []Jurisdiction {
	out := make([]Jurisdiction, 0, len(registry))
	for j := range registry {
		out = append(out, j)
	}
	return out
}
