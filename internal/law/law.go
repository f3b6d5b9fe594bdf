// Package law models privacy jurisdictions as a closed enumeration with an
// exhaustive configuration table. It encodes configured legal parameters, not
// legal advice.
package law

// Jurisdiction identifies a configured privacy regime. The set is closed:
// every value used anywhere in the engine must appear in the registry table.
type Jurisdiction string

const (
	// JurisdictionNone is the sentinel for "no specific law applies".
	JurisdictionNone Jurisdiction = "none"

	// Europe and nearby regimes.
	GDPR      Jurisdiction = "gdpr"
	UKGDPR    Jurisdiction = "uk-gdpr"
	SwissFADP Jurisdiction = "swiss-fadp"

	// Americas.
	LGPD          Jurisdiction = "lgpd"            // Brazil
	PIPEDA        Jurisdiction = "pipeda"          // Canada (federal)
	QuebecLaw25   Jurisdiction = "quebec-law-25"   // Canada, Quebec
	ArgentinaPDPL Jurisdiction = "argentina-pdpl"
	ColombiaLDP   Jurisdiction = "colombia-ldp"
	MexicoLFPDPPP Jurisdiction = "mexico-lfpdppp"
	ChileLPDP     Jurisdiction = "chile-lpdp"
	PeruPDPL      Jurisdiction = "peru-pdpl"
	UruguayLPDP   Jurisdiction = "uruguay-lpdp"
	EcuadorLOPDP  Jurisdiction = "ecuador-lopdp"

	// United States, state acts. There is no federal consumer privacy law, so
	// a US country-only match resolves to JurisdictionNone.
	USCalifornia   Jurisdiction = "us-ca-ccpa"
	USVirginia     Jurisdiction = "us-va-vcdpa"
	USColorado     Jurisdiction = "us-co-cpa"
	USConnecticut  Jurisdiction = "us-ct-ctdpa"
	USUtah         Jurisdiction = "us-ut-ucpa"
	USTexas        Jurisdiction = "us-tx-tdpsa"
	USOregon       Jurisdiction = "us-or-ocpa"
	USMontana      Jurisdiction = "us-mt-mcdpa"
	USDelaware     Jurisdiction = "us-de-dpdpa"
	USIowa         Jurisdiction = "us-ia-icdpa"
	USNebraska     Jurisdiction = "us-ne-ndpa"
	USNewHampshire Jurisdiction = "us-nh-nhpa"
	USNewJersey    Jurisdiction = "us-nj-njdpa"
	USMinnesota    Jurisdiction = "us-mn-mcdpa"
	USTennessee    Jurisdiction = "us-tn-tipa"
	USIndiana      Jurisdiction = "us-in-icdpa"
	USKentucky     Jurisdiction = "us-ky-kcdpa"
	USMaryland     Jurisdiction = "us-md-modpa"
	USRhodeIsland  Jurisdiction = "us-ri-ridtppa"
	USFlorida      Jurisdiction = "us-fl-fdbr"

	// Asia-Pacific.
	JapanAPPI      Jurisdiction = "japan-appi"
	KoreaPIPA      Jurisdiction = "korea-pipa"
	ChinaPIPL      Jurisdiction = "china-pipl"
	SingaporePDPA  Jurisdiction = "singapore-pdpa"
	ThailandPDPA   Jurisdiction = "thailand-pdpa"
	MalaysiaPDPA   Jurisdiction = "malaysia-pdpa"
	IndonesiaPDP   Jurisdiction = "indonesia-pdp"
	PhilippinesDPA Jurisdiction = "philippines-dpa"
	VietnamPDPD    Jurisdiction = "vietnam-pdpd"
	TaiwanPDPA     Jurisdiction = "taiwan-pdpa"
	HongKongPDPO   Jurisdiction = "hong-kong-pdpo"
	IndiaDPDP      Jurisdiction = "india-dpdp"
	AustraliaAPA   Jurisdiction = "australia-privacy-act"
	NewZealandPA   Jurisdiction = "new-zealand-privacy-act"

	// Middle East and Africa.
	TurkeyKVKK       Jurisdiction = "turkey-kvkk"
	IsraelPPL        Jurisdiction = "israel-ppl"
	SaudiPDPL        Jurisdiction = "saudi-pdpl"
	UAEPDPL          Jurisdiction = "uae-pdpl"
	QatarPDPPL       Jurisdiction = "qatar-pdppl"
	BahrainPDPL      Jurisdiction = "bahrain-pdpl"
	SouthAfricaPOPIA Jurisdiction = "south-africa-popia"
	NigeriaNDPA      Jurisdiction = "nigeria-ndpa"
	KenyaDPA         Jurisdiction = "kenya-dpa"
	EgyptPDPL        Jurisdiction = "egypt-pdpl"
	MoroccoDPL       Jurisdiction = "morocco-dpl"
)

// ConsentModel distinguishes regimes that require consent before collection
// from regimes that permit collection until the visitor objects.
type ConsentModel string

const (
	OptIn  ConsentModel = "opt-in"
	OptOut ConsentModel = "opt-out"
)

// Config carries the consent parameters of one jurisdiction.
type Config struct {
	Model ConsentModel

	// ExplicitConsent requires an affirmative act before any non-necessary
	// processing starts.
	ExplicitConsent bool

	// ReconsentDays is the maximum age of a stored decision before it must be
	// re-asked. Zero means no time-based reconsent.
	ReconsentDays int

	// ReconsentOnPolicyChange forces reconsent when the site's policy version
	// changes.
	ReconsentOnPolicyChange bool

	// ReconsentOnNewCategory forces reconsent when a category the visitor has
	// never seen is added.
	ReconsentOnNewCategory bool

	// ShowDecline requires a reject affordance of equal prominence.
	ShowDecline bool

	// GranularCategories requires per-category choice, not just accept/reject.
	GranularCategories bool
}

// IsValid reports whether j appears in the registry table.
func (j Jurisdiction) IsValid() bool {
	_, ok := registry[j]
	return j == JurisdictionNone || ok
}

// String implements fmt.Stringer.
func (j Jurisdiction) String() string { return string(j) }
