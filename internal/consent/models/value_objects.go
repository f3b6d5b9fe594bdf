package models

// Category is a coarse purpose bucket for data collection. The "necessary"
// category is always granted, unconditionally.
type Category string

const (
	CategoryNecessary       Category = "necessary"
	CategoryFunctional      Category = "functional"
	CategoryAnalytics       Category = "analytics"
	CategoryMarketing       Category = "marketing"
	CategoryPersonalization Category = "personalization"
)

// categoryCodes is the fixed single-character alphabet used by the compact
// persisted payload. Stored category keys outside this alphabet are dropped
// during sanitization.
var categoryCodes = map[Category]string{
	CategoryNecessary:       "n",
	CategoryFunctional:      "f",
	CategoryAnalytics:       "a",
	CategoryMarketing:       "m",
	CategoryPersonalization: "p",
}

var codeCategories = func() map[string]Category {
	out := make(map[string]Category, len(categoryCodes))
	for category, code := range categoryCodes {
		out[code] = category
	}
	return out
}()

// IsValid checks if the category is one of the supported enum values.
func (c Category) IsValid() bool {
	_, ok := categoryCodes[c]
	return ok
}

// Code returns the single-character payload key for the category.
func (c Category) Code() (string, bool) {
	code, ok := categoryCodes[c]
	return code, ok
}

// CategoryFromCode maps a payload key back to a category.
func CategoryFromCode(code string) (Category, bool) {
	category, ok := codeCategories[code]
	return category, ok
}

// AllCategories returns the full category alphabet. Order is unspecified.
func AllCategories() []Category {
	out := make([]Category, 0, len(categoryCodes))
	for category := range categoryCodes {
		out = append(out, category)
	}
	return out
}

// Service describes one configured trackable integration. Each service
// belongs to exactly one category and may be overridden individually.
type Service struct {
	ID       string   `yaml:"id"`
	Category Category `yaml:"category"`
}
