// Package downstream translates a consent record into the consent-mode
// signal vocabulary understood by tag managers and analytics loaders.
package downstream

import "custos/internal/consent/models"

// Status is a downstream signal value.
type Status string

const (
	Granted Status = "granted"
	Denied  Status = "denied"
)

// Signal names follow the consent-mode vocabulary.
type Signal string

const (
	AdStorage              Signal = "ad_storage"
	AdUserData             Signal = "ad_user_data"
	AdPersonalization      Signal = "ad_personalization"
	AnalyticsStorage       Signal = "analytics_storage"
	FunctionalityStorage   Signal = "functionality_storage"
	PersonalizationStorage Signal = "personalization_storage"
	SecurityStorage        Signal = "security_storage"
)

// signalCategories maps each signal to the category that controls it.
// security_storage rides on the always-granted necessary category.
var signalCategories = map[Signal]models.Category{
	AdStorage:              models.CategoryMarketing,
	AdUserData:             models.CategoryMarketing,
	AdPersonalization:      models.CategoryMarketing,
	AnalyticsStorage:       models.CategoryAnalytics,
	FunctionalityStorage:   models.CategoryFunctional,
	PersonalizationStorage: models.CategoryPersonalization,
	SecurityStorage:        models.CategoryNecessary,
}

// FromRecord derives the full signal map from a consent record. A nil or
// undecided record denies everything except security_storage.
func FromRecord(record *models.Record) map[Signal]Status {
	out := make(map[Signal]Status, len(signalCategories))
	for signal, category := range signalCategories {
		out[signal] = Denied
		if record != nil && record.Categories[category] {
			out[signal] = Granted
		}
	}
	// Necessary is invariant-true on normalized records; keep the guarantee
	// even for nil input.
	out[SecurityStorage] = Granted
	return out
}

// Unblocked returns the ids of the configured services the record allows to
// load, honoring per-service overrides. Order follows the configuration.
func Unblocked(record *models.Record, services []models.Service) []string {
	if record == nil {
		return nil
	}
	out := make([]string, 0, len(services))
	for _, svc := range services {
		if record.ServiceAllowed(svc) {
			out = append(out, svc.ID)
		}
	}
	return out
}
