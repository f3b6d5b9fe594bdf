package audit

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// ExportJSON renders the trail oldest-first as a JSON array. The export is a
// read-only view; it never mutates the trail.
func ExportJSON(entries []Entry) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	return json.MarshalIndent(entries, "", "  ")
}

// csvHeader is the fixed column set of the CSV export.
var csvHeader = []string{
	"timestamp", "action", "categories", "services",
	"region", "law", "policy_version", "session_id", "client_signature", "hash",
}

// ExportCSV renders the trail oldest-first as CSV with a header row. Map
// fields are flattened to sorted "id=0/1" lists so the output is stable.
func ExportCSV(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, e := range entries {
		categories := make([]string, 0, len(e.Categories))
		for c, granted := range e.Categories {
			categories = append(categories, string(c)+"="+bit(granted))
		}
		sort.Strings(categories)

		services := make([]string, 0, len(e.Services))
		for id, granted := range e.Services {
			services = append(services, id+"="+bit(granted))
		}
		sort.Strings(services)

		row := []string{
			e.Timestamp.UTC().Format(time.RFC3339),
			string(e.Action),
			strings.Join(categories, ";"),
			strings.Join(services, ";"),
			e.Region,
			e.Law.String(),
			e.PolicyVersion,
			e.SessionID,
			e.ClientSignature,
			e.Hash,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func bit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
