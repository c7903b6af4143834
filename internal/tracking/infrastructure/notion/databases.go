package notion

import "github.com/letsur-product-team/product-team-dashboard/internal/tracking/domain"

// DatabaseSpec describes how the pages of one Notion database map to raw
// records.
type DatabaseSpec struct {
	Name       string
	DatabaseID string
	Category   domain.Category

	TitleProperty       string
	StatusProperty      string
	DiscoveryProperties []string
	DeliveryProperties  []string

	// Filter is sent as the query filter when set.
	Filter map[string]any
	// Untitled replaces an empty page title.
	Untitled string
}

// DatabaseIDs holds the ids of the four tracked databases.
type DatabaseIDs struct {
	Pitch      string
	Experiment string
	Roadmap    string
	Global     string
}

// DefaultDatabases returns the descriptors of the pitch, problem, IS roadmap
// and global problem databases. Databases with an empty id are left out.
func DefaultDatabases(ids DatabaseIDs) []DatabaseSpec {
	specs := []DatabaseSpec{
		{
			Name:                "pitch",
			DatabaseID:          ids.Pitch,
			Category:            domain.CategoryShapeUp,
			TitleProperty:       "이름",
			StatusProperty:      "상태",
			DiscoveryProperties: []string{"제안자"},
			DeliveryProperties:  []string{"실행자"},
			Filter: map[string]any{
				"property": "6-pagers",
				"relation": map[string]any{"is_not_empty": true},
			},
			Untitled: "Untitled Pitch",
		},
		{
			Name:                "problems",
			DatabaseID:          ids.Experiment,
			Category:            domain.CategoryExperiment,
			TitleProperty:       "Name",
			StatusProperty:      "Status",
			DiscoveryProperties: []string{"Lead"},
			DeliveryProperties:  []string{"Lead", "Members"},
			Untitled:            "Untitled Problem",
		},
		{
			Name:                "roadmap",
			DatabaseID:          ids.Roadmap,
			Category:            domain.CategoryRoadmap,
			TitleProperty:       "이름",
			StatusProperty:      "상태",
			DiscoveryProperties: []string{"담당자"},
			DeliveryProperties:  []string{"담당자"},
			Untitled:            "Untitled Roadmap",
		},
		{
			Name:                "global",
			DatabaseID:          ids.Global,
			Category:            domain.CategoryOther,
			TitleProperty:       "Name",
			StatusProperty:      "Status",
			DiscoveryProperties: []string{"Lead"},
			DeliveryProperties:  []string{"Lead", "Members"},
			Untitled:            "Untitled etc",
		},
	}

	out := specs[:0]
	for _, s := range specs {
		if s.DatabaseID != "" {
			out = append(out, s)
		}
	}
	return out
}
