package domain

// CategoryOverride forces the category of one external record regardless of
// the database it came from.
type CategoryOverride struct {
	ExternalID string   `json:"externalId" yaml:"external_id"`
	Category   Category `json:"category" yaml:"category"`
	Reason     string   `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// OverrideTable holds category overrides keyed by external id.
type OverrideTable struct {
	byID map[string]CategoryOverride
}

// NewOverrideTable builds a table from a list of overrides. Later entries for
// the same id replace earlier ones; entries without an id or with an invalid
// category are ignored.
func NewOverrideTable(overrides ...CategoryOverride) OverrideTable {
	t := OverrideTable{byID: make(map[string]CategoryOverride, len(overrides))}
	for _, o := range overrides {
		o.ExternalID = NormalizeText(o.ExternalID)
		if o.ExternalID == "" || !o.Category.IsValid() {
			continue
		}
		t.byID[o.ExternalID] = o
	}
	return t
}

// Lookup returns the override registered for externalID.
func (t OverrideTable) Lookup(externalID string) (CategoryOverride, bool) {
	if externalID == "" {
		return CategoryOverride{}, false
	}
	o, ok := t.byID[externalID]
	return o, ok
}

// Apply returns the overridden category for externalID, or fallback.
func (t OverrideTable) Apply(externalID string, fallback Category) Category {
	if o, ok := t.Lookup(externalID); ok {
		return o.Category
	}
	return fallback
}

// Len returns the number of overrides.
func (t OverrideTable) Len() int {
	return len(t.byID)
}
