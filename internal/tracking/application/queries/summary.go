package queries

import (
	"context"

	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/domain"
)

// CategorySummary counts the tasks of one category. Unclassified tasks count
// toward Total but toward neither phase.
type CategorySummary struct {
	Category     domain.Category `json:"category"`
	Label        string          `json:"label"`
	Total        int             `json:"total"`
	Discovery    int             `json:"discovery"`
	Delivery     int             `json:"delivery"`
	Unclassified int             `json:"unclassified"`
	Done         int             `json:"done"`
}

// Summarize returns one summary per category in board order. Phase counts
// use the same owner-list-non-empty test as the phase views.
func Summarize(tasks []domain.NormalizedTask) []CategorySummary {
	byCategory := make(map[domain.Category]*CategorySummary, len(domain.Categories))
	summaries := make([]CategorySummary, len(domain.Categories))
	for i, c := range domain.Categories {
		summaries[i] = CategorySummary{Category: c, Label: c.Label()}
		byCategory[c] = &summaries[i]
	}

	for _, t := range tasks {
		s, ok := byCategory[t.Category]
		if !ok {
			continue
		}
		s.Total++
		if len(t.DiscoveryOwners) > 0 {
			s.Discovery++
		}
		if len(t.DeliveryOwners) > 0 {
			s.Delivery++
		}
		if t.Phases.Unclassified() {
			s.Unclassified++
		}
		if t.IsDone() {
			s.Done++
		}
	}
	return summaries
}

// SummaryHandler serves category summaries from the published snapshot.
type SummaryHandler struct {
	store domain.SnapshotStore
}

// NewSummaryHandler creates a new SummaryHandler.
func NewSummaryHandler(store domain.SnapshotStore) *SummaryHandler {
	return &SummaryHandler{store: store}
}

// Handle summarizes the latest snapshot.
func (h *SummaryHandler) Handle(ctx context.Context) ([]CategorySummary, error) {
	snapshot, err := h.store.Latest(ctx)
	if err != nil {
		return nil, err
	}
	return Summarize(snapshot.Tasks), nil
}

// MembersHandler lists the roster used by the member filter.
type MembersHandler struct {
	reference domain.ReferenceProvider
}

// NewMembersHandler creates a new MembersHandler.
func NewMembersHandler(reference domain.ReferenceProvider) *MembersHandler {
	return &MembersHandler{reference: reference}
}

// Handle returns the current roster.
func (h *MembersHandler) Handle(ctx context.Context) []domain.Member {
	return h.reference.Reference().Owners.Members()
}
