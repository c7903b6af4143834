package queries

import (
	"context"

	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/domain"
)

// PhaseQuery selects the tasks of one board cell.
type PhaseQuery struct {
	Category domain.Category
	Phase    domain.Phase
	Member   string     // Optional display name; empty means everyone
	Tab      domain.Tab // TabAll disables the ongoing/done partition
}

// FilterPhase answers a phase query over tasks. The tab partition runs first,
// then the owner-list-non-empty test, then the member filter. Input order is
// preserved. A task whose phase flag is set but whose owner list is empty
// never appears.
func FilterPhase(tasks []domain.NormalizedTask, query PhaseQuery) []domain.NormalizedTask {
	filtered := make([]domain.NormalizedTask, 0)
	for _, t := range tasks {
		if t.Category != query.Category {
			continue
		}
		if !matchesTab(t, query.Tab) {
			continue
		}
		if len(t.Owners(query.Phase)) == 0 {
			continue
		}
		if query.Member != "" && !t.HasOwner(query.Phase, query.Member) {
			continue
		}
		filtered = append(filtered, t)
	}
	return filtered
}

func matchesTab(t domain.NormalizedTask, tab domain.Tab) bool {
	switch tab {
	case domain.TabDone:
		return t.IsDone()
	case domain.TabOngoing:
		return !t.IsDone()
	default:
		return true
	}
}

// BoardCell is one category × phase view.
type BoardCell struct {
	Phase domain.Phase            `json:"phase"`
	Tasks []domain.NormalizedTask `json:"tasks"`
}

// BoardSection groups the phase views of one category.
type BoardSection struct {
	Category    domain.Category `json:"category"`
	Label       string          `json:"label"`
	Description string          `json:"description"`
	Discovery   BoardCell       `json:"discovery"`
	Delivery    BoardCell       `json:"delivery"`
}

// BuildBoard answers every category × phase query for a member and tab.
func BuildBoard(tasks []domain.NormalizedTask, member string, tab domain.Tab) []BoardSection {
	sections := make([]BoardSection, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		section := BoardSection{
			Category:    c,
			Label:       c.Label(),
			Description: c.Description(),
		}
		for _, p := range domain.Phases {
			cell := BoardCell{
				Phase: p,
				Tasks: FilterPhase(tasks, PhaseQuery{Category: c, Phase: p, Member: member, Tab: tab}),
			}
			if p == domain.PhaseDelivery {
				section.Delivery = cell
			} else {
				section.Discovery = cell
			}
		}
		sections = append(sections, section)
	}
	return sections
}

// BoardHandler serves phase queries from the published snapshot.
type BoardHandler struct {
	store domain.SnapshotStore
}

// NewBoardHandler creates a new BoardHandler.
func NewBoardHandler(store domain.SnapshotStore) *BoardHandler {
	return &BoardHandler{store: store}
}

// Handle executes a PhaseQuery against the latest snapshot.
func (h *BoardHandler) Handle(ctx context.Context, query PhaseQuery) ([]domain.NormalizedTask, error) {
	snapshot, err := h.store.Latest(ctx)
	if err != nil {
		return nil, err
	}
	return FilterPhase(snapshot.Tasks, query), nil
}

// Board returns every section of the board for the latest snapshot.
func (h *BoardHandler) Board(ctx context.Context, member string, tab domain.Tab) ([]BoardSection, error) {
	snapshot, err := h.store.Latest(ctx)
	if err != nil {
		return nil, err
	}
	return BuildBoard(snapshot.Tasks, member, tab), nil
}

// Snapshot returns the latest published snapshot.
func (h *BoardHandler) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	return h.store.Latest(ctx)
}
