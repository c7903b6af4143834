package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/application/commands"
	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/application/queries"
	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/domain"
	"golang.org/x/sync/singleflight"
)

// Refresher runs one refresh cycle.
type Refresher interface {
	Handle(ctx context.Context) (*domain.Snapshot, error)
}

// TrackingHandler handles the board API requests.
type TrackingHandler struct {
	refresh Refresher
	board   *queries.BoardHandler
	summary *queries.SummaryHandler
	members *queries.MembersHandler
	timeout time.Duration
	group   singleflight.Group
	logger  *slog.Logger
}

// TrackingHandlerConfig holds dependencies for the tracking handler.
type TrackingHandlerConfig struct {
	Refresh Refresher
	Board   *queries.BoardHandler
	Summary *queries.SummaryHandler
	Members *queries.MembersHandler
	// RefreshTimeout bounds a refresh independent of the caller.
	RefreshTimeout time.Duration
	Logger         *slog.Logger
}

// NewTrackingHandler creates a new tracking handler.
func NewTrackingHandler(cfg TrackingHandlerConfig) *TrackingHandler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = time.Minute
	}
	return &TrackingHandler{
		refresh: cfg.Refresh,
		board:   cfg.Board,
		summary: cfg.Summary,
		members: cfg.Members,
		timeout: cfg.RefreshTimeout,
		logger:  cfg.Logger,
	}
}

// RefreshResponse is the success envelope of POST /api/v1/refresh. Failures
// answer {"success": false, "error": "..."}.
type RefreshResponse struct {
	Success     bool                    `json:"success"`
	Generation  uint64                  `json:"generation,omitempty"`
	RefreshedAt *time.Time              `json:"refreshedAt,omitempty"`
	Skipped     int                     `json:"skipped,omitempty"`
	Tasks       []domain.NormalizedTask `json:"tasks"`
}

// Refresh handles POST /api/v1/refresh. Concurrent calls share one refresh.
func (h *TrackingHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.timeout)
	defer cancel()

	result, err, shared := h.group.Do("refresh", func() (any, error) {
		return h.refresh.Handle(ctx)
	})
	if err != nil {
		status := http.StatusInternalServerError
		var transportErr *commands.TransportError
		if errors.As(err, &transportErr) {
			status = ErrBadGateway.Status
		}
		h.logger.ErrorContext(r.Context(), "refresh request failed", "error", err, "shared", shared)
		writeJSON(w, status, map[string]any{"success": false, "error": err.Error()})
		return
	}

	snapshot := result.(*domain.Snapshot)
	refreshedAt := snapshot.RefreshedAt
	writeJSON(w, http.StatusOK, RefreshResponse{
		Success:     true,
		Generation:  snapshot.Generation,
		RefreshedAt: &refreshedAt,
		Skipped:     snapshot.Skipped,
		Tasks:       nonNilTasks(snapshot.Tasks),
	})
}

// ListTasks handles GET /api/v1/tasks
func (h *TrackingHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.board.Snapshot(r.Context())
	if err != nil {
		h.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"generation":  snapshot.Generation,
		"refreshedAt": snapshot.RefreshedAt,
		"source":      snapshot.Source,
		"tasks":       nonNilTasks(snapshot.Tasks),
	})
}

// GetBoard handles GET /api/v1/board?member=&tab=
func (h *TrackingHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	member, tab, apiErr := parseFilters(r)
	if apiErr != nil {
		writeError(w, apiErr)
		return
	}

	snapshot, err := h.board.Snapshot(r.Context())
	if err != nil {
		h.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"generation":  snapshot.Generation,
		"refreshedAt": snapshot.RefreshedAt,
		"member":      member,
		"tab":         tab.String(),
		"sections":    queries.BuildBoard(snapshot.Tasks, member, tab),
	})
}

// GetPhase handles GET /api/v1/board/{category}/{phase}
func (h *TrackingHandler) GetPhase(w http.ResponseWriter, r *http.Request) {
	category, err := domain.ParseCategory(r.PathValue("category"))
	if err != nil {
		writeError(w, ErrBadRequest.withMessage("unknown category: "+r.PathValue("category")))
		return
	}
	phase, err := domain.ParsePhase(r.PathValue("phase"))
	if err != nil {
		writeError(w, ErrBadRequest.withMessage("unknown phase: "+r.PathValue("phase")))
		return
	}
	member, tab, apiErr := parseFilters(r)
	if apiErr != nil {
		writeError(w, apiErr)
		return
	}

	tasks, err := h.board.Handle(r.Context(), queries.PhaseQuery{
		Category: category,
		Phase:    phase,
		Member:   member,
		Tab:      tab,
	})
	if err != nil {
		h.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"category": category,
		"label":    category.Label(),
		"phase":    phase,
		"member":   member,
		"tab":      tab.String(),
		"tasks":    tasks,
	})
}

// GetSummary handles GET /api/v1/summary
func (h *TrackingHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.summary.Handle(r.Context())
	if err != nil {
		h.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": summaries})
}

// ListMembers handles GET /api/v1/members
func (h *TrackingHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members := h.members.Handle(r.Context())
	if members == nil {
		members = []domain.Member{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": members})
}

func parseFilters(r *http.Request) (string, domain.Tab, *APIError) {
	q := r.URL.Query()
	tab, err := domain.ParseTab(q.Get("tab"))
	if err != nil {
		return "", domain.TabAll, ErrBadRequest.withMessage("tab must be all, ongoing or done")
	}
	return domain.NormalizeText(q.Get("member")), tab, nil
}

func (h *TrackingHandler) writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrNoSnapshot) {
		writeError(w, ErrNoSnapshot)
		return
	}
	h.logger.ErrorContext(r.Context(), "query failed",
		"path", r.URL.Path,
		"error", err,
	)
	writeError(w, ErrInternalServer)
}

func nonNilTasks(tasks []domain.NormalizedTask) []domain.NormalizedTask {
	if tasks == nil {
		return []domain.NormalizedTask{}
	}
	return tasks
}
