package cli

import (
	"context"
	"errors"
	"time"

	"github.com/letsur-product-team/product-team-dashboard/adapter/api"
	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/application/queries"
	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/domain"
	"github.com/letsur-product-team/product-team-dashboard/pkg/observability"
)

var errNoApp = errors.New("dashboard is not configured; check the environment and the owner directory")

// App holds the CLI application dependencies.
type App struct {
	Refresh api.Refresher
	Board   *queries.BoardHandler
	Summary *queries.SummaryHandler
	Members *queries.MembersHandler

	Health  *observability.HealthRegistry
	Metrics observability.Metrics

	// HTTPAddr is the listen address of `dashboard serve`.
	HTTPAddr       string
	RefreshTimeout time.Duration
}

// snapshot returns the published snapshot, refreshing first when forced or
// when nothing has been published yet.
func (a *App) snapshot(ctx context.Context, force bool) (*domain.Snapshot, error) {
	if !force {
		snapshot, err := a.Board.Snapshot(ctx)
		if err == nil {
			return snapshot, nil
		}
		if !errors.Is(err, domain.ErrNoSnapshot) {
			return nil, err
		}
	}
	return a.Refresh.Handle(ctx)
}

var app *App

// SetApp sets the CLI application.
func SetApp(a *App) {
	app = a
}

// GetApp returns the CLI application.
func GetApp() *App {
	return app
}
