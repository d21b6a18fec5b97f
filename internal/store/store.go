// Package store persists decisions, the eligibility cache, and tracked
// inventory. Two backends: SQLite for single-machine use, Postgres for
// shared deployments.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"

	"github.com/shelfside/scout-cli/internal/model"
)

// DecisionFilter specifies criteria for listing saved decisions.
type DecisionFilter struct {
	Verdict model.Verdict `json:"verdict,omitempty"`
	ASIN    string        `json:"asin,omitempty"`
	Limit   int           `json:"limit,omitempty"`
	Offset  int           `json:"offset,omitempty"`
}

// ItemFilter specifies criteria for listing inventory items.
type ItemFilter struct {
	Status model.ItemStatus `json:"status,omitempty"`
	ASIN   string           `json:"asin,omitempty"`
	Limit  int              `json:"limit,omitempty"`
	Offset int              `json:"offset,omitempty"`
}

// Store defines persistence for analysis results, the eligibility cache,
// and the inventory tracker.
type Store interface {
	// Decisions
	SaveDecision(ctx context.Context, result *model.DecisionResult) error
	ListDecisions(ctx context.Context, filter DecisionFilter) ([]model.DecisionResult, error)

	// Eligibility cache
	GetEligibility(ctx context.Context, asin string) (*model.EligibilityRecord, error)
	SetEligibility(ctx context.Context, rec *model.EligibilityRecord) error
	DeleteExpiredEligibility(ctx context.Context, maxAge time.Duration) (int, error)

	// Inventory
	CreateItem(ctx context.Context, item *model.Item) error
	GetItem(ctx context.Context, id string) (*model.Item, error)
	UpdateItem(ctx context.Context, item *model.Item) error
	ListItems(ctx context.Context, filter ItemFilter) ([]model.Item, error)
	AppendStatusEvent(ctx context.Context, event *model.StatusEvent) error
	ListStatusEvents(ctx context.Context, itemID string) ([]model.StatusEvent, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = eris.New("store: not found")

func checkRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "store: rows affected for %s %s", kind, id)
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", kind, id)
	}
	return nil
}
