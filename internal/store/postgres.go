package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/shelfside/scout-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS decisions (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	asin         TEXT NOT NULL,
	verdict      TEXT NOT NULL,
	skip_reasons JSONB,
	reason       TEXT NOT NULL,
	confidence   DOUBLE PRECISION NOT NULL,
	roi          DOUBLE PRECISION,
	profit       DOUBLE PRECISION,
	max_buy      DOUBLE PRECISION,
	recommended  DOUBLE PRECISION,
	decided_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS eligibility (
	asin       TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	condition  TEXT,
	title      TEXT,
	message    TEXT,
	checked_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS items (
	id         TEXT PRIMARY KEY,
	asin       TEXT NOT NULL,
	status     TEXT NOT NULL,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS status_events (
	id      TEXT PRIMARY KEY,
	item_id TEXT NOT NULL REFERENCES items(id),
	status  TEXT NOT NULL,
	source  TEXT NOT NULL,
	notes   TEXT,
	at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_asin ON decisions(asin);
CREATE INDEX IF NOT EXISTS idx_decisions_verdict ON decisions(verdict);
CREATE INDEX IF NOT EXISTS idx_eligibility_checked_at ON eligibility(checked_at);
CREATE INDEX IF NOT EXISTS idx_items_status ON items(status);
CREATE INDEX IF NOT EXISTS idx_items_asin ON items(asin);
CREATE INDEX IF NOT EXISTS idx_status_events_item_id ON status_events(item_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveDecision(ctx context.Context, result *model.DecisionResult) error {
	reasons, err := json.Marshal(result.SkipReasons)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal skip reasons")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO decisions (id, asin, verdict, skip_reasons, reason, confidence, roi, profit, max_buy, recommended, decided_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		uuid.New().String(), result.ASIN, string(result.Verdict), reasons,
		result.Reason, result.Confidence,
		result.EstimatedROI, result.EstimatedProfit, result.MaxBuyPrice, result.RecommendedPrice,
		result.DecidedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: insert decision %s", result.ASIN)
}

func (s *PostgresStore) ListDecisions(ctx context.Context, filter DecisionFilter) ([]model.DecisionResult, error) {
	query := `SELECT asin, verdict, skip_reasons, reason, confidence, roi, profit, max_buy, recommended, decided_at
	          FROM decisions WHERE ($1 = '' OR verdict = $1) AND ($2 = '' OR asin = $2)
	          ORDER BY decided_at DESC LIMIT $3 OFFSET $4`
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, query, string(filter.Verdict), filter.ASIN, limit, filter.Offset)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list decisions")
	}
	defer rows.Close()

	var results []model.DecisionResult
	for rows.Next() {
		var r model.DecisionResult
		var verdict string
		var reasons []byte
		if err := rows.Scan(&r.ASIN, &verdict, &reasons, &r.Reason, &r.Confidence,
			&r.EstimatedROI, &r.EstimatedProfit, &r.MaxBuyPrice, &r.RecommendedPrice, &r.DecidedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan decision")
		}
		r.Verdict = model.Verdict(verdict)
		if len(reasons) > 0 {
			if err := json.Unmarshal(reasons, &r.SkipReasons); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal skip reasons")
			}
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "postgres: iterate decisions")
}

func (s *PostgresStore) GetEligibility(ctx context.Context, asin string) (*model.EligibilityRecord, error) {
	var rec model.EligibilityRecord
	var status string
	err := s.pool.QueryRow(ctx,
		`SELECT asin, status, condition, title, message, checked_at FROM eligibility WHERE asin = $1`,
		asin,
	).Scan(&rec.ASIN, &status, &rec.Condition, &rec.Title, &rec.Message, &rec.CheckedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "eligibility %s", asin)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get eligibility %s", asin)
	}
	rec.Status = model.EligibilityStatus(status)
	return &rec, nil
}

func (s *PostgresStore) SetEligibility(ctx context.Context, rec *model.EligibilityRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO eligibility (asin, status, condition, title, message, checked_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (asin) DO UPDATE SET
			status = EXCLUDED.status,
			condition = EXCLUDED.condition,
			title = EXCLUDED.title,
			message = EXCLUDED.message,
			checked_at = EXCLUDED.checked_at`,
		rec.ASIN, string(rec.Status), rec.Condition, rec.Title, rec.Message, rec.CheckedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: set eligibility %s", rec.ASIN)
}

func (s *PostgresStore) DeleteExpiredEligibility(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	tag, err := s.pool.Exec(ctx, `DELETE FROM eligibility WHERE checked_at < $1`, cutoff)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired eligibility")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) CreateItem(ctx context.Context, item *model.Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal item")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO items (id, asin, status, data, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		item.ID, item.ASIN, string(item.Status), data, item.CreatedAt.UTC(), item.UpdatedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: insert item %s", item.ID)
}

func (s *PostgresStore) GetItem(ctx context.Context, id string) (*model.Item, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM items WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "item %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get item %s", id)
	}
	var item model.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal item %s", id)
	}
	return &item, nil
}

func (s *PostgresStore) UpdateItem(ctx context.Context, item *model.Item) error {
	item.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(item)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal item")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE items SET asin = $1, status = $2, data = $3, updated_at = $4 WHERE id = $5`,
		item.ASIN, string(item.Status), data, item.UpdatedAt, item.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update item %s", item.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "item %s", item.ID)
	}
	return nil
}

func (s *PostgresStore) ListItems(ctx context.Context, filter ItemFilter) ([]model.Item, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM items WHERE ($1 = '' OR status = $1) AND ($2 = '' OR asin = $2)
		 ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		string(filter.Status), filter.ASIN, limit, filter.Offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list items")
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan item")
		}
		var item model.Item
		if err := json.Unmarshal(data, &item); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal item")
		}
		items = append(items, item)
	}
	return items, eris.Wrap(rows.Err(), "postgres: iterate items")
}

func (s *PostgresStore) AppendStatusEvent(ctx context.Context, event *model.StatusEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO status_events (id, item_id, status, source, notes, at) VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID, event.ItemID, string(event.Status), event.Source, event.Notes, event.At.UTC(),
	)
	return eris.Wrapf(err, "postgres: insert status event for %s", event.ItemID)
}

func (s *PostgresStore) ListStatusEvents(ctx context.Context, itemID string) ([]model.StatusEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, item_id, status, source, notes, at FROM status_events WHERE item_id = $1 ORDER BY at ASC`,
		itemID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list status events for %s", itemID)
	}
	defer rows.Close()

	var events []model.StatusEvent
	for rows.Next() {
		var e model.StatusEvent
		var status string
		if err := rows.Scan(&e.ID, &e.ItemID, &status, &e.Source, &e.Notes, &e.At); err != nil {
			return nil, eris.Wrap(err, "postgres: scan status event")
		}
		e.Status = model.ItemStatus(status)
		events = append(events, e)
	}
	return events, eris.Wrap(rows.Err(), "postgres: iterate status events")
}
