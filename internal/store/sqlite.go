package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/shelfside/scout-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS decisions (
	id           TEXT PRIMARY KEY,
	asin         TEXT NOT NULL,
	verdict      TEXT NOT NULL,
	skip_reasons TEXT,
	reason       TEXT NOT NULL,
	confidence   REAL NOT NULL,
	roi          REAL,
	profit       REAL,
	max_buy      REAL,
	recommended  REAL,
	decided_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS eligibility (
	asin       TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	condition  TEXT,
	title      TEXT,
	message    TEXT,
	checked_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS items (
	id         TEXT PRIMARY KEY,
	asin       TEXT NOT NULL,
	status     TEXT NOT NULL,
	data       TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS status_events (
	id      TEXT PRIMARY KEY,
	item_id TEXT NOT NULL REFERENCES items(id),
	status  TEXT NOT NULL,
	source  TEXT NOT NULL,
	notes   TEXT,
	at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_asin ON decisions(asin);
CREATE INDEX IF NOT EXISTS idx_decisions_verdict ON decisions(verdict);
CREATE INDEX IF NOT EXISTS idx_eligibility_checked_at ON eligibility(checked_at);
CREATE INDEX IF NOT EXISTS idx_items_status ON items(status);
CREATE INDEX IF NOT EXISTS idx_items_asin ON items(asin);
CREATE INDEX IF NOT EXISTS idx_status_events_item_id ON status_events(item_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveDecision(ctx context.Context, result *model.DecisionResult) error {
	reasons, err := json.Marshal(result.SkipReasons)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal skip reasons")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO decisions (id, asin, verdict, skip_reasons, reason, confidence, roi, profit, max_buy, recommended, decided_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), result.ASIN, string(result.Verdict), string(reasons),
		result.Reason, result.Confidence,
		result.EstimatedROI, result.EstimatedProfit, result.MaxBuyPrice, result.RecommendedPrice,
		result.DecidedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert decision %s", result.ASIN)
}

func (s *SQLiteStore) ListDecisions(ctx context.Context, filter DecisionFilter) ([]model.DecisionResult, error) {
	query := `SELECT asin, verdict, skip_reasons, reason, confidence, roi, profit, max_buy, recommended, decided_at
	          FROM decisions WHERE 1=1`
	var args []any
	if filter.Verdict != "" {
		query += ` AND verdict = ?`
		args = append(args, string(filter.Verdict))
	}
	if filter.ASIN != "" {
		query += ` AND asin = ?`
		args = append(args, filter.ASIN)
	}
	query += ` ORDER BY decided_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list decisions")
	}
	defer rows.Close()

	var results []model.DecisionResult
	for rows.Next() {
		var r model.DecisionResult
		var verdict, reasons string
		if err := rows.Scan(&r.ASIN, &verdict, &reasons, &r.Reason, &r.Confidence,
			&r.EstimatedROI, &r.EstimatedProfit, &r.MaxBuyPrice, &r.RecommendedPrice, &r.DecidedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan decision")
		}
		r.Verdict = model.Verdict(verdict)
		if reasons != "" && reasons != "null" {
			if err := json.Unmarshal([]byte(reasons), &r.SkipReasons); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal skip reasons")
			}
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: iterate decisions")
}

func (s *SQLiteStore) GetEligibility(ctx context.Context, asin string) (*model.EligibilityRecord, error) {
	var rec model.EligibilityRecord
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT asin, status, condition, title, message, checked_at FROM eligibility WHERE asin = ?`,
		asin,
	).Scan(&rec.ASIN, &status, &rec.Condition, &rec.Title, &rec.Message, &rec.CheckedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "eligibility %s", asin)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get eligibility %s", asin)
	}
	rec.Status = model.EligibilityStatus(status)
	return &rec, nil
}

func (s *SQLiteStore) SetEligibility(ctx context.Context, rec *model.EligibilityRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO eligibility (asin, status, condition, title, message, checked_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(asin) DO UPDATE SET
			status = excluded.status,
			condition = excluded.condition,
			title = excluded.title,
			message = excluded.message,
			checked_at = excluded.checked_at`,
		rec.ASIN, string(rec.Status), rec.Condition, rec.Title, rec.Message, rec.CheckedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: set eligibility %s", rec.ASIN)
}

func (s *SQLiteStore) DeleteExpiredEligibility(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	res, err := s.db.ExecContext(ctx, `DELETE FROM eligibility WHERE checked_at < ?`, cutoff)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired eligibility")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: expired eligibility rows affected")
}

func (s *SQLiteStore) CreateItem(ctx context.Context, item *model.Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal item")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO items (id, asin, status, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID, item.ASIN, string(item.Status), string(data), item.CreatedAt.UTC(), item.UpdatedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert item %s", item.ID)
}

func (s *SQLiteStore) GetItem(ctx context.Context, id string) (*model.Item, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM items WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "item %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get item %s", id)
	}
	var item model.Item
	if err := json.Unmarshal([]byte(data), &item); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal item %s", id)
	}
	return &item, nil
}

func (s *SQLiteStore) UpdateItem(ctx context.Context, item *model.Item) error {
	item.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(item)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal item")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET asin = ?, status = ?, data = ?, updated_at = ? WHERE id = ?`,
		item.ASIN, string(item.Status), string(data), item.UpdatedAt, item.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update item %s", item.ID)
	}
	return checkRowsAffected(res, "item", item.ID)
}

func (s *SQLiteStore) ListItems(ctx context.Context, filter ItemFilter) ([]model.Item, error) {
	query := `SELECT data FROM items WHERE 1=1`
	var args []any
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.ASIN != "" {
		query += ` AND asin = ?`
		args = append(args, filter.ASIN)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list items")
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan item")
		}
		var item model.Item
		if err := json.Unmarshal([]byte(data), &item); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal item")
		}
		items = append(items, item)
	}
	return items, eris.Wrap(rows.Err(), "sqlite: iterate items")
}

func (s *SQLiteStore) AppendStatusEvent(ctx context.Context, event *model.StatusEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO status_events (id, item_id, status, source, notes, at) VALUES (?, ?, ?, ?, ?, ?)`,
		event.ID, event.ItemID, string(event.Status), event.Source, event.Notes, event.At.UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert status event for %s", event.ItemID)
}

func (s *SQLiteStore) ListStatusEvents(ctx context.Context, itemID string) ([]model.StatusEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, item_id, status, source, notes, at FROM status_events WHERE item_id = ? ORDER BY at ASC`,
		itemID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list status events for %s", itemID)
	}
	defer rows.Close()

	var events []model.StatusEvent
	for rows.Next() {
		var e model.StatusEvent
		var status string
		if err := rows.Scan(&e.ID, &e.ItemID, &status, &e.Source, &e.Notes, &e.At); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan status event")
		}
		e.Status = model.ItemStatus(status)
		events = append(events, e)
	}
	return events, eris.Wrap(rows.Err(), "sqlite: iterate status events")
}
