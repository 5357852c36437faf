package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ckpayment/ckmodal/internal/modal"
	"github.com/ckpayment/ckmodal/internal/stats"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

const (
	// topN caps the ranked country and referrer lists.
	topN = 5
	// comparisonSpan is the window the analytics deltas compare.
	comparisonSpan = 30 * 24 * time.Hour
)

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS instances (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tokens (
    instance_id TEXT NOT NULL,
    symbol TEXT NOT NULL,
    is_active INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (instance_id, symbol),
    FOREIGN KEY (instance_id) REFERENCES instances(id)
);

CREATE TABLE IF NOT EXISTS modals (
    id TEXT PRIMARY KEY,
    instance_id TEXT NOT NULL,
    name TEXT NOT NULL,
    config TEXT NOT NULL,
    is_active INTEGER NOT NULL DEFAULT 1,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    FOREIGN KEY (instance_id) REFERENCES instances(id)
);

CREATE INDEX IF NOT EXISTS idx_modals_instance ON modals(instance_id, created_at);

CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    modal_id TEXT NOT NULL,
    event_type TEXT NOT NULL,
    visitor_id TEXT NOT NULL DEFAULT '',
    device TEXT NOT NULL DEFAULT '',
    country TEXT NOT NULL DEFAULT '',
    referrer TEXT NOT NULL DEFAULT '',
    token TEXT NOT NULL DEFAULT '',
    amount REAL NOT NULL DEFAULT 0,
    dedup_key TEXT,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (modal_id) REFERENCES modals(id)
);

CREATE INDEX IF NOT EXISTS idx_events_modal ON events(modal_id, created_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_events_dedup ON events(modal_id, dedup_key);
`

func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serialises writers and keeps per-connection pragmas.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for health checks
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) CreateInstance(ctx context.Context, id, name string, tokens []string) (*Instance, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if name == "" {
		name = id
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now().UTC().UnixMilli()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO instances (id, name, created_at) VALUES (?, ?, ?)`,
		id, name, now,
	); err != nil {
		return nil, fmt.Errorf("failed to insert instance: %w", err)
	}

	for _, symbol := range tokens {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO tokens (instance_id, symbol, is_active) VALUES (?, ?, 1)`,
			id, symbol,
		); err != nil {
			return nil, fmt.Errorf("failed to insert token %s: %w", symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit instance: %w", err)
	}

	return &Instance{ID: id, Name: name, CreatedAt: time.UnixMilli(now).UTC()}, nil
}

func (s *SQLiteStore) ListInstances(ctx context.Context) ([]Instance, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM instances ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	defer rows.Close()

	instances := []Instance{}
	for rows.Next() {
		var in Instance
		var createdAt int64
		if err := rows.Scan(&in.ID, &in.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}
		in.CreatedAt = time.UnixMilli(createdAt).UTC()
		instances = append(instances, in)
	}

	return instances, rows.Err()
}

func (s *SQLiteStore) ListTokens(ctx context.Context, instanceID string) ([]Token, error) {
	if err := s.instanceExists(ctx, instanceID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, is_active FROM tokens WHERE instance_id = ? ORDER BY rowid`,
		instanceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	defer rows.Close()

	tokens := []Token{}
	for rows.Next() {
		var t Token
		if err := rows.Scan(&t.Symbol, &t.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		tokens = append(tokens, t)
	}

	return tokens, rows.Err()
}

func (s *SQLiteStore) SetToken(ctx context.Context, instanceID, symbol string, active bool) error {
	if err := s.instanceExists(ctx, instanceID); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tokens (instance_id, symbol, is_active) VALUES (?, ?, ?)
		 ON CONFLICT(instance_id, symbol) DO UPDATE SET is_active = excluded.is_active`,
		instanceID, symbol, active,
	)
	if err != nil {
		return fmt.Errorf("failed to set token: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, instanceID string) ([]modal.Config, error) {
	if err := s.instanceExists(ctx, instanceID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, instance_id, config, is_active, created_at, updated_at
		 FROM modals WHERE instance_id = ? ORDER BY created_at, rowid`,
		instanceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list modals: %w", err)
	}
	defer rows.Close()

	configs := []modal.Config{}
	for rows.Next() {
		c, err := scanModal(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, c)
	}

	return configs, rows.Err()
}

func (s *SQLiteStore) Create(ctx context.Context, instanceID string, d modal.Draft) (modal.Config, error) {
	if err := s.instanceExists(ctx, instanceID); err != nil {
		return modal.Config{}, err
	}

	configJSON, err := json.Marshal(d)
	if err != nil {
		return modal.Config{}, fmt.Errorf("failed to marshal modal config: %w", err)
	}

	id := uuid.NewString()
	now := s.now().UTC().UnixMilli()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO modals (id, instance_id, name, config, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 1, ?, ?)`,
		id, instanceID, d.Name, string(configJSON), now, now,
	)
	if err != nil {
		return modal.Config{}, fmt.Errorf("failed to insert modal: %w", err)
	}

	return modal.Config{
		ID:         id,
		InstanceID: instanceID,
		Draft:      d.Clone(),
		IsActive:   true,
		CreatedAt:  time.UnixMilli(now).UTC(),
		UpdatedAt:  time.UnixMilli(now).UTC(),
	}, nil
}

func (s *SQLiteStore) Update(ctx context.Context, instanceID, modalID string, d modal.Draft) (modal.Config, error) {
	configJSON, err := json.Marshal(d)
	if err != nil {
		return modal.Config{}, fmt.Errorf("failed to marshal modal config: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE modals SET name = ?, config = ?, updated_at = MAX(created_at, ?)
		 WHERE id = ? AND instance_id = ?`,
		d.Name, string(configJSON), s.now().UTC().UnixMilli(), modalID, instanceID,
	)
	if err != nil {
		return modal.Config{}, fmt.Errorf("failed to update modal: %w", err)
	}
	if err := expectRow(result); err != nil {
		return modal.Config{}, err
	}

	return s.getModal(ctx, instanceID, modalID)
}

func (s *SQLiteStore) SetActive(ctx context.Context, instanceID, modalID string, active bool) (modal.Config, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE modals SET is_active = ?, updated_at = MAX(created_at, ?)
		 WHERE id = ? AND instance_id = ?`,
		active, s.now().UTC().UnixMilli(), modalID, instanceID,
	)
	if err != nil {
		return modal.Config{}, fmt.Errorf("failed to update modal status: %w", err)
	}
	if err := expectRow(result); err != nil {
		return modal.Config{}, err
	}

	return s.getModal(ctx, instanceID, modalID)
}

func (s *SQLiteStore) Delete(ctx context.Context, instanceID, modalID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM modals WHERE id = ? AND instance_id = ?`, modalID, instanceID,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up modal: %w", err)
	}

	// Events reference the modal, so they go first.
	if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE modal_id = ?`, modalID); err != nil {
		return fmt.Errorf("failed to delete events: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM modals WHERE id = ?`, modalID); err != nil {
		return fmt.Errorf("failed to delete modal: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetModal(ctx context.Context, modalID string) (modal.Config, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, instance_id, config, is_active, created_at, updated_at
		 FROM modals WHERE id = ?`, modalID,
	)
	return scanModal(row)
}

func (s *SQLiteStore) getModal(ctx context.Context, instanceID, modalID string) (modal.Config, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, instance_id, config, is_active, created_at, updated_at
		 FROM modals WHERE id = ? AND instance_id = ?`, modalID, instanceID,
	)
	return scanModal(row)
}

func (s *SQLiteStore) RecordEvent(ctx context.Context, e Event) error {
	if e.Type != EventView && e.Type != EventConvert {
		return fmt.Errorf("unknown event type %q", e.Type)
	}

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM modals WHERE id = ?`, e.ModalID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up modal: %w", err)
	}

	at := e.CreatedAt
	if at.IsZero() {
		at = s.now()
	}
	at = at.UTC()

	// A visitor counts as one view per modal per day; conversions always count.
	var dedup sql.NullString
	if e.Type == EventView && e.VisitorID != "" {
		dedup = sql.NullString{String: e.VisitorID + "|" + at.Format("2006-01-02"), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO events
		 (modal_id, event_type, visitor_id, device, country, referrer, token, amount, dedup_key, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ModalID, string(e.Type), e.VisitorID, e.Device, e.Country, e.Referrer,
		e.Token, e.Amount, dedup, at.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	return nil
}

// ListEvents returns every recorded event of a modal, oldest first.
func (s *SQLiteStore) ListEvents(ctx context.Context, instanceID, modalID string) ([]Event, error) {
	if _, err := s.getModal(ctx, instanceID, modalID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT event_type, visitor_id, device, country, referrer, token, amount, created_at
		 FROM events WHERE modal_id = ? ORDER BY created_at, id`,
		modalID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		e := Event{ModalID: modalID}
		var eventType string
		var createdAt int64
		if err := rows.Scan(&eventType, &e.VisitorID, &e.Device, &e.Country, &e.Referrer, &e.Token, &e.Amount, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Type = EventType(eventType)
		e.CreatedAt = time.UnixMilli(createdAt).UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	return events, nil
}

func (s *SQLiteStore) Analytics(ctx context.Context, instanceID, modalID string) (modal.Analytics, error) {
	if _, err := s.getModal(ctx, instanceID, modalID); err != nil {
		return modal.Analytics{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT event_type, device, country, referrer, token, amount, created_at
		 FROM events WHERE modal_id = ? ORDER BY created_at`,
		modalID,
	)
	if err != nil {
		return modal.Analytics{}, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	a := modal.Analytics{
		ModalID:         modalID,
		RevenueByToken:  map[string]float64{},
		DeviceBreakdown: map[string]int64{},
		TopCountries:    []modal.RankedCount{},
		ReferralSources: []modal.RankedCount{},
		Daily:           []modal.DailyPoint{},
	}
	countries := map[string]int64{}
	referrers := map[string]int64{}
	days := map[time.Time]*modal.DailyPoint{}

	for rows.Next() {
		var eventType, device, country, referrer, token string
		var amount float64
		var createdAt int64
		if err := rows.Scan(&eventType, &device, &country, &referrer, &token, &amount, &createdAt); err != nil {
			return modal.Analytics{}, fmt.Errorf("failed to scan event: %w", err)
		}

		day := dayStart(time.UnixMilli(createdAt))
		p, ok := days[day]
		if !ok {
			p = &modal.DailyPoint{Date: day}
			days[day] = p
		}

		switch EventType(eventType) {
		case EventView:
			a.TotalViews++
			p.Views++
			a.DeviceBreakdown[orDefault(device, "unknown")]++
			countries[orDefault(country, "Unknown")]++
			referrers[orDefault(referrer, "Direct")]++
		case EventConvert:
			a.TotalConversions++
			a.TotalRevenue += amount
			p.Conversions++
			p.Revenue += amount
			if token != "" {
				a.RevenueByToken[token] += amount
			}
		}
	}
	if err := rows.Err(); err != nil {
		return modal.Analytics{}, fmt.Errorf("failed to read events: %w", err)
	}

	for _, p := range days {
		a.Daily = append(a.Daily, *p)
	}
	sort.Slice(a.Daily, func(i, j int) bool { return a.Daily[i].Date.Before(a.Daily[j].Date) })

	a.ConversionRate = modal.ConversionRate(a.TotalViews, a.TotalConversions)
	a.TopCountries = ranked(countries, topN)
	a.ReferralSources = ranked(referrers, topN)

	cmp := stats.Compare(a.Daily, dayStart(s.now()).AddDate(0, 0, 1), comparisonSpan)
	a.ViewsChange = cmp.ViewsChange
	a.ConversionsChange = cmp.ConversionsChange
	a.ConversionRateChange = cmp.RateChange
	a.RevenueChange = cmp.RevenueChange

	return a, nil
}

func (s *SQLiteStore) instanceExists(ctx context.Context, instanceID string) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM instances WHERE id = ?`, instanceID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("instance %s: %w", instanceID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to look up instance: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanModal(row scanner) (modal.Config, error) {
	var c modal.Config
	var configJSON string
	var createdAt, updatedAt int64

	err := row.Scan(&c.ID, &c.InstanceID, &configJSON, &c.IsActive, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return modal.Config{}, ErrNotFound
	}
	if err != nil {
		return modal.Config{}, fmt.Errorf("failed to scan modal: %w", err)
	}

	// Rows written before the flat token list existed still decode.
	d, err := modal.DecodeDraft([]byte(configJSON))
	if err != nil {
		return modal.Config{}, err
	}
	c.Draft = d
	c.CreatedAt = time.UnixMilli(createdAt).UTC()
	c.UpdatedAt = time.UnixMilli(updatedAt).UTC()

	return c, nil
}

func expectRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func ranked(counts map[string]int64, limit int) []modal.RankedCount {
	out := make([]modal.RankedCount, 0, len(counts))
	for label, views := range counts {
		out = append(out, modal.RankedCount{Label: label, Views: views})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Views != out[j].Views {
			return out[i].Views > out[j].Views
		}
		return out[i].Label < out[j].Label
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
