// Package journal persists committed ledger events in sqlite so they can be
// replayed after the live websocket stream has moved on.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"rewardhub/core/events"
)

const defaultPageSize = 100

// Entry is one journaled event.
type Entry struct {
	Sequence   int64             `json:"sequence"`
	Type       string            `json:"type"`
	CampaignID string            `json:"campaignId,omitempty"`
	Attributes map[string]string `json:"attributes"`
	RecordedAt time.Time         `json:"recordedAt"`
}

// Query filters List. Zero fields match everything.
type Query struct {
	AfterSequence int64
	Type          string
	CampaignID    string
	Limit         int
}

// Journal is an append-only sqlite event log. It implements events.Emitter.
type Journal struct {
	db     *sql.DB
	nowFn  func() time.Time
	logger *slog.Logger
}

var _ events.Emitter = (*Journal)(nil)

// Open opens (or creates) the journal at path. ":memory:" keeps it in memory.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps in-memory databases shared and serialises
	// writers.
	db.SetMaxOpenConns(1)
	j := &Journal{db: db, nowFn: time.Now, logger: slog.Default().With(slog.String("component", "journal"))}
	if err := j.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) init() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS events (
            sequence INTEGER PRIMARY KEY AUTOINCREMENT,
            type TEXT NOT NULL,
            campaign_id TEXT,
            attributes TEXT NOT NULL,
            recorded_at TIMESTAMP NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS events_campaign ON events(campaign_id, sequence);`,
		`CREATE INDEX IF NOT EXISTS events_type ON events(type, sequence);`,
	}
	for _, stmt := range schema {
		if _, err := j.db.Exec(stmt); err != nil {
			return fmt.Errorf("journal schema: %w", err)
		}
	}
	return nil
}

// SetNowFunc overrides the clock used for RecordedAt.
func (j *Journal) SetNowFunc(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	j.nowFn = now
}

// SetLogger overrides the logger used when Emit fails.
func (j *Journal) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	j.logger = logger.With(slog.String("component", "journal"))
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Append stores evt and returns its sequence number.
func (j *Journal) Append(ctx context.Context, evt events.Event) (int64, error) {
	flat := events.Flatten(evt)
	if flat == nil {
		return 0, fmt.Errorf("journal: nil event")
	}
	attrs := flat.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	payload, err := json.Marshal(attrs)
	if err != nil {
		return 0, err
	}
	const stmt = `INSERT INTO events(type, campaign_id, attributes, recorded_at) VALUES (?, ?, ?, ?)`
	var campaign any
	if id := strings.TrimSpace(attrs["campaignId"]); id != "" {
		campaign = id
	}
	res, err := j.db.ExecContext(ctx, stmt, flat.Type, campaign, string(payload), j.nowFn().UTC())
	if err != nil {
		return 0, fmt.Errorf("journal append: %w", err)
	}
	return res.LastInsertId()
}

// Emit implements events.Emitter. Failures are logged; the ledger has
// already committed by the time events are emitted.
func (j *Journal) Emit(evt events.Event) {
	if _, err := j.Append(context.Background(), evt); err != nil {
		j.logger.Error("failed to journal event", slog.Any("error", err))
	}
}

// List returns events matching q in sequence order.
func (j *Journal) List(ctx context.Context, q Query) ([]Entry, error) {
	limit := q.Limit
	if limit <= 0 || limit > 1000 {
		limit = defaultPageSize
	}
	var (
		clauses = []string{"sequence > ?"}
		args    = []any{q.AfterSequence}
	)
	if q.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, q.Type)
	}
	if q.CampaignID != "" {
		clauses = append(clauses, "campaign_id = ?")
		args = append(args, q.CampaignID)
	}
	args = append(args, limit)
	query := `SELECT sequence, type, campaign_id, attributes, recorded_at FROM events WHERE ` +
		strings.Join(clauses, " AND ") + ` ORDER BY sequence ASC LIMIT ?`
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var (
			entry    Entry
			campaign sql.NullString
			payload  string
		)
		if err := rows.Scan(&entry.Sequence, &entry.Type, &campaign, &payload, &entry.RecordedAt); err != nil {
			return nil, err
		}
		entry.CampaignID = campaign.String
		if err := json.Unmarshal([]byte(payload), &entry.Attributes); err != nil {
			return nil, fmt.Errorf("journal entry %d: %w", entry.Sequence, err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// LastSequence returns the highest stored sequence, or zero when empty.
func (j *Journal) LastSequence(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := j.db.QueryRowContext(ctx, `SELECT MAX(sequence) FROM events`).Scan(&seq); err != nil {
		return 0, err
	}
	return seq.Int64, nil
}
