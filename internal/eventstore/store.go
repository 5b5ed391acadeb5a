package eventstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/loqalabs/loqa-podcast/internal/config"
	_ "modernc.org/sqlite"
)

// StageEvent is one entry on a generation's timeline.
type StageEvent struct {
	ID        int64
	RequestID string
	Stage     string
	Language  string
	Status    string
	Payload   []byte
	CreatedAt time.Time
}

// Generation is the stored header of one pipeline request.
type Generation struct {
	RequestID string
	Name      string
	Selector  string
	Status    string
	CreatedAt time.Time
}

// Store records pipeline stage transitions in SQLite. In ephemeral mode it
// keeps nothing and every call is a no-op.
type Store struct {
	db    *sql.DB
	cfg   config.EventStoreConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the event store according to config.
func Open(ctx context.Context, cfg config.EventStoreConfig, log *slog.Logger) (*Store, error) {
	log = log.With(slog.String("component", "event-store"))
	if cfg.RetentionMode == "ephemeral" {
		return &Store{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	if cfg.VacuumOnStart {
		if _, err := db.ExecContext(ctx, "VACUUM"); err != nil {
			log.Warn("event store vacuum failed", slog.String("error", err.Error()))
		}
	}
	if err := s.Prune(ctx); err != nil {
		log.Warn("event store prune on start failed", slog.String("error", err.Error()))
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS generations (
    request_id TEXT PRIMARY KEY,
    name TEXT,
    selector TEXT,
    status TEXT NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS stage_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id TEXT NOT NULL,
    stage TEXT NOT NULL,
    language TEXT,
    status TEXT,
    payload BLOB,
    created_at INTEGER NOT NULL,
    FOREIGN KEY(request_id) REFERENCES generations(request_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_stage_events_request ON stage_events(request_id, id);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

func (s *Store) disabled() bool {
	return s.cfg.RetentionMode == "ephemeral" || s.db == nil
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginGeneration creates the header row for a request.
func (s *Store) BeginGeneration(ctx context.Context, requestID, name, selector string) error {
	if s.disabled() {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generations(request_id, name, selector, status, created_at)
		 VALUES(?, ?, ?, 'running', ?)
		 ON CONFLICT(request_id) DO UPDATE SET name=excluded.name, selector=excluded.selector`,
		requestID, name, selector, s.clock().UTC().UnixMilli())
	return err
}

// FinishGeneration stores the terminal status of a request.
func (s *Store) FinishGeneration(ctx context.Context, requestID, status string) error {
	if s.disabled() {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `UPDATE generations SET status = ? WHERE request_id = ?`, status, requestID)
	return err
}

// RecordStage appends a stage transition to the timeline.
func (s *Store) RecordStage(ctx context.Context, evt StageEvent) error {
	if s.disabled() {
		return nil
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = s.clock()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stage_events(request_id, stage, language, status, payload, created_at)
		 VALUES(?, ?, ?, ?, ?, ?)`,
		evt.RequestID, evt.Stage, evt.Language, evt.Status, evt.Payload, evt.CreatedAt.UTC().UnixMilli())
	return err
}

// GetGeneration returns the header row of a request.
func (s *Store) GetGeneration(ctx context.Context, requestID string) (Generation, error) {
	if s.disabled() {
		return Generation{}, sql.ErrNoRows
	}
	var (
		g       Generation
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT request_id, name, selector, status, created_at FROM generations WHERE request_id = ?`, requestID).
		Scan(&g.RequestID, &g.Name, &g.Selector, &g.Status, &created)
	if err != nil {
		return Generation{}, err
	}
	g.CreatedAt = time.UnixMilli(created).UTC()
	return g, nil
}

// ListStages retrieves up to limit timeline entries for a request in the
// order they were recorded.
func (s *Store) ListStages(ctx context.Context, requestID string, limit int) ([]StageEvent, error) {
	if s.disabled() {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, request_id, stage, language, status, payload, created_at
		 FROM stage_events WHERE request_id = ? ORDER BY id ASC LIMIT ?`, requestID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []StageEvent
	for rows.Next() {
		var (
			e       StageEvent
			lang    sql.NullString
			status  sql.NullString
			created int64
		)
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Stage, &lang, &status, &e.Payload, &created); err != nil {
			return nil, err
		}
		e.Language = lang.String
		e.Status = status.String
		e.CreatedAt = time.UnixMilli(created).UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}

// Prune applies configured retention (called on startup and can be scheduled).
func (s *Store) Prune(ctx context.Context) (err error) {
	if s.disabled() {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if s.cfg.RetentionDays > 0 {
		cutoff := s.clock().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour).UTC().UnixMilli()
		if _, err = tx.ExecContext(ctx, `DELETE FROM stage_events WHERE created_at < ?`, cutoff); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM generations WHERE created_at < ?`, cutoff); err != nil {
			return err
		}
	}
	if s.cfg.MaxSessions > 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM generations WHERE request_id IN (
			SELECT request_id FROM generations ORDER BY created_at DESC LIMIT -1 OFFSET ?
		)`, s.cfg.MaxSessions)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Ensure checks that an ephemeral store holds no database connection.
func (s *Store) Ensure() error {
	if s.cfg.RetentionMode == "ephemeral" && s.db != nil {
		return errors.New("ephemeral store should not have database connection")
	}
	return nil
}
