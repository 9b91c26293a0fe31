// Package state persists local learner state in SQLite: query drafts, the
// hint access log and completed challenges.
//
// The store backs offline practice. Drafts are keyed by challenge, hint
// accesses are appended one row per access, and a challenge can only be
// completed once: later completions return the first record.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/datadetective/academy/pkg/core"
)

// MemoryPath opens a private in-memory store.
const MemoryPath = ":memory:"

var (
	// ErrNotOpened is returned when the store is used before Open.
	ErrNotOpened = errors.New("database not opened")

	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
)

// SQLiteStore is the local state store.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// NewSQLiteStore creates a new SQLite state store instance.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Open opens the database at path and applies migrations.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := path
	if path == MemoryPath || path == "" {
		dsn = MemoryPath
	} else {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// Every connection to :memory: is a different database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path

	if err := s.Migrate(); err != nil {
		_ = db.Close()
		s.db = nil
		return err
	}

	s.logger.Debug("state store opened", "path", path)
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// --- Drafts ---

// LoadDraft returns the saved draft for key.
func (s *SQLiteStore) LoadDraft(ctx context.Context, key core.ChallengeKey) (string, bool, error) {
	if s.db == nil {
		return "", false, ErrNotOpened
	}

	var text string
	err := s.db.QueryRowContext(ctx,
		`SELECT query FROM drafts WHERE unit_id = ? AND challenge_id = ?`,
		key.UnitID, key.ChallengeID,
	).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to load draft: %w", err)
	}
	return text, true, nil
}

// SaveDraft stores text as the draft for key, replacing any previous one.
func (s *SQLiteStore) SaveDraft(ctx context.Context, key core.ChallengeKey, text string) error {
	if s.db == nil {
		return ErrNotOpened
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drafts (unit_id, challenge_id, query, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (unit_id, challenge_id) DO UPDATE SET query = excluded.query, updated_at = excluded.updated_at`,
		key.UnitID, key.ChallengeID, text, s.now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// DeleteDraft removes the draft for key. Deleting a missing draft is not an error.
func (s *SQLiteStore) DeleteDraft(ctx context.Context, key core.ChallengeKey) error {
	if s.db == nil {
		return ErrNotOpened
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM drafts WHERE unit_id = ? AND challenge_id = ?`,
		key.UnitID, key.ChallengeID,
	); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

// --- Hint accesses ---

// RecordHintAccess appends an access to hint level of key. Every access is
// kept, including repeated accesses to the same level.
func (s *SQLiteStore) RecordHintAccess(ctx context.Context, key core.ChallengeKey, level int) error {
	if s.db == nil {
		return ErrNotOpened
	}
	if level < 1 || level > core.MaxHints {
		return fmt.Errorf("invalid hint level %d: must be between 1 and %d", level, core.MaxHints)
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO hint_accesses (id, unit_id, challenge_id, hint_level, accessed_at) VALUES (?, ?, ?, ?, ?)`,
		generateID(), key.UnitID, key.ChallengeID, level, s.now(),
	); err != nil {
		return fmt.Errorf("failed to record hint access: %w", err)
	}
	return nil
}

// HintsUsed returns the highest hint level accessed for key, or 0.
func (s *SQLiteStore) HintsUsed(ctx context.Context, key core.ChallengeKey) (int, error) {
	if s.db == nil {
		return 0, ErrNotOpened
	}

	var level sql.NullInt64
	if err := s.db.QueryRowContext(ctx,
		`SELECT MAX(hint_level) FROM hint_accesses WHERE unit_id = ? AND challenge_id = ?`,
		key.UnitID, key.ChallengeID,
	).Scan(&level); err != nil {
		return 0, fmt.Errorf("failed to count hints: %w", err)
	}
	return int(level.Int64), nil
}

// --- Progress ---

// RecordCompletion stores rec as the completion of its challenge. When the
// challenge was already completed the existing record is returned unchanged
// and already is true.
func (s *SQLiteStore) RecordCompletion(ctx context.Context, rec core.ProgressRecord) (stored core.ProgressRecord, already bool, err error) {
	if s.db == nil {
		return core.ProgressRecord{}, false, ErrNotOpened
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.ProgressRecord{}, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rec.ID = generateID()
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = s.now()
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO progress (id, unit_id, challenge_id, points_earned, hints_used, query, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (unit_id, challenge_id) DO NOTHING`,
		rec.ID, rec.UnitID, rec.ChallengeID, rec.PointsEarned, rec.HintsUsed, rec.Query, rec.CompletedAt,
	)
	if err != nil {
		return core.ProgressRecord{}, false, fmt.Errorf("failed to record completion: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.ProgressRecord{}, false, fmt.Errorf("failed to record completion: %w", err)
	}

	if n == 0 {
		existing, err := getProgress(ctx, tx, rec.Key())
		if err != nil {
			return core.ProgressRecord{}, false, err
		}
		return *existing, true, nil
	}

	if err := tx.Commit(); err != nil {
		return core.ProgressRecord{}, false, fmt.Errorf("failed to commit completion: %w", err)
	}

	s.logger.Debug("challenge completed", "challenge", rec.Key(), "points", rec.PointsEarned)
	return rec, false, nil
}

// GetProgress returns the completion record of key, or ErrNotFound.
func (s *SQLiteStore) GetProgress(ctx context.Context, key core.ChallengeKey) (*core.ProgressRecord, error) {
	if s.db == nil {
		return nil, ErrNotOpened
	}
	return getProgress(ctx, s.db, key)
}

// ListProgress returns every completion ordered by unit and challenge.
func (s *SQLiteStore) ListProgress(ctx context.Context) ([]core.ProgressRecord, error) {
	if s.db == nil {
		return nil, ErrNotOpened
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, unit_id, challenge_id, points_earned, hints_used, query, completed_at
		FROM progress ORDER BY unit_id, challenge_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []core.ProgressRecord
	for rows.Next() {
		var r core.ProgressRecord
		if err := rows.Scan(&r.ID, &r.UnitID, &r.ChallengeID, &r.PointsEarned, &r.HintsUsed, &r.Query, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	return records, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getProgress(ctx context.Context, q queryRower, key core.ChallengeKey) (*core.ProgressRecord, error) {
	r := &core.ProgressRecord{}
	err := q.QueryRowContext(ctx, `
		SELECT id, unit_id, challenge_id, points_earned, hints_used, query, completed_at
		FROM progress WHERE unit_id = ? AND challenge_id = ?`,
		key.UnitID, key.ChallengeID,
	).Scan(&r.ID, &r.UnitID, &r.ChallengeID, &r.PointsEarned, &r.HintsUsed, &r.Query, &r.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("progress for %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return r, nil
}
