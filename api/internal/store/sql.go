package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	_ "modernc.org/sqlite"

	"eduvane/api/internal/types"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "pgx"
)

// Both dialects accept this DDL.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS submissions (
		id                TEXT PRIMARY KEY,
		user_id           TEXT NOT NULL,
		created_at        BIGINT NOT NULL,
		image_url         TEXT NOT NULL,
		subject           TEXT NOT NULL,
		topic             TEXT NOT NULL,
		score             DOUBLE PRECISION NOT NULL,
		feedback          TEXT NOT NULL,
		improvement_steps TEXT NOT NULL,
		confidence_score  DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS submissions_user_created ON submissions (user_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS practice_sets (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		subject    TEXT NOT NULL,
		topic      TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		questions  TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS practice_sets_user_created ON practice_sets (user_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		id           TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		grade_level  TEXT NOT NULL,
		mode         TEXT NOT NULL
	)`,
}

const defaultListLimit = 50

// SQLStore implements Store on database/sql for SQLite and Postgres.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	sb      sq.StatementBuilderType
}

var _ Store = (*SQLStore)(nil)

// OpenSQLite opens or creates the file at path (":memory:" works too) and
// creates the tables.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer; also keeps ":memory:" on a single database
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite pragma: %w", err)
	}
	return newSQLStore(ctx, db, DialectSQLite)
}

func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return newSQLStore(ctx, db, DialectPostgres)
}

// New wraps an already open database. The tables are created if missing.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLStore, error) {
	return newSQLStore(ctx, db, dialect)
}

func newSQLStore(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLStore, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	s := &SQLStore{db: db, dialect: dialect, sb: sq.StatementBuilder.PlaceholderFormat(sq.Question)}
	if dialect == DialectPostgres {
		s.sb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", s.dialect, err)
		}
	}
	return nil
}

func (s *SQLStore) Dialect() Dialect { return s.dialect }

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) exec(ctx context.Context, b sq.Sqlizer) error {
	q, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	_, err = s.db.ExecContext(ctx, q, args...)
	return err
}

func listLimit(n int) uint64 {
	if n <= 0 {
		return defaultListLimit
	}
	return uint64(n)
}

// SaveSubmission inserts s. Saving the same id again is a no-op.
func (s *SQLStore) SaveSubmission(ctx context.Context, sub types.Submission) error {
	steps, err := json.Marshal(sub.ImprovementSteps)
	if err != nil {
		return fmt.Errorf("encode steps: %w", err)
	}
	err = s.exec(ctx, s.sb.Insert("submissions").
		Columns("id", "user_id", "created_at", "image_url", "subject", "topic",
			"score", "feedback", "improvement_steps", "confidence_score").
		Values(sub.ID, NormalizeUserID(sub.UserID), sub.Timestamp.UnixMilli(), sub.ImageURL,
			sub.Subject, sub.Topic, sub.Score, sub.Feedback, string(steps), sub.ConfidenceScore).
		Suffix("ON CONFLICT (id) DO NOTHING"))
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// ListSubmissions returns the newest limit submissions of userID, newest first.
func (s *SQLStore) ListSubmissions(ctx context.Context, userID string, limit int) ([]types.Submission, error) {
	q, args, err := s.sb.Select("id", "user_id", "created_at", "image_url", "subject", "topic",
		"score", "feedback", "improvement_steps", "confidence_score").
		From("submissions").
		Where(sq.Eq{"user_id": NormalizeUserID(userID)}).
		OrderBy("created_at DESC", "id DESC").
		Limit(listLimit(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	out := []types.Submission{}
	for rows.Next() {
		var (
			sub   types.Submission
			ms    int64
			steps string
		)
		if err := rows.Scan(&sub.ID, &sub.UserID, &ms, &sub.ImageURL, &sub.Subject, &sub.Topic,
			&sub.Score, &sub.Feedback, &steps, &sub.ConfidenceScore); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		sub.Timestamp = time.UnixMilli(ms).UTC()
		if err := json.Unmarshal([]byte(steps), &sub.ImprovementSteps); err != nil {
			return nil, fmt.Errorf("decode steps of %s: %w", sub.ID, err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

func (s *SQLStore) SavePracticeSet(ctx context.Context, p types.PracticeSet) error {
	qs, err := json.Marshal(p.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	err = s.exec(ctx, s.sb.Insert("practice_sets").
		Columns("id", "user_id", "created_at", "subject", "topic", "difficulty", "questions").
		Values(p.ID, NormalizeUserID(p.UserID), p.Timestamp.UnixMilli(), p.Subject, p.Topic,
			string(p.Difficulty), string(qs)).
		Suffix("ON CONFLICT (id) DO NOTHING"))
	if err != nil {
		return fmt.Errorf("insert practice set: %w", err)
	}
	return nil
}

func (s *SQLStore) ListPracticeSets(ctx context.Context, userID string, limit int) ([]types.PracticeSet, error) {
	q, args, err := s.sb.Select("id", "user_id", "created_at", "subject", "topic", "difficulty", "questions").
		From("practice_sets").
		Where(sq.Eq{"user_id": NormalizeUserID(userID)}).
		OrderBy("created_at DESC", "id DESC").
		Limit(listLimit(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query practice sets: %w", err)
	}
	defer rows.Close()

	out := []types.PracticeSet{}
	for rows.Next() {
		var (
			p          types.PracticeSet
			ms         int64
			difficulty string
			qs         string
		)
		if err := rows.Scan(&p.ID, &p.UserID, &ms, &p.Subject, &p.Topic, &difficulty, &qs); err != nil {
			return nil, fmt.Errorf("scan practice set: %w", err)
		}
		p.Timestamp = time.UnixMilli(ms).UTC()
		p.Difficulty = types.ParseDifficulty(difficulty)
		if err := json.Unmarshal([]byte(qs), &p.Questions); err != nil {
			return nil, fmt.Errorf("decode questions of %s: %w", p.ID, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

func (s *SQLStore) GetProfile(ctx context.Context, id string) (types.Profile, error) {
	q, args, err := s.sb.Select("id", "display_name", "grade_level", "mode").
		From("profiles").
		Where(sq.Eq{"id": NormalizeUserID(id)}).
		ToSql()
	if err != nil {
		return types.Profile{}, fmt.Errorf("build query: %w", err)
	}
	var (
		p    types.Profile
		mode string
	)
	err = s.db.QueryRowContext(ctx, q, args...).Scan(&p.ID, &p.DisplayName, &p.GradeLevel, &mode)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Profile{}, ErrNotFound
	}
	if err != nil {
		return types.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	p.Mode = types.Mode(mode)
	return p, nil
}

// UpsertProfile replaces every field of the profile with p.
func (s *SQLStore) UpsertProfile(ctx context.Context, p types.Profile) error {
	if p.Mode == "" {
		p.Mode = types.ModeStandalone
	}
	err := s.exec(ctx, s.sb.Insert("profiles").
		Columns("id", "display_name", "grade_level", "mode").
		Values(NormalizeUserID(p.ID), p.DisplayName, p.GradeLevel, string(p.Mode)).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			display_name = excluded.display_name,
			grade_level = excluded.grade_level,
			mode = excluded.mode`))
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
