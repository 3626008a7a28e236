// Package archive keeps a local SQLite history of generated plans.
package archive

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/felixgeelhaar/runeforge/internal/errors"
	"github.com/felixgeelhaar/runeforge/internal/plan"
)

// DefaultLimit bounds List when no limit is given.
const DefaultLimit = 20

// Entry describes one archived plan
type Entry struct {
	ID               string    `json:"id"`
	PlanHash         string    `json:"plan_hash"`
	BlueprintHash    string    `json:"blueprint_hash"`
	Project          string    `json:"project"`
	Seed             uint64    `json:"seed"`
	RulesFingerprint string    `json:"rules_fingerprint"`
	MonthlyCostUSD   float64   `json:"monthly_cost_usd"`
	CreatedAt        time.Time `json:"created_at"`
}

// ListOptions filters List
type ListOptions struct {
	Project string
	Limit   int
}

// Store is a plan archive backed by a single SQLite file.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens or creates the archive at path.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.NewArchiveOpenError(path, fmt.Errorf("empty path"))
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.NewArchiveOpenError(path, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.NewArchiveOpenError(path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.NewArchiveOpenError(path, err)
	}

	s := &Store{db: db, path: path, now: time.Now}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, errors.NewArchiveOpenError(path, err)
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	stmts := []string{
		`PRAGMA busy_timeout=5000;`,
		`
CREATE TABLE IF NOT EXISTS runeforge_plans (
  id TEXT PRIMARY KEY,
  plan_hash TEXT NOT NULL,
  blueprint_hash TEXT NOT NULL,
  project TEXT NOT NULL,
  seed TEXT NOT NULL,
  rules_fingerprint TEXT NOT NULL,
  monthly_cost_usd REAL NOT NULL,
  created_at_ns INTEGER NOT NULL,
  plan_json BLOB NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS runeforge_plans_hash ON runeforge_plans(plan_hash);`,
		`CREATE INDEX IF NOT EXISTS runeforge_plans_created ON runeforge_plans(created_at_ns);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Path returns the archive file path
func (s *Store) Path() string {
	return s.path
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the archive.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores a plan. Every call adds a new entry, so re-running the same
// selection shows up in the history once per run.
func (s *Store) Record(ctx context.Context, project, rulesFingerprint string, p *plan.StackPlan) (Entry, error) {
	doc, err := plan.Encode(p, plan.FormatJSON)
	if err != nil {
		return Entry{}, errors.NewArchiveWriteError(err)
	}

	e := Entry{
		ID:               uuid.NewString(),
		PlanHash:         p.Meta.PlanHash,
		BlueprintHash:    p.Meta.BlueprintHash,
		Project:          project,
		Seed:             p.Meta.Seed,
		RulesFingerprint: rulesFingerprint,
		MonthlyCostUSD:   p.Estimated.MonthlyCostUSD,
		CreatedAt:        s.now().UTC(),
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO runeforge_plans
  (id, plan_hash, blueprint_hash, project, seed, rules_fingerprint, monthly_cost_usd, created_at_ns, plan_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.PlanHash, e.BlueprintHash, e.Project,
		strconv.FormatUint(e.Seed, 10), e.RulesFingerprint, e.MonthlyCostUSD,
		e.CreatedAt.UnixNano(), doc,
	)
	if err != nil {
		return Entry{}, errors.NewArchiveWriteError(err)
	}
	return e, nil
}

const entryColumns = `id, plan_hash, blueprint_hash, project, seed, rules_fingerprint, monthly_cost_usd, created_at_ns`

// List returns archived entries, newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := `SELECT ` + entryColumns + ` FROM runeforge_plans`
	var args []any
	if opts.Project != "" {
		query += ` WHERE project = ?`
		args = append(args, opts.Project)
	}
	query += ` ORDER BY created_at_ns DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewArchiveQueryError(err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, errors.NewArchiveQueryError(err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewArchiveQueryError(err)
	}
	return entries, nil
}

// Get returns the newest archived plan whose id or plan hash matches ref.
// A plan hash may be given without its "sha256:" prefix, and abbreviated.
func (s *Store) Get(ctx context.Context, ref string) (*plan.StackPlan, Entry, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, Entry{}, errors.NewPlanNotFoundError(ref)
	}
	hashPrefix := ref
	if !strings.HasPrefix(hashPrefix, "sha256:") {
		hashPrefix = "sha256:" + hashPrefix
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+`, plan_json FROM runeforge_plans
WHERE id = ? OR substr(plan_hash, 1, ?) = ?
ORDER BY created_at_ns DESC, id LIMIT 1`, ref, len(hashPrefix), hashPrefix)

	var doc []byte
	e, err := scanEntry(row, &doc)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, Entry{}, errors.NewPlanNotFoundError(ref)
	}
	if err != nil {
		return nil, Entry{}, errors.NewArchiveQueryError(err)
	}

	p, err := plan.Parse(doc)
	if err != nil {
		return nil, Entry{}, errors.NewArchiveQueryError(err)
	}
	return p, e, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner, extra ...any) (Entry, error) {
	var (
		e         Entry
		seed      string
		createdNs int64
	)
	dest := append([]any{
		&e.ID, &e.PlanHash, &e.BlueprintHash, &e.Project, &seed,
		&e.RulesFingerprint, &e.MonthlyCostUSD, &createdNs,
	}, extra...)
	if err := sc.Scan(dest...); err != nil {
		return Entry{}, err
	}
	n, err := strconv.ParseUint(seed, 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("seed %q: %w", seed, err)
	}
	e.Seed = n
	e.CreatedAt = time.Unix(0, createdNs).UTC()
	return e, nil
}
