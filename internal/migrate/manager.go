// Package migrate applies versioned goose SQL files to Postgres. Schema
// migrations and seed data are tracked in separate version tables.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
	"github.com/sirupsen/logrus"
)

const (
	defaultMigrationsTable = "schema_migrations"
	defaultSeedsTable      = "schema_seeds"
)

// ErrNothingApplied is returned by Down when no migration has run.
var ErrNothingApplied = errors.New("no migrations applied")

// migrator is the subset of *goose.Provider the manager drives.
type migrator interface {
	Up(ctx context.Context) ([]*goose.MigrationResult, error)
	Down(ctx context.Context) (*goose.MigrationResult, error)
	Status(ctx context.Context) ([]*goose.MigrationStatus, error)
}

// newMigrator is a seam for testing goose.NewProvider.
var newMigrator = func(db *sql.DB, fsys fs.FS, table string) (migrator, error) {
	store, err := database.NewStore(database.DialectPostgres, table)
	if err != nil {
		return nil, err
	}
	p, err := goose.NewProvider("", db, fsys, goose.WithStore(store))
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Manager executes migrations and seeds read from file systems.
type Manager struct {
	db              *sql.DB
	migrations      fs.FS
	seeds           fs.FS
	migrationsTable string
	seedsTable      string
	log             logrus.FieldLogger
}

// Option configures Manager.
type Option func(*Manager)

// WithMigrationsTable overrides the default migrations version table.
func WithMigrationsTable(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.migrationsTable = name
		}
	}
}

// WithSeedsTable overrides the default seeds version table.
func WithSeedsTable(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.seedsTable = name
		}
	}
}

// WithLogger sets the logger that reports each applied file.
func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// NewManager constructs a Manager. Either source may be nil.
func NewManager(db *sql.DB, migrations, seeds fs.FS, opts ...Option) *Manager {
	m := &Manager{
		db:              db,
		migrations:      migrations,
		seeds:           seeds,
		migrationsTable: defaultMigrationsTable,
		seedsTable:      defaultSeedsTable,
		log:             logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Up applies all pending migrations in version order and returns the files applied.
func (m *Manager) Up(ctx context.Context) ([]string, error) {
	return m.up(ctx, m.migrations, m.migrationsTable, "migration")
}

// Seed applies pending seed files. Each seed runs at most once.
func (m *Manager) Seed(ctx context.Context) ([]string, error) {
	return m.up(ctx, m.seeds, m.seedsTable, "seed")
}

// Down rolls back the most recently applied migration and returns its file name.
func (m *Manager) Down(ctx context.Context) (string, error) {
	mig, err := m.open(m.migrations, m.migrationsTable)
	if err != nil {
		if errors.Is(err, goose.ErrNoMigrations) {
			return "", ErrNothingApplied
		}
		return "", err
	}
	res, err := mig.Down(ctx)
	if err != nil {
		if errors.Is(err, goose.ErrNoNextVersion) {
			return "", ErrNothingApplied
		}
		return "", fmt.Errorf("rollback migration: %w", err)
	}
	name := sourceName(res.Source)
	m.log.WithField("migration", name).WithField("duration", res.Duration).Info("migration rolled back")
	return name, nil
}

// Status returns applied migrations in version order.
func (m *Manager) Status(ctx context.Context) ([]string, error) {
	return m.filter(ctx, goose.StateApplied)
}

// Pending returns migrations present in the source but not yet applied.
func (m *Manager) Pending(ctx context.Context) ([]string, error) {
	return m.filter(ctx, goose.StatePending)
}

func (m *Manager) up(ctx context.Context, fsys fs.FS, table, kind string) ([]string, error) {
	mig, err := m.open(fsys, table)
	if err != nil {
		if errors.Is(err, goose.ErrNoMigrations) {
			return nil, nil
		}
		return nil, err
	}
	results, err := mig.Up(ctx)
	// A partial failure still reports what was applied before it.
	var partial *goose.PartialError
	if errors.As(err, &partial) {
		results = partial.Applied
	}
	applied := make([]string, 0, len(results))
	for _, res := range results {
		name := sourceName(res.Source)
		m.log.WithField(kind, name).WithField("duration", res.Duration).Info(kind + " applied")
		applied = append(applied, name)
	}
	if err != nil {
		return applied, fmt.Errorf("apply %s: %w", kind, err)
	}
	return applied, nil
}

func (m *Manager) filter(ctx context.Context, want goose.State) ([]string, error) {
	mig, err := m.open(m.migrations, m.migrationsTable)
	if err != nil {
		if errors.Is(err, goose.ErrNoMigrations) {
			return nil, nil
		}
		return nil, err
	}
	statuses, err := mig.Status(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, st := range statuses {
		if st.State == want {
			out = append(out, sourceName(st.Source))
		}
	}
	return out, nil
}

func (m *Manager) open(fsys fs.FS, table string) (migrator, error) {
	if fsys == nil {
		return nil, goose.ErrNoMigrations
	}
	return newMigrator(m.db, fsys, table)
}

func sourceName(src *goose.Source) string {
	if src == nil {
		return ""
	}
	return path.Base(src.Path)
}
