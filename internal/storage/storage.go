package storage

import (
	"database/sql"
	"embed"
	"errors"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/graxinc/errutil"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

var (
	// ErrClearNotVerified means a cleared setting still read back as set.
	ErrClearNotVerified = errors.New("storage: cleared setting still present on read-back")
	ErrDuplicateCommand = errors.New("storage: custom command already exists")
)

// Store owns all persisted per-guild state. Read-modify-write operations on
// shared rows take mu so concurrent event handlers cannot interleave.
type Store struct {
	mu      sync.Mutex
	db      *sql.DB
	builder sq.StatementBuilderType

	defaultSpamThreshold int
	defaultPingThreshold int
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errutil.With(err)
	}
	// A single connection keeps SQLite writes serialized and lets
	// :memory: stores survive connection reuse in tests.
	db.SetMaxOpenConns(1)

	return &Store{
		db:                   db,
		builder:              sq.StatementBuilder.PlaceholderFormat(sq.Question).RunWith(db),
		defaultSpamThreshold: 5,
		defaultPingThreshold: 5,
	}, nil
}

// WithAutoModDefaults sets the thresholds seeded into a guild's automod row
// on first touch. Guilds that have set their own values are not affected.
func (s *Store) WithAutoModDefaults(spamThreshold, pingThreshold int) *Store {
	if spamThreshold > 0 {
		s.defaultSpamThreshold = spamThreshold
	}
	if pingThreshold > 0 {
		s.defaultPingThreshold = pingThreshold
	}
	return s
}

func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Store) Migrate() error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return errutil.With(err)
	}
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return errutil.With(err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return errutil.With(err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errutil.With(err)
	}
	return nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
