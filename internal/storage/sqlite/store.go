package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/roulendz/timebank/internal/constants"
	"github.com/roulendz/timebank/internal/logger"
	"github.com/roulendz/timebank/internal/migration"
	"github.com/roulendz/timebank/internal/models"
	"github.com/roulendz/timebank/internal/storage"
	"github.com/roulendz/timebank/migrations"
)

// HistoryLimit is how many replaced blobs are kept in app_state_history
const HistoryLimit = 20

type Store struct {
	path string
	db   *sql.DB
}

func NewStore(path string) *Store {
	return &Store{
		path: path,
	}
}

func (s *Store) Init() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := s.open(); err != nil {
		return err
	}

	if err := s.runMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// seed the initial state so a fresh database already has the default user
	state, err := s.Load()
	if err != nil {
		return err
	}
	if state == nil {
		return s.Save(models.NewState())
	}
	return nil
}

func (s *Store) open() error {
	if s.db != nil {
		return nil
	}
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection serializes writers for the local file
	db.SetMaxOpenConns(1)
	s.db = db
	return nil
}

func (s *Store) connect() error {
	if s.db != nil {
		return nil
	}
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return storage.ErrNotInitialized
	}
	if err := s.open(); err != nil {
		return err
	}
	if err := s.validateSchemaVersion(); err != nil {
		// drop the connection so the next call checks the schema again
		s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

func (s *Store) Load() (*models.State, error) {
	if err := s.connect(); err != nil {
		return nil, err
	}

	var value string
	err := s.db.QueryRow("SELECT value FROM app_state WHERE key = ?", constants.StateKey).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state: %w", err)
	}
	return storage.DecodeState([]byte(value))
}

// Save replaces the state row in one transaction, moving the previous blob
// into app_state_history.
func (s *Store) Save(state *models.State) error {
	if err := s.connect(); err != nil {
		return err
	}

	data, err := storage.EncodeState(state)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO app_state_history (key, value, replaced_at)
		SELECT key, value, ? FROM app_state WHERE key = ?`, now, constants.StateKey); err != nil {
		return fmt.Errorf("failed to archive previous state: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO app_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		constants.StateKey, string(data), now); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}

	if _, err := tx.Exec(`
		DELETE FROM app_state_history WHERE key = ? AND id NOT IN (
			SELECT id FROM app_state_history WHERE key = ? ORDER BY id DESC LIMIT ?
		)`, constants.StateKey, constants.StateKey, HistoryLimit); err != nil {
		return fmt.Errorf("failed to prune state history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit state: %w", err)
	}
	return nil
}

// HistoryCount returns how many previous blobs are archived.
func (s *Store) HistoryCount() (int, error) {
	if err := s.connect(); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM app_state_history WHERE key = ?", constants.StateKey).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

func (s *Store) runMigrations() error {
	_, err := s.applyMigrations(func(msg string) {
		logger.Info(msg)
	})
	return err
}

func (s *Store) applyMigrations(logFn func(string)) (int, error) {
	subFS, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return 0, fmt.Errorf("failed to access sqlite migrations: %w", err)
	}

	runner := migration.NewRunner(s.db, subFS, migration.DriverSQLite)
	return runner.ApplyMigrations(logFn)
}

// Migrate applies pending migrations to an existing database and returns
// how many ran.
func (s *Store) Migrate(logFn func(string)) (int, error) {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return 0, storage.ErrNotInitialized
	}
	if err := s.open(); err != nil {
		return 0, err
	}
	return s.applyMigrations(logFn)
}

func (s *Store) validateSchemaVersion() error {
	subFS, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return fmt.Errorf("failed to access sqlite migrations: %w", err)
	}

	runner := migration.NewRunner(s.db, subFS, migration.DriverSQLite)
	return runner.ValidateVersion()
}

// SchemaVersion reports the applied and latest known schema versions.
func (s *Store) SchemaVersion() (current, latest int, err error) {
	if err := s.connect(); err != nil {
		return 0, 0, err
	}
	subFS, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return 0, 0, err
	}
	runner := migration.NewRunner(s.db, subFS, migration.DriverSQLite)
	if current, err = runner.GetCurrentVersion(); err != nil {
		return 0, 0, err
	}
	latest, err = runner.GetLatestVersion()
	return current, latest, err
}

func (s *Store) GetConfigPath() string {
	return s.path
}

// GetDB returns the underlying database connection, nil before Init or Load.
func (s *Store) GetDB() *sql.DB {
	return s.db
}
