package system

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roulendz/timebank/internal/cli"
	"github.com/roulendz/timebank/internal/storage"
)

type InitCmd struct {
	Force  bool   `help:"Force reset by deleting existing database before initialization."`
	Source string `help:"Source database path or connection string to copy data from."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	// If force flag is provided, delete existing database
	if c.Force && !cli.IsPostgres(c.Source) {
		dbPath := ctx.Store.GetConfigPath()
		if c.Source != "" {
			absDbPath, err := filepath.Abs(dbPath)
			if err == nil {
				dbPath = absDbPath
			}
			absSource, err := filepath.Abs(c.Source)
			if err == nil && absSource == dbPath {
				return fmt.Errorf("cannot use --force when source and destination are the same: %s", dbPath)
			}
		}
		if _, err := os.Stat(dbPath); err == nil {
			// close first so the file is not locked
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			ctx.PerformAutomaticBackup()
			if err := os.Remove(dbPath); err != nil {
				return fmt.Errorf("failed to delete existing database: %w", err)
			}
			ctx.Printf("Deleted existing database at: %s\n", dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	ctx.Printf("Initialized timebank storage at: %s\n", ctx.Store.GetConfigPath())

	if c.Source != "" {
		ctx.Printf("Copying data from: %s\n", c.Source)
		if err := c.copyData(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		ctx.Println("Migration completed successfully!")
	}

	return nil
}

// copyData replaces the destination state with the source state as a whole.
func (c *InitCmd) copyData(ctx *cli.Context) error {
	source, err := cli.OpenStore(c.Source, false)
	if err != nil {
		return err
	}
	defer source.Close()

	state, err := source.Load()
	if err != nil {
		return fmt.Errorf("failed to load source database: %w", err)
	}
	if state == nil {
		return errors.New("source database has no saved state")
	}

	activities, deposits := 0, 0
	for _, u := range state.Users {
		activities += len(u.ActivityLog)
		deposits += len(u.Deposits)
	}

	if err := ctx.Store.Save(state); err != nil {
		return fmt.Errorf("failed to save state to destination: %w", err)
	}
	ctx.Printf("  Copied %d users, %d activities and %d holiday deposits\n", len(state.Users), activities, deposits)
	return nil
}

// migrator is implemented by stores with a versioned schema
type migrator interface {
	storage.Provider
	Migrate(logFn func(string)) (int, error)
}
