package system

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roulendz/timebank/internal/backup"
	"github.com/roulendz/timebank/internal/cli"
	"github.com/roulendz/timebank/internal/constants"
	"github.com/roulendz/timebank/internal/models"
	"github.com/roulendz/timebank/internal/storage/postgres"
	"github.com/roulendz/timebank/internal/validation"
)

type DoctorCmd struct {
	Fix bool `help:"Repair activities whose used time is out of range."`
}

// schemaVersioned is implemented by stores with migrations
type schemaVersioned interface {
	SchemaVersion() (current, latest int, err error)
}

// sqlBacked exposes the database handle for integrity checks
type sqlBacked interface {
	GetDB() *sql.DB
}

type checkStatus int

const (
	statusOK checkStatus = iota
	statusFail
	statusWarn
	statusSkip
)

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	ctx.Println("Running diagnostics...")
	ctx.Println()

	hasError := false
	report := func(name string, status checkStatus, err error) {
		switch status {
		case statusOK:
			ctx.Printf("✓ %s: OK\n", name)
		case statusFail:
			ctx.Printf("✗ %s: FAIL\n", name)
			ctx.Printf("   Error: %v\n", err)
			hasError = true
		case statusWarn:
			ctx.Printf("⚠ %s: WARNING\n", name)
			ctx.Printf("   %v\n", err)
		case statusSkip:
			ctx.Printf("⊘ %s: SKIPPED (%v)\n", name, err)
		}
	}
	run := func(name string, reachable bool, check func() error) {
		if !reachable {
			report(name, statusSkip, errors.New("database not reachable"))
			return
		}
		if err := check(); err != nil {
			report(name, statusFail, err)
			return
		}
		report(name, statusOK, nil)
	}

	// Check 1: DB reachable
	state, err := checkDBReachable(ctx)
	reachable := err == nil
	if reachable {
		report("Database reachable", statusOK, nil)
	} else {
		report("Database reachable", statusFail, err)
	}

	// Check 2: Schema version
	if versioned, ok := ctx.Store.(schemaVersioned); ok {
		run("Schema version", reachable, func() error { return checkSchemaVersion(versioned) })
	} else {
		report("Schema version", statusSkip, errors.New("storage has no schema"))
	}

	// Check 3: SQLite integrity
	if db, ok := ctx.Store.(sqlBacked); ok {
		run("Database integrity", reachable, func() error { return checkIntegrity(db.GetDB()) })
	}

	// Check 4: Backups present (warning only)
	if err := checkBackupsPresent(ctx); err != nil {
		report("Backups present", statusWarn, err)
	} else {
		report("Backups present", statusOK, nil)
	}

	// Check 5: Default user
	run("Default user", reachable, func() error { return checkDefaultUser(state) })

	// Check 6: Tracking session
	run("Tracking session", reachable, func() error { return checkTrackingState(state) })

	// Check 7: Data validation, optionally repaired
	run("Data validation", reachable, func() error { return cmd.checkValidation(ctx, state) })

	// Check 8: Clock/timezone sanity
	run("Clock/timezone", true, func() error { return checkClockTimezone(ctx) })

	ctx.Println()
	if hasError {
		ctx.Println("Some checks failed.")
		return errors.New("diagnostics failed")
	}
	ctx.Println("All checks passed.")
	return nil
}

func checkDBReachable(ctx *cli.Context) (*models.State, error) {
	state, err := ctx.Store.Load()
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, errors.New("no saved state found, run 'timebank init' first")
	}
	return state, nil
}

func checkSchemaVersion(store schemaVersioned) error {
	current, latest, err := store.SchemaVersion()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if current < latest {
		return fmt.Errorf("schema version %d is behind %d, run 'timebank migrate'", current, latest)
	}
	if current > latest {
		return fmt.Errorf("schema version %d is newer than this binary supports (%d)", current, latest)
	}
	return nil
}

func checkIntegrity(db *sql.DB) error {
	if db == nil {
		return errors.New("database connection is nil")
	}
	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("failed to run integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check reported: %s", result)
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	if _, ok := ctx.Store.(*postgres.Store); ok {
		return errors.New("backups are not managed for PostgreSQL storage")
	}

	backups, err := backup.NewManager(ctx.Store.GetConfigPath()).ListBackups()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return errors.New("no backups found - consider creating one with 'timebank backup create'")
	}
	return nil
}

func checkDefaultUser(state *models.State) error {
	if state.FindUser(constants.DefaultUserID) < 0 {
		return fmt.Errorf("default user %s is missing (it is recreated on next start)", constants.DefaultUserID)
	}
	return nil
}

func checkTrackingState(state *models.State) error {
	ts := state.TrackingState
	if ts == nil {
		return nil
	}
	if !ts.Consistent() {
		return errors.New("tracking state is inconsistent, stop the session with 'timebank track stop' or 'timebank use stop'")
	}
	if ts.Mode() != constants.ModeIdle && ts.UserID != "" && state.FindUser(ts.UserID) < 0 {
		return fmt.Errorf("running session belongs to unknown user %s", ts.UserID)
	}
	return nil
}

func (cmd *DoctorCmd) checkValidation(ctx *cli.Context, state *models.State) error {
	result := validation.New().ValidateState(state)
	if !result.HasConflicts() {
		return nil
	}
	if !cmd.Fix {
		return fmt.Errorf("%s  Run 'timebank doctor --fix' to repair activities", strings.TrimSpace(result.FormatReport()))
	}

	if err := ctx.Open(context.Background()); err != nil {
		return err
	}
	actions := validation.AutoFixActivities(result.Conflicts, ctx.Ledger.GetUsers(), func(userID string, acts []models.Activity) error {
		return ctx.Check(ctx.Ledger.UpdateActivities(userID, acts))
	})
	for _, a := range actions {
		ctx.Printf("   %s\n", a.Action)
	}

	state, err := checkDBReachable(ctx)
	if err != nil {
		return err
	}
	if remaining := validation.New().ValidateState(state); remaining.HasConflicts() {
		return fmt.Errorf("%d conflicts could not be repaired automatically", len(remaining.Conflicts))
	}
	return nil
}

func checkClockTimezone(ctx *cli.Context) error {
	now := ctx.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	if ctx.Location == nil {
		return errors.New("no timezone configured")
	}
	return nil
}
