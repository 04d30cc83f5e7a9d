package system

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/roulendz/timebank/internal/cli"
	"github.com/roulendz/timebank/internal/models"
	"github.com/roulendz/timebank/internal/storage"
	"github.com/roulendz/timebank/internal/storage/sqlite"
)

func setupTestInitDB(t *testing.T) (*cli.Context, string, func()) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	store := sqlite.NewStore(dbPath)
	ctx := cli.NewContext(store, cli.WithOutput(&bytes.Buffer{}))

	cleanup := func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	}

	return ctx, dbPath, cleanup
}

func TestInitCmd_Success(t *testing.T) {
	ctx, dbPath, cleanup := setupTestInitDB(t)
	defer cleanup()

	cmd := &InitCmd{}
	if err := cmd.Run(ctx); err != nil {
		t.Errorf("init command failed: %v", err)
	}

	// Verify database file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("database file was not created at %s", dbPath)
	}
}

func TestInitCmd_Idempotent(t *testing.T) {
	ctx, _, cleanup := setupTestInitDB(t)
	defer cleanup()

	cmd := &InitCmd{}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("first init failed: %v", err)
	}
	if err := cmd.Run(ctx); err != nil {
		t.Errorf("second init failed (should be idempotent): %v", err)
	}
}

func TestInitCmd_ForceDeletesExisting(t *testing.T) {
	ctx, dbPath, cleanup := setupTestInitDB(t)
	defer cleanup()

	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("initial init failed: %v", err)
	}
	if err := ctx.Open(context.Background()); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if _, err := ctx.Ledger.AddUser("Anna", "", nil); err != nil {
		t.Fatalf("add user failed: %v", err)
	}

	if err := (&InitCmd{Force: true}).Run(ctx); err != nil {
		t.Fatalf("force init failed: %v", err)
	}

	state, err := ctx.Store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(state.Users) != 1 {
		t.Errorf("expected a fresh state with one user, got %d", len(state.Users))
	}

	// the old database was backed up before deletion
	entries, _ := os.ReadDir(filepath.Join(filepath.Dir(dbPath), "backups"))
	if len(entries) == 0 {
		t.Error("expected an automatic backup before --force")
	}
}

func TestInitCmd_ForceRejectsSameSource(t *testing.T) {
	ctx, dbPath, cleanup := setupTestInitDB(t)
	defer cleanup()

	err := (&InitCmd{Force: true, Source: dbPath}).Run(ctx)
	if err == nil || !strings.Contains(err.Error(), "same") {
		t.Errorf("expected same source error, got %v", err)
	}
}

func TestInitCmd_CopiesFromJSONSource(t *testing.T) {
	ctx, _, cleanup := setupTestInitDB(t)
	defer cleanup()

	sourcePath := filepath.Join(t.TempDir(), "timebank.json")
	source := storage.NewJSONStore(sourcePath)
	state := models.NewState()
	state.Users[0].ActivityLog = []models.Activity{{ID: "a1", UserID: state.Users[0].ID, Duration: 60000}}
	state.Users = append(state.Users, models.User{ID: "u-2", Name: "Anna"})
	if err := source.Save(state); err != nil {
		t.Fatalf("failed to seed source: %v", err)
	}

	out := &bytes.Buffer{}
	ctx.Out = out
	if err := (&InitCmd{Source: sourcePath}).Run(ctx); err != nil {
		t.Fatalf("init with source failed: %v", err)
	}
	if !strings.Contains(out.String(), "Copied 2 users, 1 activities and 0 holiday deposits") {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	if err := ctx.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(ctx.Ledger.GetUsers()) != 2 {
		t.Errorf("expected copied users, got %d", len(ctx.Ledger.GetUsers()))
	}
}

func TestInitCmd_RejectsEmptySource(t *testing.T) {
	ctx, _, cleanup := setupTestInitDB(t)
	defer cleanup()

	missing := filepath.Join(t.TempDir(), "missing.json")
	if err := (&InitCmd{Source: missing}).Run(ctx); err == nil {
		t.Error("expected error for a source without state")
	}
}

func TestMigrateCmd(t *testing.T) {
	ctx, _, cleanup := setupTestInitDB(t)
	defer cleanup()

	if err := (&MigrateCmd{}).Run(ctx); err == nil {
		t.Error("expected error migrating an uninitialized database")
	}

	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	out := &bytes.Buffer{}
	ctx.Out = out
	if err := (&MigrateCmd{}).Run(ctx); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if !strings.Contains(out.String(), "Database is up to date") {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	memCtx := cli.NewContext(storage.NewMemoryStore(), cli.WithOutput(out))
	if err := (&MigrateCmd{}).Run(memCtx); err == nil {
		t.Error("expected error for a store without migrations")
	}
}
