package backups

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/roulendz/timebank/internal/cli"
	"github.com/roulendz/timebank/internal/holiday"
	"github.com/roulendz/timebank/internal/storage"
	"github.com/roulendz/timebank/internal/storage/sqlite"
)

func setupTestDB(t *testing.T) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "timebank.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	out := &bytes.Buffer{}
	ctx := cli.NewContext(store, cli.WithOutput(out))
	if err := ctx.Open(context.Background()); err != nil {
		t.Fatalf("failed to open context: %v", err)
	}
	return ctx, out
}

func TestBackupCreateAndList(t *testing.T) {
	ctx, out := setupTestDB(t)

	if err := (&BackupListCmd{}).Run(ctx); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out.String(), "No backups found.") {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	out.Reset()
	if err := (&BackupCreateCmd{}).Run(ctx); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !strings.Contains(out.String(), "✓ Backup created: timebank-") {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	out.Reset()
	if err := (&BackupListCmd{}).Run(ctx); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out.String(), "Available sqlite backups (1 total") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestBackupRestore(t *testing.T) {
	ctx, out := setupTestDB(t)

	if err := (&BackupCreateCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	name := strings.TrimSpace(strings.TrimPrefix(out.String(), "✓ Backup created:"))

	if _, err := ctx.Ledger.AddUser("Anna", "", nil); err != nil {
		t.Fatal(err)
	}

	ctx.Confirm = holiday.ConfirmFunc(func(string, string) (bool, error) { return false, nil })
	out.Reset()
	if err := (&BackupRestoreCmd{BackupFile: name}).Run(ctx); err != nil {
		t.Fatalf("declined restore failed: %v", err)
	}
	if !strings.Contains(out.String(), "Restore cancelled.") {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	out.Reset()
	if err := (&BackupRestoreCmd{BackupFile: name, Yes: true}).Run(ctx); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if !strings.Contains(out.String(), "The previous database was saved as") {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	state, err := ctx.Store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(state.Users) != 1 {
		t.Errorf("expected the restored state without Anna, got %d users", len(state.Users))
	}
}

func TestBackupRestoreMissingFile(t *testing.T) {
	ctx, _ := setupTestDB(t)
	if err := (&BackupRestoreCmd{BackupFile: "timebank-nope.db", Yes: true}).Run(ctx); err == nil {
		t.Error("expected error for a missing backup")
	}
}

func TestBackupJSONStore(t *testing.T) {
	store := storage.NewJSONStore(filepath.Join(t.TempDir(), "timebank.json"))
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	out := &bytes.Buffer{}
	ctx := cli.NewContext(store, cli.WithOutput(out))

	if err := (&BackupCreateCmd{}).Run(ctx); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !strings.Contains(out.String(), ".json") {
		t.Errorf("expected a .json backup, got:\n%s", out.String())
	}
}
