package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/roulendz/timebank/internal/keyring"
	"github.com/roulendz/timebank/internal/storage"
	"github.com/roulendz/timebank/internal/storage/postgres"
	"github.com/roulendz/timebank/internal/storage/sqlite"
)

// IsPostgres reports whether target is a PostgreSQL URL or key/value DSN.
func IsPostgres(target string) bool {
	return keyring.IsPostgresURL(target) || strings.Contains(target, "host=")
}

// OpenStore picks the provider for target: PostgreSQL for connection
// strings, the JSON file store for *.json paths, SQLite otherwise.
// Embedded passwords are only accepted when trusted, i.e. the string came
// from the keyring or the environment rather than the command line.
func OpenStore(target string, trusted bool) (storage.Provider, error) {
	if IsPostgres(target) {
		if ok, err := postgres.ValidateConnString(target); !ok {
			if !errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return nil, err
			}
			if !trusted {
				return nil, fmt.Errorf("PostgreSQL connection string contains embedded credentials. Use 'timebank keyring set', %s or .pgpass instead", keyring.EnvConnection)
			}
		}
		return postgres.New(target), nil
	}
	target, err := ExpandPath(target)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(target), ".json") {
		return storage.NewJSONStore(target), nil
	}
	return sqlite.NewStore(target), nil
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
