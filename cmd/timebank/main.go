package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/roulendz/timebank/internal/cli"
	"github.com/roulendz/timebank/internal/cli/backups"
	"github.com/roulendz/timebank/internal/cli/bank"
	"github.com/roulendz/timebank/internal/cli/settings"
	"github.com/roulendz/timebank/internal/cli/system"
	"github.com/roulendz/timebank/internal/cli/tracking"
	"github.com/roulendz/timebank/internal/cli/users"
	"github.com/roulendz/timebank/internal/constants"
	errs "github.com/roulendz/timebank/internal/errors"
	"github.com/roulendz/timebank/internal/feedback"
	"github.com/roulendz/timebank/internal/keyring"
	"github.com/roulendz/timebank/internal/logger"
	"github.com/roulendz/timebank/internal/utils"
)

var CLI struct {
	Version     kong.VersionFlag
	Config      string `help:"Database file path (.db for SQLite, .json for a plain file) or PostgreSQL connection string. For PostgreSQL, credentials must NOT be embedded in the connection string. Use the keyring, TIMEBANK_DB_CONNECTION or .pgpass instead." type:"string" default:"${default_config}"`
	Debug       bool   `help:"Enable debug logging to stderr."`
	User        string `short:"u" help:"Act as this user (id, name or nickname) instead of the current one."`
	Timezone    string `help:"IANA timezone used for 'today' and the week boundaries." default:"Local"`
	MetricsFile string `help:"Write Prometheus metrics to this file on exit." type:"path"`

	Init    system.InitCmd     `cmd:"" help:"Initialize timebank storage."`
	Migrate system.MigrateCmd  `cmd:"" help:"Run database migrations."`
	Doctor  system.DoctorCmd   `cmd:"" help:"Run health checks and diagnostics."`
	Tui     system.TuiCmd      `cmd:"" help:"Launch the interactive countdown." default:"1"`
	Status  tracking.StatusCmd `cmd:"" help:"Show the running session and today's balance."`
	Track   struct {
		Start tracking.TrackStartCmd `cmd:"" help:"Start tracking an activity."`
		Stop  tracking.TrackStopCmd  `cmd:"" help:"Stop tracking and record the activity."`
	} `cmd:"" help:"Earn time by tracking activities."`
	Use struct {
		Start tracking.UseStartCmd `cmd:"" help:"Start spending available time."`
		Stop  tracking.UseStopCmd  `cmd:"" help:"Stop spending time."`
	} `cmd:"" help:"Spend earned time."`
	Wallet  bank.WalletCmd `cmd:"" help:"Show today's wallet and the holiday wallet."`
	Holiday struct {
		Deposit bank.HolidayDepositCmd `cmd:"" help:"Move an activity's remaining time to the holiday wallet."`
		Cancel  bank.HolidayCancelCmd  `cmd:"" help:"Cancel a holiday deposit, forfeiting its bonus."`
		List    bank.HolidayListCmd    `cmd:"" help:"List holiday deposits." default:"1"`
	} `cmd:"" help:"Manage the holiday wallet."`
	UserCmd struct {
		Add    users.UserAddCmd    `cmd:"" help:"Add a new user."`
		List   users.UserListCmd   `cmd:"" help:"List all users." default:"1"`
		Edit   users.UserEditCmd   `cmd:"" help:"Edit a user."`
		Delete users.UserDeleteCmd `cmd:"" help:"Delete a user and their data."`
		Select users.UserSelectCmd `cmd:"" help:"Make a user the current one."`
	} `cmd:"" name:"user" help:"Manage users."`
	Settings settings.SettingsCmd `cmd:"" help:"Manage per-user settings."`
	Backup   struct {
		Create  backups.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    backups.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore backups.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage database backups."`
	Keyring struct {
		Set    system.KeyringSetCmd    `cmd:"" help:"Store the PostgreSQL connection string in the OS keyring."`
		Get    system.KeyringGetCmd    `cmd:"" help:"Show the stored connection string (password masked)."`
		Delete system.KeyringDeleteCmd `cmd:"" help:"Remove the stored connection string."`
		Status system.KeyringStatusCmd `cmd:"" help:"Show where the database connection comes from." default:"1"`
	} `cmd:"" help:"Manage the PostgreSQL connection in the OS keyring."`
	DebugCmd system.DebugCmd  `cmd:"" name:"debug" help:"Debug commands for troubleshooting."`
	Notify   system.NotifyCmd `cmd:"" hidden:"" help:"Send a notification to the tray app."`
}

// commands that manage storage themselves and must run before it loads
var skipOpen = map[string]bool{
	"init":           true,
	"migrate":        true,
	"doctor":         true,
	"backup list":    true,
	"backup restore": true,
	"keyring set":    true,
	"keyring get":    true,
	"keyring delete": true,
	"keyring status": true,
	"debug db-path":  true,
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("TimeBank Kids: earn screen time by tracking activities, spend it, save it for the holidays"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":        constants.Version,
			"default_config": constants.DefaultConfigPath,
		},
	)

	target, trusted, err := resolveTarget(CLI.Config)
	if err != nil {
		errs.Fatal(err)
	}

	if err := logger.Init(logger.Config{
		Debug:     CLI.Debug,
		ConfigDir: logDir(target),
		Quiet:     commandPath(ctx) == "tui",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}

	loc, err := utils.LoadLocation(CLI.Timezone)
	if err != nil {
		errs.Fatalf("invalid timezone %q: %v", CLI.Timezone, err)
	}

	store, err := cli.OpenStore(target, trusted)
	if err != nil {
		errs.Fatal(err)
	}
	defer store.Close()

	notifier := feedback.New()
	appCtx := cli.NewContext(store,
		cli.WithLocation(loc),
		cli.WithConfirmer(cli.HuhConfirmer{}),
		cli.WithFeedback(notifier),
	)
	appCtx.UserFlag = CLI.User
	appCtx.MetricsFile = CLI.MetricsFile
	unregister := notifier.Register(appCtx.Bus)
	defer unregister()

	// Load the ledger before running the command (storage commands handle their own loading)
	if !skipOpen[commandPath(ctx)] {
		if err := appCtx.Open(context.Background()); err != nil {
			errs.Fatal(err)
		}
	}

	err = ctx.Run(appCtx)
	appCtx.Finish()
	if err != nil {
		store.Close()
		errs.Fatal(err)
	}
}

// resolveTarget applies the connection precedence: an explicit --config,
// then TIMEBANK_DB_CONNECTION, then the keyring, then the default file.
// Only strings from the environment or the keyring may carry a password.
func resolveTarget(config string) (string, bool, error) {
	if config != constants.DefaultConfigPath {
		return config, false, nil
	}
	connStr, source, err := keyring.ResolveConnectionString("")
	if err != nil {
		logger.Debug("Keyring unavailable", "error", err)
		return config, false, nil
	}
	if source == keyring.SourceNone {
		return config, false, nil
	}
	return connStr, true, nil
}

func logDir(target string) string {
	if !cli.IsPostgres(target) {
		if path, err := cli.ExpandPath(target); err == nil {
			return filepath.Dir(path)
		}
	}
	path, err := cli.ExpandPath(filepath.Dir(constants.DefaultConfigPath))
	if err != nil {
		return os.TempDir()
	}
	return path
}

// commandPath is the selected command without its positional placeholders,
// e.g. "backup restore" for "backup restore <backup-file>".
func commandPath(ctx *kong.Context) string {
	var words []string
	for _, w := range strings.Fields(ctx.Command()) {
		if strings.HasPrefix(w, "<") {
			continue
		}
		words = append(words, w)
	}
	return strings.Join(words, " ")
}
