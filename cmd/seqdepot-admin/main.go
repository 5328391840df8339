package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/seqdepot/seqdepot/config"
	"github.com/seqdepot/seqdepot/internal/adapters/filestore"
	redisadapter "github.com/seqdepot/seqdepot/internal/adapters/redis"
	"github.com/seqdepot/seqdepot/internal/bootstrap"
	"github.com/seqdepot/seqdepot/internal/data"
	"github.com/seqdepot/seqdepot/internal/devseed"
	"github.com/seqdepot/seqdepot/internal/domain/model"
	"github.com/seqdepot/seqdepot/internal/service"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

const defaultMigrationTimeout = 5 * time.Minute

const defaultCommandTimeout = 2 * time.Minute

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"db-reset": {
			name:        "db-reset",
			description: "Drop the database schema, run migrations, and optionally seed data",
			run:         runDBReset,
		},
		"db-seed": {
			name:        "db-seed",
			description: "Run database migrations and seed development data",
			run:         runDBSeed,
		},
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrations,
		},
		"create-user": {
			name:        "create-user",
			description: "Create a user account, optionally with administrator rights and group memberships",
			run:         runCreateUser,
		},
		"force-reset": {
			name:        "force-reset",
			description: "Require a password change on the user's next login",
			run:         runForceReset,
		},
		"list-users": {
			name:        "list-users",
			description: "List user accounts with their groups and permissions",
			run:         runListUsers,
		},
		"cache-fixups": {
			name:        "cache-fixups",
			description: "Repair legacy analysis cache rows (missing keys, stale ready flags)",
			run:         runCacheFixups,
		},
	}
}

func printUsage() error {
	if err := writef(os.Stdout, "Usage: seqdepot-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(os.Stdout, "Available commands:\n"); err != nil {
		return err
	}
	for _, c := range commands() {
		if err := writef(os.Stdout, "  %-14s %s\n", c.name, c.description); err != nil {
			return err
		}
	}
	return nil
}

type migrateOptions struct {
	Timeout time.Duration
}

type dbResetOptions struct {
	Timeout     time.Duration
	Yes         bool
	Seed        bool
	AllowRemote bool
}

type dbSeedOptions struct {
	Timeout     time.Duration
	AllowRemote bool
}

type createUserOptions struct {
	Handle        string
	Password      string
	Administrator bool
	Groups        []string
	PrimaryGroup  string
	NoForceReset  bool
}

type forceResetOptions struct {
	Handle string
}

type listUsersOptions struct {
	Limit  int
	Offset int
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		cmdCtx.Logger.Info("running database migrations")

		if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
			return fmt.Errorf("run migrations: %w", migrateErr)
		}

		cmdCtx.Logger.Info("migrations completed successfully")
		return nil
	})
}

func runDBReset(cmdCtx *commandContext, args []string) error {
	opts, err := parseDBResetFlags(args)
	if err != nil {
		return err
	}

	target := fmt.Sprintf(
		"database %q on %s:%d",
		cmdCtx.Config.Postgres.Name,
		cmdCtx.Config.Postgres.Host,
		cmdCtx.Config.Postgres.Port,
	)

	remote, err := guardRemoteHost(cmdCtx, opts.AllowRemote, "drop and recreate the public schema")
	if err != nil {
		return err
	}

	confirmOpts := dbResetConfirmOptions{
		yes:    opts.Yes,
		target: target,
	}
	if remote {
		confirmOpts.remoteHost = cmdCtx.Config.Postgres.Host
	}
	if confirmErr := confirmAction(confirmOpts, "reset database schema"); confirmErr != nil {
		return confirmErr
	}

	return withInfra(cmdCtx, opts.Timeout, func(ctx context.Context, infra *infraHandles) error {
		cmdCtx.Logger.Info("dropping public schema", "database", cmdCtx.Config.Postgres.Name)
		if resetErr := cmdCtx.resetDatabase(ctx, infra.DB); resetErr != nil {
			return resetErr
		}

		cmdCtx.Logger.Info("re-running database migrations")
		if migrateErr := bootstrap.RunMigrations(ctx, infra.DB, cmdCtx.Logger); migrateErr != nil {
			return fmt.Errorf("run migrations: %w", migrateErr)
		}

		if opts.Seed {
			cmdCtx.Logger.Info("seeding development data after reset")
			sessions := redisadapter.NewSessionStore(infra.Redis)
			if seedErr := devseed.Run(ctx, devseed.NewServices(infra.DB, sessions), cmdCtx.Logger); seedErr != nil {
				return fmt.Errorf("seed data: %w", seedErr)
			}
		}

		cmdCtx.Logger.Info("database reset completed successfully")
		return nil
	})
}

func runDBSeed(cmdCtx *commandContext, args []string) error {
	opts, err := parseDBSeedFlags(args)
	if err != nil {
		return err
	}

	if _, guardErr := guardRemoteHost(cmdCtx, opts.AllowRemote, "seed development data on the configured database"); guardErr != nil {
		return guardErr
	}

	return withInfra(cmdCtx, opts.Timeout, func(ctx context.Context, infra *infraHandles) error {
		cmdCtx.Logger.Info("ensuring database migrations are current")
		if migrateErr := bootstrap.RunMigrations(ctx, infra.DB, cmdCtx.Logger); migrateErr != nil {
			return fmt.Errorf("run migrations: %w", migrateErr)
		}

		cmdCtx.Logger.Info("seeding development data")
		sessions := redisadapter.NewSessionStore(infra.Redis)
		if seedErr := devseed.Run(ctx, devseed.NewServices(infra.DB, sessions), cmdCtx.Logger); seedErr != nil {
			return fmt.Errorf("seed data: %w", seedErr)
		}

		cmdCtx.Logger.Info("database seeding completed successfully")
		return nil
	})
}

func runCreateUser(cmdCtx *commandContext, args []string) error {
	opts, err := parseCreateUserFlags(args)
	if err != nil {
		return err
	}

	return withInfra(cmdCtx, defaultCommandTimeout, func(ctx context.Context, infra *infraHandles) error {
		users := newUserService(infra)

		forceReset := !opts.NoForceReset
		user, createErr := users.Create(ctx, model.CreateUserRequest{
			Handle:     opts.Handle,
			Password:   opts.Password,
			ForceReset: &forceReset,
		})
		if createErr != nil {
			return fmt.Errorf("create user: %w", createErr)
		}

		update := model.UpdateUserRequest{}
		if opts.Administrator {
			update.Administrator = &opts.Administrator
		}
		if len(opts.Groups) > 0 {
			update.Groups = &opts.Groups
		}
		if opts.PrimaryGroup != "" {
			update.PrimaryGroup = &opts.PrimaryGroup
		}
		if !update.IsZero() {
			if user, err = users.Update(ctx, user.ID, update); err != nil {
				return fmt.Errorf("apply user roles: %w", err)
			}
		}

		cmdCtx.Logger.Info("user created",
			"id", user.ID,
			"handle", user.Handle,
			"administrator", user.Administrator,
			"groups", user.Groups,
			"force_reset", user.ForceReset)
		return nil
	})
}

func runForceReset(cmdCtx *commandContext, args []string) error {
	opts, err := parseForceResetFlags(args)
	if err != nil {
		return err
	}

	return withInfra(cmdCtx, defaultCommandTimeout, func(ctx context.Context, infra *infraHandles) error {
		users := newUserService(infra)

		user, lookupErr := users.GetByHandle(ctx, opts.Handle)
		if lookupErr != nil {
			return fmt.Errorf("look up user %q: %w", opts.Handle, lookupErr)
		}

		forceReset := true
		if _, updateErr := users.Update(ctx, user.ID, model.UpdateUserRequest{
			ForceReset: &forceReset,
		}); updateErr != nil {
			return fmt.Errorf("flag password reset: %w", updateErr)
		}

		cmdCtx.Logger.Info("password reset required on next login", "id", user.ID, "handle", user.Handle)
		return nil
	})
}

func runListUsers(cmdCtx *commandContext, args []string) error {
	opts, err := parseListUsersFlags(args)
	if err != nil {
		return err
	}

	return withInfra(cmdCtx, defaultCommandTimeout, func(ctx context.Context, infra *infraHandles) error {
		users := newUserService(infra)

		list, listErr := users.List(ctx, opts.Limit, opts.Offset)
		if listErr != nil {
			return fmt.Errorf("list users: %w", listErr)
		}

		return printUserTable(os.Stdout, list)
	})
}

func printUserTable(w io.Writer, users []*model.User) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writef(tw, "ID\tHANDLE\tADMIN\tFORCE RESET\tGROUPS\tPERMISSIONS\n"); err != nil {
		return fmt.Errorf("write user table header: %w", err)
	}
	for _, u := range users {
		granted := make([]string, 0, len(u.Permissions))
		for _, p := range model.AllPermissions() {
			if u.Permissions[p] {
				granted = append(granted, string(p))
			}
		}
		if err := writef(tw, "%s\t%s\t%t\t%t\t%s\t%s\n",
			u.ID,
			u.Handle,
			u.Administrator,
			u.ForceReset,
			strings.Join(u.Groups, ","),
			strings.Join(granted, ","),
		); err != nil {
			return fmt.Errorf("write user row: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush user table: %w", err)
	}
	return nil
}

func runCacheFixups(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		store, storeErr := filestore.NewStore(cmdCtx.Config.DataPath)
		if storeErr != nil {
			return fmt.Errorf("open data directory: %w", storeErr)
		}

		caches := service.MustNewCacheService(service.CacheServiceOptions{
			Repo:   data.NewCacheRepo(db),
			Dirs:   store,
			Logger: cmdCtx.Logger,
		})

		cmdCtx.Logger.Info("running cache fixups")
		if fixErr := caches.RunStartupFixups(ctx); fixErr != nil {
			return fmt.Errorf("run cache fixups: %w", fixErr)
		}

		cmdCtx.Logger.Info("cache fixups completed successfully")
		return nil
	})
}

// newUserService builds the user service the way the server runtime does,
// reusing live session storage so role changes fan out immediately.
func newUserService(infra *infraHandles) *service.UserService {
	tp := &data.RealTimeProvider{}
	return service.MustNewUserService(service.UserServiceOptions{
		Users:    data.NewUserRepo(infra.DB, tp),
		Groups:   data.NewGroupRepo(infra.DB, tp),
		Keys:     data.NewKeyRepo(infra.DB, tp),
		Sessions: redisadapter.NewSessionStore(infra.Redis),
	})
}

func parseMigrateFlags(args []string) (migrateOptions, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := migrateOptions{
		Timeout: defaultMigrationTimeout,
	}

	fs.DurationVar(
		&opts.Timeout,
		"timeout",
		defaultMigrationTimeout,
		"Maximum duration to wait for the operation to complete",
	)

	if err := fs.Parse(args); err != nil {
		return migrateOptions{}, err
	}

	if opts.Timeout <= 0 {
		return migrateOptions{}, errors.New("--timeout must be greater than zero")
	}

	return opts, nil
}

func parseDBResetFlags(args []string) (dbResetOptions, error) {
	fs := flag.NewFlagSet("db-reset", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := dbResetOptions{
		Timeout: defaultMigrationTimeout,
	}

	fs.DurationVar(
		&opts.Timeout,
		"timeout",
		defaultMigrationTimeout,
		"Maximum duration to wait for reset operations to complete",
	)
	fs.BoolVar(
		&opts.Yes,
		"yes",
		false,
		"Skip confirmation prompt",
	)
	fs.BoolVar(
		&opts.Seed,
		"seed",
		false,
		"Run database seeding after reset completes",
	)
	fs.BoolVar(
		&opts.AllowRemote,
		"allow-remote",
		false,
		"Permit running against database hosts that do not look local",
	)

	if err := fs.Parse(args); err != nil {
		return dbResetOptions{}, err
	}

	if opts.Timeout <= 0 {
		return dbResetOptions{}, errors.New("--timeout must be greater than zero")
	}

	return opts, nil
}

func parseDBSeedFlags(args []string) (dbSeedOptions, error) {
	fs := flag.NewFlagSet("db-seed", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := dbSeedOptions{
		Timeout: defaultMigrationTimeout,
	}

	fs.DurationVar(
		&opts.Timeout,
		"timeout",
		defaultMigrationTimeout,
		"Maximum duration to wait for seeding to complete",
	)
	fs.BoolVar(
		&opts.AllowRemote,
		"allow-remote",
		false,
		"Permit running against database hosts that do not look local",
	)

	if err := fs.Parse(args); err != nil {
		return dbSeedOptions{}, err
	}

	if opts.Timeout <= 0 {
		return dbSeedOptions{}, errors.New("--timeout must be greater than zero")
	}

	return opts, nil
}

func parseCreateUserFlags(args []string) (createUserOptions, error) {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := createUserOptions{}
	var groups string

	fs.StringVar(&opts.Handle, "handle", "", "Login handle for the new account (required)")
	fs.StringVar(&opts.Password, "password", "", "Initial password for the new account (required)")
	fs.BoolVar(&opts.Administrator, "admin", false, "Grant administrator rights")
	fs.StringVar(&groups, "groups", "", "Comma-separated group IDs to assign")
	fs.StringVar(&opts.PrimaryGroup, "primary-group", "", "Primary group ID (must be among --groups)")
	fs.BoolVar(&opts.NoForceReset, "no-force-reset", false, "Do not require a password change on first login")

	if err := fs.Parse(args); err != nil {
		return createUserOptions{}, err
	}

	if opts.Handle == "" {
		return createUserOptions{}, errors.New("--handle is required")
	}
	if opts.Password == "" {
		return createUserOptions{}, errors.New("--password is required")
	}
	opts.Groups = splitGroupList(groups)
	if opts.PrimaryGroup != "" && !containsGroup(opts.Groups, opts.PrimaryGroup) {
		return createUserOptions{}, errors.New("--primary-group must be one of the --groups values")
	}

	return opts, nil
}

func splitGroupList(raw string) []string {
	var groups []string
	for _, part := range strings.Split(raw, ",") {
		if g := strings.TrimSpace(part); g != "" {
			groups = append(groups, g)
		}
	}
	return groups
}

func containsGroup(groups []string, id string) bool {
	for _, g := range groups {
		if g == id {
			return true
		}
	}
	return false
}

func parseForceResetFlags(args []string) (forceResetOptions, error) {
	fs := flag.NewFlagSet("force-reset", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := forceResetOptions{}
	fs.StringVar(&opts.Handle, "handle", "", "Login handle of the account to flag (required)")

	if err := fs.Parse(args); err != nil {
		return forceResetOptions{}, err
	}

	if opts.Handle == "" {
		return forceResetOptions{}, errors.New("--handle is required")
	}

	return opts, nil
}

func parseListUsersFlags(args []string) (listUsersOptions, error) {
	fs := flag.NewFlagSet("list-users", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := listUsersOptions{}
	fs.IntVar(&opts.Limit, "limit", 50, "Maximum number of users to list")
	fs.IntVar(&opts.Offset, "offset", 0, "Number of users to skip")

	if err := fs.Parse(args); err != nil {
		return listUsersOptions{}, err
	}

	if opts.Limit <= 0 {
		return listUsersOptions{}, errors.New("--limit must be greater than zero")
	}
	if opts.Offset < 0 {
		return listUsersOptions{}, errors.New("--offset must not be negative")
	}

	return opts, nil
}

func withDatabase(
	cmdCtx *commandContext,
	timeout time.Duration,
	f func(context.Context, *sql.DB) error,
) error {
	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", cerr)
		}
	}()

	return f(ctx, db)
}

func guardRemoteHost(cmdCtx *commandContext, allow bool, action string) (bool, error) {
	remote := isLikelyRemoteHost(cmdCtx.Config.Postgres.Host)
	if !remote {
		return false, nil
	}
	if !allow {
		return true, fmt.Errorf(
			"refusing to run against potentially remote database host %q; re-run with --allow-remote if this is intentional",
			cmdCtx.Config.Postgres.Host,
		)
	}
	if err := requireRemoteHostConfirmation(action, cmdCtx.Config.Postgres.Host); err != nil {
		return true, err
	}
	return true, nil
}

func (cmdCtx *commandContext) resetDatabase(ctx context.Context, db *sql.DB) error {
	if cmdCtx == nil {
		return errors.New("command context is required")
	}

	cfg := &cmdCtx.Config.Postgres
	statements := []string{
		"DROP SCHEMA public CASCADE",
		"CREATE SCHEMA public",
		"GRANT ALL ON SCHEMA public TO public",
	}
	if user := strings.TrimSpace(cfg.User); user != "" && !strings.EqualFold(user, "public") {
		statements = append(statements, "GRANT ALL ON SCHEMA public TO "+quoteIdentifier(user))
	}

	for _, stmt := range statements {
		if cmdCtx.Logger != nil {
			cmdCtx.Logger.DebugContext(ctx, "executing reset statement", "sql", stmt)
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

func quoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func isLikelyRemoteHost(host string) bool {
	h := strings.ToLower(strings.TrimSpace(host))
	if h == "" {
		return false
	}
	if h == "localhost" || h == "127.0.0.1" || h == "::1" {
		return false
	}
	if strings.HasSuffix(h, ".local") {
		return false
	}
	if ip := net.ParseIP(host); ip != nil {
		return !ip.IsLoopback()
	}
	return true
}

func requireRemoteHostConfirmation(action, host string) error {
	if err := writef(
		os.Stderr,
		"\nWARNING: database host %q does not look like a local address.\n"+
			"This operation will %s.\n",
		host,
		action,
	); err != nil {
		return fmt.Errorf("print remote host warning: %w", err)
	}
	if err := writef(os.Stderr, "Type %q to continue or press enter to abort: ", host); err != nil {
		return fmt.Errorf("print remote host prompt: %w", err)
	}
	reader := bufio.NewReader(os.Stdin)
	resp, err := reader.ReadString('\n')
	if err != nil {
		if writeErr := writef(os.Stderr, "\nFailed to read confirmation input: %v\n", err); writeErr != nil {
			return fmt.Errorf("aborted by user: report write failed: %w", writeErr)
		}
		return errors.New("aborted by user")
	}
	if strings.TrimSpace(resp) != host {
		if writeErr := writeln(os.Stderr, "\nRemote safeguard check failed; aborting."); writeErr != nil {
			return fmt.Errorf("print remote safeguard failure: %w", writeErr)
		}
		return errors.New("aborted by user")
	}
	return nil
}

type confirmOptions interface {
	IsYes() bool
	GetTarget() string
	GetWarning() string
}

type dbResetConfirmOptions struct {
	yes        bool
	target     string
	remoteHost string
}

func (d dbResetConfirmOptions) IsYes() bool {
	if d.remoteHost != "" {
		return false
	}
	return d.yes
}

func (d dbResetConfirmOptions) GetWarning() string {
	warning := "WARNING: this will drop and recreate the public schema for the configured database."
	if d.remoteHost != "" {
		warning += fmt.Sprintf(" Host %q appears to be remote; double-check before proceeding.", d.remoteHost)
	}
	return warning
}
func (d dbResetConfirmOptions) GetTarget() string { return d.target }

func confirmAction(opts confirmOptions, actionType string) error {
	if opts.IsYes() {
		return nil
	}

	if err := printConfirmationIntro(opts, actionType); err != nil {
		return err
	}

	if err := write(os.Stdout, "Continue? [y/N]: "); err != nil {
		return fmt.Errorf("print confirmation prompt: %w", err)
	}
	reader := bufio.NewReader(os.Stdin)
	resp, err := reader.ReadString('\n')
	if err != nil {
		if writeErr := writef(os.Stdout, "\nFailed to read confirmation input: %v\n", err); writeErr != nil {
			return fmt.Errorf("aborted by user: report write failed: %w", writeErr)
		}
		return errors.New("aborted by user")
	}
	resp = strings.ToLower(strings.TrimSpace(resp))
	if resp == "y" || resp == "yes" {
		return nil
	}
	return errors.New("aborted by user")
}

func printConfirmationIntro(opts confirmOptions, actionType string) error {
	target := opts.GetTarget()
	if target == "" {
		if err := writeln(os.Stdout, opts.GetWarning()); err != nil {
			return fmt.Errorf("print confirmation warning: %w", err)
		}
		return nil
	}

	if err := writef(os.Stdout, "About to %s for %s.\n", actionType, target); err != nil {
		return fmt.Errorf("print confirmation message: %w", err)
	}
	return nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func write(w io.Writer, args ...any) error {
	_, err := fmt.Fprint(w, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	if len(args) == 0 {
		_, err := fmt.Fprintln(w)
		return err
	}
	_, err := fmt.Fprintln(w, args...)
	return err
}
