// Package cli implements gatewayctl, the operator toolkit of the gateway:
// store migrations, API key generation, database duplication and webhook
// signatures.
package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apikeyapp "github.com/safee-analytics/odoo/internal/application/apikey"
	"github.com/safee-analytics/odoo/internal/application/dbmanager"
	"github.com/safee-analytics/odoo/internal/domain/webhook"
	"github.com/safee-analytics/odoo/internal/infrastructure/config"
	"github.com/safee-analytics/odoo/internal/infrastructure/logger"
	"github.com/safee-analytics/odoo/internal/infrastructure/migration"
	"github.com/safee-analytics/odoo/internal/infrastructure/odoo"
	"github.com/safee-analytics/odoo/internal/infrastructure/persistence"
	"github.com/safee-analytics/odoo/internal/infrastructure/pgadmin"
	"github.com/safee-analytics/odoo/migrations"
)

// commandTimeout bounds commands that talk to Odoo or Postgres
const commandTimeout = 10 * time.Minute

type options struct {
	logLevel string
}

// NewRootCommand builds the gatewayctl command tree
func NewRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "gatewayctl",
		Short:         "Odoo gateway operator toolkit",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	root.AddCommand(newMigrateCmd(opts))
	root.AddCommand(newAPIKeyCmd(opts))
	root.AddCommand(newDBCmd(opts))
	root.AddCommand(newWebhookCmd())
	return root
}

// Execute runs gatewayctl
func Execute() error {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	return nil
}

// env is what a command needs from the gateway config
type env struct {
	cfg *config.Config
	log *zap.Logger
}

func loadEnv(opts *options) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logger.New(&logger.Config{
		Level:      opts.logLevel,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return &env{cfg: cfg, log: log}, nil
}

func (e *env) odooClient() (*odoo.Client, error) {
	return odoo.NewClient(e.cfg.Odoo.URL,
		odoo.WithTimeout(e.cfg.Odoo.Timeout),
		odoo.WithSkipTLSVerify(e.cfg.Odoo.SkipTLSVerify),
		odoo.WithLogger(e.log.Named("odoo")),
	)
}

func withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, commandTimeout)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newMigrateCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the gateway store schema",
	}

	run := func(fn func(m *migration.Migrator, out io.Writer) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv(opts)
			if err != nil {
				return err
			}
			defer logger.Sync(e.log)

			db, err := sql.Open("postgres", e.cfg.Database.DSN())
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			if err := db.Ping(); err != nil {
				_ = db.Close()
				return fmt.Errorf("failed to ping database: %w", err)
			}
			m, err := migration.New(db, migrations.FS, e.log)
			if err != nil {
				_ = db.Close()
				return err
			}
			defer func() { _ = m.Close() }()
			return fn(m, cmd.OutOrStdout())
		}
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: run(func(m *migration.Migrator, out io.Writer) error {
			if err := m.Up(); err != nil {
				return err
			}
			fmt.Fprintln(out, "migrations applied")
			return nil
		}),
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back every migration",
		RunE: run(func(m *migration.Migrator, out io.Writer) error {
			if err := m.Down(); err != nil {
				return err
			}
			fmt.Fprintln(out, "migrations rolled back")
			return nil
		}),
	}

	var steps int
	step := &cobra.Command{
		Use:   "step",
		Short: "Apply (positive) or roll back (negative) n migrations",
		RunE: run(func(m *migration.Migrator, out io.Writer) error {
			if steps == 0 {
				return fmt.Errorf("--n must not be zero")
			}
			if err := m.Steps(steps); err != nil {
				return err
			}
			fmt.Fprintf(out, "applied %d step(s)\n", steps)
			return nil
		}),
	}
	step.Flags().IntVarP(&steps, "n", "n", 0, "Number of steps")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE: run(func(m *migration.Migrator, out io.Writer) error {
			v, dirty, err := m.Version()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "version %d (dirty=%t)\n", v, dirty)
			return nil
		}),
	}

	force := &cobra.Command{
		Use:   "force [version]",
		Short: "Set the schema version without running migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q", args[0])
			}
			return run(func(m *migration.Migrator, out io.Writer) error {
				if err := m.Force(v); err != nil {
					return err
				}
				fmt.Fprintf(out, "forced version %d\n", v)
				return nil
			})(cmd, args)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the embedded migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := migration.List(migrations.FS)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}

	cmd.AddCommand(up, down, step, version, force, list)
	return cmd
}

func newAPIKeyCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage Odoo API keys",
	}

	var in apikeyapp.GenerateInput
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Generate an API key for an Odoo user and print it once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv(opts)
			if err != nil {
				return err
			}
			defer logger.Sync(e.log)

			client, err := e.odooClient()
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			db, err := persistence.NewDatabase(&e.cfg.Database)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			admin := pgadmin.New(e.cfg.OdooPostgres, pgadmin.WithLogger(e.log))
			defer func() { _ = admin.Close() }()

			svc := apikeyapp.NewService(client, admin, persistence.NewGormAPIKeyRepository(db.DB), e.cfg.APIKey, e.log)
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			res, err := svc.Generate(ctx, in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	f := generate.Flags()
	f.StringVar(&in.DB, "db", "", "Odoo database")
	f.StringVar(&in.AdminLogin, "admin-login", "", "Login of an administrator")
	f.StringVar(&in.AdminPassword, "admin-password", "", "Password of the administrator")
	f.StringVar(&in.TargetUserLogin, "user-login", "", "Login of the key owner (defaults to the administrator)")
	f.IntVar(&in.TargetUserID, "user-id", 0, "Id of the key owner")
	f.StringVar(&in.Name, "name", "", "Key name")
	f.StringVar(&in.Scope, "scope", "", "Key scope")
	_ = generate.MarkFlagRequired("db")
	_ = generate.MarkFlagRequired("admin-login")
	_ = generate.MarkFlagRequired("admin-password")

	cmd.AddCommand(generate)
	return cmd
}

func newDBCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Odoo database administration",
	}
	var masterPassword string
	cmd.PersistentFlags().StringVar(&masterPassword, "master-password", "", "Master password (defaults to dbmanager.master_password)")

	manager := func(e *env, fn func(svc *dbmanager.Service) error) error {
		if masterPassword == "" {
			masterPassword = e.cfg.DBManager.MasterPassword
		}
		client, err := e.odooClient()
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		db, err := persistence.NewDatabase(&e.cfg.Database)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		admin := pgadmin.New(e.cfg.OdooPostgres, pgadmin.WithLogger(e.log))
		defer func() { _ = admin.Close() }()

		svc := dbmanager.NewService(e.cfg.DBManager, client, admin,
			persistence.NewGormDuplicationJobRepository(db.DB), nil, nil, e.log)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = svc.Shutdown(ctx)
		}()
		return fn(svc)
	}

	closeConns := &cobra.Command{
		Use:   "close-connections [db]",
		Short: "Terminate every PostgreSQL session on a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(opts)
			if err != nil {
				return err
			}
			defer logger.Sync(e.log)
			return manager(e, func(svc *dbmanager.Service) error {
				ctx, cancel := withTimeout(cmd)
				defer cancel()
				n, err := svc.CloseConnections(ctx, masterPassword, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Closed connections to %s (%d terminated)\n", args[0], n)
				return nil
			})
		},
	}

	var neutralize bool
	duplicate := &cobra.Command{
		Use:   "duplicate [source] [target]",
		Short: "Duplicate a database and wait for the result",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(opts)
			if err != nil {
				return err
			}
			defer logger.Sync(e.log)
			return manager(e, func(svc *dbmanager.Service) error {
				ctx, cancel := withTimeout(cmd)
				defer cancel()
				job, err := svc.Duplicate(ctx, dbmanager.DuplicateInput{
					MasterPassword: masterPassword,
					SourceDB:       args[0],
					NewDB:          args[1],
					Neutralize:     neutralize,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), job)
			})
		},
	}
	duplicate.Flags().BoolVar(&neutralize, "neutralize", false, "Neutralize the copy (disable mail servers and crons)")

	cmd.AddCommand(closeConns, duplicate)
	return cmd
}

func newWebhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Compute and check webhook signatures",
	}
	var secret, org, payloadFile string
	cmd.PersistentFlags().StringVar(&secret, "secret", "", "Master webhook secret")
	cmd.PersistentFlags().StringVar(&org, "org", "", "Organization id; the signing key is derived from it when set")
	cmd.PersistentFlags().StringVar(&payloadFile, "payload", "-", "Payload file, - for stdin")
	_ = cmd.MarkPersistentFlagRequired("secret")

	signingKey := func() string {
		if org == "" {
			return secret
		}
		return webhook.DeriveOrgSecret(secret, org)
	}

	sign := &cobra.Command{
		Use:   "sign",
		Short: "Print the signature of a payload",
		RunE: func(cmd *cobra.Command, _ []string) error {
			payload, err := readPayload(cmd.InOrStdin(), payloadFile)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), webhook.Sign(signingKey(), payload))
			return nil
		},
	}

	verify := &cobra.Command{
		Use:   "verify [signature]",
		Short: "Check a payload signature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(cmd.InOrStdin(), payloadFile)
			if err != nil {
				return err
			}
			if !webhook.Verify(signingKey(), payload, strings.TrimSpace(args[0])) {
				return fmt.Errorf("signature mismatch")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return nil
		},
	}

	cmd.AddCommand(sign, verify)
	return cmd
}

func readPayload(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	return b, nil
}
