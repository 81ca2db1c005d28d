// Command tkscot runs the teamkill counter bot
package main

import (
	"context"
	"fmt"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/teamkill/tkscot"
	"github.com/teamkill/tkscot/auditlog"
	"github.com/teamkill/tkscot/backup"
	"github.com/teamkill/tkscot/config"
	"github.com/teamkill/tkscot/counter"
	"github.com/teamkill/tkscot/keepalive"
	"github.com/teamkill/tkscot/plugins"
	"github.com/teamkill/tkscot/remote"
	"github.com/teamkill/tkscot/remote/datastoreblob"
	"github.com/teamkill/tkscot/remote/gdrive"
	"github.com/teamkill/tkscot/remote/leveldbblob"
	"github.com/teamkill/tkscot/slog"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"google.golang.org/api/option"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
)

const (
	name                  = "tkscot"
	leveldbBlobDB         = "blobs"
	shutdownBackupTimeout = 30 * time.Second
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

var (
	configFile string
	envFile    string
	schemaName string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           name,
		Short:         "tkscot keeps count of the team's teamkills on slack",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "configuration file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "file of environment variables to load if present")

	checkStoreCmd := &cobra.Command{
		Use:   "check-store <file>",
		Short: "Validate a store file before importing it",
		Args:  cobra.ExactArgs(1),
		RunE:  checkStore,
	}
	checkStoreCmd.Flags().StringVar(&schemaName, "schema", "", "store schema (defaults to the configured one)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Connect to slack and run the bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx)
		},
	}, checkStoreCmd)

	return rootCmd
}

func loadConfig() (v *viper.Viper, err error) {
	v = config.NewViperWithDefaults()
	if err = config.Load(v, configFile, envFile); err != nil {
		return nil, err
	}

	return v, nil
}

func checkStore(cmd *cobra.Command, args []string) (err error) {
	v, err := loadConfig()
	if err != nil {
		return err
	}

	if schemaName == "" {
		schemaName = v.GetString(config.SchemaKey)
	}

	schema, err := counter.ParseSchema(schemaName)
	if err != nil {
		return err
	}

	content, err := os.ReadFile(args[0])
	if err != nil {
		return errors.Wrapf(err, "failed to read [%s]", args[0])
	}

	snapshot, err := counter.Parse(content, schema)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "[%s] is a valid %s store with %d users\n", args[0], schema, snapshot.Len())
	return nil
}

func run(ctx context.Context) (err error) {
	v, err := loadConfig()
	if err != nil {
		return err
	}

	if err = config.Validate(v); err != nil {
		return err
	}

	zl, err := slog.NewZapLogger(v.GetString(config.LoggingFormatKey), v.GetString(config.LoggingLevelKey), v.GetBool(config.DebugKey))
	if err != nil {
		return errors.Wrap(err, "failed to set up logging")
	}
	defer zl.Sync()
	logger := tkscot.NewZapSLogger(zl.Sugar())

	exporter, err := otelprom.New()
	if err != nil {
		return errors.Wrap(err, "failed to set up prometheus exporter")
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	defer provider.Shutdown(context.Background())
	meter := provider.Meter(name)

	rs, disabledReason, err := config.GetRemoteSettings(v)
	if err != nil {
		return err
	}

	blobs, closer := newBlobClient(ctx, rs, meter, logger)
	if closer != nil {
		defer closer.Close()
	}
	if blobs == nil {
		if disabledReason == "" {
			disabledReason = "remote backend unavailable"
		}
		logger.Printf("Warning: %s, persisting locally only", disabledReason)
	}

	storePath, err := config.StorePath(v)
	if err != nil {
		return err
	}

	logPath, err := config.LogPath(v)
	if err != nil {
		return err
	}

	for _, dir := range []string{filepath.Dir(storePath), filepath.Dir(logPath)} {
		if err = os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "failed to create storage directory [%s]", dir)
		}
	}

	schema, err := counter.ParseSchema(v.GetString(config.SchemaKey))
	if err != nil {
		return err
	}

	format, err := auditlog.ParseFormat(v.GetString(config.LogFormatKey))
	if err != nil {
		return err
	}

	auditLog, err := auditlog.New(logPath, format, blobs, rs.LogBlobID, auditlog.OptionLogger(logger))
	if err != nil {
		return err
	}
	auditLog.Load(ctx)

	store, err := counter.New(storePath, schema, blobs, rs.StoreBlobID, counter.OptionLogger(logger), counter.OptionJournal(auditLog))
	if err != nil {
		return err
	}
	store.Load(ctx)

	backupTask := backup.New(store, auditLog,
		backup.OptionBackupBlob(rs.BackupBlobID),
		backup.OptionMinStoreBytes(v.GetInt64(config.MinStoreBytesKey)),
		backup.OptionLogger(logger))

	bot, err := tkscot.NewBot(name, v, tkscot.OptionLogger(logger), tkscot.OptionMeter(meter)).
		WithConfigurablePluginCloserErr(plugins.TeamkillPluginName, func(c *viper.Viper) (io.Closer, *tkscot.Plugin, error) {
			tk, err := plugins.NewTeamkill(c, store, auditLog, backupTask,
				plugins.OptionRestoreWindow(v.GetDuration(config.RestoreWindowKey)),
				plugins.OptionBackupInterval(v.GetDuration(config.BackupIntervalKey)))
			if err != nil {
				return nil, nil, err
			}

			return tk, &tk.Plugin, nil
		}).
		WithPlugin(plugins.NewVersioner(name, version)).
		Build()
	if err != nil {
		return err
	}
	defer bot.Close()

	if addr := v.GetString(config.KeepaliveAddressKey); addr != "" {
		ka := keepalive.New(addr, prometheus.DefaultGatherer, keepalive.OptionName(name), keepalive.OptionLogger(logger))
		go func() {
			if err := ka.Run(ctx); err != nil {
				logger.Printf("Warning: %v", err)
			}
		}()
	}

	err = bot.Run(ctx)

	// Last push so that nothing recorded since the previous backup is lost
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownBackupTimeout)
	defer cancel()
	logger.Printf("Final backup: %s", backupTask.Run(shutdownCtx))

	return err
}

// newBlobClient returns the remote blob client for the configured backend, decorated with telemetry. A backend
// that can't be reached returns a nil client: the bot then persists locally only
func newBlobClient(ctx context.Context, rs config.RemoteSettings, meter metric.Meter, logger slog.Logger) (bc remote.BlobClient, closer io.Closer) {
	var base remote.BlobClient
	var err error

	switch rs.Backend {
	case config.BackendGDrive:
		credentials := rs.Credentials
		if len(credentials) == 0 {
			if credentials, err = os.ReadFile(rs.CredentialsFile); err != nil {
				logger.Printf("Warning: failed to read google credentials [%s]: %v", rs.CredentialsFile, err)
				return nil, nil
			}
		}

		base, err = gdrive.New(ctx, credentials, gdrive.OptionChunkSize(rs.ChunkSize))
	case config.BackendDatastore:
		opts := make([]option.ClientOption, 0)
		if len(rs.Credentials) > 0 {
			opts = append(opts, option.WithCredentialsJSON(rs.Credentials))
		} else if rs.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(rs.CredentialsFile))
		}

		var c *datastoreblob.Client
		if c, err = datastoreblob.New(ctx, rs.DatastoreKind, rs.ProjectID, opts...); err == nil {
			base, closer = c, c
		}
	case config.BackendLevelDB:
		var c *leveldbblob.LevelDB
		if c, err = leveldbblob.New(leveldbBlobDB, rs.LevelDBPath); err == nil {
			base, closer = c, c
		}
	default:
		return nil, nil
	}

	if err != nil {
		logger.Printf("Warning: failed to set up [%s] remote backend: %v", rs.Backend, err)
		return nil, closer
	}

	bct, err := remote.NewBlobClientWithTelemetry(base, rs.Backend, meter)
	if err != nil {
		logger.Printf("Warning: failed to set up [%s] remote backend telemetry, using it without: %v", rs.Backend, err)
		return base, closer
	}

	return bct, closer
}
