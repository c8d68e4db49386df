package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/hl7ingest/internal/config"
	"github.com/ehr/hl7ingest/internal/domain/patient"
	"github.com/ehr/hl7ingest/internal/ingest"
	"github.com/ehr/hl7ingest/internal/platform/db"
)

// Process exit codes.
const (
	exitOK              = 0
	exitUnexpected      = 1
	exitPasswordMissing = 2
	exitInvalidConfig   = 3
	exitInputMissing    = 4
	exitNoInputFiles    = 5
	exitStorage         = 6
	exitCanceled        = 130
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(exitCode(err))
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "hl7-ingest",
		Short:         "Load HL7 v2 patient demographics into a relational table",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runIngest,
	}

	rootCmd.AddCommand(dumpCmd())
	rootCmd.AddCommand(sampleCmd())
	return rootCmd
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	src := ingest.DirSource{CreateMissing: cfg.CreateInputDir}
	opts := ingest.Options{ClearBeforeLoad: cfg.ClearBeforeLoad, QueryTimeout: cfg.QueryTimeout}
	p := ingest.New(src, ingest.DefaultParser, connector(cfg), opts, logger)

	report, err := p.Run(cmd.Context(), cfg.InputFolder)
	switch {
	case errors.Is(err, ingest.ErrInputDirMissing):
		if cfg.CreateInputDir {
			logger.Warn().Str("dir", cfg.InputFolder).Msg("input folder created, place .hl7 files in it and run again")
		} else {
			logger.Error().Str("dir", cfg.InputFolder).Msg("input folder does not exist, set HL7_FOLDER_PATH or CREATE_INPUT_DIR=true")
		}
		return err
	case errors.Is(err, ingest.ErrNoInputFiles):
		logger.Warn().Str("dir", cfg.InputFolder).Msg("no .hl7 files found, storage left untouched")
		return err
	case err != nil:
		return err
	}

	return report.WriteTable(cmd.OutOrStdout())
}

func dumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print every row of the patients table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			p := ingest.New(nil, nil, connector(cfg), ingest.Options{QueryTimeout: cfg.QueryTimeout}, logger)
			rows, err := p.Dump(cmd.Context())
			if err != nil {
				return err
			}
			return ingest.WriteRows(cmd.OutOrStdout(), rows)
		},
	}
}

func sampleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Write sample ADT messages into the input folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetInt("count")
			dir, _ := cmd.Flags().GetString("dir")

			// Samples need no database, so the config is not validated.
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.InputFolder
			}

			paths, err := ingest.WriteSamples(dir, count, time.Now())
			if err != nil {
				return err
			}
			for _, path := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
	cmd.Flags().Int("count", 5, "Number of messages to write")
	cmd.Flags().String("dir", "", "Target folder (defaults to HL7_FOLDER_PATH)")
	return cmd
}

// setup loads and validates the configuration before any file or database
// is touched, then builds the logger.
func setup(logOut io.Writer) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), err
	}
	logger, err := newLogger(cfg, logOut)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logger, nil
}

func newLogger(cfg *config.Config, out io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("%w: LOG_LEVEL: %v", config.ErrInvalid, err)
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}
	return logger.Level(level), nil
}

// connector opens the store selected by DB_DRIVER.
func connector(cfg *config.Config) ingest.Connector {
	return func(ctx context.Context) (patient.Repository, error) {
		switch cfg.DBDriver {
		case config.DriverPostgres:
			url := db.PostgresURL(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)
			pool, err := db.NewPool(ctx, url, cfg.QueryTimeout)
			if err != nil {
				return nil, err
			}
			repo, err := patient.NewPGRepo(pool, cfg.DBTable)
			if err != nil {
				pool.Close()
				return nil, err
			}
			return repo, nil

		case config.DriverSQLite:
			sqlDB, err := db.OpenSQL(ctx, db.SQLiteDriver, cfg.SQLitePath, cfg.QueryTimeout)
			if err != nil {
				return nil, err
			}
			repo, err := patient.NewSQLiteRepo(sqlDB, cfg.DBTable)
			if err != nil {
				sqlDB.Close()
				return nil, err
			}
			return repo, nil

		case config.DriverMySQL:
			dsn := db.MySQLDSN(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.QueryTimeout)
			sqlDB, err := db.OpenSQL(ctx, db.MySQLDriver, dsn, cfg.QueryTimeout)
			if err != nil {
				return nil, err
			}
			repo, err := patient.NewMySQLRepo(sqlDB, cfg.DBTable)
			if err != nil {
				sqlDB.Close()
				return nil, err
			}
			return repo, nil
		}
		return nil, fmt.Errorf("%w: unsupported DB_DRIVER %q", config.ErrInvalid, cfg.DBDriver)
	}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, config.ErrPasswordMissing):
		return exitPasswordMissing
	case errors.Is(err, config.ErrInvalid), errors.Is(err, patient.ErrInvalidTable):
		return exitInvalidConfig
	case errors.Is(err, ingest.ErrInputDirMissing):
		return exitInputMissing
	case errors.Is(err, ingest.ErrNoInputFiles):
		return exitNoInputFiles
	case errors.Is(err, ingest.ErrStorageUnavailable):
		return exitStorage
	case errors.Is(err, context.Canceled):
		return exitCanceled
	default:
		return exitUnexpected
	}
}
