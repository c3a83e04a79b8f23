// Command contacttidy finds and merges duplicate contacts in a local contact
// directory.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spachava753/contacttidy/config"
	"github.com/spachava753/contacttidy/dedupe"
	"github.com/spachava753/contacttidy/directory/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// run executes one command line and releases the directory afterwards, even
// when the command failed.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{}
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if closeErr := a.close(); err == nil {
		err = closeErr
	}
	return err
}

// app carries the state shared by every subcommand. It is filled in by the
// root command's PersistentPreRunE.
type app struct {
	configPath string
	envFile    string
	database   string
	debug      bool
	json       bool

	cfg    config.Config
	logger *zap.Logger
	dir    *sqlite.Directory
	out    *printer
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "contacttidy",
		Short:        "Find and merge duplicate contacts",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML config file")
	flags.StringVar(&a.envFile, "env-file", "", "dotenv file (default .env when present)")
	flags.StringVar(&a.database, "db", "", "contact database path (overrides config)")
	flags.BoolVar(&a.debug, "debug", false, "enable development logging at debug level")
	flags.BoolVar(&a.json, "json", false, "print machine-readable JSON")

	cmd.AddCommand(
		newDuplicatesCmd(a),
		newMergeCmd(a),
		newAutoMergeCmd(a),
		newListCmd(a),
		newImportCmd(a),
		newImportMailCmd(a),
		newImportMessagesCmd(a),
	)
	return cmd
}

func (a *app) setup(ctx context.Context, stdout, stderr io.Writer) error {
	cfg, err := config.Load(config.LoadOptions{Path: a.configPath, EnvFile: a.envFile})
	if err != nil {
		return err
	}
	if a.database != "" {
		cfg.Database = a.database
	}
	a.cfg = cfg

	a.logger = newLogger(cfg.Level(), a.debug, stderr)
	a.out = newPrinter(stdout, a.json)

	if cfg.Database != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database), 0o700); err != nil {
			return fmt.Errorf("creating database directory failed: %w", err)
		}
	}
	dir, err := sqlite.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	a.dir = dir
	a.logger.Debug("opened contact directory", zap.String("path", cfg.Database))
	return nil
}

func (a *app) close() error {
	var err error
	if a.dir != nil {
		err = a.dir.Close()
		a.dir = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return err
}

func (a *app) engine() *dedupe.Engine {
	return dedupe.NewEngine(a.dir,
		dedupe.WithLogger(a.logger),
		dedupe.WithBatchOptions(a.cfg.BatchOptions()),
	)
}

func newLogger(level zapcore.Level, debug bool, sink io.Writer) *zap.Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoder := zapcore.NewJSONEncoder(encoderCfg)
	if debug {
		level = zapcore.DebugLevel
		encoderCfg = zap.NewDevelopmentEncoderConfig()
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}
	core := zapcore.NewCore(encoder, zapcore.AddSync(sink), zap.NewAtomicLevelAt(level))
	opts := []zap.Option{zap.ErrorOutput(zapcore.AddSync(sink))}
	if debug {
		opts = append(opts, zap.Development(), zap.AddCaller())
	}
	return zap.New(core, opts...)
}
