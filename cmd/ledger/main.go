package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Veraticus/the-ledger-must-balance/internal/cli"
	"github.com/Veraticus/the-ledger-must-balance/internal/common"
	"github.com/Veraticus/the-ledger-must-balance/internal/config"
	"github.com/Veraticus/the-ledger-must-balance/internal/engine"
	"github.com/Veraticus/the-ledger-must-balance/internal/metrics"
	"github.com/Veraticus/the-ledger-must-balance/internal/profile"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

// app carries the state shared by every command of one invocation.
type app struct {
	v        *viper.Viper
	manager  *profile.Manager
	registry *prometheus.Registry
	cfgFile  string
	cfg      config.Config
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ledger",
		Short: "📒 Personal transaction intelligence engine",
		Long: `the-ledger-must-balance: imports bank statements into per-profile ledgers,
categorizes them with rules, and reports transfers, recurring charges,
audit flags and rule suggestions.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.initConfig,
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: $HOME/.config/ledger/config.yaml)")
	flags.StringP("profile", "p", profile.DefaultName, "profile to operate on")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "console", "log format (console, json)")

	_ = a.v.BindPFlag("profile", flags.Lookup("profile"))
	_ = a.v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("logging.format", flags.Lookup("log-format"))

	rootCmd.AddCommand(
		importCmd(a),
		importsCmd(a),
		transactionsCmd(a),
		tagsCmd(a),
		rulesCmd(a),
		categoriesCmd(a),
		merchantsCmd(a),
		transfersCmd(a),
		auditCmd(a),
		recurringCmd(a),
		suggestionsCmd(a),
		healthCmd(a),
		summaryCmd(a),
		taxExportCmd(a),
		profilesCmd(a),
		serveCmd(a),
		migrateCmd(a),
		versionCmd(),
	)
	return rootCmd
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err.Error()))
		os.Exit(1)
	}
}

// run executes one command line and releases every profile it opened.
func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	a := &app{v: viper.New()}
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SilenceErrors = true

	err := cmd.ExecuteContext(ctx)
	if a.manager != nil {
		if cerr := a.manager.Close(); cerr != nil {
			common.LogWarn("Failed to close profiles", common.Fields{"error": cerr.Error()})
		}
	}
	return err
}

func (a *app) initConfig(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	v := a.v
	if a.cfgFile != "" {
		v.SetConfigFile(a.cfgFile)
	} else {
		v.AddConfigPath(config.DefaultConfigDir())
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := setupLogging(cmd.ErrOrStderr(), cfg); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	a.registry = prometheus.NewRegistry()
	a.manager = profile.NewManager(cfg.ProfilesDir,
		engine.WithConfig(engineConfig(cfg)),
		engine.WithMetrics(metrics.NewPrometheusRecorder(a.registry)),
	)
	return nil
}

func setupLogging(w io.Writer, cfg config.Config) error {
	level, err := common.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	switch cfg.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}
	common.SetupLogger(w, level, cfg.LogFormat)
	return nil
}

func engineConfig(cfg config.Config) engine.Config {
	ec := engine.DefaultConfig()
	ec.Audit = cfg.Audit
	ec.Suggest = cfg.Suggest
	ec.Transfer = cfg.Transfer
	ec.Recurring = cfg.Recurring
	return ec
}

// engine opens the profile selected by --profile.
func (a *app) engine(ctx context.Context) (*engine.Engine, error) {
	return a.manager.Open(ctx, a.v.GetString("profile"))
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ledger version %s\n", version)
		},
	}
}
