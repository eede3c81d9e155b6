package main

import (
	"fmt"
	"os"
	"time"

	"github.com/smallstep/agentctl/pkg/authority"
	"github.com/smallstep/agentctl/pkg/config"
	"github.com/smallstep/agentctl/pkg/journal"
	"github.com/smallstep/agentctl/pkg/log"
	"github.com/smallstep/agentctl/pkg/metrics"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// cfg is loaded once by the root command before any subcommand runs
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "agentctl",
	Short: "Declarative management of Smallstep agent resources",
	Long: `agentctl reconciles Smallstep device collections, collection instances
and workloads against a YAML manifest.

Every resource is fetched, compared with the declared state and then
created, updated, deleted or left alone. Running the same manifest twice
makes no further changes.`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"agentctl version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (default "+config.DefaultPath()+")")
	flags.String("api-host", "", "Smallstep API host")
	flags.String("api-token", "", "Smallstep API token")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.Bool("log-json", false, "Emit logs as JSON")
	flags.String("journal", "", "Run history database path")
	flags.String("metrics-file", "", "Write Prometheus metrics to this textfile after each run")

	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file and lets flags override it
func loadConfig(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	loaded, err := config.Load(path)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("api-host") {
		loaded.API.Host, _ = flags.GetString("api-host")
	}
	if flags.Changed("api-token") {
		loaded.API.Token, _ = flags.GetString("api-token")
	}
	if flags.Changed("log-level") {
		loaded.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-json") {
		loaded.Log.JSON, _ = flags.GetBool("log-json")
	}
	if flags.Changed("journal") {
		loaded.Journal.Path, _ = flags.GetString("journal")
	}
	if flags.Changed("metrics-file") {
		loaded.Metrics.Textfile, _ = flags.GetString("metrics-file")
	}

	level, err := log.ParseLevel(loaded.Log.Level)
	if err != nil {
		return err
	}
	log.Init(log.Config{Level: level, JSONOutput: loaded.Log.JSON})

	cfg = loaded
	return nil
}

// newClient builds the authority client from the loaded config
func newClient() (*authority.Client, error) {
	if err := cfg.RequireToken(); err != nil {
		return nil, err
	}
	return authority.NewClient(authority.Config{
		Host:      cfg.API.Host,
		Token:     cfg.API.Token,
		Timeout:   cfg.API.Timeout.Duration(),
		RateLimit: cfg.API.RateLimitRPS,
		UserAgent: "agentctl/" + Version,
	})
}

// openJournal opens the run history and prunes expired entries. A journal
// that cannot be opened is logged and skipped; runs never depend on it.
func openJournal() journal.Store {
	if cfg.Journal.Disabled {
		return nil
	}
	logger := log.WithComponent("journal")

	store, err := journal.NewBoltStore(cfg.Journal.Path)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.Journal.Path).Msg("Run history disabled")
		return nil
	}
	if removed, err := store.Prune(time.Now().Add(-cfg.Journal.Retention.Duration())); err != nil {
		logger.Warn().Err(err).Msg("Failed to prune run history")
	} else if removed > 0 {
		logger.Debug().Int("removed", removed).Msg("Pruned run history")
	}
	return store
}

// writeMetrics exports the metrics textfile when one is configured
func writeMetrics() {
	if cfg == nil || cfg.Metrics.Textfile == "" {
		return
	}
	if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		logger := log.WithComponent("metrics")
		logger.Warn().Err(err).Msg("Failed to write metrics textfile")
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	// version needs no config
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "agentctl version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime)
	},
}
