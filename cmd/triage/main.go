// Command triage loads a clinical terminology release into a graph store and serves symptom lookups.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yungbote/triage-graph/internal/app"
	"github.com/yungbote/triage-graph/internal/config"
	"github.com/yungbote/triage-graph/internal/platform/shutdown"
)

var (
	cfgFile     string
	envFile     string
	humanOutput bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Clinical terminology graph ingestion and symptom triage",
	Long: `triage loads concept, description and relationship snapshot extracts into a
Memgraph or Neo4j store, embeds every description, builds the vector index and
serves symptom-to-condition lookups over a tool-call webhook.

Commands print JSON by default; pass --human for a readable summary.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
		} else {
			_ = godotenv.Load()
		}
		if cfgFile != "" {
			return os.Setenv("TRIAGE_CONFIG_PATH", cfgFile)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (JSON or YAML); defaults to config/config.{json,yaml,yml}")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load before reading config (default .env when present)")
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "human-readable output instead of JSON")
	rootCmd.Version = app.Version
}

// withApp loads config, builds the app and runs fn under a signal-aware context.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	a, err := app.New(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())
	return fn(ctx, a)
}

func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func outputHuman(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
