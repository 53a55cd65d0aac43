package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/triage-graph/internal/app"
	"github.com/yungbote/triage-graph/internal/dataset"
	"github.com/yungbote/triage-graph/internal/ingest"
)

var (
	ingestDir     string
	ingestSources dataset.Sources
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Replace the graph with a terminology release",
	Long: `Wipe the graph store and load a release: concepts, then descriptions with
their embeddings, then IS_A and ASSOCIATED_WITH relationships, then rebuild the
vector index.

Extracts are discovered in --dir (local path or gs://bucket/prefix) by their
sct2_*_Snapshot names; --concepts, --descriptions and --relationships override
individual files. All three must exist before anything is deleted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			sources, err := a.ResolveSources(ctx, ingestDir, ingestSources)
			if err != nil {
				return err
			}
			rep, err := a.Ingest(ctx, sources)
			if err != nil {
				return err
			}
			return printReport(rep)
		})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Replace the graph with a small built-in demonstration dataset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			rep, err := a.Seed(ctx)
			if err != nil {
				return err
			}
			return printReport(rep)
		})
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDir, "dir", "", "release directory holding the snapshot extracts (default: dataset.dir / SNOMED_DIR)")
	ingestCmd.Flags().StringVar(&ingestSources.Concepts, "concepts", "", "concept extract path")
	ingestCmd.Flags().StringVar(&ingestSources.Descriptions, "descriptions", "", "description extract path")
	ingestCmd.Flags().StringVar(&ingestSources.Relationships, "relationships", "", "relationship extract path")
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(seedCmd)
}

func printReport(rep ingest.Report) error {
	if !humanOutput {
		return outputJSON(rep)
	}
	for _, st := range []ingest.PassStats{rep.Concepts, rep.Descriptions, rep.Relationships} {
		outputHuman("%-13s read=%d inactive=%d written=%d malformed=%d orphan=%d unknown_type=%d batches=%d (%s)\n",
			st.Pass, st.Read, st.Inactive, st.Written, st.DroppedMalformed, st.DroppedOrphan, st.DroppedUnknownType,
			st.Batches, st.Duration.Round(time.Millisecond))
	}
	outputHuman("vector index %s rebuilt; total %s\n", rep.Index, rep.Duration.Round(time.Millisecond))
	return nil
}
