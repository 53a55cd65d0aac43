package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/triage-graph/internal/app"
)

var (
	lookupK        int
	lookupNoExpand bool
)

var lookupCmd = &cobra.Command{
	Use:   "lookup TEXT...",
	Short: "Run one symptom lookup against the current graph",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		return withApp(func(ctx context.Context, a *app.App) error {
			res, err := a.Lookup(ctx, text, lookupK, !lookupNoExpand)
			if !humanOutput {
				if perr := outputJSON(res); perr != nil {
					return perr
				}
				return err
			}
			outputHuman("%s\n", res.Summary)
			for i, m := range res.Matches {
				outputHuman("%2d. %.4f  %s  [%s %s]\n", i+1, m.Score, m.Term, m.Type, m.ConceptID)
			}
			if len(res.Conditions) > 0 {
				names := make([]string, 0, len(res.Conditions))
				for _, c := range res.Conditions {
					names = append(names, c.Term+" ("+c.ConceptID+")")
				}
				outputHuman("conditions: %s\n", joinOrNone(names))
			}
			return err
		})
	},
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Vector index maintenance",
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Drop and recreate the description vector index from the embeddings already stored",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			if err := a.RebuildIndex(ctx); err != nil {
				return err
			}
			spec := a.Services.Index.Spec()
			if humanOutput {
				outputHuman("rebuilt %s (dimension=%d capacity=%d metric=%s)\n", spec.Name, spec.Dimension, spec.Capacity, spec.Metric)
				return nil
			}
			return outputJSON(map[string]interface{}{
				"index":     spec.Name,
				"dimension": spec.Dimension,
				"capacity":  spec.Capacity,
				"metric":    spec.Metric,
			})
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count concepts, descriptions, edges and list vector indexes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			st, err := a.Stats(ctx)
			if err != nil {
				return err
			}
			if !humanOutput {
				return outputJSON(st)
			}
			outputHuman("concepts:        %d\n", st.Concepts)
			outputHuman("descriptions:    %d\n", st.Descriptions)
			outputHuman("IS_A:            %d\n", st.IsAEdges)
			outputHuman("ASSOCIATED_WITH: %d\n", st.AssocEdges)
			outputHuman("vector indexes:  %s\n", joinOrNone(st.VectorIndexes))
			return nil
		})
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tool-call webhook until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			return a.Serve(ctx)
		})
	},
}

func init() {
	lookupCmd.Flags().IntVar(&lookupK, "k", 0, "maximum matches (default: triage.top_k)")
	lookupCmd.Flags().BoolVar(&lookupNoExpand, "no-expand", false, "skip associated-condition expansion")
	indexCmd.AddCommand(indexRebuildCmd)
	rootCmd.AddCommand(lookupCmd, indexCmd, statsCmd, serveCmd)
}
