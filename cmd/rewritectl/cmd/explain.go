package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/rewrite"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/settings"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/config"
)

type explainOptions struct {
	dataDir         string
	shards          int
	mode            string
	termCountCutoff int
	docCountPercent float64
	jsonOutput      bool
}

func newExplainCmd() *cobra.Command {
	var opts explainOptions

	cmd := &cobra.Command{
		Use:   "explain <query>",
		Short: "Show how each pattern of a query is rewritten on every shard",
		Long: `Opens the index under --data-dir and rewrites every pattern of the query with
the given settings. Nothing is scored and the index is not modified.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "data/index", "Index data directory")
	cmd.Flags().IntVar(&opts.shards, "shards", 4, "Number of shards under the data directory")
	cmd.Flags().StringVar(&opts.mode, "mode", string(settings.ModeAuto), "Rewrite mode (auto, filter, scoring_boolean)")
	cmd.Flags().IntVar(&opts.termCountCutoff, "term-count-cutoff", rewrite.DefaultTermCountCutoff, "Terms collected before falling back to the filter")
	cmd.Flags().Float64Var(&opts.docCountPercent, "doc-count-percent", rewrite.DefaultDocCountPercent, "Percent of documents visited before falling back to the filter")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runExplain(cmd *cobra.Command, raw string, opts explainOptions) error {
	mgr, err := settings.NewManager(settings.Settings{
		Mode:            settings.Mode(opts.mode),
		TermCountCutoff: opts.termCountCutoff,
		DocCountPercent: opts.docCountPercent,
	}, nil)
	if err != nil {
		return err
	}
	plan, err := parser.Parse(raw)
	if err != nil {
		return err
	}

	router, err := shard.NewRouter(config.IndexerConfig{DataDir: opts.dataDir}, opts.shards)
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	defer router.Close()

	reports, err := executor.NewSharded(router.GetAllEngines(), mgr).Explain(cmd.Context(), plan)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}
	if len(reports) == 0 {
		fmt.Fprintln(out, "query has no patterns to rewrite")
		return nil
	}
	fmt.Fprintf(out, "strategy %s\n\n", mgr.StrategyKey())
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SHARD\tPATTERN\tSTRATEGY\tREASON\tTERMS\tDOCS\tDOC CUTOFF\tTERM LIMIT")
	for _, r := range reports {
		reason := string(r.Reason)
		if reason == "" {
			reason = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			r.Shard, r.Pattern, r.Strategy, reason,
			r.TermsCollected, r.DocVisitCount, r.DocCountCutoff, r.TermCountLimit)
	}
	return tw.Flush()
}
