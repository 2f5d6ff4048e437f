package main

import (
	"github.com/spf13/cobra"

	"blenddoc/internal/config"
	"blenddoc/internal/digraph"
	"blenddoc/internal/errors"
	"blenddoc/internal/report"
)

var (
	graphFormat string
	graphOut    string
	graphRescan bool
)

var graphCmd = &cobra.Command{
	Use:   "graph [folder]",
	Short: "Render the folder dependency graph",
	Long: `Renders the folder-level dependency digraph of the latest stored run as
Graphviz DOT or JSON, including aggregate statistics (node and edge count,
density, DAG check, weakly connected components).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGraph,
}

func init() {
	graphCmd.Flags().StringVar(&graphFormat, "format", "dot", "Output format: dot or json")
	graphCmd.Flags().StringVar(&graphOut, "out", "", "Write output to a file instead of stdout")
	graphCmd.Flags().BoolVar(&graphRescan, "rescan", false, "Run a fresh scan instead of using the stored run")
	rootCmd.AddCommand(graphCmd)
}

func runGraph(cmd *cobra.Command, args []string) error {
	root, err := projectRoot(args)
	if err != nil {
		return errors.New(errors.InternalError, "failed to resolve project folder", err)
	}
	cfg, err := config.LoadConfig(root)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	result, err := loadOrRescan(root, cfg, logger, graphRescan)
	if err != nil {
		return err
	}

	var data []byte
	switch graphFormat {
	case "dot":
		data = []byte(digraph.RenderDOT(result.graph))
	case "json":
		data, err = report.DeterministicEncodeIndented(result.graph, "  ")
	default:
		return errors.Newf(errors.InternalError, "unknown graph format %q", graphFormat)
	}
	if err != nil {
		return err
	}

	return writeOutput(data, graphOut, false)
}
