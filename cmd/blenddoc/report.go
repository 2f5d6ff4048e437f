package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"blenddoc/internal/annotate"
	"blenddoc/internal/config"
	"blenddoc/internal/digraph"
	"blenddoc/internal/errors"
	"blenddoc/internal/logging"
	"blenddoc/internal/report"
	"blenddoc/internal/storage"
)

var (
	reportFormat      string
	reportOut         string
	reportCompress    bool
	reportRescan      bool
	reportDetailsOnly bool
)

var reportCmd = &cobra.Command{
	Use:   "report [folder]",
	Short: "Render a project report from the latest stored run",
	Long: `Renders the latest stored scan of the project as JSON, YAML or text.
Use --rescan to run a fresh scan instead of reading the catalog database.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportFormat, "format", "text", "Output format: json, yaml or text")
	reportCmd.Flags().StringVar(&reportOut, "out", "", "Write output to a file instead of stdout")
	reportCmd.Flags().BoolVar(&reportCompress, "compress", false, "Gzip the output (requires --out)")
	reportCmd.Flags().BoolVar(&reportRescan, "rescan", false, "Run a fresh scan instead of using the stored run")
	reportCmd.Flags().BoolVar(&reportDetailsOnly, "details-only", false, "Omit the folder graph section")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	root, err := projectRoot(args)
	if err != nil {
		return errors.New(errors.InternalError, "failed to resolve project folder", err)
	}
	cfg, err := config.LoadConfig(root)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	result, err := loadOrRescan(root, cfg, logger, reportRescan)
	if err != nil {
		return err
	}

	graph := result.graph
	if reportDetailsOnly {
		graph = nil
	}
	payload := report.Build(runMeta(result.run), result.store, result.links, graph)

	var data []byte
	switch reportFormat {
	case "json":
		data, err = report.EncodeJSON(payload)
	case "yaml":
		data, err = report.EncodeYAML(payload)
	case "text":
		data = []byte(report.RenderText(payload))
	default:
		return errors.Newf(errors.InternalError, "unknown report format %q", reportFormat)
	}
	if err != nil {
		return err
	}

	return writeOutput(data, reportOut, reportCompress)
}

// loadOrRescan resolves the catalog to report on: the latest stored run, or a
// fresh scan when requested (or when nothing is stored yet).
func loadOrRescan(root string, cfg *config.Config, logger *logging.Logger, rescan bool) (*scanResult, error) {
	if rescan {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		result, err := executeScan(ctx, root, cfg, logger)
		if err != nil && errors.CodeOf(err) != errors.Cancelled {
			return nil, err
		}
		return result, nil
	}

	db, err := storage.Open(root, logger)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	id, err := db.LatestRunID()
	if err != nil {
		if errors.CodeOf(err) == errors.RecordNotFound {
			logger.Info("no stored run, scanning", map[string]interface{}{"root": root})
			return loadOrRescan(root, cfg, logger, true)
		}
		return nil, err
	}

	run, store, links, err := db.LoadRun(id)
	if err != nil {
		return nil, err
	}

	builder := digraph.NewBuilder(run.Root, run.FollowExternal, annotate.NewLoader(run.Root, logger))
	return &scanResult{
		run:   run,
		store: store,
		links: links,
		graph: builder.Build(store, links),
	}, nil
}

// writeOutput writes to the given file, or stdout when path is empty.
// A failure to write the output is fatal.
func writeOutput(data []byte, path string, compress bool) error {
	if path == "" {
		return report.Write(os.Stdout, data, compress)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.New(errors.InternalError, "failed to create output file", err)
	}
	if err := report.Write(f, data, compress); err != nil {
		f.Close()
		return errors.New(errors.InternalError, "failed to write output file", err)
	}
	if err := f.Close(); err != nil {
		return errors.New(errors.InternalError, "failed to close output file", err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", path)
	return nil
}
