package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"blenddoc/internal/annotate"
	"blenddoc/internal/catalog"
	"blenddoc/internal/config"
	"blenddoc/internal/digraph"
	"blenddoc/internal/errors"
	"blenddoc/internal/extract"
	"blenddoc/internal/logging"
	"blenddoc/internal/paths"
	"blenddoc/internal/report"
	"blenddoc/internal/scanner"
	"blenddoc/internal/storage"
	"blenddoc/internal/traverse"
)

var (
	scanFollowExternal bool
	scanBlenderPath    string
	scanTimeout        int
	scanNoStore        bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [folder]",
	Short: "Scan a project and build its dependency catalog",
	Long: `Walks the project folder, traverses scene-file dependencies, builds the
folder dependency graph and stores the run in .blenddoc/blenddoc.db.
Per-file extraction failures are recorded in the catalog and do not fail
the scan.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&scanFollowExternal, "follow-external", false,
		"Follow references outside the project root")
	scanCmd.Flags().StringVar(&scanBlenderPath, "blender-path", "",
		"Path to the Blender executable (default: from config, then PATH)")
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 0,
		"Per-file extraction timeout in seconds (default: from config)")
	scanCmd.Flags().BoolVar(&scanNoStore, "no-store", false,
		"Do not persist the run to the catalog database")
	rootCmd.AddCommand(scanCmd)
}

// scanResult bundles everything a finished traversal produced
type scanResult struct {
	run   storage.Run
	store *catalog.Store
	links *catalog.Registry
	graph *digraph.Graph
}

func runScan(cmd *cobra.Command, args []string) error {
	root, err := projectRoot(args)
	if err != nil {
		return errors.New(errors.InternalError, "failed to resolve project folder", err)
	}

	cfg, err := config.LoadConfig(root)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("follow-external") {
		cfg.FollowExternal = scanFollowExternal
	}
	if scanBlenderPath != "" {
		cfg.Blender.Path = scanBlenderPath
	}
	if scanTimeout > 0 {
		cfg.ExtractorTimeoutSeconds = scanTimeout
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, runErr := executeScan(ctx, root, cfg, logger)
	if result == nil {
		return runErr
	}

	if !scanNoStore {
		saved, saveErr := storage.Open(result.run.Root, logger)
		if saveErr != nil {
			return saveErr
		}
		defer saved.Close()
		if result.run, saveErr = saved.SaveRun(result.run, result.store, result.links); saveErr != nil {
			return saveErr
		}
		logger.Info("run stored", map[string]interface{}{"runId": result.run.ID})
	}

	payload := report.Build(runMeta(result.run), result.store, result.links, result.graph)
	fmt.Print(report.RenderText(payload))

	// A cancelled run has been persisted, but the scan itself did not finish
	return runErr
}

// executeScan runs the scan pipeline: walk, traverse, aggregate. Per-file
// failures land in the catalog; only fatal errors (unreadable root) return
// with a nil result. Cancellation returns the partial result and the error.
func executeScan(ctx context.Context, root string, cfg *config.Config, logger *logging.Logger) (*scanResult, error) {
	sc, err := scanner.New(root, cfg, logger)
	if err != nil {
		return nil, err
	}
	startedAt := time.Now()

	seeds, err := sc.Scan()
	if err != nil {
		return nil, err
	}
	logger.Info("scan complete", map[string]interface{}{
		"root": sc.Root(), "files": len(seeds),
	})

	var scenes extract.SceneExtractor
	timeout := time.Duration(cfg.ExtractorTimeoutSeconds) * time.Second
	blender, err := extract.NewBlenderExtractor(cfg.Blender.Path, timeout, logger)
	if err != nil {
		logger.Warn("blender not available, scene files get basic metadata only", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		scenes = blender
	}

	store := catalog.NewStore()
	links := catalog.NewRegistry()
	engine := traverse.New(store, links, extract.NewRegistry(scenes, logger), sc.Classifier(),
		traverse.Options{
			Root:           sc.Root(),
			FollowExternal: cfg.FollowExternal,
			SymlinkPolicy:  paths.ParsePolicy(cfg.SymlinkPolicy),
		}, logger)

	summary, runErr := engine.Run(ctx, seeds)
	if runErr != nil && errors.CodeOf(runErr) != errors.Cancelled {
		return nil, runErr
	}

	builder := digraph.NewBuilder(sc.Root(), cfg.FollowExternal, annotate.NewLoader(sc.Root(), logger))
	graph := builder.Build(store, links)

	return &scanResult{
		run: storage.Run{
			Root:           sc.Root(),
			StartedAt:      startedAt,
			FinishedAt:     time.Now(),
			FollowExternal: cfg.FollowExternal,
			Summary:        *summary,
		},
		store: store,
		links: links,
		graph: graph,
	}, runErr
}

func runMeta(run storage.Run) report.RunMeta {
	return report.RunMeta{
		ID:             run.ID,
		Root:           run.Root,
		StartedAt:      run.StartedAt,
		FinishedAt:     run.FinishedAt,
		FollowExternal: run.FollowExternal,
		Summary:        run.Summary,
	}
}
