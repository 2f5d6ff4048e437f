// Package traverse implements the dependency traversal engine: an explicit
// work stack seeded by the scanner, draining depth-first through composite
// files while the link registry records edges and breaks cycles.
package traverse

import (
	"context"
	"os"
	"path/filepath"

	"blenddoc/internal/catalog"
	"blenddoc/internal/errors"
	"blenddoc/internal/extract"
	"blenddoc/internal/logging"
	"blenddoc/internal/paths"
	"blenddoc/internal/scanner"
)

// Options configures a traversal run
type Options struct {
	// Root is the canonical project root
	Root string

	// FollowExternal enqueues files referenced from outside the root
	// instead of recording the edge and stopping there
	FollowExternal bool

	// SymlinkPolicy governs how referenced paths are canonicalized
	SymlinkPolicy paths.SymlinkPolicy
}

// Summary reports what a run did. Counts are cumulative over the whole run,
// including work done before a cancellation.
type Summary struct {
	FilesSeen      int `json:"filesSeen" yaml:"filesSeen"`
	Finalized      int `json:"finalized" yaml:"finalized"`
	Failed         int `json:"failed" yaml:"failed"`
	Edges          int `json:"edges" yaml:"edges"`
	CyclesBroken   int `json:"cyclesBroken" yaml:"cyclesBroken"`
	UnresolvedRefs int `json:"unresolvedRefs" yaml:"unresolvedRefs"`
	ExternalRefs   int `json:"externalRefs" yaml:"externalRefs"`
}

// frame is one stack entry. A file is visited twice: once on entry, when it
// is extracted and its references are pushed, and once on exit, when the
// whole subtree below it has drained and it can leave the active path. Exit
// frames are what keep ancestors visible to cycle detection for the full
// lifetime of their subtree.
type frame struct {
	path string
	exit bool

	// metadata rides on the exit frame so a composite's record carries
	// metadata only once it is Finalized, never while still Processing
	metadata extract.Metadata
}

// Engine drains the work stack. It is the only writer of the store and the
// link registry during a run.
type Engine struct {
	store      *catalog.Store
	links      *catalog.Registry
	extractors *extract.Registry
	classifier *scanner.Classifier
	opts       Options
	logger     *logging.Logger
}

// New creates an engine over the given store and registry
func New(store *catalog.Store, links *catalog.Registry, extractors *extract.Registry,
	classifier *scanner.Classifier, opts Options, logger *logging.Logger) *Engine {
	return &Engine{
		store:      store,
		links:      links,
		extractors: extractors,
		classifier: classifier,
		opts:       opts,
		logger:     logger,
	}
}

// Run seeds the stack and drains it. On cancellation it fails every record
// still in Processing, clears the active path and returns the partial
// summary alongside a CANCELLED error.
func (e *Engine) Run(ctx context.Context, seeds []scanner.Seed) (*Summary, error) {
	summary := &Summary{}
	var stack []frame

	// Push in reverse so the first seed is processed first. Seeds stay in
	// Discovered until their frame pops: a seed reached earlier through a
	// reference is adopted into the referencer's subtree, which keeps its
	// ancestors on the active path, and its own frame later skips as a
	// terminal no-op.
	for i := len(seeds) - 1; i >= 0; i-- {
		s := seeds[i]
		rec, created := e.store.GetOrCreate(s.Path, s.Kind, s.SizeBytes, s.Extension)
		if !created && rec.Status != catalog.StatusDiscovered {
			continue
		}
		stack = append(stack, frame{path: s.Path})
	}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return summary, e.cancel(summary, err)
		}

		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.exit {
			if err := e.store.SetMetadata(f.path, f.metadata); err != nil {
				e.logger.Warn("cannot store metadata", map[string]interface{}{
					"path": f.path, "error": err.Error(),
				})
			}
			e.mustSetStatus(f.path, catalog.StatusFinalized)
			e.links.PopActive(f.path)
			continue
		}

		rec, err := e.store.Get(f.path)
		if err != nil {
			return summary, err
		}
		if rec.Status.Terminal() {
			continue
		}
		if rec.Status == catalog.StatusDiscovered {
			e.mustSetStatus(f.path, catalog.StatusQueued)
		}
		e.mustSetStatus(f.path, catalog.StatusProcessing)

		if rec.Kind == catalog.KindComposite {
			stack = e.processComposite(ctx, rec, stack, summary)
		} else {
			e.processLeaf(ctx, rec)
		}
	}

	e.finish(summary)
	return summary, nil
}

// processComposite extracts a scene file and pushes its subtree. The file
// joins the active path before its references are examined and leaves it via
// the exit frame, or immediately on extraction failure.
func (e *Engine) processComposite(ctx context.Context, rec *catalog.FileRecord,
	stack []frame, summary *Summary) []frame {

	e.links.PushActive(rec.Path)

	metadata, refs, err := e.extractors.Extract(ctx, rec.Path, rec.Kind)
	if err != nil {
		reason := err.Error()
		if errors.CodeOf(err) == errors.ExtractorTimeout {
			reason = "Timeout"
		}
		e.failRecord(rec.Path, reason)
		e.links.PopActive(rec.Path)
		return stack
	}
	// The exit frame goes under the children so the file stays active
	// until its whole subtree has drained
	stack = append(stack, frame{path: rec.Path, exit: true, metadata: metadata})

	referrerDir := filepath.Dir(rec.Path)
	var children []string
	for _, ref := range refs {
		if child, enqueue := e.handleReference(rec.Path, ref, referrerDir, summary); enqueue {
			children = append(children, child)
		}
	}
	// Reverse push keeps the declared reference order on a LIFO stack
	for i := len(children) - 1; i >= 0; i-- {
		stack = append(stack, frame{path: children[i]})
	}
	return stack
}

// handleReference resolves one raw reference, registers its edge and decides
// whether the target should be enqueued. Only the first registration of a
// (from, to) pair counts toward the summary.
func (e *Engine) handleReference(from, ref, referrerDir string, summary *Summary) (string, bool) {
	resolved, err := paths.ResolveReference(ref, referrerDir, e.opts.SymlinkPolicy)
	if err != nil {
		e.logger.Warn("cannot resolve reference", map[string]interface{}{
			"from": from, "ref": ref, "error": err.Error(),
		})
		resolved = ref
	}

	external := !paths.IsWithin(resolved, e.opts.Root)

	info, statErr := os.Stat(resolved)
	if statErr != nil {
		if e.links.RegisterEdge(catalog.LinkEdge{
			From: from, To: resolved, External: external, Unresolved: true,
		}) {
			summary.UnresolvedRefs++
			e.logger.Debug("unresolved reference", map[string]interface{}{
				"from": from, "to": resolved,
			})
		}
		return "", false
	}

	if e.links.WouldCreateCycle(from, resolved) {
		if e.links.RegisterEdge(catalog.LinkEdge{
			From: from, To: resolved, External: external, CycleClosing: true,
		}) {
			summary.CyclesBroken++
			e.logger.Info("cycle broken", map[string]interface{}{
				"from": from, "to": resolved,
			})
		}
		return "", false
	}

	if e.links.RegisterEdge(catalog.LinkEdge{From: from, To: resolved, External: external}) {
		if external {
			summary.ExternalRefs++
		}
	}

	if external && !e.opts.FollowExternal {
		return "", false
	}

	ext := extract.NormalizeExtension(resolved)
	childRec, _ := e.store.GetOrCreate(resolved, e.classifier.Classify(resolved), info.Size(), ext)
	if childRec.Status != catalog.StatusDiscovered {
		// Already queued, processing or done; the edge is enough
		return "", false
	}
	e.mustSetStatus(resolved, catalog.StatusQueued)
	return resolved, true
}

// processLeaf extracts a leaf or unknown file and finalizes it in place.
// Leaves never join the active path since they push no children.
func (e *Engine) processLeaf(ctx context.Context, rec *catalog.FileRecord) {
	metadata, _, err := e.extractors.Extract(ctx, rec.Path, rec.Kind)
	if err != nil {
		e.failRecord(rec.Path, err.Error())
		return
	}
	if err := e.store.SetMetadata(rec.Path, metadata); err != nil {
		e.logger.Warn("cannot store metadata", map[string]interface{}{
			"path": rec.Path, "error": err.Error(),
		})
	}
	e.mustSetStatus(rec.Path, catalog.StatusFinalized)
}

// cancel fails every record caught mid-processing and leaves the registry
// consistent for a partial report
func (e *Engine) cancel(summary *Summary, cause error) error {
	for rec := range e.store.All() {
		if rec.Status == catalog.StatusProcessing {
			e.failRecord(rec.Path, "Cancelled")
		}
	}
	e.links.ClearActive()
	e.finish(summary)
	e.logger.Warn("traversal cancelled", map[string]interface{}{
		"filesSeen": summary.FilesSeen, "finalized": summary.Finalized,
	})
	return errors.New(errors.Cancelled, "traversal cancelled", cause)
}

func (e *Engine) failRecord(path, reason string) {
	if err := e.store.Fail(path, reason); err != nil {
		e.logger.Warn("cannot fail record", map[string]interface{}{
			"path": path, "error": err.Error(),
		})
		return
	}
	e.logger.Warn("extraction failed", map[string]interface{}{
		"path": path, "reason": reason,
	})
}

func (e *Engine) finish(summary *Summary) {
	counts := e.store.CountByStatus()
	summary.FilesSeen = e.store.Len()
	summary.Finalized = counts[catalog.StatusFinalized]
	summary.Failed = counts[catalog.StatusFailed]
	summary.Edges = e.links.Len()
}

// mustSetStatus applies a transition the engine itself guarantees is legal;
// a rejection here is a bug worth surfacing loudly in logs
func (e *Engine) mustSetStatus(path string, status catalog.Status) {
	if err := e.store.SetStatus(path, status); err != nil {
		e.logger.Error("illegal status transition", map[string]interface{}{
			"path": path, "status": string(status), "error": err.Error(),
		})
	}
}
