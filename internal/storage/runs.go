package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"blenddoc/internal/catalog"
	"blenddoc/internal/errors"
	"blenddoc/internal/traverse"
)

// Run is the stored identity of one traversal run
type Run struct {
	ID             string
	Root           string
	StartedAt      time.Time
	FinishedAt     time.Time
	FollowExternal bool
	Summary        traverse.Summary
}

const timeFormat = time.RFC3339Nano

// SaveRun persists a run with its full catalog. A missing ID gets a fresh
// UUID; the filled-in run is returned. Partial runs after cancellation
// persist the same way.
func (db *DB) SaveRun(run Run, store *catalog.Store, links *catalog.Registry) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	err := db.WithTx(func(tx *sql.Tx) error {
		s := run.Summary
		if _, err := tx.Exec(`
			INSERT INTO runs (id, root, started_at, finished_at, follow_external,
				files_seen, finalized, failed, edge_count, cycles_broken,
				unresolved_refs, external_refs)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, run.Root,
			run.StartedAt.UTC().Format(timeFormat), run.FinishedAt.UTC().Format(timeFormat),
			boolToInt(run.FollowExternal),
			s.FilesSeen, s.Finalized, s.Failed, s.Edges,
			s.CyclesBroken, s.UnresolvedRefs, s.ExternalRefs); err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		fileStmt, err := tx.Prepare(`
			INSERT INTO files (run_id, position, path, kind, status, extension,
				size_bytes, fail_reason, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer fileStmt.Close()

		position := 0
		for rec := range store.All() {
			metadata := ""
			if rec.Metadata != nil {
				data, err := json.Marshal(rec.Metadata)
				if err != nil {
					return fmt.Errorf("failed to encode metadata for %s: %w", rec.Path, err)
				}
				metadata = string(data)
			}
			if _, err := fileStmt.Exec(run.ID, position, rec.Path, string(rec.Kind),
				string(rec.Status), rec.Extension, rec.SizeBytes, rec.FailReason, metadata); err != nil {
				return fmt.Errorf("failed to insert file row: %w", err)
			}
			position++
		}

		edgeStmt, err := tx.Prepare(`
			INSERT INTO edges (run_id, position, from_path, to_path, external,
				unresolved, cycle_closing)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer edgeStmt.Close()

		for i, e := range links.AllEdges() {
			if _, err := edgeStmt.Exec(run.ID, i, e.From, e.To,
				boolToInt(e.External), boolToInt(e.Unresolved), boolToInt(e.CycleClosing)); err != nil {
				return fmt.Errorf("failed to insert edge row: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Run{}, errors.New(errors.StorageFailure, "failed to save run", err)
	}
	return run, nil
}

// LatestRunID returns the most recently finished run, or RECORD_NOT_FOUND
// when the database holds none.
func (db *DB) LatestRunID() (string, error) {
	var id string
	err := db.conn.QueryRow(`SELECT id FROM runs ORDER BY finished_at DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", errors.Newf(errors.RecordNotFound, "no stored runs")
	}
	if err != nil {
		return "", errors.New(errors.StorageFailure, "failed to query latest run", err)
	}
	return id, nil
}

// LoadRun rebuilds a stored run's catalog. The returned store and registry
// preserve the original insertion order.
func (db *DB) LoadRun(id string) (Run, *catalog.Store, *catalog.Registry, error) {
	var run Run
	var startedAt, finishedAt string
	var followExternal int

	err := db.conn.QueryRow(`
		SELECT id, root, started_at, finished_at, follow_external,
			files_seen, finalized, failed, edge_count, cycles_broken,
			unresolved_refs, external_refs
		FROM runs WHERE id = ?`, id).Scan(
		&run.ID, &run.Root, &startedAt, &finishedAt, &followExternal,
		&run.Summary.FilesSeen, &run.Summary.Finalized, &run.Summary.Failed,
		&run.Summary.Edges, &run.Summary.CyclesBroken,
		&run.Summary.UnresolvedRefs, &run.Summary.ExternalRefs)
	if err == sql.ErrNoRows {
		return Run{}, nil, nil, errors.Newf(errors.RecordNotFound, "no stored run %q", id)
	}
	if err != nil {
		return Run{}, nil, nil, errors.New(errors.StorageFailure, "failed to load run", err)
	}

	run.FollowExternal = followExternal != 0
	if run.StartedAt, err = time.Parse(timeFormat, startedAt); err != nil {
		return Run{}, nil, nil, errors.New(errors.StorageFailure, "corrupt started_at", err)
	}
	if run.FinishedAt, err = time.Parse(timeFormat, finishedAt); err != nil {
		return Run{}, nil, nil, errors.New(errors.StorageFailure, "corrupt finished_at", err)
	}

	store, err := db.loadFiles(id)
	if err != nil {
		return Run{}, nil, nil, err
	}
	links, err := db.loadEdges(id)
	if err != nil {
		return Run{}, nil, nil, err
	}
	return run, store, links, nil
}

func (db *DB) loadFiles(runID string) (*catalog.Store, error) {
	rows, err := db.conn.Query(`
		SELECT path, kind, status, extension, size_bytes, fail_reason, metadata
		FROM files WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, errors.New(errors.StorageFailure, "failed to load files", err)
	}
	defer rows.Close()

	store := catalog.NewStore()
	for rows.Next() {
		var path, kind, status, extension, failReason, metadata string
		var sizeBytes int64
		if err := rows.Scan(&path, &kind, &status, &extension, &sizeBytes, &failReason, &metadata); err != nil {
			return nil, errors.New(errors.StorageFailure, "failed to scan file row", err)
		}

		if _, err := store.Add(path, catalog.Kind(kind), sizeBytes, extension); err != nil {
			return nil, err
		}
		if metadata != "" {
			var md map[string]interface{}
			if err := json.Unmarshal([]byte(metadata), &md); err != nil {
				return nil, errors.New(errors.StorageFailure, "corrupt metadata", err)
			}
			store.SetMetadata(path, md)
		}
		if s := catalog.Status(status); s == catalog.StatusFailed {
			store.Fail(path, failReason)
		} else if s != catalog.StatusDiscovered {
			if err := store.SetStatus(path, s); err != nil {
				return nil, err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New(errors.StorageFailure, "failed to iterate files", err)
	}
	return store, nil
}

func (db *DB) loadEdges(runID string) (*catalog.Registry, error) {
	rows, err := db.conn.Query(`
		SELECT from_path, to_path, external, unresolved, cycle_closing
		FROM edges WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, errors.New(errors.StorageFailure, "failed to load edges", err)
	}
	defer rows.Close()

	links := catalog.NewRegistry()
	for rows.Next() {
		var from, to string
		var external, unresolved, cycleClosing int
		if err := rows.Scan(&from, &to, &external, &unresolved, &cycleClosing); err != nil {
			return nil, errors.New(errors.StorageFailure, "failed to scan edge row", err)
		}
		links.RegisterEdge(catalog.LinkEdge{
			From:         from,
			To:           to,
			External:     external != 0,
			Unresolved:   unresolved != 0,
			CycleClosing: cycleClosing != 0,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New(errors.StorageFailure, "failed to iterate edges", err)
	}
	return links, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
