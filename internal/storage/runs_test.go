package storage

import (
	"testing"
	"time"

	"blenddoc/internal/catalog"
	"blenddoc/internal/errors"
	"blenddoc/internal/logging"
	"blenddoc/internal/traverse"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir(), logging.NewNop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleCatalog(t *testing.T) (*catalog.Store, *catalog.Registry) {
	t.Helper()
	store := catalog.NewStore()
	links := catalog.NewRegistry()

	store.Add("/p/scene.blend", catalog.KindComposite, 100, "blend")
	store.SetStatus("/p/scene.blend", catalog.StatusQueued)
	store.SetStatus("/p/scene.blend", catalog.StatusProcessing)
	store.SetMetadata("/p/scene.blend", map[string]interface{}{"objectCount": float64(3)})
	store.SetStatus("/p/scene.blend", catalog.StatusFinalized)

	store.Add("/p/bad.blend", catalog.KindComposite, 10, "blend")
	store.SetStatus("/p/bad.blend", catalog.StatusQueued)
	store.SetStatus("/p/bad.blend", catalog.StatusProcessing)
	store.Fail("/p/bad.blend", "Timeout")

	links.RegisterEdge(catalog.LinkEdge{From: "/p/scene.blend", To: "/p/tex.png"})
	links.RegisterEdge(catalog.LinkEdge{From: "/p/scene.blend", To: "/p/scene.blend", CycleClosing: true})

	return store, links
}

func TestSaveAndLoadRun(t *testing.T) {
	db := openTestDB(t)
	store, links := sampleCatalog(t)

	saved, err := db.SaveRun(Run{
		Root:           "/p",
		StartedAt:      time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		FinishedAt:     time.Date(2026, 8, 1, 10, 0, 5, 0, time.UTC),
		FollowExternal: true,
		Summary:        traverse.Summary{FilesSeen: 2, Finalized: 1, Failed: 1, Edges: 2, CyclesBroken: 1},
	}, store, links)
	if err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("SaveRun did not assign an ID")
	}

	run, loadedStore, loadedLinks, err := db.LoadRun(saved.ID)
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}

	if run.Root != "/p" || !run.FollowExternal || run.Summary.FilesSeen != 2 {
		t.Errorf("run = %+v", run)
	}
	if !run.FinishedAt.Equal(saved.FinishedAt) {
		t.Errorf("finishedAt = %v, want %v", run.FinishedAt, saved.FinishedAt)
	}

	if loadedStore.Len() != 2 {
		t.Fatalf("loaded %d records", loadedStore.Len())
	}
	scene, err := loadedStore.Get("/p/scene.blend")
	if err != nil {
		t.Fatal(err)
	}
	if scene.Status != catalog.StatusFinalized || scene.Metadata["objectCount"] != float64(3) {
		t.Errorf("scene = %+v", scene)
	}
	bad, _ := loadedStore.Get("/p/bad.blend")
	if bad.Status != catalog.StatusFailed || bad.FailReason != "Timeout" {
		t.Errorf("bad = %+v", bad)
	}

	edges := loadedLinks.AllEdges()
	if len(edges) != 2 {
		t.Fatalf("edges = %+v", edges)
	}
	if edges[0].To != "/p/tex.png" || !edges[1].CycleClosing {
		t.Errorf("edges = %+v", edges)
	}

	// Insertion order survives the roundtrip
	var order []string
	for rec := range loadedStore.All() {
		order = append(order, rec.Path)
	}
	if order[0] != "/p/scene.blend" || order[1] != "/p/bad.blend" {
		t.Errorf("order = %v", order)
	}
}

func TestLatestRunID(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.LatestRunID(); errors.CodeOf(err) != errors.RecordNotFound {
		t.Errorf("empty db: err = %v", err)
	}

	store, links := sampleCatalog(t)
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	first, err := db.SaveRun(Run{Root: "/p", StartedAt: base, FinishedAt: base.Add(time.Second)}, store, links)
	if err != nil {
		t.Fatal(err)
	}
	second, err := db.SaveRun(Run{Root: "/p", StartedAt: base.Add(time.Minute), FinishedAt: base.Add(2 * time.Minute)},
		catalog.NewStore(), catalog.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	if first.ID == second.ID {
		t.Fatal("runs share an ID")
	}

	latest, err := db.LatestRunID()
	if err != nil {
		t.Fatalf("LatestRunID failed: %v", err)
	}
	if latest != second.ID {
		t.Errorf("latest = %s, want %s", latest, second.ID)
	}
}

func TestLoadRunMissing(t *testing.T) {
	db := openTestDB(t)
	if _, _, _, err := db.LoadRun("nope"); errors.CodeOf(err) != errors.RecordNotFound {
		t.Errorf("err = %v", err)
	}
}
