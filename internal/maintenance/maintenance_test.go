package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/persistence"
)

var errNotFound = errors.New("resource not found")

type fakeDB struct {
	resources  map[string]*core.Resource
	byURL      map[string]string
	citations  []core.Citation
	snapshots  map[string][]core.QualitySnapshot
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		resources: map[string]*core.Resource{},
		byURL:     map[string]string{},
		snapshots: map[string][]core.QualitySnapshot{},
	}
}

func (f *fakeDB) Resources() persistence.ResourceRepository             { return fakeResources{f} }
func (f *fakeDB) Subjects() persistence.SubjectRepository               { return nil }
func (f *fakeDB) Taxonomy() persistence.TaxonomyRepository              { return nil }
func (f *fakeDB) Citations() persistence.CitationRepository             { return fakeCitations{f} }
func (f *fakeDB) Hypotheses() persistence.HypothesisRepository          { return nil }
func (f *fakeDB) EdgeOverrides() persistence.GraphEdgeOverrideRepository { return nil }
func (f *fakeDB) QualitySnapshots() persistence.QualitySnapshotRepository {
	return fakeSnapshots{f}
}
func (f *fakeDB) Ping(ctx context.Context) error { return nil }
func (f *fakeDB) Close() error                   { return nil }
func (f *fakeDB) BeginTx(ctx context.Context) (persistence.Transaction, error) {
	return nil, nil
}

type fakeResources struct{ f *fakeDB }

func (r fakeResources) Create(ctx context.Context, res *core.Resource) error { return nil }
func (r fakeResources) Get(ctx context.Context, id string) (*core.Resource, error) {
	if res, ok := r.f.resources[id]; ok {
		return res, nil
	}
	return nil, errNotFound
}
func (r fakeResources) GetByURL(ctx context.Context, sourceURL string) (*core.Resource, error) {
	if id, ok := r.f.byURL[sourceURL]; ok {
		return r.f.resources[id], nil
	}
	return nil, errNotFound
}
func (r fakeResources) List(ctx context.Context, opts persistence.ListOptions, filter persistence.ResourceFilter) ([]core.Resource, error) {
	return nil, nil
}
func (r fakeResources) GetMany(ctx context.Context, ids []string) (map[string]*core.Resource, error) {
	return nil, nil
}
func (r fakeResources) Update(ctx context.Context, res *core.Resource) error {
	r.f.resources[res.ID] = res
	return nil
}
func (r fakeResources) Delete(ctx context.Context, id string) error { return nil }
func (r fakeResources) All(ctx context.Context) ([]core.Resource, error) {
	out := make([]core.Resource, 0, len(r.f.resources))
	for _, res := range r.f.resources {
		out = append(out, *res)
	}
	return out, nil
}
func (r fakeResources) TopByQuality(ctx context.Context, limit int) ([]core.Resource, error) {
	return nil, nil
}
func (r fakeResources) UpdatedSince(ctx context.Context, since time.Time) ([]core.Resource, error) {
	return nil, nil
}
func (r fakeResources) SearchFTS(ctx context.Context, query string, limit int) ([]string, error) {
	return nil, nil
}

type fakeCitations struct{ f *fakeDB }

func (c fakeCitations) Create(ctx context.Context, cit *core.Citation) error { return nil }
func (c fakeCitations) BulkCreate(ctx context.Context, cs []core.Citation) error { return nil }
func (c fakeCitations) ByResource(ctx context.Context, sourceResourceID string) ([]core.Citation, error) {
	return nil, nil
}
func (c fakeCitations) ByTargetResource(ctx context.Context, targetResourceID string) ([]core.Citation, error) {
	return nil, nil
}
func (c fakeCitations) Unresolved(ctx context.Context, limit int) ([]core.Citation, error) {
	var out []core.Citation
	for _, cit := range c.f.citations {
		if cit.TargetResourceID == nil {
			out = append(out, cit)
		}
	}
	return out, nil
}
func (c fakeCitations) UpdateImportance(ctx context.Context, id string, score float64) error {
	for i := range c.f.citations {
		if c.f.citations[i].ID == id {
			c.f.citations[i].ImportanceScore = score
		}
	}
	return nil
}
func (c fakeCitations) ResolveTarget(ctx context.Context, id string, targetResourceID string) error {
	for i := range c.f.citations {
		if c.f.citations[i].ID == id {
			tid := targetResourceID
			c.f.citations[i].TargetResourceID = &tid
		}
	}
	return nil
}
func (c fakeCitations) All(ctx context.Context) ([]core.Citation, error) { return c.f.citations, nil }

type fakeSnapshots struct{ f *fakeDB }

func (s fakeSnapshots) Create(ctx context.Context, snap *core.QualitySnapshot) error {
	s.f.snapshots[snap.ResourceID] = append(s.f.snapshots[snap.ResourceID], *snap)
	return nil
}
func (s fakeSnapshots) Recent(ctx context.Context, resourceID string, since time.Time) ([]core.QualitySnapshot, error) {
	var out []core.QualitySnapshot
	for _, snap := range s.f.snapshots[resourceID] {
		if !snap.TakenAt.Before(since) {
			out = append(out, snap)
		}
	}
	return out, nil
}

func TestResolveCitationsFillsTargetResourceIDOnMatch(t *testing.T) {
	db := newFakeDB()
	db.resources["r1"] = &core.Resource{ID: "r1", SourceURL: "https://example.com/target"}
	db.byURL["https://example.com/target"] = "r1"
	db.citations = []core.Citation{{ID: "c1", SourceResourceID: "r0", TargetURL: "https://example.com/target"}}

	if err := ResolveCitations(db)(context.Background()); err != nil {
		t.Fatalf("ResolveCitations: %v", err)
	}
	if db.citations[0].TargetResourceID == nil || *db.citations[0].TargetResourceID != "r1" {
		t.Errorf("expected citation resolved to r1, got %+v", db.citations[0])
	}
}

func TestResolveCitationsLeavesUnmatchedCitationUnresolved(t *testing.T) {
	db := newFakeDB()
	db.citations = []core.Citation{{ID: "c1", SourceResourceID: "r0", TargetURL: "https://example.com/nowhere"}}

	if err := ResolveCitations(db)(context.Background()); err != nil {
		t.Fatalf("ResolveCitations: %v", err)
	}
	if db.citations[0].TargetResourceID != nil {
		t.Errorf("expected citation to remain unresolved, got %+v", db.citations[0])
	}
}

func TestRecomputeImportanceUpdatesCitationsTargetingRankedResources(t *testing.T) {
	db := newFakeDB()
	target := "r2"
	db.citations = []core.Citation{
		{ID: "c1", SourceResourceID: "r1", TargetResourceID: &target},
	}

	if err := RecomputeImportance(db)(context.Background()); err != nil {
		t.Fatalf("RecomputeImportance: %v", err)
	}
	if db.citations[0].ImportanceScore <= 0 {
		t.Errorf("expected a positive importance score, got %v", db.citations[0].ImportanceScore)
	}
}

func TestDetectOutliersFlagsNeedsReviewOnAnomalousResource(t *testing.T) {
	db := newFakeDB()
	for i := 0; i < 19; i++ {
		id := "normal-" + string(rune('a'+i))
		db.resources[id] = &core.Resource{
			ID: id,
			Quality: core.Quality{Accuracy: 0.8, Completeness: 0.8, Consistency: 0.8, Timeliness: 0.8, Relevance: 0.8},
		}
	}
	db.resources["outlier"] = &core.Resource{
		ID:      "outlier",
		Quality: core.Quality{Accuracy: 0.01, Completeness: 0.01, Consistency: 0.01, Timeliness: 0.01, Relevance: 0.01},
	}

	if err := DetectOutliers(db)(context.Background()); err != nil {
		t.Fatalf("DetectOutliers: %v", err)
	}
	if !db.resources["outlier"].Quality.NeedsReview {
		t.Error("expected the anomalous resource to be flagged needs_review")
	}
}

func TestScanDegradationPersistsSnapshotAfterDrop(t *testing.T) {
	db := newFakeDB()
	db.resources["r1"] = &core.Resource{ID: "r1", Quality: core.Quality{Overall: 0.5}}
	now := time.Now().UTC()
	db.snapshots["r1"] = []core.QualitySnapshot{
		{ID: "s1", ResourceID: "r1", Overall: 0.9, TakenAt: now.Add(-time.Hour)},
	}

	if err := ScanDegradation(db)(context.Background()); err != nil {
		t.Fatalf("ScanDegradation: %v", err)
	}
	if len(db.snapshots["r1"]) != 2 {
		t.Errorf("expected a new snapshot to be appended, got %d", len(db.snapshots["r1"]))
	}
}
