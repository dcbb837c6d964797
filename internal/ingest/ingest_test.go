package ingest

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/aiadapter"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/apperr"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/authority"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/classify"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/eventbus"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/persistence"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/quality"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/scheduler"
)

func TestNormalizeSourceURLStripsTrackingParamsAndFragment(t *testing.T) {
	got := NormalizeSourceURL("HTTPS://Example.COM/post?utm_source=newsletter&id=9#section-2")
	want := "https://example.com/post?id=9"
	if got != want {
		t.Errorf("NormalizeSourceURL() = %q, want %q", got, want)
	}
}

func TestNormalizeSourceURLEmptyInput(t *testing.T) {
	if got := NormalizeSourceURL("   "); got != "" {
		t.Errorf("expected empty result for blank input, got %q", got)
	}
}

func TestHeuristicKeywordsExcludesStopwordsAndShortWords(t *testing.T) {
	keywords := heuristicKeywords("the algorithm algorithm algorithm is fast and the database database scales", 2)
	if len(keywords) != 2 {
		t.Fatalf("expected 2 keywords, got %d: %v", len(keywords), keywords)
	}
	if keywords[0] != "algorithm" {
		t.Errorf("expected most frequent keyword first, got %q", keywords[0])
	}
}

func apperrExtraction() error {
	return apperr.New(apperr.ExtractionError, "failed to extract text")
}

func apperrFetchTransient() error {
	return apperr.New(apperr.FetchError, "unexpected status 503 fetching http://example.com")
}

func TestWithRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), RetryPolicy{MaxAttempts: 5, InitialWait: time.Millisecond, Factor: 2, MaxWait: time.Millisecond}, func() error {
		calls++
		return apperrExtraction()
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 call for a permanent error, got %d", calls)
	}
}

func TestWithRetryRetriesTransientErrorThenSucceeds(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), RetryPolicy{MaxAttempts: 3, InitialWait: time.Millisecond, Factor: 2, MaxWait: time.Millisecond}, func() error {
		calls++
		if calls < 3 {
			return apperrFetchTransient()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

// --- in-memory Database fake exercising exactly what the ingest
// stages call, so Submit/run can be tested end to end without a
// real storage backend. ---

type fakeDB struct {
	mu        sync.Mutex
	resources map[string]*core.Resource
	byURL     map[string]string
	subjects  map[string]*core.Subject
	citations []core.Citation
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		resources: map[string]*core.Resource{},
		byURL:     map[string]string{},
		subjects:  map[string]*core.Subject{},
	}
}

func (f *fakeDB) Resources() persistence.ResourceRepository { return fakeResources{f} }
func (f *fakeDB) Subjects() persistence.SubjectRepository   { return fakeSubjects{f} }
func (f *fakeDB) Taxonomy() persistence.TaxonomyRepository  { return nil }
func (f *fakeDB) Citations() persistence.CitationRepository { return fakeCitations{f} }
func (f *fakeDB) Hypotheses() persistence.HypothesisRepository           { return nil }
func (f *fakeDB) EdgeOverrides() persistence.GraphEdgeOverrideRepository { return nil }
func (f *fakeDB) QualitySnapshots() persistence.QualitySnapshotRepository { return nil }
func (f *fakeDB) Ping(ctx context.Context) error                         { return nil }
func (f *fakeDB) Close() error                                           { return nil }
func (f *fakeDB) BeginTx(ctx context.Context) (persistence.Transaction, error) {
	return nil, errors.New("not implemented")
}

type fakeResources struct{ f *fakeDB }

func (r fakeResources) Create(ctx context.Context, res *core.Resource) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	cp := *res
	r.f.resources[res.ID] = &cp
	r.f.byURL[res.SourceURL] = res.ID
	return nil
}

func (r fakeResources) Get(ctx context.Context, id string) (*core.Resource, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	res, ok := r.f.resources[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *res
	return &cp, nil
}

func (r fakeResources) GetByURL(ctx context.Context, sourceURL string) (*core.Resource, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	id, ok := r.f.byURL[sourceURL]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *r.f.resources[id]
	return &cp, nil
}

func (r fakeResources) List(ctx context.Context, opts persistence.ListOptions, filter persistence.ResourceFilter) ([]core.Resource, error) {
	return nil, nil
}
func (r fakeResources) GetMany(ctx context.Context, ids []string) (map[string]*core.Resource, error) {
	return nil, nil
}

func (r fakeResources) Update(ctx context.Context, res *core.Resource) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	cp := *res
	r.f.resources[res.ID] = &cp
	return nil
}

func (r fakeResources) Delete(ctx context.Context, id string) error { return nil }
func (r fakeResources) All(ctx context.Context) ([]core.Resource, error) { return nil, nil }
func (r fakeResources) TopByQuality(ctx context.Context, limit int) ([]core.Resource, error) {
	return nil, nil
}
func (r fakeResources) UpdatedSince(ctx context.Context, since time.Time) ([]core.Resource, error) {
	return nil, nil
}
func (r fakeResources) SearchFTS(ctx context.Context, query string, limit int) ([]string, error) {
	return nil, nil
}

type fakeSubjects struct{ f *fakeDB }

func (s fakeSubjects) Upsert(ctx context.Context, subj *core.Subject) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	cp := *subj
	s.f.subjects[subj.ID] = &cp
	return nil
}
func (s fakeSubjects) GetByCanonicalForm(ctx context.Context, form string) (*core.Subject, error) {
	return nil, sql.ErrNoRows
}
func (s fakeSubjects) FindByVariant(ctx context.Context, variant string) (*core.Subject, error) {
	return nil, sql.ErrNoRows
}
func (s fakeSubjects) TopByUsage(ctx context.Context, limit int) ([]core.Subject, error) {
	return nil, nil
}
func (s fakeSubjects) AverageQualityFor(ctx context.Context, subjectID string) (float64, error) {
	return 0, nil
}

type fakeCitations struct{ f *fakeDB }

func (c fakeCitations) Create(ctx context.Context, cit *core.Citation) error { return nil }
func (c fakeCitations) BulkCreate(ctx context.Context, cs []core.Citation) error {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	c.f.citations = append(c.f.citations, cs...)
	return nil
}
func (c fakeCitations) ByResource(ctx context.Context, sourceResourceID string) ([]core.Citation, error) {
	return nil, nil
}
func (c fakeCitations) ByTargetResource(ctx context.Context, targetResourceID string) ([]core.Citation, error) {
	return nil, nil
}
func (c fakeCitations) Unresolved(ctx context.Context, limit int) ([]core.Citation, error) {
	return nil, nil
}
func (c fakeCitations) UpdateImportance(ctx context.Context, id string, score float64) error {
	return nil
}
func (c fakeCitations) ResolveTarget(ctx context.Context, id string, targetResourceID string) error {
	return nil
}
func (c fakeCitations) All(ctx context.Context) ([]core.Citation, error) { return nil, nil }

type fakeBackend struct{}

func (fakeBackend) Embed(ctx context.Context, text string, dimension int) ([]float32, error) {
	vec := make([]float32, dimension)
	vec[0] = 1
	return vec, nil
}
func (fakeBackend) Summarize(ctx context.Context, text string) (string, error) {
	return "a short summary", nil
}
func (fakeBackend) ClassifyZeroShot(ctx context.Context, text string, labels []string) (map[string]float64, error) {
	scores := make(map[string]float64, len(labels))
	for i, l := range labels {
		if i == 0 {
			scores[l] = 0.9
		}
	}
	return scores, nil
}

func TestSubmitIsIdempotentForSameCanonicalURL(t *testing.T) {
	db := newFakeDB()
	ai := aiadapter.New(func() (aiadapter.Backend, error) { return fakeBackend{}, nil }, aiadapter.DefaultConfig())
	subj := authority.NewRegistry(nil)
	rules := classify.NewRuleClassifier(nil, 0)
	scorer := quality.NewScorer(core.QualityWeights{})
	bus := eventbus.New(1)
	sched := scheduler.New(&scheduler.Config{Concurrency: 2})

	ing := New(DefaultConfig(), db, ai, subj, rules, scorer, bus, sched)

	// 127.0.0.1:1 has no listener, so the background fetch stage fails
	// fast with a connection error instead of reaching the network.
	id1, err := ing.Submit(context.Background(), "http://127.0.0.1:1/a?utm_source=x")
	if err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	id2, err := ing.Submit(context.Background(), "http://127.0.0.1:1/a")
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if id1 != id2 {
		t.Errorf("expected idempotent Submit to return the same id, got %q and %q", id1, id2)
	}
	if len(db.resources) != 1 {
		t.Errorf("expected exactly 1 resource created, got %d", len(db.resources))
	}
}

func TestSubmitRejectsUnparseableURL(t *testing.T) {
	db := newFakeDB()
	ai := aiadapter.New(func() (aiadapter.Backend, error) { return fakeBackend{}, nil }, aiadapter.DefaultConfig())
	subj := authority.NewRegistry(nil)
	rules := classify.NewRuleClassifier(nil, 0)
	scorer := quality.NewScorer(core.QualityWeights{})
	bus := eventbus.New(1)
	sched := scheduler.New(&scheduler.Config{Concurrency: 1})

	ing := New(DefaultConfig(), db, ai, subj, rules, scorer, bus, sched)

	if _, err := ing.Submit(context.Background(), "not a url"); err == nil {
		t.Fatal("expected an error for an unparseable URL")
	}
}

func TestGenerateIDUniqueness(t *testing.T) {
	a := uuid.NewString()
	b := uuid.NewString()
	if a == b {
		t.Error("expected distinct generated ids")
	}
}
