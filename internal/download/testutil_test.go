package download

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"go.uber.org/mock/gomock"
	_ "modernc.org/sqlite"

	"github.com/vmunix/grabarr/internal/library"
	"github.com/vmunix/grabarr/internal/media"
	"github.com/vmunix/grabarr/internal/migrations"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// The pool must not open a second connection to a private :memory: db
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.Exec(migrations.InitialSQL); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return db
}

// insertTestItem inserts a media item row and returns its ref.
func insertTestItem(t *testing.T, db *sql.DB, kind media.Kind, title string) media.Ref {
	t.Helper()
	item := &library.Item{Ref: media.Ref{Kind: kind}, Title: title, Year: 2020}
	if err := library.NewStore(db).Add(item); err != nil {
		t.Fatalf("insert test item: %v", err)
	}
	return item.Ref
}

// Collaborator fakes. The Client interface has a generated mock instead
// (mock_client_test.go).

type fakeNaming struct {
	path  string
	found bool
}

func (f *fakeNaming) FindExisting(item *library.Item) (string, bool) {
	return f.path, f.found
}

type fakeBlacklist struct {
	mu       sync.Mutex
	genuine  bool
	exceeded bool
	entries  []BlacklistEntry
}

func (f *fakeBlacklist) ShouldBlacklist(message string) bool { return f.genuine }

func (f *fakeBlacklist) Classify(message string) FailureType { return FailureUnknown }

func (f *fakeBlacklist) Record(ctx context.Context, e BlacklistEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeBlacklist) ExceededRetries(ctx context.Context, ref media.Ref) (bool, error) {
	return f.exceeded, nil
}

func (f *fakeBlacklist) recorded() []BlacklistEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]BlacklistEntry(nil), f.entries...)
}

type fakeImporter struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeImporter) Import(ctx context.Context, d *Download) (*ImportResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &ImportResult{FilesImported: 1}, nil
}

func (f *fakeImporter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSearcher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeSearcher) SearchMissing(ctx context.Context, ref media.Ref) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.err
}

func (f *fakeSearcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// testEnv bundles a manager with the fakes behind it.
type testEnv struct {
	manager   *Manager
	store     *Store
	library   *library.Store
	client    *MockClient
	naming    *fakeNaming
	blacklist *fakeBlacklist
	importer  *fakeImporter
	searcher  *fakeSearcher
}

func newTestEnv(t *testing.T, db *sql.DB) *testEnv {
	t.Helper()
	ctrl := gomock.NewController(t)

	env := &testEnv{
		store:     NewStore(db),
		library:   library.NewStore(db),
		client:    NewMockClient(ctrl),
		naming:    &fakeNaming{},
		blacklist: &fakeBlacklist{genuine: true},
		importer:  &fakeImporter{},
		searcher:  &fakeSearcher{},
	}

	importers := make(map[media.Kind]Importer, len(media.Kinds))
	for _, kind := range media.Kinds {
		importers[kind] = env.importer
	}

	env.manager = NewManager(ManagerDeps{
		Store:   env.store,
		Library: env.library,
		Clients: []*RegisteredClient{{
			Name:     "sab-main",
			Priority: 1,
			Enabled:  true,
			Client:   env.client,
		}},
		Naming:    env.naming,
		Blacklist: env.blacklist,
		Importers: importers,
		Searcher:  env.searcher,
	})
	// The default probe hits the real filesystem; tests opt back in explicitly.
	env.manager.probe = func(string) error { return nil }
	return env
}
