package download

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vmunix/grabarr/internal/events"
	"github.com/vmunix/grabarr/internal/library"
	"github.com/vmunix/grabarr/internal/media"
)

// Tuning constants for the reconciliation engine.
const (
	// historyPageSize bounds how much remote history one pass fetches.
	// History can be large; only recent entries are relevant.
	historyPageSize = 50

	// importStallThreshold is how long a download may sit in importing
	// before a completion observation re-triggers the import. Recovers from
	// a crashed or hung import attempt.
	importStallThreshold = 2 * time.Minute

	// MaxAutoSearchAttempts caps automatic alternative searches per media
	// item. Past the ceiling the item stays failed until a human acts.
	MaxAutoSearchAttempts = 3

	// recentCompletionWindow guards against re-grabbing an item whose
	// library-file flag has not propagated yet.
	recentCompletionWindow = time.Hour
)

// ImportResult is returned by an import pipeline on success.
type ImportResult struct {
	FilesImported int
}

// Importer consumes a completed download for one media kind and produces
// imported library files.
type Importer interface {
	Import(ctx context.Context, d *Download) (*ImportResult, error)
}

// Searcher re-runs acquisition search for a single media item.
type Searcher interface {
	SearchMissing(ctx context.Context, ref media.Ref) error
}

// SearcherFunc adapts a function to the Searcher interface.
type SearcherFunc func(ctx context.Context, ref media.Ref) error

// SearchMissing implements Searcher.
func (f SearcherFunc) SearchMissing(ctx context.Context, ref media.Ref) error {
	return f(ctx, ref)
}

// FailureType classifies a remote failure for the blacklist ledger.
type FailureType string

const (
	FailureDamaged  FailureType = "damaged"
	FailurePassword FailureType = "password"
	FailureUnpack   FailureType = "unpack"
	FailureUnknown  FailureType = "unknown"
)

// BlacklistEntry records one failed (media item, release) pair.
type BlacklistEntry struct {
	Ref         media.Ref
	GUID        string
	Indexer     string
	FailureType FailureType
	Reason      string
	At          time.Time
}

// Blacklist is the retry ledger the failure handler writes to.
type Blacklist interface {
	// ShouldBlacklist reports whether a failure message describes a genuine
	// release failure, as opposed to a configuration or transient issue.
	ShouldBlacklist(message string) bool
	// Classify maps a failure message to a failure type.
	Classify(message string) FailureType
	// Record writes a blacklist entry.
	Record(ctx context.Context, e BlacklistEntry) error
	// ExceededRetries reports whether the item is past the retry ceiling.
	ExceededRetries(ctx context.Context, ref media.Ref) (bool, error)
}

// NamingService locates existing library files for a media item.
type NamingService interface {
	FindExisting(item *library.Item) (string, bool)
}

// RegisteredClient pairs a download client adapter with its configuration.
type RegisteredClient struct {
	Name     string
	Priority int
	Enabled  bool
	Client   Client
	PathMap  PathMapping
}

// ManagerDeps carries the collaborators a Manager is constructed with.
type ManagerDeps struct {
	Store     *Store
	Library   *library.Store
	Clients   []*RegisteredClient
	Naming    NamingService
	Blacklist Blacklist
	Importers map[media.Kind]Importer
	Searcher  Searcher
	Bus       *events.Bus
	Logger    *slog.Logger
}

// Manager is the download orchestration engine: it admits grabs, reconciles
// local records against remote client state, hands completed downloads to
// the import pipeline, and applies the failure/retry policy.
type Manager struct {
	store     *Store
	library   *library.Store
	clients   []*RegisteredClient
	naming    NamingService
	blacklist Blacklist
	importers map[media.Kind]Importer
	searcher  Searcher
	bus       *events.Bus
	log       *slog.Logger

	// tasks tracks fire-and-forget import and search goroutines so shutdown
	// can drain them.
	tasks sync.WaitGroup

	// Overridable in tests.
	now   func() time.Time
	probe func(path string) error
}

// NewManager creates the orchestration engine.
func NewManager(deps ManagerDeps) *Manager {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:     deps.Store,
		library:   deps.Library,
		clients:   deps.Clients,
		naming:    deps.Naming,
		blacklist: deps.Blacklist,
		importers: deps.Importers,
		searcher:  deps.Searcher,
		bus:       deps.Bus,
		log:       logger.With("component", "download"),
		now:       time.Now,
		probe:     defaultProbe,
	}
}

// Cancel removes a download from its client (best effort) and deletes the
// local record unconditionally.
func (m *Manager) Cancel(ctx context.Context, downloadID int64, deleteFiles bool) error {
	d, err := m.store.Get(downloadID)
	if err != nil {
		return fmt.Errorf("get download: %w", err)
	}

	if d.ExternalID != "" {
		if rc := m.clientByName(d.Client); rc != nil {
			// Best effort - the remote side may already have dropped it
			if err := rc.Client.Remove(ctx, d.ExternalID, deleteFiles); err != nil {
				m.log.Warn("remote remove failed", "download_id", d.ID, "client", d.Client, "error", err)
			}
		}
	}

	if err := m.store.Delete(downloadID); err != nil {
		return fmt.Errorf("delete download: %w", err)
	}

	m.log.Info("download cancelled", "download_id", downloadID, "release", d.Release.Title)
	return nil
}

// Wait blocks until all fire-and-forget import and search tasks finish.
func (m *Manager) Wait() {
	m.tasks.Wait()
}

// pickClient returns the enabled client with the lowest priority value.
func (m *Manager) pickClient() *RegisteredClient {
	var best *RegisteredClient
	for _, rc := range m.clients {
		if !rc.Enabled {
			continue
		}
		if best == nil || rc.Priority < best.Priority {
			best = rc
		}
	}
	return best
}

func (m *Manager) clientByName(name string) *RegisteredClient {
	for _, rc := range m.clients {
		if rc.Name == name {
			return rc
		}
	}
	return nil
}

// publish emits an event when a bus is wired; the engine works without one.
func (m *Manager) publish(ctx context.Context, e events.Event) {
	if m.bus == nil {
		return
	}
	if err := m.bus.Publish(ctx, e); err != nil {
		m.log.Error("failed to publish event", "type", e.EventType(), "error", err)
	}
}
