// Package download tracks acquisition work and reconciles it against
// external download clients.
package download

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/vmunix/grabarr/internal/media"
)

// Status tracks download state.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusDownloading Status = "downloading"
	StatusPaused      Status = "paused"
	StatusImporting   Status = "importing"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

// Release holds the search-result attributes a download was grabbed from,
// retained for blacklisting and auditing.
type Release struct {
	GUID    string
	Title   string
	Indexer string
	Size    int64
}

// Download represents one unit of acquisition work.
type Download struct {
	ID               int64
	Ref              media.Ref
	Client           string // name of the owning download client
	ExternalID       string // empty until the client accepts the submission
	Status           Status
	Progress         float64 // 0-100
	SizeBytes        int64
	RemainingBytes   int64
	ETASeconds       int64
	OutputPath       string
	ErrorMessage     string
	Release          Release
	StartedAt        *time.Time
	CompletedAt      *time.Time
	AddedAt          time.Time
	LastTransitionAt time.Time
}

// Filter specifies criteria for listing downloads.
type Filter struct {
	Ref    *media.Ref
	Status *Status
	Client *string
	Active bool // only statuses in {queued, downloading, paused, importing}
}

// Store persists download records.
type Store struct {
	db *sql.DB
}

// NewStore creates a download store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const downloadColumns = `id, media_kind, media_id, client, external_id, status, progress,
	size_bytes, remaining_bytes, eta_seconds, output_path, error_message,
	release_guid, release_title, release_indexer, release_size,
	started_at, completed_at, added_at, last_transition_at`

// Add inserts a new download record and fills in its assigned ID.
// Returns ErrDuplicateActive if another active download exists for the same
// media item (enforced by a partial unique index, so concurrent grabs that
// both pass the dedup checks cannot both commit).
func (s *Store) Add(d *Download) error {
	now := time.Now()
	result, err := s.db.Exec(`
		INSERT INTO downloads (media_kind, media_id, client, external_id, status, progress,
			size_bytes, remaining_bytes, eta_seconds, output_path, error_message,
			release_guid, release_title, release_indexer, release_size,
			started_at, completed_at, added_at, last_transition_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Ref.Kind, d.Ref.ID, d.Client, nullIfEmpty(d.ExternalID), d.Status, d.Progress,
		d.SizeBytes, d.RemainingBytes, d.ETASeconds, d.OutputPath, d.ErrorMessage,
		d.Release.GUID, d.Release.Title, d.Release.Indexer, d.Release.Size,
		d.StartedAt, d.CompletedAt, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert download for %s: %w", d.Ref, ErrDuplicateActive)
		}
		return fmt.Errorf("insert download: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	d.ID = id
	d.AddedAt = now
	d.LastTransitionAt = now
	return nil
}

// Get retrieves a download by ID.
// Returns ErrNotFound if the download does not exist.
func (s *Store) Get(id int64) (*Download, error) {
	row := s.db.QueryRow(`SELECT `+downloadColumns+` FROM downloads WHERE id = ?`, id)
	d, err := scanDownload(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("get download %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get download %d: %w", id, err)
	}
	return d, nil
}

// Update persists all mutable fields of a download.
// Returns ErrNotFound if the download does not exist.
func (s *Store) Update(d *Download) error {
	result, err := s.db.Exec(`
		UPDATE downloads SET external_id = ?, status = ?, progress = ?,
			size_bytes = ?, remaining_bytes = ?, eta_seconds = ?,
			output_path = ?, error_message = ?,
			started_at = ?, completed_at = ?, last_transition_at = ?
		WHERE id = ?`,
		nullIfEmpty(d.ExternalID), d.Status, d.Progress,
		d.SizeBytes, d.RemainingBytes, d.ETASeconds,
		d.OutputPath, d.ErrorMessage,
		d.StartedAt, d.CompletedAt, d.LastTransitionAt, d.ID,
	)
	if err != nil {
		return fmt.Errorf("update download %d: %w", d.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update download %d: %w", d.ID, ErrNotFound)
	}
	return nil
}

// List returns downloads matching the specified filter, ordered by ID.
func (s *Store) List(f Filter) ([]*Download, error) {
	var conditions []string
	var args []any

	if f.Ref != nil {
		conditions = append(conditions, "media_kind = ?", "media_id = ?")
		args = append(args, f.Ref.Kind, f.Ref.ID)
	}
	if f.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *f.Status)
	}
	if f.Client != nil {
		conditions = append(conditions, "client = ?")
		args = append(args, *f.Client)
	}
	if f.Active {
		conditions = append(conditions, "status IN (?, ?, ?, ?)")
		args = append(args, StatusQueued, StatusDownloading, StatusPaused, StatusImporting)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	rows, err := s.db.Query(`SELECT `+downloadColumns+` FROM downloads `+whereClause+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list downloads: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Download
	for rows.Next() {
		d, err := scanDownload(rows)
		if err != nil {
			return nil, fmt.Errorf("scan download: %w", err)
		}
		results = append(results, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate downloads: %w", err)
	}

	return results, nil
}

// ActiveForRef returns the active download for a media item, or nil.
func (s *Store) ActiveForRef(ref media.Ref) (*Download, error) {
	downloads, err := s.List(Filter{Ref: &ref, Active: true})
	if err != nil {
		return nil, err
	}
	if len(downloads) == 0 {
		return nil, nil
	}
	return downloads[0], nil
}

// CompletedSince returns the most recent download for a media item completed
// at or after the cutoff, or nil.
func (s *Store) CompletedSince(ref media.Ref, cutoff time.Time) (*Download, error) {
	row := s.db.QueryRow(`SELECT `+downloadColumns+` FROM downloads
		WHERE media_kind = ? AND media_id = ? AND status = ? AND completed_at >= ?
		ORDER BY completed_at DESC LIMIT 1`,
		ref.Kind, ref.ID, StatusCompleted, cutoff,
	)
	d, err := scanDownload(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("completed since for %s: %w", ref, err)
	}
	return d, nil
}

// Delete removes a download by ID.
// This operation is idempotent - no error is returned if the download does not exist.
func (s *Store) Delete(id int64) error {
	_, err := s.db.Exec("DELETE FROM downloads WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete download %d: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDownload(row rowScanner) (*Download, error) {
	d := &Download{}
	var externalID sql.NullString
	err := row.Scan(
		&d.ID, &d.Ref.Kind, &d.Ref.ID, &d.Client, &externalID, &d.Status, &d.Progress,
		&d.SizeBytes, &d.RemainingBytes, &d.ETASeconds, &d.OutputPath, &d.ErrorMessage,
		&d.Release.GUID, &d.Release.Title, &d.Release.Indexer, &d.Release.Size,
		&d.StartedAt, &d.CompletedAt, &d.AddedAt, &d.LastTransitionAt,
	)
	if err != nil {
		return nil, err
	}
	d.ExternalID = externalID.String
	return d, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// isUniqueViolation reports whether err is a sqlite unique constraint error.
// The pure-Go driver does not export a stable error type for this, so match
// on the message the way the engine expects it.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
