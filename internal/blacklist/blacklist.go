// Package blacklist is the retry ledger: it records failed releases so they
// are not grabbed again and bounds automatic re-searches per media item.
package blacklist

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/vmunix/grabarr/internal/download"
	"github.com/vmunix/grabarr/internal/media"
)

// Store persists blacklist entries. It implements download.Blacklist.
type Store struct {
	db *sql.DB
}

// NewStore creates a blacklist store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// transientPatterns match failure messages caused by local configuration or
// the client itself rather than the release. These are never blacklisted.
var transientPatterns = []string{
	"api key",
	"apikey",
	"disk full",
	"out of space",
	"unable to connect",
	"connection refused",
	"connection reset",
	"permission denied",
	"read-only file system",
}

// ShouldBlacklist reports whether a failure message describes a genuine
// release failure. Unrecognized messages default to genuine.
func (s *Store) ShouldBlacklist(message string) bool {
	lower := strings.ToLower(message)
	for _, p := range transientPatterns {
		if strings.Contains(lower, p) {
			return false
		}
	}
	return true
}

// Classify maps a failure message to a failure type.
func (s *Store) Classify(message string) download.FailureType {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "crc"),
		strings.Contains(lower, "repair"),
		strings.Contains(lower, "damaged"),
		strings.Contains(lower, "missing article"):
		return download.FailureDamaged
	case strings.Contains(lower, "password"),
		strings.Contains(lower, "encrypted"):
		return download.FailurePassword
	case strings.Contains(lower, "unpack"),
		strings.Contains(lower, "extract"):
		return download.FailureUnpack
	default:
		return download.FailureUnknown
	}
}

// Record writes a blacklist entry.
func (s *Store) Record(ctx context.Context, e download.BlacklistEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blacklist (media_kind, media_id, release_guid, indexer, failure_type, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Ref.Kind, e.Ref.ID, e.GUID, e.Indexer, e.FailureType, e.Reason, e.At,
	)
	if err != nil {
		return fmt.Errorf("insert blacklist entry: %w", err)
	}
	return nil
}

// Count returns the number of blacklist entries for a media item.
func (s *Store) Count(ctx context.Context, ref media.Ref) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM blacklist WHERE media_kind = ? AND media_id = ?`,
		ref.Kind, ref.ID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count blacklist entries for %s: %w", ref, err)
	}
	return n, nil
}

// ExceededRetries reports whether the item's failure count is past the
// automatic search ceiling.
func (s *Store) ExceededRetries(ctx context.Context, ref media.Ref) (bool, error) {
	n, err := s.Count(ctx, ref)
	if err != nil {
		return false, err
	}
	return n > download.MaxAutoSearchAttempts, nil
}
