// Package library tracks the media items the system acquires files for.
package library

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vmunix/grabarr/internal/media"
)

// ErrNotFound is returned when a media item does not exist.
var ErrNotFound = errors.New("media item not found")

// Item is one entry in the library: a movie, episode, album, or book.
type Item struct {
	Ref     media.Ref
	Title   string
	Year    int
	HasFile bool
	AddedAt time.Time
}

// Store persists media items.
type Store struct {
	db *sql.DB
}

// NewStore creates a media item store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Add inserts a new media item and fills in its assigned ID.
func (s *Store) Add(item *Item) error {
	if !item.Ref.Kind.Valid() {
		return fmt.Errorf("add media item: invalid kind %q", item.Ref.Kind)
	}
	now := time.Now()
	result, err := s.db.Exec(`
		INSERT INTO media_items (kind, title, year, has_file, added_at)
		VALUES (?, ?, ?, ?, ?)`,
		item.Ref.Kind, item.Title, item.Year, item.HasFile, now,
	)
	if err != nil {
		return fmt.Errorf("insert media item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	item.Ref.ID = id
	item.AddedAt = now
	return nil
}

// Get retrieves a media item by ref.
// Returns ErrNotFound if the item does not exist.
func (s *Store) Get(ref media.Ref) (*Item, error) {
	item := &Item{}
	err := s.db.QueryRow(`
		SELECT id, kind, title, year, has_file, added_at
		FROM media_items WHERE id = ? AND kind = ?`,
		ref.ID, ref.Kind,
	).Scan(&item.Ref.ID, &item.Ref.Kind, &item.Title, &item.Year, &item.HasFile, &item.AddedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("get media item %s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get media item %s: %w", ref, err)
	}
	return item, nil
}

// SetHasFile flips the "has file" flag on a media item.
// Returns ErrNotFound if the item does not exist.
func (s *Store) SetHasFile(ref media.Ref, hasFile bool) error {
	result, err := s.db.Exec(`
		UPDATE media_items SET has_file = ? WHERE id = ? AND kind = ?`,
		hasFile, ref.ID, ref.Kind,
	)
	if err != nil {
		return fmt.Errorf("update media item %s: %w", ref, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update media item %s: %w", ref, ErrNotFound)
	}
	return nil
}
