package download

import "errors"

// Sentinel errors for the download package.
var (
	// ErrNotFound is returned when a download record is not found in the database.
	ErrNotFound = errors.New("download not found")

	// ErrDuplicateActive is returned when a media item already has an active download.
	ErrDuplicateActive = errors.New("active download already exists for this item")

	// ErrAlreadyCompletedRecently is returned when a grab arrives within an
	// hour of a completed download for the same item.
	ErrAlreadyCompletedRecently = errors.New("download for this item completed recently")

	// ErrAlreadyInLibrary is returned when the item already has a library file.
	ErrAlreadyInLibrary = errors.New("item already in library")

	// ErrNoClientConfigured is returned when no enabled download client exists.
	ErrNoClientConfigured = errors.New("no download client configured")

	// ErrClientUnavailable is returned when the download client cannot be reached.
	ErrClientUnavailable = errors.New("download client unavailable")

	// ErrInvalidAPIKey is returned when the API key is rejected by the client.
	ErrInvalidAPIKey = errors.New("invalid api key")

	// Accessibility probe diagnostics. Surfaced as error messages on failed
	// downloads, never propagated out of the reconciliation loop.

	// ErrPathNotResponding is returned when stat on the completed path hangs.
	ErrPathNotResponding = errors.New("storage not responding")

	// ErrFileMissing is returned when the completed path does not exist but
	// its parent directory does.
	ErrFileMissing = errors.New("completed download missing from disk")

	// ErrMountAbsent is returned when the parent directory is also gone,
	// which usually means a network mount is not present.
	ErrMountAbsent = errors.New("download mount appears to be absent")
)
