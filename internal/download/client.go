package download

import (
	"context"
	"strconv"
	"strings"
)

//go:generate mockgen -source=client.go -destination=mock_client_test.go -package=download

// Client is the contract a download client adapter implements.
type Client interface {
	// TestConnection verifies the client is reachable and returns its version.
	TestConnection(ctx context.Context) (string, error)
	// Queue returns the client's active queue.
	Queue(ctx context.Context) ([]QueueItem, error)
	// History returns up to limit recent history records.
	History(ctx context.Context, limit int) ([]HistoryItem, error)
	// Add submits a download URL and returns the client-assigned ID.
	Add(ctx context.Context, url string, opts AddOptions) (string, error)
	// Remove deletes a download from the client.
	Remove(ctx context.Context, externalID string, deleteFiles bool) error
}

// AddOptions carries per-submission parameters.
type AddOptions struct {
	Name     string
	Category string
}

// QueueItem is one entry in a client's active queue.
type QueueItem struct {
	ID             string
	Name           string
	Status         string // raw client status
	Progress       float64
	SizeBytes      int64
	RemainingBytes int64
	TimeLeft       string // "HH:MM:SS"
}

// HistoryItem is one entry in a client's history.
type HistoryItem struct {
	ID          string
	Name        string
	Status      string
	SizeBytes   int64
	StoragePath string
	FailMessage string
}

// Remote history statuses the reconciler routes on.
const (
	remoteCompleted = "completed"
	remoteFailed    = "failed"
)

// mapQueueStatus maps a client queue status to our Status type.
func mapQueueStatus(raw string) Status {
	switch strings.ToLower(raw) {
	case "downloading", "grabbing", "fetching", "checking":
		return StatusDownloading
	case "paused":
		return StatusPaused
	case "queued", "propagating":
		return StatusQueued
	case "verifying", "repairing", "extracting", "moving":
		return StatusImporting
	default:
		return StatusDownloading // fallback for unknown statuses
	}
}

// ParseTimeLeft parses a client time string ("01:02:03") to seconds.
// Returns 0 for empty or unparseable input such as "Unknown".
func ParseTimeLeft(s string) int64 {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0
	}

	hours, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0
	}
	minutes, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0
	}
	seconds, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0
	}

	return hours*3600 + minutes*60 + seconds
}
