package events

// Entity types
const (
	EntityDownload = "download"
	EntityMedia    = "media"
)

// Event type constants
const (
	EventDownloadCreated   = "download.created"
	EventDownloadOrphaned  = "download.orphaned"
	EventDownloadCompleted = "download.completed"
	EventDownloadFailed    = "download.failed"
	EventImportStarted     = "import.started"
	EventImportCompleted   = "import.completed"
	EventImportFailed      = "import.failed"
	EventSearchTriggered   = "search.triggered"
)

// DownloadCreated is emitted when a grab is admitted and submitted.
type DownloadCreated struct {
	BaseEvent
	DownloadID  int64  `json:"download_id"`
	MediaKind   string `json:"media_kind"`
	MediaID     int64  `json:"media_id"`
	Client      string `json:"client"`
	ExternalID  string `json:"external_id"`
	ReleaseName string `json:"release_name"`
	Indexer     string `json:"indexer"`
}

// DownloadOrphaned is emitted when the remote side no longer knows a download.
type DownloadOrphaned struct {
	BaseEvent
	DownloadID int64  `json:"download_id"`
	Client     string `json:"client"`
	ExternalID string `json:"external_id"`
}

// DownloadCompleted is emitted when the remote client reports completion.
type DownloadCompleted struct {
	BaseEvent
	DownloadID int64  `json:"download_id"`
	OutputPath string `json:"output_path"`
}

// DownloadFailed is emitted when a download ends in failure.
type DownloadFailed struct {
	BaseEvent
	DownloadID int64  `json:"download_id"`
	Reason     string `json:"reason"`
}

// ImportStarted is emitted when the import pipeline is invoked.
type ImportStarted struct {
	BaseEvent
	DownloadID int64  `json:"download_id"`
	SourcePath string `json:"source_path"`
}

// ImportCompleted is emitted when an import succeeds.
type ImportCompleted struct {
	BaseEvent
	DownloadID    int64 `json:"download_id"`
	FilesImported int   `json:"files_imported"`
}

// ImportFailed is emitted when an import fails.
type ImportFailed struct {
	BaseEvent
	DownloadID int64  `json:"download_id"`
	Reason     string `json:"reason"`
}

// SearchTriggered is emitted when a failure triggers an alternative search.
type SearchTriggered struct {
	BaseEvent
	MediaKind string `json:"media_kind"`
	MediaID   int64  `json:"media_id"`
}
