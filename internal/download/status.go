package download

// validTransitions defines allowed state transitions.
// Key is the "from" status, value is list of valid "to" statuses.
var validTransitions = map[Status][]Status{
	StatusQueued:      {StatusDownloading, StatusPaused, StatusImporting, StatusFailed},
	StatusDownloading: {StatusQueued, StatusPaused, StatusImporting, StatusFailed},
	StatusPaused:      {StatusQueued, StatusDownloading, StatusImporting, StatusFailed},
	StatusImporting:   {StatusCompleted, StatusFailed},
	StatusCompleted:   {}, // terminal
	StatusFailed:      {}, // terminal for the row; retries create a new download
}

// CanTransitionTo returns true if transitioning from s to target is valid.
func (s Status) CanTransitionTo(target Status) bool {
	valid, ok := validTransitions[s]
	if !ok {
		return false
	}
	for _, v := range valid {
		if v == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if this status has no valid outgoing transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsActive returns true for statuses that count against the one-active-
// download-per-item rule.
func (s Status) IsActive() bool {
	switch s {
	case StatusQueued, StatusDownloading, StatusPaused, StatusImporting:
		return true
	}
	return false
}
