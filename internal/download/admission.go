package download

import (
	"context"
	"errors"
	"fmt"

	"github.com/vmunix/grabarr/internal/events"
	"github.com/vmunix/grabarr/internal/library"
	"github.com/vmunix/grabarr/internal/media"
)

// GrabRequest asks the engine to acquire a release for one media item.
type GrabRequest struct {
	Ref         media.Ref
	Title       string
	DownloadURL string
	Size        int64
	GUID        string
	Indexer     string
}

// Grab admits a new download request. Four dedup layers guard against the
// same item being requested by concurrent search tasks, by a stale
// "requested" flag, and by a download that finished just before the library
// flag update landed:
//
//  1. an active download for the item is returned unchanged,
//  2. a completion within the last hour rejects with ErrAlreadyCompletedRecently,
//  3. the item's has-file flag rejects with ErrAlreadyInLibrary,
//  4. a matching file at the expected library path sets the flag and rejects.
//
// On admission the download is created queued, submitted to the selected
// client, and moved to downloading. Submission failures leave the row in
// failed and are returned to the caller.
func (m *Manager) Grab(ctx context.Context, req GrabRequest) (*Download, error) {
	if !req.Ref.Kind.Valid() || req.Ref.IsZero() {
		return nil, fmt.Errorf("grab: invalid media ref %s", req.Ref)
	}

	// Dedup 1: an active download already covers this item.
	existing, err := m.store.ActiveForRef(req.Ref)
	if err != nil {
		return nil, fmt.Errorf("check active downloads: %w", err)
	}
	if existing != nil {
		m.log.Debug("grab is a duplicate of an active download",
			"ref", req.Ref, "download_id", existing.ID)
		return existing, nil
	}

	// Dedup 2: a completion may not have reached the library flag yet.
	recent, err := m.store.CompletedSince(req.Ref, m.now().Add(-recentCompletionWindow))
	if err != nil {
		return nil, fmt.Errorf("check recent completions: %w", err)
	}
	if recent != nil {
		return nil, fmt.Errorf("grab %s: %w", req.Ref, ErrAlreadyCompletedRecently)
	}

	// Dedup 3 and 4: the item may already have a file on disk.
	item, err := m.library.Get(req.Ref)
	if err != nil && !errors.Is(err, library.ErrNotFound) {
		return nil, fmt.Errorf("load media item: %w", err)
	}
	if item != nil {
		if item.HasFile {
			return nil, fmt.Errorf("grab %s: %w", req.Ref, ErrAlreadyInLibrary)
		}
		if path, ok := m.naming.FindExisting(item); ok {
			m.log.Info("found existing library file", "ref", req.Ref, "path", path)
			if err := m.library.SetHasFile(req.Ref, true); err != nil {
				m.log.Error("failed to set has-file flag", "ref", req.Ref, "error", err)
			}
			return nil, fmt.Errorf("grab %s: %w", req.Ref, ErrAlreadyInLibrary)
		}
	}

	rc := m.pickClient()
	if rc == nil {
		return nil, ErrNoClientConfigured
	}

	d := &Download{
		Ref:    req.Ref,
		Client: rc.Name,
		Status: StatusQueued,
		Release: Release{
			GUID:    req.GUID,
			Title:   req.Title,
			Indexer: req.Indexer,
			Size:    req.Size,
		},
	}
	if err := m.store.Add(d); err != nil {
		if errors.Is(err, ErrDuplicateActive) {
			// Lost a grab race; the winner's row is authoritative.
			if winner, lerr := m.store.ActiveForRef(req.Ref); lerr == nil && winner != nil {
				return winner, nil
			}
		}
		return nil, fmt.Errorf("save download: %w", err)
	}

	externalID, err := rc.Client.Add(ctx, req.DownloadURL, AddOptions{
		Name:     req.Title,
		Category: categoryFor(req.Ref.Kind),
	})
	if err != nil {
		now := m.now()
		d.Status = StatusFailed
		d.ErrorMessage = err.Error()
		d.LastTransitionAt = now
		if uerr := m.store.Update(d); uerr != nil {
			m.log.Error("failed to record submission failure", "download_id", d.ID, "error", uerr)
		}
		m.publish(ctx, &events.DownloadFailed{
			BaseEvent:  events.NewBaseEvent(events.EventDownloadFailed, events.EntityDownload, d.ID),
			DownloadID: d.ID,
			Reason:     err.Error(),
		})
		// Submission failures must reach the caller
		return nil, fmt.Errorf("submit to %s: %w", rc.Name, err)
	}

	now := m.now()
	d.ExternalID = externalID
	d.Status = StatusDownloading
	d.StartedAt = &now
	d.LastTransitionAt = now
	if err := m.store.Update(d); err != nil {
		return nil, fmt.Errorf("record submission: %w", err)
	}

	m.publish(ctx, &events.DownloadCreated{
		BaseEvent:   events.NewBaseEvent(events.EventDownloadCreated, events.EntityDownload, d.ID),
		DownloadID:  d.ID,
		MediaKind:   string(req.Ref.Kind),
		MediaID:     req.Ref.ID,
		Client:      rc.Name,
		ExternalID:  externalID,
		ReleaseName: req.Title,
		Indexer:     req.Indexer,
	})

	m.log.Info("grab sent", "ref", req.Ref, "release", req.Title,
		"client", rc.Name, "external_id", externalID)
	return d, nil
}

// categoryFor routes submissions into per-kind client categories.
func categoryFor(kind media.Kind) string {
	switch kind {
	case media.KindMovie:
		return "movies"
	case media.KindEpisode:
		return "tv"
	case media.KindAlbum:
		return "music"
	case media.KindBook:
		return "books"
	}
	return ""
}
