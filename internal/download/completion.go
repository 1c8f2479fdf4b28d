package download

import (
	"context"

	"github.com/vmunix/grabarr/internal/events"
)

// handleCompleted processes a remote "completed" history record for a
// download that is not already terminal. The importing transition is
// persisted regardless of probe outcome: it is the single source of truth
// that the remote side finished, even when local import cannot run yet.
func (m *Manager) handleCompleted(ctx context.Context, rc *RegisteredClient, d *Download, hi HistoryItem) {
	path := rc.PathMap.Apply(hi.StoragePath)
	hadOutputPath := d.OutputPath != ""
	prevTransition := d.LastTransitionAt
	wasImporting := d.Status == StatusImporting
	now := m.now()

	d.Progress = 100
	d.OutputPath = path
	if d.CompletedAt == nil {
		d.CompletedAt = &now
	}
	if !wasImporting && d.Status.CanTransitionTo(StatusImporting) {
		d.Status = StatusImporting
		d.LastTransitionAt = now
	}

	if err := m.probe(path); err != nil {
		m.log.Warn("completed download not accessible",
			"download_id", d.ID, "path", path, "error", err)
		d.Status = StatusFailed
		d.ErrorMessage = err.Error()
		d.LastTransitionAt = now
		if uerr := m.store.Update(d); uerr != nil {
			m.log.Error("failed to persist probe failure", "download_id", d.ID, "error", uerr)
		}
		m.publish(ctx, &events.DownloadFailed{
			BaseEvent:  events.NewBaseEvent(events.EventDownloadFailed, events.EntityDownload, d.ID),
			DownloadID: d.ID,
			Reason:     err.Error(),
		})
		return
	}

	if err := m.store.Update(d); err != nil {
		m.log.Error("failed to persist completion", "download_id", d.ID, "error", err)
		return
	}

	if !hadOutputPath {
		m.publish(ctx, &events.DownloadCompleted{
			BaseEvent:  events.NewBaseEvent(events.EventDownloadCompleted, events.EntityDownload, d.ID),
			DownloadID: d.ID,
			OutputPath: path,
		})
	}

	// Import on the first completion observation, or when a previous import
	// attempt appears to have crashed or hung.
	stalled := wasImporting && now.Sub(prevTransition) > importStallThreshold
	if !hadOutputPath || stalled {
		if stalled {
			m.log.Warn("import stalled, re-triggering",
				"download_id", d.ID, "stuck_for", now.Sub(prevTransition))
		}
		m.startImport(ctx, d)
	}
}

// startImport hands a download to the import pipeline for its media kind.
// The import runs as a background task; the reconciliation loop never waits
// on it.
func (m *Manager) startImport(ctx context.Context, d *Download) {
	imp, ok := m.importers[d.Ref.Kind]
	if !ok || imp == nil {
		m.log.Error("no importer for media kind", "download_id", d.ID, "kind", d.Ref.Kind)
		return
	}

	m.publish(ctx, &events.ImportStarted{
		BaseEvent:  events.NewBaseEvent(events.EventImportStarted, events.EntityDownload, d.ID),
		DownloadID: d.ID,
		SourcePath: d.OutputPath,
	})
	m.log.Info("import started", "download_id", d.ID, "path", d.OutputPath, "kind", d.Ref.Kind)

	// The reconciliation pass context is cancelled as soon as the pass ends;
	// the import must keep running and update the row afterwards.
	bg := context.WithoutCancel(ctx)
	m.tasks.Add(1)
	go func() {
		defer m.tasks.Done()
		m.runImport(bg, imp, d)
	}()
}

func (m *Manager) runImport(ctx context.Context, imp Importer, d *Download) {
	result, err := imp.Import(ctx, d)
	now := m.now()
	if err != nil {
		m.log.Error("import failed", "download_id", d.ID, "error", err)
		d.Status = StatusFailed
		d.ErrorMessage = err.Error()
		d.LastTransitionAt = now
		if uerr := m.store.Update(d); uerr != nil {
			m.log.Error("failed to persist import failure", "download_id", d.ID, "error", uerr)
		}
		m.publish(ctx, &events.ImportFailed{
			BaseEvent:  events.NewBaseEvent(events.EventImportFailed, events.EntityDownload, d.ID),
			DownloadID: d.ID,
			Reason:     err.Error(),
		})
		return
	}

	d.Status = StatusCompleted
	d.ErrorMessage = ""
	d.LastTransitionAt = now
	if err := m.store.Update(d); err != nil {
		m.log.Error("failed to persist import completion", "download_id", d.ID, "error", err)
	}
	if err := m.library.SetHasFile(d.Ref, true); err != nil {
		m.log.Error("failed to set has-file flag", "ref", d.Ref, "error", err)
	}
	m.publish(ctx, &events.ImportCompleted{
		BaseEvent:     events.NewBaseEvent(events.EventImportCompleted, events.EntityDownload, d.ID),
		DownloadID:    d.ID,
		FilesImported: result.FilesImported,
	})
	m.log.Info("import completed", "download_id", d.ID, "files", result.FilesImported)
}
