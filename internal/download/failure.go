package download

import (
	"context"

	"github.com/vmunix/grabarr/internal/events"
)

// handleFailed processes a remote "failed" history record for a download
// that is not already terminal: it fails the row, blacklists the release
// when the failure is genuine, and triggers an alternative search while the
// item is under the retry ceiling.
func (m *Manager) handleFailed(ctx context.Context, d *Download, hi HistoryItem) {
	msg := hi.FailMessage
	if msg == "" {
		msg = "download failed"
	}

	now := m.now()
	d.Status = StatusFailed
	d.ErrorMessage = msg
	d.LastTransitionAt = now
	if err := m.store.Update(d); err != nil {
		m.log.Error("failed to persist failure", "download_id", d.ID, "error", err)
		return
	}
	m.publish(ctx, &events.DownloadFailed{
		BaseEvent:  events.NewBaseEvent(events.EventDownloadFailed, events.EntityDownload, d.ID),
		DownloadID: d.ID,
		Reason:     msg,
	})
	m.log.Warn("download failed", "download_id", d.ID, "release", d.Release.Title, "reason", msg)

	// Configuration and transient problems are not the release's fault:
	// record the failure but do not blacklist or burn a retry.
	if !m.blacklist.ShouldBlacklist(msg) {
		m.log.Info("failure not blacklisted", "download_id", d.ID, "reason", msg)
		return
	}

	guid := d.Release.GUID
	if guid == "" {
		guid = d.ExternalID
	}
	entry := BlacklistEntry{
		Ref:         d.Ref,
		GUID:        guid,
		Indexer:     d.Release.Indexer,
		FailureType: m.blacklist.Classify(msg),
		Reason:      msg,
		At:          now,
	}
	if err := m.blacklist.Record(ctx, entry); err != nil {
		m.log.Error("failed to record blacklist entry", "download_id", d.ID, "error", err)
	}

	exceeded, err := m.blacklist.ExceededRetries(ctx, d.Ref)
	if err != nil {
		m.log.Error("failed to check retry ceiling", "ref", d.Ref, "error", err)
		return
	}
	if exceeded {
		m.log.Warn("retry ceiling reached, leaving failed", "ref", d.Ref)
		return
	}

	m.publish(ctx, &events.SearchTriggered{
		BaseEvent: events.NewBaseEvent(events.EventSearchTriggered, events.EntityMedia, d.Ref.ID),
		MediaKind: string(d.Ref.Kind),
		MediaID:   d.Ref.ID,
	})

	ref := d.Ref
	// Outlives the reconciliation pass, like imports.
	bg := context.WithoutCancel(ctx)
	m.tasks.Add(1)
	go func() {
		defer m.tasks.Done()
		if err := m.searcher.SearchMissing(bg, ref); err != nil {
			// Never re-raised into the reconciliation loop
			m.log.Error("alternative search failed", "ref", ref, "error", err)
			return
		}
		m.log.Info("alternative search triggered", "ref", ref)
	}()
}
