package download

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vmunix/grabarr/internal/events"
)

// RefreshQueue runs one reconciliation pass: for every enabled client it
// merges the remote queue into local records, routes history completions and
// failures, and sweeps orphans. Clients reconcile concurrently and a failure
// in one never aborts the others.
//
// The pass is idempotent: terminal rows are never touched, and completion
// routing re-triggers imports only for fresh output paths or stalled imports.
func (m *Manager) RefreshQueue(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, rc := range m.clients {
		if !rc.Enabled {
			continue
		}
		g.Go(func() error {
			if err := m.reconcileClient(ctx, rc); err != nil {
				// Isolate per-client errors; the next pass will retry.
				m.log.Error("reconciliation failed", "client", rc.Name, "error", err)
			}
			return nil
		})
	}

	return g.Wait()
}

func (m *Manager) reconcileClient(ctx context.Context, rc *RegisteredClient) error {
	locals, err := m.store.List(Filter{Client: &rc.Name})
	if err != nil {
		return err
	}

	byExternalID := make(map[string]*Download, len(locals))
	for _, d := range locals {
		if d.ExternalID != "" {
			byExternalID[d.ExternalID] = d
		}
	}
	if len(byExternalID) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(byExternalID))

	// Queue first: live telemetry. History routing below sees the freshest
	// status and an item completed by history processing is never clobbered
	// afterwards with stale queue data.
	queue, err := rc.Client.Queue(ctx)
	if err != nil {
		return err
	}
	for _, qi := range queue {
		d, ok := byExternalID[qi.ID]
		if !ok {
			continue
		}
		seen[qi.ID] = true
		if d.Status.IsTerminal() {
			continue
		}
		m.applyQueueTelemetry(d, qi)
	}

	history, err := rc.Client.History(ctx, historyPageSize)
	if err != nil {
		return err
	}
	for _, hi := range history {
		d, ok := byExternalID[hi.ID]
		if !ok {
			continue
		}
		seen[hi.ID] = true
		if d.Status.IsTerminal() {
			continue
		}

		switch strings.ToLower(hi.Status) {
		case remoteCompleted:
			m.handleCompleted(ctx, rc, d, hi)
		case remoteFailed:
			m.handleFailed(ctx, d, hi)
		default:
			// Post-processing on the remote side. Flag it, but leave the
			// output path alone until a true completion is observed.
			m.markImporting(d)
		}
	}

	m.sweepOrphans(ctx, rc, locals, seen)
	return nil
}

// applyQueueTelemetry overwrites live counters from the remote queue and
// follows remote status changes where the transition table allows them.
func (m *Manager) applyQueueTelemetry(d *Download, qi QueueItem) {
	d.Progress = qi.Progress
	d.SizeBytes = qi.SizeBytes
	d.RemainingBytes = qi.RemainingBytes
	d.ETASeconds = ParseTimeLeft(qi.TimeLeft)

	target := mapQueueStatus(qi.Status)
	if target != d.Status && d.Status.CanTransitionTo(target) {
		m.log.Info("download status changed",
			"download_id", d.ID, "status", target, "prev", d.Status)
		d.Status = target
		d.LastTransitionAt = m.now()
	}

	if err := m.store.Update(d); err != nil {
		m.log.Error("failed to persist telemetry", "download_id", d.ID, "error", err)
	}
}

// markImporting moves a non-terminal row into importing when the remote side
// is post-processing it.
func (m *Manager) markImporting(d *Download) {
	if d.Status == StatusImporting || !d.Status.CanTransitionTo(StatusImporting) {
		return
	}
	d.Status = StatusImporting
	d.LastTransitionAt = m.now()
	if err := m.store.Update(d); err != nil {
		m.log.Error("failed to mark importing", "download_id", d.ID, "error", err)
	}
}

// sweepOrphans deletes local rows whose remote counterpart has disappeared
// without a terminal status ever being observed: the item was removed
// out-of-band on the client.
func (m *Manager) sweepOrphans(ctx context.Context, rc *RegisteredClient, locals []*Download, seen map[string]bool) {
	for _, d := range locals {
		if d.ExternalID == "" || seen[d.ExternalID] {
			continue
		}
		switch d.Status {
		case StatusQueued, StatusDownloading, StatusPaused:
		default:
			continue
		}

		m.log.Warn("download orphaned, deleting",
			"download_id", d.ID, "client", rc.Name, "external_id", d.ExternalID)
		if err := m.store.Delete(d.ID); err != nil {
			m.log.Error("failed to delete orphan", "download_id", d.ID, "error", err)
			continue
		}
		m.publish(ctx, &events.DownloadOrphaned{
			BaseEvent:  events.NewBaseEvent(events.EventDownloadOrphaned, events.EntityDownload, d.ID),
			DownloadID: d.ID,
			Client:     rc.Name,
			ExternalID: d.ExternalID,
		})
	}
}
