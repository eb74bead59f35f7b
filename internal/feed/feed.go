package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vigia-app/vigia/internal/config"
	"github.com/vigia-app/vigia/internal/ipfs"
	"github.com/vigia-app/vigia/internal/models"
)

// Lister is the ledger read surface the feed refreshes from.
type Lister interface {
	ListReports(ctx context.Context) ([]models.Report, error)
}

// ReadModel maintains a display-ready view of all reports: static seed
// fixtures concatenated with ledger state, refreshed on a fixed interval.
// Seed and ledger identifiers occupy disjoint spaces, so no deduplication is
// needed. The snapshot is wholly owned and atomically replaced on refresh.
type ReadModel struct {
	lister   Lister
	seeds    []models.SeedReport
	interval time.Duration

	mu       sync.RWMutex
	snapshot []models.DisplayReport

	cancel context.CancelFunc
	done   chan struct{}
}

// NewReadModel creates a read model over the given ledger surface and seed
// fixtures. The seed set is rendered immediately; ledger records appear after
// the first refresh.
func NewReadModel(lister Lister, seeds []models.SeedReport, interval time.Duration) *ReadModel {
	m := &ReadModel{
		lister:   lister,
		seeds:    seeds,
		interval: interval,
	}
	m.snapshot = m.merge(nil)
	return m
}

// Start launches the refresh loop: one immediate refresh, then one per
// interval until Stop or context cancellation.
func (m *ReadModel) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)

		m.refresh(ctx)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.refresh(ctx)
			}
		}
	}()

	slog.Info("report feed started", "interval", m.interval, "seeds", len(m.seeds))
}

// Stop cancels the refresh loop and waits for it to drain.
func (m *ReadModel) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
	slog.Info("report feed stopped")
}

// Snapshot returns the current display list. The returned slice is a copy.
func (m *ReadModel) Snapshot() []models.DisplayReport {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.DisplayReport, len(m.snapshot))
	copy(out, m.snapshot)
	return out
}

// refresh pulls ledger state and atomically replaces the snapshot. A failed
// ledger read keeps the seed set and logs; a stale view is preferable to
// blocking the read path.
func (m *ReadModel) refresh(ctx context.Context) {
	chain, err := m.lister.ListReports(ctx)
	if err != nil {
		slog.Warn("feed refresh failed, serving seeds only", "error", err)
		chain = nil
	}

	merged := m.merge(chain)

	m.mu.Lock()
	m.snapshot = merged
	m.mu.Unlock()

	slog.Debug("feed refreshed", "seeds", len(m.seeds), "chain", len(chain))
}

// merge concatenates seed fixtures and ledger records as display rows.
func (m *ReadModel) merge(chain []models.Report) []models.DisplayReport {
	out := make([]models.DisplayReport, 0, len(m.seeds)+len(chain))

	for _, s := range m.seeds {
		imageURL := s.ImageURL
		if imageURL == "" {
			imageURL = config.PlaceholderImage
		}
		out = append(out, models.DisplayReport{
			Report: models.Report{
				ID:          s.ID,
				Creator:     s.Creator,
				Latitude:    s.Latitude,
				Longitude:   s.Longitude,
				Description: s.Description,
				Timestamp:   s.Timestamp,
				Status:      s.Status,
				Category:    s.Category,
			},
			Color:    StatusColor(s.Status, s.ConfirmationCount),
			ImageURL: imageURL,
			Seed:     true,
		})
	}

	for _, r := range chain {
		out = append(out, models.DisplayReport{
			Report:   r,
			Color:    StatusColor(r.Status, len(r.Confirmations)),
			ImageURL: ipfs.GatewayURL(r.ImageHash),
		})
	}

	return out
}

// StatusColor maps a report's status and confirmation count to its pin color.
func StatusColor(status string, confirmations int) string {
	switch {
	case status == config.StatusVerified:
		return config.ColorVerified
	case confirmations >= config.PendingConfirmationThreshold:
		return config.ColorPending
	default:
		return config.ColorNeutral
	}
}
