// Package maintenance holds out-of-band background jobs, currently the
// orphan blob reconciliation sweep.
package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/varhold/varhold/internal/storage"
)

// PathSource lists every storage path the metadata ledger references.
type PathSource interface {
	ListStoragePaths(ctx context.Context) ([]string, error)
}

// defaultGracePeriod is how long an unreferenced blob is left alone.
// Create writes the blob before its ledger row, so a fresh unreferenced
// blob may be a create still in flight rather than an orphan.
const defaultGracePeriod = time.Hour

// SweepResult summarizes one reconciliation pass.
type SweepResult struct {
	Scanned  int       `json:"scanned"`
	Orphans  int       `json:"orphans"`
	Deleted  int       `json:"deleted"`
	Failed   int       `json:"failed"`
	Skipped  int       `json:"skipped"`
	Duration string    `json:"duration"`
	RanAt    time.Time `json:"ran_at"`
}

// Reconciler deletes blobs that no ledger row references. Create writes
// the blob before the ledger row and delete removes the ledger row before
// the blob, so an orphan blob is the only divergence either can leave.
// OrphanRecorder counts blobs removed by sweeps.
type OrphanRecorder interface {
	AddOrphansDeleted(n int)
}

type Reconciler struct {
	ledger PathSource
	blobs  storage.PathLister
	remove func(ctx context.Context, storagePath string) error
	rec    OrphanRecorder
	grace  time.Duration
	logger zerolog.Logger
}

// NewReconciler creates a reconciler over a backend that can enumerate
// its blobs.
func NewReconciler(ledger PathSource, backend interface {
	storage.PathLister
	Delete(ctx context.Context, storagePath string) error
}, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		ledger: ledger,
		blobs:  backend,
		remove: backend.Delete,
		grace:  defaultGracePeriod,
		logger: logger.With().Str("component", "reconciler").Logger(),
	}
}

// WithGracePeriod overrides how long unreferenced blobs are left alone.
func (r *Reconciler) WithGracePeriod(d time.Duration) *Reconciler {
	r.grace = d
	return r
}

// WithMetrics attaches an orphan counter. The reconciler works without
// one.
func (r *Reconciler) WithMetrics(rec OrphanRecorder) *Reconciler {
	r.rec = rec
	return r
}

// Sweep lists both sides and deletes unreferenced blobs older than the
// grace period. If the ledger listing fails nothing is deleted; a
// partial view of the ledger would make live blobs look orphaned.
// Unreferenced blobs younger than the grace period are counted as
// skipped and left for the next pass.
func (r *Reconciler) Sweep(ctx context.Context) (*SweepResult, error) {
	start := time.Now()
	cutoff := start.Add(-r.grace)

	referenced, err := r.ledger.ListStoragePaths(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("ledger path listing failed, skipping sweep")
		return nil, err
	}
	refSet := make(map[string]struct{}, len(referenced))
	for _, p := range referenced {
		refSet[p] = struct{}{}
	}

	stored, err := r.blobs.ListPaths(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("blob path listing failed, skipping sweep")
		return nil, err
	}

	result := &SweepResult{Scanned: len(stored), RanAt: start}
	for _, blob := range stored {
		if _, ok := refSet[blob.Path]; ok {
			continue
		}
		if blob.ModTime.After(cutoff) {
			result.Skipped++
			continue
		}
		result.Orphans++
		if err := r.remove(ctx, blob.Path); err != nil {
			result.Failed++
			r.logger.Warn().Err(err).Str("path", blob.Path).Msg("orphan blob delete failed")
			continue
		}
		result.Deleted++
		r.logger.Info().Str("path", blob.Path).Msg("orphan blob deleted")
	}

	if r.rec != nil && result.Deleted > 0 {
		r.rec.AddOrphansDeleted(result.Deleted)
	}

	result.Duration = time.Since(start).String()
	r.logger.Info().
		Int("scanned", result.Scanned).
		Int("orphans", result.Orphans).
		Int("deleted", result.Deleted).
		Int("failed", result.Failed).
		Int("skipped", result.Skipped).
		Msg("reconciliation sweep complete")
	return result, nil
}

// Schedule runs the sweep on a cron schedule until the context is
// canceled. It returns the started scheduler so callers can stop it
// during shutdown.
func (r *Reconciler) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		sweepCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()
		if _, err := r.Sweep(sweepCtx); err != nil {
			r.logger.Error().Err(err).Msg("scheduled sweep failed")
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	r.logger.Info().Str("schedule", spec).Msg("reconciliation sweep scheduled")
	return c, nil
}
