// Package monitoring runs background maintenance jobs.
package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/isdelr/pinboard-be/internal/store"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const runTimeout = time.Minute

// Repairer fixes comments left unlinked from their pin.
type Repairer interface {
	RepairOrphanedComments(ctx context.Context) (store.RepairReport, error)
}

// Reconciler periodically links orphaned comments to their pins and removes
// comments whose pin is gone.
type Reconciler struct {
	repairer Repairer
	cron     *cron.Cron
	mu       sync.Mutex
}

// NewReconciler schedules repair runs on a standard five-field cron spec.
func NewReconciler(repairer Repairer, spec string) (*Reconciler, error) {
	r := &Reconciler{
		repairer: repairer,
		cron:     cron.New(),
	}
	if _, err := r.cron.AddFunc(spec, r.tick); err != nil {
		return nil, fmt.Errorf("invalid reconcile schedule %q: %w", spec, err)
	}
	return r, nil
}

// Start begins running on schedule in the background.
func (r *Reconciler) Start() {
	log.Info().Msg("Starting comment reconciler...")
	r.cron.Start()
}

// Stop halts scheduling and waits for a running pass to finish.
func (r *Reconciler) Stop() {
	<-r.cron.Stop().Done()
	log.Info().Msg("Stopped comment reconciler.")
}

// RunOnce performs a single repair pass. Concurrent calls are serialized.
func (r *Reconciler) RunOnce(ctx context.Context) (store.RepairReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report, err := r.repairer.RepairOrphanedComments(ctx)
	if err != nil {
		return report, err
	}
	if report.Linked > 0 || report.Deleted > 0 {
		log.Info().Int("linked", report.Linked).Int("deleted", report.Deleted).Msg("Reconciled orphaned comments")
	}
	return report, nil
}

func (r *Reconciler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if _, err := r.RunOnce(ctx); err != nil {
		log.Error().Err(err).Msg("Comment reconciliation failed")
	}
}
