package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	repository "github.com/lapply/lapply/internal/database/postgres"
	"github.com/lapply/lapply/internal/service"
)

// RepairWorker sweeps canceled applications that still have pending
// side-effect work (live reminders, pending step deliveries, an
// unreleased slot) and re-runs the cancellation sequence on them. The
// sequence is idempotent, so a sweep converges partially-canceled
// applications without touching completed ones.
type RepairWorker struct {
	applicationRepo     repository.ApplicationRepository
	cancellationService service.CancellationService
	interval            time.Duration
	batchSize           int
}

func NewRepairWorker(
	applicationRepo repository.ApplicationRepository,
	cancellationService service.CancellationService,
	interval time.Duration,
	batchSize int,
) *RepairWorker {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &RepairWorker{
		applicationRepo:     applicationRepo,
		cancellationService: cancellationService,
		interval:            interval,
		batchSize:           batchSize,
	}
}

func (w *RepairWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logrus.Info("repair worker started")

	for {
		select {
		case <-ctx.Done():
			logrus.Info("repair worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *RepairWorker) sweep(ctx context.Context) {
	ids, err := w.applicationRepo.FindCanceledWithPendingWork(ctx, w.batchSize)
	if err != nil {
		logrus.WithError(err).Error("repair sweep query failed")
		return
	}

	if len(ids) == 0 {
		return
	}

	logrus.WithField("count", len(ids)).Info("repairing partially canceled applications")

	repaired := 0
	failed := 0

	for _, id := range ids {
		select {
		case <-ctx.Done():
			logrus.Info("repair sweep interrupted")
			return
		default:
		}

		if _, err := w.cancellationService.Cancel(ctx, id); err != nil {
			logrus.WithError(err).WithField("application_id", id).Error("repair failed")
			failed++
			continue
		}
		repaired++
	}

	logrus.WithFields(logrus.Fields{
		"repaired": repaired,
		"failed":   failed,
	}).Info("repair sweep completed")
}
