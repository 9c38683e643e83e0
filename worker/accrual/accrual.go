package accrual

import (
	"context"
	"time"

	"lever/core"
	"lever/worker"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	"github.com/robfig/cron/v3"
)

// Worker reserve accrual worker
//
// Compounds every reserve's indexes and refreshes its rates on a fixed
// cadence so that idle pools still earn interest between user actions.
type Worker struct {
	worker.BaseJob
	Config         *core.Config
	DB             *db.DB
	ReserveStore   core.IReserveStore
	ReserveService core.IReserveService
}

// New new accrual worker
func New(cfg *core.Config,
	database *db.DB,
	reserveStore core.IReserveStore,
	reserveService core.IReserveService) *Worker {
	job := Worker{
		Config:         cfg,
		DB:             database,
		ReserveStore:   reserveStore,
		ReserveService: reserveService,
	}

	l, _ := time.LoadLocation(job.Config.App.Location)
	job.Cron = cron.New(cron.WithLocation(l))
	spec := "@every 10s"
	job.Cron.AddFunc(spec, job.Run)
	job.OnWork = func() error {
		return job.onWork(context.Background())
	}

	return &job
}

func (w *Worker) onWork(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "accrual")

	reserves, e := w.ReserveStore.All(ctx)
	if e != nil {
		log.Errorln(e)
		return e
	}

	now := time.Now().UTC()
	for _, reserve := range reserves {
		if reserve.Status == core.ReserveStatusPaused {
			continue
		}

		if e := w.accrueReserve(ctx, reserve, now); e != nil {
			log.WithField("asset", reserve.AssetID).Errorln(e)
			continue
		}
	}

	return nil
}

// accrueReserve accrue then refresh rates, in that exact order, persisting
// only when both succeed
func (w *Worker) accrueReserve(ctx context.Context, reserve *core.Reserve, now time.Time) error {
	if e := w.ReserveService.Accrue(ctx, reserve, now); e != nil {
		return e
	}

	if e := w.ReserveService.UpdateRates(ctx, reserve); e != nil {
		return e
	}

	return w.DB.Tx(func(tx *db.DB) error {
		return w.ReserveStore.Update(ctx, tx, reserve)
	})
}
