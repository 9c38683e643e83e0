package sentinel

import (
	"context"
	"time"

	"lever/core"
	"lever/worker"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	"github.com/robfig/cron/v3"
)

// Worker obligation sentinel worker
//
// Revalues every obligation against fresh oracle observations and flags the
// ones whose health factor dropped below one.
type Worker struct {
	worker.BaseJob
	Config            *core.Config
	DB                *db.DB
	ReserveStore      core.IReserveStore
	ObligationStore   core.IObligationStore
	ObligationService core.IObligationService
	PriceSource       core.PriceSource
}

// New new sentinel worker
func New(cfg *core.Config,
	database *db.DB,
	reserveStore core.IReserveStore,
	obligationStore core.IObligationStore,
	obligationService core.IObligationService,
	priceSource core.PriceSource) *Worker {
	job := Worker{
		Config:            cfg,
		DB:                database,
		ReserveStore:      reserveStore,
		ObligationStore:   obligationStore,
		ObligationService: obligationService,
		PriceSource:       priceSource,
	}

	l, _ := time.LoadLocation(job.Config.App.Location)
	job.Cron = cron.New(cron.WithLocation(l))
	spec := "@every 30s"
	job.Cron.AddFunc(spec, job.Run)
	job.OnWork = func() error {
		return job.onWork(context.Background())
	}

	return &job
}

func (w *Worker) onWork(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "sentinel")

	reserves, e := w.ReserveStore.AllAsMap(ctx)
	if e != nil {
		log.Errorln(e)
		return e
	}

	obligations, e := w.ObligationStore.All(ctx)
	if e != nil {
		log.Errorln(e)
		return e
	}

	now := time.Now().UTC()
	for _, obligation := range obligations {
		snapshot, e := w.ObligationService.Revalue(ctx, obligation, reserves, w.PriceSource, now)
		if e != nil {
			// a rejected oracle read keeps the last persisted valuation
			log.WithField("user", obligation.UserID).Errorln(e)
			continue
		}

		if e := w.DB.Tx(func(tx *db.DB) error {
			return w.ObligationStore.Update(ctx, tx, obligation)
		}); e != nil {
			log.WithField("user", obligation.UserID).Errorln(e)
			continue
		}

		if snapshot.Liquidatable {
			log.WithField("user", obligation.UserID).
				WithField("health_factor", snapshot.HealthFactor).
				Infoln("obligation liquidatable")
		}
	}

	return nil
}
