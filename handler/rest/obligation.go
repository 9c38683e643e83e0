package rest

import (
	"net/http"
	"time"

	"lever/core"
	"lever/handler/render"
	"lever/handler/views"

	"github.com/go-chi/chi"
)

func obligationHandler(obligationStr core.IObligationStore, obligationSrv core.IObligationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		user := chi.URLParam(r, "user")
		obligation, e := obligationStr.Find(ctx, user)
		if e != nil {
			render.BadRequest(w, e)
			return
		}
		if obligation == nil {
			render.NotFoundRequest(w, core.ErrObligationNotFound)
			return
		}

		render.JSON(w, &views.Obligation{
			Obligation:   *obligation,
			Liquidatable: obligationSrv.Liquidatable(ctx, obligation),
		})
	}
}

// healthHandler revalues with fresh oracle observations, nothing is persisted
func healthHandler(reserveStr core.IReserveStore,
	obligationStr core.IObligationStore,
	obligationSrv core.IObligationService,
	priceSource core.PriceSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		user := chi.URLParam(r, "user")
		obligation, e := obligationStr.Find(ctx, user)
		if e != nil {
			render.BadRequest(w, e)
			return
		}
		if obligation == nil {
			render.NotFoundRequest(w, core.ErrObligationNotFound)
			return
		}

		reserves, e := reserveStr.AllAsMap(ctx)
		if e != nil {
			render.BadRequest(w, e)
			return
		}

		snapshot, e := obligationSrv.Revalue(ctx, obligation, reserves, priceSource, time.Now().UTC())
		if e != nil {
			render.BadRequest(w, e)
			return
		}

		render.JSON(w, snapshot)
	}
}
