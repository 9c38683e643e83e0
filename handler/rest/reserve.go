package rest

import (
	"net/http"
	"strings"

	"lever/core"
	"lever/handler/render"
	"lever/handler/views"

	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"
)

func allReservesHandler(reserveStr core.IReserveStore, reserveSrv core.IReserveService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		reserves, e := reserveStr.All(ctx)
		if e != nil {
			render.BadRequest(w, e)
			return
		}

		reserveViews := make([]*views.Reserve, 0, len(reserves))
		for _, reserve := range reserves {
			reserveViews = append(reserveViews, getReserveView(r, reserve, reserveSrv))
		}

		render.JSON(w, reserveViews)
	}
}

func reserveHandler(reserveStr core.IReserveStore, reserveSrv core.IReserveService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
		reserve, e := reserveStr.FindBySymbol(ctx, symbol)
		if e != nil {
			render.NotFoundRequest(w, core.ErrReserveNotFound)
			return
		}

		render.JSON(w, getReserveView(r, reserve, reserveSrv))
	}
}

func getReserveView(r *http.Request, reserve *core.Reserve, reserveSrv core.IReserveService) *views.Reserve {
	ctx := r.Context()

	supplyRate, e := reserveSrv.CurLiquidityRate(ctx, reserve)
	if e != nil {
		supplyRate = decimal.Zero
	}

	borrowRate, e := reserveSrv.CurBorrowRate(ctx, reserve)
	if e != nil {
		borrowRate = decimal.Zero
	}

	return &views.Reserve{
		Reserve:   *reserve,
		SupplyAPY: supplyRate,
		BorrowAPY: borrowRate,
	}
}
