package rest

import (
	"errors"
	"net/http"

	"lever/core"
	"lever/handler/render"

	"github.com/go-chi/chi"
)

// Handle handle rest api request
func Handle(reserveStore core.IReserveStore,
	obligationStore core.IObligationStore,
	reserveService core.IReserveService,
	obligationService core.IObligationService,
	priceSource core.PriceSource) http.Handler {
	router := chi.NewRouter()

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.NotFoundRequest(w, errors.New("not found"))
	})

	router.Get("/reserves/all", allReservesHandler(reserveStore, reserveService))
	router.Get("/reserves/{symbol}", reserveHandler(reserveStore, reserveService))
	router.Get("/obligations/{user}", obligationHandler(obligationStore, obligationService))
	router.Get("/obligations/{user}/health", healthHandler(reserveStore, obligationStore, obligationService, priceSource))

	return router
}
