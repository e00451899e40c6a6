package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

func Router(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Health)
	r.Get("/kitchen/board", h.KitchenBoard)

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.ListOrders)
		r.Post("/", h.CreateOrder)
		r.Get("/{id}", h.GetOrder)
		r.Post("/{id}/items", h.AddOrderItem)
		r.Patch("/{id}/status", h.UpdateOrderStatus)
	})

	r.Route("/order-items/{id}", func(r chi.Router) {
		r.Patch("/status", h.UpdateItemStatus)
		r.Post("/cancel", h.CancelItem)
		r.Get("/print-jobs", h.PrintJobs)
	})

	r.Post("/print-jobs/{id}/retry", h.RetryPrintJob)

	r.Get("/tables", h.ListTables)
	r.Get("/tables/{id}/orders", h.TableOrders)

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}
