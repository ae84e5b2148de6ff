// Package commissionhttp exposes commission reports over HTTP.
package commissionhttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers the commission endpoints under /api/commission.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Route("/api/commission", func(cr chi.Router) {
		cr.Get("/categories", h.handleCategories)
		cr.Get("/report", h.handleReport)
		cr.Get("/report.csv", h.handleCSV)
		cr.Post("/cache/refresh", h.handleRefresh)
		cr.Group(func(gr chi.Router) {
			gr.Use(limiter)
			gr.Get("/report.pdf", h.handlePDF)
			gr.Post("/jobs", h.handleEnqueue)
		})
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
