package delivery

import (
	"net/http"
	"time"

	"github.com/Vovarama1992/go-utils/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// RegisterRoutes вешает API на корень и дублирует его под /api/pdf.
// ratePerMinute <= 0 отключает лимит на конвертации.
func RegisterRoutes(
	r chi.Router,
	hImg *ImagePDFHandler,
	hConv *ConvertHandler,
	hHealth *HealthHandler,
	metrics http.Handler,
	ratePerMinute int,
) {
	var limit func(http.Handler) http.Handler
	if ratePerMinute > 0 {
		// один лимитер на оба префикса
		limit = httprate.LimitByIP(ratePerMinute, time.Minute)
	}

	api := func(ar chi.Router) {
		ar.Use(httputil.RecoverMiddleware)

		// --- конвертации (тяжёлые, под лимитом) ---
		ar.Group(func(cr chi.Router) {
			if limit != nil {
				cr.Use(limit)
			}
			cr.Post("/image-to-pdf", hImg.Convert)
			if hConv != nil {
				cr.Post("/convert", hConv.Convert)
			}
		})

		// --- сессии ---
		ar.Get("/download/{sessionId}", hImg.Download)
		ar.Delete("/session/{sessionId}", hImg.DeleteSession)

		ar.Get("/health", hHealth.Health)
	}

	r.Group(api)
	r.Route("/api/pdf", api)

	if metrics != nil {
		r.With(httputil.RecoverMiddleware).Get("/metrics", metrics.ServeHTTP)
	}
}
