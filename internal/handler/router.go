package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter はルーターを生成する。
func NewRouter(h *VerifyHandler) http.Handler {
	r := chi.NewRouter()

	// ミドルウェア
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)

	// ルート定義
	r.Get("/healthz", h.Healthz)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/licenses/verify", h.VerifyLicense)
		r.Get("/crl/status", h.CRLStatus)
	})

	return r
}
