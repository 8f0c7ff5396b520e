package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type RouterOptions struct {
	RateLimit float64
	RateBurst int
}

func NewRouter(h *Handler, logger zerolog.Logger, opts RouterOptions) *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestIDMiddleware, RecoverMiddleware(logger), AccessLogMiddleware(logger))

	r.HandleFunc("/health", HealthHandler).Methods(http.MethodGet)

	var receipt http.Handler = http.HandlerFunc(h.ReceiptHandler)
	if opts.RateLimit > 0 {
		receipt = NewIPRateLimiter(opts.RateLimit, opts.RateBurst).Middleware(receipt)
	}
	r.Handle("/recibo", receipt).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("<h1>No encontrado</h1>"))
	})
	return r
}
