package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter mounts the REST, websocket and operational endpoints.
func NewRouter(rest *RESTHandler, ws *WSHandler, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/ws", ws.ServeWS)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", rest.StartSession)
		r.Route("/{hostId}/{sessionId}", func(r chi.Router) {
			r.Post("/join", rest.Join)
			r.Post("/leave", rest.Leave)
			r.Post("/answers", rest.SubmitAnswer)
			r.Post("/advance", rest.Advance)
			r.Post("/end", rest.End)
			r.Post("/persist", rest.RetryPersist)
			r.Get("/leaderboard", rest.Leaderboard)
		})
	})
	return r
}
