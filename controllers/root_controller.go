package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"posts-api/middlewares"
)

// Pinger is satisfied by any store able to report its own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

func healthHandler(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			middlewares.HttpError(w, "database unavailable", http.StatusServiceUnavailable, err)
			return
		}

		middlewares.RespondMessage(w, "ok", http.StatusOK)
	}
}

// SetupRootRoute registers the unauthenticated health check.
func SetupRootRoute(router *mux.Router, store Pinger) {
	router.HandleFunc("/health", healthHandler(store)).Methods(http.MethodGet)
}
