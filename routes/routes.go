package routes

import (
	"context"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/gorilla/mux"
	"posts-api/controllers"
	"posts-api/db"
	"posts-api/middlewares"
	"posts-api/utils"
)

// Config interface represents the configuration needed for setting up routes.
type Config interface {
	GetAllowedOrigins() []string
	GetRateLimit() int
	ProfilingEnabled() bool
}

// SetupRoutes sets up the application routes and middlewares. Background
// work started for the handler, such as rate limiter cleanup, ends when ctx
// is cancelled.
func SetupRoutes(ctx context.Context, config Config, store db.PostStore, verifier utils.Verifier) http.Handler {
	router := mux.NewRouter()
	postHandler := controllers.NewPostHandler(store)

	// Unauthenticated routes
	controllers.SetupRootRoute(router, store)
	postHandler.SetupResetRoute(router)

	// Everything else under /posts needs a verified caller
	postsRouter := router.PathPrefix("/posts").Subrouter()
	postsRouter.Use(middlewares.TokenAuthMiddleware(verifier))
	postHandler.SetupPostRoutes(postsRouter)

	if config.ProfilingEnabled() {
		router.HandleFunc("/debug/pprof/", pprof.Index)
		router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		router.HandleFunc("/debug/pprof/profile", pprof.Profile)
		router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		router.HandleFunc("/debug/pprof/trace", pprof.Trace)
		router.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)
	}

	var handler http.Handler = router
	if limit := config.GetRateLimit(); limit > 0 {
		rateLimiter := middlewares.NewRateLimiter(ctx, limit, time.Minute, 2*time.Minute)
		handler = rateLimiter.Limit(handler)
	}
	handler = middlewares.LoggingMiddleware(handler)
	handler = middlewares.CorsMiddleware(&middlewares.CorsConfig{
		AllowedOrigins:   config.GetAllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})(handler)

	return middlewares.RecoverMiddleware(handler)
}
