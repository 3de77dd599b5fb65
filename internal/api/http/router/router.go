package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/Mid-D-Man/AirCode-sub002/internal/api/http/handler"
	"github.com/Mid-D-Man/AirCode-sub002/internal/api/http/middleware"
	"github.com/Mid-D-Man/AirCode-sub002/internal/logger"
)

// validateRateLimit bounds scan validation per client IP. A classroom
// behind one NAT still fits comfortably under it.
const validateRateLimit = 120

// Router wires handlers and middleware into the HTTP route tree.
type Router struct {
	validate *handler.Validate
	session  *handler.Session
	tokens   middleware.TokenParser
	logger   *logger.Logger
}

// New creates a new Router instance.
func New(
	validate *handler.Validate,
	session *handler.Session,
	tokens middleware.TokenParser,
	logger *logger.Logger,
) *Router {
	return &Router{
		validate: validate,
		session:  session,
		tokens:   tokens,
		logger:   logger,
	}
}

// Register builds the route tree with request logging on everything,
// rate limiting on the public validation endpoint and bearer-token
// authentication on the session management API.
func (r *Router) Register() http.Handler {
	logging := middleware.NewLogging(r.logger)
	authenticate := middleware.NewAuthenticate(r.tokens, r.logger)

	mux := chi.NewRouter()
	mux.Use(logging.Handle)

	mux.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.Group(func(public chi.Router) {
		public.Use(httprate.LimitByIP(validateRateLimit, time.Minute))
		public.Post("/functions/v1/validate-attendance", r.validate.Handle)
	})

	mux.Route("/api/v1", func(api chi.Router) {
		api.Use(authenticate.Handle)
		api.Post("/sessions", r.session.Create)
		api.Post("/sessions/{id}/refresh", r.session.Refresh)
	})

	return mux
}
