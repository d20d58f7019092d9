package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/moviestore/api/controllers"
	"github.com/angelmondragon/moviestore/api/middleware"
	"github.com/angelmondragon/moviestore/internal/auth"
	"github.com/angelmondragon/moviestore/internal/cart"
	"github.com/angelmondragon/moviestore/internal/checkout"
	"github.com/angelmondragon/moviestore/internal/movies"
	"github.com/angelmondragon/moviestore/internal/orders"
	"github.com/angelmondragon/moviestore/internal/petitions"
	"github.com/angelmondragon/moviestore/internal/reviews"
	"github.com/angelmondragon/moviestore/pkg/auth/session"
	"github.com/angelmondragon/moviestore/pkg/config"
	"github.com/angelmondragon/moviestore/pkg/db/models"
	"github.com/angelmondragon/moviestore/pkg/logger"
	"github.com/angelmondragon/moviestore/pkg/metrics"
)

type sessionManager interface {
	CookieName() string
	Load(ctx context.Context, token string) (*session.Session, error)
	Save(ctx context.Context, sess *session.Session) (string, error)
	Cookie(token string) *http.Cookie
	controllers.SessionManager
}

// Services bundles the domain services mounted by the router.
type Services struct {
	Auth      auth.Service
	Register  auth.RegisterService
	Movies    movies.Service
	Reviews   reviews.Service
	Cart      cart.Service
	Checkout  checkout.Service
	Orders    orders.Service
	Petitions petitions.Service
}

// Infra carries the cross-cutting dependencies.
type Infra struct {
	Sessions       sessionManager
	Users          userLoader
	RateLimiter    middleware.RateLimiter
	Metrics        *metrics.StoreMetrics
	MetricsHandler http.Handler
	Ready          map[string]controllers.Pinger
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

func NewRouter(cfg *config.Config, logg *logger.Logger, infra Infra, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)
	if infra.Metrics != nil {
		r.Use(middleware.Metrics(infra.Metrics))
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, infra.Ready))
	})
	if infra.MetricsHandler != nil {
		r.Handle("/metrics", infra.MetricsHandler)
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginUsernameLimit,
	)
	signupPolicy := middleware.NewAuthRateLimitPolicy(
		"signup",
		cfg.AuthRateLimit.SignupWindow,
		cfg.AuthRateLimit.SignupIPLimit,
		cfg.AuthRateLimit.SignupUsernameLimit,
	)

	var reportRecorder interface{ ReviewReported() }
	var orderRecorder interface{ OrderPlaced(int) }
	var voteRecorder interface{ VoteCast(string) }
	if infra.Metrics != nil {
		reportRecorder, orderRecorder, voteRecorder = infra.Metrics, infra.Metrics, infra.Metrics
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Session(infra.Sessions, infra.Users, logg))
		r.Use(middleware.CSRF(logg))

		r.Get("/", controllers.Home(logg))

		signup := controllers.Signup(svc.Register, infra.Sessions, logg)
		r.Get("/signup/", signup)
		r.With(middleware.AuthRateLimit(signupPolicy, infra.RateLimiter, logg)).Post("/signup/", signup)

		login := controllers.Login(svc.Auth, infra.Sessions, logg)
		r.Get("/login/", login)
		r.With(middleware.AuthRateLimit(loginPolicy, infra.RateLimiter, logg)).Post("/login/", login)
		r.Post("/logout/", controllers.Logout(infra.Sessions, logg))

		r.Route("/movies", func(r chi.Router) {
			r.Get("/", controllers.MovieList(svc.Movies, logg))
			r.Get("/{movieID}/", controllers.MovieDetail(svc.Movies, svc.Reviews, logg))
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Use(middleware.RequireLogin)
			r.Post("/add/{movieID}/", controllers.ReviewAdd(svc.Movies, svc.Reviews, logg))
			r.Get("/{reviewID}/edit/", controllers.ReviewEdit(svc.Movies, svc.Reviews, logg))
			r.Post("/{reviewID}/edit/", controllers.ReviewEdit(svc.Movies, svc.Reviews, logg))
			r.Get("/{reviewID}/delete/", controllers.ReviewDelete(svc.Reviews, logg))
			r.Post("/{reviewID}/delete/", controllers.ReviewDelete(svc.Reviews, logg))
			r.Post("/{reviewID}/report/", controllers.ReviewReport(svc.Reviews, reportRecorder, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartDetail(svc.Cart, logg))
			r.Post("/", controllers.CartDetail(svc.Cart, logg))
			r.Post("/add/{movieID}/", controllers.CartAdd(svc.Cart, logg))
			r.Post("/remove/{movieID}/", controllers.CartRemove(svc.Cart, logg))
			r.Post("/clear/", controllers.CartClear(svc.Cart, logg))
		})

		r.With(middleware.RequireLogin).Post("/checkout/", controllers.Checkout(svc.Checkout, orderRecorder, logg))
		r.With(middleware.RequireLogin).Get("/orders/", controllers.OrderList(svc.Orders, logg))

		r.Route("/petitions", func(r chi.Router) {
			r.Get("/", controllers.PetitionList(svc.Petitions, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireLogin)
				r.Post("/", controllers.PetitionCreate(svc.Petitions, logg))
				r.Post("/{petitionID}/vote/", controllers.PetitionVote(svc.Petitions, voteRecorder, logg))
				r.Post("/{petitionID}/delete/", controllers.PetitionDelete(svc.Petitions, logg))
			})
		})
	})

	return r
}
