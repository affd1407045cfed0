package routes

import (
	"net/http"

	"github.com/Dosada05/tournament-brackets/docs"
	"github.com/Dosada05/tournament-brackets/handlers"
	"github.com/Dosada05/tournament-brackets/metrics"
	"github.com/Dosada05/tournament-brackets/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Handlers struct {
	Auth        *handlers.AuthHandler
	Tournament  *handlers.TournamentHandler
	Participant *handlers.ParticipantHandler
	Bracket     *handlers.BracketHandler
	Match       *handlers.MatchHandler
	User        *handlers.UserHandler
	WebSocket   *handlers.WebSocketHandler
}

type Options struct {
	JWTSecret      string
	AllowedOrigins []string
	Metrics        *metrics.Manager
	// RequestLogging enables chi's request logger.
	RequestLogging bool
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	if opts.RequestLogging {
		router.Use(chiMiddleware.Logger)
	}
	router.Use(chiMiddleware.Recoverer)
	router.Use(middleware.Metrics(opts.Metrics))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(opts.JWTSecret)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Auth.Register)
		r.Post("/login", h.Auth.Login)
		r.Get("/confirm", h.Auth.ConfirmEmail)
		r.Post("/forgot-password", h.Auth.ForgotPassword)
		r.Post("/reset-password", h.Auth.ResetPassword)
	})

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", h.Tournament.List)
		r.With(authenticate).Post("/", h.Tournament.Create)

		r.Route("/{tournamentID}", func(r chi.Router) {
			r.Get("/", h.Tournament.GetByID)
			r.Get("/participants", h.Participant.List)
			r.Get("/bracket", h.Bracket.Get)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Put("/", h.Tournament.Update)
				r.Delete("/", h.Tournament.Delete)
				r.Post("/logo", h.Tournament.UploadLogo)
				r.Post("/participants", h.Participant.Register)
				r.Post("/bracket", h.Bracket.Generate)
			})
		})
	})

	router.Route("/matches/{matchID}", func(r chi.Router) {
		r.Get("/", h.Match.GetByID)
		r.With(authenticate).Post("/report", h.Match.Report)
	})

	router.Route("/me", func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/", h.User.Dashboard)
		r.Get("/tournaments", h.User.MyTournaments)
		r.Get("/matches", h.Match.MyMatches)
	})

	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeWs)

	router.Handle("/metrics", opts.Metrics.Handler())

	router.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(docs.SwaggerJSON)
	})
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}
