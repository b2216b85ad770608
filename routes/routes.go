package routes

import (
	"github.com/Mutwiricris/cuesports-engine/handlers"
	"github.com/Mutwiricris/cuesports-engine/middleware"
	"github.com/Mutwiricris/cuesports-engine/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
)

func InitRoutes(progression *handlers.ProgressionHandler, ws *handlers.WebSocketHandler, jwtSecret string) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	router.Get("/test-connection", progression.TestConnection)
	router.Get("/ws/{tournamentID}", ws.ServeWs)

	// Чтение состояния — без токена.
	router.Post("/tournament/positions", progression.Positions)
	router.Post("/tournament/matches", progression.TournamentMatches)

	// Мутирующие операции прогрессии.
	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret))

		r.Post("/initialize-tournament", progression.InitializeTournament)

		r.Post("/community/next-round", progression.NextRound(models.LevelCommunity))
		r.Post("/county/next-round", progression.NextRound(models.LevelCounty))
		r.Post("/regional/next-round", progression.NextRound(models.LevelRegional))
		r.Post("/national/next-round", progression.NextRound(models.LevelNational))
		r.Post("/special/next-round", progression.NextRound(models.LevelSpecial))

		r.Post("/county/initialize", progression.InitializeLevel(models.LevelCounty))
		r.Post("/regional/initialize", progression.InitializeLevel(models.LevelRegional))
		r.Post("/national/initialize", progression.InitializeLevel(models.LevelNational))

		r.Post("/community/finalize-winners", progression.FinalizeCommunity)
		r.Post("/finalize", progression.Finalize)
	})

	return router
}
