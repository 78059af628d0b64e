package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/pinboard-be/internal/api/handlers"
	"github.com/isdelr/pinboard-be/internal/services"
	"github.com/isdelr/pinboard-be/internal/websocket"
)

// Services groups the business logic the router dispatches to.
type Services struct {
	Users    services.UserServiceProvider
	Pins     services.PinServiceProvider
	Comments services.CommentServiceProvider
	Health   services.HealthServiceProvider
}

// NewRouter creates and configures a new Chi router.
func NewRouter(hub *websocket.Hub, svc Services, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders: []string{"Link"},
		MaxAge:         300,
	}))

	// Initialize handlers
	userHandler := handlers.NewUserHandler(svc.Users)
	pinHandler := handlers.NewPinHandler(svc.Pins)
	likeHandler := handlers.NewLikeHandler(svc.Pins)
	commentHandler := handlers.NewCommentHandler(svc.Comments)
	healthHandler := handlers.NewHealthHandler(svc.Health)
	wsHandler := handlers.NewWebSocketHandler(hub)

	r.Get("/", handlers.Root)
	r.Get("/health", healthHandler.Health)

	// Live activity
	r.Get("/ws", wsHandler.Serve)
	r.Get("/ws/pins/{id}", wsHandler.Serve)

	// Users
	r.Post("/register", userHandler.Register)
	r.Post("/login", userHandler.Login)
	r.Get("/user", userHandler.GetAll)
	r.Get("/user/{id}", userHandler.Get)
	r.Put("/update/user/{id}", userHandler.Update)
	r.Delete("/user/{id}", userHandler.Delete)
	r.Post("/savepin/{userId}/{pinID}", userHandler.SavePin)

	// Pins
	r.Post("/create", pinHandler.Create)
	r.Get("/pin", pinHandler.GetAll)
	r.Get("/pin/{id}", pinHandler.Get)
	r.Get("/v/explore", pinHandler.Explore)
	r.Get("/category/{id}", pinHandler.Category)
	r.Get("/unauth/slideshow", pinHandler.Slideshow)
	r.Post("/search/{searchword}", pinHandler.Search)

	// Comments and likes
	r.Post("/comment/{pinId}", commentHandler.Create)
	r.Post("/like/{id}", likeHandler.Add)
	r.Post("/like/delete/{id}", likeHandler.Remove)

	return r
}
