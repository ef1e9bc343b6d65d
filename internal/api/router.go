package api

import (
	"net/http"
	"time"
	"todo_collab/internal/api/handler"
	"todo_collab/internal/api/middleware"
	"todo_collab/internal/app/service"
	"todo_collab/internal/common/security"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

// Services groups what the handlers are built from.
type Services struct {
	Auth     *service.AuthService
	Users    *service.UserService
	ToDos    *service.ToDoService
	Tasks    *service.TaskService
	States   *service.StateService
	Security *service.SecurityService
}

func NewRouter(logger *log.Logger, svc Services, cookieSecure bool) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.RequestLogger(&chiMiddleware.DefaultLogFormatter{
		Logger:  logger.StandardLog(),
		NoColor: true,
	}))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Looks for the token in "Authorization: Bearer T", then the jwt cookie.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	authHandler := handler.NewAuthHandler(svc.Auth, cookieSecure)
	userHandler := handler.NewUserHandler(svc.Users, svc.Security, authHandler)
	todoHandler := handler.NewToDoHandler(svc.ToDos, svc.Users, svc.Security)
	taskHandler := handler.NewTaskHandler(svc.Tasks, svc.ToDos, svc.States, svc.Security)
	stateHandler := handler.NewStateHandler(svc.States)

	r.Group(authHandler.RegisterPublicRoutes)

	r.Group(func(protected chi.Router) {
		protected.Use(middleware.Authenticator(svc.Auth))

		authHandler.RegisterRoutes(protected)
		protected.Route("/users", userHandler.RegisterRoutes)
		protected.Route("/todos", todoHandler.RegisterRoutes)
		protected.Route("/tasks", taskHandler.RegisterRoutes)
		protected.Route("/states", stateHandler.RegisterRoutes)
	})

	return r
}
