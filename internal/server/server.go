// Package server assembles the HTTP API and the optional gRPC health endpoint.
package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	audithandler "teamos/backend/internal/audit/handler"
	healthhandler "teamos/backend/internal/health/handler"
	identityhandler "teamos/backend/internal/identity/handler"
	invitationhandler "teamos/backend/internal/invitation/handler"
	membershiphandler "teamos/backend/internal/membership/handler"
	organizationhandler "teamos/backend/internal/organization/handler"
	"teamos/backend/internal/platform/httpx"
	projecthandler "teamos/backend/internal/project/handler"
)

// Deps holds everything the HTTP API is built from.
type Deps struct {
	Auth     Authenticator
	Resolver TenantResolver
	Cookies  httpx.CookiePolicy

	Identity      *identityhandler.Handler
	Organizations *organizationhandler.Handler
	Members       *membershiphandler.Handler
	Invitations   *invitationhandler.Handler
	Projects      *projecthandler.Handler
	Activity      *audithandler.Handler
	Health        *healthhandler.Checker

	// Tracer starts request spans. Nil uses a no-op tracer.
	Tracer trace.Tracer
	Log    *zap.Logger
}

// NewApp returns the fiber app serving every API route.
//
// Routes under /api/auth and /api/accept-invite are public. /api/organizations (list, create,
// switch) requires a session. Everything else also requires a resolved tenant.
func NewApp(deps Deps) *fiber.App {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}

	app := fiber.New(fiber.Config{
		AppName:               "teamos",
		ErrorHandler:          httpx.ErrorHandler(log),
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
		IdleTimeout:           60 * time.Second,
		DisableStartupMessage: true,
	})
	app.Use(RequestContext(tracer, log))

	if deps.Health != nil {
		app.Get("/healthz", deps.Health.HTTP)
	}

	authn := Authenticate(deps.Auth)
	tenanted := ResolveTenant(deps.Resolver, deps.Cookies)

	api := app.Group("/api")

	api.Post("/auth/register", deps.Identity.Register)
	api.Post("/auth/login", deps.Identity.Login)
	api.Post("/auth/logout", deps.Identity.Logout)

	api.Get("/accept-invite", deps.Invitations.Lookup)
	api.Post("/accept-invite", deps.Invitations.Accept)

	api.Get("/organizations", authn, deps.Organizations.List)
	api.Post("/organizations", authn, deps.Organizations.Create)
	api.Post("/organizations/switch", authn, deps.Organizations.Switch)
	api.Get("/organizations/current", authn, tenanted, deps.Organizations.Current)
	api.Patch("/organizations/current", authn, tenanted, deps.Organizations.Update)

	api.Get("/members", authn, tenanted, deps.Members.List)
	api.Patch("/members/:id", authn, tenanted, deps.Members.ChangeRole)
	api.Delete("/members/:id", authn, tenanted, deps.Members.Remove)

	api.Get("/invitations", authn, tenanted, deps.Invitations.List)
	api.Post("/invitations", authn, tenanted, deps.Invitations.Create)
	api.Delete("/invitations/:id", authn, tenanted, deps.Invitations.Revoke)

	api.Get("/projects", authn, tenanted, deps.Projects.ListProjects)
	api.Post("/projects", authn, tenanted, deps.Projects.CreateProject)
	api.Delete("/projects/:id", authn, tenanted, deps.Projects.DeleteProject)
	api.Get("/projects/:id/tasks", authn, tenanted, deps.Projects.ListTasks)
	api.Post("/projects/:id/tasks", authn, tenanted, deps.Projects.CreateTask)
	api.Patch("/tasks/:id/status", authn, tenanted, deps.Projects.UpdateTaskStatus)

	api.Get("/activity", authn, tenanted, deps.Activity.List)

	return app
}
