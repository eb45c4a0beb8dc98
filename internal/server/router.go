package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/lodestone-cms/lodestone/internal/database"
)

// AuthHandler defines the interface for authentication HTTP handlers, allowing
// the router to be decoupled from the concrete auth implementation.
type AuthHandler interface {
	Login(w http.ResponseWriter, r *http.Request)
	Refresh(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
	Me(w http.ResponseWriter, r *http.Request)
}

// FieldHandler defines the HTTP surface of field definition management.
type FieldHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

// EntityTypesHandler defines the HTTP surface of entity type introspection.
type EntityTypesHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
}

// ValuesHandler defines the HTTP surface of entity value operations.
type ValuesHandler interface {
	Get(w http.ResponseWriter, r *http.Request)
	Put(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
	CreateRevision(w http.ResponseWriter, r *http.Request)
	RestoreRevision(w http.ResponseWriter, r *http.Request)
	Validate(w http.ResponseWriter, r *http.Request)
}

// RenderHandler defines the HTTP surface of widget rendering and per-field
// value validation and shaping.
type RenderHandler interface {
	Field(w http.ResponseWriter, r *http.Request)
	Form(w http.ResponseWriter, r *http.Request)
	Widgets(w http.ResponseWriter, r *http.Request)
	ValidateValue(w http.ResponseWriter, r *http.Request)
	ValidateValues(w http.ResponseWriter, r *http.Request)
	Prepare(w http.ResponseWriter, r *http.Request)
	Format(w http.ResponseWriter, r *http.Request)
}

// SchemaHandler defines the HTTP surface of schema management.
type SchemaHandler interface {
	Sync(w http.ResponseWriter, r *http.Request)
	SQL(w http.ResponseWriter, r *http.Request)
	SQLAll(w http.ResponseWriter, r *http.Request)
}

// AuditHandler defines the HTTP surface of audit log reads.
type AuditHandler interface {
	List(w http.ResponseWriter, r *http.Request)
}

// Dependencies holds all injectable dependencies used by route handlers.
// Nil handlers fall back to a 501 placeholder so the server can boot with a
// partial wiring in tests.
type Dependencies struct {
	DB                 *database.DB
	DevMode            bool
	AuthHandler        AuthHandler
	AuthMiddleware     func(http.Handler) http.Handler
	CacheMiddleware    func(http.Handler) http.Handler
	FieldHandler       FieldHandler
	EntityTypesHandler EntityTypesHandler
	ValuesHandler      ValuesHandler
	RenderHandler      RenderHandler
	SchemaHandler      SchemaHandler
	AuditHandler       AuditHandler
}

// NewRouter builds the chi router with the full route tree and middleware
// stack.
func NewRouter(deps Dependencies) chi.Router {
	r := chi.NewRouter()

	// --- Global middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(deps.DevMode))

	// --- Health check ---
	r.Get("/health", healthHandler(deps))

	// --- Admin API ---
	r.Route("/admin/api", func(r chi.Router) {
		r.Use(requireJSON)
		if deps.CacheMiddleware != nil {
			r.Use(deps.CacheMiddleware)
		}

		// Public auth routes (no auth middleware required).
		if deps.AuthHandler != nil {
			r.Post("/auth/login", deps.AuthHandler.Login)
			r.Post("/auth/refresh", deps.AuthHandler.Refresh)
			r.Post("/auth/logout", deps.AuthHandler.Logout)
		} else {
			r.Post("/auth/login", notImplemented)
			r.Post("/auth/refresh", notImplemented)
			r.Post("/auth/logout", notImplemented)
		}

		// Protected routes - require valid JWT.
		r.Group(func(r chi.Router) {
			if deps.AuthMiddleware != nil {
				r.Use(deps.AuthMiddleware)
			}

			if deps.AuthHandler != nil {
				r.Get("/auth/me", deps.AuthHandler.Me)
			} else {
				r.Get("/auth/me", notImplemented)
			}

			// Field definition management.
			r.Route("/fields", func(r chi.Router) {
				if deps.FieldHandler != nil {
					r.Get("/", deps.FieldHandler.List)
					r.Post("/", deps.FieldHandler.Create)
					r.Get("/{id}", deps.FieldHandler.Get)
					r.Put("/{id}", deps.FieldHandler.Update)
					r.Delete("/{id}", deps.FieldHandler.Delete)
				}
				if deps.RenderHandler != nil {
					r.Post("/validate", deps.RenderHandler.ValidateValues)
					r.Post("/{id}/validate", deps.RenderHandler.ValidateValue)
				}
				if deps.FieldHandler == nil && deps.RenderHandler == nil {
					r.HandleFunc("/*", notImplemented)
				}
			})

			// Entity type introspection.
			if deps.EntityTypesHandler != nil {
				r.Get("/entity-types", deps.EntityTypesHandler.List)
				r.Get("/entity-types/{name}", deps.EntityTypesHandler.Get)
			} else {
				r.Get("/entity-types", notImplemented)
				r.Get("/entity-types/{name}", notImplemented)
			}

			// Entity values.
			if deps.ValuesHandler != nil {
				r.Post("/values/{entityType}/validate", deps.ValuesHandler.Validate)
				r.Route("/values/{entityType}/{entityID}", func(r chi.Router) {
					r.Get("/", deps.ValuesHandler.Get)
					r.Put("/", deps.ValuesHandler.Put)
					r.Delete("/", deps.ValuesHandler.Delete)
					r.Post("/revisions", deps.ValuesHandler.CreateRevision)
					r.Post("/revisions/{revisionID}/restore", deps.ValuesHandler.RestoreRevision)
				})
			} else {
				r.HandleFunc("/values/*", notImplemented)
			}

			// Widget rendering and value shaping.
			if deps.RenderHandler != nil {
				r.Get("/widgets", deps.RenderHandler.Widgets)
				r.Post("/render/field", deps.RenderHandler.Field)
				r.Post("/render/form", deps.RenderHandler.Form)
				r.Post("/render/prepare", deps.RenderHandler.Prepare)
				r.Post("/render/format", deps.RenderHandler.Format)
			} else {
				r.Get("/widgets", notImplemented)
				r.HandleFunc("/render/*", notImplemented)
			}

			// Schema management.
			if deps.SchemaHandler != nil {
				r.Post("/schema/sync", deps.SchemaHandler.Sync)
				r.Get("/schema/sql", deps.SchemaHandler.SQLAll)
				r.Get("/schema/sql/{name}", deps.SchemaHandler.SQL)
			} else {
				r.Post("/schema/sync", notImplemented)
				r.Get("/schema/sql", notImplemented)
				r.Get("/schema/sql/{name}", notImplemented)
			}

			// Audit log.
			if deps.AuditHandler != nil {
				r.Get("/audit-log", deps.AuditHandler.List)
			} else {
				r.Get("/audit-log", notImplemented)
			}
		})
	})

	return r
}

// corsMiddleware returns a CORS middleware configured for the application.
// In dev mode local origins are allowed; in production only same-origin is
// permitted.
func corsMiddleware(devMode bool) func(http.Handler) http.Handler {
	var allowedOrigins []string
	if devMode {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	} else {
		allowedOrigins = []string{}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// healthHandler returns a handler that reports the health status of the
// application, including a database connectivity check.
func healthHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.DB.Health(r.Context()); err != nil {
			Error(w, http.StatusServiceUnavailable, "DB_UNHEALTHY", "database health check failed", nil)
			return
		}
		JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// notImplemented is a placeholder handler for routes without a wired handler.
func notImplemented(w http.ResponseWriter, r *http.Request) {
	Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Not yet implemented", nil)
}
