package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/agrovia/farmdesk/internal/domain/auth"
	"github.com/agrovia/farmdesk/internal/ports"
	"github.com/agrovia/farmdesk/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth          *service.AuthService
	Profiles      *service.UserProfileService
	Guard         *service.SessionGuard
	Selector      *service.CurrentFarmService
	Farms         *service.FarmService
	Plots         *service.PlotService
	Collaborators *service.CollaboratorService
	Activities    *service.ActivityService
	Harvests      *service.HarvestService
	Settings      *service.SettingService
	Users         *service.UserService
	// Expiry receives an event for every session found expired during request
	// handling, feeding the lock-and-renew flow.
	Expiry       ports.ExpiryPublisher
	CookieDomain string
	Logger       *slog.Logger // Logger for HTTP errors (optional)
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	sessions := &SessionAuth{Svc: services.Auth, Expiry: services.Expiry}

	authHandlers := &AuthHandlers{
		Svc:          services.Auth,
		Profiles:     services.Profiles,
		Guard:        services.Guard,
		CookieDomain: services.CookieDomain,
		Logger:       services.Logger,
	}

	registerAuthRoutes(mux, authHandlers, sessions)
	registerStateRoutes(mux, &StateHandlers{Selector: services.Selector}, sessions)
	registerFarmRoutes(mux, &FarmHandlers{Svc: services.Farms}, sessions)
	registerPlotRoutes(mux, &PlotHandlers{Svc: services.Plots}, sessions)
	registerCollaboratorRoutes(mux, &CollaboratorHandlers{Svc: services.Collaborators}, sessions)
	registerActivityRoutes(mux, &ActivityHandlers{Svc: services.Activities}, sessions)
	registerHarvestRoutes(mux, &HarvestHandlers{Svc: services.Harvests}, sessions)
	registerSettingRoutes(mux, &SettingHandlers{Svc: services.Settings}, sessions)
	registerUserRoutes(mux, &UserHandlers{Svc: services.Users}, sessions)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	return mux
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers, sessions *SessionAuth) {
	mux.HandleFunc("GET /auth/login", h.Login)
	mux.HandleFunc("GET /auth/callback", h.Callback)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("GET /auth/status", h.Status)
	mux.HandleFunc("POST /api/auth/login", h.PasswordLogin)
	// Renewal receives the expired session cookie, so it stays outside the
	// auth middleware.
	mux.HandleFunc("POST /api/auth/renew", h.Renew)

	requireAuth := sessions.RequireAuth()
	mux.Handle("GET /api/me", requireAuth(http.HandlerFunc(h.Me)))
	mux.Handle("POST /api/me/refresh", requireAuth(http.HandlerFunc(h.RefreshProfile)))
}

func registerStateRoutes(mux *http.ServeMux, h *StateHandlers, sessions *SessionAuth) {
	requireAuth := sessions.RequireAuth()
	mux.Handle("GET /api/state/current-farm", requireAuth(http.HandlerFunc(h.GetCurrentFarm)))
	mux.Handle("PUT /api/state/current-farm", requireAuth(http.HandlerFunc(h.SelectFarm)))
	mux.Handle("POST /api/state/farms/load", requireAuth(http.HandlerFunc(h.LoadFarms)))
}

func registerFarmRoutes(mux *http.ServeMux, h *FarmHandlers, sessions *SessionAuth) {
	registerCRUD(mux, crudRoutes{
		Base:       "/api/farms",
		Create:     h.Create,
		List:       h.List,
		GetByID:    h.GetByID,
		Update:     h.Update,
		Delete:     h.Delete,
		Middleware: sessions.RequireAuth(),
	})
}

func registerPlotRoutes(mux *http.ServeMux, h *PlotHandlers, sessions *SessionAuth) {
	registerCRUD(mux, crudRoutes{
		Base:       "/api/plots",
		Create:     h.Create,
		List:       h.List,
		GetByID:    h.GetByID,
		Update:     h.Update,
		Delete:     h.Delete,
		Middleware: sessions.RequireAuth(),
	})
}

func registerCollaboratorRoutes(mux *http.ServeMux, h *CollaboratorHandlers, sessions *SessionAuth) {
	registerCRUD(mux, crudRoutes{
		Base:       "/api/collaborators",
		Create:     h.Create,
		List:       h.List,
		GetByID:    h.GetByID,
		Update:     h.Update,
		Delete:     h.Delete,
		Middleware: sessions.RequireAuth(),
	})
}

func registerActivityRoutes(mux *http.ServeMux, h *ActivityHandlers, sessions *SessionAuth) {
	registerCRUD(mux, crudRoutes{
		Base:       "/api/activities",
		Create:     h.Create,
		List:       h.List,
		GetByID:    h.GetByID,
		Update:     h.Update,
		Delete:     h.Delete,
		Middleware: sessions.RequireAuth(),
	})
}

func registerHarvestRoutes(mux *http.ServeMux, h *HarvestHandlers, sessions *SessionAuth) {
	requireAuth := sessions.RequireAuth()
	// The export route must land before the {id} pattern binds the path.
	mux.Handle("GET /api/harvests/export", requireAuth(http.HandlerFunc(h.Export)))
	registerCRUD(mux, crudRoutes{
		Base:       "/api/harvests",
		Create:     h.Create,
		List:       h.List,
		GetByID:    h.GetByID,
		Update:     h.Update,
		Delete:     h.Delete,
		Middleware: requireAuth,
	})
}

// registerSettingRoutes wires per-farm pricing settings. Settings are keyed by
// name rather than ID and write access needs at least the farm manager role.
func registerSettingRoutes(mux *http.ServeMux, h *SettingHandlers, sessions *SessionAuth) {
	requireAuth := sessions.RequireAuth()
	requireManager := sessions.RequireRole(domainauth.RoleFarmManager)

	mux.Handle("GET /api/settings", requireAuth(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/settings/{key}", requireAuth(http.HandlerFunc(h.Get)))
	mux.Handle("PUT /api/settings/{key}", requireManager(http.HandlerFunc(h.Upsert)))
	mux.Handle("DELETE /api/settings/{key}", requireManager(http.HandlerFunc(h.Delete)))
}

func registerUserRoutes(mux *http.ServeMux, h *UserHandlers, sessions *SessionAuth) {
	registerCRUD(mux, crudRoutes{
		Base:       "/api/users",
		Create:     h.Create,
		List:       h.List,
		GetByID:    h.GetByID,
		Update:     h.Update,
		Delete:     h.Delete,
		Middleware: sessions.RequireRole(domainauth.RoleAdmin),
	})
}

// crudRoutes describes the standard handler set for a resource base path.
type crudRoutes struct {
	Base       string
	Create     http.HandlerFunc
	List       http.HandlerFunc
	GetByID    http.HandlerFunc
	Update     http.HandlerFunc
	Delete     http.HandlerFunc
	Middleware func(http.Handler) http.Handler
}

// registerCRUD registers standard CRUD routes for a resource base path, applying mw if non-nil.
func registerCRUD(mux *http.ServeMux, cfg crudRoutes) {
	if cfg.Base == "" {
		panic("registerCRUD: Base must not be empty") //nolint:forbidigo // Fail fast during server setup.
	}
	if cfg.Create == nil ||
		cfg.List == nil ||
		cfg.GetByID == nil ||
		cfg.Update == nil ||
		cfg.Delete == nil {
		panic("registerCRUD: nil handler for base " + cfg.Base) //nolint:forbidigo // Fail fast during server setup.
	}

	wrap := func(h http.HandlerFunc) http.Handler {
		if cfg.Middleware != nil {
			return cfg.Middleware(h)
		}
		return h
	}
	mux.Handle("POST "+cfg.Base, wrap(cfg.Create))
	mux.Handle("GET "+cfg.Base, wrap(cfg.List))
	mux.Handle("GET "+cfg.Base+"/{id}", wrap(cfg.GetByID))
	mux.Handle("PUT "+cfg.Base+"/{id}", wrap(cfg.Update))
	mux.Handle("DELETE "+cfg.Base+"/{id}", wrap(cfg.Delete))
}
