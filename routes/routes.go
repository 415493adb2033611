package routes

import (
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"potluck/assignments"
	"potluck/auth"
	"potluck/callable"
	"potluck/events"
	"potluck/importer"
	"potluck/menu"
	"potluck/metrics"
	"potluck/middleware"
	"potluck/presets"
	"potluck/printout"
	"potluck/ratelim"
	"potluck/realtime"
)

func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

func AddAuthRoutes(router *httprouter.Router, d Deps) {
	router.POST("/api/auth/register", d.Limiter.Limit(d.Auth.Register))
	router.POST("/api/auth/login", d.Limiter.Limit(d.Auth.Login))
	router.POST("/api/auth/anonymous", d.Limiter.Limit(d.Auth.Anonymous))
	router.POST("/api/auth/token/refresh", d.Limiter.Limit(d.Authn.Authenticate(d.Auth.RefreshToken)))
	router.GET("/api/auth/me", d.Authn.Authenticate(d.Auth.Me))
}

func AddEventsRoutes(router *httprouter.Router, d Deps) {
	router.GET("/api/events", d.Authn.Authenticate(d.Events.GetMyEvents))
	router.POST("/api/events", d.Authn.Authenticate(d.Events.CreateEvent))
	router.GET("/api/events/:eventid", d.Authn.Authenticate(d.Events.GetEvent))
	router.GET("/api/events/:eventid/summary", d.Authn.Authenticate(d.Events.GetSummary))
	router.PUT("/api/events/:eventid", d.Authn.Authenticate(d.Events.UpdateEventDetails))
	router.DELETE("/api/events/:eventid", d.Authn.Authenticate(d.Events.DeleteEvent))
	router.POST("/api/events/:eventid/join", d.Authn.Authenticate(d.Events.JoinEvent))
}

func AddMenuRoutes(router *httprouter.Router, d Deps) {
	router.POST("/api/events/:eventid/items", d.Authn.Authenticate(d.Menu.CreateMenuItem))
	router.POST("/api/events/:eventid/items/bulk", d.Authn.Authenticate(d.Menu.BulkAction))
	router.PUT("/api/events/:eventid/items/:itemid", d.Authn.Authenticate(d.Menu.UpdateMenuItem))
	router.DELETE("/api/events/:eventid/items/:itemid", d.Authn.Authenticate(d.Menu.DeleteMenuItem))
}

func AddAssignmentRoutes(router *httprouter.Router, d Deps) {
	router.POST("/api/events/:eventid/assignments", d.Authn.Authenticate(d.Assignments.CreateAssignment))
	router.PUT("/api/events/:eventid/assignments/:assignmentid", d.Authn.Authenticate(d.Assignments.UpdateAssignment))
	router.DELETE("/api/events/:eventid/assignments/:assignmentid", d.Authn.Authenticate(d.Assignments.CancelAssignment))
	router.POST("/api/events/:eventid/assignments/:assignmentid/cancel", d.Authn.Authenticate(d.Assignments.CancelOwn))
}

func AddImportRoutes(router *httprouter.Router, d Deps) {
	router.POST("/api/events/:eventid/import/preview", d.Limiter.Limit(d.Authn.Authenticate(d.Importer.PreviewText)))
	router.POST("/api/events/:eventid/import/csv", d.Limiter.Limit(d.Authn.Authenticate(d.Importer.PreviewCSV)))
	router.POST("/api/events/:eventid/import/commit", d.Authn.Authenticate(d.Importer.Commit))
	router.GET("/api/events/:eventid/migration", d.Authn.Authenticate(d.Importer.MigrationSeed))
	router.POST("/api/events/:eventid/migration", d.Authn.Authenticate(d.Importer.Migrate))
}

func AddPresetRoutes(router *httprouter.Router, d Deps) {
	router.GET("/api/presets", d.Authn.Authenticate(d.Presets.List))
	router.POST("/api/presets", d.Authn.Authenticate(d.Presets.Create))
	router.PUT("/api/presets/:presetid", d.Authn.Authenticate(d.Presets.Update))
	router.DELETE("/api/presets/:presetid", d.Authn.Authenticate(d.Presets.Delete))
	router.POST("/api/events/:eventid/presets/:presetid/apply", d.Authn.Authenticate(d.Presets.Apply))
}

func AddPrintRoutes(router *httprouter.Router, d Deps) {
	router.GET("/api/events/:eventid/sheet.pdf", d.Limiter.Limit(d.Authn.Authenticate(d.Print.Sheet)))
	router.GET("/api/events/:eventid/qr.png", d.Print.QR)
}

// AddCallableRoutes mounts the callable registry. Each function decides
// whether it needs an identity, so auth here is optional.
func AddCallableRoutes(router *httprouter.Router, d Deps) {
	router.POST("/callable/:name", d.Authn.OptionalAuth(d.Callables.Handle))
}

func AddRealtimeRoutes(router *httprouter.Router, d Deps) {
	router.GET("/ws/events/:eventid/:slice", d.Authn.Authenticate(realtime.WebSocketHandler(d.Hub)))
}

func AddUtilityRoutes(router *httprouter.Router, d Deps) {
	router.GET("/health", Index)
	router.Handler(http.MethodGet, "/metrics", metrics.Handler())
}

// Deps collects the handler sets the route groups are built from.
type Deps struct {
	Limiter     *ratelim.RateLimiter
	Authn       *middleware.Authenticator
	Auth        *auth.Handlers
	Events      *events.Handlers
	Menu        *menu.Handlers
	Assignments *assignments.Handlers
	Importer    *importer.Handlers
	Presets     *presets.Handlers
	Print       *printout.Handlers
	Callables   *callable.Registry
	Hub         *realtime.Hub
}
