package routes

import (
	"github.com/julienschmidt/httprouter"
)

func RoutesWrapper(router *httprouter.Router, d Deps) {
	AddAuthRoutes(router, d)
	AddEventsRoutes(router, d)
	AddMenuRoutes(router, d)
	AddAssignmentRoutes(router, d)
	AddImportRoutes(router, d)
	AddPresetRoutes(router, d)
	AddPrintRoutes(router, d)
	AddCallableRoutes(router, d)
	AddRealtimeRoutes(router, d)
	AddUtilityRoutes(router, d)
}
