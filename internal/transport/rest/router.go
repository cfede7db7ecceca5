package rest

import (
	"net/http"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Health      *HealthHandler
	Modules     *ModuleHandler
	Types       *TypeHandler
	Objects     *ObjectHandler
	Relations   *RelationHandler
	Timeline    *TimelineHandler
	Marketplace *MarketplaceHandler
}

// NewRouter builds the API mux. Probes live at the root; everything else is
// versioned under /api/v1.
func NewRouter(h Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /live", h.Health.Live)
	mux.HandleFunc("GET /ready", h.Health.Ready)
	mux.HandleFunc("GET /health", h.Health.Health)

	mux.HandleFunc("POST /api/v1/modules", h.Modules.Create)
	mux.HandleFunc("GET /api/v1/modules", h.Modules.List)
	mux.HandleFunc("GET /api/v1/modules/{id}", h.Modules.Get)
	mux.HandleFunc("PATCH /api/v1/modules/{id}", h.Modules.Update)
	mux.HandleFunc("DELETE /api/v1/modules/{id}", h.Modules.Delete)

	mux.HandleFunc("POST /api/v1/object-types", h.Types.Create)
	mux.HandleFunc("GET /api/v1/object-types", h.Types.List)
	mux.HandleFunc("GET /api/v1/object-types/{id}", h.Types.Get)
	mux.HandleFunc("PATCH /api/v1/object-types/{id}", h.Types.Update)
	mux.HandleFunc("DELETE /api/v1/object-types/{id}", h.Types.Delete)

	mux.HandleFunc("POST /api/v1/schema-relations", h.Types.CreateSchemaRelation)
	mux.HandleFunc("GET /api/v1/schema-relations", h.Types.ListSchemaRelations)
	mux.HandleFunc("PATCH /api/v1/schema-relations/{id}", h.Types.UpdateSchemaRelation)
	mux.HandleFunc("DELETE /api/v1/schema-relations/{id}", h.Types.DeleteSchemaRelation)

	mux.HandleFunc("POST /api/v1/objects", h.Objects.Create)
	mux.HandleFunc("POST /api/v1/objects/search", h.Objects.Search)
	mux.HandleFunc("GET /api/v1/objects/{id}", h.Objects.Get)
	mux.HandleFunc("DELETE /api/v1/objects/{id}", h.Objects.Delete)
	mux.HandleFunc("POST /api/v1/objects/{id}/modules", h.Objects.AttachModule)
	mux.HandleFunc("PUT /api/v1/objects/{id}/modules/{module}", h.Objects.UpdateModuleData)
	mux.HandleFunc("DELETE /api/v1/objects/{id}/modules/{module}", h.Objects.DetachModule)
	mux.HandleFunc("GET /api/v1/objects/{id}/processors", h.Objects.EligibleProcessors)
	mux.HandleFunc("POST /api/v1/objects/{id}/processors/run", h.Objects.RunProcessors)

	mux.HandleFunc("POST /api/v1/relations", h.Relations.Create)
	mux.HandleFunc("DELETE /api/v1/relations/{id}", h.Relations.Delete)
	mux.HandleFunc("GET /api/v1/objects/{id}/relations", h.Relations.ListForObject)

	mux.HandleFunc("POST /api/v1/objects/{id}/notes", h.Timeline.AddNote)
	mux.HandleFunc("GET /api/v1/objects/{id}/timeline", h.Timeline.List)

	mux.HandleFunc("GET /api/v1/marketplace/listings", h.Marketplace.ListListings)
	mux.HandleFunc("POST /api/v1/marketplace/proposals", h.Marketplace.SubmitProposal)
	mux.HandleFunc("POST /api/v1/marketplace/proposals/{id}/accept", h.Marketplace.AcceptProposal)
	mux.HandleFunc("POST /api/v1/marketplace/proposals/{id}/reject", h.Marketplace.RejectProposal)

	return mux
}
