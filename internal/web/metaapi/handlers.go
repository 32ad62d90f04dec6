package metaapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/conduit-lang/metamodel/internal/cli/ui"
	"github.com/conduit-lang/metamodel/internal/web/response"
	"github.com/conduit-lang/metamodel/runtime/metadata"
)

// HealthResponse is the body of GET /healthz
type HealthResponse struct {
	Status  string `json:"status"`
	BuildID string `json:"build_id,omitempty"`
	Types   int    `json:"types"`
}

// TypesResponse is the body of GET /types
type TypesResponse struct {
	Types []metadata.TypeMetadata `json:"types"`
	Count int                     `json:"count"`
}

// DependenciesResponse is the body of GET /types/{id}/dependencies
type DependenciesResponse struct {
	ID    string                    `json:"id"`
	Depth int                       `json:"depth"`
	Graph *metadata.DependencyGraph `json:"graph"`
}

// ReferencesResponse is the body of GET /types/{id}/references
type ReferencesResponse struct {
	ID           string   `json:"id"`
	ReferencedBy []string `json:"referenced_by"`
}

// CyclesResponse is the body of GET /cycles
type CyclesResponse struct {
	Cycles [][]string `json:"cycles"`
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{Status: a.cache.Status().String()}
	if meta := metadata.GetMetadata(); meta != nil {
		resp.BuildID = meta.BuildID
		resp.Types = len(meta.Types)
	}
	response.RenderJSON(w, http.StatusOK, resp)
}

func (a *API) listTypes(w http.ResponseWriter, r *http.Request) {
	var types []metadata.TypeMetadata
	if pattern := r.URL.Query().Get("pattern"); pattern != "" {
		types = metadata.QueryTypesByPattern(pattern)
	} else {
		types = metadata.QueryTypes()
	}
	if types == nil {
		types = []metadata.TypeMetadata{}
	}
	response.RenderJSON(w, http.StatusOK, TypesResponse{Types: types, Count: len(types)})
}

func (a *API) getType(w http.ResponseWriter, r *http.Request) {
	tm, err := lookup(r)
	if err != nil {
		response.RenderError(w, http.StatusInternalServerError, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, tm)
}

func (a *API) dependencies(w http.ResponseWriter, r *http.Request) {
	tm, err := lookup(r)
	if err != nil {
		response.RenderError(w, http.StatusInternalServerError, err)
		return
	}

	var opts metadata.DependencyOptions
	if opts.Depth, err = queryInt(r, "depth", 0); err != nil {
		response.RenderError(w, http.StatusBadRequest, err)
		return
	}
	if opts.Reverse, err = queryBool(r, "reverse", false); err != nil {
		response.RenderError(w, http.StatusBadRequest, err)
		return
	}
	opts.Types = queryList(r, "types")

	id := nodeID(tm)
	graph, err := metadata.QueryDependencies(id, opts)
	if err != nil {
		response.RenderError(w, http.StatusInternalServerError, err)
		return
	}
	depth, err := metadata.GetDependencyDepth(id)
	if err != nil {
		response.RenderError(w, http.StatusInternalServerError, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, DependenciesResponse{ID: id, Depth: depth, Graph: graph})
}

func (a *API) references(w http.ResponseWriter, r *http.Request) {
	tm, err := lookup(r)
	if err != nil {
		response.RenderError(w, http.StatusInternalServerError, err)
		return
	}
	id := nodeID(tm)
	response.RenderJSON(w, http.StatusOK, ReferencesResponse{
		ID:           id,
		ReferencedBy: metadata.QueryReferencesTo(id),
	})
}

func (a *API) snapshot(w http.ResponseWriter, _ *http.Request) {
	response.RenderJSON(w, http.StatusOK, metadata.GetMetadata())
}

func (a *API) cycles(w http.ResponseWriter, _ *http.Request) {
	meta := metadata.GetMetadata()
	if meta == nil {
		response.RenderErrorWithCode(w, http.StatusServiceUnavailable,
			errors.New("metamodel snapshot not registered"), CodeNotRegistered)
		return
	}
	cycles := metadata.DetectCycles(&meta.Dependencies)
	if cycles == nil {
		cycles = [][]string{}
	}
	response.RenderJSON(w, http.StatusOK, CyclesResponse{Cycles: cycles})
}

// lookup resolves the {id} path parameter by logical id or Go type name.
// A miss becomes a 404 carrying close logical ids as suggestions.
func lookup(r *http.Request) (*metadata.TypeMetadata, error) {
	id := chi.URLParam(r, "id")
	tm, err := metadata.QueryType(id)
	if err == nil {
		return tm, nil
	}
	if !errors.Is(err, metadata.ErrTypeNotFound) {
		return nil, err
	}

	suggestions := ui.FindSimilar(id, metadata.QueryLogicalIDs(), nil)
	if suggestions == nil {
		suggestions = []string{}
	}
	return nil, response.Errorf(http.StatusNotFound, "type %q not found", id).
		WithCode(CodeTypeNotFound).
		WithDetails(map[string]interface{}{"suggestions": suggestions})
}

// nodeID is the dependency graph id of a type
func nodeID(tm *metadata.TypeMetadata) string {
	if tm.LogicalID != "" {
		return tm.LogicalID
	}
	return tm.Type
}
