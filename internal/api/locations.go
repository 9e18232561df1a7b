package api

import (
	"net/http"

	"github.com/neexbeast/outage-ledger/internal/outage"
)

// ListLocations handles GET /api/v1/locations.
func (h *Handlers) ListLocations(w http.ResponseWriter, r *http.Request) {
	f, sort, page, err := parseLocationQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.locations.List(r.Context(), UserIDFromContext(r.Context()), f, sort, page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, presentPage(result, presentLocation))
}

// CreateLocation handles POST /api/v1/locations.
func (h *Handlers) CreateLocation(w http.ResponseWriter, r *http.Request) {
	var in outage.LocationInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	loc, err := h.locations.Create(r.Context(), UserIDFromContext(r.Context()), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "Location created successfully",
		"location": presentLocation(*loc),
	})
}

// GetLocation handles GET /api/v1/locations/{id}.
func (h *Handlers) GetLocation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "location")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	loc, err := h.locations.Get(r.Context(), UserIDFromContext(r.Context()), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"location": presentLocation(*loc)})
}

// UpdateLocation handles PUT and PATCH /api/v1/locations/{id}. Both are
// partial: omitted fields keep their stored values.
func (h *Handlers) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "location")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var p outage.LocationPatch
	if err := decodeJSON(w, r, &p); err != nil {
		h.writeError(w, r, err)
		return
	}

	loc, err := h.locations.Update(r.Context(), UserIDFromContext(r.Context()), id, p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Location updated successfully",
		"location": presentLocation(*loc),
	})
}

// DeleteLocation handles DELETE /api/v1/locations/{id}.
func (h *Handlers) DeleteLocation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "location")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.locations.Delete(r.Context(), UserIDFromContext(r.Context()), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, "Location deleted successfully")
}
