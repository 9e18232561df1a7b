package api

import (
	"net/http"

	"github.com/neexbeast/outage-ledger/internal/outage"
)

// ListOutages handles GET /api/v1/outages.
func (h *Handlers) ListOutages(w http.ResponseWriter, r *http.Request) {
	f, sort, page, err := parseOutageQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.outages.List(r.Context(), UserIDFromContext(r.Context()), f, sort, page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	now := result.AsOf
	if now.IsZero() {
		now = h.clock.Now()
	}
	writeJSON(w, http.StatusOK, presentPage(result, func(o outage.Outage) outageResponse {
		return presentOutage(o, now)
	}))
}

// CreateOutage handles POST /api/v1/outages.
// The weather fields are fetched for the referenced location; any supplied
// in the body are ignored.
func (h *Handlers) CreateOutage(w http.ResponseWriter, r *http.Request) {
	var in outage.OutageInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	o, err := h.outages.Create(r.Context(), UserIDFromContext(r.Context()), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	msg := "Outage created successfully"
	if o.EndTime == nil {
		msg = "Ongoing outage created successfully"
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": msg,
		"outage":  presentOutage(*o, h.clock.Now()),
	})
}

// GetOutage handles GET /api/v1/outages/{id}.
func (h *Handlers) GetOutage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "outage")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	o, err := h.outages.Get(r.Context(), UserIDFromContext(r.Context()), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"outage": presentOutage(*o, h.clock.Now())})
}

// UpdateOutage handles PUT and PATCH /api/v1/outages/{id}.
func (h *Handlers) UpdateOutage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "outage")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var p outage.OutagePatch
	if err := decodeJSON(w, r, &p); err != nil {
		h.writeError(w, r, err)
		return
	}

	o, err := h.outages.Update(r.Context(), UserIDFromContext(r.Context()), id, p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Outage updated successfully",
		"outage":  presentOutage(*o, h.clock.Now()),
	})
}

// EndOutage handles POST /api/v1/outages/{id}/end.
func (h *Handlers) EndOutage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "outage")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var in outage.EndInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	o, err := h.outages.End(r.Context(), UserIDFromContext(r.Context()), id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Outage has been marked as ended",
		"outage":  presentOutage(*o, h.clock.Now()),
	})
}

// DeleteOutage handles DELETE /api/v1/outages/{id}.
func (h *Handlers) DeleteOutage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "outage")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.outages.Delete(r.Context(), UserIDFromContext(r.Context()), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, "Outage deleted successfully")
}
