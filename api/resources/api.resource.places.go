// FilePath: api/resources/api.resource.places.go
package resources

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/itsatony/flightwatch/internal/errors"
	"github.com/itsatony/flightwatch/internal/places"
	"github.com/itsatony/flightwatch/internal/trackerservice"
	nuts "github.com/vaudience/go-nuts"
)

// PlaceHandlers manage the user gazetteer
type PlaceHandlers struct {
	tracker *trackerservice.TrackerService
}

// @Summary List places
// @Tags places
// @Produce json
// @Success 200 {array} models.GazetteerEntry
// @Router /places [get]
func (h *PlaceHandlers) ListPlaces(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.tracker.ListPlaces())
}

// @Summary Get a place by ID
// @Tags places
// @Produce json
// @Param id path string true "Place ID"
// @Success 200 {object} models.GazetteerEntry
// @Failure 404 {object} errors.APIError
// @Router /places/{id} [get]
func (h *PlaceHandlers) GetPlace(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	entry, err := h.tracker.GetPlace(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, serviceError(err, "failed to get place", requestID))
		return
	}
	respondWithJSON(w, http.StatusOK, entry)
}

// @Summary Create a place
// @Description Adds a gazetteer entry and re-attributes the stored events
// @Tags places
// @Accept json
// @Produce json
// @Param place body places.EntryInput true "Place details"
// @Success 201 {object} models.GazetteerEntry
// @Failure 400 {object} errors.APIError
// @Failure 401 {object} errors.APIError
// @Router /places [post]
// @Security BearerAuth
func (h *PlaceHandlers) CreatePlace(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var in places.EntryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	entry, err := h.tracker.CreatePlace(r.Context(), in)
	if err != nil {
		respondWithError(w, serviceError(err, "failed to create place", requestID))
		return
	}
	respondWithJSON(w, http.StatusCreated, entry)
}

// @Summary Update a place
// @Tags places
// @Accept json
// @Produce json
// @Param id path string true "Place ID"
// @Param place body places.EntryInput true "Updated place details"
// @Success 200 {object} models.GazetteerEntry
// @Failure 400 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Router /places/{id} [put]
// @Security BearerAuth
func (h *PlaceHandlers) UpdatePlace(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var in places.EntryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	entry, err := h.tracker.UpdatePlace(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		respondWithError(w, serviceError(err, "failed to update place", requestID))
		return
	}
	respondWithJSON(w, http.StatusOK, entry)
}

// @Summary Delete a place
// @Tags places
// @Param id path string true "Place ID"
// @Success 204 "No Content"
// @Failure 404 {object} errors.APIError
// @Router /places/{id} [delete]
// @Security BearerAuth
func (h *PlaceHandlers) DeletePlace(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	if err := h.tracker.DeletePlace(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondWithError(w, serviceError(err, "failed to delete place", requestID))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
