// FilePath: api/resources/api.resource.tracker.go
package resources

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/itsatony/flightwatch/internal/errors"
	"github.com/itsatony/flightwatch/internal/models"
	"github.com/itsatony/flightwatch/internal/trackerservice"
	nuts "github.com/vaudience/go-nuts"
)

// TrackerHandlers serve the live scrape state and the target vehicle
type TrackerHandlers struct {
	tracker *trackerservice.TrackerService
}

// @Summary Service health
// @Description Liveness of the service, its scrape driver and optional backends
// @Tags system
// @Produce json
// @Success 200 {object} trackerservice.Health
// @Router /health [get]
func (h *TrackerHandlers) Health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.tracker.Health(r.Context()))
}

// @Summary Service counters
// @Tags system
// @Produce json
// @Success 200 {object} monitoring.Metrics
// @Router /metrics [get]
func (h *TrackerHandlers) Metrics(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.tracker.Metrics())
}

// @Summary Scrape driver status
// @Description Session, timeout counter, queue and detector state of the target
// @Tags tracker
// @Produce json
// @Success 200 {object} models.EngineStatus
// @Router /status [get]
func (h *TrackerHandlers) Status(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.tracker.Status())
}

// @Summary Latest reading
// @Description The last reading scraped for any vehicle, or an empty object before the first one
// @Tags tracker
// @Produce json
// @Success 200 {object} models.Reading
// @Router /latest [get]
func (h *TrackerHandlers) Latest(w http.ResponseWriter, r *http.Request) {
	latest := h.tracker.Latest()
	if latest == nil {
		respondWithJSON(w, http.StatusOK, struct{}{})
		return
	}
	respondWithJSON(w, http.StatusOK, latest)
}

// @Summary Reading log
// @Description Logged online readings of a vehicle. Without hex the logged vehicles are listed.
// @Tags tracker
// @Produce json
// @Param hex query string false "Vehicle hex"
// @Param limit query int false "Most recent readings to return"
// @Success 200 {array} models.Reading
// @Failure 400 {object} errors.APIError
// @Router /log [get]
func (h *TrackerHandlers) Log(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var q models.LogQuery
	if err := decodeQuery(r, &q); err != nil {
		respondWithError(w, serviceError(err, "invalid query", requestID))
		return
	}
	if q.Hex == "" {
		vehicles, err := h.tracker.LoggedVehicles()
		if err != nil {
			respondWithError(w, serviceError(err, "failed to list logged vehicles", requestID))
			return
		}
		respondWithJSON(w, http.StatusOK, vehicles)
		return
	}

	readings, err := h.tracker.QueryLog(q)
	if err != nil {
		respondWithError(w, serviceError(err, "failed to read log", requestID))
		return
	}
	respondWithJSON(w, http.StatusOK, readings)
}

// LegacyLog answers like the old frontend expects: the log of hex when it
// has one, otherwise every log keyed by vehicle.
func (h *TrackerHandlers) LegacyLog(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var q models.LogQuery
	if err := decodeQuery(r, &q); err != nil {
		respondWithError(w, serviceError(err, "invalid query", requestID))
		return
	}
	limit := h.tracker.Config.Current().Storage.LogCap
	if q.Hex != "" && models.ValidHex(q.Hex) {
		readings, err := h.tracker.QueryLog(models.LogQuery{Hex: q.Hex, Limit: limit})
		if err == nil && len(readings) > 0 {
			respondWithJSON(w, http.StatusOK, readings)
			return
		}
	}

	vehicles, err := h.tracker.LoggedVehicles()
	if err != nil {
		respondWithError(w, serviceError(err, "failed to list logged vehicles", requestID))
		return
	}
	all := make(map[string][]*models.Reading, len(vehicles))
	for _, hex := range vehicles {
		readings, err := h.tracker.QueryLog(models.LogQuery{Hex: hex, Limit: limit})
		if err != nil {
			respondWithError(w, serviceError(err, "failed to read log", requestID))
			return
		}
		all[hex] = readings
	}
	respondWithJSON(w, http.StatusOK, all)
}

// @Summary Current target
// @Tags tracker
// @Produce json
// @Success 200 {object} models.Target
// @Router /target [get]
func (h *TrackerHandlers) GetTarget(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.tracker.Target())
}

// @Summary Switch the target vehicle
// @Description Persists the target, navigates the scrape page and starts the history backfill
// @Tags tracker
// @Accept json
// @Produce json
// @Param target body models.Target true "Target vehicle"
// @Success 200 {object} models.Target
// @Failure 400 {object} errors.APIError
// @Failure 401 {object} errors.APIError
// @Router /target [post]
// @Security BearerAuth
func (h *TrackerHandlers) SetTarget(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var body models.Target
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	target, err := h.tracker.SetTarget(r.Context(), body.Hex)
	if err != nil {
		respondWithError(w, serviceError(err, "failed to set target", requestID))
		return
	}
	respondWithJSON(w, http.StatusOK, target)
}

// LegacySet switches the target from a query string and answers in plain text
func (h *TrackerHandlers) LegacySet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	var q models.TargetQuery
	if err := decodeQuery(r, &q); err != nil || q.Hex == "" {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, "Please provide ?hex=xxxxxx")
		return
	}

	target, err := h.tracker.SetTarget(r.Context(), q.Hex)
	if err != nil {
		apiErr := errors.AsAPIError(err, "failed to set target")
		nuts.L.Warnf("[API] Legacy target switch to %q failed: %v", q.Hex, err)
		w.WriteHeader(apiErr.Code)
		fmt.Fprintf(w, "Could not set target: %s", apiErr.Message)
		return
	}
	fmt.Fprintf(w, "New target set: %s", target.Hex)
}
