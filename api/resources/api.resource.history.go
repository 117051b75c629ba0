// FilePath: api/resources/api.resource.history.go
package resources

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/itsatony/flightwatch/internal/normalize"
	"github.com/itsatony/flightwatch/internal/trackerservice"
	nuts "github.com/vaudience/go-nuts"
)

// HistoryHandlers expose the trace archive and the per-vehicle cleanup
type HistoryHandlers struct {
	tracker *trackerservice.TrackerService
}

// BackfillResponse reports whether a backfill was started. Started is false
// when one was already running for the vehicle.
type BackfillResponse struct {
	Hex     string `json:"hex"`
	Started bool   `json:"started"`
}

// @Summary Archived days of a vehicle
// @Tags history
// @Produce json
// @Param hex path string true "Vehicle hex"
// @Success 200 {array} string
// @Failure 400 {object} errors.APIError
// @Router /history/{hex} [get]
func (h *HistoryHandlers) ListDays(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	days, err := h.tracker.HistoryDays(pathHex(r))
	if err != nil {
		respondWithError(w, serviceError(err, "failed to list archived days", requestID))
		return
	}
	respondWithJSON(w, http.StatusOK, days)
}

// @Summary Archived trace of one day
// @Description The raw trace file as downloaded from the archive
// @Tags history
// @Produce json
// @Param hex path string true "Vehicle hex"
// @Param date path string true "UTC day as YYYY-MM-DD"
// @Success 200 {object} object
// @Failure 404 {object} errors.APIError
// @Router /history/{hex}/{date} [get]
func (h *HistoryHandlers) GetDay(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	body, err := h.tracker.HistoryDay(pathHex(r), mux.Vars(r)["date"])
	if err != nil {
		respondWithError(w, serviceError(err, "failed to read trace", requestID))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// @Summary Start a history backfill
// @Tags history
// @Produce json
// @Param hex path string true "Vehicle hex"
// @Success 202 {object} BackfillResponse
// @Failure 400 {object} errors.APIError
// @Failure 503 {object} errors.APIError
// @Router /history/{hex}/backfill [post]
// @Security BearerAuth
func (h *HistoryHandlers) Backfill(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	hex := pathHex(r)

	started, err := h.tracker.TriggerBackfill(hex)
	if err != nil {
		respondWithError(w, serviceError(err, "failed to start backfill", requestID))
		return
	}
	respondWithJSON(w, http.StatusAccepted, BackfillResponse{Hex: hex, Started: started})
}

// @Summary Delete a vehicle
// @Description Removes events, reading log, archived traces and detector state of the vehicle
// @Tags history
// @Produce json
// @Param hex path string true "Vehicle hex"
// @Success 200 {object} cleanup.Report
// @Failure 400 {object} errors.APIError
// @Router /vehicles/{hex} [delete]
// @Security BearerAuth
func (h *HistoryHandlers) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	report, err := h.tracker.DeleteVehicle(r.Context(), pathHex(r))
	if err != nil {
		respondWithError(w, serviceError(err, "failed to delete vehicle", requestID))
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

func pathHex(r *http.Request) string {
	return normalize.Hex(mux.Vars(r)["hex"])
}
