// FilePath: api/resources/resources.go
package resources

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/schema"
	"github.com/itsatony/flightwatch/internal/errors"
	"github.com/itsatony/flightwatch/internal/trackerservice"
	nuts "github.com/vaudience/go-nuts"
)

// Resources holds all HTTP resource handlers
type Resources struct {
	Tracker *TrackerHandlers
	Events  *EventHandlers
	Places  *PlaceHandlers
	History *HistoryHandlers
}

// NewResources creates a new Resources instance
func NewResources(svc *trackerservice.TrackerService) *Resources {
	return &Resources{
		Tracker: &TrackerHandlers{tracker: svc},
		Events:  &EventHandlers{tracker: svc},
		Places:  &PlaceHandlers{tracker: svc},
		History: &HistoryHandlers{tracker: svc},
	}
}

var queryDecoder = newQueryDecoder()

func newQueryDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// decodeQuery fills dst from the request query string
func decodeQuery(r *http.Request, dst any) error {
	if err := queryDecoder.Decode(dst, r.URL.Query()); err != nil {
		return errors.NewValidationError("invalid query parameters", err)
	}
	return nil
}

// serviceError turns an error returned by the tracker service into an APIError
func serviceError(err error, fallback, requestID string) *errors.APIError {
	return errors.AsAPIError(err, fallback).WithRequestID(requestID)
}

func respondWithError(w http.ResponseWriter, err *errors.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	json.NewEncoder(w).Encode(err)
	if err.Code >= http.StatusInternalServerError {
		nuts.L.Errorf("[API] %s", err.Error())
		return
	}
	nuts.L.Warnf("[API] %s", err.Error())
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
