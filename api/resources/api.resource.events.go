// FilePath: api/resources/api.resource.events.go
package resources

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/itsatony/flightwatch/internal/models"
	"github.com/itsatony/flightwatch/internal/trackerservice"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	nuts "github.com/vaudience/go-nuts"
)

const (
	streamBuffer    = 16
	streamKeepAlive = 25 * time.Second
)

// EventHandlers serve detected takeoff and landing events
type EventHandlers struct {
	tracker *trackerservice.TrackerService
}

// @Summary List events
// @Description Detected takeoffs and landings, oldest first
// @Tags events
// @Produce json
// @Param hex query string false "Vehicle hex"
// @Param type query string false "takeoff or landing"
// @Param limit query int false "Most recent events to return"
// @Success 200 {array} models.Event
// @Failure 400 {object} errors.APIError
// @Router /events [get]
func (h *EventHandlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	events, err := h.query(r)
	if err != nil {
		respondWithError(w, serviceError(err, "failed to list events", requestID))
		return
	}
	respondWithJSON(w, http.StatusOK, events)
}

// @Summary Events as GeoJSON
// @Description Events with a position as a FeatureCollection of points
// @Tags events
// @Produce json
// @Param hex query string false "Vehicle hex"
// @Param type query string false "takeoff or landing"
// @Param limit query int false "Most recent events to return"
// @Success 200 {object} object
// @Router /events.geojson [get]
func (h *EventHandlers) GeoJSON(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	events, err := h.query(r)
	if err != nil {
		respondWithError(w, serviceError(err, "failed to list events", requestID))
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(EventsToGeoJSON(events))
}

// EventsToGeoJSON converts events with coordinates into point features
func EventsToGeoJSON(events []*models.Event) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, ev := range events {
		if ev.Lat == nil || ev.Lon == nil {
			continue
		}
		f := geojson.NewFeature(orb.Point{*ev.Lon, *ev.Lat})
		f.ID = ev.ID
		f.Properties["type"] = string(ev.Type)
		f.Properties["hex"] = ev.Hex
		f.Properties["callsign"] = ev.Callsign
		f.Properties["time"] = ev.Time.Format(time.RFC3339)
		if ev.Altitude != nil {
			f.Properties["alt"] = *ev.Altitude
		}
		if ev.GroundSpeed != nil {
			f.Properties["gs"] = *ev.GroundSpeed
		}
		if ev.Place != nil {
			f.Properties["place"] = ev.Place.Name
			f.Properties["placeType"] = ev.Place.Type
			f.Properties["placeSource"] = string(ev.Place.Source)
		}
		fc.Append(f)
	}
	return fc
}

// @Summary Live event stream
// @Description Server-Sent Events, one "takeoff" or "landing" message per new event
// @Tags events
// @Produce text/event-stream
// @Success 200 {string} string
// @Router /events/stream [get]
func (h *EventHandlers) Stream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// the server write timeout would end the stream
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		nuts.L.Warnf("[API] Event stream cannot clear write deadline: %v", err)
	}

	events, cancel := h.tracker.SubscribeEvents(streamBuffer)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	if err := rc.Flush(); err != nil {
		nuts.L.Warnf("[API] Event stream not supported: %v", err)
		return
	}
	nuts.L.Infof("[API] Event stream opened from %s", r.RemoteAddr)

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			nuts.L.Infof("[API] Event stream from %s closed", r.RemoteAddr)
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeSSE(w, ev); err != nil {
				nuts.L.Warnf("[API] Event stream write failed: %v", err)
				return
			}
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeSSE(w http.ResponseWriter, ev *models.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.ID, ev.Type, data)
	return err
}

func (h *EventHandlers) query(r *http.Request) ([]*models.Event, error) {
	var q models.EventQuery
	if err := decodeQuery(r, &q); err != nil {
		return nil, err
	}
	return h.tracker.QueryEvents(q)
}
