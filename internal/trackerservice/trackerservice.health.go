package trackerservice

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/itsatony/flightwatch/internal/monitoring"
	nuts "github.com/vaudience/go-nuts"
)

// Health summarizes the service for the health endpoint
type Health struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Uptime       string            `json:"uptime"`
	Target       string            `json:"target"`
	LastSuccess  string            `json:"lastSuccess,omitempty"`
	Events       int               `json:"events"`
	Places       int               `json:"places"`
	GeocodeCache int               `json:"geocodeCache"`
	Subscribers  int               `json:"subscribers"`
	Backends     map[string]string `json:"backends,omitempty"`
}

func (s *TrackerService) Health(ctx context.Context) Health {
	metrics := s.Monitoring.Snapshot()
	st := s.Driver.Status()
	h := Health{
		Status:       "ok",
		Version:      nuts.GetVersion(),
		Uptime:       metrics.Uptime,
		Target:       st.Target,
		Events:       s.Events.Len(),
		Places:       len(s.Gazetteer.List()),
		GeocodeCache: s.Resolver.CacheLen(),
		Subscribers:  s.Events.Subscribers(),
	}
	if !st.LastSuccessAt.IsZero() {
		h.LastSuccess = humanize.Time(st.LastSuccessAt)
	}
	if st.Running && !st.HasPage {
		h.Status = "degraded"
	}

	if len(s.deps.Pingers) > 0 {
		h.Backends = make(map[string]string, len(s.deps.Pingers))
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		for name, ping := range s.deps.Pingers {
			if err := ping(pingCtx); err != nil {
				h.Backends[name] = err.Error()
				h.Status = "degraded"
				continue
			}
			h.Backends[name] = "ok"
		}
	}
	return h
}

func (s *TrackerService) Metrics() monitoring.Metrics {
	return s.Monitoring.Snapshot()
}
