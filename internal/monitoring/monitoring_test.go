package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	s := NewService()
	s.CycleCompleted(true)
	s.CycleCompleted(true)
	s.CycleCompleted(false)
	s.GeocodeHit()
	s.GeocodeMiss()
	s.GeocodeMiss()
	s.RecordEvent(EventsDetected, map[string]string{"type": "takeoff", "hex": "3e0fe9"})

	assert.Equal(t, int64(2), s.Get(CyclesOK))
	assert.Equal(t, int64(1), s.Get(CyclesFailed))
	assert.Equal(t, int64(2), s.Get(GeocodeMisses))
	assert.Equal(t, int64(1), s.Get(EventsDetected))
	assert.Equal(t, int64(0), s.Get(SessionRestarts))

	m := s.Snapshot()
	assert.Equal(t, int64(1), m.Counters[GeocodeHits])
	assert.Len(t, m.Summary, 5)
	assert.Contains(t, m.Summary[0], EventsDetected)
	assert.Contains(t, m.LastEventAt, CyclesOK)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewService()
	s.PageRebuilt()
	m := s.Snapshot()
	m.Counters[PageRebuilds] = 100
	assert.Equal(t, int64(1), s.Get(PageRebuilds))
}
