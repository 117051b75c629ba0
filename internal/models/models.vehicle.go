// FilePath: internal/models/models.vehicle.go
package models

import "time"

type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// PendingTakeoff is an open takeoff window after a transition to online
type PendingTakeoff struct {
	ChangedAt time.Time `json:"changedAt"`
	Suppress  bool      `json:"suppress"`
}

// VehicleState is the activity state tracked per vehicle
type VehicleState struct {
	Status              Status          `json:"status"`
	LastChange          time.Time       `json:"lastChange"`
	LastBelowThreshold  time.Time       `json:"lastBelowThreshold"`
	Pending             *PendingTakeoff `json:"pendingTakeoff,omitempty"`
	HasSeenFirstReading bool            `json:"hasSeenFirstReading"`
}

// Clone returns a deep copy of the state
func (s *VehicleState) Clone() *VehicleState {
	if s == nil {
		return nil
	}
	c := *s
	if s.Pending != nil {
		p := *s.Pending
		c.Pending = &p
	}
	return &c
}

// EngineStatus describes the scrape driver for the status endpoint
type EngineStatus struct {
	Target              string        `json:"target"`
	SessionID           string        `json:"sessionId,omitempty"`
	HasPage             bool          `json:"hasPage"`
	Running             bool          `json:"running"`
	Recovering          bool          `json:"recovering"`
	ConsecutiveTimeouts int           `json:"consecutiveTimeouts"`
	ActiveTask          string        `json:"activeTask,omitempty"`
	QueuedTasks         int           `json:"queuedTasks"`
	LastCycleAt         time.Time     `json:"lastCycleAt,omitempty"`
	LastSuccessAt       time.Time     `json:"lastSuccessAt,omitempty"`
	LastError           string        `json:"lastError,omitempty"`
	Vehicle             *VehicleState `json:"vehicle,omitempty"`
}
