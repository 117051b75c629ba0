package models

// LogQuery selects entries of a per-vehicle reading log
type LogQuery struct {
	Hex   string `schema:"hex"`
	Limit int    `schema:"limit"`
}

// EventQuery filters the event log
type EventQuery struct {
	Hex   string    `schema:"hex"`
	Type  EventType `schema:"type"`
	Limit int       `schema:"limit"`
}

// TargetQuery carries a vehicle selection from the legacy /set route
type TargetQuery struct {
	Hex string `schema:"hex"`
}
