package model

// PunchEvent is one clock-in/out as reported by a terminal.
type PunchEvent struct {
	PersonID string `json:"user_id"`
	// PersonName is whatever the terminal sent with the punch; may be empty.
	// The person directory takes precedence.
	PersonName string `json:"user_name,omitempty"`
	// Timestamp is the raw value from the terminal, usually without an offset.
	Timestamp string `json:"timestamp"`
	Status    int    `json:"status"`
}

// Person is a row of a terminal's person directory.
type Person struct {
	ID   string `json:"user_id"`
	Name string `json:"name"`
}

const UnknownUser = "Unknown User"

// CanonicalRecord is a punch with a fixed-offset ISO-8601 timestamp.
// Two records are duplicates iff all fields match (==).
type CanonicalRecord struct {
	PersonID   string `json:"user_id"`
	PersonName string `json:"user_name"`
	Time       string `json:"time"`
	Status     int    `json:"status"`
}
