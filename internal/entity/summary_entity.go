package entity

import "time"

type MeetingSummary struct {
	MeetingId       string
	Title           string
	StartedAt       time.Time
	EndedAt         time.Time
	DurationMinutes int
	Participants    []*Participant
	Summary         string
	Tasks           []Task
	ChatHighlights  []string
	CreatedAt       time.Time
}

type Task struct {
	Description    string `json:"description"`
	AssignedToName string `json:"assignedToName,omitempty"`
	Priority       string `json:"priority,omitempty"` // "low", "medium", "high"
}
